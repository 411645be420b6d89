package index

import (
	"errors"
	"fmt"

	"reshare/pkg/types"
)

// ErrNotFound is returned when a name is not in the index
var ErrNotFound = errors.New("file not found")

// maxNameAttempts bounds the name(1), name(2), ... search in Insert
const maxNameAttempts = 100000

// Index maps (namespace, name) to stored file metadata. Implementations are safe
// for concurrent use.
type Index interface {
	// Insert adds info under a name that is unique within ns and returns the
	// stored entry. A taken name is retried as "name(1)", "name(2)", ...
	Insert(info types.FileInfo, ns types.Namespace) (types.FileInfo, error)
	// Get returns the entry for name in ns or ErrNotFound
	Get(name string, ns types.Namespace) (types.FileInfo, error)
	// List returns every entry of ns in insertion order. Unknown namespaces are empty.
	List(ns types.Namespace) ([]types.FileInfo, error)
	Close() error
}

// candidateName returns the i-th name tried for name
func candidateName(name string, i int) string {
	if i == 0 {
		return name
	}
	return fmt.Sprintf("%s(%d)", name, i)
}
