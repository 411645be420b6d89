package types

import (
	"strings"
	"time"
)

// FileInfo describes a stored file
type FileInfo struct {
	Name        string    `json:"name"`
	Size        uint64    `json:"size"`
	UploadDate  time.Time `json:"upload_date"`
	ContentType string    `json:"content_type,omitempty"`

	// StoragePath is the blob location on the server and is never sent over the wire
	StoragePath string `json:"-"`
}

// FileDescriptor is one file of a transfer batch. Source is a local path for
// uploads and a remote URL for downloads.
type FileDescriptor struct {
	Name   string
	Length uint64
	Source string
}

// Namespace selects a partition of the file index. The zero value is the public
// namespace; any other value is a private keyphrase.
type Namespace string

// Public is the public namespace
const Public Namespace = ""

// NewNamespace returns the namespace for a keyphrase; blank keyphrases select Public
func NewNamespace(keyphrase string) Namespace {
	return Namespace(strings.TrimSpace(keyphrase))
}

// IsPublic reports whether n is the public namespace
func (n Namespace) IsPublic() bool {
	return n == Public
}

// Keyphrase returns the private keyphrase, or "" for the public namespace
func (n Namespace) Keyphrase() string {
	return string(n)
}
