package index

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"reshare/pkg/types"
	"reshare/pkg/utils"
)

const (
	filePrefix = "file:"
	seqKey     = "seq:files"
	seqBand    = 100
)

// record is the stored value of a file entry
type record struct {
	Name        string    `json:"name"`
	Size        uint64    `json:"size"`
	UploadDate  time.Time `json:"upload_date"`
	ContentType string    `json:"content_type,omitempty"`
	StoragePath string    `json:"storage_path"`
	Seq         uint64    `json:"seq"`
}

func newRecord(info types.FileInfo, seq uint64) record {
	return record{
		Name:        info.Name,
		Size:        info.Size,
		UploadDate:  info.UploadDate,
		ContentType: info.ContentType,
		StoragePath: info.StoragePath,
		Seq:         seq,
	}
}

func (r record) info() types.FileInfo {
	return types.FileInfo{
		Name:        r.Name,
		Size:        r.Size,
		UploadDate:  r.UploadDate,
		ContentType: r.ContentType,
		StoragePath: r.StoragePath,
	}
}

// Badger is an Index persisted in a BadgerDB directory, so the served names
// survive a server restart together with the stored blobs
type Badger struct {
	db  *badger.DB
	seq *badger.Sequence
	mu  sync.Mutex
}

// OpenBadger opens (or creates) the index at dbPath
func OpenBadger(dbPath string) (*Badger, error) {
	db, err := badger.Open(badger.DefaultOptions(dbPath).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	seq, err := db.GetSequence([]byte(seqKey), seqBand)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open sequence: %w", err)
	}

	return &Badger{db: db, seq: seq}, nil
}

// Close releases the sequence and closes the database
func (b *Badger) Close() error {
	if err := b.seq.Release(); err != nil {
		b.db.Close()
		return fmt.Errorf("failed to release sequence: %w", err)
	}
	return b.db.Close()
}

func nsPrefix(ns types.Namespace) []byte {
	return []byte(filePrefix + ns.Keyphrase() + "\x00")
}

func fileKey(name string, ns types.Namespace) []byte {
	return append(nsPrefix(ns), name...)
}

func (b *Badger) Insert(info types.FileInfo, ns types.Namespace) (types.FileInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	seq, err := b.seq.Next()
	if err != nil {
		return types.FileInfo{}, fmt.Errorf("failed to allocate sequence: %w", err)
	}

	var stored types.FileInfo
	err = b.db.Update(func(txn *badger.Txn) error {
		for i := 0; i < maxNameAttempts; i++ {
			name := candidateName(info.Name, i)
			key := fileKey(name, ns)

			_, err := txn.Get(key)
			if err == nil {
				continue
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			stored = info
			stored.Name = name
			val, err := utils.EncodeJSON(newRecord(stored, seq))
			if err != nil {
				return err
			}
			return txn.Set(key, val)
		}
		return fmt.Errorf("%s - no free file name", info.Name)
	})
	if err != nil {
		return types.FileInfo{}, fmt.Errorf("failed to insert file: %w", err)
	}

	return stored, nil
}

func (b *Badger) Get(name string, ns types.Namespace) (types.FileInfo, error) {
	var rec record
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(fileKey(name, ns))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec, err = utils.DecodeJSON[record](val)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return types.FileInfo{}, ErrNotFound
	}
	if err != nil {
		return types.FileInfo{}, fmt.Errorf("failed to get file: %w", err)
	}
	return rec.info(), nil
}

func (b *Badger) List(ns types.Namespace) ([]types.FileInfo, error) {
	var records []record
	err := b.db.View(func(txn *badger.Txn) error {
		prefix := nsPrefix(ns)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				rec, err := utils.DecodeJSON[record](val)
				if err != nil {
					return err
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Seq < records[j].Seq
	})

	files := make([]types.FileInfo, 0, len(records))
	for _, rec := range records {
		files = append(files, rec.info())
	}
	return files, nil
}
