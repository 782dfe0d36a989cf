package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	domainerrors "github.com/richinex/booksearch/internal/errors"
)

// Supported cache backends.
const (
	BackendFiles  = "files"
	BackendSQLite = "sqlite"
)

// sqliteFile is the database name used inside the cache directory.
const sqliteFile = "cache.db"

// Open opens the cache backend named by backend rooted at dir.
func Open(backend, dir string, opts ...Option) (Store, error) {
	switch strings.ToLower(backend) {
	case BackendFiles, "":
		store, err := OpenFileStore(dir, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendSQLite:
		store, err := OpenSQLite(filepath.Join(dir, sqliteFile), opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, domainerrors.Configurationf("unknown cache backend %q (want %s or %s)", backend, BackendFiles, BackendSQLite)
	}
}

// Describe returns a one-line description of where a store keeps data.
func Describe(backend, dir string) string {
	if strings.EqualFold(backend, BackendSQLite) {
		return fmt.Sprintf("sqlite %s", filepath.Join(dir, sqliteFile))
	}
	return fmt.Sprintf("files %s", dir)
}
