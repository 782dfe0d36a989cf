package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Counter holds the last-assigned search identifier and persists it to a
// single file. It is owned by the store that allocates identifiers.
type Counter struct {
	path string
	last int
}

// NewCounter creates a counter backed by the file at path.
func NewCounter(path string) *Counter {
	return &Counter{path: path}
}

// Load reads the persisted value. A missing file means 0.
func (c *Counter) Load() error {
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		c.last = 0
		return nil
	}
	if err != nil {
		return fmt.Errorf("read last id: %w", err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		c.last = 0
		return nil
	}
	n, err := strconv.Atoi(text)
	if err != nil || !validID(n) {
		return fmt.Errorf("corrupt last id file %s: %q", c.path, text)
	}
	c.last = n
	return nil
}

// Next reloads the persisted value, advances it, persists the result and
// returns it.
func (c *Counter) Next() (int, error) {
	if err := c.Load(); err != nil {
		return 0, err
	}
	id := nextID(c.last)
	if err := writeFileAtomic(c.path, []byte(strconv.Itoa(id)+"\n")); err != nil {
		return 0, fmt.Errorf("write last id: %w", err)
	}
	c.last = id
	return id, nil
}

// Reset forgets the persisted value.
func (c *Counter) Reset() error {
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove last id: %w", err)
	}
	c.last = 0
	return nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
