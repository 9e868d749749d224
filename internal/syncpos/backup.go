package syncpos

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileBackup persists positions to a single JSON document keyed by store, so
// a redis flush never sends ingestion back to page one.
type FileBackup struct {
	path string
	mu   sync.Mutex
}

// NewFileBackup builds a file backup rooted at path.
func NewFileBackup(path string) (*FileBackup, error) {
	if path == "" {
		return nil, errors.New("backup path required")
	}
	return &FileBackup{path: path}, nil
}

// Load returns the saved position for a store, or (nil, nil) when the backup
// file or the store entry does not exist.
func (b *FileBackup) Load(store string) (*Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc, err := b.readAll()
	if err != nil {
		return nil, err
	}
	position, ok := doc[store]
	if !ok {
		return nil, nil
	}
	return &position, nil
}

// Save upserts a store's position, rewriting the whole document atomically.
func (b *FileBackup) Save(position Position) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc, err := b.readAll()
	if err != nil {
		return err
	}
	doc[position.Store] = position

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".positions-*.json")
	if err != nil {
		return fmt.Errorf("create temp backup: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close backup: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace backup: %w", err)
	}
	return nil
}

func (b *FileBackup) readAll() (map[string]Position, error) {
	raw, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(map[string]Position), nil
		}
		return nil, fmt.Errorf("read backup: %w", err)
	}
	doc := make(map[string]Position)
	if err := json.Unmarshal(raw, &doc); err != nil {
		// A corrupt backup is treated as absent rather than wedging ingestion.
		return make(map[string]Position), nil
	}
	return doc, nil
}
