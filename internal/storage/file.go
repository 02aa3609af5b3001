package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps one JSON file per session key inside a directory. Saves
// go through a temp file and an atomic rename so a crash mid-write leaves
// the previous snapshot intact.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created on
// first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Load reads the record for sessionKey, returning ErrNotFound when no file
// exists yet.
func (f *FileStore) Load(_ context.Context, sessionKey string) (Record, error) {
	data, err := os.ReadFile(f.path(sessionKey))
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("failed to read emotion state file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal emotion state: %w", err)
	}
	return rec, nil
}

// Save writes the record atomically: marshal, write to a temp file, rename
// over the previous snapshot.
func (f *FileStore) Save(_ context.Context, sessionKey string, rec Record) error {
	if err := os.MkdirAll(f.dir, 0750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal emotion state: %w", err)
	}

	filename := f.path(sessionKey)
	tempFile := filename + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write emotion state file: %w", err)
	}
	if err := os.Rename(tempFile, filename); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to save emotion state: %w", err)
	}
	return nil
}

func (f *FileStore) path(sessionKey string) string {
	return filepath.Join(f.dir, "emotion_state_"+sanitizeKey(sessionKey)+".json")
}

// sanitizeKey keeps session keys filesystem-safe.
func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, key)
}

var _ Store = (*FileStore)(nil)
