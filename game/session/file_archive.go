package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileArchive implements LogArchive using one JSON file per game ID
type FileArchive struct {
	dir string
	mu  sync.Mutex
}

// NewFileArchive creates a file-based archive rooted at dir
func NewFileArchive(dir string) (*FileArchive, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &FileArchive{dir: dir}, nil
}

// Save writes the record, replacing any earlier lifecycle of the same id
func (fa *FileArchive) Save(ctx context.Context, log *ArchivedLog) error {
	if log == nil {
		return fmt.Errorf("archived log cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal archived log: %w", err)
	}

	fa.mu.Lock()
	defer fa.mu.Unlock()

	// Write beside the target and rename so readers never see a partial file
	path := fa.getFilePath(log.GameID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write archive file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write archive file: %w", err)
	}
	return nil
}

// Load reads the archived record of a game ID
func (fa *FileArchive) Load(ctx context.Context, id string) (*ArchivedLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fa.getFilePath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to read archive file: %w", err)
	}

	var log ArchivedLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("failed to unmarshal archived log: %w", err)
	}
	return &log, nil
}

// ListAll returns every archived game ID
func (fa *FileArchive) ListAll(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(fa.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			// Not written by us
			continue
		}
		ids = append(ids, string(raw))
	}
	return ids, nil
}

// getFilePath maps an opaque game ID to a safe file name
func (fa *FileArchive) getFilePath(id string) string {
	name := base64.RawURLEncoding.EncodeToString([]byte(id))
	return filepath.Join(fa.dir, name+".json")
}
