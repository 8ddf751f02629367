package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// DiskStore writes runs as JSON files to a directory. Without an explicit
// directory, a temp directory is created lazily on first use.
type DiskStore struct {
	mu  sync.Mutex
	dir string
}

// NewDiskStore creates a DiskStore rooted at dir. An empty dir means a
// fresh temp directory.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

// Save writes a run as a JSON file.
func (s *DiskStore) Save(run *Run) error {
	path, err := s.path(run.ID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshalling run %s: %w", run.ID, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing run %s: %w", run.ID, err)
	}
	return nil
}

// Load reads a run from disk.
func (s *DiskStore) Load(runID string) (*Run, error) {
	path, err := s.path(runID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading run %s: %w", runID, err)
	}
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("unmarshalling run %s: %w", runID, err)
	}
	return &run, nil
}

// path maps a run ID to its file. IDs must be UUIDs so they can never
// name a file outside the store directory.
func (s *DiskStore) path(runID string) (string, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return "", fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	dir, err := s.ensureDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, runID+".json"), nil
}

func (s *DiskStore) ensureDir() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0o700); err != nil {
			return "", fmt.Errorf("creating run directory: %w", err)
		}
		return s.dir, nil
	}
	dir, err := os.MkdirTemp("", "procrun-runs-*")
	if err != nil {
		return "", fmt.Errorf("creating run directory: %w", err)
	}
	s.dir = dir
	return dir, nil
}
