// Package history persists the last booted device so `simman boot` can be
// pointed back at it. Everything here is best-effort: callers log failures
// and carry on.
package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

type record struct {
	UDID     string    `json:"udid"`
	BootedAt time.Time `json:"bootedAt"`
}

// FileStore keeps the record in a JSON file under the user config dir.
type FileStore struct {
	path string
}

// NewFileStore places the store at <config-dir>/simman/recent.json.
func NewFileStore() (*FileStore, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	return &FileStore{path: filepath.Join(dir, "simman", "recent.json")}, nil
}

// NewFileStoreAt uses an explicit file path. Used by tests.
func NewFileStoreAt(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// SaveLastBooted records the device that just booted.
func (s *FileStore) SaveLastBooted(udid string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(record{UDID: udid, BootedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// LastBooted returns the most recently booted device, if one was recorded.
func (s *FileStore) LastBooted() (string, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	var r record
	if err := json.Unmarshal(data, &r); err != nil || r.UDID == "" {
		return "", false
	}
	return r.UDID, true
}
