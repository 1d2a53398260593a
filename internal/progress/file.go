package progress

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// FileStore writes one YAML document per player under a directory.
type FileStore struct {
	dir string
	now func() time.Time
	// guards the version check and rename of Save
	mu sync.Mutex
}

// fileDocument accepts documents written before hints_revealed was renamed.
type fileDocument struct {
	Record        `yaml:",inline"`
	CluesRevealed *int `yaml:"clues_revealed,omitempty"`
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create progress directory: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

func (f *FileStore) path(playerID string) (string, error) {
	if err := checkPlayerID(playerID); err != nil {
		return "", err
	}
	name := unsafeFileChars.ReplaceAllString(playerID, "_")
	return filepath.Join(f.dir, name+".yaml"), nil
}

func (f *FileStore) Load(_ context.Context, playerID string) (*Record, error) {
	path, err := f.path(playerID)
	if err != nil {
		return nil, err
	}
	return f.read(path, playerID)
}

func (f *FileStore) read(path, playerID string) (*Record, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read progress: %w", err)
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode progress %s: %w", path, err)
	}
	rec := doc.Record
	if doc.CluesRevealed != nil && rec.HintsRevealed == 0 {
		rec.HintsRevealed = *doc.CluesRevealed
	}
	rec.PlayerID = playerID
	rec = rec.Clone()
	return &rec, nil
}

// Save replaces the player's document through a temp file and rename.
// The version check only covers writers sharing this FileStore.
func (f *FileStore) Save(_ context.Context, rec Record) error {
	path, err := f.path(rec.PlayerID)
	if err != nil {
		return err
	}
	rec = rec.Clone()
	rec.UpdatedAt = f.now().UTC()

	f.mu.Lock()
	defer f.mu.Unlock()
	stored, err := f.read(path, rec.PlayerID)
	if err != nil {
		return err
	}
	var current int64
	if stored != nil {
		current = stored.Version
	}
	if current != rec.Version {
		return ErrVersionConflict
	}
	rec.Version++

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, ".progress-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write progress: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close progress: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace progress: %w", err)
	}
	return nil
}

func (f *FileStore) Ping(context.Context) error {
	_, err := os.Stat(f.dir)
	return err
}

func (f *FileStore) Close() error { return nil }
