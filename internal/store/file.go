package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
)

const autosaveName = "autosave.json"

// FileStore saves and loads documents on disk and owns the autosave slot.
type FileStore struct {
	mu      sync.Mutex
	dataDir string
	log     *log.Logger
}

// DefaultDataDir returns $XDG_DATA_HOME/smartboard, falling back to
// ~/.local/share/smartboard.
func DefaultDataDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "smartboard"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".local", "share", "smartboard"), nil
}

// NewFileStore returns a store whose autosave slot lives in dataDir.
// An empty dataDir uses DefaultDataDir.
func NewFileStore(dataDir string, logger *log.Logger) (*FileStore, error) {
	if dataDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return nil, err
		}
		dataDir = dir
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &FileStore{dataDir: dataDir, log: logger.WithPrefix("store")}, nil
}

// AutosavePath is the location of the autosave slot.
func (s *FileStore) AutosavePath() string { return filepath.Join(s.dataDir, autosaveName) }

// Save writes doc to path atomically, in the format its extension selects.
func (s *FileStore) Save(ctx context.Context, path string, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(doc, FormatFor(path))
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeAtomic(path, data); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	s.log.Debug("saved", "path", path, "pages", len(doc.Pages), "bytes", len(data))
	return nil
}

// Load reads the document at path. Only I/O failures are errors; damaged
// content is recovered with a warning.
func (s *FileStore) Load(ctx context.Context, path string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	s.mu.Lock()
	data, err := os.ReadFile(path)
	s.mu.Unlock()
	if err != nil {
		return Document{}, fmt.Errorf("load %s: %w", path, err)
	}
	doc, warn := Decode(data, FormatFor(path))
	if warn != nil {
		s.log.Warn("document recovered", "path", path, "err", warn)
	}
	return doc, nil
}

// Autosave writes doc to the autosave slot.
func (s *FileStore) Autosave(ctx context.Context, doc Document) error {
	return s.Save(ctx, s.AutosavePath(), doc)
}

// LoadAutosave returns the autosaved document. A missing slot yields a
// blank document and false.
func (s *FileStore) LoadAutosave(ctx context.Context) (Document, bool, error) {
	doc, err := s.Load(ctx, s.AutosavePath())
	if errors.Is(err, os.ErrNotExist) {
		return Blank(), false, nil
	}
	if err != nil {
		return Blank(), false, err
	}
	return doc, true, nil
}

// writeAtomic replaces path with data through a temp file in the same
// directory.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
