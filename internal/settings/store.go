package settings

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// StoreConfig configures a Store.
type StoreConfig struct {
	// Path is the JSON file holding the record.
	Path string

	// CredentialPrefix, when set, is enforced on every saved credential.
	CredentialPrefix string
}

// Store persists the settings record and serves snapshots of it. All
// read-modify-write cycles are serialized on the store's lock; readers get
// value copies and never observe a half-applied update.
type Store struct {
	cfg StoreConfig
	log *slog.Logger

	mu      sync.RWMutex
	current Settings
}

// NewStore creates a store for cfg.Path and loads whatever is persisted
// there. A missing or unreadable file yields the defaults.
func NewStore(cfg StoreConfig, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		cfg: cfg,
		log: logger.With("component", "settings"),
	}
	s.Load()

	return s
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.cfg.Path
}

// Load re-reads the persisted record, replaces the in-memory copy and
// returns it. It never fails: a missing file or a parse error falls back to
// Default.
func (s *Store) Load() Settings {
	loaded := s.read()

	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()

	return loaded
}

func (s *Store) read() Settings {
	data, err := os.ReadFile(s.cfg.Path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Info("Settings file not found, using defaults",
				"path", s.cfg.Path)
		} else {
			s.log.Error("Failed to read settings, using defaults",
				"path", s.cfg.Path, "error", err)
		}
		return Default()
	}

	// Fields missing from the file keep their defaults.
	loaded := Default()
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.log.Error("Failed to parse settings, using defaults",
			"path", s.cfg.Path, "error", err)
		return Default()
	}

	return loaded
}

// Snapshot returns a copy of the current record.
func (s *Store) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current
}

// Save validates next, writes it atomically and makes it current.
func (s *Store) Save(next Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveLocked(next)
}

// Update applies patch to the current record and saves the result under a
// single lock acquisition. It returns the record that is now current.
func (s *Store) Update(patch Patch) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := patch.Apply(s.current)
	if err := s.saveLocked(next); err != nil {
		return s.current, err
	}

	return next, nil
}

func (s *Store) saveLocked(next Settings) error {
	if err := next.Validate(s.cfg.CredentialPrefix); err != nil {
		return err
	}

	if err := writeFileAtomic(s.cfg.Path, next); err != nil {
		s.log.Error("Failed to save settings", "path", s.cfg.Path,
			"error", err)
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}

	s.current = next
	s.log.Info("Settings saved", "path", s.cfg.Path,
		"enabled", next.Enabled, "oauth_configured", next.HasCredential(),
		"command_path", next.CommandPath, "timeout", next.TimeoutSeconds)

	return nil
}

// writeFileAtomic writes the record to a temporary file in the destination
// directory and renames it over path, so readers only ever see a complete
// record.
func writeFileAtomic(path string, record Settings) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	// The record holds a secret.
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
