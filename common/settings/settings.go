// Package settings persists small pieces of client state that must survive
// restarts, such as the session token and a buffered subscription intent. It
// is the single well-known store shared across the two logical lifetimes of
// the client that a browser redirect creates.
package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/subsense/subsense/common/atomicfile"
	"github.com/subsense/subsense/internal"
)

// Keys for various settings.
const (
	TokenKey               = "access_token"
	PendingSubscriptionKey = "pending_spotify_subscription"
	EmailKey               = "email"
	DeviceIDKey            = "device_id"
	LogLevelKey            = "log_level"
	DataPathKey            = "data_path"

	settingsFileName = "local.json"
)

var ErrReadOnly = errors.New("read-only")

// Store is a koanf-backed key-value store persisted as a single JSON file,
// written atomically so a concurrent reader never observes a partial write.
type Store struct {
	mu       sync.Mutex
	k        *koanf.Koanf
	parser   koanf.Parser
	filePath string
	readOnly bool
	watcher  *internal.FileWatcher
}

// New opens the settings store under dataDir, creating it with defaults on
// first run. An existing but unparseable file is an error rather than being
// silently replaced.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	s := &Store{
		k:        koanf.New("."),
		parser:   json.Parser(),
		filePath: filepath.Join(dataDir, settingsFileName),
	}
	raw, err := atomicfile.ReadFile(s.filePath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error loading settings file: %w", err)
		}
		if err := s.setDefaults(dataDir); err != nil {
			return nil, fmt.Errorf("error setting defaults: %w", err)
		}
		return s, nil
	}
	if err := s.k.Load(rawbytes.Provider(raw), s.parser); err != nil {
		return nil, fmt.Errorf("error parsing settings file: %w", err)
	}
	if err := s.Set(DataPathKey, dataDir); err != nil {
		return nil, err
	}
	return s, nil
}

// NewReadOnly opens the settings store without permitting writes. It does not
// create a file if none exists. If watchFile is true, changes to the file on
// disk are reloaded automatically.
func NewReadOnly(dataDir string, watchFile bool) (*Store, error) {
	s := &Store{
		k:        koanf.New("."),
		parser:   json.Parser(),
		filePath: filepath.Join(dataDir, settingsFileName),
		readOnly: true,
	}
	if err := s.reload(); err != nil {
		return nil, fmt.Errorf("initializing read-only settings: %w", err)
	}
	if watchFile {
		watcher := internal.NewFileWatcher(s.filePath, func() {
			if err := s.reload(); err != nil {
				slog.Error("reloading settings file", "error", err)
			}
		})
		if err := watcher.Start(); err != nil {
			return nil, fmt.Errorf("starting settings file watcher: %w", err)
		}
		s.watcher = watcher
	}
	return s, nil
}

func (s *Store) setDefaults(dataDir string) error {
	if err := s.Set(DataPathKey, dataDir); err != nil {
		return fmt.Errorf("failed to set data path: %w", err)
	}
	if err := s.Set(LogLevelKey, "info"); err != nil {
		return fmt.Errorf("failed to set default log level: %w", err)
	}
	return nil
}

func (s *Store) reload() error {
	contents, err := atomicfile.ReadFile(s.filePath)
	if err != nil { // including os.ErrNotExist, read-only mode never creates the file
		return fmt.Errorf("loading settings: %w", err)
	}
	kk := koanf.New(".")
	if err := kk.Load(rawbytes.Provider(contents), s.parser); err != nil {
		return fmt.Errorf("parsing settings: %w", err)
	}
	s.mu.Lock()
	s.k = kk
	s.mu.Unlock()
	return nil
}

// Close stops watching the settings file for changes. This is only relevant
// in read-only mode with a watcher.
func (s *Store) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *Store) GetString(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.k.String(key)
}

func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.k.Exists(key)
}

func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readOnly {
		return ErrReadOnly
	}
	if err := s.k.Set(key, value); err != nil {
		return fmt.Errorf("could not set key %s: %w", key, err)
	}
	return s.save()
}

// Delete removes the value at key. Deleting an absent key is a no-op that
// still rewrites the file.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readOnly {
		return ErrReadOnly
	}
	s.k.Delete(key)
	return s.save()
}

// save must be called with s.mu held.
func (s *Store) save() error {
	out, err := s.k.Marshal(s.parser)
	if err != nil {
		return fmt.Errorf("could not marshal settings: %w", err)
	}
	if err := atomicfile.WriteFile(s.filePath, out, 0600); err != nil {
		return fmt.Errorf("could not write settings file: %w", err)
	}
	return nil
}
