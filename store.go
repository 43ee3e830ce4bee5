package ferry

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Store persists named connection profiles to a JSON file.
//
// Every mutation is written to disk before it returns. A Store is meant for
// a single caller and performs no locking of its own.
type Store struct {
	path     string
	profiles map[string]Profile
	logger   *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the logger used to report a store that could not be
// loaded.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// DefaultStorePath returns ~/.ferry/connections.json.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".ferry", "connections.json")
	}
	return filepath.Join(home, ".ferry", "connections.json")
}

// OpenStore returns a store backed by the file at path and loads it.
// A missing, unreadable or corrupt file yields an empty store.
func OpenStore(path string, options ...StoreOption) *Store {
	s := &Store{
		path:   path,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(s)
	}
	s.Load()
	return s
}

// Path returns the location of the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load replaces the in-memory profiles with the contents of the backing file.
// It never fails: read and parse errors leave the store empty.
func (s *Store) Load() {
	s.profiles = make(map[string]Profile)

	content, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("profile store unreadable, starting empty", "path", s.path, "error", err)
		}
		return
	}

	stored := make(map[string]Profile)
	if err := json.Unmarshal(content, &stored); err != nil {
		s.logger.Warn("profile store corrupt, starting empty", "path", s.path, "error", err)
		return
	}

	for name, p := range stored {
		p.Name = name
		p.Password = decodeSecret(p.Password)
		s.profiles[name] = p.withDefaults()
	}
}

// Add validates the profile, applies protocol and port defaults, and stores
// it under name, replacing any profile with the same name.
func (s *Store) Add(name string, p Profile) error {
	p.Name = name
	p = p.withDefaults()
	if err := p.validate(); err != nil {
		return err
	}

	previous, existed := s.profiles[name]
	s.profiles[name] = p
	if err := s.save(); err != nil {
		if existed {
			s.profiles[name] = previous
		} else {
			delete(s.profiles, name)
		}
		return err
	}
	return nil
}

// Remove deletes the named profile.
func (s *Store) Remove(name string) error {
	previous, ok := s.profiles[name]
	if !ok {
		return fmt.Errorf("profile %q: %w", name, ErrNotFound)
	}

	delete(s.profiles, name)
	if err := s.save(); err != nil {
		s.profiles[name] = previous
		return err
	}
	return nil
}

// Get returns the named profile.
func (s *Store) Get(name string) (Profile, error) {
	p, ok := s.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("profile %q: %w", name, ErrNotFound)
	}
	return p, nil
}

// List returns name, host and protocol of every profile, sorted by name.
func (s *Store) List() []ProfileSummary {
	result := make([]ProfileSummary, 0, len(s.profiles))
	for name, p := range s.profiles {
		result = append(result, ProfileSummary{
			Name:     name,
			Host:     p.Host,
			Protocol: p.Protocol,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result
}

// save writes the whole map with every secret obfuscated and restricts the
// file to its owner. The write is not atomic; Load tolerates a torn file.
func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return &PathError{Op: "save", Path: s.path, Err: err}
	}

	encoded := make(map[string]Profile, len(s.profiles))
	for name, p := range s.profiles {
		p.Password = encodeSecret(p.Password)
		encoded[name] = p
	}

	content, err := json.MarshalIndent(encoded, "", "  ")
	if err != nil {
		return &PathError{Op: "save", Path: s.path, Err: err}
	}

	if err := os.WriteFile(s.path, content, 0600); err != nil {
		return &PathError{Op: "save", Path: s.path, Err: err}
	}

	if err := os.Chmod(s.path, 0600); err != nil {
		return &PathError{Op: "save", Path: s.path, Err: err}
	}

	return nil
}
