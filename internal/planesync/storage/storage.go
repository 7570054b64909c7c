package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// Store persists the sync record as a single JSON document
type Store struct {
	path     string
	location *time.Location
}

// NewStore creates a store backed by the file at path
func NewStore(path string) *Store {
	return NewStoreIn(path, time.Local)
}

// NewStoreIn creates a store reading timestamps without an offset in loc
func NewStoreIn(path string, loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{
		path:     path,
		location: loc,
	}
}

// Path returns the location of the state file
func (s *Store) Path() string {
	return s.path
}

// ensureDataDir creates the directory holding the state file if it doesn't exist
func (s *Store) ensureDataDir() error {
	return os.MkdirAll(filepath.Dir(s.path), 0755)
}

// Load reads the record. A missing or unreadable file yields the default record.
func (s *Store) Load() Record {
	log := logrus.WithField("path", s.path)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("No state file, starting from defaults")
		} else {
			log.WithError(err).Warn("Failed to read state file, starting from defaults")
		}
		return DefaultRecord()
	}

	record := DefaultRecord()
	if err := record.decode(data, s.location); err != nil {
		log.WithError(err).Warn("Corrupt state file, starting from defaults")
		return DefaultRecord()
	}
	if record.LastIssues == nil {
		record.LastIssues = []string{}
	}
	if record.LastSyncStatus == "" {
		record.LastSyncStatus = StatusSuccess
	}

	return record
}

// Exists reports whether a state file has been written
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Save replaces the whole document. The file is written next to its final
// location and renamed over it, so readers never observe a partial record.
func (s *Store) Save(record Record) error {
	if err := s.ensureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if record.LastIssues == nil {
		record.LastIssues = []string{}
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set state file permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	return nil
}
