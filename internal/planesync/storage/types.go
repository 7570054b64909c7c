package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/petr-muller/planesync/internal/planesync/plane"
)

// Sync statuses stored in the record
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Record is the sync bookkeeping persisted between runs
type Record struct {
	LastSync       *time.Time `json:"last_sync" yaml:"last_sync"`
	LastSyncStatus string     `json:"last_sync_status" yaml:"last_sync_status"`
	LastIssues     []string   `json:"last_issues" yaml:"last_issues"`
	ErrorCount     int        `json:"error_count" yaml:"error_count"`
	LastError      *string    `json:"last_error" yaml:"last_error"`
}

// DefaultRecord returns the record of a service that never synced
func DefaultRecord() Record {
	return Record{
		LastSyncStatus: StatusSuccess,
		LastIssues:     []string{},
	}
}

// UnmarshalJSON accepts last_sync with or without an offset. Timestamps
// without an offset are read in the local time zone.
func (r *Record) UnmarshalJSON(data []byte) error {
	return r.decode(data, time.Local)
}

func (r *Record) decode(data []byte, loc *time.Location) error {
	type plain Record
	aux := struct {
		*plain
		LastSync *string `json:"last_sync"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.LastSync = nil
	if aux.LastSync != nil && *aux.LastSync != "" {
		t, err := plane.ParseTimestamp(*aux.LastSync, loc)
		if err != nil {
			return fmt.Errorf("last_sync: %w", err)
		}
		r.LastSync = &t
	}
	return nil
}
