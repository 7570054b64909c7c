package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/petr-muller/planesync/internal/planesync/compare"
	"github.com/petr-muller/planesync/internal/planesync/metrics"
	"github.com/petr-muller/planesync/internal/planesync/plane"
	"github.com/petr-muller/planesync/internal/planesync/selection"
	"github.com/petr-muller/planesync/internal/planesync/storage"
)

// Outcome is the result of a sync attempt
type Outcome string

const (
	// OutcomeSkipped means the attempt was not due and nothing happened
	OutcomeSkipped Outcome = "skipped"
	// OutcomeNoStates means Plane returned no states; nothing was sent
	OutcomeNoStates Outcome = "no_states"
	// OutcomeSuccess means the notification was sent
	OutcomeSuccess Outcome = "success"
	// OutcomeFailed means fetching or sending failed
	OutcomeFailed Outcome = "failed"
)

// IssueSource provides the issues and workflow states of a project
type IssueSource interface {
	FetchStates(ctx context.Context) ([]plane.State, error)
	FetchIssues(ctx context.Context) ([]plane.Issue, error)
}

// NotificationSink delivers a payload
type NotificationSink interface {
	Send(ctx context.Context, payload selection.Payload) error
}

// closer is implemented by sources and sinks holding network resources between attempts
type closer interface {
	Close()
}

// Options configures a Service
type Options struct {
	Source IssueSource
	Sink   NotificationSink
	Store  *storage.Store

	NotificationHour int
	MaxRetries       int
	Location         *time.Location
	Link             selection.LinkFunc
	Title            string

	// Clock defaults to the real clock
	Clock clockwork.Clock
	// Metrics may be nil
	Metrics *metrics.Recorder
	// StopTimeout bounds how long Stop waits for an in-flight attempt
	StopTimeout time.Duration
}

// Service runs sync attempts and keeps their bookkeeping
type Service struct {
	source  IssueSource
	sink    NotificationSink
	store   *storage.Store
	clock   clockwork.Clock
	metrics *metrics.Recorder

	hour        int
	maxRetries  int
	location    *time.Location
	link        selection.LinkFunc
	title       string
	stopTimeout time.Duration

	// mu serializes attempts and guards record
	mu     sync.Mutex
	record storage.Record

	schedMu   sync.Mutex
	scheduler scheduler
}

// NewService creates a service and loads the persisted record
func NewService(opts Options) (*Service, error) {
	if opts.Source == nil || opts.Sink == nil || opts.Store == nil {
		return nil, errors.New("source, sink and store are required")
	}
	if opts.NotificationHour < 0 || opts.NotificationHour > 23 {
		return nil, fmt.Errorf("notification hour %d out of range", opts.NotificationHour)
	}
	if opts.MaxRetries < 1 {
		return nil, fmt.Errorf("max retries must be positive, got %d", opts.MaxRetries)
	}

	s := &Service{
		source:      opts.Source,
		sink:        opts.Sink,
		store:       opts.Store,
		clock:       opts.Clock,
		metrics:     opts.Metrics,
		hour:        opts.NotificationHour,
		maxRetries:  opts.MaxRetries,
		location:    opts.Location,
		link:        opts.Link,
		title:       opts.Title,
		stopTimeout: opts.StopTimeout,
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.location == nil {
		s.location = time.Local
	}
	if s.link == nil {
		s.link = func(plane.Issue) string { return "" }
	}
	if s.title == "" {
		s.title = selection.DefaultTitle
	}
	if s.stopTimeout <= 0 {
		s.stopTimeout = defaultStopTimeout
	}

	s.record = s.store.Load()
	s.metrics.SetErrorCount(s.record.ErrorCount)

	return s, nil
}

// IsDue reports whether a sync should run at now given the last attempt.
// A sync is due once per calendar day, at or after hour:00 in now's location.
func IsDue(now time.Time, lastSync *time.Time, hour int) bool {
	if lastSync == nil {
		return true
	}

	loc := now.Location()
	last := lastSync.In(loc)
	notifyAt := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, loc)
	if now.Before(notifyAt) {
		return false
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	lastDay := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, loc)
	switch {
	case lastDay.Before(today):
		return true
	case lastDay.Equal(today):
		return last.Before(notifyAt)
	default:
		return false
	}
}

func (s *Service) now() time.Time {
	return s.clock.Now().In(s.location)
}

// Due reports whether a non-forced attempt would run now
func (s *Service) Due() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return IsDue(s.now(), s.record.LastSync, s.hour)
}

// Record returns a copy of the current bookkeeping
func (s *Service) Record() storage.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := s.record
	record.LastIssues = append([]string{}, s.record.LastIssues...)
	return record
}

// Preview fetches the project and returns the payload an attempt would send.
// Nothing is sent and nothing is persisted.
func (s *Service) Preview(ctx context.Context) (selection.Payload, error) {
	if c, ok := s.source.(closer); ok {
		defer c.Close()
	}

	states, err := s.source.FetchStates(ctx)
	if err != nil {
		return selection.Payload{}, fmt.Errorf("failed to fetch states: %w", err)
	}
	issues, err := s.source.FetchIssues(ctx)
	if err != nil {
		return selection.Payload{}, fmt.Errorf("failed to fetch issues: %w", err)
	}
	return selection.SelectWithTitle(s.title, issues, states, s.link), nil
}

// RunSync performs one sync attempt. Unless forced, it does nothing when the
// attempt is not due. Attempts never overlap.
//
// Fetch and send failures are reported as OutcomeFailed and recorded; the
// returned error is non-nil only when the record could not be persisted.
func (s *Service) RunSync(ctx context.Context, force bool) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !force && !IsDue(now, s.record.LastSync, s.hour) {
		logrus.WithField("last-sync", s.record.LastSync).Debug("Sync not due, skipping")
		s.metrics.ObserveAttempt(string(OutcomeSkipped), 0)
		return OutcomeSkipped, nil
	}

	logrus.WithField("forced", force).Info("Starting sync")
	started := s.clock.Now()
	outcome, payload, err := s.attempt(ctx)
	elapsed := s.clock.Since(started)

	switch outcome {
	case OutcomeNoStates:
		logrus.Info("No states to synchronize")
	case OutcomeSuccess:
		s.recordSuccess(now, payload)
	case OutcomeFailed:
		logrus.WithError(err).Error("Sync failed")
		s.recordFailure(now, err)
	}
	s.metrics.ObserveAttempt(string(outcome), elapsed)
	s.metrics.SetErrorCount(s.record.ErrorCount)

	if err := s.store.Save(s.record); err != nil {
		logrus.WithError(err).WithField("path", s.store.Path()).Error("Failed to persist sync state")
		return outcome, fmt.Errorf("failed to persist sync state: %w", err)
	}
	return outcome, nil
}

func (s *Service) attempt(ctx context.Context) (Outcome, selection.Payload, error) {
	if c, ok := s.source.(closer); ok {
		defer c.Close()
	}
	if c, ok := s.sink.(closer); ok {
		defer c.Close()
	}

	states, err := s.source.FetchStates(ctx)
	if err != nil {
		return OutcomeFailed, selection.Payload{}, err
	}
	if len(states) == 0 {
		return OutcomeNoStates, selection.Payload{}, nil
	}

	issues, err := s.source.FetchIssues(ctx)
	if err != nil {
		return OutcomeFailed, selection.Payload{}, err
	}

	payload := selection.SelectWithTitle(s.title, issues, states, s.link)
	logrus.WithFields(logrus.Fields{"issues": len(issues), "selected": len(payload.Entries)}).Info("Formatted notification")

	if err := s.sink.Send(ctx, payload); err != nil {
		return OutcomeFailed, selection.Payload{}, err
	}
	return OutcomeSuccess, payload, nil
}

func (s *Service) recordSuccess(now time.Time, payload selection.Payload) {
	ids := payload.IssueIDs()
	diff := compare.IssueIDs(s.record.LastIssues, ids)
	if compare.HasChanges(diff) {
		logrus.WithFields(logrus.Fields{"added": diff.Added, "removed": diff.Removed}).Info("Notified issues changed")
	} else {
		logrus.Debug("Notified issues unchanged")
	}

	s.record.LastSync = &now
	s.record.LastSyncStatus = storage.StatusSuccess
	s.record.ErrorCount = 0
	s.record.LastError = nil
	s.record.LastIssues = ids
	s.metrics.ObserveSuccess(now, len(ids))

	logrus.WithField("entries", len(ids)).Info("Sync completed successfully")
}

// recordFailure counts the failure without exceeding the retry limit
func (s *Service) recordFailure(now time.Time, err error) {
	message := err.Error()
	s.record.LastSync = &now
	s.record.LastSyncStatus = storage.StatusError
	s.record.LastError = &message
	if s.record.ErrorCount < s.maxRetries {
		s.record.ErrorCount++
	}
}
