package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

const (
	// DailyJobName names the job firing at the notification hour
	DailyJobName = "daily-sync"
	// StartupJobName names the one-off job catching up a missed notification at start
	StartupJobName = "startup-sync"

	defaultStopTimeout = 30 * time.Second
)

// ErrAlreadyStarted is returned by Start on a running service
var ErrAlreadyStarted = errors.New("service already started")

type scheduler = gocron.Scheduler

// Start schedules the daily attempt at the notification hour. When an attempt
// is already due, one is also run immediately.
func (s *Service) Start(ctx context.Context) error {
	s.schedMu.Lock()
	defer s.schedMu.Unlock()

	if s.scheduler != nil {
		return ErrAlreadyStarted
	}

	sched, err := gocron.NewScheduler(
		gocron.WithClock(s.clock),
		gocron.WithLocation(s.location),
		gocron.WithStopTimeout(s.stopTimeout),
		gocron.WithLogger(schedulerLogger{logrus.WithField("component", "scheduler")}),
	)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(s.hour), 0, 0))),
		gocron.NewTask(func() { s.scheduledSync(ctx, DailyJobName) }),
		gocron.WithName(DailyJobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("failed to schedule daily sync: %w", err)
	}

	if s.Due() {
		logrus.Info("Started after the notification hour without a sync today, syncing now")
		_, err = sched.NewJob(
			gocron.OneTimeJob(gocron.OneTimeJobStartImmediately()),
			gocron.NewTask(func() { s.scheduledSync(ctx, StartupJobName) }),
			gocron.WithName(StartupJobName),
		)
		if err != nil {
			_ = sched.Shutdown()
			return fmt.Errorf("failed to schedule startup sync: %w", err)
		}
	}

	sched.Start()
	s.scheduler = sched

	logrus.WithFields(logrus.Fields{
		"hour":     s.hour,
		"location": s.location.String(),
	}).Info("Sync service started")
	return nil
}

// Stop cancels pending jobs and waits for an in-flight attempt to finish and
// persist its outcome, even past the stop timeout.
// Stopping a service that was not started does nothing.
func (s *Service) Stop() error {
	s.schedMu.Lock()
	defer s.schedMu.Unlock()

	if s.scheduler == nil {
		return nil
	}
	err := s.scheduler.Shutdown()
	s.scheduler = nil
	if stopTimedOut(err) {
		logrus.WithField("timeout", s.stopTimeout).Warn("Sync still running after stop timeout, waiting for it to be recorded")
		err = nil
	}

	// an attempt holds mu until its outcome is persisted
	s.mu.Lock()
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}

	logrus.Info("Sync service stopped")
	return nil
}

func stopTimedOut(err error) bool {
	return errors.Is(err, gocron.ErrStopJobsTimedOut) ||
		errors.Is(err, gocron.ErrStopExecutorTimedOut) ||
		errors.Is(err, gocron.ErrStopSchedulerTimedOut)
}

// JobNames lists the jobs currently scheduled
func (s *Service) JobNames() []string {
	s.schedMu.Lock()
	defer s.schedMu.Unlock()

	if s.scheduler == nil {
		return nil
	}
	var names []string
	for _, job := range s.scheduler.Jobs() {
		names = append(names, job.Name())
	}
	return names
}

func (s *Service) scheduledSync(ctx context.Context, job string) {
	log := logrus.WithField("job", job)
	outcome, err := s.RunSync(ctx, false)
	if err != nil {
		log.WithError(err).Error("Scheduled sync could not be recorded")
		return
	}
	log.WithField("outcome", outcome).Debug("Scheduled sync finished")
}

// schedulerLogger adapts logrus to the gocron logger interface
type schedulerLogger struct {
	entry *logrus.Entry
}

func (l schedulerLogger) fields(args []any) *logrus.Entry {
	entry := l.entry
	for i := 0; i+1 < len(args); i += 2 {
		entry = entry.WithField(fmt.Sprint(args[i]), args[i+1])
	}
	return entry
}

func (l schedulerLogger) Debug(msg string, args ...any) { l.fields(args).Trace(msg) }
func (l schedulerLogger) Info(msg string, args ...any)  { l.fields(args).Debug(msg) }
func (l schedulerLogger) Warn(msg string, args ...any)  { l.fields(args).Warn(msg) }
func (l schedulerLogger) Error(msg string, args ...any) { l.fields(args).Error(msg) }
