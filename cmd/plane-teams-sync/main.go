package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/fang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/petr-muller/planesync/internal/config"
	"github.com/petr-muller/planesync/internal/flagutil"
	"github.com/petr-muller/planesync/internal/logging"
	"github.com/petr-muller/planesync/internal/mappings"
	"github.com/petr-muller/planesync/internal/planesync/metrics"
	"github.com/petr-muller/planesync/internal/planesync/plane"
	"github.com/petr-muller/planesync/internal/planesync/selection"
	"github.com/petr-muller/planesync/internal/planesync/service"
	"github.com/petr-muller/planesync/internal/planesync/storage"
	"github.com/petr-muller/planesync/internal/planesync/teams"
)

var options flagutil.Options

func main() {
	rootCmd := &cobra.Command{
		Use:   "plane-teams-sync",
		Short: "Post the top priority Plane issues to a Microsoft Teams channel every day",
		Long: `plane-teams-sync fetches the open issues of a Plane project once a day, at the
configured notification hour, and posts the most important ones to a Microsoft
Teams incoming webhook as an Adaptive Card.

Configuration is read from the environment, after loading a .env file when present.`,
		SilenceUsage: true,
	}

	options.AddPFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newRunCmd(),
		newSyncCmd(),
		newStatusCmd(),
		newPreviewCmd(),
		newCheckCmd(),
	)

	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		logrus.WithError(err).Fatal("command failed")
	}
}

// app holds the components built from the configuration
type app struct {
	cfg     *config.Config
	plane   *plane.Client
	teams   *teams.Client
	store   *storage.Store
	service *service.Service

	closeLog func() error
}

func (a *app) Close() {
	a.plane.Close()
	a.teams.Close()
	if err := a.closeLog(); err != nil {
		logrus.WithError(err).Warn("Failed to close log file")
	}
}

func setup(reg prometheus.Registerer) (*app, error) {
	cfg, err := options.Config()
	if err != nil {
		return nil, err
	}

	closeLog, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("cannot set up logging: %w", err)
	}

	style, err := mappings.LoadCardStyle(cfg.CardStyleFile)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("cannot load card style: %w", err)
	}

	location, err := cfg.Location()
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("cannot load time zone: %w", err)
	}

	planeClient := plane.NewClient(plane.Options{
		BaseURL:   cfg.PlaneBaseURL,
		APIToken:  cfg.PlaneAPIToken,
		Workspace: cfg.PlaneWorkspace,
		ProjectID: cfg.PlaneProjectID,
		Retries:   cfg.PlaneHTTPRetries,
	})
	teamsClient := teams.NewClient(cfg.TeamsWebhookURL, cfg.TeamsTimeout, style)
	store := storage.NewStoreIn(cfg.StateFile, location)

	var recorder *metrics.Recorder
	if reg != nil {
		recorder = metrics.NewRecorder(reg)
	}

	svc, err := service.NewService(service.Options{
		Source:           planeClient,
		Sink:             teamsClient,
		Store:            store,
		NotificationHour: cfg.NotificationHour,
		MaxRetries:       cfg.MaxRetries,
		Location:         location,
		Link:             selection.IssueLinker(cfg.AppURL(), cfg.PlaneWorkspace, cfg.PlaneProjectID),
		Metrics:          recorder,
	})
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("cannot create service: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"workspace":         cfg.PlaneWorkspace,
		"project":           cfg.PlaneProjectID,
		"notification-hour": cfg.NotificationHour,
		"max-retries":       cfg.MaxRetries,
		"state-file":        cfg.StateFile,
	}).Debug("Configuration loaded")

	return &app{
		cfg:      cfg,
		plane:    planeClient,
		teams:    teamsClient,
		store:    store,
		service:  svc,
		closeLog: closeLog,
	}, nil
}
