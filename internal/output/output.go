package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"gopkg.in/yaml.v3"

	"github.com/petr-muller/planesync/internal/planesync/storage"
)

// UI writes human oriented command output
type UI struct {
	Out    io.Writer
	ErrOut io.Writer
}

// New creates a UI with default stdout/stderr writers.
func New() *UI {
	return &UI{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("✓")
	warningPrefix = color.New(color.FgHiYellow).Sprint("⚠")
	errorPrefix   = color.New(color.FgHiRed).Sprint("✗")
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
)

// StatusColor returns the sync status colored for the terminal
func StatusColor(status string) string {
	switch strings.ToLower(status) {
	case storage.StatusSuccess:
		return green(status)
	case storage.StatusError:
		return red(status)
	default:
		return status
	}
}

// ErrorCountColor colors the error counter against the retry limit
func ErrorCountColor(count, maxRetries int) string {
	s := fmt.Sprintf("%d/%d", count, maxRetries)
	switch {
	case count == 0:
		return green(s)
	case count < maxRetries:
		return yellow(s)
	default:
		return red(s)
	}
}

func (u *UI) Info(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
}

// Table creates a new tablewriter configured with consistent styling.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}

// Status describes the persisted state of the service
type Status struct {
	StateFile  string         `yaml:"state_file"`
	MaxRetries int            `yaml:"max_retries"`
	Due        bool           `yaml:"due"`
	Record     storage.Record `yaml:"record"`
}

// Status prints the status as a two column table
func (u *UI) Status(status Status) error {
	record := status.Record

	lastSync := "never"
	if record.LastSync != nil {
		lastSync = record.LastSync.Format(time.RFC3339)
	}
	lastError := "-"
	if record.LastError != nil {
		lastError = *record.LastError
	}
	issues := "-"
	if len(record.LastIssues) > 0 {
		issues = strings.Join(record.LastIssues, ", ")
	}
	due := "no"
	if status.Due {
		due = yellow("yes")
	}

	table := u.Table([]string{"Field", "Value"})
	for _, row := range [][]string{
		{"State file", status.StateFile},
		{"Last sync", lastSync},
		{"Status", StatusColor(record.LastSyncStatus)},
		{"Errors", ErrorCountColor(record.ErrorCount, status.MaxRetries)},
		{"Last error", lastError},
		{"Notified issues", issues},
		{"Sync due", due},
	} {
		_ = table.Append(row)
	}
	return table.Render()
}

// YAML prints v as a YAML document
func (u *UI) YAML(v any) error {
	enc := yaml.NewEncoder(u.Out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}
