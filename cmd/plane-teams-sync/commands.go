package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/petr-muller/planesync/internal/output"
	"github.com/petr-muller/planesync/internal/planesync/plane"
	"github.com/petr-muller/planesync/internal/planesync/service"
	"github.com/petr-muller/planesync/internal/planesync/ui"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Send the notification now",
		Long:  `Run one sync attempt immediately, regardless of the notification hour, and record its outcome.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			u := output.New()
			outcome, err := a.service.RunSync(cmd.Context(), true)
			if err != nil {
				return err
			}

			switch outcome {
			case service.OutcomeSuccess:
				u.Success("Notification sent with %d issues", len(a.service.Record().LastIssues))
			case service.OutcomeNoStates:
				u.Warning("Plane returned no states, nothing was sent")
			default:
				record := a.service.Record()
				message := "unknown error"
				if record.LastError != nil {
					message = *record.LastError
				}
				return fmt.Errorf("sync failed: %s", message)
			}
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the recorded outcome of the last sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			status := output.Status{
				StateFile:  a.store.Path(),
				MaxRetries: a.cfg.MaxRetries,
				Due:        a.service.Due(),
				Record:     a.service.Record(),
			}

			u := output.New()
			switch format {
			case "table":
				return u.Status(status)
			case "yaml":
				return u.YAML(status)
			default:
				return fmt.Errorf("unsupported output format %q", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "table", "Output format: table or yaml")
	return cmd
}

func newPreviewCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the notification that would be sent, without sending it",
		Long: `Fetch the project and show the issues the next notification would contain.
Nothing is sent and the recorded state is not changed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			payload, err := a.service.Preview(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				body, err := a.teams.Render(payload)
				if err != nil {
					return err
				}
				var pretty map[string]any
				if err := json.Unmarshal(body, &pretty); err != nil {
					return fmt.Errorf("failed to decode card: %w", err)
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				return enc.Encode(pretty)
			}

			model := ui.NewModel(payload, a.service.Record().LastIssues, ui.BrowserOpener)
			if _, err := tea.NewProgram(model).Run(); err != nil {
				return fmt.Errorf("error running preview: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the Adaptive Card JSON instead of the interactive preview")
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check connectivity with the Plane API",
		Long:  `Fetch the states and issues of the project and print how many issues each state holds.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			u := output.New()
			states, err := a.plane.FetchStates(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch states: %w", err)
			}
			u.Success("Fetched %d states", len(states))

			issues, err := a.plane.FetchIssues(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch issues: %w", err)
			}
			u.Success("Fetched %d issues", len(issues))

			return printStateCounts(u, states, issues)
		},
	}
}

func printStateCounts(u *output.UI, states []plane.State, issues []plane.Issue) error {
	counts := make(map[string]int, len(states))
	for _, issue := range issues {
		counts[issue.State]++
	}

	// the first occurrence of a state id wins
	seen := sets.New[string]()
	sorted := make([]plane.State, 0, len(states))
	for _, state := range states {
		if seen.Has(state.ID) {
			continue
		}
		seen.Insert(state.ID)
		sorted = append(sorted, state)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })

	table := u.Table([]string{"State", "Group", "Issues"})
	known := 0
	for _, state := range sorted {
		known += counts[state.ID]
		_ = table.Append([]string{state.Name, string(state.Group), fmt.Sprint(counts[state.ID])})
	}
	if unknown := len(issues) - known; unknown > 0 {
		_ = table.Append([]string{"(unknown)", "-", fmt.Sprint(unknown)})
	}
	return table.Render()
}
