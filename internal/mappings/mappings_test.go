package mappings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestColorForPriority(t *testing.T) {
	style := NewCardStyle()

	tests := []struct {
		priority string
		want     string
	}{
		{"URGENT", "attention"},
		{"high", "warning"},
		{"Medium", "good"},
		{"LOW", "accent"},
		{"NONE", "default"},
		{"CRITICAL", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.priority, func(t *testing.T) {
			if got := style.ColorForPriority(tt.priority); got != tt.want {
				t.Errorf("ColorForPriority(%q) = %q, want %q", tt.priority, got, tt.want)
			}
		})
	}
}

func TestLoadCardStyle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card.yaml")
	content := `priorityColors:
  HIGH: attention
  none: light
stateNames:
  En cours: In progress
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write card style: %v", err)
	}

	style, err := LoadCardStyle(path)
	if err != nil {
		t.Fatalf("LoadCardStyle() error = %v", err)
	}

	if got := style.ColorForPriority("HIGH"); got != "attention" {
		t.Errorf("high color = %q, want attention", got)
	}
	if got := style.ColorForPriority("NONE"); got != "light" {
		t.Errorf("none color = %q, want light", got)
	}
	if got := style.ColorForPriority("URGENT"); got != "attention" {
		t.Errorf("urgent color = %q, want default attention", got)
	}
	if got := style.StateName("En cours"); got != "In progress" {
		t.Errorf("state name = %q, want In progress", got)
	}
	if got := style.StateName("Backlog"); got != "Backlog" {
		t.Errorf("state name = %q, want Backlog", got)
	}
}

func TestLoadCardStyleEmptyPath(t *testing.T) {
	style, err := LoadCardStyle("")
	if err != nil {
		t.Fatalf("LoadCardStyle() error = %v", err)
	}
	if len(style.PriorityColors) != 4 {
		t.Errorf("expected 4 default colors, got %d", len(style.PriorityColors))
	}
}

func TestLoadCardStyleErrors(t *testing.T) {
	dir := t.TempDir()
	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("priorityColors: [not, a, map]"), 0644); err != nil {
		t.Fatalf("failed to write card style: %v", err)
	}

	for name, path := range map[string]string{
		"missing": filepath.Join(dir, "missing.yaml"),
		"invalid": invalid,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadCardStyle(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
