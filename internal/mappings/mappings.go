package mappings

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// Default Adaptive Card colors per priority
var defaultPriorityColors = map[string]string{
	"urgent": "attention",
	"high":   "warning",
	"medium": "good",
	"low":    "accent",
}

// fallbackColor is used for priorities without a configured color
const fallbackColor = "default"

// CardStyle holds the optional presentation overrides of the Teams card
type CardStyle struct {
	// PriorityColors maps lowercase priority names to Adaptive Card colors
	PriorityColors map[string]string `yaml:"priorityColors"`
	// StateNames maps Plane state names to the names shown on the card
	StateNames map[string]string `yaml:"stateNames"`
}

// NewCardStyle creates a card style with the default priority colors
func NewCardStyle() *CardStyle {
	style := &CardStyle{
		PriorityColors: make(map[string]string, len(defaultPriorityColors)),
		StateNames:     make(map[string]string),
	}
	for priority, color := range defaultPriorityColors {
		style.PriorityColors[priority] = color
	}
	return style
}

// LoadCardStyle loads overrides from path on top of the defaults. An empty
// path returns the defaults.
func LoadCardStyle(path string) (*CardStyle, error) {
	style := NewCardStyle()
	if path == "" {
		return style, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read card style file: %w", err)
	}

	var overrides CardStyle
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse card style file: %w", err)
	}

	for priority, color := range overrides.PriorityColors {
		style.PriorityColors[strings.ToLower(priority)] = color
	}
	for name, display := range overrides.StateNames {
		style.StateNames[name] = display
	}

	return style, nil
}

// ColorForPriority returns the card color for a priority label, in any case
func (s *CardStyle) ColorForPriority(priority string) string {
	if color, ok := s.PriorityColors[strings.ToLower(priority)]; ok {
		return color
	}
	return fallbackColor
}

// StateName returns the display name for a state, the name itself when not overridden
func (s *CardStyle) StateName(name string) string {
	if display, ok := s.StateNames[name]; ok {
		return display
	}
	return name
}
