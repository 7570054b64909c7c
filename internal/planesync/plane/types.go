package plane

import (
	"time"
)

// Priority is the priority of a Plane issue
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
	PriorityNone   Priority = "none"
)

// Rank orders priorities from the most to the least pressing. Anything that is
// not urgent, high, medium or low (including "none") ranks last.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// StateGroup is the workflow classification of a Plane state
type StateGroup string

const (
	GroupBacklog   StateGroup = "backlog"
	GroupUnstarted StateGroup = "unstarted"
	GroupStarted   StateGroup = "started"
	GroupCompleted StateGroup = "completed"
	GroupCancelled StateGroup = "cancelled"
)

// Open reports whether issues in the group still need attention
func (g StateGroup) Open() bool {
	switch g {
	case GroupBacklog, GroupUnstarted, GroupStarted:
		return true
	default:
		return false
	}
}

// Issue is a Plane work item with the fields we care about
type Issue struct {
	ID              string
	Name            string
	DescriptionHTML string
	Priority        Priority
	State           string
	SequenceID      int
	ProjectID       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
	StartDate       string
	TargetDate      string
	EstimatePoint   *int
	Labels          []string
	Assignees       []string
}

// State is a workflow state of a Plane project
type State struct {
	ID       string
	Name     string
	Color    string
	Sequence float64
	Group    StateGroup
	Default  bool
}
