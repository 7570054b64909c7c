package compare

import (
	"k8s.io/apimachinery/pkg/util/sets"
)

// Result describes how the notified issues changed between two notifications
type Result struct {
	Added     []string
	Removed   []string
	Unchanged []string
}

// IssueIDs compares the issue ids of the previous notification with the current one.
// Added and Unchanged keep the order of current, Removed the order of previous.
func IssueIDs(previous, current []string) Result {
	previousSet := sets.New[string](previous...)
	currentSet := sets.New[string](current...)

	var result Result
	for _, id := range current {
		if previousSet.Has(id) {
			result.Unchanged = append(result.Unchanged, id)
		} else {
			result.Added = append(result.Added, id)
		}
	}
	for _, id := range previous {
		if !currentSet.Has(id) {
			result.Removed = append(result.Removed, id)
		}
	}

	return result
}

// HasChanges returns true if any issue entered or left the notification
func HasChanges(result Result) bool {
	return len(result.Added) > 0 || len(result.Removed) > 0
}
