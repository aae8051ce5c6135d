package task

import (
	"slices"

	"workflow/internal/models"
)

// Transitions lists, for each current status, the statuses a task may move to.
type Transitions map[models.TaskStatus][]models.TaskStatus

// PermissiveTransitions allows every status to move to every other status,
// including reopening a completed task.
func PermissiveTransitions() Transitions {
	t := make(Transitions, len(models.TaskStatuses))
	for _, from := range models.TaskStatuses {
		for _, to := range models.TaskStatuses {
			if from != to {
				t[from] = append(t[from], to)
			}
		}
	}
	return t
}

// Allowed reports whether a task in status from may move to status to.
// Staying in the same status is always allowed.
func (t Transitions) Allowed(from, to models.TaskStatus) bool {
	if from == to {
		return true
	}
	return slices.Contains(t[from], to)
}
