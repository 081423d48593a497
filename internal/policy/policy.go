// Package policy contains the pure access-control decisions for tasks.
// Every function here answers a single (actor, task, action) question with
// no side effects and no I/O; collection scoping for list queries is the
// service layer's job, not the policy's.
package policy

import "github.com/mnperrone/tasks-api/internal/domain"

// CanView reports whether the actor may read the given task.
// Only the owner or an admin may view an individual task.
func CanView(actor *domain.User, task *domain.Task) bool {
	return isOwnerOrAdmin(actor, task)
}

// CanCreate reports whether the actor may create tasks.
// Any authenticated actor may create tasks for themselves.
func CanCreate(actor *domain.User) bool {
	return actor != nil
}

// CanUpdate reports whether the actor may mutate the given task.
func CanUpdate(actor *domain.User, task *domain.Task) bool {
	return isOwnerOrAdmin(actor, task)
}

// CanDelete reports whether the actor may delete the given task.
func CanDelete(actor *domain.User, task *domain.Task) bool {
	return isOwnerOrAdmin(actor, task)
}

func isOwnerOrAdmin(actor *domain.User, task *domain.Task) bool {
	if actor == nil || task == nil {
		return false
	}
	return actor.ID == task.OwnerID || actor.IsAdmin()
}
