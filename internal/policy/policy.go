// Package policy holds the authorization rules of the workflow board. Every
// service operation calls one Authorize function before touching storage, so
// the rules hold no matter which transport reached the service.
package policy

import (
	"workflow/internal/apperror"
	"workflow/internal/models"
)

// CanView reports whether u may read t.
func CanView(u models.User, t models.Task) bool {
	return u.IsAdmin() || u.ID == t.AssignedToID || t.HasCollaborator(u.ID)
}

// CanMutate reports whether u may change the status or fields of t.
func CanMutate(u models.User, t models.Task) bool {
	return u.IsAdmin() || u.ID == t.AssignedToID
}

// CanReport reports whether u may submit a progress report on t. Only the
// assignee reports; administrators and collaborators do not.
func CanReport(u models.User, t models.Task) bool {
	return u.ID == t.AssignedToID
}

// CanAdminister reports whether u may create tasks, manage accounts and
// read team-wide reports.
func CanAdminister(u models.User) bool {
	return u.IsAdmin()
}

// RequireActive rejects accounts that still have to rotate their password.
func RequireActive(u models.User) error {
	if u.ID == "" {
		return apperror.Forbidden("not signed in")
	}
	if u.FirstLogin {
		return apperror.ErrPasswordChangeRequired
	}
	return nil
}

// AuthorizeView gates read access to a single task.
func AuthorizeView(u models.User, t models.Task) error {
	if err := RequireActive(u); err != nil {
		return err
	}
	if !CanView(u, t) {
		return apperror.Forbidden("user %s cannot view task %s", u.ID, t.ID)
	}
	return nil
}

// AuthorizeMutate gates task updates and status changes.
func AuthorizeMutate(u models.User, t models.Task) error {
	if err := RequireActive(u); err != nil {
		return err
	}
	if !CanMutate(u, t) {
		return apperror.Forbidden("user %s cannot modify task %s", u.ID, t.ID)
	}
	return nil
}

// AuthorizeReport gates report submission.
func AuthorizeReport(u models.User, t models.Task) error {
	if err := RequireActive(u); err != nil {
		return err
	}
	if !CanReport(u, t) {
		return apperror.Forbidden("only the assignee can report on task %s", t.ID)
	}
	return nil
}

// AuthorizeAdmin gates administrator-only operations.
func AuthorizeAdmin(u models.User) error {
	if err := RequireActive(u); err != nil {
		return err
	}
	if !CanAdminister(u) {
		return apperror.Forbidden("administrator role required")
	}
	return nil
}
