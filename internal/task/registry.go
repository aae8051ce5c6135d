// Package task owns the task records and their status/progress state machine.
package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"workflow/internal/apperror"
	"workflow/internal/clock"
	"workflow/internal/models"
	"workflow/internal/policy"
	"workflow/internal/storage"
)

// UserDirectory resolves user ids.
type UserDirectory interface {
	Get(ctx context.Context, id string) (models.User, error)
}

// Projects is the subset of the project registry used during task creation.
type Projects interface {
	Get(ctx context.Context, id string) (models.Project, error)
	CreateUnchecked(ctx context.Context, name, description string) (models.Project, error)
	Discard(ctx context.Context, id string) error
}

// Notifier is told about new assignments. Implementations must return
// promptly and never fail the caller.
type Notifier interface {
	TaskAssigned(ctx context.Context, task models.Task, assignee models.User, project *models.Project)
}

// Draft holds the fields supplied when creating a task.
type Draft struct {
	ProjectID       string
	Title           string
	Description     string
	StartDate       time.Time
	Deadline        time.Time
	AssignedToID    string
	CollaboratorIDs []string
	Priority        models.Priority
	Notes           string
}

// NewProject describes a project created together with its first task.
type NewProject struct {
	Name        string
	Description string
}

// Filter narrows List results.
type Filter struct {
	Status    models.TaskStatus
	Query     string
	ProjectID string
}

// Registry creates, updates and queries tasks.
type Registry struct {
	tasks       *storage.Table[models.Task]
	users       UserDirectory
	projects    Projects
	notifier    Notifier
	clock       clock.Clock
	logger      *slog.Logger
	transitions Transitions
	locks       *Locker
	createMu    sync.Mutex
}

// Option customizes a Registry.
type Option func(*Registry)

// WithTransitions replaces the default permissive transition table.
func WithTransitions(t Transitions) Option {
	return func(r *Registry) { r.transitions = t }
}

// WithNotifier sets the assignment notifier.
func WithNotifier(n Notifier) Option {
	return func(r *Registry) { r.notifier = n }
}

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(r *Registry) { r.clock = c }
}

// New constructs a task registry.
func New(tasks *storage.Table[models.Task], users UserDirectory, projects Projects, logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r := &Registry{
		tasks:       tasks,
		users:       users,
		projects:    projects,
		clock:       clock.Real(),
		logger:      logger,
		transitions: PermissiveTransitions(),
		locks:       NewLocker(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create validates d and stores a new task in status TODO with no progress.
func (r *Registry) Create(ctx context.Context, actor models.User, d Draft) (models.Task, error) {
	if err := policy.AuthorizeAdmin(actor); err != nil {
		return models.Task{}, err
	}
	t, assignee, err := r.prepare(ctx, d)
	if err != nil {
		return models.Task{}, err
	}

	var project *models.Project
	if t.ProjectID != "" {
		p, err := r.projects.Get(ctx, t.ProjectID)
		if err != nil {
			return models.Task{}, err
		}
		project = &p
	}

	if err := r.insert(ctx, t); err != nil {
		return models.Task{}, err
	}
	r.announce(ctx, t, assignee, project)
	return t, nil
}

// CreateWithProject creates a project and its first task as one unit: when
// the task cannot be stored the project is removed again.
func (r *Registry) CreateWithProject(ctx context.Context, actor models.User, np NewProject, d Draft) (models.Project, models.Task, error) {
	if err := policy.AuthorizeAdmin(actor); err != nil {
		return models.Project{}, models.Task{}, err
	}
	if strings.TrimSpace(np.Name) == "" {
		return models.Project{}, models.Task{}, apperror.Validation("project name is required")
	}
	d.ProjectID = ""
	t, assignee, err := r.prepare(ctx, d)
	if err != nil {
		return models.Project{}, models.Task{}, err
	}

	r.createMu.Lock()
	defer r.createMu.Unlock()

	project, err := r.projects.CreateUnchecked(ctx, np.Name, np.Description)
	if err != nil {
		return models.Project{}, models.Task{}, err
	}
	t.ProjectID = project.ID
	if err := r.insert(ctx, t); err != nil {
		if derr := r.projects.Discard(ctx, project.ID); derr != nil {
			r.logger.Error("rollback project failed",
				slog.String("project_id", project.ID),
				slog.String("error", derr.Error()))
			err = errors.Join(err, derr)
		}
		return models.Project{}, models.Task{}, err
	}
	r.announce(ctx, t, assignee, &project)
	return project, t, nil
}

// Update replaces a stored task with t. The caller must send the version it
// last read; a write against an older version fails with ErrConflict.
func (r *Registry) Update(ctx context.Context, actor models.User, t models.Task) (models.Task, error) {
	unlock := r.locks.Lock(t.ID)
	defer unlock()

	var updated models.Task
	err := r.tasks.Mutate(ctx, func(items []models.Task) ([]models.Task, error) {
		idx := slices.IndexFunc(items, func(x models.Task) bool { return x.ID == t.ID })
		if idx < 0 {
			return nil, apperror.NotFound("task", t.ID)
		}
		current := items[idx]
		if err := policy.AuthorizeMutate(actor, current); err != nil {
			return nil, err
		}
		if t.Version != current.Version {
			return nil, apperror.ErrConflict
		}
		if err := r.validateReplacement(current, &t); err != nil {
			return nil, err
		}
		t.CreatedAt = current.CreatedAt
		t.Version = current.Version + 1
		items[idx] = t
		updated = t
		return items, nil
	})
	if err != nil {
		return models.Task{}, err
	}
	r.logger.Info("task updated", slog.String("task_id", updated.ID), slog.Int64("version", updated.Version))
	return updated, nil
}

// SetStatus moves a task to status. Completing a task forces its progress
// to 100; no other status touches progress.
func (r *Registry) SetStatus(ctx context.Context, actor models.User, id string, status models.TaskStatus) (models.Task, error) {
	if !status.Valid() {
		return models.Task{}, apperror.Validation("unknown status %q", status)
	}
	unlock := r.locks.Lock(id)
	defer unlock()

	var updated models.Task
	err := r.tasks.Mutate(ctx, func(items []models.Task) ([]models.Task, error) {
		idx := slices.IndexFunc(items, func(x models.Task) bool { return x.ID == id })
		if idx < 0 {
			return nil, apperror.NotFound("task", id)
		}
		t := items[idx]
		if err := policy.AuthorizeMutate(actor, t); err != nil {
			return nil, err
		}
		if !r.transitions.Allowed(t.Status, status) {
			return nil, apperror.Validation("cannot move task from %s to %s", t.Status, status)
		}
		t.Status = status
		if status == models.StatusCompleted {
			t.Progress = 100
		}
		t.Version++
		items[idx] = t
		updated = t
		return items, nil
	})
	if err != nil {
		return models.Task{}, err
	}
	r.logger.Info("task status changed",
		slog.String("task_id", id),
		slog.String("status", string(status)),
		slog.String("actor", actor.ID))
	return updated, nil
}

// ApplyReport records a reported percentage on a task while holding the
// task's lock. check runs against the stored task before anything is
// written; record runs after the task is saved and its failure restores the
// previous task. A report of 100 completes the task.
func (r *Registry) ApplyReport(ctx context.Context, id string, percentage int, check func(models.Task) error, record func(models.Task) error) (models.Task, error) {
	unlock := r.locks.Lock(id)
	defer unlock()

	var previous, updated models.Task
	err := r.tasks.Mutate(ctx, func(items []models.Task) ([]models.Task, error) {
		idx := slices.IndexFunc(items, func(x models.Task) bool { return x.ID == id })
		if idx < 0 {
			return nil, apperror.NotFound("task", id)
		}
		previous = items[idx]
		if err := check(previous); err != nil {
			return nil, err
		}
		t := previous
		t.Progress = percentage
		if percentage == 100 && t.Status != models.StatusCompleted {
			t.Status = models.StatusCompleted
		}
		t.Version++
		items[idx] = t
		updated = t
		return items, nil
	})
	if err != nil {
		return models.Task{}, err
	}

	if err := record(updated); err != nil {
		rerr := r.tasks.Mutate(ctx, func(items []models.Task) ([]models.Task, error) {
			idx := slices.IndexFunc(items, func(x models.Task) bool { return x.ID == id })
			if idx >= 0 {
				items[idx] = previous
			}
			return items, nil
		})
		if rerr != nil {
			r.logger.Error("restore task after failed report", slog.String("task_id", id), slog.String("error", rerr.Error()))
			err = errors.Join(err, rerr)
		}
		return models.Task{}, err
	}
	return updated, nil
}

// Get returns a task the actor may view.
func (r *Registry) Get(ctx context.Context, actor models.User, id string) (models.Task, error) {
	t, err := r.Lookup(ctx, id)
	if err != nil {
		return models.Task{}, err
	}
	if err := policy.AuthorizeView(actor, t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// Lookup returns a task without an authorization check.
func (r *Registry) Lookup(ctx context.Context, id string) (models.Task, error) {
	items, err := r.tasks.Load(ctx)
	if err != nil {
		return models.Task{}, err
	}
	idx := slices.IndexFunc(items, func(x models.Task) bool { return x.ID == id })
	if idx < 0 {
		return models.Task{}, apperror.NotFound("task", id)
	}
	return items[idx], nil
}

// List returns the tasks visible to actor that match f.
func (r *Registry) List(ctx context.Context, actor models.User, f Filter) ([]models.Task, error) {
	if err := policy.RequireActive(actor); err != nil {
		return nil, err
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperror.Validation("unknown status %q", f.Status)
	}
	items, err := r.tasks.Load(ctx)
	if err != nil {
		return nil, err
	}
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]models.Task, 0, len(items))
	for _, t := range items {
		if !policy.CanView(actor, t) {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.ProjectID != "" && t.ProjectID != f.ProjectID {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(t.Title), query) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// All returns every stored task. It is meant for aggregation.
func (r *Registry) All(ctx context.Context) ([]models.Task, error) {
	return r.tasks.Load(ctx)
}

// prepare validates a draft and turns it into a new task.
func (r *Registry) prepare(ctx context.Context, d Draft) (models.Task, models.User, error) {
	now := r.clock.Now()
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	if d.StartDate.IsZero() {
		d.StartDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}
	if d.Priority == "" {
		d.Priority = models.PriorityMedium
	}

	switch {
	case d.Title == "":
		return models.Task{}, models.User{}, apperror.Validation("title is required")
	case d.Description == "":
		return models.Task{}, models.User{}, apperror.Validation("description is required")
	case d.AssignedToID == "":
		return models.Task{}, models.User{}, apperror.Validation("assignee is required")
	case d.Deadline.IsZero():
		return models.Task{}, models.User{}, apperror.Validation("deadline is required")
	case d.Deadline.Before(d.StartDate):
		return models.Task{}, models.User{}, apperror.Validation("deadline must not be before start date")
	case !d.Priority.Valid():
		return models.Task{}, models.User{}, apperror.Validation("unknown priority %q", d.Priority)
	}

	assignee, err := r.users.Get(ctx, d.AssignedToID)
	if err != nil {
		return models.Task{}, models.User{}, err
	}
	if assignee.Role != models.RoleStaff {
		return models.Task{}, models.User{}, apperror.Validation("assignee must be a staff member")
	}

	return models.Task{
		ID:              uuid.NewString(),
		ProjectID:       d.ProjectID,
		Title:           d.Title,
		Description:     d.Description,
		StartDate:       d.StartDate,
		Deadline:        d.Deadline,
		AssignedToID:    d.AssignedToID,
		CollaboratorIDs: collaborators(d.CollaboratorIDs, d.AssignedToID),
		Status:          models.StatusTodo,
		Priority:        d.Priority,
		Notes:           strings.TrimSpace(d.Notes),
		CreatedAt:       now,
		Progress:        0,
		Version:         1,
	}, assignee, nil
}

func (r *Registry) validateReplacement(current models.Task, t *models.Task) error {
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	switch {
	case t.Title == "":
		return apperror.Validation("title is required")
	case t.Description == "":
		return apperror.Validation("description is required")
	case t.AssignedToID == "":
		return apperror.Validation("assignee is required")
	case t.Deadline.IsZero():
		return apperror.Validation("deadline is required")
	case t.Deadline.Before(t.StartDate):
		return apperror.Validation("deadline must not be before start date")
	case !t.Status.Valid():
		return apperror.Validation("unknown status %q", t.Status)
	case !t.Priority.Valid():
		return apperror.Validation("unknown priority %q", t.Priority)
	case t.Progress < 0 || t.Progress > 100:
		return apperror.Validation("progress must be between 0 and 100")
	case !r.transitions.Allowed(current.Status, t.Status):
		return apperror.Validation("cannot move task from %s to %s", current.Status, t.Status)
	}
	if t.Status == models.StatusCompleted {
		t.Progress = 100
	}
	t.CollaboratorIDs = collaborators(t.CollaboratorIDs, t.AssignedToID)
	return nil
}

func (r *Registry) insert(ctx context.Context, t models.Task) error {
	err := r.tasks.Mutate(ctx, func(items []models.Task) ([]models.Task, error) {
		return append(items, t), nil
	})
	if err != nil {
		return err
	}
	r.logger.Info("task created",
		slog.String("task_id", t.ID),
		slog.String("assignee", t.AssignedToID),
		slog.String("project_id", t.ProjectID))
	return nil
}

func (r *Registry) announce(ctx context.Context, t models.Task, assignee models.User, project *models.Project) {
	if r.notifier == nil {
		return
	}
	r.notifier.TaskAssigned(ctx, t, assignee, project)
}

// collaborators drops blanks, duplicates and the assignee.
func collaborators(ids []string, assignee string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || id == assignee || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}
