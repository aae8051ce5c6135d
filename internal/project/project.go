// Package project keeps the optional named groups that tasks can belong to.
package project

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"workflow/internal/apperror"
	"workflow/internal/clock"
	"workflow/internal/models"
	"workflow/internal/policy"
	"workflow/internal/storage"
)

// Registry creates and looks up projects. Projects are immutable once created.
type Registry struct {
	projects *storage.Table[models.Project]
	clock    clock.Clock
	logger   *slog.Logger
}

// New constructs a project registry.
func New(projects *storage.Table[models.Project], clk clock.Clock, logger *slog.Logger) *Registry {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{projects: projects, clock: clk, logger: logger}
}

// Create stores a new project on behalf of an administrator.
func (r *Registry) Create(ctx context.Context, actor models.User, name, description string) (models.Project, error) {
	if err := policy.AuthorizeAdmin(actor); err != nil {
		return models.Project{}, err
	}
	return r.create(ctx, name, description)
}

func (r *Registry) create(ctx context.Context, name, description string) (models.Project, error) {
	p := models.Project{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		CreatedAt:   r.clock.Now(),
	}
	err := r.projects.Mutate(ctx, func(items []models.Project) ([]models.Project, error) {
		return append(items, p), nil
	})
	if err != nil {
		return models.Project{}, err
	}
	r.logger.Info("project created", slog.String("project_id", p.ID))
	return p, nil
}

// Discard removes a project that was created as the first half of a
// create-project-then-task transaction whose task never got stored.
func (r *Registry) Discard(ctx context.Context, id string) error {
	return r.projects.Mutate(ctx, func(items []models.Project) ([]models.Project, error) {
		return slices.DeleteFunc(items, func(p models.Project) bool { return p.ID == id }), nil
	})
}

// CreateUnchecked stores a project without an authorization check. Callers
// must have authorized the enclosing operation.
func (r *Registry) CreateUnchecked(ctx context.Context, name, description string) (models.Project, error) {
	return r.create(ctx, name, description)
}

// Get returns a project by id.
func (r *Registry) Get(ctx context.Context, id string) (models.Project, error) {
	items, err := r.projects.Load(ctx)
	if err != nil {
		return models.Project{}, err
	}
	idx := slices.IndexFunc(items, func(p models.Project) bool { return p.ID == id })
	if idx < 0 {
		return models.Project{}, apperror.NotFound("project", id)
	}
	return items[idx], nil
}

// List returns every project in creation order.
func (r *Registry) List(ctx context.Context, actor models.User) ([]models.Project, error) {
	if err := policy.RequireActive(actor); err != nil {
		return nil, err
	}
	return r.projects.Load(ctx)
}
