package app

import (
	"context"
	"log/slog"
	"time"

	"workflow/internal/models"
)

// SeedDemo stores a few sample projects and tasks for the seeded staff
// accounts. Collections that were already written are left alone.
func (a *App) SeedDemo(ctx context.Context) error {
	now := a.Clock.Now()
	day := 24 * time.Hour

	stored, err := a.Catalog.Projects.Stored(ctx)
	if err != nil {
		return err
	}
	if !stored {
		err := a.Catalog.Projects.Replace(ctx, []models.Project{
			{ID: "p1", Name: "Q3 Marketing Campaign", Description: "All tasks related to the summer rollout.", CreatedAt: now},
			{ID: "p2", Name: "Website Redesign", Description: "Overhaul of the corporate website.", CreatedAt: now},
		})
		if err != nil {
			return err
		}
	}

	stored, err = a.Catalog.Tasks.Stored(ctx)
	if err != nil || stored {
		return err
	}
	tasks := []models.Task{
		{
			ID:              "t1",
			ProjectID:       "p1",
			Title:           "Design Social Media Assets",
			Description:     "Create visuals for Facebook and Instagram.",
			StartDate:       now.Add(-5 * day),
			Deadline:        now.Add(-day),
			AssignedToID:    "u2",
			CollaboratorIDs: []string{"u3"},
			Status:          models.StatusInProgress,
			Priority:        models.PriorityHigh,
			Progress:        50,
		},
		{
			ID:              "t2",
			ProjectID:       "p2",
			Title:           "Setup Staging Server",
			Description:     "Prepare environment for new website deployment.",
			StartDate:       now,
			Deadline:        now.Add(3 * day),
			AssignedToID:    "u3",
			CollaboratorIDs: []string{},
			Status:          models.StatusTodo,
			Priority:        models.PriorityUrgent,
		},
		{
			ID:              "t3",
			Title:           "Fix Office Printer",
			Description:     "Contact vendor to repair 2nd floor printer.",
			StartDate:       now,
			Deadline:        now.Add(day),
			AssignedToID:    "u2",
			CollaboratorIDs: []string{},
			Status:          models.StatusTodo,
			Priority:        models.PriorityLow,
		},
	}
	for i := range tasks {
		tasks[i].CreatedAt = now
		tasks[i].Version = 1
	}
	if err := a.Catalog.Tasks.Replace(ctx, tasks); err != nil {
		return err
	}
	a.logger.Info("seeded demo data", slog.Int("projects", 2), slog.Int("tasks", len(tasks)))
	return nil
}
