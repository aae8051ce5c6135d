// Package stats derives per-user task statistics. Nothing here is stored;
// every figure is recomputed from the current task set.
package stats

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"workflow/internal/clock"
	"workflow/internal/models"
	"workflow/internal/policy"
)

// DueSoonWindow is how far ahead a deadline counts as due soon.
const DueSoonWindow = 3 * 24 * time.Hour

// Stats summarizes the tasks assigned to one user.
type Stats struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	InProgress     int `json:"in_progress"`
	Overdue        int `json:"overdue"`
	DueSoon        int `json:"due_soon"`
	CompletionRate int `json:"completion_rate"`
}

// Compute counts the tasks assigned to userID as of asOf.
func Compute(tasks []models.Task, userID string, asOf time.Time) Stats {
	var s Stats
	horizon := asOf.Add(DueSoonWindow)
	for _, t := range tasks {
		if t.AssignedToID != userID {
			continue
		}
		s.Total++
		switch t.Status {
		case models.StatusCompleted:
			s.Completed++
			continue
		case models.StatusInProgress:
			s.InProgress++
		}
		switch {
		case t.Deadline.Before(asOf):
			s.Overdue++
		case !t.Deadline.After(horizon):
			s.DueSoon++
		}
	}
	if s.Total > 0 {
		s.CompletionRate = int(math.Round(float64(s.Completed) / float64(s.Total) * 100))
	}
	return s
}

// UserStats pairs a user with their figures.
type UserStats struct {
	User  models.User `json:"user"`
	Stats Stats       `json:"stats"`
}

// Source provides the inputs of an aggregation.
type Source interface {
	All(ctx context.Context) ([]models.Task, error)
}

// Users lists accounts.
type Users interface {
	List(ctx context.Context, actor models.User) ([]models.User, error)
}

// Engine computes dashboards and team reports.
type Engine struct {
	tasks Source
	users Users
	clock clock.Clock
}

// New constructs an Engine. clk defaults to the wall clock.
func New(tasks Source, users Users, clk clock.Clock) *Engine {
	if clk == nil {
		clk = clock.Real()
	}
	return &Engine{tasks: tasks, users: users, clock: clk}
}

// Dashboard returns statistics for every staff member when actor is an
// administrator, and only for actor otherwise.
func (e *Engine) Dashboard(ctx context.Context, actor models.User) ([]UserStats, error) {
	if err := policy.RequireActive(actor); err != nil {
		return nil, err
	}
	tasks, err := e.tasks.All(ctx)
	if err != nil {
		return nil, err
	}
	asOf := e.clock.Now()
	if !actor.IsAdmin() {
		return []UserStats{{User: actor.Public(), Stats: Compute(tasks, actor.ID, asOf)}}, nil
	}
	users, err := e.users.List(ctx, actor)
	if err != nil {
		return nil, err
	}
	out := make([]UserStats, 0, len(users))
	for _, u := range users {
		if u.Role != models.RoleStaff {
			continue
		}
		out = append(out, UserStats{User: u, Stats: Compute(tasks, u.ID, asOf)})
	}
	return out, nil
}

// Team returns the administrator report: every user with at least one task.
func (e *Engine) Team(ctx context.Context, actor models.User) ([]UserStats, error) {
	if err := policy.AuthorizeAdmin(actor); err != nil {
		return nil, err
	}
	tasks, err := e.tasks.All(ctx)
	if err != nil {
		return nil, err
	}
	users, err := e.users.List(ctx, actor)
	if err != nil {
		return nil, err
	}
	asOf := e.clock.Now()
	out := make([]UserStats, 0, len(users))
	for _, u := range users {
		s := Compute(tasks, u.ID, asOf)
		if s.Total == 0 {
			continue
		}
		out = append(out, UserStats{User: u, Stats: s})
	}
	return out, nil
}

var csvHeader = []string{"user_id", "name", "username", "total", "completed", "in_progress", "overdue", "due_soon", "completion_rate"}

// WriteCSV writes a team report as CSV.
func WriteCSV(w io.Writer, rows []UserStats) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.User.ID,
			r.User.Name,
			r.User.Username,
			strconv.Itoa(r.Stats.Total),
			strconv.Itoa(r.Stats.Completed),
			strconv.Itoa(r.Stats.InProgress),
			strconv.Itoa(r.Stats.Overdue),
			strconv.Itoa(r.Stats.DueSoon),
			strconv.Itoa(r.Stats.CompletionRate),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
