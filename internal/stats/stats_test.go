package stats

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"workflow/internal/apperror"
	"workflow/internal/clock"
	"workflow/internal/models"
)

var asOf = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func task(assignee string, status models.TaskStatus, deadline time.Time) models.Task {
	return models.Task{AssignedToID: assignee, Status: status, Deadline: deadline}
}

func TestComputeMixedTasks(t *testing.T) {
	tasks := []models.Task{
		task("u2", models.StatusCompleted, asOf.Add(-48*time.Hour)),
		task("u2", models.StatusCompleted, asOf.Add(24*time.Hour)),
		task("u2", models.StatusTodo, asOf.Add(-time.Hour)),
		task("u2", models.StatusInProgress, asOf.Add(48*time.Hour)),
		task("u3", models.StatusTodo, asOf.Add(-time.Hour)),
	}
	got := Compute(tasks, "u2", asOf)
	want := Stats{Total: 4, Completed: 2, InProgress: 1, Overdue: 1, DueSoon: 1, CompletionRate: 50}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestComputeBoundaries(t *testing.T) {
	tests := []struct {
		name string
		task models.Task
		want Stats
	}{
		{"deadline now is due soon", task("u2", models.StatusTodo, asOf), Stats{Total: 1, DueSoon: 1}},
		{"deadline at horizon", task("u2", models.StatusTodo, asOf.Add(DueSoonWindow)), Stats{Total: 1, DueSoon: 1}},
		{"deadline past horizon", task("u2", models.StatusTodo, asOf.Add(DueSoonWindow+time.Second)), Stats{Total: 1}},
		{"cancelled overdue", task("u2", models.StatusCancelled, asOf.Add(-time.Second)), Stats{Total: 1, Overdue: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compute([]models.Task{tt.task}, "u2", asOf); got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestComputeRounding(t *testing.T) {
	tasks := []models.Task{
		task("u2", models.StatusCompleted, asOf),
		task("u2", models.StatusCompleted, asOf),
		task("u2", models.StatusTodo, asOf.Add(30*24*time.Hour)),
	}
	if got := Compute(tasks, "u2", asOf).CompletionRate; got != 67 {
		t.Fatalf("rate = %d, want 67", got)
	}
	if got := Compute(nil, "u2", asOf).CompletionRate; got != 0 {
		t.Fatalf("empty rate = %d", got)
	}
}

type taskList []models.Task

func (l taskList) All(context.Context) ([]models.Task, error) { return l, nil }

type userList []models.User

func (l userList) List(context.Context, models.User) ([]models.User, error) { return l, nil }

func newEngine() *Engine {
	users := userList{
		{ID: "u1", Name: "Administrator", Role: models.RoleAdmin},
		{ID: "u2", Name: "Nguyen Van A", Username: "staff1", Role: models.RoleStaff},
		{ID: "u3", Name: "Tran Thi B", Username: "staff2", Role: models.RoleStaff},
	}
	tasks := taskList{
		task("u2", models.StatusCompleted, asOf),
		task("u2", models.StatusTodo, asOf.Add(time.Hour)),
	}
	return New(tasks, users, clock.NewFake(asOf))
}

func TestDashboardScope(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	all, err := e.Dashboard(ctx, models.User{ID: "u1", Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("Dashboard(admin): %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("admin dashboard rows = %d, want 2 staff", len(all))
	}

	own, err := e.Dashboard(ctx, models.User{ID: "u3", Role: models.RoleStaff})
	if err != nil {
		t.Fatalf("Dashboard(staff): %v", err)
	}
	if len(own) != 1 || own[0].User.ID != "u3" || own[0].Stats.Total != 0 {
		t.Fatalf("staff dashboard = %+v", own)
	}
}

func TestTeamReportAndCSV(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	if _, err := e.Team(ctx, models.User{ID: "u2", Role: models.RoleStaff}); !errors.Is(err, apperror.ErrAuthorization) {
		t.Fatalf("staff: got %v", err)
	}
	rows, err := e.Team(ctx, models.User{ID: "u1", Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("Team: %v", err)
	}
	if len(rows) != 1 || rows[0].User.ID != "u2" {
		t.Fatalf("rows = %+v", rows)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv lines = %q", lines)
	}
	if lines[1] != "u2,Nguyen Van A,staff1,2,1,0,0,1,50" {
		t.Fatalf("row = %q", lines[1])
	}
}
