package report

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"workflow/internal/apperror"
	"workflow/internal/clock"
	"workflow/internal/models"
	"workflow/internal/project"
	"workflow/internal/storage"
	"workflow/internal/storage/sqlite"
	"workflow/internal/task"
)

var (
	admin    = models.User{ID: "u1", Role: models.RoleAdmin}
	assignee = models.User{ID: "u2", Role: models.RoleStaff}
	helper   = models.User{ID: "u3", Role: models.RoleStaff}
)

type directory map[string]models.User

func (d directory) Get(_ context.Context, id string) (models.User, error) {
	if u, ok := d[id]; ok {
		return u, nil
	}
	return models.User{}, apperror.NotFound("user", id)
}

type echoSummarizer struct{ got []string }

func (e *echoSummarizer) Summarize(_ context.Context, reports []string) string {
	e.got = reports
	return "summary"
}

type fixture struct {
	catalog    *storage.Catalog
	clock      *clock.Fake
	tasks      *task.Registry
	ledger     *Ledger
	summarizer *echoSummarizer
	task       models.Task
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend, err := sqlite.Open(filepath.Join(t.TempDir(), "workflow.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })

	f := &fixture{
		catalog:    storage.NewCatalog(backend),
		clock:      clock.NewFake(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)),
		summarizer: &echoSummarizer{},
	}
	projects := project.New(f.catalog.Projects, f.clock, nil)
	users := directory{admin.ID: admin, assignee.ID: assignee, helper.ID: helper}
	f.tasks = task.New(f.catalog.Tasks, users, projects, nil, task.WithClock(f.clock))
	f.ledger = New(f.catalog.Reports, f.tasks, f.summarizer, f.clock, nil)

	f.task, err = f.tasks.Create(context.Background(), admin, task.Draft{
		Title:           "Migrate billing",
		Description:     "Move invoices to the new provider",
		Deadline:        f.clock.Now().Add(7 * 24 * time.Hour),
		AssignedToID:    assignee.ID,
		CollaboratorIDs: []string{helper.ID},
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return f
}

func (f *fixture) state(t *testing.T) (models.Task, []models.Report) {
	t.Helper()
	ctx := context.Background()
	current, err := f.tasks.Lookup(ctx, f.task.ID)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	reports, err := f.catalog.Reports.Load(ctx)
	if err != nil {
		t.Fatalf("Load reports: %v", err)
	}
	return current, reports
}

func TestSubmitUpdatesProgress(t *testing.T) {
	f := newFixture(t)
	rep, updated, err := f.ledger.Submit(context.Background(), assignee, f.task.ID, Submission{Content: "Exported data", Percentage: 40})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rep.UserID != assignee.ID || rep.PercentageCompleted != 40 {
		t.Fatalf("report = %+v", rep)
	}
	if updated.Progress != 40 || updated.Status != models.StatusTodo {
		t.Fatalf("task progress=%d status=%s", updated.Progress, updated.Status)
	}
}

func TestSubmitFullCompletesTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, _, err := f.ledger.Submit(ctx, assignee, f.task.ID, Submission{Content: "Done", Percentage: 100}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	current, _ := f.state(t)
	if current.Status != models.StatusCompleted || current.Progress != 100 {
		t.Fatalf("status=%s progress=%d", current.Status, current.Progress)
	}

	_, _, err := f.ledger.Submit(ctx, assignee, f.task.ID, Submission{Content: "One more", Percentage: 100})
	if !errors.Is(err, apperror.ErrTerminalState) {
		t.Fatalf("got %v, want ErrTerminalState", err)
	}
	if _, reports := f.state(t); len(reports) != 1 {
		t.Fatalf("ledger has %d reports", len(reports))
	}
}

func TestSubmitRejectionsLeaveStateUnchanged(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name  string
		actor models.User
		sub   Submission
		want  error
	}{
		{"collaborator", helper, Submission{Content: "Helping", Percentage: 10}, apperror.ErrAuthorization},
		{"admin", admin, Submission{Content: "Checking", Percentage: 10}, apperror.ErrAuthorization},
		{"empty content", assignee, Submission{Content: "   ", Percentage: 10}, apperror.ErrValidation},
		{"percentage above range", assignee, Submission{Content: "x", Percentage: 101}, apperror.ErrValidation},
		{"percentage below range", assignee, Submission{Content: "x", Percentage: -1}, apperror.ErrValidation},
		{"first login", models.User{ID: assignee.ID, Role: models.RoleStaff, FirstLogin: true}, Submission{Content: "x", Percentage: 10}, apperror.ErrPasswordChangeRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := f.ledger.Submit(context.Background(), tt.actor, f.task.ID, tt.sub); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			current, reports := f.state(t)
			if len(reports) != 0 {
				t.Fatalf("ledger has %d reports", len(reports))
			}
			if current.Progress != f.task.Progress || current.Version != f.task.Version {
				t.Fatalf("task changed: %+v", current)
			}
		})
	}
}

func TestSubmitAcceptsLowerPercentage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, pct := range []int{60, 30} {
		if _, _, err := f.ledger.Submit(ctx, assignee, f.task.ID, Submission{Content: "update", Percentage: pct}); err != nil {
			t.Fatalf("Submit(%d): %v", pct, err)
		}
	}
	if current, _ := f.state(t); current.Progress != 30 {
		t.Fatalf("progress = %d", current.Progress)
	}
}

func TestListNewestFirstAndAnalyze(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i, content := range []string{"Kickoff", "Halfway"} {
		if i > 0 {
			f.clock.Advance(24 * time.Hour)
		}
		if _, _, err := f.ledger.Submit(ctx, assignee, f.task.ID, Submission{Content: content, Issues: "", Percentage: 25 * (i + 1)}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	reports, err := f.ledger.List(ctx, helper, f.task.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(reports) != 2 || reports[0].Content != "Halfway" {
		t.Fatalf("reports = %+v", reports)
	}

	if _, err := f.ledger.List(ctx, models.User{ID: "u9", Role: models.RoleStaff}, f.task.ID); !errors.Is(err, apperror.ErrAuthorization) {
		t.Fatalf("outsider: got %v", err)
	}

	summary, err := f.ledger.Analyze(ctx, admin, f.task.ID)
	if err != nil || summary != "summary" {
		t.Fatalf("Analyze = %q, %v", summary, err)
	}
	if len(f.summarizer.got) != 2 || !strings.HasPrefix(f.summarizer.got[0], "Date: 2024-06-02, Content: Halfway") {
		t.Fatalf("summarizer input = %q", f.summarizer.got)
	}
}

func TestListOrdersSameInstantReportsBySubmission(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i, content := range []string{"First", "Second", "Third"} {
		if _, _, err := f.ledger.Submit(ctx, assignee, f.task.ID, Submission{Content: content, Percentage: 10 * (i + 1)}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	reports, err := f.ledger.List(ctx, assignee, f.task.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var got []string
	for _, r := range reports {
		got = append(got, r.Content)
	}
	if strings.Join(got, ",") != "Third,Second,First" {
		t.Fatalf("order = %v", got)
	}
}
