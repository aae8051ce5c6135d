// Package report keeps the append-only progress ledger. Each accepted report
// moves its task's progress and, at 100%, completes the task.
package report

import (
	"context"
	"fmt"
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
	"workflow/internal/task"
)

// Summarizer condenses report texts into a progress analysis.
type Summarizer interface {
	Summarize(ctx context.Context, reports []string) string
}

// Submission is the payload of a new report.
type Submission struct {
	Content     string
	Issues      string
	DelayReason string
	Percentage  int
}

// Ledger appends and lists reports.
type Ledger struct {
	reports    *storage.Table[models.Report]
	tasks      *task.Registry
	summarizer Summarizer
	clock      clock.Clock
	logger     *slog.Logger
}

// New constructs a ledger writing through tasks.
func New(reports *storage.Table[models.Report], tasks *task.Registry, summarizer Summarizer, clk clock.Clock, logger *slog.Logger) *Ledger {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Ledger{reports: reports, tasks: tasks, summarizer: summarizer, clock: clk, logger: logger}
}

// Submit records a report by the task's assignee and applies its percentage
// to the task. Nothing is written when any check fails.
func (l *Ledger) Submit(ctx context.Context, actor models.User, taskID string, s Submission) (models.Report, models.Task, error) {
	s.Content = strings.TrimSpace(s.Content)
	if s.Content == "" {
		return models.Report{}, models.Task{}, apperror.Validation("content is required")
	}
	if s.Percentage < 0 || s.Percentage > 100 {
		return models.Report{}, models.Task{}, apperror.Validation("percentage must be between 0 and 100")
	}

	rep := models.Report{
		ID:                  uuid.NewString(),
		TaskID:              taskID,
		UserID:              actor.ID,
		CreatedAt:           l.clock.Now(),
		Content:             s.Content,
		Issues:              strings.TrimSpace(s.Issues),
		DelayReason:         strings.TrimSpace(s.DelayReason),
		PercentageCompleted: s.Percentage,
	}

	check := func(t models.Task) error {
		if err := policy.AuthorizeReport(actor, t); err != nil {
			return err
		}
		if t.Status == models.StatusCompleted {
			return fmt.Errorf("%w: task %s accepts no more reports", apperror.ErrTerminalState, t.ID)
		}
		return nil
	}
	record := func(models.Task) error {
		return l.reports.Mutate(ctx, func(items []models.Report) ([]models.Report, error) {
			return append(items, rep), nil
		})
	}

	updated, err := l.tasks.ApplyReport(ctx, taskID, s.Percentage, check, record)
	if err != nil {
		return models.Report{}, models.Task{}, err
	}
	l.logger.Info("report submitted",
		slog.String("task_id", taskID),
		slog.String("user_id", actor.ID),
		slog.Int("percentage", s.Percentage))
	return rep, updated, nil
}

// List returns the reports of a task, most recent first.
func (l *Ledger) List(ctx context.Context, actor models.User, taskID string) ([]models.Report, error) {
	if _, err := l.tasks.Get(ctx, actor, taskID); err != nil {
		return nil, err
	}
	items, err := l.reports.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := slices.DeleteFunc(items, func(r models.Report) bool { return r.TaskID != taskID })
	// Reports sharing a timestamp keep reverse submission order.
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b models.Report) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

// Analyze asks the summarizer for a progress analysis of a task's reports.
func (l *Ledger) Analyze(ctx context.Context, actor models.User, taskID string) (string, error) {
	reports, err := l.List(ctx, actor, taskID)
	if err != nil {
		return "", err
	}
	texts := make([]string, len(reports))
	for i, r := range reports {
		texts[i] = Text(r)
	}
	return l.summarizer.Summarize(ctx, texts), nil
}

// Text renders a report as a single line.
func Text(r models.Report) string {
	issues := r.Issues
	if issues == "" {
		issues = "None"
	}
	return fmt.Sprintf("Date: %s, Content: %s, Issues: %s", r.CreatedAt.Format("2006-01-02"), r.Content, issues)
}
