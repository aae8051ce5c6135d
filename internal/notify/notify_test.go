package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"workflow/internal/apperror"
	"workflow/internal/models"
	"workflow/internal/storage/sqlite"
)

var admin = models.User{ID: "u1", Role: models.RoleAdmin}

func newMailer(t *testing.T, buf *bytes.Buffer) *Mailer {
	t.Helper()
	backend, err := sqlite.Open(filepath.Join(t.TempDir(), "workflow.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })
	return New(backend, slog.New(slog.NewTextHandler(buf, nil)))
}

func TestSettingsDefaultsAndSave(t *testing.T) {
	ctx := context.Background()
	m := newMailer(t, &bytes.Buffer{})

	cfg, err := m.Settings(ctx, admin)
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if cfg != models.DefaultEmailConfig() {
		t.Fatalf("defaults = %+v", cfg)
	}

	cfg.SenderEmail = "noreply@company.com"
	cfg.SenderPassword = "app-secret"
	if _, err := m.SaveSettings(ctx, admin, cfg); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	cfg.SenderPassword = ""
	cfg.SMTPPort = "465"
	saved, err := m.SaveSettings(ctx, admin, cfg)
	if err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	if saved.SenderPassword != "" {
		t.Fatal("password returned to caller")
	}
	stored, err := m.load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stored.SenderPassword != "app-secret" || stored.SMTPPort != "465" {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestSettingsRequireAdmin(t *testing.T) {
	ctx := context.Background()
	m := newMailer(t, &bytes.Buffer{})
	staff := models.User{ID: "u2", Role: models.RoleStaff}
	if _, err := m.Settings(ctx, staff); !errors.Is(err, apperror.ErrAuthorization) {
		t.Fatalf("Settings: got %v", err)
	}
	if _, err := m.SaveSettings(ctx, staff, models.DefaultEmailConfig()); !errors.Is(err, apperror.ErrAuthorization) {
		t.Fatalf("SaveSettings: got %v", err)
	}
	bad := models.DefaultEmailConfig()
	bad.SMTPHost = ""
	if _, err := m.SaveSettings(ctx, admin, bad); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("missing host: got %v", err)
	}
}

func TestTaskAssignedLogsSimulatedMail(t *testing.T) {
	var buf bytes.Buffer
	m := newMailer(t, &buf)
	assignee := models.User{ID: "u2", Email: "a.nguyen@company.com"}

	m.TaskAssigned(context.Background(), models.Task{Title: "Prepare brief"}, assignee, &models.Project{Name: "Website Redesign"})
	m.Wait()

	out := buf.String()
	if !strings.Contains(out, "to=a.nguyen@company.com") || !strings.Contains(out, `project="Website Redesign"`) {
		t.Fatalf("log = %s", out)
	}
}

func TestTaskAssignedRespectsDisabledSetting(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	m := newMailer(t, &buf)
	cfg := models.DefaultEmailConfig()
	cfg.EnableNotifications = false
	if _, err := m.SaveSettings(ctx, admin, cfg); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	buf.Reset()

	m.TaskAssigned(ctx, models.Task{Title: "Quiet"}, models.User{ID: "u2", Email: "x@y.z"}, nil)
	m.Wait()
	if strings.Contains(buf.String(), "email sent") {
		t.Fatalf("mail sent while disabled: %s", buf.String())
	}
}
