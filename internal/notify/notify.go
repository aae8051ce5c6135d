// Package notify holds the email settings and the simulated assignment mail.
// No message leaves the process: a delivery is a structured log line.
package notify

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"workflow/internal/apperror"
	"workflow/internal/models"
	"workflow/internal/policy"
	"workflow/internal/storage"
)

// Mailer reads the email settings and simulates assignment mails.
type Mailer struct {
	backend storage.Backend
	logger  *slog.Logger
	mu      sync.Mutex
	wg      sync.WaitGroup
}

// New binds the mailer to the email-config collection.
func New(backend storage.Backend, logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Mailer{backend: backend, logger: logger}
}

// Settings returns the stored configuration without the sender password.
func (m *Mailer) Settings(ctx context.Context, actor models.User) (models.EmailConfig, error) {
	if err := policy.AuthorizeAdmin(actor); err != nil {
		return models.EmailConfig{}, err
	}
	cfg, err := m.load(ctx)
	if err != nil {
		return models.EmailConfig{}, err
	}
	cfg.SenderPassword = ""
	return cfg, nil
}

// SaveSettings stores cfg. An empty password keeps the stored one.
func (m *Mailer) SaveSettings(ctx context.Context, actor models.User, cfg models.EmailConfig) (models.EmailConfig, error) {
	if err := policy.AuthorizeAdmin(actor); err != nil {
		return models.EmailConfig{}, err
	}
	cfg.SMTPHost = strings.TrimSpace(cfg.SMTPHost)
	cfg.SMTPPort = strings.TrimSpace(cfg.SMTPPort)
	cfg.SenderEmail = strings.TrimSpace(cfg.SenderEmail)
	if cfg.EnableNotifications && (cfg.SMTPHost == "" || cfg.SMTPPort == "") {
		return models.EmailConfig{}, apperror.Validation("smtp host and port are required when notifications are enabled")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg.SenderPassword == "" {
		current, err := m.load(ctx)
		if err != nil {
			return models.EmailConfig{}, err
		}
		cfg.SenderPassword = current.SenderPassword
	}
	if err := storage.SaveValue(ctx, m.backend, storage.CollectionEmailConfig, cfg); err != nil {
		return models.EmailConfig{}, err
	}
	m.logger.Info("email settings saved", slog.String("smtp_host", cfg.SMTPHost), slog.Bool("enabled", cfg.EnableNotifications))
	cfg.SenderPassword = ""
	return cfg, nil
}

// TaskAssigned sends the simulated assignment mail in the background.
// Failures are logged and never reach the caller.
func (m *Mailer) TaskAssigned(ctx context.Context, t models.Task, assignee models.User, p *models.Project) {
	ctx = context.WithoutCancel(ctx)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		cfg, err := m.load(ctx)
		if err != nil {
			m.logger.Error("load email settings", slog.String("error", err.Error()))
			return
		}
		if !cfg.EnableNotifications {
			return
		}
		if assignee.Email == "" {
			m.logger.Warn("assignee has no email", slog.String("user_id", assignee.ID))
			return
		}
		scope := "Ad-hoc task"
		if p != nil {
			scope = p.Name
		}
		m.logger.Info("email sent",
			slog.String("to", assignee.Email),
			slog.String("subject", "New task assigned: "+t.Title),
			slog.String("project", scope),
			slog.Time("deadline", t.Deadline),
			slog.String("via", cfg.SMTPHost+":"+cfg.SMTPPort))
	}()
}

// Wait blocks until every pending mail has been handled.
func (m *Mailer) Wait() {
	m.wg.Wait()
}

func (m *Mailer) load(ctx context.Context) (models.EmailConfig, error) {
	cfg := models.DefaultEmailConfig()
	if _, err := storage.LoadValue(ctx, m.backend, storage.CollectionEmailConfig, &cfg); err != nil {
		return models.EmailConfig{}, err
	}
	return cfg, nil
}
