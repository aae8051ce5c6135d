package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"workflow/internal/clock"
	"workflow/internal/config"
	"workflow/internal/models"
	"workflow/internal/stats"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		SeedDemo: true,
		Storage: config.StorageConfig{
			Driver:  "sqlite",
			Path:    filepath.Join(t.TempDir(), "workflow.db"),
			Retries: 2,
			Backoff: time.Millisecond,
		},
		Auth: config.AuthConfig{JWTSecret: "test"},
	}
}

func TestOpenSeedsAccountsAndDemo(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	a, err := Open(ctx, testConfig(t), nil, WithClock(clk), WithHashCost(bcrypt.MinCost))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	user, err := a.Services.Identity.Login(ctx, "admin", "admin123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !user.FirstLogin || user.Role != models.RoleAdmin {
		t.Fatalf("admin = %+v", user)
	}

	tasks, err := a.Catalog.Tasks.Load(ctx)
	if err != nil {
		t.Fatalf("Load tasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("demo tasks = %d", len(tasks))
	}
	got := stats.Compute(tasks, "u2", clk.Now())
	if got.Total != 2 || got.Overdue != 1 || got.DueSoon != 1 || got.InProgress != 1 {
		t.Fatalf("stats for u2 = %+v", got)
	}

	if err := a.SeedDemo(ctx); err != nil {
		t.Fatalf("second SeedDemo: %v", err)
	}
	tasks, _ = a.Catalog.Tasks.Load(ctx)
	if len(tasks) != 3 {
		t.Fatalf("demo seeded twice: %d tasks", len(tasks))
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "etcd"
	if _, err := Open(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error")
	}
}
