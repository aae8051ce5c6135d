package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("WORKFLOW_STORAGE_DRIVER", "sqlite")
	t.Setenv("WORKFLOW_STORAGE_PATH", filepath.Join(t.TempDir(), "workflow.db"))
	t.Setenv("WORKFLOW_AUTH_HASH_COST", "4")
	t.Setenv("WORKFLOW_ASSISTANT_PROVIDER", "")
	t.Setenv("WORKFLOW_SEED_DEMO", "true")
}

func TestSessionCommands(t *testing.T) {
	setupEnv(t)

	if _, err := run(t, "whoami"); err == nil || !strings.Contains(err.Error(), "not signed in") {
		t.Fatalf("whoami before login: %v", err)
	}

	out, err := run(t, "login", "-u", "staff1", "-p", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "password change required") {
		t.Fatalf("login output = %q", out)
	}

	if _, err := run(t, "tasks"); err == nil {
		t.Fatal("tasks listed before the password change")
	}
	if _, err := run(t, "whoami"); err == nil || !strings.Contains(err.Error(), "password change required") {
		t.Fatalf("whoami before the password change: %v", err)
	}

	if _, err := run(t, "passwd", "--old", "wrong", "--new", "secret99"); err == nil {
		t.Fatal("passwd accepted a wrong old password")
	}
	if _, err := run(t, "passwd", "--old", "password123", "--new", "secret99"); err != nil {
		t.Fatalf("passwd: %v", err)
	}

	out, err = run(t, "tasks", "-q", "printer")
	if err != nil {
		t.Fatalf("tasks: %v", err)
	}
	if !strings.Contains(out, "Fix Office Printer") || strings.Contains(out, "Staging") {
		t.Fatalf("tasks output = %q", out)
	}

	out, err = run(t, "whoami")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if !strings.HasPrefix(out, "u2\tstaff1") {
		t.Fatalf("whoami output = %q", out)
	}

	if _, err := run(t, "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := run(t, "whoami"); err == nil {
		t.Fatal("whoami after logout succeeded")
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	setupEnv(t)
	if _, err := run(t, "login", "-u", "admin", "-p", "nope"); err == nil {
		t.Fatal("expected credential error")
	}
}

func TestServeRequiresSecret(t *testing.T) {
	setupEnv(t)
	t.Setenv("WORKFLOW_AUTH_JWT_SECRET", "")
	if _, err := run(t, "serve"); err == nil || !strings.Contains(err.Error(), "jwt_secret") {
		t.Fatalf("serve: %v", err)
	}
}
