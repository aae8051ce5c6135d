package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"workflow/internal/models"
	"workflow/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "workflow.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open("", nil); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestGetMissingCollection(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Get(context.Background(), storage.CollectionTasks); !errors.Is(err, storage.ErrNotStored) {
		t.Fatalf("got %v, want ErrNotStored", err)
	}
}

func TestSetOverwritesCollection(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if err := store.Set(ctx, "tasks", []byte(`[1]`)); err != nil {
		t.Fatalf("first Set: %v", err)
	}
	if err := store.Set(ctx, "tasks", []byte(`[1,2]`)); err != nil {
		t.Fatalf("second Set: %v", err)
	}
	got, err := store.Get(ctx, "tasks")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `[1,2]` {
		t.Fatalf("payload = %s", got)
	}
}

func TestTableMutateIsAtomicOnError(t *testing.T) {
	ctx := context.Background()
	catalog := storage.NewCatalog(openTestStore(t))

	if err := catalog.Projects.Replace(ctx, []models.Project{{ID: "p1", Name: "Website"}}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	boom := errors.New("boom")
	err := catalog.Projects.Mutate(ctx, func(items []models.Project) ([]models.Project, error) {
		return append(items, models.Project{ID: "p2"}), boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Mutate error = %v", err)
	}
	projects, err := catalog.Projects.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(projects) != 1 || projects[0].ID != "p1" {
		t.Fatalf("projects = %+v", projects)
	}
}

func TestTableStored(t *testing.T) {
	ctx := context.Background()
	catalog := storage.NewCatalog(openTestStore(t))

	stored, err := catalog.Users.Stored(ctx)
	if err != nil || stored {
		t.Fatalf("Stored before write = %v, %v", stored, err)
	}
	if err := catalog.Users.Replace(ctx, nil); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	stored, err = catalog.Users.Stored(ctx)
	if err != nil || !stored {
		t.Fatalf("Stored after write = %v, %v", stored, err)
	}
	users, err := catalog.Users.Load(ctx)
	if err != nil || len(users) != 0 {
		t.Fatalf("Load = %v, %v", users, err)
	}
}
