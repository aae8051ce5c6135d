// Package storage persists the workflow collections. A Backend only knows how
// to read and overwrite a named collection as a whole; Table adds typed
// decoding and serializes read-modify-write cycles per collection.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"workflow/internal/models"
)

// Collection names shared by every backend.
const (
	CollectionUsers       = "users"
	CollectionTasks       = "tasks"
	CollectionProjects    = "projects"
	CollectionReports     = "reports"
	CollectionSession     = "current-session"
	CollectionEmailConfig = "email-config"
)

// ErrNotStored is returned by Backend.Get when the collection was never written.
var ErrNotStored = errors.New("collection not stored")

// Backend reads and rewrites whole collections.
type Backend interface {
	Get(ctx context.Context, collection string) ([]byte, error)
	Set(ctx context.Context, collection string, payload []byte) error
	Close() error
}

// Table is a typed view over one collection.
type Table[T any] struct {
	backend Backend
	name    string
	mu      sync.Mutex
}

// NewTable binds a table to a collection. Every writer of a collection must
// share the same Table so that Mutate calls are serialized.
func NewTable[T any](backend Backend, name string) *Table[T] {
	return &Table[T]{backend: backend, name: name}
}

// Name returns the collection name.
func (t *Table[T]) Name() string {
	return t.name
}

// Load decodes the whole collection. A collection that was never stored is empty.
func (t *Table[T]) Load(ctx context.Context) ([]T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.load(ctx)
}

// Stored reports whether the collection has been written at least once.
func (t *Table[T]) Stored(ctx context.Context) (bool, error) {
	_, err := t.backend.Get(ctx, t.name)
	if errors.Is(err, ErrNotStored) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", t.name, err)
	}
	return true, nil
}

// Mutate loads the collection, applies fn and rewrites the result. When fn
// returns an error nothing is written.
func (t *Table[T]) Mutate(ctx context.Context, fn func(items []T) ([]T, error)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	items, err := t.load(ctx)
	if err != nil {
		return err
	}
	next, err := fn(items)
	if err != nil {
		return err
	}
	return t.save(ctx, next)
}

// Replace overwrites the collection.
func (t *Table[T]) Replace(ctx context.Context, items []T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.save(ctx, items)
}

func (t *Table[T]) load(ctx context.Context) ([]T, error) {
	raw, err := t.backend.Get(ctx, t.name)
	if errors.Is(err, ErrNotStored) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t.name, err)
	}
	items := []T{}
	if len(raw) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t.name, err)
	}
	return items, nil
}

func (t *Table[T]) save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", t.name, err)
	}
	if err := t.backend.Set(ctx, t.name, raw); err != nil {
		return fmt.Errorf("write %s: %w", t.name, err)
	}
	return nil
}

// LoadValue decodes a single-record collection into v. It returns false when
// nothing was stored.
func LoadValue(ctx context.Context, backend Backend, collection string, v any) (bool, error) {
	raw, err := backend.Get(ctx, collection)
	if errors.Is(err, ErrNotStored) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", collection, err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", collection, err)
	}
	return true, nil
}

// SaveValue rewrites a single-record collection. A nil v clears it.
func SaveValue(ctx context.Context, backend Backend, collection string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}
	if err := backend.Set(ctx, collection, raw); err != nil {
		return fmt.Errorf("write %s: %w", collection, err)
	}
	return nil
}

// Catalog holds the shared tables of every list collection.
type Catalog struct {
	Backend  Backend
	Users    *Table[models.User]
	Tasks    *Table[models.Task]
	Projects *Table[models.Project]
	Reports  *Table[models.Report]
}

// NewCatalog creates one table per list collection on top of backend.
func NewCatalog(backend Backend) *Catalog {
	return &Catalog{
		Backend:  backend,
		Users:    NewTable[models.User](backend, CollectionUsers),
		Tasks:    NewTable[models.Task](backend, CollectionTasks),
		Projects: NewTable[models.Project](backend, CollectionProjects),
		Reports:  NewTable[models.Report](backend, CollectionReports),
	}
}
