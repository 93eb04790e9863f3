package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Joseda-hg/lazyproject/internal/db"
	"github.com/Joseda-hg/lazyproject/internal/model"
	"github.com/Joseda-hg/lazyproject/internal/store"
)

type countingStore struct {
	store.Store
	projectLists int
	taskLists    int
	labelLists   int
	listErr      error
}

func (s *countingStore) ListProjects(ctx context.Context, ownerID string) ([]model.Project, error) {
	s.projectLists++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.Store.ListProjects(ctx, ownerID)
}

func (s *countingStore) ListTasks(ctx context.Context, ownerID string) ([]model.Task, error) {
	s.taskLists++
	return s.Store.ListTasks(ctx, ownerID)
}

func (s *countingStore) ListLabels(ctx context.Context, ownerID string) ([]model.Label, error) {
	s.labelLists++
	return s.Store.ListLabels(ctx, ownerID)
}

func newTestCache(t *testing.T, ttl time.Duration) (*Store, *countingStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	conn, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	base := &countingStore{Store: db.NewStore(conn)}
	return New(base, client, ttl), base, mr
}

func TestListProjectsMissThenHit(t *testing.T) {
	cache, base, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	if _, err := base.Store.CreateProject(ctx, model.Project{Name: "Home", OwnerID: "u1"}); err != nil {
		t.Fatalf("seed project: %v", err)
	}

	for i := 0; i < 2; i++ {
		projects, err := cache.ListProjects(ctx, "u1")
		if err != nil {
			t.Fatalf("list projects: %v", err)
		}
		if len(projects) != 1 || projects[0].Name != "Home" {
			t.Fatalf("unexpected projects: %+v", projects)
		}
	}
	if base.projectLists != 1 {
		t.Fatalf("expected 1 backend call, got %d", base.projectLists)
	}
	if ttl := mr.TTL(projectsKey("u1")); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}
}

func TestWritesEvictOwnerLists(t *testing.T) {
	cache, base, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	project, err := cache.CreateProject(ctx, model.Project{Name: "Home", OwnerID: "u1"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if _, err := cache.ListTasks(ctx, "u1"); err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if !mr.Exists(tasksKey("u1")) {
		t.Fatalf("expected task list to be cached")
	}

	task, err := cache.CreateTask(ctx, model.Task{Title: "Water plants", ProjectID: project.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if mr.Exists(tasksKey("u1")) {
		t.Fatalf("expected task list to be evicted after create")
	}

	tasks, err := cache.ListTasks(ctx, "u1")
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != task.ID {
		t.Fatalf("expected fresh task list, got %+v", tasks)
	}

	if err := cache.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	tasks, _ = cache.ListTasks(ctx, "u1")
	if len(tasks) != 0 {
		t.Fatalf("expected empty task list after delete, got %+v", tasks)
	}
	if base.taskLists != 3 {
		t.Fatalf("expected 3 backend task lists, got %d", base.taskLists)
	}

	if _, err := cache.ListLabels(ctx, "u1"); err != nil {
		t.Fatalf("list labels: %v", err)
	}
	label, _ := cache.CreateLabel(ctx, model.Label{Name: "Work", Color: "#ff0000", OwnerID: "u1"})
	if err := cache.DeleteLabel(ctx, label.ID); err != nil {
		t.Fatalf("delete label: %v", err)
	}
	if mr.Exists(labelsKey("u1")) {
		t.Fatalf("expected labels to be evicted")
	}
}

func TestBackendErrorsAreNotCached(t *testing.T) {
	cache, base, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	base.listErr = errors.New("boom")

	if _, err := cache.ListProjects(ctx, "u1"); err == nil {
		t.Fatalf("expected error")
	}
	if mr.Exists(projectsKey("u1")) {
		t.Fatalf("expected nothing cached after error")
	}
}

func TestCorruptEntryFallsBack(t *testing.T) {
	cache, base, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	if err := mr.Set(projectsKey("u1"), "not json"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}
	projects, err := cache.ListProjects(ctx, "u1")
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if len(projects) != 0 || base.projectLists != 1 {
		t.Fatalf("expected backend fallback, got %+v (%d calls)", projects, base.projectLists)
	}
}

func TestZeroTTLDisablesStores(t *testing.T) {
	cache, base, mr := newTestCache(t, 0)
	ctx := context.Background()

	_, _ = cache.ListProjects(ctx, "u1")
	_, _ = cache.ListProjects(ctx, "u1")
	if base.projectLists != 2 || mr.Exists(projectsKey("u1")) {
		t.Fatalf("expected no caching with zero TTL, got %d calls", base.projectLists)
	}
}
