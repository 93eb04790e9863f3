package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Joseda-hg/lazyproject/internal/model"
	"github.com/Joseda-hg/lazyproject/internal/store"
)

func TestProjectsRoundTripAndOwnerScope(t *testing.T) {
	st, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	parent, err := st.CreateProject(ctx, model.Project{Name: "Home", OwnerID: "u1"})
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	if parent.ID == "" {
		t.Fatalf("expected project ID to be generated")
	}
	child, err := st.CreateProject(ctx, model.Project{Name: "Garden", OwnerID: "u1", ParentID: parent.ID})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	if _, err := st.CreateProject(ctx, model.Project{Name: "Other", OwnerID: "u2"}); err != nil {
		t.Fatalf("create other: %v", err)
	}

	projects, err := st.ListProjects(ctx, "u1")
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects for u1, got %d", len(projects))
	}
	if projects[0].ID != parent.ID || projects[1].ParentID != parent.ID {
		t.Fatalf("unexpected projects: %+v", projects)
	}

	child.ParentID = ""
	child.Name = "Yard"
	if _, err := st.UpdateProject(ctx, child); err != nil {
		t.Fatalf("update child: %v", err)
	}
	reloaded, err := st.GetProject(ctx, child.ID)
	if err != nil {
		t.Fatalf("get child: %v", err)
	}
	if reloaded.ParentID != "" || reloaded.Name != "Yard" {
		t.Fatalf("expected cleared parent and new name, got %+v", reloaded)
	}

	if err := st.DeleteProject(ctx, child.ID); err != nil {
		t.Fatalf("delete child: %v", err)
	}
	if _, err := st.GetProject(ctx, child.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestTasksScopedByOwnerProjects(t *testing.T) {
	st, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	mine, _ := st.CreateProject(ctx, model.Project{Name: "Mine", OwnerID: "u1"})
	theirs, _ := st.CreateProject(ctx, model.Project{Name: "Theirs", OwnerID: "u2"})

	due := time.Date(2026, 10, 19, 9, 30, 0, 0, time.FixedZone("JST", 9*60*60))
	created, err := st.CreateTask(ctx, model.Task{Title: "Write tests", Memo: "cover store", DueDate: &due, ProjectID: mine.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := st.CreateTask(ctx, model.Task{Title: "Not mine", ProjectID: theirs.ID}); err != nil {
		t.Fatalf("create other task: %v", err)
	}

	tasks, err := st.ListTasks(ctx, "u1")
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != created.ID {
		t.Fatalf("expected only u1's task, got %+v", tasks)
	}
	if tasks[0].DueDate == nil || !tasks[0].DueDate.Equal(due) {
		t.Fatalf("expected due date %v, got %v", due, tasks[0].DueDate)
	}

	created.IsCompleted = true
	created.DueDate = nil
	if _, err := st.UpdateTask(ctx, created); err != nil {
		t.Fatalf("update task: %v", err)
	}
	reloaded, err := st.GetTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if !reloaded.IsCompleted || reloaded.DueDate != nil {
		t.Fatalf("unexpected task after update: %+v", reloaded)
	}

	if _, err := st.UpdateTask(ctx, model.Task{ID: "missing", Title: "x"}); !store.IsNotFound(err) {
		t.Fatalf("expected not found updating missing task, got %v", err)
	}
}

func TestLabelsAndAssociations(t *testing.T) {
	st, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	work, err := st.CreateLabel(ctx, model.Label{Name: "Work", Color: "#ff0000", OwnerID: "u1"})
	if err != nil {
		t.Fatalf("create label: %v", err)
	}
	home, _ := st.CreateLabel(ctx, model.Label{Name: "Home", Color: "#00ff00", OwnerID: "u1"})

	labels, err := st.GetLabels(ctx, []string{home.ID, work.ID, "missing"})
	if err != nil {
		t.Fatalf("get labels: %v", err)
	}
	if len(labels) != 2 {
		t.Fatalf("expected 2 labels, got %d", len(labels))
	}

	if _, err := st.AddTaskLabel(ctx, "t1", work.ID); err != nil {
		t.Fatalf("add association: %v", err)
	}
	if _, err := st.AddTaskLabel(ctx, "t1", work.ID); err != nil {
		t.Fatalf("add duplicate association: %v", err)
	}
	if _, err := st.AddTaskLabel(ctx, "t1", home.ID); err != nil {
		t.Fatalf("add association: %v", err)
	}
	if _, err := st.AddTaskLabel(ctx, "t2", home.ID); err != nil {
		t.Fatalf("add association: %v", err)
	}

	pairs, err := st.ListTaskLabels(ctx, []string{"t1"})
	if err != nil {
		t.Fatalf("list associations: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs for t1, got %d", len(pairs))
	}

	if err := st.RemoveTaskLabel(ctx, "t1", work.ID); err != nil {
		t.Fatalf("remove association: %v", err)
	}
	pairs, _ = st.ListTaskLabels(ctx, []string{"t1", "t2"})
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs after removal, got %d", len(pairs))
	}

	empty, err := st.ListTaskLabels(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty association list, got %v (%v)", empty, err)
	}
}

func newTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return NewStore(db), func() {
		_ = db.Close()
	}
}
