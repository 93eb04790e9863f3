package tables

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"github.com/Joseda-hg/lazyproject/internal/model"
	"github.com/Joseda-hg/lazyproject/internal/store"
)

type fakeTable struct {
	mu      sync.Mutex
	created bool
	order   []string
	rows    map[string][]byte
	filters []string
}

func newFakeTable() *fakeTable {
	return &fakeTable{rows: map[string][]byte{}}
}

func rowID(pk, rk string) string {
	return pk + "\x00" + rk
}

func keysOf(data []byte) (string, string) {
	var ent entity
	_ = json.Unmarshal(data, &ent)
	return ent.PartitionKey, ent.RowKey
}

func (f *fakeTable) NewListEntitiesPager(options *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse] {
	filter := ""
	if options != nil && options.Filter != nil {
		filter = *options.Filter
	}
	f.mu.Lock()
	f.filters = append(f.filters, filter)
	matches := [][]byte{}
	for _, id := range f.order {
		data, ok := f.rows[id]
		if ok && matchFilter(filter, data) {
			matches = append(matches, data)
		}
	}
	f.mu.Unlock()

	done := false
	return runtime.NewPager(runtime.PagingHandler[aztables.ListEntitiesResponse]{
		More: func(aztables.ListEntitiesResponse) bool {
			return !done
		},
		Fetcher: func(context.Context, *aztables.ListEntitiesResponse) (aztables.ListEntitiesResponse, error) {
			done = true
			return aztables.ListEntitiesResponse{Entities: matches}, nil
		},
	})
}

func (f *fakeTable) GetEntity(_ context.Context, pk, rk string, _ *aztables.GetEntityOptions) (aztables.GetEntityResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.rows[rowID(pk, rk)]
	if !ok {
		return aztables.GetEntityResponse{}, &azcore.ResponseError{StatusCode: http.StatusNotFound}
	}
	return aztables.GetEntityResponse{Value: data}, nil
}

func (f *fakeTable) AddEntity(_ context.Context, data []byte, _ *aztables.AddEntityOptions) (aztables.AddEntityResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := rowID(keysOf(data))
	if _, ok := f.rows[id]; ok {
		return aztables.AddEntityResponse{}, &azcore.ResponseError{StatusCode: http.StatusConflict}
	}
	f.put(id, data)
	return aztables.AddEntityResponse{}, nil
}

func (f *fakeTable) UpdateEntity(_ context.Context, data []byte, _ *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := rowID(keysOf(data))
	if _, ok := f.rows[id]; !ok {
		return aztables.UpdateEntityResponse{}, &azcore.ResponseError{StatusCode: http.StatusNotFound}
	}
	f.rows[id] = data
	return aztables.UpdateEntityResponse{}, nil
}

func (f *fakeTable) UpsertEntity(_ context.Context, data []byte, _ *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put(rowID(keysOf(data)), data)
	return aztables.UpsertEntityResponse{}, nil
}

func (f *fakeTable) DeleteEntity(_ context.Context, pk, rk string, _ *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := rowID(pk, rk)
	if _, ok := f.rows[id]; !ok {
		return aztables.DeleteEntityResponse{}, &azcore.ResponseError{StatusCode: http.StatusNotFound}
	}
	delete(f.rows, id)
	return aztables.DeleteEntityResponse{}, nil
}

func (f *fakeTable) CreateTable(context.Context, *aztables.CreateTableOptions) (aztables.CreateTableResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.created {
		return aztables.CreateTableResponse{}, &azcore.ResponseError{StatusCode: http.StatusConflict, ErrorCode: string(aztables.TableAlreadyExists)}
	}
	f.created = true
	return aztables.CreateTableResponse{}, nil
}

func (f *fakeTable) put(id string, data []byte) {
	if _, ok := f.rows[id]; !ok {
		f.order = append(f.order, id)
	}
	f.rows[id] = data
}

// matchFilter understands the equality and or-of-equality filters the store
// emits.
func matchFilter(filter string, data []byte) bool {
	if filter == "" {
		return true
	}
	pk, rk := keysOf(data)
	for _, clause := range strings.Split(filter, " or ") {
		clause = strings.TrimSuffix(strings.TrimPrefix(clause, "("), ")")
		field, literal, ok := strings.Cut(clause, " eq ")
		if !ok {
			continue
		}
		value := strings.ReplaceAll(strings.Trim(literal, "'"), "''", "'")
		switch field {
		case "PartitionKey":
			if pk == value {
				return true
			}
		case "RowKey":
			if rk == value {
				return true
			}
		}
	}
	return false
}

type fakeTables struct {
	projects, tasks, labels, taskLabels *fakeTable
}

func newTestStore() (*Store, fakeTables) {
	tables := fakeTables{
		projects:   newFakeTable(),
		tasks:      newFakeTable(),
		labels:     newFakeTable(),
		taskLabels: newFakeTable(),
	}
	return newStore(tables.projects, tables.tasks, tables.labels, tables.taskLabels), tables
}

func TestEnsureTablesIgnoresExisting(t *testing.T) {
	st, _ := newTestStore()
	ctx := context.Background()
	if err := st.EnsureTables(ctx); err != nil {
		t.Fatalf("ensure tables: %v", err)
	}
	if err := st.EnsureTables(ctx); err != nil {
		t.Fatalf("ensure tables twice: %v", err)
	}
}

func TestProjectsPartitionedByOwner(t *testing.T) {
	st, tables := newTestStore()
	ctx := context.Background()

	home, err := st.CreateProject(ctx, model.Project{Name: "Home", OwnerID: "u1"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	garden, _ := st.CreateProject(ctx, model.Project{Name: "Garden", OwnerID: "u1", ParentID: home.ID})
	if _, err := st.CreateProject(ctx, model.Project{Name: "Other", OwnerID: "u2"}); err != nil {
		t.Fatalf("create other: %v", err)
	}

	projects, err := st.ListProjects(ctx, "u1")
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if len(projects) != 2 || projects[1].ParentID != home.ID || projects[1].OwnerID != "u1" {
		t.Fatalf("unexpected projects: %+v", projects)
	}
	last := tables.projects.filters[len(tables.projects.filters)-1]
	if last != "PartitionKey eq 'u1'" {
		t.Fatalf("unexpected filter %q", last)
	}

	garden.ParentID = ""
	if _, err := st.UpdateProject(ctx, garden); err != nil {
		t.Fatalf("update project: %v", err)
	}
	reloaded, err := st.GetProject(ctx, garden.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if reloaded.ParentID != "" {
		t.Fatalf("expected parent cleared, got %+v", reloaded)
	}

	if err := st.DeleteProject(ctx, garden.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	if _, err := st.GetProject(ctx, garden.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := st.UpdateProject(ctx, garden); !store.IsNotFound(err) {
		t.Fatalf("expected not found on update of deleted project, got %v", err)
	}
}

func TestTasksFollowProjectOwner(t *testing.T) {
	st, tables := newTestStore()
	ctx := context.Background()

	mine, _ := st.CreateProject(ctx, model.Project{Name: "Mine", OwnerID: "u1"})
	theirs, _ := st.CreateProject(ctx, model.Project{Name: "Theirs", OwnerID: "u2"})

	due := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	task, err := st.CreateTask(ctx, model.Task{Title: "Plan", DueDate: &due, ProjectID: mine.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := st.CreateTask(ctx, model.Task{Title: "Orphan", ProjectID: "missing"}); !store.IsNotFound(err) {
		t.Fatalf("expected not found for missing project, got %v", err)
	}

	var raw map[string]any
	for _, data := range tables.tasks.rows {
		_ = json.Unmarshal(data, &raw)
	}
	if raw["DueDate@odata.type"] != "Edm.DateTime" || raw["PartitionKey"] != "u1" {
		t.Fatalf("unexpected task entity: %v", raw)
	}

	tasks, err := st.ListTasks(ctx, "u1")
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].DueDate == nil || !tasks[0].DueDate.Equal(due) {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}

	task.ProjectID = theirs.ID
	task.IsCompleted = true
	if _, err := st.UpdateTask(ctx, task); err != nil {
		t.Fatalf("move task: %v", err)
	}
	if tasks, _ := st.ListTasks(ctx, "u1"); len(tasks) != 0 {
		t.Fatalf("expected task to leave u1 partition, got %+v", tasks)
	}
	moved, err := st.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if moved.ProjectID != theirs.ID || !moved.IsCompleted {
		t.Fatalf("unexpected moved task: %+v", moved)
	}

	if err := st.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if err := st.DeleteTask(ctx, task.ID); !store.IsNotFound(err) {
		t.Fatalf("expected not found deleting twice, got %v", err)
	}
}

func TestListTasksSkipsDeletedProjects(t *testing.T) {
	st, _ := newTestStore()
	ctx := context.Background()

	kept, _ := st.CreateProject(ctx, model.Project{Name: "Kept", OwnerID: "u1"})
	gone, _ := st.CreateProject(ctx, model.Project{Name: "Gone", OwnerID: "u1"})
	if _, err := st.CreateTask(ctx, model.Task{Title: "Stays", ProjectID: kept.ID}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	orphan, err := st.CreateTask(ctx, model.Task{Title: "Orphaned", ProjectID: gone.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if err := st.DeleteProject(ctx, gone.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	tasks, err := st.ListTasks(ctx, "u1")
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Stays" {
		t.Fatalf("expected only the task of the remaining project, got %+v", tasks)
	}
	if _, err := st.GetTask(ctx, orphan.ID); err != nil {
		t.Fatalf("expected orphaned task to stay readable by id, got %v", err)
	}

	if err := st.DeleteProject(ctx, kept.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	if tasks, _ := st.ListTasks(ctx, "u1"); len(tasks) != 0 {
		t.Fatalf("expected no tasks without projects, got %+v", tasks)
	}
}

func TestLabelsAndAssociationsChunkFilters(t *testing.T) {
	st, tables := newTestStore()
	ctx := context.Background()

	ids := []string{}
	for i := 0; i < 12; i++ {
		label, err := st.CreateLabel(ctx, model.Label{Name: "L", Color: "#000000", OwnerID: "u1"})
		if err != nil {
			t.Fatalf("create label: %v", err)
		}
		ids = append(ids, label.ID)
	}

	before := len(tables.labels.filters)
	labels, err := st.GetLabels(ctx, append(ids, "missing"))
	if err != nil {
		t.Fatalf("get labels: %v", err)
	}
	if len(labels) != 12 {
		t.Fatalf("expected 12 labels, got %d", len(labels))
	}
	if queries := len(tables.labels.filters) - before; queries != 2 {
		t.Fatalf("expected 2 chunked queries, got %d", queries)
	}

	if _, err := st.AddTaskLabel(ctx, "t1", ids[0]); err != nil {
		t.Fatalf("add association: %v", err)
	}
	if _, err := st.AddTaskLabel(ctx, "t1", ids[0]); err != nil {
		t.Fatalf("add duplicate association: %v", err)
	}
	if _, err := st.AddTaskLabel(ctx, "t'2", ids[1]); err != nil {
		t.Fatalf("add association: %v", err)
	}

	pairs, err := st.ListTaskLabels(ctx, []string{"t1", "t'2"})
	if err != nil {
		t.Fatalf("list associations: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %+v", pairs)
	}
	last := tables.taskLabels.filters[len(tables.taskLabels.filters)-1]
	if last != "(PartitionKey eq 't1') or (PartitionKey eq 't''2')" {
		t.Fatalf("unexpected filter %q", last)
	}

	if err := st.RemoveTaskLabel(ctx, "t1", ids[0]); err != nil {
		t.Fatalf("remove association: %v", err)
	}
	if err := st.RemoveTaskLabel(ctx, "t1", ids[0]); err != nil {
		t.Fatalf("remove missing association: %v", err)
	}
	if pairs, _ := st.ListTaskLabels(ctx, nil); len(pairs) != 0 {
		t.Fatalf("expected no pairs for empty ids, got %+v", pairs)
	}
}
