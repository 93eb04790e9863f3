package tables

import (
	"context"
	"encoding/json"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/google/uuid"

	"github.com/Joseda-hg/lazyproject/internal/model"
	"github.com/Joseda-hg/lazyproject/internal/store"
)

func (s *Store) ListProjects(ctx context.Context, ownerID string) ([]model.Project, error) {
	raw, err := query(ctx, s.projects, eq("PartitionKey", ownerID))
	if err != nil {
		return nil, store.Wrap("list", store.KindProject, "", err)
	}
	projects, err := decodeProjects(raw)
	return projects, store.Wrap("list", store.KindProject, "", err)
}

func (s *Store) GetProject(ctx context.Context, id string) (model.Project, error) {
	raw, err := findByRowKey(ctx, s.projects, id)
	if err != nil {
		return model.Project{}, store.Wrap("get", store.KindProject, id, err)
	}
	projects, err := decodeProjects([][]byte{raw})
	if err != nil {
		return model.Project{}, store.Wrap("get", store.KindProject, id, err)
	}
	return projects[0], nil
}

func (s *Store) CreateProject(ctx context.Context, project model.Project) (model.Project, error) {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	err := add(ctx, s.projects, projectToEntity(project))
	if err != nil {
		return model.Project{}, store.Wrap("create", store.KindProject, project.ID, err)
	}
	return project, nil
}

func (s *Store) UpdateProject(ctx context.Context, project model.Project) (model.Project, error) {
	if err := replace(ctx, s.projects, projectToEntity(project)); err != nil {
		return model.Project{}, store.Wrap("update", store.KindProject, project.ID, err)
	}
	return project, nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	return store.Wrap("delete", store.KindProject, id, deleteByRowKey(ctx, s.projects, id))
}

// ListTasks returns the owner's tasks whose project still exists. Tasks of a
// deleted project stay in the partition but are not listed.
func (s *Store) ListTasks(ctx context.Context, ownerID string) ([]model.Task, error) {
	projects, err := s.ListProjects(ctx, ownerID)
	if err != nil {
		return nil, store.Wrap("list", store.KindTask, "", err)
	}
	if len(projects) == 0 {
		return []model.Task{}, nil
	}
	raw, err := query(ctx, s.tasks, eq("PartitionKey", ownerID))
	if err != nil {
		return nil, store.Wrap("list", store.KindTask, "", err)
	}
	tasks, err := decodeTasks(raw)
	if err != nil {
		return nil, store.Wrap("list", store.KindTask, "", err)
	}

	existing := make(map[string]bool, len(projects))
	for _, project := range projects {
		existing[project.ID] = true
	}
	kept := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if existing[task.ProjectID] {
			kept = append(kept, task)
		}
	}
	return kept, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (model.Task, error) {
	raw, err := findByRowKey(ctx, s.tasks, id)
	if err != nil {
		return model.Task{}, store.Wrap("get", store.KindTask, id, err)
	}
	tasks, err := decodeTasks([][]byte{raw})
	if err != nil {
		return model.Task{}, store.Wrap("get", store.KindTask, id, err)
	}
	return tasks[0], nil
}

// CreateTask partitions the task under the owner of its project.
func (s *Store) CreateTask(ctx context.Context, task model.Task) (model.Task, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	project, err := s.GetProject(ctx, task.ProjectID)
	if err != nil {
		return model.Task{}, store.Wrap("create", store.KindTask, task.ID, err)
	}
	if err := add(ctx, s.tasks, taskToEntity(project.OwnerID, task)); err != nil {
		return model.Task{}, store.Wrap("create", store.KindTask, task.ID, err)
	}
	return task, nil
}

func (s *Store) UpdateTask(ctx context.Context, task model.Task) (model.Task, error) {
	raw, err := findByRowKey(ctx, s.tasks, task.ID)
	if err != nil {
		return model.Task{}, store.Wrap("update", store.KindTask, task.ID, err)
	}
	var existing taskEntity
	if err := json.Unmarshal(raw, &existing); err != nil {
		return model.Task{}, store.Wrap("update", store.KindTask, task.ID, err)
	}

	ownerID := existing.PartitionKey
	if task.ProjectID != existing.ProjectID {
		project, err := s.GetProject(ctx, task.ProjectID)
		if err != nil {
			return model.Task{}, store.Wrap("update", store.KindTask, task.ID, err)
		}
		ownerID = project.OwnerID
	}

	if ownerID == existing.PartitionKey {
		err = replace(ctx, s.tasks, taskToEntity(ownerID, task))
	} else {
		err = add(ctx, s.tasks, taskToEntity(ownerID, task))
		if err == nil {
			_, err = s.tasks.DeleteEntity(ctx, existing.PartitionKey, existing.RowKey, nil)
		}
	}
	if err != nil {
		return model.Task{}, store.Wrap("update", store.KindTask, task.ID, translate(err))
	}
	return task, nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return store.Wrap("delete", store.KindTask, id, deleteByRowKey(ctx, s.tasks, id))
}

func (s *Store) ListLabels(ctx context.Context, ownerID string) ([]model.Label, error) {
	raw, err := query(ctx, s.labels, eq("PartitionKey", ownerID))
	if err != nil {
		return nil, store.Wrap("list", store.KindLabel, "", err)
	}
	labels, err := decodeLabels(raw)
	return labels, store.Wrap("list", store.KindLabel, "", err)
}

func (s *Store) GetLabels(ctx context.Context, ids []string) ([]model.Label, error) {
	raw, err := queryAny(ctx, s.labels, "RowKey", ids)
	if err != nil {
		return nil, store.Wrap("get", store.KindLabel, "", err)
	}
	labels, err := decodeLabels(raw)
	return labels, store.Wrap("get", store.KindLabel, "", err)
}

func (s *Store) CreateLabel(ctx context.Context, label model.Label) (model.Label, error) {
	if label.ID == "" {
		label.ID = uuid.NewString()
	}
	if err := add(ctx, s.labels, labelToEntity(label)); err != nil {
		return model.Label{}, store.Wrap("create", store.KindLabel, label.ID, err)
	}
	return label, nil
}

func (s *Store) UpdateLabel(ctx context.Context, label model.Label) (model.Label, error) {
	if err := replace(ctx, s.labels, labelToEntity(label)); err != nil {
		return model.Label{}, store.Wrap("update", store.KindLabel, label.ID, err)
	}
	return label, nil
}

func (s *Store) DeleteLabel(ctx context.Context, id string) error {
	return store.Wrap("delete", store.KindLabel, id, deleteByRowKey(ctx, s.labels, id))
}

func (s *Store) ListTaskLabels(ctx context.Context, taskIDs []string) ([]model.TaskLabel, error) {
	raw, err := queryAny(ctx, s.taskLabels, "PartitionKey", taskIDs)
	if err != nil {
		return nil, store.Wrap("list", store.KindTaskLabel, "", err)
	}
	pairs, err := decodeTaskLabels(raw)
	return pairs, store.Wrap("list", store.KindTaskLabel, "", err)
}

func (s *Store) AddTaskLabel(ctx context.Context, taskID, labelID string) (model.TaskLabel, error) {
	payload, err := json.Marshal(taskLabelEntity{entity{PartitionKey: taskID, RowKey: labelID}})
	if err == nil {
		_, err = s.taskLabels.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	}
	if err != nil {
		return model.TaskLabel{}, store.Wrap("create", store.KindTaskLabel, taskID+"/"+labelID, err)
	}
	return model.TaskLabel{TaskID: taskID, LabelID: labelID}, nil
}

func (s *Store) RemoveTaskLabel(ctx context.Context, taskID, labelID string) error {
	_, err := s.taskLabels.DeleteEntity(ctx, taskID, labelID, nil)
	if err != nil && !isNotFound(err) {
		return store.Wrap("delete", store.KindTaskLabel, taskID+"/"+labelID, err)
	}
	return nil
}

func add(ctx context.Context, client tableClient, ent any) error {
	payload, err := json.Marshal(ent)
	if err == nil {
		_, err = client.AddEntity(ctx, payload, nil)
	}
	return err
}

// replace overwrites an existing entity; a missing entity is ErrNotFound.
func replace(ctx context.Context, client tableClient, ent any) error {
	payload, err := json.Marshal(ent)
	if err == nil {
		etag := azcore.ETagAny
		_, err = client.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &etag, UpdateMode: aztables.UpdateModeReplace})
	}
	return translate(err)
}

func deleteByRowKey(ctx context.Context, client tableClient, rowKey string) error {
	raw, err := findByRowKey(ctx, client, rowKey)
	if err != nil {
		return err
	}
	var ent entity
	if err := json.Unmarshal(raw, &ent); err != nil {
		return err
	}
	_, err = client.DeleteEntity(ctx, ent.PartitionKey, ent.RowKey, nil)
	return translate(err)
}
