package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Joseda-hg/lazyproject/internal/model"
	"github.com/Joseda-hg/lazyproject/internal/store"
)

type Store struct {
	DB *sql.DB
}

var _ store.Store = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) ListProjects(ctx context.Context, ownerID string) ([]model.Project, error) {
	rows, err := s.DB.QueryContext(ctx, "SELECT id, name, owner_id, parent_id FROM projects WHERE owner_id = ? ORDER BY rowid", ownerID)
	if err != nil {
		return nil, store.Wrap("list", store.KindProject, "", err)
	}
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, store.Wrap("list", store.KindProject, "", err)
		}
		projects = append(projects, project)
	}
	return projects, store.Wrap("list", store.KindProject, "", rows.Err())
}

func (s *Store) GetProject(ctx context.Context, id string) (model.Project, error) {
	row := s.DB.QueryRowContext(ctx, "SELECT id, name, owner_id, parent_id FROM projects WHERE id = ?", id)
	project, err := scanProject(row)
	if err != nil {
		return model.Project{}, store.Wrap("get", store.KindProject, id, notFound(err))
	}
	return project, nil
}

func (s *Store) CreateProject(ctx context.Context, project model.Project) (model.Project, error) {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	_, err := s.DB.ExecContext(ctx,
		"INSERT INTO projects (id, name, owner_id, parent_id) VALUES (?, ?, ?, ?)",
		project.ID, project.Name, project.OwnerID, nullString(project.ParentID))
	if err != nil {
		return model.Project{}, store.Wrap("create", store.KindProject, project.ID, err)
	}
	return project, nil
}

func (s *Store) UpdateProject(ctx context.Context, project model.Project) (model.Project, error) {
	result, err := s.DB.ExecContext(ctx,
		"UPDATE projects SET name = ?, owner_id = ?, parent_id = ? WHERE id = ?",
		project.Name, project.OwnerID, nullString(project.ParentID), project.ID)
	if err := affectedOne(result, err); err != nil {
		return model.Project{}, store.Wrap("update", store.KindProject, project.ID, err)
	}
	return project, nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	result, err := s.DB.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return store.Wrap("delete", store.KindProject, id, affectedOne(result, err))
}

func (s *Store) ListTasks(ctx context.Context, ownerID string) ([]model.Task, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT t.id, t.title, t.memo, t.due_date, t.is_completed, t.project_id
FROM tasks t
JOIN projects p ON p.id = t.project_id
WHERE p.owner_id = ?
ORDER BY t.rowid`, ownerID)
	if err != nil {
		return nil, store.Wrap("list", store.KindTask, "", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, store.Wrap("list", store.KindTask, "", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, store.Wrap("list", store.KindTask, "", rows.Err())
}

func (s *Store) GetTask(ctx context.Context, id string) (model.Task, error) {
	row := s.DB.QueryRowContext(ctx, "SELECT id, title, memo, due_date, is_completed, project_id FROM tasks WHERE id = ?", id)
	task, err := scanTask(row)
	if err != nil {
		return model.Task{}, store.Wrap("get", store.KindTask, id, notFound(err))
	}
	return task, nil
}

func (s *Store) CreateTask(ctx context.Context, task model.Task) (model.Task, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	_, err := s.DB.ExecContext(ctx,
		"INSERT INTO tasks (id, title, memo, due_date, is_completed, project_id) VALUES (?, ?, ?, ?, ?, ?)",
		task.ID, task.Title, task.Memo, formatDue(task.DueDate), task.IsCompleted, task.ProjectID)
	if err != nil {
		return model.Task{}, store.Wrap("create", store.KindTask, task.ID, err)
	}
	return task, nil
}

func (s *Store) UpdateTask(ctx context.Context, task model.Task) (model.Task, error) {
	result, err := s.DB.ExecContext(ctx,
		"UPDATE tasks SET title = ?, memo = ?, due_date = ?, is_completed = ?, project_id = ? WHERE id = ?",
		task.Title, task.Memo, formatDue(task.DueDate), task.IsCompleted, task.ProjectID, task.ID)
	if err := affectedOne(result, err); err != nil {
		return model.Task{}, store.Wrap("update", store.KindTask, task.ID, err)
	}
	return task, nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	result, err := s.DB.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	return store.Wrap("delete", store.KindTask, id, affectedOne(result, err))
}

func (s *Store) ListLabels(ctx context.Context, ownerID string) ([]model.Label, error) {
	rows, err := s.DB.QueryContext(ctx, "SELECT id, name, color, owner_id FROM labels WHERE owner_id = ? ORDER BY rowid", ownerID)
	if err != nil {
		return nil, store.Wrap("list", store.KindLabel, "", err)
	}
	return collectLabels(rows)
}

func (s *Store) GetLabels(ctx context.Context, ids []string) ([]model.Label, error) {
	if len(ids) == 0 {
		return []model.Label{}, nil
	}
	query := "SELECT id, name, color, owner_id FROM labels WHERE id IN (" + placeholders(len(ids)) + ") ORDER BY rowid"
	rows, err := s.DB.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return nil, store.Wrap("get", store.KindLabel, "", err)
	}
	return collectLabels(rows)
}

func (s *Store) CreateLabel(ctx context.Context, label model.Label) (model.Label, error) {
	if label.ID == "" {
		label.ID = uuid.NewString()
	}
	_, err := s.DB.ExecContext(ctx,
		"INSERT INTO labels (id, name, color, owner_id) VALUES (?, ?, ?, ?)",
		label.ID, label.Name, label.Color, label.OwnerID)
	if err != nil {
		return model.Label{}, store.Wrap("create", store.KindLabel, label.ID, err)
	}
	return label, nil
}

func (s *Store) UpdateLabel(ctx context.Context, label model.Label) (model.Label, error) {
	result, err := s.DB.ExecContext(ctx,
		"UPDATE labels SET name = ?, color = ?, owner_id = ? WHERE id = ?",
		label.Name, label.Color, label.OwnerID, label.ID)
	if err := affectedOne(result, err); err != nil {
		return model.Label{}, store.Wrap("update", store.KindLabel, label.ID, err)
	}
	return label, nil
}

func (s *Store) DeleteLabel(ctx context.Context, id string) error {
	result, err := s.DB.ExecContext(ctx, "DELETE FROM labels WHERE id = ?", id)
	return store.Wrap("delete", store.KindLabel, id, affectedOne(result, err))
}

func (s *Store) ListTaskLabels(ctx context.Context, taskIDs []string) ([]model.TaskLabel, error) {
	if len(taskIDs) == 0 {
		return []model.TaskLabel{}, nil
	}
	query := "SELECT task_id, label_id FROM task_labels WHERE task_id IN (" + placeholders(len(taskIDs)) + ") ORDER BY rowid"
	rows, err := s.DB.QueryContext(ctx, query, stringArgs(taskIDs)...)
	if err != nil {
		return nil, store.Wrap("list", store.KindTaskLabel, "", err)
	}
	defer rows.Close()

	pairs := []model.TaskLabel{}
	for rows.Next() {
		var pair model.TaskLabel
		if err := rows.Scan(&pair.TaskID, &pair.LabelID); err != nil {
			return nil, store.Wrap("list", store.KindTaskLabel, "", err)
		}
		pairs = append(pairs, pair)
	}
	return pairs, store.Wrap("list", store.KindTaskLabel, "", rows.Err())
}

func (s *Store) AddTaskLabel(ctx context.Context, taskID, labelID string) (model.TaskLabel, error) {
	_, err := s.DB.ExecContext(ctx, "INSERT OR IGNORE INTO task_labels (task_id, label_id) VALUES (?, ?)", taskID, labelID)
	if err != nil {
		return model.TaskLabel{}, store.Wrap("create", store.KindTaskLabel, taskID+"/"+labelID, err)
	}
	return model.TaskLabel{TaskID: taskID, LabelID: labelID}, nil
}

func (s *Store) RemoveTaskLabel(ctx context.Context, taskID, labelID string) error {
	_, err := s.DB.ExecContext(ctx, "DELETE FROM task_labels WHERE task_id = ? AND label_id = ?", taskID, labelID)
	return store.Wrap("delete", store.KindTaskLabel, taskID+"/"+labelID, err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (model.Project, error) {
	var project model.Project
	var parentID sql.NullString
	if err := row.Scan(&project.ID, &project.Name, &project.OwnerID, &parentID); err != nil {
		return model.Project{}, err
	}
	project.ParentID = parentID.String
	return project, nil
}

func scanTask(row scanner) (model.Task, error) {
	var task model.Task
	var dueDate sql.NullString
	if err := row.Scan(&task.ID, &task.Title, &task.Memo, &dueDate, &task.IsCompleted, &task.ProjectID); err != nil {
		return model.Task{}, err
	}
	if dueDate.Valid && dueDate.String != "" {
		parsed, err := time.Parse(time.RFC3339Nano, dueDate.String)
		if err != nil {
			return model.Task{}, err
		}
		task.DueDate = &parsed
	}
	return task, nil
}

func collectLabels(rows *sql.Rows) ([]model.Label, error) {
	defer rows.Close()

	labels := []model.Label{}
	for rows.Next() {
		var label model.Label
		if err := rows.Scan(&label.ID, &label.Name, &label.Color, &label.OwnerID); err != nil {
			return nil, store.Wrap("list", store.KindLabel, "", err)
		}
		labels = append(labels, label)
	}
	return labels, store.Wrap("list", store.KindLabel, "", rows.Err())
}

func formatDue(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: value.Format(time.RFC3339Nano), Valid: true}
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func affectedOne(result sql.Result, err error) error {
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(values []string) []any {
	args := make([]any, 0, len(values))
	for _, value := range values {
		args = append(args, value)
	}
	return args
}
