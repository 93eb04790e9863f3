// Package store defines the persistence contract for projects, tasks, labels
// and task-label associations. Calls are independent; nothing spans more
// than one call atomically.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Joseda-hg/lazyproject/internal/model"
)

var ErrNotFound = errors.New("not found")

type ProjectStore interface {
	ListProjects(ctx context.Context, ownerID string) ([]model.Project, error)
	GetProject(ctx context.Context, id string) (model.Project, error)
	CreateProject(ctx context.Context, project model.Project) (model.Project, error)
	UpdateProject(ctx context.Context, project model.Project) (model.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

type TaskStore interface {
	// ListTasks returns the tasks that belong to the owner's projects.
	ListTasks(ctx context.Context, ownerID string) ([]model.Task, error)
	GetTask(ctx context.Context, id string) (model.Task, error)
	CreateTask(ctx context.Context, task model.Task) (model.Task, error)
	UpdateTask(ctx context.Context, task model.Task) (model.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

type LabelStore interface {
	ListLabels(ctx context.Context, ownerID string) ([]model.Label, error)
	GetLabels(ctx context.Context, ids []string) ([]model.Label, error)
	CreateLabel(ctx context.Context, label model.Label) (model.Label, error)
	UpdateLabel(ctx context.Context, label model.Label) (model.Label, error)
	DeleteLabel(ctx context.Context, id string) error
}

type AssociationStore interface {
	ListTaskLabels(ctx context.Context, taskIDs []string) ([]model.TaskLabel, error)
	AddTaskLabel(ctx context.Context, taskID, labelID string) (model.TaskLabel, error)
	RemoveTaskLabel(ctx context.Context, taskID, labelID string) error
}

type Store interface {
	ProjectStore
	TaskStore
	LabelStore
	AssociationStore
}

// Kind names the record type an Error refers to.
type Kind string

const (
	KindProject   Kind = "project"
	KindTask      Kind = "task"
	KindLabel     Kind = "label"
	KindTaskLabel Kind = "task_label"
)

// Error wraps a failure reported by a store implementation.
type Error struct {
	Op   string
	Kind Kind
	ID   string
	Err  error
}

func (e *Error) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s %s: %v", e.Op, e.Kind, e.ID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap returns nil for a nil err and an *Error otherwise.
func Wrap(op string, kind Kind, id string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, ID: id, Err: err}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
