package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Joseda-hg/lazyproject/internal/model"
	"github.com/Joseda-hg/lazyproject/internal/store"
)

type TaskInput struct {
	Title     string     `json:"title"`
	Memo      string     `json:"memo"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	ProjectID string     `json:"projectId"`
}

// TaskPatch changes the fields that are set. ClearDueDate removes the due
// date and wins over DueDate.
type TaskPatch struct {
	Title        *string    `json:"title,omitempty"`
	Memo         *string    `json:"memo,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	ClearDueDate bool       `json:"clearDueDate,omitempty"`
	ProjectID    *string    `json:"projectId,omitempty"`
	IsCompleted  *bool      `json:"isCompleted,omitempty"`
}

type CreateTaskResult struct {
	Task       model.Task           `json:"task"`
	LabelIDs   []string             `json:"labelIds"`
	Failures   []AssociationFailure `json:"failures,omitempty"`
	RolledBack bool                 `json:"rolledBack,omitempty"`
}

// CreateTaskWithLabels writes the task and then one association per label.
// The writes are independent: a failed association leaves the task and the
// other associations in place unless rollback is set, in which case the
// successful writes are undone. Any association failure is reported as a
// *PartialFailureError next to the result.
func (s *Service) CreateTaskWithLabels(ctx context.Context, ownerID string, input TaskInput, labelIDs []string, rollback bool) (CreateTaskResult, error) {
	task, err := s.validTask(ctx, ownerID, model.Task{
		Title:     input.Title,
		Memo:      input.Memo,
		DueDate:   input.DueDate,
		ProjectID: input.ProjectID,
	})
	if err != nil {
		return CreateTaskResult{}, err
	}
	labelIDs = distinct(labelIDs)
	if err := s.checkLabelRefs(ctx, ownerID, labelIDs); err != nil {
		return CreateTaskResult{}, err
	}

	created, err := s.store.CreateTask(ctx, task)
	if err != nil {
		s.log.WithFields(logrus.Fields{"owner": ownerID, "project": task.ProjectID}).WithError(err).Error("create task")
		return CreateTaskResult{}, fmt.Errorf("create task: %w", err)
	}
	log := s.log.WithFields(logrus.Fields{"owner": ownerID, "task": created.ID})

	result := CreateTaskResult{Task: created, LabelIDs: []string{}}
	for _, labelID := range labelIDs {
		if _, err := s.store.AddTaskLabel(ctx, created.ID, labelID); err != nil {
			log.WithField("label", labelID).WithError(err).Warn("add task label")
			result.Failures = append(result.Failures, AssociationFailure{LabelID: labelID, Op: "add", Err: err})
			continue
		}
		result.LabelIDs = append(result.LabelIDs, labelID)
	}
	if len(result.Failures) == 0 {
		return result, nil
	}

	partial := &PartialFailureError{TaskID: created.ID, Failures: result.Failures}
	if rollback {
		partial.RollbackErr = s.compensate(ctx, created.ID, result.LabelIDs)
		if partial.RollbackErr != nil {
			log.WithError(partial.RollbackErr).Error("roll back task")
		} else {
			partial.RolledBack = true
			result.RolledBack = true
			result.LabelIDs = []string{}
		}
	}
	return result, partial
}

// compensate removes the associations written so far and then the task.
func (s *Service) compensate(ctx context.Context, taskID string, labelIDs []string) error {
	var errs []error
	for _, labelID := range labelIDs {
		if err := s.store.RemoveTaskLabel(ctx, taskID, labelID); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.store.DeleteTask(ctx, taskID); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Service) UpdateTask(ctx context.Context, ownerID, id string, patch TaskPatch) (model.Task, error) {
	task, err := s.ownedTask(ctx, ownerID, id)
	if err != nil {
		return model.Task{}, err
	}
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Memo != nil {
		task.Memo = *patch.Memo
	}
	if patch.DueDate != nil {
		due := *patch.DueDate
		task.DueDate = &due
	}
	if patch.ClearDueDate {
		task.DueDate = nil
	}
	if patch.ProjectID != nil {
		task.ProjectID = *patch.ProjectID
	}
	if patch.IsCompleted != nil {
		task.IsCompleted = *patch.IsCompleted
	}

	task, err = s.validTask(ctx, ownerID, task)
	if err != nil {
		return model.Task{}, err
	}
	updated, err := s.store.UpdateTask(ctx, task)
	if err != nil {
		s.log.WithFields(logrus.Fields{"owner": ownerID, "task": id}).WithError(err).Error("update task")
		return model.Task{}, fmt.Errorf("update task: %w", err)
	}
	return updated, nil
}

func (s *Service) ToggleComplete(ctx context.Context, ownerID, id string) (model.Task, error) {
	task, err := s.ownedTask(ctx, ownerID, id)
	if err != nil {
		return model.Task{}, err
	}
	task.IsCompleted = !task.IsCompleted
	updated, err := s.store.UpdateTask(ctx, task)
	if err != nil {
		s.log.WithFields(logrus.Fields{"owner": ownerID, "task": id}).WithError(err).Error("toggle task")
		return model.Task{}, fmt.Errorf("update task: %w", err)
	}
	return updated, nil
}

// SetTaskLabels makes the task's associations match labelIDs. Failed writes
// are collected into a *PartialFailureError; the others are kept.
func (s *Service) SetTaskLabels(ctx context.Context, ownerID, taskID string, labelIDs []string) error {
	if _, err := s.ownedTask(ctx, ownerID, taskID); err != nil {
		return err
	}
	pairs, err := s.store.ListTaskLabels(ctx, []string{taskID})
	if err != nil {
		return fmt.Errorf("list task labels: %w", err)
	}

	want := distinct(labelIDs)
	wanted := make(map[string]bool, len(want))
	for _, id := range want {
		wanted[id] = true
	}
	have := map[string]bool{}
	for _, pair := range pairs {
		have[pair.LabelID] = true
	}
	added := make([]string, 0, len(want))
	for _, id := range want {
		if !have[id] {
			added = append(added, id)
		}
	}
	if err := s.checkLabelRefs(ctx, ownerID, added); err != nil {
		return err
	}

	log := s.log.WithFields(logrus.Fields{"owner": ownerID, "task": taskID})
	var failures []AssociationFailure
	for _, pair := range pairs {
		if wanted[pair.LabelID] {
			continue
		}
		if err := s.store.RemoveTaskLabel(ctx, taskID, pair.LabelID); err != nil {
			log.WithField("label", pair.LabelID).WithError(err).Warn("remove task label")
			failures = append(failures, AssociationFailure{LabelID: pair.LabelID, Op: "remove", Err: err})
		}
	}
	for _, labelID := range added {
		if _, err := s.store.AddTaskLabel(ctx, taskID, labelID); err != nil {
			log.WithField("label", labelID).WithError(err).Warn("add task label")
			failures = append(failures, AssociationFailure{LabelID: labelID, Op: "add", Err: err})
		}
	}
	if len(failures) > 0 {
		return &PartialFailureError{TaskID: taskID, Failures: failures}
	}
	return nil
}

// DeleteTask removes the task's associations before the task itself.
func (s *Service) DeleteTask(ctx context.Context, ownerID, id string) error {
	if _, err := s.ownedTask(ctx, ownerID, id); err != nil {
		return err
	}
	pairs, err := s.store.ListTaskLabels(ctx, []string{id})
	if err != nil {
		return fmt.Errorf("list task labels: %w", err)
	}
	for _, pair := range pairs {
		if err := s.store.RemoveTaskLabel(ctx, id, pair.LabelID); err != nil {
			return fmt.Errorf("remove task label: %w", err)
		}
	}
	if err := s.store.DeleteTask(ctx, id); err != nil {
		s.log.WithFields(logrus.Fields{"owner": ownerID, "task": id}).WithError(err).Error("delete task")
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (s *Service) validTask(ctx context.Context, ownerID string, task model.Task) (model.Task, error) {
	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		return model.Task{}, invalid("title", "task title is required")
	}
	if task.ProjectID == "" {
		return model.Task{}, invalid("projectId", "project is required")
	}
	if _, err := s.ownedProject(ctx, ownerID, task.ProjectID); err != nil {
		return model.Task{}, unknownReference("projectId", "project", err)
	}
	return task, nil
}

// ownedTask loads a task whose project belongs to ownerID.
func (s *Service) ownedTask(ctx context.Context, ownerID, id string) (model.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return model.Task{}, fmt.Errorf("get task: %w", err)
	}
	if _, err := s.ownedProject(ctx, ownerID, task.ProjectID); err != nil {
		if store.IsNotFound(err) {
			return model.Task{}, fmt.Errorf("get task: %w", notOwned(store.KindTask, id))
		}
		return model.Task{}, err
	}
	return task, nil
}

func distinct(values []string) []string {
	seen := make(map[string]bool, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		result = append(result, value)
	}
	return result
}
