// Package planner is the application layer shared by the terminal UI and the
// web API. It validates input, talks to a store.Store and assembles the
// filtered board the views render.
package planner

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Joseda-hg/lazyproject/internal/model"
	"github.com/Joseda-hg/lazyproject/internal/projecttree"
	"github.com/Joseda-hg/lazyproject/internal/store"
	"github.com/Joseda-hg/lazyproject/internal/taskfilter"
)

type Service struct {
	store store.Store
	log   *logrus.Logger
	now   func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now when evaluating date filters.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(st store.Store, logger *logrus.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	s := &Service{store: st, log: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Board is everything a view needs to render one owner's workspace under a
// filter selection.
type Board struct {
	Filter     model.FilterState        `json:"filter"`
	Keyword    string                   `json:"keyword,omitempty"`
	Projects   []model.Project          `json:"projects"`
	Tree       []*model.ProjectNode     `json:"tree"`
	Cycles     []projecttree.Cycle      `json:"cycles,omitempty"`
	Labels     []model.Label            `json:"labels"`
	TaskLabels map[string][]model.Label `json:"taskLabels"`
	Tasks      []model.Task             `json:"tasks"`
	Pending    []model.Task             `json:"pending"`
	Completed  []model.Task             `json:"completed"`
}

func (s *Service) Board(ctx context.Context, ownerID string, state model.FilterState, keyword string) (Board, error) {
	fields := logrus.Fields{"owner": ownerID}

	projects, err := s.store.ListProjects(ctx, ownerID)
	if err != nil {
		s.log.WithFields(fields).WithError(err).Error("list projects")
		return Board{}, fmt.Errorf("list projects: %w", err)
	}
	tasks, err := s.store.ListTasks(ctx, ownerID)
	if err != nil {
		s.log.WithFields(fields).WithError(err).Error("list tasks")
		return Board{}, fmt.Errorf("list tasks: %w", err)
	}
	labels, err := s.store.ListLabels(ctx, ownerID)
	if err != nil {
		s.log.WithFields(fields).WithError(err).Error("list labels")
		return Board{}, fmt.Errorf("list labels: %w", err)
	}
	taskLabels, err := s.TaskLabels(ctx, taskfilter.TaskIDs(tasks))
	if err != nil {
		return Board{}, err
	}

	forest := projecttree.Build(projects)
	for _, cycle := range forest.Cycles {
		s.log.WithFields(fields).WithField("project", cycle.ProjectID).
			Warnf("project parent cycle %v, showing it as a root", cycle.Chain)
	}

	filtered := taskfilter.Search(taskfilter.FilterTasksAt(s.now(), tasks, state, taskLabels), keyword)
	return Board{
		Filter:     state,
		Keyword:    keyword,
		Projects:   projects,
		Tree:       forest.Roots,
		Cycles:     forest.Cycles,
		Labels:     labels,
		TaskLabels: taskLabels,
		Tasks:      filtered,
		Pending:    taskfilter.FilterIncomplete(filtered),
		Completed:  taskfilter.FilterCompleted(filtered),
	}, nil
}

// TaskLabels resolves the labels of each task. Tasks without associations are
// absent from the result.
func (s *Service) TaskLabels(ctx context.Context, taskIDs []string) (map[string][]model.Label, error) {
	if len(taskIDs) == 0 {
		return map[string][]model.Label{}, nil
	}
	pairs, err := s.store.ListTaskLabels(ctx, taskIDs)
	if err != nil {
		s.log.WithError(err).Error("list task labels")
		return nil, fmt.Errorf("list task labels: %w", err)
	}
	labels := []model.Label{}
	if ids := taskfilter.LabelIDs(pairs); len(ids) > 0 {
		labels, err = s.store.GetLabels(ctx, ids)
		if err != nil {
			s.log.WithError(err).Error("get labels")
			return nil, fmt.Errorf("get labels: %w", err)
		}
	}
	return taskfilter.ResolveTaskLabels(taskIDs, pairs, labels), nil
}

func (s *Service) Projects(ctx context.Context, ownerID string) ([]model.Project, error) {
	projects, err := s.store.ListProjects(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

func (s *Service) Labels(ctx context.Context, ownerID string) ([]model.Label, error) {
	labels, err := s.store.ListLabels(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	return labels, nil
}

// notOwned hides records of other owners behind the same error as a missing
// record.
func notOwned(kind store.Kind, id string) error {
	return store.Wrap("get", kind, id, store.ErrNotFound)
}
