package web

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/Joseda-hg/lazyproject/internal/model"
	"github.com/Joseda-hg/lazyproject/internal/planner"
	"github.com/Joseda-hg/lazyproject/internal/store"
)

const ownerKey = "owner"

type Server struct {
	planner *planner.Service
	auth    *Auth
	log     *logrus.Logger
}

func NewServer(p *planner.Service, auth *Auth, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	return &Server{planner: p, auth: auth, log: logger}
}

func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(s.logRequests)

	e.GET("/healthz", healthz)
	e.GET("/", s.treeHandler, s.requireOwner)

	api := e.Group("/api", s.requireOwner)
	api.GET("/projects", s.listProjects)
	api.POST("/projects", s.createProject)
	api.PATCH("/projects/:id", s.updateProject)
	api.DELETE("/projects/:id", s.deleteProject)

	api.GET("/tasks", s.listTasks)
	api.POST("/tasks", s.createTask)
	api.PATCH("/tasks/:id", s.updateTask)
	api.DELETE("/tasks/:id", s.deleteTask)
	api.PUT("/tasks/:id/labels", s.setTaskLabels)

	api.GET("/labels", s.listLabels)
	api.POST("/labels", s.createLabel)
	api.PATCH("/labels/:id", s.updateLabel)
	api.DELETE("/labels/:id", s.deleteLabel)
	return e
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	e := s.Handler()
	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(addr)
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	}
}

func healthz(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (s *Server) requireOwner(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		owner, err := s.auth.OwnerFromHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		c.Set(ownerKey, owner)
		return next(c)
	}
}

func (s *Server) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.log.WithFields(logrus.Fields{
			"method":  c.Request().Method,
			"path":    c.Path(),
			"status":  c.Response().Status,
			"latency": time.Since(start),
		}).Debug("request")
		return nil
	}
}

func owner(c echo.Context) string {
	value, _ := c.Get(ownerKey).(string)
	return value
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// fail maps planner and store errors to HTTP statuses.
func (s *Server) fail(c echo.Context, err error) error {
	var validation *planner.ValidationError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &validation):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: validation.Message, Field: validation.Field})
	case errors.Is(err, planner.ErrCyclicParent):
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case store.IsNotFound(err):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.As(err, &httpErr):
		return httpErr
	default:
		s.log.WithField("owner", owner(c)).WithError(err).Error(c.Request().Method + " " + c.Path())
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (s *Server) treeHandler(c echo.Context) error {
	board, err := s.planner.Board(c.Request().Context(), owner(c), model.DefaultFilterState(), "")
	if err != nil {
		return s.fail(c, err)
	}
	var buf bytes.Buffer
	if err := renderTree(&buf, board.Tree, board.Cycles, board.Pending); err != nil {
		return s.fail(c, err)
	}
	return c.String(http.StatusOK, buf.String())
}

func (s *Server) listProjects(c echo.Context) error {
	projects, err := s.planner.Projects(c.Request().Context(), owner(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, projects)
}

type projectRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parentId"`
}

func (s *Server) createProject(c echo.Context) error {
	var req projectRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	project, err := s.planner.CreateProject(c.Request().Context(), owner(c), req.Name, req.ParentID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, project)
}

func (s *Server) updateProject(c echo.Context) error {
	var patch planner.ProjectPatch
	if err := c.Bind(&patch); err != nil {
		return err
	}
	project, err := s.planner.UpdateProject(c.Request().Context(), owner(c), c.Param("id"), patch)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, project)
}

func (s *Server) deleteProject(c echo.Context) error {
	if err := s.planner.DeleteProject(c.Request().Context(), owner(c), c.Param("id")); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type taskView struct {
	model.Task
	Labels []model.Label `json:"labels"`
}

type tasksResponse struct {
	Filter model.FilterState `json:"filter"`
	Tasks  []taskView        `json:"tasks"`
}

func (s *Server) listTasks(c echo.Context) error {
	date, err := model.ParseDateFilter(strings.TrimSpace(c.QueryParam("date")))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Field: "date"})
	}
	state := model.FilterState{
		DateFilter:    date,
		LabelFilter:   strings.TrimSpace(c.QueryParam("label")),
		ProjectFilter: strings.TrimSpace(c.QueryParam("project")),
	}
	board, err := s.planner.Board(c.Request().Context(), owner(c), state, strings.TrimSpace(c.QueryParam("q")))
	if err != nil {
		return s.fail(c, err)
	}

	views := make([]taskView, 0, len(board.Tasks))
	for _, task := range board.Tasks {
		labels := board.TaskLabels[task.ID]
		if labels == nil {
			labels = []model.Label{}
		}
		views = append(views, taskView{Task: task, Labels: labels})
	}
	return c.JSON(http.StatusOK, tasksResponse{Filter: state, Tasks: views})
}

type createTaskRequest struct {
	planner.TaskInput
	LabelIDs []string `json:"labelIds"`
	Rollback bool     `json:"rollback"`
}

type failureView struct {
	LabelID string `json:"labelId"`
	Op      string `json:"op"`
	Error   string `json:"error"`
}

type createTaskResponse struct {
	Task       model.Task    `json:"task"`
	LabelIDs   []string      `json:"labelIds"`
	Failures   []failureView `json:"failures,omitempty"`
	RolledBack bool          `json:"rolledBack,omitempty"`
}

func failureViews(failures []planner.AssociationFailure) []failureView {
	views := make([]failureView, 0, len(failures))
	for _, failure := range failures {
		views = append(views, failureView{LabelID: failure.LabelID, Op: failure.Op, Error: failure.Err.Error()})
	}
	return views
}

// createTask answers 207 when some label associations failed.
func (s *Server) createTask(c echo.Context) error {
	var req createTaskRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	result, err := s.planner.CreateTaskWithLabels(c.Request().Context(), owner(c), req.TaskInput, req.LabelIDs, req.Rollback)
	var partial *planner.PartialFailureError
	switch {
	case errors.As(err, &partial):
		return c.JSON(http.StatusMultiStatus, createTaskResponse{
			Task:       result.Task,
			LabelIDs:   result.LabelIDs,
			Failures:   failureViews(partial.Failures),
			RolledBack: partial.RolledBack,
		})
	case err != nil:
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, createTaskResponse{Task: result.Task, LabelIDs: result.LabelIDs})
}

func (s *Server) updateTask(c echo.Context) error {
	var patch planner.TaskPatch
	if err := c.Bind(&patch); err != nil {
		return err
	}
	task, err := s.planner.UpdateTask(c.Request().Context(), owner(c), c.Param("id"), patch)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

func (s *Server) deleteTask(c echo.Context) error {
	if err := s.planner.DeleteTask(c.Request().Context(), owner(c), c.Param("id")); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type taskLabelsRequest struct {
	LabelIDs []string `json:"labelIds"`
}

func (s *Server) setTaskLabels(c echo.Context) error {
	var req taskLabelsRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	err := s.planner.SetTaskLabels(c.Request().Context(), owner(c), c.Param("id"), req.LabelIDs)
	var partial *planner.PartialFailureError
	switch {
	case errors.As(err, &partial):
		return c.JSON(http.StatusMultiStatus, map[string]any{"failures": failureViews(partial.Failures)})
	case err != nil:
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listLabels(c echo.Context) error {
	labels, err := s.planner.Labels(c.Request().Context(), owner(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, labels)
}

type labelRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (s *Server) createLabel(c echo.Context) error {
	var req labelRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	label, err := s.planner.CreateLabel(c.Request().Context(), owner(c), req.Name, req.Color)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, label)
}

func (s *Server) updateLabel(c echo.Context) error {
	var patch planner.LabelPatch
	if err := c.Bind(&patch); err != nil {
		return err
	}
	label, err := s.planner.UpdateLabel(c.Request().Context(), owner(c), c.Param("id"), patch)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, label)
}

func (s *Server) deleteLabel(c echo.Context) error {
	if err := s.planner.DeleteLabel(c.Request().Context(), owner(c), c.Param("id")); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
