// Package taskfilter narrows task collections by date window, label and
// project, and partitions them by completion.
package taskfilter

import (
	"strings"
	"time"

	"github.com/Joseda-hg/lazyproject/internal/model"
)

// FilterTasks keeps the tasks that satisfy every active criterion in state,
// evaluated against the current local time.
func FilterTasks(tasks []model.Task, state model.FilterState, taskLabels map[string][]model.Label) []model.Task {
	return FilterTasksAt(time.Now(), tasks, state, taskLabels)
}

// FilterTasksAt is FilterTasks with an explicit evaluation time. Day
// boundaries are taken in now's location.
func FilterTasksAt(now time.Time, tasks []model.Task, state model.FilterState, taskLabels map[string][]model.Label) []model.Task {
	window, hasWindow := dateWindow(now, state.DateFilter)

	result := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if hasWindow && !window.contains(task.DueDate) {
			continue
		}
		if state.LabelFilter != "" && !hasLabel(taskLabels[task.ID], state.LabelFilter) {
			continue
		}
		if state.ProjectFilter != "" && task.ProjectID != state.ProjectFilter {
			continue
		}
		result = append(result, task)
	}
	return result
}

type window struct {
	start time.Time
	end   time.Time
}

func (w window) contains(due *time.Time) bool {
	if due == nil {
		return false
	}
	return !due.Before(w.start) && !due.After(w.end)
}

func dateWindow(now time.Time, filter model.DateFilter) (window, bool) {
	start := startOfDay(now)
	switch filter {
	case model.DateToday:
		return window{start: start, end: endOfDay(start)}, true
	case model.DateNext7Days:
		return window{start: start, end: endOfDay(start.AddDate(0, 0, 7))}, true
	default:
		return window{}, false
	}
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func hasLabel(labels []model.Label, labelID string) bool {
	for _, label := range labels {
		if label.ID == labelID {
			return true
		}
	}
	return false
}

func FilterCompleted(tasks []model.Task) []model.Task {
	return partition(tasks, true)
}

func FilterIncomplete(tasks []model.Task) []model.Task {
	return partition(tasks, false)
}

func partition(tasks []model.Task, completed bool) []model.Task {
	result := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.IsCompleted == completed {
			result = append(result, task)
		}
	}
	return result
}

// Search keeps tasks whose title or memo contains keyword, ignoring case.
func Search(tasks []model.Task, keyword string) []model.Task {
	needle := strings.ToLower(strings.TrimSpace(keyword))
	if needle == "" {
		return append(make([]model.Task, 0, len(tasks)), tasks...)
	}

	result := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if strings.Contains(strings.ToLower(task.Title), needle) || strings.Contains(strings.ToLower(task.Memo), needle) {
			result = append(result, task)
		}
	}
	return result
}
