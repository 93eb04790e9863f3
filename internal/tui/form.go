package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Joseda-hg/lazyproject/internal/model"
	"github.com/Joseda-hg/lazyproject/internal/planner"
)

const dueLayout = "2006-01-02"

type formField struct {
	Label string
	Value string
}

const (
	fieldTitle = iota
	fieldMemo
	fieldDue
	fieldProject
	fieldLabels
)

// projectOption is a project as the form shows it: the path of names from
// the root down.
type projectOption struct {
	ID   string
	Path string
}

func buildFormFields(task *model.Task, labels []model.Label, options []projectOption, defaultProject string) []formField {
	fields := []formField{
		{Label: "Title"},
		{Label: "Memo"},
		{Label: "Due (YYYY-MM-DD)"},
		{Label: "Project (space/←→)"},
		{Label: "Labels (space/←→)"},
	}

	if task == nil {
		fields[fieldProject].Value = projectPath(options, defaultProject)
		return fields
	}

	fields[fieldTitle].Value = task.Title
	fields[fieldMemo].Value = task.Memo
	if task.DueDate != nil {
		fields[fieldDue].Value = task.DueDate.Format(dueLayout)
	}
	fields[fieldProject].Value = projectPath(options, task.ProjectID)
	fields[fieldLabels].Value = joinLabels(labels)
	return fields
}

// parseFormFields turns the form into a task input and the ids of the
// chosen labels. Project paths and label names are resolved against the
// current board.
func parseFormFields(fields []formField, options []projectOption, labels []model.Label) (planner.TaskInput, []string, error) {
	due, err := parseDue(fields[fieldDue].Value)
	if err != nil {
		return planner.TaskInput{}, nil, err
	}

	projectID, ok := projectByPath(options, strings.TrimSpace(fields[fieldProject].Value))
	if !ok {
		return planner.TaskInput{}, nil, fmt.Errorf("unknown project")
	}

	labelIDs := make([]string, 0)
	for _, name := range parseLabelNames(fields[fieldLabels].Value) {
		id, ok := labelByName(labels, name)
		if !ok {
			return planner.TaskInput{}, nil, fmt.Errorf("unknown label %q", name)
		}
		labelIDs = append(labelIDs, id)
	}

	return planner.TaskInput{
		Title:     strings.TrimSpace(fields[fieldTitle].Value),
		Memo:      strings.TrimSpace(fields[fieldMemo].Value),
		DueDate:   due,
		ProjectID: projectID,
	}, labelIDs, nil
}

func parseDue(value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation(dueLayout, trimmed, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid due date")
	}
	return &parsed, nil
}

// taskPatch sets every editable field, so an emptied due date is cleared.
func taskPatch(input planner.TaskInput) planner.TaskPatch {
	patch := planner.TaskPatch{
		Title:     &input.Title,
		Memo:      &input.Memo,
		ProjectID: &input.ProjectID,
	}
	if input.DueDate == nil {
		patch.ClearDueDate = true
	} else {
		patch.DueDate = input.DueDate
	}
	return patch
}

func parseLabelNames(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}

func joinLabels(labels []model.Label) string {
	names := make([]string, 0, len(labels))
	for _, label := range labels {
		names = append(names, label.Name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func labelByName(labels []model.Label, name string) (string, bool) {
	for _, label := range labels {
		if strings.EqualFold(label.Name, name) {
			return label.ID, true
		}
	}
	return "", false
}

func projectPath(options []projectOption, id string) string {
	for _, option := range options {
		if option.ID == id {
			return option.Path
		}
	}
	return ""
}

func projectByPath(options []projectOption, path string) (string, bool) {
	for _, option := range options {
		if option.Path == path {
			return option.ID, true
		}
	}
	return "", false
}

func cycleOption(options []string, current string, delta int) string {
	if len(options) == 0 {
		return ""
	}
	value := strings.TrimSpace(current)
	index := -1
	for i, option := range options {
		if option == value {
			index = i
			break
		}
	}
	if index < 0 {
		if delta > 0 {
			return options[0]
		}
		return options[len(options)-1]
	}
	index = (index + delta + len(options)) % len(options)
	return options[index]
}

// toggleName adds name to the comma separated value, or removes it when it
// is already there.
func toggleName(value, name string) string {
	selected := make(map[string]struct{})
	for _, existing := range parseLabelNames(value) {
		selected[existing] = struct{}{}
	}
	if _, ok := selected[name]; ok {
		delete(selected, name)
	} else {
		selected[name] = struct{}{}
	}

	ordered := make([]string, 0, len(selected))
	for existing := range selected {
		ordered = append(ordered, existing)
	}
	sort.Strings(ordered)
	return strings.Join(ordered, ", ")
}
