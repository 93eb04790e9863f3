package tables

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/Joseda-hg/lazyproject/internal/model"
)

const (
	edmDateTime     = "Edm.DateTime"
	maxFilterValues = 10
)

type entity struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
}

type projectEntity struct {
	entity
	Name     string `json:"Name"`
	ParentID string `json:"ParentId,omitempty"`
}

type taskEntity struct {
	entity
	Title       string     `json:"Title"`
	Memo        string     `json:"Memo"`
	DueDate     *time.Time `json:"DueDate,omitempty"`
	DueDateType string     `json:"DueDate@odata.type,omitempty"`
	IsCompleted bool       `json:"IsCompleted"`
	ProjectID   string     `json:"ProjectId"`
}

type labelEntity struct {
	entity
	Name  string `json:"Name"`
	Color string `json:"Color"`
}

// taskLabelEntity is keyed by task and label, so a pair exists at most once.
type taskLabelEntity struct {
	entity
}

func projectToEntity(project model.Project) projectEntity {
	return projectEntity{
		entity:   entity{PartitionKey: project.OwnerID, RowKey: project.ID},
		Name:     project.Name,
		ParentID: project.ParentID,
	}
}

func (e projectEntity) toModel() model.Project {
	return model.Project{ID: e.RowKey, Name: e.Name, OwnerID: e.PartitionKey, ParentID: e.ParentID}
}

func taskToEntity(ownerID string, task model.Task) taskEntity {
	ent := taskEntity{
		entity:      entity{PartitionKey: ownerID, RowKey: task.ID},
		Title:       task.Title,
		Memo:        task.Memo,
		IsCompleted: task.IsCompleted,
		ProjectID:   task.ProjectID,
	}
	if task.DueDate != nil {
		due := task.DueDate.UTC()
		ent.DueDate = &due
		ent.DueDateType = edmDateTime
	}
	return ent
}

func (e taskEntity) toModel() model.Task {
	return model.Task{
		ID:          e.RowKey,
		Title:       e.Title,
		Memo:        e.Memo,
		DueDate:     e.DueDate,
		IsCompleted: e.IsCompleted,
		ProjectID:   e.ProjectID,
	}
}

func labelToEntity(label model.Label) labelEntity {
	return labelEntity{
		entity: entity{PartitionKey: label.OwnerID, RowKey: label.ID},
		Name:   label.Name,
		Color:  label.Color,
	}
}

func (e labelEntity) toModel() model.Label {
	return model.Label{ID: e.RowKey, Name: e.Name, Color: e.Color, OwnerID: e.PartitionKey}
}

func decodeProjects(raw [][]byte) ([]model.Project, error) {
	projects := make([]model.Project, 0, len(raw))
	for _, data := range raw {
		var ent projectEntity
		if err := json.Unmarshal(data, &ent); err != nil {
			return nil, err
		}
		projects = append(projects, ent.toModel())
	}
	return projects, nil
}

func decodeTasks(raw [][]byte) ([]model.Task, error) {
	tasks := make([]model.Task, 0, len(raw))
	for _, data := range raw {
		var ent taskEntity
		if err := json.Unmarshal(data, &ent); err != nil {
			return nil, err
		}
		tasks = append(tasks, ent.toModel())
	}
	return tasks, nil
}

func decodeLabels(raw [][]byte) ([]model.Label, error) {
	labels := make([]model.Label, 0, len(raw))
	for _, data := range raw {
		var ent labelEntity
		if err := json.Unmarshal(data, &ent); err != nil {
			return nil, err
		}
		labels = append(labels, ent.toModel())
	}
	return labels, nil
}

func decodeTaskLabels(raw [][]byte) ([]model.TaskLabel, error) {
	pairs := make([]model.TaskLabel, 0, len(raw))
	for _, data := range raw {
		var ent taskLabelEntity
		if err := json.Unmarshal(data, &ent); err != nil {
			return nil, err
		}
		pairs = append(pairs, model.TaskLabel{TaskID: ent.PartitionKey, LabelID: ent.RowKey})
	}
	return pairs, nil
}

// quote renders an OData string literal.
func quote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func eq(field, value string) string {
	return field + " eq " + quote(value)
}

func anyOf(field string, values []string) string {
	clauses := make([]string, 0, len(values))
	for _, value := range values {
		clauses = append(clauses, "("+eq(field, value)+")")
	}
	return strings.Join(clauses, " or ")
}

func chunks(values []string, size int) [][]string {
	result := [][]string{}
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		result = append(result, values[start:end])
	}
	return result
}
