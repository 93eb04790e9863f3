package model

import (
	"fmt"
	"strings"
	"time"
)

type Project struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	OwnerID  string `json:"ownerId"`
	ParentID string `json:"parentId,omitempty"`
}

type ProjectNode struct {
	Project
	Children []*ProjectNode `json:"children"`
}

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Memo        string     `json:"memo,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	IsCompleted bool       `json:"isCompleted"`
	ProjectID   string     `json:"projectId"`
}

type Label struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	OwnerID string `json:"ownerId"`
}

// TaskLabel links one task to one label.
type TaskLabel struct {
	TaskID  string `json:"taskId"`
	LabelID string `json:"labelId"`
}

type DateFilter string

const (
	DateAll       DateFilter = "all"
	DateToday     DateFilter = "today"
	DateNext7Days DateFilter = "next7days"
)

var dateFilterOrder = []DateFilter{DateAll, DateToday, DateNext7Days}

func ParseDateFilter(value string) (DateFilter, error) {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return DateAll, nil
	}
	for _, candidate := range dateFilterOrder {
		if string(candidate) == trimmed {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("unknown date filter %q", value)
}

// Next cycles all -> today -> next7days -> all.
func (f DateFilter) Next() DateFilter {
	for i, candidate := range dateFilterOrder {
		if candidate == f {
			return dateFilterOrder[(i+1)%len(dateFilterOrder)]
		}
	}
	return DateAll
}

// FilterState is the user's current selection. Empty LabelFilter or
// ProjectFilter means the criterion is inactive.
type FilterState struct {
	DateFilter    DateFilter `json:"dateFilter"`
	LabelFilter   string     `json:"labelFilter,omitempty"`
	ProjectFilter string     `json:"projectFilter,omitempty"`
}

func DefaultFilterState() FilterState {
	return FilterState{DateFilter: DateAll}
}

func (s FilterState) IsZero() bool {
	return (s.DateFilter == "" || s.DateFilter == DateAll) && s.LabelFilter == "" && s.ProjectFilter == ""
}
