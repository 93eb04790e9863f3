package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Joseda-hg/lazyproject/internal/model"
	"github.com/Joseda-hg/lazyproject/internal/projecttree"
)

type labelEntry struct {
	ID    string
	Name  string
	Color string
	Count int
}

func formatLabels(labels []model.Label) string {
	if len(labels) == 0 {
		return "no labels"
	}
	parts := make([]string, 0, len(labels))
	for _, label := range labels {
		parts = append(parts, label.Name)
	}
	return strings.Join(parts, ",")
}

func formatDue(task model.Task) string {
	if task.DueDate == nil {
		return "no due"
	}
	return task.DueDate.Format(dueLayout)
}

func formatTaskSummary(task model.Task, labels []model.Label) string {
	return fmt.Sprintf("%s | %s | %s", task.Title, formatDue(task), formatLabels(labels))
}

// buildLabelEntries counts, per label, the tasks of the board that carry it.
// Entries are ordered by count, then name.
func buildLabelEntries(labels []model.Label, tasks []model.Task, taskLabels map[string][]model.Label) []labelEntry {
	counts := make(map[string]int, len(labels))
	for _, task := range tasks {
		for _, label := range taskLabels[task.ID] {
			counts[label.ID]++
		}
	}

	entries := make([]labelEntry, 0, len(labels))
	for _, label := range labels {
		entries = append(entries, labelEntry{ID: label.ID, Name: label.Name, Color: label.Color, Count: counts[label.ID]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Count == entries[j].Count {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Count > entries[j].Count
	})
	return entries
}

// buildProjectOptions lists every project of the tree with its full path,
// in walk order.
func buildProjectOptions(roots []*model.ProjectNode) []projectOption {
	options := []projectOption{}
	var path []string
	_ = projecttree.Walk(roots, projecttree.RendererFunc(func(node *model.ProjectNode, depth int) error {
		path = append(path[:depth], node.Name)
		options = append(options, projectOption{ID: node.ID, Path: strings.Join(path, "/")})
		return nil
	}))
	return options
}

func pendingByProject(pending []model.Task) map[string]int {
	counts := make(map[string]int, len(pending))
	for _, task := range pending {
		counts[task.ProjectID]++
	}
	return counts
}
