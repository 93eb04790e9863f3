package taskfilter

import "github.com/Joseda-hg/lazyproject/internal/model"

// ResolveTaskLabels groups labels per task for the requested task ids.
// Tasks without association pairs are absent from the result. Pairs whose
// label no longer exists are skipped.
func ResolveTaskLabels(taskIDs []string, pairs []model.TaskLabel, labels []model.Label) map[string][]model.Label {
	requested := make(map[string]struct{}, len(taskIDs))
	for _, id := range taskIDs {
		requested[id] = struct{}{}
	}

	labelByID := make(map[string]model.Label, len(labels))
	for _, label := range labels {
		labelByID[label.ID] = label
	}

	result := make(map[string][]model.Label)
	seen := make(map[model.TaskLabel]struct{}, len(pairs))
	for _, pair := range pairs {
		if _, ok := requested[pair.TaskID]; !ok {
			continue
		}
		if _, dup := seen[pair]; dup {
			continue
		}
		seen[pair] = struct{}{}

		if _, ok := result[pair.TaskID]; !ok {
			result[pair.TaskID] = []model.Label{}
		}
		if label, ok := labelByID[pair.LabelID]; ok {
			result[pair.TaskID] = append(result[pair.TaskID], label)
		}
	}
	return result
}

// LabelIDs returns the distinct label ids referenced by pairs, first seen first.
func LabelIDs(pairs []model.TaskLabel) []string {
	seen := make(map[string]struct{}, len(pairs))
	ids := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		if _, ok := seen[pair.LabelID]; ok {
			continue
		}
		seen[pair.LabelID] = struct{}{}
		ids = append(ids, pair.LabelID)
	}
	return ids
}

func TaskIDs(tasks []model.Task) []string {
	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	return ids
}
