package taskfilter

import (
	"reflect"
	"testing"
	"time"

	"github.com/Joseda-hg/lazyproject/internal/model"
)

var tokyo = time.FixedZone("JST", 9*60*60)

func at(t time.Time) *time.Time {
	return &t
}

func TestFilterTasksToday(t *testing.T) {
	now := time.Date(2026, 10, 19, 14, 30, 0, 0, tokyo)
	tasks := []model.Task{
		{ID: "1", DueDate: at(time.Date(2026, 10, 19, 9, 0, 0, 0, tokyo))},
		{ID: "2", DueDate: at(now.AddDate(0, 0, 10)), IsCompleted: true},
	}

	result := FilterTasksAt(now, tasks, model.FilterState{DateFilter: model.DateToday}, nil)
	if got := ids(result); !reflect.DeepEqual(got, []string{"1"}) {
		t.Fatalf("expected [1], got %v", got)
	}
}

func TestFilterTasksDateBoundaries(t *testing.T) {
	now := time.Date(2026, 10, 19, 14, 30, 0, 0, tokyo)
	start := time.Date(2026, 10, 19, 0, 0, 0, 0, tokyo)
	tasks := []model.Task{
		{ID: "start-of-day", DueDate: at(start)},
		{ID: "end-of-day", DueDate: at(start.AddDate(0, 0, 1).Add(-time.Nanosecond))},
		{ID: "yesterday", DueDate: at(start.Add(-time.Nanosecond))},
		{ID: "tomorrow", DueDate: at(start.AddDate(0, 0, 1))},
		{ID: "day-7-late", DueDate: at(time.Date(2026, 10, 26, 23, 59, 59, 0, tokyo))},
		{ID: "day-8", DueDate: at(time.Date(2026, 10, 27, 0, 0, 0, 0, tokyo))},
		{ID: "no-due"},
	}

	cases := []struct {
		name   string
		filter model.DateFilter
		want   []string
	}{
		{"all", model.DateAll, []string{"start-of-day", "end-of-day", "yesterday", "tomorrow", "day-7-late", "day-8", "no-due"}},
		{"today", model.DateToday, []string{"start-of-day", "end-of-day"}},
		{"next7days", model.DateNext7Days, []string{"start-of-day", "end-of-day", "tomorrow", "day-7-late"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := FilterTasksAt(now, tasks, model.FilterState{DateFilter: tc.filter}, nil)
			if got := ids(result); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestFilterTasksComparesInstantsAcrossZones(t *testing.T) {
	now := time.Date(2026, 10, 19, 14, 30, 0, 0, tokyo)
	// 2026-10-19 01:00 UTC is 10:00 in Tokyo.
	tasks := []model.Task{{ID: "utc", DueDate: at(time.Date(2026, 10, 19, 1, 0, 0, 0, time.UTC))}}
	result := FilterTasksAt(now, tasks, model.FilterState{DateFilter: model.DateToday}, nil)
	if len(result) != 1 {
		t.Fatalf("expected task due today in evaluator's zone")
	}
}

func TestFilterTasksLabel(t *testing.T) {
	tasks := []model.Task{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	taskLabels := map[string][]model.Label{
		"1": {{ID: "L1"}, {ID: "L2"}},
		"2": {{ID: "L2"}},
	}

	result := FilterTasks(tasks, model.FilterState{DateFilter: model.DateAll, LabelFilter: "L1"}, taskLabels)
	if got := ids(result); !reflect.DeepEqual(got, []string{"1"}) {
		t.Fatalf("expected [1], got %v", got)
	}
}

func TestFilterTasksProjectAndCombined(t *testing.T) {
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, tokyo)
	due := at(now.Add(2 * time.Hour))
	tasks := []model.Task{
		{ID: "1", ProjectID: "p1", DueDate: due},
		{ID: "2", ProjectID: "p2", DueDate: due},
		{ID: "3", ProjectID: "p1"},
		{ID: "4", ProjectID: "p1", DueDate: due},
	}
	taskLabels := map[string][]model.Label{
		"1": {{ID: "L1"}},
		"3": {{ID: "L1"}},
	}

	onlyProject := FilterTasksAt(now, tasks, model.FilterState{ProjectFilter: "p1"}, nil)
	if got := ids(onlyProject); !reflect.DeepEqual(got, []string{"1", "3", "4"}) {
		t.Fatalf("expected [1 3 4], got %v", got)
	}

	combined := FilterTasksAt(now, tasks, model.FilterState{DateFilter: model.DateToday, LabelFilter: "L1", ProjectFilter: "p1"}, taskLabels)
	if got := ids(combined); !reflect.DeepEqual(got, []string{"1"}) {
		t.Fatalf("expected [1], got %v", got)
	}
}

func TestFilterTasksIdentityAndIdempotence(t *testing.T) {
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, tokyo)
	tasks := []model.Task{
		{ID: "b", ProjectID: "p1", DueDate: at(now)},
		{ID: "a", ProjectID: "p2"},
		{ID: "c", ProjectID: "p1", DueDate: at(now.AddDate(0, 0, 3))},
	}
	before := append([]model.Task(nil), tasks...)

	identity := FilterTasksAt(now, tasks, model.DefaultFilterState(), nil)
	if !reflect.DeepEqual(identity, tasks) {
		t.Fatalf("expected identity, got %v", ids(identity))
	}

	state := model.FilterState{DateFilter: model.DateNext7Days, ProjectFilter: "p1"}
	once := FilterTasksAt(now, tasks, state, nil)
	twice := FilterTasksAt(now, once, state, nil)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("expected idempotent filter, got %v then %v", ids(once), ids(twice))
	}
	if !reflect.DeepEqual(tasks, before) {
		t.Fatalf("input mutated")
	}

	if empty := FilterTasksAt(now, nil, state, nil); len(empty) != 0 {
		t.Fatalf("expected empty result")
	}
}

func TestCompletionPartitions(t *testing.T) {
	tasks := []model.Task{
		{ID: "1", IsCompleted: true},
		{ID: "2", IsCompleted: false},
		{ID: "3", IsCompleted: true},
	}

	completed := FilterCompleted(tasks)
	incomplete := FilterIncomplete(tasks)
	if got := ids(completed); !reflect.DeepEqual(got, []string{"1", "3"}) {
		t.Fatalf("unexpected completed: %v", got)
	}
	if got := ids(incomplete); !reflect.DeepEqual(got, []string{"2"}) {
		t.Fatalf("unexpected incomplete: %v", got)
	}
	if len(completed)+len(incomplete) != len(tasks) {
		t.Fatalf("partitions do not cover input")
	}
	for _, c := range completed {
		for _, i := range incomplete {
			if c.ID == i.ID {
				t.Fatalf("task %s in both partitions", c.ID)
			}
		}
	}
}

func TestSearch(t *testing.T) {
	tasks := []model.Task{
		{ID: "1", Title: "Buy Milk"},
		{ID: "2", Title: "Call", Memo: "ask about milk prices"},
		{ID: "3", Title: "Write report"},
	}
	if got := ids(Search(tasks, "MILK")); !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Fatalf("unexpected search result: %v", got)
	}
	if got := ids(Search(tasks, "  ")); !reflect.DeepEqual(got, []string{"1", "2", "3"}) {
		t.Fatalf("expected blank keyword to keep everything, got %v", got)
	}
}

func ids(tasks []model.Task) []string {
	result := make([]string, 0, len(tasks))
	for _, task := range tasks {
		result = append(result, task.ID)
	}
	return result
}
