// Package projecttree turns flat, parent-referencing project records into a
// forest of nodes and walks that forest.
package projecttree

import (
	"github.com/Joseda-hg/lazyproject/internal/model"
)

// Cycle reports a project whose parent chain leads back to itself. Chain
// starts and ends with ProjectID.
type Cycle struct {
	ProjectID string   `json:"projectId"`
	Chain     []string `json:"chain"`
}

type Forest struct {
	Roots  []*model.ProjectNode `json:"roots"`
	Cycles []Cycle              `json:"cycles,omitempty"`
}

// BuildTree returns the roots of the project forest. Children keep the order
// in which their projects appear in the input. A project whose parent does not
// resolve is a root.
func BuildTree(projects []model.Project) []*model.ProjectNode {
	return Build(projects).Roots
}

// Build is BuildTree plus cycle diagnostics. The first project of a cycle, in
// input order, loses its parent link and becomes a root; the rest of the
// cycle hangs below it.
func Build(projects []model.Project) Forest {
	nodes := make(map[string]*model.ProjectNode, len(projects))
	for _, project := range projects {
		nodes[project.ID] = &model.ProjectNode{Project: project, Children: []*model.ProjectNode{}}
	}

	parents := make(map[string]string, len(projects))
	for _, project := range projects {
		if project.ParentID == "" {
			continue
		}
		if _, ok := nodes[project.ParentID]; ok {
			parents[project.ID] = project.ParentID
		}
	}

	var cycles []Cycle
	for _, project := range projects {
		if chain, ok := cycleFrom(project.ID, parents); ok {
			delete(parents, project.ID)
			cycles = append(cycles, Cycle{ProjectID: project.ID, Chain: chain})
		}
	}

	roots := make([]*model.ProjectNode, 0, len(projects))
	for _, project := range projects {
		node := nodes[project.ID]
		if parentID, ok := parents[project.ID]; ok {
			parent := nodes[parentID]
			parent.Children = append(parent.Children, node)
			continue
		}
		roots = append(roots, node)
	}

	return Forest{Roots: roots, Cycles: cycles}
}

func cycleFrom(id string, parents map[string]string) ([]string, bool) {
	chain := []string{id}
	visited := map[string]struct{}{id: {}}
	current := id
	for {
		next, ok := parents[current]
		if !ok {
			return nil, false
		}
		if next == id {
			return append(chain, id), true
		}
		// The chain runs into a cycle that does not include id.
		if _, seen := visited[next]; seen {
			return nil, false
		}
		visited[next] = struct{}{}
		chain = append(chain, next)
		current = next
	}
}

// WouldCycle reports whether giving project id the parent newParentID would
// make id its own ancestor.
func WouldCycle(projects []model.Project, id, newParentID string) bool {
	if newParentID == "" {
		return false
	}
	if newParentID == id {
		return true
	}

	parents := make(map[string]string, len(projects))
	for _, project := range projects {
		if project.ParentID != "" {
			parents[project.ID] = project.ParentID
		}
	}

	visited := map[string]struct{}{}
	current := newParentID
	for current != "" {
		if current == id {
			return true
		}
		if _, seen := visited[current]; seen {
			return false
		}
		visited[current] = struct{}{}
		current = parents[current]
	}
	return false
}
