package projecttree

import (
	"errors"

	"github.com/Joseda-hg/lazyproject/internal/model"
)

// Renderer receives every node of a forest during Walk.
type Renderer interface {
	RenderNode(node *model.ProjectNode, depth int) error
}

type RendererFunc func(node *model.ProjectNode, depth int) error

func (f RendererFunc) RenderNode(node *model.ProjectNode, depth int) error {
	return f(node, depth)
}

// SkipChildren may be returned by a Renderer to keep Walk from descending
// into the current node.
var SkipChildren = errors.New("skip children")

// Walk visits the forest depth-first, parents before children, and stops at
// the first error a renderer returns.
func Walk(roots []*model.ProjectNode, renderer Renderer) error {
	return walk(roots, renderer, 0, map[*model.ProjectNode]struct{}{})
}

func walk(nodes []*model.ProjectNode, renderer Renderer, depth int, seen map[*model.ProjectNode]struct{}) error {
	for _, node := range nodes {
		if _, ok := seen[node]; ok {
			continue
		}
		seen[node] = struct{}{}

		err := renderer.RenderNode(node, depth)
		if errors.Is(err, SkipChildren) {
			continue
		}
		if err != nil {
			return err
		}
		if err := walk(node.Children, renderer, depth+1, seen); err != nil {
			return err
		}
	}
	return nil
}

type Row struct {
	Node        *model.ProjectNode
	Depth       int
	HasChildren bool
}

// Flatten lists the visible nodes in display order. Children of ids marked in
// collapsed are left out.
func Flatten(roots []*model.ProjectNode, collapsed map[string]bool) []Row {
	rows := []Row{}
	_ = Walk(roots, RendererFunc(func(node *model.ProjectNode, depth int) error {
		hasChildren := len(node.Children) > 0
		rows = append(rows, Row{Node: node, Depth: depth, HasChildren: hasChildren})
		if hasChildren && collapsed != nil && collapsed[node.ID] {
			return SkipChildren
		}
		return nil
	}))
	return rows
}

func Find(roots []*model.ProjectNode, id string) *model.ProjectNode {
	var found *model.ProjectNode
	errFound := errors.New("found")
	_ = Walk(roots, RendererFunc(func(node *model.ProjectNode, _ int) error {
		if node.ID == id {
			found = node
			return errFound
		}
		return nil
	}))
	return found
}

// Descendants returns the ids below id, in walk order.
func Descendants(roots []*model.ProjectNode, id string) []string {
	node := Find(roots, id)
	if node == nil {
		return nil
	}
	ids := []string{}
	_ = Walk(node.Children, RendererFunc(func(child *model.ProjectNode, _ int) error {
		ids = append(ids, child.ID)
		return nil
	}))
	return ids
}
