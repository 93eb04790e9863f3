package web

import (
	"fmt"
	"io"
	"strings"

	"github.com/Joseda-hg/lazyproject/internal/model"
	"github.com/Joseda-hg/lazyproject/internal/projecttree"
)

// textRenderer writes one indented line per project with its pending task
// count.
type textRenderer struct {
	w       io.Writer
	pending map[string]int
}

func (r textRenderer) RenderNode(node *model.ProjectNode, depth int) error {
	_, err := fmt.Fprintf(r.w, "%s- %s (%d)\n", strings.Repeat("  ", depth), node.Name, r.pending[node.ID])
	return err
}

func renderTree(w io.Writer, roots []*model.ProjectNode, cycles []projecttree.Cycle, pending []model.Task) error {
	counts := make(map[string]int, len(pending))
	for _, task := range pending {
		counts[task.ProjectID]++
	}
	if len(roots) == 0 {
		_, err := io.WriteString(w, "no projects\n")
		return err
	}
	if err := projecttree.Walk(roots, textRenderer{w: w, pending: counts}); err != nil {
		return err
	}
	for _, cycle := range cycles {
		if _, err := fmt.Fprintf(w, "! parent cycle: %s\n", strings.Join(cycle.Chain, " -> ")); err != nil {
			return err
		}
	}
	return nil
}
