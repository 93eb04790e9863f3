package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Joseda-hg/lazyproject/internal/model"
	"github.com/Joseda-hg/lazyproject/internal/planner"
	"github.com/Joseda-hg/lazyproject/internal/projecttree"
	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"
)

const (
	viewHeader   = "header"
	viewFooter   = "footer"
	viewProjects = "projects"
	viewPending  = "pending"
	viewDone     = "done"
	viewLabels   = "labels"
	viewDetail   = "detail"
	viewSearch   = "search"
	viewForm     = "form"
	viewHelp     = "help"
	viewPrompt   = "prompt"
)

const (
	promptLabel   = "label"
	promptProject = "project"
)

type UI struct {
	planner *planner.Service
	owner   string
	gui     *gocui.Gui

	filter  model.FilterState
	keyword string
	board   planner.Board

	projectRows []projecttree.Row
	projectOpts []projectOption
	pending     []model.Task
	done        []model.Task
	labels      []labelEntry
	counts      map[string]int

	collapsed map[string]bool

	selectedProjects int
	selectedPending  int
	selectedDone     int
	selectedLabels   int
	focus            string

	form           *formState
	formEditor     *formEditor
	formLabelIndex int
	searchActive   bool
	helpActive     bool
	prompt         string
	promptParentID string
	status         string
}

type formState struct {
	taskID string
	fields []formField
	index  int
}

type formEditor struct {
	ui *UI
}

func newUI(p *planner.Service, ownerID string) *UI {
	ui := &UI{
		planner:   p,
		owner:     ownerID,
		filter:    model.DefaultFilterState(),
		focus:     viewPending,
		collapsed: make(map[string]bool),
	}
	ui.formEditor = &formEditor{ui: ui}
	return ui
}

// Run shows ownerID's board until the user quits.
func Run(p *planner.Service, ownerID string) error {
	gui, err := gocui.NewGui(gocui.NewGuiOpts{OutputMode: gocui.OutputNormal})
	if err != nil {
		return err
	}
	defer gui.Close()

	ui := newUI(p, ownerID)
	ui.gui = gui
	gui.Mouse = true

	gui.SetManagerFunc(ui.layout)
	if err := ui.bindKeys(gui); err != nil {
		return err
	}
	if err := ui.loadBoard(); err != nil {
		return err
	}

	if err := gui.MainLoop(); err != nil && !errors.Is(err, gocui.ErrQuit) {
		return err
	}

	return nil
}

func (u *UI) bindKeys(gui *gocui.Gui) error {
	if err := gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, u.quit); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'q', gocui.ModNone, u.quit); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'r', gocui.ModNone, u.reload); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'g', gocui.ModNone, u.clearFilters); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'f', gocui.ModNone, u.cycleDateFilter); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'a', gocui.ModNone, u.addTask); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'e', gocui.ModNone, u.editTask); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'd', gocui.ModNone, u.deleteTask); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'x', gocui.ModNone, u.toggleComplete); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'P', gocui.ModNone, u.openProjectCreate); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '/', gocui.ModNone, u.startSearch); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '?', gocui.ModNone, u.toggleHelp); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", gocui.KeyTab, gocui.ModNone, u.switchFocus); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '1', gocui.ModNone, u.focusProjects); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '2', gocui.ModNone, u.focusPending); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '3', gocui.ModNone, u.focusDone); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '4', gocui.ModNone, u.focusLabels); err != nil {
		return err
	}
	for _, name := range []string{viewProjects, viewPending, viewDone, viewLabels} {
		if err := gui.SetKeybinding(name, gocui.KeyArrowDown, gocui.ModNone, u.moveDown); err != nil {
			return err
		}
		if err := gui.SetKeybinding(name, 'j', gocui.ModNone, u.moveDown); err != nil {
			return err
		}
		if err := gui.SetKeybinding(name, gocui.KeyArrowUp, gocui.ModNone, u.moveUp); err != nil {
			return err
		}
		if err := gui.SetKeybinding(name, 'k', gocui.ModNone, u.moveUp); err != nil {
			return err
		}
	}
	if err := gui.SetKeybinding(viewProjects, gocui.KeyEnter, gocui.ModNone, u.toggleCollapse); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewProjects, 'p', gocui.ModNone, u.toggleProjectFilter); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewProjects, gocui.KeySpace, gocui.ModNone, u.toggleProjectFilter); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewLabels, gocui.KeySpace, gocui.ModNone, u.toggleLabelFilter); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewLabels, gocui.KeyEnter, gocui.ModNone, u.toggleLabelFilter); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewPending, gocui.KeyEnter, gocui.ModNone, u.editTask); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewDone, gocui.KeyEnter, gocui.ModNone, u.editTask); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewSearch, gocui.KeyEnter, gocui.ModNone, u.submitSearch); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewSearch, gocui.KeyEsc, gocui.ModNone, u.cancelSearch); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyEnter, gocui.ModNone, u.submitFormNow); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyCtrlJ, gocui.ModNone, u.submitFormNow); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyTab, gocui.ModNone, u.nextFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyBacktab, gocui.ModNone, u.prevFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyArrowDown, gocui.ModNone, u.nextFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyArrowUp, gocui.ModNone, u.prevFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyEsc, gocui.ModNone, u.cancelForm); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewHelp, gocui.KeyEsc, gocui.ModNone, u.closeHelp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewHelp, 'q', gocui.ModNone, u.closeHelp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewHelp, '?', gocui.ModNone, u.closeHelp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewPrompt, gocui.KeyEnter, gocui.ModNone, u.submitPrompt); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewPrompt, gocui.KeyEsc, gocui.ModNone, u.cancelPrompt); err != nil {
		return err
	}
	for _, name := range []string{viewProjects, viewPending, viewDone, viewLabels} {
		viewName := name
		if err := gui.SetViewClickBinding(&gocui.ViewMouseBinding{ViewName: viewName, Key: gocui.MouseLeft, Handler: func(opts gocui.ViewMouseBindingOpts) error {
			return u.onListClick(gui, viewName, opts)
		}}); err != nil {
			return err
		}
	}
	return u.bindMouseScroll(gui)
}

func (u *UI) layout(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	if maxX <= 0 || maxY <= 0 {
		return nil
	}

	headerView, err := gui.SetView(viewHeader, 0, 0, maxX-1, 0, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	headerView.Frame = false
	headerView.Wrap = true
	headerView.FgColor = gocui.ColorDefault
	u.renderHeader(headerView)

	footerY1 := max(maxY-2, 1)
	footerY0 := max(footerY1-2, 1)
	footerView, err := gui.SetView(viewFooter, 0, footerY0, maxX-1, footerY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	footerView.Frame = false
	footerView.Wrap = true
	footerView.FgColor = gocui.ColorDefault | gocui.AttrDim
	footerView.BgColor = gocui.ColorDefault
	u.renderFooter(footerView)

	bodyTop := 1
	bodyBottom := footerY0 - 1
	if bodyBottom < bodyTop {
		return nil
	}

	layout := computeLayout(maxX, bodyBottom-bodyTop+1)
	leftX0 := 0
	leftX1 := leftX0 + layout.leftWidth - 1
	rightX0 := leftX1 + 1
	if rightX0 >= maxX {
		rightX0 = leftX1
	}
	rightX1 := maxX - 1

	projectsY0 := bodyTop
	projectsY1 := projectsY0 + layout.projectsHeight - 1
	labelsY0 := projectsY1 + 1
	labelsY1 := bodyBottom

	pendingY0 := bodyTop
	pendingY1 := pendingY0 + layout.pendingHeight - 1
	doneY0 := pendingY1 + 1
	doneY1 := doneY0 + layout.doneHeight - 1
	detailY0 := doneY1 + 1
	detailY1 := bodyBottom

	projectsView, err := gui.SetView(viewProjects, leftX0, projectsY0, leftX1, projectsY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		projectsView.Title = "1 Projects"
		projectsView.TitleColor = gocui.ColorMagenta
	}
	applyViewStyle(projectsView, u.focus == viewProjects, true)
	u.renderProjects(projectsView)

	labelsView, err := gui.SetView(viewLabels, leftX0, labelsY0, leftX1, labelsY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		labelsView.Title = "4 Labels"
		labelsView.TitleColor = gocui.ColorCyan
	}
	applyViewStyle(labelsView, u.focus == viewLabels, false)
	u.renderLabels(labelsView)

	pendingView, err := gui.SetView(viewPending, rightX0, pendingY0, rightX1, pendingY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		pendingView.Title = "2 Pending"
		pendingView.TitleColor = gocui.ColorRed
	}
	applyViewStyle(pendingView, u.focus == viewPending, true)
	u.renderTaskList(pendingView, u.pending, u.selectedPending, u.focus == viewPending)

	doneView, err := gui.SetView(viewDone, rightX0, doneY0, rightX1, doneY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		doneView.Title = "3 Done"
		doneView.TitleColor = gocui.ColorGreen
	}
	applyViewStyle(doneView, u.focus == viewDone, true)
	u.renderTaskList(doneView, u.done, u.selectedDone, u.focus == viewDone)

	detailView, err := gui.SetView(viewDetail, rightX0, detailY0, rightX1, detailY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		detailView.Title = "Task"
		detailView.Wrap = true
	}
	applyViewStyle(detailView, false, false)
	u.renderDetail(detailView)

	_, _ = gui.SetViewOnTop(viewHeader)
	_, _ = gui.SetViewOnTop(viewFooter)

	if u.searchActive {
		if err := u.showSearch(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewSearch)
	}

	if u.form != nil {
		if err := u.showForm(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewForm)
	}

	if u.prompt != "" {
		if err := u.showPrompt(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewPrompt)
	}

	if u.helpActive {
		if err := u.showHelp(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewHelp)
	}

	if gui.CurrentView() == nil {
		_, _ = gui.SetCurrentView(u.focus)
	}

	gui.Cursor = u.searchActive || u.form != nil || u.prompt != ""

	return nil
}

type layout struct {
	leftWidth      int
	projectsHeight int
	labelsHeight   int
	pendingHeight  int
	doneHeight     int
	detailHeight   int
}

func computeLayout(width, height int) layout {
	safeWidth := max(width-2, 20)
	safeHeight := max(height, 8)

	leftWidth := safeWidth / 3
	if leftWidth < 26 {
		leftWidth = 26
	}
	if leftWidth > safeWidth-18 {
		leftWidth = safeWidth / 2
	}

	projectsHeight := max(int(float64(safeHeight)*0.6), 4)
	labelsHeight := safeHeight - projectsHeight
	if labelsHeight < 3 {
		labelsHeight = 3
		projectsHeight = max(safeHeight-labelsHeight, 4)
	}

	pendingHeight := max(int(float64(safeHeight)*0.45), 4)
	doneHeight := max(int(float64(safeHeight)*0.3), 3)
	detailHeight := safeHeight - pendingHeight - doneHeight
	if detailHeight < 3 {
		detailHeight = 3
		doneHeight = max(safeHeight-pendingHeight-detailHeight, 3)
	}

	return layout{
		leftWidth:      leftWidth,
		projectsHeight: projectsHeight,
		labelsHeight:   labelsHeight,
		pendingHeight:  pendingHeight,
		doneHeight:     doneHeight,
		detailHeight:   detailHeight,
	}
}

// loadBoard asks the planner for the board under the current filter and
// rebuilds every pane from it.
func (u *UI) loadBoard() error {
	board, err := u.planner.Board(context.Background(), u.owner, u.filter, u.keyword)
	if err != nil {
		return err
	}

	u.board = board
	u.projectRows = projecttree.Flatten(board.Tree, u.collapsed)
	u.projectOpts = buildProjectOptions(board.Tree)
	u.pending = board.Pending
	u.done = board.Completed
	u.labels = buildLabelEntries(board.Labels, board.Tasks, board.TaskLabels)
	u.counts = pendingByProject(board.Pending)

	if u.selectedProjects >= len(u.projectRows) {
		u.selectedProjects = max(len(u.projectRows)-1, 0)
	}
	if u.selectedPending >= len(u.pending) {
		u.selectedPending = max(len(u.pending)-1, 0)
	}
	if u.selectedDone >= len(u.done) {
		u.selectedDone = max(len(u.done)-1, 0)
	}
	if u.selectedLabels >= len(u.labels) {
		u.selectedLabels = max(len(u.labels)-1, 0)
	}
	if u.formLabelIndex >= len(u.labels) {
		u.formLabelIndex = max(len(u.labels)-1, 0)
	}
	return nil
}

func (u *UI) renderHeader(view *gocui.View) {
	view.Clear()
	query := u.keyword
	if query == "" {
		query = "type / to search"
	}

	projectLabel := "any"
	if u.filter.ProjectFilter != "" {
		projectLabel = projectPath(u.projectOpts, u.filter.ProjectFilter)
	}

	labelLabel := "any"
	if u.filter.LabelFilter != "" {
		labelLabel = u.labelName(u.filter.LabelFilter)
	}

	fmt.Fprintf(view, "Search: %s | Date: %s | Project: %s | Label: %s", query, u.filter.DateFilter, projectLabel, labelLabel)
}

func (u *UI) renderFooter(view *gocui.View) {
	view.Clear()
	view.SetOrigin(0, 0)
	view.SetCursor(0, 0)

	fmt.Fprintln(view, "a add | e edit | d delete | x done | P project | enter collapse/save | p project filter | space label filter")
	fmt.Fprintln(view, "f date | / search | g clear | r reload | tab cycle | 1-4 panes | ? help | q quit")
	if u.status != "" {
		fmt.Fprint(view, u.status)
	}
}

func (u *UI) renderProjects(view *gocui.View) {
	view.Clear()
	if len(u.projectRows) == 0 {
		fmt.Fprint(view, "no projects (P to add)")
		return
	}
	focused := u.focus == viewProjects
	for i, row := range u.projectRows {
		prefix := " "
		if i == u.selectedProjects {
			if focused {
				prefix = ">"
			} else {
				prefix = "*"
			}
		}

		marker := " "
		if row.HasChildren {
			if u.collapsed[row.Node.ID] {
				marker = "+"
			} else {
				marker = "-"
			}
		}

		active := ""
		if u.filter.ProjectFilter == row.Node.ID {
			active = " [x]"
		}

		fmt.Fprintf(view, "%s %s%s %s (%d)%s\n", prefix, strings.Repeat("  ", row.Depth), marker, row.Node.Name, u.counts[row.Node.ID], active)
	}
	for _, cycle := range u.board.Cycles {
		fmt.Fprintf(view, "! cycle: %s\n", strings.Join(cycle.Chain, " -> "))
	}
	if focused {
		view.SetCursor(0, min(u.selectedProjects, len(u.projectRows)-1))
	}
}

func (u *UI) renderTaskList(view *gocui.View, tasks []model.Task, selected int, focused bool) {
	view.Clear()
	for i, task := range tasks {
		prefix := " "
		if i == selected {
			if focused {
				prefix = ">"
			} else {
				prefix = "*"
			}
		}
		fmt.Fprintf(view, "%s %s\n", prefix, formatTaskSummary(task, u.board.TaskLabels[task.ID]))
	}
	if focused {
		view.SetCursor(0, min(selected, len(tasks)-1))
	}
}

func (u *UI) renderLabels(view *gocui.View) {
	view.Clear()
	for index, entry := range u.labels {
		prefix := " "
		if index == u.selectedLabels {
			prefix = ">"
		}
		marker := " "
		if u.filter.LabelFilter == entry.ID {
			marker = "x"
		}
		fmt.Fprintf(view, "%s [%s] %s %s (%d)\n", prefix, marker, entry.Name, entry.Color, entry.Count)
	}
	if u.focus == viewLabels {
		view.SetCursor(0, min(u.selectedLabels, len(u.labels)-1))
	}
}

func (u *UI) renderDetail(view *gocui.View) {
	view.Clear()
	selected := u.selectedTask()
	if selected == nil {
		fmt.Fprint(view, "No task selected")
		return
	}

	state := "pending"
	if selected.IsCompleted {
		state = "done"
	}

	lines := []string{
		selected.Title,
		fmt.Sprintf("Project: %s", projectPath(u.projectOpts, selected.ProjectID)),
		fmt.Sprintf("Due: %s", formatDue(*selected)),
		fmt.Sprintf("Labels: %s", formatLabels(u.board.TaskLabels[selected.ID])),
		fmt.Sprintf("State: %s", state),
		"",
		selected.Memo,
	}
	fmt.Fprint(view, strings.Join(lines, "\n"))
}

func (u *UI) onListClick(gui *gocui.Gui, viewName string, opts gocui.ViewMouseBindingOpts) error {
	if u.inputActive() {
		return nil
	}
	view, err := gui.View(viewName)
	if err != nil {
		return nil
	}

	_, y0, _, _ := view.Dimensions()
	_, oy := view.Origin()
	row := max(opts.Y-y0-1+oy, 0)

	switch viewName {
	case viewProjects:
		u.selectedProjects = max(min(row, len(u.projectRows)-1), 0)
	case viewPending:
		u.selectedPending = max(min(row, len(u.pending)-1), 0)
	case viewDone:
		u.selectedDone = max(min(row, len(u.done)-1), 0)
	case viewLabels:
		u.selectedLabels = max(min(row, len(u.labels)-1), 0)
	default:
		return nil
	}
	return u.setFocus(gui, viewName)
}

func (u *UI) bindMouseScroll(gui *gocui.Gui) error {
	views := []string{viewProjects, viewPending, viewDone, viewLabels, viewDetail}
	for _, name := range views {
		if err := gui.SetKeybinding(name, gocui.MouseWheelUp, gocui.ModNone, u.scrollUp); err != nil {
			return err
		}
		if err := gui.SetKeybinding(name, gocui.MouseWheelDown, gocui.ModNone, u.scrollDown); err != nil {
			return err
		}
	}
	return nil
}

func (u *UI) scrollUp(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if view == nil {
		view = gui.CurrentView()
	}
	if view == nil {
		return nil
	}
	view.ScrollUp(1)
	return nil
}

func (u *UI) scrollDown(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if view == nil {
		view = gui.CurrentView()
	}
	if view == nil {
		return nil
	}
	view.ScrollDown(1)
	return nil
}

func (u *UI) selectedTask() *model.Task {
	switch u.focus {
	case viewDone:
		if u.selectedDone >= 0 && u.selectedDone < len(u.done) {
			return &u.done[u.selectedDone]
		}
	default:
		if u.selectedPending >= 0 && u.selectedPending < len(u.pending) {
			return &u.pending[u.selectedPending]
		}
	}
	return nil
}

func (u *UI) selectedProject() *model.ProjectNode {
	if u.selectedProjects >= 0 && u.selectedProjects < len(u.projectRows) {
		return u.projectRows[u.selectedProjects].Node
	}
	return nil
}

func (u *UI) labelName(id string) string {
	for _, label := range u.board.Labels {
		if label.ID == id {
			return label.Name
		}
	}
	return id
}

func (u *UI) switchFocus(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}

	switch u.focus {
	case viewProjects:
		u.focus = viewPending
	case viewPending:
		u.focus = viewDone
	case viewDone:
		u.focus = viewLabels
	default:
		u.focus = viewProjects
	}
	_, _ = gui.SetCurrentView(u.focus)
	return u.reload(gui, nil)
}

func (u *UI) focusProjects(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewProjects)
}

func (u *UI) focusPending(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewPending)
}

func (u *UI) focusDone(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewDone)
}

func (u *UI) focusLabels(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewLabels)
}

func (u *UI) setFocus(gui *gocui.Gui, name string) error {
	if u.inputActive() {
		return nil
	}
	u.focus = name
	_, _ = gui.SetCurrentView(name)
	return u.reload(gui, nil)
}

func (u *UI) moveDown(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewProjects:
		if u.selectedProjects < len(u.projectRows)-1 {
			u.selectedProjects++
		}
	case viewPending:
		if u.selectedPending < len(u.pending)-1 {
			u.selectedPending++
		}
	case viewDone:
		if u.selectedDone < len(u.done)-1 {
			u.selectedDone++
		}
	case viewLabels:
		if u.selectedLabels < len(u.labels)-1 {
			u.selectedLabels++
		}
	}
	return nil
}

func (u *UI) moveUp(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewProjects:
		if u.selectedProjects > 0 {
			u.selectedProjects--
		}
	case viewPending:
		if u.selectedPending > 0 {
			u.selectedPending--
		}
	case viewDone:
		if u.selectedDone > 0 {
			u.selectedDone--
		}
	case viewLabels:
		if u.selectedLabels > 0 {
			u.selectedLabels--
		}
	}
	return nil
}

func (u *UI) reload(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.status = ""
	return u.loadBoard()
}

func (u *UI) clearFilters(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.filter = model.DefaultFilterState()
	u.keyword = ""
	return u.reload(gui, nil)
}

func (u *UI) cycleDateFilter(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.filter.DateFilter = u.filter.DateFilter.Next()
	return u.reload(gui, nil)
}

func (u *UI) toggleProjectFilter(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus != viewProjects {
		return nil
	}
	selected := u.selectedProject()
	if selected == nil {
		return nil
	}
	if u.filter.ProjectFilter == selected.ID {
		u.filter.ProjectFilter = ""
	} else {
		u.filter.ProjectFilter = selected.ID
	}
	return u.reload(gui, nil)
}

func (u *UI) toggleLabelFilter(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus != viewLabels {
		return nil
	}
	if u.selectedLabels < 0 || u.selectedLabels >= len(u.labels) {
		return nil
	}
	id := u.labels[u.selectedLabels].ID
	if u.filter.LabelFilter == id {
		u.filter.LabelFilter = ""
	} else {
		u.filter.LabelFilter = id
	}
	return u.reload(gui, nil)
}

func (u *UI) toggleCollapse(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus != viewProjects {
		return nil
	}
	if u.selectedProjects < 0 || u.selectedProjects >= len(u.projectRows) {
		return nil
	}
	row := u.projectRows[u.selectedProjects]
	if !row.HasChildren {
		return nil
	}
	u.collapsed[row.Node.ID] = !u.collapsed[row.Node.ID]
	return u.loadBoard()
}

func (u *UI) startSearch(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.searchActive = true
	return nil
}

func (u *UI) showSearch(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(30, maxX/2)
	height := 3
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewSearch, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Search"
		view.Wrap = true
		view.Clear()
		fmt.Fprint(view, u.keyword)
	}
	view.Editable = true
	view.Editor = gocui.DefaultEditor
	_, _ = gui.SetCurrentView(viewSearch)
	return nil
}

func (u *UI) submitSearch(gui *gocui.Gui, view *gocui.View) error {
	u.keyword = strings.TrimSpace(view.Buffer())
	u.searchActive = false
	u.status = ""
	_ = gui.DeleteView(viewSearch)
	_, _ = gui.SetCurrentView(u.focus)
	return u.loadBoard()
}

func (u *UI) cancelSearch(gui *gocui.Gui, _ *gocui.View) error {
	u.searchActive = false
	_ = gui.DeleteView(viewSearch)
	_, _ = gui.SetCurrentView(u.focus)
	return nil
}

func (u *UI) toggleHelp(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() && !u.helpActive {
		return nil
	}
	u.helpActive = !u.helpActive
	return nil
}

func (u *UI) closeHelp(gui *gocui.Gui, _ *gocui.View) error {
	u.helpActive = false
	_ = gui.DeleteView(viewHelp)
	_, _ = gui.SetCurrentView(u.focus)
	return nil
}

func (u *UI) showHelp(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := min(24, max(maxY-4, 8))
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewHelp, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Help"
		view.Wrap = true
	}
	view.Clear()
	fmt.Fprint(view, helpText())
	_, _ = gui.SetCurrentView(viewHelp)
	return nil
}

// openProjectCreate starts a project prompt. With the Projects pane focused
// the new project goes under the selected one.
func (u *UI) openProjectCreate(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.promptParentID = ""
	if u.focus == viewProjects {
		if selected := u.selectedProject(); selected != nil {
			u.promptParentID = selected.ID
		}
	}
	u.prompt = promptProject
	return nil
}

func (u *UI) openLabelCreate() {
	u.prompt = promptLabel
	u.promptParentID = ""
}

func (u *UI) showPrompt(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(40, maxX/3)
	height := 3
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewPrompt, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Wrap = true
		view.Clear()
	}
	switch {
	case u.prompt == promptLabel:
		view.Title = "New Label (name [#color])"
	case u.promptParentID != "":
		view.Title = "New Project under " + projectPath(u.projectOpts, u.promptParentID)
	default:
		view.Title = "New Project"
	}
	view.Editable = true
	view.Editor = gocui.DefaultEditor
	_, _ = gui.SetCurrentView(viewPrompt)
	return nil
}

func (u *UI) submitPrompt(gui *gocui.Gui, view *gocui.View) error {
	if u.prompt == "" {
		return nil
	}
	if err := u.createFromPrompt(view.Buffer()); err != nil {
		u.status = err.Error()
		return nil
	}
	return u.closePrompt(gui)
}

// createFromPrompt creates the label or project the prompt was opened for.
// Blank input creates nothing.
func (u *UI) createFromPrompt(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	ctx := context.Background()
	switch u.prompt {
	case promptLabel:
		name, color := splitLabelInput(value)
		if _, err := u.planner.CreateLabel(ctx, u.owner, name, color); err != nil {
			return err
		}
	case promptProject:
		if _, err := u.planner.CreateProject(ctx, u.owner, value, u.promptParentID); err != nil {
			return err
		}
	}
	return nil
}

// splitLabelInput reads "name #color"; the color is optional.
func splitLabelInput(value string) (string, string) {
	fields := strings.Fields(value)
	if len(fields) > 1 && strings.HasPrefix(fields[len(fields)-1], "#") {
		return strings.Join(fields[:len(fields)-1], " "), fields[len(fields)-1]
	}
	return value, ""
}

func (u *UI) cancelPrompt(gui *gocui.Gui, _ *gocui.View) error {
	if u.prompt == "" {
		return nil
	}
	return u.closePrompt(gui)
}

func (u *UI) closePrompt(gui *gocui.Gui) error {
	u.prompt = ""
	u.promptParentID = ""
	_ = gui.DeleteView(viewPrompt)
	_, _ = gui.SetCurrentView(u.focus)
	return u.loadBoard()
}

func (u *UI) addTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.focus == viewLabels {
		u.openLabelCreate()
		return nil
	}
	if len(u.projectOpts) == 0 {
		u.status = "add a project first (P)"
		return nil
	}

	projectID := u.filter.ProjectFilter
	if u.focus == viewProjects {
		if selected := u.selectedProject(); selected != nil {
			projectID = selected.ID
		}
	}
	if projectPath(u.projectOpts, projectID) == "" {
		projectID = u.projectOpts[0].ID
	}
	u.form = &formState{fields: buildFormFields(nil, nil, u.projectOpts, projectID)}
	u.formLabelIndex = 0
	return nil
}

func (u *UI) editTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	fields := buildFormFields(selected, u.board.TaskLabels[selected.ID], u.projectOpts, selected.ProjectID)
	u.form = &formState{taskID: selected.ID, fields: fields}
	u.formLabelIndex = 0
	return nil
}

func (u *UI) showForm(gui *gocui.Gui) error {
	if u.form == nil {
		return nil
	}

	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := min(10, max(8, maxY/2))
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewForm, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Wrap = true
	}
	if u.form.taskID != "" {
		view.Title = "Edit Task"
	} else {
		view.Title = "New Task"
	}
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.formEditor
	u.renderForm(view)
	_, _ = gui.SetCurrentView(viewForm)
	return nil
}

func (u *UI) submitFormNow(gui *gocui.Gui, _ *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if err := u.saveForm(); err != nil {
		u.status = err.Error()
		return nil
	}

	u.form = nil
	_ = gui.DeleteView(viewForm)
	_, _ = gui.SetCurrentView(u.focus)
	return u.loadBoard()
}

// saveForm writes the open form through the planner. Label associations
// that could not be written are reported on the status line; the task
// itself is kept.
func (u *UI) saveForm() error {
	input, labelIDs, err := parseFormFields(u.form.fields, u.projectOpts, u.board.Labels)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if u.form.taskID == "" {
		_, err = u.planner.CreateTaskWithLabels(ctx, u.owner, input, labelIDs, false)
	} else {
		if _, err := u.planner.UpdateTask(ctx, u.owner, u.form.taskID, taskPatch(input)); err != nil {
			return err
		}
		err = u.planner.SetTaskLabels(ctx, u.owner, u.form.taskID, labelIDs)
	}

	var partial *planner.PartialFailureError
	if errors.As(err, &partial) {
		u.status = partial.Error()
		return nil
	}
	if err != nil {
		return err
	}
	u.status = ""
	return nil
}

func (u *UI) cancelForm(gui *gocui.Gui, _ *gocui.View) error {
	u.form = nil
	_ = gui.DeleteView(viewForm)
	_, _ = gui.SetCurrentView(u.focus)
	return nil
}

func (u *UI) nextFormField(_ *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index < len(u.form.fields)-1 {
		u.form.index++
	}
	u.renderForm(view)
	return nil
}

func (u *UI) prevFormField(_ *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index > 0 {
		u.form.index--
	}
	u.renderForm(view)
	return nil
}

func (u *UI) renderForm(view *gocui.View) {
	if u.form == nil || view == nil {
		return
	}
	view.Clear()
	for index, field := range u.form.fields {
		prefix := "  "
		if index == u.form.index {
			prefix = "> "
		}
		value := field.Value
		if index == fieldLabels {
			if candidate := u.currentLabelOption(); candidate != "" {
				value = fmt.Sprintf("%s [pick: %s]", value, candidate)
			}
		}
		fmt.Fprintf(view, "%s%s: %s\n", prefix, field.Label, value)
	}
	label := u.form.fields[u.form.index].Label + ": "
	cursorX := len([]rune(label)) + len([]rune(u.form.fields[u.form.index].Value)) + 2
	view.SetCursor(cursorX, u.form.index)
}

func (e *formEditor) Edit(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	ui := e.ui
	if ui == nil || ui.form == nil || view == nil {
		return false
	}
	ui.editField(key, ch, mod)
	ui.renderForm(view)
	return true
}

// editField applies one key press to the focused form field. The project
// and labels fields pick from the board instead of taking text.
func (u *UI) editField(key gocui.Key, ch rune, mod gocui.Modifier) {
	field := &u.form.fields[u.form.index]

	switch u.form.index {
	case fieldProject:
		paths := make([]string, 0, len(u.projectOpts))
		for _, option := range u.projectOpts {
			paths = append(paths, option.Path)
		}
		switch key {
		case gocui.KeyArrowRight, gocui.KeySpace:
			field.Value = cycleOption(paths, field.Value, 1)
		case gocui.KeyArrowLeft:
			field.Value = cycleOption(paths, field.Value, -1)
		}
		return
	case fieldLabels:
		switch key {
		case gocui.KeyArrowRight:
			u.formLabelIndex = max(min(u.formLabelIndex+1, len(u.labels)-1), 0)
		case gocui.KeyArrowLeft:
			u.formLabelIndex = max(u.formLabelIndex-1, 0)
		case gocui.KeySpace:
			if candidate := u.currentLabelOption(); candidate != "" {
				field.Value = toggleName(field.Value, candidate)
			}
		}
		return
	}

	switch key {
	case gocui.KeyBackspace, gocui.KeyBackspace2:
		runes := []rune(field.Value)
		if len(runes) > 0 {
			field.Value = string(runes[:len(runes)-1])
		}
	case gocui.KeySpace:
		field.Value += " "
	case gocui.KeyCtrlU:
		field.Value = ""
	}

	if ch != 0 && ch != '\n' && ch != '\r' && mod == 0 {
		field.Value += string(ch)
	}
}

func (u *UI) currentLabelOption() string {
	if len(u.labels) == 0 {
		return ""
	}
	u.formLabelIndex = max(min(u.formLabelIndex, len(u.labels)-1), 0)
	return u.labels[u.formLabelIndex].Name
}

// deleteTask deletes what the focused pane has selected: a task, a project
// or a label.
func (u *UI) deleteTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	ctx := context.Background()
	switch u.focus {
	case viewProjects:
		selected := u.selectedProject()
		if selected == nil {
			return nil
		}
		if err := u.planner.DeleteProject(ctx, u.owner, selected.ID); err != nil {
			u.status = err.Error()
			return nil
		}
		if u.filter.ProjectFilter == selected.ID {
			u.filter.ProjectFilter = ""
		}
	case viewLabels:
		if u.selectedLabels < 0 || u.selectedLabels >= len(u.labels) {
			return nil
		}
		entry := u.labels[u.selectedLabels]
		if err := u.planner.DeleteLabel(ctx, u.owner, entry.ID); err != nil {
			u.status = err.Error()
			return nil
		}
		if u.filter.LabelFilter == entry.ID {
			u.filter.LabelFilter = ""
		}
	default:
		selected := u.selectedTask()
		if selected == nil {
			return nil
		}
		if err := u.planner.DeleteTask(ctx, u.owner, selected.ID); err != nil {
			u.status = err.Error()
			return nil
		}
	}
	u.status = ""
	return u.loadBoard()
}

func (u *UI) toggleComplete(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	if _, err := u.planner.ToggleComplete(context.Background(), u.owner, selected.ID); err != nil {
		u.status = err.Error()
		return nil
	}
	u.status = ""
	return u.loadBoard()
}

func (u *UI) inputActive() bool {
	return u.searchActive || u.form != nil || u.helpActive || u.prompt != ""
}

func (u *UI) quit(_ *gocui.Gui, _ *gocui.View) error {
	return gocui.ErrQuit
}

func helpText() string {
	return strings.Join([]string{
		"Navigation:",
		"  Tab cycle panes (projects/pending/done/labels)",
		"  1 Projects | 2 Pending | 3 Done | 4 Labels",
		"  j/k or arrows move selection",
		"  mouse click to focus/select, wheel scrolls hovered pane",
		"",
		"Actions:",
		"  a add task (add label in Labels) | e or enter edit task",
		"  x toggle done | d delete task/project/label",
		"  P add project (under the selected one in Projects)",
		"  enter collapse/expand (Projects) | enter save (form) | tab next field",
		"",
		"Filters:",
		"  f cycle date (all/today/next7days) | / search | g clear filters",
		"  p or space filter by project (Projects)",
		"  space filter by label (Labels)",
		"",
		"Form:",
		"  space/left/right cycle project | left/right pick, space toggle label",
		"",
		"Other:",
		"  r reload | ? help | esc/q close help | q quit",
	}, "\n")
}

func applyViewStyle(view *gocui.View, focused bool, highlight bool) {
	view.Frame = true
	view.Highlight = focused && highlight
	view.HighlightInactive = false
	view.SelBgColor = gocui.ColorBlue
	view.SelFgColor = gocui.ColorBlack
	view.InactiveViewSelBgColor = gocui.ColorDefault
	if focused {
		view.FrameColor = gocui.ColorCyan
		view.TitleColor = gocui.ColorCyan
	} else {
		view.FrameColor = gocui.ColorDefault
	}
}
