// Package tui is the interactive document browser.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docflow/internal/collection"
	"docflow/internal/gateway"
	"docflow/internal/model"
	"docflow/internal/policy"
	"docflow/internal/remote"
)

// Commands is the mutating surface the browser drives.
type Commands interface {
	Perform(ctx context.Context, doc model.Document, a policy.Action) (*model.Document, error)
	UpdateName(ctx context.Context, doc model.Document, name string) (*model.Document, error)
	ReplaceContent(ctx context.Context, doc model.Document, file remote.File) (*model.Document, error)
	Submitting(id string) bool
}

var sortOrders = []string{"createdAt,desc", "updatedAt,desc", "name,asc", "status,asc"}

type mode int

const (
	modeBrowse mode = iota
	modeActions
	modeRename
	modeReplace
)

type snapshotMsg struct{ snap collection.Snapshot }

type commandDoneMsg struct {
	action policy.Action
	doc    model.Document
	err    error
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	selectedItem = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
)

// Model is the bubbletea model of the browser.
type Model struct {
	ctx   context.Context
	docs  *collection.Synchronizer
	cmds  Commands
	roles gateway.RoleSource

	table table.Model
	input textinput.Model
	snap  collection.Snapshot

	mode      mode
	sortIdx   int
	actions   []policy.Action
	actionIdx int
	target    model.Document

	status string
	err    error
	width  int
}

// New builds a browser over docs. Mutations go through cmds.
func New(ctx context.Context, docs *collection.Synchronizer, cmds Commands, roles gateway.RoleSource) *Model {
	t := table.New(table.WithFocused(true), table.WithHeight(12))
	in := textinput.New()
	in.CharLimit = model.NameMaxLength

	m := &Model{
		ctx:   ctx,
		docs:  docs,
		cmds:  cmds,
		roles: roles,
		table: t,
		input: in,
		snap:  docs.Snapshot(),
		width: 100,
	}
	m.table.SetColumns(m.columns())
	return m
}

// Run shows the browser until the user quits. The synchronizer is
// disposed on return.
func Run(ctx context.Context, docs *collection.Synchronizer, cmds Commands, roles gateway.RoleSource) error {
	defer docs.Dispose()

	m := New(ctx, docs, cmds, roles)
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	defer forward(docs, p)()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// forward delivers synchronizer snapshots to p as messages. Delivery blocks
// until the event loop reads the message, so Update changes the
// synchronizer only through reload.
func forward(docs *collection.Synchronizer, p *tea.Program) (unsubscribe func()) {
	return docs.Subscribe(func(s collection.Snapshot) {
		p.Send(snapshotMsg{snap: s})
	})
}

// reload runs change as a command, off the event loop.
func reload(change func()) tea.Cmd {
	return func() tea.Msg {
		change()
		return nil
	}
}

func (m *Model) Init() tea.Cmd {
	return reload(m.docs.Refresh)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetHeight(max(5, msg.Height-10))
		m.table.SetColumns(m.columns())
		return m, nil

	case snapshotMsg:
		m.applySnapshot(msg.snap)
		return m, nil

	case commandDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = ""
		} else {
			m.err = nil
			m.status = fmt.Sprintf("%s: %s", msg.action.Label(), msg.doc.Name)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeActions:
			return m.updateActions(msg)
		case modeRename, modeReplace:
			return m.updateInput(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m *Model) applySnapshot(s collection.Snapshot) {
	m.snap = s
	m.table.SetColumns(m.columns())
	rows := make([]table.Row, 0, len(s.Page.Results))
	for _, d := range s.Page.Results {
		row := table.Row{d.Name, d.Status.Label(), d.UpdatedAt.Local().Format("2006-01-02 15:04")}
		if m.reviewer() {
			creator := ""
			if d.Creator != nil {
				creator = d.Creator.FullName
			}
			row = append(row, creator)
		}
		rows = append(rows, row)
	}
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

func (m *Model) reviewer() bool {
	return m.roles.Role() == model.RoleReviewer
}

func (m *Model) columns() []table.Column {
	name := max(20, m.width-60)
	cols := []table.Column{
		{Title: "Name", Width: name},
		{Title: "Status", Width: 18},
		{Title: "Updated", Width: 16},
	}
	if m.reviewer() {
		cols = append(cols, table.Column{Title: "Creator", Width: 20})
	}
	return cols
}

func (m *Model) selected() (model.Document, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.snap.Page.Results) {
		return model.Document{}, false
	}
	return m.snap.Page.Results[i], true
}

func (m *Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "r":
		m.status = "refreshing"
		return m, reload(m.docs.Refresh)
	case "n", "right":
		if next := m.snap.Query.Page + 1; next < m.snap.Pages() {
			return m, reload(func() { m.docs.SetPage(next) })
		}
		return m, nil
	case "p", "left":
		if prev := m.snap.Query.Page - 1; prev >= 0 {
			return m, reload(func() { m.docs.SetPage(prev) })
		}
		return m, nil
	case "s":
		m.sortIdx = (m.sortIdx + 1) % len(sortOrders)
		sort := sortOrders[m.sortIdx]
		return m, reload(func() { m.docs.SetSort(sort) })
	case "enter", "a":
		doc, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.actions = policy.Allowed(m.roles.Role(), doc.Status)
		if len(m.actions) == 0 {
			m.status = "no actions available for " + doc.Status.Label()
			return m, nil
		}
		m.target = doc
		m.actionIdx = 0
		m.mode = modeActions
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) updateActions(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.mode = modeBrowse
	case "up", "k":
		if m.actionIdx > 0 {
			m.actionIdx--
		}
	case "down", "j":
		if m.actionIdx < len(m.actions)-1 {
			m.actionIdx++
		}
	case "enter":
		act := m.actions[m.actionIdx]
		switch act {
		case policy.EditName:
			m.mode = modeRename
			m.input.Placeholder = "new name"
			m.input.SetValue(m.target.Name)
			return m, m.input.Focus()
		case policy.ReplaceContent:
			m.mode = modeReplace
			m.input.Placeholder = "path to PDF"
			m.input.SetValue("")
			return m, m.input.Focus()
		}
		m.mode = modeBrowse
		return m, m.perform(act)
	}
	return m, nil
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.input.Blur()
		m.mode = modeBrowse
		return m, nil
	case "enter":
		if m.cmds.Submitting(m.target.ID) {
			m.status = "a change to this document is still in progress"
			return m, nil
		}
		value := strings.TrimSpace(m.input.Value())
		act := policy.EditName
		if m.mode == modeReplace {
			act = policy.ReplaceContent
		}
		m.input.Blur()
		m.mode = modeBrowse
		return m, m.submitInput(act, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) perform(act policy.Action) tea.Cmd {
	ctx, cmds, doc := m.ctx, m.cmds, m.target
	m.status = act.Label() + "..."
	return func() tea.Msg {
		updated, err := cmds.Perform(ctx, doc, act)
		if updated != nil {
			doc = *updated
		}
		return commandDoneMsg{action: act, doc: doc, err: err}
	}
}

func (m *Model) submitInput(act policy.Action, value string) tea.Cmd {
	ctx, cmds, doc := m.ctx, m.cmds, m.target
	m.status = act.Label() + "..."
	return func() tea.Msg {
		var (
			updated *model.Document
			err     error
		)
		if act == policy.EditName {
			updated, err = cmds.UpdateName(ctx, doc, value)
		} else {
			updated, err = replaceFromPath(ctx, cmds, doc, value)
		}
		if updated != nil {
			doc = *updated
		}
		return commandDoneMsg{action: act, doc: doc, err: err}
	}
}

func replaceFromPath(ctx context.Context, cmds Commands, doc model.Document, path string) (*model.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return cmds.ReplaceContent(ctx, doc, remote.File{Filename: filepath.Base(path), Content: f})
}

func (m *Model) View() string {
	var b strings.Builder

	role := m.roles.Role()
	b.WriteString(titleStyle.Render("docflow") + mutedStyle.Render(" · "+string(role)) + "\n\n")
	b.WriteString(boxStyle.Render(m.table.View()) + "\n")

	pages := max(1, m.snap.Pages())
	footer := fmt.Sprintf("page %d/%d · %d documents · sort %s", m.snap.Query.Page+1, pages, m.snap.Page.Count, sortOrders[m.sortIdx])
	if m.snap.Loading {
		footer += " · loading"
	}
	b.WriteString(mutedStyle.Render(footer) + "\n")

	switch m.mode {
	case modeActions:
		b.WriteString("\n" + titleStyle.Render(m.target.Name) + "\n")
		for i, act := range m.actions {
			line := "  " + act.Label()
			if i == m.actionIdx {
				line = selectedItem.Render("> " + act.Label())
			}
			b.WriteString(line + "\n")
		}
	case modeRename, modeReplace:
		label := "Rename"
		if m.mode == modeReplace {
			label = "Replace file"
		}
		b.WriteString("\n" + label + ": " + m.input.View() + "\n")
	}

	switch {
	case m.err != nil:
		b.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	case m.snap.Err != nil:
		b.WriteString("\n" + errorStyle.Render(m.snap.Err.Error()) + "\n")
	case m.status != "":
		b.WriteString("\n" + okStyle.Render(m.status) + "\n")
	}

	b.WriteString("\n" + mutedStyle.Render(m.help()))
	return b.String()
}

func (m *Model) help() string {
	switch m.mode {
	case modeActions:
		return "↑/↓ choose · enter run · esc back"
	case modeRename, modeReplace:
		return "enter confirm · esc cancel"
	}
	return "↑/↓ move · enter actions · n/p page · s sort · r refresh · q quit"
}
