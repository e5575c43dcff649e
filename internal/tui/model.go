// Package tui is the terminal surface: a bubbletea program that drives one
// session and draws the file tree of the current commit.
package tui

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Sumatoshi-tech/codeatlas/pkg/hierarchy"
	"github.com/Sumatoshi-tech/codeatlas/pkg/plotpage"
	"github.com/Sumatoshi-tech/codeatlas/pkg/session"
)

const (
	hotspotPanelWidth = 40
	minSplitWidth     = 90
	chromeHeight      = 8
	barWidth          = 12
)

// Options configures a Model.
type Options struct {
	// Title names the repository in the header.
	Title string
	Theme plotpage.Theme
}

type responseMsg session.Response

type sessionEndedMsg struct{}

type errMsg struct{ err error }

// Model is the bubbletea model of the history browser.
type Model struct {
	sess   *session.Session
	title  string
	styles Styles
	copy   func(string) error

	view     *session.View
	rows     []hierarchy.Row
	expanded map[string]bool
	selected int
	offset   int

	pending  bool
	lastReq  session.Request
	status   string
	errText  string
	canRetry bool

	input     textinput.Model
	inputting bool
	help      help.Model
	spinner   spinner.Model

	width  int
	height int
}

// New creates a model that talks to sess.
func New(sess *session.Session, opts Options) *Model {
	input := textinput.New()
	input.Placeholder = "commit id or prefix"
	input.Prompt = "go to: "
	input.CharLimit = 40

	return &Model{
		sess:     sess,
		title:    opts.Title,
		styles:   NewStyles(opts.Theme),
		copy:     clipboard.WriteAll,
		expanded: make(map[string]bool),
		input:    input,
		help:     help.New(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

// Run shows the model full screen until the user quits or ctx ends.
func Run(ctx context.Context, sess *session.Session, opts Options) error {
	program := tea.NewProgram(New(sess, opts), tea.WithAltScreen(), tea.WithContext(ctx))

	_, err := program.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run terminal ui: %w", err)
	}

	return nil
}

// Init requests the oldest commit and starts listening for responses.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.request(session.Fetch(0)), m.waitResponse, m.spinner.Tick)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.scroll()

		return m, nil

	case responseMsg:
		m.apply(session.Response(msg))

		return m, m.waitResponse

	case sessionEndedMsg:
		return m, tea.Quit

	case errMsg:
		m.pending = false
		m.errText = msg.err.Error()

		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case tea.KeyMsg:
		if m.inputting {
			return m, m.updateInput(msg)
		}

		return m, m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	m.status = ""

	switch {
	case key.Matches(msg, Keys.Quit):
		return tea.Quit
	case key.Matches(msg, Keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, Keys.Up):
		if m.selected > 0 {
			m.selected--
			m.scroll()
		}
	case key.Matches(msg, Keys.Down):
		if m.selected < len(m.rows)-1 {
			m.selected++
			m.scroll()
		}
	case key.Matches(msg, Keys.Toggle):
		if node := m.selectedNode(); node != nil && node.Dir {
			m.expanded[node.Path] = !m.expanded[node.Path]
			m.refreshRows(node.Path)
		}
	case key.Matches(msg, Keys.Next):
		return m.request(session.Request{Command: session.CommandNext})
	case key.Matches(msg, Keys.Prev):
		return m.request(session.Request{Command: session.CommandPrev})
	case key.Matches(msg, Keys.First):
		return m.request(session.Fetch(0))
	case key.Matches(msg, Keys.Last):
		if m.view != nil {
			return m.request(session.Fetch(m.view.Total - 1))
		}
	case key.Matches(msg, Keys.Origin):
		if node := m.selectedNode(); node != nil && !node.Dir {
			return m.request(session.Request{Command: session.CommandOrigin, Path: node.Path})
		}
	case key.Matches(msg, Keys.Goto):
		m.inputting = true
		m.input.Reset()

		return m.input.Focus()
	case key.Matches(msg, Keys.Copy):
		m.copyCommit()
	case key.Matches(msg, Keys.Retry):
		if m.canRetry {
			return m.request(m.lastReq)
		}
	}

	return nil
}

func (m *Model) updateInput(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type { //nolint:exhaustive // other keys go to the input.
	case tea.KeyEsc:
		m.inputting = false
		m.input.Blur()

		return nil
	case tea.KeyEnter:
		m.inputting = false
		m.input.Blur()

		id := strings.TrimSpace(m.input.Value())
		if id == "" {
			return nil
		}

		return m.request(session.Request{Command: session.CommandCommit, ID: id})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	return cmd
}

func (m *Model) copyCommit() {
	if m.view == nil {
		return
	}

	err := m.copy(m.view.Commit.ID)
	if err != nil {
		m.errText = "copy failed: " + err.Error()

		return
	}

	m.status = "copied " + m.view.Commit.ShortID()
}

// request queues req on the session. The response arrives through
// waitResponse.
func (m *Model) request(req session.Request) tea.Cmd {
	m.pending = true
	m.lastReq = req
	m.errText = ""
	m.canRetry = false
	sess := m.sess

	return func() tea.Msg {
		err := sess.Send(context.Background(), req)
		if errors.Is(err, session.ErrClosed) {
			return sessionEndedMsg{}
		}

		if err != nil {
			return errMsg{err}
		}

		return nil
	}
}

func (m *Model) waitResponse() tea.Msg {
	resp, ok := <-m.sess.Responses()
	if !ok {
		return sessionEndedMsg{}
	}

	return responseMsg(resp)
}

func (m *Model) apply(resp session.Response) {
	m.pending = false

	if resp.Command == session.CommandError {
		m.errText = resp.Error
		m.canRetry = resp.Retryable

		return
	}

	if resp.Boundary {
		m.status = "no commit beyond this point"
	}

	keep := ""
	if node := m.selectedNode(); node != nil {
		keep = node.Path
	}

	m.view = resp.Data

	for _, changed := range m.view.Snapshot.FilesChanged {
		for dir := path.Dir(changed); dir != "." && dir != "/"; dir = path.Dir(dir) {
			m.expanded[dir] = true
		}
	}

	m.refreshRows(keep)
}

// refreshRows re-flattens the tree and keeps keep selected when it is
// still visible.
func (m *Model) refreshRows(keep string) {
	if m.view == nil || m.view.Tree == nil {
		m.rows = nil

		return
	}

	m.rows = hierarchy.Flatten(m.view.Tree, m.expanded)

	for i, row := range m.rows {
		if row.Node.Path == keep {
			m.selected = i
			m.scroll()

			return
		}
	}

	m.selected = min(m.selected, max(len(m.rows)-1, 0))
	m.scroll()
}

func (m *Model) selectedNode() *hierarchy.Node {
	if m.selected >= 0 && m.selected < len(m.rows) {
		return m.rows[m.selected].Node
	}

	return nil
}

func (m *Model) treeHeight() int {
	return max(m.height-chromeHeight, 1)
}

func (m *Model) scroll() {
	height := m.treeHeight()

	if m.selected < m.offset {
		m.offset = m.selected
	}

	if m.selected >= m.offset+height {
		m.offset = m.selected - height + 1
	}

	m.offset = max(m.offset, 0)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.view == nil {
		if m.errText != "" {
			return m.styles.Error.Render(m.errText) + "\n"
		}

		return m.spinner.View() + " loading history…\n"
	}

	var b strings.Builder

	b.WriteString(m.header())
	b.WriteString("\n\n")

	tree := m.tree()
	if m.width >= minSplitWidth {
		tree = lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(m.width-hotspotPanelWidth-1).Render(tree),
			m.styles.Panel.Width(hotspotPanelWidth-4).Render(m.hotspots()))
	}

	b.WriteString(tree)
	b.WriteString("\n")
	b.WriteString(m.footer())

	return b.String()
}

func (m *Model) header() string {
	v := m.view
	title := m.title

	if title == "" {
		title = "codeatlas"
	}

	line := fmt.Sprintf("%s  %d/%d  %s  %s",
		m.styles.Title.Render(title),
		v.Position+1, v.Total,
		m.styles.Muted.Render(v.Commit.ShortID()),
		m.styles.Muted.Render(v.Commit.Author+", "+v.Commit.Timestamp.Format("2006-01-02 15:04")))

	return line + "\n" + m.styles.Subtitle.Render(v.Commit.Subject())
}

func (m *Model) tree() string {
	end := min(m.offset+m.treeHeight(), len(m.rows))
	lines := make([]string, 0, end-m.offset)

	for i := m.offset; i < end; i++ {
		lines = append(lines, m.renderRow(m.rows[i], i == m.selected))
	}

	return strings.Join(lines, "\n")
}

func (m *Model) renderRow(row hierarchy.Row, selected bool) string {
	node := row.Node
	indent := strings.Repeat("  ", row.Depth)

	prefix := treeLeaf
	style := m.styles.Of(node.Color)
	text := node.Name

	if node.Dir {
		prefix = treeCollapsed
		if m.expanded[node.Path] {
			prefix = treeExpanded
		}

		style = m.styles.Folder
		text = fmt.Sprintf("%s/ (%d)", node.Name, node.Value)
	}

	if selected {
		style = m.styles.Selected
	}

	line := indent + m.styles.Muted.Render(prefix) + style.Render(text)
	if !node.Dir {
		line += m.styles.Muted.Render(fmt.Sprintf("  @%d", node.LastModifiedIndex+1))
	}

	return line
}

func (m *Model) hotspots() string {
	entries := m.view.Hotspots
	if len(entries) == 0 {
		return m.styles.Muted.Render("no changes yet")
	}

	top := entries[0].Count
	lines := []string{m.styles.Title.Render("Hotspots")}

	for _, e := range entries[:min(len(entries), m.treeHeight()-1)] {
		bar := strings.Repeat("█", max(e.Count*barWidth/top, 1))
		lines = append(lines, fmt.Sprintf("%s %3d %s", m.styles.Bar.Render(fmt.Sprintf("%-*s", barWidth, bar)), e.Count, path.Base(e.Path)))
	}

	return strings.Join(lines, "\n")
}

func (m *Model) footer() string {
	var b strings.Builder

	switch {
	case m.inputting:
		b.WriteString(m.input.View())
	case m.errText != "":
		b.WriteString(m.styles.Error.Render(m.errText))

		if m.canRetry {
			b.WriteString(m.styles.Muted.Render("  (r to retry)"))
		}
	case m.pending:
		b.WriteString(m.spinner.View())
	case m.status != "":
		b.WriteString(m.styles.Muted.Render(m.status))
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(Keys))

	return b.String()
}

