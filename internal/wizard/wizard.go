// Package wizard implements the interactive Bubble Tea package picker.
// It lists the root and member packages of a project as a checkbox list
// with a type-to-filter input, followed by a confirmation screen.
// When Options.Yes is set or Options.Names is given the TUI is skipped.
package wizard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kb-labs/pkgops/internal/workspace"
)

// ErrCancelled is returned when the user quits the picker.
var ErrCancelled = errors.New("selection cancelled")

// Options controls the picker.
type Options struct {
	// Title names the action, e.g. "sort manifests".
	Title string
	// Yes skips the TUI and selects every package.
	Yes bool
	// Names pre-fills the selection by package or directory name and skips
	// the TUI.
	Names []string
}

// Select returns the packages the user picked, in the order given.
func Select(pkgs []*workspace.Package, opts Options) ([]*workspace.Package, error) {
	if len(opts.Names) > 0 {
		return byNames(pkgs, opts.Names)
	}
	if opts.Yes || len(pkgs) <= 1 {
		return pkgs, nil
	}

	p := tea.NewProgram(newModel(pkgs, opts.Title), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	result := final.(wizardModel)
	if result.cancelled {
		return nil, ErrCancelled
	}
	return result.selected(), nil
}

func byNames(pkgs []*workspace.Package, names []string) ([]*workspace.Package, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []*workspace.Package
	for _, p := range pkgs {
		if want[p.Name] || want[p.DirName] {
			out = append(out, p)
			delete(want, p.Name)
			delete(want, p.DirName)
		}
	}
	for _, n := range names {
		if want[n] {
			return nil, fmt.Errorf("no package named %q", n)
		}
	}
	return out, nil
}

// ── styles ────────────────────────────────────────────────────────────────────

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	sectionStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("8"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	focusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle     = dimStyle
)

// ── model ─────────────────────────────────────────────────────────────────────

type stage int

const (
	stageSelect stage = iota
	stageConfirm
)

type checkItem struct {
	pkg     *workspace.Package
	checked bool
}

func (c checkItem) name() string {
	if c.pkg.Name != "" {
		return c.pkg.Name
	}
	return c.pkg.DirName
}

type wizardModel struct {
	title     string
	errMsg    string
	items     []checkItem
	filter    textinput.Model
	filtering bool
	stage     stage
	cursor    int // index into visible()
	cancelled bool
	confirmed bool
}

func newModel(pkgs []*workspace.Package, title string) wizardModel {
	fi := textinput.New()
	fi.Placeholder = "filter"
	fi.Prompt = "/ "
	fi.Width = 40

	items := make([]checkItem, len(pkgs))
	for i, p := range pkgs {
		items[i] = checkItem{pkg: p, checked: true}
	}
	return wizardModel{title: title, items: items, filter: fi}
}

// visible returns indexes of items matching the filter.
func (m wizardModel) visible() []int {
	q := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	var out []int
	for i, it := range m.items {
		if q == "" || strings.Contains(strings.ToLower(it.name()), q) ||
			strings.Contains(strings.ToLower(it.pkg.RelDir), q) {
			out = append(out, i)
		}
	}
	return out
}

func (m wizardModel) selected() []*workspace.Package {
	var out []*workspace.Package
	for _, it := range m.items {
		if it.checked {
			out = append(out, it.pkg)
		}
	}
	return out
}

// ── tea.Model interface ───────────────────────────────────────────────────────

func (m wizardModel) Init() tea.Cmd {
	return nil
}

func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(key)
	}
	var cmd tea.Cmd
	if m.filtering {
		m.filter, cmd = m.filter.Update(msg)
	}
	return m, cmd
}

func (m wizardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.stage {
	case stageSelect:
		if m.filtering {
			return m.handleFilterKey(msg)
		}
		return m.handleSelectKey(msg)
	case stageConfirm:
		return m.handleConfirmKey(msg)
	}
	return m, nil
}

func (m wizardModel) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.cancelled = true
		return m, tea.Quit
	case "enter", "esc":
		m.filtering = false
		m.filter.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.cursor = 0
	return m, cmd
}

func (m wizardModel) handleSelectKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	vis := m.visible()
	switch msg.String() {
	case "ctrl+c", "esc", "q":
		m.cancelled = true
		return m, tea.Quit
	case "/":
		m.filtering = true
		cmd := m.filter.Focus()
		return m, cmd
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(vis)-1 {
			m.cursor++
		}
	case " ":
		if m.cursor < len(vis) {
			i := vis[m.cursor]
			m.items[i].checked = !m.items[i].checked
		}
	case "a":
		m.toggleAll(vis)
	case "enter":
		if len(m.selected()) == 0 {
			m.errMsg = "select at least one package"
			return m, nil
		}
		m.errMsg = ""
		m.stage = stageConfirm
	}
	return m, nil
}

func (m wizardModel) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc", "n", "N":
		m.cancelled = true
		return m, tea.Quit
	case "b", "backspace":
		m.stage = stageSelect
	case "enter", "y", "Y":
		m.confirmed = true
		return m, tea.Quit
	}
	return m, nil
}

// toggleAll checks every visible item, or unchecks them if all are checked.
func (m *wizardModel) toggleAll(vis []int) {
	all := true
	for _, i := range vis {
		all = all && m.items[i].checked
	}
	for _, i := range vis {
		m.items[i].checked = !all
	}
}

// ── View ──────────────────────────────────────────────────────────────────────

func (m wizardModel) View() string {
	switch m.stage {
	case stageSelect:
		return m.viewSelect()
	case stageConfirm:
		return m.viewConfirm()
	}
	return ""
}

func (m wizardModel) header() string {
	return titleStyle.Render("  pkgops") + "  " + m.title + "\n\n"
}

func (m wizardModel) viewSelect() string {
	var b strings.Builder
	b.WriteString(m.header())

	if m.filtering || m.filter.Value() != "" {
		b.WriteString("  " + m.filter.View() + "\n\n")
	}

	b.WriteString("  " + sectionStyle.Render("─── Packages ───") + "\n")
	vis := m.visible()
	if len(vis) == 0 {
		b.WriteString("  " + dimStyle.Render("  no package matches") + "\n")
	}
	for row, i := range vis {
		b.WriteString(m.renderItem(row, m.items[i]))
	}
	b.WriteString("\n")

	if m.errMsg != "" {
		b.WriteString("  " + errorStyle.Render("✖ "+m.errMsg) + "\n\n")
	}

	b.WriteString(helpStyle.Render("  ↑↓ move · space toggle · a all · / filter · enter next · esc quit"))
	return b.String()
}

func (m wizardModel) renderItem(row int, item checkItem) string {
	cursor := "  "
	if row == m.cursor {
		cursor = focusStyle.Render(" ▶")
	}
	check := "○"
	style := normalStyle
	if item.checked {
		check = selectedStyle.Render("◉")
		style = selectedStyle
	}
	return fmt.Sprintf("%s %s  %-30s  %s\n",
		cursor, check,
		style.Render(item.name()),
		dimStyle.Render(item.pkg.RelPath),
	)
}

func (m wizardModel) viewConfirm() string {
	var b strings.Builder
	b.WriteString(m.header())

	sel := m.selected()
	names := make([]string, len(sel))
	for i, p := range sel {
		names[i] = p.RelPath
	}
	b.WriteString(fmt.Sprintf("  %d of %d packages:\n", len(sel), len(m.items)))
	for _, n := range names {
		b.WriteString("    " + focusStyle.Render(n) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(helpStyle.Render("  Press enter to continue · b to go back · n to cancel"))
	return b.String()
}
