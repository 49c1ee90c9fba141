// Package tui is the interactive document browser
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gmsas95/ocrdesk-cli/internal/app"
	"github.com/gmsas95/ocrdesk-cli/internal/document"
	"github.com/gmsas95/ocrdesk-cli/internal/ocr"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	borderStyle = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))

	tierStyles = map[ocr.Tier]lipgloss.Style{
		ocr.TierHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("40")),
		ocr.TierMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		ocr.TierLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

type view int

const (
	viewList view = iota
	viewDetail
)

type documentsLoadedMsg struct{}

type resultLoadedMsg struct {
	result *ocr.Result
	err    error
}

// Model is the browser's bubbletea model
type Model struct {
	app    *app.App
	view   view
	table  table.Model
	search textinput.Model
	spin   spinner.Model

	searching bool
	loading   bool
	current   *document.Document
	result    *ocr.Result
	errMsg    string
}

// New creates the browser model
func New(a *app.App) Model {
	columns := []table.Column{
		{Title: "ID", Width: 14},
		{Title: "Name", Width: 32},
		{Title: "Status", Width: 12},
		{Title: "Created", Width: 16},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	search := textinput.New()
	search.Placeholder = "filter by name"
	search.CharLimit = 64

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return Model{
		app:     a,
		table:   t,
		search:  search,
		spin:    spin,
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.fetchDocuments())
}

func (m Model) fetchDocuments() tea.Cmd {
	return func() tea.Msg {
		m.app.Docs.FetchDocuments(context.Background(), document.ListQuery{})
		return documentsLoadedMsg{}
	}
}

func (m Model) fetchResult(id string) tea.Cmd {
	return func() tea.Msg {
		result, err := m.app.ResultFor(context.Background(), id)
		return resultLoadedMsg{result: result, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case documentsLoadedMsg:
		m.loading = false
		m.errMsg = m.app.Docs.Error()
		m.refreshRows()
		return m, nil

	case resultLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.errMsg = msg.err.Error()
		} else {
			m.result = msg.result
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		switch msg.String() {
		case "enter", "esc":
			m.searching = false
			m.search.Blur()
			m.refreshRows()
			return m, nil
		default:
			var cmd tea.Cmd
			m.search, cmd = m.search.Update(msg)
			m.refreshRows()
			return m, cmd
		}
	}

	switch msg.String() {
	case "q", "ctrl+c":
		if m.view == viewDetail {
			m.view = viewList
			m.result = nil
			return m, nil
		}
		return m, tea.Quit

	case "/":
		if m.view == viewList {
			m.searching = true
			m.search.Focus()
			return m, textinput.Blink
		}

	case "r":
		if m.view == viewList {
			m.loading = true
			m.errMsg = ""
			return m, tea.Batch(m.spin.Tick, m.fetchDocuments())
		}

	case "enter":
		if m.view == viewList {
			row := m.table.SelectedRow()
			if row == nil {
				return m, nil
			}
			for _, doc := range m.app.Docs.Documents() {
				if doc.ID == row[0] {
					copied := doc
					m.current = &copied
					break
				}
			}
			if m.current == nil {
				return m, nil
			}
			m.view = viewDetail
			if m.current.Status == document.StatusCompleted {
				m.loading = true
				return m, tea.Batch(m.spin.Tick, m.fetchResult(m.current.ID))
			}
			return m, nil
		}

	case "esc":
		if m.view == viewDetail {
			m.view = viewList
			m.result = nil
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) refreshRows() {
	docs := m.app.Docs.Filter("", m.search.Value())

	rows := make([]table.Row, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, table.Row{
			doc.ID,
			doc.Name,
			string(doc.Status),
			doc.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	m.table.SetRows(rows)
}

func (m Model) View() string {
	switch m.view {
	case viewDetail:
		return m.detailView()
	default:
		return m.listView()
	}
}

func (m Model) listView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("ocrdesk") + "\n\n")

	if m.searching || m.search.Value() != "" {
		b.WriteString(m.search.View() + "\n")
	}

	if m.loading {
		b.WriteString(m.spin.View() + " loading...\n")
	} else {
		b.WriteString(borderStyle.Render(m.table.View()) + "\n")
	}

	if m.errMsg != "" {
		b.WriteString(errorStyle.Render("error: "+m.errMsg) + "\n")
	}

	b.WriteString(helpStyle.Render("enter view · / filter · r refresh · q quit"))
	return b.String()
}

func (m Model) detailView() string {
	var b strings.Builder

	doc := m.current
	b.WriteString(titleStyle.Render(doc.Name) + "\n\n")
	b.WriteString(fmt.Sprintf("ID: %s   Status: %s   Size: %d bytes\n\n", doc.ID, doc.Status, doc.FileSize))

	switch {
	case m.loading:
		b.WriteString(m.spin.View() + " loading result...\n")
	case m.result != nil:
		tier := ocr.ConfidenceTier(m.result.Confidence)
		b.WriteString(fmt.Sprintf("Confidence: %s\n\n",
			tierStyles[tier].Render(fmt.Sprintf("%.0f%% (%s)", m.result.Confidence*100, tier))))

		text := m.result.Text
		if len(text) > 2000 {
			text = text[:2000] + "\n[truncated]"
		}
		b.WriteString(text + "\n")
	case m.errMsg != "":
		b.WriteString(errorStyle.Render("error: "+m.errMsg) + "\n")
	default:
		b.WriteString("No OCR result yet\n")
	}

	b.WriteString("\n" + helpStyle.Render("esc back · q back"))
	return b.String()
}

// Run starts the browser
func Run(a *app.App) error {
	_, err := tea.NewProgram(New(a), tea.WithAltScreen()).Run()
	return err
}
