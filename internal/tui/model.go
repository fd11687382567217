// Package tui is an interactive terminal front end for oncology queries.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hyperjump/oncovec/internal/models"
)

const defaultQueryTimeout = 30 * time.Second

// Querier runs a domain-restricted query. cli.Client satisfies it directly.
type Querier interface {
	Query(ctx context.Context, query string, topK int) (*models.QueryResponse, error)
}

// queryDoneMsg carries the outcome of a query back into Update.
type queryDoneMsg struct {
	query string
	resp  *models.QueryResponse
	err   error
}

// Model is the Bubble Tea model for the search screen.
type Model struct {
	querier  Querier
	topK     int
	timeout  time.Duration
	input    textinput.Model
	viewport viewport.Model
	results  []*models.QueryResult
	summary  string
	status   string
	cursor   int
	ready    bool
	pending  bool
}

// New creates a model. summary is shown under the header, topK <= 0 uses the server default.
func New(q Querier, summary string, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Describe the oncology topic and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		querier:  q,
		topK:     topK,
		timeout:  defaultQueryTimeout,
		input:    ti,
		viewport: viewport.New(0, 0),
		summary:  summary,
		status:   "Ready. Type to search.",
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and query completion events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 3 + qh + 1 // header, summary and status lines, query box, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case queryDoneMsg:
		m.pending = false
		m.applyResponse(msg)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending {
				return m, nil
			}
			m.pending = true
			m.status = fmt.Sprintf("Searching for %q...", q)
			return m, m.runQuery(q)
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) runQuery(q string) tea.Cmd {
	querier, topK, timeout := m.querier, m.topK, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		resp, err := querier.Query(ctx, q, topK)
		return queryDoneMsg{query: q, resp: resp, err: err}
	}
}

func (m *Model) applyResponse(msg queryDoneMsg) {
	m.results = nil
	m.cursor = 0
	switch {
	case msg.err != nil:
		m.status = "Error: " + msg.err.Error()
	case msg.resp == nil:
		m.status = "Error: empty response"
	case msg.resp.Status != models.StatusOK:
		m.status = msg.resp.Message
	default:
		m.results = msg.resp.Documents
		m.status = fmt.Sprintf("%d documents for %q in %dms (lower score is closer)",
			len(m.results), msg.query, msg.resp.QueryTime)
	}
}

// View renders the header, the selected result, the input box and the status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("oncovec")
	summary := summaryStyle.Render(m.summary)
	results := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	r := m.results[m.cursor]
	var b strings.Builder
	fmt.Fprintf(&b, "Result %d/%d  score=%.4f\n", m.cursor+1, len(m.results), r.SimilarityScore)
	b.WriteString(titleStyle.Render(r.Title))
	b.WriteString("\n")
	b.WriteString(idStyle.Render(r.DocumentID))
	b.WriteString("\n\n")
	b.WriteString(wrap(r.Abstract, m.viewport.Width-4))
	return b.String()
}

// wrap breaks text on word boundaries so no line exceeds width runes.
func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	var b strings.Builder
	lineLen := 0
	for _, word := range strings.Fields(text) {
		n := len([]rune(word))
		if lineLen > 0 && lineLen+1+n > width {
			b.WriteString("\n")
			lineLen = 0
		} else if lineLen > 0 {
			b.WriteString(" ")
			lineLen++
		}
		b.WriteString(word)
		lineLen += n
	}
	return b.String()
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	summaryStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	idStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
