package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/physlink/metrics"
	"github.com/pithecene-io/physlink/runtime"
	"github.com/pithecene-io/physlink/types"
)

// SummaryModel is a read-only dashboard of stat boxes.
type SummaryModel struct {
	title    string
	header   []string
	boxes    []statBox
	width    int
	quitting bool
}

type statBox struct {
	label string
	value string
}

// NewSummaryModel accepts *runtime.CaptureResult for ViewCapture and a
// metrics.Snapshot (or pointer to one) for ViewSession.
func NewSummaryModel(viewType string, data any) (SummaryModel, error) {
	switch viewType {
	case ViewCapture:
		res, ok := data.(*runtime.CaptureResult)
		if !ok || res == nil {
			return SummaryModel{}, fmt.Errorf("capture view: unexpected data %T", data)
		}
		return captureSummary(res), nil
	case ViewSession:
		switch s := data.(type) {
		case metrics.Snapshot:
			return sessionSummary(&s), nil
		case *metrics.Snapshot:
			if s != nil {
				return sessionSummary(s), nil
			}
		}
		return SummaryModel{}, fmt.Errorf("session view: unexpected data %T", data)
	default:
		return SummaryModel{}, fmt.Errorf("summary view: unknown view %q", viewType)
	}
}

func captureSummary(res *runtime.CaptureResult) SummaryModel {
	m := SummaryModel{title: "Capture " + res.CaptureID}
	outcome := "unknown"
	var status types.OutcomeStatus
	if res.Outcome != nil {
		status = res.Outcome.Status
		outcome = string(status)
	}
	m.header = []string{
		row("Session", ValueStyle.Render(res.SessionID)),
		row("Outcome", OutcomeStyle(status).Render(outcome)),
		row("Duration", ValueStyle.Render(res.Duration.String())),
		row("Published", ValueStyle.Render(strconv.FormatBool(res.Published))),
	}
	if len(res.Failed) > 0 {
		m.header = append(m.header, row("Failed", WarningStyle.Render(strings.Join(res.Failed, ", "))))
	}

	for _, kind := range types.RecordKinds() {
		n, ok := res.RecordsByKind[string(kind)]
		if !ok {
			continue
		}
		m.boxes = append(m.boxes, statBox{string(kind), strconv.FormatInt(n, 10)})
	}
	m.boxes = append(m.boxes,
		statBox{"records", strconv.FormatInt(res.PolicyStats.TotalRecords, 10)},
		statBox{"persisted", strconv.FormatInt(res.PolicyStats.RecordsPersisted, 10)},
		statBox{"flushes", strconv.FormatInt(res.PolicyStats.FlushCount, 10)},
	)
	return m
}

func sessionSummary(s *metrics.Snapshot) SummaryModel {
	m := SummaryModel{title: "Session"}
	if s.SessionID != "" {
		m.header = append(m.header, row("Session", ValueStyle.Render(s.SessionID)))
	}
	if s.Transport != "" {
		m.header = append(m.header, row("Transport", ValueStyle.Render(s.Transport)))
	}
	count := func(label string, n int64) statBox {
		return statBox{label, strconv.FormatInt(n, 10)}
	}
	m.boxes = []statBox{
		count("connects", s.Connects),
		count("commands", s.CommandsSubmitted),
		count("rejected submits", s.SubmitsRejected),
		count("statuses", s.StatusesConsumed),
		count("continuations", s.Continuations),
		count("body info", s.BodyInfoRequests),
		count("failures", s.OperationFailures),
		count("decode errors", s.DecodeFailures),
		count("rejected chunks", s.RejectedChunks),
	}
	return m
}

func row(label, value string) string {
	return LabelStyle.Render(label) + value
}

// Init implements tea.Model.
func (m SummaryModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m SummaryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	}
	return m, nil
}

// View implements tea.Model.
func (m SummaryModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(m.title))
	b.WriteString("\n")
	for _, line := range m.header {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(m.header) > 0 {
		b.WriteString("\n")
	}

	perRow := 3
	if m.width > 0 {
		perRow = max(m.width/(StatBoxStyle.GetWidth()+2), 1)
	}
	for i := 0; i < len(m.boxes); i += perRow {
		end := min(i+perRow, len(m.boxes))
		rendered := make([]string, 0, end-i)
		for _, box := range m.boxes[i:end] {
			rendered = append(rendered, renderStatBox(box.label, box.value))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render(quitHelp))
	return b.String()
}

func renderStatBox(label, value string) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		StatValueStyle.Render(value),
		StatLabelStyle.Render(label),
	)
	return StatBoxStyle.Render(content)
}
