package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pithecene-io/physlink/types"
)

const maxTableRows = 12

// BodiesModel lists the body directory with the joints of the selected body.
type BodiesModel struct {
	bodies   []types.BodyRecord
	table    table.Model
	quitting bool
}

// NewBodiesModel accepts []types.BodyRecord.
func NewBodiesModel(data any) (BodiesModel, error) {
	bodies, ok := data.([]types.BodyRecord)
	if !ok {
		return BodiesModel{}, fmt.Errorf("bodies view: unexpected data %T", data)
	}

	rows := make([]table.Row, len(bodies))
	for i, b := range bodies {
		rows[i] = table.Row{strconv.Itoa(b.BodyUniqueID), b.BaseName, strconv.Itoa(len(b.Joints))}
	}
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 6},
			{Title: "Base", Width: 24},
			{Title: "Joints", Width: 8},
		}),
		table.WithRows(rows),
		table.WithFocused(true),
	)
	t.SetStyles(tableStyles())
	// The height includes the two header lines.
	t.SetHeight(min(max(len(rows), 1), maxTableRows) + 2)
	return BodiesModel{bodies: bodies, table: t}, nil
}

// Init implements tea.Model.
func (m BodiesModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model. Arrow keys move the selection.
func (m BodiesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m BodiesModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Bodies (%d)", len(m.bodies))))
	b.WriteString("\n")
	if len(m.bodies) == 0 {
		b.WriteString(LabelStyle.Render("no bodies loaded"))
	} else {
		b.WriteString(m.table.View())
		b.WriteString("\n\n")
		b.WriteString(m.renderJoints(m.bodies[m.selected()]))
	}
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("↑/↓ select  " + quitHelp))
	return b.String()
}

func (m BodiesModel) selected() int {
	return min(max(m.table.Cursor(), 0), len(m.bodies)-1)
}

func (m BodiesModel) renderJoints(body types.BodyRecord) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(body.BaseName))
	b.WriteString("\n")
	if len(body.Joints) == 0 {
		b.WriteString(LabelStyle.Render("no joints"))
		return BoxStyle.Render(b.String())
	}
	for _, j := range body.Joints {
		fmt.Fprintf(&b, "%s %s\n",
			LabelStyle.Render(fmt.Sprintf("%d %s", j.JointIndex, j.JointName)),
			ValueStyle.Render(fmt.Sprintf("%s  link=%s  q=%d u=%d", j.JointType, j.LinkName, j.QIndex, j.UIndex)))
	}
	return BoxStyle.Render(strings.TrimRight(b.String(), "\n"))
}
