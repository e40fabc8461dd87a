package tui

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// View types with an interactive rendering.
const (
	ViewBodies  = "bodies"
	ViewCapture = "capture"
	ViewSession = "session"
)

// SupportedTUIViews returns the view types Run accepts.
func SupportedTUIViews() []string {
	return []string{ViewBodies, ViewCapture, ViewSession}
}

// IsTUISupported reports whether viewType has an interactive rendering.
func IsTUISupported(viewType string) bool {
	return slices.Contains(SupportedTUIViews(), viewType)
}

// Run shows data in the interactive view for viewType until the user quits.
func Run(viewType string, data any) error {
	model, err := newModel(viewType, data)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

// RenderStatic renders one frame of the view for non-interactive output.
func RenderStatic(viewType string, data any) (string, error) {
	model, err := newModel(viewType, data)
	if err != nil {
		return "", err
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View()), nil
}

func newModel(viewType string, data any) (tea.Model, error) {
	switch viewType {
	case ViewBodies:
		m, err := NewBodiesModel(data)
		if err != nil {
			return nil, err
		}
		return m, nil
	case ViewCapture, ViewSession:
		m, err := NewSummaryModel(viewType, data)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("TUI mode is not supported for %s", viewType)
	}
}

type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

const quitHelp = "Press q or Ctrl+C to quit"
