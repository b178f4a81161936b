// Package picker provides an interactive terminal file picker used when no
// input document is named on the command line.
package picker

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrAborted is returned when the user quits the picker without choosing.
var ErrAborted = errors.New("picker: no file selected")

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

type model struct {
	filepicker filepicker.Model
	selected   string
	err        error
	quitting   bool
}

func (m model) Init() tea.Cmd {
	return m.filepicker.Init()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.filepicker, cmd = m.filepicker.Update(msg)

	if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
		m.selected = path
		m.quitting = true
		return m, tea.Quit
	}

	if didSelect, path := m.filepicker.DidSelectDisabledFile(msg); didSelect {
		m.err = fmt.Errorf("%s is not a supported document type", path)
		return m, cmd
	}

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	title := titleStyle.Render(" Select an invoice ")
	body := m.filepicker.View()
	if m.err != nil {
		body = errStyle.Render(m.err.Error()) + "\n" + body
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}

// Pick runs the picker rooted at dir and returns the chosen file path.
// Only extensions in allowed (with leading dots) are selectable. ErrAborted
// is returned when the user quits without picking a file.
func Pick(dir string, allowed []string) (string, error) {
	fp := filepicker.New()
	fp.AllowedTypes = allowed
	fp.CurrentDirectory = dir
	if fp.CurrentDirectory == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("picker: resolve working directory: %w", err)
		}
		fp.CurrentDirectory = wd
	}

	p := tea.NewProgram(model{filepicker: fp})
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("picker: %w", err)
	}

	m, ok := final.(model)
	if !ok || m.selected == "" {
		return "", ErrAborted
	}
	return m.selected, nil
}
