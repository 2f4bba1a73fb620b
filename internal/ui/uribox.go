package ui

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"playctl/internal/source"
)

var promptTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("212"))

// uriBoxModel is a single-line URI input submitted with Enter.
// Enter on blank input does nothing; a submitted value is consumed so a
// repeated Enter cannot submit it twice.
type uriBoxModel struct {
	input     textinput.Model
	submitted bool
	cancelled bool
	value     string
}

func newURIBox(initial string) uriBoxModel {
	ti := textinput.New()
	ti.Placeholder = "rtsp://, http://, rtmp://..."
	ti.Prompt = "> "
	ti.CharLimit = 4096
	ti.SetValue(initial)
	ti.Focus()
	return uriBoxModel{input: ti}
}

func (m uriBoxModel) Init() tea.Cmd { return textinput.Blink }

func (m uriBoxModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEnter:
			if m.submitted || source.IsBlank(m.input.Value()) {
				return m, nil
			}
			m.submitted = true
			m.value = m.input.Value()
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.cancelled = true
			return m, tea.Quit
		}
	}

	if m.submitted {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m uriBoxModel) View() string {
	if m.submitted || m.cancelled {
		return ""
	}
	return promptTitleStyle.Render("Open URI") + "\n" +
		m.input.View() + "\n" +
		hintStyle.Render("enter: open • esc: cancel") + "\n"
}

// PromptURI asks for a media URI. A cancelled prompt returns ErrCancelled.
func PromptURI(ctx context.Context, in io.Reader, out io.Writer, initial string) (string, error) {
	p := tea.NewProgram(newURIBox(initial),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("reading URI: %w", err)
	}
	m, ok := final.(uriBoxModel)
	if !ok || m.cancelled || !m.submitted {
		return "", ErrCancelled
	}
	return m.value, nil
}
