package ui

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	dialogBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 2)

	dialogTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("196"))

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// dialogModel shows a message until the user acknowledges it.
type dialogModel struct {
	message      string
	acknowledged bool
}

func (m dialogModel) Init() tea.Cmd { return nil }

func (m dialogModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "enter", "esc", "q", " ", "ctrl+c":
		m.acknowledged = true
		return m, tea.Quit
	}
	return m, nil
}

func (m dialogModel) View() string {
	if m.acknowledged {
		return ""
	}
	body := dialogTitleStyle.Render("Error") + "\n\n" +
		messageStyle.Render(m.message) + "\n\n" +
		hintStyle.Render("enter: ok")
	return dialogBoxStyle.Render(body) + "\n"
}

// Dialog is a modal error reporter drawn with bubbletea.
type Dialog struct {
	in  io.Reader
	out io.Writer
}

// NewDialog returns a dialog reading keys from in and drawing to out.
func NewDialog(in io.Reader, out io.Writer) *Dialog {
	return &Dialog{in: in, out: out}
}

// Notify shows message and returns once it was dismissed or ctx ended.
func (d *Dialog) Notify(ctx context.Context, message string) error {
	p := tea.NewProgram(dialogModel{message: message},
		tea.WithContext(ctx),
		tea.WithInput(d.in),
		tea.WithOutput(d.out),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("showing error dialog: %w", err)
	}
	return nil
}

// Plain reports errors as a single line; used when nobody can acknowledge
// a dialog.
type Plain struct {
	out io.Writer
}

// NewPlain returns a reporter writing to out.
func NewPlain(out io.Writer) *Plain {
	return &Plain{out: out}
}

// Notify writes message and returns immediately.
func (p *Plain) Notify(_ context.Context, message string) error {
	_, err := fmt.Fprintln(p.out, dialogTitleStyle.Render("Error:")+" "+message)
	return err
}

// Reporter is satisfied by Dialog and Plain.
type Reporter interface {
	Notify(ctx context.Context, message string) error
}

// NewReporter returns a Dialog when stdin is a terminal, Plain otherwise.
func NewReporter() Reporter {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return NewDialog(os.Stdin, os.Stderr)
	}
	return NewPlain(os.Stderr)
}
