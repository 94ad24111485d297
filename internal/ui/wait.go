package ui

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// WaitDoneMsg stops a [WaitModel] and clears its line.
type WaitDoneMsg struct{}

// WaitModel is an inline spinner shown while waiting for the browser redirect.
type WaitModel struct {
	spinner  spinner.Model
	label    string
	deadline time.Time
	now      func() time.Time
	done     bool
}

// NewWaitModel creates a spinner labelled label that counts down to deadline.
func NewWaitModel(p *Palette, label string, deadline time.Time) *WaitModel {
	return &WaitModel{
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(p.title)),
		label:    label,
		deadline: deadline,
		now:      time.Now,
	}
}

// Init starts the spinner.
func (m *WaitModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update advances the spinner until a [WaitDoneMsg] arrives.
func (m *WaitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case WaitDoneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the spinner, the label and the time left. It is empty once done.
func (m *WaitModel) View() string {
	if m.done {
		return ""
	}

	left := m.deadline.Sub(m.now()).Round(time.Second)
	if left < 0 {
		left = 0
	}
	return fmt.Sprintf("%s %s (%v left)", m.spinner.View(), m.label, left)
}

// Done reports whether the wait has ended.
func (m *WaitModel) Done() bool {
	return m.done
}

// StartWait renders m inline on w until the returned stop function is called.
//
// The program reads no input and installs no signal handlers, so Ctrl+C still reaches the caller's context.
func StartWait(w io.Writer, m *WaitModel) (stop func() error) {
	p := tea.NewProgram(m, tea.WithOutput(w), tea.WithInput(nil), tea.WithoutSignalHandler())

	errs := make(chan error, 1)
	go func() {
		_, err := p.Run()
		errs <- err
	}()

	return func() error {
		p.Send(WaitDoneMsg{})
		if err := <-errs; err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("wait spinner: %w", err)
		}
		return nil
	}
}
