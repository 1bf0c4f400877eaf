package tui

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vvka-141/pgseed/internal/tui/components"
)

// Progress shows a spinner on a terminal while one long step runs.
type Progress struct {
	out io.Writer
}

// NewProgress creates a Progress that renders to out (normally os.Stderr).
func NewProgress(out io.Writer) *Progress {
	return &Progress{out: out}
}

// Start begins animating label. The returned function stops the spinner,
// prints the final line and blocks until the renderer has exited.
// A nil error renders result as success.
func (p *Progress) Start(label string) func(result string, err error) {
	program := tea.NewProgram(
		progressModel{spinner: components.NewSpinner(label)},
		tea.WithOutput(p.out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = program.Run()
	}()

	return func(result string, err error) {
		if err != nil {
			program.Send(components.SpinnerFailed(err))
		} else {
			program.Send(components.SpinnerDone(result))
		}
		<-done
	}
}

type progressModel struct {
	spinner components.Spinner
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Init()
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	if m.spinner.IsDone() {
		return m, tea.Quit
	}
	return m, cmd
}

func (m progressModel) View() string {
	if m.spinner.IsDone() {
		return m.spinner.View() + "\n"
	}
	return m.spinner.View()
}
