package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ka2n/cmsrelay/api"
	"github.com/ka2n/cmsrelay/api/relay"
	"github.com/ka2n/cmsrelay/log"
	"github.com/morikuni/failure/v2"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))  // green
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // orange
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // red
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type startedMsg struct{ total int }

type resultMsg struct{ result relay.Result }

type doneMsg struct{}

// progressModel renders a progress bar and running counts for a relay run
type progressModel struct {
	bar    progress.Model
	total  int
	counts map[relay.Status]int
	last   string
	cancel context.CancelFunc
	done   bool
}

func newProgressModel(cancel context.CancelFunc) progressModel {
	return progressModel{
		bar:    progress.New(progress.WithDefaultGradient()),
		counts: map[relay.Status]int{},
		cancel: cancel,
	}
}

func (m progressModel) Init() tea.Cmd {
	return nil
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			// running tasks see the cancellation and finish; doneMsg quits
			m.cancel()
			m.last = "cancelling..."
		}
	case tea.WindowSizeMsg:
		m.bar.Width = max(10, min(msg.Width-4, 80))
	case startedMsg:
		m.total = msg.total
	case resultMsg:
		m.counts[msg.result.Status]++
		m.last = msg.result.URL
	case doneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) finished() int {
	n := 0
	for _, c := range m.counts {
		n += c
	}
	return n
}

func (m progressModel) View() string {
	if m.done {
		return ""
	}
	percent := 0.0
	if m.total > 0 {
		percent = float64(m.finished()) / float64(m.total)
	}

	var b strings.Builder
	b.WriteString("\n  ")
	b.WriteString(m.bar.ViewAs(percent))
	fmt.Fprintf(&b, "  %d/%d\n  ", m.finished(), m.total)
	b.WriteString(successStyle.Render(fmt.Sprintf("%d relayed", m.counts[relay.StatusSuccess])))
	b.WriteString(mutedStyle.Render(" • "))
	b.WriteString(skippedStyle.Render(fmt.Sprintf("%d skipped", m.counts[relay.StatusSkipped])))
	b.WriteString(mutedStyle.Render(" • "))
	b.WriteString(failedStyle.Render(fmt.Sprintf("%d failed", m.counts[relay.StatusFailed])))
	if m.last != "" {
		b.WriteString("\n  ")
		b.WriteString(mutedStyle.Render(m.last))
	}
	b.WriteString("\n")
	return b.String()
}

// teaObserver forwards pipeline events to a running program
type teaObserver struct {
	p *tea.Program
}

func (o teaObserver) Started(total int) {
	o.p.Send(startedMsg{total: total})
}

func (o teaObserver) Finished(r relay.Result) {
	o.p.Send(resultMsg{result: r})
}

// runWithProgress runs fn while drawing a progress bar on stderr.
// Logging is silenced for the duration unless debug logging is enabled.
func runWithProgress(ctx context.Context, fn func(context.Context, relay.Observer) (*api.Outcome, error)) (*api.Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if os.Getenv(log.EnvDebug) == "" {
		log.SetOutput(io.Discard)
		defer log.SetOutput(os.Stderr)
	}

	p := tea.NewProgram(newProgressModel(cancel), tea.WithOutput(os.Stderr))

	var (
		out    *api.Outcome
		runErr error
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		out, runErr = fn(ctx, teaObserver{p: p})
		p.Send(doneMsg{})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-finished
		return nil, failure.Wrap(err)
	}
	<-finished
	return out, runErr
}
