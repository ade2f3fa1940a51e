package live

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"seqbench/internal/bench"
	"seqbench/internal/tui/components"
	"seqbench/internal/tui/styles"
)

const sampleEvery = 500 * time.Millisecond

// DoneMsg tells the dashboard the loop has returned. Summary is shown as-is.
type DoneMsg struct {
	Summary string
}

type tickMsg time.Time

type closedMsg struct{}

type Model struct {
	Target string
	Policy bench.Policy

	Stats    bench.Snapshot
	Progress progress.Model
	Spinner  spinner.Model

	RpsLine     components.Sparkline
	LatencyLine components.Sparkline

	LastSample time.Duration
	LastReqs   uint64

	Stopping bool
	Done     bool
	Summary  string

	Width  int
	Height int

	updates <-chan bench.Snapshot
	cancel  func()
}

// NewModel builds a dashboard fed by updates. cancel is called when the user
// asks to stop; the dashboard keeps running until a DoneMsg arrives.
func NewModel(target string, policy bench.Policy, updates <-chan bench.Snapshot, cancel func()) Model {
	return Model{
		Target:      target,
		Policy:      policy,
		Progress:    progress.New(progress.WithDefaultGradient()),
		Spinner:     spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Active)),
		RpsLine:     components.NewSparkline(40, "RPS", styles.Active),
		LatencyLine: components.NewSparkline(40, "Latency P90 (ms)", styles.Warn),
		updates:     updates,
		cancel:      cancel,
	}
}

func waitForUpdate(ch <-chan bench.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return snap
	}
}

func tick() tea.Cmd {
	return tea.Tick(sampleEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, waitForUpdate(m.updates), tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case bench.Snapshot:
		m.Stats = msg
		if msg.Done {
			return m, nil
		}
		return m, waitForUpdate(m.updates)

	case closedMsg:
		return m, nil

	case tickMsg:
		if m.Done {
			return m, nil
		}
		m.sample()
		return m, tick()

	case DoneMsg:
		m.Done = true
		m.Summary = msg.Summary
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if m.Done {
				return m, tea.Quit
			}
			if !m.Stopping {
				m.Stopping = true
				if m.cancel != nil {
					m.cancel()
				}
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = max(msg.Width-4, 10)

		half := max(msg.Width/2-4, 10)
		m.RpsLine.Resize(half)
		m.LatencyLine.Resize(half)
		return m, nil

	case spinner.TickMsg:
		if m.Done {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// sample pushes one point onto each sparkline from the latest snapshot.
func (m *Model) sample() {
	dt := (m.Stats.Elapsed - m.LastSample).Seconds()
	if dt <= 0 {
		return
	}
	rps := float64(m.Stats.Requests-m.LastReqs) / dt
	m.RpsLine.Add(rps)
	m.LatencyLine.Add(float64(m.Stats.P90) / float64(time.Millisecond))
	m.LastSample = m.Stats.Elapsed
	m.LastReqs = m.Stats.Requests
}

// Percent is the share of the run already used, by whichever bound is nearer.
func (m Model) Percent() float64 {
	pct := 0.0
	if d, ok := m.Policy.TimeLimit(); ok && d > 0 {
		pct = float64(m.Stats.Elapsed) / float64(d)
	}
	if n, ok := m.Policy.RequestLimit(); ok && n > 0 {
		pct = max(pct, float64(m.Stats.Requests)/float64(n))
	}
	if m.Stats.Done {
		pct = 1
	}
	return min(pct, 1)
}

func ms(d time.Duration) string {
	return fmt.Sprintf("%.2f ms", float64(d)/float64(time.Millisecond))
}

func (m Model) View() string {
	if m.Done {
		return m.Summary + "\n" + styles.RenderKey("q", "quit") + "\n"
	}

	s := strings.Builder{}

	status := m.Spinner.View() + " running"
	if m.Stopping {
		status = styles.Warn.Render("stopping...")
	}
	s.WriteString(styles.Title.Render("seqbench • "+m.Target) + "  " + status + "\n\n")

	reqs := m.Stats.Requests
	errRate := 0.0
	if reqs > 0 {
		errRate = float64(m.Stats.Fail) / float64(reqs) * 100
	}

	col1 := fmt.Sprintf("REQ: %s\nOK:  %d", styles.Value.Render(fmt.Sprint(reqs)), m.Stats.Success)
	col2 := fmt.Sprintf("ERR: %s\nFAIL: %d",
		styles.ErrorRateStyle(errRate).Render(fmt.Sprintf("%.2f%%", errRate)),
		m.Stats.Fail,
	)
	col3 := fmt.Sprintf("ELAPSED: %.1fs\nLIMIT: %s", m.Stats.Elapsed.Seconds(), m.Policy.String())

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(col1),
		styles.Box.Render(col2),
		styles.Box.Render(col3),
	))
	s.WriteString("\n\n")

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(m.RpsLine.View()),
		styles.Box.Render(m.LatencyLine.View()),
	))
	s.WriteString("\n\n")

	s.WriteString(styles.Subtle.Render(fmt.Sprintf("P50 %s   P90 %s   P99 %s   MAX %s",
		ms(m.Stats.P50), ms(m.Stats.P90), ms(m.Stats.P99), ms(m.Stats.Max))))
	s.WriteString("\n\n")

	s.WriteString(m.Progress.ViewAs(m.Percent()))
	s.WriteString("\n")

	if m.Stats.LastError != "" {
		s.WriteString("\n" + styles.Error.Render("last error: "+m.Stats.LastError) + "\n")
	}

	s.WriteString("\n" + styles.RenderKey("q", "stop") + "\n")
	return s.String()
}
