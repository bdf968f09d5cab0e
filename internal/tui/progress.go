// Package tui renders inline generation progress for the CLI.
package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/roelfdiedericks/pagesmith/internal/engine"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// RunFunc is the generation work driven by the progress display.
type RunFunc func(cb *engine.Callbacks) (*engine.Result, error)

// Run executes fn while rendering progress. With interactive false the
// output degrades to plain log lines on stderr.
func Run(fn RunFunc, interactive bool) (*engine.Result, error) {
	if !interactive {
		return runPlain(fn)
	}
	return runProgram(fn)
}

func runPlain(fn RunFunc) (*engine.Result, error) {
	cb := &engine.Callbacks{
		OnAttempt: func(info engine.AttemptInfo) {
			label := ""
			if info.ResetCode {
				label = " (retry)"
			}
			fmt.Fprintf(os.Stderr, "attempt %d/%d: %s via %s%s\n",
				info.AttemptNumber, info.TotalAttempts, info.Model, info.Provider, label)
		},
		OnLog: func(message string) {
			fmt.Fprintln(os.Stderr, message)
		},
	}
	return fn(cb)
}

func runProgram(fn RunFunc) (*engine.Result, error) {
	m := newProgressModel()
	p := tea.NewProgram(m, tea.WithOutput(os.Stderr))

	go func() {
		cb := &engine.Callbacks{
			OnAttempt: func(info engine.AttemptInfo) { p.Send(attemptMsg(info)) },
			OnToken:   func(text string) { p.Send(tokenMsg{bytes: len(text)}) },
			OnLog:     func(message string) { p.Send(logMsg(message)) },
		}
		result, err := fn(cb)
		p.Send(doneMsg{result: result, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress display failed: %w", err)
	}

	fm := final.(progressModel)
	return fm.result, fm.err
}

type attemptMsg engine.AttemptInfo

type tokenMsg struct {
	bytes int
}

type logMsg string

type doneMsg struct {
	result *engine.Result
	err    error
}

type tickMsg time.Time

type progressModel struct {
	frame   int
	attempt engine.AttemptInfo
	started time.Time
	bytes   int
	chunks  int
	lastLog string

	done   bool
	result *engine.Result
	err    error
}

func newProgressModel() progressModel {
	return progressModel{started: time.Now()}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m progressModel) Init() tea.Cmd {
	return tick()
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.done = true
			m.err = fmt.Errorf("interrupted")
			return m, tea.Quit
		}

	case tickMsg:
		if m.done {
			return m, nil
		}
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, tick()

	case attemptMsg:
		m.attempt = engine.AttemptInfo(msg)
		if m.attempt.ResetCode {
			m.bytes = 0
			m.chunks = 0
		}
		m.started = time.Now()

	case tokenMsg:
		m.bytes += msg.bytes
		m.chunks++

	case logMsg:
		m.lastLog = string(msg)

	case doneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.done {
		return m.summary()
	}

	var b strings.Builder
	b.WriteString(spinnerStyle.Render(spinnerFrames[m.frame]))
	b.WriteString(" ")

	if m.attempt.Model == "" {
		b.WriteString("preparing request")
	} else {
		b.WriteString(modelStyle.Render(m.attempt.Model))
		b.WriteString(providerStyle.Render(" via " + m.attempt.Provider))
		if m.attempt.TotalAttempts > 1 {
			b.WriteString(providerStyle.Render(
				fmt.Sprintf(" [%d/%d]", m.attempt.AttemptNumber, m.attempt.TotalAttempts)))
		}
		if m.attempt.ResetCode {
			b.WriteString(retryStyle.Render(" retry"))
		}
	}

	b.WriteString(counterStyle.Render(fmt.Sprintf("  %s, %d chunks", formatBytes(m.bytes), m.chunks)))
	b.WriteString(providerStyle.Render(fmt.Sprintf("  %s", time.Since(m.started).Round(time.Second))))

	if m.lastLog != "" {
		b.WriteString("\n")
		b.WriteString(logStyle.Render(m.lastLog))
	}
	b.WriteString("\n")
	return b.String()
}

func (m progressModel) summary() string {
	if m.err != nil {
		return errorStyle.Render("✗ generation failed") + ": " + m.err.Error() + "\n"
	}
	if m.result == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(successStyle.Render("✓ generated"))
	b.WriteString(fmt.Sprintf(" %s with %s via %s",
		formatBytes(len(m.result.HTML)), m.result.UsedModel, m.result.UsedProvider))
	if m.result.Usage != nil {
		b.WriteString(counterStyle.Render(
			fmt.Sprintf("  (%d in / %d out tokens)", m.result.Usage.InputTokens, m.result.Usage.OutputTokens)))
	}
	if m.result.Cost != nil {
		b.WriteString(counterStyle.Render(fmt.Sprintf("  $%.4f", m.result.Cost.TotalUSD)))
	}
	b.WriteString("\n")
	return b.String()
}

func formatBytes(n int) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.1fMB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.1fkB", float64(n)/1024)
	default:
		return fmt.Sprintf("%dB", n)
	}
}
