package gui

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tera/terastream/terabox"
)

type ResolveFunc func(ctx context.Context, shareURL string) (*terabox.Result, error)

type resolvedMsg struct {
	result *terabox.Result
}

type failedMsg struct {
	err error
}

type WatchModel struct {
	textInput textinput.Model
	spinner   spinner.Model
	resolve   ResolveFunc
	ctx       context.Context
	cancel    context.CancelFunc
	// shared by every copy of the model, done is closed once the resolve
	// command returned
	started *atomic.Bool
	done    chan struct{}

	// stage 0 is asking for the share link,
	// stage 1 is resolving it
	// stage 2 is done
	stage    int
	shareURL string
	result   *terabox.Result
	err      error
}

func getSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Moon
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return s
}

// InitialModel starts resolving right away when shareURL is given,
// otherwise it prompts for it first.
func InitialModel(ctx context.Context, shareURL string, resolve ResolveFunc) WatchModel {
	ti := textinput.New()
	ti.Placeholder = "https://www.1024tera.com/s/..."
	ti.Focus()
	ti.Width = 60

	ctx, cancel := context.WithCancel(ctx)
	m := WatchModel{
		textInput: ti,
		spinner:   getSpinner(),
		resolve:   resolve,
		ctx:       ctx,
		cancel:    cancel,
		started:   new(atomic.Bool),
		done:      make(chan struct{}),
		shareURL:  strings.TrimSpace(shareURL),
	}
	if m.shareURL != "" {
		m.stage = 1
	}
	return m
}

func (m WatchModel) Init() tea.Cmd {
	if m.stage == 1 {
		return tea.Batch(m.spinner.Tick, m.resolveCmd())
	}
	return textinput.Blink
}

func (m WatchModel) resolveCmd() tea.Cmd {
	shareURL := m.shareURL
	return func() tea.Msg {
		m.started.Store(true)
		defer close(m.done)
		res, err := m.resolve(m.ctx, shareURL)
		if err != nil {
			return failedMsg{err: err}
		}
		return resolvedMsg{result: res}
	}
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if m.err == nil && m.result == nil {
				m.err = context.Canceled
			}
			m.cancel()
			return m, tea.Quit
		case tea.KeyEnter:
			if m.stage == 0 {
				value := strings.TrimSpace(m.textInput.Value())
				if value == "" {
					return m, nil
				}
				m.shareURL = value
				m.stage = 1
				return m, tea.Batch(m.spinner.Tick, m.resolveCmd())
			}
		}

	case resolvedMsg:
		m.stage = 2
		m.result = msg.result
		return m, tea.Quit

	case failedMsg:
		m.stage = 2
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		if m.stage != 1 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// only the prompt takes input
	if m.stage == 0 {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func renderANewLine(msg string, highlight bool) string {
	highlightText := lipgloss.NewStyle().TabWidth(-1).Foreground(lipgloss.Color("#2c70b0"))
	normalText := lipgloss.NewStyle().TabWidth(-1).Foreground(lipgloss.Color("#f5f3f2"))

	styledText := normalText.Render(msg)
	if highlight {
		styledText = highlightText.Render(msg)
	}

	return lipgloss.NewStyle().Align(lipgloss.Left).Render(styledText)
}

func (m WatchModel) View() string {
	switch m.stage {
	case 0:
		return renderANewLine("Share link ", true) + m.textInput.View() + "\n"
	case 1:
		return fmt.Sprintf("%s resolving %s\n", m.spinner.View(), m.shareURL)
	}

	if m.err != nil {
		return renderANewLine("error: ", false) + m.err.Error() + "\n"
	}
	msg := renderANewLine("Stream url", true) + "\n"
	msg += m.result.StreamURL + "\n"
	msg += fmt.Sprintf("resolved in %s\n", m.result.Duration.Round(time.Millisecond))
	return msg
}

func (m WatchModel) Result() *terabox.Result {
	return m.result
}

func (m WatchModel) Err() error {
	return m.err
}

// ShareURL is the link given on the command line or typed at the prompt.
func (m WatchModel) ShareURL() string {
	return m.shareURL
}

// Wait blocks until a started resolution returned, at most for timeout.
// It reports false when the resolution is still running.
func (m WatchModel) Wait(timeout time.Duration) bool {
	if !m.started.Load() {
		return true
	}
	select {
	case <-m.done:
		return true
	case <-time.After(timeout):
		return false
	}
}
