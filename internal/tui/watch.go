// Package tui is the interactive attention view behind `llmxray watch`.
//
// Every stream event and key press is handled in Update, so the
// accumulator only ever sees one caller. Messages from a superseded stream
// carry an old generation and are discarded.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ppiankov/llmxray/internal/annotate"
	"github.com/ppiankov/llmxray/internal/model"
	"github.com/ppiankov/llmxray/internal/render"
	"github.com/ppiankov/llmxray/internal/stream"
	"go.uber.org/zap"
)

// Streamer opens an attention stream for a prompt
type Streamer interface {
	AttentionStream(ctx context.Context, prompt string) (*stream.Decoder, error)
}

// Options configures the watch view
type Options struct {
	Prompt          string
	Amplification   float64
	BrightText      float64
	TopContextUnits int
	Color           bool
	Logger          *zap.Logger
}

type startMsg struct{}

type streamOpenedMsg struct {
	gen uint64
	ctx context.Context
	dec *stream.Decoder
	err error
}

type streamEventMsg struct {
	gen   uint64
	ctx   context.Context
	dec   *stream.Decoder
	event model.AnnotationEvent
}

type streamDoneMsg struct {
	gen     uint64
	dropped int
	err     error
}

var keys = struct {
	Quit    key.Binding
	Restart key.Binding
	Stop    key.Binding
	Prev    key.Binding
	Next    key.Binding
	First   key.Binding
	Last    key.Binding
	Live    key.Binding
}{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c")),
	Restart: key.NewBinding(key.WithKeys("r")),
	Stop:    key.NewBinding(key.WithKeys("s")),
	Prev:    key.NewBinding(key.WithKeys("left", "h")),
	Next:    key.NewBinding(key.WithKeys("right", "l")),
	First:   key.NewBinding(key.WithKeys("home", "g")),
	Last:    key.NewBinding(key.WithKeys("end", "G")),
	Live:    key.NewBinding(key.WithKeys("esc")),
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#c77dff"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef476f"))
	liveStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#06d6a0"))
	frozenStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffd166"))
)

// Model is the Bubble Tea model of the watch view
type Model struct {
	streamer Streamer
	opts     Options
	parent   context.Context
	session  *annotate.Session
	term     *render.Terminal
	logger   *zap.Logger

	spinner   spinner.Model
	streaming bool
	status    string
	err       error
	width     int
}

// New creates the watch model. The first stream starts from Init.
func New(parent context.Context, streamer Streamer, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = titleStyle

	return Model{
		streamer: streamer,
		opts:     opts,
		parent:   parent,
		session:  annotate.NewSession(annotate.New(opts.Amplification)),
		term:     render.NewTerminal(os.Stdout, opts.Color, opts.BrightText),
		logger:   opts.Logger,
		spinner:  s,
		status:   "starting",
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, func() tea.Msg { return startMsg{} })
}

// State returns a copy of the current stream state
func (m Model) State() model.StreamState {
	return m.session.Accumulator().State()
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case startMsg:
		return m.begin()

	case streamOpenedMsg:
		if msg.gen != m.session.Generation() {
			if msg.dec != nil {
				_ = msg.dec.Close()
			}
			return m, nil
		}
		if msg.err != nil {
			m.streaming = false
			m.err = msg.err
			m.status = "failed"
			m.logger.Warn("attention stream failed to open", zap.Error(msg.err))
			return m, nil
		}
		return m, next(msg.ctx, msg.gen, msg.dec)

	case streamEventMsg:
		if !m.session.Apply(msg.gen, annotate.EventMsg{Event: msg.event}) {
			_ = msg.dec.Close()
			return m, nil
		}
		return m, next(msg.ctx, msg.gen, msg.dec)

	case streamDoneMsg:
		if msg.gen != m.session.Generation() {
			return m, nil
		}
		m.streaming = false
		switch {
		case errors.Is(msg.err, io.EOF):
			m.status = "done"
		case errors.Is(msg.err, context.Canceled):
			m.status = "stopped"
		default:
			m.status = "failed"
			m.err = msg.err
			m.logger.Warn("attention stream ended abnormally", zap.Error(msg.err))
		}
		if msg.dropped > 0 {
			m.status += fmt.Sprintf(" (%d malformed frames skipped)", msg.dropped)
		}
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	acc := m.session.Accumulator()
	gen := m.session.Generation()

	switch {
	case key.Matches(msg, keys.Quit):
		m.session.Stop()
		return m, tea.Quit

	case key.Matches(msg, keys.Restart):
		return m.begin()

	case key.Matches(msg, keys.Stop):
		m.session.Stop()

	case key.Matches(msg, keys.Prev):
		idx := acc.FocusIndex()
		if idx == model.NoFocus {
			idx = acc.Len()
		}
		m.session.Apply(gen, annotate.HoverMsg{Index: max(idx-1, 0)})

	case key.Matches(msg, keys.Next):
		m.session.Apply(gen, annotate.HoverMsg{Index: min(acc.FocusIndex()+1, acc.Len()-1)})

	case key.Matches(msg, keys.First):
		m.session.Apply(gen, annotate.HoverMsg{Index: 0})

	case key.Matches(msg, keys.Last):
		m.session.Apply(gen, annotate.HoverMsg{Index: acc.Len() - 1})

	case key.Matches(msg, keys.Live):
		m.session.Apply(gen, annotate.LeaveMsg{})
	}

	return m, nil
}

// begin supersedes any running stream and opens a new one
func (m Model) begin() (Model, tea.Cmd) {
	ctx, gen := m.session.Begin(m.parent)
	m.streaming = true
	m.err = nil
	m.status = "streaming"

	streamer, prompt := m.streamer, m.opts.Prompt
	return m, func() tea.Msg {
		dec, err := streamer.AttentionStream(ctx, prompt)
		return streamOpenedMsg{gen: gen, ctx: ctx, dec: dec, err: err}
	}
}

func next(ctx context.Context, gen uint64, dec *stream.Decoder) tea.Cmd {
	return func() tea.Msg {
		event, err := dec.Next(ctx)
		if err != nil {
			return streamDoneMsg{gen: gen, dropped: dec.Dropped(), err: err}
		}
		return streamEventMsg{gen: gen, ctx: ctx, dec: dec, event: event}
	}
}

// View implements tea.Model
func (m Model) View() string {
	acc := m.session.Accumulator()
	state := acc.State()

	var b strings.Builder

	header := titleStyle.Render("llmxray watch")
	if m.streaming {
		header += " " + m.spinner.View()
	}
	b.WriteString(header + " " + mutedStyle.Render(m.status) + "\n\n")

	b.WriteString(mutedStyle.Render("PROMPT") + "\n")
	b.WriteString(m.wrap(m.term.ContextHeat(state.ContextUnits, acc.Intensities())) + "\n\n")

	b.WriteString(mutedStyle.Render("RESPONSE") + "\n")
	b.WriteString(m.wrap(m.term.Units(state.Units, state.Focus)) + "\n\n")

	if focused, ok := acc.Focused(); ok {
		mode := liveStyle.Render("LIVE")
		if !state.Live {
			mode = frozenStyle.Render(fmt.Sprintf("FROZEN #%d", state.Focus))
		}
		top := annotate.TopContext(state.ContextUnits, focused.Scores, m.opts.TopContextUnits, m.opts.Amplification)
		parts := make([]string, len(top))
		for i, r := range top {
			parts[i] = fmt.Sprintf("%s %.2f", r.Unit, r.Intensity)
		}
		fmt.Fprintf(&b, "%s  %q  →  %s\n", mode, focused.Unit, strings.Join(parts, ", "))
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render("error: "+m.err.Error()) + "\n")
	}

	b.WriteString("\n" + mutedStyle.Render("←/→ inspect • esc live • s stop • r restart • q quit"))
	return b.String()
}

func (m Model) wrap(s string) string {
	if m.width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(m.width).Render(s)
}
