package viz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/particlelab/internal/metrics"
	"github.com/san-kum/particlelab/internal/sim"
	"github.com/san-kum/particlelab/internal/simbuf"
)

const (
	historyCapacity = 600
	panelWidth      = 48
)

type TickMsg time.Time

// Options configure the terminal frontend.
type Options struct {
	FPS   int
	Theme string
	// Play starts the first scene playing instead of paused.
	Play bool
}

// Model is the Bubble Tea model. Every tick it advances the controller by one
// frame and redraws the latest view.
type Model struct {
	ctx    context.Context
	ctrl   *sim.Controller
	tick   time.Duration
	keys   keyMap
	help   help.Model
	theme  Theme
	styles styles

	canvas *Canvas
	camera *Camera
	energy *metrics.Energy

	view          simbuf.View
	visible       int
	mapped        uint64
	width, height int
	showHelp      bool
	lastFrame     time.Time
	fps           float64
	err           error
}

func NewModel(ctx context.Context, c *sim.Controller, opts Options) Model {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	theme := GetTheme(opts.Theme)
	return Model{
		ctx:    ctx,
		ctrl:   c,
		tick:   time.Second / time.Duration(opts.FPS),
		keys:   defaultKeyMap(),
		help:   help.New(),
		theme:  theme,
		styles: newStyles(theme),
		canvas: NewCanvas(60, 24),
		camera: NewCamera(),
		energy: metrics.NewEnergy(historyCapacity),
		width:  110,
		height: 30,
	}
}

// Err returns the error that ended the session, if any.
func (m Model) Err() error { return m.err }

func (m Model) Init() tea.Cmd {
	return m.nextTick()
}

func (m Model) nextTick() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.canvas.Resize(max(msg.Width-panelWidth-4, 10), max(msg.Height-3, 5))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		now := time.Time(msg)
		if !m.lastFrame.IsZero() {
			if dt := now.Sub(m.lastFrame).Seconds(); dt > 0 {
				m.fps = 0.9*m.fps + 0.1/dt
			}
		}
		m.lastFrame = now

		if err := m.frame(); err != nil {
			m.err = err
			return m, tea.Quit
		}
		return m, m.nextTick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var err error
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Pause):
		err = m.ctrl.TogglePause()
	case key.Matches(msg, m.keys.Step):
		err = m.ctrl.RequestStep()
	case key.Matches(msg, m.keys.Scene):
		idx := int(msg.String()[0] - '1')
		if idx < m.ctrl.Scenes().Len() {
			err = m.ctrl.RequestReload(idx)
		}
	case key.Matches(msg, m.keys.Left):
		m.camera.Orbit(-0.1, 0)
	case key.Matches(msg, m.keys.Right):
		m.camera.Orbit(0.1, 0)
	case key.Matches(msg, m.keys.Up):
		m.camera.Orbit(0, 0.1)
	case key.Matches(msg, m.keys.Down):
		m.camera.Orbit(0, -0.1)
	case key.Matches(msg, m.keys.Zoom):
		if s := msg.String(); s == "+" || s == "=" {
			m.camera.ZoomIn()
		} else {
			m.camera.ZoomOut()
		}
	case key.Matches(msg, m.keys.Theme):
		m.theme = NextTheme(m.theme)
		m.styles = newStyles(m.theme)
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	}
	if err != nil {
		m.err = err
		return m, tea.Quit
	}
	if m.view.Valid() {
		m.visible = DrawView(m.canvas, m.camera, m.view)
	}
	return m, nil
}

// frame runs one controller frame and redraws. A new activation refits the
// camera and clears the energy history.
func (m *Model) frame() error {
	v, err := m.ctrl.Frame(m.ctx)
	if err != nil {
		return err
	}
	if g := m.ctrl.Generation(); g != m.mapped {
		m.camera.Fit(v.Common().AnalysisBox)
		m.energy.Reset()
		m.mapped = g
	}
	m.view = v
	m.energy.Observe(v)
	m.visible = DrawView(m.canvas, m.camera, v)
	return nil
}

func (m Model) View() string {
	st := m.styles
	a := m.ctrl.Activation()

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(a.Scene)) + "\n")
	s.WriteString(m.status() + "\n\n")

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Kind", a.Kind.String())
	row("Backend", a.Backend)
	row("Particles", fmt.Sprintf("%d (%d shown)", a.Particles, m.visible))
	if a.Kind == simbuf.Cloth {
		row("Constraints", fmt.Sprintf("%d", a.Constraints))
	}
	row("Generation", fmt.Sprintf("%d", m.ctrl.Generation()))
	row("Frames", fmt.Sprintf("%d", m.ctrl.Frames()))
	row("Steps", fmt.Sprintf("%d", m.ctrl.Steps()))
	row("FPS", fmt.Sprintf("%.1f", m.fps))
	if m.view.Valid() {
		row("dt", fmt.Sprintf("%.4g", m.view.Common().Dt))
		row("Max speed", fmt.Sprintf("%.3f", metrics.MaxSpeed(m.view)))
	}
	row("Energy", fmt.Sprintf("%.4g", m.energy.Value()))

	if hist := m.energy.History(); len(hist) > 1 {
		chart := asciigraph.Plot(hist,
			asciigraph.Height(5),
			asciigraph.Width(30),
			asciigraph.Caption("kinetic energy"))
		s.WriteString(st.graph.Render(chart) + "\n")
	}

	s.WriteString("\n" + m.help.View(m.keys))

	canvasView := st.canvas.Render(m.canvas.String())
	panel := st.panel.Render(s.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, panel)
}

func (m Model) status() string {
	st := m.styles
	switch {
	case m.ctrl.Err() != nil:
		return st.fault.Render("FAULT")
	case m.ctrl.State() != sim.Running:
		return st.paused.Render(strings.ToUpper(m.ctrl.State().String()))
	case m.ctrl.Playing():
		return st.playing.Render("PLAYING")
	default:
		return st.paused.Render("PAUSED")
	}
}

// Run starts the controller on scene start and hands it to a full-screen
// Bubble Tea program until the user quits. The controller is shut down on
// return.
func Run(ctx context.Context, c *sim.Controller, start int, opts Options) error {
	defer c.Shutdown()
	if err := c.Start(start); err != nil {
		return err
	}
	if opts.Play {
		if err := c.TogglePause(); err != nil {
			return err
		}
	}

	final, err := tea.NewProgram(NewModel(ctx, c, opts), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("viz: %w", err)
	}
	if m, ok := final.(Model); ok {
		return m.Err()
	}
	return nil
}
