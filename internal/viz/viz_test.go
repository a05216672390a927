package viz

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/particlelab/internal/compute"
	"github.com/san-kum/particlelab/internal/scene"
	"github.com/san-kum/particlelab/internal/sim"
	"github.com/san-kum/particlelab/internal/simbuf"
)

func TestCanvasSet(t *testing.T) {
	c := NewCanvas(2, 2)
	c.Set(0, 0)
	c.Set(3, 7)
	c.Set(-1, 0)
	c.Set(4, 0)

	if c.Grid[0][0] != 0x2801 {
		t.Errorf("expected U+2801, got %U", c.Grid[0][0])
	}
	if c.Grid[1][1] != 0x2880 {
		t.Errorf("expected U+2880, got %U", c.Grid[1][1])
	}
	if !c.IsSet(3, 7) || c.IsSet(1, 1) || c.IsSet(9, 9) {
		t.Error("IsSet disagrees with Set")
	}

	lines := strings.Split(c.String(), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if len([]rune(lines[0])) != 2 {
		t.Errorf("expected 2 cells per line, got %d", len([]rune(lines[0])))
	}

	c.Clear()
	if c.IsSet(0, 0) {
		t.Error("expected clear canvas")
	}
}

func TestCanvasDrawLine(t *testing.T) {
	c := NewCanvas(4, 1)
	c.DrawLine(0, 1, 5, 1)
	for x := 0; x <= 5; x++ {
		if !c.IsSet(x, 1) {
			t.Errorf("expected dot at (%d, 1)", x)
		}
	}
	if c.IsSet(6, 1) || c.IsSet(0, 0) {
		t.Error("line overshoots")
	}

	c.Clear()
	c.DrawLine(0, 0, 3, 3)
	for i := 0; i <= 3; i++ {
		if !c.IsSet(i, i) {
			t.Errorf("expected diagonal dot at %d", i)
		}
	}
}

func TestCanvasResize(t *testing.T) {
	c := NewCanvas(2, 2)
	c.Set(0, 0)
	c.Resize(5, 3)
	if c.Width != 5 || c.Height != 3 || c.DotWidth() != 10 || c.DotHeight() != 12 {
		t.Errorf("unexpected size %dx%d", c.Width, c.Height)
	}
	if c.IsSet(0, 0) {
		t.Error("resize should clear")
	}

	c.Resize(0, -1)
	if c.Width != 1 || c.Height != 1 {
		t.Errorf("expected minimum 1x1, got %dx%d", c.Width, c.Height)
	}
}

func TestCameraProject(t *testing.T) {
	cam := NewCamera()
	cam.Yaw, cam.Pitch = 0, 0
	cam.Fit(simbuf.NewBox(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1}))

	const w, h = 100, 80
	x, y, _, ok := cam.Project(mgl32.Vec3{0.5, 0.5, 0.5}, w, h)
	if !ok || x != w/2 || y != h/2 {
		t.Errorf("center projected to (%d, %d) ok=%v", x, y, ok)
	}

	x, _, _, _ = cam.Project(mgl32.Vec3{0.8, 0.5, 0.5}, w, h)
	if x <= w/2 {
		t.Errorf("expected +x to the right, got %d", x)
	}
	_, y, _, _ = cam.Project(mgl32.Vec3{0.5, 0.8, 0.5}, w, h)
	if y >= h/2 {
		t.Errorf("expected +y upwards, got %d", y)
	}

	if _, _, _, ok := cam.Project(mgl32.Vec3{0.5, 0.5, 20}, w, h); ok {
		t.Error("expected point behind the eye to be hidden")
	}
	nan := float32(0)
	nan = nan / nan
	if _, _, _, ok := cam.Project(mgl32.Vec3{nan, 0, 0}, w, h); ok {
		t.Error("expected NaN to be hidden")
	}
}

func TestCameraControls(t *testing.T) {
	cam := NewCamera()
	cam.Orbit(0, 10)
	if cam.Pitch >= 1.58 {
		t.Errorf("pitch not clamped: %v", cam.Pitch)
	}
	for i := 0; i < 50; i++ {
		cam.ZoomIn()
	}
	if cam.Zoom != 10 {
		t.Errorf("expected zoom capped at 10, got %v", cam.Zoom)
	}
	for i := 0; i < 100; i++ {
		cam.ZoomOut()
	}
	if cam.Zoom != 0.1 {
		t.Errorf("expected zoom floored at 0.1, got %v", cam.Zoom)
	}
}

func sampleBuffer() *simbuf.Buffer {
	b := simbuf.New()
	b.AddPhase(simbuf.DefaultPhase())
	b.AddParticle(mgl32.Vec3{0.5, 0.5, 0.5}, mgl32.Vec3{}, 0, 0)
	b.AddParticle(mgl32.Vec3{0.2, 0.3, 0.4}, mgl32.Vec3{}, 0, 0)
	b.AddParticle(mgl32.Vec3{0.7, 0.6, 0.5}, mgl32.Vec3{}, 0, 0)
	b.StretchIDs = []int32{0, 1}
	return b
}

func TestDrawView(t *testing.T) {
	c := NewCanvas(40, 20)
	cam := NewCamera()
	b := sampleBuffer()
	cam.Fit(b.Common.AnalysisBox)

	if got := DrawView(c, cam, b.View()); got != 3 {
		t.Errorf("expected 3 visible particles, got %d", got)
	}
	if !strings.ContainsFunc(c.String(), func(r rune) bool { return r > brailleBlank }) {
		t.Error("expected something drawn")
	}

	if got := DrawView(c, cam, simbuf.View{}); got != 0 {
		t.Errorf("expected 0 for empty view, got %d", got)
	}
	if strings.ContainsFunc(c.String(), func(r rune) bool { return r > brailleBlank }) {
		t.Error("expected blank canvas for empty view")
	}
}

func TestThemes(t *testing.T) {
	if GetTheme("ocean").Name != "ocean" {
		t.Error("expected ocean theme")
	}
	if GetTheme("nope").Name != Themes[0].Name {
		t.Error("expected fallback to first theme")
	}
	th := Themes[0]
	for range Themes {
		th = NextTheme(th)
	}
	if th.Name != Themes[0].Name {
		t.Errorf("expected cycle back to %s, got %s", Themes[0].Name, th.Name)
	}
}

func testController(t *testing.T) *sim.Controller {
	t.Helper()
	reg := scene.NewRegistry(scene.New("Tiny", simbuf.Fluid, 3, func(b *simbuf.Buffer) {
		src := sampleBuffer()
		b.AddPhase(simbuf.DefaultPhase())
		for i := range src.Positions {
			b.AddParticle(src.Positions[i], src.Velocities[i], 0, 0)
		}
	}))
	factory, err := compute.NewFactory("cpu", compute.Options{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	c := sim.NewController(reg, factory)
	if err := c.Start(0); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Shutdown)
	return c
}

func press(m Model, k string) (Model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
	return next.(Model), cmd
}

func tick(t *testing.T, m Model) Model {
	t.Helper()
	next, cmd := m.Update(TickMsg(time.Now()))
	if cmd == nil {
		t.Fatal("expected next tick")
	}
	return next.(Model)
}

func TestModelDrivesController(t *testing.T) {
	c := testController(t)
	m := NewModel(context.Background(), c, Options{FPS: 60})

	m = tick(t, m)
	if c.Frames() != 1 || c.Steps() != 0 {
		t.Errorf("expected 1 frame 0 steps, got %d %d", c.Frames(), c.Steps())
	}
	if m.visible != 3 {
		t.Errorf("expected 3 visible particles, got %d", m.visible)
	}
	if len(m.energy.History()) != 1 {
		t.Errorf("expected 1 energy sample, got %d", len(m.energy.History()))
	}

	m, _ = press(m, "o")
	m = tick(t, m)
	if c.Steps() != 1 {
		t.Errorf("expected 1 step, got %d", c.Steps())
	}

	m, _ = press(m, "p")
	if !c.Playing() {
		t.Error("expected playing")
	}
	m = tick(t, m)
	m = tick(t, m)
	if c.Steps() != 3 {
		t.Errorf("expected 3 steps, got %d", c.Steps())
	}

	m, _ = press(m, "9")
	m = tick(t, m)
	if c.Generation() != 1 {
		t.Errorf("out of range scene key should be ignored, generation %d", c.Generation())
	}

	m, _ = press(m, "1")
	m = tick(t, m)
	if c.Generation() != 2 {
		t.Errorf("expected reload to generation 2, got %d", c.Generation())
	}
	if len(m.energy.History()) != 1 {
		t.Errorf("expected energy history reset on reload, got %d", len(m.energy.History()))
	}

	if c.Playing() {
		t.Error("expected reload to start paused")
	}

	out := m.View()
	for _, want := range []string{"TINY", "PAUSED", "Particles"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}

	_, cmd := press(m, "q")
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestModelStopsOnControllerError(t *testing.T) {
	c := testController(t)
	m := NewModel(context.Background(), c, Options{})
	c.Shutdown()

	next, cmd := m.Update(TickMsg(time.Now()))
	if next.(Model).Err() == nil {
		t.Error("expected error after shutdown")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}
