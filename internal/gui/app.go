// Package gui is the raylib frontend: an orbiting 3D view of the particles
// with a raygui side panel for scene selection and playback.
package gui

import (
	"context"
	"math"

	"github.com/charmbracelet/log"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/san-kum/particlelab/internal/sim"
	"github.com/san-kum/particlelab/internal/simbuf"
)

var (
	ColBg      = rl.NewColor(10, 10, 10, 255)
	ColAccent  = rl.NewColor(180, 180, 180, 255)
	ColText    = rl.NewColor(140, 140, 140, 255)
	ColTextDim = rl.NewColor(60, 60, 60, 255)
	ColBox     = rl.NewColor(70, 70, 70, 255)
	ColFixed   = rl.NewColor(255, 136, 0, 255)
	ColCloth   = rl.NewColor(200, 200, 200, 160)
)

const (
	panelWidth = 240
	// stepRepeatDelay is how long O must be held before it steps every frame.
	stepRepeatDelay = 0.3
)

type Options struct {
	Width, Height int32
	Title         string
	FPS           int32
	Logger        *log.Logger
}

// App implements sim.Frontend on a raylib window.
type App struct {
	ctrl *sim.Controller
	opts Options
	log  *log.Logger

	camera     rl.Camera3D
	yaw, pitch float32
	distance   float32

	stepHeld float32
	quit     bool
}

func New(c *sim.Controller, opts Options) *App {
	if opts.Width <= 0 {
		opts.Width = 1280
	}
	if opts.Height <= 0 {
		opts.Height = 720
	}
	if opts.FPS <= 0 {
		opts.FPS = 60
	}
	if opts.Title == "" {
		opts.Title = "particlelab"
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &App{
		ctrl:     c,
		opts:     opts,
		log:      opts.Logger,
		yaw:      0.6,
		pitch:    0.35,
		distance: 3,
		camera: rl.NewCamera3D(
			rl.NewVector3(0, 0, 3),
			rl.NewVector3(0, 0, 0),
			rl.NewVector3(0, 1, 0),
			45.0,
			rl.CameraPerspective,
		),
	}
}

func (a *App) open() {
	rl.InitWindow(a.opts.Width, a.opts.Height, a.opts.Title)
	rl.SetTargetFPS(a.opts.FPS)
	rl.SetExitKey(0)
}

// Run opens the window, starts scene start and drives the controller until the
// window closes.
func Run(ctx context.Context, c *sim.Controller, start int, play bool, opts Options) error {
	app := New(c, opts)
	app.open()
	defer rl.CloseWindow()

	if err := c.Start(start); err != nil {
		c.Shutdown()
		return err
	}
	if play {
		if err := c.TogglePause(); err != nil {
			c.Shutdown()
			return err
		}
	}
	return sim.RunLoop(ctx, c, app)
}

func (a *App) ShouldClose() bool {
	return a.quit || rl.WindowShouldClose()
}

// PollEvents maps keys to controller commands: P toggles play, O steps on
// press and repeats while held, 1..9 load scenes, ESC quits. The right mouse
// button orbits and the wheel zooms.
func (a *App) PollEvents() {
	if rl.IsKeyPressed(rl.KeyEscape) {
		a.quit = true
		return
	}
	if rl.IsKeyPressed(rl.KeyP) {
		a.command("toggle", a.ctrl.TogglePause())
	}

	if rl.IsKeyDown(rl.KeyO) {
		if rl.IsKeyPressed(rl.KeyO) {
			a.stepHeld = 0
			a.command("step", a.ctrl.RequestStep())
		} else {
			a.stepHeld += rl.GetFrameTime()
			if a.stepHeld >= stepRepeatDelay {
				a.command("step", a.ctrl.RequestStep())
			}
		}
	}

	for i := int32(0); i < 9; i++ {
		if rl.IsKeyPressed(rl.KeyOne + i) {
			a.reload(int(i))
		}
	}

	if rl.IsMouseButtonDown(rl.MouseRightButton) {
		d := rl.GetMouseDelta()
		a.orbit(-d.X*0.01, d.Y*0.01)
	}
	if w := rl.GetMouseWheelMove(); w != 0 {
		a.distance = clamp(a.distance*(1-0.1*w), 0.5, 20)
	}
	a.updateCamera()
}

func (a *App) command(name string, err error) {
	if err != nil {
		a.log.Warn("command rejected", "cmd", name, "err", err)
	}
}

func (a *App) reload(index int) {
	if index >= a.ctrl.Scenes().Len() {
		return
	}
	a.command("reload", a.ctrl.RequestReload(index))
}

func (a *App) orbit(dYaw, dPitch float32) {
	a.yaw += dYaw
	a.pitch = clamp(a.pitch+dPitch, -math.Pi/2+0.05, math.Pi/2-0.05)
}

func (a *App) updateCamera() {
	t := a.camera.Target
	cp := float32(math.Cos(float64(a.pitch)))
	a.camera.Position = rl.NewVector3(
		t.X+a.distance*cp*float32(math.Sin(float64(a.yaw))),
		t.Y+a.distance*float32(math.Sin(float64(a.pitch))),
		t.Z+a.distance*cp*float32(math.Cos(float64(a.yaw))),
	)
}

// MapBuffer frames the camera around the new scene's analysis box.
func (a *App) MapBuffer(v simbuf.View) {
	box := v.Common().AnalysisBox
	c := box.Center()
	a.camera.Target = rl.NewVector3(c[0], c[1], c[2])
	a.distance = max(box.Size().Len()*1.6, 0.5)
	a.updateCamera()
	a.log.Debug("mapped", "scene", a.ctrl.Activation().Scene, "particles", v.NumParticles())
}

func (a *App) Render(v simbuf.View) {
	rl.BeginDrawing()
	rl.ClearBackground(ColBg)

	rl.BeginMode3D(a.camera)
	drawScene(v)
	rl.EndMode3D()

	a.drawPanel(v)
	rl.EndDrawing()
}

func clamp(v, lo, hi float32) float32 {
	return max(lo, min(hi, v))
}
