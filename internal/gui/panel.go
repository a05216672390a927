package gui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/san-kum/particlelab/internal/metrics"
	"github.com/san-kum/particlelab/internal/simbuf"
)

const (
	minDt = 0.001
	maxDt = 0.2
)

func (a *App) drawPanel(v simbuf.View) {
	x := float32(a.opts.Width - panelWidth)
	rl.DrawRectangle(int32(x), 0, panelWidth, a.opts.Height, rl.ColorAlpha(ColBg, 0.85))
	x += 12
	y := float32(12)
	w := float32(panelWidth - 24)

	rl.DrawText("SCENES", int32(x), int32(y), 16, ColAccent)
	y += 24
	act := a.ctrl.Activation()
	for _, e := range a.ctrl.Scenes().List() {
		label := fmt.Sprintf("%d  %s", e.Index+1, e.Name)
		if e.Index == act.Index {
			label = "> " + label
		}
		if gui.Button(rl.Rectangle{X: x, Y: y, Width: w, Height: 24}, label) {
			a.reload(e.Index)
		}
		y += 28
	}

	y += 12
	playLabel := "Play"
	if a.ctrl.Playing() {
		playLabel = "Pause"
	}
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: w/2 - 4, Height: 28}, playLabel) {
		a.command("toggle", a.ctrl.TogglePause())
	}
	if gui.Button(rl.Rectangle{X: x + w/2 + 4, Y: y, Width: w/2 - 4, Height: 28}, "Step") {
		a.command("step", a.ctrl.RequestStep())
	}
	y += 44

	if v.Valid() {
		dt := v.Common().Dt
		rl.DrawText(fmt.Sprintf("dt  %.4f", dt), int32(x), int32(y), 14, ColText)
		y += 18
		newDt := gui.SliderBar(rl.Rectangle{X: x, Y: y, Width: w, Height: 18}, "", "", dt, minDt, maxDt)
		if newDt != dt {
			a.command("dt", a.ctrl.EditParameters(func(p *simbuf.CommonParameters) { p.Dt = newDt }))
		}
		y += 32
	}

	line := func(format string, args ...any) {
		rl.DrawText(fmt.Sprintf(format, args...), int32(x), int32(y), 14, ColText)
		y += 18
	}
	line("%s  [%s]", act.Kind, act.Backend)
	line("particles  %d", act.Particles)
	if act.Kind == simbuf.Cloth {
		line("constraints  %d", act.Constraints)
	}
	line("frame %d  step %d", a.ctrl.Frames(), a.ctrl.Steps())
	if v.Valid() {
		line("kinetic  %.4g", metrics.KineticEnergy(v))
		line("max speed  %.3f", metrics.MaxSpeed(v))
	}

	rl.DrawText("P play  O step  1-9 scene  ESC quit", 12, a.opts.Height-24, 14, ColTextDim)
	rl.DrawFPS(12, 12)
}
