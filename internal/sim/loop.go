package sim

import (
	"context"

	"github.com/san-kum/particlelab/internal/simbuf"
)

// RunLoop drives c until the frontend closes, the context ends or a fault
// stops the session. The controller is shut down on return.
func RunLoop(ctx context.Context, c *Controller, f Frontend) error {
	defer c.Shutdown()

	var mapped uint64
	for !f.ShouldClose() {
		f.PollEvents()

		v, err := c.Frame(ctx)
		if err != nil {
			return err
		}
		if g := c.Generation(); g != mapped {
			f.MapBuffer(v)
			mapped = g
		}
		f.Render(v)
	}
	return nil
}

// Headless is a frontend without a display. It closes after Frames renders
// when Frames is positive.
type Headless struct {
	Frames int

	// OnPoll runs once per frame before the controller advances.
	OnPoll func(frame int)
	// OnRender receives every rendered view.
	OnRender func(frame int, v simbuf.View)

	rendered int
	mapped   int
}

func (h *Headless) ShouldClose() bool {
	return h.Frames > 0 && h.rendered >= h.Frames
}

func (h *Headless) PollEvents() {
	if h.OnPoll != nil {
		h.OnPoll(h.rendered)
	}
}

func (h *Headless) MapBuffer(simbuf.View) { h.mapped++ }

func (h *Headless) Render(v simbuf.View) {
	if h.OnRender != nil {
		h.OnRender(h.rendered, v)
	}
	h.rendered++
}

func (h *Headless) Rendered() int { return h.rendered }
func (h *Headless) Mapped() int   { return h.mapped }
