package sim

import (
	"fmt"
	"time"

	"github.com/san-kum/particlelab/internal/simbuf"
)

// State is the top-level controller state.
type State int

const (
	Uninitialized State = iota
	SceneLoading
	Running
	ShuttingDown
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case SceneLoading:
		return "scene-loading"
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting-down"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Mode is the sub-state while Running.
type Mode int

const (
	Paused Mode = iota
	Stepping
	Playing
)

func (m Mode) String() string {
	switch m {
	case Paused:
		return "paused"
	case Stepping:
		return "stepping"
	case Playing:
		return "playing"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Activation describes one scene binding.
type Activation struct {
	Generation  uint64
	Index       int
	Scene       string
	Kind        simbuf.StateOfMatter
	Backend     string
	Particles   int
	Constraints int
	StartedAt   time.Time
}

// Stats summarises an activation when it ends.
type Stats struct {
	Frames uint64
	Steps  uint64
	Reason string
}

// Observer receives lifecycle callbacks. Views are only valid during the call.
type Observer interface {
	OnActivate(a Activation, v simbuf.View)
	OnStep(a Activation, step uint64, v simbuf.View)
	OnDeactivate(a Activation, s Stats, err error)
}

// Frontend is the presentation collaborator driven by RunLoop.
type Frontend interface {
	ShouldClose() bool
	PollEvents()
	// MapBuffer is called once after every activation, before the first Render.
	MapBuffer(v simbuf.View)
	Render(v simbuf.View)
}
