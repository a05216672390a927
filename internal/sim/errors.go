package sim

import (
	"errors"
	"fmt"
)

// Controller errors.
var (
	// ErrAlreadyStarted indicates Start was called more than once.
	ErrAlreadyStarted = errors.New("sim: controller already started")

	// ErrNotRunning indicates a command issued while no scene is active.
	ErrNotRunning = errors.New("sim: controller not running")

	// ErrShutdown indicates a command issued after shutdown.
	ErrShutdown = errors.New("sim: controller shut down")

	// ErrSceneIndex indicates a scene index outside the registry.
	ErrSceneIndex = errors.New("sim: scene index out of range")

	// ErrFaulted indicates the session stopped after a solver fault.
	ErrFaulted = errors.New("sim: session faulted")
)

type FaultKind int

const (
	FaultInit FaultKind = iota
	FaultStep
	FaultReadBack
)

func (k FaultKind) String() string {
	switch k {
	case FaultInit:
		return "init"
	case FaultStep:
		return "step"
	case FaultReadBack:
		return "read-back"
	default:
		return fmt.Sprintf("FaultKind(%d)", int(k))
	}
}

// FaultError wraps a solver failure with the activation it happened in.
type FaultError struct {
	Kind       FaultKind
	Scene      string
	Generation uint64
	Step       uint64
	Wrapped    error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("sim: %s fault in %q (generation %d, step %d): %v",
		e.Kind, e.Scene, e.Generation, e.Step, e.Wrapped)
}

func (e *FaultError) Unwrap() error {
	return e.Wrapped
}
