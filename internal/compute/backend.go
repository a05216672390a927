package compute

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/san-kum/particlelab/internal/simbuf"
)

var (
	// ErrUnavailable indicates the backend cannot run on this machine or build.
	ErrUnavailable = errors.New("compute: backend unavailable")

	// ErrNotBound indicates a step or read-back before a successful bind.
	ErrNotBound = errors.New("compute: solver not bound")

	// ErrAlreadyBound indicates a bind without a preceding release.
	ErrAlreadyBound = errors.New("compute: solver already bound, release first")

	// ErrWrongPath indicates a fluid call on a cloth binding or the reverse.
	ErrWrongPath = errors.New("compute: call does not match bound state of matter")

	// ErrSizeMismatch indicates the host buffer no longer matches the device copy.
	ErrSizeMismatch = errors.New("compute: host buffer size does not match device state")

	// ErrUnsupported indicates the backend lacks the requested path.
	ErrUnsupported = errors.New("compute: path not supported by backend")

	// ErrUnknownBackend indicates an unrecognised backend name.
	ErrUnknownBackend = errors.New("compute: unknown backend")
)

// Solver is the opaque physics engine boundary. Step never mutates the host
// buffer; ReadBack overwrites its per-particle arrays in place.
type Solver interface {
	Name() string

	Bind(b *simbuf.Buffer) error
	Step(b *simbuf.Buffer) error
	ReadBack(b *simbuf.Buffer) error

	BindCloth(b *simbuf.Buffer) error
	StepCloth(b *simbuf.Buffer) error
	ReadBackCloth(b *simbuf.Buffer) error

	// Release frees device resources. Safe to call more than once.
	Release()
}

// Factory creates a fresh, unbound solver.
type Factory func() (Solver, error)

type Options struct {
	Workers int
	Logger  *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Backends lists the names accepted by NewFactory.
func Backends() []string {
	return []string{"auto", "cpu", "cuda", "gl"}
}

// NewFactory returns a factory for the named backend.
func NewFactory(name string, opts Options) (Factory, error) {
	opts = opts.withDefaults()
	switch name {
	case "", "auto":
		return func() (Solver, error) { return AutoSelect(opts), nil }, nil
	case "cpu":
		return func() (Solver, error) { return NewCPUSolver(opts), nil }, nil
	case "cuda":
		return func() (Solver, error) {
			s := NewCUDASolver(opts)
			if !s.Available() {
				return nil, fmt.Errorf("%w: %s", ErrUnavailable, s.Name())
			}
			return s, nil
		}, nil
	case "gl":
		return func() (Solver, error) { return NewGLSolver(opts), nil }, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// AutoSelect picks CUDA when a device is present, else the CPU solver.
func AutoSelect(opts Options) Solver {
	opts = opts.withDefaults()
	cuda := NewCUDASolver(opts)
	if cuda.Available() {
		return cuda
	}
	return NewCPUSolver(opts)
}
