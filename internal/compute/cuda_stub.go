//go:build !cuda

package compute

import "github.com/san-kum/particlelab/internal/simbuf"

// CUDASolver is unavailable in builds without the cuda tag.
type CUDASolver struct{}

func NewCUDASolver(Options) *CUDASolver {
	return &CUDASolver{}
}

func (c *CUDASolver) Name() string    { return "cuda (not available)" }
func (c *CUDASolver) Available() bool { return false }
func (c *CUDASolver) Release()        {}

func (c *CUDASolver) Bind(*simbuf.Buffer) error          { return ErrUnavailable }
func (c *CUDASolver) Step(*simbuf.Buffer) error          { return ErrUnavailable }
func (c *CUDASolver) ReadBack(*simbuf.Buffer) error      { return ErrUnavailable }
func (c *CUDASolver) BindCloth(*simbuf.Buffer) error     { return ErrUnavailable }
func (c *CUDASolver) StepCloth(*simbuf.Buffer) error     { return ErrUnavailable }
func (c *CUDASolver) ReadBackCloth(*simbuf.Buffer) error { return ErrUnavailable }
