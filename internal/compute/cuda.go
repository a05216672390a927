//go:build cuda

package compute

/*
#cgo CFLAGS: -I/opt/cuda/include
#cgo LDFLAGS: -L/opt/cuda/lib64 -L${SRCDIR} -lcudart -lpbd -lstdc++
#include <stdlib.h>

extern int cuda_device_count();
extern const char* cuda_device_name_get();

extern int pbd_bind(const float* pos, const float* vel, const float* inv_mass, const float* rest,
                    const float* color, int n, int cloth);
extern int pbd_bind_constraints(const int* pairs, const float* compliance, int n_pairs);
extern int pbd_step_fluid(float dt, float gx, float gy, float gz, float h, float radius,
                          float eps, float scorr_k, float scorr_dq, int iterations,
                          const float* box_min, const float* box_max);
extern int pbd_step_cloth(float dt, float gx, float gy, float gz, float radius, float alpha,
                          int iterations, const float* box_min, const float* box_max);
extern int pbd_read(float* pos, float* vel, float* color, int n);
extern void pbd_release();
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/particlelab/internal/simbuf"
)

// CUDASolver forwards to the pbd kernels linked from libpbd. The library holds
// one binding per process.
type CUDASolver struct {
	log        *log.Logger
	available  bool
	deviceName string

	bound bool
	kind  simbuf.StateOfMatter
	n     int
}

func NewCUDASolver(opts Options) *CUDASolver {
	opts = opts.withDefaults()
	count := int(C.cuda_device_count())
	name := ""
	if count > 0 {
		name = C.GoString(C.cuda_device_name_get())
	}
	return &CUDASolver{
		log:        opts.Logger.WithPrefix("cuda"),
		available:  count > 0,
		deviceName: name,
	}
}

func (c *CUDASolver) Name() string {
	if c.available {
		return "cuda (" + c.deviceName + ")"
	}
	return "cuda (not available)"
}

func (c *CUDASolver) Available() bool { return c.available }

func (c *CUDASolver) Bind(b *simbuf.Buffer) error      { return c.bind(b, simbuf.Fluid) }
func (c *CUDASolver) BindCloth(b *simbuf.Buffer) error { return c.bind(b, simbuf.Cloth) }

func (c *CUDASolver) bind(b *simbuf.Buffer, kind simbuf.StateOfMatter) error {
	if !c.available {
		return ErrUnavailable
	}
	if c.bound {
		return ErrAlreadyBound
	}
	if err := b.Validate(kind); err != nil {
		return fmt.Errorf("compute: bind %s: %w", kind, err)
	}

	n := b.NumParticles()
	common := b.Common
	invMass := make([]float32, n)
	rest := make([]float32, n)
	for i, p := range b.Positions {
		rest[i] = b.PhaseParams[b.Phases[i]].Density
		if !common.Pinned(p) {
			invMass[i] = 1
		}
	}

	cloth := 0
	if kind == simbuf.Cloth {
		cloth = 1
	}
	if n > 0 {
		rc := C.pbd_bind(vecPtr(b.Positions), vecPtr(b.Velocities), floatPtr(invMass), floatPtr(rest),
			floatPtr(b.ColorValues), C.int(n), C.int(cloth))
		if rc != 0 {
			return fmt.Errorf("compute: cuda bind failed with code %d", int(rc))
		}
	}

	if kind == simbuf.Cloth {
		var pairs []int32
		var compliance []float32
		for _, set := range []struct {
			ids []int32
			c   float32
		}{{b.StretchIDs, stretchCompliance}, {b.ShearIDs, shearCompliance}, {b.BendIDs, bendCompliance}} {
			pairs = append(pairs, set.ids...)
			for i := 0; i+1 < len(set.ids); i += 2 {
				compliance = append(compliance, set.c)
			}
		}
		if len(compliance) > 0 {
			rc := C.pbd_bind_constraints((*C.int)(unsafe.Pointer(&pairs[0])), floatPtr(compliance), C.int(len(compliance)))
			if rc != 0 {
				C.pbd_release()
				return fmt.Errorf("compute: cuda constraint upload failed with code %d", int(rc))
			}
		}
	}

	c.kind = kind
	c.n = n
	c.bound = true
	c.log.Debug("bound", "kind", kind, "particles", n)
	return nil
}

func (c *CUDASolver) ready(b *simbuf.Buffer, kind simbuf.StateOfMatter) error {
	if !c.bound {
		return ErrNotBound
	}
	if c.kind != kind {
		return fmt.Errorf("%w: bound %s, called %s", ErrWrongPath, c.kind, kind)
	}
	if b.NumParticles() != c.n {
		return fmt.Errorf("%w: host %d, device %d", ErrSizeMismatch, b.NumParticles(), c.n)
	}
	return nil
}

func (c *CUDASolver) Step(b *simbuf.Buffer) error {
	if err := c.ready(b, simbuf.Fluid); err != nil {
		return err
	}
	if c.n == 0 {
		return nil
	}
	p := b.Common
	lo, hi := p.AnalysisBox.Min, p.AnalysisBox.Max
	rc := C.pbd_step_fluid(C.float(p.Dt), C.float(p.Gravity[0]), C.float(p.Gravity[1]), C.float(p.Gravity[2]),
		C.float(p.H), C.float(p.Radius), C.float(p.RelaxationParameter), C.float(p.ScorrK), C.float(p.ScorrDq),
		C.int(p.IterationNumber), floatPtr(lo[:]), floatPtr(hi[:]))
	if rc != 0 {
		return fmt.Errorf("compute: cuda fluid step failed with code %d", int(rc))
	}
	return nil
}

func (c *CUDASolver) StepCloth(b *simbuf.Buffer) error {
	if err := c.ready(b, simbuf.Cloth); err != nil {
		return err
	}
	if c.n == 0 {
		return nil
	}
	p := b.Common
	var alpha float32
	if p.RelaxationParameter > 0 && p.Dt > 0 {
		alpha = 1 / (p.RelaxationParameter * p.Dt * p.Dt)
	}
	lo, hi := p.AnalysisBox.Min, p.AnalysisBox.Max
	rc := C.pbd_step_cloth(C.float(p.Dt), C.float(p.Gravity[0]), C.float(p.Gravity[1]), C.float(p.Gravity[2]),
		C.float(p.Radius), C.float(alpha), C.int(p.IterationNumber), floatPtr(lo[:]), floatPtr(hi[:]))
	if rc != 0 {
		return fmt.Errorf("compute: cuda cloth step failed with code %d", int(rc))
	}
	return nil
}

func (c *CUDASolver) ReadBack(b *simbuf.Buffer) error      { return c.readBack(b, simbuf.Fluid) }
func (c *CUDASolver) ReadBackCloth(b *simbuf.Buffer) error { return c.readBack(b, simbuf.Cloth) }

func (c *CUDASolver) readBack(b *simbuf.Buffer, kind simbuf.StateOfMatter) error {
	if err := c.ready(b, kind); err != nil {
		return err
	}
	if c.n == 0 {
		return nil
	}
	rc := C.pbd_read((*C.float)(unsafe.Pointer(&b.Positions[0])), (*C.float)(unsafe.Pointer(&b.Velocities[0])),
		(*C.float)(unsafe.Pointer(&b.ColorValues[0])), C.int(c.n))
	if rc != 0 {
		return fmt.Errorf("compute: cuda read-back failed with code %d", int(rc))
	}
	return nil
}

func (c *CUDASolver) Release() {
	if !c.bound {
		return
	}
	C.pbd_release()
	c.bound = false
	c.n = 0
	c.log.Debug("released")
}

func vecPtr(v []mgl32.Vec3) *C.float {
	return (*C.float)(unsafe.Pointer(&v[0]))
}

func floatPtr(v []float32) *C.float {
	if len(v) == 0 {
		return nil
	}
	return (*C.float)(unsafe.Pointer(&v[0]))
}
