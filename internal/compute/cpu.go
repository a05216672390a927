package compute

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/particlelab/internal/simbuf"
)

const (
	minChunk       = 256
	defaultEpsilon = 1e-6
	minDistance    = 1e-9
)

// Compliance multipliers applied on top of the stretch compliance.
const (
	stretchCompliance = 1
	shearCompliance   = 4
	bendCompliance    = 20
)

type distanceConstraint struct {
	a, b       int32
	rest       float32
	compliance float32
}

// CPUSolver is a position-based dynamics solver running on host memory.
// Fluids use the density constraint of Macklin and Müller with a spatial
// hash for neighbours; cloth uses XPBD distance constraints built from the
// stretch, shear and bend topology.
type CPUSolver struct {
	workers int
	log     *log.Logger

	bound bool
	kind  simbuf.StateOfMatter

	pos, vel, pred []mgl32.Vec3
	color          []float32
	invMass        []float32
	mass           []float32
	rest           []float32

	kern       kernel
	spacing    float32
	lambda     []float32
	delta      []mgl32.Vec3
	neighbours [][]int32
	grid       *hashGrid

	constraints []distanceConstraint
	multipliers []float32
}

func NewCPUSolver(opts Options) *CPUSolver {
	opts = opts.withDefaults()
	return &CPUSolver{
		workers: opts.Workers,
		log:     opts.Logger.WithPrefix("cpu"),
	}
}

func (c *CPUSolver) Name() string { return "cpu" }

func (c *CPUSolver) Bind(b *simbuf.Buffer) error      { return c.bind(b, simbuf.Fluid) }
func (c *CPUSolver) BindCloth(b *simbuf.Buffer) error { return c.bind(b, simbuf.Cloth) }

func (c *CPUSolver) bind(b *simbuf.Buffer, kind simbuf.StateOfMatter) error {
	if c.bound {
		return ErrAlreadyBound
	}
	if err := b.Validate(kind); err != nil {
		return fmt.Errorf("compute: bind %s: %w", kind, err)
	}

	n := b.NumParticles()
	c.pos = append(make([]mgl32.Vec3, 0, n), b.Positions...)
	c.vel = append(make([]mgl32.Vec3, 0, n), b.Velocities...)
	c.color = append(make([]float32, 0, n), b.ColorValues...)
	c.pred = make([]mgl32.Vec3, n)
	c.invMass = make([]float32, n)
	c.mass = make([]float32, n)
	c.rest = make([]float32, n)

	common := b.Common
	c.refreshKernel(common)
	norm := c.kern.latticeSum(c.spacing)

	for i := 0; i < n; i++ {
		density := b.PhaseParams[b.Phases[i]].Density
		c.rest[i] = density
		if kind == simbuf.Fluid {
			c.mass[i] = density / norm
		} else {
			c.mass[i] = 1
		}
		if !common.Pinned(c.pos[i]) {
			c.invMass[i] = 1 / c.mass[i]
		} else {
			c.vel[i] = mgl32.Vec3{}
		}
	}

	c.constraints = c.constraints[:0]
	if kind == simbuf.Fluid {
		c.lambda = make([]float32, n)
		c.delta = make([]mgl32.Vec3, n)
		c.neighbours = make([][]int32, n)
		c.grid = newHashGrid(common.H)
	} else {
		c.addConstraints(b.StretchIDs, stretchCompliance)
		c.addConstraints(b.ShearIDs, shearCompliance)
		c.addConstraints(b.BendIDs, bendCompliance)
		c.multipliers = make([]float32, len(c.constraints))
	}

	c.kind = kind
	c.bound = true
	c.log.Debug("bound", "kind", kind, "particles", n, "constraints", len(c.constraints))
	return nil
}

func (c *CPUSolver) addConstraints(ids []int32, compliance float32) {
	for i := 0; i+1 < len(ids); i += 2 {
		a, b := ids[i], ids[i+1]
		c.constraints = append(c.constraints, distanceConstraint{
			a:          a,
			b:          b,
			rest:       c.pos[a].Sub(c.pos[b]).Len(),
			compliance: compliance,
		})
	}
}

func (c *CPUSolver) refreshKernel(p simbuf.CommonParameters) {
	if c.kern.h == p.H && c.spacing == p.Diameter {
		return
	}
	c.kern = newKernel(p.H)
	c.spacing = p.Diameter
	if c.grid != nil {
		c.grid = newHashGrid(p.H)
	}
}

func (c *CPUSolver) ready(b *simbuf.Buffer, kind simbuf.StateOfMatter) error {
	if !c.bound {
		return ErrNotBound
	}
	if c.kind != kind {
		return fmt.Errorf("%w: bound %s, called %s", ErrWrongPath, c.kind, kind)
	}
	if b.NumParticles() != len(c.pos) {
		return fmt.Errorf("%w: host %d, device %d", ErrSizeMismatch, b.NumParticles(), len(c.pos))
	}
	return nil
}

func (c *CPUSolver) Step(b *simbuf.Buffer) error {
	if err := c.ready(b, simbuf.Fluid); err != nil {
		return err
	}

	p := b.Common
	c.refreshKernel(p)
	c.predict(p.Gravity, p.Dt)
	c.findNeighbours()

	eps := p.RelaxationParameter
	if eps <= 0 {
		eps = defaultEpsilon
	}
	dq := p.ScorrDq * p.H
	scorrRef := c.kern.W(dq * dq)

	for it := int32(0); it < max(p.IterationNumber, 1); it++ {
		c.solveDensity(eps)
		c.solvePositions(p.ScorrK, scorrRef)
		c.collide(p.AnalysisBox, p.Radius)
	}

	c.finish(p.Dt)
	return nil
}

func (c *CPUSolver) StepCloth(b *simbuf.Buffer) error {
	if err := c.ready(b, simbuf.Cloth); err != nil {
		return err
	}

	p := b.Common
	c.predict(p.Gravity, p.Dt)
	clear(c.multipliers)

	var alpha float32
	if p.RelaxationParameter > 0 && p.Dt > 0 {
		alpha = 1 / (p.RelaxationParameter * p.Dt * p.Dt)
	}

	for it := int32(0); it < max(p.IterationNumber, 1); it++ {
		c.solveConstraints(alpha)
		c.collide(p.AnalysisBox, p.Radius)
	}

	c.finish(p.Dt)
	return nil
}

func (c *CPUSolver) ReadBack(b *simbuf.Buffer) error      { return c.readBack(b, simbuf.Fluid) }
func (c *CPUSolver) ReadBackCloth(b *simbuf.Buffer) error { return c.readBack(b, simbuf.Cloth) }

func (c *CPUSolver) readBack(b *simbuf.Buffer, kind simbuf.StateOfMatter) error {
	if err := c.ready(b, kind); err != nil {
		return err
	}
	copy(b.Positions, c.pos)
	copy(b.Velocities, c.vel)
	copy(b.ColorValues, c.color)
	return nil
}

func (c *CPUSolver) Release() {
	if !c.bound {
		return
	}
	c.pos, c.vel, c.pred = nil, nil, nil
	c.color, c.invMass, c.mass, c.rest = nil, nil, nil, nil
	c.lambda, c.delta, c.neighbours, c.grid = nil, nil, nil, nil
	c.constraints, c.multipliers = nil, nil
	c.bound = false
	c.log.Debug("released")
}

func (c *CPUSolver) predict(gravity mgl32.Vec3, dt float32) {
	parallelFor(c.workers, len(c.pos), minChunk, func(start, end int) {
		for i := start; i < end; i++ {
			if c.invMass[i] == 0 {
				c.pred[i] = c.pos[i]
				continue
			}
			c.vel[i] = c.vel[i].Add(gravity.Mul(dt))
			c.pred[i] = c.pos[i].Add(c.vel[i].Mul(dt))
		}
	})
}

func (c *CPUSolver) findNeighbours() {
	c.grid.build(c.pred)
	h2 := c.kern.h2
	parallelFor(c.workers, len(c.pred), minChunk, func(start, end int) {
		for i := start; i < end; i++ {
			c.neighbours[i] = c.grid.neighbours(c.neighbours[i][:0], c.pred, i, h2)
		}
	})
}

func (c *CPUSolver) solveDensity(eps float32) {
	parallelFor(c.workers, len(c.pred), minChunk, func(start, end int) {
		for i := start; i < end; i++ {
			if c.invMass[i] == 0 {
				c.lambda[i] = 0
				continue
			}
			rho := c.mass[i] * c.kern.W(0)
			var gradI mgl32.Vec3
			var sum2 float32
			for _, j := range c.neighbours[i] {
				r := c.pred[i].Sub(c.pred[j])
				rho += c.mass[j] * c.kern.W(r.Dot(r))
				g := c.kern.Grad(r).Mul(c.mass[j] / c.rest[i])
				gradI = gradI.Add(g)
				sum2 += g.Dot(g)
			}
			sum2 += gradI.Dot(gradI)

			constraint := rho/c.rest[i] - 1
			if constraint < 0 {
				constraint = 0
			}
			c.lambda[i] = -constraint / (sum2 + eps)
		}
	})
}

func (c *CPUSolver) solvePositions(scorrK, scorrRef float32) {
	parallelFor(c.workers, len(c.pred), minChunk, func(start, end int) {
		for i := start; i < end; i++ {
			var d mgl32.Vec3
			if c.invMass[i] != 0 {
				for _, j := range c.neighbours[i] {
					r := c.pred[i].Sub(c.pred[j])
					var scorr float32
					if scorrK > 0 && scorrRef > 0 {
						ratio := c.kern.W(r.Dot(r)) / scorrRef
						ratio *= ratio
						scorr = -scorrK * ratio * ratio
					}
					s := (c.lambda[i] + c.lambda[j] + scorr) * c.mass[j] / c.rest[i]
					d = d.Add(c.kern.Grad(r).Mul(s))
				}
			}
			c.delta[i] = d
		}
	})

	parallelFor(c.workers, len(c.pred), minChunk, func(start, end int) {
		for i := start; i < end; i++ {
			c.pred[i] = c.pred[i].Add(c.delta[i])
		}
	})
}

// solveConstraints runs one Gauss-Seidel sweep. Serial so that shared
// endpoints see each other's corrections within the sweep.
func (c *CPUSolver) solveConstraints(alpha float32) {
	for k := range c.constraints {
		con := &c.constraints[k]
		wa, wb := c.invMass[con.a], c.invMass[con.b]
		w := wa + wb
		if w == 0 {
			continue
		}

		d := c.pred[con.a].Sub(c.pred[con.b])
		l := d.Len()
		if l < minDistance {
			continue
		}

		a := alpha * con.compliance
		dl := (con.rest - l - a*c.multipliers[k]) / (w + a)
		c.multipliers[k] += dl

		n := d.Mul(dl / l)
		c.pred[con.a] = c.pred[con.a].Add(n.Mul(wa))
		c.pred[con.b] = c.pred[con.b].Sub(n.Mul(wb))
	}
}

func (c *CPUSolver) collide(box simbuf.Box, radius float32) {
	size := box.Size()
	if size[0] <= 2*radius || size[1] <= 2*radius || size[2] <= 2*radius {
		return
	}
	lo := box.Min.Add(mgl32.Vec3{radius, radius, radius})
	hi := box.Max.Sub(mgl32.Vec3{radius, radius, radius})

	parallelFor(c.workers, len(c.pred), minChunk, func(start, end int) {
		for i := start; i < end; i++ {
			p := c.pred[i]
			for a := 0; a < 3; a++ {
				p[a] = mgl32.Clamp(p[a], lo[a], hi[a])
			}
			c.pred[i] = p
		}
	})
}

func (c *CPUSolver) finish(dt float32) {
	inv := float32(0)
	if dt > 0 {
		inv = 1 / dt
	}
	parallelFor(c.workers, len(c.pos), minChunk, func(start, end int) {
		for i := start; i < end; i++ {
			if c.invMass[i] == 0 {
				c.vel[i] = mgl32.Vec3{}
				continue
			}
			c.vel[i] = c.pred[i].Sub(c.pos[i]).Mul(inv)
			c.pos[i] = c.pred[i]
		}
	})
}
