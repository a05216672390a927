package compute

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// kernel holds precomputed SPH smoothing kernel coefficients for radius h.
type kernel struct {
	h, h2     float32
	poly6     float32
	spikyGrad float32
}

func newKernel(h float32) kernel {
	h64 := float64(h)
	return kernel{
		h:         h,
		h2:        h * h,
		poly6:     float32(315.0 / (64.0 * math.Pi * math.Pow(h64, 9))),
		spikyGrad: float32(-45.0 / (math.Pi * math.Pow(h64, 6))),
	}
}

// W evaluates the poly6 kernel at squared distance r2.
func (k kernel) W(r2 float32) float32 {
	if r2 >= k.h2 {
		return 0
	}
	d := k.h2 - r2
	return k.poly6 * d * d * d
}

// Grad evaluates the spiky kernel gradient for offset r.
func (k kernel) Grad(r mgl32.Vec3) mgl32.Vec3 {
	l := r.Len()
	if l <= 0 || l >= k.h {
		return mgl32.Vec3{}
	}
	d := k.h - l
	return r.Mul(k.spikyGrad * d * d / l)
}

// latticeSum returns the kernel sum seen by an interior particle of a cubic
// lattice with the given spacing, itself included.
func (k kernel) latticeSum(spacing float32) float32 {
	if spacing <= 0 {
		return k.W(0)
	}
	n := int(k.h/spacing) + 1
	var sum float32
	for i := -n; i <= n; i++ {
		for j := -n; j <= n; j++ {
			for l := -n; l <= n; l++ {
				r := mgl32.Vec3{float32(i), float32(j), float32(l)}.Mul(spacing)
				sum += k.W(r.Dot(r))
			}
		}
	}
	return sum
}
