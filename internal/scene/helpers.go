package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/particlelab/internal/simbuf"
)

// latticeFunc maps lattice coordinates to a per-particle value.
type latticeFunc[T any] func(i, j, k int) T

func constVec(v mgl32.Vec3) latticeFunc[mgl32.Vec3] {
	return func(int, int, int) mgl32.Vec3 { return v }
}

func constValue(v float32) latticeFunc[float32] {
	return func(int, int, int) float32 { return v }
}

// fillBox seeds an nx*ny*nz lattice starting at origin with the given spacing.
func fillBox(b *simbuf.Buffer, origin mgl32.Vec3, nx, ny, nz int, spacing float32,
	vel latticeFunc[mgl32.Vec3], phase int32, color latticeFunc[float32]) {
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			for k := 0; k < nz; k++ {
				p := origin.Add(mgl32.Vec3{float32(i) * spacing, float32(j) * spacing, float32(k) * spacing})
				b.AddParticle(p, vel(i, j, k), phase, color(i, j, k))
			}
		}
	}
}

// sphereSteps is the lattice half-width used to cover a sphere of radius r.
func sphereSteps(radius, spacing float32) int {
	return int(math.Floor(float64(radius/spacing) + 1e-4))
}

func insideSphere(i, j, k int, radius, spacing float32) bool {
	x, y, z := float32(i)*spacing, float32(j)*spacing, float32(k)*spacing
	return x*x+y*y+z*z <= radius*radius*(1+1e-4)
}

func sphereCount(radius, spacing float32) int {
	n := sphereSteps(radius, spacing)
	count := 0
	for i := -n; i <= n; i++ {
		for j := -n; j <= n; j++ {
			for k := -n; k <= n; k++ {
				if insideSphere(i, j, k, radius, spacing) {
					count++
				}
			}
		}
	}
	return count
}

// fillSphere seeds lattice points within radius of center.
func fillSphere(b *simbuf.Buffer, center mgl32.Vec3, radius, spacing float32,
	vel mgl32.Vec3, phase int32, color float32) {
	n := sphereSteps(radius, spacing)
	for i := -n; i <= n; i++ {
		for j := -n; j <= n; j++ {
			for k := -n; k <= n; k++ {
				if !insideSphere(i, j, k, radius, spacing) {
					continue
				}
				p := center.Add(mgl32.Vec3{float32(i) * spacing, float32(j) * spacing, float32(k) * spacing})
				b.AddParticle(p, vel, phase, color)
			}
		}
	}
}

// clothGrid returns the particle counts along x and z for a sheet.
func clothGrid(width, depth, spacing float32) (int, int) {
	nx := int(math.Floor(float64(width/spacing)+1e-4)) + 1
	nz := int(math.Floor(float64(depth/spacing)+1e-4)) + 1
	return nx, nz
}

func clothCount(width, depth, spacing float32) int {
	nx, nz := clothGrid(width, depth, spacing)
	return nx * nz
}

// createParticleCloth seeds a horizontal sheet in the XZ plane at origin.Y.
// Grid spacing is spacingScale particle diameters. Stretch constraints join
// direct neighbours, shear constraints join diagonals, bend constraints skip
// one particle, and each quad is split into two triangles.
func createParticleCloth(b *simbuf.Buffer, origin mgl32.Vec3, width, depth, spacingScale float32,
	vel mgl32.Vec3, phase int32) {
	spacing := b.Common.Diameter * spacingScale
	nx, nz := clothGrid(width, depth, spacing)
	base := int32(b.NumParticles())

	id := func(i, k int) int32 { return base + int32(k*nx+i) }

	for k := 0; k < nz; k++ {
		for i := 0; i < nx; i++ {
			p := origin.Add(mgl32.Vec3{float32(i) * spacing, 0, float32(k) * spacing})
			b.AddParticle(p, vel, phase, float32(k))
		}
	}

	for k := 0; k < nz; k++ {
		for i := 0; i < nx; i++ {
			if i+1 < nx {
				b.StretchIDs = append(b.StretchIDs, id(i, k), id(i+1, k))
			}
			if k+1 < nz {
				b.StretchIDs = append(b.StretchIDs, id(i, k), id(i, k+1))
			}
			if i+2 < nx {
				b.BendIDs = append(b.BendIDs, id(i, k), id(i+2, k))
			}
			if k+2 < nz {
				b.BendIDs = append(b.BendIDs, id(i, k), id(i, k+2))
			}
			if i+1 < nx && k+1 < nz {
				b.ShearIDs = append(b.ShearIDs, id(i, k), id(i+1, k+1), id(i+1, k), id(i, k+1))
				b.TriangleIDs = append(b.TriangleIDs,
					id(i, k), id(i+1, k), id(i, k+1),
					id(i+1, k), id(i+1, k+1), id(i, k+1))
			}
		}
	}
}

// pinBox returns a fixed region of half-size extent centered on p.
func pinBox(p mgl32.Vec3, extent float32) simbuf.Box {
	e := mgl32.Vec3{extent, extent, extent}
	return simbuf.NewBox(p.Sub(e), p.Add(e))
}
