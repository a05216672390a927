package compute

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type cellKey struct{ x, y, z int32 }

// hashGrid buckets particles into cubic cells of one smoothing radius so a
// neighbour query only visits the 27 surrounding cells.
type hashGrid struct {
	cell  float32
	cells map[cellKey][]int32
}

func newHashGrid(cell float32) *hashGrid {
	return &hashGrid{cell: cell, cells: make(map[cellKey][]int32)}
}

func (g *hashGrid) key(p mgl32.Vec3) cellKey {
	inv := 1 / g.cell
	return cellKey{
		x: int32(math.Floor(float64(p[0] * inv))),
		y: int32(math.Floor(float64(p[1] * inv))),
		z: int32(math.Floor(float64(p[2] * inv))),
	}
}

func (g *hashGrid) build(pos []mgl32.Vec3) {
	for k, v := range g.cells {
		g.cells[k] = v[:0]
	}
	for i, p := range pos {
		k := g.key(p)
		g.cells[k] = append(g.cells[k], int32(i))
	}
}

// neighbours appends to dst every j != i within distance h of pos[i].
func (g *hashGrid) neighbours(dst []int32, pos []mgl32.Vec3, i int, h2 float32) []int32 {
	p := pos[i]
	c := g.key(p)
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for dz := int32(-1); dz <= 1; dz++ {
				for _, j := range g.cells[cellKey{c.x + dx, c.y + dy, c.z + dz}] {
					if int(j) == i {
						continue
					}
					d := pos[j].Sub(p)
					if d.Dot(d) < h2 {
						dst = append(dst, j)
					}
				}
			}
		}
	}
	return dst
}
