package viz

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/particlelab/internal/simbuf"
)

// Camera orbits a target and projects world points onto a canvas with a
// mild perspective.
type Camera struct {
	Target     mgl32.Vec3
	Yaw, Pitch float32
	Zoom       float32
	// Extent is the world size that fills the shorter canvas side at zoom 1.
	Extent float32
}

func NewCamera() *Camera {
	return &Camera{Yaw: 0.6, Pitch: 0.35, Zoom: 1, Extent: 1}
}

// Fit centers the camera on b.
func (c *Camera) Fit(b simbuf.Box) {
	c.Target = b.Center()
	c.Extent = max(b.Size().Len(), 1e-3)
}

func (c *Camera) Orbit(dYaw, dPitch float32) {
	c.Yaw += dYaw
	c.Pitch = mgl32.Clamp(c.Pitch+dPitch, -math.Pi/2+0.05, math.Pi/2-0.05)
}

func (c *Camera) ZoomIn()  { c.Zoom = min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut() { c.Zoom = max(0.1, c.Zoom/1.2) }

func (c *Camera) rotation() mgl32.Mat4 {
	return mgl32.HomogRotate3DX(c.Pitch).Mul4(mgl32.HomogRotate3DY(-c.Yaw))
}

// Project maps p to dot coordinates on a w x h dot canvas. Depth grows
// towards the viewer. ok is false for points behind the eye or off canvas.
func (c *Camera) Project(p mgl32.Vec3, w, h int) (x, y int, depth float32, ok bool) {
	x, y, depth, front := c.project(c.rotation(), p, w, h)
	return x, y, depth, front && inside(x, y, w, h)
}

// project reports whether p is in front of the eye; the dot may be off canvas.
func (c *Camera) project(rot mgl32.Mat4, p mgl32.Vec3, w, h int) (int, int, float32, bool) {
	if !finite3(p) {
		return 0, 0, 0, false
	}
	q := rot.Mul4x1(p.Sub(c.Target).Vec4(1)).Vec3().Mul(1 / c.Extent)

	const eye = 3
	if q.Z() >= eye-0.1 {
		return 0, 0, q.Z(), false
	}
	persp := eye / (eye - q.Z())
	scale := float32(min(w, h)) * 0.9 * c.Zoom * persp

	sx := int(q.X()*scale) + w/2
	sy := int(-q.Y()*scale) + h/2
	return sx, sy, q.Z(), true
}

func inside(x, y, w, h int) bool {
	return x >= 0 && x < w && y >= 0 && y < h
}

func finite3(p mgl32.Vec3) bool {
	for _, f := range p {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return false
		}
	}
	return true
}
