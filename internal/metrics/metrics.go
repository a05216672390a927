// Package metrics derives scalar diagnostics from a simulation buffer view.
package metrics

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/particlelab/internal/simbuf"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Metric accumulates a value over observed frames.
type Metric interface {
	Name() string
	Observe(v simbuf.View)
	Value() float64
	Reset()
}

// ParticleMass is the phase density times the cube of the particle diameter.
func ParticleMass(v simbuf.View, i int) float64 {
	d := float64(v.Common().Diameter)
	return float64(v.PhaseParams(v.Phase(i)).Density) * d * d * d
}

// KineticEnergy returns the total kinetic energy of all particles.
func KineticEnergy(v simbuf.View) float64 {
	n := v.NumParticles()
	if n == 0 {
		return 0
	}
	d := float64(v.Common().Diameter)
	vol := d * d * d

	e := make([]float64, n)
	for i := range e {
		vel := v.Velocity(i)
		m := float64(v.PhaseParams(v.Phase(i)).Density) * vol
		e[i] = 0.5 * m * float64(vel.Dot(vel))
	}
	return floats.Sum(e)
}

// Speeds returns the speed of every particle.
func Speeds(v simbuf.View) []float64 {
	s := make([]float64, v.NumParticles())
	for i := range s {
		s[i] = float64(v.Velocity(i).Len())
	}
	return s
}

func MaxSpeed(v simbuf.View) float64 {
	s := Speeds(v)
	if len(s) == 0 {
		return 0
	}
	return floats.Max(s)
}

// SpeedStats returns the mean and sample standard deviation of particle speeds.
func SpeedStats(v simbuf.View) (mean, std float64) {
	s := Speeds(v)
	switch len(s) {
	case 0:
		return 0, 0
	case 1:
		return s[0], 0
	}
	return stat.MeanStdDev(s, nil)
}

// Centroid returns the unweighted mean particle position.
func Centroid(v simbuf.View) mgl32.Vec3 {
	n := v.NumParticles()
	if n == 0 {
		return mgl32.Vec3{}
	}
	var axes [3][]float64
	for a := range axes {
		axes[a] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		p := v.Position(i)
		for a := range axes {
			axes[a][i] = float64(p[a])
		}
	}
	return mgl32.Vec3{
		float32(stat.Mean(axes[0], nil)),
		float32(stat.Mean(axes[1], nil)),
		float32(stat.Mean(axes[2], nil)),
	}
}

// Summary collects the standard diagnostics keyed by name.
func Summary(v simbuf.View) map[string]float64 {
	mean, std := SpeedStats(v)
	c := Centroid(v)
	return map[string]float64{
		"particles":      float64(v.NumParticles()),
		"kinetic_energy": KineticEnergy(v),
		"max_speed":      MaxSpeed(v),
		"mean_speed":     mean,
		"speed_stddev":   std,
		"centroid_x":     float64(c[0]),
		"centroid_y":     float64(c[1]),
		"centroid_z":     float64(c[2]),
		"escaped":        float64(Escaped(v)),
	}
}
