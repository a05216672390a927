package scene

import (
	"fmt"

	"github.com/san-kum/particlelab/internal/simbuf"
)

// SeedFunc fills an empty buffer. It must not retain the buffer.
type SeedFunc func(b *simbuf.Buffer)

// Descriptor is an immutable scene definition.
type Descriptor struct {
	name     string
	kind     simbuf.StateOfMatter
	capacity int
	seed     SeedFunc
}

// New builds a descriptor. capacity is the particle count the scene will
// produce and is reserved before seeding.
func New(name string, kind simbuf.StateOfMatter, capacity int, seed SeedFunc) Descriptor {
	if name == "" || seed == nil {
		panic("scene: descriptor needs a name and a seed function")
	}
	return Descriptor{name: name, kind: kind, capacity: capacity, seed: seed}
}

func (d Descriptor) Name() string               { return d.name }
func (d Descriptor) Kind() simbuf.StateOfMatter { return d.kind }
func (d Descriptor) Capacity() int              { return d.capacity }

// Seed populates b, which must be empty or freshly reset, and panics if the
// result violates the buffer invariants.
func (d Descriptor) Seed(b *simbuf.Buffer) {
	if b.NumParticles() != 0 || len(b.PhaseParams) != 0 {
		panic(fmt.Sprintf("scene %q: seed needs an empty buffer, got %d particles", d.name, b.NumParticles()))
	}
	if err := b.Reserve(d.capacity); err != nil {
		panic(fmt.Sprintf("scene %q: %v", d.name, err))
	}

	d.seed(b)

	if err := b.Validate(d.kind); err != nil {
		panic(fmt.Sprintf("scene %q: %v", d.name, err))
	}
}
