package scene

import (
	"errors"
	"fmt"

	"github.com/san-kum/particlelab/internal/simbuf"
)

var ErrUnknownScene = errors.New("scene: unknown scene")

// Entry is the (name, kind) pair exposed to selection UIs.
type Entry struct {
	Index int
	Name  string
	Kind  simbuf.StateOfMatter
}

// Registry is an ordered, index-addressed list of scenes. Indices are stable
// once registered.
type Registry struct {
	scenes []Descriptor
	byName map[string]int
}

func NewRegistry(descs ...Descriptor) *Registry {
	r := &Registry{byName: make(map[string]int)}
	for _, d := range descs {
		r.Register(d)
	}
	return r
}

// Register appends d. Panics if a scene with the same name exists.
func (r *Registry) Register(d Descriptor) {
	if _, exists := r.byName[d.Name()]; exists {
		panic(fmt.Sprintf("scene: %q already registered", d.Name()))
	}
	r.byName[d.Name()] = len(r.scenes)
	r.scenes = append(r.scenes, d)
}

func (r *Registry) Len() int { return len(r.scenes) }

func (r *Registry) At(i int) (Descriptor, error) {
	if i < 0 || i >= len(r.scenes) {
		return Descriptor{}, fmt.Errorf("%w: index %d (have %d)", ErrUnknownScene, i, len(r.scenes))
	}
	return r.scenes[i], nil
}

// Index resolves a scene name to its index.
func (r *Registry) Index(name string) (int, error) {
	i, ok := r.byName[name]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrUnknownScene, name)
	}
	return i, nil
}

func (r *Registry) List() []Entry {
	out := make([]Entry, len(r.scenes))
	for i, d := range r.scenes {
		out[i] = Entry{Index: i, Name: d.Name(), Kind: d.Kind()}
	}
	return out
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.scenes))
	for i, d := range r.scenes {
		names[i] = d.Name()
	}
	return names
}

// Default returns the registry of built-in scenes in menu order.
func Default() *Registry {
	return NewRegistry(
		SphereDrop(),
		SphereCollision(),
		DamBreak(),
		Cloth(),
		MultiCloth(),
		BoxDrop(),
	)
}
