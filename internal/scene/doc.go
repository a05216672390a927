// Package scene provides the compiled-in demo scenes that seed a simulation
// buffer.
//
// A [Descriptor] is a named generator tagged with a state of matter. Its only
// behavior is [Descriptor.Seed], which fills a fresh buffer with geometry,
// phases and common parameters. Seeding is deterministic: two fresh buffers
// seeded by the same descriptor are identical.
//
// Malformed scene data is a programming error and panics at seed time.
//
//	reg := scene.Default()
//	desc, _ := reg.At(0)
//	buf := simbuf.New()
//	desc.Seed(buf)
package scene
