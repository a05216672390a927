// Package simbuf holds the host-side simulation buffer exchanged with a solver.
//
// A [Buffer] is a struct of index-aligned per-particle arrays (position,
// velocity, phase id, color value), cloth topology index arrays, the
// [CommonParameters] of the active run and the [PhaseParameters] table.
//
// The buffer is filled once by a scene, handed to a solver with a bind call
// and afterwards only changed by read-back:
//
//	buf := simbuf.New()
//	desc.Seed(buf)
//	if err := solver.Bind(buf); err != nil { ... }
//
// Counts are derived from slice lengths; there are no stored counters.
//
// # Thread Safety
//
// Buffers are NOT thread-safe. The controller owns one exclusively for the
// lifetime of a scene activation.
package simbuf
