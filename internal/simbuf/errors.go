package simbuf

import "errors"

var (
	// ErrLengthMismatch indicates per-particle arrays of different lengths.
	ErrLengthMismatch = errors.New("simbuf: per-particle arrays differ in length")

	// ErrPhaseRange indicates a particle phase id without a phase entry.
	ErrPhaseRange = errors.New("simbuf: phase id out of range")

	// ErrNoPhases indicates particles exist but no phase was registered.
	ErrNoPhases = errors.New("simbuf: particles present without phase parameters")

	// ErrConstraintArity indicates a pair array of odd length or a triangle
	// array whose length is not a multiple of three.
	ErrConstraintArity = errors.New("simbuf: constraint array has wrong arity")

	// ErrConstraintRange indicates a constraint index outside the particle range.
	ErrConstraintRange = errors.New("simbuf: constraint index out of range")

	// ErrCapacity indicates a reservation above MaxParticles.
	ErrCapacity = errors.New("simbuf: particle capacity exceeded")
)
