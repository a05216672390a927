// Package compute provides the solver backends that own device-resident
// copies of a simulation buffer.
//
// Every backend implements [Solver]. A solver is bound to exactly one state of
// matter per binding: fluid scenes use [Solver.Bind], [Solver.Step] and
// [Solver.ReadBack]; cloth scenes use the Cloth variants, which additionally
// upload constraint topology. [Solver.Release] frees everything and must be
// called before binding again.
//
// Available backends:
//
//   - cpu: reference position-based solver, always available
//   - cuda: GPU solver, only with the cuda build tag and a device present
//   - gl: OpenGL 4.3 compute shader, fluid path only, needs a current GL context
//
// Build with CUDA support:
//
//	go build -tags cuda ./cmd/particlelab
package compute
