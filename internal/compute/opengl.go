package compute

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/particlelab/internal/simbuf"
)

//go:embed shaders/fluid.comp
var fluidShader string

const (
	glFloatsPerParticle = 8
	glWorkGroupSize     = 256
)

var glInit = sync.OnceValue(gl.Init)

// GLSolver integrates fluid particles in an OpenGL 4.3 compute shader. The
// shader applies gravity and box collision only. It must be used from the
// goroutine that owns the current GL context.
type GLSolver struct {
	log *log.Logger

	program uint32
	ssbo    uint32
	n       int32
	bound   bool
	staging []float32
}

func NewGLSolver(opts Options) *GLSolver {
	opts = opts.withDefaults()
	return &GLSolver{log: opts.Logger.WithPrefix("gl")}
}

func (g *GLSolver) Name() string { return "gl" }

func (g *GLSolver) Bind(b *simbuf.Buffer) error {
	if g.bound {
		return ErrAlreadyBound
	}
	if err := b.Validate(simbuf.Fluid); err != nil {
		return fmt.Errorf("compute: bind fluid: %w", err)
	}
	if err := glInit(); err != nil {
		return fmt.Errorf("%w: gl init: %v", ErrUnavailable, err)
	}

	program, err := createComputeProgram(fluidShader)
	if err != nil {
		return err
	}
	g.program = program
	g.n = int32(b.NumParticles())
	g.pack(b)

	gl.GenBuffers(1, &g.ssbo)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, g.ssbo)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, len(g.staging)*4, gl.Ptr(g.staging), gl.DYNAMIC_DRAW)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, 0, g.ssbo)

	g.bound = true
	g.log.Debug("bound", "particles", g.n)
	return nil
}

func (g *GLSolver) pack(b *simbuf.Buffer) {
	common := b.Common
	g.staging = make([]float32, b.NumParticles()*glFloatsPerParticle)
	for i, p := range b.Positions {
		o := i * glFloatsPerParticle
		v := b.Velocities[i]
		var invMass float32 = 1
		if common.Pinned(p) {
			invMass = 0
		}
		copy(g.staging[o:], []float32{p[0], p[1], p[2], invMass, v[0], v[1], v[2], b.ColorValues[i]})
	}
}

func (g *GLSolver) Step(b *simbuf.Buffer) error {
	if !g.bound {
		return ErrNotBound
	}
	if int32(b.NumParticles()) != g.n {
		return fmt.Errorf("%w: host %d, device %d", ErrSizeMismatch, b.NumParticles(), g.n)
	}
	if g.n == 0 {
		return nil
	}

	p := b.Common
	gl.UseProgram(g.program)
	gl.Uniform1i(g.uniform("numParticles"), g.n)
	gl.Uniform1f(g.uniform("dt"), p.Dt)
	gl.Uniform1f(g.uniform("radius"), p.Radius)
	gl.Uniform3f(g.uniform("gravity"), p.Gravity[0], p.Gravity[1], p.Gravity[2])
	gl.Uniform3f(g.uniform("boxMin"), p.AnalysisBox.Min[0], p.AnalysisBox.Min[1], p.AnalysisBox.Min[2])
	gl.Uniform3f(g.uniform("boxMax"), p.AnalysisBox.Max[0], p.AnalysisBox.Max[1], p.AnalysisBox.Max[2])

	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, 0, g.ssbo)
	groups := (g.n + glWorkGroupSize - 1) / glWorkGroupSize
	gl.DispatchCompute(uint32(groups), 1, 1)
	gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT | gl.BUFFER_UPDATE_BARRIER_BIT)
	return nil
}

func (g *GLSolver) uniform(name string) int32 {
	return gl.GetUniformLocation(g.program, gl.Str(name+"\x00"))
}

func (g *GLSolver) ReadBack(b *simbuf.Buffer) error {
	if !g.bound {
		return ErrNotBound
	}
	if int32(b.NumParticles()) != g.n {
		return fmt.Errorf("%w: host %d, device %d", ErrSizeMismatch, b.NumParticles(), g.n)
	}
	if g.n == 0 {
		return nil
	}

	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, g.ssbo)
	gl.GetBufferSubData(gl.SHADER_STORAGE_BUFFER, 0, len(g.staging)*4, gl.Ptr(g.staging))

	for i := range b.Positions {
		o := i * glFloatsPerParticle
		b.Positions[i] = mgl32.Vec3{g.staging[o], g.staging[o+1], g.staging[o+2]}
		b.Velocities[i] = mgl32.Vec3{g.staging[o+4], g.staging[o+5], g.staging[o+6]}
		b.ColorValues[i] = g.staging[o+7]
	}
	return nil
}

func (g *GLSolver) BindCloth(*simbuf.Buffer) error {
	return fmt.Errorf("%w: gl has no cloth path", ErrUnsupported)
}

func (g *GLSolver) StepCloth(*simbuf.Buffer) error {
	if !g.bound {
		return ErrNotBound
	}
	return ErrWrongPath
}

func (g *GLSolver) ReadBackCloth(*simbuf.Buffer) error {
	if !g.bound {
		return ErrNotBound
	}
	return ErrWrongPath
}

func (g *GLSolver) Release() {
	if !g.bound {
		return
	}
	gl.DeleteBuffers(1, &g.ssbo)
	gl.DeleteProgram(g.program)
	g.ssbo, g.program, g.n = 0, 0, 0
	g.staging = nil
	g.bound = false
	g.log.Debug("released")
}

func createComputeProgram(source string) (uint32, error) {
	shader := gl.CreateShader(gl.COMPUTE_SHADER)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		info := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(info))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compute: compile shader: %s", strings.TrimRight(info, "\x00"))
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, shader)
	gl.LinkProgram(program)
	gl.DeleteShader(shader)

	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("compute: link shader program")
	}
	return program, nil
}
