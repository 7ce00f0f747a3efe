package viz

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Particle advection constants.
const (
	velocityDamping = 0.95
	lifeStep        = 0.003
	// minTrail is the displacement under which a particle is not drawn,
	// avoiding static dots.
	minTrail = 0.35
)

// Particle is one advected point with its previous position for trail
// rendering.
type Particle struct {
	X, Y         float64
	VX, VY       float64
	PrevX, PrevY float64
	Life         float64 // [0,1), wraps
	Speed        float64
}

// Field advects N particles through a coherent-noise vector field and emits
// their motion trails. Particles are recycled by wrapping, never destroyed,
// except when the target count shrinks, which truncates the tail.
type Field struct {
	width, height float64
	noise         opensimplex.Noise
	rng           *rand.Rand
	particles     []Particle
	time          float64
}

// NewField creates a field with count particles at random positions. The
// seed fixes both noise and spawn positions, keeping runs reproducible.
func NewField(width, height float64, count int, seed int64) *Field {
	f := &Field{
		width:  width,
		height: height,
		noise:  opensimplex.NewNormalized(seed),
		rng:    rand.New(rand.NewSource(seed)),
	}
	f.Resize(count)
	return f
}

// Particles exposes the live particle slice for inspection.
func (f *Field) Particles() []Particle { return f.particles }

// Time returns the accumulated global noise time.
func (f *Field) Time() float64 { return f.time }

// Resize grows the collection by spawning at random positions or shrinks it
// by truncating the tail, so the collection length always equals the
// last-applied target count.
func (f *Field) Resize(count int) {
	if count < 0 {
		count = 0
	}
	if count <= len(f.particles) {
		f.particles = f.particles[:count]
		return
	}
	for len(f.particles) < count {
		x := f.rng.Float64() * f.width
		y := f.rng.Float64() * f.height
		f.particles = append(f.particles, Particle{
			X: x, Y: y, PrevX: x, PrevY: y,
			Life: f.rng.Float64(),
		})
	}
}

// Step advances every particle one tick and strokes its trail onto the
// canvas. sentiment and transcriptLen modulate alpha and perturbation as the
// mapped parameters do not carry them directly.
func (f *Field) Step(p Params, sentiment float64, transcriptLen int, canvas Canvas) {
	neutral := inNeutralBand(sentiment)
	transcriptDrift := math.Sin(f.time*0.5) * (float64(transcriptLen) / 1000)

	for i := range f.particles {
		pt := &f.particles[i]

		// Noise sample in [0,1] scaled to an angle in [0,8π).
		angle := f.noise.Eval3(pt.X*p.NoiseScale, pt.Y*p.NoiseScale, f.time) * math.Pi * 2 * 4
		if p.WaveAmplitude > 0 {
			angle += math.Sin(pt.X*0.01+f.time) * math.Cos(pt.Y*0.01+f.time) * p.WaveAmplitude
		}
		angle += transcriptDrift

		pt.VX = (pt.VX + math.Cos(angle)*p.FlowStrength) * velocityDamping
		pt.VY = (pt.VY + math.Sin(angle)*p.FlowStrength) * velocityDamping

		pt.PrevX, pt.PrevY = pt.X, pt.Y
		pt.X += pt.VX
		pt.Y += pt.VY

		// Toroidal wrap; previous position resets so no trail spans the
		// discontinuity.
		wrapped := false
		if pt.X < 0 {
			pt.X += f.width
			wrapped = true
		} else if pt.X >= f.width {
			pt.X -= f.width
			wrapped = true
		}
		if pt.Y < 0 {
			pt.Y += f.height
			wrapped = true
		} else if pt.Y >= f.height {
			pt.Y -= f.height
			wrapped = true
		}
		if wrapped {
			pt.PrevX, pt.PrevY = pt.X, pt.Y
		}

		pt.Life += lifeStep
		if pt.Life >= 1 {
			pt.Life -= 1
		}
		pt.Speed = math.Hypot(pt.VX, pt.VY)

		dx, dy := pt.X-pt.PrevX, pt.Y-pt.PrevY
		if math.Hypot(dx, dy) < minTrail {
			continue
		}

		speedFactor := math.Min(pt.Speed*2, 1)
		alpha := (0.4 + sentiment*0.5) * (0.6 + 0.4*speedFactor)
		var width float64
		if neutral {
			width = 0.3 + speedFactor*(1.5-0.3)
		} else {
			width = 0.5 + speedFactor*(2.5-0.5)
		}

		seg := Segment{
			X1: pt.PrevX, Y1: pt.PrevY,
			X2: pt.X, Y2: pt.Y,
			Color: p.Particle.Rounded(),
			Alpha: alpha,
			Width: width,
		}
		canvas.Stroke(seg)

		if speedFactor > 0.7 && !neutral {
			glow := seg
			glow.Alpha = math.Min(alpha*1.3, 1)
			glow.Width = width * 2.2
			glow.Glow = true
			canvas.Stroke(glow)
		}
	}

	f.time += p.NoiseSpeed
}
