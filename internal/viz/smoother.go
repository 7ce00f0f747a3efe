package viz

import "math"

// ShapeFactor is the per-tick interpolation weight for shape parameters.
// Color channels converge twice as fast. Applied per rendered frame, so
// convergence speed tracks the frame rate, matching the display-driven
// animation contract.
const ShapeFactor = 0.05

// Smoother moves the current parameter vector toward the target by a fixed
// fraction each tick, guaranteeing bounded geometric convergence with no
// visual discontinuity on abrupt sentiment changes.
type Smoother struct {
	current Params
	target  Params
}

func NewSmoother(initial Params) *Smoother {
	return &Smoother{current: initial, target: initial}
}

// SetTarget replaces the target vector.
func (s *Smoother) SetTarget(p Params) { s.target = p }

// Target returns the current target vector.
func (s *Smoother) Target() Params { return s.target }

// Current returns the in-flight parameter vector.
func (s *Smoother) Current() Params { return s.current }

// Step advances one animation tick and returns the new current vector.
func (s *Smoother) Step() Params {
	lerp := func(c, t float64) float64 { return c + (t-c)*ShapeFactor }
	colorLerp := func(c, t float64) float64 { return math.Round(c + (t-c)*ShapeFactor*2) }

	s.current.Hue = lerp(s.current.Hue, s.target.Hue)
	s.current.Saturation = lerp(s.current.Saturation, s.target.Saturation)
	s.current.Brightness = lerp(s.current.Brightness, s.target.Brightness)
	s.current.NoiseScale = lerp(s.current.NoiseScale, s.target.NoiseScale)
	s.current.NoiseSpeed = lerp(s.current.NoiseSpeed, s.target.NoiseSpeed)
	s.current.ParticleCount = lerp(s.current.ParticleCount, s.target.ParticleCount)
	s.current.FlowStrength = lerp(s.current.FlowStrength, s.target.FlowStrength)
	s.current.WaveAmplitude = lerp(s.current.WaveAmplitude, s.target.WaveAmplitude)

	s.current.Background.R = colorLerp(s.current.Background.R, s.target.Background.R)
	s.current.Background.G = colorLerp(s.current.Background.G, s.target.Background.G)
	s.current.Background.B = colorLerp(s.current.Background.B, s.target.Background.B)
	s.current.Particle.R = colorLerp(s.current.Particle.R, s.target.Particle.R)
	s.current.Particle.G = colorLerp(s.current.Particle.G, s.target.Particle.G)
	s.current.Particle.B = colorLerp(s.current.Particle.B, s.target.Particle.B)

	return s.current
}
