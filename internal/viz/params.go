package viz

import "math"

// RGB is a color triple in [0,255]. Channels stay float during smoothing and
// are rounded at the edge.
type RGB struct {
	R, G, B float64
}

// Rounded returns the color with integer channel values.
func (c RGB) Rounded() RGB {
	return RGB{math.Round(c.R), math.Round(c.G), math.Round(c.B)}
}

// Params is the full visual parameter vector driving the flow field.
type Params struct {
	Hue        float64 // [0,360)
	Saturation float64 // [0,100]
	Brightness float64 // [0,100]

	NoiseScale    float64
	NoiseSpeed    float64
	ParticleCount float64 // floored before use
	FlowStrength  float64 // [0,1.5]
	WaveAmplitude float64

	Background RGB
	Particle   RGB
}

// Count is the integer particle count.
func (p Params) Count() int {
	return int(math.Floor(p.ParticleCount))
}

// MapParams computes the target parameter vector from the latest sentiment,
// keyword count, and transcript length. Pure and deterministic: identical
// inputs always produce identical output.
func MapParams(sentiment float64, keywordCount, transcriptLen int) Params {
	s := clamp(sentiment, 0, 1)
	kw := math.Min(float64(keywordCount)/5, 1)
	ti := math.Min(float64(transcriptLen)/500, 1)

	// Blue→cyan/green band below neutral, green→yellow→red above, shifted
	// by keyword activity.
	var hue float64
	if s < 0.5 {
		hue = 200 + s*60
	} else {
		hue = 260 + (s-0.5)*100
	}
	hue = math.Mod(hue+kw*20, 360)

	intensity := math.Min(math.Abs(s-0.5)*2+0.3*kw, 1)
	sat := clamp(40+intensity*60+kw*20, 0, 100)
	bri := clamp(30+intensity*50+ti*20, 0, 100)

	var noiseScale float64
	if inNeutralBand(s) {
		noiseScale = 0.002 + kw*0.01
	} else {
		noiseScale = 0.003 + math.Abs(s-0.5)*0.015 + kw*0.01
	}

	p := Params{
		Hue:           hue,
		Saturation:    sat,
		Brightness:    bri,
		NoiseScale:    noiseScale,
		NoiseSpeed:    0.005 + s*0.02 + ti*0.005,
		ParticleCount: math.Floor(80 + s*120 + kw*30),
		FlowStrength:  math.Min(0.3+s*0.7+ti*0.2, 1.5),
		WaveAmplitude: kw * 0.3,
		Background:    RGB{255, 255, 255},
		Particle:      RGB{0, 0, 0},
	}

	switch {
	case s > 0.6:
		t := (s - 0.6) / 0.4
		p.Background = RGB{20 + 35*t, 10 + 20*t, 5 * t}
		p.Particle = RGB{255 - 50*(1-t), 180 + 50*t, 50 + 100*t}
	case s < 0.4:
		t := (0.4 - s) / 0.4
		p.Background = RGB{20 + 35*t, 10 * t, 5 * t}
		p.Particle = RGB{255 - 50*(1-t), 50 + 100*t, 50 + 100*t}
	}
	return p
}

// inNeutralBand reports whether sentiment sits in the neutral band [0.4,0.6].
func inNeutralBand(s float64) bool {
	return s >= 0.4 && s <= 0.6
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
