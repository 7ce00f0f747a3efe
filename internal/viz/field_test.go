package viz

import (
	"math"
	"testing"
)

func TestField_ParticlesStayInBounds(t *testing.T) {
	const w, h = 200.0, 150.0
	f := NewField(w, h, 120, 1)
	p := MapParams(0.9, 5, 2000)
	rec := &Recorder{}
	for i := 0; i < 500; i++ {
		rec.Clear(p.Background)
		f.Step(p, 0.9, 2000, rec)
	}
	for i, pt := range f.Particles() {
		if pt.X < 0 || pt.X >= w || pt.Y < 0 || pt.Y >= h {
			t.Fatalf("particle %d escaped: (%v,%v)", i, pt.X, pt.Y)
		}
	}
}

func TestField_NoSegmentSpansWrap(t *testing.T) {
	const w, h = 100.0, 100.0
	f := NewField(w, h, 150, 7)
	p := MapParams(1, 5, 4000)
	rec := &Recorder{}
	for i := 0; i < 300; i++ {
		rec.Clear(p.Background)
		f.Step(p, 1, 4000, rec)
		for _, seg := range rec.Segments {
			dx := math.Abs(seg.X2 - seg.X1)
			dy := math.Abs(seg.Y2 - seg.Y1)
			if dx > w/2 || dy > h/2 {
				t.Fatalf("segment spans wrap discontinuity: %+v", seg)
			}
		}
	}
}

func TestField_ResizeGrowsAndTruncates(t *testing.T) {
	f := NewField(100, 100, 10, 3)
	if len(f.Particles()) != 10 {
		t.Fatalf("expected 10 particles, got %d", len(f.Particles()))
	}
	f.Resize(25)
	if len(f.Particles()) != 25 {
		t.Fatalf("expected 25 after grow, got %d", len(f.Particles()))
	}
	for _, pt := range f.Particles()[10:] {
		if pt.X < 0 || pt.X >= 100 || pt.Y < 0 || pt.Y >= 100 {
			t.Fatalf("spawned particle out of bounds: %+v", pt)
		}
	}
	survivors := make([]Particle, 5)
	copy(survivors, f.Particles()[:5])
	f.Resize(5)
	if len(f.Particles()) != 5 {
		t.Fatalf("expected 5 after shrink, got %d", len(f.Particles()))
	}
	for i, pt := range f.Particles() {
		if pt != survivors[i] {
			t.Fatalf("shrink must truncate the tail, head changed at %d", i)
		}
	}
}

func TestField_GlobalTimeAdvancesByNoiseSpeed(t *testing.T) {
	f := NewField(100, 100, 1, 1)
	p := MapParams(0.5, 0, 0)
	rec := &Recorder{}
	f.Step(p, 0.5, 0, rec)
	f.Step(p, 0.5, 0, rec)
	if want := 2 * p.NoiseSpeed; math.Abs(f.Time()-want) > 1e-12 {
		t.Fatalf("global time: got %v want %v", f.Time(), want)
	}
}

func TestField_LifePhaseWraps(t *testing.T) {
	f := NewField(100, 100, 50, 9)
	p := MapParams(0.5, 0, 0)
	rec := &Recorder{}
	for i := 0; i < 1200; i++ {
		rec.Clear(p.Background)
		f.Step(p, 0.5, 0, rec)
	}
	for i, pt := range f.Particles() {
		if pt.Life < 0 || pt.Life >= 1 {
			t.Fatalf("particle %d life out of [0,1): %v", i, pt.Life)
		}
	}
}

func TestField_GlowOnlyOutsideNeutralBand(t *testing.T) {
	f := NewField(300, 300, 200, 5)
	p := MapParams(0.5, 0, 0)
	rec := &Recorder{}
	for i := 0; i < 200; i++ {
		rec.Clear(p.Background)
		f.Step(p, 0.5, 0, rec)
		for _, seg := range rec.Segments {
			if seg.Glow {
				t.Fatalf("glow pass must not render in the neutral band")
			}
		}
	}
}

func TestField_SlowParticlesNotDrawn(t *testing.T) {
	f := NewField(100, 100, 30, 2)
	// Zero flow keeps particles static; nothing should be stroked.
	p := MapParams(0.5, 0, 0)
	p.FlowStrength = 0
	rec := &Recorder{}
	for i := 0; i < 20; i++ {
		rec.Clear(p.Background)
		f.Step(p, 0.5, 0, rec)
	}
	if len(rec.Segments) != 0 {
		t.Fatalf("static particles must not draw, got %d segments", len(rec.Segments))
	}
}

func TestField_AlphaWithinUnitRange(t *testing.T) {
	f := NewField(200, 200, 100, 11)
	p := MapParams(1, 5, 4000)
	rec := &Recorder{}
	for i := 0; i < 100; i++ {
		rec.Clear(p.Background)
		f.Step(p, 1, 4000, rec)
		for _, seg := range rec.Segments {
			if seg.Alpha <= 0 || seg.Alpha > 1 {
				t.Fatalf("alpha out of range: %v", seg.Alpha)
			}
			if seg.Width <= 0 {
				t.Fatalf("non-positive stroke width")
			}
		}
	}
}
