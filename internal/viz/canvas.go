package viz

// Segment is one rendered particle trail stroke.
type Segment struct {
	X1, Y1 float64
	X2, Y2 float64
	Color  RGB
	Alpha  float64
	Width  float64
	Glow   bool
}

// Canvas receives one frame of draw commands per tick. Implementations
// belong to the presentation layer; the core only emits.
type Canvas interface {
	Clear(background RGB)
	Stroke(s Segment)
}

// Recorder is a Canvas that captures the frame, for tests and headless runs.
type Recorder struct {
	Background RGB
	Segments   []Segment
	Clears     int
}

func (r *Recorder) Clear(background RGB) {
	r.Background = background
	r.Segments = r.Segments[:0]
	r.Clears++
}

func (r *Recorder) Stroke(s Segment) {
	r.Segments = append(r.Segments, s)
}
