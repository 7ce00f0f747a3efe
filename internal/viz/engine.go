package viz

import "sync"

// Engine fuses the analyzer output with the animation: it owns the smoother,
// the particle field, and the keyword lifecycle, and advances them one frame
// per Tick.
type Engine struct {
	mu            sync.Mutex
	smoother      *Smoother
	field         *Field
	keywords      *KeywordManager
	sentiment     float64
	keywordSet    []string
	transcriptLen int
}

// NewEngine creates an engine rendering into a width×height canvas. The
// initial state is neutral: white background, black particles.
func NewEngine(width, height float64, seed int64) *Engine {
	initial := MapParams(0.5, 0, 0)
	return &Engine{
		smoother:  NewSmoother(initial),
		field:     NewField(width, height, initial.Count(), seed),
		keywords:  NewKeywordManager(),
		sentiment: 0.5,
	}
}

// SetSignal feeds a fresh analyzer result into the animation: the parameter
// target is remapped and the keyword lifecycle updated.
func (e *Engine) SetSignal(sentiment float64, keywords []string) {
	e.mu.Lock()
	e.sentiment = clamp(sentiment, 0, 1)
	e.keywordSet = append(e.keywordSet[:0], keywords...)
	e.retargetLocked()
	e.mu.Unlock()
	e.keywords.Update(keywords)
}

// SetTranscriptLen updates the transcript-influence term.
func (e *Engine) SetTranscriptLen(n int) {
	e.mu.Lock()
	e.transcriptLen = n
	e.retargetLocked()
	e.mu.Unlock()
}

func (e *Engine) retargetLocked() {
	e.smoother.SetTarget(MapParams(e.sentiment, len(e.keywordSet), e.transcriptLen))
}

// Tick advances one animation frame: smooth parameters, apply the particle
// count, clear, and advect.
func (e *Engine) Tick(canvas Canvas) {
	e.mu.Lock()
	params := e.smoother.Step()
	sentiment := e.sentiment
	transcriptLen := e.transcriptLen
	e.field.Resize(params.Count())
	e.mu.Unlock()

	canvas.Clear(params.Background.Rounded())
	e.field.Step(params, sentiment, transcriptLen, canvas)
}

// Params returns the in-flight parameter vector.
func (e *Engine) Params() Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.smoother.Current()
}

// Keywords exposes the keyword lifecycle manager.
func (e *Engine) Keywords() *KeywordManager { return e.keywords }

// Close cancels pending keyword transitions.
func (e *Engine) Close() { e.keywords.Close() }
