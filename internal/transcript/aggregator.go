package transcript

import (
	"strings"
	"sync"
	"unicode/utf8"
)

// Fragment is one unit of transcribed text received from the session.
// Interim fragments are provisional and replace each other; a final fragment
// commits the segment.
type Fragment struct {
	Text    string
	IsFinal bool
	Seq     int
}

// Aggregator maintains the running transcript: an ordered sequence of
// finalized segments plus at most one pending interim segment. Finalized
// text is handed to onFinal (the analysis dispatcher).
type Aggregator struct {
	mu      sync.Mutex
	finals  []string
	interim string
	onFinal func(text string)
}

func NewAggregator(onFinal func(string)) *Aggregator {
	return &Aggregator{onFinal: onFinal}
}

// Add merges one fragment into the transcript. Blank fragments are ignored.
func (a *Aggregator) Add(f Fragment) {
	text := strings.TrimSpace(f.Text)
	if text == "" {
		return
	}
	a.mu.Lock()
	if !f.IsFinal {
		a.interim = text
		a.mu.Unlock()
		return
	}
	a.finals = append(a.finals, text)
	a.interim = ""
	onFinal := a.onFinal
	a.mu.Unlock()

	if onFinal != nil {
		onFinal(text)
	}
}

// Display returns the presentable transcript: finalized segments joined,
// with the pending interim segment marked.
func (a *Aggregator) Display() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := strings.Join(a.finals, " ")
	if a.interim != "" {
		if out != "" {
			out += " "
		}
		out += "⟨" + a.interim + "⟩"
	}
	return out
}

// Len reports the rune length of the transcript text without the interim
// marking, used for the transcript-influence term of the parameter mapping.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, f := range a.finals {
		if n > 0 {
			n++
		}
		n += utf8.RuneCountInString(f)
	}
	if a.interim != "" {
		if n > 0 {
			n++
		}
		n += utf8.RuneCountInString(a.interim)
	}
	return n
}

// Interim returns the pending interim segment, empty when none.
func (a *Aggregator) Interim() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.interim
}

// Finals returns a copy of the finalized segments.
func (a *Aggregator) Finals() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.finals))
	copy(out, a.finals)
	return out
}

// Reset clears the transcript. Used on explicit session reset only.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	a.finals = nil
	a.interim = ""
	a.mu.Unlock()
}
