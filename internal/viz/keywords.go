package viz

import (
	"sync"
	"time"
)

// Keyword tag phases.
type Phase int

const (
	Entering Phase = iota
	Steady
	Exiting
)

func (p Phase) String() string {
	switch p {
	case Entering:
		return "entering"
	case Steady:
		return "steady"
	case Exiting:
		return "exiting"
	default:
		return "unknown"
	}
}

// Tag is one displayed keyword.
type Tag struct {
	Text  string
	ID    int
	Phase Phase
}

// Keyword animation timing.
const (
	EnterDuration = 300 * time.Millisecond
	ExitDuration  = 450 * time.Millisecond
	// Stagger per keyword index; tighter when the set is large.
	StaggerSmall = 250 * time.Millisecond
	StaggerLarge = 150 * time.Millisecond
	staggerCut   = 5
)

// afterFunc schedules fn after d and returns a cancel. Swapped out in tests.
type afterFunc func(d time.Duration, fn func()) (cancel func() bool)

// KeywordManager runs the staggered enter/exit animation state machine for
// keyword tags. Every scheduled transition is cancellable and is cancelled
// on the next update or on Close, so a stale timer can never mutate a
// torn-down view. Displayed texts are unique.
type KeywordManager struct {
	mu      sync.Mutex
	after   afterFunc
	tags    []*Tag
	pending map[string]func() bool
	nextID  int
	closed  bool
}

func NewKeywordManager() *KeywordManager {
	return &KeywordManager{
		after: func(d time.Duration, fn func()) func() bool {
			t := time.AfterFunc(d, fn)
			return t.Stop
		},
		pending: make(map[string]func() bool),
	}
}

// Tags returns a snapshot of the displayed tags in display order.
func (m *KeywordManager) Tags() []Tag {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Tag, len(m.tags))
	for i, t := range m.tags {
		out[i] = *t
	}
	return out
}

// Update reconciles the displayed tags against the new keyword set.
// Disappeared tags start exiting; new keywords enter with a stagger delay
// per index; a keyword reappearing before its removal completes is restarted
// as entering.
func (m *KeywordManager) Update(keywords []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	// Supersede everything previously scheduled.
	m.cancelAllLocked()

	next := make(map[string]bool, len(keywords))
	canonical := keywords[:0:0]
	for _, kw := range keywords {
		if kw == "" || next[kw] {
			continue
		}
		next[kw] = true
		canonical = append(canonical, kw)
	}

	displayed := make(map[string]*Tag, len(m.tags))
	for _, t := range m.tags {
		displayed[t.Text] = t
	}

	// Disappeared tags exit; reappearing ones restart their enter animation.
	for _, t := range m.tags {
		if !next[t.Text] {
			t.Phase = Exiting
			m.scheduleLocked(t.Text, ExitDuration, m.removeTag(t.Text))
			continue
		}
		if t.Phase == Exiting {
			t.Phase = Entering
			m.scheduleLocked(t.Text, EnterDuration, m.steadyTag(t.Text))
		} else if t.Phase == Entering {
			m.scheduleLocked(t.Text, EnterDuration, m.steadyTag(t.Text))
		}
	}

	step := StaggerSmall
	if len(canonical) > staggerCut {
		step = StaggerLarge
	}
	for i, kw := range canonical {
		if displayed[kw] != nil {
			continue
		}
		delay := time.Duration(i) * step
		m.scheduleLocked(kw, delay, m.enterTag(kw))
	}
}

// Close cancels all scheduled transitions and freezes the manager.
func (m *KeywordManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cancelAllLocked()
	m.tags = nil
}

func (m *KeywordManager) cancelAllLocked() {
	for kw, cancel := range m.pending {
		cancel()
		delete(m.pending, kw)
	}
}

func (m *KeywordManager) scheduleLocked(kw string, d time.Duration, fn func()) {
	if prev, ok := m.pending[kw]; ok {
		prev()
	}
	m.pending[kw] = m.after(d, fn)
}

// enterTag adds the keyword as Entering, then schedules its promotion to
// Steady.
func (m *KeywordManager) enterTag(kw string) func() {
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.closed {
			return
		}
		delete(m.pending, kw)
		for _, t := range m.tags {
			if t.Text == kw {
				return
			}
		}
		m.nextID++
		m.tags = append(m.tags, &Tag{Text: kw, ID: m.nextID, Phase: Entering})
		m.scheduleLocked(kw, EnterDuration, m.steadyTag(kw))
	}
}

func (m *KeywordManager) steadyTag(kw string) func() {
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.closed {
			return
		}
		delete(m.pending, kw)
		for _, t := range m.tags {
			if t.Text == kw && t.Phase == Entering {
				t.Phase = Steady
			}
		}
	}
}

func (m *KeywordManager) removeTag(kw string) func() {
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.closed {
			return
		}
		delete(m.pending, kw)
		for i, t := range m.tags {
			if t.Text == kw && t.Phase == Exiting {
				m.tags = append(m.tags[:i], m.tags[i+1:]...)
				return
			}
		}
	}
}
