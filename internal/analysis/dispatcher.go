package analysis

import (
	"context"
	"log"
	"strings"
	"sync"
	"sync/atomic"
)

// Analyzer computes sentiment, keywords, and emotion for a piece of text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (Result, error)
}

// Dispatcher sends finalized text to the Analyzer under a single-flight
// constraint: while a call is outstanding, further dispatches are dropped,
// not queued. Success replaces the result snapshot wholesale; failure leaves
// the previous snapshot untouched.
type Dispatcher struct {
	analyzer Analyzer
	inFlight atomic.Bool

	mu        sync.Mutex
	result    Result
	hasResult bool

	onResult func(Result)
	onError  func(*Error)
}

// NewDispatcher wires the analyzer to the given callbacks. Either callback
// may be nil. Callbacks fire from the dispatch goroutine.
func NewDispatcher(a Analyzer, onResult func(Result), onError func(*Error)) *Dispatcher {
	return &Dispatcher{analyzer: a, onResult: onResult, onError: onError}
}

// Dispatch starts an analysis call for the text. Blank text and calls made
// while another is outstanding are silent no-ops. The returned bool reports
// whether a call was actually started.
func (d *Dispatcher) Dispatch(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if !d.inFlight.CompareAndSwap(false, true) {
		return false
	}

	go func() {
		defer d.inFlight.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
		defer cancel()

		res, err := d.analyzer.Analyze(ctx, text)
		if err != nil {
			aerr, ok := err.(*Error)
			if !ok {
				aerr = &Error{Kind: KindNetwork, cause: err}
			}
			log.Printf("analysis dispatch failed: %v", aerr)
			if d.onError != nil {
				d.onError(aerr)
			}
			return
		}

		d.mu.Lock()
		d.result = res
		d.hasResult = true
		d.mu.Unlock()
		if d.onResult != nil {
			d.onResult(res)
		}
	}()
	return true
}

// Busy reports whether a call is currently outstanding.
func (d *Dispatcher) Busy() bool { return d.inFlight.Load() }

// Result returns the last successful snapshot, if any.
func (d *Dispatcher) Result() (Result, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result, d.hasResult
}
