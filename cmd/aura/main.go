package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/auralabs/sentiment-aura/internal/analysis"
	"github.com/auralabs/sentiment-aura/internal/audio"
	"github.com/auralabs/sentiment-aura/internal/config"
	"github.com/auralabs/sentiment-aura/internal/session"
	"github.com/auralabs/sentiment-aura/internal/transcript"
	"github.com/auralabs/sentiment-aura/internal/viz"
)

const (
	canvasWidth  = 1280
	canvasHeight = 720
	framePeriod  = time.Second / 60
	statusPeriod = 2 * time.Second
)

func main() {
	// Include sub-second precision in all log timestamps
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg := config.Load()

	engine := viz.NewEngine(canvasWidth, canvasHeight, time.Now().UnixNano())

	dispatcher := analysis.NewDispatcher(
		analysis.NewClient(cfg.AnalyzeURL()),
		func(r analysis.Result) {
			log.Printf("analysis: sentiment=%.2f emotion=%s keywords=%v", r.Sentiment, r.Emotion, r.Keywords)
			engine.SetSignal(r.Sentiment, r.Keywords)
		},
		func(err *analysis.Error) {
			log.Printf("analysis failed (%s): %v", err.Kind, err)
		},
	)

	agg := transcript.NewAggregator(func(text string) {
		dispatcher.Dispatch(text)
	})

	sess := session.New(cfg.TranscribeURL(), session.Handlers{
		OnFragment: func(f transcript.Fragment) {
			agg.Add(f)
			engine.SetTranscriptLen(agg.Len())
		},
		OnError: func(err error) {
			log.Printf("session error: %v", err)
		},
	})
	sess.Subscribe(func(st session.State) {
		log.Printf("session state: %s", st)
	})

	mic, err := audio.NewMicSource()
	if err != nil {
		log.Fatalf("microphone init failed: %v", err)
	}
	sess.Subscribe(stopCaptureOn(mic))

	if err := sess.Start(); err != nil {
		log.Fatalf("session start failed: %v", err)
	}
	if err := mic.Start(func(frame audio.Frame) {
		sess.Send(audio.EncodePCM16(frame))
	}); err != nil {
		log.Fatalf("capture start failed: %v", err)
	}
	log.Printf("listening at %d Hz, streaming to %s", audio.SampleRate, cfg.TranscribeURL())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	frameTicker := time.NewTicker(framePeriod)
	defer frameTicker.Stop()
	statusTicker := time.NewTicker(statusPeriod)
	defer statusTicker.Stop()

	canvas := &viz.Recorder{}

loop:
	for {
		select {
		case <-frameTicker.C:
			engine.Tick(canvas)
		case <-statusTicker.C:
			p := engine.Params()
			log.Printf("frame: particles=%d segments=%d flow=%.2f transcript=%q dropped=%d",
				p.Count(), len(canvas.Segments), p.FlowStrength, agg.Display(), sess.Dropped())
		case sig := <-sigChan:
			log.Printf("shutdown signal received: %v", sig)
			break loop
		}
	}

	mic.Stop()
	if err := mic.Close(); err != nil {
		log.Printf("capture close failed: %v", err)
	}
	if err := sess.Close(); err != nil {
		log.Printf("session close failed: %v", err)
	}
	engine.Close()
}

// stopCaptureOn halts the capture source once the session can no longer
// forward audio, so a session stop cancels capture and encoding with it.
func stopCaptureOn(src audio.Source) func(session.State) {
	return func(st session.State) {
		switch st {
		case session.Closing, session.Closed, session.Failed:
			src.Stop()
		}
	}
}
