package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/auralabs/sentiment-aura/internal/transcript"
)

// ErrConnectionLost is surfaced when the transport closes abnormally while
// recording was active.
var ErrConnectionLost = errors.New("transcription connection lost")

// Handlers receives session events. All callbacks are invoked from the read
// pump goroutine and must not block.
type Handlers struct {
	// OnFragment receives parsed transcript fragments.
	OnFragment func(transcript.Fragment)
	// OnError receives surfaced session errors (transport loss, upstream
	// Error frames). Errors are non-fatal to the process.
	OnError func(error)
}

// Session owns one duplex streaming connection to the transcription proxy.
// Audio written while the transport is not Open is dropped, not buffered.
type Session struct {
	url      string
	dialer   *websocket.Dialer
	handlers Handlers

	mu        sync.Mutex
	state     State
	conn      *websocket.Conn
	recording bool
	seq       int
	dropped   int
	subs      []func(State)
}

// New creates an idle session targeting the given websocket URL.
func New(url string, h Handlers) *Session {
	return &Session{
		url:      url,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		handlers: h,
		state:    Idle,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Recording reports whether the session is actively forwarding audio.
func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// Dropped returns the number of audio chunks discarded because the transport
// was not Open.
func (s *Session) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Subscribe registers a state observer. Observers are called after every
// transition, outside the session lock.
func (s *Session) Subscribe(fn func(State)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// setState transitions while holding the lock and returns the notification
// to run after unlocking.
func (s *Session) setState(st State) func() {
	if s.state == st {
		return func() {}
	}
	s.state = st
	subs := make([]func(State), len(s.subs))
	copy(subs, s.subs)
	return func() {
		for _, fn := range subs {
			fn(st)
		}
	}
}

// Start opens the session. It is a no-op while Connecting or Open. A
// transport retained by a previous Stop is reused to avoid reconnect
// latency; otherwise a new one is dialed.
func (s *Session) Start() error {
	s.mu.Lock()
	switch s.state {
	case Connecting, Open:
		s.mu.Unlock()
		return nil
	}
	notify := s.setState(Connecting)
	reuse := s.conn != nil
	if reuse {
		s.recording = true
		notifyOpen := s.setState(Open)
		s.mu.Unlock()
		notify()
		notifyOpen()
		log.Printf("session: reusing retained transport")
		return nil
	}
	s.mu.Unlock()
	notify()

	conn, resp, err := s.dialer.Dial(s.url, nil)
	if err != nil {
		if resp != nil {
			log.Printf("session: dial failed with status %d", resp.StatusCode)
		}
		s.mu.Lock()
		notifyFail := s.setState(Failed)
		s.mu.Unlock()
		notifyFail()
		return fmt.Errorf("session dial: %w", err)
	}

	s.mu.Lock()
	if s.state != Connecting {
		// Torn down while dialing.
		s.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	s.conn = conn
	s.recording = true
	notifyOpen := s.setState(Open)
	s.mu.Unlock()
	notifyOpen()

	go s.readPump(conn)
	log.Printf("session: transport open (%s)", s.url)
	return nil
}

// Send forwards one encoded audio chunk. Chunks produced while the transport
// is not Open are dropped by contract, not buffered.
func (s *Session) Send(chunk []byte) {
	s.mu.Lock()
	if s.state != Open || s.conn == nil {
		s.dropped++
		if s.dropped == 1 || s.dropped%100 == 0 {
			log.Printf("session: transport not open, dropped %d chunk(s)", s.dropped)
		}
		s.mu.Unlock()
		return
	}
	conn := s.conn
	s.mu.Unlock()

	if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
		log.Printf("session: audio write failed: %v", err)
		s.transportLost(conn, err)
	}
}

// Stop halts forwarding and moves Open/Connecting to Closing. The transport
// is intentionally retained; only Close tears it down. Idempotent.
func (s *Session) Stop() {
	s.mu.Lock()
	s.recording = false
	var notify func()
	switch s.state {
	case Open, Connecting:
		notify = s.setState(Closing)
	default:
		notify = func() {}
	}
	s.mu.Unlock()
	notify()
}

// Close forces the session Closed regardless of current state and releases
// the transport.
func (s *Session) Close() error {
	s.mu.Lock()
	s.recording = false
	conn := s.conn
	s.conn = nil
	notify := s.setState(Closed)
	s.mu.Unlock()
	notify()

	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		return conn.Close()
	}
	return nil
}

// transportLost handles abnormal termination of the given transport. A stale
// conn (already replaced or torn down) is ignored.
func (s *Session) transportLost(conn *websocket.Conn, cause error) {
	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	wasRecording := s.recording
	s.recording = false
	var notify func()
	if s.state == Closed {
		notify = func() {}
	} else {
		notify = s.setState(Failed)
	}
	s.mu.Unlock()
	notify()
	_ = conn.Close()

	if wasRecording && s.handlers.OnError != nil {
		s.handlers.OnError(fmt.Errorf("%w: %v", ErrConnectionLost, cause))
	}
}

// wireMessage covers the three server frame kinds. Results carry the
// transcript; Error carries a message; Metadata is informational.
type wireMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
	Message string `json:"message"`
}

// readPump parses inbound frames until the transport dies. Malformed frames
// are logged and swallowed so a bad event can never take the pipeline down.
func (s *Session) readPump(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				// Normal closure from the server side.
				s.mu.Lock()
				notify := func() {}
				if s.conn == conn {
					s.conn = nil
					s.recording = false
					notify = s.setState(Closed)
				}
				s.mu.Unlock()
				notify()
				return
			}
			s.transportLost(conn, err)
			return
		}
		s.handleFrame(raw)
	}
}

func (s *Session) handleFrame(raw []byte) {
	var msg wireMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("session: malformed event dropped: %v", err)
		return
	}
	switch msg.Type {
	case "Results":
		if len(msg.Channel.Alternatives) == 0 {
			log.Printf("session: Results frame without alternatives")
			return
		}
		text := msg.Channel.Alternatives[0].Transcript
		s.mu.Lock()
		s.seq++
		seq := s.seq
		s.mu.Unlock()
		if s.handlers.OnFragment != nil {
			s.handlers.OnFragment(transcript.Fragment{Text: text, IsFinal: msg.IsFinal, Seq: seq})
		}
	case "Error":
		log.Printf("session: upstream error: %s", msg.Message)
		wasRecording := s.Recording()
		if wasRecording {
			s.Stop()
		}
		if s.handlers.OnError != nil {
			s.handlers.OnError(fmt.Errorf("transcription error: %s", msg.Message))
		}
	case "Metadata":
		log.Printf("session: metadata event")
	default:
		log.Printf("session: unknown event type %q", msg.Type)
	}
}
