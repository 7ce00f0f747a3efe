package audio

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

// Source produces fixed-size capture frames. Start may be called again after
// Stop; Close releases the device for good.
type Source interface {
	Start(emit func(Frame)) error
	Stop()
	Close() error
}

// MicSource captures 16 kHz mono float32 audio from the default microphone.
// Frames are emitted synchronously from the device callback, so the handler
// must not block.
type MicSource struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	mu      sync.Mutex
	emit    func(Frame)
	pending []float32
	running bool
}

// NewMicSource initializes the audio backend. The device itself is created
// lazily on Start.
func NewMicSource() (*MicSource, error) {
	cfg := malgo.ContextConfig{}
	cfg.ThreadPriority = malgo.ThreadPriorityRealtime
	ctx, err := malgo.InitContext(nil, cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("audio capture init: %w", err)
	}
	return &MicSource{ctx: ctx, pending: make([]float32, 0, FrameSamples)}, nil
}

// Start opens the capture device and begins emitting frames. It is a no-op
// when already running.
func (m *MicSource) Start(emit func(Frame)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}
	m.emit = emit
	m.pending = m.pending[:0]

	if m.device == nil {
		deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
		deviceConfig.Capture.Format = malgo.FormatF32
		deviceConfig.Capture.Channels = 1
		deviceConfig.SampleRate = SampleRate
		deviceConfig.PeriodSizeInMilliseconds = 20

		callbacks := malgo.DeviceCallbacks{
			Data: func(_, pInputSamples []byte, _ uint32) {
				m.onData(pInputSamples)
			},
		}
		device, err := malgo.InitDevice(m.ctx.Context, deviceConfig, callbacks)
		if err != nil {
			return fmt.Errorf("audio capture device: %w", err)
		}
		m.device = device
	}

	if err := m.device.Start(); err != nil {
		return fmt.Errorf("audio capture start: %w", err)
	}
	m.running = true
	log.Printf("microphone capture started (%d Hz mono, %d-sample frames)", SampleRate, FrameSamples)
	return nil
}

// Stop halts capture without releasing the device, so a later Start avoids
// device re-init latency. Safe to call when already stopped.
func (m *MicSource) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	m.emit = nil
	if m.device != nil {
		_ = m.device.Stop()
	}
}

// Close stops capture and releases the device and audio context.
func (m *MicSource) Close() error {
	m.Stop()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device != nil {
		m.device.Uninit()
		m.device = nil
	}
	if m.ctx != nil {
		err := m.ctx.Uninit()
		m.ctx.Free()
		m.ctx = nil
		return err
	}
	return nil
}

// onData accumulates raw device samples into fixed-size frames.
func (m *MicSource) onData(raw []byte) {
	m.mu.Lock()
	emit := m.emit
	if !m.running || emit == nil {
		m.mu.Unlock()
		return
	}
	for i := 0; i+4 <= len(raw); i += 4 {
		bits := binary.LittleEndian.Uint32(raw[i : i+4])
		m.pending = append(m.pending, math.Float32frombits(bits))
	}
	var full []Frame
	for len(m.pending) >= FrameSamples {
		frame := make(Frame, FrameSamples)
		copy(frame, m.pending[:FrameSamples])
		m.pending = m.pending[:copy(m.pending, m.pending[FrameSamples:])]
		full = append(full, frame)
	}
	m.mu.Unlock()

	for _, f := range full {
		emit(f)
	}
}
