package audio

import "encoding/binary"

// SampleRate is the capture rate in Hz. The transcription backend expects
// linear16 mono at this rate.
const SampleRate = 16000

// FrameSamples is the fixed capture frame size. At 16 kHz this is ~256ms of
// audio per frame.
const FrameSamples = 4096

// Frame is one capture frame of normalized mono samples in [-1,1].
type Frame []float32

// EncodePCM16 converts a frame to little-endian 16-bit signed PCM. Samples
// outside [-1,1] are clamped. The output carries the same sample count as
// the input.
func EncodePCM16(frame Frame) []byte {
	out := make([]byte, len(frame)*2)
	for i, s := range frame {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		var v int16
		if s < 0 {
			v = int16(s * 32768)
		} else {
			v = int16(s * 32767)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}
