// Package audio holds mono PCM buffers and the operations used to assemble
// synthesized speech: concatenation, silence, time-stretch and export.
package audio

import (
	"encoding/binary"
	"time"
)

// Audio format used throughout the pipeline.
const (
	DefaultSampleRate = 22050
	Channels          = 1
	BitDepth          = 16
)

// Buffer is mono 16-bit PCM at a fixed sample rate.
type Buffer struct {
	SampleRate int
	Samples    []int16
}

// New returns an empty buffer.
func New(sampleRate int) *Buffer {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Buffer{SampleRate: sampleRate}
}

// Silence returns a buffer of d worth of zero samples.
func Silence(d time.Duration, sampleRate int) *Buffer {
	b := New(sampleRate)
	b.AppendSilence(d)
	return b
}

// Len returns the number of samples.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Samples)
}

// Duration returns the play time of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.Len() == 0 || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(int64(len(b.Samples)) * int64(time.Second) / int64(b.SampleRate))
}

// Seconds returns the duration in seconds.
func (b *Buffer) Seconds() float64 {
	return b.Duration().Seconds()
}

// Append copies other onto the end of b, resampling when the rates differ.
func (b *Buffer) Append(other *Buffer) {
	if other.Len() == 0 {
		return
	}
	if other.SampleRate != b.SampleRate {
		other = other.Resample(b.SampleRate)
	}
	b.Samples = append(b.Samples, other.Samples...)
}

// AppendSilence extends b with d of silence. Non-positive durations are a
// no-op.
func (b *Buffer) AppendSilence(d time.Duration) {
	if d <= 0 {
		return
	}
	n := int((int64(d)*int64(b.SampleRate) + int64(time.Second)/2) / int64(time.Second))
	b.Samples = append(b.Samples, make([]int16, n)...)
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{SampleRate: b.SampleRate, Samples: make([]int16, len(b.Samples))}
	copy(out.Samples, b.Samples)
	return out
}

// Resample converts the buffer to rate using linear interpolation.
func (b *Buffer) Resample(rate int) *Buffer {
	if rate == b.SampleRate || b.Len() == 0 {
		out := b.Clone()
		out.SampleRate = rate
		return out
	}
	step := float64(b.SampleRate) / float64(rate)
	n := int(float64(len(b.Samples)) / step)
	return &Buffer{SampleRate: rate, Samples: interpolate(b.Samples, step, n)}
}

// Bytes encodes the samples as little-endian PCM.
func (b *Buffer) Bytes() []byte {
	out := make([]byte, len(b.Samples)*2)
	for i, s := range b.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// FromBytes decodes little-endian PCM. A trailing odd byte is dropped.
func FromBytes(data []byte, sampleRate int) *Buffer {
	b := &Buffer{SampleRate: sampleRate, Samples: make([]int16, len(data)/2)}
	for i := range b.Samples {
		b.Samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return b
}

// interpolate reads n samples from in at positions 0, step, 2*step...
func interpolate(in []int16, step float64, n int) []int16 {
	out := make([]int16, n)
	last := len(in) - 1
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = in[last]
			continue
		}
		frac := pos - float64(j)
		out[i] = int16(float64(in[j])*(1-frac) + float64(in[j+1])*frac)
	}
	return out
}
