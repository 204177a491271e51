package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned when engine output is not a readable WAV stream.
var ErrInvalidWAV = errors.New("invalid wav data")

// DecodeWAV reads a PCM WAV stream into a mono 16-bit buffer. Multi-channel
// input is down-mixed.
func DecodeWAV(data []byte) (*Buffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if pcm.Format == nil || pcm.Format.SampleRate <= 0 {
		return nil, ErrInvalidWAV
	}

	channels := pcm.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	depth := pcm.SourceBitDepth
	if depth == 0 {
		depth = int(dec.BitDepth)
	}

	frames := len(pcm.Data) / channels
	b := &Buffer{SampleRate: pcm.Format.SampleRate, Samples: make([]int16, frames)}
	for i := 0; i < frames; i++ {
		var sum int
		for c := 0; c < channels; c++ {
			sum += to16(pcm.Data[i*channels+c], depth)
		}
		b.Samples[i] = int16(sum / channels)
	}
	return b, nil
}

func to16(v, depth int) int {
	switch depth {
	case 8:
		return (v - 128) << 8
	case 24:
		return v >> 8
	case 32:
		return v >> 16
	}
	return v
}

// EncodeWAV writes b as a 16-bit mono WAV stream.
func EncodeWAV(w io.WriteSeeker, b *Buffer) error {
	enc := wav.NewEncoder(w, b.SampleRate, BitDepth, Channels, 1)
	data := make([]int, len(b.Samples))
	for i, s := range b.Samples {
		data[i] = int(s)
	}
	buf := &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{SampleRate: b.SampleRate, NumChannels: Channels},
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}
