package audio

import "math"

// WSOLA parameters, in samples at 22050 Hz; scaled for other rates.
const (
	wsolaFrame     = 512
	wsolaTolerance = 128

	// coarse search stride; the best coarse offset is then refined sample
	// by sample within one stride.
	wsolaStride = 8
)

// Stretch changes the play speed of the buffer and returns a new one.
// Speeding up keeps the pitch (WSOLA); slowing down reinterprets the samples
// at a lower rate, which lowers the pitch as well.
func (b *Buffer) Stretch(speed float64) *Buffer {
	return NewStretcher(b).Stretch(speed)
}

// Stretcher stretches one source buffer to several speeds. The source is
// converted for WSOLA once, on first use, and shared by every call.
type Stretcher struct {
	buf    *Buffer
	frame  int
	tol    int
	src    []float32
	window []float32
}

// NewStretcher prepares b for repeated stretching. b must not be modified
// while the Stretcher is in use.
func NewStretcher(b *Buffer) *Stretcher {
	frame := wsolaFrame * b.SampleRate / DefaultSampleRate
	if frame < 64 {
		frame = 64
	}
	frame &^= 1
	return &Stretcher{buf: b, frame: frame, tol: frame * wsolaTolerance / wsolaFrame}
}

// Stretch returns the source played at speed.
func (s *Stretcher) Stretch(speed float64) *Buffer {
	b := s.buf
	switch {
	case speed <= 0 || speed == 1 || b.Len() == 0:
		return b.Clone()
	case speed < 1 || b.Len() < s.frame*2:
		return b.rateSubstitute(speed)
	}
	s.prepare()
	return &Buffer{SampleRate: b.SampleRate, Samples: s.wsola(speed)}
}

func (s *Stretcher) prepare() {
	if s.src != nil {
		return
	}
	s.src = make([]float32, len(s.buf.Samples))
	for i, v := range s.buf.Samples {
		s.src[i] = float32(v)
	}
	s.window = make([]float32, s.frame)
	for i := range s.window {
		s.window[i] = float32(0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(s.frame)))
	}
}

// rateSubstitute plays the samples as if recorded at rate*speed, then brings
// them back to the buffer's rate.
func (b *Buffer) rateSubstitute(speed float64) *Buffer {
	n := int(float64(len(b.Samples)) / speed)
	if n == 0 {
		return New(b.SampleRate)
	}
	return &Buffer{SampleRate: b.SampleRate, Samples: interpolate(b.Samples, speed, n)}
}

// wsola overlap-adds Hann-windowed frames taken from the input every
// hop*speed samples, nudging each frame within ±tol to the position that best
// continues the previous one. With a half-frame hop the windows sum to one
// everywhere past the first hop.
func (s *Stretcher) wsola(speed float64) []int16 {
	frame := s.frame
	hop := frame / 2
	outLen := int(float64(len(s.src)) / speed)
	acc := make([]float32, outLen+frame)

	prev := 0
	for k := 0; k*hop < outLen; k++ {
		nominal := int(math.Round(float64(k*hop) * speed))
		pos := nominal
		if k > 0 {
			pos = s.bestOffset(prev+hop, nominal, hop)
		}
		dst := acc[k*hop : k*hop+frame]
		if pos >= 0 && pos+frame <= len(s.src) {
			for i, v := range s.src[pos : pos+frame] {
				dst[i] += v * s.window[i]
			}
		} else {
			for i := range dst {
				dst[i] += s.at(pos+i) * s.window[i]
			}
		}
		prev = pos
	}

	out := make([]int16, outLen)
	for i := range out {
		w := float32(1)
		if i < hop {
			w = s.window[i]
		}
		if w < 1e-6 {
			continue
		}
		out[i] = clamp16(float64(acc[i] / w))
	}
	return out
}

// bestOffset searches around nominal for the frame start whose first overlap
// samples correlate best with the natural continuation at target. The
// tolerance window is scanned with a stride, then the winner is refined.
func (s *Stretcher) bestOffset(target, nominal, overlap int) int {
	// Ties, as in silence, keep the nominal position.
	best, bestScore := nominal, s.corr(target, nominal, overlap)
	try := func(cand int) {
		if cand < 0 || cand == nominal {
			return
		}
		if v := s.corr(target, cand, overlap); v > bestScore {
			best, bestScore = cand, v
		}
	}

	for d := -s.tol; d <= s.tol; d += wsolaStride {
		try(nominal + d)
	}
	center := best
	for d := 1 - wsolaStride; d < wsolaStride; d++ {
		if d != 0 && center+d >= nominal-s.tol && center+d <= nominal+s.tol {
			try(center + d)
		}
	}
	return best
}

// corr is the cross-correlation of n samples at a and b, every other sample.
func (s *Stretcher) corr(a, b, n int) float32 {
	var sum float32
	if a >= 0 && b >= 0 && a+n <= len(s.src) && b+n <= len(s.src) {
		x, y := s.src[a:a+n], s.src[b:b+n]
		for i := 0; i < n; i += 2 {
			sum += x[i] * y[i]
		}
		return sum
	}
	for i := 0; i < n; i += 2 {
		sum += s.at(a+i) * s.at(b+i)
	}
	return sum
}

func (s *Stretcher) at(i int) float32 {
	if i < 0 || i >= len(s.src) {
		return 0
	}
	return s.src[i]
}

func clamp16(v float64) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(math.Round(v))
}
