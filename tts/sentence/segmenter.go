// Package sentence splits normalized text into bounded synthesis chunks and
// reassembles the synthesized chunks with the pauses between them.
package sentence

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dgnsrekt/narrator/tts/normalize"
)

const (
	// DefaultThreshold is the text length above which sentences are regrouped.
	DefaultThreshold = 1000
	// DefaultMaxChunk bounds a regrouped chunk.
	DefaultMaxChunk = 500

	// ShortPause is inserted for every pause marker.
	ShortPause = 500 * time.Millisecond
	// LongPause follows a chunk boundary or a line break.
	LongPause = 1000 * time.Millisecond
)

// Chunk is one unit of text sent to the synthesis engine.
type Chunk struct {
	Index  int
	Text   string // pause markers stripped
	Pauses int    // pause markers found in the chunk
	Break  bool   // the chunk ended at a line break
}

// Empty reports whether there is nothing to synthesize.
func (c Chunk) Empty() bool {
	return strings.TrimSpace(c.Text) == ""
}

// Segmenter splits text at sentence boundaries.
type Segmenter struct {
	Threshold int
	MaxChunk  int
}

// NewSegmenter returns a segmenter with the default limits.
func NewSegmenter() *Segmenter {
	return &Segmenter{Threshold: DefaultThreshold, MaxChunk: DefaultMaxChunk}
}

// Split returns the chunks of text in order. Empty text yields no chunks.
func (s *Segmenter) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	pieces := splitBoundaries(text)
	if utf8.RuneCountInString(text) > s.Threshold {
		pieces = s.regroup(pieces)
	}

	chunks := make([]Chunk, 0, len(pieces))
	for _, p := range pieces {
		if p.Empty() && p.Pauses == 0 {
			continue
		}
		p.Index = len(chunks)
		chunks = append(chunks, p)
	}
	return chunks
}

// SilenceAfter is the silence the assembler appends after chunk c.
func SilenceAfter(c Chunk, last bool) time.Duration {
	d := time.Duration(c.Pauses) * ShortPause
	if c.Break || !last {
		d += LongPause
	}
	return d
}

// splitBoundaries cuts after runs of . ! ? ; (eating the whitespace that
// follows) and at every line break.
func splitBoundaries(text string) []Chunk {
	var (
		pieces []Chunk
		cur    strings.Builder
	)
	flush := func(brk bool) {
		pieces = append(pieces, newChunk(cur.String(), brk))
		cur.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' {
			flush(true)
			continue
		}
		cur.WriteRune(r)
		if !isTerminator(r) {
			continue
		}
		for i+1 < len(runes) && isTerminator(runes[i+1]) {
			i++
			cur.WriteRune(runes[i])
		}
		brk := false
		for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			i++
			if runes[i] == '\n' {
				brk = true
			}
		}
		flush(brk)
	}
	if cur.Len() > 0 {
		flush(false)
	}
	return pieces
}

func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', ';':
		return true
	}
	return false
}

func newChunk(raw string, brk bool) Chunk {
	pauses := strings.Count(raw, normalize.PauseMarker)
	text := strings.ReplaceAll(raw, normalize.PauseMarker, " ")
	return Chunk{
		Text:   strings.Join(strings.Fields(text), " "),
		Pauses: pauses,
		Break:  brk,
	}
}

// regroup packs consecutive pieces into chunks no longer than MaxChunk.
func (s *Segmenter) regroup(pieces []Chunk) []Chunk {
	var (
		out []Chunk
		cur Chunk
	)
	for _, p := range pieces {
		for _, part := range s.hardSplit(p) {
			if cur.Text != "" && runeLen(cur.Text)+1+runeLen(part.Text) > s.MaxChunk {
				out = append(out, cur)
				cur = Chunk{}
			}
			cur.Text = joinSpace(cur.Text, part.Text)
			cur.Pauses += part.Pauses
			cur.Break = cur.Break || part.Break
		}
	}
	if cur.Text != "" || cur.Pauses > 0 {
		out = append(out, cur)
	}
	return out
}

// hardSplit breaks a piece longer than MaxChunk at whitespace, or mid-word
// when a run has no whitespace at all.
func (s *Segmenter) hardSplit(p Chunk) []Chunk {
	if runeLen(p.Text) <= s.MaxChunk {
		return []Chunk{p}
	}

	var out []Chunk
	rest := []rune(p.Text)
	for len(rest) > s.MaxChunk {
		cut := s.MaxChunk
		for i := s.MaxChunk; i > 0; i-- {
			if unicode.IsSpace(rest[i]) {
				cut = i
				break
			}
		}
		out = append(out, Chunk{Text: strings.TrimSpace(string(rest[:cut]))})
		rest = []rune(strings.TrimSpace(string(rest[cut:])))
	}
	out = append(out, Chunk{Text: string(rest)})
	out[len(out)-1].Pauses = p.Pauses
	out[len(out)-1].Break = p.Break
	return out
}

func joinSpace(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
