package sentence

import (
	"sort"

	"github.com/dgnsrekt/narrator/tts/audio"
)

// Result pairs a synthesized chunk with its position.
type Result struct {
	Index int
	Audio *audio.Buffer
}

// Assemble concatenates results in chunk order with the silences each chunk
// asks for. A chunk without a result contributes only its silence.
func Assemble(chunks []Chunk, results []Result, sampleRate int) *audio.Buffer {
	sorted := make([]Result, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	byIndex := make(map[int]*audio.Buffer, len(sorted))
	for _, r := range sorted {
		byIndex[r.Index] = r.Audio
	}

	out := audio.New(sampleRate)
	for i, c := range chunks {
		if b, ok := byIndex[c.Index]; ok {
			out.Append(b)
		}
		out.AppendSilence(SilenceAfter(c, i == len(chunks)-1))
	}
	return out
}
