// Package normalize turns raw text into an utterance a Russian voice can
// pronounce: Unicode cleanup, structural folding, Latin transliteration,
// number expansion and pronunciation dictionary substitution.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// PauseMarker is an inline marker requesting a short silence. It survives
// normalization untouched so the segmenter can find it.
const PauseMarker = "<pause>"

var (
	newlineRun = regexp.MustCompile(`[\r\n]+`)

	structuralReplacer = strings.NewReplacer(
		// brackets are removed
		"[", "", "]", "", "{", "", "}", "", "(", "", ")", "",
		// dash variants fold to a hyphen
		"–", "-", "—", "-", "−", "-",
		// quotes become a space so neighbouring words stay apart
		"«", " ", "»", " ", "‘", " ", "’", " ", "“", " ", "”", " ", `"`, " ", "'", " ",
		"…", "...",
		"ё", "е",
	)
)

// Normalize runs the full pipeline over text. The dictionary may be nil.
// It never fails; unknown characters pass through as they are.
func Normalize(text string, dict *Dictionary) string {
	text = Structural(text)
	text = eachSegment(text, Transliterate)
	text = eachSegment(text, ExpandNumbers)
	if dict != nil {
		text = eachSegment(text, dict.Apply)
	}
	return text
}

// Paragraphs normalizes text line by line and joins the non-empty results
// with newlines, so paragraph breaks reach the segmenter.
func Paragraphs(text string, dict *Dictionary) string {
	var out []string
	for _, line := range newlineRun.Split(text, -1) {
		if n := strings.TrimSpace(Normalize(line, dict)); n != "" {
			out = append(out, n)
		}
	}
	return strings.Join(out, "\n")
}

// Structural applies only Unicode cleanup and structural folding. It is the
// reduced pipeline used when a full normalization fails to synthesize.
func Structural(text string) string {
	text = norm.NFKC.String(text)
	text = dropControl(text)
	text = structuralReplacer.Replace(text)
	return newlineRun.ReplaceAllString(text, " ")
}

// dropControl removes control characters except ASCII whitespace.
func dropControl(text string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\v', '\f', '\r':
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
}

// eachSegment applies fn to the text between pause markers, leaving the
// markers themselves untouched.
func eachSegment(text string, fn func(string) string) string {
	if !strings.Contains(text, PauseMarker) {
		return fn(text)
	}
	parts := strings.Split(text, PauseMarker)
	for i, p := range parts {
		parts[i] = fn(p)
	}
	return strings.Join(parts, PauseMarker)
}
