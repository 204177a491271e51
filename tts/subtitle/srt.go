// Package subtitle reads numbered-cue subtitle tracks (SRT).
package subtitle

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/narrator/tts"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Cue is one timed subtitle entry. Times are in seconds.
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// Duration is the declared length of the cue.
func (c Cue) Duration() float64 {
	return c.End - c.Start
}

// decoder is one candidate source encoding.
type decoder struct {
	name   string
	decode func([]byte) (string, error)
}

// decoders are tried in order; the first without error wins.
var decoders = []decoder{
	{"utf-8", decodeUTF8},
	{"cp1251", decodeWith(charmap.Windows1251)},
	{"latin1", decodeWith(charmap.ISO8859_1)},
	{"utf-16", decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.UseBOM))},
}

// errBadText rejects a decode that produced bytes no subtitle file contains,
// such as the NULs of UTF-16 read as a single-byte code page.
var errBadText = errors.New("decoded text contains control characters")

func decodeUTF8(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", errors.New("invalid utf-8")
	}
	text := string(bytes.TrimPrefix(b, []byte("\xef\xbb\xbf")))
	if strings.ContainsFunc(text, isBadRune) {
		return "", errBadText
	}
	return text, nil
}

func decodeWith(enc encoding.Encoding) func([]byte) (string, error) {
	return func(b []byte) (string, error) {
		out, err := enc.NewDecoder().Bytes(b)
		if err != nil {
			return "", err
		}
		text := strings.TrimPrefix(string(out), "\ufeff")
		if strings.ContainsFunc(text, isBadRune) {
			return "", errBadText
		}
		return text, nil
	}
}

// Decode converts raw subtitle bytes to text, trying each supported encoding
// in turn. It returns the encoding name that succeeded.
func Decode(data []byte) (string, string, error) {
	for _, d := range decoders {
		text, err := d.decode(data)
		if err == nil {
			return text, d.name, nil
		}
		log.Debug("subtitle decode failed", "encoding", d.name, "err", err)
	}
	return "", "", tts.NewError(tts.ErrEncoding, "subtitle", "decode")
}

// ParseFile reads and parses an SRT file.
func ParseFile(path string) ([]Cue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subtitles: %w", err)
	}
	text, enc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debug("subtitles decoded", "path", path, "encoding", enc)
	return Parse(text), nil
}

// Parse extracts cues in source order. Cues with unreadable timestamps are
// logged and skipped; the parse itself never fails.
func Parse(text string) []Cue {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}

	var cues []Cue
	for i := 0; i < len(lines); i++ {
		if !isNumber(lines[i]) || i+1 >= len(lines) {
			continue
		}
		number := lines[i]
		timing := lines[i+1]
		if !strings.Contains(timing, "-->") {
			i++
			continue
		}
		i += 2

		var text []string
		for ; i < len(lines) && lines[i] != ""; i++ {
			text = append(text, lines[i])
		}

		start, end, err := parseTiming(timing)
		if err != nil {
			log.Warn("skipping subtitle cue",
				"cue", number,
				"err", tts.NewError(fmt.Errorf("%w: %v", tts.ErrMalformedCue, err), "subtitle", "parse"))
			continue
		}
		cues = append(cues, Cue{
			Index: len(cues),
			Start: start,
			End:   end,
			Text:  strings.Join(text, " "),
		})
	}
	return cues
}

func isBadRune(r rune) bool {
	switch r {
	case '\t', '\n', '\r':
		return false
	case utf8.RuneError:
		return true
	}
	return r < 0x20 || (r >= 0x7f && r < 0xa0)
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func parseTiming(line string) (float64, float64, error) {
	from, to, _ := strings.Cut(line, "-->")
	start, err := ParseTimestamp(from)
	if err != nil {
		return 0, 0, err
	}
	// Position hints such as "X1:40 X2:600" may follow the end time.
	fields := strings.Fields(to)
	if len(fields) == 0 {
		return 0, 0, errors.New("missing end timestamp")
	}
	end, err := ParseTimestamp(fields[0])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// ParseTimestamp converts HH:MM:SS,mmm to seconds. A period is accepted in
// place of the comma.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.New("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	hms, ms, ok := strings.Cut(value, ",")
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	parts := strings.Split(hms, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(parts[0])
	minutes, errM := strconv.Atoi(parts[1])
	seconds, errS := strconv.Atoi(parts[2])
	millis, errMS := strconv.Atoi(ms)
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if hours < 0 || minutes < 0 || seconds < 0 || millis < 0 {
		return 0, fmt.Errorf("negative timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}
