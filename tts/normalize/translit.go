package normalize

import (
	"regexp"
	"strings"
)

var latinRun = regexp.MustCompile(`[a-zA-Z]+`)

// Letter-by-letter table. Digraphs such as "sh" or "ch" are not recognised.
var translitTable = map[rune]string{
	'a': "а", 'b': "б", 'c': "к", 'd': "д", 'e': "е", 'f': "ф", 'g': "г",
	'h': "х", 'i': "и", 'j': "й", 'k': "к", 'l': "л", 'm': "м", 'n': "н",
	'o': "о", 'p': "п", 'q': "к", 'r': "р", 's': "с", 't': "т", 'u': "у",
	'v': "в", 'w': "в", 'x': "кс", 'y': "й", 'z': "з",

	'A': "А", 'B': "Б", 'C': "К", 'D': "Д", 'E': "Е", 'F': "Ф", 'G': "Г",
	'H': "Х", 'I': "И", 'J': "Й", 'K': "К", 'L': "Л", 'M': "М", 'N': "Н",
	'O': "О", 'P': "П", 'Q': "К", 'R': "Р", 'S': "С", 'T': "Т", 'U': "У",
	'V': "В", 'W': "В", 'X': "Кс", 'Y': "Й", 'Z': "З",
}

// Transliterate maps every run of Latin letters into Cyrillic.
func Transliterate(text string) string {
	return latinRun.ReplaceAllStringFunc(text, func(run string) string {
		var b strings.Builder
		b.Grow(len(run) * 2)
		for _, r := range run {
			b.WriteString(translitTable[r])
		}
		return b.String()
	})
}
