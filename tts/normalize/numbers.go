package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// Alternatives are listed in precedence order; Go's leftmost-first
// alternation picks the earliest one that matches at a position.
var numberPattern = regexp.MustCompile(
	`(\d+)/(\d+)` + // 1: fraction
		`|(\d+)\s*%` + // 2: percentage
		`|(\d+)[.,](\d+)` + // 3: decimal
		`|(\d+)\s*(?:руб\.|₽)` + // 4: currency
		`|(\d+)`, // 5: bare integer
)

// ExpandNumbers spells out numbers found in text. A match whose value cannot
// be spelled is left as it is.
func ExpandNumbers(text string) string {
	matches := numberPattern.FindAllStringSubmatchIndex(text, -1)
	if matches == nil {
		return text
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m[0]])
		whole := text[m[0]:m[1]]
		group := func(i int) string {
			if m[2*i] < 0 {
				return ""
			}
			return text[m[2*i]:m[2*i+1]]
		}

		var (
			words string
			ok    bool
		)
		switch {
		case m[2] >= 0:
			words, ok = expandFraction(group(1), group(2))
		case m[6] >= 0:
			words, ok = expandCounted(group(3), "процент", "процента", "процентов")
		case m[8] >= 0:
			words, ok = expandDecimal(group(4), group(5))
		case m[12] >= 0:
			words, ok = expandCounted(group(6), "рубль", "рубля", "рублей")
		default:
			words, ok = expandInteger(group(7))
		}
		if ok {
			b.WriteString(words)
		} else {
			b.WriteString(whole)
		}
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

func parseInt(digits string) (int64, bool) {
	n, err := strconv.ParseInt(digits, 10, 64)
	return n, err == nil
}

func expandInteger(digits string) (string, bool) {
	n, ok := parseInt(digits)
	if !ok {
		return "", false
	}
	return Cardinal(n)
}

func expandFraction(num, den string) (string, bool) {
	head, ok := expandInteger(num)
	if !ok {
		return "", false
	}
	d, ok := parseInt(den)
	if !ok {
		return "", false
	}
	tail, ok := Ordinal(d)
	if !ok {
		return "", false
	}
	return head + " " + tail, true
}

func expandCounted(digits, one, few, many string) (string, bool) {
	n, ok := parseInt(digits)
	if !ok {
		return "", false
	}
	words, ok := Cardinal(n)
	if !ok {
		return "", false
	}
	return words + " " + plural(n, one, few, many), true
}

func expandDecimal(whole, frac string) (string, bool) {
	head, ok := expandInteger(whole)
	if !ok {
		return "", false
	}
	tail, ok := expandInteger(frac)
	if !ok {
		return "", false
	}
	return head + " целых " + tail + " " + fractionWord(len(frac)), true
}

// fractionWord names the fractional part by its digit count.
func fractionWord(digits int) string {
	switch digits {
	case 1:
		return "десятых"
	case 2:
		return "сотых"
	case 3:
		return "тысячных"
	}
	return "долей"
}
