package normalize

import "strings"

// maxCardinal is the first value the word tables cannot spell.
const maxCardinal = 1_000_000_000_000

var (
	unitsMasc = [...]string{"", "один", "два", "три", "четыре", "пять", "шесть", "семь", "восемь", "девять"}
	unitsFem  = [...]string{"", "одна", "две", "три", "четыре", "пять", "шесть", "семь", "восемь", "девять"}
	teens     = [...]string{
		"десять", "одиннадцать", "двенадцать", "тринадцать", "четырнадцать",
		"пятнадцать", "шестнадцать", "семнадцать", "восемнадцать", "девятнадцать",
	}
	tens     = [...]string{"", "", "двадцать", "тридцать", "сорок", "пятьдесят", "шестьдесят", "семьдесят", "восемьдесят", "девяносто"}
	hundreds = [...]string{"", "сто", "двести", "триста", "четыреста", "пятьсот", "шестьсот", "семьсот", "восемьсот", "девятьсот"}

	ordUnits = [...]string{"нулевой", "первый", "второй", "третий", "четвертый", "пятый", "шестой", "седьмой", "восьмой", "девятый"}
	ordTeens = [...]string{
		"десятый", "одиннадцатый", "двенадцатый", "тринадцатый", "четырнадцатый",
		"пятнадцатый", "шестнадцатый", "семнадцатый", "восемнадцатый", "девятнадцатый",
	}
	ordTens     = [...]string{"", "", "двадцатый", "тридцатый", "сороковой", "пятидесятый", "шестидесятый", "семидесятый", "восьмидесятый", "девяностый"}
	ordHundreds = [...]string{"", "сотый", "двухсотый", "трехсотый", "четырехсотый", "пятисотый", "шестисотый", "семисотый", "восьмисотый", "девятисотый"}
)

type scale struct {
	value          int64
	fem            bool
	one, few, many string
}

var scales = []scale{
	{1_000_000_000, false, "миллиард", "миллиарда", "миллиардов"},
	{1_000_000, false, "миллион", "миллиона", "миллионов"},
	{1_000, true, "тысяча", "тысячи", "тысяч"},
}

// Cardinal spells n in words. It reports false when n is out of range.
func Cardinal(n int64) (string, bool) {
	if n < 0 || n >= maxCardinal {
		return "", false
	}
	if n == 0 {
		return "ноль", true
	}

	var words []string
	for _, s := range scales {
		group := n / s.value
		n %= s.value
		if group == 0 {
			continue
		}
		words = append(words, triad(int(group), s.fem)...)
		words = append(words, plural(group, s.one, s.few, s.many))
	}
	words = append(words, triad(int(n), false)...)
	return strings.Join(words, " "), true
}

// Ordinal spells n as a masculine nominative ordinal ("второй", "сто первый").
// Round thousands other than 1000, 10^6 and 10^9 are not supported.
func Ordinal(n int64) (string, bool) {
	if n < 0 || n >= maxCardinal {
		return "", false
	}
	if n < 1000 {
		return ordinalTriad(int(n)), true
	}

	last := n % 1000
	if last == 0 {
		switch n {
		case 1_000:
			return "тысячный", true
		case 1_000_000:
			return "миллионный", true
		case 1_000_000_000:
			return "миллиардный", true
		}
		return "", false
	}

	head, ok := Cardinal(n - last)
	if !ok {
		return "", false
	}
	return head + " " + ordinalTriad(int(last)), true
}

func triad(n int, fem bool) []string {
	var words []string
	if h := n / 100; h > 0 {
		words = append(words, hundreds[h])
	}
	r := n % 100
	switch {
	case r >= 10 && r < 20:
		words = append(words, teens[r-10])
	default:
		if t := r / 10; t > 0 {
			words = append(words, tens[t])
		}
		if u := r % 10; u > 0 {
			if fem {
				words = append(words, unitsFem[u])
			} else {
				words = append(words, unitsMasc[u])
			}
		}
	}
	return words
}

func ordinalTriad(n int) string {
	h, r := n/100, n%100
	if r == 0 && h > 0 {
		return ordHundreds[h]
	}

	var words []string
	if h > 0 {
		words = append(words, hundreds[h])
	}
	switch {
	case r < 10:
		words = append(words, ordUnits[r])
	case r < 20:
		words = append(words, ordTeens[r-10])
	case r%10 == 0:
		words = append(words, ordTens[r/10])
	default:
		words = append(words, tens[r/10], ordUnits[r%10])
	}
	return strings.Join(words, " ")
}

// plural picks the noun form agreeing with n.
func plural(n int64, one, few, many string) string {
	if m := n % 100; m >= 11 && m <= 14 {
		return many
	}
	switch n % 10 {
	case 1:
		return one
	case 2, 3, 4:
		return few
	}
	return many
}
