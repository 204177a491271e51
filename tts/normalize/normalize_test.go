package normalize

import (
	"strings"
	"testing"
	"unicode"
)

func TestStructural(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"brackets removed", "a (b) [c] {d}", "a b c d"},
		{"dashes folded", "раз – два — три − четыре", "раз - два - три - четыре"},
		{"quotes become spaces", "«тест»", " тест "},
		{"apostrophe keeps words apart", "it's", "it s"},
		{"ellipsis", "ну…", "ну..."},
		{"yo folded", "ёж", "еж"},
		{"newlines collapse", "раз\r\n\nдва\nтри", "раз два три"},
		{"control chars dropped", "a\x00b\x07c", "abc"},
		{"nfkc", "ﬁ", "fi"},
		{"pause marker kept", "раз <pause> два", "раз <pause> два"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Structural(tt.in); got != tt.want {
				t.Errorf("Structural(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTransliterate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello", "хелло"},
		{"Xerox", "Ксерокс"},
		{"shop", "схоп"},
		{"Привет, World!", "Привет, Ворлд!"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Transliterate(tt.in); got != tt.want {
			t.Errorf("Transliterate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStagesIdempotent(t *testing.T) {
	inputs := []string{
		"Hello, «world» — it's (a) test…\nNext line ёлка",
		"Mixed кириллица and Latin [brackets] {braces}",
		"  \t tabs and\r\nbreaks ",
	}
	for _, in := range inputs {
		once := Structural(in)
		if twice := Structural(once); twice != once {
			t.Errorf("Structural not idempotent: %q -> %q", once, twice)
		}
		tr := Transliterate(once)
		if again := Transliterate(tr); again != tr {
			t.Errorf("Transliterate not idempotent: %q -> %q", tr, again)
		}
	}
}

func TestNormalize(t *testing.T) {
	dict := NewDictionary(Entry{Key: "ГПУ", Value: "гэ пэ у"})

	got := Normalize("Version 2 of (ГПУ)\n<pause> done", dict)
	want := "Версион два оф гэ пэ у <pause> доне"
	if got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
}

func TestNormalizeOutputAlphabet(t *testing.T) {
	got := Normalize("Room 101: 3.5 kg, 50% off — 100 руб.", nil)
	for _, r := range got {
		if unicode.Is(unicode.Latin, r) || unicode.IsDigit(r) {
			t.Fatalf("Normalize() left %q in %q", r, got)
		}
	}
}

func TestNormalizeNilDictionary(t *testing.T) {
	if got := Normalize("", nil); got != "" {
		t.Errorf("Normalize(\"\") = %q, want empty", got)
	}
	if got := Normalize(PauseMarker, nil); !strings.Contains(got, PauseMarker) {
		t.Errorf("Normalize() dropped pause marker: %q", got)
	}
}
