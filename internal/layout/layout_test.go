package layout

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Language
		wantErr bool
	}{
		{"english", LangEnglish, false},
		{"EN", LangEnglish, false},
		{"ru", LangRussian, false},
		{"Russian", LangRussian, false},
		{" en_us ", LangEnglish, false},
		{"", LangUnknown, false},
		{"klingon", LangUnknown, true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOther(t *testing.T) {
	if LangEnglish.Other() != LangRussian {
		t.Error("english.Other() should be russian")
	}
	if LangRussian.Other() != LangEnglish {
		t.Error("russian.Other() should be english")
	}
	if LangUnknown.Other() != LangUnknown {
		t.Error("unknown.Other() should stay unknown")
	}
}

func TestRenderEnglishToRussian(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		word string
		want string
	}{
		{"ghbdtn", "привет"},   // привет typed on QWERTY
		{"Ghbdtn", "Привет"},   // case preserved
		{"ghbdtn!", "привет!"}, // unmapped punctuation passes through
		{"[jhjij", "хорошо"},   // Cyrillic letters on punctuation keys
		{"cgfcb,j", "спасибо"}, // comma key carries б
		{"`;", "ёж"},           // backtick carries ё
		{"123", "123"},         // digits untouched
	}
	for _, tt := range tests {
		if got := r.Render(tt.word, LangEnglish, LangRussian); got != tt.want {
			t.Errorf("Render(%q, en->ru) = %q, want %q", tt.word, got, tt.want)
		}
	}
}

func TestRenderRussianToEnglish(t *testing.T) {
	r := NewRegistry()
	if got := r.Render("привет", LangRussian, LangEnglish); got != "ghbdtn" {
		t.Errorf("Render(привет, ru->en) = %q, want ghbdtn", got)
	}
	// руддщ is "hello" typed with the Russian layout active.
	if got := r.Render("руддщ", LangRussian, LangEnglish); got != "hello" {
		t.Errorf("Render(руддщ, ru->en) = %q, want hello", got)
	}
}

func TestRenderSameLanguage(t *testing.T) {
	r := NewRegistry()
	if got := r.Render("hello", LangEnglish, LangEnglish); got != "hello" {
		t.Errorf("same-language render changed the word: %q", got)
	}
}

func TestRenderings(t *testing.T) {
	r := NewRegistry()
	got := r.Renderings("ghbdtn", LangEnglish)

	if got[LangEnglish] != "ghbdtn" {
		t.Errorf("source rendering = %q, want ghbdtn", got[LangEnglish])
	}
	if got[LangRussian] != "привет" {
		t.Errorf("russian rendering = %q, want привет", got[LangRussian])
	}
}

func TestGuessSource(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		word string
		want Language
	}{
		{"hello", LangEnglish},
		{"привет", LangRussian},
		{"Ghbdtn", LangEnglish},
		{"приvet", LangUnknown}, // mixed alphabets
		{"12345", LangUnknown},  // no letters
		{"...", LangUnknown},
		{"ЁЖ", LangRussian},
	}
	for _, tt := range tests {
		if got := r.GuessSource(tt.word); got != tt.want {
			t.Errorf("GuessSource(%q) = %v, want %v", tt.word, got, tt.want)
		}
	}
}

func TestRegistryRegisterAndLanguages(t *testing.T) {
	r := NewRegistry()

	langs := r.Languages()
	if len(langs) != 2 || langs[0] != LangEnglish || langs[1] != LangRussian {
		t.Errorf("Languages() = %v, want [english russian]", langs)
	}

	if _, ok := r.Get(LangRussian); !ok {
		t.Error("russian layout should be registered")
	}

	// Re-registering replaces without duplicating the order entry.
	r.Register(jcuken())
	if got := len(r.Languages()); got != 2 {
		t.Errorf("Languages() after re-register has %d entries, want 2", got)
	}
}

func TestLayoutRoundTrip(t *testing.T) {
	r := NewRegistry()
	ru, _ := r.Get(LangRussian)

	for _, g := range "йцукенгшщзхъфывапролджэячсмитьбюё" {
		key, ok := ru.Key(g)
		if !ok {
			t.Fatalf("russian layout should own %q", g)
		}
		if back := ru.Glyph(key); back != g {
			t.Errorf("round trip %q -> %q -> %q", g, key, back)
		}
	}
}
