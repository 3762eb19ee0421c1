package dict

import (
	"context"
	"math"
	"strings"
	"unicode"

	"layoutd/internal/layout"
)

// CharModel is the built-in NeuralClassifier: a character bigram
// log-likelihood model per language, normalized to a probability over
// the two candidates. It is deliberately small; an external model can
// replace it behind the same interface.
type CharModel struct {
	models map[layout.Language]charLM
}

type charLM struct {
	bigrams map[string]float64 // log probabilities
	letters map[rune]float64
	floor   float64 // log prob for unseen events
}

// NewCharModel builds the model from the built-in frequency tables.
func NewCharModel() *CharModel {
	return &CharModel{
		models: map[layout.Language]charLM{
			layout.LangEnglish: buildLM(englishLetterFreq, englishBigramFreq),
			layout.LangRussian: buildLM(russianLetterFreq, russianBigramFreq),
		},
	}
}

func buildLM(letters map[rune]float64, bigrams map[string]float64) charLM {
	lm := charLM{
		bigrams: make(map[string]float64, len(bigrams)),
		letters: make(map[rune]float64, len(letters)),
		floor:   math.Log(1e-4),
	}
	for r, f := range letters {
		lm.letters[r] = math.Log(f)
	}
	for bg, f := range bigrams {
		lm.bigrams[bg] = math.Log(f)
	}
	return lm
}

// score returns the average per-event log likelihood. Averaging keeps
// long and short words comparable.
func (lm charLM) score(text string) float64 {
	runes := []rune(strings.ToLower(text))
	var sum float64
	var n int
	var prev rune
	for _, r := range runes {
		if !unicode.IsLetter(r) {
			prev = 0
			continue
		}
		if lp, ok := lm.letters[r]; ok {
			sum += lp
		} else {
			// A letter outside the alphabet is strong evidence against.
			sum += lm.floor * 2
		}
		n++
		if prev != 0 {
			bg := string([]rune{prev, r})
			if lp, ok := lm.bigrams[bg]; ok {
				sum += lp
			} else {
				sum += lm.floor
			}
			n++
		}
		prev = r
	}
	if n == 0 {
		return lm.floor
	}
	return sum / float64(n)
}

// Classify scores text under each language model and converts the gap
// into a confidence via a logistic squash.
func (m *CharModel) Classify(_ context.Context, text string) (layout.Language, float64, error) {
	best := layout.LangUnknown
	bestScore, secondScore := math.Inf(-1), math.Inf(-1)

	for lang, lm := range m.models {
		s := lm.score(text)
		if s > bestScore {
			secondScore = bestScore
			best, bestScore = lang, s
		} else if s > secondScore {
			secondScore = s
		}
	}
	if best == layout.LangUnknown {
		return layout.LangUnknown, 0, nil
	}

	// Map the score gap onto (0.5, 1.0): equal scores give 0.5, a gap
	// of ~3 nats per event saturates near 1.
	gap := bestScore - secondScore
	conf := 1.0 / (1.0 + math.Exp(-gap*1.5))
	return best, conf, nil
}

// Per-language relative frequencies. Values are unnormalized weights;
// only ratios matter to the scorer.
var englishLetterFreq = map[rune]float64{
	'e': 0.127, 't': 0.091, 'a': 0.082, 'o': 0.075, 'i': 0.070,
	'n': 0.067, 's': 0.063, 'h': 0.061, 'r': 0.060, 'd': 0.043,
	'l': 0.040, 'c': 0.028, 'u': 0.028, 'm': 0.024, 'w': 0.024,
	'f': 0.022, 'g': 0.020, 'y': 0.020, 'p': 0.019, 'b': 0.015,
	'v': 0.010, 'k': 0.008, 'j': 0.002, 'x': 0.002, 'q': 0.001,
	'z': 0.001,
}

var englishBigramFreq = map[string]float64{
	"th": 0.036, "he": 0.030, "in": 0.024, "er": 0.021, "an": 0.020,
	"re": 0.018, "on": 0.017, "at": 0.015, "en": 0.014, "nd": 0.014,
	"ti": 0.013, "es": 0.013, "or": 0.013, "te": 0.012, "of": 0.012,
	"ed": 0.012, "is": 0.011, "it": 0.011, "al": 0.011, "ar": 0.011,
	"st": 0.011, "to": 0.011, "nt": 0.010, "ng": 0.010, "se": 0.009,
	"ha": 0.009, "as": 0.009, "ou": 0.009, "io": 0.008, "le": 0.008,
	"ve": 0.008, "co": 0.008, "me": 0.008, "de": 0.008, "hi": 0.008,
	"ri": 0.007, "ro": 0.007, "ic": 0.007, "ne": 0.007, "ea": 0.007,
	"ra": 0.007, "ce": 0.006, "li": 0.006, "ch": 0.006, "ll": 0.006,
	"be": 0.006, "ma": 0.006, "si": 0.005, "om": 0.005, "ur": 0.005,
}

var russianLetterFreq = map[rune]float64{
	'о': 0.110, 'е': 0.085, 'а': 0.080, 'и': 0.074, 'н': 0.067,
	'т': 0.063, 'с': 0.055, 'р': 0.047, 'в': 0.045, 'л': 0.044,
	'к': 0.035, 'м': 0.032, 'д': 0.030, 'п': 0.028, 'у': 0.026,
	'я': 0.020, 'ы': 0.019, 'ь': 0.017, 'г': 0.017, 'з': 0.016,
	'б': 0.016, 'ч': 0.014, 'й': 0.012, 'х': 0.010, 'ж': 0.009,
	'ш': 0.007, 'ю': 0.006, 'ц': 0.005, 'щ': 0.004, 'э': 0.003,
	'ф': 0.003, 'ъ': 0.0004, 'ё': 0.002,
}

var russianBigramFreq = map[string]float64{
	"ст": 0.017, "но": 0.016, "то": 0.015, "на": 0.015, "ен": 0.014,
	"ов": 0.013, "ни": 0.013, "ра": 0.012, "во": 0.011, "ко": 0.011,
	"по": 0.010, "ер": 0.010, "ре": 0.010, "го": 0.010,
	"ал": 0.009, "ор": 0.009, "ли": 0.009, "ат": 0.009, "ан": 0.009,
	"не": 0.009, "та": 0.008, "ет": 0.008, "ло": 0.008, "ос": 0.008,
	"он": 0.008, "ол": 0.008, "ит": 0.008, "ка": 0.008, "ва": 0.008,
	"ел": 0.007, "ро": 0.007, "ти": 0.007, "од": 0.007, "те": 0.007,
	"ла": 0.007, "да": 0.006, "ес": 0.006, "ог": 0.006, "ль": 0.006,
	"ки": 0.006, "ие": 0.006, "ак": 0.006, "ом": 0.006, "ми": 0.005,
	"ны": 0.005, "ви": 0.005, "де": 0.005, "ем": 0.005, "ич": 0.005,
}
