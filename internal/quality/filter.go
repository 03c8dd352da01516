package quality

import (
	"strings"
	"unicode"
)

// Verdict classifies one transcribed utterance.
type Verdict int

const (
	Usable Verdict = iota
	TooShort
	Garbled
)

func (v Verdict) String() string {
	switch v {
	case Usable:
		return "usable"
	case TooShort:
		return "too_short"
	case Garbled:
		return "garbled"
	}
	return "unknown"
}

// Thresholds holds the tunable limits for the filter.
type Thresholds struct {
	MinChars            int
	MinMeaningfulTokens int
	// MaxGarbledRatio is the maximum tolerated fraction of characters outside
	// the allowed set (CJK, Latin letters, digits, common punctuation, space).
	MaxGarbledRatio float64
}

// DefaultThresholds returns the limits used in production.
func DefaultThresholds() Thresholds {
	return Thresholds{MinChars: 2, MinMeaningfulTokens: 1, MaxGarbledRatio: 0.3}
}

// Filter performs pure classification of transcribed text; it keeps no state.
type Filter struct {
	t Thresholds
}

func NewFilter(t Thresholds) *Filter {
	if t.MinChars <= 0 {
		t.MinChars = 2
	}
	if t.MinMeaningfulTokens <= 0 {
		t.MinMeaningfulTokens = 1
	}
	if t.MaxGarbledRatio <= 0 {
		t.MaxGarbledRatio = 0.3
	}
	return &Filter{t: t}
}

// fillers are transcription artifacts that carry no content in either language.
var fillers = map[string]bool{
	"uh": true, "um": true, "er": true, "ah": true, "hmm": true, "mm": true,
	"like": true, "you know": true,
	"嗯": true, "呃": true, "啊": true, "喔": true, "那個": true, "就是": true,
}

// Classify maps raw transcribed text to a Verdict. It never mutates anything.
func (f *Filter) Classify(text string) Verdict {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	if len(runes) < f.t.MinChars {
		return TooShort
	}

	if isPurePunctuation(runes) || isRepeatedRune(runes) || isFillerOnly(trimmed) {
		return Garbled
	}
	if disallowedRatio(runes) > f.t.MaxGarbledRatio {
		return Garbled
	}

	if meaningfulTokens(trimmed) < f.t.MinMeaningfulTokens {
		return TooShort
	}
	return Usable
}

// meaningfulTokens counts letter-script words and CJK ideographs, summed.
// "hello 世界" counts as 3: one word plus two ideographs.
func meaningfulTokens(s string) int {
	count := 0
	inWord := false
	for _, r := range s {
		if isCJK(r) {
			if inWord {
				count++
				inWord = false
			}
			count++
			continue
		}
		if unicode.IsLetter(r) {
			inWord = true
			continue
		}
		if inWord {
			count++
			inWord = false
		}
	}
	if inWord {
		count++
	}
	return count
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) || (r >= 0x3400 && r <= 0x4DBF)
}

func isPurePunctuation(runes []rune) bool {
	for _, r := range runes {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return len(runes) > 0
}

// isRepeatedRune reports whether the text is one character repeated 4+ times.
func isRepeatedRune(runes []rune) bool {
	if len(runes) < 4 {
		return false
	}
	first := runes[0]
	for _, r := range runes[1:] {
		if r != first {
			return false
		}
	}
	return true
}

func isFillerOnly(s string) bool {
	lower := strings.ToLower(s)
	if fillers[lower] {
		return true
	}
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if !fillers[w] {
			return false
		}
	}
	return true
}

func disallowedRatio(runes []rune) float64 {
	if len(runes) == 0 {
		return 0
	}
	bad := 0
	for _, r := range runes {
		if isAllowed(r) {
			continue
		}
		bad++
	}
	return float64(bad) / float64(len(runes))
}

func isAllowed(r rune) bool {
	switch {
	case isCJK(r):
		return true
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case unicode.IsDigit(r):
		return true
	case unicode.IsSpace(r):
		return true
	}
	switch r {
	case '.', ',', '!', '?', ';', ':', '\'', '"', '-', '(', ')',
		'。', '，', '！', '？', '；', '：', '、', '「', '」':
		return true
	}
	return false
}
