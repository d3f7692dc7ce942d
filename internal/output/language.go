package output

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"
)

// minDetectRunes is the shortest text worth running detection on. Single
// words are too ambiguous and would flip the voice on every keystroke.
const minDetectRunes = 16

// LanguageDetector tags speech with a language.
type LanguageDetector interface {
	// Detect returns a lower-case ISO 639-1 code.
	Detect(text string) (string, bool)
}

type linguaDetector struct {
	detector lingua.LanguageDetector
}

// NewLinguaDetector builds a detector restricted to the given ISO 639-1
// codes. At least two languages are required.
func NewLinguaDetector(codes []string) (LanguageDetector, error) {
	if len(codes) < 2 {
		return nil, fmt.Errorf("language detection needs at least 2 languages, got %d", len(codes))
	}
	langs := make([]lingua.Language, 0, len(codes))
	for _, c := range codes {
		iso := lingua.GetIsoCode639_1FromValue(strings.ToUpper(strings.TrimSpace(c)))
		if iso == lingua.UnknownIsoCode639_1 {
			return nil, fmt.Errorf("unknown language code %q", c)
		}
		langs = append(langs, lingua.GetLanguageFromIsoCode639_1(iso))
	}
	d := lingua.NewLanguageDetectorBuilder().
		FromLanguages(langs...).
		Build()
	return &linguaDetector{detector: d}, nil
}

// Detect implements LanguageDetector.
func (l *linguaDetector) Detect(text string) (string, bool) {
	lang, ok := l.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

// detectable reports whether text is long enough to classify.
func detectable(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= minDetectRunes
}
