// Package language resolves a best-guess language for extracted lyrics. The
// page's own bracket tags are authoritative; statistical detection only runs
// when no tag applies.
package language

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
	"go.uber.org/zap"

	"github.com/lyricscout/lyricscout/internal/scrape"
)

// DefaultNames maps language codes to display names.
var DefaultNames = map[string]string{
	"en":  "English",
	"id":  "Indonesian",
	"ja":  "Japanese",
	"ko":  "Korean",
	"zh":  "Chinese",
	"ar":  "Arabic",
	"hi":  "Hindi",
	"ms":  "Malay",
	"jv":  "Javanese",
	"su":  "Sundanese",
	"ban": "Balinese",
	"min": "Minangkabau",
	"bug": "Buginese",
	"bjn": "Banjarese",
	"mad": "Madurese",
	"ace": "Acehnese",
	"bbc": "Batak Toba",
	"mak": "Makassarese",
}

// Romanized-lyric vocabulary. More than three whole-word hits marks the text
// as transliterated Korean or Japanese even when the detector reads it as a
// Latin-script language.
var (
	romanizedKorean = []string{
		"sarang", "haneul", "neoui", "gajima", "eonje", "geureon", "namja",
		"naneun", "neon", "hamkke", "saenggak", "geot", "chingu", "mianhae",
		"hajima", "jeongmal", "aegyo", "gwiyeowo",
	}
	romanizedJapanese = []string{
		"suki", "watashi", "anata", "mirai", "sekai", "hikari", "yume",
		"kokoro", "yoru", "namida", "kaze", "ashita", "gomen", "itai",
		"neko", "sugoi", "kawaii", "baka",
	}
)

const (
	// DetectedFromTag marks a result decided by a page annotation.
	DetectedFromTag = "korean/japanese"

	romanizedHitThreshold  = 3
	lowConfidenceThreshold = 0.5
	previewRunes           = 100
)

// Classifier implements the language-selection priority policy.
type Classifier struct {
	names  map[string]string
	logger *zap.Logger
}

// NewClassifier builds a Classifier with the given code→name table; nil
// selects the defaults.
func NewClassifier(names map[string]string, logger *zap.Logger) *Classifier {
	if names == nil {
		names = DefaultNames
	}
	return &Classifier{names: names, logger: logger}
}

// Classify resolves the language of text. sectionLabel is the lowercased
// bracket tag of the selected section, empty when no section applied;
// detectedFrom records which text span the decision was derived from.
func (c *Classifier) Classify(text, sectionLabel, detectedFrom string) scrape.Language {
	if lang, ok := c.tagOverride(sectionLabel, text); ok {
		return lang
	}
	lang := c.detect(text)
	lang.DetectedFrom = detectedFrom
	if c.logger != nil {
		c.logger.Debug("language detected",
			zap.String("code", lang.Code),
			zap.Float64("probability", lang.Probability),
			zap.String("from", detectedFrom),
			zap.String("preview", Preview(text)))
	}
	return lang
}

// tagOverride short-circuits detection when the page annotated the section
// itself. The annotation is authoritative, so confidence is maximal.
func (c *Classifier) tagOverride(sectionLabel, text string) (scrape.Language, bool) {
	var code string
	switch {
	case strings.Contains(sectionLabel, "korean"), strings.Contains(text, "[Korean:]"):
		code = "ko"
	case strings.Contains(sectionLabel, "japanese"), strings.Contains(text, "[Japanese:]"):
		code = "ja"
	default:
		return scrape.Language{}, false
	}
	return scrape.Language{
		Code:         code,
		Name:         c.displayName(code, ""),
		Probability:  1.0,
		DetectedFrom: DetectedFromTag,
	}, true
}

func (c *Classifier) detect(text string) scrape.Language {
	if strings.TrimSpace(text) == "" {
		return scrape.Language{Code: "unknown"}
	}
	info := whatlanggo.Detect(text)
	code := whatlanggo.LangToStringShort(info.Lang)
	if code == "" {
		code = whatlanggo.LangToString(info.Lang)
	}
	if code == "" {
		return scrape.Language{Code: "unknown"}
	}

	// Romanized lyrics read as Latin-script noise to the detector; the
	// vocabulary check recovers the actual language on weak guesses.
	if info.Script == unicode.Latin && (info.Confidence < lowConfidenceThreshold || (code != "ko" && code != "ja")) {
		if hit, romanizedCode := romanizedGuess(text); hit {
			return scrape.Language{
				Code:        romanizedCode,
				Name:        c.displayName(romanizedCode, ""),
				Probability: info.Confidence,
			}
		}
	}

	return scrape.Language{
		Code:        code,
		Name:        c.displayName(code, info.Lang.String()),
		Probability: info.Confidence,
	}
}

func (c *Classifier) displayName(code, fallback string) string {
	if name, ok := c.names[code]; ok {
		return name
	}
	if fallback != "" {
		return fallback
	}
	return code
}

func romanizedGuess(text string) (bool, string) {
	if countWholeWords(text, romanizedKorean) > romanizedHitThreshold {
		return true, "ko"
	}
	if countWholeWords(text, romanizedJapanese) > romanizedHitThreshold {
		return true, "ja"
	}
	return false, ""
}

func countWholeWords(text string, words []string) int {
	count := 0
	for _, word := range words {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
		count += len(re.FindAllStringIndex(text, -1))
	}
	return count
}

// Preview returns a short leading excerpt for logs. The classification
// decision always uses the full text.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + "..."
}
