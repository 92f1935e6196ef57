package services

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

var (
	languageDetector     lingua.LanguageDetector
	languageDetectorOnce sync.Once
)

func DetectLanguage(content string) string {
	languageDetectorOnce.Do(func() {
		languageDetector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithLowAccuracyMode().
			Build()
	})

	if language, ok := languageDetector.DetectLanguageOf(content); ok {
		return strings.ToLower(language.IsoCode639_1().String())
	}
	return "unknown"
}
