package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Language is a supported conversation language
type Language struct {
	Code string
	Name string
}

// SupportedLanguages is the fixed set offered in the language menu, in display order
var SupportedLanguages = []Language{
	{Code: "en", Name: "English"},
	{Code: "es", Name: "Spanish"},
	{Code: "ru", Name: "Russian"},
	{Code: "zh", Name: "Chinese"},
	{Code: "fr", Name: "French"},
	{Code: "ja", Name: "Japanese"},
	{Code: "fa", Name: "Farsi"},
	{Code: "de", Name: "German"},
	{Code: "tr", Name: "Turkish"},
}

// ParseLanguage normalizes a language tag ("EN", "en-US", "zh_Hans") to a supported base code
func ParseLanguage(code string) (Language, error) {
	code = strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
	if code == "" {
		return Language{}, fmt.Errorf("%w: empty code", ErrUnsupportedLanguage)
	}

	tag, err := language.Parse(code)
	if err != nil {
		return Language{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, code)
	}
	base, _ := tag.Base()

	for _, l := range SupportedLanguages {
		if l.Code == base.String() {
			return l, nil
		}
	}
	return Language{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, code)
}

// LanguageName returns the display name for a code, or the uppercased code when unknown
func LanguageName(code string) string {
	if l, err := ParseLanguage(code); err == nil {
		return l.Name
	}
	return strings.ToUpper(strings.TrimSpace(code))
}
