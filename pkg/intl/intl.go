package intl

import (
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type SupportedLanguage struct {
	Code        string
	VerboseName string
	Tag         language.Tag
}

var (
	// allSupportedLanguages is the master list of languages with placeholder translations.
	allSupportedLanguages = []SupportedLanguage{
		{
			Code:        "en",
			VerboseName: "English",
			Tag:         language.English,
		},
		{
			Code:        "es",
			VerboseName: "Español",
			Tag:         language.Spanish,
		},
	}

	SupportedLanguages = allSupportedLanguages
)

// GetSupportedLanguages returns the supported languages filtered by whitelist.
// An empty whitelist returns all of them.
func GetSupportedLanguages(whitelist []string) []SupportedLanguage {
	if len(whitelist) == 0 {
		return allSupportedLanguages
	}
	whitelistMap := make(map[string]bool, len(whitelist))
	for _, code := range whitelist {
		whitelistMap[code] = true
	}
	filtered := make([]SupportedLanguage, 0, len(whitelist))
	for _, lang := range allSupportedLanguages {
		if whitelistMap[lang.Code] {
			filtered = append(filtered, lang)
		}
	}
	return filtered
}

// ParseLocale parses a BCP 47 tag, falling back to fallback on empty or
// malformed input.
func ParseLocale(v string, fallback language.Tag) language.Tag {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	tag, err := language.Parse(v)
	if err != nil {
		return fallback
	}
	return tag
}

// Sorter orders display strings the way a user of a locale expects
// (accents and case are secondary to the base letter).
//
// A Sorter is not safe for concurrent use.
type Sorter struct {
	c *collate.Collator
}

func NewSorter(tag language.Tag) *Sorter {
	return &Sorter{c: collate.New(tag)}
}

// Sorted returns a sorted copy of values.
func (s *Sorter) Sorted(values []string) []string {
	out := append([]string{}, values...)
	s.c.SortStrings(out)
	return out
}

func (s *Sorter) Compare(a, b string) int {
	return s.c.CompareString(a, b)
}
