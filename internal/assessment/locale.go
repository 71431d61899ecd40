package assessment

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

var bengaliDigits = runes.Map(func(r rune) rune {
	if r >= '0' && r <= '9' {
		return '০' + (r - '0')
	}
	return r
})

// FormatDate renders t as d/m/yyyy, the short date of both bn-BD and en-GB.
// Locales whose base language is Bengali get Bengali digits.
func FormatDate(t time.Time, locale string) string {
	s := fmt.Sprintf("%d/%d/%d", t.Day(), int(t.Month()), t.Year())

	tag, err := language.Parse(locale)
	if err != nil {
		return s
	}
	if base, _ := tag.Base(); base.String() != "bn" {
		return s
	}
	out, _, err := transform.String(bengaliDigits, s)
	if err != nil {
		return s
	}
	return out
}
