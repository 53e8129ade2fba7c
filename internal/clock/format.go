package clock

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// supportedLocales lists the notification locales in preference order.
// The first entry is the fallback for unmatched tags.
var supportedLocales = []language.Tag{
	language.English,
	language.BrazilianPortuguese,
}

var localeMatcher = language.NewMatcher(supportedLocales)

var ptMonths = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// MatchLocale returns the supported locale closest to tag.
func MatchLocale(tag language.Tag) language.Tag {
	_, idx, _ := localeMatcher.Match(tag)
	return supportedLocales[idx]
}

// ParseLocale parses a BCP 47 string and matches it against the supported
// locales. Unparseable input falls back to English.
func ParseLocale(s string) language.Tag {
	tag, err := language.Parse(s)
	if err != nil {
		return language.English
	}
	return MatchLocale(tag)
}

// FormatBookingDate renders a slot for humans, in loc and in the locale that
// best matches tag.
//
//	en:    "March 5 at 8:00"
//	pt-BR: "dia 05 de março, às 8:00h"
func FormatBookingDate(t time.Time, loc *time.Location, tag language.Tag) string {
	lt := t.In(orUTC(loc))
	switch MatchLocale(tag) {
	case language.BrazilianPortuguese:
		return fmt.Sprintf("dia %02d de %s, às %d:%02dh",
			lt.Day(), ptMonths[lt.Month()-1], lt.Hour(), lt.Minute())
	default:
		return fmt.Sprintf("%s %d at %d:%02d",
			lt.Month().String(), lt.Day(), lt.Hour(), lt.Minute())
	}
}
