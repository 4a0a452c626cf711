// Package datefmt renders report dates for display in a configured locale.
package datefmt

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// DefaultLocale is used when no locale is configured.
const DefaultLocale = "en-IN"

// ErrUnknownLocale is returned for locale strings that are not BCP 47 tags.
var ErrUnknownLocale = errors.New("unknown locale")

type layouts struct {
	short string
	long  string
}

// Supported display locales, in matcher preference order. The first entry
// is the fallback for tags that match nothing.
var (
	supported = []language.Tag{
		language.MustParse("en-IN"),
		language.AmericanEnglish,
		language.BritishEnglish,
	}
	supportedLayouts = []layouts{
		{short: "2/1/2006", long: "Monday, 2 January 2006"},
		{short: "1/2/2006", long: "Monday, January 2, 2006"},
		{short: "02/01/2006", long: "Monday 2 January 2006"},
	}
	matcher = language.NewMatcher(supported)
)

// Formatter renders YYYY-MM-DD dates in one locale. It is immutable and safe
// for concurrent use.
type Formatter struct {
	tag    language.Tag
	layout layouts
}

// New returns a Formatter for locale, matched against the supported display
// locales. An empty locale selects DefaultLocale.
func New(locale string) (*Formatter, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrUnknownLocale, locale, err)
	}
	_, idx, _ := matcher.Match(tag)
	return &Formatter{tag: supported[idx], layout: supportedLayouts[idx]}, nil
}

// Must is like New but panics on error.
func Must(locale string) *Formatter {
	f, err := New(locale)
	if err != nil {
		panic(err)
	}
	return f
}

// Locale returns the matched locale tag.
func (f *Formatter) Locale() string { return f.tag.String() }

// Short renders an ISO calendar date in the locale's numeric form, for
// example 5/1/2024 in en-IN. Unparseable input is returned unchanged.
func (f *Formatter) Short(date string) string {
	t, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return date
	}
	return t.Format(f.layout.short)
}

// Long renders t with weekday and month names.
func (f *Formatter) Long(t time.Time) string {
	return t.Format(f.layout.long)
}
