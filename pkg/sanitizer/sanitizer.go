package sanitizer

import (
	"regexp"
	"strings"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reControlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	reMultiSpace   = regexp.MustCompile(`[ \t]+`)
	reMultiNewline = regexp.MustCompile(`\n{3,}`)
)

func trim(s string) string {
	return strings.TrimSpace(s)
}

func stripControlChars(s string) string {
	return reControlChars.ReplaceAllString(s, "")
}

func collapseSpaces(s string) string {
	return reMultiSpace.ReplaceAllString(s, " ")
}

func collapseNewlines(s string) string {
	return reMultiNewline.ReplaceAllString(s, "\n\n")
}

// SanitizeFreeText normalizes user-entered text such as a visit reason or
// consultation notes: control characters removed, runs of spaces and blank
// lines collapsed, surrounding whitespace trimmed.
func SanitizeFreeText(input string) string {
	p := Pipeline{
		stripControlChars,
		collapseSpaces,
		collapseNewlines,
		trim,
	}
	return p.Apply(input)
}
