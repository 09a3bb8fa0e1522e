package caption

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type section int

const (
	sectionNone section = iota
	sectionCaption
	sectionMissing
)

// headerTransitions is checked in order; the first keyword found in a line wins.
var headerTransitions = []struct {
	keyword string
	next    section
}{
	{keyword: "REUTERS FORMATTED CAPTION", next: sectionCaption},
	{keyword: "MISSING INFORMATION", next: sectionMissing},
	{keyword: "CHANGES MADE", next: sectionNone},
	{keyword: "KEYWORDS", next: sectionNone},
}

func matchHeader(line string) (section, bool) {
	upper := strings.ToUpper(line)
	for _, transition := range headerTransitions {
		if strings.Contains(upper, transition.keyword) {
			return transition.next, true
		}
	}
	return sectionNone, false
}

// ParseResponse splits a formatter reply into caption text and missing-information items.
// It never fails: text without recognised headings yields an empty ParsedCaption.
func ParseResponse(raw string) ParsedCaption {
	current := sectionNone
	captionLines := make([]string, 0)
	missing := make([]string, 0)

	for _, rawLine := range strings.Split(strings.TrimSpace(raw), "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		if next, ok := matchHeader(line); ok {
			current = next
			continue
		}

		switch current {
		case sectionCaption:
			captionLines = append(captionLines, line)
		case sectionMissing:
			if item, ok := missingItem(line); ok {
				missing = append(missing, item)
			}
		}
	}

	return ParsedCaption{
		FormattedCaption:   strings.Join(captionLines, "\n"),
		MissingInformation: missing,
	}
}

// missingItem extracts the text of a "- item" or "N. item" line.
// A numbered line only needs a leading digit and a "." somewhere, so
// "3.5 million displaced" yields "5 million displaced". The leading digit
// must be a decimal digit (unicode.IsDigit, category Nd). That is narrower
// than a numeric-character test: superscripts and other category No digits
// do not count, so "². x" is dropped while "٣. x" is kept.
func missingItem(line string) (string, bool) {
	if strings.HasPrefix(line, "-") {
		return strings.TrimSpace(line[1:]), true
	}

	first, _ := utf8.DecodeRuneInString(line)
	if unicode.IsDigit(first) {
		if _, after, found := strings.Cut(line, "."); found {
			return strings.TrimSpace(after), true
		}
	}
	return "", false
}
