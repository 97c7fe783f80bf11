// Package truncate reduces source text to a token budget without
// splitting logical units. A token is a whitespace-delimited word; a
// section is a run of lines starting at a declaration-like line.
package truncate

import (
	"regexp"
	"strings"
)

// Fit returns text reduced to at most budget tokens, keeping whole
// sections in original order and, budget permitting, a line prefix of
// the first rejected section. If the text already fits it is returned
// reassembled and unchanged. When even the first line of an oversized
// leading section exceeds the budget, that single line is still
// returned, so output may exceed budget by one undividable unit.
func Fit(text string, sectionStart *regexp.Regexp, budget int) string {
	lines := strings.Split(text, "\n")
	sections := split(lines, sectionStart)

	total := 0
	for _, sec := range sections {
		total += tokens(sec)
	}
	if total <= budget {
		return strings.Join(lines, "\n")
	}

	var kept []string
	used := 0
	accepted := 0
	for _, sec := range sections {
		n := tokens(sec)
		if used+n > budget {
			break
		}
		kept = append(kept, sec...)
		used += n
		accepted++
	}

	// Take a line prefix of the first rejected section while each line
	// still fits the remaining budget.
	if accepted < len(sections) {
		remaining := budget - used
		for _, line := range sections[accepted] {
			n := len(strings.Fields(line))
			if remaining-n < 0 {
				break
			}
			kept = append(kept, line)
			remaining -= n
		}
	}

	// An oversized leading section whose first line alone blows the
	// budget would otherwise yield nothing.
	if len(kept) == 0 && len(sections) > 0 && len(sections[0]) > 0 {
		kept = append(kept, sections[0][0])
	}

	return strings.Join(kept, "\n")
}

// split partitions lines into sections, each starting at a line whose
// left-trimmed text matches sectionStart. Leading lines before the
// first match form the first section.
func split(lines []string, sectionStart *regexp.Regexp) [][]string {
	var sections [][]string
	var current []string

	for _, line := range lines {
		if sectionStart != nil && sectionStart.MatchString(strings.TrimLeft(line, " \t")) {
			if len(current) > 0 {
				sections = append(sections, current)
			}
			current = []string{line}
		} else {
			current = append(current, line)
		}
	}
	if len(current) > 0 {
		sections = append(sections, current)
	}
	return sections
}

func tokens(lines []string) int {
	return len(strings.Fields(strings.Join(lines, " ")))
}
