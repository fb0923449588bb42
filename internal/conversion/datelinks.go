package conversion

import (
	"fmt"
	"regexp"
	"time"
)

// DateLinkerConfig holds configuration for date linking in narration HTML.
type DateLinkerConfig struct {
	// Enabled controls whether date linking is active.
	Enabled bool

	// FragmentPrefix is the URL fragment prefix for day views (e.g., "#/day/").
	FragmentPrefix string

	// MaxDatesPerMessage limits the number of dates processed per message.
	MaxDatesPerMessage int
}

// DateLinker processes narration HTML to detect calendar dates and convert
// them to day-view links.
type DateLinker struct {
	config DateLinkerConfig
}

// NewDateLinker creates a new DateLinker with the given configuration.
func NewDateLinker(config DateLinkerConfig) *DateLinker {
	if config.FragmentPrefix == "" {
		config.FragmentPrefix = "#/day/"
	}
	if config.MaxDatesPerMessage <= 0 {
		config.MaxDatesPerMessage = 50
	}
	return &DateLinker{config: config}
}

// isoDatePattern matches ISO dates (2026-09-14) in regular text. Word
// boundaries keep it from matching inside longer tokens like request ids.
var isoDatePattern = regexp.MustCompile(`(?:^|[\s>(])(\d{4}-\d{2}-\d{2})(?:[\s<.,;:)]|$)`)

// dateSkipTagPattern matches regions whose content must not be rewritten.
var dateSkipTagPattern = regexp.MustCompile(`(?s)<(code|pre|a)[^>]*>.*?</(?:code|pre|a)>`)

// LinkDates scans narration HTML for ISO dates and wraps each valid one in
// a day-view anchor. Dates inside code, pre, and anchor tags are left alone.
func (dl *DateLinker) LinkDates(html string) string {
	if !dl.config.Enabled || html == "" {
		return html
	}

	skipRegions := dl.findSkipRegions(html)

	matches := isoDatePattern.FindAllStringSubmatchIndex(html, -1)
	if len(matches) == 0 {
		return html
	}
	if len(matches) > dl.config.MaxDatesPerMessage {
		matches = matches[:dl.config.MaxDatesPerMessage]
	}

	// Process in reverse order to preserve indices.
	result := html
	for i := len(matches) - 1; i >= 0; i-- {
		match := matches[i]
		if len(match) < 4 {
			continue
		}

		dateStart, dateEnd := match[2], match[3]
		if dateStart < 0 || dateEnd < 0 {
			continue
		}
		if dl.isInSkipRegion(dateStart, dateEnd, skipRegions) {
			continue
		}

		date := html[dateStart:dateEnd]
		if !isValidDate(date) {
			continue
		}

		replacement := fmt.Sprintf(`<a href="%s%s" class="date-link">%s</a>`,
			dl.config.FragmentPrefix, date, date)
		result = result[:dateStart] + replacement + result[dateEnd:]
	}

	return result
}

// isValidDate rejects matches like 2026-13-40 that fit the pattern but are
// not real dates.
func isValidDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// findSkipRegions returns [start, end] pairs for code, pre, and anchor tags.
func (dl *DateLinker) findSkipRegions(html string) [][2]int {
	var regions [][2]int
	for _, match := range dateSkipTagPattern.FindAllStringIndex(html, -1) {
		regions = append(regions, [2]int{match[0], match[1]})
	}
	return regions
}

// isInSkipRegion checks if a position is inside any skip region.
func (dl *DateLinker) isInSkipRegion(start, end int, regions [][2]int) bool {
	for _, region := range regions {
		if start >= region[0] && end <= region[1] {
			return true
		}
	}
	return false
}
