package utils

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var normalizer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeTitle lowercases a title and strips diacritics and extra
// whitespace so classifier and provider matching is accent-insensitive
func NormalizeTitle(title string) string {
	stripped, _, err := transform.String(normalizer, title)
	if err != nil {
		stripped = title
	}
	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}

var (
	yearRegex      = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	yearRangeRegex = regexp.MustCompile(`\b(19\d{2}|20\d{2})\s*[-–]\s*(19\d{2}|20\d{2})\b`)
	seasonRegex    = regexp.MustCompile(`(?i)\bseason\s+(\d{1,3})\b|\bs(\d{1,3})\b`)
	episodeRegex   = regexp.MustCompile(`(?i)\bs(\d{1,2})\s*e(\d{1,3})\b|\bepisode\s+(\d{1,4})\b`)
	authorRegex    = regexp.MustCompile(`(?i)\b(?:by|author[:\s])\s*([A-ZÀ-Þ][\p{L}.-]+(?:\s+[A-ZÀ-Þ][\p{L}.-]+){1,3})`)
)

// ExtractYear extracts the first 4-digit year from a text
// Returns 0 if no year is found
func ExtractYear(text string) int {
	matches := yearRegex.FindStringSubmatch(text)
	if len(matches) > 1 {
		year, err := strconv.Atoi(matches[1])
		if err == nil {
			return year
		}
	}
	return 0
}

// ExtractYearRange extracts a "2008-2013" style range from a text.
// Returns (0, 0) when no range is present.
func ExtractYearRange(text string) (int, int) {
	matches := yearRangeRegex.FindStringSubmatch(text)
	if len(matches) > 2 {
		start, err1 := strconv.Atoi(matches[1])
		end, err2 := strconv.Atoi(matches[2])
		if err1 == nil && err2 == nil && end >= start {
			return start, end
		}
	}
	return 0, 0
}

// ExtractSeasonNumber extracts a season number from "Season 3" or "S03"
// patterns. Returns 0 when no season pattern is present.
func ExtractSeasonNumber(text string) int {
	matches := seasonRegex.FindStringSubmatch(text)
	if matches == nil {
		return 0
	}
	for _, group := range matches[1:] {
		if group == "" {
			continue
		}
		if n, err := strconv.Atoi(group); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

// HasEpisodePattern reports whether a text carries an episode marker
// like "S02E05" or "Episode 12"
func HasEpisodePattern(text string) bool {
	return episodeRegex.MatchString(text)
}

// ExtractAuthor extracts a name from an "by Jane Doe" / "author: Jane
// Doe" phrase. Returns "" when no author phrase is present.
func ExtractAuthor(text string) string {
	matches := authorRegex.FindStringSubmatch(text)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return ""
}

// StripYear removes year and year-range tokens plus surrounding
// brackets from a title before it is sent to a provider search
func StripYear(title string) string {
	cleaned := yearRangeRegex.ReplaceAllString(title, "")
	cleaned = yearRegex.ReplaceAllString(cleaned, "")
	cleaned = strings.NewReplacer("(", " ", ")", " ", "[", " ", "]", " ").Replace(cleaned)
	return strings.Join(strings.Fields(cleaned), " ")
}
