package services

import (
	"github.com/agnivade/levenshtein"

	"kandarr/internal/utils"
)

// MatchDistance scores how far a candidate title is from the query,
// case- and accent-insensitive. 0 is an exact match.
func MatchDistance(query, candidate string) int {
	return levenshtein.ComputeDistance(utils.NormalizeTitle(query), utils.NormalizeTitle(candidate))
}

// AcceptableDistance reports whether a candidate is close enough to the
// query to be trusted as the search's best match. Short titles must
// match nearly exactly; longer ones tolerate proportionally more noise.
func AcceptableDistance(query string, distance int) bool {
	limit := len(utils.NormalizeTitle(query)) / 4
	if limit < 2 {
		limit = 2
	}
	return distance <= limit
}
