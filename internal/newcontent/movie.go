package newcontent

import (
	"fmt"
	"time"

	"kandarr/internal/models"
)

// MovieStrategy flags the next franchise entry for movies that belong
// to a franchise with a known position. Standalone movies never flag.
type MovieStrategy struct{}

// Detect finds the next franchise entry by release year
func (s *MovieStrategy) Detect(ctx Context) Detection {
	if ctx.Data.Movie == nil {
		return Detection{Debug: "no movie details in enriched data"}
	}
	if ctx.Data.Movie.FranchisePosition == 0 {
		return Detection{Debug: "movie is not part of a franchise"}
	}
	if ctx.Data.Year == 0 {
		return Detection{Debug: "movie has no release year to compare against"}
	}

	var next *models.RelatedContent
	for i := range ctx.Data.Related {
		related := &ctx.Data.Related[i]
		if related.Relation != models.RelationSequel && related.Relation != models.RelationSeries {
			continue
		}
		if related.Year <= ctx.Data.Year {
			continue
		}
		if next == nil || related.Year < next.Year {
			next = related
		}
	}

	if next == nil {
		return Detection{Debug: "no later franchise entry found"}
	}

	status := StatusReleased
	if next.Year > time.Now().Year() {
		status = StatusUpcoming
	}
	return Detection{
		HasNewContent: true,
		Status:        status,
		Upcoming: &Upcoming{
			Title: next.Title,
			Kind:  KindSequel,
			Year:  next.Year,
		},
		Debug: fmt.Sprintf("franchise entry %q (%d) follows %d", next.Title, next.Year, ctx.Data.Year),
	}
}
