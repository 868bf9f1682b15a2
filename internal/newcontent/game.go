package newcontent

import (
	"fmt"
	"time"

	"kandarr/internal/models"
)

// GameStrategy flags newer series entries as sequels and
// spinoff-typed related entries as DLC
type GameStrategy struct{}

// Detect checks sequels first, then DLC
func (s *GameStrategy) Detect(ctx Context) Detection {
	if ctx.Data.Game == nil {
		return Detection{Debug: "no game details in enriched data"}
	}

	if ctx.Data.Year > 0 {
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
		if next != nil {
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
				Debug: fmt.Sprintf("series entry %q (%d) follows %d", next.Title, next.Year, ctx.Data.Year),
			}
		}
	}

	for _, related := range ctx.Data.Related {
		if related.Relation != models.RelationSpinoff {
			continue
		}
		status := StatusReleased
		if related.Year > time.Now().Year() {
			status = StatusUpcoming
		}
		return Detection{
			HasNewContent: true,
			Status:        status,
			Upcoming: &Upcoming{
				Title: related.Title,
				Kind:  KindDLC,
				Year:  related.Year,
			},
			Debug: fmt.Sprintf("addition %q", related.Title),
		}
	}

	return Detection{Debug: "no newer series entries or additions found"}
}
