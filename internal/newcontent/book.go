package newcontent

import (
	"fmt"

	"kandarr/internal/models"
)

// BookStrategy flags unread series entries and newer works by the same
// author
type BookStrategy struct{}

// Detect checks series position, sequel relations and same-author
// works, in that order
func (s *BookStrategy) Detect(ctx Context) Detection {
	if ctx.Data.Book == nil {
		return Detection{Debug: "no book details in enriched data"}
	}
	book := ctx.Data.Book

	if book.SeriesPosition > 0 && book.SeriesPosition < book.SeriesTotal {
		return Detection{
			HasNewContent: true,
			Status:        StatusReleased,
			Upcoming: &Upcoming{
				Title: fmt.Sprintf("%s (book %d of %d)", ctx.Data.Title, book.SeriesPosition+1, book.SeriesTotal),
				Kind:  KindBook,
			},
			Debug: fmt.Sprintf("series position %d of %d", book.SeriesPosition, book.SeriesTotal),
		}
	}

	for _, related := range ctx.Data.Related {
		if related.Relation == models.RelationSequel || related.Relation == models.RelationSeries {
			return Detection{
				HasNewContent: true,
				Status:        StatusReleased,
				Upcoming: &Upcoming{
					Title: related.Title,
					Kind:  KindBook,
					Year:  related.Year,
				},
				Debug: fmt.Sprintf("related %s entry %q", related.Relation, related.Title),
			}
		}
	}

	if ctx.Data.Year > 0 {
		for _, related := range ctx.Data.Related {
			if related.Relation != models.RelationBySameCreator {
				continue
			}
			if related.Year > ctx.Data.Year {
				return Detection{
					HasNewContent: true,
					Status:        StatusReleased,
					Upcoming: &Upcoming{
						Title: related.Title,
						Kind:  KindBook,
						Year:  related.Year,
					},
					Debug: fmt.Sprintf("newer work %q (%d) by %s", related.Title, related.Year, book.Author),
				}
			}
		}
	}

	return Detection{Debug: "no newer books found"}
}
