package newcontent

import (
	"fmt"

	"kandarr/internal/utils"
)

// TVStrategy flags new seasons for TV series and anime by comparing
// the highest "Season N" the user tracks in checklists against the
// provider's season count and any announced next season
type TVStrategy struct{}

// Detect compares tracked seasons against upstream seasons
func (s *TVStrategy) Detect(ctx Context) Detection {
	if ctx.Data.Show == nil {
		return Detection{Debug: "no show details in enriched data"}
	}

	tracked := highestTrackedSeason(ctx.Checklists)
	if tracked == 0 {
		return Detection{Debug: "no tracked seasons in checklists"}
	}

	if ctx.Data.Show.SeasonCount > tracked {
		next := tracked + 1
		return Detection{
			HasNewContent: true,
			Status:        StatusReleased,
			Upcoming: &Upcoming{
				Title: fmt.Sprintf("Season %d", next),
				Kind:  KindSeason,
			},
			Debug: fmt.Sprintf("provider reports %d seasons, %d tracked", ctx.Data.Show.SeasonCount, tracked),
		}
	}

	if ctx.Data.Show.NextSeasonNumber > tracked {
		return Detection{
			HasNewContent: true,
			Status:        StatusUpcoming,
			Upcoming: &Upcoming{
				Title: fmt.Sprintf("Season %d", ctx.Data.Show.NextSeasonNumber),
				Kind:  KindSeason,
			},
			Debug: fmt.Sprintf("season %d announced, %d tracked", ctx.Data.Show.NextSeasonNumber, tracked),
		}
	}

	return Detection{
		Debug: fmt.Sprintf("up to date: %d seasons upstream, %d tracked", ctx.Data.Show.SeasonCount, tracked),
	}
}

// highestTrackedSeason finds the largest season number named by any
// checklist
func highestTrackedSeason(checklists []string) int {
	highest := 0
	for _, name := range checklists {
		if season := utils.ExtractSeasonNumber(name); season > highest {
			highest = season
		}
	}
	return highest
}
