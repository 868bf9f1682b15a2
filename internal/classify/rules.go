package classify

import "kandarr/internal/models"

// DefaultRuleSets returns the shipped rule tables, one per content
// type. Priority breaks ranking ties between equal-confidence claims.
func DefaultRuleSets() []RuleSet {
	return []RuleSet{
		{
			Type:     models.ContentTypeTVSeries,
			Priority: 2,
			Strong: []string{
				"tv series", "tv show", "season \\d+", "series finale", "miniseries",
			},
			Context: []string{
				"episode", "episodes", "season", "pilot", "showrunner", "binge",
			},
			URLs: []URLPattern{
				{Pattern: "thetvdb.com", Weight: 45},
				{Pattern: "tvmaze.com", Weight: 45},
				{Pattern: "trakt.tv/shows", Weight: 40},
				{Pattern: "themoviedb.org/tv", Weight: 40},
				{Pattern: "imdb.com/title", Weight: 15},
				{Pattern: "netflix.com", Weight: 10},
			},
			ListScores: map[string]int{
				"tv": 20, "series": 20, "shows": 15, "watching": 10,
			},
		},
		{
			Type:     models.ContentTypeMovie,
			Priority: 3,
			Strong: []string{
				"movie", "film", "director's cut", "extended edition",
			},
			Context: []string{
				"cinema", "blu-ray", "bluray", "imax", "trilogy", "rewatch",
			},
			URLs: []URLPattern{
				{Pattern: "letterboxd.com", Weight: 50},
				{Pattern: "themoviedb.org/movie", Weight: 40},
				{Pattern: "rottentomatoes.com/m/", Weight: 35},
				{Pattern: "imdb.com/title", Weight: 15},
			},
			ListScores: map[string]int{
				"movies": 20, "films": 20, "cinema": 15, "to watch": 10,
			},
		},
		{
			Type:     models.ContentTypeAnime,
			Priority: 1,
			Strong: []string{
				"anime", "ova", "shounen", "shoujo", "seinen", "isekai",
			},
			Context: []string{
				"manga", "cour", "dub", "sub", "arc", "movie adaptation",
			},
			URLs: []URLPattern{
				{Pattern: "myanimelist.net", Weight: 50},
				{Pattern: "anilist.co", Weight: 50},
				{Pattern: "crunchyroll.com", Weight: 45},
				{Pattern: "kitsu.io", Weight: 40},
			},
			ListScores: map[string]int{
				"anime": 25, "watching": 10,
			},
		},
		{
			Type:     models.ContentTypeBook,
			Priority: 4,
			Strong: []string{
				"book", "novel", "memoir", "biography", "audiobook",
			},
			Context: []string{
				"read", "reading", "paperback", "hardcover", "chapter", "trilogy",
			},
			URLs: []URLPattern{
				{Pattern: "goodreads.com", Weight: 50},
				{Pattern: "openlibrary.org", Weight: 45},
				{Pattern: "audible.com", Weight: 35},
				{Pattern: "amazon.", Weight: 10},
			},
			ListScores: map[string]int{
				"books": 20, "reading": 20, "to read": 15, "library": 10,
			},
		},
		{
			Type:     models.ContentTypeGame,
			Priority: 5,
			Strong: []string{
				"game", "dlc", "expansion", "playthrough", "speedrun",
			},
			Context: []string{
				"ps5", "ps4", "xbox", "switch", "steam", "co-op", "campaign",
			},
			URLs: []URLPattern{
				{Pattern: "store.steampowered.com", Weight: 50},
				{Pattern: "rawg.io", Weight: 45},
				{Pattern: "gog.com", Weight: 45},
				{Pattern: "metacritic.com/game", Weight: 35},
				{Pattern: "howlongtobeat.com", Weight: 40},
			},
			ListScores: map[string]int{
				"games": 20, "gaming": 20, "backlog": 10, "to play": 15,
			},
		},
	}
}
