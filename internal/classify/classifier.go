package classify

import (
	"fmt"
	"regexp"
	"strings"

	"kandarr/internal/models"
	"kandarr/internal/utils"
)

// Scoring contributions per signal category
const (
	strongPatternScore   = 30
	contextPatternScore  = 15
	urlScoreCap          = 60
	checklistSeasonScore = 20
)

// URLPattern pairs a URL substring with the score it contributes
type URLPattern struct {
	Pattern string
	Weight  int
}

// RuleSet is the declarative configuration one classifier is built
// from. The scoring algorithm itself lives in Classify and is shared by
// every content type.
type RuleSet struct {
	Type     models.ContentType
	Priority int // rank among equal-confidence claims, lower wins

	Strong     []string // word-boundary patterns worth +30
	Context    []string // weaker contextual patterns worth +15
	URLs       []URLPattern
	ListScores map[string]int // list/column-name token -> bonus
}

// Classifier scores a text bundle against one content type's rule set.
// Pure: no side effects beyond its static configuration.
type Classifier struct {
	rules   RuleSet
	strong  []*regexp.Regexp
	context []*regexp.Regexp
	enabled bool
}

// NewClassifier compiles a rule set into a classifier
func NewClassifier(rules RuleSet) (*Classifier, error) {
	c := &Classifier{rules: rules, enabled: true}

	for _, pattern := range rules.Strong {
		re, err := regexp.Compile(`(?i)\b(?:` + pattern + `)\b`)
		if err != nil {
			return nil, fmt.Errorf("invalid strong pattern %q for %s: %w", pattern, rules.Type, err)
		}
		c.strong = append(c.strong, re)
	}
	for _, pattern := range rules.Context {
		re, err := regexp.Compile(`(?i)\b(?:` + pattern + `)\b`)
		if err != nil {
			return nil, fmt.Errorf("invalid context pattern %q for %s: %w", pattern, rules.Type, err)
		}
		c.context = append(c.context, re)
	}

	return c, nil
}

// Type returns the content type this classifier argues for
func (c *Classifier) Type() models.ContentType {
	return c.rules.Type
}

// Priority returns the classifier's rank among equal-confidence claims
func (c *Classifier) Priority() int {
	return c.rules.Priority
}

// SetEnabled toggles the classifier. A disabled classifier always
// returns confidence 0.
func (c *Classifier) SetEnabled(enabled bool) {
	c.enabled = enabled
}

// Classify scores a text bundle and returns a confidence-scored claim.
// All boosts are additive and clamped to [0,100].
func (c *Classifier) Classify(bundle models.TextBundle) models.DetectionClaim {
	claim := models.DetectionClaim{
		ContentType: c.rules.Type,
		Meta:        extractMeta(bundle),
	}
	if !c.enabled {
		return claim
	}

	text := bundle.Title
	if bundle.Description != "" {
		text += " " + bundle.Description
	}

	score := 0

	for i, re := range c.strong {
		if re.MatchString(text) {
			score += strongPatternScore
			claim.Signals = append(claim.Signals, models.Signal{
				Kind:   models.SignalKeyword,
				Score:  strongPatternScore,
				Detail: fmt.Sprintf("keyword %q", c.rules.Strong[i]),
			})
		}
	}

	for i, re := range c.context {
		if re.MatchString(text) {
			score += contextPatternScore
			claim.Signals = append(claim.Signals, models.Signal{
				Kind:   models.SignalContext,
				Score:  contextPatternScore,
				Detail: fmt.Sprintf("context %q", c.rules.Context[i]),
			})
		}
	}

	score += c.scoreURLs(bundle.URLs, &claim)
	score += c.scoreListContext(bundle.ListContext, &claim)
	score += c.scoreChecklists(bundle.ChecklistNames, &claim)
	score += c.applyHeuristics(bundle, claim.Meta, &claim)

	claim.Confidence = models.ClampConfidence(score)
	return claim
}

// scoreURLs adds weighted URL-pattern matches, capped at 60 total
func (c *Classifier) scoreURLs(urls []string, claim *models.DetectionClaim) int {
	total := 0
	for _, rawURL := range urls {
		lowered := strings.ToLower(rawURL)
		for _, pattern := range c.rules.URLs {
			if !strings.Contains(lowered, pattern.Pattern) {
				continue
			}
			weight := pattern.Weight
			if total+weight > urlScoreCap {
				weight = urlScoreCap - total
			}
			if weight <= 0 {
				continue
			}
			total += weight
			claim.Signals = append(claim.Signals, models.Signal{
				Kind:   models.SignalURLMatch,
				Score:  weight,
				Detail: fmt.Sprintf("url matches %q", pattern.Pattern),
			})
		}
	}
	return total
}

// scoreListContext adds the bonus mapped to the card's list/column name
func (c *Classifier) scoreListContext(listContext string, claim *models.DetectionClaim) int {
	if listContext == "" {
		return 0
	}
	lowered := utils.NormalizeTitle(listContext)

	total := 0
	for token, bonus := range c.rules.ListScores {
		if strings.Contains(lowered, token) {
			total += bonus
			claim.Signals = append(claim.Signals, models.Signal{
				Kind:   models.SignalListContext,
				Score:  bonus,
				Detail: fmt.Sprintf("list %q", token),
			})
		}
	}
	return total
}

// scoreChecklists rewards season-numbered checklists for episodic types
func (c *Classifier) scoreChecklists(names []string, claim *models.DetectionClaim) int {
	if c.rules.Type != models.ContentTypeTVSeries && c.rules.Type != models.ContentTypeAnime {
		return 0
	}
	for _, name := range names {
		if season := utils.ExtractSeasonNumber(name); season > 0 {
			claim.Signals = append(claim.Signals, models.Signal{
				Kind:   models.SignalChecklist,
				Score:  checklistSeasonScore,
				Detail: fmt.Sprintf("checklist tracks season %d", season),
			})
			return checklistSeasonScore
		}
	}
	return 0
}

// applyHeuristics adds the free-form cross-type boosts: a single year
// favors movie over TV, a year-range favors TV/anime, an author phrase
// favors book, an episode marker favors episodic types.
func (c *Classifier) applyHeuristics(bundle models.TextBundle, meta models.ExtractedMeta, claim *models.DetectionClaim) int {
	text := bundle.Title
	if bundle.Description != "" {
		text += " " + bundle.Description
	}

	total := 0

	if meta.YearEnd > 0 {
		if c.rules.Type == models.ContentTypeTVSeries || c.rules.Type == models.ContentTypeAnime {
			total += 15
			claim.Signals = append(claim.Signals, models.Signal{
				Kind:   models.SignalYearRange,
				Score:  15,
				Detail: fmt.Sprintf("year range %d-%d", meta.Year, meta.YearEnd),
			})
		}
	} else if meta.Year > 0 && c.rules.Type == models.ContentTypeMovie {
		total += 10
		claim.Signals = append(claim.Signals, models.Signal{
			Kind:   models.SignalYearSingle,
			Score:  10,
			Detail: fmt.Sprintf("single year %d", meta.Year),
		})
	}

	if meta.Author != "" && c.rules.Type == models.ContentTypeBook {
		total += 25
		claim.Signals = append(claim.Signals, models.Signal{
			Kind:   models.SignalAuthorPhrase,
			Score:  25,
			Detail: fmt.Sprintf("author phrase %q", meta.Author),
		})
	}

	if utils.HasEpisodePattern(text) {
		boost := 0
		switch c.rules.Type {
		case models.ContentTypeTVSeries:
			boost = 25
		case models.ContentTypeAnime:
			boost = 15
		}
		if boost > 0 {
			total += boost
			claim.Signals = append(claim.Signals, models.Signal{
				Kind:   models.SignalKeyword,
				Score:  boost,
				Detail: "episode marker",
			})
		}
	}

	return total
}

// extractMeta pulls title, year(s) and author out of the bundle text
func extractMeta(bundle models.TextBundle) models.ExtractedMeta {
	meta := models.ExtractedMeta{
		Title: utils.StripYear(bundle.Title),
	}

	if start, end := utils.ExtractYearRange(bundle.Title); start > 0 {
		meta.Year = start
		meta.YearEnd = end
	} else {
		meta.Year = utils.ExtractYear(bundle.Title)
	}

	meta.Author = utils.ExtractAuthor(bundle.Title + " " + bundle.Description)
	if meta.Author != "" {
		meta.Title = strings.TrimSpace(strings.Split(meta.Title, " by ")[0])
	}

	return meta
}
