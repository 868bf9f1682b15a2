package classify

import (
	"sort"

	"github.com/sirupsen/logrus"

	"kandarr/internal/models"
)

// Resolution methods, recorded on the result for audit
const (
	MethodOnlyValid         = "only_valid"
	MethodConfidenceGap     = "confidence_gap"
	MethodSpecificity       = "specificity"
	MethodSignalQuality     = "signal_quality"
	MethodWeightedVoting    = "weighted_voting"
	MethodHighestConfidence = "highest_confidence"
)

// ConflictClaim annotates a claim with the producing classifier's
// identity. Used only during arbitration, never persisted.
type ConflictClaim struct {
	Agent string
	Claim models.DetectionClaim
}

// ResolverConfig tunes the arbitration ladder
type ResolverConfig struct {
	MinValidConfidence int // claims below this are dropped first
	ConfidenceGap      int // gap at which higher confidence wins outright
	SignalGap          int // signal-quality gap at which the better-signaled claim wins

	// Specificity ranks content types for near-tie arbitration; higher
	// is more specific. Carried as data rather than a fixed ordering so
	// it can be tuned without code changes.
	Specificity map[models.ContentType]int
}

// DefaultResolverConfig returns the shipped arbitration tuning
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		MinValidConfidence: 20,
		ConfidenceGap:      15,
		SignalGap:          10,
		Specificity:        DefaultSpecificity(),
	}
}

// DefaultSpecificity ranks anime above TV series above movie above book
// above game above music
func DefaultSpecificity() map[models.ContentType]int {
	return map[models.ContentType]int{
		models.ContentTypeAnime:    6,
		models.ContentTypeTVSeries: 5,
		models.ContentTypeMovie:    4,
		models.ContentTypeBook:     3,
		models.ContentTypeGame:     2,
		models.ContentTypeMusic:    1,
	}
}

// Resolver arbitrates between close classification claims with a
// deterministic ladder. It never fails: every non-empty claim set
// produces a winner and the method that chose it.
type Resolver struct {
	cfg    ResolverConfig
	logger *logrus.Logger
}

// NewResolver creates a conflict resolver
func NewResolver(cfg ResolverConfig, logger *logrus.Logger) *Resolver {
	if cfg.Specificity == nil {
		cfg.Specificity = DefaultSpecificity()
	}
	return &Resolver{cfg: cfg, logger: logger}
}

// Resolve picks a winner from a non-empty claim set. The ladder:
// validity filter, lone survivor, confidence gap, specificity ranking,
// signal quality, weighted voting, highest-confidence fallback.
func (r *Resolver) Resolve(claims []ConflictClaim) (ConflictClaim, string) {
	valid := make([]ConflictClaim, 0, len(claims))
	for _, claim := range claims {
		if claim.Claim.Confidence >= r.cfg.MinValidConfidence {
			valid = append(valid, claim)
		}
	}
	if len(valid) == 0 {
		// Nothing cleared the validity bar; fall back rather than fail.
		valid = claims
	}

	r.sortClaims(valid)

	if len(valid) == 1 {
		return valid[0], MethodOnlyValid
	}

	top, second := valid[0], valid[1]

	if top.Claim.Confidence-second.Claim.Confidence >= r.cfg.ConfidenceGap {
		return top, MethodConfidenceGap
	}

	if winner, ok := r.bySpecificity(top, second); ok {
		return winner, MethodSpecificity
	}

	if winner, ok := r.bySignalQuality(top, second); ok {
		return winner, MethodSignalQuality
	}

	if winner, ok := r.byVoting(valid); ok {
		return winner, MethodWeightedVoting
	}

	return valid[0], MethodHighestConfidence
}

// sortClaims orders claims deterministically: confidence, then
// specificity, then content type name
func (r *Resolver) sortClaims(claims []ConflictClaim) {
	sort.SliceStable(claims, func(i, j int) bool {
		a, b := claims[i].Claim, claims[j].Claim
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		sa, sb := r.cfg.Specificity[a.ContentType], r.cfg.Specificity[b.ContentType]
		if sa != sb {
			return sa > sb
		}
		return a.ContentType < b.ContentType
	})
}

func (r *Resolver) bySpecificity(top, second ConflictClaim) (ConflictClaim, bool) {
	st := r.cfg.Specificity[top.Claim.ContentType]
	ss := r.cfg.Specificity[second.Claim.ContentType]
	if st == ss {
		return ConflictClaim{}, false
	}
	if ss > st {
		return second, true
	}
	return top, true
}

func (r *Resolver) bySignalQuality(top, second ConflictClaim) (ConflictClaim, bool) {
	st := signalQuality(top.Claim)
	ss := signalQuality(second.Claim)
	gap := st - ss
	if gap < 0 {
		gap = -gap
	}
	if gap <= r.cfg.SignalGap {
		return ConflictClaim{}, false
	}
	if ss > st {
		return second, true
	}
	return top, true
}

// byVoting has every claim vote for the strongest claim other than
// itself, where strength is a weighted sum of confidence, specificity
// and signal quality. Most votes wins; a tie falls through to the
// highest-confidence fallback.
func (r *Resolver) byVoting(claims []ConflictClaim) (ConflictClaim, bool) {
	votes := make([]int, len(claims))

	for voter := range claims {
		bestIdx := -1
		bestScore := -1
		for candidate := range claims {
			if candidate == voter {
				continue
			}
			score := r.votingScore(claims[candidate].Claim)
			if score > bestScore {
				bestScore = score
				bestIdx = candidate
			}
		}
		if bestIdx >= 0 {
			votes[bestIdx]++
		}
	}

	winner, most, tied := -1, -1, false
	for i, count := range votes {
		switch {
		case count > most:
			winner, most, tied = i, count, false
		case count == most:
			tied = true
		}
	}

	if winner < 0 || tied {
		return ConflictClaim{}, false
	}

	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{
			"winner": claims[winner].Claim.ContentType,
			"votes":  most,
		}).Debug("Conflict resolved by weighted voting")
	}
	return claims[winner], true
}

func (r *Resolver) votingScore(claim models.DetectionClaim) int {
	return claim.Confidence + r.cfg.Specificity[claim.ContentType]*10 + signalQuality(claim)
}

// signalQuality sums the arbitration weights of a claim's signals
func signalQuality(claim models.DetectionClaim) int {
	total := 0
	for _, signal := range claim.Signals {
		total += signal.Kind.ArbitrationWeight()
	}
	return total
}
