package classify

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"kandarr/internal/models"
)

// DefaultThreshold is the confidence a winning claim must reach before
// the verdict is trusted
const DefaultThreshold = 25

// OrchestratorConfig tunes detection fan-out
type OrchestratorConfig struct {
	Threshold  int  // minimum winning confidence; below it the verdict is unknown
	Concurrent bool // run classifiers in parallel
}

// Orchestrator runs every enabled classifier against one text bundle,
// ranks the claims, and arbitrates near-ties through the resolver.
type Orchestrator struct {
	classifiers []*Classifier
	resolver    *Resolver
	cfg         OrchestratorConfig
	logger      *logrus.Logger
}

// NewOrchestrator creates a detection orchestrator
func NewOrchestrator(classifiers []*Classifier, resolver *Resolver, cfg OrchestratorConfig, logger *logrus.Logger) *Orchestrator {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	return &Orchestrator{
		classifiers: classifiers,
		resolver:    resolver,
		cfg:         cfg,
		logger:      logger,
	}
}

// NewDefaultOrchestrator builds an orchestrator from the shipped rule
// tables and resolver tuning
func NewDefaultOrchestrator(cfg OrchestratorConfig, logger *logrus.Logger) (*Orchestrator, error) {
	var classifiers []*Classifier
	for _, rules := range DefaultRuleSets() {
		classifier, err := NewClassifier(rules)
		if err != nil {
			return nil, err
		}
		classifiers = append(classifiers, classifier)
	}
	resolver := NewResolver(DefaultResolverConfig(), logger)
	return NewOrchestrator(classifiers, resolver, cfg, logger), nil
}

// Detect classifies a text bundle and returns the verdict plus the full
// ranked claim list for audit. Verdicts below the threshold come back
// as unknown with confidence 0 while still surfacing the ranking.
func (o *Orchestrator) Detect(bundle models.TextBundle) models.DetectionResult {
	claims := o.collect(bundle)
	o.rank(claims)

	result := models.DetectionResult{
		ContentType: models.ContentTypeUnknown,
		Category:    models.CategoryUnknown,
		Ranked:      claims,
	}
	if len(claims) == 0 {
		return result
	}

	winner := claims[0]
	method := "top_confidence"

	// Near-ties between the top two claims go through arbitration.
	if len(claims) > 1 && claims[0].Confidence-claims[1].Confidence < o.resolver.cfg.ConfidenceGap {
		conflicting := make([]ConflictClaim, 0, len(claims))
		for _, claim := range claims {
			conflicting = append(conflicting, ConflictClaim{
				Agent: string(claim.ContentType) + "_classifier",
				Claim: claim,
			})
		}
		resolved, resolvedMethod := o.resolver.Resolve(conflicting)
		winner = resolved.Claim
		method = resolvedMethod
	}

	if winner.Confidence < o.cfg.Threshold {
		o.logger.WithFields(logrus.Fields{
			"title":      bundle.Title,
			"best_type":  winner.ContentType,
			"confidence": winner.Confidence,
			"threshold":  o.cfg.Threshold,
		}).Debug("Detection below threshold, returning unknown")
		return result
	}

	result.ContentType = winner.ContentType
	result.Category = models.CategoryFor(winner.ContentType)
	result.Confidence = winner.Confidence
	result.Signals = winner.Signals
	result.Meta = winner.Meta
	result.Method = method

	o.logger.WithFields(logrus.Fields{
		"title":      bundle.Title,
		"type":       result.ContentType,
		"confidence": result.Confidence,
		"method":     method,
	}).Debug("Detection completed")

	return result
}

// collect runs every classifier, in parallel when configured
func (o *Orchestrator) collect(bundle models.TextBundle) []models.DetectionClaim {
	claims := make([]models.DetectionClaim, len(o.classifiers))

	if o.cfg.Concurrent {
		var wg sync.WaitGroup
		for i, classifier := range o.classifiers {
			wg.Add(1)
			go func(i int, classifier *Classifier) {
				defer wg.Done()
				claims[i] = classifier.Classify(bundle)
			}(i, classifier)
		}
		wg.Wait()
	} else {
		for i, classifier := range o.classifiers {
			claims[i] = classifier.Classify(bundle)
		}
	}

	return claims
}

// rank orders claims by confidence, then configured classifier
// priority, so the audit list is deterministic
func (o *Orchestrator) rank(claims []models.DetectionClaim) {
	priorities := make(map[models.ContentType]int, len(o.classifiers))
	for _, classifier := range o.classifiers {
		priorities[classifier.Type()] = classifier.Priority()
	}

	sort.SliceStable(claims, func(i, j int) bool {
		if claims[i].Confidence != claims[j].Confidence {
			return claims[i].Confidence > claims[j].Confidence
		}
		return priorities[claims[i].ContentType] < priorities[claims[j].ContentType]
	})
}
