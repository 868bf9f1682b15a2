package classify

import (
	"testing"

	"github.com/sirupsen/logrus"

	"kandarr/internal/models"
)

func testResolver() *Resolver {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewResolver(DefaultResolverConfig(), logger)
}

func claim(contentType models.ContentType, confidence int, signals ...models.SignalKind) ConflictClaim {
	c := models.DetectionClaim{
		ContentType: contentType,
		Confidence:  confidence,
	}
	for _, kind := range signals {
		c.Signals = append(c.Signals, models.Signal{Kind: kind, Score: 10})
	}
	return ConflictClaim{
		Agent: string(contentType) + "_classifier",
		Claim: c,
	}
}

func TestResolveLoneSurvivor(t *testing.T) {
	resolver := testResolver()

	winner, method := resolver.Resolve([]ConflictClaim{
		claim(models.ContentTypeMovie, 55),
		claim(models.ContentTypeGame, 10),
		claim(models.ContentTypeBook, 5),
	})

	if winner.Claim.ContentType != models.ContentTypeMovie {
		t.Errorf("Expected movie to survive the validity filter, got %s", winner.Claim.ContentType)
	}
	if method != MethodOnlyValid {
		t.Errorf("Expected method %s, got %s", MethodOnlyValid, method)
	}
}

func TestResolveConfidenceGap(t *testing.T) {
	resolver := testResolver()

	winner, method := resolver.Resolve([]ConflictClaim{
		claim(models.ContentTypeMovie, 80),
		claim(models.ContentTypeBook, 60),
	})

	if winner.Claim.ContentType != models.ContentTypeMovie {
		t.Errorf("Expected movie to win on confidence gap, got %s", winner.Claim.ContentType)
	}
	if method != MethodConfidenceGap {
		t.Errorf("Expected method %s, got %s", MethodConfidenceGap, method)
	}
}

func TestResolveSpecificity(t *testing.T) {
	resolver := testResolver()

	// anime and movie within the confidence gap; the more specific type
	// should win even from second place
	winner, method := resolver.Resolve([]ConflictClaim{
		claim(models.ContentTypeMovie, 55),
		claim(models.ContentTypeAnime, 50),
	})

	if winner.Claim.ContentType != models.ContentTypeAnime {
		t.Errorf("Expected anime to win on specificity, got %s", winner.Claim.ContentType)
	}
	if method != MethodSpecificity {
		t.Errorf("Expected method %s, got %s", MethodSpecificity, method)
	}
}

func TestResolveSignalQuality(t *testing.T) {
	cfg := DefaultResolverConfig()
	cfg.Specificity = map[models.ContentType]int{
		models.ContentTypeTVSeries: 3,
		models.ContentTypeMovie:    3,
	}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	resolver := NewResolver(cfg, logger)

	strong := claim(models.ContentTypeTVSeries, 50,
		models.SignalURLMatch, models.SignalChecklist, models.SignalYearRange)
	weak := claim(models.ContentTypeMovie, 55, models.SignalListContext)

	winner, method := resolver.Resolve([]ConflictClaim{weak, strong})

	if winner.Claim.ContentType != models.ContentTypeTVSeries {
		t.Errorf("Expected the better-signaled claim to win, got %s", winner.Claim.ContentType)
	}
	if method != MethodSignalQuality {
		t.Errorf("Expected method %s, got %s", MethodSignalQuality, method)
	}
}

func TestResolveDeterministicOrder(t *testing.T) {
	resolver := testResolver()

	claims := []ConflictClaim{
		claim(models.ContentTypeMovie, 55),
		claim(models.ContentTypeTVSeries, 50, models.SignalURLMatch),
		claim(models.ContentTypeBook, 48),
	}
	reversed := []ConflictClaim{claims[2], claims[1], claims[0]}

	winnerA, methodA := resolver.Resolve(claims)
	winnerB, methodB := resolver.Resolve(reversed)

	if winnerA.Claim.ContentType != winnerB.Claim.ContentType {
		t.Errorf("Expected the same winner regardless of input order, got %s and %s",
			winnerA.Claim.ContentType, winnerB.Claim.ContentType)
	}
	if methodA != methodB {
		t.Errorf("Expected the same method regardless of input order, got %s and %s", methodA, methodB)
	}
}

func TestResolveNothingValidFallsBack(t *testing.T) {
	resolver := testResolver()

	winner, _ := resolver.Resolve([]ConflictClaim{
		claim(models.ContentTypeBook, 18),
		claim(models.ContentTypeGame, 4),
	})

	if winner.Claim.ContentType != models.ContentTypeBook {
		t.Errorf("Expected a winner even with nothing above the validity bar, got %s", winner.Claim.ContentType)
	}
}
