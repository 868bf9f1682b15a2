package models

// TextBundle is everything about a board card a classifier may inspect
type TextBundle struct {
	Title          string
	Description    string
	ListContext    string   // name of the list/column the card sits in
	URLs           []string // links attached to the card
	ChecklistNames []string // names of the card's checklists
}

// Signal is one scored reason behind a classification claim
type Signal struct {
	Kind   SignalKind
	Score  int    // points this signal contributed
	Detail string // human-readable reason, for audit only
}

// ExtractedMeta holds metadata a classifier pulled out of the bundle text
type ExtractedMeta struct {
	Title   string
	Year    int // 0 when absent
	YearEnd int // end of a year range, 0 for single years
	Author  string
}

// DetectionClaim is one classifier's scored opinion about a text bundle.
// Confidence is always clamped to [0,100]. Claims are immutable once
// returned.
type DetectionClaim struct {
	ContentType ContentType
	Confidence  int
	Signals     []Signal
	Meta        ExtractedMeta
}

// ClampConfidence bounds a raw additive score to the valid [0,100] range
func ClampConfidence(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// DetectionResult is the orchestrator's verdict for one text bundle.
// Transient: recomputed per request, never persisted.
type DetectionResult struct {
	ContentType ContentType
	Category    Category
	Confidence  int
	Signals     []Signal
	Meta        ExtractedMeta
	Ranked      []DetectionClaim // all claims, best first, for audit
	Method      string           // how the winner was chosen ("top_confidence", or a resolver step)
}
