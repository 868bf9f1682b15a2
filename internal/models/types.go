package models

// ContentType represents the category a card title resolves to
type ContentType string

const (
	ContentTypeTVSeries ContentType = "tv_series"
	ContentTypeMovie    ContentType = "movie"
	ContentTypeAnime    ContentType = "anime"
	ContentTypeBook     ContentType = "book"
	ContentTypeGame     ContentType = "game"
	ContentTypeMusic    ContentType = "music"
	ContentTypeUnknown  ContentType = "unknown"
)

// Category groups content types for the board UI
type Category string

const (
	CategoryEntertainment Category = "entertainment"
	CategoryLeisure       Category = "leisure"
	CategoryUnknown       Category = "unknown"
)

// CategoryFor maps a content type to its board category
func CategoryFor(ct ContentType) Category {
	switch ct {
	case ContentTypeTVSeries, ContentTypeMovie, ContentTypeAnime:
		return CategoryEntertainment
	case ContentTypeBook, ContentTypeGame, ContentTypeMusic:
		return CategoryLeisure
	default:
		return CategoryUnknown
	}
}

// Priority represents the urgency of an enrichment task
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Weight returns the numeric ordering of a priority (lower runs first)
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityNormal:
		return 1
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// Stronger returns the higher-urgency of two priorities
func (p Priority) Stronger(other Priority) Priority {
	if other.Weight() < p.Weight() {
		return other
	}
	return p
}

// TaskStatus represents the lifecycle state of an enrichment task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether a task in this status can no longer change
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// SignalKind categorizes a classification signal for conflict scoring.
// Kinds carry their own arbitration weight so the resolver never has to
// parse the human-readable note.
type SignalKind string

const (
	SignalURLMatch     SignalKind = "url_match"
	SignalChecklist    SignalKind = "checklist"
	SignalYearRange    SignalKind = "year_range"
	SignalKeyword      SignalKind = "keyword"
	SignalContext      SignalKind = "context"
	SignalListContext  SignalKind = "list_context"
	SignalYearSingle   SignalKind = "year_single"
	SignalAuthorPhrase SignalKind = "author_phrase"
)

// ArbitrationWeight returns the signal-quality weight used during
// conflict resolution (URL match > checklist > year-range > keyword >
// context > list-context).
func (k SignalKind) ArbitrationWeight() int {
	switch k {
	case SignalURLMatch:
		return 6
	case SignalChecklist:
		return 5
	case SignalYearRange:
		return 4
	case SignalKeyword, SignalAuthorPhrase:
		return 3
	case SignalContext, SignalYearSingle:
		return 2
	case SignalListContext:
		return 1
	default:
		return 0
	}
}

// RelationType describes how a related work connects to the enriched one
type RelationType string

const (
	RelationSequel        RelationType = "sequel"
	RelationPrequel       RelationType = "prequel"
	RelationSpinoff       RelationType = "spinoff"
	RelationSeries        RelationType = "series"
	RelationSimilar       RelationType = "similar"
	RelationBySameCreator RelationType = "by_same_creator"
)

// Severity grades a validation issue
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)
