package domain

type ConflictType string

const (
	ConflictCorrectedVsUncorrected ConflictType = "corrected-vs-uncorrected"
	ConflictCorrectedVsCorrected   ConflictType = "corrected-vs-corrected"
	// ConflictDuplicateCapture marks synthetic conflicts produced when a
	// batch-review bucket is escalated to one-by-one review.
	ConflictDuplicateCapture ConflictType = "duplicate-capture"
)

type ResolutionAction string

const (
	ResolutionReplace ResolutionAction = "replace"
	ResolutionSkip    ResolutionAction = "skip"
)

type BatchReviewDecision string

const (
	BatchReplaceAll BatchReviewDecision = "replace-all"
	BatchSkipAll    BatchReviewDecision = "skip-all"
	BatchReviewEach BatchReviewDecision = "review-each"
)

// ConflictKey identifies one logical conflict within a review session.
// A struct rather than a joined string so that delimiter characters
// inside field values cannot collide.
type ConflictKey struct {
	MatchKey   string `json:"matchKey"`
	TeamNumber int    `json:"teamNumber"`
	EventKey   string `json:"eventKey"`
}

func KeyFor(e *Entry) ConflictKey {
	return ConflictKey{
		MatchKey:   e.MatchKey,
		TeamNumber: e.TeamNumber,
		EventKey:   e.EventKey,
	}
}

type FieldChange struct {
	Field         string      `json:"field"`
	LocalValue    interface{} `json:"localValue"`
	IncomingValue interface{} `json:"incomingValue"`
}

// ConflictInfo pairs an incoming entry with its local counterpart for
// human arbitration. Created by the classifier, consumed by the
// resolution workflow, never persisted.
type ConflictInfo struct {
	Incoming        *Entry        `json:"incoming"`
	Local           *Entry        `json:"local"`
	ConflictType    ConflictType  `json:"conflictType"`
	IsNewerIncoming bool          `json:"isNewerIncoming"`
	ChangedFields   []FieldChange `json:"changedFields"`
}

// ClassificationResult partitions an incoming batch. Entries recognized
// as already synced are discarded and appear in no bucket.
type ClassificationResult struct {
	AutoImport  []*Entry       `json:"autoImport"`
	AutoReplace []ConflictPair `json:"autoReplace"`
	BatchReview []*Entry       `json:"batchReview"`
	Conflicts   []ConflictInfo `json:"conflicts"`
}

// ConflictPair carries the local entry alongside the incoming one for
// the auto-replace path, which deletes the local id before inserting.
type ConflictPair struct {
	Incoming *Entry `json:"incoming"`
	Local    *Entry `json:"local"`
}

type ResolveRequest struct {
	Action ResolutionAction `json:"action" validate:"required,oneof=replace skip"`
}

type ReviewBatchRequest struct {
	Decision BatchReviewDecision `json:"decision" validate:"required,oneof=replace-all skip-all review-each"`
}

// SessionState is the progress snapshot returned to the UI while a
// review session is open.
type SessionState struct {
	ID           string        `json:"id"`
	DeviceID     string        `json:"deviceId"`
	Total        int           `json:"total"`
	CurrentIndex int           `json:"currentIndex"`
	Remaining    int           `json:"remaining"`
	Current      *ConflictInfo `json:"current,omitempty"`
	BatchReview  []*Entry      `json:"batchReviewEntries,omitempty"`
	Done         bool          `json:"done"`
}
