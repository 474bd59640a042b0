package domain

type Alliance string

const (
	AllianceRed  Alliance = "red"
	AllianceBlue Alliance = "blue"
)

// Entry is one scouting observation. The Data payload is opaque to the
// sync subsystem; only the identity fields and correction metadata
// participate in classification.
type Entry struct {
	ID         string `json:"id"`
	EventKey   string `json:"eventKey"`
	MatchKey   string `json:"matchKey"`
	TeamNumber int    `json:"teamNumber"`
	Alliance   string `json:"alliance"`

	Data      map[string]interface{} `json:"data"`
	Timestamp int64                  `json:"timestamp"`

	IsCorrected     bool   `json:"isCorrected"`
	CorrectionCount int    `json:"correctionCount,omitempty"`
	LastCorrectedAt int64  `json:"lastCorrectedAt,omitempty"`
	LastCorrectedBy string `json:"lastCorrectedBy,omitempty"`
	CorrectionNotes string `json:"correctionNotes,omitempty"`
}

// CorrectionTime returns the timestamp used when comparing two
// corrected entries. Falls back to the capture timestamp for entries
// that predate correction tracking.
func (e *Entry) CorrectionTime() int64 {
	if e.LastCorrectedAt != 0 {
		return e.LastCorrectedAt
	}
	return e.Timestamp
}

type MergeMode string

const (
	MergeModeAppend    MergeMode = "append"
	MergeModeOverwrite MergeMode = "overwrite"
	MergeModeSmart     MergeMode = "smart-merge"
)

// ImportPayload is the transfer envelope produced by file export, QR
// transfer, and peer transfer alike.
type ImportPayload struct {
	ExportedAt string   `json:"exportedAt,omitempty"`
	Version    string   `json:"version,omitempty"`
	Entries    []*Entry `json:"entries"`
}

type ExportPayload struct {
	ExportedAt string   `json:"exportedAt"`
	Version    string   `json:"version"`
	Entries    []*Entry `json:"entries"`
}

type UploadRequest struct {
	Mode    MergeMode      `json:"mode" validate:"required,oneof=append overwrite smart-merge"`
	Payload *ImportPayload `json:"payload" validate:"required"`
}

// UploadResult summarizes an upload: what was applied automatically and
// what still needs a human decision. SessionID is set only when
// conflicts or batch-review entries are pending.
type UploadResult struct {
	Mode            MergeMode      `json:"mode"`
	AutoAdded       int            `json:"autoAdded"`
	AutoReplaced    int            `json:"autoReplaced"`
	HasConflicts    bool           `json:"hasConflicts"`
	HasBatchReview  bool           `json:"hasBatchReview"`
	SessionID       string         `json:"sessionId,omitempty"`
	Conflicts       []ConflictInfo `json:"conflicts,omitempty"`
	BatchReviewList []*Entry       `json:"batchReviewEntries,omitempty"`
}
