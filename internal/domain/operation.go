package domain

type SyncStatus string

const (
	SyncStatusIdle    SyncStatus = "idle"
	SyncStatusSyncing SyncStatus = "syncing"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusError   SyncStatus = "error"
)

type SyncMethod string

const (
	MethodFile SyncMethod = "file"
	MethodQR   SyncMethod = "qr"
	MethodPeer SyncMethod = "peer"
)

// SyncOperation is the bookkeeping record for one transfer. Mutated in
// place while in progress, immutable once Status reaches success or
// error.
type SyncOperation struct {
	ID                 string     `json:"id"`
	Method             SyncMethod `json:"method"`
	DeviceID           string     `json:"deviceId,omitempty"`
	Status             SyncStatus `json:"status"`
	StartTime          int64      `json:"startTime"`
	EndTime            int64      `json:"endTime,omitempty"`
	RecordsTransferred int        `json:"recordsTransferred"`
	TotalRecords       int        `json:"totalRecords,omitempty"`
	Error              string     `json:"error,omitempty"`
}

func (o *SyncOperation) Terminal() bool {
	return o.Status == SyncStatusSuccess || o.Status == SyncStatusError
}
