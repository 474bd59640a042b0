package service

import (
	"sync"
	"time"

	"scout-sync-server/internal/domain"

	"github.com/google/uuid"
)

// OperationService keeps a capped in-memory ring of recent transfers so
// the UI can show sync history. Oldest operations fall off the end.
type OperationService struct {
	mu       sync.Mutex
	ops      []*domain.SyncOperation
	capacity int
	now      func() int64
}

func NewOperationService(capacity int) *OperationService {
	if capacity <= 0 {
		capacity = 50
	}
	return &OperationService{
		capacity: capacity,
		now:      func() int64 { return time.Now().UnixMilli() },
	}
}

func (s *OperationService) Begin(method domain.SyncMethod, deviceID string, total int) *domain.SyncOperation {
	s.mu.Lock()
	defer s.mu.Unlock()

	op := &domain.SyncOperation{
		ID:           uuid.New().String(),
		Method:       method,
		DeviceID:     deviceID,
		Status:       domain.SyncStatusSyncing,
		StartTime:    s.now(),
		TotalRecords: total,
	}

	s.ops = append(s.ops, op)
	if len(s.ops) > s.capacity {
		s.ops = s.ops[len(s.ops)-s.capacity:]
	}

	return op
}

func (s *OperationService) Complete(id string, transferred int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op := s.findLocked(id)
	if op == nil || op.Terminal() {
		return
	}
	op.Status = domain.SyncStatusSuccess
	op.EndTime = s.now()
	op.RecordsTransferred = transferred
}

func (s *OperationService) Fail(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op := s.findLocked(id)
	if op == nil || op.Terminal() {
		return
	}
	op.Status = domain.SyncStatusError
	op.EndTime = s.now()
	op.Error = err.Error()
}

// Get returns a copy of one operation, or nil if it aged out.
func (s *OperationService) Get(id string) *domain.SyncOperation {
	s.mu.Lock()
	defer s.mu.Unlock()

	op := s.findLocked(id)
	if op == nil {
		return nil
	}
	copied := *op
	return &copied
}

// List returns the history, most recent first.
func (s *OperationService) List() []*domain.SyncOperation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.SyncOperation, 0, len(s.ops))
	for i := len(s.ops) - 1; i >= 0; i-- {
		copied := *s.ops[i]
		out = append(out, &copied)
	}
	return out
}

func (s *OperationService) findLocked(id string) *domain.SyncOperation {
	for _, op := range s.ops {
		if op.ID == id {
			return op
		}
	}
	return nil
}
