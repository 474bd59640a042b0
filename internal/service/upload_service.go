package service

import (
	"log"

	"scout-sync-server/internal/domain"
	"scout-sync-server/internal/repository"
	"scout-sync-server/internal/websocket"
)

type UploadService struct {
	repo       repository.EntryRepository
	classifier *ClassifierService
	sessions   *SessionManager
	operations *OperationService
	wsManager  *websocket.Manager
}

func NewUploadService(
	repo repository.EntryRepository,
	classifier *ClassifierService,
	sessions *SessionManager,
	operations *OperationService,
	wsManager *websocket.Manager,
) *UploadService {
	return &UploadService{
		repo:       repo,
		classifier: classifier,
		sessions:   sessions,
		operations: operations,
		wsManager:  wsManager,
	}
}

// Upload accepts a transfer payload and merges it according to mode.
// Smart-merge applies the unambiguous buckets immediately and returns
// the pending human work with counts, so the UI can summarize partial
// progress before any decision is made.
func (s *UploadService) Upload(deviceID string, method domain.SyncMethod, req *domain.UploadRequest) (*domain.UploadResult, error) {
	if req == nil || req.Payload == nil || len(req.Payload.Entries) == 0 {
		return nil, ErrInvalidPayload
	}

	entries := req.Payload.Entries
	op := s.operations.Begin(method, deviceID, len(entries))

	result, err := s.merge(deviceID, req.Mode, entries)
	if err != nil {
		s.operations.Fail(op.ID, err)
		s.broadcastOperation(deviceID, op.ID)
		return nil, err
	}

	s.operations.Complete(op.ID, result.AutoAdded+result.AutoReplaced)
	s.broadcastOperation(deviceID, op.ID)
	s.broadcast(deviceID, result)

	return result, nil
}

func (s *UploadService) merge(deviceID string, mode domain.MergeMode, entries []*domain.Entry) (*domain.UploadResult, error) {
	switch mode {
	case domain.MergeModeOverwrite:
		if err := s.repo.ReplaceAll(entries); err != nil {
			return nil, err
		}
		return &domain.UploadResult{
			Mode:      mode,
			AutoAdded: len(entries),
		}, nil

	case domain.MergeModeAppend:
		// The escape hatch for "I trust the data, just merge it".
		// De-duplication by primary id is the store's upsert behavior.
		for _, e := range entries {
			if err := s.repo.Put(e); err != nil {
				return nil, err
			}
		}
		return &domain.UploadResult{
			Mode:      mode,
			AutoAdded: len(entries),
		}, nil

	case domain.MergeModeSmart:
		return s.smartMerge(deviceID, entries)

	default:
		return nil, ErrUnknownMergeMode
	}
}

func (s *UploadService) smartMerge(deviceID string, entries []*domain.Entry) (*domain.UploadResult, error) {
	classified, err := s.classifier.Classify(entries)
	if err != nil {
		return nil, err
	}

	for _, e := range classified.AutoImport {
		if err := s.repo.Put(e); err != nil {
			return nil, err
		}
	}

	for _, pair := range classified.AutoReplace {
		if err := s.repo.Delete(pair.Local.ID); err != nil {
			return nil, err
		}
		if err := s.repo.Put(pair.Incoming); err != nil {
			return nil, err
		}
	}

	result := &domain.UploadResult{
		Mode:            domain.MergeModeSmart,
		AutoAdded:       len(classified.AutoImport),
		AutoReplaced:    len(classified.AutoReplace),
		HasConflicts:    len(classified.Conflicts) > 0,
		HasBatchReview:  len(classified.BatchReview) > 0,
		Conflicts:       classified.Conflicts,
		BatchReviewList: classified.BatchReview,
	}

	if result.HasConflicts || result.HasBatchReview {
		session := s.sessions.Create(deviceID, classified.Conflicts, classified.BatchReview, s.repo)
		result.SessionID = session.ID()
	}

	return result, nil
}

func (s *UploadService) broadcastOperation(deviceID, opID string) {
	if s.wsManager == nil {
		return
	}

	op := s.operations.Get(opID)
	if op == nil {
		return
	}

	msg, err := websocket.NewMessage(websocket.TypeOperationUpdate, &websocket.OperationUpdatePayload{
		OperationID: op.ID,
		Status:      string(op.Status),
		Transferred: op.RecordsTransferred,
	})
	if err != nil {
		log.Printf("failed to build operation_update message: %v", err)
		return
	}

	if err := s.wsManager.BroadcastExcept(deviceID, msg); err != nil {
		log.Printf("failed to broadcast operation_update: %v", err)
	}
}

func (s *UploadService) broadcast(deviceID string, result *domain.UploadResult) {
	if s.wsManager == nil {
		return
	}
	if result.AutoAdded == 0 && result.AutoReplaced == 0 {
		return
	}

	msg, err := websocket.NewMessage(websocket.TypeEntriesUpdated, &websocket.EntriesUpdatedPayload{
		AutoAdded:    result.AutoAdded,
		AutoReplaced: result.AutoReplaced,
		Mode:         string(result.Mode),
		SourceDevice: deviceID,
	})
	if err != nil {
		log.Printf("failed to build entries_updated message: %v", err)
		return
	}

	if err := s.wsManager.BroadcastExcept(deviceID, msg); err != nil {
		log.Printf("failed to broadcast entries_updated: %v", err)
	}
}
