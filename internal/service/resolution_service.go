package service

import (
	"sync"

	"scout-sync-server/internal/domain"
	"scout-sync-server/internal/repository"

	"github.com/google/uuid"
)

// ResolutionSession walks a human through per-record decisions for one
// merge. All store writes happen on apply, strictly in the order the
// conflicts were presented. The session assumes it is the only writer;
// the HTTP layer serializes access per device.
type ResolutionSession struct {
	id       string
	deviceID string
	store    repository.EntryRepository

	mu           sync.Mutex
	conflicts    []domain.ConflictInfo
	batchReview  []*domain.Entry
	currentIndex int
	resolutions  map[domain.ConflictKey]domain.ResolutionAction
	history      []historyEntry
	done         bool
}

type historyEntry struct {
	index  int
	key    domain.ConflictKey
	action domain.ResolutionAction
}

func newResolutionSession(deviceID string, conflicts []domain.ConflictInfo, batchReview []*domain.Entry, store repository.EntryRepository) *ResolutionSession {
	return &ResolutionSession{
		id:          uuid.New().String(),
		deviceID:    deviceID,
		store:       store,
		conflicts:   conflicts,
		batchReview: batchReview,
		resolutions: make(map[domain.ConflictKey]domain.ResolutionAction),
	}
}

func (s *ResolutionSession) ID() string { return s.id }

func (s *ResolutionSession) State() *domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *ResolutionSession) stateLocked() *domain.SessionState {
	state := &domain.SessionState{
		ID:           s.id,
		DeviceID:     s.deviceID,
		Total:        len(s.conflicts),
		CurrentIndex: s.currentIndex,
		Remaining:    len(s.conflicts) - s.currentIndex,
		BatchReview:  s.batchReview,
		Done:         s.done,
	}
	if !s.done && s.currentIndex < len(s.conflicts) {
		state.Current = &s.conflicts[s.currentIndex]
	}
	return state
}

// ResolveOne records the decision for the current conflict and
// advances. Deciding the last conflict applies every recorded decision
// and marks the session done. An apply failure keeps the recorded
// decisions so the caller can retry without redoing the review.
func (s *ResolutionSession) ResolveOne(action domain.ResolutionAction) (*domain.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return nil, ErrSessionDone
	}

	if s.currentIndex < len(s.conflicts) {
		conflict := s.conflicts[s.currentIndex]
		key := domain.KeyFor(conflict.Incoming)
		s.resolutions[key] = action
		s.history = append(s.history, historyEntry{
			index:  s.currentIndex,
			key:    key,
			action: action,
		})
		s.currentIndex++
	} else if len(s.resolutions) == 0 {
		return nil, ErrNoPendingConflict
	}

	if s.currentIndex >= len(s.conflicts) {
		if err := s.applyLocked(); err != nil {
			return s.stateLocked(), err
		}
		s.resetLocked()
	}

	return s.stateLocked(), nil
}

// ResolveBatch applies the same action to every remaining conflict in
// one pass ("replace all remaining" / "skip all remaining").
func (s *ResolutionSession) ResolveBatch(action domain.ResolutionAction) (*domain.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return nil, ErrSessionDone
	}

	for i := s.currentIndex; i < len(s.conflicts); i++ {
		s.resolutions[domain.KeyFor(s.conflicts[i].Incoming)] = action
	}
	s.currentIndex = len(s.conflicts)

	if err := s.applyLocked(); err != nil {
		return s.stateLocked(), err
	}
	s.resetLocked()

	return s.stateLocked(), nil
}

// Undo rewinds exactly one step of the review. No-op once the session
// has applied.
func (s *ResolutionSession) Undo() *domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done || len(s.history) == 0 {
		return s.stateLocked()
	}

	last := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	delete(s.resolutions, last.key)
	s.currentIndex = last.index

	return s.stateLocked()
}

// ReviewBatch handles the uncorrected-vs-uncorrected duplicate bucket.
// These entries were captured independently on different devices, so
// they are matched by deterministic identity rather than primary id.
func (s *ResolutionSession) ReviewBatch(decision domain.BatchReviewDecision) (*domain.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return nil, ErrSessionDone
	}
	if len(s.batchReview) == 0 {
		return nil, ErrNoBatchReview
	}

	switch decision {
	case domain.BatchReplaceAll:
		for _, in := range s.batchReview {
			local, err := s.findCounterpartLocked(in)
			if err != nil {
				return s.stateLocked(), err
			}
			if local != nil {
				if err := s.store.Delete(local.ID); err != nil {
					return s.stateLocked(), err
				}
			}
			if err := s.store.Put(in); err != nil {
				return s.stateLocked(), err
			}
		}
		s.batchReview = nil

	case domain.BatchSkipAll:
		s.batchReview = nil

	case domain.BatchReviewEach:
		// Convert each duplicate into a synthetic conflict and queue it
		// ahead of whatever is already pending.
		var synthetic []domain.ConflictInfo
		for _, in := range s.batchReview {
			local, err := s.findCounterpartLocked(in)
			if err != nil {
				return s.stateLocked(), err
			}
			if local == nil {
				continue
			}
			synthetic = append(synthetic, domain.ConflictInfo{
				Incoming:        in,
				Local:           local,
				ConflictType:    domain.ConflictDuplicateCapture,
				IsNewerIncoming: in.Timestamp > local.Timestamp,
				ChangedFields:   diffChangedFields(local, in),
			})
		}
		s.batchReview = nil

		rest := make([]domain.ConflictInfo, 0, len(synthetic)+len(s.conflicts)-s.currentIndex)
		rest = append(rest, synthetic...)
		rest = append(rest, s.conflicts[s.currentIndex:]...)
		s.conflicts = append(s.conflicts[:s.currentIndex], rest...)
	}

	// A skip/replace decision with no conflicts pending closes the
	// session outright.
	if s.currentIndex >= len(s.conflicts) && len(s.batchReview) == 0 {
		s.done = true
	}

	return s.stateLocked(), nil
}

func (s *ResolutionSession) findCounterpartLocked(in *domain.Entry) (*domain.Entry, error) {
	local, err := s.store.List()
	if err != nil {
		return nil, err
	}

	want := deterministicID(in)
	var found *domain.Entry
	for _, e := range local {
		if e.ID == in.ID || deterministicID(e) == want {
			found = e
		}
	}
	return found, nil
}

// applyLocked replays the recorded decisions in presentation order.
// Each replace is a delete of the local id followed by an insert of the
// incoming entry; skip leaves the local record untouched. Not atomic.
func (s *ResolutionSession) applyLocked() error {
	for _, c := range s.conflicts {
		action, ok := s.resolutions[domain.KeyFor(c.Incoming)]
		if !ok || action != domain.ResolutionReplace {
			continue
		}
		if err := s.store.Delete(c.Local.ID); err != nil {
			return err
		}
		if err := s.store.Put(c.Incoming); err != nil {
			return err
		}
	}
	return nil
}

func (s *ResolutionSession) resetLocked() {
	s.resolutions = make(map[domain.ConflictKey]domain.ResolutionAction)
	s.history = nil
	if len(s.batchReview) == 0 {
		s.done = true
	}
}

// SessionManager owns the open review sessions, one per device at most.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*ResolutionSession
	byDevice map[string]string
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*ResolutionSession),
		byDevice: make(map[string]string),
	}
}

// Create opens a session, replacing any session the device abandoned.
func (m *SessionManager) Create(deviceID string, conflicts []domain.ConflictInfo, batchReview []*domain.Entry, store repository.EntryRepository) *ResolutionSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.byDevice[deviceID]; ok {
		delete(m.sessions, old)
	}

	session := newResolutionSession(deviceID, conflicts, batchReview, store)
	m.sessions[session.id] = session
	m.byDevice[deviceID] = session.id
	return session
}

func (m *SessionManager) Get(id string) (*ResolutionSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (m *SessionManager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.sessions[id]; ok {
		delete(m.byDevice, session.deviceID)
		delete(m.sessions, id)
	}
}
