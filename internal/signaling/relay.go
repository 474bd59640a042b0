package signaling

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"scout-sync-server/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrMissingRoom = errors.New("roomId is required")
	ErrMissingPeer = errors.New("peerId is required")
)

type room struct {
	id        string
	lead      *domain.PeerInfo
	scouts    map[string]*domain.PeerInfo
	messages  []*domain.SignalingMessage
	createdAt time.Time
}

// Relay is the in-memory store-and-forward mailbox two peers use to
// exchange rendezvous messages before their direct link exists. One
// Relay per process, constructed in main and passed into handlers; no
// package-level state.
//
// Rooms live at most RoomTTL from creation regardless of activity.
// Peers whose session outlives that window must re-join.
type Relay struct {
	mu    sync.Mutex
	rooms map[string]*room
	// delivered tracks (messageID, peerID) pairs in a table separate
	// from the messages themselves, so per-type retention rules can be
	// expressed without mutating in-flight messages.
	delivered map[string]map[string]bool

	roomTTL       time.Duration
	sweepInterval time.Duration
	now           func() time.Time
}

func NewRelay(roomTTL, sweepInterval time.Duration) *Relay {
	return &Relay{
		rooms:         make(map[string]*room),
		delivered:     make(map[string]map[string]bool),
		roomTTL:       roomTTL,
		sweepInterval: sweepInterval,
		now:           time.Now,
	}
}

// HandleMessage processes one POSTed signaling message. Ping is a pure
// liveness probe and touches no room state. Every other type requires
// roomId and peerId, creates the room on first reference, and is queued
// for delivery.
func (r *Relay) HandleMessage(msg *domain.SignalingMessage) (*domain.SignalPostResponse, error) {
	if msg.Type == domain.SignalPing {
		return &domain.SignalPostResponse{Success: true}, nil
	}

	if msg.RoomID == "" {
		return nil, ErrMissingRoom
	}
	if msg.PeerID == "" {
		return nil, ErrMissingPeer
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rm := r.rooms[msg.RoomID]
	if rm == nil {
		rm = &room{
			id:        msg.RoomID,
			scouts:    make(map[string]*domain.PeerInfo),
			createdAt: r.now(),
		}
		r.rooms[msg.RoomID] = rm
	}

	switch msg.Type {
	case domain.SignalJoin:
		peer := &domain.PeerInfo{
			ID:       msg.PeerID,
			Name:     msg.PeerName,
			LastSeen: r.now().UnixMilli(),
		}
		if msg.Role == domain.RoleLead {
			rm.lead = peer
		} else {
			rm.scouts[msg.PeerID] = peer
		}

	case domain.SignalLeave:
		if rm.lead != nil && rm.lead.ID == msg.PeerID {
			rm.lead = nil
		}
		delete(rm.scouts, msg.PeerID)
	}

	queued := *msg
	queued.ID = uuid.New().String()
	rm.messages = append(rm.messages, &queued)

	return &domain.SignalPostResponse{
		Success: true,
		Room:    r.statusLocked(rm, false),
	}, nil
}

// Poll returns the messages waiting for peerID in roomID and marks them
// delivered. Unknown rooms yield an empty list with zeroed stats rather
// than an error, so a joiner polling before its own join lands does not
// see a failure.
func (r *Relay) Poll(roomID, peerID string) *domain.SignalPollResponse {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm := r.rooms[roomID]
	if rm == nil {
		return &domain.SignalPollResponse{
			Messages: []*domain.SignalingMessage{},
			Room:     domain.RoomStatus{ID: roomID},
		}
	}

	r.touchLocked(rm, peerID)

	delivered := []*domain.SignalingMessage{}
	for _, msg := range rm.messages {
		if msg.PeerID == peerID {
			continue
		}
		if r.delivered[msg.ID][peerID] {
			continue
		}
		if msg.Targeted() && msg.TargetPeerID != peerID {
			continue
		}

		if r.delivered[msg.ID] == nil {
			r.delivered[msg.ID] = make(map[string]bool)
		}
		r.delivered[msg.ID][peerID] = true
		delivered = append(delivered, msg)
	}

	r.collectLocked(rm)

	return &domain.SignalPollResponse{
		Messages: delivered,
		Room:     r.statusLocked(rm, true),
	}
}

// collectLocked drops messages whose delivery conditions are met:
//   - scout join: the lead (if any) has received it
//   - lead join: every current scout has received it; retained while
//     the room has no scouts so late joiners still learn of the lead
//   - leave: every current member other than the sender has received it
//   - targeted offer/answer/ice: delivered once to any peer besides the
//     sender, then forgotten — point-to-point with no replay value
func (r *Relay) collectLocked(rm *room) {
	kept := rm.messages[:0]
	for _, msg := range rm.messages {
		if r.retainLocked(rm, msg) {
			kept = append(kept, msg)
			continue
		}
		delete(r.delivered, msg.ID)
	}
	rm.messages = kept
}

func (r *Relay) retainLocked(rm *room, msg *domain.SignalingMessage) bool {
	got := r.delivered[msg.ID]

	if msg.Targeted() {
		for peerID := range got {
			if peerID != msg.PeerID {
				return false
			}
		}
		return true
	}

	switch msg.Type {
	case domain.SignalJoin:
		if msg.Role == domain.RoleLead {
			if len(rm.scouts) == 0 {
				return true
			}
			for scoutID := range rm.scouts {
				if scoutID != msg.PeerID && !got[scoutID] {
					return true
				}
			}
			return false
		}
		if rm.lead == nil {
			return true
		}
		return !got[rm.lead.ID]

	case domain.SignalLeave:
		if rm.lead != nil && rm.lead.ID != msg.PeerID && !got[rm.lead.ID] {
			return true
		}
		for scoutID := range rm.scouts {
			if scoutID != msg.PeerID && !got[scoutID] {
				return true
			}
		}
		return false
	}

	// Untargeted negotiation traffic is not part of the protocol; treat
	// it as deliver-once like its targeted form.
	for peerID := range got {
		if peerID != msg.PeerID {
			return false
		}
	}
	return true
}

func (r *Relay) touchLocked(rm *room, peerID string) {
	now := r.now().UnixMilli()
	if rm.lead != nil && rm.lead.ID == peerID {
		rm.lead.LastSeen = now
	}
	if scout, ok := rm.scouts[peerID]; ok {
		scout.LastSeen = now
	}
}

func (r *Relay) statusLocked(rm *room, includeScouts bool) domain.RoomStatus {
	status := domain.RoomStatus{
		ID:            rm.id,
		LeadConnected: rm.lead != nil,
		ScoutCount:    len(rm.scouts),
	}
	if includeScouts {
		for _, s := range rm.scouts {
			status.Scouts = append(status.Scouts, *s)
		}
	}
	return status
}

// StartSweep runs the room expiry loop until ctx is cancelled. Owned by
// whoever constructed the relay.
func (r *Relay) StartSweep(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep()
			}
		}
	}()
}

// Sweep drops rooms older than RoomTTL outright, polling peers
// included. Deliberately not an LRU: a rendezvous that takes longer
// than the TTL should start over with a fresh room.
func (r *Relay) Sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.roomTTL)
	for id, rm := range r.rooms {
		if rm.createdAt.Before(cutoff) {
			for _, msg := range rm.messages {
				delete(r.delivered, msg.ID)
			}
			delete(r.rooms, id)
			log.Printf("[relay] expired room %s", id)
		}
	}
}

// RoomCount is used by the health endpoint.
func (r *Relay) RoomCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
