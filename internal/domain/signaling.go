package domain

import "encoding/json"

type SignalingType string

const (
	SignalPing         SignalingType = "ping"
	SignalJoin         SignalingType = "join"
	SignalLeave        SignalingType = "leave"
	SignalOffer        SignalingType = "offer"
	SignalAnswer       SignalingType = "answer"
	SignalICECandidate SignalingType = "ice-candidate"
)

type PeerRole string

const (
	RoleLead  PeerRole = "lead"
	RoleScout PeerRole = "scout"
)

// SignalingMessage is the relay wire format. Data carries opaque
// session-description / ICE-candidate blobs; the relay never inspects
// them.
type SignalingMessage struct {
	ID           string          `json:"id,omitempty"`
	Type         SignalingType   `json:"type" validate:"required,oneof=ping join leave offer answer ice-candidate"`
	RoomID       string          `json:"roomId,omitempty"`
	PeerID       string          `json:"peerId,omitempty"`
	PeerName     string          `json:"peerName,omitempty"`
	Role         PeerRole        `json:"role,omitempty"`
	TargetPeerID string          `json:"targetPeerId,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
}

// Targeted reports whether the message is point-to-point negotiation
// traffic, which is delivered once and then forgotten.
func (m *SignalingMessage) Targeted() bool {
	return m.TargetPeerID != ""
}

type PeerInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	LastSeen int64  `json:"-"`
}

// RoomStatus is the room summary returned on every relay response.
// Zero-valued for unknown rooms.
type RoomStatus struct {
	ID            string     `json:"id"`
	LeadConnected bool       `json:"leadConnected"`
	ScoutCount    int        `json:"scoutCount"`
	Scouts        []PeerInfo `json:"scouts,omitempty"`
}

type SignalPostResponse struct {
	Success bool       `json:"success"`
	Room    RoomStatus `json:"room"`
}

type SignalPollResponse struct {
	Messages []*SignalingMessage `json:"messages"`
	Room     RoomStatus          `json:"room"`
}
