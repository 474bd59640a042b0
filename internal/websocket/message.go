package websocket

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	TypeEntriesUpdated  MessageType = "entries_updated"
	TypeOperationUpdate MessageType = "operation_update"
	TypePing            MessageType = "ping"
	TypePong            MessageType = "pong"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// EntriesUpdatedPayload tells other connected devices that a merge just
// changed the store, so open tables can refresh without polling.
type EntriesUpdatedPayload struct {
	AutoAdded    int    `json:"autoAdded"`
	AutoReplaced int    `json:"autoReplaced"`
	Mode         string `json:"mode"`
	SourceDevice string `json:"sourceDevice"`
}

type OperationUpdatePayload struct {
	OperationID string `json:"operationId"`
	Status      string `json:"status"`
	Transferred int    `json:"transferred"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}, nil
}

func (m *Message) UnmarshalPayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
