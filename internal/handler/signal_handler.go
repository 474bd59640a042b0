package handler

import (
	"encoding/json"
	"net/http"

	"scout-sync-server/internal/domain"
	"scout-sync-server/internal/signaling"

	"github.com/go-playground/validator/v10"
)

// SignalHandler exposes the relay over plain request/response. The wire
// format here is pinned by the browser clients: flat JSON, no envelope.
type SignalHandler struct {
	relay    *signaling.Relay
	validate *validator.Validate
}

func NewSignalHandler(relay *signaling.Relay) *SignalHandler {
	return &SignalHandler{
		relay:    relay,
		validate: validator.New(),
	}
}

func (h *SignalHandler) Post(w http.ResponseWriter, r *http.Request) {
	var msg domain.SignalingMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeSignalError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validate.Struct(msg); err != nil {
		writeSignalError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.relay.HandleMessage(&msg)
	if err != nil {
		writeSignalError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeSignalJSON(w, http.StatusOK, resp)
}

func (h *SignalHandler) Poll(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	peerID := r.URL.Query().Get("peerId")

	if roomID == "" || peerID == "" {
		writeSignalError(w, http.StatusBadRequest, "roomId and peerId are required")
		return
	}

	resp := h.relay.Poll(roomID, peerID)
	writeSignalJSON(w, http.StatusOK, resp)
}

func writeSignalJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeSignalError(w http.ResponseWriter, statusCode int, msg string) {
	writeSignalJSON(w, statusCode, map[string]string{"error": msg})
}
