package handler

import (
	"net/http"

	"scout-sync-server/internal/middleware"
	"scout-sync-server/internal/service"
	"scout-sync-server/pkg/response"
)

type EntryHandler struct {
	service *service.EntryService
}

func NewEntryHandler(service *service.EntryService) *EntryHandler {
	return &EntryHandler{service: service}
}

func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	if middleware.GetDeviceID(r) == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	entries, err := h.service.List()
	if err != nil {
		response.InternalError(w, "Failed to list entries")
		return
	}

	response.Success(w, entries)
}

func (h *EntryHandler) Export(w http.ResponseWriter, r *http.Request) {
	if middleware.GetDeviceID(r) == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	payload, err := h.service.Export()
	if err != nil {
		response.InternalError(w, "Failed to export entries")
		return
	}

	response.Success(w, payload)
}
