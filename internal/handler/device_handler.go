package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"scout-sync-server/internal/domain"
	"scout-sync-server/internal/middleware"
	"scout-sync-server/internal/service"
	"scout-sync-server/pkg/response"

	"github.com/go-playground/validator/v10"
)

type DeviceHandler struct {
	service  *service.DeviceService
	validate *validator.Validate
}

func NewDeviceHandler(service *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	res, err := h.service.Register(&req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPassphrase) {
			response.Unauthorized(w, "Invalid sync passphrase")
			return
		}
		response.InternalError(w, "Failed to register device")
		return
	}

	response.Created(w, res)
}

func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	if middleware.GetDeviceID(r) == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	devices, err := h.service.List()
	if err != nil {
		response.InternalError(w, "Failed to list devices")
		return
	}

	response.Success(w, devices)
}
