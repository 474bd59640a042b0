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
	"github.com/gorilla/mux"
)

type SyncHandler struct {
	uploadService *service.UploadService
	devices       *service.DeviceService
	sessions      *service.SessionManager
	operations    *service.OperationService
	validate      *validator.Validate
}

func NewSyncHandler(uploadService *service.UploadService, devices *service.DeviceService, sessions *service.SessionManager, operations *service.OperationService) *SyncHandler {
	return &SyncHandler{
		uploadService: uploadService,
		devices:       devices,
		sessions:      sessions,
		operations:    operations,
		validate:      validator.New(),
	}
}

func (h *SyncHandler) Upload(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r)
	if deviceID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req domain.UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	method := domain.SyncMethod(r.URL.Query().Get("method"))
	if method == "" {
		method = domain.MethodFile
	}

	h.devices.Touch(deviceID)

	result, err := h.uploadService.Upload(deviceID, method, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPayload) || errors.Is(err, service.ErrUnknownMergeMode) {
			response.BadRequest(w, err.Error())
			return
		}
		response.InternalError(w, err.Error())
		return
	}

	response.Success(w, result)
}

func (h *SyncHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	response.Success(w, session.State())
}

func (h *SyncHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	var req domain.ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	state, err := session.ResolveOne(req.Action)
	h.finishResolve(w, state, err)
}

func (h *SyncHandler) ResolveBatch(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	var req domain.ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	state, err := session.ResolveBatch(req.Action)
	h.finishResolve(w, state, err)
}

func (h *SyncHandler) Undo(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	response.Success(w, session.Undo())
}

func (h *SyncHandler) ReviewBatch(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	var req domain.ReviewBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	state, err := session.ReviewBatch(req.Decision)
	h.finishResolve(w, state, err)
}

func (h *SyncHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.operations.List())
}

func (h *SyncHandler) lookupSession(w http.ResponseWriter, r *http.Request) (*service.ResolutionSession, bool) {
	deviceID := middleware.GetDeviceID(r)
	if deviceID == "" {
		response.Unauthorized(w, "unauthorized")
		return nil, false
	}

	vars := mux.Vars(r)
	session, err := h.sessions.Get(vars["id"])
	if err != nil {
		response.NotFound(w, "session not found")
		return nil, false
	}

	return session, true
}

// finishResolve reports the post-step state. A store failure leaves the
// session open so the user can retry without losing review progress.
func (h *SyncHandler) finishResolve(w http.ResponseWriter, state *domain.SessionState, err error) {
	if err != nil {
		if errors.Is(err, service.ErrSessionDone) || errors.Is(err, service.ErrNoPendingConflict) || errors.Is(err, service.ErrNoBatchReview) {
			response.BadRequest(w, err.Error())
			return
		}
		response.InternalError(w, err.Error())
		return
	}

	if state.Done {
		h.sessions.Remove(state.ID)
	}

	response.Success(w, state)
}
