package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prudhvinik1/deltasync/internal/middleware"
	"github.com/prudhvinik1/deltasync/internal/models"
	"github.com/prudhvinik1/deltasync/internal/services"
	"github.com/prudhvinik1/deltasync/internal/syncerr"
)

const maxRequestBytes = 8 << 20

// SyncObserver is notified of every sync round trip's outcome.
type SyncObserver interface {
	ObserveSync(entityType, outcome string)
}

type SyncHandler struct {
	sync     *services.SyncService
	observer SyncObserver
	logger   *slog.Logger
}

func NewSyncHandler(sync *services.SyncService, observer SyncObserver, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{sync: sync, observer: observer, logger: logger}
}

// Sync handles POST /v1/sync/{entityType}.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")

	var req models.SyncRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, syncerr.InvalidInput("handlers.Sync", fmt.Errorf("malformed request body: %w", err)))
		return
	}
	if req.EntityType != "" && req.EntityType != entityType {
		h.writeError(w, r, syncerr.InvalidInput("handlers.Sync", errors.New("entityType in body does not match path")))
		return
	}
	if req.ClientID == "" {
		req.ClientID = middleware.ClientID(r.Context())
	}

	resp, err := h.sync.Sync(r.Context(), entityType, middleware.OwnerID(r.Context()), req)
	if err != nil {
		h.observe(entityType, "error")
		h.writeError(w, r, err)
		return
	}

	outcome := "ok"
	if len(resp.Conflicts) > 0 || len(resp.Errors) > 0 {
		outcome = "partial"
	}
	h.observe(entityType, outcome)
	writeJSON(w, http.StatusOK, resp)
}

// Changes handles GET /v1/changes/{entityType}. afterId continues a page
// that ended inside the since millisecond.
func (h *SyncHandler) Changes(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	query := r.URL.Query()

	since, err := intParam(query.Get("since"))
	if err != nil {
		h.writeError(w, r, syncerr.InvalidInput("handlers.Changes", fmt.Errorf("since: %w", err)))
		return
	}
	limit, err := intParam(query.Get("limit"))
	if err != nil {
		h.writeError(w, r, syncerr.InvalidInput("handlers.Changes", fmt.Errorf("limit: %w", err)))
		return
	}
	offset, err := intParam(query.Get("offset"))
	if err != nil {
		h.writeError(w, r, syncerr.InvalidInput("handlers.Changes", fmt.Errorf("offset: %w", err)))
		return
	}
	includeDeleted := false
	if v := query.Get("includeDeleted"); v != "" {
		includeDeleted, err = strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, r, syncerr.InvalidInput("handlers.Changes", fmt.Errorf("includeDeleted: %w", err)))
			return
		}
	}

	set, err := h.sync.Changes(r.Context(), entityType, middleware.OwnerID(r.Context()), time.UnixMilli(since), services.PullOptions{
		AfterID:        query.Get("afterId"),
		IncludeDeleted: includeDeleted,
		Limit:          int(limit),
		Offset:         int(offset),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (h *SyncHandler) observe(entityType, outcome string) {
	if h.observer != nil {
		h.observer.ObserveSync(entityType, outcome)
	}
}

func intParam(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("must not be negative")
	}
	return n, nil
}

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func (h *SyncHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := syncerr.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case syncerr.KindConfiguration:
		status = http.StatusNotFound
	case syncerr.KindInvalidInput:
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "sync request failed", "path", r.URL.Path, "error", err)
		if kind == syncerr.KindUnknown {
			kind = syncerr.KindTransientStorage
		}
	}

	writeJSON(w, status, errorResponse{Code: string(kind), Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
