package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/distrubuted-game-mechanic/bruteforce/internal/bruteforce"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/host"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/plan"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/service"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/store"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/ticcmd"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/types"
	"github.com/distrubuted-game-mechanic/bruteforce/pkg/logger"
)

// maxPlanBytes bounds a plan request body.
const maxPlanBytes = 1 << 20

// Searches is the service surface the handler needs.
type Searches interface {
	Start(ctx context.Context, p *plan.Plan, raw json.RawMessage) (*types.SearchRecord, error)
	Get(ctx context.Context, id string) (*types.SearchRecord, error)
	List(ctx context.Context, limit int) ([]*types.SearchRecord, error)
	ActiveStatus(ctx context.Context) (*types.ActiveSearchResponse, error)
	Stop(ctx context.Context, id string) (*types.StopSearchResponse, error)
	Advance(ctx context.Context, tics int) (host.WorldState, error)
	SetCommand(ctx context.Context, req types.CommandRequest) (*types.CommandResponse, error)
	State(ctx context.Context) (host.WorldState, error)
}

// Handler holds HTTP handlers and dependencies
type Handler struct {
	searches Searches
	log      *logger.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(searches Searches, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		searches: searches,
		log:      log,
	}
}

// Routes sets up all HTTP routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(h.log))

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		r.Route("/searches", func(r chi.Router) {
			r.Post("/", h.StartSearch)
			r.Get("/", h.ListSearches)
			r.Get("/active", h.ActiveSearch)
			r.Get("/{id}", h.GetSearch)
			r.Post("/{id}/stop", h.StopSearch)
		})
		r.Route("/world", func(r chi.Router) {
			r.Get("/state", h.WorldState)
			r.Post("/advance", h.Advance)
			r.Put("/command", h.SetCommand)
		})
	})

	// Health check
	r.Get("/healthz", h.Health)

	return r
}

// Health handles health check requests
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StartSearch handles POST /v1/searches
func (h *Handler) StartSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPlanBytes))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	var p plan.Plan
	if err := json.Unmarshal(body, &p); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	rec, err := h.searches.Start(ctx, &p, body)
	if err != nil {
		h.respondServiceError(w, "failed to start search", err)
		return
	}

	h.respondJSON(w, http.StatusCreated, rec)
}

// ListSearches handles GET /v1/searches?limit=n
func (h *Handler) ListSearches(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			h.respondError(w, http.StatusBadRequest, "invalid limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	recs, err := h.searches.List(ctx, limit)
	if err != nil {
		h.respondServiceError(w, "failed to list searches", err)
		return
	}

	h.respondJSON(w, http.StatusOK, recs)
}

// GetSearch handles GET /v1/searches/{id}
func (h *Handler) GetSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rec, err := h.searches.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, "failed to get search", err)
		return
	}

	h.respondJSON(w, http.StatusOK, rec)
}

// ActiveSearch handles GET /v1/searches/active
func (h *Handler) ActiveSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp, err := h.searches.ActiveStatus(ctx)
	if err != nil {
		h.respondServiceError(w, "failed to read search status", err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// StopSearch handles POST /v1/searches/{id}/stop
func (h *Handler) StopSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp, err := h.searches.Stop(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, "failed to stop search", err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// WorldState handles GET /v1/world/state
func (h *Handler) WorldState(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	state, err := h.searches.State(ctx)
	if err != nil {
		h.respondServiceError(w, "failed to read world", err)
		return
	}

	h.respondJSON(w, http.StatusOK, state)
}

// Advance handles POST /v1/world/advance
func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req types.AdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	state, err := h.searches.Advance(ctx, req.Tics)
	if err != nil {
		h.respondServiceError(w, "failed to advance world", err)
		return
	}

	h.respondJSON(w, http.StatusOK, state)
}

// SetCommand handles PUT /v1/world/command
func (h *Handler) SetCommand(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req types.CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	resp, err := h.searches.SetCommand(ctx, req)
	if err != nil {
		h.respondServiceError(w, "failed to set command", err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// badRequest lists errors caused by the request content.
var badRequest = []error{
	plan.ErrNoFrames,
	plan.ErrMissingFrames,
	plan.ErrBadSpan,
	plan.ErrBadCondition,
	bruteforce.ErrInvalidDepth,
	bruteforce.ErrInvalidRange,
	bruteforce.ErrTooManyConditions,
	bruteforce.ErrUnknownAttribute,
	bruteforce.ErrUnknownOperator,
	bruteforce.ErrUnknownMisc,
	bruteforce.ErrUnknownLimit,
	bruteforce.ErrUnknownLine,
	bruteforce.ErrVolumeOverflow,
	service.ErrWorldInPlan,
	service.ErrBadAdvance,
	ticcmd.ErrAmountOutOfRange,
	ticcmd.ErrUnknownAction,
}

// respondServiceError maps a service error to a status code.
func (h *Handler) respondServiceError(w http.ResponseWriter, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrSearchNotFound):
		status = http.StatusNotFound
	case errors.Is(err, bruteforce.ErrSessionActive),
		errors.Is(err, bruteforce.ErrNotActive),
		errors.Is(err, service.ErrSkipping):
		status = http.StatusConflict
	case errors.Is(err, host.ErrStopped):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	default:
		for _, target := range badRequest {
			if errors.Is(err, target) {
				status = http.StatusBadRequest
				break
			}
		}
	}

	if status == http.StatusInternalServerError {
		h.log.Error(msg, logger.Err(err))
	}
	h.respondError(w, status, msg, err.Error())
}

// respondJSON sends a JSON response
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("Failed to encode response", logger.Err(err))
	}
}

// respondError sends an error response
func (h *Handler) respondError(w http.ResponseWriter, status int, errorMsg, message string) {
	h.respondJSON(w, status, types.ErrorResponse{
		Error:   errorMsg,
		Message: message,
	})
}
