package handler

import (
	"context"
	"iter"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"volunteerhub/internal/broadcast/models"
	id "volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
	"volunteerhub/pkg/platform/httputil"
	"volunteerhub/pkg/platform/middleware/auth"
	"volunteerhub/pkg/requestcontext"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

//go:generate mockgen -source=handler.go -destination=mocks/broadcast-mocks.go -package=mocks Service
type Service interface {
	Create(ctx context.Context, organizer id.UserID, eventID id.EventID, message string) (*models.Broadcast, error)
	Delete(ctx context.Context, organizer id.UserID, eventID id.EventID, broadcastID id.BroadcastID) error
	List(ctx context.Context, viewer id.UserID, eventID id.EventID) iter.Seq2[*models.Broadcast, error]
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	organizer := auth.RequireRole(requestcontext.RoleOrganizer)
	r.With(organizer).Post("/events/{eventID}/broadcasts", h.HandleCreate)
	r.Get("/events/{eventID}/broadcasts", h.HandleList)
	r.With(organizer).Delete("/events/{eventID}/broadcasts/{broadcastID}", h.HandleDelete)
}

// CreateBroadcastRequest is the HTTP request body for POST /events/{eventID}/broadcasts.
type CreateBroadcastRequest struct {
	Message string `json:"message" validate:"required"`
}

func (r *CreateBroadcastRequest) Validate() error {
	message, err := models.NormalizeMessage(r.Message)
	if err != nil {
		return err
	}
	r.Message = message
	return nil
}

// ListResponse carries one window of the newest-first log.
type ListResponse struct {
	Broadcasts []*models.Broadcast `json:"broadcasts"`
	HasMore    bool                `json:"has_more"`
}

// HandleCreate handles POST /events/{eventID}/broadcasts.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateBroadcastRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	b, err := h.service.Create(ctx, requestcontext.UserID(ctx), eventID, req.Message)
	if err != nil {
		h.fail(ctx, w, err, "create broadcast failed", "event_id", eventID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, b)
}

// HandleList handles GET /events/{eventID}/broadcasts?limit=N.
// Only as many entries as requested are pulled from the service.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := &ListResponse{Broadcasts: make([]*models.Broadcast, 0, min(limit, defaultListLimit))}
	for b, err := range h.service.List(ctx, requestcontext.UserID(ctx), eventID) {
		if err != nil {
			h.fail(ctx, w, err, "list broadcasts failed", "event_id", eventID.String())
			return
		}
		if len(resp.Broadcasts) == limit {
			resp.HasMore = true
			break
		}
		resp.Broadcasts = append(resp.Broadcasts, b)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleDelete handles DELETE /events/{eventID}/broadcasts/{broadcastID}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	broadcastID, err := id.ParseBroadcastID(chi.URLParam(r, "broadcastID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(ctx, requestcontext.UserID(ctx), eventID, broadcastID); err != nil {
		h.fail(ctx, w, err, "delete broadcast failed",
			"event_id", eventID.String(),
			"broadcast_id", broadcastID.String())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxListLimit {
		return 0, dErrors.New(dErrors.CodeValidation, "limit must be between 1 and "+strconv.Itoa(maxListLimit))
	}
	return n, nil
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, err error, msg string, attrs ...any) {
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "error", err)
	if dErrors.CategoryOf(dErrors.CodeOf(err)) == dErrors.CategoryInternal {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
