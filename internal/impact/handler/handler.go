package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"volunteerhub/internal/impact/models"
	id "volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
	"volunteerhub/pkg/platform/httputil"
	"volunteerhub/pkg/requestcontext"
)

// selfAlias in a path position stands for the authenticated caller.
const selfAlias = "me"

//go:generate mockgen -source=handler.go -destination=mocks/impact-mocks.go -package=mocks Service
type Service interface {
	ComputeOrgAnalytics(ctx context.Context, organizerID id.UserID) (*models.OrgAnalytics, error)
	ComputeVolunteerImpact(ctx context.Context, volunteerID id.UserID) (*models.VolunteerImpact, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/organizers/{orgID}/analytics", h.HandleOrgAnalytics)
	r.Get("/volunteers/{volunteerID}/impact", h.HandleVolunteerImpact)
}

// HandleOrgAnalytics handles GET /organizers/{orgID}/analytics.
func (h *Handler) HandleOrgAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	organizerID, err := subject(ctx, chi.URLParam(r, "orgID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	analytics, err := h.service.ComputeOrgAnalytics(ctx, organizerID)
	if err != nil {
		h.fail(ctx, w, err, "org analytics failed", "organizer_id", organizerID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, analytics)
}

// HandleVolunteerImpact handles GET /volunteers/{volunteerID}/impact.
func (h *Handler) HandleVolunteerImpact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	volunteerID, err := subject(ctx, chi.URLParam(r, "volunteerID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	impact, err := h.service.ComputeVolunteerImpact(ctx, volunteerID)
	if err != nil {
		h.fail(ctx, w, err, "volunteer impact failed", "volunteer_id", volunteerID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, impact)
}

func subject(ctx context.Context, raw string) (id.UserID, error) {
	if raw == selfAlias {
		caller := requestcontext.UserID(ctx)
		if caller.IsNil() {
			return id.UserID{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
		}
		return caller, nil
	}
	return id.ParseUserID(raw)
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
