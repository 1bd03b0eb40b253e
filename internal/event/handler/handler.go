package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"volunteerhub/internal/event/models"
	id "volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
	"volunteerhub/pkg/platform/httputil"
	"volunteerhub/pkg/platform/middleware/auth"
	"volunteerhub/pkg/requestcontext"
)

// Service defines the event lifecycle operations exposed over HTTP.
type Service interface {
	CreateEvent(ctx context.Context, params models.NewEventParams) (*models.Event, error)
	GetEvent(ctx context.Context, viewer id.UserID, eventID id.EventID) (*models.Event, error)
	ListOrganizerEvents(ctx context.Context, organizer id.UserID) ([]*models.Event, error)
	PublishEvent(ctx context.Context, organizer id.UserID, eventID id.EventID) (*models.Event, error)
	CancelEvent(ctx context.Context, organizer id.UserID, eventID id.EventID) (*models.Event, error)
	CompleteEvent(ctx context.Context, organizer id.UserID, eventID id.EventID) (*models.CompletionSummary, error)
	RecordSignatureURL(ctx context.Context, organizer id.UserID, eventID id.EventID, url string) (*models.Event, error)
	IssueCertificates(ctx context.Context, organizer id.UserID, eventID id.EventID) (*models.CertificateIssuance, error)
	EventRoster(ctx context.Context, organizer id.UserID, eventID id.EventID) ([]*models.Registration, error)

	RegisterForEvent(ctx context.Context, volunteer id.UserID, eventID id.EventID) (*models.Registration, error)
	CancelRegistration(ctx context.Context, volunteer id.UserID, regID id.RegistrationID) (*models.Registration, error)
	ListVolunteerRegistrations(ctx context.Context, volunteer id.UserID) ([]*models.Registration, error)
	SelfCheckIn(ctx context.Context, req models.SelfCheckInRequest) (*models.CheckInResult, error)
	OrganizerCheckIn(ctx context.Context, organizer id.UserID, regID id.RegistrationID) (*models.Registration, error)
	UndoCheckIn(ctx context.Context, organizer id.UserID, regID id.RegistrationID) (*models.Registration, error)
}

// Handler wires event, registration and check-in endpoints to the event service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the event routes. Authentication runs upstream; these
// routes only gate by role.
func (h *Handler) Register(r chi.Router) {
	organizer := auth.RequireRole(requestcontext.RoleOrganizer)
	volunteer := auth.RequireRole(requestcontext.RoleVolunteer)

	r.With(organizer).Post("/events", h.HandleCreateEvent)
	r.Get("/events/{eventID}", h.HandleGetEvent)
	r.With(organizer).Get("/organizers/me/events", h.HandleListOrganizerEvents)
	r.With(organizer).Post("/events/{eventID}/publish", h.HandlePublishEvent)
	r.With(organizer).Post("/events/{eventID}/cancel", h.HandleCancelEvent)
	r.With(organizer).Post("/events/{eventID}/complete", h.HandleCompleteEvent)
	r.With(organizer).Put("/events/{eventID}/signature", h.HandleRecordSignature)
	r.With(organizer).Post("/events/{eventID}/certificates", h.HandleIssueCertificates)
	r.With(organizer).Get("/events/{eventID}/registrations", h.HandleEventRoster)

	r.With(volunteer).Post("/events/{eventID}/registrations", h.HandleRegister)
	r.With(volunteer).Post("/events/{eventID}/check-in", h.HandleSelfCheckIn)
	r.With(volunteer).Get("/volunteers/me/registrations", h.HandleListVolunteerRegistrations)
	r.With(volunteer).Post("/registrations/{registrationID}/cancel", h.HandleCancelRegistration)
	r.With(organizer).Post("/registrations/{registrationID}/check-in", h.HandleOrganizerCheckIn)
	r.With(organizer).Delete("/registrations/{registrationID}/check-in", h.HandleUndoCheckIn)
}

// HandleCreateEvent handles POST /events.
func (h *Handler) HandleCreateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	organizer := requestcontext.UserID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateEventRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	params := req.Params()
	params.OrganizerID = organizer

	event, err := h.service.CreateEvent(ctx, params)
	if err != nil {
		h.fail(ctx, w, err, "create event failed")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toEventResponse(event, organizer))
}

// HandleGetEvent handles GET /events/{eventID}.
func (h *Handler) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := requestcontext.UserID(ctx)
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	event, err := h.service.GetEvent(ctx, viewer, eventID)
	if err != nil {
		h.fail(ctx, w, err, "get event failed", "event_id", eventID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEventResponse(event, viewer))
}

// HandleListOrganizerEvents handles GET /organizers/me/events.
func (h *Handler) HandleListOrganizerEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	organizer := requestcontext.UserID(ctx)
	events, err := h.service.ListOrganizerEvents(ctx, organizer)
	if err != nil {
		h.fail(ctx, w, err, "list organizer events failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEventList(events, organizer))
}

// HandlePublishEvent handles POST /events/{eventID}/publish.
func (h *Handler) HandlePublishEvent(w http.ResponseWriter, r *http.Request) {
	h.eventTransition(w, r, "publish event failed", h.service.PublishEvent)
}

// HandleCancelEvent handles POST /events/{eventID}/cancel.
func (h *Handler) HandleCancelEvent(w http.ResponseWriter, r *http.Request) {
	h.eventTransition(w, r, "cancel event failed", h.service.CancelEvent)
}

func (h *Handler) eventTransition(w http.ResponseWriter, r *http.Request, failMsg string,
	apply func(context.Context, id.UserID, id.EventID) (*models.Event, error)) {
	ctx := r.Context()
	organizer := requestcontext.UserID(ctx)
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	event, err := apply(ctx, organizer, eventID)
	if err != nil {
		h.fail(ctx, w, err, failMsg, "event_id", eventID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEventResponse(event, organizer))
}

// HandleCompleteEvent handles POST /events/{eventID}/complete.
func (h *Handler) HandleCompleteEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	organizer := requestcontext.UserID(ctx)
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	summary, err := h.service.CompleteEvent(ctx, organizer, eventID)
	if err != nil {
		h.fail(ctx, w, err, "complete event failed", "event_id", eventID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

// HandleRecordSignature handles PUT /events/{eventID}/signature.
func (h *Handler) HandleRecordSignature(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	organizer := requestcontext.UserID(ctx)
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SignatureRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	event, err := h.service.RecordSignatureURL(ctx, organizer, eventID, req.SignatureURL)
	if err != nil {
		h.fail(ctx, w, err, "record signature failed", "event_id", eventID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEventResponse(event, organizer))
}

// HandleIssueCertificates handles POST /events/{eventID}/certificates.
func (h *Handler) HandleIssueCertificates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	organizer := requestcontext.UserID(ctx)
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	issuance, err := h.service.IssueCertificates(ctx, organizer, eventID)
	if err != nil {
		h.fail(ctx, w, err, "issue certificates failed", "event_id", eventID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, issuance)
}

// HandleEventRoster handles GET /events/{eventID}/registrations.
func (h *Handler) HandleEventRoster(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	regs, err := h.service.EventRoster(ctx, requestcontext.UserID(ctx), eventID)
	if err != nil {
		h.fail(ctx, w, err, "event roster failed", "event_id", eventID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRegistrationList(regs))
}

// HandleRegister handles POST /events/{eventID}/registrations.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	reg, err := h.service.RegisterForEvent(ctx, requestcontext.UserID(ctx), eventID)
	if err != nil {
		h.fail(ctx, w, err, "registration failed", "event_id", eventID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, reg)
}

// HandleSelfCheckIn handles POST /events/{eventID}/check-in.
func (h *Handler) HandleSelfCheckIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SelfCheckInRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	result, err := h.service.SelfCheckIn(ctx, models.SelfCheckInRequest{
		EventID:     eventID,
		VolunteerID: requestcontext.UserID(ctx),
		Code:        req.Code,
		Location:    req.Location(),
	})
	if err != nil {
		h.fail(ctx, w, err, "self check-in failed", "event_id", eventID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleListVolunteerRegistrations handles GET /volunteers/me/registrations.
func (h *Handler) HandleListVolunteerRegistrations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	regs, err := h.service.ListVolunteerRegistrations(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(ctx, w, err, "list registrations failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRegistrationList(regs))
}

// HandleCancelRegistration handles POST /registrations/{registrationID}/cancel.
func (h *Handler) HandleCancelRegistration(w http.ResponseWriter, r *http.Request) {
	h.registrationAction(w, r, "cancel registration failed", h.service.CancelRegistration)
}

// HandleOrganizerCheckIn handles POST /registrations/{registrationID}/check-in.
func (h *Handler) HandleOrganizerCheckIn(w http.ResponseWriter, r *http.Request) {
	h.registrationAction(w, r, "organizer check-in failed", h.service.OrganizerCheckIn)
}

// HandleUndoCheckIn handles DELETE /registrations/{registrationID}/check-in.
func (h *Handler) HandleUndoCheckIn(w http.ResponseWriter, r *http.Request) {
	h.registrationAction(w, r, "undo check-in failed", h.service.UndoCheckIn)
}

func (h *Handler) registrationAction(w http.ResponseWriter, r *http.Request, failMsg string,
	apply func(context.Context, id.UserID, id.RegistrationID) (*models.Registration, error)) {
	ctx := r.Context()
	regID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reg, err := apply(ctx, requestcontext.UserID(ctx), regID)
	if err != nil {
		h.fail(ctx, w, err, failMsg, "registration_id", regID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reg)
}

func (h *Handler) eventID(w http.ResponseWriter, r *http.Request) (id.EventID, bool) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.EventID{}, false
	}
	return eventID, true
}

// fail logs err at a level matching its category and writes the error response.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, err error, msg string, attrs ...any) {
	attrs = append(attrs,
		"request_id", requestcontext.RequestID(ctx),
		"user_id", requestcontext.UserID(ctx).String(),
		"error", err,
	)
	if dErrors.CategoryOf(dErrors.CodeOf(err)) == dErrors.CategoryInternal {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
