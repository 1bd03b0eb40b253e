package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"

	"volunteerhub/internal/event/models"
	id "volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
	"volunteerhub/pkg/platform/sentinel"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CreateEvent validates params and stores a new draft (or published) event
// with a freshly generated check-in code.
func (s *Service) CreateEvent(ctx context.Context, params models.NewEventParams) (event *models.Event, err error) {
	ctx, span := s.startSpan(ctx, "event.Create", attribute.String("organizer_id", params.OrganizerID.String()))
	defer func() { endSpan(span, err) }()

	now := s.now()
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, genErr := s.codes()
		if genErr != nil {
			return nil, dErrors.Wrap(genErr, dErrors.CodeInternal, "failed to generate check-in code")
		}
		candidate, buildErr := models.NewEvent(id.NewEventID(), params, code, now, s.loc)
		if buildErr != nil {
			// Convert invariant violations to validation errors for API response
			if dErrors.HasCode(buildErr, dErrors.CodeInvariantViolation) {
				return nil, dErrors.New(dErrors.CodeValidation, buildErr.Error())
			}
			return nil, buildErr
		}
		createErr := s.store.CreateEvent(ctx, candidate)
		if createErr == nil {
			event = candidate
			break
		}
		if !errors.Is(createErr, sentinel.ErrAlreadyUsed) {
			return nil, storeErr(createErr, "event")
		}
	}
	if event == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "could not allocate a unique check-in code")
	}

	s.metrics.IncrementTransition(string(event.Status))
	s.logAudit(ctx, auditEventCreated,
		"event_id", event.ID.String(),
		"organizer_id", event.OrganizerID.String(),
		"status", string(event.Status))
	return event, nil
}

// PublishEvent moves a draft event to published.
func (s *Service) PublishEvent(ctx context.Context, organizer id.UserID, eventID id.EventID) (event *models.Event, err error) {
	ctx, span := s.startSpan(ctx, "event.Publish", attribute.String("event_id", eventID.String()))
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveTx("publish", time.Now())

	err = s.tx.RunInTx(ctx, eventID, func(ctx context.Context, store Store) error {
		ev, err := loadOwnedEvent(ctx, store, eventID, organizer, true)
		if err != nil {
			return err
		}
		if err := ev.CanPublish(); err != nil {
			return err
		}
		ev.ApplyPublish(s.now())
		if err := store.UpdateEvent(ctx, ev, models.EventStatusDraft); err != nil {
			return storeErr(err, "event")
		}
		event = ev
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "event")
	}

	s.metrics.IncrementTransition(string(models.EventStatusPublished))
	s.logAudit(ctx, auditEventPublished, "event_id", eventID.String(), "organizer_id", organizer.String())
	return event, nil
}

// CancelEvent cancels a draft or published event and releases every
// non-terminal registration.
func (s *Service) CancelEvent(ctx context.Context, organizer id.UserID, eventID id.EventID) (event *models.Event, err error) {
	ctx, span := s.startSpan(ctx, "event.Cancel", attribute.String("event_id", eventID.String()))
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveTx("cancel", time.Now())

	released := 0
	err = s.tx.RunInTx(ctx, eventID, func(ctx context.Context, store Store) error {
		ev, err := loadOwnedEvent(ctx, store, eventID, organizer, true)
		if err != nil {
			return err
		}
		if err := ev.CanCancel(); err != nil {
			return err
		}
		now := s.now()
		previous := ev.Status
		ev.ApplyCancel(now)
		if err := store.UpdateEvent(ctx, ev, previous); err != nil {
			return storeErr(err, "event")
		}

		regs, err := store.ListRegistrationsByEvent(ctx, eventID)
		if err != nil {
			return storeErr(err, "registrations")
		}
		for _, reg := range regs {
			if reg.Status.IsTerminal() {
				continue
			}
			before := reg.Status
			if err := reg.Cancel(now); err != nil {
				return err
			}
			if err := store.UpdateRegistration(ctx, reg, before); err != nil {
				return storeErr(err, "registration")
			}
			released++
		}
		event = ev
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "event")
	}

	s.metrics.IncrementTransition(string(models.EventStatusCancelled))
	s.logAudit(ctx, auditEventCancelled,
		"event_id", eventID.String(),
		"organizer_id", organizer.String(),
		"registrations_released", released)
	return event, nil
}

// CompleteEvent marks a started, published event completed and finalizes its
// registrations: checked-in volunteers complete, absent ones are marked missed.
func (s *Service) CompleteEvent(ctx context.Context, organizer id.UserID, eventID id.EventID) (summary *models.CompletionSummary, err error) {
	ctx, span := s.startSpan(ctx, "event.Complete", attribute.String("event_id", eventID.String()))
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveTx("complete", time.Now())

	err = s.tx.RunInTx(ctx, eventID, func(ctx context.Context, store Store) error {
		ev, err := loadOwnedEvent(ctx, store, eventID, organizer, true)
		if err != nil {
			return err
		}
		now := s.now()
		if err := ev.CanComplete(now, s.loc); err != nil {
			return err
		}

		regs, err := store.ListRegistrationsByEvent(ctx, eventID)
		if err != nil {
			return storeErr(err, "registrations")
		}
		result := &models.CompletionSummary{}
		for _, reg := range regs {
			before := reg.Status
			if !reg.Finalize(now) {
				continue
			}
			if err := store.UpdateRegistration(ctx, reg, before); err != nil {
				return storeErr(err, "registration")
			}
			if reg.Status == models.RegistrationStatusCompleted {
				result.Completed++
			} else {
				result.Missed++
			}
		}

		ev.ApplyCompletion(now)
		if err := store.UpdateEvent(ctx, ev, models.EventStatusPublished); err != nil {
			return storeErr(err, "event")
		}
		result.Event = ev
		summary = result
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "event")
	}

	s.metrics.IncrementTransition(string(models.EventStatusCompleted))
	s.logAudit(ctx, auditEventCompleted,
		"event_id", eventID.String(),
		"organizer_id", organizer.String(),
		"completed", summary.Completed,
		"missed", summary.Missed)
	return summary, nil
}

// RecordSignatureURL stores the organizer's signature image reference used on certificates.
func (s *Service) RecordSignatureURL(ctx context.Context, organizer id.UserID, eventID id.EventID, url string) (event *models.Event, err error) {
	ctx, span := s.startSpan(ctx, "event.RecordSignature", attribute.String("event_id", eventID.String()))
	defer func() { endSpan(span, err) }()

	url = strings.TrimSpace(url)
	if err := validate.Var(url, "required,http_url,max=2048"); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "signature url must be an absolute http(s) url")
	}

	err = s.tx.RunInTx(ctx, eventID, func(ctx context.Context, store Store) error {
		ev, err := loadOwnedEvent(ctx, store, eventID, organizer, true)
		if err != nil {
			return err
		}
		if err := ev.CanRecordSignature(); err != nil {
			return err
		}
		ev.ApplySignature(url, s.now())
		if err := store.UpdateEvent(ctx, ev, ev.Status); err != nil {
			return storeErr(err, "event")
		}
		event = ev
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "event")
	}

	s.logAudit(ctx, auditSignatureRecorded, "event_id", eventID.String(), "organizer_id", organizer.String())
	return event, nil
}

// GetEvent returns an event. Drafts are visible only to their organizer.
func (s *Service) GetEvent(ctx context.Context, viewer id.UserID, eventID id.EventID) (*models.Event, error) {
	event, err := s.store.FindEvent(ctx, eventID)
	if err != nil {
		return nil, storeErr(err, "event")
	}
	if event.Status == models.EventStatusDraft && !event.IsOwnedBy(viewer) {
		return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
	}
	return event, nil
}

// ListOrganizerEvents returns every event the organizer created, newest event date first.
func (s *Service) ListOrganizerEvents(ctx context.Context, organizer id.UserID) ([]*models.Event, error) {
	events, err := s.store.ListEventsByOrganizer(ctx, organizer)
	if err != nil {
		return nil, storeErr(err, "events")
	}
	return events, nil
}

// EventRoster lists the registrations of an event for its organizer.
func (s *Service) EventRoster(ctx context.Context, organizer id.UserID, eventID id.EventID) ([]*models.Registration, error) {
	if _, err := loadOwnedEvent(ctx, s.store, eventID, organizer, false); err != nil {
		return nil, err
	}
	regs, err := s.store.ListRegistrationsByEvent(ctx, eventID)
	if err != nil {
		return nil, storeErr(err, "registrations")
	}
	return regs, nil
}
