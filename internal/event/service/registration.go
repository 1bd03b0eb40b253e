package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"volunteerhub/internal/event/models"
	id "volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
	"volunteerhub/pkg/platform/sentinel"
)

// RegisterForEvent claims a slot on a published event for the volunteer.
//
// The capacity check and the insert run under the event's transaction, so a
// burst of concurrent registrations never admits more than TotalSlots.
func (s *Service) RegisterForEvent(ctx context.Context, volunteer id.UserID, eventID id.EventID) (reg *models.Registration, err error) {
	ctx, span := s.startSpan(ctx, "registration.Create",
		attribute.String("event_id", eventID.String()),
		attribute.String("volunteer_id", volunteer.String()))
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveTx("register", time.Now())

	err = s.tx.RunInTx(ctx, eventID, func(ctx context.Context, store Store) error {
		event, err := store.FindEventForUpdate(ctx, eventID)
		if err != nil {
			return storeErr(err, "event")
		}
		now := s.now()
		if !event.AcceptsRegistrations(now) {
			return dErrors.New(dErrors.CodeNotOpen, "event is not open for registration")
		}

		if _, err := store.FindActiveRegistration(ctx, eventID, volunteer); err == nil {
			return dErrors.New(dErrors.CodeDuplicate, "already registered for this event")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return storeErr(err, "registration")
		}

		active, err := store.CountActiveRegistrations(ctx, eventID)
		if err != nil {
			return storeErr(err, "registrations")
		}
		if active >= event.TotalSlots {
			return dErrors.New(dErrors.CodeCapacity, "event is full")
		}

		created, err := models.NewRegistration(id.NewRegistrationID(), eventID, volunteer, now)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, err.Error())
		}
		if err := store.CreateRegistration(ctx, created); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeDuplicate, "already registered for this event")
			}
			return storeErr(err, "registration")
		}
		reg = created
		return nil
	})
	if err != nil {
		s.metrics.IncrementRegistration(registrationOutcome(err))
		return nil, storeErr(err, "registration")
	}

	s.metrics.IncrementRegistration("created")
	s.logAudit(ctx, auditRegistrationCreated,
		"event_id", eventID.String(),
		"registration_id", reg.ID.String(),
		"volunteer_id", volunteer.String())
	return reg, nil
}

// CancelRegistration withdraws the volunteer from an event that has not ended.
func (s *Service) CancelRegistration(ctx context.Context, volunteer id.UserID, regID id.RegistrationID) (reg *models.Registration, err error) {
	ctx, span := s.startSpan(ctx, "registration.Cancel", attribute.String("registration_id", regID.String()))
	defer func() { endSpan(span, err) }()

	existing, err := s.store.FindRegistration(ctx, regID)
	if err != nil {
		return nil, storeErr(err, "registration")
	}
	if existing.VolunteerID != volunteer {
		return nil, dErrors.New(dErrors.CodeForbidden, "registration belongs to another volunteer")
	}

	err = s.tx.RunInTx(ctx, existing.EventID, func(ctx context.Context, store Store) error {
		event, err := store.FindEventForUpdate(ctx, existing.EventID)
		if err != nil {
			return storeErr(err, "event")
		}
		if event.Status.IsTerminal() {
			return dErrors.New(dErrors.CodeInvalidState, "event is already "+string(event.Status))
		}
		current, err := store.FindRegistration(ctx, regID)
		if err != nil {
			return storeErr(err, "registration")
		}
		before := current.Status
		if err := current.Cancel(s.now()); err != nil {
			return err
		}
		if err := store.UpdateRegistration(ctx, current, before); err != nil {
			return storeErr(err, "registration")
		}
		reg = current
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "registration")
	}

	s.metrics.IncrementRegistration("cancelled")
	s.logAudit(ctx, auditRegistrationCancelled,
		"event_id", reg.EventID.String(),
		"registration_id", regID.String(),
		"volunteer_id", volunteer.String())
	return reg, nil
}

// OrganizerCheckIn marks a registration attended on the organizer's word,
// bypassing the code and location checks.
func (s *Service) OrganizerCheckIn(ctx context.Context, organizer id.UserID, regID id.RegistrationID) (reg *models.Registration, err error) {
	ctx, span := s.startSpan(ctx, "checkin.Organizer", attribute.String("registration_id", regID.String()))
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveTx("organizer_check_in", time.Now())

	reg, err = s.mutateAsOrganizer(ctx, organizer, regID, func(r *models.Registration, now time.Time) error {
		return r.CheckIn(now, nil, models.CheckInMethodOrganizer)
	})
	if err != nil {
		s.metrics.IncrementCheckIn(string(models.CheckInMethodOrganizer), string(dErrors.CodeOf(err)))
		return nil, err
	}

	s.metrics.IncrementCheckIn(string(models.CheckInMethodOrganizer), "accepted")
	s.logAudit(ctx, auditCheckInRecorded,
		"event_id", reg.EventID.String(),
		"registration_id", regID.String(),
		"organizer_id", organizer.String(),
		"method", string(models.CheckInMethodOrganizer))
	return reg, nil
}

// UndoCheckIn reverts a checked-in registration to registered.
func (s *Service) UndoCheckIn(ctx context.Context, organizer id.UserID, regID id.RegistrationID) (reg *models.Registration, err error) {
	ctx, span := s.startSpan(ctx, "checkin.Undo", attribute.String("registration_id", regID.String()))
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveTx("undo_check_in", time.Now())

	reg, err = s.mutateAsOrganizer(ctx, organizer, regID, func(r *models.Registration, now time.Time) error {
		return r.UndoCheckIn(now)
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, auditCheckInUndone,
		"event_id", reg.EventID.String(),
		"registration_id", regID.String(),
		"organizer_id", organizer.String())
	return reg, nil
}

// mutateAsOrganizer applies an organizer action to a registration of a
// started, published event owned by organizer.
func (s *Service) mutateAsOrganizer(ctx context.Context, organizer id.UserID, regID id.RegistrationID, apply func(*models.Registration, time.Time) error) (*models.Registration, error) {
	existing, err := s.store.FindRegistration(ctx, regID)
	if err != nil {
		return nil, storeErr(err, "registration")
	}

	var reg *models.Registration
	err = s.tx.RunInTx(ctx, existing.EventID, func(ctx context.Context, store Store) error {
		event, err := loadOwnedEvent(ctx, store, existing.EventID, organizer, true)
		if err != nil {
			return err
		}
		now := s.now()
		if event.Status != models.EventStatusPublished {
			return dErrors.New(dErrors.CodeInvalidState, "event is "+string(event.Status))
		}
		if !event.HasStarted(now, s.loc) {
			return dErrors.New(dErrors.CodeNotStarted, "event has not started yet")
		}

		current, err := store.FindRegistration(ctx, regID)
		if err != nil {
			return storeErr(err, "registration")
		}
		before := current.Status
		if err := apply(current, now); err != nil {
			return err
		}
		if err := store.UpdateRegistration(ctx, current, before); err != nil {
			return storeErr(err, "registration")
		}
		reg = current
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "registration")
	}
	return reg, nil
}

// ListVolunteerRegistrations returns every registration of the volunteer.
func (s *Service) ListVolunteerRegistrations(ctx context.Context, volunteer id.UserID) ([]*models.Registration, error) {
	regs, err := s.store.ListRegistrationsByVolunteer(ctx, volunteer)
	if err != nil {
		return nil, storeErr(err, "registrations")
	}
	return regs, nil
}

func registrationOutcome(err error) string {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeNotOpen:
		return "not_open"
	case dErrors.CodeCapacity:
		return "capacity"
	case dErrors.CodeDuplicate:
		return "duplicate"
	case dErrors.CodeNotFound:
		return "not_found"
	default:
		return "error"
	}
}
