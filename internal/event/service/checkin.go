package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"volunteerhub/internal/event/models"
	dErrors "volunteerhub/pkg/domain-errors"
	"volunteerhub/pkg/platform/sentinel"
)

// SelfCheckIn verifies the code, the event window and the geofence, then moves
// the volunteer's registration to checked_in.
//
// Checks run in a fixed order so the same persisted state always yields the
// same failure: not_found, invalid_code, not_started, out_of_range,
// not_registered, already_checked_in. The submitted code is never logged.
// With an AttemptGuard, a locked-out caller gets too_many_attempts before any
// of these and wrong codes count towards the lock.
func (s *Service) SelfCheckIn(ctx context.Context, req models.SelfCheckInRequest) (result *models.CheckInResult, err error) {
	ctx, span := s.startSpan(ctx, "checkin.Self",
		attribute.String("event_id", req.EventID.String()),
		attribute.String("volunteer_id", req.VolunteerID.String()))
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveTx("self_check_in", time.Now())

	if err := req.Location.Validate(); err != nil {
		return nil, err
	}
	if s.guard != nil {
		if err := s.guard.Check(ctx, req.EventID, req.VolunteerID); err != nil {
			s.rejectSelfCheckIn(ctx, req, err, 0)
			return nil, err
		}
	}

	var distance float64
	err = s.tx.RunInTx(ctx, req.EventID, func(ctx context.Context, store Store) error {
		event, err := store.FindEventForUpdate(ctx, req.EventID)
		if err != nil {
			return storeErr(err, "event")
		}
		if !codesMatch(req.Code, event.CheckInCode) {
			return dErrors.New(dErrors.CodeInvalidCode, "check-in code does not match this event")
		}
		now := s.now()
		if event.Status != models.EventStatusPublished || !event.HasStarted(now, s.loc) {
			return dErrors.New(dErrors.CodeNotStarted, "event is not in progress")
		}

		var inside bool
		distance, inside = s.fence.Check(event.Venue, req.Location)
		if !inside {
			return dErrors.New(dErrors.CodeOutOfRange, "you are too far from the venue to check in")
		}

		reg, err := store.FindActiveRegistration(ctx, req.EventID, req.VolunteerID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotRegistered, "not registered for this event")
			}
			return storeErr(err, "registration")
		}
		location := req.Location
		if err := reg.CheckIn(now, &location, models.CheckInMethodSelf); err != nil {
			return err
		}
		if err := store.UpdateRegistration(ctx, reg, models.RegistrationStatusRegistered); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeAlreadyCheckedIn, "registration was checked in concurrently")
			}
			return storeErr(err, "registration")
		}
		result = &models.CheckInResult{Registration: reg, DistanceMeters: distance}
		return nil
	})
	if err != nil {
		err = storeErr(err, "registration")
		if dErrors.HasCode(err, dErrors.CodeInvalidCode) {
			s.recordWrongCode(ctx, req)
		}
		s.rejectSelfCheckIn(ctx, req, err, distance)
		return nil, err
	}
	if s.guard != nil {
		if clearErr := s.guard.Clear(ctx, req.EventID, req.VolunteerID); clearErr != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to clear check-in lockout", "error", clearErr)
		}
	}

	s.metrics.IncrementCheckIn(string(models.CheckInMethodSelf), "accepted")
	s.metrics.ObserveCheckInDistance(distance)
	s.logAudit(ctx, auditCheckInRecorded,
		"event_id", req.EventID.String(),
		"registration_id", result.Registration.ID.String(),
		"volunteer_id", req.VolunteerID.String(),
		"method", string(models.CheckInMethodSelf),
		"distance_meters", distance)
	return result, nil
}

func (s *Service) rejectSelfCheckIn(ctx context.Context, req models.SelfCheckInRequest, err error, distance float64) {
	s.metrics.IncrementCheckIn(string(models.CheckInMethodSelf), string(dErrors.CodeOf(err)))
	s.logAudit(ctx, auditCheckInRejected,
		"event_id", req.EventID.String(),
		"volunteer_id", req.VolunteerID.String(),
		"reason", string(dErrors.CodeOf(err)),
		"distance_meters", distance)
}

// recordWrongCode counts the failure. The volunteer still sees invalid_code;
// the lock applies from the next attempt.
func (s *Service) recordWrongCode(ctx context.Context, req models.SelfCheckInRequest) {
	if s.guard == nil {
		return
	}
	if err := s.guard.RecordFailure(ctx, req.EventID, req.VolunteerID); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to record wrong check-in code", "error", err)
	}
}
