package models

import (
	"strings"
	"time"

	"volunteerhub/internal/geo"
	id "volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
)

// MinDeadlineLead is how long before the event start registration must close.
const MinDeadlineLead = time.Hour

// Event is the aggregate root for a scheduled volunteering activity.
//
// Invariants:
//   - Status moves only along draft -> published -> completed, and draft|published -> cancelled
//   - Completed and cancelled are terminal
//   - CheckInCode is set at construction and never changes
//   - CertificatesIssued flips false -> true at most once
//   - TotalSlots >= 1 and EndTime is after StartTime
type Event struct {
	ID                   id.EventID  `json:"id"`
	OrganizerID          id.UserID   `json:"organizer_id"`
	Title                string      `json:"title"`
	Description          string      `json:"description,omitempty"`
	Status               EventStatus `json:"status"`
	EventDate            time.Time   `json:"event_date"`
	StartTime            TimeOfDay   `json:"start_time"`
	EndTime              TimeOfDay   `json:"end_time"`
	TotalSlots           int         `json:"total_slots"`
	RegistrationDeadline time.Time   `json:"registration_deadline"`
	Venue                geo.Point   `json:"venue"`
	CheckInCode          string      `json:"-"`
	CertificatesIssued   bool        `json:"certificates_issued"`
	SignatureURL         string      `json:"signature_url,omitempty"`
	CoverImageURL        string      `json:"cover_image_url,omitempty"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// NewEventParams carries the organizer's input for a new event.
type NewEventParams struct {
	OrganizerID          id.UserID
	Title                string
	Description          string
	EventDate            time.Time
	StartTime            TimeOfDay
	EndTime              TimeOfDay
	TotalSlots           int
	RegistrationDeadline time.Time
	Venue                geo.Point
	CoverImageURL        string
	Publish              bool
}

// NewEvent validates params against now (in loc) and builds a draft or
// published event. The check-in code is supplied by the caller so generation
// stays outside the model.
func NewEvent(eventID id.EventID, params NewEventParams, checkInCode string, now time.Time, loc *time.Location) (*Event, error) {
	title := strings.TrimSpace(params.Title)
	if params.OrganizerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organizer is required")
	}
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "title is required")
	}
	if len(title) > 200 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "title must be 200 characters or less")
	}
	if params.EventDate.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event date is required")
	}
	if params.RegistrationDeadline.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration deadline is required")
	}
	if params.TotalSlots < 1 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "total slots must be at least 1")
	}
	if params.EndTime.Minutes() <= params.StartTime.Minutes() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "end time must be after start time")
	}
	if err := params.Venue.Validate(); err != nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, err.Error())
	}
	if checkInCode == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "check-in code is required")
	}

	date := params.EventDate
	y, m, d := date.Date()
	date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	start := params.StartTime.On(date, loc)

	if params.RegistrationDeadline.Before(now) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration deadline is in the past")
	}
	if params.RegistrationDeadline.After(start.Add(-MinDeadlineLead)) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration deadline must be at least 1 hour before the event starts")
	}

	status := EventStatusDraft
	if params.Publish {
		status = EventStatusPublished
	}
	return &Event{
		ID:                   eventID,
		OrganizerID:          params.OrganizerID,
		Title:                title,
		Description:          strings.TrimSpace(params.Description),
		Status:               status,
		EventDate:            date,
		StartTime:            params.StartTime,
		EndTime:              params.EndTime,
		TotalSlots:           params.TotalSlots,
		RegistrationDeadline: params.RegistrationDeadline,
		Venue:                params.Venue,
		CheckInCode:          checkInCode,
		CoverImageURL:        strings.TrimSpace(params.CoverImageURL),
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// StartsAt is the instant the event begins in loc.
func (e *Event) StartsAt(loc *time.Location) time.Time {
	return e.StartTime.On(e.EventDate, loc)
}

// EndsAt is the instant the event ends in loc.
func (e *Event) EndsAt(loc *time.Location) time.Time {
	return e.EndTime.On(e.EventDate, loc)
}

// HasStarted reports whether now is at or after the start instant.
func (e *Event) HasStarted(now time.Time, loc *time.Location) bool {
	return !now.Before(e.StartsAt(loc))
}

// IsOwnedBy reports whether organizer created the event.
func (e *Event) IsOwnedBy(organizer id.UserID) bool {
	return e.OrganizerID == organizer
}

// AcceptsRegistrations reports whether volunteers may register at now.
func (e *Event) AcceptsRegistrations(now time.Time) bool {
	return e.Status == EventStatusPublished && !now.After(e.RegistrationDeadline)
}

// CanPublish checks the draft -> published edge.
func (e *Event) CanPublish() error {
	if !e.Status.CanTransitionTo(EventStatusPublished) {
		return dErrors.New(dErrors.CodeInvalidState, "only draft events can be published")
	}
	return nil
}

func (e *Event) ApplyPublish(now time.Time) {
	e.Status = EventStatusPublished
	e.UpdatedAt = now
}

// CanCancel checks the draft|published -> cancelled edge.
func (e *Event) CanCancel() error {
	if !e.Status.CanTransitionTo(EventStatusCancelled) {
		return dErrors.New(dErrors.CodeInvalidState, "event is already "+string(e.Status))
	}
	return nil
}

func (e *Event) ApplyCancel(now time.Time) {
	e.Status = EventStatusCancelled
	e.UpdatedAt = now
}

// CanComplete checks the published -> completed edge and the start-time precondition.
// Terminal events fail with invalid_state before the clock is consulted.
func (e *Event) CanComplete(now time.Time, loc *time.Location) error {
	if !e.Status.CanTransitionTo(EventStatusCompleted) {
		return dErrors.New(dErrors.CodeInvalidState, "only published events can be completed")
	}
	if !e.HasStarted(now, loc) {
		return dErrors.New(dErrors.CodeNotStarted, "event has not started yet")
	}
	return nil
}

func (e *Event) ApplyCompletion(now time.Time) {
	e.Status = EventStatusCompleted
	e.UpdatedAt = now
}

// CanRecordSignature checks whether the signature URL may still change.
func (e *Event) CanRecordSignature() error {
	if e.Status == EventStatusCancelled {
		return dErrors.New(dErrors.CodeInvalidState, "event is cancelled")
	}
	if e.CertificatesIssued {
		return dErrors.New(dErrors.CodeInvalidState, "certificates already issued")
	}
	return nil
}

func (e *Event) ApplySignature(url string, now time.Time) {
	e.SignatureURL = url
	e.UpdatedAt = now
}

// CanIssueCertificates checks the prerequisites for issuing certificates.
func (e *Event) CanIssueCertificates() error {
	if e.Status != EventStatusCompleted {
		return dErrors.New(dErrors.CodeMissingPrerequisite, "event must be completed before issuing certificates")
	}
	if e.SignatureURL == "" {
		return dErrors.New(dErrors.CodeMissingPrerequisite, "organizer signature is required before issuing certificates")
	}
	if e.CertificatesIssued {
		return dErrors.New(dErrors.CodeAlreadyIssued, "certificates already issued")
	}
	return nil
}

// DurationHours is the scheduled length of the event.
func (e *Event) DurationHours() float64 {
	minutes := e.EndTime.Minutes() - e.StartTime.Minutes()
	if minutes <= 0 {
		return 0
	}
	return float64(minutes) / 60
}
