package models

import (
	"time"

	"volunteerhub/internal/geo"
	id "volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
)

// Registration records a volunteer's claim on one slot of an event.
//
// Invariants:
//   - At most one non-cancelled registration per (EventID, VolunteerID)
//   - Status moves only along the registration graph (see status.go)
//   - CheckedInAt and CheckInLocation are set together on check-in and cleared on undo
type Registration struct {
	ID                  id.RegistrationID  `json:"id"`
	EventID             id.EventID         `json:"event_id"`
	VolunteerID         id.UserID          `json:"volunteer_id"`
	Status              RegistrationStatus `json:"status"`
	RegisteredAt        time.Time          `json:"registered_at"`
	CheckedInAt         *time.Time         `json:"checked_in_at,omitempty"`
	CheckInLocation     *geo.Point         `json:"check_in_location,omitempty"`
	CheckInMethod       CheckInMethod      `json:"check_in_method,omitempty"`
	CertificateEligible bool               `json:"certificate_eligible"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

func NewRegistration(regID id.RegistrationID, eventID id.EventID, volunteerID id.UserID, now time.Time) (*Registration, error) {
	if eventID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event is required")
	}
	if volunteerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "volunteer is required")
	}
	return &Registration{
		ID:           regID,
		EventID:      eventID,
		VolunteerID:  volunteerID,
		Status:       RegistrationStatusRegistered,
		RegisteredAt: now,
		UpdatedAt:    now,
	}, nil
}

func (r *Registration) transition(next RegistrationStatus, now time.Time) error {
	if !r.Status.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvalidState, "registration cannot move from "+string(r.Status)+" to "+string(next))
	}
	r.Status = next
	r.UpdatedAt = now
	return nil
}

// CheckIn moves registered -> checked_in. location is nil for organizer check-ins.
func (r *Registration) CheckIn(now time.Time, location *geo.Point, method CheckInMethod) error {
	if r.Status != RegistrationStatusRegistered {
		return dErrors.New(dErrors.CodeAlreadyCheckedIn, "registration is "+string(r.Status))
	}
	if err := r.transition(RegistrationStatusCheckedIn, now); err != nil {
		return err
	}
	at := now
	r.CheckedInAt = &at
	r.CheckInLocation = location
	r.CheckInMethod = method
	return nil
}

// UndoCheckIn moves checked_in -> registered and clears check-in audit fields.
func (r *Registration) UndoCheckIn(now time.Time) error {
	if r.Status != RegistrationStatusCheckedIn {
		return dErrors.New(dErrors.CodeInvalidState, "registration is not checked in")
	}
	if err := r.transition(RegistrationStatusRegistered, now); err != nil {
		return err
	}
	r.CheckedInAt = nil
	r.CheckInLocation = nil
	r.CheckInMethod = ""
	return nil
}

// Finalize applies event completion: checked_in -> completed, registered -> missed.
// Returns false when the registration is already terminal and nothing changed.
func (r *Registration) Finalize(now time.Time) bool {
	switch r.Status {
	case RegistrationStatusCheckedIn:
		_ = r.transition(RegistrationStatusCompleted, now)
		return true
	case RegistrationStatusRegistered:
		_ = r.transition(RegistrationStatusMissed, now)
		return true
	}
	return false
}

// Cancel moves any non-terminal registration to cancelled, freeing its slot.
func (r *Registration) Cancel(now time.Time) error {
	if r.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeInvalidState, "registration is already "+string(r.Status))
	}
	return r.transition(RegistrationStatusCancelled, now)
}

// MarkCertificateEligible flags a completed registration for certificate generation.
func (r *Registration) MarkCertificateEligible(now time.Time) bool {
	if r.Status != RegistrationStatusCompleted || r.CertificateEligible {
		return false
	}
	r.CertificateEligible = true
	r.UpdatedAt = now
	return true
}
