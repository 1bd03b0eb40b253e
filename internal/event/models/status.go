package models

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
)

var eventTransitions = map[EventStatus][]EventStatus{
	EventStatusDraft:     {EventStatusPublished, EventStatusCancelled},
	EventStatusPublished: {EventStatusCompleted, EventStatusCancelled},
}

func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusDraft, EventStatusPublished, EventStatusCompleted, EventStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s EventStatus) IsTerminal() bool {
	return s == EventStatusCompleted || s == EventStatusCancelled
}

// CanTransitionTo reports whether s -> next is an edge of the event graph.
func (s EventStatus) CanTransitionTo(next EventStatus) bool {
	for _, allowed := range eventTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RegistrationStatus is the lifecycle state of a registration.
type RegistrationStatus string

const (
	RegistrationStatusRegistered RegistrationStatus = "registered"
	RegistrationStatusCheckedIn  RegistrationStatus = "checked_in"
	RegistrationStatusCompleted  RegistrationStatus = "completed"
	RegistrationStatusMissed     RegistrationStatus = "missed"
	RegistrationStatusCancelled  RegistrationStatus = "cancelled"
)

// registered <-> checked_in is the only reversible edge (organizer undo).
var registrationTransitions = map[RegistrationStatus][]RegistrationStatus{
	RegistrationStatusRegistered: {RegistrationStatusCheckedIn, RegistrationStatusMissed, RegistrationStatusCancelled},
	RegistrationStatusCheckedIn:  {RegistrationStatusRegistered, RegistrationStatusCompleted, RegistrationStatusCancelled},
}

// AllRegistrationStatuses lists every registration state.
var AllRegistrationStatuses = []RegistrationStatus{
	RegistrationStatusRegistered,
	RegistrationStatusCheckedIn,
	RegistrationStatusCompleted,
	RegistrationStatusMissed,
	RegistrationStatusCancelled,
}

func (s RegistrationStatus) IsValid() bool {
	switch s {
	case RegistrationStatusRegistered, RegistrationStatusCheckedIn, RegistrationStatusCompleted,
		RegistrationStatusMissed, RegistrationStatusCancelled:
		return true
	}
	return false
}

func (s RegistrationStatus) IsTerminal() bool {
	return s == RegistrationStatusCompleted || s == RegistrationStatusMissed || s == RegistrationStatusCancelled
}

// HoldsSlot reports whether a registration in s consumes event capacity.
func (s RegistrationStatus) HoldsSlot() bool {
	return s != RegistrationStatusCancelled
}

// Attended reports whether s counts toward contributed hours.
func (s RegistrationStatus) Attended() bool {
	return s == RegistrationStatusCheckedIn || s == RegistrationStatusCompleted
}

func (s RegistrationStatus) CanTransitionTo(next RegistrationStatus) bool {
	for _, allowed := range registrationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CheckInMethod records who performed a check-in.
type CheckInMethod string

const (
	CheckInMethodSelf      CheckInMethod = "self"
	CheckInMethodOrganizer CheckInMethod = "organizer"
)
