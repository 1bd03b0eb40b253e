package models

import (
	"time"

	"volunteerhub/internal/geo"
	id "volunteerhub/pkg/domain"
)

// CompletionSummary reports how registrations were finalized when an event completed.
type CompletionSummary struct {
	Event     *Event `json:"event"`
	Completed int    `json:"completed"`
	Missed    int    `json:"missed"`
}

// CertificateIssuance is the outcome of issuing certificates for an event.
type CertificateIssuance struct {
	EventID       id.EventID `json:"event_id"`
	EligibleCount int        `json:"eligible_count"`
	IssuedAt      time.Time  `json:"issued_at"`
}

// CheckInResult is returned to a volunteer after a successful self check-in.
type CheckInResult struct {
	Registration   *Registration `json:"registration"`
	DistanceMeters float64       `json:"distance_meters"`
}

// SelfCheckInRequest is a volunteer's check-in submission, usually decoded from
// the event QR payload plus the device location.
type SelfCheckInRequest struct {
	EventID     id.EventID
	VolunteerID id.UserID
	Code        string
	Location    geo.Point
}
