// Package models holds the derived analytics returned by the impact service.
package models

import (
	"time"

	eventModels "volunteerhub/internal/event/models"
	id "volunteerhub/pkg/domain"
)

// OrgAnalytics summarizes everything an organizer has run.
type OrgAnalytics struct {
	OrganizerID        id.UserID `json:"organizer_id"`
	TotalEvents        int       `json:"total_events"`
	DraftEvents        int       `json:"draft_events"`
	PublishedEvents    int       `json:"published_events"`
	CompletedEvents    int       `json:"completed_events"`
	CancelledEvents    int       `json:"cancelled_events"`
	TotalRegistrations int       `json:"total_registrations"`
	TotalHours         float64   `json:"total_hours"`
	UniqueVolunteers   int       `json:"unique_volunteers"`
	AttendanceRate     float64   `json:"attendance_rate"`
	ImpactScore        int       `json:"impact_score"`
	ComputedAt         time.Time `json:"computed_at"`
}

// VolunteerImpact summarizes one volunteer's contribution.
type VolunteerImpact struct {
	VolunteerID     id.UserID       `json:"volunteer_id"`
	TotalHours      float64         `json:"total_hours"`
	EventsCompleted int             `json:"events_completed"`
	EventsMissed    int             `json:"events_missed"`
	AttendanceRate  float64         `json:"attendance_rate"`
	ImpactScore     int             `json:"impact_score"`
	Upcoming        []UpcomingEvent `json:"upcoming"`
	ComputedAt      time.Time       `json:"computed_at"`
}

// UpcomingEvent is a published event the volunteer holds a slot for that has
// not started yet.
type UpcomingEvent struct {
	EventID        id.EventID                     `json:"event_id"`
	RegistrationID id.RegistrationID              `json:"registration_id"`
	Title          string                         `json:"title"`
	StartsAt       time.Time                      `json:"starts_at"`
	EndsAt         time.Time                      `json:"ends_at"`
	Status         eventModels.RegistrationStatus `json:"status"`
}
