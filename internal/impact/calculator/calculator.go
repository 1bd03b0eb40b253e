// Package calculator derives contribution metrics from events and
// registrations. Every function is pure.
package calculator

import (
	"math"

	eventModels "volunteerhub/internal/event/models"
	id "volunteerhub/pkg/domain"
)

const (
	pointsPerHour           = 10
	pointsPerCompletedEvent = 50
)

// Attendance pairs a registration with the scheduled hours of its event.
type Attendance struct {
	EventID     id.EventID
	VolunteerID id.UserID
	Status      eventModels.RegistrationStatus
	Start       eventModels.TimeOfDay
	End         eventModels.TimeOfDay
}

// NewAttendance builds the record for reg on event.
func NewAttendance(event *eventModels.Event, reg *eventModels.Registration) Attendance {
	return Attendance{
		EventID:     event.ID,
		VolunteerID: reg.VolunteerID,
		Status:      reg.Status,
		Start:       event.StartTime,
		End:         event.EndTime,
	}
}

// Attended reports whether the volunteer was present.
func (a Attendance) Attended() bool {
	return a.Status.Attended()
}

// HoursContributed is the scheduled length in hours. An end at or before the
// start yields 0; there is no wraparound past midnight.
func HoursContributed(start, end eventModels.TimeOfDay) float64 {
	minutes := end.Minutes() - start.Minutes()
	if minutes <= 0 {
		return 0
	}
	return float64(minutes) / 60
}

// TotalHours sums HoursContributed over attended records.
func TotalHours(records []Attendance) float64 {
	var total float64
	for _, r := range records {
		if r.Attended() {
			total += HoursContributed(r.Start, r.End)
		}
	}
	return total
}

// ImpactScore is round(hours*10 + completedEvents*50).
func ImpactScore(totalHours float64, completedEvents int) int {
	return int(math.Round(totalHours*pointsPerHour + float64(completedEvents)*pointsPerCompletedEvent))
}

// AttendanceRate is completed/(completed+missed) as a percentage, 100 when
// nothing has been finalized yet.
func AttendanceRate(completed, missed int) float64 {
	if completed+missed == 0 {
		return 100
	}
	return float64(completed) / float64(completed+missed) * 100
}

// UniqueVolunteerCount counts distinct volunteers across attended records.
func UniqueVolunteerCount(records []Attendance) int {
	seen := make(map[id.UserID]struct{}, len(records))
	for _, r := range records {
		if r.Attended() {
			seen[r.VolunteerID] = struct{}{}
		}
	}
	return len(seen)
}

// Tally counts records per finalized status.
func Tally(records []Attendance) (completed, missed int) {
	for _, r := range records {
		switch r.Status {
		case eventModels.RegistrationStatusCompleted:
			completed++
		case eventModels.RegistrationStatusMissed:
			missed++
		}
	}
	return completed, missed
}
