package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volunteerhub/internal/geo"
	id "volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
)

var (
	now      = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	eventDay = time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC)
)

func validParams() NewEventParams {
	return NewEventParams{
		OrganizerID:          id.NewUserID(),
		Title:                "Riverside cleanup",
		EventDate:            eventDay,
		StartTime:            MustParseTimeOfDay("09:00"),
		EndTime:              MustParseTimeOfDay("12:30"),
		TotalSlots:           10,
		RegistrationDeadline: eventDay.Add(7 * time.Hour),
		Venue:                geo.Point{Lat: 51.5, Lon: -0.12},
	}
}

func TestNewEvent(t *testing.T) {
	t.Run("creates draft by default", func(t *testing.T) {
		e, err := NewEvent(id.NewEventID(), validParams(), "code", now, time.UTC)
		require.NoError(t, err)
		assert.Equal(t, EventStatusDraft, e.Status)
		assert.Equal(t, "code", e.CheckInCode)
		assert.False(t, e.CertificatesIssued)
	})

	t.Run("creates published when requested", func(t *testing.T) {
		p := validParams()
		p.Publish = true
		e, err := NewEvent(id.NewEventID(), p, "code", now, time.UTC)
		require.NoError(t, err)
		assert.Equal(t, EventStatusPublished, e.Status)
	})

	cases := map[string]func(p *NewEventParams){
		"empty title":             func(p *NewEventParams) { p.Title = "  " },
		"zero slots":              func(p *NewEventParams) { p.TotalSlots = 0 },
		"end before start":        func(p *NewEventParams) { p.EndTime = MustParseTimeOfDay("08:00") },
		"end equals start":        func(p *NewEventParams) { p.EndTime = p.StartTime },
		"deadline in the past":    func(p *NewEventParams) { p.RegistrationDeadline = now.Add(-time.Minute) },
		"deadline too close":      func(p *NewEventParams) { p.RegistrationDeadline = eventDay.Add(8*time.Hour + 1*time.Minute) },
		"missing deadline":        func(p *NewEventParams) { p.RegistrationDeadline = time.Time{} },
		"venue latitude overflow": func(p *NewEventParams) { p.Venue.Lat = 120 },
		"missing organizer":       func(p *NewEventParams) { p.OrganizerID = id.UserID{} },
	}
	for name, mutate := range cases {
		t.Run("rejects "+name, func(t *testing.T) {
			p := validParams()
			mutate(&p)
			_, err := NewEvent(id.NewEventID(), p, "code", now, time.UTC)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		})
	}

	t.Run("deadline exactly one hour before start is accepted", func(t *testing.T) {
		p := validParams()
		p.RegistrationDeadline = eventDay.Add(8 * time.Hour)
		_, err := NewEvent(id.NewEventID(), p, "code", now, time.UTC)
		require.NoError(t, err)
	})
}

func TestEventTransitions(t *testing.T) {
	newEvent := func(t *testing.T, status EventStatus) *Event {
		t.Helper()
		e, err := NewEvent(id.NewEventID(), validParams(), "code", now, time.UTC)
		require.NoError(t, err)
		e.Status = status
		return e
	}
	started := eventDay.Add(9 * time.Hour)

	t.Run("publish only from draft", func(t *testing.T) {
		require.NoError(t, newEvent(t, EventStatusDraft).CanPublish())
		for _, s := range []EventStatus{EventStatusPublished, EventStatusCompleted, EventStatusCancelled} {
			assert.True(t, dErrors.HasCode(newEvent(t, s).CanPublish(), dErrors.CodeInvalidState), s)
		}
	})

	t.Run("cancel rejected once terminal", func(t *testing.T) {
		require.NoError(t, newEvent(t, EventStatusDraft).CanCancel())
		require.NoError(t, newEvent(t, EventStatusPublished).CanCancel())
		assert.True(t, dErrors.HasCode(newEvent(t, EventStatusCompleted).CanCancel(), dErrors.CodeInvalidState))
		assert.True(t, dErrors.HasCode(newEvent(t, EventStatusCancelled).CanCancel(), dErrors.CodeInvalidState))
	})

	t.Run("complete requires start time", func(t *testing.T) {
		e := newEvent(t, EventStatusPublished)
		err := e.CanComplete(started.Add(-time.Second), time.UTC)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotStarted))
		require.NoError(t, e.CanComplete(started, time.UTC))
	})

	t.Run("complete from terminal is invalid state", func(t *testing.T) {
		err := newEvent(t, EventStatusCompleted).CanComplete(started, time.UTC)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("start honours location", func(t *testing.T) {
		loc := time.FixedZone("UTC+2", 2*60*60)
		e := newEvent(t, EventStatusPublished)
		assert.Equal(t, started.Add(-2*time.Hour), e.StartsAt(loc).UTC())
	})

	t.Run("certificates need completion and signature", func(t *testing.T) {
		e := newEvent(t, EventStatusPublished)
		assert.True(t, dErrors.HasCode(e.CanIssueCertificates(), dErrors.CodeMissingPrerequisite))
		e.Status = EventStatusCompleted
		assert.True(t, dErrors.HasCode(e.CanIssueCertificates(), dErrors.CodeMissingPrerequisite))
		e.SignatureURL = "https://cdn.example.com/sig.png"
		require.NoError(t, e.CanIssueCertificates())
		e.CertificatesIssued = true
		assert.True(t, dErrors.HasCode(e.CanIssueCertificates(), dErrors.CodeAlreadyIssued))
	})
}

// TestRegistrationGraphIsClosed walks every (from, to) pair and checks that
// only the documented edges are reachable through the model's operations.
func TestRegistrationGraphIsClosed(t *testing.T) {
	allowed := map[[2]RegistrationStatus]bool{
		{RegistrationStatusRegistered, RegistrationStatusCheckedIn}: true,
		{RegistrationStatusCheckedIn, RegistrationStatusRegistered}: true,
		{RegistrationStatusCheckedIn, RegistrationStatusCompleted}:  true,
		{RegistrationStatusRegistered, RegistrationStatusMissed}:    true,
		{RegistrationStatusRegistered, RegistrationStatusCancelled}: true,
		{RegistrationStatusCheckedIn, RegistrationStatusCancelled}:  true,
	}

	ops := map[string]func(r *Registration) error{
		"check_in": func(r *Registration) error { return r.CheckIn(now, nil, CheckInMethodOrganizer) },
		"undo":     func(r *Registration) error { return r.UndoCheckIn(now) },
		"cancel":   func(r *Registration) error { return r.Cancel(now) },
		"finalize": func(r *Registration) error {
			r.Finalize(now)
			return nil
		},
	}

	for _, from := range AllRegistrationStatuses {
		for name, op := range ops {
			r := &Registration{Status: from}
			err := op(r)
			if r.Status == from {
				continue
			}
			require.NoError(t, err, "%s from %s", name, from)
			assert.True(t, allowed[[2]RegistrationStatus{from, r.Status}], "%s moved %s -> %s", name, from, r.Status)
		}
	}
}

func TestRegistrationCheckIn(t *testing.T) {
	r, err := NewRegistration(id.NewRegistrationID(), id.NewEventID(), id.NewUserID(), now)
	require.NoError(t, err)

	loc := &geo.Point{Lat: 1, Lon: 2}
	require.NoError(t, r.CheckIn(now, loc, CheckInMethodSelf))
	assert.Equal(t, RegistrationStatusCheckedIn, r.Status)
	assert.Equal(t, loc, r.CheckInLocation)
	require.NotNil(t, r.CheckedInAt)

	err = r.CheckIn(now, loc, CheckInMethodSelf)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyCheckedIn))

	require.NoError(t, r.UndoCheckIn(now))
	assert.Nil(t, r.CheckedInAt)
	assert.Nil(t, r.CheckInLocation)
}

func TestFinalizeAndCertificates(t *testing.T) {
	attended := &Registration{Status: RegistrationStatusCheckedIn}
	absent := &Registration{Status: RegistrationStatusRegistered}
	cancelled := &Registration{Status: RegistrationStatusCancelled}

	assert.True(t, attended.Finalize(now))
	assert.True(t, absent.Finalize(now))
	assert.False(t, cancelled.Finalize(now))

	assert.Equal(t, RegistrationStatusCompleted, attended.Status)
	assert.Equal(t, RegistrationStatusMissed, absent.Status)

	assert.True(t, attended.MarkCertificateEligible(now))
	assert.False(t, attended.MarkCertificateEligible(now))
	assert.False(t, absent.MarkCertificateEligible(now))
}

func TestTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, 570, tod.Minutes())
	assert.Equal(t, "09:30", tod.String())

	withSeconds, err := ParseTimeOfDay("14:05:59")
	require.NoError(t, err)
	assert.Equal(t, "14:05", withSeconds.String())

	_, err = ParseTimeOfDay("25:00")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	var scanned TimeOfDay
	require.NoError(t, scanned.Scan([]byte("07:15")))
	assert.Equal(t, NewTimeOfDay(7, 15), scanned)
}
