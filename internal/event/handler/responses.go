package handler

import (
	"volunteerhub/internal/event/models"
	id "volunteerhub/pkg/domain"
)

// EventResponse is an event as seen by viewer. The check-in code is only
// included for the event's organizer.
type EventResponse struct {
	*models.Event
	CheckInCode string `json:"check_in_code,omitempty"`
}

func toEventResponse(event *models.Event, viewer id.UserID) *EventResponse {
	resp := &EventResponse{Event: event}
	if event.IsOwnedBy(viewer) {
		resp.CheckInCode = event.CheckInCode
	}
	return resp
}

// EventListResponse wraps a list of events.
type EventListResponse struct {
	Events []*EventResponse `json:"events"`
}

func toEventList(events []*models.Event, viewer id.UserID) *EventListResponse {
	out := make([]*EventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, toEventResponse(event, viewer))
	}
	return &EventListResponse{Events: out}
}

// RegistrationListResponse wraps a list of registrations.
type RegistrationListResponse struct {
	Registrations []*models.Registration `json:"registrations"`
}

func toRegistrationList(regs []*models.Registration) *RegistrationListResponse {
	if regs == nil {
		regs = []*models.Registration{}
	}
	return &RegistrationListResponse{Registrations: regs}
}
