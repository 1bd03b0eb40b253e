package handler

import (
	"strings"
	"time"

	"volunteerhub/internal/event/models"
	"volunteerhub/internal/geo"
	dErrors "volunteerhub/pkg/domain-errors"
)

const dateLayout = "2006-01-02"

// VenueRequest carries venue coordinates.
type VenueRequest struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lon *float64 `json:"lon" validate:"required,longitude"`
}

func (v VenueRequest) point() geo.Point {
	return geo.Point{Lat: *v.Lat, Lon: *v.Lon}
}

// CreateEventRequest is the HTTP request body for POST /events.
type CreateEventRequest struct {
	Title                string       `json:"title" validate:"required,max=200"`
	Description          string       `json:"description" validate:"max=5000"`
	EventDate            string       `json:"event_date" validate:"required,datetime=2006-01-02"`
	StartTime            string       `json:"start_time" validate:"required"`
	EndTime              string       `json:"end_time" validate:"required"`
	TotalSlots           int          `json:"total_slots" validate:"required,min=1,max=100000"`
	RegistrationDeadline time.Time    `json:"registration_deadline" validate:"required"`
	Venue                VenueRequest `json:"venue" validate:"required"`
	CoverImageURL        string       `json:"cover_image_url" validate:"omitempty,http_url,max=2048"`
	Publish              bool         `json:"publish"`

	// Parsed values (populated by Validate)
	parsedDate  time.Time
	parsedStart models.TimeOfDay
	parsedEnd   models.TimeOfDay
}

// Validate parses the date and time-of-day fields.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateEventRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}

	date, err := time.Parse(dateLayout, r.EventDate)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "event_date must be YYYY-MM-DD")
	}
	start, err := models.ParseTimeOfDay(r.StartTime)
	if err != nil {
		return err
	}
	end, err := models.ParseTimeOfDay(r.EndTime)
	if err != nil {
		return err
	}
	r.parsedDate, r.parsedStart, r.parsedEnd = date, start, end
	return nil
}

// Params converts the validated request into service input.
func (r *CreateEventRequest) Params() models.NewEventParams {
	return models.NewEventParams{
		Title:                r.Title,
		Description:          r.Description,
		EventDate:            r.parsedDate,
		StartTime:            r.parsedStart,
		EndTime:              r.parsedEnd,
		TotalSlots:           r.TotalSlots,
		RegistrationDeadline: r.RegistrationDeadline,
		Venue:                r.Venue.point(),
		CoverImageURL:        r.CoverImageURL,
		Publish:              r.Publish,
	}
}

// SignatureRequest is the HTTP request body for PUT /events/{eventID}/signature.
type SignatureRequest struct {
	SignatureURL string `json:"signature_url" validate:"required,max=2048"`
}

func (r *SignatureRequest) Validate() error {
	r.SignatureURL = strings.TrimSpace(r.SignatureURL)
	return nil
}

// SelfCheckInRequest is the HTTP request body for POST /events/{eventID}/check-in.
type SelfCheckInRequest struct {
	Code string   `json:"code" validate:"required,max=64"`
	Lat  *float64 `json:"lat" validate:"required,latitude"`
	Lon  *float64 `json:"lon" validate:"required,longitude"`
}

func (r *SelfCheckInRequest) Validate() error {
	r.Code = strings.TrimSpace(r.Code)
	if r.Code == "" {
		return dErrors.New(dErrors.CodeValidation, "code is required")
	}
	return nil
}

func (r *SelfCheckInRequest) Location() geo.Point {
	return geo.Point{Lat: *r.Lat, Lon: *r.Lon}
}
