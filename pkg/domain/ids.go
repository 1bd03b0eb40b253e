// Package domain holds typed identifiers shared across bounded contexts.
//
// Each ID wraps uuid.UUID so an EventID can never be passed where a
// RegistrationID is expected. Parse* functions are the trust boundary for
// identifiers arriving from HTTP paths and tokens.
package domain

import (
	"database/sql/driver"
	"strings"

	"github.com/google/uuid"

	dErrors "volunteerhub/pkg/domain-errors"
)

type (
	EventID        uuid.UUID
	RegistrationID uuid.UUID
	BroadcastID    uuid.UUID
	// UserID identifies any authenticated person. Organizer and volunteer are
	// roles of the same identity, so both are UserIDs.
	UserID uuid.UUID
)

func NewEventID() EventID               { return EventID(uuid.New()) }
func NewRegistrationID() RegistrationID { return RegistrationID(uuid.New()) }
func NewBroadcastID() BroadcastID       { return BroadcastID(uuid.New()) }
func NewUserID() UserID                 { return UserID(uuid.New()) }

func (id EventID) String() string        { return uuid.UUID(id).String() }
func (id RegistrationID) String() string { return uuid.UUID(id).String() }
func (id BroadcastID) String() string    { return uuid.UUID(id).String() }
func (id UserID) String() string         { return uuid.UUID(id).String() }

func (id EventID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id RegistrationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id BroadcastID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }

func (id EventID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id RegistrationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id BroadcastID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id UserID) MarshalText() ([]byte, error)         { return uuid.UUID(id).MarshalText() }

func (id *EventID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RegistrationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *BroadcastID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *UserID) UnmarshalText(b []byte) error         { return (*uuid.UUID)(id).UnmarshalText(b) }

// Value and Scan let typed IDs travel through database/sql as uuid columns.
func (id EventID) Value() (driver.Value, error)        { return uuid.UUID(id).Value() }
func (id RegistrationID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }
func (id BroadcastID) Value() (driver.Value, error)    { return uuid.UUID(id).Value() }
func (id UserID) Value() (driver.Value, error)         { return uuid.UUID(id).Value() }

func (id *EventID) Scan(src any) error        { return (*uuid.UUID)(id).Scan(src) }
func (id *RegistrationID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }
func (id *BroadcastID) Scan(src any) error    { return (*uuid.UUID)(id).Scan(src) }
func (id *UserID) Scan(src any) error         { return (*uuid.UUID)(id).Scan(src) }

func ParseEventID(s string) (EventID, error) {
	u, err := parseUUID(s, "event id")
	return EventID(u), err
}

func ParseRegistrationID(s string) (RegistrationID, error) {
	u, err := parseUUID(s, "registration id")
	return RegistrationID(u), err
}

func ParseBroadcastID(s string) (BroadcastID, error) {
	u, err := parseUUID(s, "broadcast id")
	return BroadcastID(u), err
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must not be nil")
	}
	return u, nil
}
