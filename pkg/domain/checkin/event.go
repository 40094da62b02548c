package checkin

import (
	"context"
	"time"
)

// Event describes a successful mutation.
type Event struct {
	Op             string    `json:"op"`
	FacilityID     int64     `json:"facilityId"`
	Date           string    `json:"registrationDate"`
	RegistrationID int64     `json:"registrationId,omitempty"`
	TargetID       int64     `json:"targetId,omitempty"`
	GuestID        int64     `json:"guestId,omitempty"`
	MatNumber      int       `json:"matNumber,omitempty"`
	TemplateID     int64     `json:"templateId,omitempty"`
	Count          int       `json:"count,omitempty"`
	At             time.Time `json:"at"`
}

// Listener is notified after every successful mutation. Implementations must
// not block for long; the machine calls them synchronously.
type Listener interface {
	CheckinEvent(ctx context.Context, ev Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, ev Event)

func (f ListenerFunc) CheckinEvent(ctx context.Context, ev Event) {
	f(ctx, ev)
}
