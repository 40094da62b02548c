package model

import "github.com/rs/zerolog"

// Log projections. Only the listed fields reach the log so that comments and
// other free text stay out of it.

func (f Facility) MarshalZerologObject(e *zerolog.Event) {
	e.Int64("id", f.ID).Str("name", f.Name)
}

func (g Guest) MarshalZerologObject(e *zerolog.Event) {
	e.Int64("id", g.ID).Str("firstName", g.FirstName).Str("lastName", g.LastName)
}

func (r Registration) MarshalZerologObject(e *zerolog.Event) {
	e.Int64("id", r.ID).
		Str("registrationDate", r.RegistrationDate).
		Int("matNumber", r.MatNumber)
	if r.Features != nil {
		e.Str("features", *r.Features)
	}
	e.Int64("facilityId", r.FacilityID)
	if r.GuestID != nil {
		e.Int64("guestId", *r.GuestID)
	}
	if r.Guest != nil {
		e.Str("guest.firstName", r.Guest.FirstName).Str("guest.lastName", r.Guest.LastName)
	}
}

func (s Summary) MarshalZerologObject(e *zerolog.Event) {
	e.Str("registrationDate", s.RegistrationDate).
		Int("totalAssigned", s.TotalAssigned).
		Int("totalUnassigned", s.TotalUnassigned).
		Str("totalAmount", string(s.TotalAmount))
}

func (t Template) MarshalZerologObject(e *zerolog.Event) {
	e.Int64("id", t.ID).Str("name", t.Name)
}

func (a Assign) MarshalZerologObject(e *zerolog.Event) {
	e.Int64("id", a.ID).
		Int64("guestId", a.GuestID).
		Str("paymentType", string(a.PaymentType)).
		Str("paymentAmount", string(a.PaymentAmount))
}
