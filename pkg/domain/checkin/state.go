package checkin

import "github.com/craigmcc/cityteam-guests-client/pkg/repository/model"

// State is one of None, List, Assigned or Unassigned.
type State interface {
	isState()
}

// None is the state before a date is chosen.
type None struct{}

// List shows every mat registration of one facility and date.
type List struct {
	FacilityID    int64
	Date          string
	Registrations []model.Registration
	// Templates are the facility's active templates, loaded only when the
	// date has no registrations yet.
	Templates   []model.Template
	CanGenerate bool
}

// Row returns the registration with the given id.
func (l List) Row(id int64) (model.Registration, bool) {
	for _, r := range l.Registrations {
		if r.ID == id {
			return r, true
		}
	}
	return model.Registration{}, false
}

// Holder returns the registration held by guestID, if any.
func (l List) Holder(guestID int64) (model.Registration, bool) {
	for _, r := range l.Registrations {
		if r.Assigned() && *r.GuestID == guestID {
			return r, true
		}
	}
	return model.Registration{}, false
}

// Assigned works on an occupied mat: edit, move or remove.
type Assigned struct {
	List         List
	Registration model.Registration
	Buffer       model.Assign

	// Moving is set once the available mats have been loaded.
	Moving     bool
	Available  []model.Registration
	MoveTarget *model.Registration

	ConfirmingRemove bool
}

// Unassigned works on a free mat. Step one picks a guest, step two (Buffer
// set) completes the payment details.
type Unassigned struct {
	List         List
	Registration model.Registration

	Search   string
	Page     int
	Guests   []model.Guest
	LastPage bool

	Guest  *model.Guest
	Buffer *model.Assign
}

func (None) isState()       {}
func (List) isState()       {}
func (Assigned) isState()   {}
func (Unassigned) isState() {}

// Current returns the List a state belongs to.
func Current(s State) (List, bool) {
	switch st := s.(type) {
	case List:
		return st, true
	case Assigned:
		return st.List, true
	case Unassigned:
		return st.List, true
	}
	return List{}, false
}

func withRows(l List, rows []model.Registration) List {
	l.Registrations = rows
	l.CanGenerate = len(rows) == 0 && len(l.Templates) > 0
	return l
}

func replaceRow(rows []model.Registration, updated model.Registration) []model.Registration {
	out := make([]model.Registration, len(rows))
	copy(out, rows)
	for i := range out {
		if out[i].ID == updated.ID {
			out[i] = updated
		}
	}
	return out
}
