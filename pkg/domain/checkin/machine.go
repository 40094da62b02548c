// Package checkin drives the assignment of guests to mats for one facility
// and date: List, then Assigned or Unassigned for the selected mat, then a
// mutation and back to a freshly fetched List.
package checkin

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/craigmcc/cityteam-guests-client/pkg/repository/model"
)

const (
	DefaultAmount   model.Amount = "5.00"
	DefaultPageSize              = 10
)

type Registrations interface {
	RegistrationsByDate(ctx context.Context, facilityID int64, date string) ([]model.Registration, error)
	AvailableRegistrations(ctx context.Context, facilityID int64, date string) ([]model.Registration, error)
}

type Guests interface {
	GuestsByName(ctx context.Context, facilityID int64, text string, page, pageSize int) ([]model.Guest, error)
	InsertGuest(ctx context.Context, guest model.Guest) (model.Guest, error)
}

type Mutations interface {
	Assign(ctx context.Context, registrationID int64, assign model.Assign) (model.Registration, error)
	Deassign(ctx context.Context, registrationID int64) (model.Registration, error)
	Reassign(ctx context.Context, fromID, toID int64) error
	Generate(ctx context.Context, templateID int64, date string) ([]model.Registration, error)
}

type Templates interface {
	ActiveTemplates(ctx context.Context, facilityID int64) ([]model.Template, error)
}

// Deps are the collaborators of a Machine. Templates may be nil, in which
// case generate is never offered.
type Deps struct {
	Registrations Registrations
	Guests        Guests
	Mutations     Mutations
	Templates     Templates
}

type Option func(*Machine)

func WithLogger(l zerolog.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// WithDefaultAmount sets the payment amount a new assignment starts with.
func WithDefaultAmount(a model.Amount) Option {
	return func(m *Machine) { m.defaultAmount = a }
}

func WithPageSize(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.pageSize = n
		}
	}
}

func WithListeners(ls ...Listener) Option {
	return func(m *Machine) { m.listeners = append(m.listeners, ls...) }
}

// Machine is safe for concurrent use. Fetches may overlap and the latest one
// wins. Only one mutation may be in flight.
type Machine struct {
	deps          Deps
	logger        zerolog.Logger
	defaultAmount model.Amount
	pageSize      int
	listeners     []Listener

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
	busy   bool
}

func New(deps Deps, opts ...Option) *Machine {
	m := &Machine{
		deps:          deps,
		logger:        zerolog.Nop(),
		defaultAmount: DefaultAmount,
		pageSize:      DefaultPageSize,
		state:         None{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// PageSize is the number of guests per search page.
func (m *Machine) PageSize() int {
	return m.pageSize
}

// ---------- plumbing ----------

// supersede cancels any pending request and starts a new generation.
// Callers hold mu.
func (m *Machine) supersede(ctx context.Context) (context.Context, uint64) {
	if m.cancel != nil {
		m.cancel()
	}
	m.gen++
	ctx, m.cancel = context.WithCancel(ctx)
	return ctx, m.gen
}

// release drops the cancel func of generation gen. Callers hold mu.
func (m *Machine) release(gen uint64) {
	if gen == m.gen && m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// fetch runs a read-only call. apply builds the next state from the one
// current when the response arrives; returning ErrStale drops the response.
func (m *Machine) fetch(
	ctx context.Context,
	op string,
	prepare func(State) error,
	call func(context.Context) error,
	apply func(State) (State, error),
) error {
	m.mu.Lock()
	if m.busy {
		m.mu.Unlock()
		return ErrBusy
	}
	if err := prepare(m.state); err != nil {
		m.mu.Unlock()
		return err
	}
	ctx, gen := m.supersede(ctx)
	m.mu.Unlock()

	err := call(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		m.logger.Debug().Str("op", op).Msg("stale response dropped")
		return ErrStale
	}
	m.release(gen)
	if err != nil {
		m.logger.Warn().Err(err).Str("op", op).Msg("fetch failed")
		return &CollaboratorError{Op: op, Err: err}
	}
	next, err := apply(m.state)
	if err != nil {
		return err
	}
	m.state = next
	return nil
}

// mutate runs call as the single in-flight mutation and then re-fetches the
// list it started from. fallback rows are used if that re-fetch fails.
func (m *Machine) mutate(
	ctx context.Context,
	op string,
	prepare func(State) (List, error),
	call func(context.Context, List) (fallback []model.Registration, ev Event, err error),
) error {
	m.mu.Lock()
	if m.busy {
		m.mu.Unlock()
		return ErrBusy
	}
	base, err := prepare(m.state)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.busy = true
	ctx, gen := m.supersede(ctx)
	m.mu.Unlock()

	fallback, ev, err := call(ctx, base)
	if err != nil {
		m.mu.Lock()
		m.busy = false
		m.release(gen)
		m.mu.Unlock()
		m.logger.Warn().Err(err).Str("op", op).Int64("facilityId", base.FacilityID).
			Str("date", base.Date).Msg("mutation failed")
		return &CollaboratorError{Op: op, Err: err}
	}

	rows, ferr := m.deps.Registrations.RegistrationsByDate(ctx, base.FacilityID, base.Date)
	if ferr != nil {
		rows = fallback
	}
	next := withRows(base, rows)

	m.mu.Lock()
	m.busy = false
	m.release(gen)
	m.state = next
	m.mu.Unlock()

	ev.Op = op
	ev.FacilityID = base.FacilityID
	ev.Date = base.Date
	ev.At = time.Now()
	m.logger.Info().Str("op", op).Int64("facilityId", base.FacilityID).Str("date", base.Date).
		Int64("registrationId", ev.RegistrationID).Msg("mutation done")
	m.notify(ctx, ev)

	if ferr != nil {
		m.logger.Warn().Err(ferr).Msg("re-fetch after mutation failed")
		return &CollaboratorError{Op: OpFetchRegistrations, Err: ferr}
	}
	return nil
}

func (m *Machine) notify(ctx context.Context, ev Event) {
	for _, l := range m.listeners {
		l.CheckinEvent(context.WithoutCancel(ctx), ev)
	}
}

// ---------- List ----------

// SelectDate loads the registrations of facilityID on date. A newer call
// supersedes a pending one, whose result is then dropped with ErrStale.
func (m *Machine) SelectDate(ctx context.Context, facilityID int64, date string) error {
	var next List
	return m.fetch(ctx, OpFetchRegistrations,
		func(s State) error {
			switch s.(type) {
			case None, List:
				return nil
			}
			return ErrInvalidTransition
		},
		func(ctx context.Context) error {
			var err error
			next, err = m.load(ctx, facilityID, date)
			return err
		},
		func(State) (State, error) {
			m.logger.Debug().Int64("facilityId", facilityID).Str("date", date).
				Int("registrations", len(next.Registrations)).Msg("list loaded")
			return next, nil
		},
	)
}

func (m *Machine) load(ctx context.Context, facilityID int64, date string) (List, error) {
	rows, err := m.deps.Registrations.RegistrationsByDate(ctx, facilityID, date)
	if err != nil {
		return List{}, err
	}
	l := List{FacilityID: facilityID, Date: date}
	if len(rows) == 0 && m.deps.Templates != nil {
		templates, err := m.deps.Templates.ActiveTemplates(ctx, facilityID)
		if err != nil {
			m.logger.Warn().Err(err).Int64("facilityId", facilityID).Msg("templates unavailable, generate disabled")
		} else {
			l.Templates = templates
		}
	}
	return withRows(l, rows), nil
}

// Generate creates the date's registrations from a template. It is only
// available while the list is empty.
func (m *Machine) Generate(ctx context.Context, templateID int64) error {
	return m.mutate(ctx, OpGenerate,
		func(s State) (List, error) {
			l, ok := s.(List)
			if !ok || !l.CanGenerate {
				return List{}, ErrGenerateUnavailable
			}
			for _, t := range l.Templates {
				if t.ID == templateID {
					return l, nil
				}
			}
			return List{}, ErrGenerateUnavailable
		},
		func(ctx context.Context, base List) ([]model.Registration, Event, error) {
			rows, err := m.deps.Mutations.Generate(ctx, templateID, base.Date)
			return rows, Event{TemplateID: templateID, Count: len(rows)}, err
		},
	)
}

// SelectRow opens the registration's sub-state. Selecting the row already
// open goes back to the List.
func (m *Machine) SelectRow(registrationID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return ErrBusy
	}

	var l List
	switch st := m.state.(type) {
	case List:
		l = st
	case Assigned:
		if st.Registration.ID == registrationID {
			m.state = st.List
			return nil
		}
		l = st.List
	case Unassigned:
		if st.Registration.ID == registrationID {
			m.state = st.List
			return nil
		}
		l = st.List
	default:
		return ErrInvalidTransition
	}

	r, ok := l.Row(registrationID)
	if !ok {
		return ErrUnknownRegistration
	}
	if r.Assigned() {
		m.state = Assigned{List: l, Registration: r, Buffer: model.AssignFrom(r)}
	} else {
		m.state = Unassigned{List: l, Registration: r, Page: 1}
	}
	return nil
}

// Back leaves Assigned or Unassigned without any mutation.
func (m *Machine) Back() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return ErrBusy
	}
	switch st := m.state.(type) {
	case Assigned:
		m.state = st.List
	case Unassigned:
		m.state = st.List
	default:
		return ErrInvalidTransition
	}
	return nil
}

// ---------- Assigned ----------

func assigned(s State) (Assigned, error) {
	a, ok := s.(Assigned)
	if !ok {
		return Assigned{}, ErrInvalidTransition
	}
	return a, nil
}

// Edit submits changed payment details for the open registration.
func (m *Machine) Edit(ctx context.Context, buffer model.Assign) error {
	var target model.Registration
	return m.mutate(ctx, OpAssign,
		func(s State) (List, error) {
			a, err := assigned(s)
			if err != nil {
				return List{}, err
			}
			target = a.Registration
			return a.List, nil
		},
		func(ctx context.Context, base List) ([]model.Registration, Event, error) {
			buffer.ID = target.ID
			buffer.GuestID = *target.GuestID
			updated, err := m.deps.Mutations.Assign(ctx, target.ID, buffer)
			ev := Event{RegistrationID: target.ID, GuestID: buffer.GuestID, MatNumber: target.MatNumber}
			return replaceRow(base.Registrations, updated), ev, err
		},
	)
}

// BeginMove loads the free mats of the date as move destinations.
func (m *Machine) BeginMove(ctx context.Context) error {
	var (
		from      int64
		list      List
		available []model.Registration
	)
	return m.fetch(ctx, OpFetchAvailable,
		func(s State) error {
			a, err := assigned(s)
			if err != nil {
				return err
			}
			from, list = a.Registration.ID, a.List
			return nil
		},
		func(ctx context.Context) error {
			var err error
			available, err = m.deps.Registrations.AvailableRegistrations(ctx, list.FacilityID, list.Date)
			return err
		},
		func(s State) (State, error) {
			a, err := assigned(s)
			if err != nil || a.Registration.ID != from {
				return nil, ErrStale
			}
			a.Moving = true
			a.Available = available
			a.MoveTarget = nil
			a.ConfirmingRemove = false
			return a, nil
		},
	)
}

// ChooseMoveTarget picks the destination among the available mats.
func (m *Machine) ChooseMoveTarget(registrationID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return ErrBusy
	}
	a, err := assigned(m.state)
	if err != nil || !a.Moving {
		return ErrInvalidTransition
	}
	for i := range a.Available {
		r := a.Available[i]
		if r.ID == registrationID && r.ID != a.Registration.ID {
			a.MoveTarget = &r
			m.state = a
			return nil
		}
	}
	return ErrUnknownRegistration
}

// Move transfers the guest to the chosen destination mat.
func (m *Machine) Move(ctx context.Context) error {
	var from, to model.Registration
	return m.mutate(ctx, OpReassign,
		func(s State) (List, error) {
			a, err := assigned(s)
			if err != nil {
				return List{}, err
			}
			if a.MoveTarget == nil {
				return List{}, ErrNoMoveTarget
			}
			from, to = a.Registration, *a.MoveTarget
			return a.List, nil
		},
		func(ctx context.Context, base List) ([]model.Registration, Event, error) {
			err := m.deps.Mutations.Reassign(ctx, from.ID, to.ID)
			ev := Event{RegistrationID: from.ID, TargetID: to.ID, GuestID: *from.GuestID, MatNumber: to.MatNumber}
			return base.Registrations, ev, err
		},
	)
}

// RequestRemove asks for confirmation before the guest is removed.
func (m *Machine) RequestRemove() error {
	return m.setConfirming(true)
}

func (m *Machine) CancelRemove() error {
	return m.setConfirming(false)
}

func (m *Machine) setConfirming(v bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return ErrBusy
	}
	a, err := assigned(m.state)
	if err != nil {
		return err
	}
	a.ConfirmingRemove = v
	m.state = a
	return nil
}

// ConfirmRemove clears the assignment of the open registration.
func (m *Machine) ConfirmRemove(ctx context.Context) error {
	var target model.Registration
	return m.mutate(ctx, OpDeassign,
		func(s State) (List, error) {
			a, err := assigned(s)
			if err != nil {
				return List{}, err
			}
			if !a.ConfirmingRemove {
				return List{}, ErrRemoveNotRequested
			}
			target = a.Registration
			return a.List, nil
		},
		func(ctx context.Context, base List) ([]model.Registration, Event, error) {
			updated, err := m.deps.Mutations.Deassign(ctx, target.ID)
			ev := Event{RegistrationID: target.ID, GuestID: *target.GuestID, MatNumber: target.MatNumber}
			return replaceRow(base.Registrations, updated), ev, err
		},
	)
}

// ---------- Unassigned ----------

func unassigned(s State) (Unassigned, error) {
	u, ok := s.(Unassigned)
	if !ok {
		return Unassigned{}, ErrInvalidTransition
	}
	return u, nil
}

// SearchGuests lists the first page of guests matching text. An empty text
// clears the results without a request.
func (m *Machine) SearchGuests(ctx context.Context, text string) error {
	if text == "" {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.busy {
			return ErrBusy
		}
		u, err := unassigned(m.state)
		if err != nil {
			return err
		}
		u.Search, u.Page, u.Guests, u.LastPage = "", 1, nil, false
		m.state = u
		return nil
	}
	return m.loadGuests(ctx, text, func(Unassigned) (int, error) { return 1, nil })
}

func (m *Machine) NextGuestPage(ctx context.Context) error {
	return m.loadGuests(ctx, "", func(u Unassigned) (int, error) {
		if u.Search == "" || u.LastPage {
			return 0, ErrNoPage
		}
		return u.Page + 1, nil
	})
}

func (m *Machine) PreviousGuestPage(ctx context.Context) error {
	return m.loadGuests(ctx, "", func(u Unassigned) (int, error) {
		if u.Search == "" || u.Page <= 1 {
			return 0, ErrNoPage
		}
		return u.Page - 1, nil
	})
}

// loadGuests fetches one page of guests. An empty text keeps the current
// search.
func (m *Machine) loadGuests(ctx context.Context, text string, page func(Unassigned) (int, error)) error {
	var (
		regID      int64
		facilityID int64
		n          int
		guests     []model.Guest
	)
	return m.fetch(ctx, OpFetchGuests,
		func(s State) error {
			u, err := unassigned(s)
			if err != nil {
				return err
			}
			if n, err = page(u); err != nil {
				return err
			}
			if text == "" {
				text = u.Search
			}
			regID, facilityID = u.Registration.ID, u.List.FacilityID
			return nil
		},
		func(ctx context.Context) error {
			var err error
			guests, err = m.deps.Guests.GuestsByName(ctx, facilityID, text, n, m.pageSize)
			return err
		},
		func(s State) (State, error) {
			u, err := unassigned(s)
			if err != nil || u.Registration.ID != regID {
				return nil, ErrStale
			}
			u.Search, u.Page, u.Guests = text, n, guests
			u.LastPage = len(guests) < m.pageSize
			return u, nil
		},
	)
}

// CreateGuest inserts a new guest of the list's facility and chooses it.
func (m *Machine) CreateGuest(ctx context.Context, guest model.Guest) error {
	m.mu.Lock()
	if m.busy {
		m.mu.Unlock()
		return ErrBusy
	}
	u, err := unassigned(m.state)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.busy = true
	guest.FacilityID = u.List.FacilityID
	guest.Active = true
	m.mu.Unlock()

	created, err := m.deps.Guests.InsertGuest(ctx, guest)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = false
	if err != nil {
		m.logger.Warn().Err(err).Str("op", OpInsertGuest).Msg("guest insert failed")
		return &CollaboratorError{Op: OpInsertGuest, Err: err}
	}
	m.logger.Info().Object("guest", created).Msg("guest created")

	cur, err := unassigned(m.state)
	if err != nil || cur.Registration.ID != u.Registration.ID {
		return ErrStale
	}
	cur.Guests = append([]model.Guest{created}, cur.Guests...)
	m.state = m.chosen(cur, created)
	return nil
}

// ChooseGuest picks a guest from the search results. Choosing the chosen
// guest again un-chooses it. A guest holding another mat on the same date
// is rejected with a DuplicateAssignmentError.
func (m *Machine) ChooseGuest(guestID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return ErrBusy
	}
	u, err := unassigned(m.state)
	if err != nil {
		return err
	}
	if u.Guest != nil && u.Guest.ID == guestID {
		u.Guest, u.Buffer = nil, nil
		m.state = u
		return nil
	}

	var guest *model.Guest
	for i := range u.Guests {
		if u.Guests[i].ID == guestID {
			guest = &u.Guests[i]
			break
		}
	}
	if guest == nil {
		return ErrUnknownGuest
	}
	if err := duplicate(u, guestID); err != nil {
		return err
	}
	m.state = m.chosen(u, *guest)
	return nil
}

func (m *Machine) chosen(u Unassigned, g model.Guest) Unassigned {
	u.Guest = &g
	u.Buffer = &model.Assign{
		ID:            u.Registration.ID,
		GuestID:       g.ID,
		PaymentType:   model.PaymentCash,
		PaymentAmount: m.defaultAmount,
	}
	return u
}

func duplicate(u Unassigned, guestID int64) error {
	if r, ok := u.List.Holder(guestID); ok && r.ID != u.Registration.ID {
		return &DuplicateAssignmentError{GuestID: guestID, MatNumber: r.MatNumber}
	}
	return nil
}

// Complete assigns the chosen guest to the open mat with the given details.
func (m *Machine) Complete(ctx context.Context, buffer model.Assign) error {
	var target model.Registration
	return m.mutate(ctx, OpAssign,
		func(s State) (List, error) {
			u, err := unassigned(s)
			if err != nil {
				return List{}, err
			}
			if u.Guest == nil {
				return List{}, ErrGuestNotChosen
			}
			if err := duplicate(u, u.Guest.ID); err != nil {
				return List{}, err
			}
			target = u.Registration
			buffer.ID = target.ID
			buffer.GuestID = u.Guest.ID
			return u.List, nil
		},
		func(ctx context.Context, base List) ([]model.Registration, Event, error) {
			updated, err := m.deps.Mutations.Assign(ctx, target.ID, buffer)
			ev := Event{RegistrationID: target.ID, GuestID: buffer.GuestID, MatNumber: target.MatNumber}
			return replaceRow(base.Registrations, updated), ev, err
		},
	)
}
