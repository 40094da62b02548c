package receiver

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/craigmcc/cityteam-guests-client/pkg/domain/checkin"
	"github.com/craigmcc/cityteam-guests-client/pkg/repository/model"
)

// Input is what free text typed by the user means.
type Input int

const (
	InputAuto Input = iota // derived from the check-in state
	InputNewGuest
)

// View is the screen shown instead of, or before, the check-in state.
type View int

const (
	ViewCheckin View = iota
	ViewFacilities
	ViewDates
)

type draftKey struct {
	registrationID int64
	guestID        int64
}

// Session is one staff member's conversation with the bot.
type Session struct {
	UserID       int64
	ChatID       int64
	FacilityID   int64
	FacilityName string
	Input        Input
	View         View
	Machine      *checkin.Machine

	restored bool
	draft    model.Assign
	draftFor draftKey
}

// Draft is the payment details being edited for the open mat. It starts
// from the machine's buffer and is reset whenever a mat or guest is opened,
// closed or left with Back.
func (s *Session) Draft() model.Assign {
	var (
		key    draftKey
		buffer model.Assign
	)
	switch st := s.Machine.State().(type) {
	case checkin.Assigned:
		key, buffer = draftKey{registrationID: st.Registration.ID}, st.Buffer
	case checkin.Unassigned:
		if st.Buffer == nil {
			s.resetDraft()
			return model.Assign{}
		}
		key, buffer = draftKey{registrationID: st.Registration.ID, guestID: st.Guest.ID}, *st.Buffer
	default:
		s.resetDraft()
		return model.Assign{}
	}
	if key != s.draftFor {
		s.draft, s.draftFor = buffer, key
	}
	return s.draft
}

func (s *Session) SetDraft(a model.Assign) {
	s.Draft()
	s.draft = a
}

// reset drops the draft once err is nil, so a failed transition keeps it.
func (s *Session) reset(err error) error {
	if err == nil {
		s.resetDraft()
	}
	return err
}

// resetDraft forgets edits so the next Draft starts from the machine's buffer.
func (s *Session) resetDraft() {
	s.draft, s.draftFor = model.Assign{}, draftKey{}
}

// ---------- Session store (in memory, one machine per user) ----------

type Store struct {
	mu         sync.RWMutex
	m          map[int64]*Session
	newMachine func(userID int64) *checkin.Machine
}

func NewStore(newMachine func(userID int64) *checkin.Machine) *Store {
	return &Store{m: make(map[int64]*Session), newMachine: newMachine}
}

func (s *Store) Get(userID int64) *Session {
	s.mu.RLock()
	sess, ok := s.m[userID]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.m[userID]; ok {
		return sess
	}
	sess = &Session{UserID: userID, Machine: s.newMachine(userID)}
	s.m[userID] = sess
	return sess
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// EventRecorder stores the audit trail of check-in mutations.
type EventRecorder interface {
	RecordEvent(ctx context.Context, userID int64, ev checkin.Event) (uuid.UUID, error)
}

// AuditListener records every mutation made by userID.
func AuditListener(rec EventRecorder, userID int64, timeout time.Duration, logger zerolog.Logger) checkin.Listener {
	return checkin.ListenerFunc(func(ctx context.Context, ev checkin.Event) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		id, err := rec.RecordEvent(ctx, userID, ev)
		if err != nil {
			logger.Error().Err(err).Int64("userId", userID).Str("op", ev.Op).Msg("audit event not recorded")
			return
		}
		logger.Debug().Str("eventId", id.String()).Int64("userId", userID).Str("op", ev.Op).Msg("audit event recorded")
	})
}
