package receiver

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/craigmcc/cityteam-guests-client/pkg/repository/model"
	"github.com/craigmcc/cityteam-guests-client/pkg/repository/store"
)

// fakeServer is an in-memory guests server for one facility.
type fakeServer struct {
	mu          sync.Mutex
	facilities  []model.Facility
	rows        map[string][]model.Registration
	guests      []model.Guest
	templates   []model.Template
	assigns     []model.Assign
	historyRows []model.Registration
	nextID      int64
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		facilities: []model.Facility{{ID: 3, Name: "Portland", Active: true}},
		rows:       map[string][]model.Registration{},
		nextID:     1000,
	}
}

func (f *fakeServer) ActiveFacilities(context.Context) ([]model.Facility, error) {
	return f.facilities, nil
}

func (f *fakeServer) RegistrationsByDate(_ context.Context, _ int64, date string) ([]model.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Registration, len(f.rows[date]))
	copy(out, f.rows[date])
	return out, nil
}

func (f *fakeServer) AvailableRegistrations(_ context.Context, _ int64, date string) ([]model.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Registration
	for _, r := range f.rows[date] {
		if !r.Assigned() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeServer) SummaryRange(context.Context, int64, string, string) ([]model.Summary, error) {
	return []model.Summary{{RegistrationDate: "2021-08-01", TotalCash: 1, TotalAssigned: 1, TotalUnassigned: 1, TotalAmount: "5.00"}}, nil
}

func (f *fakeServer) GuestsByName(_ context.Context, _ int64, text string, _, _ int) ([]model.Guest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Guest
	for _, g := range f.guests {
		if strings.Contains(strings.ToLower(g.FullName()), strings.ToLower(text)) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeServer) InsertGuest(_ context.Context, g model.Guest) (model.Guest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	g.ID = f.nextID
	f.guests = append(f.guests, g)
	return g, nil
}

func (f *fakeServer) CheckGuestNameUnique(_ context.Context, _ int64, first, last string, excludingID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.guests {
		if g.FirstName == first && g.LastName == last && g.ID != excludingID {
			return false, nil
		}
	}
	return true, nil
}

func (f *fakeServer) GuestRegistrations(_ context.Context, _ int64) ([]model.Registration, error) {
	return f.historyRows, nil
}

func (f *fakeServer) update(id int64, fn func(*model.Registration)) model.Registration {
	for date, rows := range f.rows {
		for i := range rows {
			if rows[i].ID == id {
				fn(&f.rows[date][i])
				return f.rows[date][i]
			}
		}
	}
	return model.Registration{}
}

func (f *fakeServer) Assign(_ context.Context, id int64, a model.Assign) (model.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assigns = append(f.assigns, a)
	return f.update(id, func(r *model.Registration) {
		gid := a.GuestID
		r.GuestID = &gid
		r.PaymentType, r.PaymentAmount = a.PaymentType, a.PaymentAmount
		r.ShowerTime, r.WakeupTime, r.Comments = a.ShowerTime, a.WakeupTime, a.Comments
	}), nil
}

func (f *fakeServer) Deassign(_ context.Context, id int64) (model.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.update(id, func(r *model.Registration) {
		r.GuestID, r.Guest, r.PaymentType, r.PaymentAmount = nil, nil, "", ""
	}), nil
}

func (f *fakeServer) Reassign(_ context.Context, fromID, toID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var from model.Registration
	f.update(fromID, func(r *model.Registration) {
		from = *r
		r.GuestID, r.Guest = nil, nil
	})
	f.update(toID, func(r *model.Registration) {
		r.GuestID, r.Guest, r.PaymentType, r.PaymentAmount = from.GuestID, from.Guest, from.PaymentType, from.PaymentAmount
	})
	return nil
}

func (f *fakeServer) Generate(_ context.Context, _ int64, date string) ([]model.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for n := 1; n <= 3; n++ {
		f.nextID++
		f.rows[date] = append(f.rows[date], model.Registration{ID: f.nextID, FacilityID: 3, RegistrationDate: date, MatNumber: n})
	}
	return f.rows[date], nil
}

func (f *fakeServer) ActiveTemplates(context.Context, int64) ([]model.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.templates, nil
}

func (f *fakeServer) CheckTemplateNameUnique(context.Context, int64, string, int64) (bool, error) {
	return true, nil
}

func (f *fakeServer) InsertTemplate(_ context.Context, t model.Template) (model.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t.ID = f.nextID
	f.templates = append(f.templates, t)
	return t, nil
}

func (f *fakeServer) UpdateTemplate(_ context.Context, t model.Template) (model.Template, error) {
	return t, nil
}

type fakePersistence struct {
	mu       sync.Mutex
	sessions map[int64]store.Session
}

func (p *fakePersistence) LoadSession(_ context.Context, userID int64) (*store.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.sessions[userID]; ok {
		return &s, nil
	}
	return &store.Session{State: store.StateStart}, nil
}

func (p *fakePersistence) SaveSession(_ context.Context, userID int64, s store.Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[userID] = s
	return nil
}

// fakeBot records everything the handler sends.
type fakeBot struct {
	mu      sync.Mutex
	sent    []tgbotapi.Chattable
	answers []tgbotapi.CallbackConfig
	nextID  int
}

func (b *fakeBot) Deliver(_ context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, c)
	b.nextID++
	return tgbotapi.Message{MessageID: b.nextID}, nil
}

func (b *fakeBot) Request(_ context.Context, c tgbotapi.Chattable) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		b.answers = append(b.answers, cb)
	}
	return nil
}

// last returns the text and keyboard of the last message sent or edited.
func (b *fakeBot) last() (string, *tgbotapi.InlineKeyboardMarkup) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.sent) == 0 {
		return "", nil
	}
	switch c := b.sent[len(b.sent)-1].(type) {
	case tgbotapi.MessageConfig:
		kb, _ := c.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
		return c.Text, &kb
	case tgbotapi.EditMessageTextConfig:
		return c.Text, c.ReplyMarkup
	}
	return "", nil
}

func (b *fakeBot) lastAnswer() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.answers) == 0 {
		return ""
	}
	return b.answers[len(b.answers)-1].Text
}

func (b *fakeBot) texts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, c := range b.sent {
		switch c := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, c.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, c.Text)
		}
	}
	return out
}
