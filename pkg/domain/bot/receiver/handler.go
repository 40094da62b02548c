// Package receiver turns telegram updates into check-in actions and renders
// the resulting state back into the chat.
package receiver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/craigmcc/cityteam-guests-client/pkg/domain/bot/receiver/keyboards"
	"github.com/craigmcc/cityteam-guests-client/pkg/domain/checkin"
	"github.com/craigmcc/cityteam-guests-client/pkg/domain/report"
	"github.com/craigmcc/cityteam-guests-client/pkg/domain/templates"
	"github.com/craigmcc/cityteam-guests-client/pkg/repository/model"
	"github.com/craigmcc/cityteam-guests-client/pkg/repository/store"
	"github.com/craigmcc/cityteam-guests-client/pkg/utils/transform"
)

const (
	stateDates = "dates"
	stateList  = "list"
)

// Bot sends and edits messages; *sender.Processor implements it.
type Bot interface {
	Deliver(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(ctx context.Context, c tgbotapi.Chattable) error
}

type Catalog interface {
	ActiveFacilities(ctx context.Context) ([]model.Facility, error)
}

type History interface {
	GuestRegistrations(ctx context.Context, guestID int64) ([]model.Registration, error)
}

type Persistence interface {
	LoadSession(ctx context.Context, userID int64) (*store.Session, error)
	SaveSession(ctx context.Context, userID int64, s store.Session) error
}

type Reports interface {
	Daily(ctx context.Context, facilityID int64, date string) (report.Daily, error)
	Monthly(ctx context.Context, facilityID int64, month string) (report.Monthly, error)
}

type TemplateSaver interface {
	Save(ctx context.Context, t model.Template) (templates.Saved, error)
}

type Validator interface {
	Guest(ctx context.Context, g model.Guest) error
	Assign(a model.Assign) error
}

// Metrics counts updates and failures; nil disables counting.
type Metrics interface {
	Update(kind string)
	Failure(kind string)
}

type Deps struct {
	Bot         Bot
	Sessions    *Store
	Catalog     Catalog
	History     History
	Persistence Persistence
	Reports     Reports
	Templates   TemplateSaver
	Validator   Validator
	Metrics     Metrics
}

type Handler struct {
	Deps
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

func NewHandler(deps Deps, timeout time.Duration, logger zerolog.Logger) *Handler {
	return &Handler{
		Deps:    deps,
		timeout: timeout,
		logger:  logger.With().Str("component", "receiver").Logger(),
		now:     time.Now,
	}
}

func (h *Handler) count(kind string) {
	if h.Metrics != nil {
		h.Metrics.Update(kind)
	}
}

func (h *Handler) fail(err error) {
	if h.Metrics != nil {
		h.Metrics.Failure(Kind(err))
	}
}

// Handle processes one update. Updates of the same user must not be handled
// concurrently; the Dispatcher guarantees that.
func (h *Handler) Handle(ctx context.Context, u tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	switch {
	case u.Message != nil && u.Message.From != nil:
		h.count("message")
		h.onMessage(ctx, u.Message)
	case u.CallbackQuery != nil:
		h.count("callback")
		h.onCallback(ctx, u.CallbackQuery)
	default:
		h.count("ignored")
	}
}

// restore resumes the facility and date saved before a restart.
func (h *Handler) restore(ctx context.Context, sess *Session) {
	if sess.restored {
		return
	}
	sess.restored = true
	saved, err := h.Persistence.LoadSession(ctx, sess.UserID)
	if err != nil {
		h.logger.Warn().Err(err).Int64("userId", sess.UserID).Msg("session not restored")
		return
	}
	if saved.FacilityID == 0 {
		return
	}
	sess.FacilityID = saved.FacilityID
	sess.FacilityName = h.facilityName(ctx, saved.FacilityID)
	if saved.Date != "" {
		if err := sess.Machine.SelectDate(ctx, saved.FacilityID, saved.Date); err != nil {
			h.logger.Warn().Err(err).Int64("userId", sess.UserID).Str("date", saved.Date).Msg("saved date not reloaded")
		}
	}
}

func (h *Handler) persist(ctx context.Context, sess *Session, state, date string) {
	s := store.Session{State: state, ChatID: sess.ChatID, FacilityID: sess.FacilityID, Date: date}
	if err := h.Persistence.SaveSession(ctx, sess.UserID, s); err != nil {
		h.logger.Warn().Err(err).Int64("userId", sess.UserID).Msg("session not saved")
	}
}

func (h *Handler) facilityName(ctx context.Context, id int64) string {
	facilities, err := h.Catalog.ActiveFacilities(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("facilities unavailable")
	}
	for _, f := range facilities {
		if f.ID == id {
			return f.Name
		}
	}
	return fmt.Sprintf("Facility %d", id)
}

// screen renders the current view of sess.
func (h *Handler) screen(ctx context.Context, sess *Session) (string, tgbotapi.InlineKeyboardMarkup) {
	st := sess.Machine.State()
	view := sess.View
	if _, none := st.(checkin.None); none && view == ViewCheckin {
		view = ViewDates
	}
	if view == ViewDates && sess.FacilityID == 0 {
		view = ViewFacilities
	}

	switch view {
	case ViewFacilities:
		facilities, err := h.Catalog.ActiveFacilities(ctx)
		if err != nil {
			return Describe(err), keyboards.Screen(checkin.None{}, model.Assign{})
		}
		return "Choose a facility:", keyboards.Facilities(facilities)
	case ViewDates:
		return fmt.Sprintf("%s: choose a date:", sess.FacilityName), keyboards.Dates(h.now())
	}

	name := sess.FacilityName
	if l, ok := checkin.Current(st); ok && l.FacilityID != sess.FacilityID {
		name = h.facilityName(ctx, l.FacilityID)
	}
	draft := sess.Draft()
	return ScreenText(name, st, draft), keyboards.Screen(st, draft)
}

func (h *Handler) sendScreen(ctx context.Context, sess *Session) {
	text, kb := h.screen(ctx, sess)
	msg := tgbotapi.NewMessage(sess.ChatID, text)
	msg.ReplyMarkup = kb
	if _, err := h.Bot.Deliver(ctx, msg); err != nil {
		h.logger.Error().Err(err).Int64("userId", sess.UserID).Msg("send screen failed")
	}
}

func (h *Handler) editScreen(ctx context.Context, sess *Session, messageID int) {
	text, kb := h.screen(ctx, sess)
	edit := tgbotapi.NewEditMessageTextAndMarkup(sess.ChatID, messageID, text, kb)
	if _, err := h.Bot.Deliver(ctx, edit); err != nil {
		h.logger.Debug().Err(err).Int64("userId", sess.UserID).Msg("edit screen failed")
	}
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	if _, err := h.Bot.Deliver(ctx, tgbotapi.NewMessage(chatID, text)); err != nil {
		h.logger.Error().Err(err).Int64("chatId", chatID).Msg("reply failed")
	}
}

// ---------- messages ----------

func (h *Handler) onMessage(ctx context.Context, m *tgbotapi.Message) {
	sess := h.Sessions.Get(m.From.ID)
	sess.ChatID = m.Chat.ID
	h.restore(ctx, sess)

	if m.IsCommand() {
		h.onCommand(ctx, sess, m.Command(), strings.TrimSpace(m.CommandArguments()))
		return
	}

	text := strings.TrimSpace(m.Text)
	if text == "" {
		return
	}
	if err := h.onText(ctx, sess, text); err != nil {
		h.failed(ctx, sess, err)
		return
	}
	h.sendScreen(ctx, sess)
}

// notice is an error whose text is shown to the user as is.
type notice string

func (n notice) Error() string { return string(n) }

const (
	errUseButtons = notice("Please use the buttons 👆")
	errNoFacility = notice("Choose a facility first with /start.")
	errDateFormat = notice("Dates are written YYYY-MM-DD.")
)

const askGuestName = `Send the new guest's name as "First Last" or "First Last; comments".`

func (h *Handler) onText(ctx context.Context, sess *Session, text string) error {
	if sess.Input == InputNewGuest {
		guest := ParseGuest(text)
		list, ok := checkin.Current(sess.Machine.State())
		if !ok {
			return checkin.ErrInvalidTransition
		}
		guest.FacilityID = list.FacilityID
		if err := h.Validator.Guest(ctx, guest); err != nil {
			return err
		}
		if err := sess.Machine.CreateGuest(ctx, guest); err != nil {
			return err
		}
		sess.Input = InputAuto
		return nil
	}

	switch st := sess.Machine.State().(type) {
	case checkin.Unassigned:
		if st.Guest == nil {
			return sess.Machine.SearchGuests(ctx, text)
		}
		return h.setDetails(sess, text)
	case checkin.Assigned:
		if st.Moving || st.ConfirmingRemove {
			return errUseButtons
		}
		return h.setDetails(sess, text)
	}
	return errUseButtons
}

func (h *Handler) setDetails(sess *Session, text string) error {
	draft := ParseDetails(text, sess.Draft())
	if err := h.Validator.Assign(draft); err != nil {
		return err
	}
	sess.SetDraft(draft)
	return nil
}

func (h *Handler) failed(ctx context.Context, sess *Session, err error) {
	if errors.Is(err, checkin.ErrStale) {
		return
	}
	h.fail(err)
	h.logger.Info().Err(err).Int64("userId", sess.UserID).Msg("action failed")
	h.reply(ctx, sess.ChatID, Describe(err))
}

func (h *Handler) onCommand(ctx context.Context, sess *Session, command, args string) {
	var err error
	switch command {
	case "start":
		sess.Input, sess.View = InputAuto, ViewFacilities
		h.sendScreen(ctx, sess)
	case "cancel":
		sess.Input, sess.View = InputAuto, ViewCheckin
		h.sendScreen(ctx, sess)
	case "date":
		err = h.selectDate(ctx, sess, args)
		if err == nil {
			h.sendScreen(ctx, sess)
		}
	case "report":
		err = h.daily(ctx, sess)
	case "month":
		err = h.monthly(ctx, sess, args)
	case "history":
		err = h.history(ctx, sess)
	case "template":
		err = h.template(ctx, sess, args)
	default:
		h.reply(ctx, sess.ChatID, "Commands: /start, /date YYYY-MM-DD, /report, /month YYYY-MM, /history, /template, /cancel")
	}
	if err != nil {
		h.failed(ctx, sess, err)
	}
}

func (h *Handler) selectDate(ctx context.Context, sess *Session, date string) error {
	if sess.FacilityID == 0 {
		return errNoFacility
	}
	if _, err := time.Parse(report.DateLayout, date); err != nil {
		return errDateFormat
	}
	if err := sess.Machine.SelectDate(ctx, sess.FacilityID, date); err != nil {
		return err
	}
	sess.Input, sess.View = InputAuto, ViewCheckin
	h.persist(ctx, sess, stateList, date)
	return nil
}

func (h *Handler) daily(ctx context.Context, sess *Session) error {
	if sess.FacilityID == 0 {
		return errNoFacility
	}
	facilityID, date := sess.FacilityID, h.now().Format(report.DateLayout)
	if l, ok := checkin.Current(sess.Machine.State()); ok {
		facilityID, date = l.FacilityID, l.Date
	}
	d, err := h.Reports.Daily(ctx, facilityID, date)
	if err != nil {
		return err
	}
	h.reply(ctx, sess.ChatID, d.Text())
	return nil
}

func (h *Handler) monthly(ctx context.Context, sess *Session, month string) error {
	if sess.FacilityID == 0 {
		return errNoFacility
	}
	if month == "" {
		month = h.now().Format(report.MonthLayout)
	}
	m, err := h.Reports.Monthly(ctx, sess.FacilityID, month)
	if err != nil {
		return err
	}
	h.reply(ctx, sess.ChatID, m.Text())
	return nil
}

func (h *Handler) history(ctx context.Context, sess *Session) error {
	var (
		guestID int64
		name    string
	)
	switch st := sess.Machine.State().(type) {
	case checkin.Assigned:
		guestID, name = *st.Registration.GuestID, guestName(st.Registration)
	case checkin.Unassigned:
		if st.Guest == nil {
			return checkin.ErrGuestNotChosen
		}
		guestID, name = st.Guest.ID, st.Guest.FullName()
	default:
		return checkin.ErrGuestNotChosen
	}
	regs, err := h.History.GuestRegistrations(ctx, guestID)
	if err != nil {
		return err
	}
	h.reply(ctx, sess.ChatID, HistoryText(name, regs))
	return nil
}

func (h *Handler) template(ctx context.Context, sess *Session, args string) error {
	if sess.FacilityID == 0 {
		return errNoFacility
	}
	t, err := templates.ParseCommand(sess.FacilityID, args)
	if err != nil {
		return err
	}
	saved, err := h.Templates.Save(ctx, t)
	if err != nil {
		return err
	}
	verb := "updated"
	if saved.Created {
		verb = "created"
	}
	h.reply(ctx, sess.ChatID, fmt.Sprintf("Template %q %s.\n%s", saved.Template.Name, verb, templates.Preview(saved.Mats)))
	return nil
}

// ---------- callbacks ----------

func (h *Handler) onCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	sess := h.Sessions.Get(cq.From.ID)
	if cq.Message != nil {
		sess.ChatID = cq.Message.Chat.ID
	}
	h.restore(ctx, sess)

	text := ""
	if err := h.onData(ctx, sess, cq.Data); err != nil && !errors.Is(err, checkin.ErrStale) {
		h.fail(err)
		text = Describe(err)
		h.logger.Info().Err(err).Int64("userId", sess.UserID).Str("data", cq.Data).Msg("action failed")
	}

	if cq.Message != nil {
		h.editScreen(ctx, sess, cq.Message.MessageID)
	}
	answer := tgbotapi.NewCallback(cq.ID, text)
	answer.ShowAlert = len(text) > 60
	if err := h.Bot.Request(ctx, answer); err != nil {
		h.logger.Debug().Err(err).Msg("callback answer failed")
	}
}

func (h *Handler) onData(ctx context.Context, sess *Session, data string) error {
	m := sess.Machine
	if data != keyboards.CbNewGuest {
		sess.Input = InputAuto
	}
	sess.View = ViewCheckin

	if id, ok := keyboards.ID(data, keyboards.PFacility); ok {
		sess.FacilityID, sess.FacilityName = id, h.facilityName(ctx, id)
		sess.View = ViewDates
		h.persist(ctx, sess, stateDates, "")
		return nil
	}
	if date, ok := keyboards.Is(data, keyboards.PDate); ok {
		return h.selectDate(ctx, sess, date)
	}
	if id, ok := keyboards.ID(data, keyboards.PRow); ok {
		return sess.reset(m.SelectRow(id))
	}
	if id, ok := keyboards.ID(data, keyboards.PGenerate); ok {
		return m.Generate(ctx, id)
	}
	if id, ok := keyboards.ID(data, keyboards.PTarget); ok {
		return m.ChooseMoveTarget(id)
	}
	if id, ok := keyboards.ID(data, keyboards.PGuest); ok {
		return sess.reset(m.ChooseGuest(id))
	}
	if p, ok := keyboards.Is(data, keyboards.PPay); ok {
		draft := sess.Draft()
		draft.PaymentType = model.PaymentType(p)
		if err := h.Validator.Assign(draft); err != nil {
			return err
		}
		sess.SetDraft(draft)
		return nil
	}

	switch data {
	case keyboards.CbFacilities:
		sess.View = ViewFacilities
	case keyboards.CbDates:
		sess.View = ViewDates
	case keyboards.CbRefresh:
		l, ok := checkin.Current(m.State())
		if !ok {
			return checkin.ErrInvalidTransition
		}
		return m.SelectDate(ctx, l.FacilityID, l.Date)
	case keyboards.CbReport:
		return h.daily(ctx, sess)
	case keyboards.CbBack:
		return sess.reset(m.Back())
	case keyboards.CbMove:
		return m.BeginMove(ctx)
	case keyboards.CbMoveOK:
		return m.Move(ctx)
	case keyboards.CbRemove:
		return m.RequestRemove()
	case keyboards.CbRemoveOK:
		return m.ConfirmRemove(ctx)
	case keyboards.CbRemoveNo:
		return m.CancelRemove()
	case keyboards.CbSave:
		return h.save(ctx, sess)
	case keyboards.CbHistory:
		return h.history(ctx, sess)
	case keyboards.CbNextPage:
		return m.NextGuestPage(ctx)
	case keyboards.CbPrevPage:
		return m.PreviousGuestPage(ctx)
	case keyboards.CbNewGuest:
		if _, ok := m.State().(checkin.Unassigned); !ok {
			return checkin.ErrInvalidTransition
		}
		sess.Input = InputNewGuest
		h.reply(ctx, sess.ChatID, askGuestName)
	default:
		return checkin.ErrInvalidTransition
	}
	return nil
}

func (h *Handler) save(ctx context.Context, sess *Session) error {
	draft := sess.Draft()
	if err := h.Validator.Assign(draft); err != nil {
		return err
	}
	switch sess.Machine.State().(type) {
	case checkin.Assigned:
		return sess.Machine.Edit(ctx, draft)
	case checkin.Unassigned:
		return sess.Machine.Complete(ctx, draft)
	}
	return checkin.ErrInvalidTransition
}

// ---------- text parsing ----------

// ParseGuest reads "First Last[; comments]". Everything before the last word
// is the first name.
func ParseGuest(text string) model.Guest {
	name, comments, _ := strings.Cut(text, ";")
	words := strings.Fields(name)
	var g model.Guest
	switch len(words) {
	case 0:
	case 1:
		g.FirstName = words[0]
	default:
		g.FirstName = strings.Join(words[:len(words)-1], " ")
		g.LastName = words[len(words)-1]
	}
	g.Comments = transform.NilIfEmpty(strings.TrimSpace(comments))
	return g
}

// ParseDetails applies "amount; shower; wakeup; comments" to draft. Missing
// trailing parts keep their values; empty parts clear them.
func ParseDetails(text string, draft model.Assign) model.Assign {
	parts := strings.SplitN(text, ";", 4)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) > 0 {
		draft.PaymentAmount = model.Amount(strings.TrimPrefix(parts[0], "$"))
	}
	if len(parts) > 1 {
		draft.ShowerTime = transform.NilIfEmpty(parts[1])
	}
	if len(parts) > 2 {
		draft.WakeupTime = transform.NilIfEmpty(parts[2])
	}
	if len(parts) > 3 {
		draft.Comments = transform.NilIfEmpty(parts[3])
	}
	return draft
}
