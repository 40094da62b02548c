// Package keyboards builds the inline keyboards of the check-in screens and
// owns the callback data they carry.
package keyboards

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/craigmcc/cityteam-guests-client/pkg/domain/checkin"
	"github.com/craigmcc/cityteam-guests-client/pkg/repository/model"
)

// Callback keys. Prefixed keys carry a value after the colon.
const (
	CbBack       = "back"
	CbDates      = "dates"
	CbFacilities = "facilities"
	CbRefresh    = "refresh"
	CbReport     = "report"
	CbMove       = "move"
	CbMoveOK     = "moveok"
	CbRemove     = "rm"
	CbRemoveOK   = "rmok"
	CbRemoveNo   = "rmno"
	CbSave       = "save"
	CbHistory    = "hist"
	CbNextPage   = "gnext"
	CbPrevPage   = "gprev"
	CbNewGuest   = "gnew"

	PFacility = "fac:"  // fac:3
	PDate     = "date:" // date:2021-08-01
	PRow      = "row:"  // row:120
	PGenerate = "gen:"  // gen:9
	PTarget   = "to:"   // to:121
	PGuest    = "g:"    // g:55
	PPay      = "pay:"  // pay:AG
)

func Is(k, prefix string) (string, bool) {
	if strings.HasPrefix(k, prefix) {
		return strings.TrimPrefix(k, prefix), true
	}
	return "", false
}

// ID parses the numeric value of a prefixed key.
func ID(k, prefix string) (int64, bool) {
	v, ok := Is(k, prefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	return id, err == nil
}

const matsPerRow = 3

func button(text, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, data)
}

func backRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(button("⬅️ Back", CbBack))
}

func Facilities(facilities []model.Facility) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(facilities))
	for _, f := range facilities {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(f.Name, PFacility+strconv.FormatInt(f.ID, 10))))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// Dates offers yesterday, today and tomorrow relative to now.
func Dates(now time.Time) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, 3)
	for _, offset := range []int{-1, 0, 1} {
		d := now.AddDate(0, 0, offset).Format("2006-01-02")
		row = append(row, button(HumanDate(d), PDate+d))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		row,
		tgbotapi.NewInlineKeyboardRow(button("🏠 Facilities", CbFacilities)),
	)
}

func HumanDate(iso string) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return t.Format("Mon 02.01")
}

// MatLabel is the button text of a registration: the mat and its guest.
func MatLabel(r model.Registration) string {
	label := r.MatNumberAndFeatures()
	if !r.Assigned() {
		return label + " ·"
	}
	if r.Guest != nil {
		return label + " " + r.Guest.LastName
	}
	return label + " ✓"
}

func List(l checkin.List) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	row := make([]tgbotapi.InlineKeyboardButton, 0, matsPerRow)
	for _, r := range l.Registrations {
		row = append(row, button(MatLabel(r), PRow+strconv.FormatInt(r.ID, 10)))
		if len(row) == matsPerRow {
			rows = append(rows, row)
			row = make([]tgbotapi.InlineKeyboardButton, 0, matsPerRow)
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	if l.CanGenerate {
		for _, t := range l.Templates {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				button("🛏 Generate from "+t.Name, PGenerate+strconv.FormatInt(t.ID, 10))))
		}
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		button("🔄 Refresh", CbRefresh),
		button("📊 Report", CbReport),
		button("📅 Dates", CbDates),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// PaymentTypes marks the selected type.
func PaymentTypes(selected model.PaymentType) [][]tgbotapi.InlineKeyboardButton {
	var rows [][]tgbotapi.InlineKeyboardButton
	row := make([]tgbotapi.InlineKeyboardButton, 0, 4)
	for _, p := range model.PaymentTypes {
		label := string(p)
		if p == selected {
			label = "• " + label
		}
		row = append(row, button(label, PPay+string(p)))
		if len(row) == 4 {
			rows = append(rows, row)
			row = make([]tgbotapi.InlineKeyboardButton, 0, 4)
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

func Assigned(a checkin.Assigned, draft model.Assign) tgbotapi.InlineKeyboardMarkup {
	switch {
	case a.ConfirmingRemove:
		return tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(button("✅ Yes, remove", CbRemoveOK), button("✖️ No", CbRemoveNo)),
		)
	case a.Moving:
		var rows [][]tgbotapi.InlineKeyboardButton
		row := make([]tgbotapi.InlineKeyboardButton, 0, matsPerRow)
		for _, r := range a.Available {
			label := r.MatNumberAndFeatures()
			if a.MoveTarget != nil && a.MoveTarget.ID == r.ID {
				label = "➡️ " + label
			}
			row = append(row, button(label, PTarget+strconv.FormatInt(r.ID, 10)))
			if len(row) == matsPerRow {
				rows = append(rows, row)
				row = make([]tgbotapi.InlineKeyboardButton, 0, matsPerRow)
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
		if a.MoveTarget != nil {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				button(fmt.Sprintf("🚚 Move to %s", a.MoveTarget.MatNumberAndFeatures()), CbMoveOK)))
		}
		rows = append(rows, backRow())
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	rows := PaymentTypes(draft.PaymentType)
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(button("💾 Save", CbSave), button("🚚 Move", CbMove), button("🗑 Remove", CbRemove)),
		tgbotapi.NewInlineKeyboardRow(button("📜 History", CbHistory)),
		backRow(),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func Unassigned(u checkin.Unassigned, draft model.Assign) tgbotapi.InlineKeyboardMarkup {
	if u.Guest != nil {
		rows := PaymentTypes(draft.PaymentType)
		rows = append(rows,
			tgbotapi.NewInlineKeyboardRow(button("✅ Assign "+u.Guest.FullName(), CbSave)),
			tgbotapi.NewInlineKeyboardRow(button("🔁 Other guest", PGuest+strconv.FormatInt(u.Guest.ID, 10)), button("📜 History", CbHistory)),
			backRow(),
		)
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, g := range u.Guests {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(g.FullName(), PGuest+strconv.FormatInt(g.ID, 10))))
	}
	var paging []tgbotapi.InlineKeyboardButton
	if u.Page > 1 {
		paging = append(paging, button("◀️ Previous", CbPrevPage))
	}
	if len(u.Guests) > 0 && !u.LastPage {
		paging = append(paging, button("Next ▶️", CbNextPage))
	}
	if len(paging) > 0 {
		rows = append(rows, paging)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("➕ New guest", CbNewGuest)), backRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// Screen picks the keyboard of the current state.
func Screen(s checkin.State, draft model.Assign) tgbotapi.InlineKeyboardMarkup {
	switch st := s.(type) {
	case checkin.List:
		return List(st)
	case checkin.Assigned:
		return Assigned(st, draft)
	case checkin.Unassigned:
		return Unassigned(st, draft)
	default:
		return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(button("🏠 Facilities", CbFacilities)))
	}
}
