package keyboards

import (
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craigmcc/cityteam-guests-client/pkg/domain/checkin"
	"github.com/craigmcc/cityteam-guests-client/pkg/repository/model"
)

func ptr[T any](v T) *T { return &v }

func data(t *testing.T, kb tgbotapi.InlineKeyboardMarkup) [][]string {
	t.Helper()
	out := make([][]string, len(kb.InlineKeyboard))
	for i, row := range kb.InlineKeyboard {
		for _, b := range row {
			require.NotNil(t, b.CallbackData)
			assert.LessOrEqual(t, len(*b.CallbackData), 64, "telegram limits callback data to 64 bytes")
			out[i] = append(out[i], *b.CallbackData)
		}
	}
	return out
}

func TestIs(t *testing.T) {
	v, ok := Is("date:2021-08-01", PDate)
	assert.True(t, ok)
	assert.Equal(t, "2021-08-01", v)

	_, ok = Is("row:1", PDate)
	assert.False(t, ok)

	id, ok := ID("row:120", PRow)
	assert.True(t, ok)
	assert.Equal(t, int64(120), id)

	_, ok = ID("row:abc", PRow)
	assert.False(t, ok)
}

func TestDates(t *testing.T) {
	now := time.Date(2021, 8, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, [][]string{
		{"date:2021-07-31", "date:2021-08-01", "date:2021-08-02"},
		{CbFacilities},
	}, data(t, Dates(now)))
	assert.Equal(t, "Sun 01.08", HumanDate("2021-08-01"))
	assert.Equal(t, "garbage", HumanDate("garbage"))
}

func TestMatLabel(t *testing.T) {
	assert.Equal(t, "3H ·", MatLabel(model.Registration{MatNumber: 3, Features: ptr("H")}))
	assert.Equal(t, "4 Smith", MatLabel(model.Registration{MatNumber: 4, GuestID: ptr(int64(9)), Guest: &model.Guest{LastName: "Smith"}}))
	assert.Equal(t, "5 ✓", MatLabel(model.Registration{MatNumber: 5, GuestID: ptr(int64(9))}))
}

func TestList(t *testing.T) {
	l := checkin.List{Registrations: []model.Registration{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}}
	assert.Equal(t, [][]string{
		{"row:1", "row:2", "row:3"},
		{"row:4"},
		{CbRefresh, CbReport, CbDates},
	}, data(t, List(l)))

	empty := checkin.List{Templates: []model.Template{{ID: 9, Name: "Standard"}}, CanGenerate: true}
	assert.Equal(t, [][]string{
		{"gen:9"},
		{CbRefresh, CbReport, CbDates},
	}, data(t, List(empty)))
}

func TestAssigned(t *testing.T) {
	a := checkin.Assigned{Registration: model.Registration{ID: 1}}
	got := data(t, Assigned(a, model.Assign{PaymentType: model.PaymentAgency}))
	assert.Equal(t, []string{"pay:$$", "pay:AG", "pay:CT", "pay:FM"}, got[0])
	assert.Equal(t, []string{CbSave, CbMove, CbRemove}, got[2])
	assert.Equal(t, "• AG", Assigned(a, model.Assign{PaymentType: model.PaymentAgency}).InlineKeyboard[0][1].Text)

	a.ConfirmingRemove = true
	assert.Equal(t, [][]string{{CbRemoveOK, CbRemoveNo}}, data(t, Assigned(a, model.Assign{})))

	a.ConfirmingRemove = false
	a.Moving = true
	a.Available = []model.Registration{{ID: 7, MatNumber: 7}, {ID: 8, MatNumber: 8}}
	assert.Equal(t, [][]string{{"to:7", "to:8"}, {CbBack}}, data(t, Assigned(a, model.Assign{})))

	a.MoveTarget = &a.Available[1]
	assert.Equal(t, [][]string{{"to:7", "to:8"}, {CbMoveOK}, {CbBack}}, data(t, Assigned(a, model.Assign{})))
}

func TestUnassigned(t *testing.T) {
	u := checkin.Unassigned{Page: 1, Guests: []model.Guest{{ID: 5, FirstName: "Ann", LastName: "Lee"}}}
	assert.Equal(t, [][]string{{"g:5"}, {CbNextPage}, {CbNewGuest}, {CbBack}}, data(t, Unassigned(u, model.Assign{})))

	u.Page, u.LastPage = 2, true
	assert.Equal(t, [][]string{{"g:5"}, {CbPrevPage}, {CbNewGuest}, {CbBack}}, data(t, Unassigned(u, model.Assign{})))

	u.Guest = &u.Guests[0]
	got := data(t, Unassigned(u, model.Assign{PaymentType: model.PaymentCash}))
	assert.Equal(t, []string{CbSave}, got[2])
	assert.Equal(t, []string{"g:5", CbHistory}, got[3])
}

func TestScreen(t *testing.T) {
	assert.Equal(t, [][]string{{CbFacilities}}, data(t, Screen(checkin.None{}, model.Assign{})))
}
