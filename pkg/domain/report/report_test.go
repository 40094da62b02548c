package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/craigmcc/cityteam-guests-client/pkg/repository/model"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) ActiveFacilities(ctx context.Context) ([]model.Facility, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]model.Facility)
	return out, args.Error(1)
}

func (m *MockSource) RegistrationsByDate(ctx context.Context, facilityID int64, date string) ([]model.Registration, error) {
	args := m.Called(ctx, facilityID, date)
	out, _ := args.Get(0).([]model.Registration)
	return out, args.Error(1)
}

func (m *MockSource) SummaryRange(ctx context.Context, facilityID int64, from, to string) ([]model.Summary, error) {
	args := m.Called(ctx, facilityID, from, to)
	out, _ := args.Get(0).([]model.Summary)
	return out, args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, text string) (int, error) {
	args := m.Called(ctx, text)
	return args.Int(0), args.Error(1)
}

func guestID(id int64) *int64 { return &id }

func TestMonthRange(t *testing.T) {
	tests := []struct {
		month    string
		from, to string
		wantErr  bool
	}{
		{month: "2021-08", from: "2021-08-01", to: "2021-08-31"},
		{month: "2024-02", from: "2024-02-01", to: "2024-02-29"},
		{month: "2023-02", from: "2023-02-01", to: "2023-02-28"},
		{month: "2021-12", from: "2021-12-01", to: "2021-12-31"},
		{month: "2021-13", wantErr: true},
		{month: "August", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.month, func(t *testing.T) {
			from, to, err := MonthRange(tt.month)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMonthFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.from, from)
			assert.Equal(t, tt.to, to)
		})
	}
}

func TestDaily(t *testing.T) {
	ctx := context.Background()
	source := new(MockSource)
	source.On("ActiveFacilities", ctx).Return([]model.Facility{{ID: 3, Name: "Portland"}}, nil)
	source.On("RegistrationsByDate", ctx, int64(3), "2021-08-01").Return([]model.Registration{
		{ID: 1, MatNumber: 1, GuestID: guestID(9), PaymentType: model.PaymentCash, PaymentAmount: "5.00"},
		{ID: 2, MatNumber: 2, GuestID: guestID(10), PaymentType: model.PaymentAgency, PaymentAmount: "0.00"},
		{ID: 3, MatNumber: 3},
	}, nil)

	d, err := NewService(source, zerolog.Nop()).Daily(ctx, 3, "2021-08-01")
	require.NoError(t, err)
	assert.Equal(t, "Portland", d.Facility)
	assert.Equal(t, 2, d.Totals.TotalAssigned)
	assert.Equal(t, 1, d.Totals.TotalUnassigned)
	assert.Equal(t, "2021-08-01", d.Totals.RegistrationDate)

	text := d.Text()
	assert.Contains(t, text, "Daily Summary for Portland on 2021-08-01")
	assert.Contains(t, text, "%Used      66.7%")
	assert.Contains(t, text, "Total $$   $5.00")
}

func TestDailyUnknownFacility(t *testing.T) {
	ctx := context.Background()
	source := new(MockSource)
	source.On("ActiveFacilities", ctx).Return(nil, errors.New("down"))
	source.On("RegistrationsByDate", ctx, int64(7), "2021-08-01").Return(nil, nil)

	d, err := NewService(source, zerolog.Nop()).Daily(ctx, 7, "2021-08-01")
	require.NoError(t, err)
	assert.Equal(t, "Facility 7", d.Facility)
	assert.Equal(t, 0, d.Totals.TotalMats)
}

func TestMonthly(t *testing.T) {
	ctx := context.Background()
	source := new(MockSource)
	source.On("ActiveFacilities", ctx).Return([]model.Facility{{ID: 3, Name: "Portland"}}, nil)
	source.On("SummaryRange", ctx, int64(3), "2021-08-01", "2021-08-31").Return([]model.Summary{
		{RegistrationDate: "2021-08-01", TotalCash: 2, TotalAssigned: 2, TotalUnassigned: 2, TotalAmount: "10.00"},
		{RegistrationDate: "2021-08-02", TotalAG: 1, TotalAssigned: 1, TotalUnassigned: 3, TotalAmount: "0"},
	}, nil)

	m, err := NewService(source, zerolog.Nop()).Monthly(ctx, 3, "2021-08")
	require.NoError(t, err)
	require.Len(t, m.Days, 2)
	assert.Equal(t, 4, m.Days[0].TotalMats)
	assert.Equal(t, 3, m.Totals.TotalAssigned)
	assert.Equal(t, 8, m.Totals.TotalMats)
	assert.Contains(t, m.Text(), "2021-08-02")
	assert.Contains(t, m.Text(), "$10.00")
	assert.Contains(t, m.Text(), "%Used")
	assert.NotContains(t, m.Text(), "%!")

	_, err = NewService(source, zerolog.Nop()).Monthly(ctx, 3, "bad")
	assert.ErrorIs(t, err, ErrMonthFormat)
}

func TestMonthlyEmpty(t *testing.T) {
	m := Monthly{Facility: "Portland", Month: "2021-08"}
	assert.Contains(t, m.Text(), "No registrations this month.")
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	_, err := NewScheduler("not a schedule", nil, nil, nil, time.Second, zerolog.Nop())
	assert.Error(t, err)
}

func TestPostYesterday(t *testing.T) {
	ctx := context.Background()
	source := new(MockSource)
	notifier := new(MockNotifier)

	source.On("ActiveFacilities", ctx).Return([]model.Facility{{ID: 3, Name: "Portland"}}, nil)
	source.On("RegistrationsByDate", ctx, int64(3), "2021-07-31").Return([]model.Registration{{ID: 1}}, nil)
	source.On("RegistrationsByDate", ctx, int64(4), "2021-07-31").Return(nil, errors.New("boom"))
	notifier.On("Send", ctx, mock.MatchedBy(func(text string) bool {
		return strings.HasPrefix(text, "Daily Summary for Portland on 2021-07-31\n")
	})).Return(10, nil).Once()

	s, err := NewScheduler("0 0 6 * * *", NewService(source, zerolog.Nop()), notifier, []int64{3, 4}, time.Second, zerolog.Nop())
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2021, 8, 1, 6, 0, 0, 0, time.UTC) }

	assert.Equal(t, 1, s.PostYesterday(ctx))
	notifier.AssertExpectations(t)
}
