package model

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestAmountUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Amount
		dec  string
	}{
		{name: "number", json: `{"paymentAmount": 5.5}`, want: "5.5", dec: "5.5"},
		{name: "string", json: `{"paymentAmount": "5.00"}`, want: "5.00", dec: "5"},
		{name: "null", json: `{"paymentAmount": null}`, want: "", dec: "0"},
		{name: "missing", json: `{}`, want: "", dec: "0"},
		{name: "garbage", json: `{"paymentAmount": "abc"}`, want: "abc", dec: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Registration
			require.NoError(t, json.Unmarshal([]byte(tt.json), &r))
			assert.Equal(t, tt.want, r.PaymentAmount)
			assert.True(t, decimal.RequireFromString(tt.dec).Equal(r.PaymentAmount.Decimal()))
		})
	}
}

func TestAmountValid(t *testing.T) {
	assert.True(t, Amount("").Valid())
	assert.True(t, Amount("5.00").Valid())
	assert.True(t, Amount("0").Valid())
	assert.False(t, Amount("-1").Valid())
	assert.False(t, Amount("five").Valid())

	padded := Amount(" 5.00 ")
	assert.True(t, padded.Valid())
	assert.Equal(t, "5", padded.Decimal().String())
	assert.True(t, Amount("  ").Valid())
	assert.True(t, Amount("  ").Decimal().IsZero())
}

func TestAssignMarshal(t *testing.T) {
	a := Assign{ID: 3, GuestID: 9, PaymentType: PaymentCash, PaymentAmount: "5.00"}
	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3,"comments":null,"guestId":9,"paymentAmount":"5.00",
		"paymentType":"$$","showerTime":null,"wakeupTime":null}`, string(data))
}

func TestRegistration(t *testing.T) {
	guest := int64(7)
	zero := int64(0)

	assert.False(t, Registration{}.Assigned())
	assert.False(t, Registration{GuestID: &zero}.Assigned())
	assert.True(t, Registration{GuestID: &guest}.Assigned())

	assert.Equal(t, "12", Registration{MatNumber: 12}.MatNumberAndFeatures())
	assert.Equal(t, "12HS", Registration{MatNumber: 12, Features: strPtr("HS")}.MatNumberAndFeatures())

	r := Registration{ID: 1, GuestID: &guest, PaymentType: PaymentAgency, PaymentAmount: "2.50", ShowerTime: strPtr("05:00")}
	a := AssignFrom(r)
	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(7), a.GuestID)
	assert.Equal(t, PaymentAgency, a.PaymentType)
	assert.Equal(t, "05:00", *a.ShowerTime)
}

func TestPaymentType(t *testing.T) {
	for _, p := range PaymentTypes {
		assert.True(t, p.Valid(), p)
	}
	assert.False(t, PaymentType("XX").Valid())
	assert.Equal(t, "Severe Weather", PaymentSevereWeather.Description())
	assert.Equal(t, "XX", PaymentType("XX").Description())
}

func TestReplacers(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	guest := int64(4)
	r := Registration{
		ID: 1, FacilityID: 2, RegistrationDate: "2021-03-04", MatNumber: 5,
		Features: strPtr("H"), GuestID: &guest, Comments: strPtr("private"),
		Guest: &Guest{ID: 4, FirstName: "Fred", LastName: "Flintstone", Comments: strPtr("private")},
	}
	log.Info().Object("registration", r).Send()

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, map[string]any{
		"id":               float64(1),
		"registrationDate": "2021-03-04",
		"matNumber":        float64(5),
		"features":         "H",
		"facilityId":       float64(2),
		"guestId":          float64(4),
		"guest.firstName":  "Fred",
		"guest.lastName":   "Flintstone",
	}, got["registration"])

	buf.Reset()
	log.Info().Object("summary", Summary{RegistrationDate: "2021-03-04", TotalAssigned: 3, TotalUnassigned: 2, TotalAmount: "15"}).Send()
	got = nil
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	summary, ok := got["summary"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, summary, 4)
	assert.Equal(t, "15", summary["totalAmount"])
}
