package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type Facility struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
	Address1 string `json:"address1,omitempty"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	ZipCode  string `json:"zipCode,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// Template describes which mats a facility offers and which of them carry
// the handicap and socket features. Mat fields use the matlist notation.
type Template struct {
	ID           int64   `json:"id,omitempty"`
	FacilityID   int64   `json:"facilityId"`
	Name         string  `json:"name" validate:"required"`
	Active       bool    `json:"active"`
	AllMats      string  `json:"allMats" validate:"required,matlist"`
	HandicapMats string  `json:"handicapMats" validate:"omitempty,matlist,matsubset=AllMats"`
	SocketMats   string  `json:"socketMats" validate:"omitempty,matlist,matsubset=AllMats"`
	Comments     *string `json:"comments"`
}

type Guest struct {
	ID         int64   `json:"id,omitempty"`
	FacilityID int64   `json:"facilityId"`
	FirstName  string  `json:"firstName" validate:"required"`
	LastName   string  `json:"lastName" validate:"required"`
	Active     bool    `json:"active"`
	Comments   *string `json:"comments"`
	Favorite   *string `json:"favorite"`
}

// FullName is "First Last".
func (g Guest) FullName() string {
	return strings.TrimSpace(g.FirstName + " " + g.LastName)
}

// Registration is one mat of one facility on one date. A nil GuestID means
// the mat is free.
type Registration struct {
	ID               int64       `json:"id"`
	FacilityID       int64       `json:"facilityId"`
	RegistrationDate string      `json:"registrationDate"`
	MatNumber        int         `json:"matNumber"`
	Features         *string     `json:"features"`
	GuestID          *int64      `json:"guestId"`
	PaymentType      PaymentType `json:"paymentType"`
	PaymentAmount    Amount      `json:"paymentAmount"`
	ShowerTime       *string     `json:"showerTime"`
	WakeupTime       *string     `json:"wakeupTime"`
	Comments         *string     `json:"comments"`
	Guest            *Guest      `json:"guest,omitempty"`
}

// Assigned reports whether a guest occupies the mat.
func (r Registration) Assigned() bool {
	return r.GuestID != nil && *r.GuestID != 0
}

// MatNumberAndFeatures is the display form of the mat, e.g. "12HS".
func (r Registration) MatNumberAndFeatures() string {
	s := strconv.Itoa(r.MatNumber)
	if r.Features != nil {
		s += *r.Features
	}
	return s
}

// Assign is the edit buffer submitted to the assign mutation.
type Assign struct {
	ID            int64       `json:"id"`
	Comments      *string     `json:"comments"`
	GuestID       int64       `json:"guestId" validate:"required"`
	PaymentAmount Amount      `json:"paymentAmount" validate:"amount"`
	PaymentType   PaymentType `json:"paymentType" validate:"paytype"`
	ShowerTime    *string     `json:"showerTime" validate:"omitempty,clocktime"`
	WakeupTime    *string     `json:"wakeupTime" validate:"omitempty,clocktime"`
}

// AssignFrom copies the assignment fields of an occupied registration.
func AssignFrom(r Registration) Assign {
	a := Assign{
		ID:            r.ID,
		Comments:      r.Comments,
		PaymentAmount: r.PaymentAmount,
		PaymentType:   r.PaymentType,
		ShowerTime:    r.ShowerTime,
		WakeupTime:    r.WakeupTime,
	}
	if r.GuestID != nil {
		a.GuestID = *r.GuestID
	}
	return a
}

// Summary holds per-date (or per-range) occupancy counts. TotalMats is filled
// in by the totals engine when the server omits it.
type Summary struct {
	FacilityID       int64  `json:"facilityId,omitempty"`
	RegistrationDate string `json:"registrationDate,omitempty"`
	TotalCash        int    `json:"total$$"`
	TotalAG          int    `json:"totalAG"`
	TotalCT          int    `json:"totalCT"`
	TotalFM          int    `json:"totalFM"`
	TotalMM          int    `json:"totalMM"`
	TotalSW          int    `json:"totalSW"`
	TotalUK          int    `json:"totalUK"`
	TotalWB          int    `json:"totalWB"`
	TotalAssigned    int    `json:"totalAssigned"`
	TotalUnassigned  int    `json:"totalUnassigned"`
	TotalMats        int    `json:"totalMats"`
	TotalAmount      Amount `json:"totalAmount"`
}

// PaymentType is one of the fixed payment codes.
type PaymentType string

const (
	PaymentCash          PaymentType = "$$"
	PaymentAgency        PaymentType = "AG"
	PaymentCityTeam      PaymentType = "CT"
	PaymentFreeMat       PaymentType = "FM"
	PaymentMedicalMat    PaymentType = "MM"
	PaymentSevereWeather PaymentType = "SW"
	PaymentUnknown       PaymentType = "UK"
	PaymentWorkBed       PaymentType = "WB"
)

// PaymentTypes lists the codes in report column order.
var PaymentTypes = []PaymentType{
	PaymentCash, PaymentAgency, PaymentCityTeam, PaymentFreeMat,
	PaymentMedicalMat, PaymentSevereWeather, PaymentUnknown, PaymentWorkBed,
}

var paymentDescriptions = map[PaymentType]string{
	PaymentCash:          "Cash",
	PaymentAgency:        "Agency",
	PaymentCityTeam:      "CityTeam",
	PaymentFreeMat:       "Free Mat",
	PaymentMedicalMat:    "Medical Mat",
	PaymentSevereWeather: "Severe Weather",
	PaymentUnknown:       "Unknown",
	PaymentWorkBed:       "Work Bed",
}

func (p PaymentType) Valid() bool {
	_, ok := paymentDescriptions[p]
	return ok
}

func (p PaymentType) Description() string {
	if d, ok := paymentDescriptions[p]; ok {
		return d
	}
	return string(p)
}

// Amount is a money value as sent by the server. It decodes from a JSON
// number, a JSON string or null and keeps the original text.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
	default:
		*a = Amount(data)
	}
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if a == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(a))
}

// Decimal parses the amount. Empty or malformed amounts are zero.
func (a Amount) Decimal() decimal.Decimal {
	if a == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimSpace(string(a)))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Valid reports whether the amount is empty or a non-negative decimal.
// Surrounding spaces are ignored, as in Decimal.
func (a Amount) Valid() bool {
	if strings.TrimSpace(string(a)) == "" {
		return true
	}
	d, err := decimal.NewFromString(strings.TrimSpace(string(a)))
	return err == nil && !d.IsNegative()
}

// AmountOf formats d with two decimal places.
func AmountOf(d decimal.Decimal) Amount {
	return Amount(d.StringFixed(2))
}
