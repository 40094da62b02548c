// Package totals aggregates registrations and per-date summaries into the
// rows shown by the daily and monthly reports.
package totals

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/craigmcc/cityteam-guests-client/pkg/repository/model"
)

// Headers are the report column titles, in the order returned by Fields.
var Headers = []string{
	"$$", "AG", "CT", "FM", "MM", "SW", "UK", "WB",
	"Used", "%Used", "Empty", "%Empty", "Total Mats", "Total $$",
}

// RegistrationsTotals counts one date's (or any set of) registrations.
// Occupied mats with an unknown payment type count as UK.
func RegistrationsTotals(registrations []model.Registration) model.Summary {
	var s model.Summary
	amount := decimal.Zero
	for _, r := range registrations {
		if r.Assigned() {
			*bucket(&s, r.PaymentType)++
			s.TotalAssigned++
			amount = amount.Add(r.PaymentAmount.Decimal())
		} else {
			s.TotalUnassigned++
		}
		s.TotalMats++
	}
	s.TotalAmount = model.Amount(amount.String())
	return s
}

// SummariesTotals rolls per-date summaries into one row. TotalMats is
// recomputed from the assigned and unassigned counts of each input.
func SummariesTotals(summaries []model.Summary) model.Summary {
	var s model.Summary
	amount := decimal.Zero
	for _, in := range summaries {
		s.TotalCash += in.TotalCash
		s.TotalAG += in.TotalAG
		s.TotalCT += in.TotalCT
		s.TotalFM += in.TotalFM
		s.TotalMM += in.TotalMM
		s.TotalSW += in.TotalSW
		s.TotalUK += in.TotalUK
		s.TotalWB += in.TotalWB
		s.TotalAssigned += in.TotalAssigned
		s.TotalUnassigned += in.TotalUnassigned
		s.TotalMats += in.TotalAssigned + in.TotalUnassigned
		amount = amount.Add(in.TotalAmount.Decimal())
	}
	s.TotalAmount = model.Amount(amount.String())
	return s
}

// Complete fills TotalMats of a server-side summary.
func Complete(s model.Summary) model.Summary {
	s.TotalMats = s.TotalAssigned + s.TotalUnassigned
	return s
}

func bucket(s *model.Summary, p model.PaymentType) *int {
	switch p {
	case model.PaymentCash:
		return &s.TotalCash
	case model.PaymentAgency:
		return &s.TotalAG
	case model.PaymentCityTeam:
		return &s.TotalCT
	case model.PaymentFreeMat:
		return &s.TotalFM
	case model.PaymentMedicalMat:
		return &s.TotalMM
	case model.PaymentSevereWeather:
		return &s.TotalSW
	case model.PaymentWorkBed:
		return &s.TotalWB
	default:
		return &s.TotalUK
	}
}

// PercentAssigned is "60.0%" style; "0.0%" when there are no mats.
func PercentAssigned(s model.Summary) string {
	return percent(s.TotalAssigned, s.TotalMats)
}

func PercentUnassigned(s model.Summary) string {
	return percent(s.TotalUnassigned, s.TotalMats)
}

func percent(part, whole int) string {
	if whole <= 0 {
		return "0.0%"
	}
	p := decimal.NewFromInt(int64(part)).Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(whole)))
	return p.StringFixed(1) + "%"
}

// FormattedAmount is "$" followed by the amount with two decimals.
func FormattedAmount(s model.Summary) string {
	return "$" + s.TotalAmount.Decimal().StringFixed(2)
}

// Fields renders s in Headers order.
func Fields(s model.Summary) []string {
	return []string{
		fmt.Sprint(s.TotalCash),
		fmt.Sprint(s.TotalAG),
		fmt.Sprint(s.TotalCT),
		fmt.Sprint(s.TotalFM),
		fmt.Sprint(s.TotalMM),
		fmt.Sprint(s.TotalSW),
		fmt.Sprint(s.TotalUK),
		fmt.Sprint(s.TotalWB),
		fmt.Sprint(s.TotalAssigned),
		PercentAssigned(s),
		fmt.Sprint(s.TotalUnassigned),
		PercentUnassigned(s),
		fmt.Sprint(s.TotalMats),
		FormattedAmount(s),
	}
}
