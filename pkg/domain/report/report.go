// Package report builds the daily and monthly summary reports.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/craigmcc/cityteam-guests-client/pkg/domain/totals"
	"github.com/craigmcc/cityteam-guests-client/pkg/repository/model"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

var ErrMonthFormat = errors.New("month must be YYYY-MM")

type Source interface {
	ActiveFacilities(ctx context.Context) ([]model.Facility, error)
	RegistrationsByDate(ctx context.Context, facilityID int64, date string) ([]model.Registration, error)
	SummaryRange(ctx context.Context, facilityID int64, from, to string) ([]model.Summary, error)
}

type Service struct {
	source Source
	logger zerolog.Logger
}

func NewService(source Source, logger zerolog.Logger) *Service {
	return &Service{source: source, logger: logger.With().Str("component", "report").Logger()}
}

type Daily struct {
	Facility string
	Date     string
	Totals   model.Summary
}

type Monthly struct {
	Facility string
	Month    string
	Days     []model.Summary
	Totals   model.Summary
}

// MonthRange returns the first and last date of month ("2021-08").
func MonthRange(month string) (from, to string, err error) {
	start, err := time.Parse(MonthLayout, month)
	if err != nil {
		return "", "", ErrMonthFormat
	}
	end := start.AddDate(0, 1, -1)
	return start.Format(DateLayout), end.Format(DateLayout), nil
}

func (s *Service) Daily(ctx context.Context, facilityID int64, date string) (Daily, error) {
	const op = "report.Daily"
	regs, err := s.source.RegistrationsByDate(ctx, facilityID, date)
	if err != nil {
		return Daily{}, fmt.Errorf("%s: %w", op, err)
	}
	d := Daily{
		Facility: s.facilityName(ctx, facilityID),
		Date:     date,
		Totals:   totals.RegistrationsTotals(regs),
	}
	d.Totals.FacilityID = facilityID
	d.Totals.RegistrationDate = date
	s.logger.Debug().Object("summary", d.Totals).Msg("daily report")
	return d, nil
}

func (s *Service) Monthly(ctx context.Context, facilityID int64, month string) (Monthly, error) {
	const op = "report.Monthly"
	from, to, err := MonthRange(month)
	if err != nil {
		return Monthly{}, err
	}
	summaries, err := s.source.SummaryRange(ctx, facilityID, from, to)
	if err != nil {
		return Monthly{}, fmt.Errorf("%s: %w", op, err)
	}
	days := make([]model.Summary, len(summaries))
	for i, sum := range summaries {
		days[i] = totals.Complete(sum)
	}
	return Monthly{
		Facility: s.facilityName(ctx, facilityID),
		Month:    month,
		Days:     days,
		Totals:   totals.SummariesTotals(days),
	}, nil
}

func (s *Service) facilityName(ctx context.Context, facilityID int64) string {
	facilities, err := s.source.ActiveFacilities(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("facility names unavailable")
	}
	for _, f := range facilities {
		if f.ID == facilityID {
			return f.Name
		}
	}
	return fmt.Sprintf("Facility %d", facilityID)
}

// Text renders the daily report, one "header value" pair per line.
func (d Daily) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily Summary for %s on %s\n\n", d.Facility, d.Date)
	b.WriteString(columns(d.Totals))
	return b.String()
}

// Text renders one line per day followed by the month totals.
func (m Monthly) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Monthly Summary for %s in %s\n\n", m.Facility, m.Month)
	if len(m.Days) == 0 {
		b.WriteString("No registrations this month.\n")
		return b.String()
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 1, ' ', tabwriter.AlignRight)
	_, _ = io.WriteString(w, "Date\tUsed\tEmpty\t%Used\tTotal $$\t\n")
	for _, day := range m.Days {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t\n", day.RegistrationDate,
			day.TotalAssigned, day.TotalUnassigned, totals.PercentAssigned(day), totals.FormattedAmount(day))
	}
	_ = w.Flush()
	b.Write(buf.Bytes())

	b.WriteString("\nTotals\n")
	b.WriteString(columns(m.Totals))
	return b.String()
}

func columns(s model.Summary) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 1, ' ', 0)
	for i, v := range totals.Fields(s) {
		fmt.Fprintf(w, "%s\t%s\n", totals.Headers[i], v)
	}
	_ = w.Flush()
	return buf.String()
}
