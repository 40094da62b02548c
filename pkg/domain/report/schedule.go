package report

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/craigmcc/cityteam-guests-client/pkg/utils/errs"
)

type Notifier interface {
	Send(ctx context.Context, text string) (int, error)
}

// Scheduler posts the previous day's report of each configured facility to
// the staff channel.
type Scheduler struct {
	cron        *cron.Cron
	service     *Service
	notifier    Notifier
	facilityIDs []int64
	timeout     time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewScheduler registers the job under spec, a six field cron expression
// (seconds first) or a descriptor such as "@daily".
func NewScheduler(spec string, service *Service, notifier Notifier, facilityIDs []int64, timeout time.Duration, logger zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:        cron.New(cron.WithSeconds()),
		service:     service,
		notifier:    notifier,
		facilityIDs: facilityIDs,
		timeout:     timeout,
		logger:      logger.With().Str("component", "report-scheduler").Logger(),
		now:         time.Now,
	}
	if _, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.PostYesterday(ctx)
	}); err != nil {
		return nil, errs.New("invalid report schedule").Arg("spec", spec).Wrap(err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Int("facilities", len(s.facilityIDs)).Msg("report scheduler started")
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("report scheduler stopped")
}

// PostYesterday sends one report per facility and returns how many were
// posted. A failing facility does not stop the others.
func (s *Scheduler) PostYesterday(ctx context.Context) int {
	date := s.now().AddDate(0, 0, -1).Format(DateLayout)
	posted := 0
	for _, id := range s.facilityIDs {
		daily, err := s.service.Daily(ctx, id, date)
		if err != nil {
			s.logger.Error().Err(err).Int64("facilityId", id).Str("date", date).Msg("daily report failed")
			continue
		}
		if _, err := s.notifier.Send(ctx, daily.Text()); err != nil {
			s.logger.Error().Err(err).Int64("facilityId", id).Msg("daily report not posted")
			continue
		}
		posted++
	}
	return posted
}
