package sender

import (
	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/craigmcc/cityteam-guests-client/pkg/utils/errs"
)

// Config of the outbound side. ChannelID is the staff channel that receives
// scheduled reports, "@name" or a numeric chat id. Without it Send fails
// with ErrNoChannel.
type Config struct {
	ChannelID string
	PerSecond float64 `validate:"gte=0"`
	Burst     int     `validate:"gte=0"`
	Attempts  int     `validate:"gte=0"`
}

// Telegram allows about 30 messages per second across chats.
const (
	defaultPerSecond = 25
	defaultBurst     = 5
	defaultAttempts  = 3
)

func (c Config) validate() (Config, error) {
	if err := validator.New().Struct(c); err != nil {
		return c, errs.New("sender config validation failed").Wrap(err)
	}
	if c.PerSecond == 0 {
		c.PerSecond = defaultPerSecond
	}
	if c.Burst == 0 {
		c.Burst = defaultBurst
	}
	if c.Attempts == 0 {
		c.Attempts = defaultAttempts
	}
	return c, nil
}

func (c Config) limiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(c.PerSecond), c.Burst)
}
