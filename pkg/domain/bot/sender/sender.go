// Package sender delivers outgoing telegram messages under a shared rate
// limit, retrying failed sends.
package sender

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/craigmcc/cityteam-guests-client/pkg/utils/errs"
)

// MaxMessageLength is the telegram limit for a text message.
const MaxMessageLength = 4096

var ErrNoChannel = errors.New("sender: no channel configured")

// API is the part of *tgbotapi.BotAPI the processor needs.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Processor struct {
	config  Config
	logger  zerolog.Logger
	api     API
	limiter *rate.Limiter
	backoff time.Duration
}

type Option func(*Processor)

// WithBackoff sets the base delay between attempts; attempt i waits base*2^i.
func WithBackoff(d time.Duration) Option {
	return func(p *Processor) { p.backoff = d }
}

func New(config Config, logger zerolog.Logger, api API, opts ...Option) (*Processor, error) {
	config, err := config.validate()
	if err != nil {
		return nil, err
	}
	p := &Processor{
		config:  config,
		logger:  logger.With().Str("component", "sender").Logger(),
		api:     api,
		limiter: config.limiter(),
		backoff: time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Send posts text to the staff channel, split into several messages when it
// is longer than MaxMessageLength. It returns the id of the last message.
func (p *Processor) Send(ctx context.Context, text string) (int, error) {
	if p.config.ChannelID == "" {
		return 0, ErrNoChannel
	}
	var id int
	for _, chunk := range Split(text, MaxMessageLength) {
		msg := tgbotapi.NewMessageToChannel(p.config.ChannelID, chunk)
		sent, err := p.Deliver(ctx, msg)
		if err != nil {
			return id, err
		}
		id = sent.MessageID
	}
	return id, nil
}

// Deliver sends c, waiting for the rate limiter and retrying on failure.
func (p *Processor) Deliver(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	p.logger.Trace().Msg("In")
	defer p.logger.Trace().Msg("Out")

	var (
		err error
		msg tgbotapi.Message
	)
	for i := 0; i < p.config.Attempts; i++ {
		if err = p.limiter.Wait(ctx); err != nil {
			return msg, errs.New("send cancelled").Wrap(err)
		}
		msg, err = p.api.Send(c)
		if err == nil {
			return msg, nil
		}
		p.logger.Warn().Err(err).Int("attempt", i+1).Msg("send failed")

		if i+1 < p.config.Attempts {
			delay := time.Duration(math.Pow(2, float64(i))) * p.backoff
			select {
			case <-ctx.Done():
				return msg, errs.New("send cancelled").Wrap(ctx.Err())
			case <-time.After(delay):
			}
		}
	}
	p.logger.Error().Err(err).Msg("send permanently failed")

	return msg, errs.New("failed to send message").Arg("attempts", p.config.Attempts).Wrap(err)
}

// Request is Deliver for calls whose result is not a message, such as
// callback answers and deletions. It is rate limited but not retried.
func (p *Processor) Request(ctx context.Context, c tgbotapi.Chattable) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return errs.New("request cancelled").Wrap(err)
	}
	if _, err := p.api.Request(c); err != nil {
		return errs.New("request failed").Wrap(err)
	}
	return nil
}

// Split cuts text into chunks of at most limit bytes, preferring line breaks.
func Split(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var out []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit], '\n')
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		out = append(out, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}
