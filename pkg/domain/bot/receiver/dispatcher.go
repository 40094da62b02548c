package receiver

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

type UpdateHandler interface {
	Handle(ctx context.Context, u tgbotapi.Update)
}

// Dispatcher fans updates out to a fixed set of workers. All updates of one
// user go to the same worker, so they are handled in arrival order.
type Dispatcher struct {
	handler UpdateHandler
	workers int
	queue   int
	logger  zerolog.Logger
}

func NewDispatcher(handler UpdateHandler, workers int, logger zerolog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		handler: handler,
		workers: workers,
		queue:   64,
		logger:  logger.With().Str("component", "dispatcher").Logger(),
	}
}

// UserID returns the sender of u, or 0 when the update has none.
func UserID(u tgbotapi.Update) int64 {
	switch {
	case u.Message != nil && u.Message.From != nil:
		return u.Message.From.ID
	case u.CallbackQuery != nil && u.CallbackQuery.From != nil:
		return u.CallbackQuery.From.ID
	case u.EditedMessage != nil && u.EditedMessage.From != nil:
		return u.EditedMessage.From.ID
	}
	return 0
}

func (d *Dispatcher) shard(userID int64) int {
	if userID < 0 {
		userID = -userID
	}
	return int(userID % int64(d.workers))
}

// Run consumes updates until the channel is closed, then waits for the
// workers to drain their queues.
func (d *Dispatcher) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	queues := make([]chan tgbotapi.Update, d.workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan tgbotapi.Update, d.queue)
		wg.Add(1)
		go func(id int, in <-chan tgbotapi.Update) {
			defer wg.Done()
			d.work(ctx, id, in)
		}(i, queues[i])
	}

	for u := range updates {
		queues[d.shard(UserID(u))] <- u
	}
	for _, q := range queues {
		close(q)
	}
	wg.Wait()
	d.logger.Info().Msg("dispatcher stopped")
}

func (d *Dispatcher) work(ctx context.Context, id int, in <-chan tgbotapi.Update) {
	for u := range in {
		func() {
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error().Interface("panic", r).Int("worker", id).Int("updateId", u.UpdateID).Msg("update handler panicked")
				}
			}()
			d.handler.Handle(ctx, u)
		}()
	}
}
