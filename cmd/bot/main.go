package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/craigmcc/cityteam-guests-client/pkg/domain/bot/receiver"
	"github.com/craigmcc/cityteam-guests-client/pkg/domain/bot/receiver/config"
	"github.com/craigmcc/cityteam-guests-client/pkg/domain/bot/sender"
	"github.com/craigmcc/cityteam-guests-client/pkg/domain/checkin"
	"github.com/craigmcc/cityteam-guests-client/pkg/domain/report"
	"github.com/craigmcc/cityteam-guests-client/pkg/domain/templates"
	"github.com/craigmcc/cityteam-guests-client/pkg/domain/validation"
	"github.com/craigmcc/cityteam-guests-client/pkg/events"
	"github.com/craigmcc/cityteam-guests-client/pkg/metrics"
	"github.com/craigmcc/cityteam-guests-client/pkg/repository/cache"
	"github.com/craigmcc/cityteam-guests-client/pkg/repository/model"
	"github.com/craigmcc/cityteam-guests-client/pkg/repository/remote"
	"github.com/craigmcc/cityteam-guests-client/pkg/repository/store"
	"github.com/craigmcc/cityteam-guests-client/pkg/utils/errs"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Err(errs.New("failed to load config").Wrap(err)).Msg("config init")
		return
	}

	// stop on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("bot failed")
		os.Exit(1)
	}
	logger.Info().Msg("bot stopped")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	m := metrics.New()
	client := remote.New(cfg.ServerURI, cfg.RequestTimeout, remote.WithLogger(logger), remote.WithObserver(m))

	redisCache, err := cache.InitServer(ctx, cache.Connection{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return errs.New("redis init").Arg("addr", cfg.Redis.Addr).Wrap(err)
	}
	defer redisCache.Close()
	catalog := cache.NewCatalog(redisCache, client, cfg.Redis.TTL, logger)

	repo, err := store.NewRepo(ctx, cfg.PostgreAddr)
	if err != nil {
		return errs.New("postgres init").Wrap(err)
	}
	defer repo.Close()
	if err := repo.Migrate(); err != nil {
		return errs.New("postgres migrate").Wrap(err)
	}

	var publisher *events.Publisher
	if cfg.AMQP.URL != "" {
		conn, err := events.Connect(cfg.AMQP.URL, max(cfg.AMQP.Retries, 1), cfg.AMQP.RetryDelay)
		if err != nil {
			return errs.New("amqp connect").Wrap(err)
		}
		defer conn.Close()
		ch, err := conn.Channel()
		if err != nil {
			return errs.New("amqp channel").Wrap(err)
		}
		defer ch.Close()
		if publisher, err = events.NewPublisher(ch, cfg.AMQP.Exchange, logger); err != nil {
			return err
		}
	} else {
		logger.Info().Msg("AMQP_URL not set, check-in events are not published")
	}

	validator := validation.New(client, client)
	reports := report.NewService(client, logger)

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return errs.New("create bot api").Wrap(err)
	}
	api.Debug = false
	logger.Info().Str("bot", api.Self.UserName).Msg("authorized")

	out, err := sender.New(sender.Config{ChannelID: cfg.ChannelID}, logger, api)
	if err != nil {
		return err
	}

	amount := model.Amount(cfg.DefaultAmount)
	if amount == "" {
		amount = checkin.DefaultAmount
	}
	newMachine := func(userID int64) *checkin.Machine {
		listeners := []checkin.Listener{
			m,
			receiver.AuditListener(repo, userID, cfg.RequestTimeout, logger),
		}
		if publisher != nil {
			listeners = append(listeners, publisher.ForUser(userID))
		}
		return checkin.New(
			checkin.Deps{Registrations: client, Guests: client, Mutations: client, Templates: catalog},
			checkin.WithLogger(logger.With().Str("component", "checkin").Int64("userId", userID).Logger()),
			checkin.WithDefaultAmount(amount),
			checkin.WithPageSize(cfg.GuestPageSize),
			checkin.WithListeners(listeners...),
		)
	}

	handler := receiver.NewHandler(receiver.Deps{
		Bot:         out,
		Sessions:    receiver.NewStore(newMachine),
		Catalog:     catalog,
		History:     client,
		Persistence: repo,
		Reports:     reports,
		Templates:   templates.NewService(client, validator, catalog, logger),
		Validator:   validator,
		Metrics:     m,
	}, cfg.RequestTimeout, logger)

	srv := &http.Server{
		Addr: ":" + strconv.Itoa(cfg.HTTPPort),
		Handler: m.Router(map[string]metrics.Check{
			"postgres": repo.Ping,
			"redis":    redisCache.Ping,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server failed")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if cfg.ReportCron != "" {
		scheduler, err := report.NewScheduler(cfg.ReportCron, reports, out, cfg.ReportFacilityIDs, cfg.RequestTimeout*4, logger)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 10
	updates := api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutting down bot")
		// closes updates, which ends dispatcher.Run
		api.StopReceivingUpdates()
	}()

	receiver.NewDispatcher(handler, cfg.WorkerCount, logger).Run(ctx, updates)
	return nil
}
