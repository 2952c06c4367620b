// Package app wires storage, services and notification sinks from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"timebank/internal/config"
	"timebank/internal/database"
	"timebank/internal/lock"
	"timebank/internal/logging"
	"timebank/internal/notify"
	"timebank/internal/repository"
	"timebank/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	DB     *gorm.DB

	UserRepo repository.UserRepository

	Users     *service.UserService
	Clock     *service.ClockService
	Summaries *service.SummaryService
	Bank      *service.BankedHoursService
	Goals     *service.GoalOverrideService
	Dates     *service.SpecialDateService

	Dispatcher *notify.Dispatcher

	logger  *logrus.Logger
	closers []func() error
}

type options struct {
	telegram notify.MessageSender
}

type Option func(*options)

// WithTelegram also notifies record owners through the bot.
func WithTelegram(sender notify.MessageSender) Option {
	return func(o *options) { o.telegram = sender }
}

func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, logger: logging.New()}

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, func() error { return database.Close(db) })

	if err := a.build(ctx, cfg, o); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, cfg *config.Config, o options) error {
	records, err := repository.NewGormClockRecordRepository(a.DB)
	if err != nil {
		return fmt.Errorf("clock record repository: %w", err)
	}
	dates, err := repository.NewGormSpecialDateRepository(a.DB)
	if err != nil {
		return fmt.Errorf("special date repository: %w", err)
	}
	goals, err := repository.NewGormGoalOverrideRepository(a.DB)
	if err != nil {
		return fmt.Errorf("goal override repository: %w", err)
	}
	bank, err := repository.NewGormBankedHoursRepository(a.DB)
	if err != nil {
		return fmt.Errorf("banked hours repository: %w", err)
	}
	users, err := repository.NewGormUserRepository(a.DB)
	if err != nil {
		return fmt.Errorf("user repository: %w", err)
	}
	a.UserRepo = users

	locker, err := a.locker(ctx, cfg)
	if err != nil {
		return err
	}

	sinks, err := a.sinks(cfg, o, users)
	if err != nil {
		return err
	}
	a.Dispatcher = notify.NewDispatcher(cfg.NotifyQueueSize, 5*time.Second, sinks...)

	a.Users = service.NewUserService(users)
	a.Clock = service.NewClockService(records,
		service.WithLocker(locker),
		service.WithNotifier(a.Dispatcher),
		service.WithLocation(cfg.Location()),
		service.WithStrictClockOut(cfg.StrictClockOut),
	)
	a.Summaries = service.NewSummaryService(records, dates, goals, cfg.DailyGoalMinutes)
	a.Bank = service.NewBankedHoursService(bank, a.Summaries, users, cfg.BankedHoursWindow)
	a.Goals = service.NewGoalOverrideService(goals)
	a.Dates = service.NewSpecialDateService(dates)

	if cfg.HolidaysFile != "" {
		n, err := a.Dates.LoadFromJSON(ctx, cfg.HolidaysFile)
		if err != nil {
			return fmt.Errorf("load holidays: %w", err)
		}
		a.logger.WithField("file", cfg.HolidaysFile).Infof("Loaded %d holidays", n)
	}

	return nil
}

// locker serializes clock events per user and day, across processes when Redis is set.
func (a *App) locker(ctx context.Context, cfg *config.Config) (lock.Locker, error) {
	if cfg.RedisAddr == "" {
		return lock.NewKeyedMutex(), nil
	}

	rdb, err := lock.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.closers = append(a.closers, rdb.Close)

	a.logger.WithField("addr", cfg.RedisAddr).Info("Using redis lock")
	return lock.NewRedisLocker(rdb, cfg.LockTTL), nil
}

func (a *App) sinks(cfg *config.Config, o options, users repository.UserRepository) ([]notify.Sink, error) {
	sinks := []notify.Sink{notify.NewLogSink()}

	if o.telegram != nil {
		sinks = append(sinks, notify.NewTelegramSink(o.telegram, users))
	}

	if cfg.AMQPURL != "" {
		sink, err := notify.DialAMQPSink(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sink.Close)
		sinks = append(sinks, sink)
	}

	if len(cfg.KafkaBrokers) > 0 {
		sink := notify.NewKafkaSink(notify.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		a.closers = append(a.closers, sink.Close)
		sinks = append(sinks, sink)
	}

	return sinks, nil
}

// Start runs the notification loop in the background.
func (a *App) Start(ctx context.Context) {
	a.Dispatcher.Start(ctx)
}

// ServeMetrics exposes /metrics until ctx is done.
func (a *App) ServeMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              a.Config.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.logger.WithField("addr", srv.Addr).Info("Metrics server started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close drains pending notifications and releases connections in reverse order.
func (a *App) Close() error {
	if a.Dispatcher != nil {
		a.Dispatcher.Close()
		a.Dispatcher.Wait()
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
