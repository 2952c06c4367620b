package main

import (
	"context"
	"os/signal"
	"syscall"

	"timebank/internal/app"
	"timebank/internal/config"
	"timebank/internal/handler"
	"timebank/internal/logging"
	"timebank/internal/worker"
	"timebank/pkg/telegram"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	logrus.Info("Initializing config...")
	cfg := config.GetConfig()
	if err := logging.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		logrus.WithError(err).Fatal("Invalid log level")
	}
	logrus.Info("Config initialized...")

	if cfg.TelegramToken == "" {
		logrus.Fatal("TELEGRAM_BOT_TOKEN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := telegram.NewClient(cfg.TelegramToken, cfg.LogLevel == "debug")
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create Telegram client")
	}
	logrus.Infof("Authorized on account %s", client.Bot.Self.UserName)

	application, err := app.New(ctx, cfg, app.WithTelegram(client))
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize application")
	}

	if err := application.Users.InitializeAdmin(ctx, cfg.BaseAdminChatID); err != nil {
		logrus.Infof("Warning: Failed to initialize admin: %v", err)
	} else if cfg.BaseAdminChatID != 0 {
		logrus.Infof("Admin initialized with chat ID: %d", cfg.BaseAdminChatID)
	}

	botHandler := handler.NewHandler(
		client,
		handler.NewCommandClassifier(),
		handler.Services{
			Users:     application.Users,
			Clock:     application.Clock,
			Summaries: application.Summaries,
			Bank:      application.Bank,
			Goals:     application.Goals,
			Dates:     application.Dates,
		},
		cfg.Location(),
	)

	closer := worker.NewMonthCloser(application.Bank, cfg.MonthCloseInterval, cfg.Location())

	application.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return application.ServeMetrics(gctx)
	})
	g.Go(func() error {
		closer.Run(gctx)
		return nil
	})
	g.Go(func() error {
		botHandler.HandleUpdates(gctx, client.Updates())
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		client.Stop()
		return nil
	})

	logrus.Info("Bot started. Press Ctrl+C to stop.")
	if err := g.Wait(); err != nil {
		logrus.WithError(err).Error("Bot stopped with error")
	}

	if err := application.Close(); err != nil {
		logrus.Infof("Error closing application: %v", err)
	}

	logrus.Info("Bot stopped gracefully")
}
