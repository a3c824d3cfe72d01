// Command notifier consumes share code events from RabbitMQ, appends them
// to an audit log and emails booking owners.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/iliyamo/gsr-share/internal/config"
	"github.com/iliyamo/gsr-share/internal/logger"
	"github.com/iliyamo/gsr-share/internal/mailer"
	"github.com/iliyamo/gsr-share/internal/queue"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	logDir := pflag.String("log-dir", "logs", "directory for sharecode.log")
	pflag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		logger.Default().Error("load env file", "path", *envFile, "error", err)
		os.Exit(1)
	}
	cfg := config.LoadNotifier()
	log := logger.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := mailer.New(cfg.MailerSendKey, cfg.MailFromName, cfg.MailFromEmail, log)
	c := queue.NewConsumer(cfg.RabbitURL, *logDir, m, log)
	log.Info("notifier started", "queue", queue.ShareCodeQueue, "log_dir", *logDir)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("notifier stopped", "error", err)
		os.Exit(1)
	}
}
