// Command migrate applies the embedded schema migrations and exits.
package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/iliyamo/gsr-share/internal/config"
	"github.com/iliyamo/gsr-share/internal/database"
	"github.com/iliyamo/gsr-share/internal/logger"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	list := pflag.Bool("list", false, "print the embedded migrations without applying them")
	pflag.Parse()

	log := logger.Default()
	if *list {
		ms, err := database.Migrations()
		if err != nil {
			log.Error("read migrations", "error", err)
			os.Exit(1)
		}
		for _, m := range ms {
			log.Info("migration", "name", m.Name, "statements", len(m.Statements))
		}
		return
	}

	if err := config.LoadEnvFile(*envFile); err != nil {
		log.Error("load env file", "path", *envFile, "error", err)
		os.Exit(1)
	}
	cfg := config.LoadDB()
	log = logger.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	n, err := database.Migrate(ctx, db, log)
	if err != nil {
		log.Error("migrate", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied", "count", n)
}
