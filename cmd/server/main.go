package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"prompt-rush/internal/config"
	"prompt-rush/internal/db"
	"prompt-rush/internal/server"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()

	var conn *gorm.DB
	if os.Getenv("DATABASE_URL") != "" {
		opened, err := db.Open()
		if err != nil {
			log.Fatal().Err(err).Msg("open database")
		}
		if err := db.Migrate(opened); err != nil {
			log.Fatal().Err(err).Msg("migrate database")
		}
		if err := db.ConfigurePool(opened, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns,
			cfg.DBConnMaxLifetimeSeconds, cfg.DBConnMaxIdleTimeSeconds); err != nil {
			log.Fatal().Err(err).Msg("configure database pool")
		}
		conn = opened
	} else {
		log.Warn().Msg("DATABASE_URL not set, running without durable storage")
	}

	srv := server.New(conn, cfg)
	if err := srv.RestoreActiveGames(); err != nil {
		log.Warn().Err(err).Msg("restore games")
	}

	addr := ":8080"
	if env := os.Getenv("PORT"); env != "" {
		addr = ":" + env
	}
	httpServer := &http.Server{Addr: addr, Handler: srv.Handler()}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		log.Info().Msg("shutting down, notifying rooms")
		srv.Drain()
		_ = httpServer.Close()
	}()

	log.Info().Str("addr", addr).Msg("prompt-rush server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
