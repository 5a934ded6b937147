package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/satindergrewal/confluence/internal/codec"
	"github.com/satindergrewal/confluence/internal/config"
	"github.com/satindergrewal/confluence/internal/server"
	"github.com/satindergrewal/confluence/internal/session"
	"github.com/satindergrewal/confluence/internal/tracks"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	codec.FFmpeg = cfg.FFmpegPath

	store, err := tracks.New(cfg.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Track store unavailable")
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.OutputDir).Msg("Output dir unavailable")
	}
	sess := session.New(session.NewFileMirror(cfg.OutputDir))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.New(cfg, store, sess),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout,
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down...")
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("addr", addr).
		Str("uploads", cfg.UploadDir).
		Str("outputs", cfg.OutputDir).
		Float64("headroom_db", cfg.HeadroomDB).
		Msg("confluence live")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("HTTP server error")
	}
}

func setupLogging(cfg config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
