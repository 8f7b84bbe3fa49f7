package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lamax-chat/voice-signaling/internal/config"
	"github.com/lamax-chat/voice-signaling/internal/logging"
	"github.com/lamax-chat/voice-signaling/internal/server"
	"github.com/lamax-chat/voice-signaling/internal/signaling"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address (overrides ADDR)")
	logLevel := flag.String("log-level", "", "log level (overrides LOG_LEVEL)")
	dev := flag.Bool("dev", false, "development mode: console logging")
	flag.Parse()

	cfg, err := config.Load(config.Options{
		Addr:     *addr,
		LogLevel: *logLevel,
		Dev:      *dev,
	})
	if err != nil {
		panic("config load failed: " + err.Error())
	}

	if err := logging.Init(logging.Config{
		Level:      cfg.LogLevel,
		Filename:   cfg.LogFile,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Dev:        cfg.Dev,
	}); err != nil {
		panic("logger init failed: " + err.Error())
	}
	defer logging.Sync()

	// The hub owns the registry and the room index for the life of the
	// process; everything reaches them through it.
	registry := signaling.NewRegistry()
	rooms := signaling.NewRoomIndex(cfg.DefaultRooms)
	hub := signaling.NewHub(registry, rooms)
	go hub.Run()

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      server.NewRouter(hub, cfg),
		ReadTimeout:  30 * time.Second,
		IdleTimeout:  120 * time.Second,
		WriteTimeout: 0, // websocket connections outlive any write timeout
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("http shutdown", zap.Error(err))
		}
		hub.Stop()
	}()

	zap.L().Info("starting signaling server",
		zap.String("addr", cfg.Addr),
		zap.Strings("defaultRooms", cfg.DefaultRooms))

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zap.L().Fatal("server run failed", zap.Error(err))
	}
}
