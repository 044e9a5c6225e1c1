package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/safar/beach-pdv/internal/api"
	"github.com/safar/beach-pdv/internal/config"
	"github.com/safar/beach-pdv/internal/database"
	"github.com/safar/beach-pdv/internal/events"
	"github.com/safar/beach-pdv/internal/lifecycle"
	"github.com/safar/beach-pdv/internal/logger"
	"github.com/safar/beach-pdv/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	slog.SetDefault(log)

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	log.Info("connected to database")

	var publisher events.Publisher = events.NopPublisher{}
	var rabbit *events.RabbitPublisher
	if cfg.RabbitMQ.URL != "" {
		rabbit, err = events.DialRabbit(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			return err
		}
		defer rabbit.Close()
		publisher = rabbit
		log.Info("publishing events", "exchange", cfg.RabbitMQ.Exchange)
	} else {
		log.Warn("RABBITMQ_URL not set, events disabled")
	}

	loc, err := cfg.Report.Location()
	if err != nil {
		return err
	}

	st := store.New(db, loc)
	tables := lifecycle.NewCoordinator(st, publisher, log, cfg.Release.Timeout)
	engine := lifecycle.NewEngine(st, tables, publisher, log)

	handler := api.New(engine, st, log)
	handler.AddHealthCheck("database", db.PingContext)
	if rabbit != nil {
		handler.AddHealthCheck("rabbitmq", func(context.Context) error { return rabbit.Ping() })
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Server.Port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
