// Command amplitude-fake serves a fake of the Amplitude ingestion and
// dashboard APIs for local development.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/alexbotov/amplitude/internal/config"
	"github.com/alexbotov/amplitude/pkg/amplitude/amplitudetest"
)

func main() {
	cfg := config.Load()

	log := logrus.New()
	log.SetLevel(cfg.Log.Level)

	handler := amplitudetest.NewHandler(amplitudetest.Config{
		APIKey:    cfg.Auth.APIKey,
		SecretKey: cfg.Auth.SecretKey,
		Logger:    log,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("starting fake amplitude server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
}
