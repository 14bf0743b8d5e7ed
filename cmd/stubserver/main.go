// Command stubserver runs a local, in-memory Event Planner API for
// development and end-to-end tests.
package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/dimitarkovachev/planner/internal/config"
	"github.com/dimitarkovachev/planner/internal/stubserver"
)

func main() {
	cfg := config.Load()

	log.SetFormatter(&log.JSONFormatter{})
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	gin.SetMode(cfg.GinMode)

	store := stubserver.NewStore()
	if cfg.SeedFile != "" {
		if err := stubserver.Seed(store, cfg.SeedFile); err != nil {
			log.WithError(err).Fatal("failed to seed data")
		}
	}

	server := stubserver.NewServer(store, cfg.JWTSecret)
	r := server.Router(stubserver.RateLimit(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst))

	srv := &http.Server{
		Handler: r,
		Addr:    net.JoinHostPort("0.0.0.0", cfg.Port),
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.WithField("signal", fmt.Sprintf("%v", sig)).Info("shutting down server")

	if err := srv.Close(); err != nil {
		log.WithError(err).Error("server close error")
	}
}
