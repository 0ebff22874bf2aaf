package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/smartgrowth/smartgrowth-server/internal/config"
	"github.com/smartgrowth/smartgrowth-server/internal/metrics"
	"github.com/smartgrowth/smartgrowth-server/internal/models"
	"github.com/smartgrowth/smartgrowth-server/internal/mqtt"
	"github.com/smartgrowth/smartgrowth-server/internal/scheduler"
	"github.com/smartgrowth/smartgrowth-server/internal/server"
	"github.com/smartgrowth/smartgrowth-server/internal/slack"
	"github.com/smartgrowth/smartgrowth-server/internal/store"
	"github.com/smartgrowth/smartgrowth-server/internal/telemetry"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if level, err := log.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(level)
	}

	log.Info("Starting application...")

	// Initialize database
	var db *gorm.DB
	if cfg.Database.Host != "" {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		log.Info("Auto-migrating database schema...")
		if err := db.AutoMigrate(&models.Device{}); err != nil {
			log.Fatalf("Failed to auto-migrate database schema: %v", err)
		}
	} else {
		log.Warn("No database configured; device records will not survive restarts")
	}

	// Initialize device store
	st, err := store.New(db)
	if err != nil {
		log.Fatalf("Failed to initialize device store: %v", err)
	}
	metrics.RegisterDeviceGauge(func() float64 { return float64(st.Count()) })

	notifier := slack.NewClient(cfg.Slack.BotToken, cfg.Slack.ChannelID)
	ingestor := telemetry.NewIngestor(st, notifier)

	// Optional MQTT transport alongside HTTP
	var publisher scheduler.ControlPublisher
	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.NewClient(
			cfg.MQTT.Broker,
			cfg.MQTT.ClientID,
			cfg.MQTT.Username,
			cfg.MQTT.Password,
			cfg.MQTT.TopicPrefix,
			ingestor,
		)
		if err != nil {
			log.Fatalf("Failed to initialize MQTT client: %v", err)
		}
		defer mqttClient.Close()
		publisher = mqttClient
	}

	// Initialize irrigation scheduler
	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		log.Fatalf("Failed to load timezone %q: %v", cfg.Schedule.Timezone, err)
	}
	sched := scheduler.New(st, publisher, time.Duration(cfg.Schedule.TickMinutes)*time.Minute, loc)
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Start HTTP server
	srv := server.New(cfg, server.NewHandlers(st, ingestor))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	log.Info("Application is running. Press CTRL+C to exit.")

	// Wait for a shutdown signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info("Application shutting down.")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP server shutdown: %v", err)
	}
}
