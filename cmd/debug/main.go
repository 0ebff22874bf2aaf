// One-shot evaluation of the irrigation rule against the current device set.
// Connects like the server does, runs a single tick, prints the outcome.
package main

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/smartgrowth/smartgrowth-server/internal/config"
	"github.com/smartgrowth/smartgrowth-server/internal/scheduler"
	"github.com/smartgrowth/smartgrowth-server/internal/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var db *gorm.DB
	if cfg.Database.Host != "" {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
	}

	st, err := store.New(db)
	if err != nil {
		log.Fatalf("Failed to initialize device store: %v", err)
	}

	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		log.Fatalf("Failed to load timezone %q: %v", cfg.Schedule.Timezone, err)
	}

	log.Info("Executing one irrigation tick directly...")
	sched := scheduler.New(st, nil, time.Minute, loc)
	sched.RunTick()

	for _, dev := range st.List() {
		fmt.Printf("%-32s %-24s enabled=%-5v intensity=%-2d time=%-3d irr_on=%v\n",
			dev.DeviceID, dev.DeviceName, dev.IsEnabled, dev.IrrIntensity, dev.IrrTime, dev.IrrOn)
	}

	log.Info("Debug run finished.")
}
