// Package scheduler recomputes the irrigation flag for every registered
// device on a recurring tick. It is the single writer of that flag.
package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	log "github.com/sirupsen/logrus"

	"github.com/smartgrowth/smartgrowth-server/internal/metrics"
	"github.com/smartgrowth/smartgrowth-server/internal/models"
	"github.com/smartgrowth/smartgrowth-server/internal/store"
)

// ControlPublisher pushes a fresh control frame to a device when a tick
// changes its irrigation flag. Implemented by the MQTT bridge; a nil
// publisher means devices pick the change up on their next check-in.
type ControlPublisher interface {
	PublishControl(deviceID string, dev models.Device) error
}

// Scheduler drives the recurring irrigation recomputation.
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     *store.Store
	publisher ControlPublisher
	interval  time.Duration
	loc       *time.Location
	now       func() time.Time
}

// New creates a scheduler ticking at the given interval, never finer than
// one minute to match the granularity of the decision rule.
func New(s *store.Store, publisher ControlPublisher, interval time.Duration, loc *time.Location) *Scheduler {
	if interval < time.Minute {
		interval = time.Minute
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(loc),
		store:     s,
		publisher: publisher,
		interval:  interval,
		loc:       loc,
		now:       time.Now,
	}
}

// Start begins ticking in the background.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.interval).Do(s.RunTick); err != nil {
		return fmt.Errorf("failed to schedule irrigation tick: %w", err)
	}
	s.scheduler.StartAsync()
	log.Infof("Irrigation scheduler started, tick every %s", s.interval)
	return nil
}

// Stop shuts the tick loop down. Store writes are atomic per record, so an
// in-progress tick cannot leave a record half-updated.
func (s *Scheduler) Stop() {
	log.Info("Stopping irrigation scheduler...")
	s.scheduler.Stop()
}

// RunTick recomputes the irrigation flag for every device once. A failure on
// one device never aborts the rest of the pass.
func (s *Scheduler) RunTick() {
	metrics.SchedulerTicks.Inc()
	now := s.now().In(s.loc)

	for _, dev := range s.store.List() {
		on, err := irrigationDue(now, dev.IrrIntensity, dev.IrrTime)
		if err != nil {
			metrics.SchedulerErrors.Inc()
			log.Warnf("Skipping device %s this tick: %v", dev.DeviceID, err)
			continue
		}
		updated, changed, err := s.store.SetIrrigation(dev.DeviceID, on)
		if err != nil {
			metrics.SchedulerErrors.Inc()
			log.Warnf("Failed to update irrigation flag for device %s: %v", dev.DeviceID, err)
			continue
		}
		if changed {
			log.Infof("Device %s irrigation -> %v", dev.DeviceID, on)
			if s.publisher != nil {
				if err := s.publisher.PublishControl(dev.DeviceID, updated); err != nil {
					log.Warnf("Failed to push control frame to device %s: %v", dev.DeviceID, err)
				}
			}
		}
	}
}

// irrigationDue decides whether the moment falls inside a device's watering
// window. The day splits into 24/intensity equal hour blocks; the window is
// the first irrTime minutes of every hour whose number is a multiple of the
// block length. Enablement deliberately plays no part in the decision.
func irrigationDue(at time.Time, intensity, irrTime int) (bool, error) {
	if intensity < 1 {
		return false, fmt.Errorf("irrigation intensity %d is not positive", intensity)
	}
	block := 24 / intensity
	if block < 1 {
		return false, fmt.Errorf("irrigation intensity %d exceeds 24 cycles per day", intensity)
	}
	return at.Hour()%block == 0 && at.Minute() < irrTime, nil
}
