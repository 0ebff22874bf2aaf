// Package store owns the registry of device records. Every other component
// reads and writes records exclusively through the accessors here; the update
// operations are field-scoped so that the scheduler-owned irrigation flag,
// the telemetry fields and the configuration fields never clobber each other.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/smartgrowth/smartgrowth-server/internal/models"
)

// Settings is one atomic configuration change, the four values an operator
// (or a preset) supplies as a unit.
type Settings struct {
	Enabled         bool `json:"enabled"`
	Intensity       int  `json:"intensity"`
	DurationMinutes int  `json:"time"`
	Light           int  `json:"light"`
}

type entry struct {
	mu  sync.Mutex
	dev models.Device
}

// Store is a concurrency-safe registry of device records, keyed by the
// external device identifier. Records live in memory; when a database is
// attached, every mutation is written through with column-scoped updates and
// the full set is reloaded at startup. Locks are record-local and are never
// held across database I/O.
type Store struct {
	mu      sync.RWMutex
	devices map[string]*entry
	db      *gorm.DB
}

// New builds a Store. A nil db runs the store memory-only.
func New(db *gorm.DB) (*Store, error) {
	s := &Store{
		devices: make(map[string]*entry),
		db:      db,
	}
	if db != nil {
		var rows []models.Device
		if err := db.Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to load devices: %w", err)
		}
		for _, d := range rows {
			s.devices[d.DeviceID] = &entry{dev: d}
		}
		log.Infof("Loaded %d device(s) from database", len(rows))
	}
	return s, nil
}

// Get returns a snapshot of one record.
func (s *Store) Get(deviceID string) (models.Device, error) {
	e, err := s.lookup(deviceID)
	if err != nil {
		return models.Device{}, err
	}
	e.mu.Lock()
	dev := e.dev
	e.mu.Unlock()
	return dev, nil
}

// GetOrCreate returns the existing record for deviceID or atomically inserts
// a fresh one with the documented defaults. The boolean reports whether a
// record was created. Identifiers longer than models.MaxDeviceIDLength are
// rejected with models.ErrInvalidIdentifier.
func (s *Store) GetOrCreate(deviceID, name string, now time.Time) (models.Device, bool, error) {
	if len(deviceID) > models.MaxDeviceIDLength {
		return models.Device{}, false, fmt.Errorf("device id %q exceeds %d bytes: %w",
			deviceID, models.MaxDeviceIDLength, models.ErrInvalidIdentifier)
	}

	s.mu.RLock()
	e, ok := s.devices[deviceID]
	s.mu.RUnlock()
	if !ok {
		s.mu.Lock()
		e, ok = s.devices[deviceID]
		if !ok {
			e = &entry{dev: models.NewDevice(deviceID, name, now)}
			s.devices[deviceID] = e
		}
		s.mu.Unlock()
	}

	e.mu.Lock()
	dev := e.dev
	e.mu.Unlock()

	created := !ok
	if created && s.db != nil {
		if err := s.db.Create(&dev).Error; err != nil {
			log.Errorf("Failed to persist new device %s: %v", deviceID, err)
		}
	}
	return dev, created, nil
}

// List returns a snapshot of all records, ordered by device id. The snapshot
// is consistent per record but not across concurrent writers.
func (s *Store) List() []models.Device {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.devices))
	for _, e := range s.devices {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]models.Device, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.dev)
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// Count reports the number of registered devices.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.devices)
}

// ApplyTelemetry overwrites the sensor fields and the last-seen timestamp as
// one unit. It never touches the irrigation flag or any configuration field.
func (s *Store) ApplyTelemetry(deviceID string, temperature, humidity, ph float64, at time.Time) (models.Device, error) {
	return s.update(deviceID, func(d *models.Device) {
		d.Temperature = temperature
		d.Humidity = humidity
		d.PH = ph
		d.LastSeenAt = at
	}, map[string]interface{}{
		"temperature":  temperature,
		"humidity":     humidity,
		"ph":           ph,
		"last_seen_at": at,
	})
}

// ApplySettings applies one configuration group atomically. Out-of-range
// values are rejected with models.ErrInvalidSetting before any field changes.
func (s *Store) ApplySettings(deviceID string, set Settings) (models.Device, error) {
	if set.Intensity < 1 {
		return models.Device{}, fmt.Errorf("irrigation intensity must be >= 1, got %d: %w",
			set.Intensity, models.ErrInvalidSetting)
	}
	if set.DurationMinutes < 0 {
		return models.Device{}, fmt.Errorf("irrigation duration must be >= 0 minutes, got %d: %w",
			set.DurationMinutes, models.ErrInvalidSetting)
	}
	return s.update(deviceID, func(d *models.Device) {
		d.IsEnabled = set.Enabled
		d.IrrIntensity = set.Intensity
		d.IrrTime = set.DurationMinutes
		d.LightIntensity = set.Light
	}, map[string]interface{}{
		"is_enabled":      set.Enabled,
		"irr_intensity":   set.Intensity,
		"irr_time":        set.DurationMinutes,
		"light_intensity": set.Light,
	})
}

// Rename changes the display name only.
func (s *Store) Rename(deviceID, name string) (models.Device, error) {
	if name == "" {
		return models.Device{}, fmt.Errorf("device name must not be empty: %w", models.ErrInvalidSetting)
	}
	return s.update(deviceID, func(d *models.Device) {
		d.DeviceName = name
	}, map[string]interface{}{
		"device_name": name,
	})
}

// SetIrrigation writes the scheduler-owned irrigation flag. The boolean
// reports whether the flag actually changed. No other component may call
// this; telemetry and configuration updates leave the flag untouched.
func (s *Store) SetIrrigation(deviceID string, on bool) (models.Device, bool, error) {
	changed := false
	dev, err := s.update(deviceID, func(d *models.Device) {
		changed = d.IrrOn != on
		d.IrrOn = on
	}, map[string]interface{}{
		"irr_on": on,
	})
	if err != nil {
		return models.Device{}, false, err
	}
	return dev, changed, nil
}

func (s *Store) lookup(deviceID string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.devices[deviceID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("device %s: %w", deviceID, models.ErrNotFound)
	}
	return e, nil
}

// update applies mutate under the record's lock, then writes the given
// columns through to the database after the lock is released.
func (s *Store) update(deviceID string, mutate func(*models.Device), columns map[string]interface{}) (models.Device, error) {
	e, err := s.lookup(deviceID)
	if err != nil {
		return models.Device{}, err
	}

	e.mu.Lock()
	mutate(&e.dev)
	dev := e.dev
	e.mu.Unlock()

	if s.db != nil {
		err := s.db.Model(&models.Device{}).Where("device_id = ?", deviceID).Updates(columns).Error
		if err != nil {
			log.Errorf("Failed to persist update for device %s: %v", deviceID, err)
		}
	}
	return dev, nil
}
