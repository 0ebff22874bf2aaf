package store

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smartgrowth/smartgrowth-server/internal/models"
)

func TestGetOrCreateDefaults(t *testing.T) {
	s, err := New(nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	dev, created, err := s.GetOrCreate("dev-001", models.DefaultDeviceName, now)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if !created {
		t.Error("Expected first contact to create the record")
	}
	if dev.DeviceID != "dev-001" {
		t.Errorf("Expected device id dev-001, got %s", dev.DeviceID)
	}
	if dev.DeviceName != models.DefaultDeviceName {
		t.Errorf("Expected default name, got %q", dev.DeviceName)
	}
	if dev.IsEnabled || dev.IrrOn {
		t.Error("Expected new device to be disabled and not irrigating")
	}
	if dev.IrrIntensity != models.DefaultIrrIntensity {
		t.Errorf("Expected intensity %d, got %d", models.DefaultIrrIntensity, dev.IrrIntensity)
	}
	if dev.LightIntensity != models.DefaultLightIntensity {
		t.Errorf("Expected light %d, got %d", models.DefaultLightIntensity, dev.LightIntensity)
	}

	again, created, err := s.GetOrCreate("dev-001", "ignored", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Second GetOrCreate failed: %v", err)
	}
	if created {
		t.Error("Expected second contact to find the existing record")
	}
	if again.DeviceName != models.DefaultDeviceName {
		t.Errorf("Expected existing name to survive, got %q", again.DeviceName)
	}
}

func TestGetOrCreateIdentifierLength(t *testing.T) {
	s, _ := New(nil)
	now := time.Now()

	longID := strings.Repeat("x", models.MaxDeviceIDLength+1)
	if _, _, err := s.GetOrCreate(longID, models.DefaultDeviceName, now); !errors.Is(err, models.ErrInvalidIdentifier) {
		t.Errorf("Expected ErrInvalidIdentifier for a %d-byte id, got %v", len(longID), err)
	}
	if s.Count() != 0 {
		t.Errorf("Expected no record for the rejected id, have %d", s.Count())
	}

	maxID := strings.Repeat("x", models.MaxDeviceIDLength)
	if _, created, err := s.GetOrCreate(maxID, models.DefaultDeviceName, now); err != nil || !created {
		t.Errorf("Expected a %d-byte id to be accepted, got created=%v err=%v", len(maxID), created, err)
	}
}

func TestConcurrentFirstContact(t *testing.T) {
	s, _ := New(nil)
	now := time.Now()

	const workers = 16
	var wg sync.WaitGroup
	var createdCount int32
	var mu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := s.GetOrCreate("dev-001", models.DefaultDeviceName, now)
			if err != nil {
				t.Errorf("GetOrCreate failed: %v", err)
				return
			}
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if createdCount != 1 {
		t.Errorf("Expected exactly one creation, got %d", createdCount)
	}
	if s.Count() != 1 {
		t.Errorf("Expected exactly one record, got %d", s.Count())
	}
}

func TestApplyTelemetryPreservesIrrigationFlag(t *testing.T) {
	s, _ := New(nil)
	now := time.Now()
	s.GetOrCreate("dev-001", models.DefaultDeviceName, now)

	if _, _, err := s.SetIrrigation("dev-001", true); err != nil {
		t.Fatalf("SetIrrigation failed: %v", err)
	}

	at := now.Add(time.Minute)
	dev, err := s.ApplyTelemetry("dev-001", 21.5, 55.0, 6.8, at)
	if err != nil {
		t.Fatalf("ApplyTelemetry failed: %v", err)
	}
	if !dev.IrrOn {
		t.Error("Expected telemetry update to leave the irrigation flag alone")
	}
	if dev.Temperature != 21.5 || dev.Humidity != 55.0 || dev.PH != 6.8 {
		t.Errorf("Unexpected sensor fields: %+v", dev)
	}
	if !dev.LastSeenAt.Equal(at) {
		t.Errorf("Expected last seen %v, got %v", at, dev.LastSeenAt)
	}
}

func TestApplySettingsValidation(t *testing.T) {
	s, _ := New(nil)
	s.GetOrCreate("dev-001", models.DefaultDeviceName, time.Now())

	testCases := []struct {
		name    string
		set     Settings
		wantErr bool
	}{
		{name: "valid", set: Settings{Enabled: true, Intensity: 4, DurationMinutes: 20, Light: 155}},
		{name: "zero intensity", set: Settings{Intensity: 0}, wantErr: true},
		{name: "negative intensity", set: Settings{Intensity: -3}, wantErr: true},
		{name: "negative duration", set: Settings{Intensity: 1, DurationMinutes: -1}, wantErr: true},
		{name: "zero duration", set: Settings{Intensity: 1, DurationMinutes: 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.ApplySettings("dev-001", tc.set)
			if tc.wantErr && !errors.Is(err, models.ErrInvalidSetting) {
				t.Errorf("Expected ErrInvalidSetting, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Expected success, got %v", err)
			}
		})
	}

	dev, err := s.ApplySettings("dev-001", Settings{Enabled: true, Intensity: 4, DurationMinutes: 20, Light: 155})
	if err != nil {
		t.Fatalf("ApplySettings failed: %v", err)
	}
	if !dev.IsEnabled || dev.IrrIntensity != 4 || dev.IrrTime != 20 || dev.LightIntensity != 155 {
		t.Errorf("Settings not applied as a unit: %+v", dev)
	}
}

func TestUpdatesOnAbsentDevice(t *testing.T) {
	s, _ := New(nil)

	if _, err := s.ApplySettings("ghost", Settings{Intensity: 1}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound from ApplySettings, got %v", err)
	}
	if _, err := s.ApplyTelemetry("ghost", 1, 2, 3, time.Now()); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound from ApplyTelemetry, got %v", err)
	}
	if _, _, err := s.SetIrrigation("ghost", true); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound from SetIrrigation, got %v", err)
	}
	if _, err := s.Get("ghost"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound from Get, got %v", err)
	}
}

func TestRename(t *testing.T) {
	s, _ := New(nil)
	s.GetOrCreate("dev-001", models.DefaultDeviceName, time.Now())

	dev, err := s.Rename("dev-001", "Greenhouse A")
	if err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if dev.DeviceName != "Greenhouse A" {
		t.Errorf("Expected renamed device, got %q", dev.DeviceName)
	}

	if _, err := s.Rename("dev-001", ""); !errors.Is(err, models.ErrInvalidSetting) {
		t.Errorf("Expected ErrInvalidSetting for empty name, got %v", err)
	}
}

func TestSetIrrigationReportsChange(t *testing.T) {
	s, _ := New(nil)
	s.GetOrCreate("dev-001", models.DefaultDeviceName, time.Now())

	if _, changed, _ := s.SetIrrigation("dev-001", true); !changed {
		t.Error("Expected off -> on to report a change")
	}
	if _, changed, _ := s.SetIrrigation("dev-001", true); changed {
		t.Error("Expected on -> on to report no change")
	}
	if _, changed, _ := s.SetIrrigation("dev-001", false); !changed {
		t.Error("Expected on -> off to report a change")
	}
}

func TestListIsSorted(t *testing.T) {
	s, _ := New(nil)
	now := time.Now()
	for _, id := range []string{"charlie", "alpha", "bravo"} {
		s.GetOrCreate(id, models.DefaultDeviceName, now)
	}

	list := s.List()
	if len(list) != 3 {
		t.Fatalf("Expected 3 devices, got %d", len(list))
	}
	for i, want := range []string{"alpha", "bravo", "charlie"} {
		if list[i].DeviceID != want {
			t.Errorf("Expected %s at position %d, got %s", want, i, list[i].DeviceID)
		}
	}
}

// Concurrent configuration and telemetry writers must never leave a record
// where either group is half-applied.
func TestConcurrentWritersKeepGroupsAtomic(t *testing.T) {
	s, _ := New(nil)
	s.GetOrCreate("dev-001", models.DefaultDeviceName, time.Now())

	groupA := Settings{Enabled: true, Intensity: 4, DurationMinutes: 20, Light: 155}
	groupB := Settings{Enabled: false, Intensity: 3, DurationMinutes: 10, Light: 200}
	s.ApplySettings("dev-001", groupA)

	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			if i%2 == 0 {
				s.ApplySettings("dev-001", groupA)
			} else {
				s.ApplySettings("dev-001", groupB)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			s.ApplyTelemetry("dev-001", float64(i), float64(i), float64(i), time.Now())
		}
	}()

	deadline := time.After(100 * time.Millisecond)
	for {
		select {
		case <-deadline:
			close(done)
			wg.Wait()
			return
		default:
		}
		dev, err := s.Get("dev-001")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		got := Settings{Enabled: dev.IsEnabled, Intensity: dev.IrrIntensity, DurationMinutes: dev.IrrTime, Light: dev.LightIntensity}
		if got != groupA && got != groupB {
			close(done)
			wg.Wait()
			t.Fatalf("Observed half-applied settings group: %+v", got)
		}
		if dev.Temperature != dev.Humidity || dev.Humidity != dev.PH {
			close(done)
			wg.Wait()
			t.Fatalf("Observed half-applied telemetry group: %+v", dev)
		}
	}
}
