// Package telemetry implements the check-in protocol spoken by the
// controllers: a `;`-separated triple of sensor readings inbound, a
// `;`-separated triple of control outputs back. Both the HTTP endpoint and
// the MQTT bridge feed the same ingest path here.
package telemetry

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/smartgrowth/smartgrowth-server/internal/metrics"
	"github.com/smartgrowth/smartgrowth-server/internal/models"
	"github.com/smartgrowth/smartgrowth-server/internal/store"
)

// FieldSeparator is the delimiter used on both directions of the wire.
const FieldSeparator = ";"

// Reading is one parsed telemetry report.
type Reading struct {
	Temperature float64
	Humidity    float64
	PH          float64
}

// ParseReading parses a raw payload into exactly three floats. Anything
// else fails with models.ErrMalformedTelemetry; no fields are applied from
// a payload that does not parse as a whole.
func ParseReading(payload string) (Reading, error) {
	parts := strings.Split(payload, FieldSeparator)
	if len(parts) != 3 {
		return Reading{}, fmt.Errorf("expected 3 fields, got %d: %w", len(parts), models.ErrMalformedTelemetry)
	}
	values := make([]float64, 3)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Reading{}, fmt.Errorf("field %d %q is not numeric: %w", i+1, p, models.ErrMalformedTelemetry)
		}
		values[i] = v
	}
	return Reading{Temperature: values[0], Humidity: values[1], PH: values[2]}, nil
}

// FormatControl renders the control outputs a device acts on: enablement and
// irrigation flag as 0/1, then the light setpoint. Field order, separator
// and boolean encoding are fixed; controllers parse this byte-for-byte.
func FormatControl(d models.Device) string {
	return strings.Join([]string{
		strconv.Itoa(boolToInt(d.IsEnabled)),
		strconv.Itoa(boolToInt(d.IrrOn)),
		strconv.Itoa(d.LightIntensity),
	}, FieldSeparator)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Notifier receives operator-facing announcements. Implemented by the slack
// client; a nil Notifier disables announcements.
type Notifier interface {
	SendMessageSafe(message string) bool
}

// Ingestor handles one device check-in end to end: resolve or create the
// record, apply the optional payload, hand back the current control outputs.
type Ingestor struct {
	store    *store.Store
	notifier Notifier
	now      func() time.Time
}

func NewIngestor(s *store.Store, notifier Notifier) *Ingestor {
	return &Ingestor{
		store:    s,
		notifier: notifier,
		now:      time.Now,
	}
}

// CheckIn processes one report from deviceID. An empty payload is a bare
// check-in: the record is still created or its control state read, nothing
// is written to the sensor fields. The returned snapshot reflects the state
// the control response must be built from.
func (i *Ingestor) CheckIn(deviceID, payload string) (models.Device, error) {
	dev, created, err := i.store.GetOrCreate(deviceID, models.DefaultDeviceName, i.now())
	if err != nil {
		metrics.TelemetryRejected.WithLabelValues("invalid_identifier").Inc()
		return models.Device{}, err
	}
	if created {
		metrics.DevicesCreated.Inc()
		log.Infof("Registered new device %s on first contact", deviceID)
		if i.notifier != nil {
			i.notifier.SendMessageSafe(fmt.Sprintf("New device registered: %s (%s)", dev.DeviceName, deviceID))
		}
	}

	if payload != "" {
		reading, err := ParseReading(payload)
		if err != nil {
			metrics.TelemetryRejected.WithLabelValues("malformed_payload").Inc()
			return models.Device{}, err
		}
		dev, err = i.store.ApplyTelemetry(deviceID, reading.Temperature, reading.Humidity, reading.PH, i.now())
		if err != nil {
			return models.Device{}, err
		}
	}

	metrics.TelemetryReports.Inc()
	return dev, nil
}
