package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/smartgrowth/smartgrowth-server/internal/catalog"
	"github.com/smartgrowth/smartgrowth-server/internal/models"
	"github.com/smartgrowth/smartgrowth-server/internal/store"
	"github.com/smartgrowth/smartgrowth-server/internal/telemetry"
)

// Handlers holds the HTTP handlers' dependencies.
type Handlers struct {
	store    *store.Store
	ingestor *telemetry.Ingestor
	now      func() time.Time
}

func NewHandlers(s *store.Store, ingestor *telemetry.Ingestor) *Handlers {
	return &Handlers{
		store:    s,
		ingestor: ingestor,
		now:      time.Now,
	}
}

// deviceView is the JSON shape of a device, the record plus a staleness
// signal derived from the last check-in.
type deviceView struct {
	models.Device
	Stale bool `json:"stale"`
}

func (h *Handlers) view(d models.Device) deviceView {
	return deviceView{Device: d, Stale: d.Stale(h.now())}
}

// DeviceCheckIn is the wire contract the controllers speak: optional `data`
// query parameter with the reading triple in, control triple out as plain
// text. Response format is fixed; firmware parses it byte-for-byte.
func (h *Handlers) DeviceCheckIn(w http.ResponseWriter, r *http.Request) {
	ident := mux.Vars(r)["ident"]
	payload := telemetryParam(r)

	dev, err := h.ingestor.CheckIn(ident, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, telemetry.FormatControl(dev))
}

// telemetryParam extracts the raw `data` query value. The firmware sends
// the triple with unescaped semicolons, which net/url treats as an invalid
// pair separator and drops, so the raw query is scanned directly.
func telemetryParam(r *http.Request) string {
	for _, pair := range strings.Split(r.URL.RawQuery, "&") {
		if v, ok := strings.CutPrefix(pair, "data="); ok {
			if unescaped, err := url.QueryUnescape(v); err == nil {
				return unescaped
			}
			return v
		}
	}
	return ""
}

// ListDevices returns all registered devices for the operator's picker.
func (h *Handlers) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices := h.store.List()
	views := make([]deviceView, 0, len(devices))
	for _, d := range devices {
		views = append(views, h.view(d))
	}
	writeJSON(w, http.StatusOK, views)
}

// GetDevice returns one device.
func (h *Handlers) GetDevice(w http.ResponseWriter, r *http.Request) {
	dev, err := h.store.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(dev))
}

// UpdateSettings applies one configuration group to a device.
func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var set store.Settings
	if err := json.NewDecoder(r.Body).Decode(&set); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	dev, err := h.store.ApplySettings(mux.Vars(r)["id"], set)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Infof("Updated settings for device %s: enabled=%v intensity=%d time=%d light=%d",
		dev.DeviceID, set.Enabled, set.Intensity, set.DurationMinutes, set.Light)
	writeJSON(w, http.StatusOK, h.view(dev))
}

type presetRequest struct {
	Name string `json:"name"`
}

// ApplyPreset configures a device from a named plant preset.
func (h *Handlers) ApplyPreset(w http.ResponseWriter, r *http.Request) {
	var req presetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	set, err := catalog.Lookup(req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	dev, err := h.store.ApplySettings(mux.Vars(r)["id"], set)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Infof("Applied preset %q to device %s", req.Name, dev.DeviceID)
	writeJSON(w, http.StatusOK, h.view(dev))
}

type renameRequest struct {
	Name string `json:"name"`
}

// RenameDevice changes a device's display name.
func (h *Handlers) RenameDevice(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	dev, err := h.store.Rename(mux.Vars(r)["id"], req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(dev))
}

// ListPresets returns the built-in preset names.
func (h *Handlers) ListPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.Names())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

// writeError maps the error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, models.ErrInvalidIdentifier),
		errors.Is(err, models.ErrMalformedTelemetry),
		errors.Is(err, models.ErrInvalidSetting):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Errorf("Request failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
