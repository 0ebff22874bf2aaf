package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"

	"github.com/smartgrowth/smartgrowth-server/internal/config"
)

// New creates the HTTP server and sets up the routes.
func New(cfg *config.Config, h *Handlers) *http.Server {
	r := mux.NewRouter()

	// The controller check-in endpoint. Path shape is part of the wire
	// contract the firmware is flashed with.
	r.HandleFunc("/arduino/{ident}", h.DeviceCheckIn).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/devices", h.ListDevices).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}", h.GetDevice).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}/settings", h.UpdateSettings).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}/preset", h.ApplyPreset).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}/name", h.RenameDevice).Methods(http.MethodPost)
	api.HandleFunc("/presets", h.ListPresets).Methods(http.MethodGet)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "OK")
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	log.Infof("API server configured to listen on %s", cfg.Server.Addr)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
	})

	return &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: c.Handler(r),
	}
}
