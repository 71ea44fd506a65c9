package main

import (
	"net/http"
	"time"

	"github.com/mdevlab/buzzroom/go/internal/gateway"
	"github.com/rs/zerolog/log"
)

func setupServer(config *Config, services *Services, cm *gateway.ConnectionManager) *http.Server {
	mux := http.NewServeMux()

	apiHandler := gateway.NewAPIHandler(services.Sessions, services.Rosters, services.Buzzes, services.Questions)
	apiHandler.RegisterRoutes(mux)

	wsHandler := gateway.NewWebSocketHandler(cm)
	wsHandler.RegisterRoutes(mux)

	setupHealthCheck(mux)

	corsHandler := gateway.NewCORS(config.Server.AllowedOrigins)

	server := &http.Server{
		Addr:         ":" + config.Server.Port,
		Handler:      corsHandler.Handler(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Info().Str("port", config.Server.Port).Msg("HTTP server configured")
	return server
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
}
