package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes registers the API under /api/v1 and the metrics handler at
// /metrics; metrics may be nil
func SetupRoutes(router *mux.Router, handlers *Handlers, metrics http.Handler) {
	api := router.PathPrefix("/api/v1").Subrouter()

	// Calculation jobs
	calculations := api.PathPrefix("/calculations").Subrouter()
	calculations.HandleFunc("", handlers.StartCalculation).Methods("POST")
	calculations.HandleFunc("/{jobId}", handlers.GetCalculation).Methods("GET")
	calculations.HandleFunc("/{jobId}", handlers.CancelCalculation).Methods("DELETE")
	calculations.HandleFunc("/{jobId}/importances", handlers.GetImportances).Methods("GET")
	calculations.HandleFunc("/{jobId}/clusters", handlers.GetClusters).Methods("GET")

	// Strategy comparison
	api.HandleFunc("/comparisons", handlers.CreateComparison).Methods("POST")

	api.HandleFunc("/grouped-height", handlers.GroupedHeight).Methods("GET")
	api.HandleFunc("/strategies", handlers.ListStrategies).Methods("GET")
	api.HandleFunc("/health", handlers.HealthCheck).Methods("GET")

	if metrics != nil {
		router.Handle("/metrics", metrics).Methods("GET")
	}
}
