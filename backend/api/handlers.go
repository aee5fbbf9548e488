package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/gilchrisn/poi-engine/backend/models"
	"github.com/gilchrisn/poi-engine/backend/service"
	"github.com/gilchrisn/poi-engine/backend/utils"
	"github.com/gilchrisn/poi-engine/pkg/clustering"
	"github.com/gilchrisn/poi-engine/pkg/poi"
)

// Handlers contains HTTP request handlers
type Handlers struct {
	jobService        *service.JobService
	comparisonService *service.ComparisonService
	baseOptions       poi.Options
	maxBodyBytes      int64
	startedAt         time.Time
}

// NewHandlers creates new API handlers
func NewHandlers(jobService *service.JobService, comparisonService *service.ComparisonService, baseOptions poi.Options, maxBodyBytes int64) *Handlers {
	return &Handlers{
		jobService:        jobService,
		comparisonService: comparisonService,
		baseOptions:       baseOptions,
		maxBodyBytes:      maxBodyBytes,
		startedAt:         time.Now(),
	}
}

// decodeBody decodes a size-limited JSON body and validates its tags.
// It writes the error response itself and reports whether to continue.
func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.WriteErrorResponse(w, http.StatusRequestEntityTooLarge, "Request body too large", err)
			return false
		}
		log.Warn().Err(err).Msg("Invalid request body")
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}

	if fields := utils.ValidateStruct(dst); fields != nil {
		utils.WriteValidationErrorResponse(w, "Request validation failed", fields)
		return false
	}
	return true
}

// writeServiceError maps service errors onto HTTP statuses
func writeServiceError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrJobNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrJobNotCompleted):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidRequest):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg(message)
	}
	utils.WriteErrorResponse(w, status, message, err)
}

// StartCalculation queues an importance calculation
func (h *Handlers) StartCalculation(w http.ResponseWriter, r *http.Request) {
	var req models.CalculationRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	job, err := h.jobService.Submit(req.Snapshot, req.Parameters)
	if err != nil {
		writeServiceError(w, "Failed to start calculation", err)
		return
	}

	response := models.CalculationResponse{
		JobID: job.ID,
		Job:   *job,
	}
	utils.WriteSuccessResponseWithStatus(w, http.StatusAccepted, "Calculation job started", response)
}

// GetCalculation returns the job status
func (h *Handlers) GetCalculation(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	job, err := h.jobService.Get(jobID)
	if err != nil {
		writeServiceError(w, "Job not found", err)
		return
	}

	utils.WriteSuccessResponse(w, "Job retrieved successfully", job)
}

// GetImportances returns the importance of every account of a completed job
func (h *Handlers) GetImportances(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	result, err := h.jobService.GetResult(jobID)
	if err != nil {
		writeServiceError(w, "Importances not available", err)
		return
	}

	entries := make([]models.ImportanceEntry, len(result.Addresses))
	for i, address := range result.Addresses {
		entries[i] = models.ImportanceEntry{
			Address:    address,
			Importance: result.Importances[i],
			Rank:       result.Rank[i],
		}
	}

	utils.WriteSuccessResponse(w, "Importances retrieved successfully", models.ImportancesResponse{
		JobID:         jobID,
		Height:        result.Height,
		GroupedHeight: result.GroupedHeight,
		Importances:   entries,
	})
}

// GetClusters returns the clusters, hubs and outliers of a completed job
func (h *Handlers) GetClusters(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	result, err := h.jobService.GetResult(jobID)
	if err != nil {
		writeServiceError(w, "Clusters not available", err)
		return
	}

	describe := func(groups []*clustering.Cluster) []models.ClusterInfo {
		infos := make([]models.ClusterInfo, len(groups))
		for i, c := range groups {
			ids := c.Members().IDs()
			members := make([]string, len(ids))
			for j, node := range ids {
				members[j] = result.Addresses[node]
			}
			infos[i] = models.ClusterInfo{ID: c.ID().Raw(), Members: members}
		}
		return infos
	}

	utils.WriteSuccessResponse(w, "Clusters retrieved successfully", models.ClustersResponse{
		JobID:    jobID,
		Strategy: result.Strategy,
		Clusters: describe(result.Clustering.Clusters()),
		Hubs:     describe(result.Clustering.Hubs()),
		Outliers: describe(result.Clustering.Outliers()),
	})
}

// CancelCalculation cancels a queued or running job
func (h *Handlers) CancelCalculation(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	job, err := h.jobService.Cancel(jobID)
	if err != nil {
		writeServiceError(w, "Job cancellation failed", err)
		return
	}

	utils.WriteSuccessResponse(w, "Job cancelled", job)
}

// CreateComparison compares clustering strategies on one snapshot
func (h *Handlers) CreateComparison(w http.ResponseWriter, r *http.Request) {
	var req models.ComparisonRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	comparison, err := h.comparisonService.Compare(req.Snapshot, req.Parameters, req.Strategies)
	if err != nil {
		writeServiceError(w, "Comparison failed", err)
		return
	}

	utils.WriteSuccessResponse(w, "Comparison completed", comparison)
}

// GroupedHeight maps a height onto the height its importances come from
func (h *Handlers) GroupedHeight(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	height, err := strconv.ParseUint(query.Get("height"), 10, 64)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid height", err)
		return
	}

	interval := h.baseOptions.GroupingInterval
	if raw := query.Get("interval"); raw != "" {
		if interval, err = strconv.ParseUint(raw, 10, 64); err != nil {
			utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid interval", err)
			return
		}
	}

	grouped, err := poi.GroupedHeight(height, interval)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid grouped height request", err)
		return
	}

	utils.WriteSuccessResponse(w, "Grouped height computed", models.GroupedHeightResponse{
		Height:        height,
		Interval:      interval,
		GroupedHeight: grouped,
	})
}

// HealthCheck reports service liveness
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, "Service is healthy", map[string]interface{}{
		"status": "healthy",
		"uptime": time.Since(h.startedAt).String(),
		"jobs":   len(h.jobService.List()),
	})
}

var strategyDescriptions = map[clustering.StrategyType]string{
	clustering.StrategyScan:              "SCAN structural clustering with hubs and outliers",
	clustering.StrategyFastScan:          "SCAN with pivot-ordered expansion, same partition as scan",
	clustering.StrategyOutlierScan:       "every account is its own outlier",
	clustering.StrategySingleClusterScan: "all accounts in one cluster",
}

// ListStrategies lists the clustering strategies
func (h *Handlers) ListStrategies(w http.ResponseWriter, r *http.Request) {
	all := clustering.AllStrategyTypes()
	strategies := make([]models.StrategyInfo, len(all))
	for i, t := range all {
		strategies[i] = models.StrategyInfo{
			Name:        string(t),
			Description: strategyDescriptions[t],
			Default:     t == h.baseOptions.Strategy,
		}
	}

	utils.WriteSuccessResponse(w, fmt.Sprintf("%d strategies available", len(strategies)), strategies)
}
