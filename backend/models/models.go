package models

import (
	"time"

	engine "github.com/gilchrisn/poi-engine/pkg/models"
)

// CalculationParameters override the server's engine options for one job.
// Unset fields keep the server defaults.
type CalculationParameters struct {
	Strategy         *string  `json:"strategy,omitempty" validate:"omitempty,oneof=scan fast_scan outlier_scan single_cluster_scan"`
	Mu               *int     `json:"mu,omitempty" validate:"omitempty,min=1"`
	Epsilon          *float64 `json:"epsilon,omitempty" validate:"omitempty,gte=0,lte=1"`
	MaxIterations    *int     `json:"maxIterations,omitempty" validate:"omitempty,min=1,max=100000"`
	Tolerance        *float64 `json:"tolerance,omitempty" validate:"omitempty,gt=0"`
	InterLevelWeight *float64 `json:"interLevelWeight,omitempty" validate:"omitempty,gte=0,lte=1"`
	UseNetOutlinks   *bool    `json:"useNetOutlinks,omitempty"`
}

// CalculationRequest is the body of POST /calculations
type CalculationRequest struct {
	Snapshot   *engine.Snapshot      `json:"snapshot" validate:"required"`
	Parameters CalculationParameters `json:"parameters"`
}

// ComparisonRequest is the body of POST /comparisons
type ComparisonRequest struct {
	Snapshot   *engine.Snapshot      `json:"snapshot" validate:"required"`
	Parameters CalculationParameters `json:"parameters"`
	Strategies []string              `json:"strategies,omitempty" validate:"omitempty,unique,dive,oneof=scan fast_scan outlier_scan single_cluster_scan"`
}

// Job represents an importance calculation job
type Job struct {
	ID         string                `json:"id"`
	Strategy   string                `json:"strategy"`
	Parameters CalculationParameters `json:"parameters"`
	Height     uint64                `json:"height"`
	Accounts   int                   `json:"accounts"`
	Status     JobStatus             `json:"status"`
	Progress   JobProgress           `json:"progress"`
	Result     *JobResult            `json:"result,omitempty"`
	Error      string                `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the job can no longer change status
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

type JobProgress struct {
	Percentage int    `json:"percentage"`
	Message    string `json:"message"`
}

// JobResult summarizes a completed calculation
type JobResult struct {
	GroupedHeight    uint64  `json:"groupedHeight"`
	Iterations       int     `json:"iterations"`
	FinalDelta       float64 `json:"finalDelta"`
	NumClusters      int     `json:"numClusters"`
	NumHubs          int     `json:"numHubs"`
	NumOutliers      int     `json:"numOutliers"`
	IgnoredOutlinks  int     `json:"ignoredOutlinks"`
	ProcessingTimeMS int64   `json:"processingTimeMS"`
}

// API Response types
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type CalculationResponse struct {
	JobID string `json:"jobId"`
	Job   Job    `json:"job"`
}

// ImportanceEntry is the importance of one account
type ImportanceEntry struct {
	Address    string  `json:"address"`
	Importance float64 `json:"importance"`
	Rank       float64 `json:"rank"`
}

type ImportancesResponse struct {
	JobID         string            `json:"jobId"`
	Height        uint64            `json:"height"`
	GroupedHeight uint64            `json:"groupedHeight"`
	Importances   []ImportanceEntry `json:"importances"`
}

// ClusterInfo lists the member addresses of one cluster, hub or outlier
type ClusterInfo struct {
	ID      int      `json:"id"`
	Members []string `json:"members"`
}

type ClustersResponse struct {
	JobID    string        `json:"jobId"`
	Strategy string        `json:"strategy"`
	Clusters []ClusterInfo `json:"clusters"`
	Hubs     []ClusterInfo `json:"hubs"`
	Outliers []ClusterInfo `json:"outliers"`
}

type GroupedHeightResponse struct {
	Height        uint64 `json:"height"`
	Interval      uint64 `json:"interval"`
	GroupedHeight uint64 `json:"groupedHeight"`
}

type StrategyInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Default     bool   `json:"default"`
}
