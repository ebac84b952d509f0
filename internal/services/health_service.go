package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"salespulse/internal/config"
)

// Health check statuses. Degraded means the service works but the chat
// assistant will fail until Ollama is back.
const (
	HealthStatusHealthy   = "healthy"
	HealthStatusDegraded  = "degraded"
	HealthStatusUnhealthy = "unhealthy"
)

const ollamaProbeTimeout = 2 * time.Second

// CheckResult is the outcome of a single readiness check
type CheckResult struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// HealthStatus is the aggregate health report
type HealthStatus struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// HealthService answers liveness and readiness probes
type HealthService struct {
	config    *config.Config
	paths     *config.Paths
	client    *http.Client
	logger    *slog.Logger
	startedAt time.Time
}

// NewHealthService creates a health service using the default logger
func NewHealthService(cfg *config.Config, paths *config.Paths) *HealthService {
	return NewHealthServiceWithLogger(cfg, paths, slog.Default())
}

// NewHealthServiceWithLogger creates a health service with a specific logger
func NewHealthServiceWithLogger(cfg *config.Config, paths *config.Paths, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		config:    cfg,
		paths:     paths,
		client:    &http.Client{Timeout: ollamaProbeTimeout},
		logger:    logger.With(slog.String("component", "health_service")),
		startedAt: time.Now(),
	}
}

// Liveness reports that the process is up. It never fails.
func (hs *HealthService) Liveness(ctx context.Context) *HealthStatus {
	return &HealthStatus{
		Status:    HealthStatusHealthy,
		Version:   config.AppVersion,
		Uptime:    time.Since(hs.startedAt).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
	}
}

// Readiness verifies the data directories are writable and probes Ollama.
// Directory failures make the service unhealthy. An unreachable model only
// degrades it, uploads and direct analyses still work.
func (hs *HealthService) Readiness(ctx context.Context) *HealthStatus {
	checks := map[string]CheckResult{
		"uploads_dir": hs.checkDirWritable(hs.paths.UploadsDir),
		"charts_dir":  hs.checkDirWritable(hs.paths.ChartsDir),
		"reports_dir": hs.checkDirWritable(hs.paths.ReportsDir),
		"ollama":      hs.checkOllama(ctx),
	}

	status := HealthStatusHealthy
	for name, check := range checks {
		if check.Status == HealthStatusHealthy {
			continue
		}
		if name == "ollama" {
			if status == HealthStatusHealthy {
				status = HealthStatusDegraded
			}
			continue
		}
		status = HealthStatusUnhealthy
	}

	if status != HealthStatusHealthy {
		hs.logger.WarnContext(ctx, "readiness check not healthy",
			slog.String("status", status))
	}

	return &HealthStatus{
		Status:    status,
		Version:   config.AppVersion,
		Uptime:    time.Since(hs.startedAt).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	}
}

// checkDirWritable verifies the directory exists and accepts writes by
// creating and removing a probe file
func (hs *HealthService) checkDirWritable(dir string) CheckResult {
	info, err := os.Stat(dir)
	if err != nil {
		return CheckResult{Status: HealthStatusUnhealthy, Detail: err.Error()}
	}
	if !info.IsDir() {
		return CheckResult{Status: HealthStatusUnhealthy, Detail: fmt.Sprintf("%s is not a directory", dir)}
	}

	probe := filepath.Join(dir, ".healthcheck")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return CheckResult{Status: HealthStatusUnhealthy, Detail: err.Error()}
	}
	os.Remove(probe)

	return CheckResult{Status: HealthStatusHealthy}
}

// checkOllama probes the model server's tag listing endpoint
func (hs *HealthService) checkOllama(ctx context.Context) CheckResult {
	url := hs.config.Ollama.BaseURL + "/api/tags"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return CheckResult{Status: HealthStatusDegraded, Detail: err.Error()}
	}

	resp, err := hs.client.Do(req)
	if err != nil {
		return CheckResult{
			Status: HealthStatusDegraded,
			Detail: fmt.Sprintf("ollama unreachable at %s: %s", hs.config.Ollama.BaseURL, err.Error()),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return CheckResult{
			Status: HealthStatusDegraded,
			Detail: fmt.Sprintf("ollama returned status %d", resp.StatusCode),
		}
	}

	return CheckResult{Status: HealthStatusHealthy, Detail: "model " + hs.config.Ollama.Model}
}
