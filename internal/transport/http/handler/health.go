package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Check probes one dependency. A nil error means healthy.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

type DocumentCounter interface {
	Count(ctx context.Context) (int64, error)
}

type HealthHandler struct {
	name      string
	version   string
	env       string
	startedAt time.Time
	documents DocumentCounter
	checks    []Check
}

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func NewHealthHandler(name, version, env string, startedAt time.Time, documents DocumentCounter, checks ...Check) *HealthHandler {
	return &HealthHandler{
		name:      name,
		version:   version,
		env:       env,
		startedAt: startedAt,
		documents: documents,
		checks:    checks,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	allOK := true
	deps := make(map[string]dependencyStatus, len(h.checks))
	for _, check := range h.checks {
		if err := check.Probe(ctx); err != nil {
			allOK = false
			deps[check.Name] = dependencyStatus{OK: false, Message: err.Error()}
			continue
		}
		deps[check.Name] = dependencyStatus{OK: true}
	}

	var count int64
	if h.documents != nil {
		n, err := h.documents.Count(ctx)
		if err != nil {
			allOK = false
		}
		count = n
	}

	status, statusCode := "healthy", http.StatusOK
	if !allOK {
		status, statusCode = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(statusCode, gin.H{
		"status":          status,
		"app":             h.name,
		"version":         h.version,
		"env":             h.env,
		"documents_count": count,
		"uptime_sec":      int(time.Since(h.startedAt).Seconds()),
		"dependencies":    deps,
	})
}
