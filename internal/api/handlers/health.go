package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/finexa/fxarb/internal/database"
	"github.com/finexa/fxarb/internal/services"
)

type HealthHandler struct {
	db        *database.PostgresDB
	redis     *database.RedisClient
	scheduler *services.Scheduler
}

func NewHealthHandler(db *database.PostgresDB, redis *database.RedisClient, scheduler *services.Scheduler) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, scheduler: scheduler}
}

type HealthResponse struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Services  ServiceHealth            `json:"services"`
	Scheduler services.SchedulerStatus `json:"scheduler"`
	System    SystemHealth             `json:"system"`
}

type ServiceHealth struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

type SystemHealth struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
}

// HealthCheck reports engine, store and host health. Disabled backends
// report as such instead of failing the check.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   "1.0.0",
		Services:  ServiceHealth{Database: "disabled", Redis: "disabled"},
		Scheduler: h.scheduler.Status(),
		System:    systemHealth(c.Request.Context()),
	}

	if h.db != nil {
		response.Services.Database = "ok"
		if err := h.db.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Database = "error"
			response.Status = "degraded"
		}
	}
	if h.redis != nil {
		response.Services.Redis = "ok"
		if err := h.redis.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Redis = "error"
			response.Status = "degraded"
		}
	}

	statusCode := http.StatusOK
	if response.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, response)
}

func systemHealth(ctx context.Context) SystemHealth {
	var out SystemHealth
	// Zero-interval read returns the usage since the previous call instead of
	// blocking the request.
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		out.CPUPercent = percents[0]
	}
	if memInfo, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		out.MemoryPercent = memInfo.UsedPercent
		out.MemoryUsedMB = memInfo.Used / 1024 / 1024
	}
	return out
}
