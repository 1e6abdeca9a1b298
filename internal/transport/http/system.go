package httptransport

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/JoseDiazCodes/LibertyLM/internal/platform/logging"
)

// SystemService reports process and host health.
type SystemService struct {
	logger    *logging.Logger
	startedAt time.Time
	version   string
}

// NewSystemService builds the system transport service.
func NewSystemService(logger *logging.Logger, version string) *SystemService {
	return &SystemService{
		logger:    logger,
		startedAt: time.Now(),
		version:   version,
	}
}

// Register wires the public health route and the secured stats route.
func (s *SystemService) Register(public, secured *gin.RouterGroup) {
	public.GET("/health", s.handleHealth)
	secured.GET("/system/stats", s.handleStats)
}

func (s *SystemService) handleHealth(c *gin.Context) {
	RespondSuccess(c, http.StatusOK, gin.H{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.startedAt).String(),
	}, "")
}

func (s *SystemService) handleStats(c *gin.Context) {
	stats := gin.H{
		"goVersion":  runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
		"uptime":     time.Since(s.startedAt).String(),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		stats["cpuPercent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats["memUsedPercent"] = vm.UsedPercent
		stats["memTotalBytes"] = vm.Total
	}
	if info, err := host.Info(); err == nil {
		stats["hostname"] = info.Hostname
		stats["platform"] = info.Platform
		stats["hostUptime"] = info.Uptime
	}

	RespondSuccess(c, http.StatusOK, stats, "")
}
