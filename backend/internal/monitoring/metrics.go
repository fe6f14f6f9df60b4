// Package monitoring tracks request metrics and named health checks and
// exposes them over gin handlers.
package monitoring

import (
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

var processStart = time.Now()

type Metrics struct {
	mu sync.RWMutex

	RequestCount    int64
	RequestDuration time.Duration
	ActiveRequests  int64
	ErrorCount      int64
	StatusCodes     map[string]int64
	Endpoints       map[string]int64
	StartTime       time.Time
	LastRequest     time.Time

	totalDuration time.Duration
}

// ApplicationMetrics is a point-in-time copy of Metrics.
type ApplicationMetrics struct {
	RequestCount    int64            `json:"requestCount"`
	AverageDuration string           `json:"averageDuration"`
	ActiveRequests  int64            `json:"activeRequests"`
	ErrorCount      int64            `json:"errorCount"`
	StatusCodes     map[string]int64 `json:"statusCodes"`
	Endpoints       map[string]int64 `json:"endpoints"`
	StartTime       time.Time        `json:"startTime"`
	LastRequest     time.Time        `json:"lastRequest"`
}

type MemoryStats struct {
	Alloc      uint64 `json:"allocMb"`
	TotalAlloc uint64 `json:"totalAllocMb"`
	Sys        uint64 `json:"sysMb"`
	NumGC      uint32 `json:"numGc"`
}

type SystemMetrics struct {
	Uptime         float64     `json:"uptimeSeconds"`
	GoroutineCount int         `json:"goroutines"`
	CPUCount       int         `json:"cpus"`
	GoVersion      string      `json:"goVersion"`
	MemoryUsage    MemoryStats `json:"memory"`
}

var globalMetrics = &Metrics{
	StatusCodes: make(map[string]int64),
	Endpoints:   make(map[string]int64),
	StartTime:   time.Now(),
}

// endpointKey groups requests by route template so /tasks/:id counts as
// one endpoint. Unmatched routes fall back to the raw path.
func endpointKey(c *gin.Context) string {
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	return c.Request.Method + " " + path
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		globalMetrics.mu.Lock()
		globalMetrics.ActiveRequests++
		globalMetrics.mu.Unlock()

		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()

		globalMetrics.mu.Lock()
		defer globalMetrics.mu.Unlock()

		globalMetrics.ActiveRequests--
		globalMetrics.RequestCount++
		globalMetrics.totalDuration += elapsed
		globalMetrics.RequestDuration = globalMetrics.totalDuration / time.Duration(globalMetrics.RequestCount)
		globalMetrics.LastRequest = start
		globalMetrics.StatusCodes[http.StatusText(status)]++
		globalMetrics.Endpoints[endpointKey(c)]++
		if status >= http.StatusInternalServerError {
			globalMetrics.ErrorCount++
		}
	}
}

func GetMetrics() ApplicationMetrics {
	globalMetrics.mu.RLock()
	defer globalMetrics.mu.RUnlock()

	statusCodes := make(map[string]int64, len(globalMetrics.StatusCodes))
	for k, v := range globalMetrics.StatusCodes {
		statusCodes[k] = v
	}
	endpoints := make(map[string]int64, len(globalMetrics.Endpoints))
	for k, v := range globalMetrics.Endpoints {
		endpoints[k] = v
	}

	return ApplicationMetrics{
		RequestCount:    globalMetrics.RequestCount,
		AverageDuration: globalMetrics.RequestDuration.String(),
		ActiveRequests:  globalMetrics.ActiveRequests,
		ErrorCount:      globalMetrics.ErrorCount,
		StatusCodes:     statusCodes,
		Endpoints:       endpoints,
		StartTime:       globalMetrics.StartTime,
		LastRequest:     globalMetrics.LastRequest,
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}

func GetSystemMetrics() SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemMetrics{
		Uptime:         time.Since(processStart).Seconds(),
		GoroutineCount: runtime.NumGoroutine(),
		CPUCount:       runtime.NumCPU(),
		GoVersion:      runtime.Version(),
		MemoryUsage: MemoryStats{
			Alloc:      bToMb(m.Alloc),
			TotalAlloc: bToMb(m.TotalAlloc),
			Sys:        bToMb(m.Sys),
			NumGC:      m.NumGC,
		},
	}
}

func MetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"application": GetMetrics(),
			"system":      GetSystemMetrics(),
			"timestamp":   time.Now().Format(time.RFC3339),
		})
	}
}
