package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func setupTestGin() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func resetGlobalMetrics() {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	globalMetrics.RequestCount = 0
	globalMetrics.RequestDuration = 0
	globalMetrics.ActiveRequests = 0
	globalMetrics.ErrorCount = 0
	globalMetrics.StatusCodes = make(map[string]int64)
	globalMetrics.Endpoints = make(map[string]int64)
	globalMetrics.StartTime = time.Now()
	globalMetrics.LastRequest = time.Time{}
	globalMetrics.totalDuration = 0
}

func resetGlobalHealthChecker() {
	globalHealthChecker.mu.Lock()
	defer globalHealthChecker.mu.Unlock()
	globalHealthChecker.checks = make(map[string]HealthCheck)
}

// apiRouter mimics the task API surface with canned status codes.
func apiRouter() *gin.Engine {
	router := setupTestGin()
	router.Use(MetricsMiddleware())
	api := router.Group("/api/v1")
	api.POST("/tasks", func(c *gin.Context) { c.Status(http.StatusCreated) })
	api.PATCH("/tasks/:id/status", func(c *gin.Context) {
		if c.Param("id") == "busy" {
			c.JSON(http.StatusConflict, gin.H{"error": "CONFLICT"})
			return
		}
		c.Status(http.StatusOK)
	})
	api.GET("/reminders", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"reminders": []string{}}) })
	api.GET("/dashboard", func(c *gin.Context) { c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL"}) })
	return router
}

func TestMetricsMiddleware_TaskAPI(t *testing.T) {
	resetGlobalMetrics()
	router := apiRouter()

	requests := []struct {
		method string
		path   string
		code   int
	}{
		{"POST", "/api/v1/tasks", http.StatusCreated},
		{"PATCH", "/api/v1/tasks/4f1c/status", http.StatusOK},
		{"PATCH", "/api/v1/tasks/9a2e/status", http.StatusOK},
		{"PATCH", "/api/v1/tasks/busy/status", http.StatusConflict},
		{"GET", "/api/v1/reminders", http.StatusOK},
		{"GET", "/api/v1/dashboard", http.StatusInternalServerError},
		{"GET", "/api/v1/unknown", http.StatusNotFound},
	}
	for _, r := range requests {
		req, _ := http.NewRequest(r.method, r.path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != r.code {
			t.Errorf("%s %s: Expected %d, got %d", r.method, r.path, r.code, w.Code)
		}
	}

	metrics := GetMetrics()
	if metrics.RequestCount != int64(len(requests)) {
		t.Errorf("Expected RequestCount %d, got %d", len(requests), metrics.RequestCount)
	}
	if metrics.ErrorCount != 1 {
		t.Errorf("Expected only the dashboard failure counted as an error, got %d", metrics.ErrorCount)
	}
	if metrics.ActiveRequests != 0 {
		t.Errorf("Expected ActiveRequests 0, got %d", metrics.ActiveRequests)
	}

	endpoints := map[string]int64{
		"POST /api/v1/tasks":             1,
		"PATCH /api/v1/tasks/:id/status": 3,
		"GET /api/v1/reminders":          1,
		"GET /api/v1/dashboard":          1,
		"GET /api/v1/unknown":            1,
	}
	for key, want := range endpoints {
		if metrics.Endpoints[key] != want {
			t.Errorf("Expected %d calls for %s, got %d", want, key, metrics.Endpoints[key])
		}
	}

	codes := map[string]int64{"Created": 1, "OK": 3, "Conflict": 1, "Internal Server Error": 1, "Not Found": 1}
	for text, want := range codes {
		if metrics.StatusCodes[text] != want {
			t.Errorf("Expected %d %q responses, got %d", want, text, metrics.StatusCodes[text])
		}
	}
	if metrics.LastRequest.IsZero() {
		t.Error("Expected LastRequest to be set")
	}
}

func TestMetricsMiddleware_ActiveDuringHandler(t *testing.T) {
	resetGlobalMetrics()

	var during int64
	router := setupTestGin()
	router.Use(MetricsMiddleware())
	router.POST("/api/v1/tasks/:id/upload", func(c *gin.Context) {
		during = GetMetrics().ActiveRequests
		c.Status(http.StatusOK)
	})

	req, _ := http.NewRequest("POST", "/api/v1/tasks/1/upload", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	if during != 1 {
		t.Errorf("Expected 1 active request inside the handler, got %d", during)
	}
	if GetMetrics().ActiveRequests != 0 {
		t.Errorf("Expected 0 active requests afterwards, got %d", GetMetrics().ActiveRequests)
	}
}

func TestGetMetrics_ReturnsCopy(t *testing.T) {
	resetGlobalMetrics()
	router := apiRouter()
	req, _ := http.NewRequest("GET", "/api/v1/reminders", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	snapshot := GetMetrics()
	snapshot.Endpoints["GET /api/v1/reminders"] = 99

	if GetMetrics().Endpoints["GET /api/v1/reminders"] != 1 {
		t.Error("Expected snapshot edits not to leak into the live counters")
	}
}

func TestMetricsHandler(t *testing.T) {
	resetGlobalMetrics()

	router := apiRouter()
	router.GET("/metrics", MetricsHandler())
	req, _ := http.NewRequest("POST", "/api/v1/tasks", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	req, _ = http.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK, got %d", w.Code)
	}

	var response struct {
		Application map[string]json.RawMessage `json:"application"`
		System      map[string]json.RawMessage `json:"system"`
		Timestamp   string                     `json:"timestamp"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse metrics response: %v", err)
	}
	for _, key := range []string{"requestCount", "errorCount", "endpoints", "statusCodes", "averageDuration"} {
		if _, ok := response.Application[key]; !ok {
			t.Errorf("Expected application.%s in response", key)
		}
	}
	for _, key := range []string{"uptimeSeconds", "goroutines", "goVersion", "memory"} {
		if _, ok := response.System[key]; !ok {
			t.Errorf("Expected system.%s in response", key)
		}
	}
	if _, err := time.Parse(time.RFC3339, response.Timestamp); err != nil {
		t.Errorf("Expected RFC3339 timestamp, got %q", response.Timestamp)
	}
}

func TestRunHealthChecks(t *testing.T) {
	tests := []struct {
		name      string
		database  error
		redis     error
		wantDB    string
		wantRedis string
	}{
		{"all up", nil, nil, "healthy", "healthy"},
		{"redis down", nil, errors.New("dial tcp: connection refused"), "healthy", "unhealthy"},
		{"database down", errors.New("sql: database is closed"), nil, "unhealthy", "healthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetGlobalHealthChecker()
			RegisterHealthCheck("database", func(ctx context.Context) error {
				if _, ok := ctx.Deadline(); !ok {
					return errors.New("expected a deadline")
				}
				return tt.database
			})
			RegisterHealthCheck("redis", func(ctx context.Context) error { return tt.redis })

			checks := RunHealthChecks()
			if checks["database"].Status != tt.wantDB {
				t.Errorf("Expected database %s, got %s (%s)", tt.wantDB, checks["database"].Status, checks["database"].Message)
			}
			if checks["redis"].Status != tt.wantRedis {
				t.Errorf("Expected redis %s, got %s", tt.wantRedis, checks["redis"].Status)
			}
			if tt.redis != nil && checks["redis"].Message != tt.redis.Error() {
				t.Errorf("Expected redis message %q, got %q", tt.redis.Error(), checks["redis"].Message)
			}
			if checks["database"].CheckedAt.IsZero() {
				t.Error("Expected CheckedAt to be set")
			}
		})
	}
}

func TestRegisterHealthCheck_ReplacesByName(t *testing.T) {
	resetGlobalHealthChecker()
	RegisterHealthCheck("redis", func(ctx context.Context) error { return errors.New("down") })
	RegisterHealthCheck("redis", func(ctx context.Context) error { return nil })

	checks := RunHealthChecks()
	if len(checks) != 1 {
		t.Fatalf("Expected 1 check, got %d", len(checks))
	}
	if checks["redis"].Status != "healthy" {
		t.Errorf("Expected the later registration to win, got %s", checks["redis"].Status)
	}
}

func TestHealthEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		redisErr   error
		path       string
		wantCode   int
		wantStatus string
		wantChecks bool
	}{
		{"health ok", nil, "/health", http.StatusOK, "healthy", true},
		{"health degraded", errors.New("redis down"), "/health", http.StatusServiceUnavailable, "unhealthy", true},
		{"ready", nil, "/ready", http.StatusOK, "ready", false},
		{"not ready", errors.New("redis down"), "/ready", http.StatusServiceUnavailable, "not ready", true},
		{"live ignores checks", errors.New("redis down"), "/live", http.StatusOK, "alive", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetGlobalHealthChecker()
			RegisterHealthCheck("database", func(ctx context.Context) error { return nil })
			RegisterHealthCheck("redis", func(ctx context.Context) error { return tt.redisErr })

			router := setupTestGin()
			router.GET("/health", HealthHandler())
			router.GET("/ready", ReadinessHandler())
			router.GET("/live", LivenessHandler())

			req, _ := http.NewRequest("GET", tt.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("Expected status %d, got %d", tt.wantCode, w.Code)
			}
			var response map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Fatalf("Failed to parse response: %v", err)
			}
			if response["status"] != tt.wantStatus {
				t.Errorf("Expected status %q, got %v", tt.wantStatus, response["status"])
			}
			if _, ok := response["checks"]; ok != tt.wantChecks {
				t.Errorf("Expected checks present=%v, got body %s", tt.wantChecks, w.Body.String())
			}
		})
	}
}

func TestHealthHandler_ReportsService(t *testing.T) {
	resetGlobalHealthChecker()
	RegisterHealthCheck("redis", func(ctx context.Context) error { return errors.New("NOAUTH Authentication required") })

	router := setupTestGin()
	router.GET("/health", HealthHandler())
	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	body := w.Body.String()
	if !strings.Contains(body, `"service":"hrmspro-backend"`) {
		t.Errorf("Expected service name in body, got %s", body)
	}
	if !strings.Contains(body, "NOAUTH") {
		t.Errorf("Expected failing check message in body, got %s", body)
	}
}
