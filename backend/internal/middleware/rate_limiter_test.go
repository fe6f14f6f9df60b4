package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"hrmspro/backend/internal/models"
)

func setupTestGin() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func setupTestRedis(t testing.TB) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	return client, mr
}

// withTestPrincipal stands in for Authenticate, taking the user id from
// the X-Test-User header.
func withTestPrincipal() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := uuid.FromString(c.GetHeader("X-Test-User")); err == nil {
			c.Set(PrincipalKey, models.Principal{ID: id, Role: models.RoleOperator})
		}
		c.Next()
	}
}

// userLimitedRouter mounts the per-user limiter on /api/v1 the way the
// server does.
func userLimitedRouter(limiter *DistributedRateLimiter, limit *RateLimit) *gin.Engine {
	router := setupTestGin()
	v1 := router.Group("/api/v1")
	v1.Use(withTestPrincipal(), limiter.CreateMiddleware("user", limit))
	v1.GET("/reminders", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"reminders": []string{}}) })
	v1.PATCH("/tasks/:id/status", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func doAs(router *gin.Engine, method, path, userID, ip string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":40000"
	if userID != "" {
		req.Header.Set("X-Test-User", userID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_PerClientIP(t *testing.T) {
	router := setupTestGin()
	router.Use(RateLimiter(rate.Limit(0.001), 2))
	router.GET("/api/v1/tasks", func(c *gin.Context) { c.Status(http.StatusOK) })

	steps := []struct {
		ip   string
		want int
	}{
		{"10.0.0.1", http.StatusOK},
		{"10.0.0.1", http.StatusOK},
		{"10.0.0.1", http.StatusTooManyRequests},
		{"10.0.0.2", http.StatusOK},
		{"10.0.0.1", http.StatusTooManyRequests},
	}
	for i, tt := range steps {
		w := doAs(router, "GET", "/api/v1/tasks", "", tt.ip)
		if w.Code != tt.want {
			t.Errorf("step %d (%s): Expected %d, got %d", i, tt.ip, tt.want, w.Code)
		}
		if w.Code == http.StatusTooManyRequests && !strings.Contains(w.Body.String(), `"kind":"RATE_LIMITED"`) {
			t.Errorf("step %d: Expected error envelope, got %s", i, w.Body.String())
		}
	}
}

func TestDistributedRateLimiter_PerUserBudget(t *testing.T) {
	client, mr := setupTestRedis(t)
	router := userLimitedRouter(NewDistributedRateLimiter(client), &RateLimit{
		Rate: 2, Window: time.Minute, KeyFunc: UserKeyFunc,
	})

	operator := uuid.Must(uuid.NewV4()).String()
	manager := uuid.Must(uuid.NewV4()).String()

	steps := []struct {
		method string
		path   string
		user   string
		want   int
	}{
		{"GET", "/api/v1/reminders", operator, http.StatusOK},
		{"PATCH", "/api/v1/tasks/1/status", operator, http.StatusOK},
		{"GET", "/api/v1/reminders", operator, http.StatusTooManyRequests},
		{"GET", "/api/v1/reminders", manager, http.StatusOK},
	}
	// every request shares one IP so only the user key separates them
	for i, tt := range steps {
		w := doAs(router, tt.method, tt.path, tt.user, "10.0.0.9")
		if w.Code != tt.want {
			t.Errorf("step %d: Expected %d, got %d", i, tt.want, w.Code)
		}
	}

	key := "rate_limit:user:user:" + operator
	if !mr.Exists(key) {
		t.Fatalf("Expected sorted set %s, got keys %v", key, mr.Keys())
	}
	if ttl := mr.TTL(key); ttl <= 0 || ttl > time.Minute {
		t.Errorf("Expected key TTL within the window, got %v", ttl)
	}
}

func TestDistributedRateLimiter_SharedAcrossInstances(t *testing.T) {
	client, _ := setupTestRedis(t)
	limit := func() *RateLimit { return &RateLimit{Rate: 2, Window: time.Minute, KeyFunc: UserKeyFunc} }
	first := userLimitedRouter(NewDistributedRateLimiter(client), limit())
	second := userLimitedRouter(NewDistributedRateLimiter(client), limit())

	user := uuid.Must(uuid.NewV4()).String()
	doAs(first, "GET", "/api/v1/reminders", user, "10.0.0.1")
	doAs(second, "GET", "/api/v1/reminders", user, "10.0.0.2")

	if w := doAs(first, "GET", "/api/v1/reminders", user, "10.0.0.1"); w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected the budget to be shared between instances, got %d", w.Code)
	}
}

func TestDistributedRateLimiter_LimitedResponse(t *testing.T) {
	client, _ := setupTestRedis(t)
	router := userLimitedRouter(NewDistributedRateLimiter(client), &RateLimit{
		Rate: 1, Window: 30 * time.Second, KeyFunc: UserKeyFunc,
	})
	user := uuid.Must(uuid.NewV4()).String()

	doAs(router, "GET", "/api/v1/reminders", user, "10.0.0.1")
	w := doAs(router, "GET", "/api/v1/reminders", user, "10.0.0.1")

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", w.Code)
	}
	headers := map[string]string{
		"Retry-After":        "30",
		"X-RateLimit-Limit":  "1",
		"X-RateLimit-Window": "30s",
	}
	for name, want := range headers {
		if got := w.Header().Get(name); got != want {
			t.Errorf("Expected %s %q, got %q", name, want, got)
		}
	}
	if !strings.Contains(w.Body.String(), `"kind":"RATE_LIMITED"`) {
		t.Errorf("Expected error envelope, got %s", w.Body.String())
	}
}

func TestDistributedRateLimiter_OnLimit(t *testing.T) {
	client, _ := setupTestRedis(t)
	var limited []string
	router := userLimitedRouter(NewDistributedRateLimiter(client), &RateLimit{
		Rate: 1, Window: time.Minute, KeyFunc: UserKeyFunc,
		OnLimit: func(c *gin.Context) {
			limited = append(limited, c.FullPath())
			c.JSON(http.StatusServiceUnavailable, gin.H{"retry": true})
		},
	})
	user := uuid.Must(uuid.NewV4()).String()

	doAs(router, "PATCH", "/api/v1/tasks/7/status", user, "10.0.0.1")
	w := doAs(router, "PATCH", "/api/v1/tasks/7/status", user, "10.0.0.1")

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status from OnLimit, got %d", w.Code)
	}
	if len(limited) != 1 || limited[0] != "/api/v1/tasks/:id/status" {
		t.Errorf("Expected one OnLimit call for the status route, got %v", limited)
	}
}

func TestDistributedRateLimiter_FailsOpen(t *testing.T) {
	client, mr := setupTestRedis(t)
	router := userLimitedRouter(NewDistributedRateLimiter(client), &RateLimit{
		Rate: 1, Window: time.Minute, KeyFunc: UserKeyFunc,
	})
	mr.Close()

	user := uuid.Must(uuid.NewV4()).String()
	for i := 0; i < 3; i++ {
		w := doAs(router, "GET", "/api/v1/reminders", user, "10.0.0.1")
		if w.Code != http.StatusOK {
			t.Errorf("request %d: Expected 200 with redis down, got %d", i, w.Code)
		}
		if w.Header().Get("X-RateLimit-Error") != "true" {
			t.Errorf("request %d: Expected X-RateLimit-Error header", i)
		}
	}
}

func TestUserKeyFunc(t *testing.T) {
	id := uuid.Must(uuid.NewV4())

	tests := []struct {
		name  string
		setup func(c *gin.Context)
		want  string
	}{
		{"principal", func(c *gin.Context) {
			c.Set(PrincipalKey, models.Principal{ID: id, Role: models.RoleProjectManager})
		}, "user:" + id.String()},
		{"user id only", func(c *gin.Context) { c.Set(UserIDKey, id.String()) }, "user:" + id.String()},
		{"malformed user id", func(c *gin.Context) { c.Set(UserIDKey, "user123") }, "192.168.1.100"},
		{"anonymous", func(c *gin.Context) {}, "192.168.1.100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			router := setupTestGin()
			router.GET("/api/v1/dashboard", func(c *gin.Context) {
				tt.setup(c)
				got = UserKeyFunc(c)
				c.Status(http.StatusOK)
			})
			doAs(router, "GET", "/api/v1/dashboard", "", "192.168.1.100")
			if got != tt.want {
				t.Errorf("Expected key %q, got %q", tt.want, got)
			}
		})
	}
}

func TestAPIKeyFunc(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
		want   string
	}{
		{"with key", "ops-export", "api_key:ops-export"},
		{"without key", "", "192.168.1.100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			router := setupTestGin()
			router.GET("/api/v1/tasks", func(c *gin.Context) {
				got = APIKeyFunc(c)
				c.Status(http.StatusOK)
			})
			req, _ := http.NewRequest("GET", "/api/v1/tasks", nil)
			req.RemoteAddr = "192.168.1.100:40000"
			if tt.apiKey != "" {
				req.Header.Set("X-API-Key", tt.apiKey)
			}
			router.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("Expected key %q, got %q", tt.want, got)
			}
		})
	}
}
