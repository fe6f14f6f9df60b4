package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
)

type cachedUser struct {
	ID        uuid.UUID         `json:"id"`
	Email     string            `json:"email"`
	Role      string            `json:"role"`
	CreatedAt time.Time         `json:"created_at"`
	Teams     []string          `json:"teams"`
	Claims    map[string]string `json:"claims"`
}

func setupMultiLevel(t *testing.T) (*MultiLevelCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewMultiLevelCache(NewRedisCache(client, "hrmspro:"))
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestCopyValue_BasicTypes(t *testing.T) {
	tests := []struct {
		name     string
		src      interface{}
		dest     interface{}
		expected interface{}
	}{
		{"string copy", "op@example.com", new(string), "op@example.com"},
		{"int copy", 42, new(int), 42},
		{"bool copy", true, new(bool), true},
		{"float64 copy", 3.5, new(float64), 3.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := copyValue(tt.src, tt.dest); err != nil {
				t.Fatalf("copyValue() error = %v", err)
			}

			var got interface{}
			switch d := tt.dest.(type) {
			case *string:
				got = *d
			case *int:
				got = *d
			case *bool:
				got = *d
			case *float64:
				got = *d
			}
			if got != tt.expected {
				t.Errorf("copyValue() got = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCopyValue_ErrorCases(t *testing.T) {
	tests := []struct {
		name string
		dest interface{}
	}{
		{"non-pointer destination", "not a pointer"},
		{"nil pointer destination", (*string)(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := copyValue("x", tt.dest); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestCopyValue_DeepCopy(t *testing.T) {
	original := cachedUser{
		ID:     uuid.Must(uuid.NewV4()),
		Email:  "m@example.com",
		Teams:  []string{"ops", "night"},
		Claims: map[string]string{"role": "MANAGER"},
	}

	var copied cachedUser
	if err := copyValue(original, &copied); err != nil {
		t.Fatalf("copyValue() failed: %v", err)
	}
	if copied.ID != original.ID || copied.Email != original.Email {
		t.Errorf("Expected identity fields copied, got %+v", copied)
	}

	original.Teams[0] = "modified"
	original.Claims["role"] = "modified"

	if copied.Teams[0] == "modified" {
		t.Error("Deep copy failed: slice was not deep copied")
	}
	if copied.Claims["role"] == "modified" {
		t.Error("Deep copy failed: map was not deep copied")
	}
}

func TestMultiLevelCache_SetGet(t *testing.T) {
	c, mr := setupMultiLevel(t)

	user := cachedUser{ID: uuid.Must(uuid.NewV4()), Email: "o@example.com", Role: "OPERATOR"}
	if err := c.Set("user:email:o@example.com", user, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if !mr.Exists("hrmspro:user:email:o@example.com") {
		t.Error("Expected value to be written to redis")
	}

	var got cachedUser
	if err := c.Get("user:email:o@example.com", &got); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("Expected id %s, got %s", user.ID, got.ID)
	}
	if c.GetMetrics().GetStats().Hits != 1 {
		t.Errorf("Expected 1 hit, got %d", c.GetMetrics().GetStats().Hits)
	}
}

func TestMultiLevelCache_L2PromotesToL1(t *testing.T) {
	c, mr := setupMultiLevel(t)

	mr.Set("hrmspro:user:email:pm@example.com", `{"id":"6ba7b810-9dad-11d1-80b4-00c04fd430c8","email":"pm@example.com","role":"PROJECT_MANAGER"}`)

	var got cachedUser
	if err := c.Get("user:email:pm@example.com", &got); err != nil {
		t.Fatalf("Expected L2 hit, got %v", err)
	}
	if got.Role != "PROJECT_MANAGER" {
		t.Errorf("Expected role from redis, got %s", got.Role)
	}

	mr.FlushAll()

	var again cachedUser
	if err := c.Get("user:email:pm@example.com", &again); err != nil {
		t.Fatalf("Expected L1 hit after promotion, got %v", err)
	}
	if again.Email != "pm@example.com" {
		t.Errorf("Expected promoted value, got %+v", again)
	}
}

func TestMultiLevelCache_MissAndDelete(t *testing.T) {
	c, _ := setupMultiLevel(t)

	var got cachedUser
	if err := c.Get("absent", &got); err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
	if c.GetCircuitBreaker().State() != StateClosed {
		t.Error("Expected a miss not to count as a redis failure")
	}

	c.Set("user:email:a@example.com", cachedUser{Email: "a@example.com"}, time.Minute)
	c.Set("user:email:b@example.com", cachedUser{Email: "b@example.com"}, time.Minute)
	if err := c.DeletePattern("user:email:*"); err != nil {
		t.Fatalf("DeletePattern failed: %v", err)
	}
	if ok, _ := c.Exists("user:email:a@example.com"); ok {
		t.Error("Expected key to be deleted")
	}
}

func TestMultiLevelCache_RedisDownFallsBackToL1(t *testing.T) {
	c, mr := setupMultiLevel(t)
	mr.Close()

	if err := c.Set("k", "v", time.Minute); err != nil {
		t.Errorf("Expected Set to tolerate redis failure, got %v", err)
	}

	var got string
	if err := c.Get("k", &got); err != nil || got != "v" {
		t.Errorf("Expected L1 value, got %q (%v)", got, err)
	}
	if c.GetMetrics().GetStats().Errors == 0 {
		t.Error("Expected redis error to be recorded")
	}
	if c.Health() == nil {
		t.Error("Expected unhealthy redis")
	}
}

func TestMultiLevelCache_WithoutRedis(t *testing.T) {
	c := NewMultiLevelCache(nil)
	defer c.Close()

	c.Set("k", 7, time.Minute)
	var got int
	if err := c.Get("k", &got); err != nil || got != 7 {
		t.Errorf("Expected 7, got %d (%v)", got, err)
	}
	if c.Health() != nil {
		t.Error("Expected L1-only cache to be healthy")
	}
	if _, ok := c.Stats()["l2"]; ok {
		t.Error("Expected no l2 stats without redis")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	m := newMemoryCache(10 * time.Millisecond)
	defer m.Close()

	m.Set("short", 1, 5*time.Millisecond)
	m.Set("long", 2, time.Minute)
	time.Sleep(40 * time.Millisecond)

	if _, ok := m.Get("short"); ok {
		t.Error("Expected short-lived entry to expire")
	}
	if _, ok := m.Get("long"); !ok {
		t.Error("Expected long-lived entry to survive")
	}
	if m.Stats()["items"] != 1 {
		t.Errorf("Expected 1 item after sweep, got %v", m.Stats()["items"])
	}
}

func BenchmarkCopyValue_User(b *testing.B) {
	user := cachedUser{
		ID:        uuid.Must(uuid.NewV4()),
		Email:     "bench@example.com",
		Role:      "OPERATOR",
		CreatedAt: time.Now(),
		Teams:     []string{"bench"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var copied cachedUser
		_ = copyValue(user, &copied)
	}
}
