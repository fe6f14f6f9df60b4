package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func exerciseMutualExclusion(t *testing.T, locker Locker) {
	t.Helper()

	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "assignee:1")
			if err != nil {
				t.Errorf("Lock failed: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("Expected at most 1 holder at a time, got %d", maxSeen)
	}
}

func TestKeyedMutex_MutualExclusion(t *testing.T) {
	km := NewKeyedMutex()
	exerciseMutualExclusion(t, km)

	if km.size() != 0 {
		t.Errorf("Expected entries to be released, got %d", km.size())
	}
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	km := NewKeyedMutex()

	unlockA, err := km.Lock(context.Background(), "assignee:a")
	if err != nil {
		t.Fatalf("Lock a failed: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	unlockB, err := km.Lock(ctx, "assignee:b")
	if err != nil {
		t.Fatalf("Expected a different key to be free, got %v", err)
	}
	unlockB()
}

func TestKeyedMutex_ContextCancel(t *testing.T) {
	km := NewKeyedMutex()

	unlock, err := km.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := km.Lock(ctx, "k"); !errors.Is(err, ErrNotAcquired) {
		t.Errorf("Expected ErrNotAcquired, got %v", err)
	}

	unlock()
	unlock()
	if km.size() != 0 {
		t.Errorf("Expected no entries after release, got %d", km.size())
	}
}

func setupRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLocker(client, 5*time.Second), mr
}

func TestRedisLocker_MutualExclusion(t *testing.T) {
	locker, _ := setupRedisLocker(t)
	exerciseMutualExclusion(t, locker)
}

func TestRedisLocker_ReleaseOnlyOwnToken(t *testing.T) {
	locker, mr := setupRedisLocker(t)

	unlock, err := locker.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	// lock expired and was taken by someone else
	mr.Set("lock:k", "other-holder")
	unlock()

	got, err := mr.Get("lock:k")
	if err != nil {
		t.Fatalf("Expected key to survive, got %v", err)
	}
	if got != "other-holder" {
		t.Errorf("Expected other holder's token, got %q", got)
	}
}

func TestRedisLocker_Timeout(t *testing.T) {
	locker, mr := setupRedisLocker(t)

	unlock, err := locker.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "k"); !errors.Is(err, ErrNotAcquired) {
		t.Errorf("Expected ErrNotAcquired, got %v", err)
	}

	if ttl := mr.TTL("lock:k"); ttl <= 0 {
		t.Errorf("Expected lock to carry a TTL, got %v", ttl)
	}
}
