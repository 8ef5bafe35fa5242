package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterUnderLimit(t *testing.T) {
	l := NewLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if res := l.CheckAndConsume("ch1"); res.Limited {
			t.Fatalf("request %d unexpectedly limited", i)
		}
	}
	if res := l.CheckAndConsume("ch1"); !res.Limited {
		t.Error("4th request should be limited")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := NewLimiter(1, time.Minute)

	if l.CheckAndConsume("ch1").Limited {
		t.Fatal("first ch1 request limited")
	}
	if l.CheckAndConsume("ch2").Limited {
		t.Error("ch2 must not share ch1's window")
	}
	if !l.CheckAndConsume("ch1").Limited {
		t.Error("second ch1 request should be limited")
	}
}

func TestLimiterWindowSlides(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	current := time.Now()
	l.now = func() time.Time { return current }

	if l.CheckAndConsume("ch1").Limited {
		t.Fatal("first request limited")
	}
	if !l.CheckAndConsume("ch1").Limited {
		t.Fatal("second request should be limited")
	}

	current = current.Add(61 * time.Second)
	if l.CheckAndConsume("ch1").Limited {
		t.Error("request after window should be allowed")
	}
}

func TestLimiterCleanupDropsIdleKeys(t *testing.T) {
	l := NewLimiter(5, time.Minute)
	current := time.Now()
	l.now = func() time.Time { return current }

	l.CheckAndConsume("ch1")
	current = current.Add(2 * time.Minute)
	l.cleanup()

	l.mu.Lock()
	_, ok := l.requests["ch1"]
	l.mu.Unlock()
	if ok {
		t.Error("idle key should be removed by cleanup")
	}
}

func TestSignalLimiterBurst(t *testing.T) {
	l := NewSignalLimiter(1, 3)

	limited := 0
	for i := 0; i < 5; i++ {
		if l.CheckAndConsume("ch1").Limited {
			limited++
		}
	}
	if limited == 0 {
		t.Error("expected some pings beyond the burst to be limited")
	}
	if l.CheckAndConsume("ch2").Limited {
		t.Error("fresh key must start with a full bucket")
	}
}
