package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAllowWithinQuota(t *testing.T) {
	l := New(Quota{Requests: 3, Window: time.Minute})
	for i := 0; i < 3; i++ {
		if !l.Allow("src") {
			t.Fatalf("request %d denied within quota", i+1)
		}
	}
	if l.Allow("src") {
		t.Fatalf("request over quota admitted")
	}
	if got := l.Usage("src"); got != 3 {
		t.Fatalf("usage = %d, want 3", got)
	}
}

func TestAllowWindowReset(t *testing.T) {
	now := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	l := New(Quota{Requests: 2, Window: time.Minute})
	l.now = func() time.Time { return now }

	if !l.Allow("src") || !l.Allow("src") {
		t.Fatalf("initial quota denied")
	}
	if l.Allow("src") {
		t.Fatalf("over quota admitted")
	}

	now = now.Add(61 * time.Second)
	if !l.Allow("src") {
		t.Fatalf("request denied after window rolled over")
	}
}

func TestConfigurePerSource(t *testing.T) {
	l := New(Quota{Requests: 1, Window: time.Minute})
	l.Configure("fast", Quota{Requests: 5, Window: time.Minute})

	for i := 0; i < 5; i++ {
		if !l.Allow("fast") {
			t.Fatalf("fast request %d denied", i+1)
		}
	}
	if !l.Allow("slow") {
		t.Fatalf("slow first request denied")
	}
	if l.Allow("slow") {
		t.Fatalf("slow second request admitted over default quota")
	}
}

func TestConfigureInvalidFallsBackToDefault(t *testing.T) {
	l := New(Quota{Requests: 2, Window: time.Minute})
	l.Configure("src", Quota{Requests: 0, Window: 0})

	if !l.Allow("src") || !l.Allow("src") {
		t.Fatalf("default quota denied")
	}
	if l.Allow("src") {
		t.Fatalf("over default quota admitted")
	}
}

func TestWaitAdmitsWhenSlotFrees(t *testing.T) {
	l := New(Quota{Requests: 1, Window: 30 * time.Millisecond})
	if !l.Allow("src") {
		t.Fatalf("first request denied")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	start := time.Now()
	if err := l.Wait(ctx, "src"); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatalf("Wait returned before the window freed a slot")
	}
}

func TestWaitHonorsContext(t *testing.T) {
	l := New(Quota{Requests: 1, Window: time.Hour})
	if !l.Allow("src") {
		t.Fatalf("first request denied")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, "src"); err != context.DeadlineExceeded {
		t.Fatalf("Wait = %v, want context.DeadlineExceeded", err)
	}
}
