package retry

import (
	"testing"
	"time"
)

func TestPolicy_Defaults(t *testing.T) {
	p := DefaultPolicy()

	if p.MaxRetries != 3 {
		t.Errorf("expected 3 retries, got %d", p.MaxRetries)
	}
	if p.BaseDelay != 5*time.Second {
		t.Errorf("expected 5s base delay, got %v", p.BaseDelay)
	}
}

func TestPolicy_LinearWaits(t *testing.T) {
	p := DefaultPolicy()

	wants := []time.Duration{
		5 * time.Second,
		10 * time.Second,
		15 * time.Second,
	}
	for attempt, want := range wants {
		d := p.Next(attempt)
		if d.Wait != want {
			t.Errorf("attempt %d: expected wait %v, got %v", attempt, want, d.Wait)
		}
	}
}

func TestPolicy_RetryBoundary(t *testing.T) {
	p := Policy{MaxRetries: 3, BaseDelay: time.Millisecond}

	for attempt := 0; attempt < 3; attempt++ {
		if d := p.Next(attempt); !d.Retry {
			t.Errorf("attempt %d: expected retry allowed", attempt)
		}
	}
	if d := p.Next(3); d.Retry {
		t.Error("attempt 3: expected retries exhausted")
	}
}

func TestPolicy_ZeroRetries(t *testing.T) {
	p := Policy{MaxRetries: 0, BaseDelay: time.Second}

	if d := p.Next(0); d.Retry {
		t.Error("expected no retry with MaxRetries=0")
	}
}

func TestPolicy_WithDefaults(t *testing.T) {
	p := Policy{}.withDefaults()
	if p.MaxRetries != 3 || p.BaseDelay != 5*time.Second {
		t.Errorf("expected defaults filled in, got %+v", p)
	}

	p = Policy{MaxRetries: 1, BaseDelay: time.Millisecond}.withDefaults()
	if p.MaxRetries != 1 || p.BaseDelay != time.Millisecond {
		t.Errorf("expected explicit values kept, got %+v", p)
	}
}
