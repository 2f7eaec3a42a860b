package reconnect

import (
	"errors"
	"testing"
	"time"
)

func TestNextDelay_CappedBackoffThenExhausted(t *testing.T) {
	p := New(Config{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     1000 * time.Millisecond,
		Multiplier:   2,
		MaxAttempts:  5,
	})

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		1000 * time.Millisecond, // capped
	}

	for i, w := range want {
		got, err := p.NextDelay()
		if err != nil {
			t.Fatalf("attempt %d: unexpected error %v", i, err)
		}
		if got != w {
			t.Fatalf("attempt %d: got %v, want %v", i, got, w)
		}
	}

	if _, err := p.NextDelay(); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted after %d attempts, got %v", len(want), err)
	}
}

func TestNextDelay_MonotonicNonDecreasingUntilCap(t *testing.T) {
	p := New(Config{
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     400 * time.Millisecond,
		Multiplier:   3,
		MaxAttempts:  6,
	})

	var prev time.Duration
	for i := 0; i < 6; i++ {
		got, err := p.NextDelay()
		if err != nil {
			t.Fatalf("attempt %d: unexpected error %v", i, err)
		}
		if got < prev {
			t.Fatalf("attempt %d: delay %v decreased from %v", i, got, prev)
		}
		if got > 400*time.Millisecond {
			t.Fatalf("attempt %d: delay %v exceeds max_delay", i, got)
		}
		prev = got
	}
}

func TestNextDelay_DeterministicJitter(t *testing.T) {
	cfg := Config{
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
		MaxAttempts:  3,
		JitterEnabled: true,
	}

	var seqA, seqB []time.Duration
	pa := New(cfg)
	for i := 0; i < 3; i++ {
		d, err := pa.NextDelay()
		if err != nil {
			t.Fatal(err)
		}
		seqA = append(seqA, d)
	}

	pb := New(cfg)
	for i := 0; i < 3; i++ {
		d, err := pb.NextDelay()
		if err != nil {
			t.Fatal(err)
		}
		seqB = append(seqB, d)
	}

	for i := range seqA {
		if seqA[i] != seqB[i] {
			t.Fatalf("jitter not deterministic: attempt %d gave %v then %v", i, seqA[i], seqB[i])
		}
	}
}

func TestReset(t *testing.T) {
	p := New(Config{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2, MaxAttempts: 2})
	if _, err := p.NextDelay(); err != nil {
		t.Fatal(err)
	}
	if _, err := p.NextDelay(); err != nil {
		t.Fatal(err)
	}
	if _, err := p.NextDelay(); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}

	p.Reset()
	if p.AttemptCount() != 0 {
		t.Fatalf("expected attempt count reset to 0, got %d", p.AttemptCount())
	}
	if _, err := p.NextDelay(); err != nil {
		t.Fatalf("unexpected error after reset: %v", err)
	}
}

func TestMaxTotalDuration(t *testing.T) {
	p := New(Config{
		InitialDelay:     10 * time.Millisecond,
		MaxDelay:         100 * time.Millisecond,
		Multiplier:       2,
		MaxTotalDuration: 1 * time.Millisecond,
	})
	if _, err := p.NextDelay(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := p.NextDelay(); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}
