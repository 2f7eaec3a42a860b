package manager

import (
	"context"
	"testing"
	"time"

	"arbwatch/internal/models"
	"arbwatch/internal/reconnect"
)

func testConfig() Config {
	return Config{
		Pair:            models.SolUsdt,
		CexURL:          "wss://example.invalid/ws",
		DexProviders:    []string{"wss://rpc.invalid"},
		DexPoolAddress:  "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
		ReconnectConfig: reconnect.Config{InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2, MaxAttempts: 2},
		ShutdownGrace:   200 * time.Millisecond,
	}
}

func TestNew_RequiresDexProviders(t *testing.T) {
	cfg := testConfig()
	cfg.DexProviders = nil
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error with no DEX providers")
	}
}

func TestNew_RequiresCexURL(t *testing.T) {
	cfg := testConfig()
	cfg.CexURL = ""
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error with no CEX URL")
	}
}

func TestNew_RejectsMalformedPoolAddress(t *testing.T) {
	cfg := testConfig()
	cfg.DexPoolAddress = "not-a-valid-base58-address!!!"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for malformed pool address")
	}
}

func TestPurgeLoop_EmptiesStaleSlots(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPriceAge = 20 * time.Millisecond
	m, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	m.Store.Update(models.NewPriceUpdate(models.SourceCex, models.SolUsdt, 195))
	m.Store.Update(models.NewPriceUpdate(models.SourceDex, models.SolUsdt, 190))

	deadline := time.Now().Add(time.Second)
	for {
		if _, _, ok := m.Store.Snapshot(); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expected stale slots to be purged")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	m.Shutdown()
}

func TestNew_BuildsSharedStore(t *testing.T) {
	m, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if m.Store == nil {
		t.Fatal("expected a shared price store")
	}
	if m.Store.Pair() != models.SolUsdt {
		t.Fatalf("expected store pair SolUsdt, got %v", m.Store.Pair())
	}
}

func TestStartShutdown_ExitsWithinGracePeriod(t *testing.T) {
	m, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)

	// Both feeds will fail to dial the invalid endpoints and exhaust
	// their reconnect policy quickly given the test config's tight
	// backoff; cancelling unblocks them immediately regardless.
	cancel()

	done := make(chan struct{})
	go func() {
		m.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not return within a reasonable bound")
	}
}
