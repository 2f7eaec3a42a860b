// Package manager implements the connection manager: it owns both
// feeds and the shared PriceStore for the lifetime of the process,
// spawning each feed as an independent cancellable goroutine. Each
// feed's internal reconnect loop is responsible for durability; the
// manager only supervises startup and shutdown.
package manager

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"arbwatch/internal/feed"
	"arbwatch/internal/models"
	"arbwatch/internal/pool"
	"arbwatch/internal/reconnect"
	"arbwatch/internal/store"
)

// Config configures the manager's two feeds.
type Config struct {
	Pair            models.TradingPair
	CexURL          string
	DexProviders    []string
	DexPoolAddress  pool.Address
	ReconnectConfig reconnect.Config
	ShutdownGrace   time.Duration

	// MaxPriceAge drives the periodic stale-slot purge; slots older
	// than this are emptied so a dead feed's last price does not
	// linger in the store.
	MaxPriceAge time.Duration
}

// Manager owns the CexFeed, DexFeed and the PriceStore they write to.
type Manager struct {
	cfg   Config
	Store *store.PriceStore

	cex *feed.CexFeed
	dex *feed.DexFeed

	wg       sync.WaitGroup
	feedErrs chan error
}

// New validates the configuration and constructs both feeds sharing
// one PriceStore. At least one DEX RPC endpoint must be configured,
// and the pool address must be a well-formed 32-byte pubkey before it
// goes into any subscribe frame.
func New(cfg Config) (*Manager, error) {
	if len(cfg.DexProviders) == 0 {
		return nil, fmt.Errorf("manager: at least one DEX RPC endpoint is required")
	}
	if cfg.CexURL == "" {
		return nil, fmt.Errorf("manager: a CEX websocket URL is required")
	}
	if err := cfg.DexPoolAddress.Validate(); err != nil {
		return nil, fmt.Errorf("manager: %w", err)
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 5 * time.Second
	}
	if cfg.MaxPriceAge <= 0 {
		cfg.MaxPriceAge = 5 * time.Second
	}

	s := store.New(cfg.Pair)

	cexPolicy := reconnect.New(cfg.ReconnectConfig)
	dexPolicy := reconnect.New(cfg.ReconnectConfig)

	cexFeed := feed.NewCexFeed(cfg.CexURL, cfg.Pair, cexPolicy)
	dexFeed, err := feed.NewDexFeed(cfg.DexProviders, cfg.Pair, cfg.DexPoolAddress, dexPolicy)
	if err != nil {
		return nil, fmt.Errorf("manager: %w", err)
	}

	return &Manager{cfg: cfg, Store: s, cex: cexFeed, dex: dexFeed, feedErrs: make(chan error, 2)}, nil
}

// Start spawns both feeds and the stale-slot janitor as cancellable
// goroutines. Start returns immediately; feed failures surface
// through Errs().
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(3)
	go func() {
		defer m.wg.Done()
		if err := m.cex.Run(ctx, m.Store); err != nil {
			m.feedErrs <- fmt.Errorf("cex feed: %w", err)
		}
	}()
	go func() {
		defer m.wg.Done()
		if err := m.dex.Run(ctx, m.Store); err != nil {
			m.feedErrs <- fmt.Errorf("dex feed: %w", err)
		}
	}()
	go func() {
		defer m.wg.Done()
		m.purgeLoop(ctx)
	}()
}

// purgeLoop empties slots that have outlived MaxPriceAge, so a feed
// that died mid-session does not leave its last price behind
// indefinitely. The fresh-check runs first to avoid taking the
// store's write locks while both feeds are healthy.
func (m *Manager) purgeLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.MaxPriceAge)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !m.Store.HasFresh(m.cfg.MaxPriceAge) {
				m.Store.PurgeStale(m.cfg.MaxPriceAge)
			}
		}
	}
}

// Errs returns the channel feed-level terminal errors are delivered
// on, such as reconnect policy exhaustion.
func (m *Manager) Errs() <-chan error {
	return m.feedErrs
}

// Shutdown waits up to the configured grace period for both feed
// goroutines to exit. The caller cancels the ctx passed to Start
// first, and halts the detector before calling Shutdown so teardown
// runs detector, then feeds, then sessions.
func (m *Manager) Shutdown() {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(m.cfg.ShutdownGrace):
		log.Printf("[manager] shutdown grace period (%s) elapsed with feed goroutines still running", m.cfg.ShutdownGrace)
	}
}
