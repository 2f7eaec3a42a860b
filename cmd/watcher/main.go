package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"arbwatch/internal/config"
	"arbwatch/internal/detector"
	"arbwatch/internal/fees"
	"arbwatch/internal/manager"
	"arbwatch/internal/models"
	"arbwatch/internal/pool"
	"arbwatch/internal/reconnect"
	"arbwatch/internal/validator"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Printf("config: %v", err)
		return 1
	}

	poolAddr, err := pool.DefaultAddress(cfg.Pair)
	if err != nil {
		log.Printf("config: %v", err)
		return 1
	}

	mgr, err := manager.New(manager.Config{
		Pair:           cfg.Pair,
		CexURL:         cfg.CexWSURL,
		DexProviders:   cfg.DexProviders,
		DexPoolAddress: poolAddr,
		ReconnectConfig: reconnect.Config{
			InitialDelay:  100 * time.Millisecond,
			MaxDelay:      30 * time.Second,
			Multiplier:    2,
			MaxAttempts:   0,
			JitterEnabled: true,
		},
		ShutdownGrace: cfg.ShutdownTimeout,
		MaxPriceAge:   time.Duration(cfg.MaxPriceAgeMs) * time.Millisecond,
	})
	if err != nil {
		log.Printf("manager: %v", err)
		return 1
	}

	v := validator.New(validator.Config{
		MaxAge: time.Duration(cfg.MaxPriceAgeMs) * time.Millisecond,
		Bounds: validator.Bounds{Min: cfg.MinPrice, Max: cfg.MaxPrice},
	})
	feeModel, err := fees.New(models.DefaultFeeSchedule(), 10)
	if err != nil {
		log.Printf("config: %v", err)
		return 1
	}

	det := detector.New(detector.Config{
		Pair:          cfg.Pair,
		CheckInterval: 500 * time.Millisecond,
		ThresholdPct:  cfg.ThresholdPct,
	}, mgr.Store, v, feeModel)

	det.OnOpportunity(func(opp models.ArbitrageOpportunity) {
		// Minimal log-line fallback so opportunities are visible
		// without a formatter wired in.
		log.Printf("[opportunity] %s", opp.Description())
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsSrv := &http.Server{Addr: ":9090", Handler: promhttp.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server: %v", err)
		}
	}()

	mgr.Start(ctx)

	// The detector runs on a child context so it can be halted and
	// awaited before the feeds are cancelled.
	detCtx, stopDetector := context.WithCancel(ctx)
	defer stopDetector()
	detDone := make(chan struct{})
	go func() {
		det.Run(detCtx)
		close(detDone)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Printf("received %s, shutting down", s)
	case err := <-mgr.Errs():
		log.Printf("pipeline failure: %v", err)
		stopDetector()
		<-detDone
		cancel()
		shutdown(mgr, metricsSrv, cfg.ShutdownTimeout)
		return 2
	}

	stopDetector()
	<-detDone
	cancel()
	shutdown(mgr, metricsSrv, cfg.ShutdownTimeout)
	return 0
}

// shutdown waits for the feeds and closes the metrics server. The
// caller has already halted the detector and waited for its goroutine
// to exit.
func shutdown(mgr *manager.Manager, metricsSrv *http.Server, timeout time.Duration) {
	mgr.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := metricsSrv.Shutdown(ctx); err != nil {
		log.Printf("metrics server shutdown: %v", err)
	}
	fmt.Println("watcher exited")
}
