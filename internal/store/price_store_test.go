package store

import (
	"sync"
	"testing"
	"time"

	"arbwatch/internal/models"
)

func TestSnapshot_EmptyUntilBothSlotsPopulated(t *testing.T) {
	s := New(models.SolUsdt)

	if _, _, ok := s.Snapshot(); ok {
		t.Fatal("expected no snapshot with both slots empty")
	}

	s.Update(models.NewPriceUpdate(models.SourceCex, models.SolUsdt, 195.0))
	if _, _, ok := s.Snapshot(); ok {
		t.Fatal("expected no snapshot with only cex populated")
	}

	s.Update(models.NewPriceUpdate(models.SourceDex, models.SolUsdt, 190.0))
	cex, dex, ok := s.Snapshot()
	if !ok {
		t.Fatal("expected snapshot once both slots populated")
	}
	if cex.Price != 195.0 || dex.Price != 190.0 {
		t.Fatalf("unexpected prices: cex=%v dex=%v", cex.Price, dex.Price)
	}
}

func TestUpdate_OnlyLatestRetained(t *testing.T) {
	s := New(models.SolUsdt)
	s.Update(models.NewPriceUpdate(models.SourceCex, models.SolUsdt, 100))
	s.Update(models.NewPriceUpdate(models.SourceCex, models.SolUsdt, 101))
	s.Update(models.NewPriceUpdate(models.SourceDex, models.SolUsdt, 99))

	cex, _, ok := s.Snapshot()
	if !ok {
		t.Fatal("expected snapshot")
	}
	if cex.Price != 101 {
		t.Fatalf("expected latest cex price 101, got %v", cex.Price)
	}
}

func TestHasFresh(t *testing.T) {
	s := New(models.SolUsdt)
	s.Update(models.NewPriceUpdate(models.SourceCex, models.SolUsdt, 100))
	s.Update(models.NewPriceUpdate(models.SourceDex, models.SolUsdt, 99))

	if !s.HasFresh(time.Second) {
		t.Fatal("expected fresh immediately after update")
	}
	if s.HasFresh(0) {
		t.Fatal("expected a zero freshness window to always be stale")
	}
}

func TestPurgeStale(t *testing.T) {
	s := New(models.SolUsdt)
	s.Update(models.NewPriceUpdate(models.SourceCex, models.SolUsdt, 100))
	s.Update(models.NewPriceUpdate(models.SourceDex, models.SolUsdt, 99))

	time.Sleep(5 * time.Millisecond)
	s.PurgeStale(1 * time.Millisecond)

	if _, _, ok := s.Snapshot(); ok {
		t.Fatal("expected both slots purged")
	}
}

func TestConcurrentUpdatesDoNotRace(t *testing.T) {
	s := New(models.SolUsdt)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(p float64) {
			defer wg.Done()
			s.Update(models.NewPriceUpdate(models.SourceCex, models.SolUsdt, p))
		}(float64(i))
		go func(p float64) {
			defer wg.Done()
			s.Update(models.NewPriceUpdate(models.SourceDex, models.SolUsdt, p))
		}(float64(i))
	}
	wg.Wait()

	if _, _, ok := s.Snapshot(); !ok {
		t.Fatal("expected a populated snapshot after concurrent updates")
	}
}
