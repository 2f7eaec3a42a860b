// Package validator promotes raw PriceStore snapshots into
// ValidatedPricePair values, enforcing freshness and sanity bounds.
package validator

import (
	"errors"
	"fmt"
	"math"
	"time"

	"arbwatch/internal/models"
	"arbwatch/internal/store"
)

// ErrNoFreshData is returned when either slot is empty.
var ErrNoFreshData = errors.New("validator: no fresh data")

// StaleError reports which side is stale and by how much.
type StaleError struct {
	Source Source
	Age    time.Duration
	MaxAge time.Duration
}

// Source identifies which leg a validation error concerns.
type Source = models.Source

func (e *StaleError) Error() string {
	return fmt.Sprintf("validator: %s price stale (age=%s > max=%s)", e.Source, e.Age, e.MaxAge)
}

// InvalidPriceError reports a non-finite, non-positive, or
// out-of-bounds price.
type InvalidPriceError struct {
	Source Source
	Price  float64
	Bounds Bounds
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("validator: %s price %v invalid (bounds=[%v,%v])",
		e.Source, e.Price, e.Bounds.Min, e.Bounds.Max)
}

// Bounds is the sanity range a price must fall within.
type Bounds struct {
	Min float64
	Max float64
}

// Config configures the Validator.
type Config struct {
	MaxAge time.Duration
	Bounds Bounds
}

// Validator checks store snapshots against freshness and sanity
// rules.
type Validator struct {
	cfg Config
}

// New constructs a Validator.
func New(cfg Config) *Validator {
	return &Validator{cfg: cfg}
}

// Validate takes a store snapshot and produces a ValidatedPricePair,
// or one of ErrNoFreshData / *StaleError / *InvalidPriceError.
func (v *Validator) Validate(pair models.TradingPair, s *store.PriceStore) (models.ValidatedPricePair, error) {
	cex, dex, ok := s.Snapshot()
	if !ok {
		return models.ValidatedPricePair{}, ErrNoFreshData
	}

	if age := time.Since(cex.ObservedAt); age > v.cfg.MaxAge {
		return models.ValidatedPricePair{}, &StaleError{Source: models.SourceCex, Age: age, MaxAge: v.cfg.MaxAge}
	}
	if age := time.Since(dex.ObservedAt); age > v.cfg.MaxAge {
		return models.ValidatedPricePair{}, &StaleError{Source: models.SourceDex, Age: age, MaxAge: v.cfg.MaxAge}
	}

	if err := v.checkSane(models.SourceCex, cex.Price); err != nil {
		return models.ValidatedPricePair{}, err
	}
	if err := v.checkSane(models.SourceDex, dex.Price); err != nil {
		return models.ValidatedPricePair{}, err
	}

	return models.NewValidatedPricePair(pair, cex, dex), nil
}

func (v *Validator) checkSane(source Source, price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return &InvalidPriceError{Source: source, Price: price, Bounds: v.cfg.Bounds}
	}
	if price < v.cfg.Bounds.Min || price > v.cfg.Bounds.Max {
		return &InvalidPriceError{Source: source, Price: price, Bounds: v.cfg.Bounds}
	}
	return nil
}
