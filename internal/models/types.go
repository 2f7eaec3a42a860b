// Package models holds the data types shared across the arbitrage
// pipeline: venues, trading pairs, price observations and the derived
// values the detector produces.
package models

import (
	"fmt"
	"time"
)

// Source identifies the venue a price observation came from.
type Source int

const (
	SourceCex Source = iota
	SourceDex
)

func (s Source) String() string {
	switch s {
	case SourceCex:
		return "cex"
	case SourceDex:
		return "dex"
	default:
		return "unknown"
	}
}

// IsDex reports whether the source is the on-chain AMM leg.
func (s Source) IsDex() bool { return s == SourceDex }

// TradingPair is a closed enumeration of the pairs this watcher can
// monitor. Each pair carries the decimal conventions of its on-chain
// base/quote mints, since the DEX decoder needs them to interpret raw
// reserve amounts.
type TradingPair int

const (
	SolUsdt TradingPair = iota
	SolUsdc
)

// PairDecimals describes the on-chain decimal exponents for a pair's
// base (SOL) and quote mint.
type PairDecimals struct {
	Base  uint8
	Quote uint8
}

// Decimals returns the default decimal convention for the pair, used
// by the DEX decoder's tolerant fallback path when the strict struct
// fields aren't available.
func (p TradingPair) Decimals() PairDecimals {
	switch p {
	case SolUsdt:
		return PairDecimals{Base: 9, Quote: 6}
	case SolUsdc:
		return PairDecimals{Base: 9, Quote: 6}
	default:
		return PairDecimals{Base: 9, Quote: 6}
	}
}

// Symbol returns the CEX ticker symbol (uppercase concatenation of
// base and quote).
func (p TradingPair) Symbol() string {
	switch p {
	case SolUsdt:
		return "SOLUSDT"
	case SolUsdc:
		return "SOLUSDC"
	default:
		return ""
	}
}

func (p TradingPair) String() string {
	switch p {
	case SolUsdt:
		return "sol-usdt"
	case SolUsdc:
		return "sol-usdc"
	default:
		return "unknown"
	}
}

// ParseTradingPair maps the CLI's `--pair` value to a TradingPair.
func ParseTradingPair(s string) (TradingPair, error) {
	switch s {
	case "sol-usdt":
		return SolUsdt, nil
	case "sol-usdc":
		return SolUsdc, nil
	default:
		return 0, fmt.Errorf("unsupported pair %q (want sol-usdt or sol-usdc)", s)
	}
}

// PriceUpdate is an immutable observation produced by a feed at the
// moment it parses an inbound message. Once constructed it is never
// mutated.
type PriceUpdate struct {
	Source     Source
	Pair       TradingPair
	Price      float64
	ObservedAt time.Time
}

// NewPriceUpdate builds a PriceUpdate timestamped at construction.
func NewPriceUpdate(source Source, pair TradingPair, price float64) PriceUpdate {
	return PriceUpdate{Source: source, Pair: pair, Price: price, ObservedAt: time.Now()}
}

// SourcePrice is the PriceStore's cell shape: identical payload to
// PriceUpdate minus the pair tag, since the pair is fixed for the
// process lifetime.
type SourcePrice struct {
	Price      float64
	ObservedAt time.Time
}

// FromUpdate drops the pair tag from a PriceUpdate.
func FromUpdate(u PriceUpdate) SourcePrice {
	return SourcePrice{Price: u.Price, ObservedAt: u.ObservedAt}
}

// AgeMs returns the age of the observation relative to now, in
// milliseconds.
func (s SourcePrice) AgeMs() int64 {
	return time.Since(s.ObservedAt).Milliseconds()
}

// IsStale reports whether the observation is older than maxAge.
func (s SourcePrice) IsStale(maxAge time.Duration) bool {
	return time.Since(s.ObservedAt) > maxAge
}

// ValidatedPricePair is produced by the Validator only when both
// slots are populated, fresh and sane.
type ValidatedPricePair struct {
	Pair      TradingPair
	CexPrice  float64
	DexPrice  float64
	CexAt     time.Time
	DexAt     time.Time
	Spread    float64
	SpreadPct float64
}

// NewValidatedPricePair computes the derived spread fields.
func NewValidatedPricePair(pair TradingPair, cex, dex SourcePrice) ValidatedPricePair {
	spread := cex.Price - dex.Price
	if spread < 0 {
		spread = -spread
	}
	return ValidatedPricePair{
		Pair:      pair,
		CexPrice:  cex.Price,
		DexPrice:  dex.Price,
		CexAt:     cex.ObservedAt,
		DexAt:     dex.ObservedAt,
		Spread:    spread,
		SpreadPct: 100 * spread / cex.Price,
	}
}

// ArbitrageOpportunity is the fee-adjusted opportunity the detector
// derives from a ValidatedPricePair. Never stored: it is emitted and
// discarded.
type ArbitrageOpportunity struct {
	Pair                 TradingPair
	BuySource            Source
	SellSource           Source
	BuyPrice             float64
	SellPrice            float64
	RawProfitPerUnit     float64
	NetProfitPerUnit     float64
	ProfitPercentage     float64
	TotalFeesPerUnit     float64
	RecommendedAmount    float64
	EstimatedTotalProfit float64
}

// IsProfitable reports whether the net-of-fees result is positive.
func (o ArbitrageOpportunity) IsProfitable() bool {
	return o.NetProfitPerUnit > 0
}

// ExceedsThreshold reports whether the opportunity's profit
// percentage meets or exceeds the configured threshold.
func (o ArbitrageOpportunity) ExceedsThreshold(thresholdPct float64) bool {
	return o.ProfitPercentage >= thresholdPct
}

// Description renders a short human-readable summary. Output
// formatting proper belongs to the formatter; this is the minimal
// form useful in logs.
func (o ArbitrageOpportunity) Description() string {
	return fmt.Sprintf("buy=%s@%.4f sell=%s@%.4f net/unit=%.4f (%.3f%%)",
		o.BuySource, o.BuyPrice, o.SellSource, o.SellPrice, o.NetProfitPerUnit, o.ProfitPercentage)
}

// FeeSchedule holds the venue fee percentages and flat costs used by
// the fee model. Percentages are expressed in [0,100]; gas is in
// [0,1] base units.
type FeeSchedule struct {
	CexPct             float64
	DexPct             float64
	GasPerTradeInQuote float64
	TransferFlat       float64
}

// DefaultFeeSchedule is the default trading fee set: 0.1% CEX taker,
// 0.25% DEX swap, 0.001 base-unit gas, no transfer fee.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{CexPct: 0.1, DexPct: 0.25, GasPerTradeInQuote: 0.001, TransferFlat: 0}
}

// Validate checks the fee schedule is within documented bounds.
func (f FeeSchedule) Validate() error {
	if f.CexPct < 0 || f.CexPct > 100 {
		return fmt.Errorf("cex fee pct %.4f out of [0,100]", f.CexPct)
	}
	if f.DexPct < 0 || f.DexPct > 100 {
		return fmt.Errorf("dex fee pct %.4f out of [0,100]", f.DexPct)
	}
	if f.GasPerTradeInQuote < 0 || f.GasPerTradeInQuote > 1 {
		return fmt.Errorf("gas per trade %.6f out of [0,1]", f.GasPerTradeInQuote)
	}
	if f.TransferFlat < 0 {
		return fmt.Errorf("transfer flat fee %.6f must be >= 0", f.TransferFlat)
	}
	return nil
}

// FeePct returns the fee percentage applicable to a leg at the given
// source.
func (f FeeSchedule) FeePct(source Source) float64 {
	if source == SourceDex {
		return f.DexPct
	}
	return f.CexPct
}

// ReconnectState tracks a feed's backoff progress. Reset to zero on
// any successful message round-trip.
type ReconnectState struct {
	AttemptCount   int
	FirstAttemptAt time.Time
	CurrentDelay   time.Duration
}
