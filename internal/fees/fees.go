// Package fees implements the pure fee-adjusted-profit calculation:
// raw spread minus per-unit venue fees minus amortized per-trade gas.
package fees

import (
	"fmt"

	"arbwatch/internal/models"
)

// Model is a pure function of a FeeSchedule and a default trade
// amount. It holds no mutable state.
type Model struct {
	schedule           models.FeeSchedule
	defaultTradeAmount float64
}

// New constructs a Model. The schedule is validated here so an
// out-of-bounds fee never reaches the profit math; defaultTradeAmount
// must be > 0.
func New(schedule models.FeeSchedule, defaultTradeAmount float64) (*Model, error) {
	if err := schedule.Validate(); err != nil {
		return nil, fmt.Errorf("fees: %w", err)
	}
	if defaultTradeAmount <= 0 {
		return nil, fmt.Errorf("fees: default trade amount %v must be > 0", defaultTradeAmount)
	}
	return &Model{schedule: schedule, defaultTradeAmount: defaultTradeAmount}, nil
}

// Evaluate computes an ArbitrageOpportunity from a validated pair, or
// returns ok=false when raw profit is non-positive.
func (m *Model) Evaluate(pair models.ValidatedPricePair) (models.ArbitrageOpportunity, bool) {
	buySource, sellSource, buyPrice, sellPrice := buySellAssignment(pair)

	raw := sellPrice - buyPrice
	if raw <= 0 {
		return models.ArbitrageOpportunity{}, false
	}

	perUnitFees, perTradeFees := m.feeBreakdown(buySource, sellSource, buyPrice, sellPrice)

	netPerUnit := raw - perUnitFees - perTradeFees/m.defaultTradeAmount
	profitPct := 100 * netPerUnit / buyPrice

	recommendedAmount := 1.0
	if netPerUnit > 0 {
		recommendedAmount = m.defaultTradeAmount
	}

	totalProfit := (raw-perUnitFees)*recommendedAmount - perTradeFees

	return models.ArbitrageOpportunity{
		Pair:                 pair.Pair,
		BuySource:            buySource,
		SellSource:           sellSource,
		BuyPrice:             buyPrice,
		SellPrice:            sellPrice,
		RawProfitPerUnit:     raw,
		NetProfitPerUnit:     netPerUnit,
		ProfitPercentage:     profitPct,
		TotalFeesPerUnit:     perUnitFees + perTradeFees/m.defaultTradeAmount,
		RecommendedAmount:    recommendedAmount,
		EstimatedTotalProfit: totalProfit,
	}, true
}

// buySellAssignment picks the lower-priced venue as the buy side. On
// exact equality the CEX leg buys, by convention.
func buySellAssignment(pair models.ValidatedPricePair) (buySrc, sellSrc models.Source, buyPrice, sellPrice float64) {
	if pair.DexPrice < pair.CexPrice {
		return models.SourceDex, models.SourceCex, pair.DexPrice, pair.CexPrice
	}
	return models.SourceCex, models.SourceDex, pair.CexPrice, pair.DexPrice
}

// feeBreakdown splits the fee cost into a per-unit component (venue
// percentage fees plus any cross-venue transfer flat fee) and a
// per-trade component (DEX gas, converted at the DEX leg's price).
//
// Gas is always converted at the DEX leg's price, even when the DEX
// leg is the sell side, where this slightly overstates the per-quote
// gas cost.
func (m *Model) feeBreakdown(buySrc, sellSrc models.Source, buyPrice, sellPrice float64) (perUnitFees, perTradeFees float64) {
	buyFee := buyPrice * m.schedule.FeePct(buySrc) / 100
	sellFee := sellPrice * m.schedule.FeePct(sellSrc) / 100

	transferFee := 0.0
	if buySrc != sellSrc {
		transferFee = m.schedule.TransferFlat
	}
	perUnitFees = buyFee + sellFee + transferFee

	dexPrice, hasDex := dexLegPrice(buySrc, sellSrc, buyPrice, sellPrice)
	if hasDex {
		perTradeFees = m.schedule.GasPerTradeInQuote * dexPrice
	}
	return perUnitFees, perTradeFees
}

func dexLegPrice(buySrc, sellSrc models.Source, buyPrice, sellPrice float64) (float64, bool) {
	switch {
	case buySrc == models.SourceDex:
		return buyPrice, true
	case sellSrc == models.SourceDex:
		return sellPrice, true
	default:
		return 0, false
	}
}
