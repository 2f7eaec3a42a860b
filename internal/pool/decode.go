package pool

import (
	"encoding/binary"
	"fmt"

	"arbwatch/internal/models"
)

// Fixed little-endian byte offsets for the AMM pool account layout.
// offsetBaseAmount/offsetQuoteAmount are shared by both the strict
// and fallback paths: a full struct may not deserialize (e.g. the
// account is shorter than the known layout after a non-breaking
// upstream change) while the two reserve fields still sit at their
// documented positions.
const (
	offsetStatus        = 0
	offsetState         = 8
	offsetBaseDecimals  = 16
	offsetQuoteDecimals = 24
	offsetBaseAmount    = 232
	offsetQuoteAmount   = 240

	strictStructLen = 752 // full known record size
	fallbackMinLen  = 400
)

const (
	activeStatus = 6
	activeState  = 1
)

// Sanity bound for the fallback path's computed price. A suspicious
// price must never enter the store.
var fallbackSanityBounds = struct{ min, max float64 }{min: 10, max: 1000}

// DecodeError reports a parse/decode failure. These are logged and
// dropped without a store update.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string { return "pool: decode error: " + e.Reason }

// InactivePoolError is returned when status != 6 or state != 1: an
// error, not a zero price. The caller must not push an update.
type InactivePoolError struct {
	Status uint64
	State  uint64
}

func (e *InactivePoolError) Error() string {
	return fmt.Sprintf("pool: inactive pool (status=%d state=%d)", e.Status, e.State)
}

// DecodeResult carries the computed mid-price and which path produced
// it, useful for metrics/logging.
type DecodeResult struct {
	Price    float64
	Fallback bool
}

// Decode extracts a mid-price from raw AMM pool account bytes. It
// first attempts strict deserialization; on structural failure (blob
// shorter than the known record) it falls back to reading the
// reserve amounts directly from their documented offsets, using the
// pair's default decimal convention.
func Decode(data []byte, pair models.TradingPair) (DecodeResult, error) {
	if len(data) >= strictStructLen {
		return decodeStrict(data)
	}
	if len(data) >= fallbackMinLen {
		return decodeFallback(data, pair)
	}
	return DecodeResult{}, &DecodeError{Reason: fmt.Sprintf("blob too short (%d bytes, need >= %d)", len(data), fallbackMinLen)}
}

func decodeStrict(data []byte) (DecodeResult, error) {
	status := binary.LittleEndian.Uint64(data[offsetStatus : offsetStatus+8])
	state := binary.LittleEndian.Uint64(data[offsetState : offsetState+8])
	if status != activeStatus || state != activeState {
		return DecodeResult{}, &InactivePoolError{Status: status, State: state}
	}

	baseDecimals := binary.LittleEndian.Uint64(data[offsetBaseDecimals : offsetBaseDecimals+8])
	quoteDecimals := binary.LittleEndian.Uint64(data[offsetQuoteDecimals : offsetQuoteDecimals+8])
	baseAmount := binary.LittleEndian.Uint64(data[offsetBaseAmount : offsetBaseAmount+8])
	quoteAmount := binary.LittleEndian.Uint64(data[offsetQuoteAmount : offsetQuoteAmount+8])

	price := computePrice(baseAmount, quoteAmount, uint8(baseDecimals), uint8(quoteDecimals))
	return DecodeResult{Price: price}, nil
}

func decodeFallback(data []byte, pair models.TradingPair) (DecodeResult, error) {
	baseAmount := binary.LittleEndian.Uint64(data[offsetBaseAmount : offsetBaseAmount+8])
	quoteAmount := binary.LittleEndian.Uint64(data[offsetQuoteAmount : offsetQuoteAmount+8])

	dec := pair.Decimals()
	price := computePrice(baseAmount, quoteAmount, dec.Base, dec.Quote)

	if price < fallbackSanityBounds.min || price > fallbackSanityBounds.max {
		// Fallback stays set so the caller attributes the failure to
		// the path that actually rejected the blob.
		return DecodeResult{Fallback: true}, &DecodeError{Reason: fmt.Sprintf("fallback price %v outside sanity bounds [%v,%v]", price, fallbackSanityBounds.min, fallbackSanityBounds.max)}
	}

	return DecodeResult{Price: price, Fallback: true}, nil
}

func computePrice(baseAmount, quoteAmount uint64, baseDecimals, quoteDecimals uint8) float64 {
	base := float64(baseAmount) / pow10(baseDecimals)
	quote := float64(quoteAmount) / pow10(quoteDecimals)
	return quote / base
}

func pow10(n uint8) float64 {
	result := 1.0
	for i := uint8(0); i < n; i++ {
		result *= 10
	}
	return result
}
