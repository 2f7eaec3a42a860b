package pool

import (
	"testing"

	"arbwatch/internal/models"
)

func TestDefaultAddress_KnownPairs(t *testing.T) {
	for _, pair := range []models.TradingPair{models.SolUsdt, models.SolUsdc} {
		addr, err := DefaultAddress(pair)
		if err != nil {
			t.Fatalf("pair %v: %v", pair, err)
		}
		if err := addr.Validate(); err != nil {
			t.Fatalf("pair %v: address %q failed validation: %v", pair, addr, err)
		}
	}
}

func TestAddress_ValidateRejectsGarbage(t *testing.T) {
	a := Address("not-a-valid-base58-address!!!")
	if err := a.Validate(); err == nil {
		t.Fatal("expected validation error for malformed address")
	}
}
