// Package pool implements on-chain AMM pool address resolution and
// the binary account decoder. Addresses are plain base58 pubkeys; the
// watcher only subscribes to account updates and never signs
// transactions, so a full Solana SDK is not needed.
package pool

import (
	"fmt"

	"github.com/mr-tron/base58"

	"arbwatch/internal/models"
)

// Address is a base58-encoded Solana account address. The type itself
// does not check its contents; Validate does.
type Address string

// Pool addresses per pair are hard-coded. TODO: resolve the pool
// account from (pair, provider) instead of this fixed table once an
// on-chain registry lookup is wired in.
var defaultPoolAddresses = map[models.TradingPair]Address{
	models.SolUsdt: "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
	models.SolUsdc: "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
}

// DefaultAddress returns the hard-coded pool address for pair.
func DefaultAddress(pair models.TradingPair) (Address, error) {
	addr, ok := defaultPoolAddresses[pair]
	if !ok {
		return "", fmt.Errorf("pool: no default address configured for pair %v", pair)
	}
	return addr, nil
}

// Validate decodes the address and checks it's a well-formed 32-byte
// Solana pubkey.
func (a Address) Validate() error {
	decoded, err := base58.Decode(string(a))
	if err != nil {
		return fmt.Errorf("pool: invalid base58 address %q: %w", a, err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("pool: address %q decodes to %d bytes, want 32", a, len(decoded))
	}
	return nil
}

func (a Address) String() string { return string(a) }
