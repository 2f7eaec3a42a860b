package feed

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"

	"arbwatch/internal/metrics"
	"arbwatch/internal/models"
	"arbwatch/internal/pool"
	"arbwatch/internal/reconnect"
	"arbwatch/internal/store"
	"arbwatch/pkg/ratelimit"
	"arbwatch/pkg/retry"
)

var dexJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// dexEnvelope covers both shapes this feed receives: the subscription
// acknowledgement (top-level "result", no "method") and the
// accountNotification push.
type dexEnvelope struct {
	Method string           `json:"method"`
	Result *json.RawMessage `json:"result"`
	Params *dexNotifParams  `json:"params"`
}

type dexNotifParams struct {
	Result       dexNotifResult `json:"result"`
	Subscription int64          `json:"subscription"`
}

type dexNotifResult struct {
	Value dexAccountValue `json:"value"`
}

type dexAccountValue struct {
	Data json.RawMessage `json:"data"`
}

// accountData extracts the base64 payload, which arrives either as a
// bare string or as a [data, encoding] pair.
func (v dexAccountValue) accountData() (string, error) {
	var s string
	if err := json.Unmarshal(v.Data, &s); err == nil {
		return s, nil
	}
	var pair []string
	if err := json.Unmarshal(v.Data, &pair); err == nil && len(pair) > 0 {
		return pair[0], nil
	}
	return "", fmt.Errorf("dex-feed: unrecognized account data shape")
}

// DexFeed owns an ordered list of RPC endpoints (priority ascending),
// the trading pair and the pool address for that pair.
type DexFeed struct {
	Providers      []string
	Pair           models.TradingPair
	PoolAddress    pool.Address
	ConnectTimeout time.Duration
	Policy         *reconnect.Policy

	// limiter paces reconnect-loop RPC calls (dial + subscribe) so a
	// provider that is rapidly failing doesn't get hammered on every
	// failover wraparound; 5 req/sec with a burst of 5 is generous for
	// a single account-subscribe session.
	limiter *ratelimit.RateLimiter

	providerIdx int
}

// NewDexFeed constructs a DexFeed. providers must be non-empty.
func NewDexFeed(providers []string, pair models.TradingPair, poolAddr pool.Address, policy *reconnect.Policy) (*DexFeed, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("dex-feed: at least one RPC endpoint is required")
	}
	return &DexFeed{
		Providers:      providers,
		Pair:           pair,
		PoolAddress:    poolAddr,
		ConnectTimeout: 10 * time.Second,
		Policy:         policy,
		limiter:        ratelimit.NewRateLimiter(5, 5),
	}, nil
}

// Run drives the provider-failover + reconnect-policy outer loop
// until ctx is cancelled or the reconnect policy is exhausted.
func (f *DexFeed) Run(ctx context.Context, s *store.PriceStore) error {
	for {
		if ctx.Err() != nil {
			metrics.RecordConnectionStatus("dex", false)
			return nil
		}

		if err := f.limiter.Wait(ctx); err != nil {
			return nil
		}

		provider := f.Providers[f.providerIdx]
		conn, err := dial(ctx, provider, f.ConnectTimeout)
		if err != nil {
			log.Printf("[dex-feed] connect to %s failed: %v", provider, err)
			if !f.advanceProvider(ctx) {
				return fmt.Errorf("dex-feed: %w", err)
			}
			continue
		}

		metrics.RecordConnectionStatus("dex", true)
		installPongHandler(conn)

		sub := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"method":  "accountSubscribe",
			"params": []interface{}{
				string(f.PoolAddress),
				map[string]string{"encoding": "base64", "commitment": "confirmed"},
			},
		}
		subErr := retry.RetryN(ctx, func() error { return conn.WriteJSON(sub) }, 2)
		if subErr != nil {
			log.Printf("[dex-feed] subscribe to %s failed: %v", provider, subErr)
			conn.Close()
			if !f.advanceProvider(ctx) {
				return fmt.Errorf("dex-feed: %w", subErr)
			}
			continue
		}

		readErr := f.readLoop(ctx, conn, s)
		conn.Close()
		metrics.RecordConnectionStatus("dex", false)

		if ctx.Err() != nil {
			return nil
		}
		if readErr != nil {
			log.Printf("[dex-feed] session on %s ended: %v", provider, readErr)
		}
		if !f.advanceProvider(ctx) {
			return fmt.Errorf("dex-feed: reconnect exhausted: %w", readErr)
		}
	}
}

// advanceProvider moves the failover pointer to the next endpoint. If
// the list is exhausted it resets to 0 and consults the reconnect
// policy for backoff before the caller retries.
func (f *DexFeed) advanceProvider(ctx context.Context) bool {
	provider := f.Providers[f.providerIdx]
	f.providerIdx++
	if f.providerIdx < len(f.Providers) {
		metrics.RecordProviderFailover(provider)
		return true
	}

	f.providerIdx = 0
	delay, err := f.Policy.NextDelay()
	if err != nil {
		metrics.RecordReconnectExhausted("dex")
		return false
	}
	metrics.RecordReconnectAttempt("dex")
	return sleepOrDone(ctx, delay)
}

func (f *DexFeed) readLoop(ctx context.Context, conn *websocket.Conn, s *store.PriceStore) error {
	type result struct {
		data []byte
		err  error
	}
	msgCh := make(chan result, 1)

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			msgCh <- result{data, err}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case r := <-msgCh:
			if r.err != nil {
				return r.err
			}
			if err := f.handleMessage(r.data, s); err != nil {
				log.Printf("[dex-feed] %v", err)
				continue
			}
			// A successful round-trip proves the session is healthy, so
			// the next outage starts backoff from scratch.
			f.Policy.Reset()
		}
	}
}

func (f *DexFeed) handleMessage(data []byte, s *store.PriceStore) error {
	var env dexEnvelope
	if err := dexJSON.Unmarshal(data, &env); err != nil {
		metrics.RecordParseError("dex")
		return fmt.Errorf("malformed message: %w", err)
	}

	if env.Method != "accountNotification" {
		// Subscription acknowledgement or any other control message:
		// record and ignore.
		if env.Result != nil {
			log.Printf("[dex-feed] subscription acknowledged: %s", string(*env.Result))
		}
		return nil
	}
	if env.Params == nil {
		metrics.RecordParseError("dex")
		return fmt.Errorf("notification missing params")
	}

	encoded, err := env.Params.Result.Value.accountData()
	if err != nil {
		metrics.RecordParseError("dex")
		return err
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		metrics.RecordParseError("dex")
		return fmt.Errorf("base64 decode: %w", err)
	}

	decoded, err := pool.Decode(raw, f.Pair)
	metrics.RecordPoolDecode(decoded.Fallback, err)
	if err != nil {
		return fmt.Errorf("pool decode: %w", err)
	}

	s.Update(models.NewPriceUpdate(models.SourceDex, f.Pair, decoded.Price))
	metrics.RecordPriceUpdate("dex")
	return nil
}
