package feed

import (
	"context"
	"fmt"
	"log"
	"math"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"

	"arbwatch/internal/metrics"
	"arbwatch/internal/models"
	"arbwatch/internal/reconnect"
	"arbwatch/internal/store"
	"arbwatch/pkg/retry"
)

var cexJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// maxConsecutiveParseErrors is the run length at which repeated bad
// frames get escalated in the log. Bad frames never tear the session
// down; only I/O errors and peer closes do.
const maxConsecutiveParseErrors = 3

// cexTick is the inbound ticker message shape: `s` (symbol), `c`
// (last price as string), `E` (event timestamp, unused here since
// PriceUpdate stamps its own ObservedAt at parse time).
type cexTick struct {
	Symbol      string `json:"s"`
	Close       string `json:"c"`
	EventTimeMs int64  `json:"E"`
}

// CexFeed owns one endpoint URL and one trading pair.
type CexFeed struct {
	URL            string
	Pair           models.TradingPair
	ConnectTimeout time.Duration
	Policy         *reconnect.Policy
}

// NewCexFeed constructs a CexFeed with the given endpoint and pair.
func NewCexFeed(url string, pair models.TradingPair, policy *reconnect.Policy) *CexFeed {
	return &CexFeed{URL: url, Pair: pair, ConnectTimeout: 10 * time.Second, Policy: policy}
}

// Run drives the feed's outer reconnect loop until ctx is cancelled
// or the reconnect policy is exhausted.
func (f *CexFeed) Run(ctx context.Context, s *store.PriceStore) error {
	for {
		if ctx.Err() != nil {
			metrics.RecordConnectionStatus("cex", false)
			return nil
		}

		conn, err := dial(ctx, f.URL, f.ConnectTimeout)
		if err != nil {
			log.Printf("[cex-feed] connect failed: %v", err)
			if !f.backoff(ctx) {
				return fmt.Errorf("cex-feed: %w", err)
			}
			continue
		}

		metrics.RecordConnectionStatus("cex", true)
		installPongHandler(conn)

		sub := map[string]interface{}{
			"method": "SUBSCRIBE",
			"params": []string{fmt.Sprintf("%s@ticker", f.Pair.Symbol())},
			"id":     1,
		}
		// The subscribe frame gets two attempts on a fast schedule
		// before falling back to the slower outer reconnect loop.
		// Policy governs whole-session reconnects, not a single write.
		subErr := retry.RetryN(ctx, func() error { return conn.WriteJSON(sub) }, 2)
		if subErr != nil {
			log.Printf("[cex-feed] subscribe failed: %v", subErr)
			conn.Close()
			if !f.backoff(ctx) {
				return fmt.Errorf("cex-feed: %w", subErr)
			}
			continue
		}

		readErr := f.readLoop(ctx, conn, s)
		conn.Close()
		metrics.RecordConnectionStatus("cex", false)

		if ctx.Err() != nil {
			return nil
		}
		if readErr != nil {
			log.Printf("[cex-feed] session ended: %v", readErr)
		}
		if !f.backoff(ctx) {
			return fmt.Errorf("cex-feed: reconnect exhausted: %w", readErr)
		}
	}
}

func (f *CexFeed) backoff(ctx context.Context) bool {
	delay, err := f.Policy.NextDelay()
	if err != nil {
		metrics.RecordReconnectExhausted("cex")
		return false
	}
	metrics.RecordReconnectAttempt("cex")
	return sleepOrDone(ctx, delay)
}

func (f *CexFeed) readLoop(ctx context.Context, conn *websocket.Conn, s *store.PriceStore) error {
	consecutiveParseErrors := 0

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
				consecutiveParseErrors++
				metrics.RecordParseError("cex")
				log.Printf("[cex-feed] %v", err)
				if consecutiveParseErrors >= maxConsecutiveParseErrors {
					log.Printf("[cex-feed] %d consecutive parse errors, holding the session open", consecutiveParseErrors)
					consecutiveParseErrors = 0
				}
				continue
			}
			consecutiveParseErrors = 0
			// A successful round-trip proves the session is healthy, so
			// the next outage starts backoff from scratch.
			f.Policy.Reset()
		}
	}
}

// handleMessage parses one inbound tick and, on success, pushes a
// PriceUpdate to the store.
func (f *CexFeed) handleMessage(data []byte, s *store.PriceStore) error {
	var tick cexTick
	if err := cexJSON.Unmarshal(data, &tick); err != nil {
		return fmt.Errorf("cex-feed: malformed tick: %w", err)
	}

	price, err := strconv.ParseFloat(tick.Close, 64)
	if err != nil {
		return fmt.Errorf("cex-feed: bad price %q: %w", tick.Close, err)
	}
	if price <= 0 || math.IsInf(price, 0) || math.IsNaN(price) {
		return fmt.Errorf("cex-feed: price %q is not a finite positive number", tick.Close)
	}

	s.Update(models.NewPriceUpdate(models.SourceCex, f.Pair, price))
	metrics.RecordPriceUpdate("cex")
	return nil
}
