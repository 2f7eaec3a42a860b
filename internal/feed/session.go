// Package feed implements the two resilient ingest feeds: CexFeed
// subscribes to a centralized exchange's ticker stream, DexFeed
// subscribes to on-chain account updates for an AMM pool. Both dial
// with an explicit connect timeout, answer pings, push parsed prices
// into the shared store, and consult reconnect.Policy for backoff
// when a session dies.
package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// dial opens a WebSocket connection with an explicit connect timeout.
func dial(ctx context.Context, url string, connectTimeout time.Duration) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: connectTimeout}
	conn, _, err := dialer.DialContext(dialCtx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return conn, nil
}

// installPongHandler responds to inbound ping control frames with a
// matching pong, echoing the payload.
func installPongHandler(conn *websocket.Conn) {
	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})
}

// sleepOrDone waits for d or returns early if ctx is cancelled,
// reporting which happened.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
