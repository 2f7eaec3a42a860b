package feed

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"testing"
	"time"

	"arbwatch/internal/models"
	"arbwatch/internal/pool"
	"arbwatch/internal/reconnect"
	"arbwatch/internal/store"
)

func TestNewDexFeed_RequiresAtLeastOneProvider(t *testing.T) {
	policy := reconnect.New(reconnect.DefaultConfig())
	if _, err := NewDexFeed(nil, models.SolUsdt, "addr", policy); err == nil {
		t.Fatal("expected error constructing DexFeed with no providers")
	}
}

func TestAdvanceProvider_FailoverThenWraparoundBackoff(t *testing.T) {
	policy := reconnect.New(reconnect.Config{InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1, MaxAttempts: 5})
	f, err := NewDexFeed([]string{"p1", "p2"}, models.SolUsdt, "addr", policy)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()

	// P1 fails -> advance to P2 without consulting the reconnect
	// policy.
	if ok := f.advanceProvider(ctx); !ok {
		t.Fatal("expected failover to succeed")
	}
	if f.providerIdx != 1 {
		t.Fatalf("expected provider index 1, got %d", f.providerIdx)
	}
	if policy.AttemptCount() != 0 {
		t.Fatalf("expected reconnect policy untouched on first failover, got attempt count %d", policy.AttemptCount())
	}

	// P2 also fails -> pointer wraps to P1 and the reconnect policy is
	// consulted.
	if ok := f.advanceProvider(ctx); !ok {
		t.Fatal("expected wraparound backoff to succeed")
	}
	if f.providerIdx != 0 {
		t.Fatalf("expected provider index reset to 0, got %d", f.providerIdx)
	}
	if policy.AttemptCount() != 1 {
		t.Fatalf("expected reconnect policy consulted once after wraparound, got %d", policy.AttemptCount())
	}
}

func TestHandleMessage_IgnoresSubscriptionAck(t *testing.T) {
	policy := reconnect.New(reconnect.DefaultConfig())
	f, _ := NewDexFeed([]string{"p1"}, models.SolUsdt, "addr", policy)
	s := store.New(models.SolUsdt)

	ack := []byte(`{"jsonrpc":"2.0","result":23784,"id":1}`)
	if err := f.handleMessage(ack, s); err != nil {
		t.Fatalf("unexpected error handling ack: %v", err)
	}
	if _, _, ok := s.Snapshot(); ok {
		t.Fatal("expected ack to produce no store update")
	}
}

func buildNotification(t *testing.T, baseAmount, quoteAmount uint64) []byte {
	t.Helper()
	blob := make([]byte, 400)
	binary.LittleEndian.PutUint64(blob[232:240], baseAmount)
	binary.LittleEndian.PutUint64(blob[240:248], quoteAmount)
	encoded := base64.StdEncoding.EncodeToString(blob)

	return []byte(`{"jsonrpc":"2.0","method":"accountNotification","params":{"result":{"value":{"data":["` + encoded + `","base64"]}},"subscription":23784}}`)
}

func TestHandleMessage_DecodesAccountNotification(t *testing.T) {
	policy := reconnect.New(reconnect.DefaultConfig())
	f, _ := NewDexFeed([]string{"p1"}, models.SolUsdt, "addr", policy)
	s := store.New(models.SolUsdt)
	s.Update(models.NewPriceUpdate(models.SourceCex, models.SolUsdt, 195.0))

	notif := buildNotification(t, 1_000_000_000_000_000, 200_000_000_000_000)
	if err := f.handleMessage(notif, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, dex, ok := s.Snapshot()
	if !ok {
		t.Fatal("expected both slots populated after notification")
	}
	if dex.Price != 200.0 {
		t.Fatalf("expected decoded dex price 200.0, got %v", dex.Price)
	}
}

func TestHandleMessage_MalformedJSONIsError(t *testing.T) {
	policy := reconnect.New(reconnect.DefaultConfig())
	f, _ := NewDexFeed([]string{"p1"}, models.SolUsdt, "addr", policy)
	s := store.New(models.SolUsdt)

	if err := f.handleMessage([]byte("not json"), s); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestAccountData_BareStringAndPair(t *testing.T) {
	v := dexAccountValue{Data: []byte(`"YmFzZTY0"`)}
	data, err := v.accountData()
	if err != nil || data != "YmFzZTY0" {
		t.Fatalf("bare string case: got %q, %v", data, err)
	}

	v2 := dexAccountValue{Data: []byte(`["YmFzZTY0","base64"]`)}
	data2, err2 := v2.accountData()
	if err2 != nil || data2 != "YmFzZTY0" {
		t.Fatalf("pair case: got %q, %v", data2, err2)
	}
}

func TestPoolAddressType(t *testing.T) {
	addr, err := pool.DefaultAddress(models.SolUsdt)
	if err != nil {
		t.Fatal(err)
	}
	if addr.String() == "" {
		t.Fatal("expected non-empty address")
	}
}
