package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/canopy-network/canopy/lib/tpke"
	"github.com/canopy-network/canopy/lib/tpke/log"
)

func openStore(t *testing.T, clock clockwork.Clock) *Store {
	t.Helper()
	s, err := Open(context.Background(), log.Nop(), t.TempDir(), nil, WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

type fixture struct {
	cfg   *tpke.TradeConfig
	tc    *tpke.ThresholdContext
	nodes *tpke.Committee
	buyer *tpke.KeyPair
	pub   *tpke.Publication
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := tpke.DefaultTradeConfig(3, 2)
	tc, err := cfg.Context()
	require.NoError(t, err)
	nodes, err := tpke.NewCommittee(tc)
	require.NoError(t, err)
	buyer, err := tpke.GenKeyPair(tc)
	require.NoError(t, err)
	pub, err := tpke.EncryptBytes(tc, nodes.PublicKeys(), []byte("ledger payload"))
	require.NoError(t, err)
	return &fixture{cfg: cfg, tc: tc, nodes: nodes, buyer: buyer, pub: pub}
}

func TestStoreTradeLifecycle(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Unix(1700000000, 0))
	s := openStore(t, clock)
	f := newFixture(t)

	rec := NewTradeRecord("trade-1", f.cfg, f.tc.ID())
	require.NoError(t, s.CreateTrade(ctx, rec))
	require.ErrorIs(t, s.CreateTrade(ctx, rec), ErrTradeExists)

	got, err := s.Trade(ctx, "trade-1")
	require.NoError(t, err)
	require.Equal(t, tpke.StateContextCreated, got.Stage())
	require.Equal(t, clock.Now().UnixNano(), got.CreatedAt)
	require.Equal(t, f.cfg, got.Config())

	clock.Advance(time.Minute)
	require.NoError(t, s.PutPublication(ctx, "trade-1", f.pub))
	require.NoError(t, s.SetBuyer(ctx, "trade-1", f.buyer.PublicKey))

	got, err = s.Trade(ctx, "trade-1")
	require.NoError(t, err)
	require.Equal(t, tpke.StateEncrypted, got.Stage())
	require.Equal(t, clock.Now().UnixNano(), got.UpdatedAt)
	require.Equal(t, f.buyer.PublicKey.Bytes(), got.Buyer)

	pub, err := s.Publication(ctx, f.tc, "trade-1")
	require.NoError(t, err)
	require.Len(t, pub.Shares, 3)
	require.Equal(t, f.pub.Payload, pub.Payload)

	res, err := f.nodes.ReEncryptAll(ctx, f.tc, pub, f.buyer.PublicKey)
	require.NoError(t, err)
	for i, re := range res[:2] {
		n, err := s.AddReEncryption(ctx, "trade-1", f.cfg.Indices[i], re)
		require.NoError(t, err)
		require.Equal(t, i+1, n)
	}
	_, err = s.AddReEncryption(ctx, "trade-1", f.cfg.Indices[0], res[0])
	require.ErrorIs(t, err, ErrDuplicateReEncryption)

	stored, err := s.ReEncryptions(ctx, "trade-1")
	require.NoError(t, err)
	require.Len(t, stored, 2)

	chosen := make([]tpke.Scalar, 0, len(stored))
	decoded := make([]*tpke.ReEncryption, 0, len(stored))
	for i, r := range stored {
		require.Equal(t, f.cfg.Indices[i], r.Node)
		re, err := tpke.DecodeReEncryption(f.tc.Group(), r.Payload)
		require.NoError(t, err)
		decoded = append(decoded, re)
		chosen = append(chosen, re.Index)
	}

	cc, err := tpke.Combine(f.tc, decoded, chosen)
	require.NoError(t, err)
	require.NoError(t, s.PutCombined(ctx, "trade-1", cc))

	got, err = s.Trade(ctx, "trade-1")
	require.NoError(t, err)
	require.Equal(t, tpke.StateCombined, got.Stage())

	cc2, err := tpke.DecodeCombinedCiphertext(f.tc.Group(), got.Combined)
	require.NoError(t, err)
	msg, err := tpke.DecryptBytes(f.tc, f.buyer.SecretKey, cc2, pub.Payload)
	require.NoError(t, err)
	require.Equal(t, []byte("ledger payload"), msg)
}

func TestStoreErrors(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, clockwork.NewFakeClock())
	f := newFixture(t)

	t.Run("unknown trade", func(t *testing.T) {
		_, err := s.Trade(ctx, "missing")
		require.ErrorIs(t, err, ErrTradeNotFound)
		require.ErrorIs(t, s.PutPublication(ctx, "missing", f.pub), ErrTradeNotFound)
		_, err = s.ReEncryptions(ctx, "missing")
		require.ErrorIs(t, err, ErrTradeNotFound)
	})

	t.Run("unpublished trade", func(t *testing.T) {
		require.NoError(t, s.CreateTrade(ctx, NewTradeRecord("empty", f.cfg, f.tc.ID())))
		_, err := s.Publication(ctx, f.tc, "empty")
		require.ErrorIs(t, err, tpke.ErrInvalidState)
		recs, err := s.ReEncryptions(ctx, "empty")
		require.NoError(t, err)
		require.Empty(t, recs)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.Trade(cctx, "empty")
		require.ErrorIs(t, err, context.Canceled)
		_, err = s.Trades(cctx)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestStoreTradesAndReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	f := newFixture(t)

	s, err := Open(ctx, log.Nop(), dir, nil)
	require.NoError(t, err)
	for _, id := range []string{"b", "a", "c"} {
		require.NoError(t, s.CreateTrade(ctx, NewTradeRecord(id, f.cfg, f.tc.ID())))
	}
	require.NoError(t, s.Close())

	s, err = Open(ctx, log.Nop(), dir, nil)
	require.NoError(t, err)
	defer s.Close()

	recs, err := s.Trades(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i, id := range []string{"a", "b", "c"} {
		require.Equal(t, id, recs[i].ID)
		require.Equal(t, f.tc.ID(), recs[i].ContextID)
	}
}
