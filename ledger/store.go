// Package ledger persists trades, their publications and the node
// re-encryptions they collect in a bbolt file. It stores only public
// artifacts; key material never reaches the ledger.
package ledger

import (
	"context"
	"encoding/binary"
	"errors"
	"path"

	"github.com/jonboulle/clockwork"
	bolt "go.etcd.io/bbolt"
	"go.dedis.ch/protobuf"

	"github.com/canopy-network/canopy/lib/tpke"
	"github.com/canopy-network/canopy/lib/tpke/log"
)

// FileName is the name of the file bbolt writes to
const FileName = "tpke.db"

// OpenPerm is the permission used to create the ledger file
const OpenPerm = 0660

var (
	tradeBucket        = []byte("trades")
	reEncryptionBucket = []byte("reencryptions")
)

var (
	// ErrTradeNotFound is returned for unknown trade IDs.
	ErrTradeNotFound = errors.New("trade not found")
	// ErrTradeExists is returned when creating a trade twice.
	ErrTradeExists = errors.New("trade already exists")
	// ErrDuplicateReEncryption is returned when a node submits twice.
	ErrDuplicateReEncryption = errors.New("node already submitted a re-encryption")
)

// TradeRecord is the stored form of a trade.
type TradeRecord struct {
	ID        string
	ContextID string

	Group     string
	Cipher    string
	Total     uint32
	Threshold uint32
	Indices   []uint32

	// Encoded artifacts, empty until the corresponding step happened
	Publication []byte
	Buyer       []byte
	Combined    []byte

	CreatedAt int64 // unix nanoseconds
	UpdatedAt int64
}

// Config returns the trade parameters as a TradeConfig.
func (r *TradeRecord) Config() *tpke.TradeConfig {
	return &tpke.TradeConfig{
		Group:     r.Group,
		Cipher:    r.Cipher,
		Total:     int(r.Total),
		Threshold: int(r.Threshold),
		Indices:   append([]uint32(nil), r.Indices...),
	}
}

// Stage names the furthest step recorded for the trade.
func (r *TradeRecord) Stage() tpke.TradeState {
	switch {
	case len(r.Combined) > 0:
		return tpke.StateCombined
	case len(r.Publication) > 0:
		return tpke.StateEncrypted
	default:
		return tpke.StateContextCreated
	}
}

// NewTradeRecord describes a new trade with the given config.
func NewTradeRecord(id string, cfg *tpke.TradeConfig, contextID string) *TradeRecord {
	return &TradeRecord{
		ID:        id,
		ContextID: contextID,
		Group:     cfg.Group,
		Cipher:    cfg.Cipher,
		Total:     uint32(cfg.Total),
		Threshold: uint32(cfg.Threshold),
		Indices:   append([]uint32(nil), cfg.Indices...),
	}
}

// ReEncryptionRecord is one stored node contribution.
type ReEncryptionRecord struct {
	Node       uint32
	Payload    []byte // tpke ReEncryption encoding
	ReceivedAt int64
}

// Store is a bbolt backed ledger. bbolt serializes writers so methods are
// safe for concurrent use.
type Store struct {
	db    *bolt.DB
	clock clockwork.Clock

	log log.Logger
}

// Option configures Open.
type Option func(*Store)

// WithClock sets the clock used for record timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// Open opens or creates the ledger in folder.
func Open(ctx context.Context, l log.Logger, folder string, opts *bolt.Options, options ...Option) (*Store, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	db, err := bolt.Open(path.Join(folder, FileName), OpenPerm, opts)
	if err != nil {
		return nil, err
	}
	// create the buckets already
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(tradeBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(reEncryptionBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db:    db,
		clock: clockwork.NewRealClock(),
		log:   l.Named("ledger"),
	}
	for _, o := range options {
		o(s)
	}
	return s, nil
}

// Close closes the database file.
func (s *Store) Close() error {
	err := s.db.Close()
	if err != nil {
		s.log.Errorw("", "boltdb", "close", "err", err)
	}
	return err
}

func (s *Store) now() int64 {
	return s.clock.Now().UnixNano()
}

func getTrade(tx *bolt.Tx, id string) (*TradeRecord, error) {
	v := tx.Bucket(tradeBucket).Get([]byte(id))
	if v == nil {
		return nil, ErrTradeNotFound
	}
	rec := &TradeRecord{}
	if err := protobuf.Decode(v, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func putTrade(tx *bolt.Tx, rec *TradeRecord) error {
	buff, err := protobuf.Encode(rec)
	if err != nil {
		return err
	}
	return tx.Bucket(tradeBucket).Put([]byte(rec.ID), buff)
}

// CreateTrade stores a new trade record.
func (s *Store) CreateTrade(ctx context.Context, rec *TradeRecord) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(tradeBucket).Get([]byte(rec.ID)) != nil {
			return ErrTradeExists
		}
		rec.CreatedAt = s.now()
		rec.UpdatedAt = rec.CreatedAt
		if err := putTrade(tx, rec); err != nil {
			return err
		}
		s.log.Debugw("trade created", "trade", rec.ID, "context", rec.ContextID)
		return nil
	})
}

// Trade returns the record of trade id.
func (s *Store) Trade(ctx context.Context, id string) (*TradeRecord, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var rec *TradeRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		rec, err = getTrade(tx, id)
		return err
	})
	return rec, err
}

// Trades returns every stored trade ordered by ID.
func (s *Store) Trades(ctx context.Context) ([]*TradeRecord, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var recs []*TradeRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(tradeBucket).ForEach(func(k, v []byte) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			rec := &TradeRecord{}
			if err := protobuf.Decode(v, rec); err != nil {
				return err
			}
			recs = append(recs, rec)
			return nil
		})
	})
	return recs, err
}

func (s *Store) update(ctx context.Context, id string, fn func(rec *TradeRecord) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		rec, err := getTrade(tx, id)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
		rec.UpdatedAt = s.now()
		return putTrade(tx, rec)
	})
}

// PutPublication stores the encoded publication of trade id.
func (s *Store) PutPublication(ctx context.Context, id string, pub *tpke.Publication) error {
	buff, err := pub.MarshalBinary()
	if err != nil {
		return err
	}
	return s.update(ctx, id, func(rec *TradeRecord) error {
		rec.Publication = buff
		return nil
	})
}

// Publication decodes the publication of a trade under tc.
func (s *Store) Publication(ctx context.Context, tc *tpke.ThresholdContext, id string) (*tpke.Publication, error) {
	rec, err := s.Trade(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(rec.Publication) == 0 {
		return nil, tpke.ErrInvalidState.WithDetails("trade not published")
	}
	return tpke.DecodePublication(tc, rec.Publication)
}

// SetBuyer records the buyer public key of trade id.
func (s *Store) SetBuyer(ctx context.Context, id string, buyer tpke.Point) error {
	return s.update(ctx, id, func(rec *TradeRecord) error {
		rec.Buyer = buyer.Bytes()
		return nil
	})
}

// PutCombined stores the combined ciphertext of trade id.
func (s *Store) PutCombined(ctx context.Context, id string, cc *tpke.CombinedCiphertext) error {
	buff, err := cc.MarshalBinary()
	if err != nil {
		return err
	}
	return s.update(ctx, id, func(rec *TradeRecord) error {
		rec.Combined = buff
		return nil
	})
}

// AddReEncryption appends a node contribution in arrival order and returns
// how many the trade now holds. A node can contribute once.
func (s *Store) AddReEncryption(ctx context.Context, id string, node uint32, re *tpke.ReEncryption) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	payload, err := re.MarshalBinary()
	if err != nil {
		return 0, err
	}

	var count int
	err = s.db.Update(func(tx *bolt.Tx) error {
		if _, err := getTrade(tx, id); err != nil {
			return err
		}
		bucket, err := tx.Bucket(reEncryptionBucket).CreateBucketIfNotExists([]byte(id))
		if err != nil {
			return err
		}

		dup := false
		count = 0
		if err := bucket.ForEach(func(_, v []byte) error {
			r := &ReEncryptionRecord{}
			if err := protobuf.Decode(v, r); err != nil {
				return err
			}
			dup = dup || r.Node == node
			count++
			return nil
		}); err != nil {
			return err
		}
		if dup {
			return ErrDuplicateReEncryption
		}

		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		buff, err := protobuf.Encode(&ReEncryptionRecord{Node: node, Payload: payload, ReceivedAt: s.now()})
		if err != nil {
			return err
		}
		if err := bucket.Put(seqKey(seq), buff); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		s.log.Debugw("storing re-encryption", "trade", id, "node", node, "err", err)
	}
	return count, err
}

// ReEncryptions returns the stored contributions of trade id in arrival
// order.
func (s *Store) ReEncryptions(ctx context.Context, id string) ([]*ReEncryptionRecord, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var recs []*ReEncryptionRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		if _, err := getTrade(tx, id); err != nil {
			return err
		}
		bucket := tx.Bucket(reEncryptionBucket).Bucket([]byte(id))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(_, v []byte) error {
			r := &ReEncryptionRecord{}
			if err := protobuf.Decode(v, r); err != nil {
				return err
			}
			recs = append(recs, r)
			return nil
		})
	})
	return recs, err
}

func seqKey(seq uint64) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], seq)
	return key[:]
}
