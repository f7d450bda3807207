package tpke

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// TradeState is the lifecycle position of a Trade.
type TradeState int

const (
	StateContextCreated TradeState = iota
	StateKeysRegistered
	StateEncrypted
	StatePartiallyReEncrypted
	StateCombined
	StateDecrypted
)

func (s TradeState) String() string {
	switch s {
	case StateContextCreated:
		return "context_created"
	case StateKeysRegistered:
		return "keys_registered"
	case StateEncrypted:
		return "encrypted"
	case StatePartiallyReEncrypted:
		return "partially_reencrypted"
	case StateCombined:
		return "combined"
	case StateDecrypted:
		return "decrypted"
	default:
		return "unknown"
	}
}

// Trade drives one publication through its lifecycle:
// ContextCreated -> KeysRegistered -> Encrypted -> PartiallyReEncrypted ->
// Combined -> Decrypted. Re-encryptions are kept in arrival order and the
// first t distinct ones are combined. All methods are safe for concurrent
// use.
type Trade struct {
	mu sync.Mutex

	id        string
	tc        *ThresholdContext
	clock     clockwork.Clock
	handler   EventHandler
	createdAt time.Time

	state       TradeState
	nodeKeys    []Point
	buyer       Point
	publication *Publication
	arrivals    []*ReEncryption
	received    map[string]struct{}
	combined    *CombinedCiphertext
}

// TradeOption configures NewTrade.
type TradeOption func(*Trade)

// WithClock sets the clock used for event timestamps.
func WithClock(c clockwork.Clock) TradeOption {
	return func(t *Trade) { t.clock = c }
}

// WithEventHandler sets the receiver of trade events.
func WithEventHandler(h EventHandler) TradeOption {
	return func(t *Trade) { t.handler = h }
}

// WithTradeID overrides the random trade identifier.
func WithTradeID(id string) TradeOption {
	return func(t *Trade) { t.id = id }
}

// NewTrade starts a trade over tc in state ContextCreated.
func NewTrade(tc *ThresholdContext, opts ...TradeOption) *Trade {
	t := &Trade{
		id:       uuid.NewString(),
		tc:       tc,
		clock:    clockwork.NewRealClock(),
		handler:  NullEventHandler{},
		state:    StateContextCreated,
		received: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.createdAt = t.clock.Now()
	t.handler.OnStateChange(t.event(EventContextCreated).Build())
	return t
}

func (t *Trade) ID() string                 { return t.id }
func (t *Trade) Context() *ThresholdContext { return t.tc }
func (t *Trade) CreatedAt() time.Time       { return t.createdAt }

// State returns the current lifecycle state.
func (t *Trade) State() TradeState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Publication returns the seller's artifacts once published.
func (t *Trade) Publication() *Publication {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.publication
}

// Combined returns the combined ciphertext once formed.
func (t *Trade) Combined() *CombinedCiphertext {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.combined
}

// Received returns the number of accepted re-encryptions.
func (t *Trade) Received() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.arrivals)
}

// Ready reports whether enough re-encryptions arrived to combine.
func (t *Trade) Ready() bool {
	return t.Received() >= t.tc.threshold
}

func (t *Trade) event(et EventType) *EventBuilder {
	return NewEventBuilder(t.clock, t.id, et, t.state).WithContext(t.tc)
}

func (t *Trade) reject(et EventType, err error) error {
	t.handler.OnRejected(t.event(EventRejected).WithError(err).WithMetadata("attempted", string(et)).Build())
	return err
}

func (t *Trade) requireState(et EventType, allowed ...TradeState) error {
	for _, s := range allowed {
		if t.state == s {
			return nil
		}
	}
	return t.reject(et, ErrInvalidState.Detailf("%s not allowed in state %s", et, t.state))
}

func (t *Trade) transition(to TradeState, e *EventBuilder) {
	t.state = to
	e.event.State = to
	t.handler.OnStateChange(e.Build())
}

// RegisterNodeKeys records the node public keys in context index order.
// Every key must come with a valid possession proof.
func (t *Trade) RegisterNodeKeys(keys []Point, proofs []*KeyProof) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.requireState(EventKeysRegistered, StateContextCreated); err != nil {
		return err
	}
	if len(keys) != t.tc.total || len(proofs) != t.tc.total {
		return t.reject(EventKeysRegistered, ErrParameterMismatch.Detailf(
			"%d keys and %d proofs for %d nodes", len(keys), len(proofs), t.tc.total))
	}
	for i, pk := range keys {
		if pk == nil || !proofs[i].Verify(t.tc.group, pk) {
			return t.reject(EventKeysRegistered, ErrInvalidKeyProof.WithContext("position", i))
		}
	}

	t.nodeKeys = append([]Point(nil), keys...)
	t.transition(StateKeysRegistered, t.event(EventKeysRegistered))
	return nil
}

// Publish encrypts msg for the registered nodes.
func (t *Trade) Publish(msg []byte) (*Publication, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.requireState(EventPublished, StateKeysRegistered); err != nil {
		return nil, err
	}
	pub, err := EncryptBytes(t.tc, t.nodeKeys, msg)
	if err != nil {
		return nil, t.reject(EventPublished, err)
	}

	t.publication = pub
	t.transition(StateEncrypted, t.event(EventPublished).WithMetadata("payload_bytes", len(pub.Payload.Ciphertext)))
	return pub, nil
}

// SetBuyer fixes the buyer key re-encryptions are checked against. It can
// only be set before the first re-encryption arrives.
func (t *Trade) SetBuyer(pk Point, proof *KeyProof) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.requireState(EventReEncryptionReceived, StateEncrypted); err != nil {
		return err
	}
	if err := VerifyKeyProof(t.tc.group, pk, proof); err != nil {
		return t.reject(EventReEncryptionReceived, err)
	}
	t.buyer = pk
	return nil
}

// AddReEncryption accepts one node's contribution. Unknown and repeated
// indices are refused, as are contributions whose proof does not verify.
func (t *Trade) AddReEncryption(re *ReEncryption) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.requireState(EventReEncryptionReceived, StateEncrypted, StatePartiallyReEncrypted); err != nil {
		return err
	}
	if t.buyer == nil {
		return t.reject(EventReEncryptionReceived, ErrInvalidState.WithDetails("buyer not set"))
	}
	if re == nil || re.Index == nil {
		return t.reject(EventReEncryptionReceived, ErrParameterMismatch.WithDetails("empty re-encryption"))
	}
	if err := checkParts(re.Parts, KeyLimbs); err != nil {
		return t.reject(EventReEncryptionReceived, err)
	}
	kc, err := t.publication.Share(re.Index)
	if err != nil {
		return t.reject(EventReEncryptionReceived, err)
	}
	key := string(re.Index.Bytes())
	if _, dup := t.received[key]; dup {
		return t.reject(EventReEncryptionReceived, ErrDuplicateIndex.WithContext("index", re.Index.String()))
	}
	if err := t.tc.proofs.VerifyReEncryption(t.tc, kc, re, t.buyer); err != nil {
		return t.reject(EventReEncryptionReceived, ErrProofVerification.WithCause(err))
	}

	t.received[key] = struct{}{}
	t.arrivals = append(t.arrivals, re)
	t.handler.OnReEncryption(t.event(EventReEncryptionReceived).WithIndex(re.Index).WithReceived(len(t.arrivals)).Build())
	if t.state == StateEncrypted {
		t.transition(StatePartiallyReEncrypted, t.event(EventReEncryptionReceived).WithReceived(len(t.arrivals)))
	}
	return nil
}

// Combine merges the first t re-encryptions to arrive.
func (t *Trade) Combine() (*CombinedCiphertext, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.requireState(EventCombined, StatePartiallyReEncrypted); err != nil {
		return nil, err
	}
	if len(t.arrivals) < t.tc.threshold {
		return nil, t.reject(EventCombined, ErrInsufficientShares.Detailf("need %d, got %d", t.tc.threshold, len(t.arrivals)))
	}

	res := t.arrivals[:t.tc.threshold]
	chosen := make([]Scalar, len(res))
	for i, re := range res {
		chosen[i] = re.Index
	}
	cc, err := Combine(t.tc, res, chosen)
	if err != nil {
		return nil, t.reject(EventCombined, err)
	}

	t.combined = cc
	t.transition(StateCombined, t.event(EventCombined).WithReceived(len(t.arrivals)))
	return cc, nil
}

// Decrypt opens the payload with the buyer's secret key. A wrong key leaves
// the trade in Combined so the right one can still be used.
func (t *Trade) Decrypt(buyerSK Scalar) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.requireState(EventDecrypted, StateCombined); err != nil {
		return nil, err
	}
	msg, err := DecryptBytes(t.tc, buyerSK, t.combined, t.publication.Payload)
	if err != nil {
		return nil, t.reject(EventDecrypted, err)
	}

	t.transition(StateDecrypted, t.event(EventDecrypted))
	return msg, nil
}
