package tpke

import (
	"encoding/binary"
)

// Wire formats are fixed-width big-endian frames. Scalars and points use
// their group's canonical encodings; counts are u16 and variable byte
// strings carry a u32 length.

// EncodeScalar returns the canonical encoding of s.
func EncodeScalar(s Scalar) []byte {
	return s.Bytes()
}

// DecodeScalar parses a canonical scalar.
func DecodeScalar(g Group, b []byte) (Scalar, error) {
	s, err := g.ScalarFromBytes(b)
	if err != nil {
		return nil, ErrInvalidEncoding.WithCause(err)
	}
	return s, nil
}

// EncodePoint returns the canonical encoding of p.
func EncodePoint(p Point) []byte {
	return p.Bytes()
}

// DecodePoint parses a canonical point.
func DecodePoint(g Group, b []byte) (Point, error) {
	p, err := g.PointFromBytes(b)
	if err != nil {
		return nil, ErrInvalidEncoding.WithCause(err)
	}
	return p, nil
}

type writer struct {
	buf []byte
}

func (w *writer) u16(v int) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(v))
}

func (w *writer) u32(v int) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(v))
}

func (w *writer) raw(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *writer) blob(b []byte) {
	w.u32(len(b))
	w.raw(b)
}

func (w *writer) ciphertexts(cs []*Ciphertext) {
	w.u16(len(cs))
	for _, c := range cs {
		w.raw(c.C1.Bytes())
		w.raw(c.C2.Bytes())
	}
}

// reader consumes a frame and remembers the first error.
type reader struct {
	g   Group
	buf []byte
	err error
}

func (r *reader) fail(detail string) {
	if r.err == nil {
		r.err = ErrInvalidEncoding.WithDetails(detail)
	}
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf) < n {
		r.fail("truncated input")
		return nil
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func (r *reader) u16() int {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return int(binary.BigEndian.Uint16(b))
}

func (r *reader) u32() int {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return int(binary.BigEndian.Uint32(b))
}

func (r *reader) blob() []byte {
	n := r.u32()
	b := r.take(n)
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

func (r *reader) scalar() Scalar {
	b := r.take(r.g.ScalarSize())
	if b == nil {
		return nil
	}
	s, err := r.g.ScalarFromBytes(b)
	if err != nil {
		r.err = ErrInvalidEncoding.WithCause(err)
		return nil
	}
	return s
}

func (r *reader) point() Point {
	b := r.take(r.g.PointSize())
	if b == nil {
		return nil
	}
	p, err := r.g.PointFromBytes(b)
	if err != nil {
		r.err = ErrInvalidEncoding.WithCause(err)
		return nil
	}
	return p
}

func (r *reader) ciphertexts() []*Ciphertext {
	n := r.u16()
	if r.err != nil {
		return nil
	}
	cs := make([]*Ciphertext, n)
	for i := range cs {
		c1, c2 := r.point(), r.point()
		if r.err != nil {
			return nil
		}
		cs[i] = &Ciphertext{C1: c1, C2: c2}
	}
	return cs
}

func (r *reader) done() error {
	if r.err == nil && len(r.buf) != 0 {
		r.fail("trailing bytes")
	}
	return r.err
}

// MarshalBinary encodes C1 || C2.
func (c *Ciphertext) MarshalBinary() ([]byte, error) {
	return append(c.C1.Bytes(), c.C2.Bytes()...), nil
}

// DecodeCiphertext parses C1 || C2.
func DecodeCiphertext(g Group, b []byte) (*Ciphertext, error) {
	if len(b) != 2*g.PointSize() {
		return nil, ErrInvalidEncoding.Detailf("ciphertext must be %d bytes", 2*g.PointSize())
	}
	r := &reader{g: g, buf: b}
	c := &Ciphertext{C1: r.point(), C2: r.point()}
	if err := r.done(); err != nil {
		return nil, err
	}
	return c, nil
}

// MarshalBinary encodes index || recipient || parts || proof.
func (kc *KeyCiphertext) MarshalBinary() ([]byte, error) {
	w := &writer{}
	w.raw(kc.Index.Bytes())
	w.raw(kc.Recipient.Bytes())
	w.ciphertexts(kc.Parts)
	w.blob(kc.Proof)
	return w.buf, nil
}

// DecodeKeyCiphertext is the inverse of KeyCiphertext.MarshalBinary.
func DecodeKeyCiphertext(g Group, b []byte) (*KeyCiphertext, error) {
	r := &reader{g: g, buf: b}
	kc := &KeyCiphertext{
		Index:     r.scalar(),
		Recipient: r.point(),
		Parts:     r.ciphertexts(),
		Proof:     nilIfEmpty(r.blob()),
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return kc, nil
}

// MarshalBinary encodes index || parts || proof.
func (re *ReEncryption) MarshalBinary() ([]byte, error) {
	w := &writer{}
	w.raw(re.Index.Bytes())
	w.ciphertexts(re.Parts)
	w.blob(re.Proof)
	return w.buf, nil
}

// DecodeReEncryption is the inverse of ReEncryption.MarshalBinary.
func DecodeReEncryption(g Group, b []byte) (*ReEncryption, error) {
	r := &reader{g: g, buf: b}
	re := &ReEncryption{
		Index: r.scalar(),
		Parts: r.ciphertexts(),
		Proof: nilIfEmpty(r.blob()),
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return re, nil
}

// MarshalBinary encodes indices || parts || proof.
func (cc *CombinedCiphertext) MarshalBinary() ([]byte, error) {
	w := &writer{}
	w.u16(len(cc.Indices))
	for _, idx := range cc.Indices {
		w.raw(idx.Bytes())
	}
	w.ciphertexts(cc.Parts)
	w.blob(cc.Proof)
	return w.buf, nil
}

// DecodeCombinedCiphertext is the inverse of CombinedCiphertext.MarshalBinary.
func DecodeCombinedCiphertext(g Group, b []byte) (*CombinedCiphertext, error) {
	r := &reader{g: g, buf: b}
	n := r.u16()
	if n > MaxNodes {
		r.fail("too many indices")
	}
	cc := &CombinedCiphertext{}
	for i := 0; i < n && r.err == nil; i++ {
		cc.Indices = append(cc.Indices, r.scalar())
	}
	cc.Parts = r.ciphertexts()
	cc.Proof = nilIfEmpty(r.blob())
	if err := r.done(); err != nil {
		return nil, err
	}
	return cc, nil
}

// MarshalBinary encodes nonce || sealed bytes.
func (sc *SymmetricCiphertext) MarshalBinary() ([]byte, error) {
	return append(append([]byte(nil), sc.Nonce...), sc.Ciphertext...), nil
}

// DecodeSymmetricCiphertext splits nonce || sealed bytes for a cipher
// using nonceSize-byte nonces.
func DecodeSymmetricCiphertext(nonceSize int, b []byte) (*SymmetricCiphertext, error) {
	if len(b) < nonceSize {
		return nil, ErrInvalidEncoding.WithDetails("symmetric ciphertext shorter than its nonce")
	}
	return &SymmetricCiphertext{
		Nonce:      append([]byte(nil), b[:nonceSize]...),
		Ciphertext: append([]byte(nil), b[nonceSize:]...),
	}, nil
}

// MarshalBinary encodes the n key ciphertexts, the payload and the proof.
func (p *Publication) MarshalBinary() ([]byte, error) {
	w := &writer{}
	w.u16(len(p.Shares))
	for _, kc := range p.Shares {
		b, err := kc.MarshalBinary()
		if err != nil {
			return nil, err
		}
		w.blob(b)
	}
	payload, err := p.Payload.MarshalBinary()
	if err != nil {
		return nil, err
	}
	w.blob(payload)
	w.blob(p.Proof)
	return w.buf, nil
}

// DecodePublication is the inverse of Publication.MarshalBinary for the
// group and cipher of tc.
func DecodePublication(tc *ThresholdContext, b []byte) (*Publication, error) {
	r := &reader{g: tc.group, buf: b}
	n := r.u16()
	if r.err == nil && n != tc.total {
		r.fail("share count does not match the context")
	}
	pub := &Publication{}
	for i := 0; i < n && r.err == nil; i++ {
		raw := r.blob()
		if r.err != nil {
			break
		}
		kc, err := DecodeKeyCiphertext(tc.group, raw)
		if err != nil {
			return nil, err
		}
		pub.Shares = append(pub.Shares, kc)
	}
	payload := r.blob()
	pub.Proof = nilIfEmpty(r.blob())
	if err := r.done(); err != nil {
		return nil, err
	}

	var err error
	if pub.Payload, err = DecodeSymmetricCiphertext(tc.cipher.NonceSize(), payload); err != nil {
		return nil, err
	}
	return pub, nil
}

func nilIfEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
