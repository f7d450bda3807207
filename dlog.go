package tpke

// Decoder recovers v from v·G for v in [0, 2^bits) with a baby-step
// giant-step table. It is immutable after construction and safe for
// concurrent use.
type Decoder struct {
	group Group
	bits  int
	steps uint64 // baby steps m, with m*m >= 2^bits
	table map[string]uint64
	giant Point // -m·G
}

// NewDecoder precomputes the baby-step table for values below 2^bits.
func NewDecoder(g Group, bits int) (*Decoder, error) {
	if bits < 1 || bits > 32 {
		return nil, ErrInvalidParameters.Detailf("decoder range 2^%d not supported", bits)
	}

	steps := uint64(1) << uint((bits+1)/2)
	table := make(map[string]uint64, steps)
	base := g.BasePoint()
	cur := g.PointIdentity()
	for j := uint64(0); j < steps; j++ {
		table[string(cur.Bytes())] = j
		cur = cur.Add(base)
	}

	return &Decoder{
		group: g,
		bits:  bits,
		steps: steps,
		table: table,
		giant: base.Mul(g.ScalarFromUint64(steps)).Negate(),
	}, nil
}

// Bound returns the exclusive upper bound of decodable values.
func (d *Decoder) Bound() uint64 {
	return uint64(1) << uint(d.bits)
}

// Bits returns the decodable range in bits.
func (d *Decoder) Bits() int {
	return d.bits
}

// Decode returns v with p = v·G, or ErrDecodeFailure when v is not below
// Bound.
func (d *Decoder) Decode(p Point) (uint64, error) {
	bound := d.Bound()
	gamma := p
	for i := uint64(0); i*d.steps < bound; i++ {
		if j, ok := d.table[string(gamma.Bytes())]; ok {
			v := i*d.steps + j
			if v < bound {
				return v, nil
			}
			break
		}
		gamma = gamma.Add(d.giant)
	}
	return 0, ErrDecodeFailure.Detailf("value not below 2^%d", d.bits)
}
