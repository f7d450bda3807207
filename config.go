package tpke

// TradeConfig is the on-disk description of a trade's public parameters.
type TradeConfig struct {
	Group     string
	Cipher    string
	Total     int
	Threshold int
	Indices   []uint32
}

// DefaultTradeConfig returns a config for n nodes with indices 1..n on the
// default group and cipher.
func DefaultTradeConfig(n, t int) *TradeConfig {
	indices := make([]uint32, n)
	for i := range indices {
		indices[i] = uint32(i + 1)
	}
	return &TradeConfig{
		Group:     string(DefaultGroupType),
		Cipher:    string(DefaultCipher),
		Total:     n,
		Threshold: t,
		Indices:   indices,
	}
}

// LoadTradeConfig reads a TOML trade config.
func LoadTradeConfig(path string) (*TradeConfig, error) {
	cfg := &TradeConfig{}
	if err := LoadTOML(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as TOML.
func (c *TradeConfig) Save(path string) error {
	return SaveTOML(path, c, 0o644)
}

// Context builds the threshold context the config describes.
func (c *TradeConfig) Context(opts ...ContextOption) (*ThresholdContext, error) {
	g, err := NewGroup(GroupType(c.Group))
	if err != nil {
		return nil, err
	}
	sc, err := NewSymmetricCipher(CipherAlgorithm(c.Cipher))
	if err != nil {
		return nil, err
	}
	opts = append([]ContextOption{WithCipher(sc)}, opts...)
	return GenContext(g, c.Total, c.Threshold, NodeIndices(g, c.Indices...), opts...)
}

// Position returns the context position of node id.
func (c *TradeConfig) Position(id uint32) (int, bool) {
	for i, idx := range c.Indices {
		if idx == id {
			return i, true
		}
	}
	return 0, false
}
