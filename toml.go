package tpke

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// KeyPairTOML is the TOML-able version of a key pair. It holds the secret
// key and must be stored with restrictive permissions.
type KeyPairTOML struct {
	Group     string
	Index     uint32 `toml:",omitempty"`
	SecretKey string
	PublicKey string
}

// PublicKeyTOML is the TOML-able version of a registered public key with
// its possession proof.
type PublicKeyTOML struct {
	Group          string
	Index          uint32 `toml:",omitempty"`
	Key            string
	ProofChallenge string `toml:",omitempty"`
	ProofResponse  string `toml:",omitempty"`
}

// CommitteeTOML lists the registered node keys of a trade.
type CommitteeTOML struct {
	Nodes []*PublicKeyTOML
}

// ScalarToString returns the hex encoding of s.
func ScalarToString(s Scalar) string {
	return hex.EncodeToString(s.Bytes())
}

// StringToScalar parses a hex encoded scalar.
func StringToScalar(g Group, s string) (Scalar, error) {
	buff, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidEncoding.WithCause(err)
	}
	return DecodeScalar(g, buff)
}

// PointToString returns the hex encoding of p.
func PointToString(p Point) string {
	return hex.EncodeToString(p.Bytes())
}

// StringToPoint parses a hex encoded point.
func StringToPoint(g Group, s string) (Point, error) {
	buff, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidEncoding.WithCause(err)
	}
	return DecodePoint(g, buff)
}

// TOML returns the TOML form of the key pair.
func (kp *KeyPair) TOML(g Group, index uint32) *KeyPairTOML {
	return &KeyPairTOML{
		Group:     g.Name(),
		Index:     index,
		SecretKey: ScalarToString(kp.SecretKey),
		PublicKey: PointToString(kp.PublicKey),
	}
}

// KeyPair decodes the key pair and checks that the stored public key
// matches the secret key.
func (t *KeyPairTOML) KeyPair() (Group, *KeyPair, error) {
	g, err := NewGroup(GroupType(t.Group))
	if err != nil {
		return nil, nil, err
	}
	sk, err := StringToScalar(g, t.SecretKey)
	if err != nil {
		return nil, nil, err
	}
	kp, err := KeyPairFromSecret(g, sk)
	if err != nil {
		return nil, nil, err
	}
	if t.PublicKey != "" && t.PublicKey != PointToString(kp.PublicKey) {
		return nil, nil, ErrInvalidSecretKey.WithDetails("stored public key does not match")
	}
	return g, kp, nil
}

// NewPublicKeyTOML returns the TOML form of a public key and optional proof.
func NewPublicKeyTOML(g Group, index uint32, pk Point, proof *KeyProof) *PublicKeyTOML {
	pt := &PublicKeyTOML{
		Group: g.Name(),
		Index: index,
		Key:   PointToString(pk),
	}
	if proof != nil {
		pt.ProofChallenge = ScalarToString(proof.Challenge)
		pt.ProofResponse = ScalarToString(proof.Response)
	}
	return pt
}

// PublicKey decodes the key. The proof is nil when none was stored.
func (t *PublicKeyTOML) PublicKey(g Group) (Point, *KeyProof, error) {
	if t.Group != g.Name() {
		return nil, nil, ErrParameterMismatch.Detailf("key for group %s, expected %s", t.Group, g.Name())
	}
	pk, err := StringToPoint(g, t.Key)
	if err != nil {
		return nil, nil, err
	}
	if t.ProofChallenge == "" && t.ProofResponse == "" {
		return pk, nil, nil
	}
	c, err := StringToScalar(g, t.ProofChallenge)
	if err != nil {
		return nil, nil, err
	}
	s, err := StringToScalar(g, t.ProofResponse)
	if err != nil {
		return nil, nil, err
	}
	return pk, &KeyProof{Challenge: c, Response: s}, nil
}

// SaveTOML writes v to path, creating it with the given permissions.
func SaveTOML(path string, v interface{}, perm os.FileMode) error {
	fd, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer fd.Close()
	return toml.NewEncoder(fd).Encode(v)
}

// LoadTOML decodes the file at path into v.
func LoadTOML(path string, v interface{}) error {
	if _, err := toml.DecodeFile(path, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
