package tpke

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Node holds the key pair of one computation node. The secret key never
// leaves it; callers only get re-encryptions and public data.
type Node struct {
	group Group
	index Scalar
	keys  *KeyPair
}

// NewNode creates a node with a fresh key pair.
func NewNode(g Group, index Scalar) (*Node, error) {
	kp, err := GenerateKeyPair(g)
	if err != nil {
		return nil, err
	}
	return NewNodeFromKeyPair(g, index, kp), nil
}

// NewNodeFromKeyPair takes custody of an existing key pair.
func NewNodeFromKeyPair(g Group, index Scalar, kp *KeyPair) *Node {
	return &Node{group: g, index: index, keys: kp}
}

func (n *Node) Index() Scalar    { return n.index }
func (n *Node) PublicKey() Point { return n.keys.PublicKey }

// ProvePossession proves the node holds the secret key of PublicKey.
func (n *Node) ProvePossession() (*KeyProof, error) {
	return n.keys.ProvePossession(n.group)
}

// ReEncrypt re-encrypts the node's own KeyCiphertext toward buyer.
func (n *Node) ReEncrypt(tc *ThresholdContext, kc *KeyCiphertext, buyer Point) (*ReEncryption, error) {
	if kc == nil || kc.Index == nil || !kc.Index.Equal(n.index) {
		return nil, ErrParameterMismatch.WithDetails("key ciphertext addressed to another node")
	}
	return ReEncrypt(tc, kc, n.keys.SecretKey, buyer)
}

// Zeroize clears the node's secret key.
func (n *Node) Zeroize() {
	n.keys.Zeroize()
}

// Committee is the set of nodes of one context, in index order.
type Committee struct {
	nodes []*Node
}

// NewCommittee creates one node per context index.
func NewCommittee(tc *ThresholdContext) (*Committee, error) {
	nodes := make([]*Node, tc.total)
	for i, idx := range tc.indices {
		node, err := NewNode(tc.group, idx)
		if err != nil {
			return nil, err
		}
		nodes[i] = node
	}
	return &Committee{nodes: nodes}, nil
}

// Nodes returns the nodes in index order.
func (c *Committee) Nodes() []*Node {
	return append([]*Node(nil), c.nodes...)
}

// PublicKeys returns the node keys in index order, the form EncryptBytes
// expects.
func (c *Committee) PublicKeys() []Point {
	keys := make([]Point, len(c.nodes))
	for i, n := range c.nodes {
		keys[i] = n.PublicKey()
	}
	return keys
}

// ReEncryptAll has every node re-encrypt its share concurrently. The result
// is in index order. The first failure cancels the rest.
func (c *Committee) ReEncryptAll(ctx context.Context, tc *ThresholdContext, pub *Publication, buyer Point) ([]*ReEncryption, error) {
	res := make([]*ReEncryption, len(c.nodes))
	eg, ctx := errgroup.WithContext(ctx)
	for i, node := range c.nodes {
		i, node := i, node
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			kc, err := pub.Share(node.Index())
			if err != nil {
				return err
			}
			re, err := node.ReEncrypt(tc, kc, buyer)
			if err != nil {
				return err
			}
			res[i] = re
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

// Zeroize clears every node's secret key.
func (c *Committee) Zeroize() {
	for _, n := range c.nodes {
		n.Zeroize()
	}
}
