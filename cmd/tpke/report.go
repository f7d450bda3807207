package main

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/markkurossi/tabulate"
	json "github.com/nikkolasg/hexjson"
	"github.com/urfave/cli/v2"

	"github.com/canopy-network/canopy/lib/tpke"
	"github.com/canopy-network/canopy/lib/tpke/ledger"
)

func printTable(w io.Writer, headers []string, rows [][]string) {
	tab := tabulate.New(tabulate.UnicodeLight)
	for _, h := range headers {
		tab.Header(h).SetAlign(tabulate.ML)
	}
	for _, r := range rows {
		row := tab.Row()
		for _, col := range r {
			row.Column(col)
		}
	}
	tab.Print(w)
}

func formatNanos(ns int64) string {
	return time.Unix(0, ns).UTC().Format(time.RFC3339)
}

// TradeExport is the JSON view of a stored trade. Byte fields are hex
// encoded.
type TradeExport struct {
	ID          string
	ContextID   string
	Group       string
	Cipher      string
	Total       uint32
	Threshold   uint32
	Indices     []uint32
	Stage       string
	Publication []byte `json:",omitempty"`
	Buyer       []byte `json:",omitempty"`
	Combined    []byte `json:",omitempty"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	ReEncryptions []*ReEncryptionExport
}

// ReEncryptionExport is one stored node contribution.
type ReEncryptionExport struct {
	Node       uint32
	Payload    []byte
	ReceivedAt time.Time
}

func newTradeExport(rec *ledger.TradeRecord, recs []*ledger.ReEncryptionRecord) *TradeExport {
	exp := &TradeExport{
		ID:          rec.ID,
		ContextID:   rec.ContextID,
		Group:       rec.Group,
		Cipher:      rec.Cipher,
		Total:       rec.Total,
		Threshold:   rec.Threshold,
		Indices:     rec.Indices,
		Stage:       rec.Stage().String(),
		Publication: rec.Publication,
		Buyer:       rec.Buyer,
		Combined:    rec.Combined,
		CreatedAt:   time.Unix(0, rec.CreatedAt).UTC(),
		UpdatedAt:   time.Unix(0, rec.UpdatedAt).UTC(),
	}
	for _, r := range recs {
		exp.ReEncryptions = append(exp.ReEncryptions, &ReEncryptionExport{
			Node:       r.Node,
			Payload:    r.Payload,
			ReceivedAt: time.Unix(0, r.ReceivedAt).UTC(),
		})
	}
	return exp
}

// MarshalIndent returns the indented JSON form.
func (e *TradeExport) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(e, "", "  ")
}

// step is one timed stage of a simulation
type step struct {
	label string
	took  time.Duration
}

func timed(steps *[]step, label string, fn func() error) error {
	start := time.Now()
	err := fn()
	*steps = append(*steps, step{label: label, took: time.Since(start)})
	return err
}

func simulateCmd(c *cli.Context) error {
	n, t := c.Int(nodesFlag.Name), c.Int(thresholdFlag.Name)
	cfg := tpke.DefaultTradeConfig(n, t)
	cfg.Group = c.String(groupFlag.Name)
	cfg.Cipher = c.String(cipherFlag.Name)

	msg := make([]byte, c.Int(sizeFlag.Name))
	if _, err := rand.Read(msg); err != nil {
		return tpke.ErrRandomnessGeneration.WithCause(err)
	}

	var (
		steps     []step
		tc        *tpke.ThresholdContext
		committee *tpke.Committee
		buyer     *tpke.KeyPair
		trade     *tpke.Trade
		plain     []byte
	)
	err := timed(&steps, "context", func() (err error) {
		tc, err = cfg.Context()
		return err
	})
	if err != nil {
		return err
	}
	trade = tpke.NewTrade(tc, tpke.WithEventHandler(tpke.NewLogEventHandler(logger(c))))

	err = timed(&steps, "keygen", func() error {
		var err error
		if committee, err = tpke.NewCommittee(tc); err != nil {
			return err
		}
		if buyer, err = tpke.GenKeyPair(tc); err != nil {
			return err
		}
		proofs := make([]*tpke.KeyProof, n)
		for i, node := range committee.Nodes() {
			if proofs[i], err = node.ProvePossession(); err != nil {
				return err
			}
		}
		return trade.RegisterNodeKeys(committee.PublicKeys(), proofs)
	})
	if err != nil {
		return err
	}
	defer committee.Zeroize()
	defer buyer.Zeroize()

	var pub *tpke.Publication
	if err := timed(&steps, "publish", func() (err error) {
		pub, err = trade.Publish(msg)
		return err
	}); err != nil {
		return err
	}

	if err := timed(&steps, "reencrypt", func() error {
		proof, err := buyer.ProvePossession(tc.Group())
		if err != nil {
			return err
		}
		if err := trade.SetBuyer(buyer.PublicKey, proof); err != nil {
			return err
		}
		res, err := committee.ReEncryptAll(c.Context, tc, pub, buyer.PublicKey)
		if err != nil {
			return err
		}
		for _, re := range res {
			if err := trade.AddReEncryption(re); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := timed(&steps, "combine", func() error {
		_, err := trade.Combine()
		return err
	}); err != nil {
		return err
	}
	if err := timed(&steps, "decrypt", func() (err error) {
		plain, err = trade.Decrypt(buyer.SecretKey)
		return err
	}); err != nil {
		return err
	}
	if len(plain) != len(msg) {
		return fmt.Errorf("simulation recovered %d bytes out of %d", len(plain), len(msg))
	}

	var total time.Duration
	rows := make([][]string, 0, len(steps)+1)
	for _, s := range steps {
		total += s.took
		rows = append(rows, []string{s.label, s.took.String()})
	}
	rows = append(rows, []string{"Total", total.String()})
	fmt.Fprintf(output, "%d-of-%d on %s with %s, %d bytes\n", t, n, tc.Group().Name(), cfg.Cipher, len(msg))
	printTable(output, []string{"Step", "Time"}, rows)
	return nil
}
