// tpke drives one-time data publications from the command line: nodes
// generate keys, a seller publishes, nodes re-encrypt for the buyer, and the
// buyer combines and decrypts. Public artifacts live in a bbolt ledger in the
// working folder.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/canopy-network/canopy/lib/tpke"
	"github.com/canopy-network/canopy/lib/tpke/ledger"
	"github.com/canopy-network/canopy/lib/tpke/log"
)

// default output of the commands; logs go to stderr
var output io.Writer = os.Stdout

// Automatically set through -ldflags
var (
	version   = "master"
	gitCommit = "none"
	buildDate = "unknown"
)

const defaultFolderName = ".tpke"

func defaultFolder() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultFolderName
	}
	return path.Join(home, defaultFolderName)
}

var folderFlag = &cli.StringFlag{
	Name:  "folder",
	Value: defaultFolder(),
	Usage: "Folder holding the trade ledger.",
}

var verboseFlag = &cli.BoolFlag{
	Name:  "verbose",
	Usage: "If set, verbosity is at the debug level",
}

var groupFlag = &cli.StringFlag{
	Name:  "group",
	Value: string(tpke.DefaultGroupType),
	Usage: fmt.Sprintf("Prime order group, one of %v", tpke.SupportedGroups()),
}

var cipherFlag = &cli.StringFlag{
	Name:  "cipher",
	Value: string(tpke.DefaultCipher),
	Usage: fmt.Sprintf("Symmetric cipher for the payload, one of %v", tpke.SupportedCiphers()),
}

var nodesFlag = &cli.IntFlag{
	Name:     "nodes",
	Required: true,
	Usage:    "number of committee nodes",
}

var thresholdFlag = &cli.IntFlag{
	Name:     "threshold",
	Required: true,
	Usage:    "number of re-encryptions needed to decrypt",
}

var indexFlag = &cli.UintFlag{
	Name:  "index",
	Usage: "committee index of the node owning the key. Leave unset for a buyer key.",
}

var idFlag = &cli.StringFlag{
	Name:  "id",
	Usage: "trade identifier, a random UUID when unset",
}

var keyFlag = &cli.StringFlag{
	Name:     "key",
	Required: true,
	Usage:    "TOML file holding a key pair created by keygen",
}

var outFlag = &cli.StringFlag{
	Name:  "out",
	Usage: "file to write to instead of stdout",
}

var publicFlag = &cli.StringFlag{
	Name:  "public",
	Usage: "file receiving the public key and its proof",
}

var committeeFlag = &cli.StringFlag{
	Name:     "committee",
	Required: true,
	Usage:    "TOML file listing every node public key as [[Nodes]] entries",
}

var buyerFlag = &cli.StringFlag{
	Name:     "buyer",
	Required: true,
	Usage:    "TOML file holding the buyer public key and its proof",
}

var inFlag = &cli.StringFlag{
	Name:     "in",
	Required: true,
	Usage:    "file holding the message to publish",
}

var sizeFlag = &cli.IntFlag{
	Name:  "size",
	Value: 1024,
	Usage: "size in bytes of the simulated message",
}

func toArray(flags ...cli.Flag) []cli.Flag {
	return flags
}

var appCommands = []*cli.Command{
	{
		Name:  "keygen",
		Usage: "Generate a key pair for a node or a buyer.",
		Flags: toArray(groupFlag, indexFlag, outFlag, publicFlag),
		Action: func(c *cli.Context) error {
			return keygenCmd(c)
		},
	},
	{
		Name:  "init",
		Usage: "Create a trade with its threshold parameters in the ledger.",
		Flags: toArray(nodesFlag, thresholdFlag, groupFlag, cipherFlag, idFlag),
		Action: func(c *cli.Context) error {
			return initCmd(c)
		},
	},
	{
		Name:      "context",
		Usage:     "Show the threshold context of a trade and its security assessment.",
		ArgsUsage: "<trade id>",
		Action: func(c *cli.Context) error {
			return contextCmd(c)
		},
	},
	{
		Name:      "publish",
		Usage:     "Encrypt a message for the committee and store the publication.",
		ArgsUsage: "<trade id>",
		Flags:     toArray(committeeFlag, inFlag),
		Action: func(c *cli.Context) error {
			return publishCmd(c)
		},
	},
	{
		Name:      "buyer",
		Usage:     "Register the buyer public key of a published trade.",
		ArgsUsage: "<trade id>",
		Flags:     toArray(buyerFlag),
		Action: func(c *cli.Context) error {
			return buyerCmd(c)
		},
	},
	{
		Name:      "reencrypt",
		Usage:     "Re-encrypt a node's share of the ephemeral key for the buyer.",
		ArgsUsage: "<trade id>",
		Flags:     toArray(keyFlag),
		Action: func(c *cli.Context) error {
			return reencryptCmd(c)
		},
	},
	{
		Name:      "combine",
		Usage:     "Combine the first threshold re-encryptions received.",
		ArgsUsage: "<trade id>",
		Action: func(c *cli.Context) error {
			return combineCmd(c)
		},
	},
	{
		Name:      "decrypt",
		Usage:     "Decrypt a combined trade with the buyer key.",
		ArgsUsage: "<trade id>",
		Flags:     toArray(keyFlag, outFlag),
		Action: func(c *cli.Context) error {
			return decryptCmd(c)
		},
	},
	{
		Name:      "status",
		Usage:     "List the trades in the ledger, or the re-encryptions of one trade.",
		ArgsUsage: "[trade id]",
		Action: func(c *cli.Context) error {
			return statusCmd(c)
		},
	},
	{
		Name:      "export",
		Usage:     "Dump a trade record as JSON with hex encoded artifacts.",
		ArgsUsage: "<trade id>",
		Flags:     toArray(outFlag),
		Action: func(c *cli.Context) error {
			return exportCmd(c)
		},
	},
	{
		Name:  "simulate",
		Usage: "Run a full trade in memory and report the time of every step.",
		Flags: toArray(nodesFlag, thresholdFlag, groupFlag, cipherFlag, sizeFlag),
		Action: func(c *cli.Context) error {
			return simulateCmd(c)
		},
	},
}

// CLI runs the tpke command
func CLI() *cli.App {
	app := cli.NewApp()
	app.Name = "tpke"

	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Fprintf(output, "tpke %v (date %v, commit %v)\n", version, buildDate, gitCommit)
	}

	app.Version = version
	app.Usage = "threshold encryption for one-time data publication"
	app.Commands = appCommands
	app.Flags = toArray(verboseFlag, folderFlag)
	return app
}

func logger(c *cli.Context) log.Logger {
	level := log.InfoLevel
	if c.Bool(verboseFlag.Name) {
		level = log.DebugLevel
	}
	return log.New(os.Stderr, level, false)
}

func openLedger(c *cli.Context) (*ledger.Store, error) {
	folder := c.String(folderFlag.Name)
	if err := os.MkdirAll(folder, 0o700); err != nil {
		return nil, fmt.Errorf("creating folder %s: %w", folder, err)
	}
	return ledger.Open(c.Context, logger(c), folder, nil)
}

func tradeID(c *cli.Context) (string, error) {
	if !c.Args().Present() {
		return "", errors.New("missing trade id argument")
	}
	return c.Args().First(), nil
}

// loadTrade opens the ledger and rebuilds the context of the trade named
// by the first argument. The caller closes the store.
func loadTrade(c *cli.Context) (*ledger.Store, *ledger.TradeRecord, *tpke.ThresholdContext, error) {
	id, err := tradeID(c)
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := openLedger(c)
	if err != nil {
		return nil, nil, nil, err
	}
	rec, err := store.Trade(c.Context, id)
	if err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("trade %s: %w", id, err)
	}
	tc, err := rec.Config().Context()
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}
	if tc.ID() != rec.ContextID {
		store.Close()
		return nil, nil, nil, tpke.ErrParameterMismatch.WithDetails("stored context fingerprint does not match")
	}
	return store, rec, tc, nil
}

func keygenCmd(c *cli.Context) error {
	g, err := tpke.NewGroup(tpke.GroupType(c.String(groupFlag.Name)))
	if err != nil {
		return err
	}
	kp, err := tpke.GenerateKeyPair(g)
	if err != nil {
		return err
	}
	defer kp.Zeroize()
	proof, err := kp.ProvePossession(g)
	if err != nil {
		return err
	}
	index := uint32(c.Uint(indexFlag.Name))

	if c.IsSet(outFlag.Name) {
		if err := tpke.SaveTOML(c.String(outFlag.Name), kp.TOML(g, index), 0o600); err != nil {
			return err
		}
		fmt.Fprintf(output, "Generated key pair at %s\n", c.String(outFlag.Name))
	} else {
		var buff bytes.Buffer
		if err := toml.NewEncoder(&buff).Encode(kp.TOML(g, index)); err != nil {
			return err
		}
		fmt.Fprintln(output, buff.String())
	}

	pub := tpke.NewPublicKeyTOML(g, index, kp.PublicKey, proof)
	if c.IsSet(publicFlag.Name) {
		return tpke.SaveTOML(c.String(publicFlag.Name), pub, 0o644)
	}
	var buff bytes.Buffer
	buff.WriteString("[[Nodes]]\n")
	if err := toml.NewEncoder(&buff).Encode(pub); err != nil {
		return err
	}
	fmt.Fprintln(output, "Public key snippet for the committee file:")
	fmt.Fprintln(output, buff.String())
	return nil
}

func initCmd(c *cli.Context) error {
	n, t := c.Int(nodesFlag.Name), c.Int(thresholdFlag.Name)
	cfg := tpke.DefaultTradeConfig(n, t)
	cfg.Group = c.String(groupFlag.Name)
	cfg.Cipher = c.String(cipherFlag.Name)

	tc, err := cfg.Context()
	if err != nil {
		return err
	}
	res := tpke.NewDefaultContextValidator().ValidateParameters(n, t, tc.Indices())
	for _, w := range res.Warnings {
		fmt.Fprintf(output, "warning: %s\n", w)
	}

	id := c.String(idFlag.Name)
	if id == "" {
		id = uuid.NewString()
	}
	store, err := openLedger(c)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.CreateTrade(c.Context, ledger.NewTradeRecord(id, cfg, tc.ID())); err != nil {
		return err
	}
	fmt.Fprintf(output, "trade %s created (context %s, %d-of-%d on %s)\n", id, tc.ID(), t, n, cfg.Group)
	return nil
}

func contextCmd(c *cli.Context) error {
	store, rec, tc, err := loadTrade(c)
	if err != nil {
		return err
	}
	defer store.Close()

	indices := make([]string, len(rec.Indices))
	for i, idx := range rec.Indices {
		indices[i] = fmt.Sprint(idx)
	}
	a := tpke.AssessSecurity(tc.Total(), tc.Threshold())
	printTable(output, []string{"Field", "Value"}, [][]string{
		{"Trade", rec.ID},
		{"Context", tc.ID()},
		{"Group", tc.Group().Name()},
		{"Cipher", string(tc.Cipher().Algorithm())},
		{"Nodes", fmt.Sprint(tc.Total())},
		{"Threshold", fmt.Sprint(tc.Threshold())},
		{"Indices", strings.Join(indices, ",")},
		{"Rating", string(a.OverallRating)},
		{"Fault tolerance", fmt.Sprint(a.FaultTolerance)},
		{"Collusion bound", fmt.Sprint(a.CollusionBound)},
		{"Availability risk", a.AvailabilityRisk},
	})
	return nil
}

// loadCommittee reads the node keys of the committee file in context order
// and checks their possession proofs.
func loadCommittee(file string, cfg *tpke.TradeConfig, g tpke.Group) ([]tpke.Point, error) {
	committee := &tpke.CommitteeTOML{}
	if err := tpke.LoadTOML(file, committee); err != nil {
		return nil, err
	}
	keys := make([]tpke.Point, len(cfg.Indices))
	for _, node := range committee.Nodes {
		pos, ok := cfg.Position(node.Index)
		if !ok {
			return nil, tpke.ErrUnknownIndex.Detailf("committee lists node %d", node.Index)
		}
		if keys[pos] != nil {
			return nil, tpke.ErrDuplicateIndex.Detailf("committee lists node %d twice", node.Index)
		}
		pk, proof, err := node.PublicKey(g)
		if err != nil {
			return nil, err
		}
		if err := tpke.VerifyKeyProof(g, pk, proof); err != nil {
			return nil, fmt.Errorf("node %d: %w", node.Index, err)
		}
		keys[pos] = pk
	}
	for i, pk := range keys {
		if pk == nil {
			return nil, tpke.ErrInvalidParameters.Detailf("committee misses node %d", cfg.Indices[i])
		}
	}
	return keys, nil
}

func publishCmd(c *cli.Context) error {
	store, rec, tc, err := loadTrade(c)
	if err != nil {
		return err
	}
	defer store.Close()
	if len(rec.Publication) > 0 {
		return tpke.ErrInvalidState.Detailf("trade %s already published", rec.ID)
	}

	keys, err := loadCommittee(c.String(committeeFlag.Name), rec.Config(), tc.Group())
	if err != nil {
		return err
	}
	msg, err := os.ReadFile(c.String(inFlag.Name))
	if err != nil {
		return err
	}
	pub, err := tpke.EncryptBytes(tc, keys, msg)
	if err != nil {
		return err
	}
	if err := store.PutPublication(c.Context, rec.ID, pub); err != nil {
		return err
	}
	fmt.Fprintf(output, "trade %s published: %d key ciphertexts, %d payload bytes\n",
		rec.ID, len(pub.Shares), len(pub.Payload.Ciphertext))
	return nil
}

func buyerCmd(c *cli.Context) error {
	store, rec, tc, err := loadTrade(c)
	if err != nil {
		return err
	}
	defer store.Close()
	if rec.Stage() != tpke.StateEncrypted {
		return tpke.ErrInvalidState.Detailf("trade %s is %s", rec.ID, rec.Stage())
	}
	if len(rec.Buyer) > 0 {
		return tpke.ErrInvalidState.Detailf("trade %s already has a buyer", rec.ID)
	}

	pt := &tpke.PublicKeyTOML{}
	if err := tpke.LoadTOML(c.String(buyerFlag.Name), pt); err != nil {
		return err
	}
	pk, proof, err := pt.PublicKey(tc.Group())
	if err != nil {
		return err
	}
	if err := tpke.VerifyKeyProof(tc.Group(), pk, proof); err != nil {
		return err
	}
	if err := store.SetBuyer(c.Context, rec.ID, pk); err != nil {
		return err
	}
	fmt.Fprintf(output, "trade %s: buyer %s registered\n", rec.ID, tpke.PointToString(pk))
	return nil
}

func loadKeyPair(c *cli.Context, g tpke.Group) (*tpke.KeyPairTOML, *tpke.KeyPair, error) {
	kt := &tpke.KeyPairTOML{}
	if err := tpke.LoadTOML(c.String(keyFlag.Name), kt); err != nil {
		return nil, nil, err
	}
	kg, kp, err := kt.KeyPair()
	if err != nil {
		return nil, nil, err
	}
	if kg.Name() != g.Name() {
		return nil, nil, tpke.ErrParameterMismatch.Detailf("key for group %s, trade uses %s", kg.Name(), g.Name())
	}
	return kt, kp, nil
}

func reencryptCmd(c *cli.Context) error {
	store, rec, tc, err := loadTrade(c)
	if err != nil {
		return err
	}
	defer store.Close()
	if len(rec.Buyer) == 0 {
		return tpke.ErrInvalidState.Detailf("trade %s has no buyer yet", rec.ID)
	}
	if len(rec.Combined) > 0 {
		return tpke.ErrInvalidState.Detailf("trade %s is already combined", rec.ID)
	}

	g := tc.Group()
	kt, kp, err := loadKeyPair(c, g)
	if err != nil {
		return err
	}
	defer kp.Zeroize()
	if _, ok := rec.Config().Position(kt.Index); !ok {
		return tpke.ErrUnknownIndex.Detailf("node %d is not in the committee", kt.Index)
	}

	buyer, err := tpke.DecodePoint(g, rec.Buyer)
	if err != nil {
		return err
	}
	pub, err := store.Publication(c.Context, tc, rec.ID)
	if err != nil {
		return err
	}
	if err := tc.ProofSystem().VerifyShares(tc, pub); err != nil {
		return err
	}

	node := tpke.NewNodeFromKeyPair(g, tpke.NodeIndices(g, kt.Index)[0], kp)
	kc, err := pub.Share(node.Index())
	if err != nil {
		return err
	}
	re, err := node.ReEncrypt(tc, kc, buyer)
	if err != nil {
		return err
	}
	count, err := store.AddReEncryption(c.Context, rec.ID, kt.Index, re)
	if err != nil {
		return err
	}
	fmt.Fprintf(output, "trade %s: re-encryption of node %d stored (%d/%d)\n",
		rec.ID, kt.Index, count, tc.Threshold())
	return nil
}

func combineCmd(c *cli.Context) error {
	store, rec, tc, err := loadTrade(c)
	if err != nil {
		return err
	}
	defer store.Close()

	stored, err := store.ReEncryptions(c.Context, rec.ID)
	if err != nil {
		return err
	}
	if len(stored) < tc.Threshold() {
		return tpke.ErrInsufficientShares.Detailf("%d re-encryptions, need %d", len(stored), tc.Threshold())
	}

	g := tc.Group()
	res := make([]*tpke.ReEncryption, tc.Threshold())
	chosen := make([]tpke.Scalar, tc.Threshold())
	for i, r := range stored[:tc.Threshold()] {
		re, err := tpke.DecodeReEncryption(g, r.Payload)
		if err != nil {
			return err
		}
		res[i], chosen[i] = re, re.Index
	}
	cc, err := tpke.Combine(tc, res, chosen)
	if err != nil {
		return err
	}
	if err := store.PutCombined(c.Context, rec.ID, cc); err != nil {
		return err
	}
	nodes := make([]string, len(chosen))
	for i, r := range stored[:tc.Threshold()] {
		nodes[i] = fmt.Sprint(r.Node)
	}
	fmt.Fprintf(output, "trade %s combined from nodes %s\n", rec.ID, strings.Join(nodes, ","))
	return nil
}

func decryptCmd(c *cli.Context) error {
	store, rec, tc, err := loadTrade(c)
	if err != nil {
		return err
	}
	defer store.Close()
	if len(rec.Combined) == 0 {
		return tpke.ErrInvalidState.Detailf("trade %s is not combined", rec.ID)
	}

	g := tc.Group()
	_, kp, err := loadKeyPair(c, g)
	if err != nil {
		return err
	}
	defer kp.Zeroize()

	pub, err := store.Publication(c.Context, tc, rec.ID)
	if err != nil {
		return err
	}
	cc, err := tpke.DecodeCombinedCiphertext(g, rec.Combined)
	if err != nil {
		return err
	}
	msg, err := tpke.DecryptBytes(tc, kp.SecretKey, cc, pub.Payload)
	if err != nil {
		return err
	}
	if c.IsSet(outFlag.Name) {
		return os.WriteFile(c.String(outFlag.Name), msg, 0o600)
	}
	_, err = output.Write(msg)
	return err
}

func statusCmd(c *cli.Context) error {
	store, err := openLedger(c)
	if err != nil {
		return err
	}
	defer store.Close()

	if c.Args().Present() {
		id := c.Args().First()
		if _, err := store.Trade(c.Context, id); err != nil {
			return fmt.Errorf("trade %s: %w", id, err)
		}
		recs, err := store.ReEncryptions(c.Context, id)
		if err != nil {
			return err
		}
		rows := make([][]string, len(recs))
		for i, r := range recs {
			rows[i] = []string{fmt.Sprint(i + 1), fmt.Sprint(r.Node), formatNanos(r.ReceivedAt)}
		}
		printTable(output, []string{"#", "Node", "Received"}, rows)
		return nil
	}

	trades, err := store.Trades(c.Context)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(trades))
	for _, rec := range trades {
		received, err := store.ReEncryptions(c.Context, rec.ID)
		if err != nil {
			return err
		}
		rows = append(rows, []string{
			rec.ID,
			rec.Stage().String(),
			rec.Group,
			fmt.Sprintf("%d/%d", rec.Threshold, rec.Total),
			fmt.Sprint(len(received)),
			formatNanos(rec.CreatedAt),
		})
	}
	printTable(output, []string{"Trade", "Stage", "Group", "t/n", "Received", "Created"}, rows)
	return nil
}

func exportCmd(c *cli.Context) error {
	id, err := tradeID(c)
	if err != nil {
		return err
	}
	store, err := openLedger(c)
	if err != nil {
		return err
	}
	defer store.Close()

	exp, err := exportTrade(c.Context, store, id)
	if err != nil {
		return err
	}
	buff, err := exp.MarshalIndent()
	if err != nil {
		return err
	}
	if c.IsSet(outFlag.Name) {
		return os.WriteFile(c.String(outFlag.Name), buff, 0o644)
	}
	_, err = fmt.Fprintln(output, string(buff))
	return err
}

func exportTrade(ctx context.Context, store *ledger.Store, id string) (*TradeExport, error) {
	rec, err := store.Trade(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("trade %s: %w", id, err)
	}
	recs, err := store.ReEncryptions(ctx, id)
	if err != nil {
		return nil, err
	}
	return newTradeExport(rec, recs), nil
}
