package main

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"strings"
	"testing"

	json "github.com/nikkolasg/hexjson"
	"github.com/stretchr/testify/require"

	"github.com/canopy-network/canopy/lib/tpke"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buff bytes.Buffer
	old := output
	output = &buff
	defer func() { output = old }()
	err := CLI().Run(append([]string{"tpke"}, args...))
	return buff.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, out)
	return out
}

func TestCLITrade(t *testing.T) {
	tmp := t.TempDir()
	folder := path.Join(tmp, "ledger")
	file := func(name string) string { return path.Join(tmp, name) }

	// three nodes and a buyer
	var committee bytes.Buffer
	for i := 1; i <= 3; i++ {
		mustRun(t, "keygen", "--index", fmt.Sprint(i),
			"--out", file(fmt.Sprintf("node%d.toml", i)),
			"--public", file(fmt.Sprintf("node%d.pub.toml", i)))
		pub, err := os.ReadFile(file(fmt.Sprintf("node%d.pub.toml", i)))
		require.NoError(t, err)
		committee.WriteString("[[Nodes]]\n")
		committee.Write(pub)
		committee.WriteString("\n")
	}
	require.NoError(t, os.WriteFile(file("committee.toml"), committee.Bytes(), 0o644))
	mustRun(t, "keygen", "--out", file("buyer.toml"), "--public", file("buyer.pub.toml"))

	msg := []byte("the answer is forty-two")
	require.NoError(t, os.WriteFile(file("msg.bin"), msg, 0o600))

	out := mustRun(t, "--folder", folder, "init", "--nodes", "3", "--threshold", "2", "--id", "trade-1")
	require.Contains(t, out, "trade trade-1 created")

	out = mustRun(t, "--folder", folder, "context", "trade-1")
	require.Contains(t, out, "ed25519")

	mustRun(t, "--folder", folder, "publish", "--committee", file("committee.toml"), "--in", file("msg.bin"), "trade-1")
	_, err := run(t, "--folder", folder, "publish", "--committee", file("committee.toml"), "--in", file("msg.bin"), "trade-1")
	require.ErrorIs(t, err, tpke.ErrInvalidState)

	// nodes cannot re-encrypt before the buyer is known
	_, err = run(t, "--folder", folder, "reencrypt", "--key", file("node1.toml"), "trade-1")
	require.ErrorIs(t, err, tpke.ErrInvalidState)

	mustRun(t, "--folder", folder, "buyer", "--buyer", file("buyer.pub.toml"), "trade-1")

	mustRun(t, "--folder", folder, "reencrypt", "--key", file("node3.toml"), "trade-1")
	_, err = run(t, "--folder", folder, "combine", "trade-1")
	require.ErrorIs(t, err, tpke.ErrInsufficientShares)

	mustRun(t, "--folder", folder, "reencrypt", "--key", file("node2.toml"), "trade-1")
	out = mustRun(t, "--folder", folder, "combine", "trade-1")
	require.Contains(t, out, "from nodes 3,2")

	// a node key cannot decrypt the payload
	_, err = run(t, "--folder", folder, "decrypt", "--key", file("node1.toml"), "trade-1")
	require.ErrorIs(t, err, tpke.ErrDecryptionFailure)

	mustRun(t, "--folder", folder, "decrypt", "--key", file("buyer.toml"), "--out", file("plain.bin"), "trade-1")
	plain, err := os.ReadFile(file("plain.bin"))
	require.NoError(t, err)
	require.Equal(t, msg, plain)

	out = mustRun(t, "--folder", folder, "status")
	require.Contains(t, out, "trade-1")
	require.Contains(t, out, tpke.StateCombined.String())

	out = mustRun(t, "--folder", folder, "status", "trade-1")
	require.Contains(t, out, "Received")
	require.Equal(t, 2, strings.Count(out, "Z"), out)

	out = mustRun(t, "--folder", folder, "export", "trade-1")
	exp := &TradeExport{}
	require.NoError(t, json.Unmarshal([]byte(out), exp))
	require.Equal(t, "trade-1", exp.ID)
	require.Len(t, exp.ReEncryptions, 2)
	require.Equal(t, uint32(3), exp.ReEncryptions[0].Node)
	require.NotEmpty(t, exp.Combined)
}

func TestCLIErrors(t *testing.T) {
	folder := t.TempDir()

	t.Run("invalid threshold", func(t *testing.T) {
		_, err := run(t, "--folder", folder, "init", "--nodes", "3", "--threshold", "4")
		require.ErrorIs(t, err, tpke.ErrInvalidParameters)
	})

	t.Run("unknown group", func(t *testing.T) {
		_, err := run(t, "keygen", "--group", "p256")
		require.Error(t, err)
	})

	t.Run("unknown trade", func(t *testing.T) {
		_, err := run(t, "--folder", folder, "context", "nope")
		require.Error(t, err)
	})

	t.Run("missing trade id", func(t *testing.T) {
		_, err := run(t, "--folder", folder, "combine")
		require.Error(t, err)
	})
}

func TestCLISimulate(t *testing.T) {
	for _, g := range tpke.SupportedGroups() {
		for _, c := range tpke.SupportedCiphers() {
			t.Run(fmt.Sprintf("%s/%s", g, c), func(t *testing.T) {
				out := mustRun(t, "simulate", "--nodes", "4", "--threshold", "3",
					"--group", string(g), "--cipher", string(c), "--size", "64")
				require.Contains(t, out, "3-of-4")
				require.Contains(t, out, "Total")
			})
		}
	}
}
