package cmd

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finalitylab/grandpa-node/utils/unittest"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestParseDelta(t *testing.T) {
	delta, err := parseDelta([]string{"0x01=0xaa", "02=", "0x0304=0xbeef"})
	require.NoError(t, err)
	require.Len(t, delta, 3)
	assert.Equal(t, []byte{0x01}, delta[0].Key)
	assert.Equal(t, []byte{0xaa}, delta[0].Value)
	assert.Empty(t, delta[1].Value)
	assert.Equal(t, []byte{0xbe, 0xef}, delta[2].Value)

	_, err = parseDelta([]string{"0x01"})
	require.Error(t, err)
	_, err = parseDelta([]string{"=0x01"})
	require.Error(t, err)
}

func TestParseVoters(t *testing.T) {
	keys := unittest.VoterKeyFixtures(t, 2)
	voters, err := parseVoters([]string{"0x" + keys[0].ID.String(), keys[1].ID.String()})
	require.NoError(t, err)
	assert.Equal(t, 2, voters.Len())
	assert.True(t, voters.Contains(keys[0].ID))

	_, err = parseVoters([]string{"0x0102"})
	require.Error(t, err)
	_, err = parseVoters(nil)
	require.Error(t, err)
}

func TestKeyFile(t *testing.T) {
	unittest.RunWithTempDir(t, func(dir string) {
		path := filepath.Join(dir, "node.key")
		out, err := execute(t, "keygen", "--out", path)
		require.NoError(t, err)
		assert.Contains(t, out, "authority id")

		key, err := readKey(path)
		require.NoError(t, err)
		assert.NotNil(t, key)
	})
}

// TestProveAndCheck writes state, proves a key and checks the proof, all
// through the command line.
func TestProveAndCheck(t *testing.T) {
	unittest.RunWithTempDir(t, func(dir string) {
		root, err := execute(t, "write-state", "--datadir", dir, "0x01=0xaa", "0x0203=0xbb")
		require.NoError(t, err)

		root, err = execute(t, "write-state", "--datadir", dir, "--root", root, "0x0405=0xcc")
		require.NoError(t, err)

		proof, err := execute(t, "prove", "--datadir", dir, "--root", root, "0x01", "0x0405")
		require.NoError(t, err)

		out, err := execute(t, "check-proof", "--root", root, "--proof", proof, "0x01", "0x0405")
		require.NoError(t, err)
		assert.Equal(t, "01: aa\n0405: cc", out)

		// the proof does not contain the root of another state
		_, err = execute(t, "check-proof", "--root", "0x"+strings.Repeat("11", 32), "--proof", proof, "0x01")
		require.Error(t, err)
	})
}
