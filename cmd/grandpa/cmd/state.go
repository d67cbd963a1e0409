package cmd

import (
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/finalitylab/grandpa-node/module/metrics"
	"github.com/finalitylab/grandpa-node/state/trie"
	bstorage "github.com/finalitylab/grandpa-node/storage/badger"
)

var writeStateCmd = &cobra.Command{
	Use:   "write-state key=value...",
	Short: "Apply key/value changes to a state root and store the new trie nodes",
	Long: `Apply hex encoded key=value changes to the trie with the given root and
persist the resulting nodes. An empty value deletes the key. Prints the new root.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		delta, err := parseDelta(args)
		if err != nil {
			return err
		}
		root, err := parseRoot(viper.GetString("root"))
		if err != nil {
			return err
		}

		return withTrieNodes(func(nodes *bstorage.TrieNodes) error {
			backend := trie.NewBackend(log, nodes, root)
			newRoot, overlay, err := backend.StorageRoot(delta)
			if err != nil {
				return fmt.Errorf("could not apply changes: %w", err)
			}
			err = nodes.Commit(overlay)
			if err != nil {
				return fmt.Errorf("could not store trie nodes: %w", err)
			}
			log.Info().Str("root", newRoot.Hex()).Int("changes", len(delta)).Msg("state written")
			fmt.Fprintln(cmd.OutOrStdout(), newRoot.Hex())
			return nil
		})
	},
}

func init() {
	writeStateCmd.Flags().String("root", types.EmptyRootHash.Hex(), "state root the changes apply to")
	rootCmd.AddCommand(writeStateCmd)
}

func withTrieNodes(f func(nodes *bstorage.TrieNodes) error) error {
	db, err := bstorage.InitDB(dbDir())
	if err != nil {
		return err
	}
	defer func(db *badger.DB) {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("could not close database")
		}
	}(db)

	nodes, err := bstorage.NewTrieNodes(metrics.NewNoopCollector(), db, bstorage.DefaultTrieNodeCacheSize)
	if err != nil {
		return err
	}
	return f(nodes)
}

func parseRoot(s string) (common.Hash, error) {
	raw := common.FromHex(s)
	if len(raw) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid state root %q", s)
	}
	return common.BytesToHash(raw), nil
}

func parseKeys(args []string) [][]byte {
	keys := make([][]byte, 0, len(args))
	for _, arg := range args {
		keys = append(keys, common.FromHex(arg))
	}
	return keys
}

func parseDelta(args []string) ([]trie.KeyValue, error) {
	delta := make([]trie.KeyValue, 0, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid change %q, expected key=value", arg)
		}
		delta = append(delta, trie.KeyValue{Key: common.FromHex(key), Value: common.FromHex(value)})
	}
	return delta, nil
}
