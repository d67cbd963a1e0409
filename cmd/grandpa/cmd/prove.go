package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/finalitylab/grandpa-node/state/trie"
	"github.com/finalitylab/grandpa-node/state/trie/proving"
	bstorage "github.com/finalitylab/grandpa-node/storage/badger"
)

var proveCmd = &cobra.Command{
	Use:   "prove key...",
	Short: "Print a storage proof for hex encoded keys",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := parseRoot(viper.GetString("root"))
		if err != nil {
			return err
		}
		keys := parseKeys(args)

		return withTrieNodes(func(nodes *bstorage.TrieNodes) error {
			backend := trie.NewBackend(log, nodes, root)

			var proof trie.StorageProof
			if child := viper.GetString("child"); child != "" {
				proof, err = proving.ProveChildRead(backend, trie.NewDefaultChildInfo(common.FromHex(child)), keys)
			} else {
				proof, err = proving.ProveRead(backend, keys)
			}
			if err != nil {
				return fmt.Errorf("could not create proof: %w", err)
			}

			data, err := proof.Encode()
			if err != nil {
				return err
			}
			log.Info().
				Str("root", root.Hex()).
				Int("keys", len(keys)).
				Int("nodes", proof.Len()).
				Msg("proof created")
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(data))
			return nil
		})
	},
}

func init() {
	proveCmd.Flags().String("root", "", "state root to prove against")
	proveCmd.Flags().String("child", "", "hex storage key of the child trie to read from")
	_ = proveCmd.MarkFlagRequired("root")
	rootCmd.AddCommand(proveCmd)
}
