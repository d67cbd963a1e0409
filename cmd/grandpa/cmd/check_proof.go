package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/finalitylab/grandpa-node/state/trie"
	"github.com/finalitylab/grandpa-node/state/trie/proving"
)

var checkProofCmd = &cobra.Command{
	Use:   "check-proof key...",
	Short: "Verify a storage proof and print the proven values",
	Long: `Verify a hex encoded storage proof against a state root and print the value of
each key. Keys the proof does not cover make the command fail.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := parseRoot(viper.GetString("root"))
		if err != nil {
			return err
		}
		proof, err := readProof(viper.GetString("proof"))
		if err != nil {
			return err
		}
		keys := parseKeys(args)

		var values map[string][]byte
		if child := viper.GetString("child"); child != "" {
			info := trie.NewDefaultChildInfo(common.FromHex(child))
			values, err = proving.ReadChildProofCheck(log, root, proof, info, keys)
		} else {
			values, err = proving.ReadProofCheck(log, root, proof, keys)
		}
		if err != nil {
			return fmt.Errorf("proof check failed: %w", err)
		}

		out := cmd.OutOrStdout()
		for _, key := range keys {
			value := values[string(key)]
			if value == nil {
				fmt.Fprintf(out, "%x: <none>\n", key)
				continue
			}
			fmt.Fprintf(out, "%x: %x\n", key, value)
		}
		return nil
	},
}

func init() {
	checkProofCmd.Flags().String("root", "", "state root the proof was created against")
	checkProofCmd.Flags().String("proof", "", "hex encoded proof, or @path to read it from a file")
	checkProofCmd.Flags().String("child", "", "hex storage key of the child trie to read from")
	_ = checkProofCmd.MarkFlagRequired("root")
	_ = checkProofCmd.MarkFlagRequired("proof")
	rootCmd.AddCommand(checkProofCmd)
}

func readProof(arg string) (trie.StorageProof, error) {
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return trie.StorageProof{}, fmt.Errorf("could not read proof file: %w", err)
		}
		arg = string(data)
	}
	data, err := hex.DecodeString(strings.TrimSpace(arg))
	if err != nil {
		return trie.StorageProof{}, fmt.Errorf("could not decode proof: %w", err)
	}
	return trie.DecodeStorageProof(data)
}
