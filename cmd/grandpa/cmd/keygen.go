package cmd

import (
	"crypto/rand"
	"fmt"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/finalitylab/grandpa-node/model/finality"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an Ed25519 key used both as voter and as network identity",
	RunE: func(cmd *cobra.Command, _ []string) error {
		key, _, err := crypto.GenerateEd25519Key(rand.Reader)
		if err != nil {
			return fmt.Errorf("could not generate key: %w", err)
		}
		path := viper.GetString("out")
		err = writeKey(path, key)
		if err != nil {
			return err
		}

		id, err := finality.AuthorityIDFromPublicKey(key.GetPublic())
		if err != nil {
			return err
		}
		peerID, err := peer.IDFromPrivateKey(key)
		if err != nil {
			return fmt.Errorf("could not derive peer id: %w", err)
		}

		log.Info().Str("path", path).Msg("wrote key file")
		fmt.Fprintf(cmd.OutOrStdout(), "authority id: %s\npeer id:      %s\n", id, peerID)
		return nil
	},
}

func init() {
	keygenCmd.Flags().String("out", "node.key", "path of the key file to write")
	rootCmd.AddCommand(keygenCmd)
}
