package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/libp2p/go-libp2p/core/crypto"

	"github.com/finalitylab/grandpa-node/model/finality"
)

func readKey(path string) (crypto.PrivKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read key file: %w", err)
	}
	raw, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("could not decode key file: %w", err)
	}
	key, err := crypto.UnmarshalPrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("could not unmarshal key: %w", err)
	}
	return key, nil
}

func writeKey(path string, key crypto.PrivKey) error {
	raw, err := crypto.MarshalPrivateKey(key)
	if err != nil {
		return fmt.Errorf("could not marshal key: %w", err)
	}
	return os.WriteFile(path, []byte(hex.EncodeToString(raw)+"\n"), 0600)
}

func parseAuthorityID(s string) (finality.AuthorityID, error) {
	var id finality.AuthorityID
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return id, fmt.Errorf("invalid authority id %q: %w", s, err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("invalid authority id %q: expected %d bytes, got %d", s, len(id), len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

func parseVoters(ids []string) (*finality.VoterSet, error) {
	authorities := make([]finality.AuthorityID, 0, len(ids))
	for _, s := range ids {
		id, err := parseAuthorityID(s)
		if err != nil {
			return nil, err
		}
		authorities = append(authorities, id)
	}
	return finality.NewEqualWeightVoterSet(authorities)
}
