package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/finalitylab/grandpa-node/consensus/grandpa/communication"
	"github.com/finalitylab/grandpa-node/model/finality"
	"github.com/finalitylab/grandpa-node/module/irrecoverable"
	"github.com/finalitylab/grandpa-node/module/metrics"
	cborcodec "github.com/finalitylab/grandpa-node/network/codec/cbor"
	"github.com/finalitylab/grandpa-node/network/p2p"
	bstorage "github.com/finalitylab/grandpa-node/storage/badger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Join the finality gossip of an authority set",
	Long: `Run a node that joins the gossip of one round and the commit stream of an
authority set. Votes and commits received from peers are verified and logged.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runNode(ctx)
	},
}

func init() {
	addNetworkFlags(runCmd.Flags())
	addVoterFlags(runCmd.Flags())
	runCmd.Flags().Uint("metrics-port", 9615, "port of the prometheus metrics endpoint")
	rootCmd.AddCommand(runCmd)
}

func addNetworkFlags(flags *pflag.FlagSet) {
	defaults := p2p.DefaultConfig()
	flags.StringSlice("listen", defaults.ListenAddresses, "multiaddrs to listen on")
	flags.StringSlice("bootstrap", nil, "multiaddrs of peers to connect to, including /p2p/<peer id>")
	flags.Int("max-message-size", defaults.MaxMessageSize, "maximum size of a network message in bytes")
	flags.Uint64("bootstrap-retries", defaults.BootstrapRetries, "connection retries per bootstrap peer")
	flags.Float64("direct-message-rate", float64(defaults.DirectMessageRate), "direct messages per second accepted from one peer")
	flags.Int("direct-message-burst", defaults.DirectMessageBurst, "direct messages one peer may send at once")
}

func addVoterFlags(flags *pflag.FlagSet) {
	flags.String("key", "node.key", "path of the node key file, see keygen")
	flags.StringSlice("voters", nil, "hex authority ids of the voter set")
	flags.Uint64("set-id", 0, "authority set id")
	flags.Uint64("round", 1, "round to join")
}

func runNode(ctx context.Context) error {
	key, err := readKey(viper.GetString("key"))
	if err != nil {
		return err
	}
	local, err := communication.NewLocalVoter(key)
	if err != nil {
		return err
	}
	voters, err := parseVoters(viper.GetStringSlice("voters"))
	if err != nil {
		return fmt.Errorf("invalid voter set: %w", err)
	}
	setID := finality.SetID(viper.GetUint64("set-id"))
	round := finality.Round(viper.GetUint64("round"))

	db, err := bstorage.InitDB(dbDir())
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("could not close database")
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	networkMetrics := metrics.NewNetworkCollector(registry)
	finalityMetrics := metrics.NewFinalityCollector(registry)

	signalerCtx, cancel, errCh := irrecoverable.WithSignallerAndCancel(ctx)
	defer cancel()

	cfg := p2p.DefaultConfig()
	cfg.ListenAddresses = viper.GetStringSlice("listen")
	cfg.BootstrapPeers = viper.GetStringSlice("bootstrap")
	cfg.MaxMessageSize = viper.GetInt("max-message-size")
	cfg.BootstrapRetries = viper.GetUint64("bootstrap-retries")
	cfg.DirectMessageRate = rate.Limit(viper.GetFloat64("direct-message-rate"))
	cfg.DirectMessageBurst = viper.GetInt("direct-message-burst")

	node, err := p2p.NewNode(signalerCtx, log, cfg, key, networkMetrics)
	if err != nil {
		return err
	}
	defer func() {
		if err := node.Stop(); err != nil {
			log.Error().Err(err).Msg("could not stop p2p node")
		}
	}()
	for _, addr := range node.Addrs() {
		log.Info().Str("address", addr.String()).Msg("listening")
	}

	bridge, err := communication.NewNetworkBridge(log, node, cborcodec.NewCodec(),
		communication.WithVoterStates(bstorage.NewVoterStates(db)),
		communication.WithMetrics(finalityMetrics),
	)
	if err != nil {
		return err
	}
	defer bridge.Close()

	hasVoted, err := bridge.RestoreHasVoted(setID, round)
	if err != nil {
		return err
	}
	votes, _, err := bridge.RoundCommunication(communication.RoundParams{
		Round:    round,
		SetID:    setID,
		Voters:   voters,
		Local:    local,
		HasVoted: hasVoted,
	})
	if err != nil {
		return err
	}
	defer votes.Close()

	commits, _, err := bridge.GlobalCommunication(setID, voters, voters.Contains(local.ID))
	if err != nil {
		return err
	}
	defer commits.Close()

	log.Info().
		Uint64("set_id", uint64(setID)).
		Uint64("round", uint64(round)).
		Str("voter", local.ID.String()).
		Bool("is_voter", voters.Contains(local.ID)).
		Str("has_voted", hasVoted.String()).
		Msg("node started")

	g, gCtx := errgroup.WithContext(signalerCtx)
	g.Go(func() error {
		return metrics.NewServer(log, viper.GetUint("metrics-port"), registry).Run(gCtx)
	})
	g.Go(func() error {
		select {
		case err, ok := <-errCh:
			if ok {
				return fmt.Errorf("unrecoverable error: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})
	g.Go(func() error {
		for {
			select {
			case <-gCtx.Done():
				return nil
			case vote, ok := <-votes.Messages():
				if !ok {
					return nil
				}
				log.Info().
					Str("kind", vote.Message.Kind.String()).
					Str("voter", vote.ID.TerminalString()).
					Str("target_hash", vote.Message.TargetHash.Hex()).
					Uint64("target_number", vote.Message.TargetNumber).
					Msg("vote")
			case commit, ok := <-commits.Commits():
				if !ok {
					return nil
				}
				log.Info().
					Uint64("round", uint64(commit.Round)).
					Str("target_hash", commit.Commit.TargetHash.Hex()).
					Uint64("target_number", commit.Commit.TargetNumber).
					Int("precommits", len(commit.Commit.Precommits)).
					Msg("commit")
				bridge.NoteCommitFinalized(commit.Commit.TargetNumber)
			}
		}
	})

	err = g.Wait()
	log.Info().Msg("node stopped")
	return err
}
