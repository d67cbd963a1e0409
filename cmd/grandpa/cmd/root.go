package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "GRANDPA"

var log zerolog.Logger

var rootCmd = &cobra.Command{
	Use:   "grandpa",
	Short: "Finality gossip node and storage proof tool",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		err := viper.BindPFlags(cmd.Flags())
		if err != nil {
			return fmt.Errorf("could not bind flags: %w", err)
		}
		return initLogger()
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("datadir", "data", "directory holding the node database")
	rootCmd.PersistentFlags().String("loglevel", "info", "log level (trace, debug, info, warn, error)")

	log = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

	cobra.OnInitialize(initConfig)
}

// initConfig lets every flag be set from the environment, e.g. --max-message-size
// from GRANDPA_MAX_MESSAGE_SIZE.
func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func initLogger() error {
	level, err := zerolog.ParseLevel(strings.ToLower(viper.GetString("loglevel")))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log = log.Level(level)
	return nil
}

func dbDir() string {
	return filepath.Join(viper.GetString("datadir"), "db")
}
