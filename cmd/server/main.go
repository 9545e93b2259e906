package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dalgona/diary/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dalgona",
		Short:         "Dalgona diary API server and tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "path to a YAML config file")

	keys := &cobra.Command{
		Use:   "keys",
		Short: "Manage JWT signing keys",
	}
	keys.AddCommand(newKeysGenerateCmd())

	root.AddCommand(newServeCmd(), keys, newTokenCmd())
	return root
}

// loadViper prepares the config layers for a command: defaults, the
// optional --config file, environment, then any flags the user set.
// bindings maps flag names to config keys.
func loadViper(cmd *cobra.Command, bindings map[string]string) (*viper.Viper, error) {
	v := config.New()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	for name, key := range bindings {
		if err := bindFlag(v, cmd.Flags(), name, key); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func bindFlag(v *viper.Viper, flags *pflag.FlagSet, name, key string) error {
	f := flags.Lookup(name)
	if f == nil {
		return fmt.Errorf("unknown flag %q", name)
	}
	if err := v.BindPFlag(key, f); err != nil {
		return fmt.Errorf("bind flag %s: %w", name, err)
	}
	return nil
}
