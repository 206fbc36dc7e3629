package cmd

import (
	"fmt"
	"os"

	"github.com/Mohsinsiddi/quarkcheck/internal/config"
	"github.com/Mohsinsiddi/quarkcheck/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/quarkcheck/cmd.Version=1.2.3" .
var Version = "0.3.0"

var (
	cfgDir  string
	cfg     *config.Config
	log     *zap.Logger
	verbose bool
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "quarkcheck",
	Short: "Acceptance harness for the QuarkBuilder",
	Long: `quarkcheck runs declarative given/when/expect scenarios against a
QuarkBuilder and decodes the quark operations it returns into readable
script calls.

The builder runs either in an in-process EVM (backend "evm", from the
runtime bytecode in builder_code) or on a node via eth_call (backend
"rpc"). Persist settings with: quarkcheck config set <key> <value>`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config (skip for commands that don't need it).
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		log, err = logger.New(level)
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errLine(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "config directory (default: $"+config.EnvDir+" or ~/.quarkcheck)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	// Register all sub-commands.
	rootCmd.AddCommand(
		decodeCmd,
		selectorCmd,
		multicallCmd,
		scriptsCmd,
		scenariosCmd,
		runCmd,
		pingCmd,
		syncCmd,
		configCmd,
	)
}
