package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/Mohsinsiddi/quarkcheck/internal/config"
	"github.com/Mohsinsiddi/quarkcheck/internal/ui"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"show"},
	Short:   "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprint(out, ui.Banner(Version))
		fmt.Fprintf(out, "%s\n\n", ui.StyleTitle.Render("Current Configuration"))
		fmt.Fprintln(out, string(data))
		fmt.Fprintln(out, ui.Meta("Config directory: "+cfg.Dir()))
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List settable keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, k := range config.Keys() {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Meta("deployments.<Script> overrides a script address"))
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := cfg.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Long: `Change one setting and save the config file.

Examples:
  quarkcheck config set backend rpc
  quarkcheck config set rpc_url http://localhost:8545
  quarkcheck config set deployments.TransferActions 0x...
  quarkcheck config set deployments.TransferActions ""   # drop the override`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("%s set to %q", args[0], args[1])))
		return nil
	},
}

var configAddDirCmd = &cobra.Command{
	Use:   "add-dir <dir>",
	Short: "Register a scenario directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		if err := cfg.AddScenarioDir(dir); err != nil {
			// Already registered; not fatal.
			fmt.Fprintln(cmd.OutOrStdout(), ui.Warn(err.Error()))
			return nil
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Added scenario dir "+dir))
		return nil
	},
}

var configRemoveDirCmd = &cobra.Command{
	Use:   "remove-dir <dir>",
	Short: "Unregister a scenario directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		if abs, err := filepath.Abs(dir); err == nil && cfg.RemoveScenarioDir(abs) == nil {
			dir = abs
		} else if err := cfg.RemoveScenarioDir(dir); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Removed scenario dir "+dir))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configListCmd, configKeysCmd, configGetCmd, configSetCmd, configAddDirCmd, configRemoveDirCmd)
}
