package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mohsinsiddi/quarkcheck/internal/config"
	deploysync "github.com/Mohsinsiddi/quarkcheck/internal/sync"
	"github.com/Mohsinsiddi/quarkcheck/internal/ui"
	"github.com/spf13/cobra"
)

var syncWatch time.Duration

var syncCmd = &cobra.Command{
	Use:   "sync [url or file]",
	Short: "Pull script deployment addresses from a manifest",
	Long: `Pull code_jar and per-script deployment addresses from a JSON or YAML
manifest into the config. Without an argument the configured sync_source
is used.

Manifest:
  {"code_jar": "0x...", "contracts": {"TransferActions": {"address": "0x..."}}}

Examples:
  quarkcheck sync https://example.org/quark/deployments.json
  quarkcheck sync ./deployments.yaml
  quarkcheck sync --watch 10m`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := ""
		if len(args) == 1 {
			source = args[0]
		}
		s := deploysync.New(cfg, log)
		out := cmd.OutOrStdout()

		if syncWatch > 0 {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			fmt.Fprintln(out, ui.Info(fmt.Sprintf("Watching every %s (Ctrl+C to stop)", syncWatch)))
			return s.Watch(ctx, source, syncWatch, func(changes []deploysync.Change) {
				printChanges(out, changes)
			})
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), config.QueryTimeout)
		defer cancel()
		changes, err := s.Run(ctx, source)
		if err != nil {
			return err
		}
		printChanges(out, changes)
		return nil
	},
}

func printChanges(w io.Writer, changes []deploysync.Change) {
	if len(changes) == 0 {
		fmt.Fprintln(w, ui.Success("Deployments already up to date"))
		return
	}
	pairs := make([][2]string, 0, len(changes))
	for _, c := range changes {
		old := c.Old
		if old == "" {
			old = "(derived)"
		}
		pairs = append(pairs, [2]string{c.Key, ui.Meta(old) + " → " + ui.Addr(c.New)})
	}
	fmt.Fprintln(w, ui.KeyValueBlock(fmt.Sprintf("Synced %d setting(s)", len(changes)), pairs))
}

func init() {
	syncCmd.Flags().DurationVar(&syncWatch, "watch", 0, "keep syncing at this interval")
}
