package cmd

import (
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/quarkcheck/internal/scripts"
	"github.com/Mohsinsiddi/quarkcheck/internal/ui"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

var scriptsMethods bool

var scriptsCmd = &cobra.Command{
	Use:   "scripts",
	Short: "List known quark scripts and their addresses",
	Long: `List the quark scripts the decoder understands, with the address each is
deployed at (derived from code_jar unless overridden under deployments).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dep, err := loadDeployments()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		tbl := ui.NewTable([]ui.Column{{Title: "Script"}, {Title: "Address"}, {Title: "Description"}})
		for _, s := range scripts.All() {
			addr := dep.MustAddress(s.Name).Hex()
			if _, ok := cfg.Deployments[s.Name]; ok {
				addr += " *"
			}
			tbl.AddRow(ui.Row{s.Name, addr, s.Description})
		}
		fmt.Fprint(out, tbl.Render())
		if len(cfg.Deployments) > 0 {
			fmt.Fprintln(out, ui.Meta("* overridden in config"))
		}

		if !scriptsMethods {
			return nil
		}
		fmt.Fprintln(out)
		methods := ui.NewTable([]ui.Column{{Title: "Selector"}, {Title: "Method"}})
		for _, s := range scripts.All() {
			for _, m := range s.Methods() {
				methods.AddRow(ui.Row{hexutil.Encode(m.ID), s.Name + "." + m.Sig})
			}
		}
		fmt.Fprint(out, methods.Render())
		shared := sharedSelectors()
		if len(shared) > 0 {
			fmt.Fprintln(out, ui.Hint("shared selectors are told apart by target address: "+strings.Join(shared, "; ")))
		}
		return nil
	},
}

// sharedSelectors lists selectors used by more than one script.
func sharedSelectors() []string {
	seen := map[[4]byte]bool{}
	var out []string
	for _, s := range scripts.All() {
		for _, m := range s.Methods() {
			var sel [4]byte
			copy(sel[:], m.ID)
			if seen[sel] {
				continue
			}
			seen[sel] = true
			matches := scripts.Lookup(sel)
			if len(matches) < 2 {
				continue
			}
			names := make([]string, len(matches))
			for i, match := range matches {
				names[i] = match.Script.Name
			}
			out = append(out, hexutil.Encode(sel[:])+" "+strings.Join(names, "/"))
		}
	}
	return out
}

func init() {
	scriptsCmd.Flags().BoolVar(&scriptsMethods, "methods", false, "also list every method selector")
}
