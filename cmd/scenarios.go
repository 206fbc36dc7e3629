package cmd

import (
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/quarkcheck/internal/accept"
	"github.com/Mohsinsiddi/quarkcheck/internal/builder"
	"github.com/Mohsinsiddi/quarkcheck/internal/chain"
	"github.com/Mohsinsiddi/quarkcheck/internal/ui"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	scenariosDirs  []string
	scenariosQuery bool
)

var scenariosCmd = &cobra.Command{
	Use:     "scenarios",
	Aliases: []string{"sc"},
	Short:   "Browse the scenario corpus",
}

var scenariosListCmd = &cobra.Command{
	Use:   "list [pattern...]",
	Short: "List scenarios (optionally filtered by name glob)",
	RunE: func(cmd *cobra.Command, args []string) error {
		tests, err := loadScenarios(scenariosDirs...)
		if err != nil {
			return err
		}
		tests, err = accept.Select(tests, args)
		if err != nil {
			return err
		}

		tbl := ui.NewTable([]ui.Column{{Title: "Name"}, {Title: "Intent"}, {Title: "Expect"}, {Title: "Source"}})
		for _, t := range tests {
			tbl.AddRow(ui.Row{t.Name, t.When.Kind(), expectSummary(t.Expect), t.Source})
		}
		fmt.Fprint(cmd.OutOrStdout(), tbl.Render())
		fmt.Fprintln(cmd.OutOrStdout(), ui.Meta(fmt.Sprintf("%d scenario(s)", len(tests))))
		return nil
	},
}

var scenariosShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a scenario and the accounts it resolves to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tests, err := loadScenarios(scenariosDirs...)
		if err != nil {
			return err
		}
		tests, err = accept.Select(tests, args)
		if err != nil {
			return err
		}
		t := tests[0]

		dep, err := loadDeployments()
		if err != nil {
			return err
		}
		env, err := accept.NewEnvironment(&t, chain.NewRegistry(), dep)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		pairs := [][2]string{
			{"Name", t.Name},
			{"Source", t.Source},
			{"Intent", t.When.Kind() + " → builder." + env.Intent.Method()},
			{"Expect", expectSummary(t.Expect)},
		}
		if t.Description != "" {
			pairs = append(pairs, [2]string{"Description", t.Description})
		}
		fmt.Fprintln(out, ui.KeyValueBlock("Scenario", pairs))

		body, err := yaml.Marshal(t)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(body))

		var names [][2]string
		for _, e := range env.Book.Entries() {
			names = append(names, [2]string{e[0], ui.Addr(e[1])})
		}
		fmt.Fprintln(out, ui.KeyValueBlock("Address Book", names))

		if scenariosQuery {
			query, err := builder.EncodeQuery(env.Intent, env.Accounts, env.Payment)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, ui.StyleTitle.Render("Builder Query"))
			fmt.Fprintln(out, hexutil.Encode(query))
		}
		return nil
	},
}

func expectSummary(e accept.Expect) string {
	if e.Revert != "" {
		return "revert " + e.Revert
	}
	calls := 0
	for _, op := range e.Operations {
		calls += len(op.Calls)
	}
	s := fmt.Sprintf("%d op(s), %d call(s)", len(e.Operations), calls)
	if len(e.Actions) > 0 {
		s += " [" + strings.Join(e.Actions, ", ") + "]"
	}
	return s
}

func init() {
	scenariosCmd.PersistentFlags().StringSliceVar(&scenariosDirs, "dir", nil, "extra scenario directory (repeatable)")
	scenariosShowCmd.Flags().BoolVar(&scenariosQuery, "query", false, "print the encoded builder query")
	scenariosCmd.AddCommand(scenariosListCmd, scenariosShowCmd)
}
