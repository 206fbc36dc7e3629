package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Mohsinsiddi/quarkcheck/internal/accept"
	"github.com/Mohsinsiddi/quarkcheck/internal/builder"
	"github.com/Mohsinsiddi/quarkcheck/internal/chain"
	"github.com/Mohsinsiddi/quarkcheck/internal/config"
	"github.com/Mohsinsiddi/quarkcheck/internal/evm"
	"github.com/Mohsinsiddi/quarkcheck/internal/rpc"
	"github.com/Mohsinsiddi/quarkcheck/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errRunFailed = errors.New("scenarios failed")

var (
	runDirs        []string
	runPick        bool
	runFailFast    bool
	runParallelism int
	runBackend     string
	runShowGot     bool
)

var runCmd = &cobra.Command{
	Use:   "run [pattern...]",
	Short: "Run scenarios against the builder",
	Long: `Run scenarios against the builder and report which ones match.
Patterns are name globs ("transfer/*"); no pattern runs everything.

Examples:
  quarkcheck run
  quarkcheck run 'bridge/*' --fail-fast
  quarkcheck run --pick
  quarkcheck run --backend rpc --dir ./my-scenarios`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tests, err := loadScenarios(runDirs...)
		if err != nil {
			return err
		}
		tests, err = accept.Select(tests, args)
		if err != nil {
			return err
		}
		if runPick {
			tests, err = pickScenario(tests)
			if err != nil || len(tests) == 0 {
				return err
			}
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), config.RunTimeout)
		defer cancel()

		backend, err := newBackend(ctx, runBackend)
		if err != nil {
			return err
		}
		dep, err := loadDeployments()
		if err != nil {
			return err
		}
		parallelism := cfg.Parallelism
		if runParallelism > 0 {
			parallelism = runParallelism
		}
		runner := accept.NewRunner(builder.NewClient(backend),
			accept.WithLogger(log),
			accept.WithDeployments(dep),
			accept.WithParallelism(parallelism),
			accept.WithFailFast(runFailFast),
		)

		var spinner *ui.Spinner
		if !verbose {
			spinner = ui.NewSpinner(fmt.Sprintf("Running %d scenario(s)…", len(tests)))
			spinner.Start()
		}
		start := time.Now()
		outcomes, err := runner.Run(ctx, tests)
		if spinner != nil {
			spinner.StopWithMsg(ui.Meta(fmt.Sprintf("Ran %d scenario(s) in %s", len(outcomes), time.Since(start).Round(time.Millisecond))))
		}
		log.Debug("run finished", zap.Int("scenarios", len(outcomes)))

		summary := report(cmd.OutOrStdout(), outcomes, runShowGot)
		if err != nil {
			return err
		}
		if !summary.OK() {
			return errRunFailed
		}
		return nil
	},
}

// newBackend builds the configured builder backend. override replaces the
// configured backend name when set. RPC endpoints are health-checked up
// front and each query goes to the one rpc_algorithm picks.
func newBackend(ctx context.Context, override string) (builder.Backend, error) {
	name := cfg.Backend
	if override != "" {
		name = override
	}
	from := common.Address{}
	if cfg.From != "" {
		if !common.IsHexAddress(cfg.From) {
			return nil, fmt.Errorf("from %q is not an address", cfg.From)
		}
		from = common.HexToAddress(cfg.From)
	}

	switch name {
	case config.BackendEVM:
		if cfg.BuilderCode == "" {
			return nil, fmt.Errorf("evm backend needs builder_code (quarkcheck config set builder_code <file>)")
		}
		sim, err := evm.LoadFile(cfg.BuilderCode, evm.WithOrigin(from), evm.WithGasLimit(cfg.GasLimit))
		if err != nil {
			return nil, err
		}
		return sim, nil
	case config.BackendRPC:
		endpoints := cfg.RPCEndpoints()
		if len(endpoints) == 0 || !common.IsHexAddress(cfg.BuilderAddress) {
			return nil, fmt.Errorf("rpc backend needs rpc_url and builder_address")
		}
		algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
		if err != nil {
			return nil, err
		}
		builderAddr := common.HexToAddress(cfg.BuilderAddress)
		pool, err := rpc.Dial(ctx, endpoints, builderAddr, algo, func(url string) builder.Backend {
			return builder.NewRPCBackend(chain.NewEVMClient(url), builderAddr, from, cfg.GasLimit)
		}, rpc.WithLogger(log))
		if err != nil {
			return nil, err
		}
		log.Debug("rpc endpoints ready", zap.Int("healthy", len(pool.Healthy())), zap.Int("configured", len(endpoints)), zap.String("algorithm", string(algo)))
		return pool, nil
	}
	return nil, fmt.Errorf("unknown backend %q", name)
}

func pickScenario(tests []accept.AcceptanceTest) ([]accept.AcceptanceTest, error) {
	items := make([]ui.PickerItem, len(tests))
	for i, t := range tests {
		items[i] = ui.PickerItem{Label: t.Name, SubLabel: t.Description, Value: t.Name}
	}
	name, err := ui.PickItem("Pick a scenario", items)
	if err != nil || name == "" {
		return nil, err
	}
	return accept.Select(tests, []string{name})
}

// report prints one line per outcome, details for the ones that did not
// pass, and the totals.
func report(w io.Writer, outcomes []accept.Outcome, showGot bool) accept.Summary {
	for _, o := range outcomes {
		fmt.Fprintln(w, ui.ResultLine(o.Status.String(), o.Name, o.Elapsed))
		switch o.Status {
		case accept.Failed:
			fmt.Fprint(w, ui.ColorDiff(o.Diff, "    "))
			if showGot {
				for i, op := range o.Got {
					fmt.Fprintf(w, "    %s\n", ui.Meta(fmt.Sprintf("got op %d on chain %d (%s) %s", i, op.ChainID, op.Account, op.Payment)))
					for _, c := range op.Calls {
						fmt.Fprintf(w, "      %s\n", c)
					}
				}
			}
		case accept.Errored:
			if o.Err != nil {
				fmt.Fprintf(w, "    %s\n", ui.Err(o.Err.Error()))
			}
		}
	}
	s := accept.Summarize(outcomes)
	fmt.Fprintln(w)
	fmt.Fprintln(w, ui.SummaryLine(s.Passed, s.Failed, s.Errored, s.Skipped))
	return s
}

func init() {
	runCmd.Flags().StringSliceVar(&runDirs, "dir", nil, "extra scenario directory (repeatable)")
	runCmd.Flags().BoolVar(&runPick, "pick", false, "pick one scenario interactively")
	runCmd.Flags().BoolVar(&runFailFast, "fail-fast", false, "stop after the first failure")
	runCmd.Flags().IntVarP(&runParallelism, "parallelism", "p", 0, "concurrent scenarios (default: config parallelism)")
	runCmd.Flags().StringVar(&runBackend, "backend", "", "override the configured backend (evm|rpc)")
	runCmd.Flags().BoolVar(&runShowGot, "show-got", true, "print decoded operations of failing scenarios")
}
