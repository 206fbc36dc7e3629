package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/quarkcheck/internal/chain"
	"github.com/Mohsinsiddi/quarkcheck/internal/config"
	"github.com/Mohsinsiddi/quarkcheck/internal/rpc"
	"github.com/Mohsinsiddi/quarkcheck/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping [url...]",
	Short: "Probe RPC endpoints for the builder",
	Long: `Probe RPC endpoints (the configured rpc_url and rpc_fallbacks unless
URLs are given) for latency, head block and builder code, and show which
one a run would use.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		urls := args
		if len(urls) == 0 {
			urls = cfg.RPCEndpoints()
		}
		if len(urls) == 0 {
			return fmt.Errorf("no endpoints: pass URLs or set rpc_url")
		}
		var builderAddr common.Address
		if common.IsHexAddress(cfg.BuilderAddress) {
			builderAddr = common.HexToAddress(cfg.BuilderAddress)
		}
		algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), config.QueryTimeout)
		defer cancel()

		spinner := ui.NewSpinner(fmt.Sprintf("Probing %d endpoint(s)…", len(urls)))
		spinner.Start()
		start := time.Now()
		results := rpc.Benchmark(ctx, urls, builderAddr)
		spinner.StopWithMsg(ui.Meta(fmt.Sprintf("Probed %d endpoint(s) in %s", len(urls), time.Since(start).Round(time.Millisecond))))

		reg := chain.NewRegistry()
		tbl := ui.NewTable([]ui.Column{{Title: "Endpoint"}, {Title: "Chain"}, {Title: "Block"}, {Title: "Latency"}, {Title: "Builder"}, {Title: "Status"}})
		for _, r := range results {
			if r.Err != nil {
				tbl.AddRow(ui.Row{r.URL, "-", "-", "-", "-", ui.Err(r.Err.Error())})
				continue
			}
			name := fmt.Sprint(r.ChainID)
			if c, err := reg.GetByChainID(r.ChainID); err == nil {
				name = c.Name
			}
			status := ui.Success("ok")
			if !r.Healthy {
				status = ui.Warn("unusable")
			}
			tbl.AddRow(ui.Row{r.URL, name, fmt.Sprint(r.BlockNumber), r.Latency.Round(100*time.Microsecond).String(), builderColumn(builderAddr, r.Endpoint), status})
		}
		out := cmd.OutOrStdout()
		fmt.Fprint(out, tbl.Render())

		winner, err := rpc.NewPicker(algo).Pick(rpc.ResultsToEndpoints(results))
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Hint(fmt.Sprintf("%s picks %s", algo, winner.URL)))
		return nil
	},
}

func builderColumn(addr common.Address, ep rpc.Endpoint) string {
	switch {
	case addr == (common.Address{}):
		return ui.Meta("not configured")
	case ep.HasBuilder:
		return ui.Success("deployed at " + ui.TruncateAddr(addr.Hex()))
	}
	return ui.Err("no code at " + ui.TruncateAddr(addr.Hex()))
}
