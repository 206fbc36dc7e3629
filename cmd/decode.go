package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/quarkcheck/internal/call"
	"github.com/Mohsinsiddi/quarkcheck/internal/ui"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

var (
	decodeTo   string
	decodeTree bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode <calldata>",
	Short: "Decode quark script calldata into a readable call",
	Long: `Decode raw script calldata (hex) into the canonical call form used by
scenarios. Multicall sub-calls and Paycall/Quotecall wrapped calls are
decoded recursively. No RPC call needed.

Paycall/Quotecall and the two Comet multi-asset scripts share selectors;
pass --to (a script name or address) to tell them apart.

Examples:
  quarkcheck decode 0x...
  quarkcheck decode --to Quotecall 0x...
  quarkcheck decode --tree 0x...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := parseHex(args[0])
		if err != nil {
			return err
		}
		dep, err := loadDeployments()
		if err != nil {
			return err
		}
		to, err := resolveTarget(dep, decodeTo)
		if err != nil {
			return err
		}

		c, err := call.NewDecoder(dep, nil).Decode(to, data)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if decodeTree {
			fmt.Fprint(out, ui.CallTree(c.Tree()))
			return nil
		}

		pairs := [][2]string{
			{"Selector", ui.Addr(hexutil.Encode(c.Selector[:]))},
		}
		if !c.Known() {
			pairs = append(pairs, [2]string{"Call", ui.Warn("unknown selector")})
			fmt.Fprintln(out, ui.KeyValueBlock("Decoded Calldata", pairs))
			return nil
		}
		pairs = append(pairs, [2]string{"Script", ui.ChainName(c.Script)})
		if err := c.DecodeErr(); err != nil {
			pairs = append(pairs, [2]string{"Inner", ui.Err(err.Error())})
		}
		payment, calls := call.Unwrap(c)
		if payment != nil {
			pairs = append(pairs, [2]string{"Payment", payment.String()})
		}
		for i, s := range call.Strings(calls) {
			pairs = append(pairs, [2]string{fmt.Sprintf("Call[%d]", i), s})
		}
		if len(calls) == 0 {
			pairs = append(pairs, [2]string{"Call", c.String()})
		}
		fmt.Fprintln(out, ui.KeyValueBlock("Decoded Calldata", pairs))
		return nil
	},
}

func init() {
	decodeCmd.Flags().StringVar(&decodeTo, "to", "", "call target: script name or address")
	decodeCmd.Flags().BoolVar(&decodeTree, "tree", false, "print the nested call tree")
}
