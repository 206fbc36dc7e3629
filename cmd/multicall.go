package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/quarkcheck/internal/call"
	"github.com/Mohsinsiddi/quarkcheck/internal/multicall"
	"github.com/Mohsinsiddi/quarkcheck/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

var multicallCmd = &cobra.Command{
	Use:   "multicall",
	Short: "Encode and decode Multicall.run calldata and reverts",
}

var multicallEncodeCmd = &cobra.Command{
	Use:   "encode <target>:<calldata>...",
	Short: "Batch calls into Multicall.run calldata",
	Long: `Batch calls into Multicall.run calldata. Each target is a script name or
an address.

Example:
  quarkcheck multicall encode WrapperActions:0x... CometSupplyActions:0x...`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dep, err := loadDeployments()
		if err != nil {
			return err
		}
		targets := make([]common.Address, 0, len(args))
		datas := make([][]byte, 0, len(args))
		for _, arg := range args {
			target, data, ok := strings.Cut(arg, ":")
			if !ok {
				return fmt.Errorf("%q: want <target>:<calldata>", arg)
			}
			addr, err := resolveTarget(dep, target)
			if err != nil {
				return err
			}
			raw, err := parseHex(data)
			if err != nil {
				return err
			}
			targets = append(targets, addr)
			datas = append(datas, raw)
		}
		encoded, err := multicall.EncodeRun(targets, datas)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(encoded))
		return nil
	},
}

var multicallDecodeCmd = &cobra.Command{
	Use:   "decode <calldata>",
	Short: "List the sub-calls of Multicall.run calldata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := parseHex(args[0])
		if err != nil {
			return err
		}
		run, err := multicall.DecodeRun(data)
		if err != nil {
			return err
		}
		dep, err := loadDeployments()
		if err != nil {
			return err
		}
		dec := call.NewDecoder(dep, nil)

		tbl := ui.NewTable([]ui.Column{{Title: "#"}, {Title: "Target"}, {Title: "Call"}})
		for i := 0; i < run.Len(); i++ {
			target := run.CallContracts[i].Hex()
			if s, ok := dep.ScriptAt(run.CallContracts[i]); ok {
				target = s.Name
			}
			desc := hexutil.Encode(run.CallDatas[i])
			if c, err := dec.Decode(run.CallContracts[i], run.CallDatas[i]); err == nil {
				desc = c.String()
			}
			tbl.AddRow(ui.Row{fmt.Sprint(i), target, desc})
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.StyleTitle.Render(fmt.Sprintf("Multicall.run  %d call(s)", run.Len())))
		fmt.Fprint(cmd.OutOrStdout(), tbl.Render())
		return nil
	},
}

var multicallRevertCmd = &cobra.Command{
	Use:   "revert <data>",
	Short: "Decode a Multicall revert payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := parseHex(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Multicall Revert", describeMulticallRevert(data)))
		return nil
	},
}

// describeMulticallRevert lists the revert and, for MulticallError, every
// nested layer down to the original reason.
func describeMulticallRevert(data []byte) [][2]string {
	var pairs [][2]string
	err := multicall.DecodeRevert(data)
	for depth := 0; err != nil; depth++ {
		label := "Revert"
		if depth > 0 {
			label = fmt.Sprintf("Nested[%d]", depth)
		}
		var ce *multicall.CallError
		if !errors.As(err, &ce) {
			pairs = append(pairs, [2]string{label, err.Error()})
			break
		}
		pairs = append(pairs,
			[2]string{label, "MulticallError"},
			[2]string{"  callIndex", ce.CallIndex.String()},
			[2]string{"  callContract", ce.CallContract.Hex()},
		)
		err = ce.Unwrap()
		if err == nil {
			pairs = append(pairs, [2]string{"  err", ce.Error()})
		}
	}
	return pairs
}

func init() {
	multicallCmd.AddCommand(multicallEncodeCmd, multicallDecodeCmd, multicallRevertCmd)
}
