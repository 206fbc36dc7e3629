package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/quarkcheck/internal/builder"
	"github.com/Mohsinsiddi/quarkcheck/internal/multicall"
	"github.com/Mohsinsiddi/quarkcheck/internal/scripts"
	"github.com/Mohsinsiddi/quarkcheck/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/sha3"
)

var selectorCmd = &cobra.Command{
	Use:   "selector <signature-or-selector>",
	Short: "Compute a 4-byte selector or look it up among known scripts",
	Long: `Compute a 4-byte selector from a signature, or look up a selector
among the known quark scripts, the Multicall revert reasons and the builder's
custom errors.

Examples:
  quarkcheck selector "transferERC20Token(address token, address recipient, uint256 amount)"
  quarkcheck selector "run(address,bytes,uint256)"
  quarkcheck selector 0x7dd3b26f`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]
		out := cmd.OutOrStdout()

		// If input starts with 0x, it's a selector to look up.
		if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
			raw, err := parseHex(input)
			if err != nil {
				return err
			}
			if len(raw) != 4 {
				return fmt.Errorf("selector must be 4 bytes, got %d", len(raw))
			}
			var sel [4]byte
			copy(sel[:], raw)

			names := lookupSelector(sel)
			if len(names) == 0 {
				fmt.Fprintln(out, ui.Warn("no known script, revert or builder error uses "+input))
				return nil
			}
			pairs := [][2]string{{"Selector", strings.ToLower(input)}}
			for _, n := range names {
				pairs = append(pairs, [2]string{"Match", ui.Val(n)})
			}
			fmt.Fprintln(out, ui.KeyValueBlock("Selector Lookup", pairs))
			return nil
		}

		// Otherwise, compute selector from signature.
		sig := normalizeSignature(input)
		hash := keccak([]byte(sig))
		selector := "0x" + hex.EncodeToString(hash[:4])

		pairs := [][2]string{
			{"Signature", sig},
			{"Selector", ui.Val(selector)},
			{"Full Hash", "0x" + hex.EncodeToString(hash)},
		}
		var sel [4]byte
		copy(sel[:], hash[:4])
		for _, n := range lookupSelector(sel) {
			pairs = append(pairs, [2]string{"Known As", n})
		}

		fmt.Fprintln(out, ui.KeyValueBlock("Function Selector", pairs))
		return nil
	},
}

func keccak(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// lookupSelector names every script method, Multicall revert and builder
// error with selector sel.
func lookupSelector(sel [4]byte) []string {
	var out []string
	for _, m := range scripts.Lookup(sel) {
		out = append(out, m.Script.Name+"."+m.Method.Sig)
	}
	for _, e := range multicall.Reverts.All() {
		if [4]byte(e.ID[:4]) == sel {
			out = append(out, "Multicall revert "+e.Sig)
		}
	}
	for _, name := range builder.ErrorNames() {
		e := builder.ABI.Errors[name]
		if [4]byte(e.ID[:4]) == sel {
			out = append(out, "builder error "+e.Sig)
		}
	}
	return out
}

// normalizeSignature removes parameter names, keeping only types.
// "transfer(address to, uint256 amount)" → "transfer(address,uint256)"
func normalizeSignature(sig string) string {
	sig = strings.TrimSpace(sig)
	parenIdx := strings.Index(sig, "(")
	if parenIdx < 0 || !strings.HasSuffix(sig, ")") {
		return sig
	}

	name := strings.TrimSpace(sig[:parenIdx])
	paramStr := sig[parenIdx+1 : len(sig)-1]

	if strings.TrimSpace(paramStr) == "" {
		return name + "()"
	}

	params := strings.Split(paramStr, ",")
	var types []string
	for _, p := range params {
		// Take only the first word (the type), skip the name.
		parts := strings.Fields(p)
		if len(parts) > 0 {
			types = append(types, parts[0])
		}
	}

	return name + "(" + strings.Join(types, ",") + ")"
}
