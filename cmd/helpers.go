package cmd

import (
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/quarkcheck/internal/accept"
	"github.com/Mohsinsiddi/quarkcheck/internal/scripts"
	"github.com/Mohsinsiddi/quarkcheck/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

func errLine(err error) string {
	return ui.Err(err.Error())
}

// loadDeployments derives script addresses from the configured CodeJar and
// applies the configured overrides.
func loadDeployments() (*scripts.Deployments, error) {
	codeJar := scripts.DefaultCodeJar
	if cfg.CodeJar != "" {
		if !common.IsHexAddress(cfg.CodeJar) {
			return nil, fmt.Errorf("code_jar %q is not an address", cfg.CodeJar)
		}
		codeJar = common.HexToAddress(cfg.CodeJar)
	}
	dep := scripts.NewDeployments(codeJar)
	for _, name := range cfg.DeploymentNames() {
		if err := dep.Override(name, cfg.Deployments[name]); err != nil {
			return nil, fmt.Errorf("deployments.%s: %w", name, err)
		}
	}
	return dep, nil
}

// resolveTarget accepts a script name or a hex address. Empty means unknown.
func resolveTarget(dep *scripts.Deployments, s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, nil
	}
	if common.IsHexAddress(s) {
		return common.HexToAddress(s), nil
	}
	if addr, ok := dep.Address(s); ok {
		return addr, nil
	}
	return common.Address{}, fmt.Errorf("%w: %s", scripts.ErrUnknownScript, s)
}

// parseHex decodes 0x-prefixed (or bare) hex.
func parseHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0x" || s == "0X" {
		return nil, fmt.Errorf("empty hex input")
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return b, nil
}

// loadScenarios returns the corpus, the configured directories and extra.
func loadScenarios(extra ...string) ([]accept.AcceptanceTest, error) {
	dirs := append(append([]string{}, cfg.ScenarioDirs...), extra...)
	return accept.Load(dirs...)
}
