package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/Mohsinsiddi/quarkcheck/internal/rpc"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap/zapcore"
)

const (
	defaultBackend     = BackendEVM
	defaultFrom        = "0x00000000000000000000000000000000000000A1"
	defaultParallelism = 4
	defaultLogLevel    = "info"
	defaultCodeJar     = "0x2b68764bCfE9fCD8d5a30a281F141f69b69Ae3C8"

	configFile = "config.json"

	// EnvDir overrides the config directory.
	EnvDir = "QUARKCHECK_CONFIG_DIR"
)

// ErrUnknownKey is returned by Get and Set for keys that do not exist.
var ErrUnknownKey = errors.New("unknown config key")

// Load reads config from dir (or creates defaults). dir defaults to
// $QUARKCHECK_CONFIG_DIR, then ~/.quarkcheck.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = os.Getenv(EnvDir)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".quarkcheck")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	path := filepath.Join(dir, configFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.configDir = dir
	if cfg.Deployments == nil {
		cfg.Deployments = make(map[string]string)
	}

	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// AddScenarioDir registers an extra scenario directory.
func (c *Config) AddScenarioDir(dir string) error {
	if slices.Contains(c.ScenarioDirs, dir) {
		return fmt.Errorf("scenario dir %s already registered", dir)
	}
	c.ScenarioDirs = append(c.ScenarioDirs, dir)
	return nil
}

// RemoveScenarioDir unregisters a scenario directory.
func (c *Config) RemoveScenarioDir(dir string) error {
	idx := slices.Index(c.ScenarioDirs, dir)
	if idx == -1 {
		return fmt.Errorf("scenario dir %s not registered", dir)
	}
	c.ScenarioDirs = slices.Delete(c.ScenarioDirs, idx, idx+1)
	return nil
}

// Keys lists the keys accepted by Get and Set. Script address overrides
// use "deployments.<Script>".
func Keys() []string {
	return []string{
		"backend", "builder_address", "builder_code", "code_jar", "from",
		"gas_limit", "log_level", "parallelism", "rpc_algorithm", "rpc_fallbacks", "rpc_url", "sync_source",
	}
}

// Get returns the string form of a key.
func (c *Config) Get(key string) (string, error) {
	if name, ok := strings.CutPrefix(key, "deployments."); ok {
		return c.Deployments[name], nil
	}
	switch key {
	case "backend":
		return c.Backend, nil
	case "builder_address":
		return c.BuilderAddress, nil
	case "builder_code":
		return c.BuilderCode, nil
	case "code_jar":
		return c.CodeJar, nil
	case "from":
		return c.From, nil
	case "gas_limit":
		return strconv.FormatUint(c.GasLimit, 10), nil
	case "log_level":
		return c.LogLevel, nil
	case "parallelism":
		return strconv.Itoa(c.Parallelism), nil
	case "rpc_url":
		return c.RPCURL, nil
	case "rpc_fallbacks":
		return strings.Join(c.RPCFallbacks, ","), nil
	case "rpc_algorithm":
		return c.RPCAlgorithm, nil
	case "sync_source":
		return c.SyncSource, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
}

// Set validates and assigns a key. It does not save.
func (c *Config) Set(key, value string) error {
	if name, ok := strings.CutPrefix(key, "deployments."); ok {
		if name == "" {
			return fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
		if value == "" {
			delete(c.Deployments, name)
			return nil
		}
		if err := checkAddress(key, value); err != nil {
			return err
		}
		if c.Deployments == nil {
			c.Deployments = make(map[string]string)
		}
		c.Deployments[name] = value
		return nil
	}

	switch key {
	case "backend":
		if value != BackendEVM && value != BackendRPC {
			return fmt.Errorf("backend must be %q or %q, got %q", BackendEVM, BackendRPC, value)
		}
		c.Backend = value
	case "builder_address":
		if err := checkAddress(key, value); err != nil {
			return err
		}
		c.BuilderAddress = value
	case "builder_code":
		c.BuilderCode = value
	case "code_jar":
		if err := checkAddress(key, value); err != nil {
			return err
		}
		c.CodeJar = value
	case "from":
		if err := checkAddress(key, value); err != nil {
			return err
		}
		c.From = value
	case "gas_limit":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil || n == 0 {
			return fmt.Errorf("gas_limit must be a positive integer, got %q", value)
		}
		c.GasLimit = n
	case "log_level":
		if _, err := zapcore.ParseLevel(value); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
		c.LogLevel = value
	case "parallelism":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("parallelism must be at least 1, got %q", value)
		}
		c.Parallelism = n
	case "rpc_url":
		if err := checkURL(key, value); err != nil {
			return err
		}
		c.RPCURL = value
	case "rpc_fallbacks":
		var urls []string
		for _, u := range strings.Split(value, ",") {
			if u = strings.TrimSpace(u); u == "" {
				continue
			}
			if err := checkURL(key, u); err != nil {
				return err
			}
			urls = append(urls, u)
		}
		c.RPCFallbacks = urls
	case "rpc_algorithm":
		if _, err := rpc.ParseAlgorithm(value); err != nil {
			return err
		}
		c.RPCAlgorithm = value
	case "sync_source":
		c.SyncSource = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}

// DeploymentNames returns the overridden script names, sorted.
func (c *Config) DeploymentNames() []string {
	names := make([]string, 0, len(c.Deployments))
	for name := range c.Deployments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RPCEndpoints returns rpc_url followed by the fallbacks, without
// duplicates or blanks.
func (c *Config) RPCEndpoints() []string {
	var out []string
	for _, u := range append([]string{c.RPCURL}, c.RPCFallbacks...) {
		if u != "" && !slices.Contains(out, u) {
			out = append(out, u)
		}
	}
	return out
}

// --- helpers ---

func checkURL(key, value string) error {
	if value != "" && !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
		return fmt.Errorf("%s must be an http(s) URL, got %q", key, value)
	}
	return nil
}

func checkAddress(key, value string) error {
	if !common.IsHexAddress(value) {
		return fmt.Errorf("%s: %q is not an address", key, value)
	}
	return nil
}

func defaults(dir string) *Config {
	return &Config{
		Backend:     defaultBackend,
		From:        defaultFrom,
		GasLimit:    DefaultGasLimit,
		Parallelism: defaultParallelism,
		LogLevel:    defaultLogLevel,
		CodeJar:     defaultCodeJar,
		Deployments: make(map[string]string),
		configDir:   dir,
	}
}
