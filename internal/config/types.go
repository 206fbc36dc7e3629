package config

// Config holds all quarkcheck configuration.
type Config struct {
	Backend        string            `json:"backend"`         // "evm" | "rpc"
	RPCURL         string            `json:"rpc_url"`         // node hosting the builder (rpc backend)
	RPCFallbacks   []string          `json:"rpc_fallbacks"`   // further nodes, raced against rpc_url
	RPCAlgorithm   string            `json:"rpc_algorithm"`   // fastest | round-robin | failover
	BuilderAddress string            `json:"builder_address"` // builder contract (rpc backend)
	BuilderCode    string            `json:"builder_code"`    // runtime bytecode hex file (evm backend)
	From           string            `json:"from"`            // eth_call sender / EVM origin
	GasLimit       uint64            `json:"gas_limit"`
	Parallelism    int               `json:"parallelism"`
	LogLevel       string            `json:"log_level"` // zap level name
	CodeJar        string            `json:"code_jar"`  // script addresses derive from this
	ScenarioDirs   []string          `json:"scenario_dirs"`
	Deployments    map[string]string `json:"deployments"` // script name → address override
	SyncSource     string            `json:"sync_source"` // deployments manifest URL or file
	LastSynced     string            `json:"last_synced,omitempty"`

	// internal: config dir path used for Save()
	configDir string
}
