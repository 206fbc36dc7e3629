package config

import "time"

// Backends understood by the run command.
const (
	BackendEVM = "evm"
	BackendRPC = "rpc"
)

// DefaultGasLimit is the gas given to a single builder query. Planning
// multi-chain operations is expensive, so this is far above a block limit.
const DefaultGasLimit = uint64(1_000_000_000)

// Timeouts used across cmd.
const (
	QueryTimeout = 2 * time.Minute  // one builder query
	RunTimeout   = 30 * time.Minute // a whole `run`
)
