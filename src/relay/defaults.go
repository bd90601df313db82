package relay

// Shared fallback constants, grounded in the original source's hardcoded
// defaults (config.rs / rpc.rs), used by every component that needs a
// last-resort value rather than a Chain Client round trip.
const (
	// DefaultGasPriceHex is 20 Gwei, the fallback gas price used whenever
	// a live eth_gasPrice call fails (spec.md §4.E, §4.G).
	DefaultGasPriceHex = "0x4a817c800"

	// DefaultSimulationGasLimit is used whenever simulation is bypassed
	// or, in the multichain intake path, when simulation fails (spec.md §4.C, §4.G).
	DefaultSimulationGasLimit = 150_000

	// DefaultFeeCollector is used when no fee collector is configured.
	DefaultFeeCollector = "0x55f3a93f544e01ce4378d25e927d7c493b863bd6"

	// DefaultUSDCToken is the fallback ERC-20 payment option advertised
	// by relayer_getCapabilities when no tokens are configured.
	DefaultUSDCToken = "0x036CbD53842c5426634e7929541eC2318f3dCF7e"
)
