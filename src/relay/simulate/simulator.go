// Package simulate implements the Simulator: selector validation, a dry
// eth_call, and a gas estimate, with a bypass flag for smoke tests.
package simulate

import (
	"bytes"
	"context"
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/relayx/relayer/src/relay"
	"github.com/relayx/relayer/src/relay/rpcclient"
)

// defaultGasLimit is returned whenever simulation is bypassed, either by
// policy (disable_simulation) or because the caller forces stub mode.
const defaultGasLimit = 150_000

// executeWithRelayerSelector is the compile-time-known 4-byte selector
// for executeWithRelayer(...); the wallet contract ABI is otherwise
// opaque to this component (spec.md §1).
var executeWithRelayerSelector = crypto.Keccak256([]byte("executeWithRelayer(address,uint256,bytes,uint256,address)"))[:4]

// Simulator validates and dry-runs calldata against a wallet contract
// before the Submitter ever signs anything.
type Simulator struct {
	pool              rpcclient.Dialer
	disableSimulation bool
}

// New returns a Simulator bound to pool. disableSimulation mirrors
// spec.md §4.C's policy flag.
func New(pool rpcclient.Dialer, disableSimulation bool) *Simulator {
	return &Simulator{pool: pool, disableSimulation: disableSimulation}
}

// Simulate validates calldata, short-circuiting on the first failure in
// the order spec.md §4.C names: selector check, eth_call, estimate_gas.
func (s *Simulator) Simulate(ctx context.Context, to string, data string, chainID uint64) (uint64, error) {
	if s.disableSimulation {
		return defaultGasLimit, nil
	}

	raw := strings.TrimPrefix(data, "0x")
	calldata, err := hex.DecodeString(raw)
	if err != nil {
		return 0, relay.ErrSimulationFailed("calldata is not valid hex", err)
	}
	if len(calldata) < 4 {
		return 0, relay.ErrSimulationFailed("calldata shorter than a function selector", nil)
	}
	if !bytes.Equal(calldata[:4], executeWithRelayerSelector) {
		return 0, relay.ErrSimulationFailed("calldata does not target executeWithRelayer", nil)
	}

	client, err := s.pool.Dial(ctx, chainID)
	if err != nil {
		return 0, relay.ErrSimulationFailed("no chain client available", err)
	}

	toAddr := common.HexToAddress(to)
	msg := rpcclient.CallMsg{To: toAddr, Data: calldata}

	if _, err := client.Call(ctx, msg); err != nil {
		return 0, relay.ErrSimulationFailed("eth_call reverted", err)
	}

	gas, err := client.EstimateGas(ctx, msg)
	if err != nil {
		return 0, relay.ErrSimulationFailed("gas estimation failed", err)
	}
	return gas, nil
}
