package rpcclient

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Stub is a synthetic Client used when RELAYX_STUB_MODE is enabled: it
// never dials out and returns fixed, successful responses. This is a
// test affordance, not a feature — see spec.md §9.
type Stub struct {
	GasPriceWei *big.Int
	Balance     *big.Int
	GasEstimate uint64
}

// NewStub returns a Stub with the spec's documented fallback values:
// 20 Gwei gas price, max balance, and a 150000 gas estimate.
func NewStub() *Stub {
	return &Stub{
		GasPriceWei: big.NewInt(20_000_000_000),
		Balance:     new(big.Int).SetUint64(^uint64(0)),
		GasEstimate: 150_000,
	}
}

func (s *Stub) GasPrice(ctx context.Context) (*big.Int, error) { return s.GasPriceWei, nil }

func (s *Stub) Call(ctx context.Context, msg CallMsg) ([]byte, error) { return nil, nil }

func (s *Stub) EstimateGas(ctx context.Context, msg CallMsg) (uint64, error) {
	return s.GasEstimate, nil
}

func (s *Stub) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	return s.Balance, nil
}

func (s *Stub) NonceAt(ctx context.Context, addr common.Address) (uint64, error) { return 0, nil }

func (s *Stub) TransactionReceipt(ctx context.Context, txHash common.Hash) (*Receipt, error) {
	return &Receipt{Found: true, Success: true, BlockNumber: 1}, nil
}

func (s *Stub) SendRawTransaction(ctx context.Context, rawTx []byte) (common.Hash, error) {
	var h common.Hash
	_, _ = rand.Read(h[:])
	return h, nil
}
