package coordinator

import (
	"context"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayx/relayer/src/relay"
	"github.com/relayx/relayer/src/relay/rpcclient"
	"github.com/relayx/relayer/src/relay/simulate"
	"github.com/relayx/relayer/src/relay/store"
	"github.com/relayx/relayer/src/relay/submitter"
)

const walletAddr = "0x742d35cc6634c0532925a3b844bc9e7595f6e9e1"

// selector mirrors simulate's compile-time executeWithRelayer selector,
// read indirectly by building calldata through the same helper the
// simulator tests use.
func validCalldata() string {
	sel := crypto.Keccak256([]byte("executeWithRelayer(address,uint256,bytes,uint256,address)"))[:4]
	return "0x" + hex.EncodeToString(sel) + "00"
}

// fakeChainClient lets each scenario control eth_call/estimateGas/
// balance/send behavior independently.
type fakeChainClient struct {
	rpcclient.Client
	gasPrice    *big.Int
	balance     *big.Int
	gasEstimate uint64
	callErr     error
	sendErr     error
}

func (f *fakeChainClient) GasPrice(ctx context.Context) (*big.Int, error) { return f.gasPrice, nil }
func (f *fakeChainClient) Call(ctx context.Context, msg rpcclient.CallMsg) ([]byte, error) {
	return nil, f.callErr
}
func (f *fakeChainClient) EstimateGas(ctx context.Context, msg rpcclient.CallMsg) (uint64, error) {
	return f.gasEstimate, nil
}
func (f *fakeChainClient) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	return f.balance, nil
}
func (f *fakeChainClient) NonceAt(ctx context.Context, addr common.Address) (uint64, error) {
	return 0, nil
}
func (f *fakeChainClient) SendRawTransaction(ctx context.Context, rawTx []byte) (common.Hash, error) {
	if f.sendErr != nil {
		return common.Hash{}, f.sendErr
	}
	var h common.Hash
	h[0] = 0xaa
	return h, nil
}

type fakeDialer struct{ client rpcclient.Client }

func (d fakeDialer) Dial(ctx context.Context, chainID uint64) (rpcclient.Client, error) {
	return d.client, nil
}

type fakeConfig struct {
	supportedChains map[uint64]bool
	tokens          []string
	fee             string
	stubMode        bool
}

func (f fakeConfig) IsChainSupported(chainID uint64) bool { return f.supportedChains[chainID] }
func (f fakeConfig) SupportedTokens() []string            { return f.tokens }
func (f fakeConfig) FeeCollector() string                 { return f.fee }
func (f fakeConfig) StubMode() bool                       { return f.stubMode }

func newCoordinator(t *testing.T, client rpcclient.Client, cfg fakeConfig) *Coordinator {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	keyHex := crypto.Bytes2Hex(crypto.FromECDSA(key))

	dialer := fakeDialer{client: client}
	sim := simulate.New(dialer, false)
	sub, err := submitter.New(dialer, keyHex)
	require.NoError(t, err)

	return New(store.NewMemory(), dialer, sim, sub, cfg)
}

func TestSendTransactionHappyNativePath(t *testing.T) {
	client := &fakeChainClient{
		gasPrice:    rpcclient.ParseWeiHex(relay.DefaultGasPriceHex),
		balance:     new(big.Int).SetUint64(^uint64(0)),
		gasEstimate: 150000,
	}
	cfg := fakeConfig{supportedChains: map[uint64]bool{1: true}}
	c := newCoordinator(t, client, cfg)

	result, err := c.SendTransaction(context.Background(), SubmitInput{
		To:      walletAddr,
		Data:    validCalldata(),
		ChainID: 1,
		Payment: relay.PaymentMode{Type: relay.PaymentNative, Token: relay.ZeroAddress},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.ChainID)
	assert.NotEmpty(t, result.ID)

	record, found, err := c.store.GetRequest(context.Background(), result.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, relay.StatusProcessing, record.Status)
	assert.NotEmpty(t, record.TransactionHash)
	assert.False(t, record.CreatedAt.IsZero())
	assert.False(t, record.UpdatedAt.IsZero())
}

func TestSendTransactionInStubModeAutoCompletes(t *testing.T) {
	client := &fakeChainClient{
		gasPrice:    rpcclient.ParseWeiHex(relay.DefaultGasPriceHex),
		balance:     new(big.Int).SetUint64(^uint64(0)),
		gasEstimate: 150000,
	}
	cfg := fakeConfig{supportedChains: map[uint64]bool{1: true}, stubMode: true}
	c := newCoordinator(t, client, cfg)

	result, err := c.SendTransaction(context.Background(), SubmitInput{
		To:      walletAddr,
		Data:    validCalldata(),
		ChainID: 1,
		Payment: relay.PaymentMode{Type: relay.PaymentNative, Token: relay.ZeroAddress},
	})
	require.NoError(t, err)

	record, found, err := c.store.GetRequest(context.Background(), result.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, relay.StatusCompleted, record.Status)
}

func TestSendTransactionErc20NotSupportedIsRejected(t *testing.T) {
	client := &fakeChainClient{
		gasPrice:    rpcclient.ParseWeiHex(relay.DefaultGasPriceHex),
		gasEstimate: 150000,
	}
	cfg := fakeConfig{
		supportedChains: map[uint64]bool{1: true},
		tokens:          []string{"0xabc0000000000000000000000000000000000a"},
	}
	c := newCoordinator(t, client, cfg)

	_, err := c.SendTransaction(context.Background(), SubmitInput{
		To:      walletAddr,
		Data:    validCalldata(),
		ChainID: 1,
		Payment: relay.PaymentMode{Type: relay.PaymentErc20, Token: "0xdef0000000000000000000000000000000000d"},
	})
	require.Error(t, err)
	var relayErr *relay.RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, relay.KindUnsupportedPaymentToken, relayErr.Kind)

	total, _ := c.store.Count(context.Background())
	assert.Equal(t, uint64(0), total, "rejected intake must not persist any record")
}

func TestSendTransactionSimulationFailureIsRejectedWithoutPersistence(t *testing.T) {
	client := &fakeChainClient{
		gasPrice: rpcclient.ParseWeiHex(relay.DefaultGasPriceHex),
		callErr:  relay.NewRevertedError("reverted", nil),
	}
	cfg := fakeConfig{supportedChains: map[uint64]bool{1: true}}
	c := newCoordinator(t, client, cfg)

	_, err := c.SendTransaction(context.Background(), SubmitInput{
		To:      walletAddr,
		Data:    validCalldata(),
		ChainID: 1,
		Payment: relay.PaymentMode{Type: relay.PaymentNative, Token: relay.ZeroAddress},
	})
	require.Error(t, err)
	var relayErr *relay.RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, relay.KindSimulationFailed, relayErr.Kind)

	total, _ := c.store.Count(context.Background())
	assert.Equal(t, uint64(0), total)
}

func TestSendTransactionUnsupportedChainIsRejected(t *testing.T) {
	client := &fakeChainClient{gasPrice: rpcclient.ParseWeiHex(relay.DefaultGasPriceHex)}
	cfg := fakeConfig{supportedChains: map[uint64]bool{}}
	c := newCoordinator(t, client, cfg)

	_, err := c.SendTransaction(context.Background(), SubmitInput{
		To:      walletAddr,
		Data:    validCalldata(),
		ChainID: 999,
		Payment: relay.PaymentMode{Type: relay.PaymentNative, Token: relay.ZeroAddress},
	})
	require.Error(t, err)
	var relayErr *relay.RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, relay.KindInvalidParams, relayErr.Kind)
}

func TestSendTransactionMultichainBestEffortContinuesPastFailure(t *testing.T) {
	client := &fakeChainClient{
		gasPrice:    rpcclient.ParseWeiHex(relay.DefaultGasPriceHex),
		gasEstimate: 150000,
		callErr:     relay.NewRevertedError("reverted", nil), // forces the lenient fallback path
	}
	cfg := fakeConfig{supportedChains: map[uint64]bool{1: true, 2: true}}
	c := newCoordinator(t, client, cfg)

	results, err := c.SendTransactionMultichain(context.Background(), MultichainInput{
		PaymentChainID:    1,
		PaymentCapability: relay.PaymentMode{Type: relay.PaymentSponsored},
		Transactions: []SubmitInput{
			{To: walletAddr, Data: validCalldata(), ChainID: 1},
			{To: walletAddr, Data: validCalldata(), ChainID: 2},
		},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	total, _ := c.store.Count(context.Background())
	assert.Equal(t, uint64(2), total, "both rows persist even though simulation fell back")
}

func TestSendTransactionMultichainEmptyIsRejected(t *testing.T) {
	client := &fakeChainClient{gasPrice: rpcclient.ParseWeiHex(relay.DefaultGasPriceHex)}
	cfg := fakeConfig{supportedChains: map[uint64]bool{1: true}}
	c := newCoordinator(t, client, cfg)

	_, err := c.SendTransactionMultichain(context.Background(), MultichainInput{
		PaymentChainID:    1,
		PaymentCapability: relay.PaymentMode{Type: relay.PaymentSponsored},
		Transactions:      nil,
	})
	require.Error(t, err)
	var relayErr *relay.RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, relay.KindInvalidParams, relayErr.Kind)
}

func TestGetStatusMapsStatusesToHTTPCodes(t *testing.T) {
	client := &fakeChainClient{
		gasPrice:    rpcclient.ParseWeiHex(relay.DefaultGasPriceHex),
		balance:     new(big.Int).SetUint64(^uint64(0)),
		gasEstimate: 150000,
	}
	cfg := fakeConfig{supportedChains: map[uint64]bool{1: true}}
	c := newCoordinator(t, client, cfg)

	result, err := c.SendTransaction(context.Background(), SubmitInput{
		To:      walletAddr,
		Data:    validCalldata(),
		ChainID: 1,
		Payment: relay.PaymentMode{Type: relay.PaymentNative, Token: relay.ZeroAddress},
	})
	require.NoError(t, err)

	rows := c.GetStatus(context.Background(), []string{result.ID, "not-a-uuid", "00000000-0000-0000-0000-000000000000"})
	require.Len(t, rows, 3)
	assert.Equal(t, 201, rows[0].HTTPStatus) // Processing
	assert.Equal(t, 400, rows[1].HTTPStatus) // malformed
	assert.Equal(t, 404, rows[2].HTTPStatus) // well-formed but absent
}

func TestGetStatusEmptyIDsReturnsEmptyResult(t *testing.T) {
	c := newCoordinator(t, &fakeChainClient{gasPrice: rpcclient.ParseWeiHex(relay.DefaultGasPriceHex)}, fakeConfig{})
	rows := c.GetStatus(context.Background(), nil)
	assert.Empty(t, rows)
}
