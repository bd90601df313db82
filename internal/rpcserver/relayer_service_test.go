package rpcserver

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
	"github.com/relayx/relayer/src/relay/coordinator"
	"github.com/relayx/relayer/src/relay/pricer"
	"github.com/relayx/relayer/src/relay/rpcclient"
	"github.com/relayx/relayer/src/relay/simulate"
	"github.com/relayx/relayer/src/relay/store"
	"github.com/relayx/relayer/src/relay/submitter"
)

func validQuoteCalldata() string {
	sel := crypto.Keccak256([]byte("executeWithRelayer(address,uint256,bytes,uint256,address)"))[:4]
	return "0x" + hex.EncodeToString(sel) + "00"
}

type stubChainClient struct {
	rpcclient.Client
	gasPrice *big.Int
}

func (c *stubChainClient) GasPrice(ctx context.Context) (*big.Int, error) { return c.gasPrice, nil }
func (c *stubChainClient) Call(ctx context.Context, msg rpcclient.CallMsg) ([]byte, error) {
	return []byte{0x01}, nil
}
func (c *stubChainClient) EstimateGas(ctx context.Context, msg rpcclient.CallMsg) (uint64, error) {
	return 21000, nil
}
func (c *stubChainClient) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	return new(big.Int).Mul(c.gasPrice, big.NewInt(10_000_000)), nil
}
func (c *stubChainClient) NonceAt(ctx context.Context, addr common.Address) (uint64, error) {
	return 0, nil
}
func (c *stubChainClient) SendRawTransaction(ctx context.Context, rawTx []byte) (common.Hash, error) {
	var h common.Hash
	h[0] = 0xbb
	return h, nil
}

type stubDialer struct{ client rpcclient.Client }

func (d stubDialer) Dial(ctx context.Context, chainID uint64) (rpcclient.Client, error) {
	return d.client, nil
}

type stubConfig struct {
	chains map[uint64]bool
	tokens []string
	fee    string
}

func (c stubConfig) IsChainSupported(chainID uint64) bool { return c.chains[chainID] }
func (c stubConfig) SupportedTokens() []string            { return c.tokens }
func (c stubConfig) FeeCollector() string                 { return c.fee }
func (c stubConfig) DefaultToken() (string, bool)         { return "", false }
func (c stubConfig) StubMode() bool                       { return false }
func (c stubConfig) ChainlinkNativeUSD(chainID uint64) (string, bool) { return "", false }
func (c stubConfig) ChainlinkTokenUSD(chainID uint64, token string) (string, bool) {
	return "", false
}
func (c stubConfig) EtherscanAPIKey() (string, bool) { return "", false }
func (c stubConfig) EtherscanAPIBase() string        { return "" }

func newTestRelayerService(t *testing.T) (*RelayerService, stubDialer) {
	t.Helper()
	client := &stubChainClient{gasPrice: rpcclient.ParseWeiHex(relay.DefaultGasPriceHex)}
	dialer := stubDialer{client: client}
	cfg := stubConfig{chains: map[uint64]bool{1: true}, fee: relay.DefaultFeeCollector}

	sim := simulate.New(dialer, false)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sub, err := submitter.New(dialer, crypto.Bytes2Hex(crypto.FromECDSA(key)))
	require.NoError(t, err)

	coord := coordinator.New(store.NewMemory(), dialer, sim, sub, cfg)
	pc := pricer.New(dialer, cfg)

	return NewRelayerService(coord, pc, dialer, cfg), dialer
}

func TestSendTransactionEchoesChainIDStringVerbatim(t *testing.T) {
	svc, _ := newTestRelayerService(t)

	resp, err := svc.SendTransaction(context.Background(), SendTransactionRequest{
		To:      "0x000000000000000000000000000000000000aa",
		Data:    validQuoteCalldata(),
		ChainID: "01", // a non-canonical but numerically valid string
		Capabilities: SendTransactionCapabilities{
			Payment: PaymentCapability{Type: "native", Token: relay.ZeroAddress},
		},
	})

	require.NoError(t, err)
	require.Len(t, resp.Result, 1)
	assert.Equal(t, "01", resp.Result[0].ChainID)
	assert.NotEmpty(t, resp.Result[0].ID)
}

func TestSendTransactionRejectsNonNumericChainID(t *testing.T) {
	svc, _ := newTestRelayerService(t)

	_, err := svc.SendTransaction(context.Background(), SendTransactionRequest{
		To:      "0x000000000000000000000000000000000000aa",
		Data:    validQuoteCalldata(),
		ChainID: "mainnet",
		Capabilities: SendTransactionCapabilities{
			Payment: PaymentCapability{Type: "native", Token: relay.ZeroAddress},
		},
	})

	require.Error(t, err)
	relayErr, ok := err.(*relay.RelayError)
	require.True(t, ok)
	assert.Equal(t, relay.KindInvalidParams, relayErr.Kind)
}

func TestSendTransactionMultichainPreservesPerRowChainIDStrings(t *testing.T) {
	svc, _ := newTestRelayerService(t)

	resp, err := svc.SendTransactionMultichain(context.Background(), SendTransactionMultichainRequest{
		Transactions: []MultichainTransactionInput{
			{To: "0x000000000000000000000000000000000000aa", Data: validQuoteCalldata(), ChainID: "1"},
		},
		Capabilities: SendTransactionCapabilities{
			Payment: PaymentCapability{Type: "native", Token: relay.ZeroAddress},
		},
		PaymentChainID: "1",
	})

	require.NoError(t, err)
	require.Len(t, resp.Result, 1)
	assert.Equal(t, "1", resp.Result[0].ChainID)
}

func TestGetStatusWireIncludesVersionField(t *testing.T) {
	svc, _ := newTestRelayerService(t)

	sendResp, err := svc.SendTransaction(context.Background(), SendTransactionRequest{
		To:      "0x000000000000000000000000000000000000aa",
		Data:    validQuoteCalldata(),
		ChainID: "1",
		Capabilities: SendTransactionCapabilities{
			Payment: PaymentCapability{Type: "native", Token: relay.ZeroAddress},
		},
	})
	require.NoError(t, err)

	statusResp, err := svc.GetStatus(context.Background(), GetStatusRequest{IDs: []string{sendResp.Result[0].ID}})
	require.NoError(t, err)
	require.Len(t, statusResp.Result, 1)
	assert.Equal(t, "2.0.0", statusResp.Result[0].Version)
	assert.Equal(t, 201, statusResp.Result[0].Status)
}

func TestGetCapabilitiesAlwaysIncludesNativeAndSponsored(t *testing.T) {
	svc, _ := newTestRelayerService(t)

	resp, err := svc.GetCapabilities(context.Background())
	require.NoError(t, err)

	var sawNative, sawSponsored bool
	for _, p := range resp.Capabilities.Payment {
		if p.Type == "native" {
			sawNative = true
		}
		if p.Type == "sponsored" {
			sawSponsored = true
		}
	}
	assert.True(t, sawNative)
	assert.True(t, sawSponsored)
}

func TestGetExchangeRateNativeTokenAlwaysSucceeds(t *testing.T) {
	svc, _ := newTestRelayerService(t)

	resp, err := svc.GetExchangeRate(context.Background(), ExchangeRateRequest{Token: relay.ZeroAddress, ChainID: "1"})
	require.NoError(t, err)
	require.Len(t, resp.Result, 1)
	require.NotNil(t, resp.Result[0].Quote)
	assert.Nil(t, resp.Result[0].Error)
}

func TestGetExchangeRateInvalidChainIDReturnsErrorItemNotErr(t *testing.T) {
	svc, _ := newTestRelayerService(t)

	resp, err := svc.GetExchangeRate(context.Background(), ExchangeRateRequest{Token: relay.ZeroAddress, ChainID: "not-a-number"})
	require.NoError(t, err)
	require.Len(t, resp.Result, 1)
	require.NotNil(t, resp.Result[0].Error)
	assert.Equal(t, "not-a-number", resp.Result[0].Error.ID)
}

func TestGetFeeDataSharesLogicWithGetExchangeRate(t *testing.T) {
	svc, _ := newTestRelayerService(t)

	rateResp, err := svc.GetExchangeRate(context.Background(), ExchangeRateRequest{Token: relay.ZeroAddress, ChainID: "1"})
	require.NoError(t, err)
	feeResp, err := svc.GetFeeData(context.Background(), ExchangeRateRequest{Token: relay.ZeroAddress, ChainID: "1"})
	require.NoError(t, err)

	assert.Equal(t, rateResp.Result[0].Quote.Token.Decimals, feeResp.Result[0].Quote.Token.Decimals)
}

func TestGetQuoteDefaultsToMainnetWhenChainIDOmitted(t *testing.T) {
	svc, _ := newTestRelayerService(t)

	resp, err := svc.GetQuote(context.Background(), QuoteRequest{
		To:   "0x000000000000000000000000000000000000aa",
		Data: "0x",
	})

	require.NoError(t, err)
	assert.Equal(t, relay.ZeroAddress, resp.Quote.Token.Address)
	assert.Len(t, resp.RelayerCalls, 1)
	assert.Equal(t, "", resp.RevertReason)
}
