// Package rpcclient implements the Chain Client: a thin, per-chain
// JSON-RPC wrapper with no retry policy of its own, modeled on the
// teacher's RPCHelper wrapping discipline.
package rpcclient

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/relayx/relayer/src/relay"
)

// CallMsg mirrors the minimal eth_call/estimateGas argument shape the
// Simulator and Pricer need; no value or from address is ever sent.
type CallMsg struct {
	To   common.Address
	Data []byte
}

// Receipt is the subset of eth_getTransactionReceipt fields the monitor
// loop needs to decide between Completed, Failed, and "not yet mined".
type Receipt struct {
	Found       bool
	Success     bool
	BlockNumber uint64
}

// Client is the Chain Client contract: per-chain JSON-RPC calls, each
// returning a relay.ChainError on failure. Implementations must be safe
// for concurrent use.
type Client interface {
	GasPrice(ctx context.Context) (*big.Int, error)
	Call(ctx context.Context, msg CallMsg) ([]byte, error)
	EstimateGas(ctx context.Context, msg CallMsg) (uint64, error)
	BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error)
	NonceAt(ctx context.Context, addr common.Address) (uint64, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*Receipt, error)
	SendRawTransaction(ctx context.Context, rawTx []byte) (common.Hash, error)
}

// ethClient is the real implementation, dialing a single chain's JSON-RPC
// endpoint via go-ethereum's generic rpc.Client (not ethclient, so raw
// calls stay close to the wire shapes spec.md names: get_gas_price,
// eth_call, estimate_gas, get_balance, get_transaction_count,
// get_transaction_receipt, send_raw_transaction).
type ethClient struct {
	rpc *gethrpc.Client
}

// Dial connects to url. The returned Client owns the connection and
// should be reused across calls for the same chain, per spec.md §5's
// "shared per chain, reused across tasks" resource model.
func Dial(ctx context.Context, url string) (Client, error) {
	c, err := gethrpc.DialContext(ctx, url)
	if err != nil {
		return nil, relay.NewTransportError("dial failed", err)
	}
	return &ethClient{rpc: c}, nil
}

func (c *ethClient) GasPrice(ctx context.Context) (*big.Int, error) {
	var result hexutil.Big
	if err := c.rpc.CallContext(ctx, &result, "eth_gasPrice"); err != nil {
		return nil, relay.NewTransportError("eth_gasPrice failed", err)
	}
	return (*big.Int)(&result), nil
}

func (c *ethClient) Call(ctx context.Context, msg CallMsg) ([]byte, error) {
	arg := map[string]interface{}{
		"to":   msg.To,
		"data": hexutil.Bytes(msg.Data),
	}
	var result hexutil.Bytes
	if err := c.rpc.CallContext(ctx, &result, "eth_call", arg, "latest"); err != nil {
		return nil, relay.NewRevertedError(err.Error(), nil)
	}
	return result, nil
}

func (c *ethClient) EstimateGas(ctx context.Context, msg CallMsg) (uint64, error) {
	arg := map[string]interface{}{
		"to":   msg.To,
		"data": hexutil.Bytes(msg.Data),
	}
	var result hexutil.Uint64
	if err := c.rpc.CallContext(ctx, &result, "eth_estimateGas", arg); err != nil {
		return 0, relay.NewRevertedError("gas estimation failed", nil)
	}
	return uint64(result), nil
}

func (c *ethClient) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	var result hexutil.Big
	if err := c.rpc.CallContext(ctx, &result, "eth_getBalance", addr, "latest"); err != nil {
		return nil, relay.NewTransportError("eth_getBalance failed", err)
	}
	return (*big.Int)(&result), nil
}

func (c *ethClient) NonceAt(ctx context.Context, addr common.Address) (uint64, error) {
	var result hexutil.Uint64
	if err := c.rpc.CallContext(ctx, &result, "eth_getTransactionCount", addr, "latest"); err != nil {
		return 0, relay.NewTransportError("eth_getTransactionCount failed", err)
	}
	return uint64(result), nil
}

type rawReceipt struct {
	BlockNumber hexutil.Uint64 `json:"blockNumber"`
	Status      hexutil.Uint64 `json:"status"`
}

func (c *ethClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*Receipt, error) {
	var result *rawReceipt
	if err := c.rpc.CallContext(ctx, &result, "eth_getTransactionReceipt", txHash); err != nil {
		return nil, relay.NewTransportError("eth_getTransactionReceipt failed", err)
	}
	if result == nil {
		return &Receipt{Found: false}, nil
	}
	return &Receipt{
		Found:       true,
		Success:     result.Status == 1,
		BlockNumber: uint64(result.BlockNumber),
	}, nil
}

func (c *ethClient) SendRawTransaction(ctx context.Context, rawTx []byte) (common.Hash, error) {
	var hash common.Hash
	if err := c.rpc.CallContext(ctx, &hash, "eth_sendRawTransaction", hexutil.Encode(rawTx)); err != nil {
		return common.Hash{}, relay.NewTransportError("eth_sendRawTransaction failed", err)
	}
	return hash, nil
}

// Dialer builds a Client per chain id, used by components that need to
// look up the right endpoint from the Config Resolver on demand.
type Dialer interface {
	Dial(ctx context.Context, chainID uint64) (Client, error)
}

// RPCURLResolver is the slice of the Config Resolver a Dialer needs.
type RPCURLResolver interface {
	RPCURL(chainID uint64) (string, bool)

	// StubMode reports RELAYX_STUB_MODE: every chain id dials to a
	// shared synthetic Stub client instead of a real JSON-RPC endpoint.
	StubMode() bool
}

// pooled is a Dialer that caches one Client per chain id for the process
// lifetime, matching spec.md §5's "shared per chain, reused across
// tasks" requirement.
type pooled struct {
	cfg   RPCURLResolver
	mu    sync.Mutex
	cache map[uint64]Client
	stub  Client
}

// NewPool returns a Dialer backed by cfg's rpc_url lookups. When
// cfg.StubMode() is true, Dial never reaches the network: it hands back
// one shared Stub client regardless of chain id or RPC configuration.
func NewPool(cfg RPCURLResolver) Dialer {
	return &pooled{cfg: cfg, cache: make(map[uint64]Client)}
}

func (p *pooled) Dial(ctx context.Context, chainID uint64) (Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cfg.StubMode() {
		if p.stub == nil {
			p.stub = NewStub()
		}
		return p.stub, nil
	}

	if c, ok := p.cache[chainID]; ok {
		return c, nil
	}
	url, ok := p.cfg.RPCURL(chainID)
	if !ok {
		return nil, relay.NewTransportError(fmt.Sprintf("no RPC URL configured for chain %d", chainID), nil)
	}
	c, err := Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	p.cache[chainID] = c
	return c, nil
}

// GasPriceWithFallback fetches the live gas price for chainID, falling
// back to fallbackHex on any dial or Chain Client failure — the 20 Gwei
// fallback behavior spec.md §4.E and §4.G both rely on.
func GasPriceWithFallback(ctx context.Context, d Dialer, chainID uint64, fallbackHex string) (string, *big.Int) {
	client, err := d.Dial(ctx, chainID)
	if err != nil {
		return fallbackHex, ParseWeiHex(fallbackHex)
	}
	v, err := client.GasPrice(ctx)
	if err != nil || v == nil {
		return fallbackHex, ParseWeiHex(fallbackHex)
	}
	return "0x" + v.Text(16), v
}

// GasPriceWithEtherscanFallback is GasPriceWithFallback with one extra
// tier: if the chain's own RPC is unreachable, it tries the Etherscan
// gas oracle (spec.md §6) before falling back to fallbackHex. apiKey
// empty skips the Etherscan tier entirely.
func GasPriceWithEtherscanFallback(ctx context.Context, d Dialer, chainID uint64, fallbackHex, apiKey, apiBase string) (string, *big.Int) {
	client, err := d.Dial(ctx, chainID)
	if err == nil {
		if v, err := client.GasPrice(ctx); err == nil && v != nil {
			return "0x" + v.Text(16), v
		}
	}
	if apiKey != "" {
		if v, ok := EtherscanGasPriceWei(ctx, apiBase, apiKey); ok {
			return "0x" + v.Text(16), v
		}
	}
	return fallbackHex, ParseWeiHex(fallbackHex)
}

// ParseWeiHex parses a 0x-prefixed hex wei value, returning zero if the
// string is malformed.
func ParseWeiHex(hexStr string) *big.Int {
	v := new(big.Int)
	v.SetString(strings.TrimPrefix(hexStr, "0x"), 16)
	return v
}

// BumpGasPriceHex parses a hex wei value and increases it by percent
// (e.g. 120 for a 20% bump), matching the original source's integer
// bump arithmetic (spec.md §4.G monitor step 2.d).
func BumpGasPriceHex(gasPriceHex string, percent int64) string {
	v := ParseWeiHex(gasPriceHex)
	bumped := new(big.Int).Div(new(big.Int).Mul(v, big.NewInt(percent)), big.NewInt(100))
	return "0x" + bumped.Text(16)
}
