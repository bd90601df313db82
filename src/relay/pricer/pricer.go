// Package pricer implements the Pricer: token-per-gas quoting backed by
// Chainlink aggregator reads for ERC-20 tokens, with a native-token path
// that always succeeds.
package pricer

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/relayx/relayer/src/relay"
	"github.com/relayx/relayer/src/relay/rpcclient"
)

// decimalsSelector and latestAnswerSelector are the two Chainlink
// aggregator reads this component ever performs (spec.md §4.E).
var (
	decimalsSelector     = []byte{0x31, 0x3c, 0xe5, 0x67}
	latestAnswerSelector = []byte{0x50, 0xd2, 0x5b, 0xcd}
)

const (
	defaultGasPriceWei = "0x4a817c800" // 20 Gwei, mirrors config.DefaultGasPriceHex
	quoteTTL           = 600 * time.Second
	cacheTTL           = 5 * time.Second
	defaultDisplayDecimals = 18
)

// FeedResolver exposes only the Chainlink + fee-collector config surface
// the Pricer needs, satisfied by *config.Tree.
type FeedResolver interface {
	ChainlinkNativeUSD(chainID uint64) (string, bool)
	ChainlinkTokenUSD(chainID uint64, token string) (string, bool)
	FeeCollector() string

	// EtherscanAPIKey/EtherscanAPIBase are spec.md §6's optional
	// alternative gas-price source, consulted when the chain's own RPC
	// endpoint doesn't answer eth_gasPrice.
	EtherscanAPIKey() (string, bool)
	EtherscanAPIBase() string
}

// Quote is a token-per-gas result. Callers that need "success or error
// item, never an exception" (spec.md §4.E) should check Err first.
type Quote struct {
	Rate            *big.Float
	TokenSymbol     string
	TokenName       string
	TokenDecimals   int
	GasPriceWeiHex  string
	FeeCollector    string
	Expiry          time.Time
	Err             error
}

type cacheEntry struct {
	value    *big.Int
	decimals int
	fetched  time.Time
}

// Pricer resolves token-per-gas rates for a (chain, token) pair.
type Pricer struct {
	pool  rpcclient.Dialer
	feeds FeedResolver

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// New returns a Pricer bound to pool for chain reads and feeds for
// Chainlink feed address lookup.
func New(pool rpcclient.Dialer, feeds FeedResolver) *Pricer {
	return &Pricer{
		pool:  pool,
		feeds: feeds,
		cache: make(map[string]cacheEntry),
	}
}

// Quote computes the token-per-gas rate for chainID/token. token ==
// relay.ZeroAddress selects the native-token path, which always
// succeeds; any other address is priced via Chainlink feeds.
func (p *Pricer) Quote(ctx context.Context, chainID uint64, token string) Quote {
	expiry := time.Now().UTC().Add(quoteTTL)
	feeCollector := p.feeds.FeeCollector()

	etherscanKey, _ := p.feeds.EtherscanAPIKey()
	gasPriceHex, gasPriceWei := rpcclient.GasPriceWithEtherscanFallback(ctx, p.pool, chainID, defaultGasPriceWei, etherscanKey, p.feeds.EtherscanAPIBase())

	if strings.EqualFold(token, relay.ZeroAddress) || token == "" {
		rate := new(big.Float).Quo(new(big.Float).SetInt(gasPriceWei), big.NewFloat(1e18))
		return Quote{
			Rate:           rate,
			TokenSymbol:    "ETH",
			TokenName:      "Ethereum",
			TokenDecimals:  18,
			GasPriceWeiHex: gasPriceHex,
			FeeCollector:   feeCollector,
			Expiry:         expiry,
		}
	}

	nativeFeed, ok := p.feeds.ChainlinkNativeUSD(chainID)
	if !ok {
		return Quote{Err: fmt.Errorf("oracle feed not configured for chain %d", chainID)}
	}
	tokenFeed, ok := p.feeds.ChainlinkTokenUSD(chainID, token)
	if !ok {
		return Quote{Err: fmt.Errorf("oracle feed not configured for token %s on chain %d", token, chainID)}
	}

	client, err := p.pool.Dial(ctx, chainID)
	if err != nil {
		return Quote{Err: fmt.Errorf("rpc not configured for chain %d: %w", chainID, err)}
	}

	var nativePrice, tokenPrice *big.Int
	var nativeDecimals, tokenDecimals int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, d, err := p.readFeed(gctx, client, chainID, "native", nativeFeed)
		if err != nil {
			return err
		}
		nativePrice, nativeDecimals = v, d
		return nil
	})
	g.Go(func() error {
		v, d, err := p.readFeed(gctx, client, chainID, "token:"+strings.ToLower(token), tokenFeed)
		if err != nil {
			return err
		}
		tokenPrice, tokenDecimals = v, d
		return nil
	})
	if err := g.Wait(); err != nil {
		return Quote{Err: fmt.Errorf("failed to read oracle price: %w", err)}
	}
	if nativePrice.Sign() <= 0 || tokenPrice.Sign() <= 0 {
		return Quote{Err: fmt.Errorf("failed to read oracle price: non-positive answer")}
	}

	nativeUSD := new(big.Float).Quo(new(big.Float).SetInt(nativePrice), pow10(nativeDecimals))
	tokenUSD := new(big.Float).Quo(new(big.Float).SetInt(tokenPrice), pow10(tokenDecimals))

	nativePerGas := new(big.Float).Quo(new(big.Float).SetInt(gasPriceWei), big.NewFloat(1e18))
	rate := new(big.Float).Mul(nativePerGas, new(big.Float).Quo(nativeUSD, tokenUSD))

	displayDecimals, err := p.readDecimals(ctx, client, token)
	if err != nil {
		displayDecimals = defaultDisplayDecimals
	}

	return Quote{
		Rate:           rate,
		TokenDecimals:  displayDecimals,
		GasPriceWeiHex: gasPriceHex,
		FeeCollector:   feeCollector,
		Expiry:         expiry,
	}
}

// readFeed performs a decimals()+latestAnswer() read pair against a
// Chainlink aggregator address, honoring the short TTL cache.
func (p *Pricer) readFeed(ctx context.Context, client rpcclient.Client, chainID uint64, cacheTag, feedAddr string) (*big.Int, int, error) {
	key := fmt.Sprintf("%d:%s:%s", chainID, cacheTag, strings.ToLower(feedAddr))

	p.mu.Lock()
	if entry, ok := p.cache[key]; ok && time.Since(entry.fetched) < cacheTTL {
		p.mu.Unlock()
		return entry.value, entry.decimals, nil
	}
	p.mu.Unlock()

	addr := common.HexToAddress(feedAddr)

	decBytes, err := client.Call(ctx, rpcclient.CallMsg{To: addr, Data: decimalsSelector})
	if err != nil || len(decBytes) == 0 {
		return nil, 0, fmt.Errorf("read decimals from %s: %w", feedAddr, err)
	}
	decimals := int(decBytes[len(decBytes)-1])

	ansBytes, err := client.Call(ctx, rpcclient.CallMsg{To: addr, Data: latestAnswerSelector})
	if err != nil || len(ansBytes) < 32 {
		return nil, 0, fmt.Errorf("read latestAnswer from %s: %w", feedAddr, err)
	}
	answer := signed128FromWord(ansBytes[len(ansBytes)-32:])
	if answer.Sign() <= 0 {
		return nil, 0, fmt.Errorf("latestAnswer from %s is not positive", feedAddr)
	}

	p.mu.Lock()
	p.cache[key] = cacheEntry{value: answer, decimals: decimals, fetched: time.Now()}
	p.mu.Unlock()

	return answer, decimals, nil
}

// readDecimals reads the ERC-20 decimals() of the token itself, used
// only for display purposes, independent of the Chainlink feed cache.
func (p *Pricer) readDecimals(ctx context.Context, client rpcclient.Client, token string) (int, error) {
	out, err := client.Call(ctx, rpcclient.CallMsg{To: common.HexToAddress(token), Data: decimalsSelector})
	if err != nil || len(out) == 0 {
		return 0, fmt.Errorf("read token decimals: %w", err)
	}
	return int(out[len(out)-1]), nil
}

// signed128FromWord interprets the low 16 bytes of a 32-byte big-endian
// EVM word as a signed 128-bit integer (spec.md §4.E).
func signed128FromWord(word []byte) *big.Int {
	low16 := word[len(word)-16:]
	v := new(big.Int).SetBytes(low16)
	if low16[0]&0x80 != 0 {
		bound := new(big.Int).Lsh(big.NewInt(1), 128)
		v.Sub(v, bound)
	}
	return v
}

func pow10(n int) *big.Float {
	if n <= 0 {
		return big.NewFloat(1)
	}
	return new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil))
}
