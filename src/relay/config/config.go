// Package config implements the Config Resolver: pure lookups over a
// merged tree of file JSON, environment variables, and CLI flags, with
// CLI taking precedence over env taking precedence over file.
package config

import (
	"encoding/json"
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/relayx/relayer/src/relay"
)

// chainlinkFeeds mirrors the JSON shape under the "chainlink" key:
// { "nativeUsd": {"1": "0x.."}, "tokenUsd": {"1": {"0xToken": "0xFeed"}} }
type chainlinkFeeds struct {
	NativeUSD map[string]string            `json:"nativeUsd"`
	TokenUSD  map[string]map[string]string `json:"tokenUsd"`
}

// fileTree is the shape of the optional RELAYX_CONFIG JSON document.
type fileTree struct {
	RPCs              map[string]string `json:"rpcs"`
	FeeCollector      string            `json:"feeCollector"`
	DefaultToken      string            `json:"defaultToken"`
	RelayerPrivateKey string            `json:"relayerPrivateKey"`
	Chainlink         chainlinkFeeds    `json:"chainlink"`
	HTTPAddress       string            `json:"http_address"`
	HTTPPort          uint16            `json:"http_port"`
	HTTPCors          string            `json:"http_cors"`
	LogLevel          string            `json:"log_level"`
	EtherscanAPIKey   string            `json:"etherscanApiKey"`
	EtherscanAPIBase  string            `json:"etherscanApiBase"`
	DisableSimulation bool              `json:"disableSimulation"`

	// flat chain-id -> url fallback shape: {"1": "https://...", ...}
	flat map[string]string
}

// Tree is the frozen, merged configuration. It is built once by Load
// and exposes read-only lookups; there is no public mutator.
type Tree struct {
	file fileTree

	dbPath    string
	rpcHost   string
	rpcPort   uint16
	relayers  []string

	httpAddress string
	httpPort    uint16
	httpCors    string
	logLevel    string

	privateKey string
	stubMode   bool
}

const defaultEtherscanBase = "https://api.etherscan.io/v2/api"

// Options carries the CLI-flag layer; main constructs this from
// flag.Parse() before calling Load.
type Options struct {
	ConfigPath        string
	DBPath            string
	RPCHost           string
	RPCPort           uint16
	Relayers          string
	HTTPAddress       string
	HTTPPort          uint16
	HTTPCors          string
	LogLevel          string
	RelayerPrivateKey string
}

// RegisterFlags wires Options fields to the standard flag package in the
// same style the DanDo385 geth lessons use for small service binaries.
func RegisterFlags(fs *flag.FlagSet) *Options {
	o := &Options{}
	fs.StringVar(&o.ConfigPath, "config", "", "path to JSON config file (or RELAYX_CONFIG)")
	fs.StringVar(&o.DBPath, "db-path", "./relayx_db", "durable store directory")
	fs.StringVar(&o.RPCHost, "rpc-host", "127.0.0.1", "unused placeholder, kept for CLI parity")
	fs.StringVar(&o.Relayers, "relayers", "", "comma separated relayer addresses")
	fs.StringVar(&o.HTTPAddress, "http-address", "", "HTTP bind address (or HTTP_ADDRESS)")
	fs.StringVar(&o.HTTPCors, "http-cors", "", "CORS origins, '*' or comma separated (or HTTP_CORS)")
	fs.StringVar(&o.LogLevel, "log-level", "", "log level (or LOG_LEVEL)")
	fs.StringVar(&o.RelayerPrivateKey, "relayer-private-key", "", "signing key (or RELAYX_PRIVATE_KEY)")
	fs.Func("http-port", "HTTP bind port (or HTTP_PORT)", func(v string) error {
		p, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return err
		}
		o.HTTPPort = uint16(p)
		return nil
	})
	return o
}

// Load merges the file (if any), environment, and CLI layers into a
// frozen Tree. CLI values win over env values, which win over file
// values — spec.md §6's authoritative override order.
func Load(opts *Options) (*Tree, error) {
	if opts == nil {
		opts = &Options{}
	}

	t := &Tree{
		dbPath:      "./relayx_db",
		rpcHost:     "127.0.0.1",
		rpcPort:     8545,
		httpAddress: "127.0.0.1",
		httpPort:    4937,
		httpCors:    "*",
		logLevel:    "debug",
	}

	path := opts.ConfigPath
	if path == "" {
		path = os.Getenv("RELAYX_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			var ft fileTree
			if jsonErr := json.Unmarshal(data, &ft); jsonErr == nil {
				t.file = ft
			}
			var flat map[string]string
			if jsonErr := json.Unmarshal(data, &flat); jsonErr == nil {
				t.file.flat = flat
			}
		}
	}

	if opts.DBPath != "" {
		t.dbPath = opts.DBPath
	}
	if opts.RPCHost != "" {
		t.rpcHost = opts.RPCHost
	}
	if opts.RPCPort != 0 {
		t.rpcPort = opts.RPCPort
	}
	if opts.Relayers != "" {
		t.relayers = splitAndTrim(opts.Relayers)
	}

	t.httpAddress = firstNonEmpty(opts.HTTPAddress, os.Getenv("HTTP_ADDRESS"), t.file.HTTPAddress, t.httpAddress)
	t.httpCors = firstNonEmpty(opts.HTTPCors, os.Getenv("HTTP_CORS"), t.file.HTTPCors, t.httpCors)
	t.logLevel = firstNonEmpty(opts.LogLevel, os.Getenv("LOG_LEVEL"), t.file.LogLevel, t.logLevel)

	if opts.HTTPPort != 0 {
		t.httpPort = opts.HTTPPort
	} else if p, err := strconv.ParseUint(os.Getenv("HTTP_PORT"), 10, 16); err == nil && p != 0 {
		t.httpPort = uint16(p)
	} else if t.file.HTTPPort != 0 {
		t.httpPort = t.file.HTTPPort
	}

	t.privateKey = firstNonEmpty(opts.RelayerPrivateKey, os.Getenv("RELAYX_PRIVATE_KEY"), t.file.RelayerPrivateKey)

	t.stubMode = parseBoolish(os.Getenv("RELAYX_STUB_MODE"))

	return t, nil
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		p := strings.TrimSpace(part)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseBoolish(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// DBPath is the directory backing the file store.
func (t *Tree) DBPath() string { return t.dbPath }

// HTTPAddress is the listener bind address.
func (t *Tree) HTTPAddress() string { return t.httpAddress }

// HTTPPort is the listener bind port.
func (t *Tree) HTTPPort() uint16 { return t.httpPort }

// HTTPCors is either "*" or a comma-separated origin list.
func (t *Tree) HTTPCors() string { return t.httpCors }

// CorsOrigins splits HTTPCors into the list go-ethereum's HTTP handler
// stack expects; "*" is passed through verbatim as a single-element
// wildcard entry.
func (t *Tree) CorsOrigins() []string {
	if t.httpCors == "" {
		return nil
	}
	if t.httpCors == "*" {
		return []string{"*"}
	}
	return splitAndTrim(t.httpCors)
}

// LogLevel is the configured slog level name.
func (t *Tree) LogLevel() string { return t.logLevel }

// StubMode reports whether RELAYX_STUB_MODE is set, bypassing all chain
// calls in favor of synthetic responses.
func (t *Tree) StubMode() bool { return t.stubMode }

// SignerKey returns the relayer's private key, if configured.
func (t *Tree) SignerKey() (string, bool) {
	return t.privateKey, t.privateKey != ""
}

// RPCURL looks up the RPC endpoint for chainID, accepting both the
// {"rpcs": {"1": "url"}} and flat {"1": "url"} JSON shapes.
func (t *Tree) RPCURL(chainID uint64) (string, bool) {
	key := strconv.FormatUint(chainID, 10)
	if url, ok := t.file.RPCs[key]; ok && url != "" {
		return url, true
	}
	if url, ok := t.file.flat[key]; ok && url != "" {
		return url, true
	}
	return "", false
}

// IsChainSupported mirrors spec.md's definition: a chain is supported
// iff an RPC URL is configured for it. In RELAYX_STUB_MODE every chain
// id is accepted, since no call ever reaches the configured endpoint.
func (t *Tree) IsChainSupported(chainID uint64) bool {
	if t.stubMode {
		return true
	}
	_, ok := t.RPCURL(chainID)
	return ok
}

// ChainlinkNativeUSD returns the native/USD aggregator address for chainID.
func (t *Tree) ChainlinkNativeUSD(chainID uint64) (string, bool) {
	key := strconv.FormatUint(chainID, 10)
	addr, ok := t.file.Chainlink.NativeUSD[key]
	return addr, ok && addr != ""
}

// ChainlinkTokenUSD returns the token/USD aggregator address for
// (chainID, token), comparing token case-insensitively.
func (t *Tree) ChainlinkTokenUSD(chainID uint64, token string) (string, bool) {
	key := strconv.FormatUint(chainID, 10)
	perChain, ok := t.file.Chainlink.TokenUSD[key]
	if !ok {
		return "", false
	}
	lower := strings.ToLower(token)
	for addr, feed := range perChain {
		if strings.ToLower(addr) == lower && feed != "" {
			return feed, true
		}
	}
	return "", false
}

// SupportedTokens returns the union of ERC-20 token addresses across all
// chains' chainlink.tokenUsd configuration, sorted and deduplicated.
func (t *Tree) SupportedTokens() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, perChain := range t.file.Chainlink.TokenUSD {
		for addr := range perChain {
			lower := strings.ToLower(addr)
			if _, dup := seen[lower]; dup {
				continue
			}
			seen[lower] = struct{}{}
			out = append(out, addr)
		}
	}
	return out
}

// FeeCollector returns the configured fee-collector address, preferring
// RELAYX_FEE_COLLECTOR, then the file's feeCollector, then the built-in
// default.
func (t *Tree) FeeCollector() string {
	if v := os.Getenv("RELAYX_FEE_COLLECTOR"); v != "" {
		return v
	}
	if t.file.FeeCollector != "" {
		return t.file.FeeCollector
	}
	return relay.DefaultFeeCollector
}

// DefaultToken returns the configured default ERC-20 payment token, if any.
func (t *Tree) DefaultToken() (string, bool) {
	if v := os.Getenv("RELAYX_DEFAULT_TOKEN"); v != "" {
		return v, true
	}
	if t.file.DefaultToken != "" {
		return t.file.DefaultToken, true
	}
	return "", false
}

// IsSimulationDisabled reports the disable_simulation policy flag.
func (t *Tree) IsSimulationDisabled() bool { return t.file.DisableSimulation }

// EtherscanAPIKey returns the optional alternative gas-price source key.
func (t *Tree) EtherscanAPIKey() (string, bool) {
	if v := os.Getenv("ETHERSCAN_API_KEY"); v != "" {
		return v, true
	}
	if t.file.EtherscanAPIKey != "" {
		return t.file.EtherscanAPIKey, true
	}
	return "", false
}

// EtherscanAPIBase returns the Etherscan API base URL, defaulting to v2.
func (t *Tree) EtherscanAPIBase() string {
	if v := os.Getenv("ETHERSCAN_API_BASE"); v != "" {
		return v
	}
	if t.file.EtherscanAPIBase != "" {
		return t.file.EtherscanAPIBase
	}
	return defaultEtherscanBase
}
