package rpcclient

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

var etherscanHTTPClient = &http.Client{Timeout: 5 * time.Second}

type etherscanGasOracleResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  struct {
		ProposeGasPrice string `json:"ProposeGasPrice"`
	} `json:"result"`
}

// EtherscanGasPriceWei queries the Etherscan v2 gas oracle endpoint
// (spec.md §6's ETHERSCAN_API_KEY, "optional alternative gas-price
// source") and returns the proposed gas price in wei. It is a tier
// below the chain's own eth_gasPrice, consulted only when the RPC
// endpoint is unreachable or unconfigured.
func EtherscanGasPriceWei(ctx context.Context, apiBase, apiKey string) (*big.Int, bool) {
	u, err := url.Parse(apiBase)
	if err != nil {
		return nil, false
	}
	q := u.Query()
	q.Set("module", "gastracker")
	q.Set("action", "gasoracle")
	q.Set("apikey", apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, false
	}

	resp, err := etherscanHTTPClient.Do(req)
	if err != nil {
		log.Warn("etherscan gas oracle request failed", "err", err)
		return nil, false
	}
	defer resp.Body.Close()

	var body etherscanGasOracleResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.Warn("etherscan gas oracle response decode failed", "err", err)
		return nil, false
	}
	if body.Status != "1" || body.Result.ProposeGasPrice == "" {
		log.Warn("etherscan gas oracle returned no price", "message", body.Message)
		return nil, false
	}

	gwei, ok := new(big.Float).SetString(body.Result.ProposeGasPrice)
	if !ok {
		return nil, false
	}
	wei, _ := new(big.Float).Mul(gwei, big.NewFloat(1e9)).Int(nil)
	return wei, true
}
