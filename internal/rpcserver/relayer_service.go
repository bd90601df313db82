package rpcserver

import (
	"context"
	"encoding/hex"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/relayx/relayer/src/relay"
	"github.com/relayx/relayer/src/relay/coordinator"
	"github.com/relayx/relayer/src/relay/pricer"
	"github.com/relayx/relayer/src/relay/rpcclient"
)

// RelayerService implements the "relayer" JSON-RPC namespace. Each
// exported method takes exactly one params[0] struct (an optional
// leading context.Context is injected by the codec), which is what
// makes go-ethereum's RPC server auto-expose them as
// relayer_sendTransaction, relayer_getStatus, and so on.
type RelayerService struct {
	coord  *coordinator.Coordinator
	pricer *pricer.Pricer
	pool   rpcclient.Dialer
	cfg    ConfigResolver
}

// ConfigResolver is the slice of the Config Resolver the RPC Facade
// needs beyond what the coordinator already wraps.
type ConfigResolver interface {
	SupportedTokens() []string
	DefaultToken() (string, bool)
	FeeCollector() string
}

// NewRelayerService wires the relayer namespace to its dependencies.
func NewRelayerService(coord *coordinator.Coordinator, pc *pricer.Pricer, pool rpcclient.Dialer, cfg ConfigResolver) *RelayerService {
	return &RelayerService{coord: coord, pricer: pc, pool: pool, cfg: cfg}
}

func parseChainID(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

func paymentFromWire(p PaymentCapability) relay.PaymentMode {
	return relay.PaymentMode{Type: relay.PaymentType(p.Type), Token: p.Token}
}

// SendTransaction handles relayer_sendTransaction.
func (s *RelayerService) SendTransaction(ctx context.Context, req SendTransactionRequest) (*SendTransactionResponse, error) {
	chainID, err := parseChainID(req.ChainID)
	if err != nil {
		return nil, relay.ErrInvalidParams("chainId is not a valid integer")
	}

	result, err := s.coord.SendTransaction(ctx, coordinator.SubmitInput{
		To:                req.To,
		Data:              req.Data,
		ChainID:           chainID,
		Payment:           paymentFromWire(req.Capabilities.Payment),
		AuthorizationList: req.AuthorizationList,
	})
	if err != nil {
		return nil, err
	}

	return &SendTransactionResponse{Result: []SendTransactionResult{
		{ChainID: req.ChainID, ID: result.ID},
	}}, nil
}

// SendTransactionMultichain handles relayer_sendTransactionMultichain.
func (s *RelayerService) SendTransactionMultichain(ctx context.Context, req SendTransactionMultichainRequest) (*SendTransactionMultichainResponse, error) {
	paymentChainID, err := parseChainID(req.PaymentChainID)
	if err != nil {
		return nil, relay.ErrInvalidParams("paymentChainId is not a valid integer")
	}

	txs := make([]coordinator.SubmitInput, 0, len(req.Transactions))
	// original chain-id strings are kept alongside the parsed values so
	// the response can echo the caller's exact wire representation back,
	// rather than re-rendering the internally-parsed uint64.
	originalChainIDs := make([]string, 0, len(req.Transactions))
	for _, tx := range req.Transactions {
		chainID, err := parseChainID(tx.ChainID)
		if err != nil {
			return nil, relay.ErrInvalidParams("transaction chainId is not a valid integer")
		}
		txs = append(txs, coordinator.SubmitInput{To: tx.To, Data: tx.Data, ChainID: chainID})
		originalChainIDs = append(originalChainIDs, tx.ChainID)
	}

	results, err := s.coord.SendTransactionMultichain(ctx, coordinator.MultichainInput{
		Transactions:      txs,
		PaymentChainID:    paymentChainID,
		PaymentCapability: paymentFromWire(req.Capabilities.Payment),
	})
	if err != nil {
		return nil, err
	}

	out := make([]SendTransactionResult, len(results))
	for i, r := range results {
		out[i] = SendTransactionResult{ChainID: originalChainIDs[i], ID: r.ID}
	}
	return &SendTransactionMultichainResponse{Result: out}, nil
}

// GetStatus handles relayer_getStatus.
func (s *RelayerService) GetStatus(ctx context.Context, req GetStatusRequest) (*GetStatusResponse, error) {
	rows := s.coord.GetStatus(ctx, req.IDs)

	out := make([]StatusResult, len(rows))
	for i, row := range rows {
		offchain := make([]OffchainFailure, 0, len(row.OffchainFailure))
		for _, m := range row.OffchainFailure {
			offchain = append(offchain, OffchainFailure{Message: m})
		}
		onchain := make([]OnchainFailure, 0, len(row.OnchainFailure))
		for _, m := range row.OnchainFailure {
			onchain = append(onchain, OnchainFailure{Message: m})
		}
		receipts := make([]ResubmissionResult, 0, len(row.Receipts))
		for _, r := range row.Receipts {
			receipts = append(receipts, ResubmissionResult{TransactionHash: r.TransactionHash, ChainID: r.ChainID, StatusCode: r.StatusCode})
		}
		resubs := make([]ResubmissionResult, 0, len(row.Resubmissions))
		for _, r := range row.Resubmissions {
			resubs = append(resubs, ResubmissionResult{TransactionHash: r.TransactionHash, ChainID: r.ChainID, StatusCode: r.StatusCode})
		}

		out[i] = StatusResult{
			Version:         "2.0.0",
			ID:              row.ID,
			Status:          row.HTTPStatus,
			Receipts:        receipts,
			Resubmissions:   resubs,
			OffchainFailure: offchain,
			OnchainFailure:  onchain,
		}
	}
	return &GetStatusResponse{Result: out}, nil
}

// GetCapabilities handles relayer_getCapabilities. The payment list is
// always native + sponsored, plus one erc20 entry per configured
// supported token (falling back to the configured default token, then
// a hardcoded USDC address, when none are configured).
func (s *RelayerService) GetCapabilities(ctx context.Context) (*GetCapabilitiesResponse, error) {
	tokens := s.cfg.SupportedTokens()
	if len(tokens) == 0 {
		if def, ok := s.cfg.DefaultToken(); ok {
			tokens = []string{def}
		} else {
			tokens = []string{"0x036CbD53842c5426634e7929541eC2318f3dCF7e"}
		}
	}

	payments := make([]Payment, 0, len(tokens)+2)
	payments = append(payments, Payment{Type: "native", Token: relay.ZeroAddress})
	for _, tok := range tokens {
		payments = append(payments, Payment{Type: "erc20", Token: tok})
	}
	payments = append(payments, Payment{Type: "sponsored"})

	return &GetCapabilitiesResponse{Capabilities: Capabilities{Payment: payments}}, nil
}

func quoteToWireItem(chainIDStr, token string, q pricer.Quote) ExchangeRateResultItem {
	if q.Err != nil {
		return ExchangeRateResultItem{Error: &ExchangeRateErrorBody{ID: chainIDStr, Message: q.Err.Error()}}
	}
	rate, _ := q.Rate.Float64()
	var symbol, name *string
	if q.TokenSymbol != "" {
		symbol = &q.TokenSymbol
	}
	if q.TokenName != "" {
		name = &q.TokenName
	}
	return ExchangeRateResultItem{
		Quote: &ExchangeRateQuote{
			Rate: rate,
			Token: TokenInfo{
				Decimals: q.TokenDecimals,
				Address:  token,
				Symbol:   symbol,
				Name:     name,
			},
		},
		GasPrice:     q.GasPriceWeiHex,
		FeeCollector: q.FeeCollector,
		Expiry:       uint64(q.Expiry.Unix()),
	}
}

// GetExchangeRate handles relayer_getExchangeRate.
func (s *RelayerService) GetExchangeRate(ctx context.Context, req ExchangeRateRequest) (*ExchangeRateResponse, error) {
	return s.quoteRate(ctx, req)
}

// GetFeeData handles relayer_getFeeData, which shares its business logic
// with relayer_getExchangeRate (the two differ only by method name on
// the wire; the original service builds both from the same routine).
func (s *RelayerService) GetFeeData(ctx context.Context, req ExchangeRateRequest) (*ExchangeRateResponse, error) {
	return s.quoteRate(ctx, req)
}

func (s *RelayerService) quoteRate(ctx context.Context, req ExchangeRateRequest) (*ExchangeRateResponse, error) {
	chainID, err := parseChainID(req.ChainID)
	if err != nil {
		return &ExchangeRateResponse{Result: []ExchangeRateResultItem{
			{Error: &ExchangeRateErrorBody{ID: req.ChainID, Message: "invalid chainId"}},
		}}, nil
	}
	q := s.pricer.Quote(ctx, chainID, req.Token)
	return &ExchangeRateResponse{Result: []ExchangeRateResultItem{quoteToWireItem(req.ChainID, req.Token, q)}}, nil
}

// GetQuote handles relayer_getQuote. Pricing is native-only (see
// SPEC_FULL.md §9.3): the fee is always denominated in the chain's
// native gas token, never in the caller's chosen ERC-20 payment token.
func (s *RelayerService) GetQuote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	chainID := uint64(1)
	if req.ChainID != nil {
		if parsed, err := parseChainID(*req.ChainID); err == nil {
			chainID = parsed
		}
	}

	q := s.pricer.Quote(ctx, chainID, relay.ZeroAddress)
	rate, _ := q.Rate.Float64()
	gasPriceWei := rpcclient.ParseWeiHex(q.GasPriceWeiHex)

	gasLimit := s.estimateGasForQuote(ctx, req.To, req.Data, chainID)

	feeBig := new(big.Int).Mul(gasPriceWei, new(big.Int).SetUint64(gasLimit))
	fee := uint64(math.MaxUint64)
	if feeBig.IsUint64() {
		fee = feeBig.Uint64()
	}

	return &QuoteResponse{
		Quote: QuoteInner{
			Fee:  fee,
			Rate: rate,
			Token: TokenInfo{
				Decimals: 18,
				Address:  relay.ZeroAddress,
				Symbol:   strPtr("ETH"),
				Name:     strPtr("Ethereum"),
			},
		},
		RelayerCalls: []RelayerCall{{To: req.To, Data: req.Data}},
		FeeCollector: q.FeeCollector,
		RevertReason: "",
	}, nil
}

// estimateGasForQuote estimates gas for an arbitrary call, independent
// of the Simulator's executeWithRelayer selector check — a quote may be
// requested for any call shape, not just relayer-wrapped ones. Falls
// back to a plain-transfer gas limit on any failure.
func (s *RelayerService) estimateGasForQuote(ctx context.Context, to, data string, chainID uint64) uint64 {
	const plainTransferGas = 21000

	client, err := s.pool.Dial(ctx, chainID)
	if err != nil {
		return plainTransferGas
	}
	calldata, err := hex.DecodeString(strings.TrimPrefix(data, "0x"))
	if err != nil {
		return plainTransferGas
	}
	gas, err := client.EstimateGas(ctx, rpcclient.CallMsg{To: common.HexToAddress(to), Data: calldata})
	if err != nil {
		return plainTransferGas
	}
	return gas
}

func strPtr(s string) *string { return &s }
