// Package rpcserver is the RPC Facade: a go-ethereum/rpc.Server exposing
// the "relayer" and "health" namespaces over HTTP. This file holds the
// wire (JSON) request/response shapes; relayer_service.go and
// health_service.go hold the method bodies.
package rpcserver

// PaymentCapability is the wire shape of a SendTransaction request's
// payment variant — a flat struct rather than Go's tagged PaymentMode,
// since the wire format carries an optional relayer-call payload
// (Data) that never reaches the coordinator.
type PaymentCapability struct {
	Type  string `json:"type"`
	Token string `json:"token"`
	Data  string `json:"data,omitempty"`
}

// SendTransactionCapabilities wraps the single payment capability the
// wire format nests a request's payment mode under.
type SendTransactionCapabilities struct {
	Payment PaymentCapability `json:"payment"`
}

// SendTransactionRequest is relayer_sendTransaction's single params[0]
// object.
type SendTransactionRequest struct {
	To                string                      `json:"to"`
	Data              string                      `json:"data"`
	Capabilities      SendTransactionCapabilities `json:"capabilities"`
	ChainID           string                      `json:"chainId"`
	AuthorizationList string                      `json:"authorizationList"`
}

// SendTransactionResult is one row of a SendTransactionResponse.
type SendTransactionResult struct {
	ChainID string `json:"chainId"`
	ID      string `json:"id"`
}

// SendTransactionResponse wraps a single-element result array, per the
// method's always-singular intake contract.
type SendTransactionResponse struct {
	Result []SendTransactionResult `json:"result"`
}

// MultichainTransactionInput is one row of a multichain request's
// transactions array.
type MultichainTransactionInput struct {
	To      string `json:"to"`
	Data    string `json:"data"`
	ChainID string `json:"chainId"`
}

// SendTransactionMultichainRequest is relayer_sendTransactionMultichain's
// single params[0] object.
type SendTransactionMultichainRequest struct {
	Transactions   []MultichainTransactionInput `json:"transactions"`
	Capabilities   SendTransactionCapabilities  `json:"capabilities"`
	PaymentChainID string                       `json:"paymentChainId"`
}

// SendTransactionMultichainResponse is the multichain counterpart of
// SendTransactionResponse, one row per transaction in request order.
type SendTransactionMultichainResponse struct {
	Result []SendTransactionResult `json:"result"`
}

// GetStatusRequest is relayer_getStatus's single params[0] object.
type GetStatusRequest struct {
	IDs []string `json:"ids"`
}

// OffchainFailure and OnchainFailure are both single-field message
// wrappers, kept distinct from a bare string to leave room for the
// wire format to add fields later without breaking existing clients.
type OffchainFailure struct {
	Message string `json:"message"`
}

type OnchainFailure struct {
	Message string `json:"message"`
}

// ResubmissionResult is one entry of a status row's resubmission log.
type ResubmissionResult struct {
	TransactionHash string `json:"transactionHash"`
	ChainID         uint64 `json:"chainId"`
	StatusCode      int    `json:"statusCode"`
}

// StatusResult is one row of a relayer_getStatus response.
type StatusResult struct {
	Version         string               `json:"version"`
	ID              string               `json:"id"`
	Status          int                  `json:"status"`
	Receipts        []ResubmissionResult `json:"receipts"`
	Resubmissions   []ResubmissionResult `json:"resubmissions"`
	OffchainFailure []OffchainFailure    `json:"offchainFailure"`
	OnchainFailure  []OnchainFailure     `json:"onchainFailure"`
}

// GetStatusResponse carries one StatusResult per requested id, in the
// same order the caller supplied.
type GetStatusResponse struct {
	Result []StatusResult `json:"result"`
}

// HealthResponse is health_check's response.
type HealthResponse struct {
	Status            string `json:"status"`
	Timestamp         string `json:"timestamp"`
	UptimeSeconds     uint64 `json:"uptimeSeconds"`
	TotalRequests     uint64 `json:"totalRequests"`
	PendingRequests   uint64 `json:"pendingRequests"`
	CompletedRequests uint64 `json:"completedRequests"`
	FailedRequests    uint64 `json:"failedRequests"`
}

// Payment is one entry of relayer_getCapabilities' payment list — the
// wire projection of relay.PaymentMode, always carrying both fields
// even though Token is meaningless for the sponsored variant.
type Payment struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"`
}

// Capabilities wraps the payment capability list.
type Capabilities struct {
	Payment []Payment `json:"payment"`
}

// GetCapabilitiesResponse is relayer_getCapabilities' response.
type GetCapabilitiesResponse struct {
	Capabilities Capabilities `json:"capabilities"`
}

// ExchangeRateRequest is shared by relayer_getExchangeRate and
// relayer_getFeeData's params[0] object.
type ExchangeRateRequest struct {
	Token   string `json:"token"`
	ChainID string `json:"chainId"`
}

// TokenInfo describes the priced token in an exchange-rate result.
type TokenInfo struct {
	Decimals int     `json:"decimals"`
	Address  string  `json:"address"`
	Symbol   *string `json:"symbol,omitempty"`
	Name     *string `json:"name,omitempty"`
}

// ExchangeRateQuote is the priced-rate payload of a successful result.
type ExchangeRateQuote struct {
	Rate  float64   `json:"rate"`
	Token TokenInfo `json:"token"`
}

// ExchangeRateErrorBody is the error payload of a failed result.
type ExchangeRateErrorBody struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// ExchangeRateResultItem is an untagged union: exactly one of Quote or
// Error is populated, mirroring the source's success/error enum.
type ExchangeRateResultItem struct {
	Quote                *ExchangeRateQuote     `json:"quote,omitempty"`
	GasPrice             string                 `json:"gasPrice,omitempty"`
	MaxFeePerGas         *string                `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *string                `json:"maxPriorityFeePerGas,omitempty"`
	FeeCollector         string                 `json:"feeCollector,omitempty"`
	Expiry               uint64                 `json:"expiry,omitempty"`
	Error                *ExchangeRateErrorBody `json:"error,omitempty"`
}

// ExchangeRateResponse wraps a single-element result array shared by
// relayer_getExchangeRate and relayer_getFeeData.
type ExchangeRateResponse struct {
	Result []ExchangeRateResultItem `json:"result"`
}

// QuoteRequest is relayer_getQuote's single params[0] object. ChainID
// is optional; a missing value defaults to mainnet (chain id 1),
// matching the observed source's "quick quote" behavior.
type QuoteRequest struct {
	To      string  `json:"to"`
	Data    string  `json:"data"`
	ChainID *string `json:"chainId,omitempty"`
}

// RelayerCall is one leg of the calls a client must execute to fulfil
// the quote (always just the original to/data today).
type RelayerCall struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

// QuoteInner is the priced portion of a QuoteResponse.
type QuoteInner struct {
	Fee   uint64    `json:"fee"`
	Rate  float64   `json:"rate"`
	Token TokenInfo `json:"token"`
}

// QuoteResponse is relayer_getQuote's response. RevertReason is always
// empty today; the field exists for wire-compatibility with a future
// simulate-before-quote policy.
type QuoteResponse struct {
	Quote        QuoteInner    `json:"quote"`
	RelayerCalls []RelayerCall `json:"relayerCalls"`
	FeeCollector string        `json:"feeCollector"`
	RevertReason string        `json:"revertReason"`
}
