// Package coordinator implements the Lifecycle Coordinator: intake for
// both single-chain and multichain submissions, plus the background
// monitor loop (monitor.go) and status query mapping (status.go).
package coordinator

import (
	"context"
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/relayx/relayer/internal/telemetry"
	"github.com/relayx/relayer/src/relay"
	"github.com/relayx/relayer/src/relay/authlist"
	"github.com/relayx/relayer/src/relay/rpcclient"
	"github.com/relayx/relayer/src/relay/simulate"
	"github.com/relayx/relayer/src/relay/store"
	"github.com/relayx/relayer/src/relay/submitter"
)

// ConfigResolver is the slice of the Config Resolver the coordinator
// needs for intake decisions.
type ConfigResolver interface {
	IsChainSupported(chainID uint64) bool
	SupportedTokens() []string
	FeeCollector() string

	// StubMode reports RELAYX_STUB_MODE: broadcast results are
	// auto-advanced straight to Completed since there is no real chain
	// for the monitor loop to poll a receipt from.
	StubMode() bool
}

// SubmitInput is one transaction's worth of intake parameters, shared by
// both the single-chain and multichain paths.
type SubmitInput struct {
	To                string
	Data              string
	ChainID           uint64
	Payment           relay.PaymentMode
	AuthorizationList string
}

// SubmitResult is what the RPC Facade returns per submitted transaction.
type SubmitResult struct {
	ChainID uint64
	ID      string
}

// Coordinator owns the intake and monitor algorithms of spec.md §4.G. It
// holds no lock of its own across a suspension point; the store and the
// per-chain submit locks are the only synchronization points.
type Coordinator struct {
	store store.Store
	pool  rpcclient.Dialer
	sim   *simulate.Simulator
	sub   *submitter.Submitter
	cfg   ConfigResolver
	audit *telemetry.AuditLogger

	chainLocksMu sync.Mutex
	chainLocks   map[uint64]*sync.Mutex
}

// SetAuditLogger attaches an audit trail sink. It is optional: a nil
// receiver or a Coordinator with no logger attached silently skips
// auditing, so callers in tests and stub mode never need one.
func (c *Coordinator) SetAuditLogger(a *telemetry.AuditLogger) {
	c.audit = a
}

func (c *Coordinator) logAudit(requestID string, chainID uint64, operation, status, detail string) {
	if c.audit == nil {
		return
	}
	if err := c.audit.LogEvent(telemetry.AuditEntry{
		ID:        uuid.NewString(),
		RequestID: requestID,
		ChainID:   chainID,
		Timestamp: time.Now(),
		Operation: operation,
		Status:    status,
		Detail:    detail,
	}); err != nil {
		log.Warn("failed to write audit entry", "requestId", requestID, "operation", operation, "err", err)
	}
}

// New wires the coordinator's dependencies together.
func New(st store.Store, pool rpcclient.Dialer, sim *simulate.Simulator, sub *submitter.Submitter, cfg ConfigResolver) *Coordinator {
	return &Coordinator{
		store:      st,
		pool:       pool,
		sim:        sim,
		sub:        sub,
		cfg:        cfg,
		chainLocks: make(map[uint64]*sync.Mutex),
	}
}

// lockForChain serializes Submitter calls per chain so two concurrent
// intakes never race on the relayer's nonce for the same chain.
func (c *Coordinator) lockForChain(chainID uint64) *sync.Mutex {
	c.chainLocksMu.Lock()
	defer c.chainLocksMu.Unlock()
	l, ok := c.chainLocks[chainID]
	if !ok {
		l = &sync.Mutex{}
		c.chainLocks[chainID] = l
	}
	return l
}

// SendTransaction runs the single-chain intake path (spec.md §4.G).
func (c *Coordinator) SendTransaction(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	gasLimit, gasPriceHex, err := c.validateAndSimulate(ctx, in, true)
	if err != nil {
		c.logAudit("", in.ChainID, "INTAKE", "FAILURE", err.Error())
		return nil, err
	}

	id := uuid.NewString()
	record := &relay.RequestRecord{
		ID:       id,
		ChainID:  in.ChainID,
		To:       in.To,
		Data:     in.Data,
		Payment:  in.Payment,
		GasLimit: gasLimit,
		GasPrice: gasPriceHex,
		Status:   relay.StatusPending,
	}
	if err := c.store.PutRequest(ctx, record); err != nil {
		return nil, relay.ErrInternal("failed to persist request", err)
	}
	c.logAudit(id, in.ChainID, "INTAKE", "SUCCESS", "")

	c.broadcastAndAdvance(ctx, id, in, gasLimit, gasPriceHex)

	final, found, err := c.store.GetRequest(ctx, id)
	if err == nil && found && final.Status == relay.StatusFailed {
		return nil, relay.ErrInternal("broadcast failed: "+final.ErrorMessage, nil)
	}
	return &SubmitResult{ChainID: in.ChainID, ID: id}, nil
}

// MultichainInput is the multichain intake's request shape: one shared
// payment capability validated once, then each transaction processed
// sequentially (spec.md §4.G, "independent best-effort batch").
type MultichainInput struct {
	Transactions    []SubmitInput
	PaymentChainID  uint64
	PaymentCapability relay.PaymentMode
}

// SendTransactionMultichain runs the multichain intake path.
func (c *Coordinator) SendTransactionMultichain(ctx context.Context, in MultichainInput) ([]SubmitResult, error) {
	if len(in.Transactions) == 0 {
		return nil, relay.ErrInvalidParams("at least one transaction is required")
	}
	if !c.cfg.IsChainSupported(in.PaymentChainID) {
		return nil, relay.ErrInvalidParams("payment chain id is not supported")
	}
	if err := c.validatePaymentCapability(in.PaymentCapability); err != nil {
		return nil, err
	}

	results := make([]SubmitResult, 0, len(in.Transactions))
	for i, tx := range in.Transactions {
		tx.Payment = in.PaymentCapability
		if tx.To == "" || tx.Data == "" {
			return nil, relay.ErrInvalidParams("transaction " + strconv.Itoa(i) + " missing to/data")
		}
		if !c.cfg.IsChainSupported(tx.ChainID) {
			return nil, relay.ErrInvalidParams("transaction " + strconv.Itoa(i) + " targets an unsupported chain")
		}

		// The multichain path always falls back to the default gas limit
		// on simulation failure rather than rejecting the row — a
		// deliberately more lenient policy than the single-chain path.
		gasLimit, gasPriceHex, err := c.validateAndSimulate(ctx, tx, false)
		if err != nil {
			return nil, err
		}

		id := uuid.NewString()
		record := &relay.RequestRecord{
			ID:       id,
			ChainID:  tx.ChainID,
			To:       tx.To,
			Data:     tx.Data,
			Payment:  tx.Payment,
			GasLimit: gasLimit,
			GasPrice: gasPriceHex,
			Status:   relay.StatusPending,
		}
		if err := c.store.PutRequest(ctx, record); err != nil {
			return nil, relay.ErrInternal("failed to persist request", err)
		}
		c.logAudit(id, tx.ChainID, "INTAKE", "SUCCESS", "")

		// best-effort: a broadcast failure here is recorded on the row
		// but does not abort the remaining transactions in the batch.
		c.broadcastAndAdvance(ctx, id, tx, gasLimit, gasPriceHex)

		results = append(results, SubmitResult{ChainID: tx.ChainID, ID: id})
	}
	return results, nil
}

// validateAndSimulate runs intake steps 1-4 (chain support, authorization
// list, simulation, payment variant) and returns the gas limit/price to
// persist. strictSimulation controls whether a simulation failure is
// fatal (single-chain path) or falls back to the default gas limit
// (multichain path).
func (c *Coordinator) validateAndSimulate(ctx context.Context, in SubmitInput, strictSimulation bool) (gasLimit uint64, gasPriceHex string, err error) {
	if !c.cfg.IsChainSupported(in.ChainID) {
		return 0, "", relay.ErrInvalidParams("unsupported chain id")
	}

	if err := authlist.Validate(in.AuthorizationList, in.ChainID, common.HexToAddress(in.To)); err != nil {
		return 0, "", err
	}

	_, gasPriceWei := rpcclient.GasPriceWithFallback(ctx, c.pool, in.ChainID, relay.DefaultGasPriceHex)
	gasPriceHex = "0x" + gasPriceWei.Text(16)

	gasLimit, simErr := c.sim.Simulate(ctx, in.To, in.Data, in.ChainID)
	if simErr != nil {
		if strictSimulation {
			return 0, "", simErr
		}
		gasLimit = relay.DefaultSimulationGasLimit
	}

	if err := c.validatePaymentCapability(in.Payment); err != nil {
		return 0, "", err
	}
	if in.Payment.Type == relay.PaymentNative {
		if err := c.checkNativeBalance(ctx, in, gasPriceWei, gasLimit); err != nil {
			return 0, "", err
		}
	}

	return gasLimit, gasPriceHex, nil
}

func (c *Coordinator) validatePaymentCapability(p relay.PaymentMode) error {
	switch p.Type {
	case relay.PaymentNative:
		if !strings.EqualFold(p.Token, relay.ZeroAddress) && p.Token != "" {
			return relay.ErrInvalidParams("native payment must use the zero address token")
		}
	case relay.PaymentErc20:
		if len(p.Token) != 42 || !strings.HasPrefix(p.Token, "0x") {
			return relay.ErrInvalidParams("erc20 payment token must be a 20-byte hex address")
		}
		if !tokenSupported(c.cfg.SupportedTokens(), p.Token) {
			return relay.ErrUnsupportedToken("payment token is not in the supported set")
		}
	case relay.PaymentSponsored:
		// no token check
	default:
		return relay.ErrUnsupportedCapability("unknown payment capability: " + string(p.Type))
	}
	return nil
}

func (c *Coordinator) checkNativeBalance(ctx context.Context, in SubmitInput, gasPriceWei *big.Int, gasLimit uint64) error {
	client, err := c.pool.Dial(ctx, in.ChainID)
	if err != nil {
		return relay.ErrInvalidParams("no chain client available to verify balance")
	}
	required := new(big.Int).Mul(gasPriceWei, new(big.Int).SetUint64(gasLimit))
	if required.BitLen() > 256 {
		return relay.ErrInternal("gas_price * gas_limit overflows uint256", nil)
	}
	balance, err := client.BalanceAt(ctx, c.sub.Address())
	if err != nil {
		return relay.ErrInvalidParams("failed to read relayer balance")
	}
	if balance.Cmp(required) < 0 {
		return relay.ErrInvalidParams("relayer balance is insufficient to cover gas_price * gas_limit")
	}
	return nil
}

func tokenSupported(supported []string, token string) bool {
	for _, s := range supported {
		if strings.EqualFold(s, token) {
			return true
		}
	}
	return false
}

// broadcastAndAdvance calls the Submitter and advances the record's
// status, per spec.md §4.G.7: Processing + tx hash on success, Failed +
// message on failure. It always logs the outcome via the store; it
// never returns an error directly (the caller decides what to surface).
func (c *Coordinator) broadcastAndAdvance(ctx context.Context, id string, in SubmitInput, gasLimit uint64, gasPriceHex string) {
	lock := c.lockForChain(in.ChainID)
	lock.Lock()
	defer lock.Unlock()

	raw, err := decodeCalldata(in.Data)
	if err != nil {
		_ = c.store.MutateStatus(ctx, id, relay.StatusFailed, err.Error())
		c.logAudit(id, in.ChainID, "BROADCAST", "FAILURE", err.Error())
		return
	}

	hash, nonce, err := c.sub.Broadcast(ctx, in.To, raw, in.ChainID, gasLimit, gasPriceHex)
	if err != nil {
		log.Warn("broadcast failed", "id", id, "err", err)
		_ = c.store.MutateStatus(ctx, id, relay.StatusFailed, err.Error())
		c.logAudit(id, in.ChainID, "BROADCAST", "FAILURE", err.Error())
		return
	}

	if err := c.store.MutateTxHash(ctx, id, hash.Hex()); err != nil {
		log.Warn("failed to persist tx hash", "id", id, "err", err)
	}
	if err := c.store.MutateNonce(ctx, id, nonce); err != nil {
		log.Warn("failed to persist broadcast nonce", "id", id, "err", err)
	}
	if err := c.store.MutateStatus(ctx, id, relay.StatusProcessing, ""); err != nil {
		log.Warn("failed to advance status to processing", "id", id, "err", err)
	}
	c.logAudit(id, in.ChainID, "BROADCAST", "SUCCESS", hash.Hex())

	if c.cfg.StubMode() {
		// no real chain exists for the monitor to poll a receipt from,
		// so a stub broadcast completes immediately.
		if err := c.store.MutateStatus(ctx, id, relay.StatusCompleted, ""); err != nil {
			log.Warn("stub mode: failed to advance status to completed", "id", id, "err", err)
		}
		c.logAudit(id, in.ChainID, "STATUS_CHANGE", "SUCCESS", "stub mode auto-completed")
	}
}

func decodeCalldata(data string) ([]byte, error) {
	out, err := hex.DecodeString(strings.TrimPrefix(data, "0x"))
	if err != nil {
		return nil, relay.ErrInvalidParams("calldata is not valid hex")
	}
	return out, nil
}
