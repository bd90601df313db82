package coordinator

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/relayx/relayer/src/relay"
	"github.com/relayx/relayer/src/relay/rpcclient"
)

const (
	monitorInterval  = 10 * time.Second
	monitorSnapshotN = 1000
	gasBumpPercent   = 120 // 20% bump, expressed as the multiplier used by rpcclient.BumpGasPriceHex
)

// RunMonitor blocks, running the background receipt-polling loop until
// ctx is cancelled (spec.md §4.G "Monitor"). Callers run this in its own
// goroutine.
func (c *Coordinator) RunMonitor(ctx context.Context) {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

func (c *Coordinator) tick(ctx context.Context) {
	records, err := c.store.ScanRequests(ctx, monitorSnapshotN)
	if err != nil {
		log.Warn("monitor snapshot failed", "err", err)
		return
	}

	for _, r := range records {
		if r.Status.IsTerminal() {
			continue
		}
		if r.Status != relay.StatusPending && r.Status != relay.StatusProcessing {
			continue
		}
		if r.TransactionHash == "" {
			// stale Pending without a hash: intake will progress or fail
			// it; this is an operational alarm, not a code recovery path.
			continue
		}
		c.pollOne(ctx, r)
	}
}

// pollOne applies spec.md §4.G monitor steps 2.a-2.d to a single record.
func (c *Coordinator) pollOne(ctx context.Context, r *relay.RequestRecord) {
	client, err := c.pool.Dial(ctx, r.ChainID)
	if err != nil {
		log.Warn("monitor: no chain client available", "id", r.ID, "chainId", r.ChainID, "err", err)
		return
	}

	receipt, err := client.TransactionReceipt(ctx, common.HexToHash(r.TransactionHash))
	if err != nil {
		log.Warn("monitor: receipt fetch failed", "id", r.ID, "err", err)
		return
	}

	if receipt.Found {
		if receipt.Success {
			_ = c.store.MutateStatus(ctx, r.ID, relay.StatusCompleted, "")
			c.logAudit(r.ID, r.ChainID, "STATUS_CHANGE", "SUCCESS", "completed")
		} else {
			_ = c.store.MutateStatus(ctx, r.ID, relay.StatusFailed, "onchain revert")
			c.logAudit(r.ID, r.ChainID, "STATUS_CHANGE", "FAILURE", "onchain revert")
		}
		return
	}

	c.resubmitWithBump(ctx, r)
}

// resubmitWithBump bumps the gas price relative to the record's stored
// price (the stricter reading of the "monotonically non-decreasing
// broadcast price" invariant, see SPEC_FULL.md §9.1) and re-enters the
// Submitter with the same to/data/gas_limit.
func (c *Coordinator) resubmitWithBump(ctx context.Context, r *relay.RequestRecord) {
	_, livePriceWei := rpcclient.GasPriceWithFallback(ctx, c.pool, r.ChainID, relay.DefaultGasPriceHex)
	bumpedFromStored := rpcclient.BumpGasPriceHex(r.GasPrice, gasBumpPercent)

	newPriceHex := bumpedFromStored
	if livePriceWei.Cmp(rpcclient.ParseWeiHex(bumpedFromStored)) > 0 {
		newPriceHex = "0x" + livePriceWei.Text(16)
	}

	raw, err := decodeCalldata(r.Data)
	if err != nil {
		_ = c.store.MutateStatus(ctx, r.ID, relay.StatusFailed, err.Error())
		c.logAudit(r.ID, r.ChainID, "RESUBMIT", "FAILURE", err.Error())
		return
	}

	lock := c.lockForChain(r.ChainID)
	lock.Lock()
	defer lock.Unlock()

	hash, nonce, err := c.sub.Broadcast(ctx, r.To, raw, r.ChainID, r.GasLimit, newPriceHex)
	if err != nil {
		log.Warn("monitor: resubmission failed", "id", r.ID, "err", err)
		_ = c.store.MutateStatus(ctx, r.ID, relay.StatusFailed, err.Error())
		c.logAudit(r.ID, r.ChainID, "RESUBMIT", "FAILURE", err.Error())
		return
	}
	if err := c.store.MutateNonce(ctx, r.ID, nonce); err != nil {
		log.Warn("monitor: failed to persist bumped nonce", "id", r.ID, "err", err)
	}

	if err := c.store.AppendResubmission(ctx, r.ID, r.ChainID, relay.ResubmissionRecord{
		TransactionHash: hash.Hex(),
		ChainID:         r.ChainID,
		StatusCode:      201,
	}); err != nil {
		log.Warn("monitor: failed to append resubmission", "id", r.ID, "err", err)
	}
	if err := c.store.MutateTxHash(ctx, r.ID, hash.Hex()); err != nil {
		log.Warn("monitor: failed to persist bumped tx hash", "id", r.ID, "err", err)
	}
	if err := c.store.MutateGasPrice(ctx, r.ID, newPriceHex); err != nil {
		log.Warn("monitor: failed to persist bumped gas price", "id", r.ID, "err", err)
	}
	if err := c.store.MutateStatus(ctx, r.ID, relay.StatusProcessing, ""); err != nil {
		log.Warn("monitor: failed to re-advance status to processing", "id", r.ID, "err", err)
	}
	c.logAudit(r.ID, r.ChainID, "RESUBMIT", "SUCCESS", hash.Hex())
}
