// Package store implements the Store: a durable mapping from
// request-id to request record plus an append-only per-request
// resubmission log, following the key discipline of spec.md §4.D.
package store

import (
	"context"

	"github.com/relayx/relayer/src/relay"
)

// Store is the persistence contract every lifecycle component depends
// on. All methods are safe for concurrent use; the single-writer-per-id
// contract that makes the read-modify-write operations safe is enforced
// by the coordinator, not by Store itself (spec.md §5).
type Store interface {
	PutRequest(ctx context.Context, record *relay.RequestRecord) error
	GetRequest(ctx context.Context, id string) (*relay.RequestRecord, bool, error)

	// MutateStatus is the only way status changes. It no-ops (but logs)
	// if id is absent, and never moves a terminal status backward.
	MutateStatus(ctx context.Context, id string, status relay.Status, errMsg string) error
	MutateTxHash(ctx context.Context, id string, txHash string) error
	MutateNonce(ctx context.Context, id string, nonce uint64) error
	MutateGasPrice(ctx context.Context, id string, gasPriceHex string) error

	AppendResubmission(ctx context.Context, id string, chainID uint64, event relay.ResubmissionRecord) error
	ListResubmissions(ctx context.Context, id string) ([]relay.ResubmissionRecord, error)

	ScanRequests(ctx context.Context, limit int) ([]*relay.RequestRecord, error)
	Count(ctx context.Context) (uint64, error)
	CountByStatus(ctx context.Context, status relay.Status) (uint64, error)
}
