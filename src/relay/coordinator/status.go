package coordinator

import (
	"context"

	"github.com/google/uuid"

	"github.com/relayx/relayer/src/relay"
)

// StatusResult is one row of a relayer_getStatus response (spec.md §4.G
// "Status query").
type StatusResult struct {
	ID                string
	HTTPStatus        int
	Receipts          []relay.ResubmissionRecord // populated only where the monitor has recorded one
	Resubmissions     []relay.ResubmissionRecord
	OffchainFailure   []string
	// OnchainFailure is always empty: spec.md §4.G reports a revert as a
	// single offchainFailure entry via record.ErrorMessage below, the
	// same field the monitor sets on a failed TransactionReceipt. There
	// is no separate onchain failure channel to populate it from.
	OnchainFailure []string
}

// statusToHTTP maps a terminal/non-terminal request status onto the
// HTTP-shaped integer spec.md names.
func statusToHTTP(s relay.Status) int {
	switch s {
	case relay.StatusPending, relay.StatusProcessing:
		return 201
	case relay.StatusCompleted:
		return 200
	case relay.StatusFailed:
		return 500
	default:
		return 500
	}
}

// GetStatus resolves one status row per id, preserving input order. A
// malformed id yields status 400; an unknown id yields status 404.
func (c *Coordinator) GetStatus(ctx context.Context, ids []string) []StatusResult {
	results := make([]StatusResult, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			results = append(results, StatusResult{
				ID:              id,
				HTTPStatus:      400,
				OffchainFailure: []string{"invalid id format"},
			})
			continue
		}

		record, found, err := c.store.GetRequest(ctx, id)
		if err != nil {
			results = append(results, StatusResult{
				ID:              id,
				HTTPStatus:      500,
				OffchainFailure: []string{"internal storage error"},
			})
			continue
		}
		if !found {
			results = append(results, StatusResult{ID: id, HTTPStatus: 404})
			continue
		}

		row := StatusResult{
			ID:         id,
			HTTPStatus: statusToHTTP(record.Status),
		}
		if record.ErrorMessage != "" {
			row.OffchainFailure = append(row.OffchainFailure, record.ErrorMessage)
		}
		resubs, err := c.store.ListResubmissions(ctx, id)
		if err == nil {
			row.Resubmissions = resubs
		}
		results = append(results, row)
	}
	return results
}
