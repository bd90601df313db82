package rpcserver

import (
	"context"
	"time"

	"github.com/relayx/relayer/src/relay"
	"github.com/relayx/relayer/src/relay/store"
)

// HealthService implements the "health" JSON-RPC namespace.
type HealthService struct {
	store     store.Store
	startedAt time.Time
}

// NewHealthService returns a HealthService bound to st, reporting
// uptime relative to startedAt (the process start time, passed in from
// main rather than taken via time.Now() so the component stays
// deterministic and testable).
func NewHealthService(st store.Store, startedAt time.Time) *HealthService {
	return &HealthService{store: st, startedAt: startedAt}
}

// Check handles health_check.
func (h *HealthService) Check(ctx context.Context) (*HealthResponse, error) {
	total, err := h.store.Count(ctx)
	if err != nil {
		return nil, relay.ErrInternal("failed to count requests", err)
	}
	pending, err := h.store.CountByStatus(ctx, relay.StatusPending)
	if err != nil {
		return nil, relay.ErrInternal("failed to count pending requests", err)
	}
	processing, err := h.store.CountByStatus(ctx, relay.StatusProcessing)
	if err != nil {
		return nil, relay.ErrInternal("failed to count processing requests", err)
	}
	completed, err := h.store.CountByStatus(ctx, relay.StatusCompleted)
	if err != nil {
		return nil, relay.ErrInternal("failed to count completed requests", err)
	}
	failed, err := h.store.CountByStatus(ctx, relay.StatusFailed)
	if err != nil {
		return nil, relay.ErrInternal("failed to count failed requests", err)
	}

	return &HealthResponse{
		Status:            "healthy",
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds:     uint64(time.Since(h.startedAt).Seconds()),
		TotalRequests:     total,
		PendingRequests:   pending + processing,
		CompletedRequests: completed,
		FailedRequests:    failed,
	}, nil
}
