package rpcserver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayx/relayer/src/relay"
	"github.com/relayx/relayer/src/relay/store"
)

func TestHealthCheckCountsByStatus(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, st.PutRequest(ctx, &relay.RequestRecord{ID: "a", Status: relay.StatusPending}))
	require.NoError(t, st.PutRequest(ctx, &relay.RequestRecord{ID: "b", Status: relay.StatusProcessing}))
	require.NoError(t, st.PutRequest(ctx, &relay.RequestRecord{ID: "c", Status: relay.StatusCompleted}))
	require.NoError(t, st.PutRequest(ctx, &relay.RequestRecord{ID: "d", Status: relay.StatusFailed}))

	svc := NewHealthService(st, time.Now().Add(-time.Minute))

	resp, err := svc.Check(ctx)
	require.NoError(t, err)

	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, uint64(4), resp.TotalRequests)
	assert.Equal(t, uint64(2), resp.PendingRequests)
	assert.Equal(t, uint64(1), resp.CompletedRequests)
	assert.Equal(t, uint64(1), resp.FailedRequests)
	assert.GreaterOrEqual(t, resp.UptimeSeconds, uint64(59))
}

func TestHealthCheckOnEmptyStoreReportsZeroes(t *testing.T) {
	svc := NewHealthService(store.NewMemory(), time.Now())

	resp, err := svc.Check(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(0), resp.TotalRequests)
	assert.Equal(t, uint64(0), resp.PendingRequests)
}
