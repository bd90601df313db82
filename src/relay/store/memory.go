package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/relayx/relayer/src/relay"
)

// resubKey identifies one resubmission entry by the composite key
// spec.md §4.D names: resubmission:{id}:{chain}:{hash}.
type resubKey struct {
	id      string
	chainID uint64
	hash    string
}

// Memory is a sync.RWMutex-guarded in-memory Store, used by tests and
// RELAYX_STUB_MODE. Modeled on the teacher's MemoryTxStore.
type Memory struct {
	mu         sync.RWMutex
	requests   map[string]*relay.RequestRecord
	order      []string // insertion order, for scan-with-limit determinism
	resubs     map[string][]relay.ResubmissionRecord
	resubOrder map[resubKey]struct{}
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		requests:   make(map[string]*relay.RequestRecord),
		resubs:     make(map[string][]relay.ResubmissionRecord),
		resubOrder: make(map[resubKey]struct{}),
	}
}

func copyRecord(r *relay.RequestRecord) *relay.RequestRecord {
	return r.Clone()
}

func (m *Memory) PutRequest(ctx context.Context, record *relay.RequestRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.requests[record.ID]; !exists {
		m.order = append(m.order, record.ID)
	}
	stamped := copyRecord(record)
	ts := now()
	stamped.CreatedAt = ts
	stamped.UpdatedAt = ts
	m.requests[record.ID] = stamped
	return nil
}

func (m *Memory) GetRequest(ctx context.Context, id string) (*relay.RequestRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.requests[id]
	if !ok {
		return nil, false, nil
	}
	return copyRecord(r), true, nil
}

func (m *Memory) MutateStatus(ctx context.Context, id string, status relay.Status, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok {
		log.Warn("mutate_status on unknown request", "id", id)
		return nil
	}
	if r.Status.IsTerminal() {
		return nil
	}
	r.Status = status
	r.ErrorMessage = errMsg
	r.UpdatedAt = now()
	return nil
}

func (m *Memory) MutateTxHash(ctx context.Context, id string, txHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok {
		log.Warn("mutate_tx_hash on unknown request", "id", id)
		return nil
	}
	r.TransactionHash = txHash
	r.UpdatedAt = now()
	return nil
}

func (m *Memory) MutateNonce(ctx context.Context, id string, nonce uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok {
		log.Warn("mutate_nonce on unknown request", "id", id)
		return nil
	}
	r.Nonce = nonce
	r.UpdatedAt = now()
	return nil
}

func (m *Memory) MutateGasPrice(ctx context.Context, id string, gasPriceHex string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok {
		log.Warn("mutate_gas_price on unknown request", "id", id)
		return nil
	}
	r.GasPrice = gasPriceHex
	r.UpdatedAt = now()
	return nil
}

func (m *Memory) AppendResubmission(ctx context.Context, id string, chainID uint64, event relay.ResubmissionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := resubKey{id: id, chainID: chainID, hash: event.TransactionHash}
	if _, dup := m.resubOrder[key]; dup {
		return nil
	}
	m.resubOrder[key] = struct{}{}
	m.resubs[id] = append(m.resubs[id], event)
	return nil
}

func (m *Memory) ListResubmissions(ctx context.Context, id string) ([]relay.ResubmissionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	src := m.resubs[id]
	out := make([]relay.ResubmissionRecord, len(src))
	copy(out, src)
	return out, nil
}

func (m *Memory) ScanRequests(ctx context.Context, limit int) ([]*relay.RequestRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, len(m.order))
	copy(ids, m.order)
	sort.Strings(ids)

	out := make([]*relay.RequestRecord, 0, len(ids))
	for _, id := range ids {
		if limit > 0 && len(out) >= limit {
			break
		}
		if r, ok := m.requests[id]; ok {
			out = append(out, copyRecord(r))
		}
	}
	return out, nil
}

func (m *Memory) Count(ctx context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.requests)), nil
}

func (m *Memory) CountByStatus(ctx context.Context, status relay.Status) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count uint64
	for _, r := range m.requests {
		if r.Status == status {
			count++
		}
	}
	return count, nil
}

func now() time.Time { return time.Now().UTC() }
