package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/relayx/relayer/src/relay"
)

// onDiskShape is the whole-file JSON representation persisted atomically
// after every mutation, mirroring the teacher's FileTxStore discipline.
type onDiskShape struct {
	Requests      map[string]*relay.RequestRecord          `json:"requests"`
	Order         []string                                 `json:"order"`
	Resubmissions map[string][]relay.ResubmissionRecord     `json:"resubmissions"`
}

// File is a durable Store rooted at a directory (db_path); the whole
// map is loaded once at startup and rewritten via write-temp-then-rename
// after every mutation, exactly the teacher's storage/file.go pattern.
type File struct {
	mu   sync.Mutex
	path string
	data onDiskShape
}

// NewFile opens (or creates) a file-backed store under dir.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	f := &File{
		path: filepath.Join(dir, "relayx.json"),
		data: onDiskShape{
			Requests:      make(map[string]*relay.RequestRecord),
			Resubmissions: make(map[string][]relay.ResubmissionRecord),
		},
	}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) load() error {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read store file: %w", err)
	}
	var shape onDiskShape
	if err := json.Unmarshal(raw, &shape); err != nil {
		return fmt.Errorf("parse store file: %w", err)
	}
	if shape.Requests == nil {
		shape.Requests = make(map[string]*relay.RequestRecord)
	}
	if shape.Resubmissions == nil {
		shape.Resubmissions = make(map[string][]relay.ResubmissionRecord)
	}
	f.data = shape
	return nil
}

// persist writes the whole store atomically: write to a temp file in the
// same directory, then rename over the real path. Caller must hold f.mu.
func (f *File) persist() error {
	raw, err := json.Marshal(f.data)
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0600); err != nil {
		return fmt.Errorf("write temp store file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("rename temp store file: %w", err)
	}
	return nil
}

func (f *File) PutRequest(ctx context.Context, record *relay.RequestRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.data.Requests[record.ID]; !exists {
		f.data.Order = append(f.data.Order, record.ID)
	}
	stamped := record.Clone()
	ts := time.Now().UTC()
	stamped.CreatedAt = ts
	stamped.UpdatedAt = ts
	f.data.Requests[record.ID] = stamped
	return f.persist()
}

func (f *File) GetRequest(ctx context.Context, id string) (*relay.RequestRecord, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.data.Requests[id]
	if !ok {
		return nil, false, nil
	}
	return r.Clone(), true, nil
}

func (f *File) MutateStatus(ctx context.Context, id string, status relay.Status, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.data.Requests[id]
	if !ok {
		log.Warn("mutate_status on unknown request", "id", id)
		return nil
	}
	if r.Status.IsTerminal() {
		return nil
	}
	r.Status = status
	r.ErrorMessage = errMsg
	r.UpdatedAt = time.Now().UTC()
	return f.persist()
}

func (f *File) MutateTxHash(ctx context.Context, id string, txHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.data.Requests[id]
	if !ok {
		log.Warn("mutate_tx_hash on unknown request", "id", id)
		return nil
	}
	r.TransactionHash = txHash
	r.UpdatedAt = time.Now().UTC()
	return f.persist()
}

func (f *File) MutateNonce(ctx context.Context, id string, nonce uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.data.Requests[id]
	if !ok {
		log.Warn("mutate_nonce on unknown request", "id", id)
		return nil
	}
	r.Nonce = nonce
	r.UpdatedAt = time.Now().UTC()
	return f.persist()
}

func (f *File) MutateGasPrice(ctx context.Context, id string, gasPriceHex string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.data.Requests[id]
	if !ok {
		log.Warn("mutate_gas_price on unknown request", "id", id)
		return nil
	}
	r.GasPrice = gasPriceHex
	r.UpdatedAt = time.Now().UTC()
	return f.persist()
}

func (f *File) AppendResubmission(ctx context.Context, id string, chainID uint64, event relay.ResubmissionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.data.Resubmissions[id] {
		if existing.TransactionHash == event.TransactionHash && existing.ChainID == chainID {
			return nil
		}
	}
	f.data.Resubmissions[id] = append(f.data.Resubmissions[id], event)
	return f.persist()
}

func (f *File) ListResubmissions(ctx context.Context, id string) ([]relay.ResubmissionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	src := f.data.Resubmissions[id]
	out := make([]relay.ResubmissionRecord, len(src))
	copy(out, src)
	return out, nil
}

func (f *File) ScanRequests(ctx context.Context, limit int) ([]*relay.RequestRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]string, len(f.data.Order))
	copy(ids, f.data.Order)
	sort.Strings(ids)

	out := make([]*relay.RequestRecord, 0, len(ids))
	for _, id := range ids {
		if limit > 0 && len(out) >= limit {
			break
		}
		if r, ok := f.data.Requests[id]; ok {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (f *File) Count(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.data.Requests)), nil
}

func (f *File) CountByStatus(ctx context.Context, status relay.Status) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var count uint64
	for _, r := range f.data.Requests {
		if r.Status == status {
			count++
		}
	}
	return count, nil
}
