package relay

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/coregx/relay/model"
)

// memoryLogRepository is an in-memory RelayLogRepository mirroring the SQL
// adapter's semantics: unique idempotency keys on Create and a conditional
// claim for the PENDING → RETRYING transition.
type memoryLogRepository struct {
	mu   sync.Mutex
	logs map[string]model.RelayLog
}

func newMemoryLogRepository() *memoryLogRepository {
	return &memoryLogRepository{logs: make(map[string]model.RelayLog)}
}

func (r *memoryLogRepository) Load(_ context.Context, id string) (model.RelayLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rl, ok := r.logs[id]
	if !ok {
		return model.RelayLog{}, ErrNoData
	}
	return rl, nil
}

func (r *memoryLogRepository) FindByIdempotencyKey(_ context.Context, key string) (model.RelayLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rl := range r.logs {
		if rl.IdempotencyKey == key {
			return rl, nil
		}
	}
	return model.RelayLog{}, ErrNoData
}

func (r *memoryLogRepository) Create(_ context.Context, m *model.RelayLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rl := range r.logs {
		if rl.IdempotencyKey == m.IdempotencyKey {
			return NewErrorWithCause(ErrCodeConflict, "idempotency key already exists", ErrDuplicateKey)
		}
	}
	r.logs[m.ID] = *m
	return nil
}

func (r *memoryLogRepository) Update(_ context.Context, m *model.RelayLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.logs[m.ID]; !ok {
		return ErrNoData
	}
	r.logs[m.ID] = *m
	return nil
}

func (r *memoryLogRepository) ClaimAttempt(_ context.Context, id string, priorAttempts int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rl, ok := r.logs[id]
	if !ok {
		return false, nil
	}
	if rl.Status != model.StatusPending || rl.Attempts != priorAttempts {
		return false, nil
	}
	rl.Status = model.StatusRetrying
	rl.Attempts = priorAttempts + 1
	rl.UpdatedAt = time.Now()
	r.logs[id] = rl
	return true, nil
}

func (r *memoryLogRepository) FindDueRetries(_ context.Context, now time.Time, limit int) ([]model.RelayLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []model.RelayLog
	for _, rl := range r.logs {
		if rl.IsDue(now) {
			due = append(due, rl)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextRetryAt.Time.Before(due[j].NextRetryAt.Time)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	if len(due) == 0 {
		return nil, ErrNoData
	}
	return due, nil
}

// get returns the stored record directly, for assertions.
func (r *memoryLogRepository) get(id string) (model.RelayLog, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rl, ok := r.logs[id]
	return rl, ok
}

// put stores a record directly, for test setup.
func (r *memoryLogRepository) put(rl model.RelayLog) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logs[rl.ID] = rl
}

// memoryClientRepository is an in-memory ClientRepository.
type memoryClientRepository struct {
	mu      sync.Mutex
	clients map[string]model.Client
}

func newMemoryClientRepository() *memoryClientRepository {
	return &memoryClientRepository{clients: make(map[string]model.Client)}
}

func (r *memoryClientRepository) Load(_ context.Context, id string) (model.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[id]
	if !ok {
		return model.Client{}, ErrNoData
	}
	return c, nil
}

func (r *memoryClientRepository) FindByAPIKey(_ context.Context, apiKey string) (model.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.clients {
		if c.APIKey == apiKey && c.IsActive {
			return c, nil
		}
	}
	return model.Client{}, ErrNoData
}

func (r *memoryClientRepository) Create(_ context.Context, m *model.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.clients {
		if c.APIKey == m.APIKey {
			return NewErrorWithCause(ErrCodeConflict, "API key already exists", ErrDuplicateKey)
		}
	}
	r.clients[m.ID] = *m
	return nil
}

func (r *memoryClientRepository) Update(_ context.Context, m *model.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[m.ID]; !ok {
		return ErrNoData
	}
	r.clients[m.ID] = *m
	return nil
}

// scriptedGateway returns a scripted sequence of results; extra calls reuse
// the last entry. A nil entry means success.
type scriptedGateway struct {
	mu      sync.Mutex
	results []error
	calls   int
	panics  bool
}

func (g *scriptedGateway) Deliver(_ context.Context, _, _, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.panics {
		panic("gateway exploded")
	}

	idx := g.calls
	g.calls++
	if len(g.results) == 0 {
		return nil
	}
	if idx >= len(g.results) {
		idx = len(g.results) - 1
	}
	return g.results[idx]
}

func (g *scriptedGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// capturingNotifier counts notification calls.
type capturingNotifier struct {
	mu        sync.Mutex
	failures  int
	exhausted int
}

func (n *capturingNotifier) NotifyDeliveryFailure(_ context.Context, _ *model.RelayLog, _ error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures++
	return nil
}

func (n *capturingNotifier) NotifyDeliveryExhausted(_ context.Context, _ *model.RelayLog) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.exhausted++
	return nil
}

func (n *capturingNotifier) NotifyClientRegistered(_ context.Context, _ model.Client) error {
	return nil
}

func (n *capturingNotifier) NotifyClientDeactivated(_ context.Context, _ model.Client) error {
	return nil
}

func (n *capturingNotifier) counts() (failures, exhausted int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.failures, n.exhausted
}
