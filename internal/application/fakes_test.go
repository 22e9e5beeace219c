package application

import (
	"context"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/retail-platform/inventory-engine/internal/domain"
	"github.com/retail-platform/inventory-engine/pkg/logging"
	"github.com/retail-platform/inventory-engine/pkg/metrics"
	"github.com/retail-platform/inventory-engine/pkg/outbox"
)

func newTestLogger() *logging.Logger {
	return logging.New(&logging.Config{
		Level:       logging.LevelError,
		ServiceName: "test",
		Output:      io.Discard,
	})
}

func newTestMetrics() *metrics.Metrics {
	return metrics.New(metrics.DefaultConfig("test"))
}

func mustTestMoney(t *testing.T, amount string) domain.Money {
	t.Helper()
	d, err := decimal.NewFromString(amount)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", amount, err)
	}
	m, err := domain.NewMoney(d, "USD")
	if err != nil {
		t.Fatalf("NewMoney: %v", err)
	}
	return m
}

// fakeLotRepository is an in-memory lot store with the same revision-gated
// write semantics as the real one. conflictsLeft forces ApplyDraws to report
// revision conflicts, and failWith forces every call to fail.
type fakeLotRepository struct {
	mu            sync.Mutex
	lots          map[string]*domain.InventoryLot
	conflictsLeft int
	failWith      error
	applyCalls    int
}

func newFakeLotRepository(lots ...*domain.InventoryLot) *fakeLotRepository {
	repo := &fakeLotRepository{lots: make(map[string]*domain.InventoryLot)}
	for _, lot := range lots {
		copied := *lot
		repo.lots[lot.ID] = &copied
	}
	return repo
}

func (r *fakeLotRepository) Insert(_ context.Context, lots []*domain.InventoryLot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	for _, lot := range lots {
		copied := *lot
		r.lots[lot.ID] = &copied
	}
	return nil
}

func (r *fakeLotRepository) FindByID(_ context.Context, id string) (*domain.InventoryLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	lot, ok := r.lots[id]
	if !ok {
		return nil, nil
	}
	copied := *lot
	return &copied, nil
}

func (r *fakeLotRepository) FindByPurchaseRun(_ context.Context, purchaseRunID string) (domain.Lots, error) {
	return r.filter(func(l *domain.InventoryLot) bool { return l.PurchaseRunID == purchaseRunID })
}

func (r *fakeLotRepository) FindByProduct(_ context.Context, productID string) (domain.Lots, error) {
	return r.filter(func(l *domain.InventoryLot) bool { return l.ProductID == productID })
}

func (r *fakeLotRepository) FindAvailableByProduct(_ context.Context, productID string) (domain.Lots, error) {
	lots, err := r.filter(func(l *domain.InventoryLot) bool {
		return l.ProductID == productID && l.RemainingQuantity > 0
	})
	if err != nil {
		return nil, err
	}
	domain.SortFIFO(lots)
	return lots, nil
}

func (r *fakeLotRepository) ApplyDraws(_ context.Context, plan *domain.DrawPlan, allocatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applyCalls++
	if r.failWith != nil {
		return r.failWith
	}
	if r.conflictsLeft > 0 {
		r.conflictsLeft--
		return domain.ErrRevisionConflict
	}

	// verify every revision gate before touching anything
	for _, draw := range plan.Draws {
		stored, ok := r.lots[draw.Lot.ID]
		if !ok || stored.Revision != draw.Lot.Revision {
			return domain.ErrRevisionConflict
		}
		if stored.RemainingQuantity < draw.Quantity {
			return domain.ErrRevisionConflict
		}
	}
	for _, draw := range plan.Draws {
		stored := r.lots[draw.Lot.ID]
		stored.RemainingQuantity -= draw.Quantity
		stored.Revision++
		stored.UpdatedAt = allocatedAt
	}
	return nil
}

func (r *fakeLotRepository) filter(keep func(*domain.InventoryLot) bool) (domain.Lots, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	var result domain.Lots
	for _, lot := range r.lots {
		if keep(lot) {
			copied := *lot
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// snapshot returns remaining quantities keyed by lot id
func (r *fakeLotRepository) snapshot() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	state := make(map[string]int, len(r.lots))
	for id, lot := range r.lots {
		state[id] = lot.RemainingQuantity
	}
	return state
}

type fakeOutboxRepository struct {
	mu       sync.Mutex
	saved    []*outbox.OutboxEvent
	failWith error
}

func (r *fakeOutboxRepository) Save(_ context.Context, event *outbox.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	r.saved = append(r.saved, event)
	return nil
}

func (r *fakeOutboxRepository) SaveAll(ctx context.Context, events []*outbox.OutboxEvent) error {
	for _, event := range events {
		if err := r.Save(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeOutboxRepository) FetchPending(_ context.Context, _ int) ([]*outbox.OutboxEvent, error) {
	return nil, nil
}

func (r *fakeOutboxRepository) MarkPublished(_ context.Context, _ string) error { return nil }

func (r *fakeOutboxRepository) MarkFailed(_ context.Context, _ string, _ error) error { return nil }

type fakeSaleLineReader struct {
	lines    []*domain.SaleLine
	failWith error
}

func (r *fakeSaleLineReader) FindByPurchaseRun(_ context.Context, purchaseRunID string) ([]*domain.SaleLine, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	var result []*domain.SaleLine
	for _, line := range r.lines {
		if len(line.AllocationsForRun(purchaseRunID)) > 0 {
			result = append(result, line)
		}
	}
	return result, nil
}

type fakePurchaseRunReader struct {
	runs     map[string]*domain.PurchaseRun
	failWith error
}

func (r *fakePurchaseRunReader) FindByID(_ context.Context, id string) (*domain.PurchaseRun, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	if r.runs == nil {
		return nil, nil
	}
	return r.runs[id], nil
}
