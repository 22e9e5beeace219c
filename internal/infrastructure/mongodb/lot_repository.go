package mongodb

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/retail-platform/inventory-engine/internal/domain"
	"github.com/retail-platform/inventory-engine/pkg/kafka"
	"github.com/retail-platform/inventory-engine/pkg/logging"
	"github.com/retail-platform/inventory-engine/pkg/metrics"
	"github.com/retail-platform/inventory-engine/pkg/mongodb"
	"github.com/retail-platform/inventory-engine/pkg/outbox"
	outboxmongo "github.com/retail-platform/inventory-engine/pkg/outbox/mongodb"
)

const lotCollection = "inventory_lots"

// LotRepository is the MongoDB implementation of domain.LotRepository. All
// store access runs behind a circuit breaker; an open breaker or an
// unreachable server surfaces as domain.ErrStoreUnavailable.
type LotRepository struct {
	client     *mongodb.Client
	collection *mongo.Collection
	outbox     *outboxmongo.OutboxRepository
	breaker    *mongodb.Breaker
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewLotRepository creates a new LotRepository and bootstraps its indexes
func NewLotRepository(client *mongodb.Client, logger *logging.Logger, m *metrics.Metrics) *LotRepository {
	repo := &LotRepository{
		client:     client,
		collection: client.Collection(lotCollection),
		outbox:     outboxmongo.NewOutboxRepository(client.Database()),
		breaker:    mongodb.NewBreaker(lotCollection),
		logger:     logger.WithComponent("lot-repository"),
		metrics:    m,
	}
	repo.ensureIndexes(context.Background())
	return repo
}

// OutboxRepository exposes the outbox sharing this repository's database so
// the publisher drains the same collection the allocator writes to.
func (r *LotRepository) OutboxRepository() outbox.Repository {
	return r.outbox
}

func (r *LotRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// allocation scans: available lots of a product in FIFO order
			Keys: bson.D{{Key: "productId", Value: 1}, {Key: "purchaseTimestamp", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "purchaseRunId", Value: 1}},
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		r.logger.Error("Failed to create lot indexes", "error", err)
	}
	if err := r.outbox.EnsureIndexes(ctx); err != nil {
		r.logger.Error("Failed to create outbox indexes", "error", err)
	}
}

// Insert persists new lots. Lot ids are unique; re-inserting an existing lot
// is a store error, not an upsert.
func (r *LotRepository) Insert(ctx context.Context, lots []*domain.InventoryLot) error {
	docs := make([]interface{}, 0, len(lots))
	for _, lot := range lots {
		docs = append(docs, lot)
	}

	return r.do(ctx, "insert", func() error {
		_, err := r.collection.InsertMany(ctx, docs)
		return err
	})
}

func (r *LotRepository) FindByID(ctx context.Context, id string) (*domain.InventoryLot, error) {
	var lot domain.InventoryLot
	err := r.do(ctx, "findById", func() error {
		return r.collection.FindOne(ctx, bson.M{"id": id}).Decode(&lot)
	})
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *LotRepository) FindByPurchaseRun(ctx context.Context, purchaseRunID string) (domain.Lots, error) {
	return r.find(ctx, "findByPurchaseRun", bson.M{"purchaseRunId": purchaseRunID}, nil)
}

func (r *LotRepository) FindByProduct(ctx context.Context, productID string) (domain.Lots, error) {
	return r.find(ctx, "findByProduct", bson.M{"productId": productID}, fifoSort())
}

// FindAvailableByProduct returns the product's lots with stock left, in
// FIFO order.
func (r *LotRepository) FindAvailableByProduct(ctx context.Context, productID string) (domain.Lots, error) {
	filter := bson.M{
		"productId":         productID,
		"remainingQuantity": bson.M{"$gt": 0},
	}
	return r.find(ctx, "findAvailable", filter, fifoSort())
}

// ApplyDraws commits a draw plan in one multi-document transaction. Each lot
// update is gated on the revision the plan was computed against; a single
// stale revision aborts the transaction with domain.ErrRevisionConflict and
// no lot keeps a partial draw. The allocation event rides in the same
// transaction through the outbox.
func (r *LotRepository) ApplyDraws(ctx context.Context, plan *domain.DrawPlan, allocatedAt time.Time) error {
	return r.do(ctx, "applyDraws", func() error {
		return r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			for _, draw := range plan.Draws {
				filter := bson.M{
					"id":       draw.Lot.ID,
					"revision": draw.Lot.Revision,
				}
				update := bson.M{
					"$inc": bson.M{
						"remainingQuantity": -draw.Quantity,
						"revision":          1,
					},
					"$set": bson.M{"updatedAt": allocatedAt},
				}

				result, err := r.collection.UpdateOne(sessCtx, filter, update)
				if err != nil {
					return err
				}
				if result.MatchedCount == 0 {
					return fmt.Errorf("%w: lot %s", domain.ErrRevisionConflict, draw.Lot.ID)
				}
			}

			event := domain.StockAllocatedEvent{
				ProductID:   plan.ProductID,
				Quantity:    plan.Requested,
				Draws:       plan.Records(),
				AllocatedAt: allocatedAt,
			}
			outboxEvent, err := outbox.NewOutboxEvent(plan.ProductID, "product", kafka.Topics.InventoryEvents, event)
			if err != nil {
				return err
			}
			return r.outbox.Save(sessCtx, outboxEvent)
		})
	})
}

func (r *LotRepository) find(ctx context.Context, op string, filter bson.M, sort bson.D) (domain.Lots, error) {
	var lots domain.Lots
	err := r.do(ctx, op, func() error {
		opts := options.Find()
		if sort != nil {
			opts.SetSort(sort)
		}

		cursor, err := r.collection.Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		lots = nil
		return cursor.All(ctx, &lots)
	})
	if err != nil {
		return nil, err
	}
	return lots, nil
}

// fifoSort orders by purchase timestamp with lot id as the tie-break, the
// same total order the allocator uses.
func fifoSort() bson.D {
	return bson.D{{Key: "purchaseTimestamp", Value: 1}, {Key: "id", Value: 1}}
}

// do runs one store operation behind the circuit breaker and records its
// latency. Revision conflicts and missing documents are outcomes, not store
// failures; they pass through without counting against the breaker.
func (r *LotRepository) do(ctx context.Context, op string, fn func() error) error {
	start := time.Now()

	var businessErr error
	err := r.breaker.Do(func() error {
		if err := fn(); err != nil {
			if stderrors.Is(err, domain.ErrRevisionConflict) || stderrors.Is(err, mongo.ErrNoDocuments) {
				businessErr = err
				return nil
			}
			return err
		}
		return nil
	})

	r.metrics.ObserveStoreOperation(lotCollection, op, err, time.Since(start))

	if err != nil {
		return r.mapStoreErr(op, err)
	}
	return businessErr
}

func (r *LotRepository) mapStoreErr(op string, err error) error {
	if stderrors.Is(err, mongodb.ErrCircuitOpen) ||
		stderrors.Is(err, context.DeadlineExceeded) ||
		mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		r.logger.Error("Lot store unreachable", "operation", op, "error", err)
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return err
}
