package mongodb

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/retail-platform/inventory-engine/internal/domain"
	"github.com/retail-platform/inventory-engine/pkg/logging"
	"github.com/retail-platform/inventory-engine/pkg/mongodb"
)

const saleLineCollection = "sale_lines"

// SaleLineRepository reads the sale lines the sale recording flow writes.
// This engine never inserts into the collection; it only follows allocation
// records back to their purchase runs.
type SaleLineRepository struct {
	collection *mongo.Collection
	logger     *logging.Logger
}

// NewSaleLineRepository creates a new SaleLineRepository
func NewSaleLineRepository(client *mongodb.Client, logger *logging.Logger) *SaleLineRepository {
	repo := &SaleLineRepository{
		collection: client.Collection(saleLineCollection),
		logger:     logger.WithComponent("sale-line-repository"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *SaleLineRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "allocations.purchaseRunId", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "productId", Value: 1}, {Key: "soldAt", Value: 1}},
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		r.logger.Error("Failed to create sale line indexes", "error", err)
	}
}

// FindByPurchaseRun returns every sale line with at least one allocation
// drawn from the given run, oldest sale first.
func (r *SaleLineRepository) FindByPurchaseRun(ctx context.Context, purchaseRunID string) ([]*domain.SaleLine, error) {
	filter := bson.M{"allocations.purchaseRunId": purchaseRunID}
	opts := options.Find().SetSort(bson.D{{Key: "soldAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, r.mapErr(err)
	}
	defer cursor.Close(ctx)

	var lines []*domain.SaleLine
	if err := cursor.All(ctx, &lines); err != nil {
		return nil, r.mapErr(err)
	}
	return lines, nil
}

func (r *SaleLineRepository) mapErr(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return err
}
