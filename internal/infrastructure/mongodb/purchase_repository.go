package mongodb

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/retail-platform/inventory-engine/internal/domain"
	"github.com/retail-platform/inventory-engine/pkg/logging"
	"github.com/retail-platform/inventory-engine/pkg/mongodb"
)

const purchaseRunCollection = "purchase_runs"

// PurchaseRunRepository reads purchase run records the purchasing flow
// writes. Only intended selling prices are looked up here, so a missing
// record is reported as (nil, nil) rather than an error.
type PurchaseRunRepository struct {
	collection *mongo.Collection
	logger     *logging.Logger
}

// NewPurchaseRunRepository creates a new PurchaseRunRepository
func NewPurchaseRunRepository(client *mongodb.Client, logger *logging.Logger) *PurchaseRunRepository {
	return &PurchaseRunRepository{
		collection: client.Collection(purchaseRunCollection),
		logger:     logger.WithComponent("purchase-run-repository"),
	}
}

func (r *PurchaseRunRepository) FindByID(ctx context.Context, id string) (*domain.PurchaseRun, error) {
	var run domain.PurchaseRun
	err := r.collection.FindOne(ctx, bson.M{"id": id}).Decode(&run)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
			return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
		return nil, err
	}
	return &run, nil
}
