package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/havenlist/tracker-backend/internal/models"
)

// unpricedFilter selects listings whose price has never been observed;
// a stored price of 0 is the "never observed" sentinel.
var unpricedFilter = bson.M{"price": 0}

type PropertyRepo struct {
	coll *mongo.Collection
}

func NewPropertyRepo(coll *mongo.Collection) *PropertyRepo {
	return &PropertyRepo{coll: coll}
}

// FindUnpriced returns the full candidate set for a tracking run.
func (r *PropertyRepo) FindUnpriced(ctx context.Context) ([]models.Property, error) {
	cur, err := r.coll.Find(ctx, unpricedFilter)
	if err != nil {
		return nil, fmt.Errorf("find unpriced: %w", err)
	}

	var out []models.Property
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode unpriced: %w", err)
	}
	return out, nil
}

// ApplyUpdate writes the changed fields of one listing. An empty update is
// a no-op; no write reaches the store.
func (r *PropertyRepo) ApplyUpdate(ctx context.Context, zpid string, upd models.PropertyUpdate) error {
	if upd.IsZero() {
		return nil
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"zpid": zpid}, bson.M{"$set": upd.Set()})
	if err != nil {
		return fmt.Errorf("update zpid %s: %w", zpid, err)
	}
	return nil
}

func (r *PropertyRepo) CountUnpriced(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, unpricedFilter)
	if err != nil {
		return 0, fmt.Errorf("count unpriced: %w", err)
	}
	return n, nil
}
