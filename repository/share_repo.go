package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"classdrive/models"
)

type mongoGrantRepository struct {
	collection *mongo.Collection
}

// Upsert writes the (item, grantee) grant in a single atomic statement so
// concurrent shares on the same pair serialize to one final level.
func (r *mongoGrantRepository) Upsert(ctx context.Context, itemID, granteeID primitive.ObjectID, level models.ShareLevel) (*models.ShareGrant, error) {
	now := time.Now().UTC()
	filter := bson.M{"item_id": itemID, "grantee_id": granteeID}
	update := bson.M{
		"$set": bson.M{
			"level":      level,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"item_id":    itemID,
			"grantee_id": granteeID,
			"created_at": now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var grant models.ShareGrant
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&grant); err != nil {
		return nil, fmt.Errorf("failed to upsert share grant: %w", err)
	}
	return &grant, nil
}

func (r *mongoGrantRepository) Find(ctx context.Context, itemID, granteeID primitive.ObjectID) (*models.ShareGrant, error) {
	var grant models.ShareGrant
	err := r.collection.FindOne(ctx, bson.M{"item_id": itemID, "grantee_id": granteeID}).Decode(&grant)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch share grant: %w", err)
	}
	return &grant, nil
}

func (r *mongoGrantRepository) Delete(ctx context.Context, itemID, granteeID primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"item_id": itemID, "grantee_id": granteeID})
	if err != nil {
		return fmt.Errorf("failed to delete share grant: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoGrantRepository) DeleteByItems(ctx context.Context, itemIDs []primitive.ObjectID) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	result, err := r.collection.DeleteMany(ctx, bson.M{"item_id": bson.M{"$in": itemIDs}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete grants for items: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *mongoGrantRepository) ListByItem(ctx context.Context, itemID primitive.ObjectID) ([]*models.ShareGrant, error) {
	return r.list(ctx, bson.M{"item_id": itemID})
}

func (r *mongoGrantRepository) ListByGrantee(ctx context.Context, granteeID primitive.ObjectID) ([]*models.ShareGrant, error) {
	return r.list(ctx, bson.M{"grantee_id": granteeID})
}

func (r *mongoGrantRepository) list(ctx context.Context, filter bson.M) ([]*models.ShareGrant, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list share grants: %w", err)
	}
	defer cursor.Close(ctx)

	var grants []*models.ShareGrant
	if err := cursor.All(ctx, &grants); err != nil {
		return nil, fmt.Errorf("failed to decode share grants: %w", err)
	}
	return grants, nil
}

func (r *mongoGrantRepository) ItemIDsSharedWith(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	grants, err := r.ListByGrantee(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(grants))
	for _, grant := range grants {
		ids = append(ids, grant.ItemID)
	}
	return ids, nil
}

func (r *mongoGrantRepository) LevelsFor(ctx context.Context, userID primitive.ObjectID, itemIDs []primitive.ObjectID) (map[primitive.ObjectID]models.ShareLevel, error) {
	levels := make(map[primitive.ObjectID]models.ShareLevel)
	if len(itemIDs) == 0 {
		return levels, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{
		"grantee_id": userID,
		"item_id":    bson.M{"$in": itemIDs},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch grant levels: %w", err)
	}
	defer cursor.Close(ctx)

	var grants []*models.ShareGrant
	if err := cursor.All(ctx, &grants); err != nil {
		return nil, fmt.Errorf("failed to decode grant levels: %w", err)
	}
	for _, grant := range grants {
		levels[grant.ItemID] = grant.Level
	}
	return levels, nil
}

func (r *mongoGrantRepository) Count(ctx context.Context) (int64, error) {
	total, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count share grants: %w", err)
	}
	return total, nil
}
