package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"classdrive/models"
)

type mongoItemRepository struct {
	collection *mongo.Collection
}

func (r *mongoItemRepository) Insert(ctx context.Context, item *models.Item) error {
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

func (r *mongoItemRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Item, error) {
	var item models.Item
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch item: %w", err)
	}
	return &item, nil
}

func (r *mongoItemRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Item, error) {
	items := make(map[primitive.ObjectID]*models.Item)
	if len(ids) == 0 {
		return items, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch items: %w", err)
	}
	defer cursor.Close(ctx)

	var list []*models.Item
	if err := cursor.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	for _, item := range list {
		items[item.ID] = item
	}
	return items, nil
}

func (r *mongoItemRepository) Patch(ctx context.Context, id primitive.ObjectID, patch ItemPatch) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}

	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Parent.Set {
		if patch.Parent.ID == nil {
			unset["parent_id"] = ""
		} else {
			set["parent_id"] = *patch.Parent.ID
		}
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoItemRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ChildrenOf returns every direct child regardless of trash state or
// visibility. Used by the delete cascade only.
func (r *mongoItemRepository) ChildrenOf(ctx context.Context, parentID primitive.ObjectID) ([]*models.Item, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"parent_id": parentID})
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	defer cursor.Close(ctx)

	var items []*models.Item
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode children: %w", err)
	}
	return items, nil
}

func (r *mongoItemRepository) Search(ctx context.Context, q ItemQuery) ([]*models.Item, error) {
	opts := options.Find().SetSort(bson.M{"updated_at": -1})
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	if q.Offset > 0 {
		opts.SetSkip(q.Offset)
	}

	cursor, err := r.collection.Find(ctx, buildItemFilter(q), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []*models.Item
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	return items, nil
}

func (r *mongoItemRepository) Count(ctx context.Context, q ItemQuery) (int64, error) {
	total, err := r.collection.CountDocuments(ctx, buildItemFilter(q))
	if err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return total, nil
}

func (r *mongoItemRepository) CountByKind(ctx context.Context) (map[models.ItemKind]int64, error) {
	counts := make(map[models.ItemKind]int64, 2)
	for _, kind := range []models.ItemKind{models.ItemKindFile, models.ItemKindFolder} {
		n, err := r.collection.CountDocuments(ctx, bson.M{"kind": kind})
		if err != nil {
			return nil, fmt.Errorf("failed to count %s items: %w", kind, err)
		}
		counts[kind] = n
	}
	return counts, nil
}

func (r *mongoItemRepository) TotalFileBytes(ctx context.Context) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"kind": models.ItemKindFile}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$file_metadata.size"}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate file sizes: %w", err)
	}
	defer cursor.Close(ctx)

	var result []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return 0, fmt.Errorf("failed to decode size aggregate: %w", err)
	}
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].Total, nil
}

func buildItemFilter(q ItemQuery) bson.M {
	filter := bson.M{"is_trashed": false}

	if q.Visibility != nil {
		or := []bson.M{{"owner_id": q.Visibility.UserID}}
		if len(q.Visibility.SharedItemIDs) > 0 {
			or = append(or, bson.M{"_id": bson.M{"$in": q.Visibility.SharedItemIDs}})
		}
		filter["$or"] = or
	}
	if q.NameContains != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(q.NameContains), "$options": "i"}
	}
	if q.Kind != "" {
		filter["kind"] = q.Kind
	}
	if q.MimeContains != "" {
		filter["file_metadata.mime_type"] = bson.M{"$regex": regexp.QuoteMeta(q.MimeContains), "$options": "i"}
	}
	if q.OwnerID != nil {
		filter["owner_id"] = *q.OwnerID
	}
	if q.Parent.Set {
		if q.Parent.ID == nil {
			filter["parent_id"] = bson.M{"$exists": false}
		} else {
			filter["parent_id"] = *q.Parent.ID
		}
	}
	return filter
}
