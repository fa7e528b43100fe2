// Package repository holds the mongo-backed persistence for items, share
// grants and users. Services depend on the interfaces here, never on the
// collections directly.
package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"classdrive/models"
)

// ErrNotFound is returned by point lookups when no document matches.
var ErrNotFound = errors.New("not found")

// ParentFilter expresses the three re-parent/listing states: not supplied,
// explicitly root (nil id), or a concrete parent id.
type ParentFilter struct {
	Set bool
	ID  *primitive.ObjectID
}

// Visibility restricts a query to items the user owns or holds a grant on.
// A nil *Visibility means no restriction (admin queries).
type Visibility struct {
	UserID        primitive.ObjectID
	SharedItemIDs []primitive.ObjectID
}

// ItemQuery enumerates every filter the search layer recognizes. It is
// built once at the service boundary; nothing loosely typed travels here.
type ItemQuery struct {
	NameContains string
	Kind         models.ItemKind
	MimeContains string
	OwnerID      *primitive.ObjectID
	Parent       ParentFilter
	Visibility   *Visibility
	Limit        int64
	Offset       int64
}

// ItemPatch is the repo-level shape of an item update. Name nil leaves the
// name alone; Parent.Set false leaves placement alone, Parent.ID nil
// detaches to root.
type ItemPatch struct {
	Name   *string
	Parent ParentFilter
}

type ItemRepository interface {
	Insert(ctx context.Context, item *models.Item) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Item, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Item, error)
	Patch(ctx context.Context, id primitive.ObjectID, patch ItemPatch) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	ChildrenOf(ctx context.Context, parentID primitive.ObjectID) ([]*models.Item, error)
	Search(ctx context.Context, q ItemQuery) ([]*models.Item, error)
	Count(ctx context.Context, q ItemQuery) (int64, error)
	CountByKind(ctx context.Context) (map[models.ItemKind]int64, error)
	TotalFileBytes(ctx context.Context) (int64, error)
}

type GrantRepository interface {
	Upsert(ctx context.Context, itemID, granteeID primitive.ObjectID, level models.ShareLevel) (*models.ShareGrant, error)
	Find(ctx context.Context, itemID, granteeID primitive.ObjectID) (*models.ShareGrant, error)
	Delete(ctx context.Context, itemID, granteeID primitive.ObjectID) error
	DeleteByItems(ctx context.Context, itemIDs []primitive.ObjectID) (int64, error)
	ListByItem(ctx context.Context, itemID primitive.ObjectID) ([]*models.ShareGrant, error)
	ListByGrantee(ctx context.Context, granteeID primitive.ObjectID) ([]*models.ShareGrant, error)
	ItemIDsSharedWith(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
	LevelsFor(ctx context.Context, userID primitive.ObjectID, itemIDs []primitive.ObjectID) (map[primitive.ObjectID]models.ShareLevel, error)
	Count(ctx context.Context) (int64, error)
}

type UserRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error)
	List(ctx context.Context, limit, offset int64) ([]*models.User, int64, error)
	UpdateRole(ctx context.Context, id primitive.ObjectID, role models.UserRole) error
	CountByRole(ctx context.Context) (map[models.UserRole]int64, error)
}

// Repositories bundles the mongo implementations over one injected
// database handle.
type Repositories struct {
	Items  ItemRepository
	Grants GrantRepository
	Users  UserRepository
}

func New(db *mongo.Database) *Repositories {
	return &Repositories{
		Items:  &mongoItemRepository{collection: db.Collection("items")},
		Grants: &mongoGrantRepository{collection: db.Collection("share_grants")},
		Users:  &mongoUserRepository{collection: db.Collection("users")},
	}
}
