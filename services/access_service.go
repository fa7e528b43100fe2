package services

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"classdrive/models"
	"classdrive/repository"
)

// AccessService is the single decision point for "may this principal act
// on this item at this level". Every other service gates through it.
type AccessService struct {
	items  repository.ItemRepository
	grants repository.GrantRepository
}

func NewAccessService(items repository.ItemRepository, grants repository.GrantRepository) *AccessService {
	return &AccessService{items: items, grants: grants}
}

// ResolveAccess answers Allowed/Denied for the required level. A missing
// item resolves to Denied; callers that need to distinguish not-found load
// the item themselves first. The error return is for storage faults only.
//
// Short-circuit order: admin, owner, grant presence, grant level.
func (s *AccessService) ResolveAccess(ctx context.Context, itemID primitive.ObjectID, principal models.Principal, required models.ShareLevel) (bool, error) {
	if principal.IsAdmin() {
		return true, nil
	}

	item, err := s.items.FindByID(ctx, itemID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return s.resolveForItem(ctx, item, principal, required)
}

// ResolveForItem is ResolveAccess for an item the caller already loaded,
// avoiding a second point read inside the same operation.
func (s *AccessService) ResolveForItem(ctx context.Context, item *models.Item, principal models.Principal, required models.ShareLevel) (bool, error) {
	if principal.IsAdmin() {
		return true, nil
	}
	return s.resolveForItem(ctx, item, principal, required)
}

func (s *AccessService) resolveForItem(ctx context.Context, item *models.Item, principal models.Principal, required models.ShareLevel) (bool, error) {
	if item.OwnerID == principal.UserID {
		return true, nil
	}

	grant, err := s.grants.Find(ctx, item.ID, principal.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return grant.Level.Satisfies(required), nil
}

// ResolveShareManagement governs who may create, change, revoke or list
// grants on an item: the owner or an admin, never a grantee. Holding an
// EDITOR grant edits content, not sharing.
func (s *AccessService) ResolveShareManagement(ctx context.Context, itemID primitive.ObjectID, principal models.Principal) (bool, error) {
	if principal.IsAdmin() {
		return true, nil
	}

	item, err := s.items.FindByID(ctx, itemID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return item.OwnerID == principal.UserID, nil
}

// canManageShares is the pure form of ResolveShareManagement for an item
// already in hand.
func canManageShares(item *models.Item, principal models.Principal) bool {
	return principal.IsAdmin() || item.OwnerID == principal.UserID
}
