package services

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"classdrive/apperrors"
	"classdrive/models"
	"classdrive/repository"
)

// ShareService owns the per-item, per-user grant registry. Grant
// management (create/update/revoke/list) is gated on owner-or-admin; an
// EDITOR grant never confers it.
type ShareService struct {
	items  repository.ItemRepository
	grants repository.GrantRepository
	users  repository.UserRepository
}

func NewShareService(repos *repository.Repositories) *ShareService {
	return &ShareService{
		items:  repos.Items,
		grants: repos.Grants,
		users:  repos.Users,
	}
}

type ShareDetail struct {
	Grant   *models.ShareGrant  `json:"grant"`
	Grantee models.OwnerSummary `json:"grantee"`
}

// SharedItem is an item as seen from the grantee's side: the item, its
// owner, and the level the caller holds on it.
type SharedItem struct {
	Item  *models.Item        `json:"item"`
	Owner models.OwnerSummary `json:"owner"`
	Level models.ShareLevel   `json:"level"`
}

// Share upserts the (item, grantee) grant to the requested level. Sharing
// twice at the same level is a no-op; a different level replaces the old
// one — there is no separate update primitive.
func (s *ShareService) Share(ctx context.Context, principal models.Principal, itemID, granteeID primitive.ObjectID, level models.ShareLevel) (*ShareDetail, error) {
	if !level.Valid() {
		return nil, apperrors.InvalidRequest("permission level must be VIEWER or EDITOR")
	}

	item, err := s.requireShareManagement(ctx, principal, itemID)
	if err != nil {
		return nil, err
	}
	if granteeID == principal.UserID {
		return nil, apperrors.InvalidRequest("you cannot share an item with yourself")
	}
	if granteeID == item.OwnerID {
		return nil, apperrors.InvalidRequest("you cannot share an item with its owner")
	}

	grantee, err := s.users.FindByID(ctx, granteeID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("user to share with")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load grantee", err)
	}

	grant, err := s.grants.Upsert(ctx, itemID, granteeID, level)
	if err != nil {
		return nil, apperrors.Internal("failed to save share grant", err)
	}

	// A concurrent delete cascade may have removed the item between the
	// management gate and the upsert, which would leave this grant
	// dangling. Re-read the item and take the grant back out if so.
	_, err = s.items.FindByID(ctx, itemID)
	if errors.Is(err, repository.ErrNotFound) {
		if delErr := s.grants.Delete(ctx, itemID, granteeID); delErr != nil && !errors.Is(delErr, repository.ErrNotFound) {
			return nil, apperrors.Internal("failed to revoke grant on deleted item", delErr)
		}
		return nil, apperrors.NotFound("item")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to reload item", err)
	}

	return &ShareDetail{Grant: grant, Grantee: grantee.Summary()}, nil
}

// Unshare revokes the grant for granteeID on the item.
func (s *ShareService) Unshare(ctx context.Context, principal models.Principal, itemID, granteeID primitive.ObjectID) error {
	if _, err := s.requireShareManagement(ctx, principal, itemID); err != nil {
		return err
	}

	err := s.grants.Delete(ctx, itemID, granteeID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("share")
	}
	if err != nil {
		return apperrors.Internal("failed to delete share grant", err)
	}
	return nil
}

// ListForItem returns every grant on the item with grantee summaries.
func (s *ShareService) ListForItem(ctx context.Context, principal models.Principal, itemID primitive.ObjectID) ([]*ShareDetail, error) {
	if _, err := s.requireShareManagement(ctx, principal, itemID); err != nil {
		return nil, err
	}

	grants, err := s.grants.ListByItem(ctx, itemID)
	if err != nil {
		return nil, apperrors.Internal("failed to list share grants", err)
	}

	granteeIDs := make([]primitive.ObjectID, 0, len(grants))
	for _, grant := range grants {
		granteeIDs = append(granteeIDs, grant.GranteeID)
	}
	grantees, err := s.users.FindByIDs(ctx, granteeIDs)
	if err != nil {
		return nil, apperrors.Internal("failed to load grantees", err)
	}

	details := make([]*ShareDetail, 0, len(grants))
	for _, grant := range grants {
		detail := &ShareDetail{Grant: grant}
		if user, ok := grantees[grant.GranteeID]; ok {
			detail.Grantee = user.Summary()
		} else {
			detail.Grantee = models.OwnerSummary{UserID: grant.GranteeID.Hex()}
		}
		details = append(details, detail)
	}
	return details, nil
}

// ListForGrantee returns the items shared with the caller. No ownership
// gate: a user may always see what has been shared with them. Grants
// whose item has since gone missing or been trashed are skipped.
func (s *ShareService) ListForGrantee(ctx context.Context, principal models.Principal) ([]*SharedItem, error) {
	grants, err := s.grants.ListByGrantee(ctx, principal.UserID)
	if err != nil {
		return nil, apperrors.Internal("failed to list shared items", err)
	}

	itemIDs := make([]primitive.ObjectID, 0, len(grants))
	for _, grant := range grants {
		itemIDs = append(itemIDs, grant.ItemID)
	}
	items, err := s.items.FindByIDs(ctx, itemIDs)
	if err != nil {
		return nil, apperrors.Internal("failed to load shared items", err)
	}

	ownerIDs := make([]primitive.ObjectID, 0, len(items))
	for _, item := range items {
		if !item.IsTrashed {
			ownerIDs = append(ownerIDs, item.OwnerID)
		}
	}
	owners, err := s.users.FindByIDs(ctx, ownerIDs)
	if err != nil {
		return nil, apperrors.Internal("failed to load item owners", err)
	}

	shared := make([]*SharedItem, 0, len(grants))
	for _, grant := range grants {
		item, ok := items[grant.ItemID]
		if !ok || item.IsTrashed {
			continue
		}
		entry := &SharedItem{Item: item, Level: grant.Level}
		if owner, ok := owners[item.OwnerID]; ok {
			entry.Owner = owner.Summary()
		} else {
			entry.Owner = models.OwnerSummary{UserID: item.OwnerID.Hex()}
		}
		shared = append(shared, entry)
	}
	return shared, nil
}

// requireShareManagement loads the item and enforces the owner-or-admin
// gate. Missing item is NotFound so a deleted item's grants read as gone.
func (s *ShareService) requireShareManagement(ctx context.Context, principal models.Principal, itemID primitive.ObjectID) (*models.Item, error) {
	item, err := s.items.FindByID(ctx, itemID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("item")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load item", err)
	}
	if !canManageShares(item, principal) {
		return nil, apperrors.AccessDenied("only the owner or an admin can manage sharing for this item")
	}
	return item, nil
}
