package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"classdrive/apperrors"
	"classdrive/models"
	"classdrive/repository"
	"classdrive/storage"
	"classdrive/utils"
)

type ItemService struct {
	items  repository.ItemRepository
	grants repository.GrantRepository
	users  repository.UserRepository
	access *AccessService
	blobs  storage.BlobStore
}

func NewItemService(repos *repository.Repositories, access *AccessService, blobs storage.BlobStore) *ItemService {
	return &ItemService{
		items:  repos.Items,
		grants: repos.Grants,
		users:  repos.Users,
		access: access,
		blobs:  blobs,
	}
}

type CreateItemInput struct {
	Name     string
	Kind     models.ItemKind
	ParentID *primitive.ObjectID
}

type CreateFileInput struct {
	Name     string
	ParentID *primitive.ObjectID
	MimeType string
	Category models.DocumentCategory // empty means derive from MimeType
}

// UpdateItemInput distinguishes three parent states: Parent.Set false
// leaves placement unchanged, Parent.ID nil detaches to root, a concrete
// id re-attaches.
type UpdateItemInput struct {
	Name   *string
	Parent repository.ParentFilter
}

type ItemDetail struct {
	Item  *models.Item        `json:"item"`
	Owner models.OwnerSummary `json:"owner"`
}

// DownloadDescriptor is everything the transport layer needs to stream a
// file; the bytes themselves stay in the blob store.
type DownloadDescriptor struct {
	Name       string `json:"name"`
	MimeType   string `json:"mime_type"`
	Size       int64  `json:"size"`
	StorageKey string `json:"-"`
}

// Create adds a FOLDER node. FILE items must arrive through CreateFile so
// every file carries metadata and backing bytes from birth.
func (s *ItemService) Create(ctx context.Context, principal models.Principal, input CreateItemInput) (*models.Item, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.InvalidRequest("item name is required")
	}
	if !input.Kind.Valid() {
		return nil, apperrors.InvalidRequest("item kind must be FILE or FOLDER")
	}
	if input.Kind == models.ItemKindFile {
		return nil, apperrors.InvalidRequest("FILE items must be created through upload")
	}

	if input.ParentID != nil {
		if err := s.ensureParentUsable(ctx, principal, *input.ParentID); err != nil {
			return nil, err
		}
	}

	item := &models.Item{
		Name:     strings.TrimSpace(input.Name),
		Kind:     input.Kind,
		OwnerID:  principal.UserID,
		ParentID: input.ParentID,
	}
	if err := s.items.Insert(ctx, item); err != nil {
		return nil, apperrors.Internal("failed to create item", err)
	}
	return item, nil
}

// CreateFile streams the payload to the blob store first; only a
// successful write produces an item. If the metadata insert fails the
// freshly written blob is removed again so no bytes are orphaned.
func (s *ItemService) CreateFile(ctx context.Context, principal models.Principal, input CreateFileInput, payload io.Reader) (*models.Item, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.InvalidRequest("file name is required")
	}
	if input.Category != "" && !input.Category.Valid() {
		return nil, apperrors.InvalidRequest("unknown document category")
	}

	if input.ParentID != nil {
		if err := s.ensureParentUsable(ctx, principal, *input.ParentID); err != nil {
			return nil, err
		}
	}

	category := input.Category
	if category == "" {
		category = CategoryForMimeType(input.MimeType)
	}

	key := buildStorageKey(principal.UserID, input.Name)
	written, err := s.blobs.Put(ctx, key, payload)
	if err != nil {
		return nil, apperrors.Internal("failed to store file bytes", err)
	}

	item := &models.Item{
		Name:     strings.TrimSpace(input.Name),
		Kind:     models.ItemKindFile,
		OwnerID:  principal.UserID,
		ParentID: input.ParentID,
		FileMetadata: &models.FileMetadata{
			MimeType:   input.MimeType,
			Size:       written,
			StorageKey: key,
			Version:    1,
			Category:   category,
		},
	}
	if err := s.items.Insert(ctx, item); err != nil {
		if cleanupErr := s.blobs.Delete(ctx, key); cleanupErr != nil {
			utils.LogWarn(fmt.Sprintf("failed to clean up blob %s after insert failure: %v", key, cleanupErr))
		}
		return nil, apperrors.Internal("failed to create file item", err)
	}
	return item, nil
}

// Get requires VIEWER access. A missing item is NotFound; an existing item
// the principal cannot see is AccessDenied.
func (s *ItemService) Get(ctx context.Context, principal models.Principal, itemID primitive.ObjectID) (*ItemDetail, error) {
	item, err := s.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.access.ResolveForItem(ctx, item, principal, models.ShareLevelViewer)
	if err != nil {
		return nil, apperrors.Internal("access resolution failed", err)
	}
	if !allowed {
		return nil, apperrors.AccessDenied("you do not have access to this item")
	}

	return s.detail(ctx, item)
}

// List returns the non-trashed items under the given parent (nil = root)
// the principal may see: everything for an admin, owned-or-shared for
// everyone else.
func (s *ItemService) List(ctx context.Context, principal models.Principal, parentID *primitive.ObjectID) ([]*ItemDetail, error) {
	query := repository.ItemQuery{
		Parent: repository.ParentFilter{Set: true, ID: parentID},
	}
	if !principal.IsAdmin() {
		sharedIDs, err := s.grants.ItemIDsSharedWith(ctx, principal.UserID)
		if err != nil {
			return nil, apperrors.Internal("failed to resolve shared items", err)
		}
		query.Visibility = &repository.Visibility{UserID: principal.UserID, SharedItemIDs: sharedIDs}
	}

	items, err := s.items.Search(ctx, query)
	if err != nil {
		return nil, apperrors.Internal("failed to list items", err)
	}

	return s.details(ctx, items)
}

// Update renames and/or re-parents an item; requires EDITOR-or-owner.
func (s *ItemService) Update(ctx context.Context, principal models.Principal, itemID primitive.ObjectID, input UpdateItemInput) (*ItemDetail, error) {
	item, err := s.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.access.ResolveForItem(ctx, item, principal, models.ShareLevelEditor)
	if err != nil {
		return nil, apperrors.Internal("access resolution failed", err)
	}
	if !allowed {
		return nil, apperrors.AccessDenied("editor permission is required to update this item")
	}

	if input.Name == nil && !input.Parent.Set {
		return s.detail(ctx, item)
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, apperrors.InvalidRequest("item name cannot be empty")
	}

	if input.Parent.Set && input.Parent.ID != nil {
		if err := s.ensureParentUsable(ctx, principal, *input.Parent.ID); err != nil {
			return nil, err
		}
		if err := s.rejectCycle(ctx, itemID, *input.Parent.ID); err != nil {
			return nil, err
		}
	}

	patch := repository.ItemPatch{Parent: input.Parent}
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		patch.Name = &trimmed
	}
	if err := s.items.Patch(ctx, itemID, patch); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("item")
		}
		return nil, apperrors.Internal("failed to update item", err)
	}

	updated, err := s.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, updated)
}

// Delete removes the item and, for folders, its whole subtree. Owner or
// admin only. The cascade is sequenced explicitly: grants first, then the
// item documents, then best-effort blob cleanup — a failed blob delete is
// logged and never rolls back the metadata deletion.
func (s *ItemService) Delete(ctx context.Context, principal models.Principal, itemID primitive.ObjectID) error {
	item, err := s.loadItem(ctx, itemID)
	if err != nil {
		return err
	}
	if !principal.IsAdmin() && item.OwnerID != principal.UserID {
		return apperrors.AccessDenied("only the owner or an admin can delete this item")
	}

	subtree, err := s.collectSubtree(ctx, item)
	if err != nil {
		return apperrors.Internal("failed to collect items for deletion", err)
	}

	ids := make([]primitive.ObjectID, len(subtree))
	for i, node := range subtree {
		ids[i] = node.ID
	}
	if _, err := s.grants.DeleteByItems(ctx, ids); err != nil {
		return apperrors.Internal("failed to delete share grants", err)
	}

	// Children before parents so a crash mid-cascade never leaves an
	// orphan pointing at a deleted folder.
	for i := len(subtree) - 1; i >= 0; i-- {
		if err := s.items.Delete(ctx, subtree[i].ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return apperrors.Internal("failed to delete item", err)
		}
	}

	for _, node := range subtree {
		if node.Kind != models.ItemKindFile || node.FileMetadata == nil {
			continue
		}
		if err := s.blobs.Delete(ctx, node.FileMetadata.StorageKey); err != nil {
			utils.LogWarn(fmt.Sprintf("failed to delete blob %s for item %s: %v", node.FileMetadata.StorageKey, node.ID.Hex(), err))
		}
	}
	return nil
}

// Download requires VIEWER and returns the descriptor for streaming.
func (s *ItemService) Download(ctx context.Context, principal models.Principal, itemID primitive.ObjectID) (*DownloadDescriptor, error) {
	item, err := s.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.access.ResolveForItem(ctx, item, principal, models.ShareLevelViewer)
	if err != nil {
		return nil, apperrors.Internal("access resolution failed", err)
	}
	if !allowed {
		return nil, apperrors.AccessDenied("you do not have permission to download this item")
	}

	if item.Kind != models.ItemKindFile {
		return nil, apperrors.NotFound("file")
	}
	if item.FileMetadata == nil {
		return nil, apperrors.Internal("file item is missing its metadata", nil)
	}

	exists, err := s.blobs.Exists(ctx, item.FileMetadata.StorageKey)
	if err != nil {
		return nil, apperrors.Internal("failed to check backing bytes", err)
	}
	if !exists {
		return nil, apperrors.Internal("backing bytes are missing for this file", nil)
	}

	return &DownloadDescriptor{
		Name:       item.Name,
		MimeType:   item.FileMetadata.MimeType,
		Size:       item.FileMetadata.Size,
		StorageKey: item.FileMetadata.StorageKey,
	}, nil
}

func (s *ItemService) loadItem(ctx context.Context, itemID primitive.ObjectID) (*models.Item, error) {
	item, err := s.items.FindByID(ctx, itemID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("item")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load item", err)
	}
	return item, nil
}

// ensureParentUsable gates the destination of a create or re-parent: the
// parent must exist, be an untrashed FOLDER, and the principal must hold
// EDITOR-or-owner access on it.
func (s *ItemService) ensureParentUsable(ctx context.Context, principal models.Principal, parentID primitive.ObjectID) error {
	parent, err := s.items.FindByID(ctx, parentID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("parent folder")
	}
	if err != nil {
		return apperrors.Internal("failed to load parent folder", err)
	}
	if parent.IsTrashed {
		return apperrors.NotFound("parent folder")
	}
	if parent.Kind != models.ItemKindFolder {
		return apperrors.InvalidRequest("parent must be a folder")
	}

	allowed, err := s.access.ResolveForItem(ctx, parent, principal, models.ShareLevelEditor)
	if err != nil {
		return apperrors.Internal("access resolution failed", err)
	}
	if !allowed {
		return apperrors.AccessDenied("you do not have permission to place items in this folder")
	}
	return nil
}

// rejectCycle refuses a new parent that is the item itself or any of its
// descendants, walking up from the candidate parent to the root.
func (s *ItemService) rejectCycle(ctx context.Context, itemID, newParentID primitive.ObjectID) error {
	if newParentID == itemID {
		return apperrors.Conflict("an item cannot be its own parent")
	}

	current := newParentID
	for {
		node, err := s.items.FindByID(ctx, current)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return apperrors.Internal("failed to walk ancestors", err)
		}
		if node.ParentID == nil {
			return nil
		}
		if *node.ParentID == itemID {
			return apperrors.Conflict("moving the item here would create a cycle")
		}
		current = *node.ParentID
	}
}

// collectSubtree returns the item and all its descendants in BFS order
// (parents before children).
func (s *ItemService) collectSubtree(ctx context.Context, root *models.Item) ([]*models.Item, error) {
	subtree := []*models.Item{root}
	queue := []primitive.ObjectID{root.ID}

	for len(queue) > 0 {
		parentID := queue[0]
		queue = queue[1:]

		children, err := s.items.ChildrenOf(ctx, parentID)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			subtree = append(subtree, child)
			if child.Kind == models.ItemKindFolder {
				queue = append(queue, child.ID)
			}
		}
	}
	return subtree, nil
}

func (s *ItemService) detail(ctx context.Context, item *models.Item) (*ItemDetail, error) {
	owner, err := s.users.FindByID(ctx, item.OwnerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal("item owner record is missing", nil)
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load item owner", err)
	}
	return &ItemDetail{Item: item, Owner: owner.Summary()}, nil
}

func (s *ItemService) details(ctx context.Context, items []*models.Item) ([]*ItemDetail, error) {
	ownerIDs := make([]primitive.ObjectID, 0, len(items))
	seen := make(map[primitive.ObjectID]bool)
	for _, item := range items {
		if !seen[item.OwnerID] {
			seen[item.OwnerID] = true
			ownerIDs = append(ownerIDs, item.OwnerID)
		}
	}

	owners, err := s.users.FindByIDs(ctx, ownerIDs)
	if err != nil {
		return nil, apperrors.Internal("failed to load item owners", err)
	}

	details := make([]*ItemDetail, 0, len(items))
	for _, item := range items {
		detail := &ItemDetail{Item: item}
		if owner, ok := owners[item.OwnerID]; ok {
			detail.Owner = owner.Summary()
		} else {
			detail.Owner = models.OwnerSummary{UserID: item.OwnerID.Hex()}
		}
		details = append(details, detail)
	}
	return details, nil
}

// CategoryForMimeType maps a media type onto a document category by
// substring match. Used when the uploader does not name one.
func CategoryForMimeType(mimeType string) models.DocumentCategory {
	mime := strings.ToLower(mimeType)
	switch {
	case strings.Contains(mime, "pdf"):
		return models.CategoryPDF
	case strings.Contains(mime, "word"),
		strings.Contains(mime, "msword"),
		strings.Contains(mime, "document"),
		strings.Contains(mime, ".doc"):
		return models.CategoryWord
	case strings.Contains(mime, "excel"),
		strings.Contains(mime, "spreadsheet"),
		strings.Contains(mime, "ms-excel"),
		strings.Contains(mime, ".xls"):
		return models.CategoryExcel
	case strings.Contains(mime, "powerpoint"),
		strings.Contains(mime, "presentation"),
		strings.Contains(mime, "ms-powerpoint"),
		strings.Contains(mime, ".ppt"):
		return models.CategoryPowerPoint
	default:
		return models.CategoryOther
	}
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

func buildStorageKey(ownerID primitive.ObjectID, name string) string {
	safe := unsafeKeyChars.ReplaceAllString(name, "_")
	return fmt.Sprintf("users/%s/%d-%s", ownerID.Hex(), time.Now().UnixNano(), safe)
}
