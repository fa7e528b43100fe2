package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"classdrive/apperrors"
	"classdrive/models"
	"classdrive/repository"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
	defaultRecentLimit = 10
)

// SearchService answers permission-aware queries. One visibility
// predicate — admin, or owner, or any grant, always excluding trashed
// items — backs search, content search and recent alike.
type SearchService struct {
	items  repository.ItemRepository
	grants repository.GrantRepository
	users  repository.UserRepository
}

func NewSearchService(repos *repository.Repositories) *SearchService {
	return &SearchService{
		items:  repos.Items,
		grants: repos.Grants,
		users:  repos.Users,
	}
}

// SearchFilters enumerates every recognized filter. Parent is tri-state:
// unset, explicitly root, or a concrete folder.
type SearchFilters struct {
	Query    string
	Kind     models.ItemKind
	MimeType string
	OwnerID  *primitive.ObjectID
	Parent   repository.ParentFilter
	Limit    int64
	Offset   int64
}

type SearchResult struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Kind         models.ItemKind      `json:"kind"`
	OwnerID      string               `json:"owner_id"`
	ParentID     *string              `json:"parent_id,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
	Owner        models.OwnerSummary  `json:"owner"`
	FileMetadata *models.FileMetadata `json:"file_metadata,omitempty"`
	IsShared     bool                 `json:"is_shared"`
	ShareLevel   models.ShareLevel    `json:"share_level,omitempty"`
}

// SearchPage carries the page together with the effective limit/offset
// after clamping, so the pagination envelope is derived in one place.
type SearchPage struct {
	Items   []SearchResult `json:"items"`
	Total   int64          `json:"total"`
	Limit   int64          `json:"limit"`
	Offset  int64          `json:"offset"`
	HasMore bool           `json:"has_more"`
}

// Search returns the page plus the unpaged total, ordered by most
// recently updated first.
func (s *SearchService) Search(ctx context.Context, principal models.Principal, filters SearchFilters) (*SearchPage, error) {
	if filters.Kind != "" && !filters.Kind.Valid() {
		return nil, apperrors.InvalidRequest("item kind must be FILE or FOLDER")
	}

	query := repository.ItemQuery{
		NameContains: filters.Query,
		Kind:         filters.Kind,
		MimeContains: filters.MimeType,
		OwnerID:      filters.OwnerID,
		Parent:       filters.Parent,
		Limit:        clampLimit(filters.Limit, defaultSearchLimit),
		Offset:       clampOffset(filters.Offset),
	}

	if err := s.applyVisibility(ctx, principal, &query); err != nil {
		return nil, err
	}

	items, err := s.items.Search(ctx, query)
	if err != nil {
		return nil, apperrors.Internal("failed to search items", err)
	}
	total, err := s.items.Count(ctx, query)
	if err != nil {
		return nil, apperrors.Internal("failed to count matching items", err)
	}

	results, err := s.annotate(ctx, principal, items)
	if err != nil {
		return nil, err
	}
	return &SearchPage{
		Items:   results,
		Total:   total,
		Limit:   query.Limit,
		Offset:  query.Offset,
		HasMore: total > query.Offset+query.Limit,
	}, nil
}

// SearchByContent is Search narrowed to FILE items with the free-text
// filter bound to query. It matches file names, not file bodies.
func (s *SearchService) SearchByContent(ctx context.Context, principal models.Principal, query string, limit, offset int64) (*SearchPage, error) {
	if query == "" {
		return nil, apperrors.InvalidRequest("search query is required")
	}
	return s.Search(ctx, principal, SearchFilters{
		Query:  query,
		Kind:   models.ItemKindFile,
		Limit:  limit,
		Offset: offset,
	})
}

// Recent returns the most recently updated visible items, page only.
func (s *SearchService) Recent(ctx context.Context, principal models.Principal, limit int64) ([]SearchResult, error) {
	query := repository.ItemQuery{
		Limit: clampLimit(limit, defaultRecentLimit),
	}
	if err := s.applyVisibility(ctx, principal, &query); err != nil {
		return nil, err
	}

	items, err := s.items.Search(ctx, query)
	if err != nil {
		return nil, apperrors.Internal("failed to fetch recent items", err)
	}
	return s.annotate(ctx, principal, items)
}

func (s *SearchService) applyVisibility(ctx context.Context, principal models.Principal, query *repository.ItemQuery) error {
	if principal.IsAdmin() {
		return nil
	}
	sharedIDs, err := s.grants.ItemIDsSharedWith(ctx, principal.UserID)
	if err != nil {
		return apperrors.Internal("failed to resolve shared items", err)
	}
	query.Visibility = &repository.Visibility{UserID: principal.UserID, SharedItemIDs: sharedIDs}
	return nil
}

// annotate attaches owner summaries, the isShared flag and the caller's
// own grant level to each result.
func (s *SearchService) annotate(ctx context.Context, principal models.Principal, items []*models.Item) ([]SearchResult, error) {
	itemIDs := make([]primitive.ObjectID, 0, len(items))
	ownerIDs := make([]primitive.ObjectID, 0, len(items))
	seenOwner := make(map[primitive.ObjectID]bool)
	for _, item := range items {
		itemIDs = append(itemIDs, item.ID)
		if !seenOwner[item.OwnerID] {
			seenOwner[item.OwnerID] = true
			ownerIDs = append(ownerIDs, item.OwnerID)
		}
	}

	owners, err := s.users.FindByIDs(ctx, ownerIDs)
	if err != nil {
		return nil, apperrors.Internal("failed to load item owners", err)
	}
	levels, err := s.grants.LevelsFor(ctx, principal.UserID, itemIDs)
	if err != nil {
		return nil, apperrors.Internal("failed to load grant levels", err)
	}

	results := make([]SearchResult, 0, len(items))
	for _, item := range items {
		result := SearchResult{
			ID:           item.ID.Hex(),
			Name:         item.Name,
			Kind:         item.Kind,
			OwnerID:      item.OwnerID.Hex(),
			CreatedAt:    item.CreatedAt,
			UpdatedAt:    item.UpdatedAt,
			FileMetadata: item.FileMetadata,
			IsShared:     item.OwnerID != principal.UserID,
			ShareLevel:   levels[item.ID],
		}
		if item.ParentID != nil {
			parent := item.ParentID.Hex()
			result.ParentID = &parent
		}
		if owner, ok := owners[item.OwnerID]; ok {
			result.Owner = owner.Summary()
		} else {
			result.Owner = models.OwnerSummary{UserID: item.OwnerID.Hex()}
		}
		results = append(results, result)
	}
	return results, nil
}

func clampLimit(limit, fallback int64) int64 {
	if limit <= 0 {
		return fallback
	}
	if limit > maxSearchLimit {
		return maxSearchLimit
	}
	return limit
}

func clampOffset(offset int64) int64 {
	if offset < 0 {
		return 0
	}
	return offset
}
