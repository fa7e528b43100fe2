package services

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"classdrive/apperrors"
	"classdrive/models"
	"classdrive/repository"
)

// AdminService serves the admin dashboard: simple counts and user
// management. It sits outside the access-control core — routes mounting
// it are admin-gated at the transport layer.
type AdminService struct {
	items  repository.ItemRepository
	grants repository.GrantRepository
	users  repository.UserRepository
}

func NewAdminService(repos *repository.Repositories) *AdminService {
	return &AdminService{
		items:  repos.Items,
		grants: repos.Grants,
		users:  repos.Users,
	}
}

type DashboardStats struct {
	TotalUsers     int64                     `json:"total_users"`
	UsersByRole    map[models.UserRole]int64 `json:"users_by_role"`
	TotalItems     int64                     `json:"total_items"`
	ItemsByKind    map[models.ItemKind]int64 `json:"items_by_kind"`
	TotalShares    int64                     `json:"total_shares"`
	TotalFileBytes int64                     `json:"total_file_bytes"`
}

func (s *AdminService) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	usersByRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to count users", err)
	}
	itemsByKind, err := s.items.CountByKind(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to count items", err)
	}
	totalShares, err := s.grants.Count(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to count shares", err)
	}
	totalBytes, err := s.items.TotalFileBytes(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to sum file sizes", err)
	}

	stats := &DashboardStats{
		UsersByRole:    usersByRole,
		ItemsByKind:    itemsByKind,
		TotalShares:    totalShares,
		TotalFileBytes: totalBytes,
	}
	for _, n := range usersByRole {
		stats.TotalUsers += n
	}
	for _, n := range itemsByKind {
		stats.TotalItems += n
	}
	return stats, nil
}

func (s *AdminService) ListUsers(ctx context.Context, limit, offset int64) ([]*models.User, int64, error) {
	users, total, err := s.users.List(ctx, clampLimit(limit, defaultSearchLimit), clampOffset(offset))
	if err != nil {
		return nil, 0, apperrors.Internal("failed to list users", err)
	}
	return users, total, nil
}

func (s *AdminService) UpdateUserRole(ctx context.Context, userID primitive.ObjectID, role models.UserRole) error {
	if !role.Valid() {
		return apperrors.InvalidRequest("role must be ADMIN, TEACHER or STUDENT")
	}

	err := s.users.UpdateRole(ctx, userID, role)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("user")
	}
	if err != nil {
		return apperrors.Internal("failed to update user role", err)
	}
	return nil
}
