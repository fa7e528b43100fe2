package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"classdrive/apperrors"
	"classdrive/models"
)

func TestShareCreatesAndUpsertsGrant(t *testing.T) {
	env := newTestEnv()
	owner := env.users.add("owner", models.RoleTeacher)
	grantee := env.users.add("grantee", models.RoleStudent)
	item := env.items.add(folder(owner, "worksheets", nil))

	detail, err := env.shares.Share(context.Background(), principalFor(owner), item.ID, grantee.ID, models.ShareLevelViewer)
	require.NoError(t, err)
	assert.Equal(t, models.ShareLevelViewer, detail.Grant.Level)
	assert.Equal(t, grantee.Username, detail.Grantee.Username)

	// Re-sharing at a different level replaces the grant instead of
	// stacking a second one.
	detail, err = env.shares.Share(context.Background(), principalFor(owner), item.ID, grantee.ID, models.ShareLevelEditor)
	require.NoError(t, err)
	assert.Equal(t, models.ShareLevelEditor, detail.Grant.Level)

	grants, err := env.grants.ListByItem(context.Background(), item.ID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, models.ShareLevelEditor, grants[0].Level)
}

func TestShareRejectsSelfAndOwner(t *testing.T) {
	env := newTestEnv()
	owner := env.users.add("owner", models.RoleTeacher)
	admin := env.users.add("admin", models.RoleAdmin)
	item := env.items.add(folder(owner, "plans", nil))

	_, err := env.shares.Share(context.Background(), principalFor(owner), item.ID, owner.ID, models.ShareLevelViewer)
	assert.True(t, apperrors.IsInvalidRequest(err), "sharing with yourself: got %v", err)

	// An admin sharing on the owner's behalf still cannot target the owner.
	_, err = env.shares.Share(context.Background(), principalFor(admin), item.ID, owner.ID, models.ShareLevelViewer)
	assert.True(t, apperrors.IsInvalidRequest(err), "sharing with the owner: got %v", err)
}

func TestShareValidation(t *testing.T) {
	env := newTestEnv()
	owner := env.users.add("owner", models.RoleTeacher)
	item := env.items.add(folder(owner, "plans", nil))

	_, err := env.shares.Share(context.Background(), principalFor(owner), item.ID, primitive.NewObjectID(), "ADMIN")
	assert.True(t, apperrors.IsInvalidRequest(err), "bad level: got %v", err)

	_, err = env.shares.Share(context.Background(), principalFor(owner), primitive.NewObjectID(), primitive.NewObjectID(), models.ShareLevelViewer)
	assert.True(t, apperrors.IsNotFound(err), "missing item: got %v", err)

	_, err = env.shares.Share(context.Background(), principalFor(owner), item.ID, primitive.NewObjectID(), models.ShareLevelViewer)
	assert.True(t, apperrors.IsNotFound(err), "missing grantee: got %v", err)
}

func TestShareRacingDeleteLeavesNoGrant(t *testing.T) {
	env := newTestEnv()
	owner := env.users.add("owner", models.RoleTeacher)
	grantee := env.users.add("grantee", models.RoleStudent)
	item := env.items.add(folder(owner, "doomed", nil))

	// The item is deleted after the management gate passed but before the
	// grant write lands. The write must not leave a grant behind.
	env.grants.beforeUpsert = func() {
		require.NoError(t, env.itemSvc.Delete(context.Background(), principalFor(owner), item.ID))
		env.grants.beforeUpsert = nil
	}

	_, err := env.shares.Share(context.Background(), principalFor(owner), item.ID, grantee.ID, models.ShareLevelViewer)
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)

	total, err := env.grants.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, total, "no grant may outlive its item")
}

func TestGranteeCannotManageSharing(t *testing.T) {
	env := newTestEnv()
	owner := env.users.add("owner", models.RoleTeacher)
	editor := env.users.add("editor", models.RoleStudent)
	other := env.users.add("other", models.RoleStudent)

	item := env.items.add(folder(owner, "exams", nil))
	env.grants.add(item.ID, editor.ID, models.ShareLevelEditor)

	_, err := env.shares.Share(context.Background(), principalFor(editor), item.ID, other.ID, models.ShareLevelViewer)
	assert.True(t, apperrors.IsAccessDenied(err), "grantee share: got %v", err)

	err = env.shares.Unshare(context.Background(), principalFor(editor), item.ID, editor.ID)
	assert.True(t, apperrors.IsAccessDenied(err), "grantee unshare: got %v", err)

	_, err = env.shares.ListForItem(context.Background(), principalFor(editor), item.ID)
	assert.True(t, apperrors.IsAccessDenied(err), "grantee list: got %v", err)
}

func TestUnshare(t *testing.T) {
	env := newTestEnv()
	owner := env.users.add("owner", models.RoleTeacher)
	grantee := env.users.add("grantee", models.RoleStudent)
	item := env.items.add(folder(owner, "exams", nil))
	env.grants.add(item.ID, grantee.ID, models.ShareLevelViewer)

	require.NoError(t, env.shares.Unshare(context.Background(), principalFor(owner), item.ID, grantee.ID))

	grants, err := env.grants.ListByItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Empty(t, grants)

	// Revoking again reports the grant as gone.
	err = env.shares.Unshare(context.Background(), principalFor(owner), item.ID, grantee.ID)
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)
}

func TestListForItemOnMissingItem(t *testing.T) {
	env := newTestEnv()
	owner := env.users.add("owner", models.RoleTeacher)

	_, err := env.shares.ListForItem(context.Background(), principalFor(owner), primitive.NewObjectID())
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)
}

func TestListForItemReturnsGranteeSummaries(t *testing.T) {
	env := newTestEnv()
	owner := env.users.add("owner", models.RoleTeacher)
	a := env.users.add("alice", models.RoleStudent)
	b := env.users.add("bob", models.RoleStudent)
	item := env.items.add(folder(owner, "projects", nil))
	env.grants.add(item.ID, a.ID, models.ShareLevelViewer)
	env.grants.add(item.ID, b.ID, models.ShareLevelEditor)

	details, err := env.shares.ListForItem(context.Background(), principalFor(owner), item.ID)
	require.NoError(t, err)
	require.Len(t, details, 2)

	byName := make(map[string]models.ShareLevel, 2)
	for _, d := range details {
		byName[d.Grantee.Username] = d.Grant.Level
	}
	assert.Equal(t, models.ShareLevelViewer, byName["alice"])
	assert.Equal(t, models.ShareLevelEditor, byName["bob"])
}

func TestListForGranteeSkipsMissingAndTrashed(t *testing.T) {
	env := newTestEnv()
	owner := env.users.add("owner", models.RoleTeacher)
	grantee := env.users.add("grantee", models.RoleStudent)

	live := env.items.add(folder(owner, "live", nil))
	trashed := env.items.add(folder(owner, "trashed", nil))
	trashed.IsTrashed = true

	env.grants.add(live.ID, grantee.ID, models.ShareLevelEditor)
	env.grants.add(trashed.ID, grantee.ID, models.ShareLevelViewer)
	env.grants.add(primitive.NewObjectID(), grantee.ID, models.ShareLevelViewer)

	shared, err := env.shares.ListForGrantee(context.Background(), principalFor(grantee))
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, "live", shared[0].Item.Name)
	assert.Equal(t, models.ShareLevelEditor, shared[0].Level)
	assert.Equal(t, owner.Username, shared[0].Owner.Username)
}
