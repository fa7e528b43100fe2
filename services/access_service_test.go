package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"classdrive/models"
)

func TestResolveAccessAdminBypassesEverything(t *testing.T) {
	env := newTestEnv()
	admin := env.users.add("admin", models.RoleAdmin)

	// The item does not even exist; admins never reach the lookup.
	allowed, err := env.access.ResolveAccess(context.Background(), primitive.NewObjectID(), principalFor(admin), models.ShareLevelEditor)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestResolveAccessOwnerHoldsBothLevels(t *testing.T) {
	env := newTestEnv()
	owner := env.users.add("owner", models.RoleTeacher)
	item := env.items.add(folder(owner, "notes", nil))

	for _, level := range []models.ShareLevel{models.ShareLevelViewer, models.ShareLevelEditor} {
		allowed, err := env.access.ResolveAccess(context.Background(), item.ID, principalFor(owner), level)
		require.NoError(t, err)
		assert.True(t, allowed, "owner should hold %s", level)
	}
}

func TestResolveAccessGrantLevels(t *testing.T) {
	env := newTestEnv()
	owner := env.users.add("owner", models.RoleTeacher)
	viewer := env.users.add("viewer", models.RoleStudent)
	editor := env.users.add("editor", models.RoleStudent)
	stranger := env.users.add("stranger", models.RoleStudent)

	item := env.items.add(folder(owner, "homework", nil))
	env.grants.add(item.ID, viewer.ID, models.ShareLevelViewer)
	env.grants.add(item.ID, editor.ID, models.ShareLevelEditor)

	cases := []struct {
		name     string
		user     *models.User
		required models.ShareLevel
		want     bool
	}{
		{"viewer grant satisfies viewer", viewer, models.ShareLevelViewer, true},
		{"viewer grant does not satisfy editor", viewer, models.ShareLevelEditor, false},
		{"editor grant satisfies viewer", editor, models.ShareLevelViewer, true},
		{"editor grant satisfies editor", editor, models.ShareLevelEditor, true},
		{"no grant denies viewer", stranger, models.ShareLevelViewer, false},
		{"no grant denies editor", stranger, models.ShareLevelEditor, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			allowed, err := env.access.ResolveAccess(context.Background(), item.ID, principalFor(tc.user), tc.required)
			require.NoError(t, err)
			assert.Equal(t, tc.want, allowed)
		})
	}
}

func TestResolveAccessMissingItemDeniesWithoutError(t *testing.T) {
	env := newTestEnv()
	student := env.users.add("student", models.RoleStudent)

	allowed, err := env.access.ResolveAccess(context.Background(), primitive.NewObjectID(), principalFor(student), models.ShareLevelViewer)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestResolveShareManagement(t *testing.T) {
	env := newTestEnv()
	owner := env.users.add("owner", models.RoleTeacher)
	editor := env.users.add("editor", models.RoleStudent)
	admin := env.users.add("admin", models.RoleAdmin)

	item := env.items.add(folder(owner, "class", nil))
	env.grants.add(item.ID, editor.ID, models.ShareLevelEditor)

	allowed, err := env.access.ResolveShareManagement(context.Background(), item.ID, principalFor(owner))
	require.NoError(t, err)
	assert.True(t, allowed, "owner manages sharing")

	allowed, err = env.access.ResolveShareManagement(context.Background(), item.ID, principalFor(admin))
	require.NoError(t, err)
	assert.True(t, allowed, "admin manages sharing")

	// An EDITOR grant edits content, never the grant registry.
	allowed, err = env.access.ResolveShareManagement(context.Background(), item.ID, principalFor(editor))
	require.NoError(t, err)
	assert.False(t, allowed)
}
