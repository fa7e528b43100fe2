package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"classdrive/models"
)

func testUser() *models.User {
	return &models.User{
		ID:       primitive.NewObjectID(),
		Username: "teacher1",
		Email:    "teacher1@school.test",
		Role:     models.RoleTeacher,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	user := testUser()

	token, err := GenerateToken(user, "test-secret", time.Hour)
	require.NoError(t, err)

	claims, err := VerifyToken(token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, "teacher1", claims.Username)
	assert.Equal(t, string(models.RoleTeacher), claims.Role)
}

func TestVerifyTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(testUser(), "test-secret", time.Hour)
	require.NoError(t, err)

	_, err = VerifyToken(token, "other-secret")
	assert.Error(t, err)
}

func TestVerifyTokenExpired(t *testing.T) {
	token, err := GenerateToken(testUser(), "test-secret", -time.Minute)
	require.NoError(t, err)

	_, err = VerifyToken(token, "test-secret")
	assert.Error(t, err)
}

func TestVerifyTokenGarbage(t *testing.T) {
	_, err := VerifyToken("not.a.token", "test-secret")
	assert.Error(t, err)
}
