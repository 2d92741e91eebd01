package auth_test

import (
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/grocery-shop/internal/auth"
)

func TestTokenManager_IssueAndParse(t *testing.T) {
	manager := auth.NewTokenManager("test-secret", time.Minute)
	userID, err := uuid.NewV4()
	require.NoError(t, err)

	token, err := manager.Issue(userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsedID, err := manager.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, userID, parsedID)
}

func TestTokenManager_Parse_Expired(t *testing.T) {
	manager := auth.NewTokenManager("test-secret", -time.Minute)
	userID, err := uuid.NewV4()
	require.NoError(t, err)

	token, err := manager.Issue(userID)
	require.NoError(t, err)

	_, err = manager.Parse(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenManager_Parse_WrongSecret(t *testing.T) {
	userID, err := uuid.NewV4()
	require.NoError(t, err)

	token, err := auth.NewTokenManager("secret-one", time.Minute).Issue(userID)
	require.NoError(t, err)

	_, err = auth.NewTokenManager("secret-two", time.Minute).Parse(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenManager_Parse_Garbage(t *testing.T) {
	manager := auth.NewTokenManager("test-secret", time.Minute)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := manager.Parse(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken, "token %q", token)
	}
}
