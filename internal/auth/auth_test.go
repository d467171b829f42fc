package auth

import (
	"testing"
	"time"

	"github.com/Domenick1991/flightorders/config"
	"github.com/Domenick1991/flightorders/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testIssuer() *Issuer {
	return NewIssuer(config.AuthConfig{JWTSecret: "test-secret", AccessTTLMinutes: 15, RefreshTTLMinutes: 60})
}

func TestIssuePair_RoundTrip(t *testing.T) {
	issuer := testIssuer()
	user := &domain.User{ID: 42, IsStaff: true}

	pair, err := issuer.IssuePair(user)
	require.NoError(t, err)
	assert.True(t, pair.Refresh.Expires.After(pair.Access.Expires))

	claims, err := issuer.Parse(pair.Access.Token, TokenAccess)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.True(t, claims.Staff)
	assert.NotEmpty(t, claims.ID)

	_, err = issuer.Parse(pair.Refresh.Token, TokenRefresh)
	assert.NoError(t, err)
}

func TestParse_WrongType(t *testing.T) {
	issuer := testIssuer()
	pair, err := issuer.IssuePair(&domain.User{ID: 1})
	require.NoError(t, err)

	_, err = issuer.Parse(pair.Refresh.Token, TokenAccess)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestParse_Expired(t *testing.T) {
	issuer := testIssuer()
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := issuer.IssueAccess(&domain.User{ID: 1})
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Parse(token.Token, TokenAccess)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestParse_WrongSecret(t *testing.T) {
	token, err := testIssuer().IssueAccess(&domain.User{ID: 1})
	require.NoError(t, err)

	other := NewIssuer(config.AuthConfig{JWTSecret: "another", AccessTTLMinutes: 15, RefreshTTLMinutes: 60})
	_, err = other.Parse(token.Token, TokenAccess)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = other.Parse("garbage", TokenAccess)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
