package places_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	places "github.com/goliatone/go-places"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIdentity implements places.Identity for testing
type TestIdentity struct {
	id    string
	name  string
	email string
}

func (i TestIdentity) ID() string    { return i.id }
func (i TestIdentity) Name() string  { return i.name }
func (i TestIdentity) Email() string { return i.email }

func TestNewTokenService(t *testing.T) {
	t.Run("requires a signing key", func(t *testing.T) {
		_, err := places.NewTokenService(nil, 1, "issuer", nil, nil)
		require.Error(t, err)
	})

	t.Run("builds with a signing key", func(t *testing.T) {
		svc, err := places.NewTokenService([]byte("test-signing-key"), 1, "issuer", nil, nil)
		require.NoError(t, err)
		require.NotNil(t, svc)
	})
}

func TestTokenServiceGenerateAndValidate(t *testing.T) {
	svc, err := places.NewTokenService([]byte("test-signing-key"), 1, "go-places", nil, nil)
	require.NoError(t, err)

	identity := TestIdentity{
		id:    "8a1c9d6e-0000-4000-8000-000000000001",
		name:  "Ada Lovelace",
		email: "ada@example.com",
	}

	token, err := svc.Generate(identity)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, identity.id, claims.UserID())
	assert.Equal(t, identity.email, claims.Email())
	assert.Equal(t, identity.id, claims.Subject())

	exp := claims.Expires()
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)
}

func TestTokenServiceValidateRejectsBadTokens(t *testing.T) {
	svc, err := places.NewTokenService([]byte("test-signing-key"), 1, "go-places", nil, nil)
	require.NoError(t, err)

	identity := TestIdentity{id: "user-1", email: "ada@example.com"}

	t.Run("tampered token", func(t *testing.T) {
		token, err := svc.Generate(identity)
		require.NoError(t, err)

		_, err = svc.Validate(token + "x")
		require.Error(t, err)
		assert.True(t, places.IsMalformedError(err))
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.Validate("not-a-token")
		require.Error(t, err)
		assert.True(t, places.IsMalformedError(err))
	})

	t.Run("token signed with a different key", func(t *testing.T) {
		other, err := places.NewTokenService([]byte("another-key"), 1, "go-places", nil, nil)
		require.NoError(t, err)

		token, err := other.Generate(identity)
		require.NoError(t, err)

		_, err = svc.Validate(token)
		require.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := &places.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-1",
				Issuer:    "go-places",
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Hour)),
			},
			UID:       "user-1",
			UserEmail: "ada@example.com",
		}

		token, err := svc.SignClaims(claims)
		require.NoError(t, err)

		_, err = svc.Validate(token)
		require.Error(t, err)
		assert.True(t, places.IsTokenExpiredError(err))
	})

	t.Run("unsigned token is rejected", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"sub": "user-1",
		})
		token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.Validate(token)
		require.Error(t, err)
	})
}
