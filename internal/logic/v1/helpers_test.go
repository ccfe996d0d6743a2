package v1

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/duynhne/session-auth-service/config"
	"github.com/duynhne/session-auth-service/internal/core/repository"
)

const testPassword = "Passw0rd!"

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		AccessTokenSecret:      "access-secret-for-tests",
		AccessTokenExpiration:  "15m",
		RefreshTokenSecret:     "refresh-secret-for-tests",
		RefreshTokenExpiration: "30d",
	}
}

func newTestCodec(t *testing.T) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec(testAuthConfig())
	require.NoError(t, err)
	return codec
}

// fastCredentials hashes with the minimum bcrypt cost to keep tests quick.
func fastCredentials() *CredentialVerifier {
	return &CredentialVerifier{cost: bcrypt.MinCost}
}

func newTestService(t *testing.T) (*AuthService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	svc, err := NewAuthService(store, newTestCodec(t), fastCredentials(), NewSessionManager(DefaultSessionTTL))
	require.NoError(t, err)
	return svc, store
}
