package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	commonerrors "ethoscore/internal/common/errors"
	"ethoscore/internal/common/logger"
	"ethoscore/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fake Keycloak
// ==========================

type fakeKeycloak struct {
	tokenCalls    int32
	userinfoCalls int32
}

func (f *fakeKeycloak) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/realms/ethoscore/protocol/openid-connect/userinfo", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.userinfoCalls, 1)
		switch r.Header.Get("Authorization") {
		case "Bearer good-token":
			_ = json.NewEncoder(w).Encode(map[string]string{
				"sub":                "user-123",
				"email":              "jane@example.com",
				"name":               "Jane Doe",
				"preferred_username": "jane",
			})
		case "Bearer broken-token":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})
	mux.HandleFunc("/realms/ethoscore/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.tokenCalls, 1)
		_ = r.ParseForm()
		if r.PostForm.Get("client_secret") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(TokenResponse{AccessToken: "svc-token", ExpiresIn: 300})
	})
	mux.HandleFunc("/admin/realms/ethoscore/users/user-123", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer svc-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":         "user-123",
			"email":      "jane@example.com",
			"firstName":  "Jane",
			"lastName":   "Doe",
			"username":   "jane",
			"attributes": map[string][]string{"phone_number": {"+15550100"}},
		})
	})
	return mux
}

func newFakeKeycloak(t *testing.T, secret string) (*fakeKeycloak, *KeycloakClient) {
	t.Helper()
	fake := &fakeKeycloak{}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	return fake, NewKeycloakClient(srv.URL+"/", "ethoscore", "loan-desk", secret)
}

// ==========================
// Keycloak Client Tests
// ==========================

func TestKeycloak_Authenticate(t *testing.T) {
	_, kc := newFakeKeycloak(t, "secret")

	user, err := kc.Authenticate(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, &models.User{ID: "user-123", Email: "jane@example.com", Name: "Jane Doe", Username: "jane"}, user)
}

func TestKeycloak_Authenticate_Errors(t *testing.T) {
	_, kc := newFakeKeycloak(t, "secret")

	_, err := kc.Authenticate(context.Background(), "expired")
	var stdErr *commonerrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, commonerrors.ErrCodeUserNotSignedIn, stdErr.Code)

	_, err = kc.Authenticate(context.Background(), "broken-token")
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, commonerrors.ErrCodeIdentityLookupFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestKeycloak_GetUser_ReusesServiceToken(t *testing.T) {
	fake, kc := newFakeKeycloak(t, "secret")

	for i := 0; i < 3; i++ {
		user, err := kc.GetUser(context.Background(), "user-123")
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", user.Name)
		assert.Equal(t, "+15550100", user.Phone)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.tokenCalls))
}

func TestKeycloak_GetUser_BadClientSecret(t *testing.T) {
	_, kc := newFakeKeycloak(t, "wrong")

	_, err := kc.GetUser(context.Background(), "user-123")
	var stdErr *commonerrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, commonerrors.ErrCodeIdentityLookupFailed, stdErr.Code)
}

// ==========================
// Identity Cache Tests
// ==========================

func TestCachedAuthenticator_MissThenHit(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	fake, kc := newFakeKeycloak(t, "secret")
	cached := NewCachedAuthenticator(kc, rdb, time.Minute, logger.NewTestLogger(t))

	first, err := cached.Authenticate(context.Background(), "good-token")
	require.NoError(t, err)
	second, err := cached.Authenticate(context.Background(), "good-token")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.userinfoCalls))

	key := IdentityCacheKey("good-token")
	assert.True(t, mr.Exists(key))
	assert.NotContains(t, key, "good-token")
	assert.Equal(t, time.Minute, mr.TTL(key))

	mr.FastForward(2 * time.Minute)
	_, err = cached.Authenticate(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fake.userinfoCalls))
}

func TestCachedAuthenticator_FailuresNotCached(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	_, kc := newFakeKeycloak(t, "secret")
	cached := NewCachedAuthenticator(kc, rdb, time.Minute, logger.NewNoOpLogger())

	_, err = cached.Authenticate(context.Background(), "expired")
	assert.Error(t, err)
	assert.False(t, mr.Exists(IdentityCacheKey("expired")))
}

func TestCachedAuthenticator_RedisDownFallsThrough(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	_, kc := newFakeKeycloak(t, "secret")
	cached := NewCachedAuthenticator(kc, rdb, time.Minute, logger.NewTestLogger(t))

	key := IdentityCacheKey("good-token")
	mock.ExpectGet(key).SetErr(errors.New("connection refused"))
	data, _ := json.Marshal(&models.User{ID: "user-123", Email: "jane@example.com", Name: "Jane Doe", Username: "jane"})
	mock.ExpectSet(key, data, time.Minute).SetErr(errors.New("connection refused"))

	user, err := cached.Authenticate(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "user-123", user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedAuthenticator_Invalidate(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cached := NewCachedAuthenticator(nil, rdb, 0, logger.NewNoOpLogger())

	mock.ExpectDel(IdentityCacheKey("tok")).SetVal(1)
	require.NoError(t, cached.Invalidate(context.Background(), "tok"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
