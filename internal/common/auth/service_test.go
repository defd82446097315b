// internal/common/auth/service_test.go
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"talent-platform/internal/common/database"
	"talent-platform/internal/common/errors"
	"talent-platform/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *database.RedisClient {
	t.Helper()
	mr := miniredis.RunT(t)
	return &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
}

func introspectionServer(t *testing.T, calls *int, response map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/oauth/introspect", r.URL.Path)
		require.NoError(t, r.ParseForm())
		require.NotEmpty(t, r.Form.Get("token"))
		require.Equal(t, "client-1", r.Form.Get("client_id"))
		json.NewEncoder(w).Encode(response)
	}))
}

func TestIntrospect_ActiveToken(t *testing.T) {
	var calls int
	ts := introspectionServer(t, &calls, map[string]interface{}{
		"active": true,
		"sub":    "user-1",
		"email":  "user@example.com",
		"role":   "employer",
	})
	defer ts.Close()

	svc := NewService(ts.URL, "client-1", "secret", nil, time.Minute, logger.NewTestLogger(t))

	id, err := svc.Introspect(context.Background(), "tok-1")

	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
	assert.Equal(t, RoleEmployer, id.Role)
}

func TestIntrospect_InactiveToken(t *testing.T) {
	var calls int
	ts := introspectionServer(t, &calls, map[string]interface{}{"active": false})
	defer ts.Close()

	svc := NewService(ts.URL, "client-1", "secret", nil, time.Minute, logger.NewTestLogger(t))

	_, err := svc.Introspect(context.Background(), "tok-1")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnauthorized, errors.CodeOf(err))
}

func TestIntrospect_EmptyToken(t *testing.T) {
	svc := NewService("http://auth.invalid", "client-1", "secret", nil, time.Minute, logger.NewTestLogger(t))

	_, err := svc.Introspect(context.Background(), "")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnauthorized, errors.CodeOf(err))
}

func TestIntrospect_UnknownRoleDefaultsToTalent(t *testing.T) {
	var calls int
	ts := introspectionServer(t, &calls, map[string]interface{}{
		"active": true,
		"sub":    "user-2",
		"role":   "superuser",
	})
	defer ts.Close()

	svc := NewService(ts.URL, "client-1", "secret", nil, time.Minute, logger.NewTestLogger(t))

	id, err := svc.Introspect(context.Background(), "tok-2")

	require.NoError(t, err)
	assert.Equal(t, RoleTalent, id.Role)
}

func TestIntrospect_CachesResult(t *testing.T) {
	var calls int
	ts := introspectionServer(t, &calls, map[string]interface{}{
		"active": true,
		"sub":    "user-1",
		"role":   "admin",
	})
	defer ts.Close()

	cache := newTestCache(t)
	svc := NewService(ts.URL, "client-1", "secret", cache, time.Minute, logger.NewTestLogger(t))

	first, err := svc.Introspect(context.Background(), "tok-1")
	require.NoError(t, err)
	second, err := svc.Introspect(context.Background(), "tok-1")
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second lookup should be served from cache")
	assert.Equal(t, first.UserID, second.UserID)
	assert.Equal(t, RoleAdmin, second.Role)
}

func TestIntrospect_ProviderDown(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	svc := NewService(ts.URL, "client-1", "secret", nil, time.Minute, logger.NewTestLogger(t))

	_, err := svc.Introspect(context.Background(), "tok-1")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUpstreamFailure, errors.CodeOf(err))
}
