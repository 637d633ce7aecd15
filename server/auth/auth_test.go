package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestTokenRoundTrip(t *testing.T) {
	identity := Identity{UserID: 42, Role: RoleAgent}
	token, err := SignToken(testSecret, identity, time.Hour)
	require.NoError(t, err)

	verified, err := VerifyToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, identity, verified)
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	token, err := SignToken(testSecret, Identity{UserID: 1, Role: RoleUser}, time.Hour)
	require.NoError(t, err)

	_, err = VerifyToken("other-secret", token)
	require.Error(t, err)
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	token, err := SignToken(testSecret, Identity{UserID: 1, Role: RoleUser}, -time.Minute)
	require.NoError(t, err)

	_, err = VerifyToken(testSecret, token)
	require.Error(t, err)
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"user", "agent", "admin"} {
		role, err := ParseRole(valid)
		require.NoError(t, err)
		assert.Equal(t, Role(valid), role)
	}
	_, err := ParseRole("superuser")
	require.Error(t, err)
}

func newEchoContext(t *testing.T, target string, header http.Header) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestMiddlewareBearerToken(t *testing.T) {
	token, err := SignToken(testSecret, Identity{UserID: 7, Role: RoleUser}, time.Hour)
	require.NoError(t, err)

	c, _ := newEchoContext(t, "/api/v1/chat/conversations", http.Header{"Authorization": {"Bearer " + token}})
	handler := Middleware(testSecret)(func(c echo.Context) error {
		identity, ok := FromContext(c)
		require.True(t, ok)
		assert.Equal(t, int32(7), identity.UserID)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
}

func TestMiddlewareQueryTokenFallback(t *testing.T) {
	token, err := SignToken(testSecret, Identity{UserID: 7, Role: RoleAdmin}, time.Hour)
	require.NoError(t, err)

	c, _ := newEchoContext(t, "/api/v1/ws?token="+token, nil)
	handler := Middleware(testSecret)(func(c echo.Context) error {
		identity, ok := FromContext(c)
		require.True(t, ok)
		assert.Equal(t, RoleAdmin, identity.Role)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
}

func TestMiddlewareRejectsMissingAndInvalidTokens(t *testing.T) {
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	c, _ := newEchoContext(t, "/api/v1/chat/send", nil)
	err := Middleware(testSecret)(next)(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)

	c, _ = newEchoContext(t, "/api/v1/chat/send", http.Header{"Authorization": {"Bearer garbage"}})
	err = Middleware(testSecret)(next)(c)
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestRequireRole(t *testing.T) {
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	staffOnly := RequireRole(RoleAgent, RoleAdmin)

	c, _ := newEchoContext(t, "/api/v1/support/threads", nil)
	c.Set(identityContextKey, Identity{UserID: 1, Role: RoleAgent})
	require.NoError(t, staffOnly(next)(c))

	c, _ = newEchoContext(t, "/api/v1/support/threads", nil)
	c.Set(identityContextKey, Identity{UserID: 2, Role: RoleUser})
	err := staffOnly(next)(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.Code)
}
