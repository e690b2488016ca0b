package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func TestSessionManager_IssueAndParse(t *testing.T) {
	sm := NewSessionManager(testSecret, 5*24*time.Hour, nil)

	token, exp, err := sm.Issue(42, "alice")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*24*time.Hour), exp, time.Minute)

	claims, err := sm.Parse(token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
	assert.Equal(t, "alice", claims.Username)
	assert.NotEmpty(t, claims.ID)

	other := NewSessionManager("another-secret-another-secret-0000", time.Hour, nil)
	_, err = other.Parse(token)
	assert.Error(t, err)
}

func TestSessionManager_Expired(t *testing.T) {
	sm := NewSessionManager(testSecret, time.Hour, nil)
	sm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := sm.Issue(1, "bob")
	require.NoError(t, err)

	sm.now = time.Now
	_, err = sm.Parse(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestSessionManager_RejectsForeignIssuer(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "1",
		Issuer:    "someone-else",
		Audience:  jwt.ClaimStrings{tokenAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewSessionManager(testSecret, time.Hour, nil).Parse(signed)
	assert.Error(t, err)
}

func TestSessionRequired(t *testing.T) {
	_, rdb := newTestRedis(t)
	sm := NewSessionManager(testSecret, time.Hour, rdb)

	app := fiber.New()
	app.Get("/test", sm.SessionRequired(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": c.Locals("userID")})
	})

	valid, _, err := sm.Issue(123, "carol")
	require.NoError(t, err)

	revoked, _, err := sm.Issue(124, "dave")
	require.NoError(t, err)
	revokedClaims, err := sm.Parse(revoked)
	require.NoError(t, err)
	require.NoError(t, sm.Revoke(context.Background(), revokedClaims))

	expiredSM := NewSessionManager(testSecret, time.Hour, nil)
	expiredSM.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }
	expired, _, err := expiredSM.Issue(123, "carol")
	require.NoError(t, err)

	tests := []struct {
		name           string
		cookie         string
		authHeader     string
		expectedStatus int
		expectedUserID uint
	}{
		{name: "Cookie", cookie: valid, expectedStatus: http.StatusOK, expectedUserID: 123},
		{name: "Bearer fallback", authHeader: "Bearer " + valid, expectedStatus: http.StatusOK, expectedUserID: 123},
		{name: "Missing", expectedStatus: http.StatusUnauthorized},
		{name: "Basic auth", authHeader: "Basic dXNlcjpwYXNz", expectedStatus: http.StatusUnauthorized},
		{name: "Malformed", cookie: "malformed.token.here", expectedStatus: http.StatusUnauthorized},
		{name: "Expired", cookie: expired, expectedStatus: http.StatusUnauthorized},
		{name: "Revoked", cookie: revoked, expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.cookie})
			}
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var body map[string]interface{}
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, float64(tt.expectedUserID), body["userID"])
			}
		})
	}
}

func TestRevokeExpiresWithToken(t *testing.T) {
	mr, rdb := newTestRedis(t)
	sm := NewSessionManager(testSecret, time.Hour, rdb)

	token, _, err := sm.Issue(7, "erin")
	require.NoError(t, err)
	claims, err := sm.Parse(token)
	require.NoError(t, err)
	require.NoError(t, sm.Revoke(context.Background(), claims))

	key := blacklistPrefix + claims.ID
	assert.True(t, mr.Exists(key))
	ttl := mr.TTL(key)
	assert.True(t, ttl > 59*time.Minute && ttl <= time.Hour, "ttl %s", ttl)
	assert.True(t, sm.IsRevoked(context.Background(), claims))
}

func TestClaimsUserID(t *testing.T) {
	c := &SessionClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: strconv.Itoa(9)}}
	id, err := c.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(9), id)

	c.Subject = "nine"
	_, err = c.UserID()
	assert.Error(t, err)
}
