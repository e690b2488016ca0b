package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"glimpse/internal/config"
	"glimpse/internal/database"
	"glimpse/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	srv   *Server
	app   *fiber.App
	db    *gorm.DB
	store *testutil.MemoryStore
	redis *miniredis.Miniredis
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		JWTSecret:        "test-secret-that-is-at-least-32-characters",
		SessionTTLHours:  120,
		Env:              "test",
		AllowedOrigins:   "http://localhost:5173",
		MediaBackend:     config.MediaBackendLocal,
		MediaDir:         t.TempDir(),
		MediaPublicURL:   "/media",
		MediaMaxUploadMB: 2,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := testutil.NewMemoryStore()
	srv, err := NewServerWithDeps(testConfig(t), db, rdb, store, nil)
	require.NoError(t, err)

	return &testEnv{srv: srv, app: srv.App(), db: db, store: store, redis: mr}
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	body := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body), "body: %s", raw)
	}
	return resp, body
}

func jsonRequest(method, path string, payload any, token string) *http.Request {
	var r io.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "token", Value: token})
	}
	return req
}

// multipartRequest builds a form with the given text fields and, when image is
// non-nil, a file part under fileField.
func multipartRequest(t *testing.T, path string, fields map[string]string, fileField string, image []byte, token string) *http.Request {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		part, err := w.CreateFormFile(fileField, "photo.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "token", Value: token})
	}
	return req
}

func sessionCookieFrom(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	return nil
}

// signUp registers and logs in username, returning the user id and session token.
func (e *testEnv) signUp(t *testing.T, username string) (uint, string) {
	t.Helper()
	email := username + "@example.com"
	resp, body := e.do(t, jsonRequest(http.MethodPost, "/api/v1/user/register", map[string]string{
		"username": username,
		"email":    email,
		"password": "password123",
	}, ""))
	require.Equal(t, http.StatusCreated, resp.StatusCode, "register: %v", body)

	resp, body = e.do(t, jsonRequest(http.MethodPost, "/api/v1/user/login", map[string]string{
		"email":    email,
		"password": "password123",
	}, ""))
	require.Equal(t, http.StatusOK, resp.StatusCode, "login: %v", body)

	cookie := sessionCookieFrom(resp)
	require.NotNil(t, cookie)
	user := body["user"].(map[string]any)
	return uint(user["id"].(float64)), cookie.Value
}

// createPost uploads a small image as token and returns the new post id. The
// image width follows the caption length so distinct captions store distinct
// objects.
func (e *testEnv) createPost(t *testing.T, token, caption string) uint {
	t.Helper()
	req := multipartRequest(t, "/api/v1/post/new", map[string]string{"caption": caption}, "image", testutil.TinyPNG(t, 20+len(caption), 10), token)
	resp, body := e.do(t, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "create post: %v", body)
	post := body["post"].(map[string]any)
	return uint(post["id"].(float64))
}

func urlf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
