package server

import (
	"bytes"
	"net/http"
	"regexp"
	"testing"

	"glimpse/internal/middleware"
	"glimpse/internal/observability"
	"glimpse/internal/testutil"
	"glimpse/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func ids(t *testing.T, v any) []uint {
	t.Helper()
	list, ok := v.([]any)
	require.True(t, ok, "expected array, got %T", v)
	out := make([]uint, 0, len(list))
	for _, item := range list {
		out = append(out, uint(item.(float64)))
	}
	return out
}

func TestRegisterLoginSetsSessionCookie(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, jsonRequest(http.MethodPost, "/api/v1/user/register", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "password123",
	}, ""))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Account created successfully", body["message"])

	resp, body = env.do(t, jsonRequest(http.MethodPost, "/api/v1/user/login", map[string]string{
		"email":    "alice@example.com",
		"password": "password123",
	}, ""))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Welcome back alice", body["message"])

	user := body["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])
	assert.NotContains(t, user, "password")
	assert.Empty(t, user["followers"])

	cookie := sessionCookieFrom(resp)
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 120*60*60, cookie.MaxAge)
}

func TestRegisterRejectsDuplicatesAndMissingFields(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "alice")

	resp, body := env.do(t, jsonRequest(http.MethodPost, "/api/v1/user/register", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "password123",
	}, ""))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, models.CodeConflict, body["code"])
	assert.Equal(t, false, body["success"])

	resp, body = env.do(t, jsonRequest(http.MethodPost, "/api/v1/user/register", map[string]string{
		"username": "bob",
	}, ""))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Something is missing, please check", body["message"])
}

func TestLoginFailuresLookTheSame(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "alice")

	wrongPassword, wpBody := env.do(t, jsonRequest(http.MethodPost, "/api/v1/user/login", map[string]string{
		"email":    "alice@example.com",
		"password": "nope-nope",
	}, ""))
	unknownEmail, ueBody := env.do(t, jsonRequest(http.MethodPost, "/api/v1/user/login", map[string]string{
		"email":    "ghost@example.com",
		"password": "password123",
	}, ""))

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.StatusCode)
	assert.Equal(t, wpBody, ueBody)
	assert.Nil(t, sessionCookieFrom(wrongPassword))
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, jsonRequest(http.MethodGet, "/api/v1/post/all", nil, ""))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, models.CodeUnauthorized, body["code"])

	resp, _ = env.do(t, jsonRequest(http.MethodGet, "/api/v1/post/all", nil, "not-a-jwt"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signUp(t, "alice")

	resp, body := env.do(t, jsonRequest(http.MethodPost, "/api/v1/user/logout", nil, token))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Logged out successfully", body["message"])
	cleared := sessionCookieFrom(resp)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	resp, _ = env.do(t, jsonRequest(http.MethodGet, "/api/v1/user/suggested", nil, token))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSuggestedUsersExcludeCaller(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.signUp(t, "alice")
	bobID, _ := env.signUp(t, "bob")

	resp, body := env.do(t, jsonRequest(http.MethodGet, "/api/v1/user/suggested", nil, aliceToken))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	users := body["users"].([]any)
	require.Len(t, users, 1)
	bob := users[0].(map[string]any)
	assert.Equal(t, float64(bobID), bob["id"])
	assert.NotContains(t, bob, "password")
}

func TestFollowToggle(t *testing.T) {
	env := newTestEnv(t)
	aliceID, aliceToken := env.signUp(t, "alice")
	bobID, _ := env.signUp(t, "bob")

	resp, body := env.do(t, jsonRequest(http.MethodPost, urlf("/api/v1/user/%d/followOrUnfollow", bobID), nil, aliceToken))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "followed", body["action"])

	_, body = env.do(t, jsonRequest(http.MethodGet, urlf("/api/v1/user/%d/profile", bobID), nil, aliceToken))
	assert.Equal(t, []uint{aliceID}, ids(t, body["user"].(map[string]any)["followers"]))
	_, body = env.do(t, jsonRequest(http.MethodGet, urlf("/api/v1/user/%d/profile", aliceID), nil, aliceToken))
	assert.Equal(t, []uint{bobID}, ids(t, body["user"].(map[string]any)["following"]))

	_, body = env.do(t, jsonRequest(http.MethodPost, urlf("/api/v1/user/%d/followOrUnfollow", bobID), nil, aliceToken))
	assert.Equal(t, "unfollowed", body["action"])
	_, body = env.do(t, jsonRequest(http.MethodGet, urlf("/api/v1/user/%d/profile", bobID), nil, aliceToken))
	assert.Empty(t, ids(t, body["user"].(map[string]any)["followers"]))

	resp, _ = env.do(t, jsonRequest(http.MethodPost, urlf("/api/v1/user/%d/followOrUnfollow", aliceID), nil, aliceToken))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, jsonRequest(http.MethodPost, "/api/v1/user/999/followOrUnfollow", nil, aliceToken))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEditProfile(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signUp(t, "alice")

	resp, body := env.do(t, jsonRequest(http.MethodPost, "/api/v1/user/profile/edit", map[string]string{"bio": "hello"}, token))
	require.Equal(t, http.StatusOK, resp.StatusCode, "%v", body)
	user := body["user"].(map[string]any)
	assert.Equal(t, "hello", user["bio"])
	assert.Equal(t, "alice", user["username"])

	req := multipartRequest(t, "/api/v1/user/profile/edit", map[string]string{"username": "alice_2"}, "avatar", testutil.TinyPNG(t, 40, 40), token)
	resp, body = env.do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode, "%v", body)
	user = body["user"].(map[string]any)
	assert.Equal(t, "alice_2", user["username"])
	assert.Equal(t, "hello", user["bio"])
	assert.Contains(t, user["profile_picture"], "/media/avatars/")
	assert.Equal(t, 1, env.store.Len())
}

func TestEditProfileWithoutBodyIsNoop(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signUp(t, "alice")

	resp, body := env.do(t, jsonRequest(http.MethodPost, "/api/v1/user/profile/edit", nil, token))
	require.Equal(t, http.StatusOK, resp.StatusCode, "%v", body)
	user := body["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])
	assert.Empty(t, user["bio"])
	assert.Zero(t, env.store.Len())
}

func TestAddNewPostRequiresImage(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signUp(t, "alice")

	req := multipartRequest(t, "/api/v1/post/new", map[string]string{"caption": "no picture"}, "image", nil, token)
	resp, body := env.do(t, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Image Required", body["message"])
	assert.Zero(t, env.store.Len())
}

func TestPostLifecycle(t *testing.T) {
	env := newTestEnv(t)
	aliceID, aliceToken := env.signUp(t, "alice")
	_, bobToken := env.signUp(t, "bob")

	first := env.createPost(t, aliceToken, "first")
	second := env.createPost(t, aliceToken, "second")
	assert.Equal(t, 2, env.store.Len())

	_, body := env.do(t, jsonRequest(http.MethodGet, "/api/v1/post/all", nil, bobToken))
	posts := body["posts"].([]any)
	require.Len(t, posts, 2)
	newest := posts[0].(map[string]any)
	assert.Equal(t, float64(second), newest["id"])
	author := newest["author"].(map[string]any)
	assert.Equal(t, "alice", author["username"])
	assert.NotContains(t, author, "email")

	_, body = env.do(t, jsonRequest(http.MethodGet, "/api/v1/post/mine", nil, bobToken))
	assert.Empty(t, body["posts"])

	resp, body := env.do(t, jsonRequest(http.MethodPost, urlf("/api/v1/post/%d/like", first), nil, bobToken))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, ids(t, body["likes"]), 1)
	_, body = env.do(t, jsonRequest(http.MethodPost, urlf("/api/v1/post/%d/like", first), nil, bobToken))
	assert.Len(t, ids(t, body["likes"]), 1)
	_, body = env.do(t, jsonRequest(http.MethodPost, urlf("/api/v1/post/%d/dislike", first), nil, bobToken))
	assert.Empty(t, ids(t, body["likes"]))

	resp, body = env.do(t, jsonRequest(http.MethodPost, urlf("/api/v1/post/%d/comment", first), map[string]string{"text": "nice"}, bobToken))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "nice", body["comment"].(map[string]any)["text"])

	resp, _ = env.do(t, jsonRequest(http.MethodPost, urlf("/api/v1/post/%d/comment", first), map[string]string{"text": ""}, bobToken))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body = env.do(t, jsonRequest(http.MethodGet, urlf("/api/v1/post/%d/comments", first), nil, aliceToken))
	assert.Len(t, body["comments"], 1)

	_, body = env.do(t, jsonRequest(http.MethodPost, urlf("/api/v1/post/%d/bookmark", first), nil, bobToken))
	assert.Equal(t, models.BookmarkSaved, body["type"])
	_, body = env.do(t, jsonRequest(http.MethodGet, "/api/v1/user/bookmarks", nil, bobToken))
	assert.Len(t, body["posts"], 1)

	resp, body = env.do(t, jsonRequest(http.MethodDelete, urlf("/api/v1/post/%d", first), nil, bobToken))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, models.CodeForbidden, body["code"])

	resp, _ = env.do(t, jsonRequest(http.MethodDelete, urlf("/api/v1/post/%d", first), nil, aliceToken))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = env.do(t, jsonRequest(http.MethodGet, urlf("/api/v1/post/%d/comments", first), nil, aliceToken))
	assert.Empty(t, body["comments"])
	_, body = env.do(t, jsonRequest(http.MethodGet, "/api/v1/user/bookmarks", nil, bobToken))
	assert.Empty(t, body["posts"])
	_, body = env.do(t, jsonRequest(http.MethodGet, urlf("/api/v1/user/%d/profile", aliceID), nil, aliceToken))
	assert.Equal(t, []uint{second}, ids(t, body["user"].(map[string]any)["posts"]))

	resp, _ = env.do(t, jsonRequest(http.MethodPost, urlf("/api/v1/post/%d/like", first), nil, bobToken))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBookmarkToggle(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signUp(t, "alice")
	postID := env.createPost(t, token, "keep")

	_, body := env.do(t, jsonRequest(http.MethodPost, urlf("/api/v1/post/%d/bookmark", postID), nil, token))
	assert.Equal(t, models.BookmarkSaved, body["type"])
	_, body = env.do(t, jsonRequest(http.MethodPost, urlf("/api/v1/post/%d/bookmark", postID), nil, token))
	assert.Equal(t, models.BookmarkUnsaved, body["type"])
	_, body = env.do(t, jsonRequest(http.MethodGet, "/api/v1/user/bookmarks", nil, token))
	assert.Empty(t, body["posts"])
}

func TestMessagesShareOneConversation(t *testing.T) {
	env := newTestEnv(t)
	aliceID, aliceToken := env.signUp(t, "alice")
	bobID, bobToken := env.signUp(t, "bob")

	_, body := env.do(t, jsonRequest(http.MethodGet, urlf("/api/v1/message/%d", bobID), nil, aliceToken))
	assert.Empty(t, body["messages"])

	resp, body := env.do(t, jsonRequest(http.MethodPost, urlf("/api/v1/message/%d/send", bobID), map[string]string{"message": "hi bob"}, aliceToken))
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%v", body)
	sent := body["message"].(map[string]any)
	assert.Equal(t, "hi bob", sent["message"])
	assert.Equal(t, float64(aliceID), sent["sender_id"])

	resp, _ = env.do(t, jsonRequest(http.MethodPost, urlf("/api/v1/message/%d/send", aliceID), map[string]string{"message": "hey alice"}, bobToken))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	_, fromAlice := env.do(t, jsonRequest(http.MethodGet, urlf("/api/v1/message/%d", bobID), nil, aliceToken))
	_, fromBob := env.do(t, jsonRequest(http.MethodGet, urlf("/api/v1/message/%d", aliceID), nil, bobToken))
	require.Len(t, fromAlice["messages"], 2)
	assert.Equal(t, fromAlice["messages"], fromBob["messages"])
	assert.Equal(t, "hi bob", fromAlice["messages"].([]any)[0].(map[string]any)["message"])

	resp, _ = env.do(t, jsonRequest(http.MethodPost, urlf("/api/v1/message/%d/send", bobID), map[string]string{"message": ""}, aliceToken))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = env.do(t, jsonRequest(http.MethodPost, "/api/v1/message/999/send", map[string]string{"message": "anyone?"}, aliceToken))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInvalidIDIsBadRequest(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signUp(t, "alice")

	resp, body := env.do(t, jsonRequest(http.MethodGet, "/api/v1/user/abc/profile", nil, token))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeValidation, body["code"])
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, jsonRequest(http.MethodGet, "/api/v1/nowhere", nil, ""))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, models.CodeNotFound, body["code"])
}

func TestHealthLive(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, jsonRequest(http.MethodGet, "/health/live", nil, ""))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "up", body["status"])

	resp, body = env.do(t, jsonRequest(http.MethodGet, "/health/ready", nil, ""))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

func TestRequestLogsCarryTraceID(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signUp(t, "alice")

	logs := &bytes.Buffer{}
	prevLogger := middleware.Logger
	middleware.Logger = middleware.NewLogger(logs, false)
	prevTracer := observability.Tracer
	tp := sdktrace.NewTracerProvider()
	observability.Tracer = tp.Tracer("test")
	t.Cleanup(func() {
		middleware.Logger = prevLogger
		observability.Tracer = prevTracer
		_ = tp.Shutdown(t.Context())
	})

	resp, _ := env.do(t, jsonRequest(http.MethodGet, "/api/v1/user/suggested", nil, token))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := logs.String()
	assert.Contains(t, out, `msg="request processed"`)
	assert.Contains(t, out, "request_id=")
	require.Regexp(t, `trace_id=[0-9a-f]{32}`, out)
	assert.Equal(t, resp.Header.Get("X-Trace-ID"), regexp.MustCompile(`trace_id=([0-9a-f]{32})`).FindStringSubmatch(out)[1])
}
