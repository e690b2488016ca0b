package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"glimpse/internal/observability"
	"glimpse/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// captureLogs points Logger at a buffer for the rest of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := Logger
	Logger = NewLogger(buf, false)
	t.Cleanup(func() { Logger = prev })
	return buf
}

func newLoggedApp(t *testing.T) *fiber.App {
	t.Helper()
	prev := observability.Tracer
	tp := sdktrace.NewTracerProvider()
	observability.Tracer = tp.Tracer("test")
	t.Cleanup(func() {
		observability.Tracer = prev
		_ = tp.Shutdown(t.Context())
	})

	app := fiber.New()
	app.Use(TracingMiddleware(), StructuredLogger())
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/missing", func(c *fiber.Ctx) error { return models.NewNotFoundError("Post", 1) })
	app.Get("/broken", func(c *fiber.Ctx) error { return models.NewInternalError(assert.AnError) })
	return app
}

func get(t *testing.T, app *fiber.App, path string) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp.StatusCode
}

func TestStructuredLoggerCarriesTraceID(t *testing.T) {
	logs := captureLogs(t)
	app := newLoggedApp(t)

	get(t, app, "/ok")
	out := logs.String()
	assert.Contains(t, out, `msg="request processed"`)
	assert.Contains(t, out, "status=200")
	assert.Regexp(t, `trace_id=[0-9a-f]{32}`, out)
}

func TestStructuredLoggerLevelFollowsErrorStatus(t *testing.T) {
	t.Run("unknown route", func(t *testing.T) {
		logs := captureLogs(t)
		get(t, newLoggedApp(t), "/nowhere")
		out := logs.String()
		assert.Contains(t, out, "level=WARN")
		assert.Contains(t, out, `msg="request rejected"`)
		assert.Contains(t, out, "status=404")
		assert.NotContains(t, out, "level=ERROR")
	})

	t.Run("client error", func(t *testing.T) {
		logs := captureLogs(t)
		get(t, newLoggedApp(t), "/missing")
		out := logs.String()
		assert.Contains(t, out, "level=WARN")
		assert.Contains(t, out, "status=404")
	})

	t.Run("server error", func(t *testing.T) {
		logs := captureLogs(t)
		get(t, newLoggedApp(t), "/broken")
		out := logs.String()
		assert.Contains(t, out, "level=ERROR")
		assert.Contains(t, out, `msg="request failed"`)
		assert.Contains(t, out, "status=500")
	})
}

func TestNewLoggerJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	NewLogger(buf, true).InfoContext(WithUserID(t.Context(), 7), "hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"user_id":7`)
}
