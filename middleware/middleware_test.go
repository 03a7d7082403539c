package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"flipmail/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code, message := utils.StatusOf(err)
			return c.Status(code).SendString(message)
		},
	})
	for _, h := range handlers {
		app.Use(h)
	}
	app.All("/", func(c *fiber.Ctx) error {
		token, _ := c.Locals("csrf").(string)
		return c.SendString(token)
	})
	return app
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func cookieValue(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func TestCSRFProtection_IssuesTokenOnSafeRequests(t *testing.T) {
	app := newTestApp(CSRFProtection())

	resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	token := cookieValue(resp, "csrf_token")
	require.NotEmpty(t, token)
	assert.Equal(t, token, body, "token is exposed to templates")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: token})
	resp, body = doRequest(t, app, req)
	assert.Empty(t, cookieValue(resp, "csrf_token"), "existing token is reused")
	assert.Equal(t, token, body)
}

func TestCSRFProtection_UnsafeRequests(t *testing.T) {
	app := newTestApp(CSRFProtection())
	const token = "c2VjcmV0"

	form := func(value string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(url.Values{"_csrf": {value}}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(&http.Cookie{Name: "csrf_token", Value: token})
		return req
	}
	header := func(value string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-CSRF-Token", value)
		req.AddCookie(&http.Cookie{Name: "csrf_token", Value: token})
		return req
	}

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"header match", header(token), fiber.StatusOK},
		{"form match", form(token), fiber.StatusOK},
		{"header mismatch", header("other"), fiber.StatusForbidden},
		{"form mismatch", form("other"), fiber.StatusForbidden},
		{"no token", httptest.NewRequest(http.MethodPost, "/", nil), fiber.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doRequest(t, app, tt.req)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status == fiber.StatusForbidden {
				assert.Equal(t, "error_csrf", body)
			}
		})
	}
}

func TestCSRFProtection_Skipper(t *testing.T) {
	cfg := DefaultCSRFConfig()
	cfg.Skipper = func(c *fiber.Ctx) bool { return c.Get("X-Internal") == "1" }
	app := newTestApp(CSRFProtection(cfg))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Internal", "1")
	resp, _ := doRequest(t, app, req)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequestID(t *testing.T) {
	var logged string
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error {
		logged, _ = c.Locals("requestid").(string)
		return nil
	})

	resp, _ := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := resp.Header.Get(RequestIDHeader)
	_, err := uuid.Parse(generated)
	require.NoError(t, err)
	assert.Equal(t, generated, logged)

	incoming := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	resp, _ = doRequest(t, app, req)
	assert.Equal(t, incoming, resp.Header.Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	resp, _ = doRequest(t, app, req)
	assert.NotEqual(t, "not-a-uuid", resp.Header.Get(RequestIDHeader))
}

func TestLocaleMiddleware(t *testing.T) {
	require.NoError(t, utils.InitI18n("../locales"))

	app := fiber.New()
	app.Use(LocaleMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		localizer := c.Locals("localizer").(*i18n.Localizer)
		return c.SendString(c.Locals("lang").(string) + " " + utils.T(localizer, "filter_all"))
	})

	tests := []struct {
		name   string
		query  string
		cookie string
		accept string
		want   string
	}{
		{"default", "", "", "", "en All"},
		{"accept language", "", "", "ja-JP,ja;q=0.9,en;q=0.5", "ja すべて"},
		{"cookie beats header", "", "en", "ja", "en All"},
		{"query beats cookie", "?lang=ja", "en", "", "ja すべて"},
		{"unsupported", "?lang=fr", "", "", "en All"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "lang", Value: tt.cookie})
			}
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}

			resp, body := doRequest(t, app, req)
			assert.Equal(t, tt.want, body)
			if tt.query != "" {
				assert.Equal(t, strings.Fields(tt.want)[0], cookieValue(resp, "lang"))
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	app := newTestApp(RateLimiter(3, time.Hour))

	for i := 0; i < 3; i++ {
		resp, _ := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, fiber.StatusOK, resp.StatusCode, "request %d", i)
	}

	resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "error_rate_limited", body)
}

func TestVisitors_SweepsIdleClients(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newVisitors(1, time.Hour)
	v.nowFunc = func() time.Time { return now }

	assert.True(t, v.allow("10.0.0.1"))
	assert.False(t, v.allow("10.0.0.1"))
	assert.True(t, v.allow("10.0.0.2"), "buckets are per ip")

	now = now.Add(visitorTTL + time.Second)
	assert.True(t, v.allow("10.0.0.3"))
	assert.Len(t, v.byIP, 1, "idle buckets were dropped")
}
