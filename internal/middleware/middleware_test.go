package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ingressos/internal/config"
	"github.com/iliyamo/ingressos/internal/utils"
)

func whoami(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"user": UserID(c), "role": Role(c)})
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRole(t *testing.T) {
	e := echo.New()
	e.GET("/door", whoami, JWTAuth("k"), RequireRole(RoleStaff, RoleProducer))

	staff, err := utils.NewAccessToken("k", "door-7", RoleStaff, time.Minute)
	require.NoError(t, err)
	customer, err := utils.NewAccessToken("k", "c-1", RoleCustomer, time.Minute)
	require.NoError(t, err)
	forged, err := utils.NewAccessToken("other", "door-7", RoleStaff, time.Minute)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + forged.Token, http.StatusUnauthorized},
		{"wrong role", "Bearer " + customer.Token, http.StatusForbidden},
		{"ok", "Bearer " + staff.Token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/door", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := serve(e, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, "door-7", body["user"])
				assert.Equal(t, RoleStaff, body["role"])
			}
		})
	}
}

func TestUserIDAnonymous(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Equal(t, "anon", UserID(c))
	assert.Equal(t, "", Role(c))
}

func rateCfg() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       60,
		RefillTokens:   1,
		RefillInterval: time.Second,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
}

func withFixedClock(t *testing.T, at time.Time) {
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func expectBucket(mock redismock.ClientMock, cfg config.RateLimitConfig, at time.Time) *redismock.ExpectedCmd {
	return mock.ExpectEvalSha(limiterScript.Hash(), []string{"rl:ip:192.0.2.1"},
		at.UnixMilli(), cfg.Capacity, cfg.RefillTokens, cfg.RefillInterval.Milliseconds(), int64(cfg.TTL/time.Second))
}

func TestTokenBucket(t *testing.T) {
	at := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	withFixedClock(t, at)
	cfg := rateCfg()

	t.Run("allowed", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		expectBucket(mock, cfg, at).SetVal([]interface{}{int64(1), int64(59), int64(0)})

		e := echo.New()
		e.GET("/x", whoami, NewTokenBucket(cfg, 0, rdb))
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rec := serve(e, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "59", rec.Header().Get("X-RateLimit-Remaining"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exhausted", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		expectBucket(mock, cfg, at).SetVal([]interface{}{int64(0), int64(0), int64(1500)})

		e := echo.New()
		e.GET("/x", whoami, NewTokenBucket(cfg, 0, rdb))
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rec := serve(e, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	})

	t.Run("redis down lets requests through", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		expectBucket(mock, cfg, at).SetErr(errors.New("connection refused"))

		e := echo.New()
		e.GET("/x", whoami, NewTokenBucket(cfg, 0, rdb))
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		assert.Equal(t, http.StatusOK, serve(e, req).Code)
	})

	t.Run("disabled", func(t *testing.T) {
		off := cfg
		off.Enabled = false
		e := echo.New()
		e.GET("/x", whoami, NewTokenBucket(off, 0, nil))
		assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
	})
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	req.RemoteAddr = "192.0.2.9:1"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/orders")
	c.Set(CtxUserID, "42")

	cfg := rateCfg()
	cfg.KeyStrategy = "ip_user_route"
	assert.Equal(t, "rl:ip:192.0.2.9:user:42:route:POST /orders", buildRateKey(cfg, c))
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:42", buildRateKey(cfg, c))
}

func cacheCfg() config.CacheConfig {
	return config.CacheConfig{
		Enabled:     true,
		Methods:     map[string]bool{http.MethodGet: true},
		TTL:         5 * time.Second,
		KeyStrategy: "route_query",
		Prefix:      "cache",
	}
}

func TestRedisCacheHit(t *testing.T) {
	cfg := cacheCfg()
	rdb, mock := redismock.NewClientMock()

	e := echo.New()
	called := false
	e.GET("/events/:id", func(c echo.Context) error {
		called = true
		return c.String(http.StatusOK, "fresh")
	}, NewRedisCache(cfg, rdb))

	req := httptest.NewRequest(http.MethodGet, "/events/3", nil)
	probe := e.NewContext(req, httptest.NewRecorder())
	probe.SetPath("/events/:id")
	key := cacheKeyFrom(cfg, probe)

	payload, err := json.Marshal(cachedResponse{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": []string{"text/plain"}},
		Body:   []byte("cached"),
	})
	require.NoError(t, err)
	mock.ExpectGet(key).SetVal(string(payload))

	rec := serve(e, req)
	assert.False(t, called)
	assert.Equal(t, "cached", rec.Body.String())
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
}

func TestRedisCacheMiss(t *testing.T) {
	cfg := cacheCfg()
	rdb, mock := redismock.NewClientMock()

	e := echo.New()
	e.GET("/events/:id", func(c echo.Context) error {
		return c.String(http.StatusOK, "fresh")
	}, NewRedisCache(cfg, rdb))

	req := httptest.NewRequest(http.MethodGet, "/events/3", nil)
	probe := e.NewContext(req, httptest.NewRecorder())
	probe.SetPath("/events/:id")
	mock.ExpectGet(cacheKeyFrom(cfg, probe)).RedisNil()

	rec := serve(e, req)
	assert.Equal(t, "fresh", rec.Body.String())
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
}

func TestCacheKeySeparatesPaths(t *testing.T) {
	cfg := cacheCfg()
	e := echo.New()
	a := e.NewContext(httptest.NewRequest(http.MethodGet, "/events/1", nil), httptest.NewRecorder())
	a.SetPath("/events/:id")
	b := e.NewContext(httptest.NewRequest(http.MethodGet, "/events/2", nil), httptest.NewRecorder())
	b.SetPath("/events/:id")
	assert.NotEqual(t, cacheKeyFrom(cfg, a), cacheKeyFrom(cfg, b))
}
