package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gsr-share/internal/config"
	"github.com/iliyamo/gsr-share/internal/utils"
)

const testSecret = "test-secret"

func token(t *testing.T, id uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, id, role, 5)
	if err != nil {
		t.Fatal(err)
	}
	return tok.Token
}

// serve runs h behind mws for a GET on path with the given Authorization header.
func serve(t *testing.T, auth string, h echo.HandlerFunc, mws ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/x", h, mws...)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	var gotID uint64
	var gotRole string
	h := func(c echo.Context) error {
		gotID, _ = UserID(c)
		gotRole = Role(c)
		return c.NoContent(http.StatusOK)
	}

	if rec := serve(t, "", h, JWTAuth(testSecret)); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", rec.Code)
	}
	if rec := serve(t, "Bearer nope", h, JWTAuth(testSecret)); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d", rec.Code)
	}
	rec := serve(t, "Bearer "+token(t, 9, "STUDENT"), h, JWTAuth(testSecret))
	if rec.Code != http.StatusOK || gotID != 9 || gotRole != "STUDENT" {
		t.Errorf("valid token: status=%d id=%d role=%q", rec.Code, gotID, gotRole)
	}
}

func TestOptionalJWT(t *testing.T) {
	var authenticated bool
	h := func(c echo.Context) error {
		authenticated = ActorFrom(c).Authenticated
		return c.NoContent(http.StatusOK)
	}

	rec := serve(t, "", h, OptionalJWT(testSecret))
	if rec.Code != http.StatusOK || authenticated {
		t.Errorf("anonymous: status=%d authenticated=%v", rec.Code, authenticated)
	}
	rec = serve(t, "Bearer "+token(t, 3, "STUDENT"), h, OptionalJWT(testSecret))
	if rec.Code != http.StatusOK || !authenticated {
		t.Errorf("with token: status=%d authenticated=%v", rec.Code, authenticated)
	}
	if rec := serve(t, "Bearer broken", h, OptionalJWT(testSecret)); rec.Code != http.StatusUnauthorized {
		t.Errorf("invalid token: status = %d", rec.Code)
	}
	if rec := serve(t, "Basic abc", h, OptionalJWT(testSecret)); rec.Code != http.StatusUnauthorized {
		t.Errorf("non-bearer scheme: status = %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	staffOnly := []echo.MiddlewareFunc{JWTAuth(testSecret), RequireRole("STAFF")}

	if rec := serve(t, "Bearer "+token(t, 1, "STUDENT"), ok, staffOnly...); rec.Code != http.StatusForbidden {
		t.Errorf("student: status = %d", rec.Code)
	}
	if rec := serve(t, "Bearer "+token(t, 2, "STAFF"), ok, staffOnly...); rec.Code != http.StatusOK {
		t.Errorf("staff: status = %d", rec.Code)
	}
}

func TestActorFromContextValues(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if a := ActorFrom(c); a.Authenticated {
		t.Errorf("empty context actor = %+v", a)
	}
	c.Set("user_id", "17")
	c.Set("role", "STAFF")
	if a := ActorFrom(c); !a.Authenticated || a.ID != 17 || a.Role != "STAFF" {
		t.Errorf("string id actor = %+v", a)
	}
	c.Set("user_id", uint64(0))
	if a := ActorFrom(c); a.Authenticated {
		t.Errorf("zero id actor = %+v", a)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/sharecodes/abc", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/sharecodes/:code")

	cfg := config.RateLimitConfig{Prefix: "rl"}
	if got, want := buildRateKey(cfg, c), "rl:ip:10.0.0.1:user:anon:route:GET /v1/sharecodes/:code"; got != want {
		t.Errorf("default key = %q, want %q", got, want)
	}
	c.Set("user_id", uint64(5))
	cfg.KeyStrategy = "user"
	if got, want := buildRateKey(cfg, c), "rl:user:5"; got != want {
		t.Errorf("user key = %q, want %q", got, want)
	}
}

func TestDisabledMiddlewaresPassThrough(t *testing.T) {
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "fine") }
	rec := serve(t, "", ok,
		NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil),
		NewRedisCache(config.CacheConfig{Enabled: false}, nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "fine" {
		t.Errorf("status=%d body=%q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Cache") != "" {
		t.Errorf("X-Cache set on disabled cache")
	}
}

func TestValidator(t *testing.T) {
	type req struct {
		RoomID uint64 `json:"room_id" validate:"required"`
		Email  string `json:"email" validate:"required,email"`
	}
	v := NewValidator()
	if err := v.Validate(&req{RoomID: 1, Email: "a@b.io"}); err != nil {
		t.Fatalf("valid request: %v", err)
	}
	err := v.Validate(&req{Email: "nope"})
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("err = %T %v", err, err)
	}
	if len(verr.Fields) != 2 || verr.Fields[0] != "room_id: required" || verr.Fields[1] != "email: email" {
		t.Errorf("fields = %v", verr.Fields)
	}
}

func TestRequestIDPropagates(t *testing.T) {
	h := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	rec := serve(t, "", h, RequestID())
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("no request id header")
	}
}

func TestCORS(t *testing.T) {
	h := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e := echo.New()
	e.Use(CORS([]string{"https://app.example.edu"}))
	e.GET("/x", h)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://app.example.edu")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.edu" {
		t.Errorf("allowed origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
}
