package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signHS256(t *testing.T, claims jwt.Claims, secret string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func authRouter(opts AuthOptions) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Authenticate(opts))
	r.GET("/me", func(c *gin.Context) { c.String(http.StatusOK, UserID(c)) })
	return r
}

func doAuth(r *gin.Engine, hdr map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate_BearerUIDClaim(t *testing.T) {
	r := authRouter(AuthOptions{Secret: testSecret})
	tok := signHS256(t, Claims{
		UserID:           "u-1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))},
	}, testSecret)

	w := doAuth(r, map[string]string{"Authorization": "Bearer " + tok})
	if w.Code != http.StatusOK || w.Body.String() != "u-1" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
}

func TestAuthenticate_BearerSubjectFallback(t *testing.T) {
	r := authRouter(AuthOptions{Secret: testSecret})
	tok := signHS256(t, jwt.RegisteredClaims{Subject: "u-sub"}, testSecret)

	w := doAuth(r, map[string]string{"Authorization": "bearer " + tok})
	if w.Code != http.StatusOK || w.Body.String() != "u-sub" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
}

func TestAuthenticate_Rejections(t *testing.T) {
	expired := signHS256(t, Claims{
		UserID:           "u-1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	}, testSecret)
	wrongKey := signHS256(t, Claims{UserID: "u-1"}, "other")
	noUser := signHS256(t, jwt.RegisteredClaims{}, testSecret)

	cases := map[string]map[string]string{
		"missing":    {},
		"expired":    {"Authorization": "Bearer " + expired},
		"wrong key":  {"Authorization": "Bearer " + wrongKey},
		"no user":    {"Authorization": "Bearer " + noUser},
		"garbage":    {"Authorization": "Bearer not.a.jwt"},
		"header off": {HeaderUserID: "u-1"},
	}
	r := authRouter(AuthOptions{Secret: testSecret})
	for name, hdr := range cases {
		w := doAuth(r, hdr)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, w.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["code"] != "unauthorized" || body["error"] == "" {
			t.Fatalf("%s: unexpected body %q", name, w.Body.String())
		}
		if w.Header().Get("WWW-Authenticate") == "" {
			t.Fatalf("%s: missing WWW-Authenticate", name)
		}
	}
}

func TestAuthenticate_RejectsNoneAlg(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	w := doAuth(authRouter(AuthOptions{Secret: testSecret}), map[string]string{"Authorization": "Bearer " + tok})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for alg=none, got %d", w.Code)
	}
}

func TestAuthenticate_HeaderWhenAllowed(t *testing.T) {
	r := authRouter(AuthOptions{AllowHeader: true})

	if w := doAuth(r, map[string]string{HeaderUserID: " u-h "}); w.Code != http.StatusOK || w.Body.String() != "u-h" {
		t.Fatalf("header identity: %d %q", w.Code, w.Body.String())
	}
	if w := doAuth(r, map[string]string{HeaderUserID: "  "}); w.Code != http.StatusUnauthorized {
		t.Fatalf("blank header must be rejected, got %d", w.Code)
	}
	// A bearer token is never silently ignored in favor of the header.
	if w := doAuth(r, map[string]string{"Authorization": "Bearer x", HeaderUserID: "u-h"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("bearer without secret must be rejected, got %d", w.Code)
	}
}

func TestUserID_UnsetAndWrongType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if UserID(c) != "" {
		t.Fatalf("expected empty user id")
	}
	c.Set(ContextKeyUserID, 42)
	if UserID(c) != "" {
		t.Fatalf("expected empty user id for non-string value")
	}
}
