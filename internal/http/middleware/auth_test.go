package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

const testCookie = "forum_session"

func fakeResolver(valid map[string]uint) SessionResolver {
	return func(_ context.Context, token string) (uint, error) {
		if id, ok := valid[token]; ok {
			return id, nil
		}
		return 0, errors.New("unknown session")
	}
}

func newAuthRouter(resolve SessionResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.Use(Authenticate(testCookie, resolve))
	r.GET("/whoami", func(c *gin.Context) {
		uid, ok := UserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": uid, "signed_in": ok, "token": SessionToken(c)})
	})
	r.POST("/private", RequireUser(), func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r
}

func whoami(t *testing.T, r *gin.Engine, req *http.Request) map[string]any {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /whoami -> %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return body
}

func TestAuthenticate_CookieAndBearer(t *testing.T) {
	r := newAuthRouter(fakeResolver(map[string]uint{"cookie-tok": 3, "bearer-tok": 4}))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "cookie-tok"})
	if body := whoami(t, r, req); body["user_id"] != float64(3) || body["signed_in"] != true {
		t.Fatalf("cookie session not resolved: %v", body)
	}

	// Bearer takes precedence over the cookie.
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "cookie-tok"})
	req.Header.Set("Authorization", "bearer bearer-tok")
	if body := whoami(t, r, req); body["user_id"] != float64(4) || body["token"] != "bearer-tok" {
		t.Fatalf("bearer session not preferred: %v", body)
	}
}

func TestAuthenticate_AnonymousAndInvalid(t *testing.T) {
	r := newAuthRouter(fakeResolver(map[string]uint{"ok": 1}))

	body := whoami(t, r, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if body["signed_in"] != false || body["token"] != "" {
		t.Fatalf("anonymous request should carry no identity: %v", body)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer expired")
	body = whoami(t, r, req)
	if body["signed_in"] != false || body["token"] != "expired" {
		t.Fatalf("invalid token should be anonymous but remembered: %v", body)
	}

	// Non-bearer schemes are ignored.
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Basic b2s6b2s=")
	if body := whoami(t, r, req); body["signed_in"] != false {
		t.Fatalf("basic auth must not authenticate: %v", body)
	}
}

func TestRequireUser(t *testing.T) {
	r := newAuthRouter(fakeResolver(map[string]uint{"ok": 1}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/private", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["code"] != "unauthorized" || body["request_id"] == "" {
		t.Fatalf("unexpected body: %v", body)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/private", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "ok"})
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 for signed-in user, got %d", w.Code)
	}
}

func TestUserID_RejectsMalformed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	for _, v := range []string{"", "0", "abc", "-1"} {
		c.Set(ctxKeyUserID, v)
		if _, ok := UserID(c); ok {
			t.Fatalf("UserID(%q) should not be ok", v)
		}
	}
	c.Set(ctxKeyUserID, "12")
	if id, ok := UserID(c); !ok || id != 12 {
		t.Fatalf("UserID = %d, %v; want 12, true", id, ok)
	}
}
