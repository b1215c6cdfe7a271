package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/beast-forums/internal/domain"
	"github.com/tbourn/beast-forums/internal/services"
)

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "_beast_session" {
			return ck
		}
	}
	t.Fatalf("session cookie not set; headers=%v", w.Header())
	return nil
}

func TestSignUp_CreatesUserAndSession(t *testing.T) {
	s := newFullStack(t)

	w := s.do(t, http.MethodPost, "/users", `{"email":"ada@example.com","name":"Ada","password":"correct horse"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("sign up -> %d body=%s", w.Code, w.Body.String())
	}
	var out SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.User == nil || out.User.Name != "Ada" || out.Token == "" {
		t.Fatalf("unexpected body: %+v", out)
	}
	if strings.Contains(w.Body.String(), "password") || strings.Contains(w.Body.String(), "ada@example.com") {
		t.Fatalf("credentials must not be echoed: %s", w.Body.String())
	}

	ck := sessionCookie(t, w)
	if ck.Value != out.Token || !ck.HttpOnly || ck.MaxAge != 3600 {
		t.Fatalf("unexpected cookie: %+v", ck)
	}

	// Duplicate email (case-insensitive) → 409.
	w = s.do(t, http.MethodPost, "/users", `{"email":"ADA@example.com","name":"Other","password":"another one"}`, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate -> %d", w.Code)
	}
	if er := decodeError(t, w); er.Code != ErrCodeConflict {
		t.Fatalf("duplicate code = %q", er.Code)
	}
}

func TestSignUp_BadInput(t *testing.T) {
	s := newFullStack(t)

	w := s.do(t, http.MethodPost, "/users", `{bad`, nil)
	if w.Code != http.StatusBadRequest || decodeError(t, w).Code != ErrCodeBadRequest {
		t.Fatalf("bad json -> %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPost, "/users", `{"email":"nope","name":"A","password":"longenough"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid email -> %d", w.Code)
	}
	er := decodeError(t, w)
	if er.Code != ErrCodeValidation || !strings.Contains(er.Message, "email") {
		t.Fatalf("unexpected validation error: %+v", er)
	}
}

func TestSignIn_SignOut_Flow(t *testing.T) {
	s := newFullStack(t)
	if w := s.do(t, http.MethodPost, "/users", `{"email":"b@example.com","name":"B","password":"password1"}`, nil); w.Code != http.StatusCreated {
		t.Fatalf("sign up -> %d", w.Code)
	}

	w := s.do(t, http.MethodPost, "/users/sign_in", `{"email":"b@example.com","password":"wrong-pass"}`, nil)
	if w.Code != http.StatusUnauthorized || decodeError(t, w).Code != ErrCodeInvalidCredentials {
		t.Fatalf("bad password -> %d %s", w.Code, w.Body.String())
	}
	w = s.do(t, http.MethodPost, "/users/sign_in", `{"email":"b@example.com"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing password -> %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/users/sign_in", `{"email":"B@example.com","password":"password1"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sign in -> %d body=%s", w.Code, w.Body.String())
	}
	token := sessionCookie(t, w).Value
	if uid, err := s.auth.Authenticate(context.Background(), token); err != nil || uid == 0 {
		t.Fatalf("session not valid after sign in: %d %v", uid, err)
	}

	w = s.do(t, http.MethodDelete, "/users/sign_out", "", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "_beast_session", Value: token})
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("sign out -> %d", w.Code)
	}
	if ck := sessionCookie(t, w); ck.MaxAge >= 0 || ck.Value != "" {
		t.Fatalf("cookie not cleared: %+v", ck)
	}
	if _, err := s.auth.Authenticate(context.Background(), token); !errors.Is(err, services.ErrUnauthenticated) {
		t.Fatalf("session should be revoked, got %v", err)
	}

	// Anonymous sign-out is still 204.
	if w := s.do(t, http.MethodDelete, "/users/sign_out", "", nil); w.Code != http.StatusNoContent {
		t.Fatalf("anonymous sign out -> %d", w.Code)
	}
}

func TestShowUser(t *testing.T) {
	s := newFullStack(t)
	w := s.do(t, http.MethodPost, "/users", `{"email":"c@example.com","name":"Cee","password":"password1"}`, nil)
	var out SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}

	w = s.do(t, http.MethodGet, "/users/"+strconv.FormatUint(uint64(out.User.ID), 10), "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("show -> %d", w.Code)
	}
	var p services.UserProfile
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("json: %v", err)
	}
	if p.ID != out.User.ID || p.Name != "Cee" || p.TopicsCount != 0 || p.PostsCount != 0 {
		t.Fatalf("unexpected profile: %+v", p)
	}

	for _, path := range []string{"/users/999999", "/users/abc", "/users/0"} {
		w = s.do(t, http.MethodGet, path, "", nil)
		if w.Code != http.StatusNotFound || decodeError(t, w).Code != ErrCodeNotFound {
			t.Fatalf("%s -> %d %s", path, w.Code, w.Body.String())
		}
	}
}

type failingAccounts struct{}

func (failingAccounts) SignUp(context.Context, services.SignUpInput) (*domain.User, *domain.Session, error) {
	return nil, nil, errors.New("db down")
}
func (failingAccounts) SignIn(context.Context, string, string) (*domain.User, *domain.Session, error) {
	return nil, nil, errors.New("db down")
}
func (failingAccounts) SignOut(context.Context, string) error { return errors.New("db down") }

type failingProfiles struct{}

func (failingProfiles) Profile(context.Context, uint) (*services.UserProfile, error) {
	return nil, errors.New("db down")
}

func TestUsers_InternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := New(failingAccounts{}, failingProfiles{}, nil, nil, Options{})
	r := gin.New()
	r.POST("/users", h.SignUp)
	r.POST("/users/sign_in", h.SignIn)
	r.DELETE("/users/sign_out", h.SignOut)
	r.GET("/users/:id", h.ShowUser)

	cases := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/users", `{"email":"a@b.co","name":"A","password":"password1"}`},
		{http.MethodPost, "/users/sign_in", `{"email":"a@b.co","password":"password1"}`},
		{http.MethodDelete, "/users/sign_out", ""},
		{http.MethodGet, "/users/1", ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("%s %s -> %d", tc.method, tc.path, w.Code)
		}
	}
}
