package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/beast-forums/internal/domain"
)

type stubBoards struct {
	boards []domain.Messageboard
	err    error
}

func (s stubBoards) Messageboards(context.Context) ([]domain.Messageboard, error) {
	return s.boards, s.err
}

func TestHome_ListsMessageboards(t *testing.T) {
	s := newFullStack(t)
	mustBoard(t, s.db, "Help Desk", "help desk", 2)
	mustBoard(t, s.db, "General", "general", 1)

	w := s.do(t, http.MethodGet, "/", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET / -> %d body=%s", w.Code, w.Body.String())
	}
	var got HomeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("json: %v", err)
	}
	if got.Name != "Beast Forums" || got.ForumsPath != "/forums" {
		t.Fatalf("unexpected header fields: %+v", got)
	}
	want := []HomeMessageboard{
		{Name: "General", Path: "/forums/general"},
		{Name: "Help Desk", Path: "/forums/help%20desk"},
	}
	if len(got.Messageboards) != len(want) {
		t.Fatalf("messageboards = %+v", got.Messageboards)
	}
	for i := range want {
		if got.Messageboards[i] != want[i] {
			t.Fatalf("messageboard %d = %+v; want %+v", i, got.Messageboards[i], want[i])
		}
	}
}

func TestHome_EmptyAndError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := New(nil, nil, stubBoards{}, mountedPaths{mount: "/forums"}, Options{AppName: "X"})
	r := gin.New()
	r.GET("/", h.Home)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("empty -> %d", w.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if list, ok := body["messageboards"].([]any); !ok || len(list) != 0 {
		t.Fatalf("expected empty array, got %v", body["messageboards"])
	}

	h = New(nil, nil, stubBoards{err: errors.New("db down")}, mountedPaths{mount: "/forums"}, Options{})
	r = gin.New()
	r.GET("/", h.Home)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("error -> %d", w.Code)
	}
	if er := decodeError(t, w); er.Code != ErrCodeListFailed {
		t.Fatalf("unexpected code %q", er.Code)
	}
}
