package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tbourn/beast-forums/internal/domain"
	"github.com/tbourn/beast-forums/internal/repo"
	"github.com/tbourn/beast-forums/internal/services"
)

// topicsTemplate renders "/:messageboard_id/topics/:id" with the slug as id.
type topicsTemplate struct{}

func (topicsTemplate) MessageboardTopicPath(messageboardID, topicSlug string) string {
	return "/" + url.PathEscape(messageboardID) + "/topics/" + url.PathEscape(topicSlug)
}

// slugTemplate renders the engine's own "/:messageboard_id/:topic_slug".
type slugTemplate struct{}

func (slugTemplate) MessageboardTopicPath(messageboardID, topicSlug string) string {
	return "/" + url.PathEscape(messageboardID) + "/" + url.PathEscape(topicSlug)
}

type stubFinder struct {
	topics map[uint]*domain.Topic
	err    error
	calls  int
}

func (s *stubFinder) FindTopic(_ context.Context, id uint) (*domain.Topic, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if t, ok := s.topics[id]; ok {
		return t, nil
	}
	return nil, services.ErrTopicNotFound
}

func legacyRouter(h *LegacyTopics) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/forums/:messageboard_id/topics/:id", h.Show)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestLegacyTopics_RedirectsToSlugURL(t *testing.T) {
	finder := &stubFinder{topics: map[uint]*domain.Topic{42: {ID: 42, Slug: "welcome-thread"}}}
	r := legacyRouter(NewLegacyTopics(finder, topicsTemplate{}, "/forums"))

	base := testutil.ToFloat64(legacyRedirects.WithLabelValues("redirected"))
	w := get(r, "/forums/general/topics/42")
	if w.Code != http.StatusMovedPermanently {
		t.Fatalf("status = %d; want 301", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/forums/general/topics/welcome-thread" {
		t.Fatalf("Location = %q", loc)
	}
	if got := testutil.ToFloat64(legacyRedirects.WithLabelValues("redirected")); got != base+1 {
		t.Fatalf("redirected counter = %v; want %v", got, base+1)
	}
}

func TestLegacyTopics_MessageboardPassedThrough(t *testing.T) {
	finder := &stubFinder{topics: map[uint]*domain.Topic{7: {ID: 7, Slug: "café-talk"}}}
	// Trailing slash on the mount is tolerated.
	r := legacyRouter(NewLegacyTopics(finder, slugTemplate{}, "/forums/"))

	w := get(r, "/forums/any-board/topics/7")
	if w.Code != http.StatusMovedPermanently {
		t.Fatalf("status = %d", w.Code)
	}
	want := "/forums/any-board/" + url.PathEscape("café-talk")
	if loc := w.Header().Get("Location"); loc != want {
		t.Fatalf("Location = %q; want %q", loc, want)
	}
}

func TestLegacyTopics_NotFound(t *testing.T) {
	finder := &stubFinder{topics: map[uint]*domain.Topic{}}
	r := legacyRouter(NewLegacyTopics(finder, topicsTemplate{}, "/forums"))

	base := testutil.ToFloat64(legacyRedirects.WithLabelValues("not_found"))
	for _, path := range []string{
		"/forums/general/topics/999999",
		"/forums/general/topics/abc",
		"/forums/general/topics/0",
		"/forums/general/topics/-1",
	} {
		w := get(r, path)
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s -> %d; want 404", path, w.Code)
		}
		if w.Header().Get("Location") != "" {
			t.Fatalf("%s: not-found must never redirect", path)
		}
		if er := decodeError(t, w); er.Code != ErrCodeNotFound {
			t.Fatalf("%s: code = %q", path, er.Code)
		}
	}
	if got := testutil.ToFloat64(legacyRedirects.WithLabelValues("not_found")); got != base+4 {
		t.Fatalf("not_found counter = %v; want %v", got, base+4)
	}
	// Malformed ids never reach the lookup.
	if finder.calls != 1 {
		t.Fatalf("finder calls = %d; want 1", finder.calls)
	}
}

func TestLegacyTopics_LookupFailure(t *testing.T) {
	r := legacyRouter(NewLegacyTopics(&stubFinder{err: errors.New("db down")}, topicsTemplate{}, "/forums"))

	base := testutil.ToFloat64(legacyRedirects.WithLabelValues("error"))
	w := get(r, "/forums/general/topics/1")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d; want 500", w.Code)
	}
	if er := decodeError(t, w); er.Code != ErrCodeInternal {
		t.Fatalf("code = %q", er.Code)
	}
	if got := testutil.ToFloat64(legacyRedirects.WithLabelValues("error")); got != base+1 {
		t.Fatalf("error counter = %v; want %v", got, base+1)
	}
}

func TestLegacyTopics_WithForumService(t *testing.T) {
	db := newHandlerDB(t)
	ctx := context.Background()
	mustBoard(t, db, "General", "general", 0)
	u, err := repo.CreateUser(ctx, db, "l@example.com", "L", "hash")
	if err != nil {
		t.Fatalf("user: %v", err)
	}
	forum := services.NewForumService(db, nil)
	topic, _, err := forum.CreateTopic(ctx, u.ID, "general", "Welcome thread", "hello")
	if err != nil {
		t.Fatalf("topic: %v", err)
	}

	r := legacyRouter(NewLegacyTopics(forum, topicsTemplate{}, "/forums"))

	w := get(r, "/forums/general/topics/"+strconv.FormatUint(uint64(topic.ID), 10))
	if w.Code != http.StatusMovedPermanently {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/forums/general/topics/welcome-thread" {
		t.Fatalf("Location = %q", loc)
	}

	if w := get(r, "/forums/general/topics/999999"); w.Code != http.StatusNotFound {
		t.Fatalf("missing topic -> %d", w.Code)
	}
}
