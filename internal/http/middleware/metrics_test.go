package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_LabelsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/forums/:messageboard_id/:topic_id", func(c *gin.Context) { c.String(http.StatusOK, "topic") })
	r.DELETE("/users/sign_out", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	topic := httpReqs.WithLabelValues("GET", "/forums/:messageboard_id/:topic_id", "200")
	missing := httpReqs.WithLabelValues("GET", "/nowhere", "404")
	signOut := httpReqs.WithLabelValues("DELETE", "/users/sign_out", "204")
	baseTopic, baseMissing, baseSignOut := testutil.ToFloat64(topic), testutil.ToFloat64(missing), testutil.ToFloat64(signOut)

	for _, p := range []string{"/forums/general/welcome", "/forums/help/faq", "/forums/help/rules"} {
		if w := serve(r, http.MethodGet, p, nil); w.Code != http.StatusOK {
			t.Fatalf("GET %s -> %d", p, w.Code)
		}
	}
	serve(r, http.MethodGet, "/nowhere", nil)
	serve(r, http.MethodDelete, "/users/sign_out", nil)

	checks := []struct {
		name      string
		got, want float64
	}{
		{"topic pages", testutil.ToFloat64(topic), baseTopic + 3},
		{"unmatched path", testutil.ToFloat64(missing), baseMissing + 1},
		{"sign out", testutil.ToFloat64(signOut), baseSignOut + 1},
		{"in flight", testutil.ToFloat64(httpInflight), 0},
	}
	for _, ck := range checks {
		if ck.got != ck.want {
			t.Errorf("%s = %v; want %v", ck.name, ck.got, ck.want)
		}
	}
}

func TestMetrics_InflightReleasedOnPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(), Metrics())
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	if w := serve(r, http.MethodGet, "/boom", nil); w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if v := testutil.ToFloat64(httpInflight); v != 0 {
		t.Fatalf("in flight = %v", v)
	}
}
