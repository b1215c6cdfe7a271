package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tbourn/beast-forums/internal/domain"
	"github.com/tbourn/beast-forums/internal/services"
)

// legacyRedirects counts legacy topic requests by outcome
// (redirected, not_found, error).
var legacyRedirects = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "legacy_topic_redirects_total",
		Help: "Legacy topic URL requests by outcome.",
	},
	[]string{"outcome"},
)

// TopicFinder looks a topic up by its numeric id. A missing topic must be
// reported as services.ErrTopicNotFound.
type TopicFinder interface {
	FindTopic(ctx context.Context, id uint) (*domain.Topic, error)
}

// TopicPather is the forum engine's "topic within messageboard" URL template,
// relative to the mount path.
type TopicPather interface {
	MessageboardTopicPath(messageboardID, topicSlug string) string
}

// LegacyTopics redirects id-based topic URLs from the old forum to the
// engine's slug-based URLs.
type LegacyTopics struct {
	finder TopicFinder
	paths  TopicPather
	mount  string
}

// NewLegacyTopics binds the redirector to a topic lookup, the engine's path
// template and the engine mount path.
func NewLegacyTopics(finder TopicFinder, paths TopicPather, mountPath string) *LegacyTopics {
	return &LegacyTopics{finder: finder, paths: paths, mount: strings.TrimRight(mountPath, "/")}
}

// Show godoc
// @ID          legacyTopic
// @Summary     Legacy topic URL
// @Description Permanently redirects an id-based topic URL to the topic's slug URL.
// @Tags        Forum
// @Param       messageboard_id  path  string  true  "Messageboard id (passed through)"
// @Param       id               path  int     true  "Topic id"
// @Success     301  "Moved Permanently (Location: canonical topic URL)"
// @Failure     404  {object}  handlers.ErrorResponse "Topic not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /forums/{messageboard_id}/topics/{id} [get]
func (h *LegacyTopics) Show(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		legacyRedirects.WithLabelValues("not_found").Inc()
		fail(c, http.StatusNotFound, ErrCodeNotFound, "topic not found")
		return
	}

	topic, err := h.finder.FindTopic(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, services.ErrTopicNotFound) {
			legacyRedirects.WithLabelValues("not_found").Inc()
			fail(c, http.StatusNotFound, ErrCodeNotFound, "topic not found")
			return
		}
		legacyRedirects.WithLabelValues("error").Inc()
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "topic lookup failed")
		return
	}

	legacyRedirects.WithLabelValues("redirected").Inc()
	c.Redirect(http.StatusMovedPermanently, h.mount+h.paths.MessageboardTopicPath(c.Param("messageboard_id"), topic.Slug))
}
