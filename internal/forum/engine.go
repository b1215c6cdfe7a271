package forum

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/tbourn/beast-forums/internal/domain"
	"github.com/tbourn/beast-forums/internal/http/handlers"
	"github.com/tbourn/beast-forums/internal/http/middleware"
	"github.com/tbourn/beast-forums/internal/search"
	"github.com/tbourn/beast-forums/internal/services"
	"github.com/tbourn/beast-forums/internal/textile"
	"github.com/tbourn/beast-forums/internal/utils"
)

//
// Contracts
//

// Service is what the engine needs from the application layer.
// *services.ForumService satisfies it.
type Service interface {
	Messageboards(ctx context.Context) ([]domain.Messageboard, error)
	Messageboard(ctx context.Context, slug string) (*domain.Messageboard, error)
	TopicsPage(ctx context.Context, boardSlug string, page, pageSize int) (*domain.Messageboard, []domain.Topic, int64, error)
	Topic(ctx context.Context, boardSlug, topicSlug string) (*domain.Messageboard, *domain.Topic, error)
	PostsPage(ctx context.Context, topicID uint, page, pageSize int) ([]domain.Post, int64, error)
	TopicsVersion(ctx context.Context, messageboardID uint) (int64, *time.Time, error)
	PostsVersion(ctx context.Context, topicID uint) (int64, *time.Time, error)
	CreateTopic(ctx context.Context, userID uint, boardSlug, title, content string) (*domain.Topic, *domain.Post, error)
	Reply(ctx context.Context, userID uint, boardSlug, topicSlug, content, idemKey string) (*domain.Post, bool, error)
	Search(ctx context.Context, q string, k int) []search.Result
}

// Renderer turns stored post source into display HTML. *pipeline.Pipeline
// satisfies it.
type Renderer interface {
	ToHTML(text string) (string, error)
}

// ReplyChecker answers whether a reply was already made with an
// Idempotency-Key. *services.ForumService satisfies it.
type ReplyChecker interface {
	HasReply(ctx context.Context, userID, boardSlug, topicSlug, idemKey string, now time.Time) (bool, error)
}

// ReplayLookup adapts a ReplyChecker to middleware.IdempotencyValidator,
// reading the messageboard and topic from the reply route's parameters.
func ReplayLookup(rc ReplyChecker) middleware.IdempotencyLookup {
	return func(ctx context.Context, userID string, params gin.Params, key string, now time.Time) (bool, error) {
		return rc.HasReply(ctx, userID, params.ByName("messageboard_id"), params.ByName("topic_id"), key, now)
	}
}

// Options configures an Engine.
type Options struct {
	// Mount is where the engine is mounted, e.g. "/forums".
	Mount string
	// WriteLimit guards topic creation and replies (e.g. RateLimiter.Handler()).
	WriteLimit gin.HandlerFunc
	// Idempotency validates Idempotency-Key on replies.
	Idempotency gin.HandlerFunc
}

// Engine serves messageboards, topics and posts.
type Engine struct {
	svc    Service
	render Renderer
	paths  MountedPaths

	writeLimit  gin.HandlerFunc
	idempotency gin.HandlerFunc
}

// NewEngine constructs an Engine.
func NewEngine(svc Service, render Renderer, opts Options) *Engine {
	return &Engine{
		svc:         svc,
		render:      render,
		paths:       MountedPaths{Mount: strings.TrimRight(opts.Mount, "/")},
		writeLimit:  opts.WriteLimit,
		idempotency: opts.Idempotency,
	}
}

// Paths returns the engine's URL helpers under its mount path.
func (e *Engine) Paths() MountedPaths { return e.paths }

// Mount registers the engine's routes on g, which must be rooted at the mount
// path. Routes registered on the parent before Mount keep precedence over
// the engine's parameterised routes (e.g. the legacy topic redirect).
func (e *Engine) Mount(g *gin.RouterGroup) {
	g.GET("", e.Index)
	g.GET("/search", e.Search)
	g.POST("/preview", e.Preview)
	g.GET("/:messageboard_id", e.ShowMessageboard)
	g.POST("/:messageboard_id/topics", chain(middleware.RequireUser(), e.writeLimit, e.CreateTopic)...)
	g.GET("/:messageboard_id/:topic_id", e.ShowTopic)
	g.POST("/:messageboard_id/:topic_id", chain(middleware.RequireUser(), e.idempotency, e.writeLimit, e.Reply)...)
}

// chain drops unset middleware.
func chain(hs ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(hs))
	for _, h := range hs {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

//
// DTOs
//

// MessageboardView is a messageboard with its engine URL.
type MessageboardView struct {
	domain.Messageboard
	Path string `json:"path" example:"/forums/general"`
}

// TopicView is a topic with its engine URL.
type TopicView struct {
	domain.Topic
	Path string `json:"path" example:"/forums/general/welcome-thread"`
}

// PostView is a post with its rendered, sanitized HTML.
type PostView struct {
	ID        uint      `json:"id"`
	TopicID   uint      `json:"topic_id"`
	UserID    uint      `json:"user_id"`
	Content   string    `json:"content" example:"h1. Hello"`
	HTML      string    `json:"html" example:"<h1>Hello</h1>"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IndexResponse lists every messageboard.
type IndexResponse struct {
	Messageboards []MessageboardView `json:"messageboards"`
}

// MessageboardResponse is one page of a messageboard's topics.
type MessageboardResponse struct {
	Messageboard MessageboardView    `json:"messageboard"`
	Topics       []TopicView         `json:"topics"`
	Pagination   handlers.Pagination `json:"pagination"`
}

// TopicResponse is one page of a topic's posts.
type TopicResponse struct {
	Messageboard MessageboardView    `json:"messageboard"`
	Topic        TopicView           `json:"topic"`
	Posts        []PostView          `json:"posts"`
	Pagination   handlers.Pagination `json:"pagination"`
}

// CreateTopicRequest opens a topic with its first post.
type CreateTopicRequest struct {
	Title   string `json:"title" binding:"required" example:"Welcome thread"`
	Content string `json:"content" binding:"required" example:"Say *hello* here."`
}

// CreateTopicResponse is the created topic and its first post.
type CreateTopicResponse struct {
	Topic TopicView `json:"topic"`
	Post  PostView  `json:"post"`
}

// ReplyRequest is a reply's Textile source.
type ReplyRequest struct {
	Content string `json:"content" binding:"required" example:"Thanks, _great_ post."`
}

// ReplyResponse is the created (or replayed) reply.
type ReplyResponse struct {
	Post PostView `json:"post"`
}

// PreviewRequest carries Textile to render without saving.
type PreviewRequest struct {
	Content string `json:"content" example:"h2. Draft"`
}

// PreviewResponse is the rendered, sanitized HTML.
type PreviewResponse struct {
	HTML string `json:"html" example:"<h2>Draft</h2>"`
}

// SearchHit is one topic matching a search.
type SearchHit struct {
	TopicID uint    `json:"topic_id"`
	Title   string  `json:"title"`
	Path    string  `json:"path"`
	Score   float64 `json:"score"`
}

// SearchResponse lists search hits, best first.
type SearchResponse struct {
	Query   string      `json:"query"`
	Results []SearchHit `json:"results"`
}

//
// Handlers
//

// Index godoc
// @ID          listMessageboards
// @Summary     List messageboards
// @Tags        Forum
// @Produce     json
// @Success     200  {object}  forum.IndexResponse
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /forums [get]
func (e *Engine) Index(c *gin.Context) {
	boards, err := e.svc.Messageboards(c.Request.Context())
	if err != nil {
		handlers.Fail(c, http.StatusInternalServerError, handlers.ErrCodeListFailed, err.Error())
		return
	}
	out := make([]MessageboardView, 0, len(boards))
	for _, b := range boards {
		out = append(out, e.boardView(b))
	}
	c.JSON(http.StatusOK, IndexResponse{Messageboards: out})
}

// Search godoc
// @ID          searchTopics
// @Summary     Search topic titles
// @Tags        Forum
// @Produce     json
// @Param       q  query  string  true   "Query"
// @Param       k  query  int     false  "Max results"  minimum(1) maximum(50) default(10)
// @Success     200  {object}  forum.SearchResponse
// @Failure     400  {object}  handlers.ErrorResponse "Missing query"
// @Router      /forums/search [get]
func (e *Engine) Search(c *gin.Context) {
	const (
		defaultK = 10
		maxK     = 50
	)
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		handlers.Fail(c, http.StatusBadRequest, handlers.ErrCodeBadRequest, "q is required")
		return
	}
	k := utils.BoundedInt(c.Query("k"), defaultK, 1, maxK)

	results := e.svc.Search(c.Request.Context(), q, k)
	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, SearchHit{
			TopicID: r.TopicID,
			Title:   r.Title,
			Path:    e.paths.MessageboardTopicPath(r.MessageboardSlug, r.Slug),
			Score:   r.Score,
		})
	}
	c.JSON(http.StatusOK, SearchResponse{Query: q, Results: hits})
}

// Preview godoc
// @ID          previewPost
// @Summary     Render Textile without saving
// @Tags        Forum
// @Accept      json
// @Produce     json
// @Param       body  body      forum.PreviewRequest  true  "Textile source"
// @Success     200   {object}  forum.PreviewResponse
// @Failure     400   {object}  handlers.ErrorResponse "Bad request"
// @Router      /forums/preview [post]
func (e *Engine) Preview(c *gin.Context) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.Fail(c, http.StatusBadRequest, handlers.ErrCodeBadRequest, "invalid JSON body")
		return
	}
	html, err := e.render.ToHTML(req.Content)
	if err != nil {
		e.renderFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, PreviewResponse{HTML: html})
}

// ShowMessageboard godoc
// @ID          showMessageboard
// @Summary     Messageboard with paginated topics
// @Description Topics are ordered by latest activity. Supports weak ETags.
// @Tags        Forum
// @Produce     json
// @Param       messageboard_id  path   string  true   "Messageboard slug"
// @Param       page             query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size        query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  forum.MessageboardResponse
// @Success     304  "Not Modified"
// @Failure     404  {object}  handlers.ErrorResponse "Messageboard not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /forums/{messageboard_id} [get]
func (e *Engine) ShowMessageboard(c *gin.Context) {
	ctx := c.Request.Context()
	boardSlug := c.Param("messageboard_id")
	page, pageSize := handlers.ClampPagination(c)

	// ETag pre-check (best effort).
	if mb, err := e.svc.Messageboard(ctx, boardSlug); err == nil {
		if count, maxTS, err := e.svc.TopicsVersion(ctx, mb.ID); err == nil {
			etag := weakETag("topics", mb.ID, count, maxTS, page, pageSize)
			c.Header("ETag", etag)
			if c.GetHeader("If-None-Match") == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	mb, topics, total, err := e.svc.TopicsPage(ctx, boardSlug, page, pageSize)
	if err != nil {
		e.serviceFailed(c, err, handlers.ErrCodeListFailed)
		return
	}

	views := make([]TopicView, 0, len(topics))
	for _, t := range topics {
		views = append(views, e.topicView(mb.Slug, t))
	}
	c.JSON(http.StatusOK, MessageboardResponse{
		Messageboard: e.boardView(*mb),
		Topics:       views,
		Pagination:   handlers.NewPagination(page, pageSize, total),
	})
}

// CreateTopic godoc
// @ID          createTopic
// @Summary     Open a topic
// @Description Creates a topic and its first post. Requires a session.
// @Tags        Forum
// @Accept      json
// @Produce     json
// @Param       messageboard_id  path  string                    true  "Messageboard slug"
// @Param       body             body  forum.CreateTopicRequest  true  "Topic"
// @Success     201  {object}  forum.CreateTopicResponse
// @Failure     400  {object}  handlers.ErrorResponse "Invalid input"
// @Failure     401  {object}  handlers.ErrorResponse "Sign in required"
// @Failure     404  {object}  handlers.ErrorResponse "Messageboard not found"
// @Failure     429  {object}  handlers.ErrorResponse "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /forums/{messageboard_id}/topics [post]
func (e *Engine) CreateTopic(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		handlers.Fail(c, http.StatusUnauthorized, handlers.ErrCodeUnauthorized, "sign in required")
		return
	}
	var req CreateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.Fail(c, http.StatusBadRequest, handlers.ErrCodeBadRequest, "title and content are required")
		return
	}

	topic, post, err := e.svc.CreateTopic(c.Request.Context(), uid, c.Param("messageboard_id"), req.Title, req.Content)
	if err != nil {
		e.serviceFailed(c, err, handlers.ErrCodeCreateFailed)
		return
	}
	pv, err := e.postView(*post)
	if err != nil {
		e.renderFailed(c, err)
		return
	}
	tv := e.topicView(topic.Messageboard.Slug, *topic)
	middleware.LoggerFrom(c).Info().Uint("topic_id", topic.ID).Str("slug", topic.Slug).Msg("topic created")
	c.Header("Location", tv.Path)
	c.JSON(http.StatusCreated, CreateTopicResponse{Topic: tv, Post: pv})
}

// ShowTopic godoc
// @ID          showTopic
// @Summary     Topic with paginated posts
// @Description Posts are rendered Textile, sanitized. Supports weak ETags.
// @Tags        Forum
// @Produce     json
// @Param       messageboard_id  path   string  true   "Messageboard slug"
// @Param       topic_id         path   string  true   "Topic slug"
// @Param       page             query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size        query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  forum.TopicResponse
// @Success     304  "Not Modified"
// @Failure     404  {object}  handlers.ErrorResponse "Topic not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /forums/{messageboard_id}/{topic_id} [get]
func (e *Engine) ShowTopic(c *gin.Context) {
	ctx := c.Request.Context()
	mb, topic, err := e.svc.Topic(ctx, c.Param("messageboard_id"), c.Param("topic_id"))
	if err != nil {
		e.serviceFailed(c, err, handlers.ErrCodeListFailed)
		return
	}
	page, pageSize := handlers.ClampPagination(c)

	if count, maxTS, err := e.svc.PostsVersion(ctx, topic.ID); err == nil {
		etag := weakETag("posts", topic.ID, count, maxTS, page, pageSize)
		c.Header("ETag", etag)
		if c.GetHeader("If-None-Match") == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	posts, total, err := e.svc.PostsPage(ctx, topic.ID, page, pageSize)
	if err != nil {
		e.serviceFailed(c, err, handlers.ErrCodeListFailed)
		return
	}
	views := make([]PostView, 0, len(posts))
	for _, p := range posts {
		pv, err := e.postView(p)
		if err != nil {
			e.renderFailed(c, err)
			return
		}
		views = append(views, pv)
	}
	c.JSON(http.StatusOK, TopicResponse{
		Messageboard: e.boardView(*mb),
		Topic:        e.topicView(mb.Slug, *topic),
		Posts:        views,
		Pagination:   handlers.NewPagination(page, pageSize, total),
	})
}

// Reply godoc
// @ID          replyToTopic
// @Summary     Reply to a topic
// @Description Appends a post. Requires a session. With an Idempotency-Key,
// @Description a retried request returns the original post with
// @Description `Idempotency-Replayed: true` and status 200.
// @Tags        Forum
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string               false  "Idempotency key for safe retries"
// @Param       messageboard_id  path    string               true   "Messageboard slug"
// @Param       topic_id         path    string               true   "Topic slug"
// @Param       body             body    forum.ReplyRequest   true   "Reply"
// @Success     201  {object}  forum.ReplyResponse
// @Success     200  {object}  forum.ReplyResponse  "Replayed"
// @Failure     400  {object}  handlers.ErrorResponse "Invalid input"
// @Failure     401  {object}  handlers.ErrorResponse "Sign in required"
// @Failure     404  {object}  handlers.ErrorResponse "Topic not found"
// @Failure     429  {object}  handlers.ErrorResponse "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /forums/{messageboard_id}/{topic_id} [post]
func (e *Engine) Reply(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		handlers.Fail(c, http.StatusUnauthorized, handlers.ErrCodeUnauthorized, "sign in required")
		return
	}
	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.Fail(c, http.StatusBadRequest, handlers.ErrCodeBadRequest, "content required")
		return
	}
	idemKey, _ := middleware.GetIdempotencyKey(c)

	boardSlug, topicSlug := c.Param("messageboard_id"), c.Param("topic_id")
	post, replayed, err := e.svc.Reply(c.Request.Context(), uid, boardSlug, topicSlug, req.Content, idemKey)
	if err != nil {
		e.serviceFailed(c, err, handlers.ErrCodeCreateFailed)
		return
	}
	pv, err := e.postView(*post)
	if err != nil {
		e.renderFailed(c, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		c.Header("Idempotency-Replayed", "true")
		status = http.StatusOK
	}
	c.Header("Location", e.paths.MessageboardTopicPath(boardSlug, topicSlug))
	c.JSON(status, ReplyResponse{Post: pv})
}

//
// Helpers
//

func (e *Engine) boardView(b domain.Messageboard) MessageboardView {
	return MessageboardView{Messageboard: b, Path: e.paths.MessageboardPath(b.Slug)}
}

func (e *Engine) topicView(boardSlug string, t domain.Topic) TopicView {
	return TopicView{Topic: t, Path: e.paths.MessageboardTopicPath(boardSlug, t.Slug)}
}

func (e *Engine) postView(p domain.Post) (PostView, error) {
	html, err := e.render.ToHTML(p.Content)
	if err != nil {
		return PostView{}, err
	}
	return PostView{
		ID:        p.ID,
		TopicID:   p.TopicID,
		UserID:    p.UserID,
		Content:   p.Content,
		HTML:      html,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}, nil
}

// weakETag identifies one page of a listing by its row count and last update.
func weakETag(kind string, id uint, count int64, maxTS *time.Time, page, pageSize int) string {
	var ts int64
	if maxTS != nil {
		ts = maxTS.UnixNano()
	}
	return fmt.Sprintf(`W/"%s:%d:%d:%d:%d:%d"`, kind, id, count, ts, page, pageSize)
}

// serviceFailed maps service errors onto the shared error envelope.
func (e *Engine) serviceFailed(c *gin.Context, err error, code string) {
	var verrs validation.Errors
	switch {
	case errors.Is(err, services.ErrMessageboardNotFound):
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "messageboard not found")
	case errors.Is(err, services.ErrTopicNotFound):
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "topic not found")
	case errors.As(err, &verrs):
		handlers.Fail(c, http.StatusBadRequest, handlers.ErrCodeValidation, verrs.Error())
	case errors.Is(err, services.ErrEmptyContent):
		handlers.Fail(c, http.StatusBadRequest, handlers.ErrCodeBadRequest, "content required")
	case errors.Is(err, services.ErrTooLong):
		handlers.Fail(c, http.StatusBadRequest, handlers.ErrCodeBadRequest, "title or content too long")
	case errors.Is(err, services.ErrSlugExhausted):
		handlers.Fail(c, http.StatusConflict, handlers.ErrCodeConflict, "too many topics with this title")
	default:
		_ = c.Error(err)
		handlers.Fail(c, http.StatusInternalServerError, code, err.Error())
	}
}

func (e *Engine) renderFailed(c *gin.Context, err error) {
	if errors.Is(err, textile.ErrTooLarge) {
		handlers.Fail(c, http.StatusBadRequest, handlers.ErrCodeRenderFailed, "content too large to render")
		return
	}
	_ = c.Error(err)
	handlers.Fail(c, http.StatusInternalServerError, handlers.ErrCodeRenderFailed, err.Error())
}
