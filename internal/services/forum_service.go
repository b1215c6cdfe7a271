// Package services – ForumService
//
// This file implements ForumService, the application-level component behind
// the mounted forum engine. It resolves messageboards and topics by slug,
// creates topics (allocating a unique slug) and replies, keeps the topic
// counters and the title search index up to date, and answers the id lookup
// used by legacy topic URLs.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// messageboard/topic identifiers and pagination parameters where applicable.
package services

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/beast-forums/internal/domain"
	"github.com/tbourn/beast-forums/internal/repo"
	"github.com/tbourn/beast-forums/internal/search"
	"github.com/tbourn/beast-forums/internal/utils"
)

const maxSlugAttempts = 50

// TopicIndexer receives newly created topics. *search.TopicIndex satisfies it.
type TopicIndexer interface {
	Add(d search.Doc)
	TopK(query string, k int) []search.Result
}

// ForumService coordinates messageboards, topics and posts.
type ForumService struct {
	DB    *gorm.DB
	Index TopicIndexer

	// TitleMaxRunes caps topic titles; ContentMaxBytes caps post bodies.
	TitleMaxRunes   int
	ContentMaxBytes int
	// IdempotencyTTL is how long a reply's Idempotency-Key is remembered.
	IdempotencyTTL time.Duration

	now func() time.Time
}

// NewForumService constructs a ForumService with default limits.
func NewForumService(db *gorm.DB, idx TopicIndexer) *ForumService {
	return &ForumService{
		DB:              db,
		Index:           idx,
		TitleMaxRunes:   255,
		ContentMaxBytes: 64 << 10,
		IdempotencyTTL:  24 * time.Hour,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (s *ForumService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

// Messageboards lists every messageboard in display order.
func (s *ForumService) Messageboards(ctx context.Context) ([]domain.Messageboard, error) {
	return repo.ListMessageboards(ctx, s.DB)
}

// Messageboard resolves a messageboard by slug.
func (s *ForumService) Messageboard(ctx context.Context, slug string) (*domain.Messageboard, error) {
	mb, err := repo.GetMessageboardBySlug(ctx, s.DB, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageboardNotFound
		}
		return nil, err
	}
	return mb, nil
}

// TopicsPage returns a page of topics of the messageboard with the given
// slug, most recently active first, and the total count.
func (s *ForumService) TopicsPage(ctx context.Context, boardSlug string, page, pageSize int) (*domain.Messageboard, []domain.Topic, int64, error) {
	tr := otel.Tracer("services/ForumService")
	ctx, span := tr.Start(ctx, "TopicsPage",
		trace.WithAttributes(
			attribute.String("messageboard.slug", boardSlug),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	mb, err := s.Messageboard(ctx, boardSlug)
	if err != nil {
		return nil, nil, 0, err
	}
	offset, limit := pageWindow(page, pageSize)

	total, err := repo.CountTopics(ctx, s.DB, mb.ID)
	if err != nil {
		return nil, nil, 0, err
	}
	if total == 0 {
		return mb, []domain.Topic{}, 0, nil
	}
	items, err := repo.ListTopicsPage(ctx, s.DB, mb.ID, offset, limit)
	return mb, items, total, err
}

// FindTopic looks a topic up by its numeric id, regardless of messageboard.
// Unknown and soft-deleted topics yield ErrTopicNotFound.
func (s *ForumService) FindTopic(ctx context.Context, id uint) (*domain.Topic, error) {
	tr := otel.Tracer("services/ForumService")
	ctx, span := tr.Start(ctx, "FindTopic",
		trace.WithAttributes(attribute.Int64("topic.id", int64(id))),
	)
	defer span.End()

	t, err := repo.GetTopic(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTopicNotFound
		}
		return nil, err
	}
	return t, nil
}

// Topic resolves a topic by messageboard slug and topic slug.
func (s *ForumService) Topic(ctx context.Context, boardSlug, topicSlug string) (*domain.Messageboard, *domain.Topic, error) {
	mb, err := s.Messageboard(ctx, boardSlug)
	if err != nil {
		if errors.Is(err, ErrMessageboardNotFound) {
			return nil, nil, ErrTopicNotFound
		}
		return nil, nil, err
	}
	t, err := repo.GetTopicBySlug(ctx, s.DB, mb.ID, topicSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrTopicNotFound
		}
		return nil, nil, err
	}
	t.Messageboard = *mb
	return mb, t, nil
}

// PostsPage returns a page of posts of a topic in chronological order.
func (s *ForumService) PostsPage(ctx context.Context, topicID uint, page, pageSize int) ([]domain.Post, int64, error) {
	tr := otel.Tracer("services/ForumService")
	ctx, span := tr.Start(ctx, "PostsPage",
		trace.WithAttributes(
			attribute.Int64("topic.id", int64(topicID)),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	offset, limit := pageWindow(page, pageSize)
	total, err := repo.CountPosts(ctx, s.DB, topicID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Post{}, 0, nil
	}
	items, err := repo.ListPostsPage(ctx, s.DB, topicID, offset, limit)
	return items, total, err
}

// TopicsVersion reports (count, latest update) of a board's topics for ETags.
func (s *ForumService) TopicsVersion(ctx context.Context, messageboardID uint) (int64, *time.Time, error) {
	return repo.TopicsStats(ctx, s.DB, messageboardID)
}

// PostsVersion reports (count, latest update) of a topic's posts for ETags.
func (s *ForumService) PostsVersion(ctx context.Context, topicID uint) (int64, *time.Time, error) {
	return repo.PostsStats(ctx, s.DB, topicID)
}

// CreateTopic opens a topic with its first post. The slug is derived from the
// title; when taken, "-2", "-3", ... suffixes are tried.
func (s *ForumService) CreateTopic(ctx context.Context, userID uint, boardSlug, title, content string) (*domain.Topic, *domain.Post, error) {
	tr := otel.Tracer("services/ForumService")
	ctx, span := tr.Start(ctx, "CreateTopic",
		trace.WithAttributes(
			attribute.String("messageboard.slug", boardSlug),
			attribute.Int64("user.id", int64(userID)),
		),
	)
	defer span.End()

	title = normalizeTitle(title)
	content = normalizeContent(content)
	if err := s.validatePost(title, content, true); err != nil {
		return nil, nil, err
	}

	mb, err := s.Messageboard(ctx, boardSlug)
	if err != nil {
		return nil, nil, err
	}

	base := utils.Slugify(title)
	for n := 1; n <= maxSlugAttempts; n++ {
		slug := utils.SlugCandidate(base, n)
		if utils.IsReservedSlug(slug) {
			continue
		}
		taken, err := repo.TopicSlugTaken(ctx, s.DB, slug)
		if err != nil {
			return nil, nil, err
		}
		if taken {
			continue
		}

		now := s.clock()
		topic := &domain.Topic{
			MessageboardID: mb.ID,
			UserID:         userID,
			Title:          title,
			Slug:           slug,
			PostsCount:     1,
			LastPostAt:     now,
		}
		var post *domain.Post
		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := repo.CreateTopic(ctx, tx, topic); err != nil {
				return err
			}
			p, err := repo.CreatePost(ctx, tx, topic.ID, userID, content)
			if err != nil {
				return err
			}
			post = p
			return nil
		})
		if errors.Is(err, repo.ErrDuplicate) {
			// Lost a race for this slug; try the next candidate.
			continue
		}
		if err != nil {
			return nil, nil, err
		}

		topic.Messageboard = *mb
		if s.Index != nil {
			s.Index.Add(search.Doc{
				TopicID:          topic.ID,
				Title:            topic.Title,
				Slug:             topic.Slug,
				MessageboardSlug: mb.Slug,
			})
		}
		span.SetAttributes(attribute.String("topic.slug", slug))
		return topic, post, nil
	}
	return nil, nil, ErrSlugExhausted
}

// Reply appends a post to a topic. When idemKey is non-empty and the same
// user already replied to this topic with that key, the stored post is
// returned with replayed=true and nothing is written. The key is recorded in
// the post's transaction, so concurrent retries create one post.
func (s *ForumService) Reply(ctx context.Context, userID uint, boardSlug, topicSlug, content, idemKey string) (post *domain.Post, replayed bool, err error) {
	tr := otel.Tracer("services/ForumService")
	ctx, span := tr.Start(ctx, "Reply",
		trace.WithAttributes(
			attribute.String("messageboard.slug", boardSlug),
			attribute.String("topic.slug", topicSlug),
			attribute.Int64("user.id", int64(userID)),
		),
	)
	defer span.End()

	_, topic, err := s.Topic(ctx, boardSlug, topicSlug)
	if err != nil {
		return nil, false, err
	}

	key := repo.ReplyKey{
		UserID:  strconv.FormatUint(uint64(userID), 10),
		TopicID: strconv.FormatUint(uint64(topic.ID), 10),
		Key:     idemKey,
	}
	if idemKey != "" {
		if prev, err := s.replayed(ctx, key, s.clock()); err == nil {
			span.SetAttributes(attribute.Bool("idempotency.replayed", true))
			return prev, true, nil
		}
	}

	content = normalizeContent(content)
	if err := s.validatePost("", content, false); err != nil {
		return nil, false, err
	}

	now := s.clock()
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := repo.CreatePost(ctx, tx, topic.ID, userID, content)
		if err != nil {
			return err
		}
		if err := repo.TouchTopic(ctx, tx, topic.ID, p.CreatedAt); err != nil {
			return err
		}
		if idemKey != "" {
			if err := repo.ReleaseExpiredReply(ctx, tx, key, now); err != nil {
				return err
			}
			if _, err := repo.SaveReply(ctx, tx, key, p.ID, http.StatusCreated, now, s.IdempotencyTTL); err != nil {
				return err
			}
		}
		post = p
		return nil
	})
	if errors.Is(err, repo.ErrDuplicate) {
		// A concurrent request with the same key committed first.
		prev, err := s.replayed(ctx, key, now)
		if err != nil {
			return nil, false, err
		}
		span.SetAttributes(attribute.Bool("idempotency.replayed", true))
		return prev, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return post, false, nil
}

func (s *ForumService) replayed(ctx context.Context, key repo.ReplyKey, now time.Time) (*domain.Post, error) {
	rec, err := repo.FindReply(ctx, s.DB, key, now)
	if err != nil {
		return nil, err
	}
	return repo.GetPost(ctx, s.DB, rec.PostID)
}

// HasReply reports whether userID already replied to the topic addressed by
// (boardSlug, topicSlug) with idemKey, and the record is still live at now.
// userID is the decimal form used by the HTTP layer.
func (s *ForumService) HasReply(ctx context.Context, userID, boardSlug, topicSlug, idemKey string, now time.Time) (bool, error) {
	if userID == "" || idemKey == "" {
		return false, nil
	}
	_, topic, err := s.Topic(ctx, boardSlug, topicSlug)
	if err != nil {
		if errors.Is(err, ErrTopicNotFound) {
			return false, nil
		}
		return false, err
	}
	_, err = repo.FindReply(ctx, s.DB, repo.ReplyKey{
		UserID:  userID,
		TopicID: strconv.FormatUint(uint64(topic.ID), 10),
		Key:     idemKey,
	}, now)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// PurgeExpiredReplies forgets idempotency keys whose TTL has passed.
func (s *ForumService) PurgeExpiredReplies(ctx context.Context) (int64, error) {
	return repo.DeleteExpiredReplies(ctx, s.DB, s.clock())
}

// ReindexTopics loads every live topic title into the search index and
// returns how many were added. It is a no-op without an index.
func (s *ForumService) ReindexTopics(ctx context.Context) (int, error) {
	if s.Index == nil {
		return 0, nil
	}
	titles, err := repo.ListTopicTitles(ctx, s.DB)
	if err != nil {
		return 0, err
	}
	for _, t := range titles {
		s.Index.Add(search.Doc{
			TopicID:          t.ID,
			Title:            t.Title,
			Slug:             t.Slug,
			MessageboardSlug: t.MessageboardSlug,
		})
	}
	return len(titles), nil
}

// Search returns up to k topics whose titles best match q.
func (s *ForumService) Search(_ context.Context, q string, k int) []search.Result {
	if s.Index == nil {
		return nil
	}
	return s.Index.TopK(q, k)
}

func (s *ForumService) validatePost(title, content string, withTitle bool) error {
	if withTitle {
		err := validation.Validate(title,
			validation.Required,
			validation.RuneLength(1, s.TitleMaxRunes),
		)
		if err != nil {
			if utf8.RuneCountInString(title) > s.TitleMaxRunes && s.TitleMaxRunes > 0 {
				return ErrTooLong
			}
			return validation.Errors{"title": err}
		}
	}
	if content == "" {
		return ErrEmptyContent
	}
	if s.ContentMaxBytes > 0 && len(content) > s.ContentMaxBytes {
		return ErrTooLong
	}
	return nil
}

func pageWindow(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}

// normalizeTitle trims whitespace, collapses runs of it to one space and
// composes the text to NFC.
func normalizeTitle(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(norm.NFC.String(s)), " ")
}

// normalizeContent keeps the author's Textile intact apart from surrounding
// blank space; line endings are handled by the rendering pipeline.
func normalizeContent(s string) string {
	return strings.TrimSpace(s)
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
