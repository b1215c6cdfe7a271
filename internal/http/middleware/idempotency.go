package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries the client's key for a retryable reply.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdempotency = "idempotency"
	defaultIdemMaxLen = 200
)

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// idempotencyState is what IdempotencyValidator leaves on the context.
type idempotencyState struct {
	key    string
	replay bool
}

func idempotencyFrom(c *gin.Context) idempotencyState {
	v, _ := c.Get(ctxKeyIdempotency)
	st, _ := v.(idempotencyState)
	return st
}

// GetIdempotencyKey returns the validated key, if the request carried one.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	st := idempotencyFrom(c)
	return st.key, st.key != ""
}

// IsReplay reports whether the lookup found an earlier reply for this key.
func IsReplay(c *gin.Context) bool {
	return idempotencyFrom(c).replay
}

// IdempotencyOptions tunes key validation. Zero values select a 200 byte
// limit and the token alphabet [A-Za-z0-9._~-:].
type IdempotencyOptions struct {
	MaxLen  int
	Pattern *regexp.Regexp
}

// IdempotencyLookup reports whether userID already completed the request
// identified by key against the resource named by params. Errors are
// treated as a miss.
type IdempotencyLookup func(ctx context.Context, userID string, params gin.Params, key string, now time.Time) (bool, error)

// IdempotencyValidator checks the Idempotency-Key header and records it for
// handlers. A malformed key is rejected with 400. For signed-in users the
// lookup decides whether the request is a replay; replays also skip rate
// limiting. Requests without the header pass through untouched.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = defaultIdemMaxLen
	}
	pattern := opts.Pattern
	if pattern == nil {
		pattern = defaultIdemPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pattern.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}

		st := idempotencyState{key: key}
		if uid := userIDFromCtx(c); uid != "" && lookup != nil {
			hit, err := lookup(c.Request.Context(), uid, c.Params, key, time.Now().UTC())
			if err != nil {
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			}
			st.replay = hit && err == nil
		}
		c.Set(ctxKeyIdempotency, st)
		if st.replay {
			c.Set(ctxKeyRateBypass, true)
		}
		c.Next()
	}
}

// userIDFromCtx returns the id Authenticate stored, or "" for anonymous.
func userIDFromCtx(c *gin.Context) string {
	v, _ := c.Get(ctxKeyUserID)
	return asString(v)
}
