package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// maxQueryLogLength caps the logged raw query string in bytes.
const maxQueryLogLength = 2048

const redacted = "[REDACTED]"

// RedactOptions lists extra request headers whose values are never logged.
// Authorization, Cookie and Set-Cookie are always masked.
type RedactOptions struct {
	MaskHeaders []string
}

// Patterns are applied in this order. Session tokens are UUIDs and must be
// replaced before the phone pattern sees their digit groups.
var scrubPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)\b(password|token|session)=[^&]*`), "$1=" + redacted},
	{regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`), "[REDACTED:id]"},
	{regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`), "[REDACTED:email]"},
	{regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`), "[REDACTED:phone]"},
}

type scrubber struct {
	masked map[string]struct{}
}

func newScrubber(extra []string) scrubber {
	s := scrubber{masked: map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}}
	for _, h := range extra {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			s.masked[h] = struct{}{}
		}
	}
	return s
}

func (scrubber) text(v string) string {
	for _, p := range scrubPatterns {
		if v == "" {
			break
		}
		v = p.re.ReplaceAllString(v, p.repl)
	}
	return v
}

func (s scrubber) headers(h map[string][]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := s.masked[strings.ToLower(k)]; ok {
			out[k] = redacted
			continue
		}
		out[k] = s.text(strings.Join(vv, ", "))
	}
	return out
}

// RedactingLogger writes one access log line per request and attaches a
// request-scoped logger for LoggerFrom. Bodies are never logged. Query
// strings and header values are scrubbed of credentials, session tokens,
// emails and phone numbers.
//
// 5xx responses and requests carrying gin errors log at error level, other
// 4xx at warn, everything else at info.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	scrub := newScrubber(opts.MaskHeaders)

	return func(c *gin.Context) {
		start := time.Now()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		reqID := c.Writer.Header().Get(requestIDHeader)
		if reqID == "" {
			reqID = c.GetHeader(requestIDHeader)
		}

		lg := log.With().
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", route).
			Logger()
		c.Set(loggerKey, &lg)

		c.Next()

		accessEvent(&lg, c).
			Str("user_id", userIDFromCtx(c)).
			Str("remote_ip", c.ClientIP()).
			Str("query", truncate(scrub.text(c.Request.URL.RawQuery), maxQueryLogLength)).
			Int("status", c.Writer.Status()).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", scrub.headers(c.Request.Header)).
			Msg("http_request")
	}
}

func accessEvent(lg *zerolog.Logger, c *gin.Context) *zerolog.Event {
	status := c.Writer.Status()
	switch {
	case len(c.Errors) > 0:
		return lg.Error().Str("errors", c.Errors.String())
	case status >= 500:
		return lg.Error()
	case status >= 400:
		return lg.Warn()
	}
	return lg.Info()
}
