// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It owns the application's route table and
// centralizes cross-cutting concerns such as tracing, correlation IDs,
// logging/redaction, panic recovery, metrics, CORS, security headers,
// sessions, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - One static, ordered route table; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/beast-forums/docs"
	"github.com/tbourn/beast-forums/internal/config"
	"github.com/tbourn/beast-forums/internal/forum"
	"github.com/tbourn/beast-forums/internal/http/handlers"
	"github.com/tbourn/beast-forums/internal/http/middleware"
	"github.com/tbourn/beast-forums/internal/services"
)

// Route is one entry of the route table. Exactly one of Handlers or Mount is
// set: Mount attaches a sub-application under Path.
type Route struct {
	Method   string
	Path     string
	Handlers []gin.HandlerFunc
	Mount    func(*gin.RouterGroup)
}

// App is what the route table dispatches to.
type App struct {
	Handlers *handlers.Handlers
	Legacy   *handlers.LegacyTopics
	Forum    *forum.Engine

	// AuthLimit throttles sign-up and sign-in. Optional.
	AuthLimit gin.HandlerFunc
}

// Routes returns the application's route table in registration order. The
// legacy topic route precedes the forum mount so that it wins over the
// engine's own "/:messageboard_id/:topic_id" route.
func Routes(app App, mount string) []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/", Handlers: handle(app.Handlers.Home)},
		{Method: http.MethodPost, Path: "/users", Handlers: handle(app.AuthLimit, app.Handlers.SignUp)},
		{Method: http.MethodPost, Path: "/users/sign_in", Handlers: handle(app.AuthLimit, app.Handlers.SignIn)},
		{Method: http.MethodDelete, Path: "/users/sign_out", Handlers: handle(app.Handlers.SignOut)},
		{Method: http.MethodGet, Path: "/users/:id", Handlers: handle(app.Handlers.ShowUser)},
		{Method: http.MethodGet, Path: mount + "/:messageboard_id/topics/:id", Handlers: handle(app.Legacy.Show)},
		{Path: mount, Mount: app.Forum.Mount},
	}
}

// handle drops unset middleware from a handler chain.
func handle(hs ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(hs))
	for _, h := range hs {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// Register installs routes on r in order.
func Register(r *gin.Engine, routes []Route) {
	for _, rt := range routes {
		if rt.Mount != nil {
			rt.Mount(groupWithPrefix(r, rt.Path))
			continue
		}
		r.Handle(rt.Method, rt.Path, rt.Handlers...)
	}
}

// Services are the application services shared by the routes and the
// server's background jobs.
type Services struct {
	Auth  *services.AuthService
	Users *services.UserService
	Forum *services.ForumService
}

// NewServices builds the services over db and idx with cfg's TTLs.
func NewServices(db *gorm.DB, idx services.TopicIndexer, cfg config.Config) Services {
	forumSvc := services.NewForumService(db, idx)
	forumSvc.IdempotencyTTL = cfg.IdempotencyTTL
	return Services{
		Auth:  services.NewAuthService(db, cfg.Session.TTL),
		Users: &services.UserService{DB: db},
		Forum: forumSvc,
	}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It serves through svc, configures
// observability (tracing, metrics), sessions, CORS and security headers,
// health and metrics endpoints, and then registers the route table with the
// forum engine mounted at cfg.ForumMountPath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. CORS
//  8. Gzip
//  9. Authenticate: resolve the session into a user id
//  10. Security headers (no-store for signed-in users)
//
// Idempotency and rate limiting are per-route (posting and auth endpoints).
func RegisterRoutes(r *gin.Engine, svc Services, cfg config.Config) (*forum.Engine, error) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{cfg.Session.CookieName},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) CORS posture (safe defaults: allow all if none configured)
	r.Use(corsMiddleware(cfg.CORS)...)

	// 8) Compression
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	auth, users, forumSvc := svc.Auth, svc.Users, svc.Forum

	// 9) Sessions
	r.Use(middleware.Authenticate(cfg.Session.CookieName, auth.Authenticate))

	// 10) Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:           cfg.Security.EnableHSTS,
		HSTSMaxAge:           cfg.Security.HSTSMaxAge,
		EnablePolicy:         true,
		NoStoreAuthenticated: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	render, err := forum.NewPipeline(cfg.ForumMountPath, cfg.MarkupMaxBytes)
	if err != nil {
		return nil, err
	}
	engine := forum.NewEngine(forumSvc, render, forum.Options{
		Mount:      cfg.ForumMountPath,
		WriteLimit: middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP()).Handler(),
		Idempotency: middleware.IdempotencyValidator(
			middleware.IdempotencyOptions{MaxLen: 200},
			forum.ReplayLookup(forumSvc),
		),
	})

	h := handlers.New(auth, users, forumSvc, engine.Paths(), handlers.Options{
		AppName: cfg.AppName,
		Cookie: handlers.SessionCookie{
			Name:   cfg.Session.CookieName,
			TTL:    cfg.Session.TTL,
			Secure: cfg.Session.Secure,
		},
	})

	Register(r, Routes(App{
		Handlers:  h,
		Legacy:    handlers.NewLegacyTopics(forumSvc, forum.Paths{}, cfg.ForumMountPath),
		Forum:     engine,
		AuthLimit: middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP()).Handler(),
	}, cfg.ForumMountPath))

	return engine, nil
}

// corsMiddleware returns the CORS chain for cfg.
func corsMiddleware(cfg config.CORSConfig) []gin.HandlerFunc {
	headers := []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderIdempotencyKey}
	expose := []string{"X-Request-ID", "Content-Length", "ETag", "Location", "Idempotency-Replayed"}

	if len(cfg.AllowedOrigins) == 0 {
		return []gin.HandlerFunc{
			// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(cors.Config{
				AllowAllOrigins:  true,
				AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
				AllowHeaders:     headers,
				ExposeHeaders:    expose,
				AllowCredentials: false, // must remain false with AllowAllOrigins
				MaxAge:           12 * time.Hour,
			}),
		}
	}

	// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     headers,
			ExposeHeaders:    expose,
			AllowCredentials: true, // session cookie
			MaxAge:           12 * time.Hour,
		}),
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
