package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"regime-guard-bot/internal/scheduler"
	"regime-guard-bot/internal/service"
)

type StatsProvider interface {
	GetUserStats(ctx context.Context, userID int64) (*service.UserStats, error)
}

type TokenParser interface {
	Parse(token string) (int64, error)
}

type UpdateDispatcher interface {
	Dispatch(ctx context.Context, update tgbotapi.Update)
}

type JobRunner interface {
	Run(ctx context.Context, job string) (*scheduler.Report, error)
}

type Options struct {
	Port          string
	FrontendURL   string
	WebhookSecret string
	CronSecret    string
	Development   bool
}

type Server struct {
	opts    Options
	stats   StatsProvider
	tokens  TokenParser
	updates UpdateDispatcher // nil when long polling
	jobs    JobRunner
	log     *zap.Logger
	engine  *gin.Engine
}

func New(opts Options, stats StatsProvider, tokens TokenParser, updates UpdateDispatcher, jobs JobRunner, log *zap.Logger) *Server {
	s := &Server{
		opts:    opts,
		stats:   stats,
		tokens:  tokens,
		updates: updates,
		jobs:    jobs,
		log:     log.Named("http"),
	}
	s.engine = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	if !s.opts.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(requestLogger(s.log), recovery(s.log))

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	switch {
	case s.opts.Development:
		corsCfg.AllowAllOrigins = true
		r.Use(cors.New(corsCfg))
	case s.opts.FrontendURL != "":
		corsCfg.AllowOrigins = []string{strings.TrimRight(s.opts.FrontendURL, "/")}
		r.Use(cors.New(corsCfg))
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "pong"})
	})
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api")
	api.GET("/stats/:userId", s.userStats)
	api.GET("/me/stats", s.bearerAuth(), s.myStats)

	if s.updates != nil {
		r.POST("/webhook/:secret", s.webhook)
	}
	if s.jobs != nil {
		r.POST("/jobs/:name", s.cronAuth(), s.runJob)
	}
	return r
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.opts.Port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// ==================== STATS ====================

func (s *Server) userStats(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid user id"})
		return
	}
	s.writeStats(c, userID)
}

func (s *Server) myStats(c *gin.Context) {
	s.writeStats(c, c.GetInt64("user_id"))
}

func (s *Server) writeStats(c *gin.Context, userID int64) {
	stats, err := s.stats.GetUserStats(c.Request.Context(), userID)
	switch {
	case errors.Is(err, service.ErrPlanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": service.ErrPlanNotFound.Error()})
	case err != nil:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
	default:
		c.JSON(http.StatusOK, stats)
	}
}

func (s *Server) bearerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Missing bearer token"})
			return
		}
		userID, err := s.tokens.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
}

// ==================== WEBHOOK ====================

func (s *Server) webhook(c *gin.Context) {
	if !secretEqual(c.Param("secret"), s.opts.WebhookSecret) {
		c.Status(http.StatusNotFound)
		return
	}
	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false})
		return
	}
	s.updates.Dispatch(c.Request.Context(), update)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ==================== JOBS ====================

func (s *Server) cronAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.opts.CronSecret != "" && !secretEqual(c.GetHeader("X-Cron-Secret"), s.opts.CronSecret) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) runJob(c *gin.Context) {
	// Jobs outlive the trigger request.
	report, err := s.jobs.Run(context.WithoutCancel(c.Request.Context()), c.Param("name"))
	switch {
	case errors.Is(err, scheduler.ErrUnknownJob):
		c.JSON(http.StatusNotFound, gin.H{"detail": "Unknown job"})
	case err != nil:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error(), "report": report})
	default:
		c.JSON(http.StatusOK, report)
	}
}

func secretEqual(got, want string) bool {
	return want != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
