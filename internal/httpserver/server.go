package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"storefront/internal/logging"
)

const readyTimeout = time.Second

// Server is the storefront HTTP API.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// New builds a Server with every route wired to deps. db backs /readyz and
// may be nil in tests.
func New(addr string, logger *zap.Logger, db *pgxpool.Pool, deps Deps) (*Server, error) {
	logger = logging.OrNop(logger).Named("http")
	router, err := buildRouter(logger, db, deps)
	if err != nil {
		return nil, err
	}
	errLog, err := zap.NewStdLogAt(logger, zap.WarnLevel)
	if err != nil {
		return nil, err
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           router,
			ErrorLog:          errLog,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		logger: logger,
	}, nil
}

func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", zap.String("addr", s.srv.Addr))
	return s.srv.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readyHandler reports whether the database answers a ping, along with
// pool usage.
func readyHandler(db *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "database not configured"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "database unreachable"})
			return
		}
		stat := db.Stat()
		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
			"db": gin.H{
				"totalConns":    stat.TotalConns(),
				"idleConns":     stat.IdleConns(),
				"acquiredConns": stat.AcquiredConns(),
				"maxConns":      stat.MaxConns(),
			},
		})
	}
}
