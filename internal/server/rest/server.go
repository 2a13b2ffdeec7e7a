package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/apetrenko/filevault/internal/logging"
	"github.com/apetrenko/filevault/internal/server/models"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires handlers and middleware into a gin engine and runs it with
// graceful shutdown.
type Server struct {
	addr   string
	engine *gin.Engine
	logger logging.Logger
}

func NewServer(addr string, handlers *Handlers, authmw *AuthMiddleware, logger logging.Logger, db Pinger, store Pinger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "filevault API",
			"endpoints": gin.H{
				"ops": gin.H{
					"login":  "/ops/login",
					"upload": "/ops/upload",
				},
				"client": gin.H{
					"signup":   "/client/signup",
					"login":    "/client/login",
					"files":    "/client/files",
					"download": "/client/download-file/:id",
				},
			},
		})
	})

	start := time.Now()
	engine.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"uptime":    time.Since(start).String(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	engine.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "database": err.Error()})
			return
		}
		if err := store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "storage": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	engine.POST("/client/signup", handlers.Signup)
	engine.GET("/verify-email", handlers.VerifyEmail)
	engine.POST("/client/login", handlers.ClientLogin)
	engine.POST("/ops/login", handlers.OpsLogin)

	ops := engine.Group("/ops", authmw.RequireAuth(), authmw.RequireRole(models.RoleOps))
	ops.POST("/upload", handlers.Upload)

	client := engine.Group("/client", authmw.RequireAuth(), authmw.RequireRole(models.RoleClient))
	client.GET("/files", handlers.ListFiles)
	client.GET("/download-file/:id", handlers.IssueDownloadLink)

	// No session here: the envelope alone is the credential, so the link
	// works out-of-band without a live bearer token.
	engine.GET("/download-file/:envelope", handlers.Download)

	return &Server{
		addr:   addr,
		engine: engine,
		logger: logger.With("module", "rest_server"),
	}
}

// Handler exposes the routed engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down draining in-flight
// requests for up to five seconds.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
