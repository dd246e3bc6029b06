// Package mockapi is an in-memory campus REST collaborator. It backs the
// integration tests and the beacon-mock development binary.
package mockapi

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campusbeacon/beacon/internal/model"
)

const defaultSessionTTL = 24 * time.Hour

// Options configures a Server.
type Options struct {
	SessionTTL time.Duration
	Logger     *zap.Logger
}

// Server serves the campus REST API from memory.
type Server struct {
	addr       string
	data       *Data
	server     *http.Server
	listener   net.Listener
	ctx        context.Context
	cancel     context.CancelFunc
	startTime  time.Time
	sessionTTL time.Duration
	logger     *zap.Logger
}

// NewServer creates a collaborator bound to addr. An empty addr listens on a
// random loopback port.
func NewServer(addr string, data *Data, opts Options) *Server {
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	if data == nil {
		data = NewData()
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:       addr,
		data:       data,
		ctx:        ctx,
		cancel:     cancel,
		startTime:  time.Now(),
		sessionTTL: ttl,
		logger:     logger,
	}
}

// Data exposes the backing tables.
func (s *Server) Data() *Data { return s.data }

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog)

	r.GET("/api/health", s.handleHealth)

	auth := r.Group("/auth")
	auth.POST("/login", s.handleLogin)
	auth.POST("/signup", s.handleSignup)
	auth.GET("/me", s.requireSession, s.handleMe)
	auth.POST("/logout", s.handleLogout)

	api := r.Group("/", s.requireSession)
	mountCRUD(api, "/clubs", s.data.Clubs, bindJSON[model.Club])
	mountCRUD(api, "/coordinators", s.data.Coordinators, bindJSON[model.Coordinator])
	mountCRUD(api, "/events", s.data.Events, bindJSON[model.Event])
	mountCRUD(api, "/contacts", s.data.Contacts, bindJSON[model.Contact])
	mountCRUD(api, "/marketplace", s.data.Marketplace, s.bindMarketplace)

	api.GET("/notifications/unread-count", s.handleUnreadCount)
	api.PUT("/notifications/read-all", s.handleMarkAllRead)
	api.PUT("/notifications/:id/read", s.handleMarkRead)
	mountCRUD(api, "/notifications", s.data.Notifications, bindJSON[model.Notification])

	admin := api.Group("/", s.requireAdmin)
	mountCRUD(admin, "/users", s.data.Users, bindJSON[model.User])

	return r
}

func (s *Server) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Debug("request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", c.Writer.Status()),
		zap.String("request_id", c.GetHeader("X-Request-ID")),
		zap.Duration("elapsed", time.Since(start)))
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.startTime = time.Now()

	go s.server.Serve(listener)
	s.logger.Info("mock api listening", zap.String("addr", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
