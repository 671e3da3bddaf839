// Package api is the HTTP front door: every route turns a request into one correlated
// session call or one pooled REST call and answers with the result envelope.
package api

import (
	"context"
	"net/http"
	"time"

	"bridge/internal/adapter"
	"bridge/internal/codec"
	"bridge/internal/journal"
	"bridge/internal/obs"
	"bridge/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/yanun0323/logs"
)

// Session is the correlated channel.
type Session interface {
	Call(ctx context.Context, op adapter.Operation) (adapter.Envelope, error)
	State() session.State
}

// OneShot is the pooled REST channel.
type OneShot interface {
	Do(ctx context.Context, op adapter.Operation, token string) (adapter.Envelope, error)
	Authenticate(ctx context.Context, creds adapter.Credentials) (codec.AuthResult, adapter.Envelope, error)
}

// Server wires the routes to the two channels.
type Server struct {
	session Session
	oneShot OneShot
	journal journal.Journal
	metrics *obs.Metrics
	started time.Time
	engine  *gin.Engine
}

func New(sess Session, oneShot OneShot, j journal.Journal, metrics *obs.Metrics) *Server {
	if j == nil {
		j = journal.Nop{}
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), accessLog())

	s := &Server{
		session: sess,
		oneShot: oneShot,
		journal: j,
		metrics: metrics,
		started: time.Now(),
		engine:  engine,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine.Group("/api")
	r.GET("/health", s.health)

	ws := r.Group("/ws")
	ws.POST("/buy", s.wsBuy)
	ws.GET("/open_orders", s.wsOpenOrders)
	ws.DELETE("/cancel_order", s.wsCancelOrder)
	ws.PATCH("/modify_order", s.wsModifyOrder)
	ws.GET("/positions", s.wsPositions)
	ws.GET("/orderbook", s.wsOrderBook)

	r.POST("/auth", s.restAuth)
	r.POST("/buy", s.restBuy)
	r.DELETE("/cancel", s.restCancel)
	r.GET("/orderbook", s.restOrderBook)
	r.GET("/orders", s.restOrders)
	r.GET("/positions", s.restPositions)
	r.PUT("/modify", s.restModify)
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logs.Infof("api: listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logs.Info("api: stopped")
	return nil
}

func (s *Server) health(c *gin.Context) {
	state := "disabled"
	if s.session != nil {
		state = s.session.State().String()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "bridge gateway",
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"session": state,
		"metrics": s.metrics.Snapshot(),
	})
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logs.Infof("api: %s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
