// Package api implements the read-only reporting HTTP server: list/inspect
// persisted backtest runs, stream an in-progress run's equity curve over a
// websocket, and gate report endpoints behind bearer-token auth. Route and
// handler shape (a *Server holding a store reference, gin.H JSON responses,
// one handler method per endpoint) is adapted from
// SynapseStrike/api/tactics.go's Server.handleXxx methods.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"quantrail/logger"
	"quantrail/store"
)

// Server is the reporting API: it owns the sqlite-backed run store, the
// websocket hub for live equity streaming, and the JWT secret used to sign
// and verify bearer tokens.
type Server struct {
	router    *gin.Engine
	store     *store.Store
	wsHub     *WSHub
	jwtSecret []byte
	log       zerolog.Logger

	credUsername     string
	credPasswordHash string
}

// NewServer constructs a Server wired to store and ready to ListenAndServe.
func NewServer(st *store.Store, jwtSecret string) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		router:    gin.New(),
		store:     st,
		wsHub:     NewWSHub(),
		jwtSecret: []byte(jwtSecret),
		log:       logger.New("api"),
	}
	go s.wsHub.Run()
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.registerRoutes()
	return s
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) registerRoutes() {
	s.router.POST("/login", s.handleLogin)
	s.router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	s.router.GET("/ws", s.handleWebSocket)

	runs := s.router.Group("/runs", s.requireAuth())
	{
		runs.GET("", s.handleListRuns)
		runs.GET("/:id", s.handleGetRun)
		runs.GET("/:id/equity", s.handleGetEquityCurve)
		runs.GET("/:id/transactions", s.handleGetTransactions)
	}
}

// ListenAndServe starts the HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	return s.router.Run(addr)
}

// Router exposes the gin engine for testing.
func (s *Server) Router() *gin.Engine { return s.router }

// SetCredentials configures the single login account this server accepts.
// passwordHash must be a bcrypt hash produced by HashPassword.
func (s *Server) SetCredentials(username, passwordHash string) {
	s.credUsername = username
	s.credPasswordHash = passwordHash
}

// PublishLiveState broadcasts an in-progress run's latest portfolio value to
// every connected websocket client. When registered through
// engine.Engine.SetLiveStateObserver, the engine calls it once per session
// alongside metrics.RecordLiveState.
func (s *Server) PublishLiveState(runID string, ts time.Time, value, leverage float64) {
	s.wsHub.Broadcast(WSMessage{
		Type: "live_state",
		Data: map[string]interface{}{
			"run_id":    runID,
			"timestamp": ts,
			"value":     value,
			"leverage":  leverage,
		},
	})
}
