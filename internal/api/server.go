// Package api is the HTTP control surface for the trading core: session
// lifecycle endpoints plus a websocket telemetry push. It is one host for
// the front-end collaborator boundary; the core only ever sees the notifier.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"binary-core/internal/events"
	"binary-core/internal/session"
	"binary-core/pkg/db"
)

// Server wires HTTP endpoints around the session manager and event bus.
type Server struct {
	Router    *gin.Engine
	Sessions  *session.Manager
	Bus       *events.Bus
	DB        *db.Database
	JWTSecret string
	Log       logrus.FieldLogger
}

// NewServer builds the router with the middleware stack and all routes.
func NewServer(sessions *session.Manager, bus *events.Bus, database *db.Database, jwtSecret string, log logrus.FieldLogger) *Server {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:    r,
		Sessions:  sessions,
		Bus:       bus,
		DB:        database,
		JWTSecret: jwtSecret,
		Log:       log.WithField("component", "api"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	api.Use(AuthMiddleware(s.JWTSecret))
	{
		api.POST("/sessions", s.startSession)
		api.GET("/sessions", s.listSessions)
		api.GET("/sessions/:id", s.getSession)
		api.GET("/sessions/:id/runs", s.getSessionRuns)
		api.DELETE("/sessions/:id", s.stopSession)
		api.PUT("/sessions/:id/config", s.updateSessionConfig)
		api.POST("/sessions/:id/pause", s.pauseSession)
		api.POST("/sessions/:id/resume", s.resumeSession)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"code":  code,
		"error": msg,
	})
}
