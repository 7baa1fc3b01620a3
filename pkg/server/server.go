// Package server exposes the viewer over HTTP: rendered frames, state and
// graph exports, control proxying, fuzzy system search, and a websocket
// hub announcing refresh/settle events.
package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/orbitlab/starmap/internal/session"
	"github.com/orbitlab/starmap/pkg/command"
	"github.com/orbitlab/starmap/pkg/common/errors"
)

// MaxCachedFrames bounds how many stabilization passes stay servable.
const MaxCachedFrames = 8

// Server holds the state for the viewer's REST surface.
type Server struct {
	session    *session.Session
	dispatcher *command.Dispatcher
	router     *gin.Engine
	frames     *lru.Cache[string, *session.Frame]
	hub        *Hub
}

// NewServer creates a Server and wires it to the session's event stream.
func NewServer(sess *session.Session, dispatcher *command.Dispatcher) *Server {
	frames, _ := lru.New[string, *session.Frame](MaxCachedFrames)

	s := &Server{
		session:    sess,
		dispatcher: dispatcher,
		router:     gin.Default(),
		frames:     frames,
		hub:        newHub(),
	}
	sess.OnEvent = s.onSessionEvent
	s.setupRoutes()
	return s
}

// Run starts the server on the specified address.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/v1/state", s.handleState)
	s.router.GET("/v1/map.svg", s.handleMapSVG)
	s.router.GET("/v1/map.png", s.handleMapPNG)
	s.router.GET("/v1/graph", s.handleGraph)
	s.router.GET("/v1/legend", s.handleLegend)
	s.router.GET("/v1/systems/search", s.handleSearch)
	s.router.GET("/v1/systems/:id", s.handleSystem)
	s.router.POST("/v1/control/:action", s.handleControl)
	s.router.POST("/v1/restart", s.handleRestart)
	s.router.POST("/v1/resize", s.handleResize)
	s.router.GET("/v1/ws", s.handleWS)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.Status(http.StatusOK)
}

// onSessionEvent caches freshly rendered frames and fans the event out to
// websocket clients.
func (s *Server) onSessionEvent(ev session.Event) {
	if ev.Type == "settled" || ev.Type == "refresh" {
		if frame, err := s.session.Frame(); err == nil {
			s.frames.Add(frame.PassID, frame)
		}
	}

	msg, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[Server] event encode failed: %v", err)
		return
	}
	s.hub.Broadcast(msg)
}

func handleError(c *gin.Context, err error) {
	appErr := errors.MapError(err)
	c.JSON(appErr.Code, gin.H{"error": appErr.Message})
}
