package server

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbitlab/starmap/pkg/command"
	"github.com/orbitlab/starmap/pkg/common/errors"
)

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.State())
}

// handleMapSVG serves the current frame, or a cached earlier pass when
// ?pass= names one that is still in the cache.
func (s *Server) handleMapSVG(c *gin.Context) {
	if pass := c.Query("pass"); pass != "" {
		if frame, ok := s.frames.Get(pass); ok {
			c.Data(http.StatusOK, "image/svg+xml", frame.SVG)
			return
		}
		handleError(c, errors.NewAppError(http.StatusNotFound, "Pass not cached", nil))
		return
	}

	frame, err := s.session.Frame()
	if err != nil {
		handleError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/svg+xml", frame.SVG)
}

func (s *Server) handleMapPNG(c *gin.Context) {
	var buf bytes.Buffer
	if err := s.session.RenderPNG(&buf); err != nil {
		handleError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) handleGraph(c *gin.Context) {
	graph, err := s.session.GraphExport()
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, graph)
}

func (s *Server) handleLegend(c *gin.Context) {
	frame, err := s.session.Frame()
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pass_id": frame.PassID, "sectors": frame.Legend})
}

func (s *Server) handleSystem(c *gin.Context) {
	node, err := s.session.NodeByID(c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

func (s *Server) handleSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		handleError(c, errors.NewAppError(http.StatusBadRequest, "Missing query", nil))
		return
	}

	names := s.session.SystemNames()
	matches := FindSystemsByName(query, names)
	c.JSON(http.StatusOK, gin.H{"results": matches})
}

func (s *Server) handleControl(c *gin.Context) {
	action := command.Action(c.Param("action"))

	var req struct {
		Steps int `json:"steps"`
	}
	// Body is optional for play/pause.
	_ = c.ShouldBindJSON(&req)

	if err := s.dispatcher.Dispatch(c.Request.Context(), action, req.Steps); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleRestart(c *gin.Context) {
	if err := s.session.Restart(); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "settling"})
}

func (s *Server) handleResize(c *gin.Context) {
	var req struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, errors.NewAppError(http.StatusBadRequest, "Invalid request body", err))
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		handleError(c, errors.NewAppError(http.StatusBadRequest, "Width and height must be positive", nil))
		return
	}

	if err := s.session.Resize(req.Width, req.Height); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "settling"})
}
