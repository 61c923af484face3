// Package httpapi exposes the conversion pipeline over HTTP: a single
// multipart upload endpoint wrapping duskpdf/pdfdark.Process.
package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"duskpdf/pdfdark"
	"duskpdf/theme"
)

const maxUploadBytes = 64 << 20 // 64MiB

// Server wraps a gin engine bound to the conversion pipeline.
type Server struct {
	engine *gin.Engine
	log    *zap.Logger
}

// New builds a Server with its routes registered. log must not be nil.
func New(log *zap.Logger) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), ginZapLogger(log))

	s := &Server{engine: engine, log: log}
	engine.POST("/convert", s.handleConvert)
	engine.GET("/healthz", s.handleHealthz)
	return s
}

// Handler returns the http.Handler to pass to http.Server or httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.Status(http.StatusOK)
}

// handleConvert accepts a multipart form with a "file" part holding the
// source PDF and an optional "theme" field, and streams back the recolored
// document as application/pdf.
func (s *Server) handleConvert(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	themeID := c.PostForm("theme")
	if themeID == "" {
		themeID = theme.Classic.ID
	}
	if !validTheme(themeID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown theme: " + themeID})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing \"file\" form field"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not open uploaded file"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}

	out, err := pdfdark.ProcessWithLogger(data, themeID, s.log)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pdfdark.ErrParse) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/pdf", out)
}

func validTheme(id string) bool {
	for _, t := range theme.All {
		if t.ID == id {
			return true
		}
	}
	return false
}

func ginZapLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
		)
	}
}
