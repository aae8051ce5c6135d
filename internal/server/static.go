package server

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// mountStatic serves the compiled board frontend. Unknown non-API paths fall
// back to index.html so client-side routes survive a reload.
func (s *Server) mountStatic() {
	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	if s.staticDir == "" {
		s.logger.Warn("static directory not configured; API only mode")
		return
	}
	if !isDir(s.staticDir) {
		s.logger.Warn("static directory missing", slog.String("path", s.staticDir))
		return
	}

	for _, name := range []string{"favicon.ico", "manifest.json", "robots.txt"} {
		path := filepath.Join(s.staticDir, name)
		if _, err := os.Stat(path); err == nil {
			s.engine.StaticFile("/"+name, path)
		}
	}
	if assets := filepath.Join(s.staticDir, "assets"); isDir(assets) {
		s.engine.StaticFS("/assets", gin.Dir(assets, false))
	}

	index := filepath.Join(s.staticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		s.logger.Warn("index.html not found", slog.String("path", index), slog.String("error", err.Error()))
		return
	}
	s.engine.GET("/", func(c *gin.Context) { c.File(index) })
	s.engine.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
			return
		}
		c.File(index)
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
