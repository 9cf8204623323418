package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// handleCache serves artifact files referenced by a record's cache_path,
// resolved relative to the watched log file's directory. Paths that resolve
// outside that directory are rejected.
func (s *Server) handleCache(c *gin.Context) {
	rel := strings.TrimPrefix(c.Param("filepath"), "/")
	if rel == "" {
		c.String(http.StatusNotFound, "not found")
		return
	}

	root, err := filepath.Abs(s.logDir)
	if err != nil {
		c.String(http.StatusInternalServerError, "cannot resolve cache root")
		return
	}
	target := filepath.Join(root, filepath.FromSlash(rel))
	if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
		c.String(http.StatusForbidden, "forbidden")
		return
	}

	info, err := os.Stat(target)
	if err != nil || info.IsDir() {
		c.String(http.StatusNotFound, "not found")
		return
	}
	c.File(target)
}
