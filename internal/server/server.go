package server

import (
	"embed"
	"io/fs"
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/atikulmunna/logboard/internal/hub"
	"github.com/atikulmunna/logboard/internal/index"
	"github.com/atikulmunna/logboard/internal/model"
	"github.com/atikulmunna/logboard/internal/query"
)

//go:embed all:web
var webFS embed.FS

// Server holds the Gin engine and the core components it exposes.
type Server struct {
	engine  *gin.Engine
	idx     *index.Index
	engineQ *query.Engine
	hub     *hub.Hub
	logDir  string // artifact files under /cache resolve against this
	addr    string
	log     *zap.Logger
}

// Config carries the server's dependencies.
type Config struct {
	Index  *index.Index
	Query  *query.Engine
	Hub    *hub.Hub
	LogDir string
	Addr   string
	Logger *zap.Logger
}

// New creates the web server for the Logboard dashboard.
func New(cfg Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	// Disable automatic redirects that cause 301 issues.
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	s := &Server{
		engine:  engine,
		idx:     cfg.Index,
		engineQ: cfg.Query,
		hub:     cfg.Hub,
		logDir:  cfg.LogDir,
		addr:    cfg.Addr,
		log:     cfg.Logger,
	}

	s.setupRoutes()
	return s
}

// serveEmbedded reads a file from the embedded FS and writes it with the
// given content type.
func serveEmbedded(webContent fs.FS, name string, contentType string) gin.HandlerFunc {
	// Pre-read the file at startup so we don't read on every request.
	data, err := fs.ReadFile(webContent, name)
	return func(c *gin.Context) {
		if err != nil {
			c.String(http.StatusNotFound, "file not found: %s", name)
			return
		}
		c.Data(http.StatusOK, contentType, data)
	}
}

func (s *Server) setupRoutes() {
	webContent, _ := fs.Sub(webFS, "web")

	// Dashboard and runs pages.
	s.engine.GET("/", serveEmbedded(webContent, "index.html", "text/html; charset=utf-8"))
	s.engine.GET("/runs", serveEmbedded(webContent, "runs.html", "text/html; charset=utf-8"))
	s.engine.GET("/style.css", serveEmbedded(webContent, "style.css", "text/css; charset=utf-8"))
	s.engine.GET("/app.js", serveEmbedded(webContent, "app.js", "application/javascript; charset=utf-8"))

	// Query API.
	s.engine.GET("/api/logs", s.handleLogs)

	// Runs API.
	s.engine.GET("/api/runs", s.handleRuns)

	// Stats and health.
	s.engine.GET("/api/stats", s.handleStats)
	s.engine.GET("/healthz", s.handleHealth)

	// Live stream.
	s.engine.GET("/ws", s.handleWebSocket)

	// Artifact files referenced by cache_path.
	s.engine.GET("/cache/*filepath", s.handleCache)

	// pprof profiling endpoints.
	s.engine.GET("/debug/pprof/", gin.WrapF(pprof.Index))
	s.engine.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
	s.engine.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
	s.engine.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
	s.engine.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	s.engine.GET("/debug/pprof/allocs", gin.WrapH(pprof.Handler("allocs")))
	s.engine.GET("/debug/pprof/heap", gin.WrapH(pprof.Handler("heap")))
	s.engine.GET("/debug/pprof/goroutine", gin.WrapH(pprof.Handler("goroutine")))
}

// entryDTO is the wire form of one record.
type entryDTO struct {
	Seq        uint64       `json:"seq"`
	Time       string       `json:"time,omitempty"`
	Level      string       `json:"level,omitempty"`
	ParseError bool         `json:"parse_error,omitempty"`
	Entry      model.RawMap `json:"entry"`
}

func toDTO(rec model.Record) entryDTO {
	dto := entryDTO{
		Seq:        rec.Seq,
		Level:      rec.Level,
		ParseError: rec.ParseError,
		Entry:      rec.Document(),
	}
	if rec.HasTime() {
		dto.Time = rec.Time.Format(time.RFC3339)
	}
	return dto
}

func (s *Server) handleLogs(c *gin.Context) {
	filter := query.ParseFilter(c.Request.URL.Query())
	order := query.ParseSort(c.Query("order"))

	page := intParam(c, "page", 1)
	pageSize := intParam(c, "page_size", query.DefaultPageSize)

	res, err := s.engineQ.Query(filter, order, page, pageSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries := make([]entryDTO, 0, len(res.Records))
	for _, rec := range res.Records {
		entries = append(entries, toDTO(rec))
	}

	c.JSON(http.StatusOK, gin.H{
		"entries":   entries,
		"total":     res.Total,
		"page":      res.Page,
		"page_size": res.PageSize,
		"facets":    res.Facets,
	})
}

func (s *Server) handleRuns(c *gin.Context) {
	report := s.idx.RunsReport()

	// Keyed form matches the runs page's lookup by name; order is carried
	// by the sorted names list.
	runs := make(map[string]index.RunStat, len(report))
	names := make([]string, 0, len(report))
	for _, r := range report {
		runs[r.Name] = r
		names = append(names, r.Name)
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs, "order": names})
}

func (s *Server) handleStats(c *gin.Context) {
	stats := s.idx.Stats()
	c.JSON(http.StatusOK, gin.H{
		"uptime":              stats.Uptime,
		"total":               stats.Total,
		"parse_errors":        stats.ParseErrors,
		"level_counts":        stats.LevelCounts,
		"eps":                 stats.EPS,
		"subscribers":         s.hub.Subscribers(),
		"dropped_subscribers": s.hub.Dropped(),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	stats := s.idx.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": stats.Uptime,
		"total":  stats.Total,
		"eps":    stats.EPS,
	})
}

// Start runs the server. Blocks until the server is stopped.
func (s *Server) Start() error {
	s.log.Info("serving dashboard", zap.String("addr", s.addr))
	return s.engine.Run(s.addr)
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func intParam(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
