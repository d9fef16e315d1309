package api

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/david/funding-crawler/internal/crawl"
	"github.com/david/funding-crawler/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Server is the thin HTTP glue over the crawl manager. Everything beyond
// request decoding and response shaping lives in internal/crawl.
type Server struct {
	Manager *crawl.Manager
	Echo    *echo.Echo

	modeMu sync.Mutex
	mode   models.CrawlMode
}

func NewServer(manager *crawl.Manager) *Server {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	allowedOrigins := []string{"http://localhost:4200"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	s := &Server{
		Manager: manager,
		Echo:    e,
		mode:    models.ModeMock,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)

	api := s.Echo.Group("/api/v1")
	api.POST("/crawl", s.handleStartCrawl)
	api.GET("/status", s.handleStatus)
	api.GET("/results", s.handleResults)
	api.POST("/mode/toggle", s.handleToggleMode)
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func (s *Server) currentMode() models.CrawlMode {
	s.modeMu.Lock()
	defer s.modeMu.Unlock()
	return s.mode
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type crawlRequest struct {
	Mode models.CrawlMode `json:"mode"`
	crawl.Overrides
}

// maxPreviewOpportunities caps the opportunity list echoed back in the crawl
// response; full results come from /results.
const maxPreviewOpportunities = 10

func (s *Server) handleStartCrawl(c echo.Context) error {
	var req crawlRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	mode := req.Mode
	if mode == "" {
		mode = s.currentMode()
	}
	if !mode.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "mode must be \"mock\" or \"real\""})
	}

	result := s.Manager.StartCrawl(c.Request().Context(), mode, req.Overrides)
	if len(result.Opportunities) > maxPreviewOpportunities {
		result.Opportunities = result.Opportunities[:maxPreviewOpportunities]
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleStatus(c echo.Context) error {
	mode := models.CrawlMode(c.QueryParam("mode"))
	if mode == "" {
		mode = s.currentMode()
	}
	return c.JSON(http.StatusOK, s.Manager.GetStatus(c.Request().Context(), mode))
}

func (s *Server) handleResults(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
		}
		limit = parsed
	}

	results, err := s.Manager.GetResults(c.Request().Context(), limit, c.QueryParam("source"), c.QueryParam("q"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, results)
}

func (s *Server) handleToggleMode(c echo.Context) error {
	s.modeMu.Lock()
	defer s.modeMu.Unlock()

	resp := s.Manager.ToggleMode(s.mode)
	s.mode = resp["current_mode"].(models.CrawlMode)
	return c.JSON(http.StatusOK, resp)
}
