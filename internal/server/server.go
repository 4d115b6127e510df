// Package server exposes the admin REST API that the portal UI and the
// typed client talk to. Handlers translate HTTP to Store calls and map
// domain.ErrNotFound to 404; everything else surfaces as {"error": string}.
package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pentest-portal/internal/database"
	"github.com/pentest-portal/internal/domain"
	"github.com/pentest-portal/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Options configures the server
type Options struct {
	Store          database.Store
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	AdminAPIToken  string
	UploadDir      string
	Environment    string
}

// Server serves the admin REST API
type Server struct {
	store     database.Store
	metrics   *metrics.Metrics
	token     string
	uploadDir string
	engine    *gin.Engine
}

// New creates a server with all routes registered
func New(opts Options) (*Server, error) {
	if opts.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := os.MkdirAll(filepath.Join(opts.UploadDir, "consents"), 0o755); err != nil {
		return nil, err
	}

	s := &Server{
		store:     opts.Store,
		metrics:   opts.Metrics,
		token:     opts.AdminAPIToken,
		uploadDir: opts.UploadDir,
		engine:    gin.New(),
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(requestLogger())
	if s.metrics != nil {
		s.engine.Use(metricsMiddleware(s.metrics))
	}

	s.registerRoutes()
	if opts.MetricsHandler != nil {
		s.engine.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}
	return s, nil
}

// Handler returns the http.Handler for the server, usable with httptest
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts the server on addr and blocks
func (s *Server) Run(addr string) error {
	logrus.Infof("Admin API listening on %s", addr)
	return s.engine.Run(addr)
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.Static("/files", s.uploadDir)

	api := s.engine.Group("/api")
	api.Use(authRequired(s.token))
	{
		api.GET("/customers", s.handleListCustomers)
		api.POST("/customers", s.handleCreateCustomer)
		api.GET("/customers/:id", s.handleGetCustomer)
		api.PATCH("/customers/:id", s.handleUpdateCustomer)
		api.DELETE("/customers/:id", s.handleDeleteCustomer)

		api.GET("/customers/:id/scopes", s.handleListScopes)
		api.POST("/customers/:id/scopes", s.handleCreateScope)
		api.PATCH("/scopes/:id", s.handleUpdateScope)
		api.DELETE("/scopes/:id", s.handleDeleteScope)

		api.GET("/customers/:id/test-config", s.handleGetTestConfig)
		api.POST("/customers/:id/test-config", s.handleCreateTestConfig)
		api.PATCH("/customers/:id/test-config", s.handleUpdateTestConfig)

		api.GET("/customers/:id/test-runs", s.handleListCustomerRuns)
		api.GET("/test-runs", s.handleListRuns)
		api.POST("/test-runs", s.handleCreateRun)
		api.PATCH("/test-runs/:id", s.handleUpdateRun)

		api.GET("/customers/:id/reports", s.handleListCustomerReports)
		api.GET("/reports", s.handleListReports)
		api.GET("/reports/:id", s.handleGetReport)
		api.POST("/reports", s.handleCreateReport)
		api.PATCH("/reports/:id", s.handleUpdateReport)

		api.GET("/customers/:id/notes", s.handleListNotes)
		api.POST("/customers/:id/notes", s.handleCreateNote)
		api.DELETE("/notes/:id", s.handleDeleteNote)

		api.GET("/customers/:id/consents", s.handleListConsents)
		api.POST("/customers/:id/consents", s.handleUploadConsent)
		api.DELETE("/consents/:id", s.handleDeleteConsent)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// pathID parses the :id path parameter as a UUID
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

// storeError maps a Store failure onto the right status code
func storeError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if errors.Is(err, domain.ErrInvalid) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	logrus.Errorf("Store operation failed: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
