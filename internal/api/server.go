// Package api serves the watch daemon's local status endpoints: container
// state, upload history and Prometheus metrics.
package api

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gmsas95/ocrdesk-cli/internal/config"
	"github.com/gmsas95/ocrdesk-cli/internal/document"
	"github.com/gmsas95/ocrdesk-cli/internal/metrics"
	"github.com/gmsas95/ocrdesk-cli/internal/ocr"
	"github.com/gmsas95/ocrdesk-cli/internal/store"
)

// Server exposes read-only daemon state over loopback HTTP
type Server struct {
	app      *fiber.App
	config   *config.Config
	docStore *document.Store
	ocrStore *ocr.Store
	store    *store.Store
	logger   *zap.Logger
	started  time.Time
}

// New creates the status server
func New(cfg *config.Config, docStore *document.Store, ocrStore *ocr.Store, st *store.Store, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		ReadTimeout:           time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.Server.WriteTimeout) * time.Second,
		DisableStartupMessage: true,
	})

	s := &Server{
		app:      app,
		config:   cfg,
		docStore: docStore,
		ocrStore: ocrStore,
		store:    st,
		logger:   logger,
		started:  time.Now(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.app.Use(recover.New())

	s.app.Get("/api/health", s.handleHealth)

	state := s.app.Group("/api/state")
	state.Get("/documents", s.handleDocuments)
	state.Get("/jobs", s.handleJobs)
	state.Get("/uploads", s.handleUploadProgress)

	history := s.app.Group("/api/history")
	history.Get("/uploads", s.handleUploadHistory)

	s.app.Get("/metrics", adaptor.HTTPHandler(
		promhttp.HandlerFor(metrics.Default().Registry(), promhttp.HandlerOpts{}),
	))
}

// Start begins serving; blocks until Shutdown
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Address, s.config.Server.Port)
	s.logger.Info("Status server listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"uptime": time.Since(s.started).String(),
	})
}

func (s *Server) handleDocuments(c *fiber.Ctx) error {
	status := document.Status(c.Query("status"))
	search := c.Query("search")

	var docs []document.Document
	if status != "" || search != "" {
		docs = s.docStore.Filter(status, search)
	} else {
		docs = s.docStore.Documents()
	}

	return c.JSON(fiber.Map{
		"documents": docs,
		"total":     len(docs),
		"loading":   s.docStore.Loading(),
		"error":     s.docStore.Error(),
	})
}

func (s *Server) handleJobs(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"jobs":  s.ocrStore.Statuses(),
		"error": s.ocrStore.Error(),
	})
}

func (s *Server) handleUploadProgress(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"uploads": s.docStore.Progress(),
	})
}

func (s *Server) handleUploadHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)

	uploads, err := s.store.RecentUploads(limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"uploads": uploads,
	})
}
