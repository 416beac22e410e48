// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/AccelByte/extend-pbis-collection/pkg/collection"
	"github.com/AccelByte/extend-pbis-collection/pkg/pbis"
	"github.com/AccelByte/extend-pbis-collection/pkg/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Collector is the part of the collection orchestrator exposed over HTTP.
type Collector interface {
	SetArmed(ctx context.Context, armed bool) error
	State() collection.State
	Snapshot() *pbis.Snapshot
	LastResult() *collection.Result
	Run(ctx context.Context) collection.Result
}

// HTTPServer serves the admin API for card intake and collection runs.
type HTTPServer struct {
	server    *http.Server
	port      int
	collector Collector
	cards     service.CardRecorder
	health    service.HealthChecker
}

// NewHTTPServer creates a new admin HTTP server instance.
func NewHTTPServer(port int, collector Collector, cards service.CardRecorder, health service.HealthChecker) *HTTPServer {
	return &HTTPServer{
		port:      port,
		collector: collector,
		cards:     cards,
		health:    health,
	}
}

// Setup builds the router.
func (s *HTTPServer) Setup() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Handler returns the gin router with all admin routes.
func (s *HTTPServer) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", s.healthz)

	v1 := router.Group("/v1")
	v1.POST("/cards", s.giveCard)
	v1.GET("/collection", s.getCollection)
	v1.PUT("/collection/armed", s.setArmed)
	v1.POST("/collection/run", s.runCollection)

	return router
}

// Start begins serving the admin API.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		logrus.Infof("admin HTTP server listening on port %d", s.port)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("admin HTTP server failed: %v", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the admin API.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down admin HTTP server...")
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	logrus.Info("admin HTTP server stopped")
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logrus.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("handled admin request")
	}
}

func (s *HTTPServer) healthz(c *gin.Context) {
	if err := s.health.Check(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GiveCardRequest is the body of POST /v1/cards.
type GiveCardRequest struct {
	StudentID string    `json:"studentId" binding:"required"`
	Category  string    `json:"category"`
	GivenAt   time.Time `json:"givenAt"`
}

func (s *HTTPServer) giveCard(c *gin.Context) {
	var request GiveCardRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	card, err := s.cards.GiveCard(c.Request.Context(), pbis.Card{
		StudentID: request.StudentID,
		Category:  request.Category,
		GivenAt:   request.GivenAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrStudentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			logrus.Errorf("failed to give card to student %s: %v", request.StudentID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to give card"})
		}
		return
	}

	c.JSON(http.StatusCreated, card)
}

// CollectionResponse is the body of GET /v1/collection.
type CollectionResponse struct {
	State      string         `json:"state"`
	Armed      bool           `json:"armed"`
	Running    bool           `json:"running"`
	Snapshot   *pbis.Snapshot `json:"snapshot"`
	LastResult *RunResponse   `json:"lastResult"`
}

// RunResponse wraps a run result with its legacy status string.
type RunResponse struct {
	Status string `json:"status"`
	collection.Result
}

func newRunResponse(result *collection.Result) *RunResponse {
	if result == nil {
		return nil
	}
	return &RunResponse{Status: result.Status(), Result: *result}
}

func (s *HTTPServer) collectionResponse() CollectionResponse {
	state := s.collector.State()
	return CollectionResponse{
		State:      state.String(),
		Armed:      state == collection.StateArmed,
		Running:    state == collection.StateRunning,
		Snapshot:   s.collector.Snapshot(),
		LastResult: newRunResponse(s.collector.LastResult()),
	}
}

func (s *HTTPServer) getCollection(c *gin.Context) {
	c.JSON(http.StatusOK, s.collectionResponse())
}

// SetArmedRequest is the body of PUT /v1/collection/armed.
type SetArmedRequest struct {
	Armed *bool `json:"armed" binding:"required"`
}

func (s *HTTPServer) setArmed(c *gin.Context) {
	var request SetArmedRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.collector.SetArmed(c.Request.Context(), *request.Armed); err != nil {
		if errors.Is(err, collection.ErrAlreadyRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, s.collectionResponse())
}

func (s *HTTPServer) runCollection(c *gin.Context) {
	result := s.collector.Run(c.Request.Context())

	status := http.StatusOK
	switch {
	case result.OK:
	case errors.Is(result.Err, collection.ErrNotArmed), errors.Is(result.Err, collection.ErrAlreadyRunning):
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
	}

	c.JSON(status, newRunResponse(&result))
}
