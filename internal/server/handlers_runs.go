package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pentest-portal/internal/domain"
)

func (s *Server) handleListCustomerRuns(c *gin.Context) {
	customerID, ok := pathID(c)
	if !ok {
		return
	}
	runs, err := s.store.ListRunsByCustomer(c.Request.Context(), customerID)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) handleListRuns(c *gin.Context) {
	runs, err := s.store.ListRuns(c.Request.Context())
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) handleCreateRun(c *gin.Context) {
	var run domain.TestRun
	if err := c.ShouldBindJSON(&run); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if run.Status == "" {
		run.Status = domain.RunScheduled
	}
	if err := run.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.CreateRun(c.Request.Context(), &run); err != nil {
		storeError(c, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordDBOperation("create", "test_runs")
	}
	c.JSON(http.StatusCreated, &run)
}

func (s *Server) handleUpdateRun(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var update domain.RunUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := update.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := s.store.UpdateRun(c.Request.Context(), id, update)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
