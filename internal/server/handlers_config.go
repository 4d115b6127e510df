package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pentest-portal/internal/domain"
)

func (s *Server) handleGetTestConfig(c *gin.Context) {
	customerID, ok := pathID(c)
	if !ok {
		return
	}
	config, err := s.store.GetTestConfigByCustomer(c.Request.Context(), customerID)
	if err != nil {
		storeError(c, err)
		return
	}
	if config == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "test configuration not found"})
		return
	}
	c.JSON(http.StatusOK, config)
}

// handleCreateTestConfig creates or replaces the customer's configuration.
// A customer has at most one; posting again swaps it out.
func (s *Server) handleCreateTestConfig(c *gin.Context) {
	customerID, ok := pathID(c)
	if !ok {
		return
	}
	var config domain.TestConfiguration
	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	config.CustomerID = customerID
	if err := config.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.CreateTestConfig(c.Request.Context(), &config); err != nil {
		storeError(c, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordDBOperation("create", "test_configurations")
	}
	c.JSON(http.StatusCreated, &config)
}

func (s *Server) handleUpdateTestConfig(c *gin.Context) {
	customerID, ok := pathID(c)
	if !ok {
		return
	}
	var update domain.TestConfigUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := update.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := s.store.UpdateTestConfig(c.Request.Context(), customerID, update)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
