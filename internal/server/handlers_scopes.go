package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pentest-portal/internal/domain"
)

func (s *Server) handleListScopes(c *gin.Context) {
	customerID, ok := pathID(c)
	if !ok {
		return
	}
	scopes, err := s.store.ListScopesByCustomer(c.Request.Context(), customerID)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, scopes)
}

func (s *Server) handleCreateScope(c *gin.Context) {
	customerID, ok := pathID(c)
	if !ok {
		return
	}
	var scope domain.Scope
	if err := c.ShouldBindJSON(&scope); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	scope.CustomerID = customerID
	if err := scope.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.CreateScope(c.Request.Context(), &scope); err != nil {
		storeError(c, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordDBOperation("create", "scopes")
	}
	c.JSON(http.StatusCreated, &scope)
}

func (s *Server) handleUpdateScope(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var update domain.ScopeUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := update.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := s.store.UpdateScope(c.Request.Context(), id, update)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeleteScope(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.store.DeleteScope(c.Request.Context(), id); err != nil {
		storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
