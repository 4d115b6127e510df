package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pentest-portal/internal/domain"
)

func (s *Server) handleListCustomers(c *gin.Context) {
	customers, err := s.store.ListCustomers(c.Request.Context())
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

func (s *Server) handleGetCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	customer, err := s.store.GetCustomer(c.Request.Context(), id)
	if err != nil {
		storeError(c, err)
		return
	}
	if customer == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "customer not found"})
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (s *Server) handleCreateCustomer(c *gin.Context) {
	var customer domain.Customer
	if err := c.ShouldBindJSON(&customer); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := customer.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.CreateCustomer(c.Request.Context(), &customer); err != nil {
		storeError(c, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordDBOperation("create", "customers")
	}
	c.JSON(http.StatusCreated, &customer)
}

func (s *Server) handleUpdateCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var update domain.CustomerUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := update.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := s.store.UpdateCustomer(c.Request.Context(), id, update)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeleteCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.store.DeleteCustomer(c.Request.Context(), id); err != nil {
		storeError(c, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordCustomerDeleted()
	}
	c.Status(http.StatusNoContent)
}
