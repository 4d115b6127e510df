package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pentest-portal/internal/domain"
)

func (s *Server) handleListCustomerReports(c *gin.Context) {
	customerID, ok := pathID(c)
	if !ok {
		return
	}
	reports, err := s.store.ListReportsByCustomer(c.Request.Context(), customerID)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (s *Server) handleListReports(c *gin.Context) {
	reports, err := s.store.ListReports(c.Request.Context())
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (s *Server) handleGetReport(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	report, err := s.store.GetReport(c.Request.Context(), id)
	if err != nil {
		storeError(c, err)
		return
	}
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleCreateReport(c *gin.Context) {
	var report domain.Report
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if report.Status == "" {
		report.Status = domain.ReportNew
	}
	if err := report.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.CreateReport(c.Request.Context(), &report); err != nil {
		storeError(c, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordDBOperation("create", "reports")
	}
	c.JSON(http.StatusCreated, &report)
}

func (s *Server) handleUpdateReport(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var update domain.ReportUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := update.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := s.store.UpdateReport(c.Request.Context(), id, update)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
