package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pentest-portal/internal/domain"
)

func (s *Server) handleListNotes(c *gin.Context) {
	customerID, ok := pathID(c)
	if !ok {
		return
	}
	notes, err := s.store.ListNotesByCustomer(c.Request.Context(), customerID)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

func (s *Server) handleCreateNote(c *gin.Context) {
	customerID, ok := pathID(c)
	if !ok {
		return
	}
	var note domain.CustomerNote
	if err := c.ShouldBindJSON(&note); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(note.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	note.CustomerID = customerID
	if err := s.store.CreateNote(c.Request.Context(), &note); err != nil {
		storeError(c, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordDBOperation("create", "customer_notes")
	}
	c.JSON(http.StatusCreated, &note)
}

func (s *Server) handleDeleteNote(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.store.DeleteNote(c.Request.Context(), id); err != nil {
		storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
