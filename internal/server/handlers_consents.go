package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pentest-portal/internal/domain"
	"github.com/sirupsen/logrus"
)

func (s *Server) handleListConsents(c *gin.Context) {
	customerID, ok := pathID(c)
	if !ok {
		return
	}
	consents, err := s.store.ListConsentsByCustomer(c.Request.Context(), customerID)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, consents)
}

// handleUploadConsent accepts a multipart form with a "file" part and an
// optional RFC 3339 "agreed_at" field, stores the file under the upload
// directory and records the consent.
func (s *Server) handleUploadConsent(c *gin.Context) {
	customerID, ok := pathID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	agreedAt := time.Time{}
	if v := c.PostForm("agreed_at"); v != "" {
		agreedAt, err = time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agreed_at, expected RFC 3339"})
			return
		}
	}

	consent := domain.CustomerConsent{
		CustomerID: customerID,
		FileName:   filepath.Base(fileHeader.Filename),
		AgreedAt:   agreedAt,
	}

	storedName := fmt.Sprintf("%s_%s", uuid.New(), consent.FileName)
	consent.FilePath = filepath.Join(s.uploadDir, "consents", storedName)
	consent.DownloadURL = "/files/consents/" + storedName

	if err := c.SaveUploadedFile(fileHeader, consent.FilePath); err != nil {
		logrus.Errorf("Failed to save consent upload: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
		return
	}

	if err := s.store.CreateConsent(c.Request.Context(), &consent); err != nil {
		if rmErr := os.Remove(consent.FilePath); rmErr != nil {
			logrus.Warnf("Failed to remove orphaned consent file %s: %v", consent.FilePath, rmErr)
		}
		storeError(c, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordConsentUploaded()
	}
	c.JSON(http.StatusCreated, &consent)
}

func (s *Server) handleDeleteConsent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	consent, err := s.store.GetConsent(c.Request.Context(), id)
	if err != nil {
		storeError(c, err)
		return
	}
	if consent == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "consent not found"})
		return
	}
	if err := s.store.DeleteConsent(c.Request.Context(), id); err != nil {
		storeError(c, err)
		return
	}
	if consent.FilePath != "" {
		if err := os.Remove(consent.FilePath); err != nil && !os.IsNotExist(err) {
			logrus.Warnf("Failed to remove consent file %s: %v", consent.FilePath, err)
		}
	}
	c.Status(http.StatusNoContent)
}
