package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pentest-portal/internal/database"
	"github.com/pentest-portal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

func newTestServer(t *testing.T) (*Server, *database.MemoryStore) {
	t.Helper()

	store := database.NewMemoryStore()
	srv, err := New(Options{
		Store:         store,
		AdminAPIToken: testToken,
		UploadDir:     t.TempDir(),
	})
	require.NoError(t, err)
	return srv, store
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func newCustomerBody() map[string]interface{} {
	return map[string]interface{}{
		"company_name":           "Acme Corp",
		"contract_type":          "Pro",
		"contract_start_date":    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		"contract_length_months": 12,
		"status":                 "Active",
	}
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/customers", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/customers", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthUnauthenticated(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCustomerCRUD(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/customers", newCustomerBody())
	require.Equal(t, http.StatusCreated, w.Code)

	var created domain.Customer
	decode(t, w, &created)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "Acme Corp", created.CompanyName)
	assert.Equal(t, domain.CustomerActive, created.Status)

	w = doJSON(t, srv, http.MethodGet, "/api/customers/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodPatch, "/api/customers/"+created.ID.String(), map[string]interface{}{
		"status": "Paused",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var updated domain.Customer
	decode(t, w, &updated)
	assert.Equal(t, domain.CustomerPaused, updated.Status)
	assert.Equal(t, "Acme Corp", updated.CompanyName)

	w = doJSON(t, srv, http.MethodGet, "/api/customers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []domain.Customer
	decode(t, w, &list)
	assert.Len(t, list, 1)

	w = doJSON(t, srv, http.MethodDelete, "/api/customers/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/customers/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateCustomerValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	body := newCustomerBody()
	body["contract_type"] = "Platinum"
	w := doJSON(t, srv, http.MethodPost, "/api/customers", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]string
	decode(t, w, &resp)
	assert.Contains(t, resp["error"], "contract_type")
}

func TestUpdateCustomerNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPatch, "/api/customers/"+uuid.NewString(), map[string]interface{}{
		"status": "Paused",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteCustomerTwice(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/customers", newCustomerBody())
	require.Equal(t, http.StatusCreated, w.Code)
	var created domain.Customer
	decode(t, w, &created)

	w = doJSON(t, srv, http.MethodDelete, "/api/customers/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, srv, http.MethodDelete, "/api/customers/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvalidID(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/customers/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScopeValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/customers", newCustomerBody())
	require.Equal(t, http.StatusCreated, w.Code)
	var customer domain.Customer
	decode(t, w, &customer)

	base := "/api/customers/" + customer.ID.String() + "/scopes"

	w = doJSON(t, srv, http.MethodPost, base, map[string]interface{}{
		"type": "ip_range", "value": "10.0.0.0/24", "active": true,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var scope domain.Scope
	decode(t, w, &scope)
	assert.Equal(t, customer.ID, scope.CustomerID)

	w = doJSON(t, srv, http.MethodPost, base, map[string]interface{}{
		"type": "ip_range", "value": "not-a-cidr", "active": true,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv, http.MethodPost, base, map[string]interface{}{
		"type": "domain", "value": "example.com", "active": true,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, srv, http.MethodPost, base, map[string]interface{}{
		"type": "domain", "value": "..bad..", "active": true,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTestConfigReplace(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/customers", newCustomerBody())
	require.Equal(t, http.StatusCreated, w.Code)
	var customer domain.Customer
	decode(t, w, &customer)

	base := "/api/customers/" + customer.ID.String() + "/test-config"

	w = doJSON(t, srv, http.MethodPost, base, map[string]interface{}{
		"test_type": "soft_scan", "frequency": "weekly", "enabled": true,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, srv, http.MethodPost, base, map[string]interface{}{
		"test_type": "full_pen_test", "frequency": "monthly", "enabled": true,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, srv, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var config domain.TestConfiguration
	decode(t, w, &config)
	assert.Equal(t, domain.TestFullPenTest, config.TestType)
	assert.Equal(t, domain.FrequencyMonthly, config.Frequency)
}

func TestTestConfigCronRules(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/customers", newCustomerBody())
	require.Equal(t, http.StatusCreated, w.Code)
	var customer domain.Customer
	decode(t, w, &customer)

	base := "/api/customers/" + customer.ID.String() + "/test-config"

	w = doJSON(t, srv, http.MethodPost, base, map[string]interface{}{
		"test_type": "soft_scan", "frequency": "custom", "enabled": true,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv, http.MethodPost, base, map[string]interface{}{
		"test_type": "soft_scan", "frequency": "weekly", "cron_expression": "0 2 * * 1", "enabled": true,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv, http.MethodPost, base, map[string]interface{}{
		"test_type": "soft_scan", "frequency": "custom", "cron_expression": "0 2 * * 1", "enabled": true,
	})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRunLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/customers", newCustomerBody())
	require.Equal(t, http.StatusCreated, w.Code)
	var customer domain.Customer
	decode(t, w, &customer)

	w = doJSON(t, srv, http.MethodPost, "/api/test-runs", map[string]interface{}{
		"customer_id":  customer.ID,
		"scheduled_at": time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var run domain.TestRun
	decode(t, w, &run)
	assert.Equal(t, domain.RunScheduled, run.Status)
	assert.NotNil(t, run.ScopeIDs)

	started := time.Now().UTC()
	w = doJSON(t, srv, http.MethodPatch, "/api/test-runs/"+run.ID.String(), map[string]interface{}{
		"status": "Running", "started_at": started,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var updated domain.TestRun
	decode(t, w, &updated)
	assert.Equal(t, domain.RunRunning, updated.Status)
	require.NotNil(t, updated.StartedAt)
}

func TestReportStatusIndependentOfSent(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/customers", newCustomerBody())
	require.Equal(t, http.StatusCreated, w.Code)
	var customer domain.Customer
	decode(t, w, &customer)

	w = doJSON(t, srv, http.MethodPost, "/api/reports", map[string]interface{}{
		"run_id":            uuid.New(),
		"customer_id":       customer.ID,
		"severity_critical": 1,
		"severity_high":     2,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var report domain.Report
	decode(t, w, &report)
	assert.Equal(t, domain.ReportNew, report.Status)

	w = doJSON(t, srv, http.MethodPatch, "/api/reports/"+report.ID.String(), map[string]interface{}{
		"status": "Sent",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var updated domain.Report
	decode(t, w, &updated)
	assert.Equal(t, domain.ReportSent, updated.Status)
	assert.False(t, updated.SentToCustomer)
}

func TestNotes(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/customers", newCustomerBody())
	require.Equal(t, http.StatusCreated, w.Code)
	var customer domain.Customer
	decode(t, w, &customer)

	base := "/api/customers/" + customer.ID.String() + "/notes"

	w = doJSON(t, srv, http.MethodPost, base, map[string]interface{}{"text": "kickoff call done"})
	require.Equal(t, http.StatusCreated, w.Code)
	var note domain.CustomerNote
	decode(t, w, &note)

	w = doJSON(t, srv, http.MethodPost, base, map[string]interface{}{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var notes []domain.CustomerNote
	decode(t, w, &notes)
	assert.Len(t, notes, 1)

	w = doJSON(t, srv, http.MethodDelete, "/api/notes/"+note.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestConsentUpload(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/customers", newCustomerBody())
	require.Equal(t, http.StatusCreated, w.Code)
	var customer domain.Customer
	decode(t, w, &customer)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "vaa-signed.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("agreed_at", "2024-02-01T00:00:00Z"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/customers/%s/consents", customer.ID), &buf)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var consent domain.CustomerConsent
	decode(t, rec, &consent)
	assert.Equal(t, "vaa-signed.pdf", consent.FileName)
	assert.Contains(t, consent.DownloadURL, "/files/consents/")
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), consent.AgreedAt)

	// the stored file is served back on its download URL
	req = httptest.NewRequest(http.MethodGet, consent.DownloadURL, nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4 fake", rec.Body.String())

	w = doJSON(t, srv, http.MethodDelete, "/api/consents/"+consent.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, srv, http.MethodDelete, "/api/consents/"+consent.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChildCreateUnknownCustomer(t *testing.T) {
	srv, _ := newTestServer(t)
	missing := uuid.New().String()

	w := doJSON(t, srv, http.MethodPost, "/api/customers/"+missing+"/scopes", map[string]interface{}{
		"type": "domain", "value": "example.com", "active": true,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/customers/"+missing+"/test-config", map[string]interface{}{
		"test_type": "soft_scan", "frequency": "weekly", "enabled": true,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/test-runs", map[string]interface{}{
		"customer_id": uuid.New(),
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/reports", map[string]interface{}{
		"run_id": uuid.New(), "customer_id": uuid.New(),
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/customers/"+missing+"/notes", map[string]interface{}{
		"text": "orphaned",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateScopeRevalidatesMergedRecord(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/customers", newCustomerBody())
	require.Equal(t, http.StatusCreated, w.Code)
	var customer domain.Customer
	decode(t, w, &customer)

	w = doJSON(t, srv, http.MethodPost, "/api/customers/"+customer.ID.String()+"/scopes", map[string]interface{}{
		"type": "ip_range", "value": "10.0.0.0/24", "active": true,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var scope domain.Scope
	decode(t, w, &scope)

	// the new value alone passes the patch-level checks but does not match
	// the stored ip_range type
	w = doJSON(t, srv, http.MethodPatch, "/api/scopes/"+scope.ID.String(), map[string]interface{}{
		"value": "not-a-cidr",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/customers/"+customer.ID.String()+"/scopes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var scopes []domain.Scope
	decode(t, w, &scopes)
	require.Len(t, scopes, 1)
	assert.Equal(t, "10.0.0.0/24", scopes[0].Value)
}

func TestUpdateTestConfigRevalidatesMergedRecord(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/customers", newCustomerBody())
	require.Equal(t, http.StatusCreated, w.Code)
	var customer domain.Customer
	decode(t, w, &customer)

	base := "/api/customers/" + customer.ID.String() + "/test-config"

	w = doJSON(t, srv, http.MethodPost, base, map[string]interface{}{
		"test_type": "soft_scan", "frequency": "weekly", "enabled": true,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// custom frequency without a cron expression has no schedule to run on
	w = doJSON(t, srv, http.MethodPatch, base, map[string]interface{}{
		"frequency": "custom",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv, http.MethodPatch, base, map[string]interface{}{
		"frequency": "custom", "cron_expression": "0 2 * * 1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var updated domain.TestConfiguration
	decode(t, w, &updated)
	assert.Equal(t, domain.FrequencyCustom, updated.Frequency)
	assert.Equal(t, "0 2 * * 1", updated.CronExpression)
}
