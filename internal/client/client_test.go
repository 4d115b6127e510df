package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pentest-portal/internal/database"
	"github.com/pentest-portal/internal/domain"
	"github.com/pentest-portal/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "client-test-token"

func newTestClient(t *testing.T) (*Client, *database.MemoryStore) {
	t.Helper()

	store := database.NewMemoryStore()
	srv, err := server.New(server.Options{
		Store:         store,
		AdminAPIToken: testToken,
		UploadDir:     t.TempDir(),
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return NewWithBaseURL(ts.URL, testToken), store
}

func testCustomer() *domain.Customer {
	return &domain.Customer{
		CompanyName:          "Globex",
		ContractType:         domain.ContractEnterprise,
		ContractStartDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ContractLengthMonths: 24,
		Status:               domain.CustomerActive,
	}
}

func TestCustomerRoundTrip(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	created, err := c.CreateCustomer(ctx, testCustomer())
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.NotEqual(t, uuid.Nil, created.ID)

	got, err := c.GetCustomer(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Globex", got.CompanyName)

	status := domain.CustomerPaused
	updated, err := c.UpdateCustomer(ctx, created.ID, domain.CustomerUpdate{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, domain.CustomerPaused, updated.Status)
	assert.Equal(t, "Globex", updated.CompanyName)

	customers, err := c.ListCustomers(ctx)
	require.NoError(t, err)
	assert.Len(t, customers, 1)

	require.NoError(t, c.DeleteCustomer(ctx, created.ID))

	got, err = c.GetCustomer(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetAbsentReturnsNil(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	customer, err := c.GetCustomer(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, customer)

	config, err := c.GetTestConfig(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, config)

	report, err := c.GetReport(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestServerErrorMessageSurfaces(t *testing.T) {
	c, _ := newTestClient(t)

	bad := testCustomer()
	bad.ContractType = "Platinum"
	created, err := c.CreateCustomer(context.Background(), bad)
	require.Error(t, err)
	assert.Nil(t, created)
	assert.Contains(t, err.Error(), "contract_type")
}

func TestFallbackErrorMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	t.Cleanup(ts.Close)

	c := NewWithBaseURL(ts.URL, "")
	_, err := c.ListCustomers(context.Background())
	require.Error(t, err)
	assert.Equal(t, "request failed with status 502", err.Error())
}

func TestDeleteAbsentFails(t *testing.T) {
	c, _ := newTestClient(t)

	err := c.DeleteCustomer(context.Background(), uuid.New())
	require.Error(t, err)
}

func TestScopesAndConfig(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	customer, err := c.CreateCustomer(ctx, testCustomer())
	require.NoError(t, err)

	scope, err := c.CreateScope(ctx, customer.ID, &domain.Scope{
		Type:   domain.ScopeIPRange,
		Value:  "192.168.0.0/16",
		Active: true,
	})
	require.NoError(t, err)
	assert.Equal(t, customer.ID, scope.CustomerID)

	_, err = c.CreateScope(ctx, customer.ID, &domain.Scope{
		Type:  domain.ScopeDomain,
		Value: "not a hostname",
	})
	require.Error(t, err)

	config, err := c.CreateTestConfig(ctx, customer.ID, &domain.TestConfiguration{
		TestType:  domain.TestSoftScan,
		Frequency: domain.FrequencyWeekly,
		Enabled:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.FrequencyWeekly, config.Frequency)

	enabled := false
	updatedConfig, err := c.UpdateTestConfig(ctx, customer.ID, domain.TestConfigUpdate{Enabled: &enabled})
	require.NoError(t, err)
	assert.False(t, updatedConfig.Enabled)

	require.NoError(t, c.DeleteScope(ctx, scope.ID))
	scopes, err := c.ListScopes(ctx, customer.ID)
	require.NoError(t, err)
	assert.Empty(t, scopes)
}

func TestRunsAndReports(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	customer, err := c.CreateCustomer(ctx, testCustomer())
	require.NoError(t, err)

	run, err := c.CreateRun(ctx, &domain.TestRun{
		CustomerID:  customer.ID,
		Status:      domain.RunScheduled,
		ScheduledAt: time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	report, err := c.CreateReport(ctx, &domain.Report{
		RunID:          run.ID,
		CustomerID:     customer.ID,
		SeverityHigh:   3,
		SeverityMedium: 1,
		Status:         domain.ReportNew,
	})
	require.NoError(t, err)

	status := domain.RunCompleted
	ended := time.Now().UTC()
	updatedRun, err := c.UpdateRun(ctx, run.ID, domain.RunUpdate{
		Status:   &status,
		EndedAt:  &ended,
		ReportID: &report.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, updatedRun.Status)
	require.NotNil(t, updatedRun.ReportID)
	assert.Equal(t, report.ID, *updatedRun.ReportID)

	reports, err := c.ListCustomerReports(ctx, customer.ID)
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestConsentUploadAndDownloadURL(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()

	customer, err := c.CreateCustomer(ctx, testCustomer())
	require.NoError(t, err)

	agreed := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	consent, err := c.UploadConsent(ctx, customer.ID, "vaa.pdf", []byte("signed"), agreed)
	require.NoError(t, err)
	assert.Equal(t, "vaa.pdf", consent.FileName)
	assert.Contains(t, consent.DownloadURL, "/files/consents/")
	assert.Equal(t, agreed, consent.AgreedAt.UTC())

	stored, err := store.ListConsentsByCustomer(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	require.NoError(t, c.DeleteConsent(ctx, consent.ID))
}

func TestNoteRoundTrip(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	customer, err := c.CreateCustomer(ctx, testCustomer())
	require.NoError(t, err)

	note, err := c.CreateNote(ctx, customer.ID, "retest requested")
	require.NoError(t, err)
	assert.Equal(t, "retest requested", note.Text)

	notes, err := c.ListNotes(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)

	require.NoError(t, c.DeleteNote(ctx, note.ID))
}
