// Package client is the typed remote access layer over the admin REST API.
// Every call takes a context, hits exactly one endpoint and decodes the
// response into the domain types; there is no caching or retrying here.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pentest-portal/internal/config"
	"github.com/pentest-portal/internal/domain"
)

// Client talks to the admin API
type Client struct {
	httpClient *resty.Client
	baseURL    string
}

// New creates a client from config
func New(cfg *config.ClientConfig) *Client {
	httpClient := resty.New()
	httpClient.SetTimeout(cfg.Timeout)
	httpClient.SetHeaders(map[string]string{
		"Accept":       "application/json",
		"Content-Type": "application/json",
		"User-Agent":   "Pentest-Portal/1.0",
	})
	if cfg.APIToken != "" {
		httpClient.SetAuthToken(cfg.APIToken)
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    cfg.BaseURL,
	}
}

// NewWithBaseURL creates a client with defaults, useful for tests
func NewWithBaseURL(baseURL, token string) *Client {
	return New(&config.ClientConfig{
		BaseURL:  baseURL,
		APIToken: token,
		Timeout:  30 * time.Second,
	})
}

// apiError decodes the server's {"error": string} body; anything that does
// not parse falls back to a generic message carrying the status code.
func apiError(resp *resty.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error != "" {
		return fmt.Errorf("%s", body.Error)
	}
	return fmt.Errorf("request failed with status %d", resp.StatusCode())
}

// get decodes a single entity; a 404 means absent, not an error
func get[T any](ctx context.Context, c *Client, path string) (*T, error) {
	var out T
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&out).
		Get(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", path, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError(resp)
	}
	return &out, nil
}

func list[T any](ctx context.Context, c *Client, path string) ([]*T, error) {
	var out []*T
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&out).
		Get(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", path, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError(resp)
	}
	return out, nil
}

func create[T any](ctx context.Context, c *Client, path string, body interface{}) (*T, error) {
	var out T
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("failed to post %s: %w", path, err)
	}
	if resp.StatusCode() != http.StatusCreated {
		return nil, apiError(resp)
	}
	return &out, nil
}

func patch[T any](ctx context.Context, c *Client, path string, body interface{}) (*T, error) {
	var out T
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Patch(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("failed to patch %s: %w", path, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError(resp)
	}
	return &out, nil
}

func (c *Client) delete(ctx context.Context, path string) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		Delete(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	if resp.StatusCode() != http.StatusNoContent {
		return apiError(resp)
	}
	return nil
}

// Customers

func (c *Client) ListCustomers(ctx context.Context) ([]*domain.Customer, error) {
	return list[domain.Customer](ctx, c, "/api/customers")
}

func (c *Client) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	return get[domain.Customer](ctx, c, "/api/customers/"+id.String())
}

func (c *Client) CreateCustomer(ctx context.Context, customer *domain.Customer) (*domain.Customer, error) {
	return create[domain.Customer](ctx, c, "/api/customers", customer)
}

func (c *Client) UpdateCustomer(ctx context.Context, id uuid.UUID, update domain.CustomerUpdate) (*domain.Customer, error) {
	return patch[domain.Customer](ctx, c, "/api/customers/"+id.String(), update)
}

func (c *Client) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	return c.delete(ctx, "/api/customers/"+id.String())
}

// Scopes

func (c *Client) ListScopes(ctx context.Context, customerID uuid.UUID) ([]*domain.Scope, error) {
	return list[domain.Scope](ctx, c, "/api/customers/"+customerID.String()+"/scopes")
}

func (c *Client) CreateScope(ctx context.Context, customerID uuid.UUID, scope *domain.Scope) (*domain.Scope, error) {
	return create[domain.Scope](ctx, c, "/api/customers/"+customerID.String()+"/scopes", scope)
}

func (c *Client) UpdateScope(ctx context.Context, id uuid.UUID, update domain.ScopeUpdate) (*domain.Scope, error) {
	return patch[domain.Scope](ctx, c, "/api/scopes/"+id.String(), update)
}

func (c *Client) DeleteScope(ctx context.Context, id uuid.UUID) error {
	return c.delete(ctx, "/api/scopes/"+id.String())
}

// Test configurations

func (c *Client) GetTestConfig(ctx context.Context, customerID uuid.UUID) (*domain.TestConfiguration, error) {
	return get[domain.TestConfiguration](ctx, c, "/api/customers/"+customerID.String()+"/test-config")
}

func (c *Client) CreateTestConfig(ctx context.Context, customerID uuid.UUID, config *domain.TestConfiguration) (*domain.TestConfiguration, error) {
	return create[domain.TestConfiguration](ctx, c, "/api/customers/"+customerID.String()+"/test-config", config)
}

func (c *Client) UpdateTestConfig(ctx context.Context, customerID uuid.UUID, update domain.TestConfigUpdate) (*domain.TestConfiguration, error) {
	return patch[domain.TestConfiguration](ctx, c, "/api/customers/"+customerID.String()+"/test-config", update)
}

// Test runs

func (c *Client) ListCustomerRuns(ctx context.Context, customerID uuid.UUID) ([]*domain.TestRun, error) {
	return list[domain.TestRun](ctx, c, "/api/customers/"+customerID.String()+"/test-runs")
}

func (c *Client) ListRuns(ctx context.Context) ([]*domain.TestRun, error) {
	return list[domain.TestRun](ctx, c, "/api/test-runs")
}

func (c *Client) CreateRun(ctx context.Context, run *domain.TestRun) (*domain.TestRun, error) {
	return create[domain.TestRun](ctx, c, "/api/test-runs", run)
}

func (c *Client) UpdateRun(ctx context.Context, id uuid.UUID, update domain.RunUpdate) (*domain.TestRun, error) {
	return patch[domain.TestRun](ctx, c, "/api/test-runs/"+id.String(), update)
}

// Reports

func (c *Client) ListCustomerReports(ctx context.Context, customerID uuid.UUID) ([]*domain.Report, error) {
	return list[domain.Report](ctx, c, "/api/customers/"+customerID.String()+"/reports")
}

func (c *Client) ListReports(ctx context.Context) ([]*domain.Report, error) {
	return list[domain.Report](ctx, c, "/api/reports")
}

func (c *Client) GetReport(ctx context.Context, id uuid.UUID) (*domain.Report, error) {
	return get[domain.Report](ctx, c, "/api/reports/"+id.String())
}

func (c *Client) CreateReport(ctx context.Context, report *domain.Report) (*domain.Report, error) {
	return create[domain.Report](ctx, c, "/api/reports", report)
}

func (c *Client) UpdateReport(ctx context.Context, id uuid.UUID, update domain.ReportUpdate) (*domain.Report, error) {
	return patch[domain.Report](ctx, c, "/api/reports/"+id.String(), update)
}

// Notes

func (c *Client) ListNotes(ctx context.Context, customerID uuid.UUID) ([]*domain.CustomerNote, error) {
	return list[domain.CustomerNote](ctx, c, "/api/customers/"+customerID.String()+"/notes")
}

func (c *Client) CreateNote(ctx context.Context, customerID uuid.UUID, text string) (*domain.CustomerNote, error) {
	body := map[string]string{"text": text}
	return create[domain.CustomerNote](ctx, c, "/api/customers/"+customerID.String()+"/notes", body)
}

func (c *Client) DeleteNote(ctx context.Context, id uuid.UUID) error {
	return c.delete(ctx, "/api/notes/"+id.String())
}

// Consents

func (c *Client) ListConsents(ctx context.Context, customerID uuid.UUID) ([]*domain.CustomerConsent, error) {
	return list[domain.CustomerConsent](ctx, c, "/api/customers/"+customerID.String()+"/consents")
}

// UploadConsent sends the file as a multipart form along with the signing time
func (c *Client) UploadConsent(ctx context.Context, customerID uuid.UUID, fileName string, content []byte, agreedAt time.Time) (*domain.CustomerConsent, error) {
	var out domain.CustomerConsent
	req := c.httpClient.R().
		SetContext(ctx).
		SetFileReader("file", fileName, bytes.NewReader(content)).
		SetResult(&out)
	if !agreedAt.IsZero() {
		req.SetFormData(map[string]string{"agreed_at": agreedAt.UTC().Format(time.RFC3339)})
	}
	resp, err := req.Post(c.baseURL + "/api/customers/" + customerID.String() + "/consents")
	if err != nil {
		return nil, fmt.Errorf("failed to upload consent: %w", err)
	}
	if resp.StatusCode() != http.StatusCreated {
		return nil, apiError(resp)
	}
	return &out, nil
}

func (c *Client) DeleteConsent(ctx context.Context, id uuid.UUID) error {
	return c.delete(ctx, "/api/consents/"+id.String())
}
