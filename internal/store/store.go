// Package store is a client-side cache over the admin API. Loads fill the
// cache and track a per-operation status so callers can render pending and
// failed states; reads serve snapshots from the cache without touching the
// network; mutations write through the API and fold the result back into
// the cache only on success.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pentest-portal/internal/domain"
	"github.com/pentest-portal/internal/metrics"
	"github.com/pentest-portal/internal/queries"
)

// API is the slice of the admin client the store needs
type API interface {
	ListCustomers(ctx context.Context) ([]*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer *domain.Customer) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, id uuid.UUID, update domain.CustomerUpdate) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID) error

	ListScopes(ctx context.Context, customerID uuid.UUID) ([]*domain.Scope, error)
	CreateScope(ctx context.Context, customerID uuid.UUID, scope *domain.Scope) (*domain.Scope, error)
	UpdateScope(ctx context.Context, id uuid.UUID, update domain.ScopeUpdate) (*domain.Scope, error)
	DeleteScope(ctx context.Context, id uuid.UUID) error

	GetTestConfig(ctx context.Context, customerID uuid.UUID) (*domain.TestConfiguration, error)
	CreateTestConfig(ctx context.Context, customerID uuid.UUID, config *domain.TestConfiguration) (*domain.TestConfiguration, error)
	UpdateTestConfig(ctx context.Context, customerID uuid.UUID, update domain.TestConfigUpdate) (*domain.TestConfiguration, error)

	ListCustomerRuns(ctx context.Context, customerID uuid.UUID) ([]*domain.TestRun, error)
	CreateRun(ctx context.Context, run *domain.TestRun) (*domain.TestRun, error)
	UpdateRun(ctx context.Context, id uuid.UUID, update domain.RunUpdate) (*domain.TestRun, error)

	ListCustomerReports(ctx context.Context, customerID uuid.UUID) ([]*domain.Report, error)
	CreateReport(ctx context.Context, report *domain.Report) (*domain.Report, error)
	UpdateReport(ctx context.Context, id uuid.UUID, update domain.ReportUpdate) (*domain.Report, error)

	ListNotes(ctx context.Context, customerID uuid.UUID) ([]*domain.CustomerNote, error)
	CreateNote(ctx context.Context, customerID uuid.UUID, text string) (*domain.CustomerNote, error)
	DeleteNote(ctx context.Context, id uuid.UUID) error

	ListConsents(ctx context.Context, customerID uuid.UUID) ([]*domain.CustomerConsent, error)
	UploadConsent(ctx context.Context, customerID uuid.UUID, fileName string, content []byte, agreedAt time.Time) (*domain.CustomerConsent, error)
	DeleteConsent(ctx context.Context, id uuid.UUID) error
}

// OpState is the lifecycle of a load operation
type OpState string

const (
	OpPending OpState = "pending"
	OpSuccess OpState = "success"
	OpError   OpState = "error"
)

// OpStatus records the latest outcome of a load operation
type OpStatus struct {
	State OpState
	Err   error
	At    time.Time
}

// customerDetail holds the cached child collections of one customer
type customerDetail struct {
	scopes   []*domain.Scope
	config   *domain.TestConfiguration
	runs     []*domain.TestRun
	reports  []*domain.Report
	notes    []*domain.CustomerNote
	consents []*domain.CustomerConsent
}

// Store caches admin API state for the UI layer
type Store struct {
	api     API
	metrics *metrics.Metrics

	mu        sync.RWMutex
	customers []*domain.Customer
	details   map[uuid.UUID]*customerDetail
	status    map[string]OpStatus
}

// New creates an empty store over the given API. Metrics may be nil.
func New(api API, m *metrics.Metrics) *Store {
	return &Store{
		api:     api,
		metrics: m,
		details: make(map[uuid.UUID]*customerDetail),
		status:  make(map[string]OpStatus),
	}
}

func (s *Store) setPending(key string) {
	s.mu.Lock()
	s.status[key] = OpStatus{State: OpPending, At: time.Now()}
	s.mu.Unlock()
}

func (s *Store) setResult(key string, err error) {
	s.mu.Lock()
	if err != nil {
		s.status[key] = OpStatus{State: OpError, Err: err, At: time.Now()}
	} else {
		s.status[key] = OpStatus{State: OpSuccess, At: time.Now()}
	}
	s.mu.Unlock()
}

// Status reports the last known state of a load operation. The bool is
// false when the operation has never been started.
func (s *Store) Status(key string) (OpStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.status[key]
	return st, ok
}

// StatusCustomers is the status key for LoadCustomers
const StatusCustomers = "customers"

// StatusCustomer returns the status key for LoadCustomer of the given id
func StatusCustomer(id uuid.UUID) string {
	return "customer:" + id.String()
}

func (s *Store) record(action string, err error) {
	if s.metrics != nil {
		s.metrics.RecordStoreAction(action, err)
	}
}

// LoadCustomers refreshes the customer list. On failure the previously
// cached list stays available.
func (s *Store) LoadCustomers(ctx context.Context) error {
	s.setPending(StatusCustomers)

	customers, err := s.api.ListCustomers(ctx)
	s.setResult(StatusCustomers, err)
	s.record("load_customers", err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.customers = customers
	s.mu.Unlock()
	return nil
}

// LoadCustomer refreshes every child collection of one customer
// concurrently. Collections that load merge into the cache even when
// others fail; the returned error joins every failure.
func (s *Store) LoadCustomer(ctx context.Context, id uuid.UUID) error {
	key := StatusCustomer(id)
	s.setPending(key)

	var (
		wg       sync.WaitGroup
		scopes   []*domain.Scope
		config   *domain.TestConfiguration
		runs     []*domain.TestRun
		reports  []*domain.Report
		notes    []*domain.CustomerNote
		consents []*domain.CustomerConsent
		errs     = make([]error, 6)
	)

	wg.Add(6)
	go func() { defer wg.Done(); scopes, errs[0] = s.api.ListScopes(ctx, id) }()
	go func() { defer wg.Done(); config, errs[1] = s.api.GetTestConfig(ctx, id) }()
	go func() { defer wg.Done(); runs, errs[2] = s.api.ListCustomerRuns(ctx, id) }()
	go func() { defer wg.Done(); reports, errs[3] = s.api.ListCustomerReports(ctx, id) }()
	go func() { defer wg.Done(); notes, errs[4] = s.api.ListNotes(ctx, id) }()
	go func() { defer wg.Done(); consents, errs[5] = s.api.ListConsents(ctx, id) }()
	wg.Wait()

	s.mu.Lock()
	detail, ok := s.details[id]
	if !ok {
		detail = &customerDetail{}
		s.details[id] = detail
	}
	if errs[0] == nil {
		detail.scopes = scopes
	}
	if errs[1] == nil {
		detail.config = config
	}
	if errs[2] == nil {
		detail.runs = runs
	}
	if errs[3] == nil {
		detail.reports = reports
	}
	if errs[4] == nil {
		detail.notes = notes
	}
	if errs[5] == nil {
		detail.consents = consents
	}
	s.mu.Unlock()

	err := errors.Join(errs...)
	s.setResult(key, err)
	s.record("load_customer", err)
	return err
}

// clone copies a single entity crossing the cache boundary
func clone[T any](v *T) *T {
	copied := *v
	return &copied
}

// cloneAll copies every element of a cached slice so callers cannot reach
// the cache through the returned pointers
func cloneAll[T any](in []*T) []*T {
	if in == nil {
		return nil
	}
	out := make([]*T, len(in))
	for i, v := range in {
		out[i] = clone(v)
	}
	return out
}

// Customers returns a snapshot of the cached customer list
func (s *Store) Customers() []*domain.Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.customers)
}

// Customer returns a copy of the cached customer with the given id, or nil
func (s *Store) Customer(id uuid.UUID) *domain.Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.customers {
		if c.ID == id {
			return clone(c)
		}
	}
	return nil
}

// Scopes returns the cached scopes of a customer
func (s *Store) Scopes(id uuid.UUID) []*domain.Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.details[id]; ok {
		return cloneAll(d.scopes)
	}
	return nil
}

// TestConfig returns a copy of the cached configuration of a customer, or nil
func (s *Store) TestConfig(id uuid.UUID) *domain.TestConfiguration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.details[id]; ok && d.config != nil {
		return clone(d.config)
	}
	return nil
}

// Runs returns the cached test runs of a customer
func (s *Store) Runs(id uuid.UUID) []*domain.TestRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.details[id]; ok {
		return cloneAll(d.runs)
	}
	return nil
}

// Reports returns the cached reports of a customer
func (s *Store) Reports(id uuid.UUID) []*domain.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.details[id]; ok {
		return cloneAll(d.reports)
	}
	return nil
}

// Notes returns the cached notes of a customer
func (s *Store) Notes(id uuid.UUID) []*domain.CustomerNote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.details[id]; ok {
		return cloneAll(d.notes)
	}
	return nil
}

// Consents returns the cached consents of a customer
func (s *Store) Consents(id uuid.UUID) []*domain.CustomerConsent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.details[id]; ok {
		return cloneAll(d.consents)
	}
	return nil
}

// RunInfo derives the last completed and next scheduled run for a customer
// from the cached runs
func (s *Store) RunInfo(id uuid.UUID) queries.RunInfo {
	return queries.ComputeRunInfo(s.Runs(id))
}

// SeverityTotals sums severity counts across the customer's cached reports
func (s *Store) SeverityTotals(id uuid.UUID) domain.SeveritySummary {
	return queries.AggregateSeverity(s.Reports(id))
}
