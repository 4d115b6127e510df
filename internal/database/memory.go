package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pentest-portal/internal/domain"
)

// MemoryStore is an in-memory Store used in tests and demo deployments. It
// mirrors the SQL backend's semantics: delete of a missing id is an error,
// customer deletion cascades to every child collection, creating a test
// configuration replaces a customer's existing one, and creating a child
// record for a missing customer fails like the SQL foreign keys do.
//
// Construct it explicitly and call Reset for test isolation; it has no
// package-level state.
type MemoryStore struct {
	mu sync.RWMutex

	customers map[uuid.UUID]*domain.Customer
	scopes    map[uuid.UUID]*domain.Scope
	configs   map[uuid.UUID]*domain.TestConfiguration // keyed by customer id
	runs      map[uuid.UUID]*domain.TestRun
	reports   map[uuid.UUID]*domain.Report
	notes     map[uuid.UUID]*domain.CustomerNote
	consents  map[uuid.UUID]*domain.CustomerConsent

	// insertion sequence per record id, used to break created_at ties so
	// list ordering stays deterministic
	seq     map[uuid.UUID]uint64
	nextSeq uint64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.Reset()
	return s
}

// Reset clears all stored records
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.customers = make(map[uuid.UUID]*domain.Customer)
	s.scopes = make(map[uuid.UUID]*domain.Scope)
	s.configs = make(map[uuid.UUID]*domain.TestConfiguration)
	s.runs = make(map[uuid.UUID]*domain.TestRun)
	s.reports = make(map[uuid.UUID]*domain.Report)
	s.notes = make(map[uuid.UUID]*domain.CustomerNote)
	s.consents = make(map[uuid.UUID]*domain.CustomerConsent)
	s.seq = make(map[uuid.UUID]uint64)
	s.nextSeq = 0
}

func (s *MemoryStore) track(id uuid.UUID) {
	s.nextSeq++
	s.seq[id] = s.nextSeq
}

// requireCustomer enforces the customer foreign key for child creates.
// Callers must hold the lock.
func (s *MemoryStore) requireCustomer(id uuid.UUID) error {
	if _, ok := s.customers[id]; !ok {
		return fmt.Errorf("customer %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// newerFirst reports whether record a should sort before record b in a
// created_at DESC listing.
func (s *MemoryStore) newerFirst(aID, bID uuid.UUID, aCreated, bCreated time.Time) bool {
	if !aCreated.Equal(bCreated) {
		return aCreated.After(bCreated)
	}
	return s.seq[aID] > s.seq[bID]
}

// Customer Operations

// CreateCustomer creates a new customer
func (s *MemoryStore) CreateCustomer(_ context.Context, customer *domain.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	customer.ID = uuid.New()
	customer.CreatedAt = now
	customer.UpdatedAt = now

	stored := *customer
	s.customers[customer.ID] = &stored
	s.track(customer.ID)
	return nil
}

// GetCustomer retrieves a customer by ID
func (s *MemoryStore) GetCustomer(_ context.Context, id uuid.UUID) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customers[id]
	if !ok {
		return nil, nil
	}
	copied := *customer
	return &copied, nil
}

// ListCustomers retrieves all customers, newest first
func (s *MemoryStore) ListCustomers(_ context.Context) ([]*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]*domain.Customer, 0, len(s.customers))
	for _, customer := range s.customers {
		copied := *customer
		customers = append(customers, &copied)
	}
	s.sortCustomers(customers)
	return customers, nil
}

func (s *MemoryStore) sortCustomers(customers []*domain.Customer) {
	sort.Slice(customers, func(i, j int) bool {
		return s.newerFirst(customers[i].ID, customers[j].ID, customers[i].CreatedAt, customers[j].CreatedAt)
	})
}

// UpdateCustomer merges the set fields of update into the stored customer
func (s *MemoryStore) UpdateCustomer(_ context.Context, id uuid.UUID, update domain.CustomerUpdate) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customers[id]
	if !ok {
		return nil, fmt.Errorf("customer %s: %w", id, domain.ErrNotFound)
	}

	update.Apply(customer)
	customer.UpdatedAt = time.Now().UTC()

	copied := *customer
	return &copied, nil
}

// DeleteCustomer deletes a customer and cascades to all child collections
func (s *MemoryStore) DeleteCustomer(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[id]; !ok {
		return fmt.Errorf("customer %s: %w", id, domain.ErrNotFound)
	}

	delete(s.customers, id)
	delete(s.configs, id)
	for scopeID, scope := range s.scopes {
		if scope.CustomerID == id {
			delete(s.scopes, scopeID)
		}
	}
	for runID, run := range s.runs {
		if run.CustomerID == id {
			delete(s.runs, runID)
		}
	}
	for reportID, report := range s.reports {
		if report.CustomerID == id {
			delete(s.reports, reportID)
		}
	}
	for noteID, note := range s.notes {
		if note.CustomerID == id {
			delete(s.notes, noteID)
		}
	}
	for consentID, consent := range s.consents {
		if consent.CustomerID == id {
			delete(s.consents, consentID)
		}
	}

	return nil
}

// Scope Operations

// ListScopesByCustomer retrieves a customer's scope items, newest first
func (s *MemoryStore) ListScopesByCustomer(_ context.Context, customerID uuid.UUID) ([]*domain.Scope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scopes := make([]*domain.Scope, 0)
	for _, scope := range s.scopes {
		if scope.CustomerID == customerID {
			copied := *scope
			scopes = append(scopes, &copied)
		}
	}
	sort.Slice(scopes, func(i, j int) bool {
		return s.newerFirst(scopes[i].ID, scopes[j].ID, scopes[i].CreatedAt, scopes[j].CreatedAt)
	})
	return scopes, nil
}

// CreateScope creates a new scope item
func (s *MemoryStore) CreateScope(_ context.Context, scope *domain.Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireCustomer(scope.CustomerID); err != nil {
		return err
	}

	now := time.Now().UTC()
	scope.ID = uuid.New()
	scope.CreatedAt = now
	scope.UpdatedAt = now

	stored := *scope
	s.scopes[scope.ID] = &stored
	s.track(scope.ID)
	return nil
}

// UpdateScope merges the set fields of update into the stored scope
func (s *MemoryStore) UpdateScope(_ context.Context, id uuid.UUID, update domain.ScopeUpdate) (*domain.Scope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scope, ok := s.scopes[id]
	if !ok {
		return nil, fmt.Errorf("scope %s: %w", id, domain.ErrNotFound)
	}

	merged := *scope
	update.Apply(&merged)
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalid, err)
	}
	merged.UpdatedAt = time.Now().UTC()
	s.scopes[id] = &merged

	copied := merged
	return &copied, nil
}

// DeleteScope deletes a scope item
func (s *MemoryStore) DeleteScope(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scopes[id]; !ok {
		return fmt.Errorf("scope %s: %w", id, domain.ErrNotFound)
	}
	delete(s.scopes, id)
	return nil
}

// Test Configuration Operations

// GetTestConfigByCustomer retrieves a customer's test configuration
func (s *MemoryStore) GetTestConfigByCustomer(_ context.Context, customerID uuid.UUID) (*domain.TestConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	config, ok := s.configs[customerID]
	if !ok {
		return nil, nil
	}
	copied := *config
	return &copied, nil
}

// ListEnabledTestConfigs retrieves every enabled test configuration
func (s *MemoryStore) ListEnabledTestConfigs(_ context.Context) ([]*domain.TestConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	configs := make([]*domain.TestConfiguration, 0)
	for _, config := range s.configs {
		if config.Enabled {
			copied := *config
			configs = append(configs, &copied)
		}
	}
	return configs, nil
}

// CreateTestConfig creates a customer's test configuration, replacing any
// existing one
func (s *MemoryStore) CreateTestConfig(_ context.Context, config *domain.TestConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireCustomer(config.CustomerID); err != nil {
		return err
	}

	now := time.Now().UTC()
	config.ID = uuid.New()
	config.CreatedAt = now
	config.UpdatedAt = now

	stored := *config
	s.configs[config.CustomerID] = &stored
	s.track(config.ID)
	return nil
}

// UpdateTestConfig merges the set fields of update into the customer's
// stored configuration
func (s *MemoryStore) UpdateTestConfig(_ context.Context, customerID uuid.UUID, update domain.TestConfigUpdate) (*domain.TestConfiguration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	config, ok := s.configs[customerID]
	if !ok {
		return nil, fmt.Errorf("test configuration for customer %s: %w", customerID, domain.ErrNotFound)
	}

	merged := *config
	update.Apply(&merged)
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalid, err)
	}
	merged.UpdatedAt = time.Now().UTC()
	s.configs[customerID] = &merged

	copied := merged
	return &copied, nil
}

// Test Run Operations

// ListRunsByCustomer retrieves a customer's test runs, newest first
func (s *MemoryStore) ListRunsByCustomer(_ context.Context, customerID uuid.UUID) ([]*domain.TestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*domain.TestRun, 0)
	for _, run := range s.runs {
		if run.CustomerID == customerID {
			copied := *run
			runs = append(runs, &copied)
		}
	}
	s.sortRuns(runs)
	return runs, nil
}

// ListRuns retrieves all test runs, newest first
func (s *MemoryStore) ListRuns(_ context.Context) ([]*domain.TestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*domain.TestRun, 0, len(s.runs))
	for _, run := range s.runs {
		copied := *run
		runs = append(runs, &copied)
	}
	s.sortRuns(runs)
	return runs, nil
}

func (s *MemoryStore) sortRuns(runs []*domain.TestRun) {
	sort.Slice(runs, func(i, j int) bool {
		return s.newerFirst(runs[i].ID, runs[j].ID, runs[i].CreatedAt, runs[j].CreatedAt)
	})
}

// CreateRun creates a new test run
func (s *MemoryStore) CreateRun(_ context.Context, run *domain.TestRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireCustomer(run.CustomerID); err != nil {
		return err
	}

	now := time.Now().UTC()
	run.ID = uuid.New()
	run.CreatedAt = now
	run.UpdatedAt = now
	if run.ScopeIDs == nil {
		run.ScopeIDs = []string{}
	}

	stored := *run
	s.runs[run.ID] = &stored
	s.track(run.ID)
	return nil
}

// UpdateRun merges the set fields of update into the stored run
func (s *MemoryStore) UpdateRun(_ context.Context, id uuid.UUID, update domain.RunUpdate) (*domain.TestRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
	}

	update.Apply(run)
	run.UpdatedAt = time.Now().UTC()

	copied := *run
	return &copied, nil
}

// Report Operations

// ListReportsByCustomer retrieves a customer's reports, newest first
func (s *MemoryStore) ListReportsByCustomer(_ context.Context, customerID uuid.UUID) ([]*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports := make([]*domain.Report, 0)
	for _, report := range s.reports {
		if report.CustomerID == customerID {
			copied := *report
			reports = append(reports, &copied)
		}
	}
	s.sortReports(reports)
	return reports, nil
}

// ListReports retrieves all reports, newest first
func (s *MemoryStore) ListReports(_ context.Context) ([]*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports := make([]*domain.Report, 0, len(s.reports))
	for _, report := range s.reports {
		copied := *report
		reports = append(reports, &copied)
	}
	s.sortReports(reports)
	return reports, nil
}

func (s *MemoryStore) sortReports(reports []*domain.Report) {
	sort.Slice(reports, func(i, j int) bool {
		return s.newerFirst(reports[i].ID, reports[j].ID, reports[i].CreatedAt, reports[j].CreatedAt)
	})
}

// GetReport retrieves a report by ID
func (s *MemoryStore) GetReport(_ context.Context, id uuid.UUID) (*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, nil
	}
	copied := *report
	return &copied, nil
}

// CreateReport creates a new report
func (s *MemoryStore) CreateReport(_ context.Context, report *domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireCustomer(report.CustomerID); err != nil {
		return err
	}

	now := time.Now().UTC()
	report.ID = uuid.New()
	report.CreatedAt = now
	report.UpdatedAt = now

	stored := *report
	s.reports[report.ID] = &stored
	s.track(report.ID)
	return nil
}

// UpdateReport merges the set fields of update into the stored report
func (s *MemoryStore) UpdateReport(_ context.Context, id uuid.UUID, update domain.ReportUpdate) (*domain.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("report %s: %w", id, domain.ErrNotFound)
	}

	update.Apply(report)
	report.UpdatedAt = time.Now().UTC()

	copied := *report
	return &copied, nil
}

// Note Operations

// ListNotesByCustomer retrieves a customer's notes, newest first
func (s *MemoryStore) ListNotesByCustomer(_ context.Context, customerID uuid.UUID) ([]*domain.CustomerNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	notes := make([]*domain.CustomerNote, 0)
	for _, note := range s.notes {
		if note.CustomerID == customerID {
			copied := *note
			notes = append(notes, &copied)
		}
	}
	sort.Slice(notes, func(i, j int) bool {
		return s.newerFirst(notes[i].ID, notes[j].ID, notes[i].CreatedAt, notes[j].CreatedAt)
	})
	return notes, nil
}

// CreateNote creates a new customer note
func (s *MemoryStore) CreateNote(_ context.Context, note *domain.CustomerNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireCustomer(note.CustomerID); err != nil {
		return err
	}

	note.ID = uuid.New()
	note.CreatedAt = time.Now().UTC()

	stored := *note
	s.notes[note.ID] = &stored
	s.track(note.ID)
	return nil
}

// DeleteNote deletes a customer note
func (s *MemoryStore) DeleteNote(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[id]; !ok {
		return fmt.Errorf("note %s: %w", id, domain.ErrNotFound)
	}
	delete(s.notes, id)
	return nil
}

// Consent Operations

// ListConsentsByCustomer retrieves a customer's consent documents, newest first
func (s *MemoryStore) ListConsentsByCustomer(_ context.Context, customerID uuid.UUID) ([]*domain.CustomerConsent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	consents := make([]*domain.CustomerConsent, 0)
	for _, consent := range s.consents {
		if consent.CustomerID == customerID {
			copied := *consent
			consents = append(consents, &copied)
		}
	}
	sort.Slice(consents, func(i, j int) bool {
		return s.newerFirst(consents[i].ID, consents[j].ID, consents[i].CreatedAt, consents[j].CreatedAt)
	})
	return consents, nil
}

// CreateConsent creates a new consent record
func (s *MemoryStore) CreateConsent(_ context.Context, consent *domain.CustomerConsent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireCustomer(consent.CustomerID); err != nil {
		return err
	}

	consent.ID = uuid.New()
	consent.CreatedAt = time.Now().UTC()
	if consent.AgreedAt.IsZero() {
		consent.AgreedAt = consent.CreatedAt
	}

	stored := *consent
	s.consents[consent.ID] = &stored
	s.track(consent.ID)
	return nil
}

// GetConsent retrieves a consent record by ID
func (s *MemoryStore) GetConsent(_ context.Context, id uuid.UUID) (*domain.CustomerConsent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	consent, ok := s.consents[id]
	if !ok {
		return nil, nil
	}
	copied := *consent
	return &copied, nil
}

// DeleteConsent deletes a consent record
func (s *MemoryStore) DeleteConsent(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.consents[id]; !ok {
		return fmt.Errorf("consent %s: %w", id, domain.ErrNotFound)
	}
	delete(s.consents, id)
	return nil
}
