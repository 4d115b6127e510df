package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/pentest-portal/internal/domain"
)

// Store is the backend contract the admin API serves from. Get operations
// return (nil, nil) when the entity does not exist; update and delete
// operations return domain.ErrNotFound instead, including delete of an
// already-deleted id.
type Store interface {
	// Customers. DeleteCustomer cascades to every child collection.
	CreateCustomer(ctx context.Context, customer *domain.Customer) error
	GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]*domain.Customer, error)
	UpdateCustomer(ctx context.Context, id uuid.UUID, update domain.CustomerUpdate) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID) error

	// Scopes
	ListScopesByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Scope, error)
	CreateScope(ctx context.Context, scope *domain.Scope) error
	UpdateScope(ctx context.Context, id uuid.UUID, update domain.ScopeUpdate) (*domain.Scope, error)
	DeleteScope(ctx context.Context, id uuid.UUID) error

	// Test configurations. CreateTestConfig replaces a customer's existing
	// configuration, keeping at most one per customer.
	GetTestConfigByCustomer(ctx context.Context, customerID uuid.UUID) (*domain.TestConfiguration, error)
	ListEnabledTestConfigs(ctx context.Context) ([]*domain.TestConfiguration, error)
	CreateTestConfig(ctx context.Context, config *domain.TestConfiguration) error
	UpdateTestConfig(ctx context.Context, customerID uuid.UUID, update domain.TestConfigUpdate) (*domain.TestConfiguration, error)

	// Test runs
	ListRunsByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.TestRun, error)
	ListRuns(ctx context.Context) ([]*domain.TestRun, error)
	CreateRun(ctx context.Context, run *domain.TestRun) error
	UpdateRun(ctx context.Context, id uuid.UUID, update domain.RunUpdate) (*domain.TestRun, error)

	// Reports
	ListReportsByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Report, error)
	ListReports(ctx context.Context) ([]*domain.Report, error)
	GetReport(ctx context.Context, id uuid.UUID) (*domain.Report, error)
	CreateReport(ctx context.Context, report *domain.Report) error
	UpdateReport(ctx context.Context, id uuid.UUID, update domain.ReportUpdate) (*domain.Report, error)

	// Notes
	ListNotesByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.CustomerNote, error)
	CreateNote(ctx context.Context, note *domain.CustomerNote) error
	DeleteNote(ctx context.Context, id uuid.UUID) error

	// Consents
	ListConsentsByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.CustomerConsent, error)
	CreateConsent(ctx context.Context, consent *domain.CustomerConsent) error
	GetConsent(ctx context.Context, id uuid.UUID) (*domain.CustomerConsent, error)
	DeleteConsent(ctx context.Context, id uuid.UUID) error
}
