package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pentest-portal/internal/domain"
	"github.com/sirupsen/logrus"
)

// Repository provides database operations
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new repository instance
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// isForeignKeyViolation reports whether err is a Postgres foreign-key
// violation, which on the child tables means the referenced customer row
// does not exist.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

// CustomerRepository provides customer-specific database operations
type CustomerRepository struct {
	*Repository
}

// ScopeRepository provides scope-specific database operations
type ScopeRepository struct {
	*Repository
}

// ConfigRepository provides test-configuration database operations
type ConfigRepository struct {
	*Repository
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *sqlx.DB) *CustomerRepository {
	return &CustomerRepository{Repository: NewRepository(db)}
}

// NewScopeRepository creates a new scope repository
func NewScopeRepository(db *sqlx.DB) *ScopeRepository {
	return &ScopeRepository{Repository: NewRepository(db)}
}

// NewConfigRepository creates a new test-configuration repository
func NewConfigRepository(db *sqlx.DB) *ConfigRepository {
	return &ConfigRepository{Repository: NewRepository(db)}
}

// SQLStore aggregates the per-entity repositories into the Store contract
type SQLStore struct {
	*CustomerRepository
	*ScopeRepository
	*ConfigRepository
	*RunRepository
	*ReportRepository
	*NoteRepository
	*ConsentRepository
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore creates a Store backed by PostgreSQL
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{
		CustomerRepository: NewCustomerRepository(db),
		ScopeRepository:    NewScopeRepository(db),
		ConfigRepository:   NewConfigRepository(db),
		RunRepository:      NewRunRepository(db),
		ReportRepository:   NewReportRepository(db),
		NoteRepository:     NewNoteRepository(db),
		ConsentRepository:  NewConsentRepository(db),
	}
}

// Customer Operations

// CreateCustomer creates a new customer
func (r *CustomerRepository) CreateCustomer(ctx context.Context, customer *domain.Customer) error {
	now := time.Now().UTC()
	customer.ID = uuid.New()
	customer.CreatedAt = now
	customer.UpdatedAt = now

	query := `
		INSERT INTO customers (id, company_name, contract_type, contract_start_date, contract_length_months, status, created_at, updated_at)
		VALUES (:id, :company_name, :contract_type, :contract_start_date, :contract_length_months, :status, :created_at, :updated_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, customer)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}

	return nil
}

// GetCustomer retrieves a customer by ID
func (r *CustomerRepository) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	var customer domain.Customer
	query := `SELECT * FROM customers WHERE id = $1`

	err := r.db.GetContext(ctx, &customer, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return &customer, nil
}

// ListCustomers retrieves all customers, most recently created first
func (r *CustomerRepository) ListCustomers(ctx context.Context) ([]*domain.Customer, error) {
	var customers []*domain.Customer
	query := `SELECT * FROM customers ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &customers, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	return customers, nil
}

// UpdateCustomer merges the set fields of update into the stored customer
func (r *CustomerRepository) UpdateCustomer(ctx context.Context, id uuid.UUID, update domain.CustomerUpdate) (*domain.Customer, error) {
	customer, err := r.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, fmt.Errorf("customer %s: %w", id, domain.ErrNotFound)
	}

	update.Apply(customer)
	customer.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE customers
		SET company_name = :company_name, contract_type = :contract_type,
		    contract_start_date = :contract_start_date, contract_length_months = :contract_length_months,
		    status = :status, updated_at = :updated_at
		WHERE id = :id
	`

	result, err := r.db.NamedExecContext(ctx, query, customer)
	if err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil, fmt.Errorf("customer %s: %w", id, domain.ErrNotFound)
	}

	return customer, nil
}

// DeleteCustomer deletes a customer and all of its child records in one
// transaction: scopes, test configuration, runs, reports, notes and consents.
func (r *CustomerRepository) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				logrus.Errorf("Failed to rollback transaction: %v", err)
			}
		}
	}()

	childTables := []string{"scopes", "test_configurations", "test_runs", "reports", "customer_notes", "customer_consents"}
	for _, table := range childTables {
		query := fmt.Sprintf(`DELETE FROM %s WHERE customer_id = $1`, table)
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("customer %s: %w", id, domain.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	committed = true
	return nil
}

// Scope Operations

// ListScopesByCustomer retrieves a customer's scope items
func (r *ScopeRepository) ListScopesByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Scope, error) {
	var scopes []*domain.Scope
	query := `SELECT * FROM scopes WHERE customer_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &scopes, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scopes: %w", err)
	}

	return scopes, nil
}

// CreateScope creates a new scope item
func (r *ScopeRepository) CreateScope(ctx context.Context, scope *domain.Scope) error {
	now := time.Now().UTC()
	scope.ID = uuid.New()
	scope.CreatedAt = now
	scope.UpdatedAt = now

	query := `
		INSERT INTO scopes (id, customer_id, type, value, notes, active, created_at, updated_at)
		VALUES (:id, :customer_id, :type, :value, :notes, :active, :created_at, :updated_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, scope)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("customer %s: %w", scope.CustomerID, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to create scope: %w", err)
	}

	return nil
}

// UpdateScope merges the set fields of update into the stored scope
func (r *ScopeRepository) UpdateScope(ctx context.Context, id uuid.UUID, update domain.ScopeUpdate) (*domain.Scope, error) {
	var scope domain.Scope
	err := r.db.GetContext(ctx, &scope, `SELECT * FROM scopes WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("scope %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get scope: %w", err)
	}

	update.Apply(&scope)
	if err := scope.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalid, err)
	}
	scope.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE scopes
		SET type = :type, value = :value, notes = :notes, active = :active, updated_at = :updated_at
		WHERE id = :id
	`

	result, err := r.db.NamedExecContext(ctx, query, &scope)
	if err != nil {
		return nil, fmt.Errorf("failed to update scope: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil, fmt.Errorf("scope %s: %w", id, domain.ErrNotFound)
	}

	return &scope, nil
}

// DeleteScope deletes a scope item
func (r *ScopeRepository) DeleteScope(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM scopes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scope: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("scope %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// Test Configuration Operations

// GetTestConfigByCustomer retrieves a customer's test configuration
func (r *ConfigRepository) GetTestConfigByCustomer(ctx context.Context, customerID uuid.UUID) (*domain.TestConfiguration, error) {
	var config domain.TestConfiguration
	query := `SELECT * FROM test_configurations WHERE customer_id = $1`

	err := r.db.GetContext(ctx, &config, query, customerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get test configuration: %w", err)
	}

	return &config, nil
}

// ListEnabledTestConfigs retrieves every enabled test configuration
func (r *ConfigRepository) ListEnabledTestConfigs(ctx context.Context) ([]*domain.TestConfiguration, error) {
	var configs []*domain.TestConfiguration
	query := `SELECT * FROM test_configurations WHERE enabled = true ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &configs, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list test configurations: %w", err)
	}

	return configs, nil
}

// CreateTestConfig creates a customer's test configuration, replacing any
// existing one so that at most one configuration exists per customer.
func (r *ConfigRepository) CreateTestConfig(ctx context.Context, config *domain.TestConfiguration) error {
	now := time.Now().UTC()
	config.ID = uuid.New()
	config.CreatedAt = now
	config.UpdatedAt = now

	query := `
		INSERT INTO test_configurations (id, customer_id, test_type, frequency, cron_expression, timezone, window_start, window_end, enabled, created_at, updated_at)
		VALUES (:id, :customer_id, :test_type, :frequency, :cron_expression, :timezone, :window_start, :window_end, :enabled, :created_at, :updated_at)
		ON CONFLICT (customer_id) DO UPDATE SET
			id = EXCLUDED.id,
			test_type = EXCLUDED.test_type,
			frequency = EXCLUDED.frequency,
			cron_expression = EXCLUDED.cron_expression,
			timezone = EXCLUDED.timezone,
			window_start = EXCLUDED.window_start,
			window_end = EXCLUDED.window_end,
			enabled = EXCLUDED.enabled,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.NamedExecContext(ctx, query, config)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("customer %s: %w", config.CustomerID, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to create test configuration: %w", err)
	}

	return nil
}

// UpdateTestConfig merges the set fields of update into the customer's
// stored configuration
func (r *ConfigRepository) UpdateTestConfig(ctx context.Context, customerID uuid.UUID, update domain.TestConfigUpdate) (*domain.TestConfiguration, error) {
	config, err := r.GetTestConfigByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, fmt.Errorf("test configuration for customer %s: %w", customerID, domain.ErrNotFound)
	}

	update.Apply(config)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalid, err)
	}
	config.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE test_configurations
		SET test_type = :test_type, frequency = :frequency, cron_expression = :cron_expression,
		    timezone = :timezone, window_start = :window_start, window_end = :window_end,
		    enabled = :enabled, updated_at = :updated_at
		WHERE customer_id = :customer_id
	`

	result, err := r.db.NamedExecContext(ctx, query, config)
	if err != nil {
		return nil, fmt.Errorf("failed to update test configuration: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil, fmt.Errorf("test configuration for customer %s: %w", customerID, domain.ErrNotFound)
	}

	return config, nil
}
