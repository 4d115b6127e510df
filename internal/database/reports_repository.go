package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pentest-portal/internal/domain"
)

// RunRepository provides test-run database operations
type RunRepository struct {
	*Repository
}

// ReportRepository provides report database operations
type ReportRepository struct {
	*Repository
}

// NoteRepository provides customer-note database operations
type NoteRepository struct {
	*Repository
}

// ConsentRepository provides customer-consent database operations
type ConsentRepository struct {
	*Repository
}

// NewRunRepository creates a new test-run repository
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{Repository: NewRepository(db)}
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{Repository: NewRepository(db)}
}

// NewNoteRepository creates a new customer-note repository
func NewNoteRepository(db *sqlx.DB) *NoteRepository {
	return &NoteRepository{Repository: NewRepository(db)}
}

// NewConsentRepository creates a new customer-consent repository
func NewConsentRepository(db *sqlx.DB) *ConsentRepository {
	return &ConsentRepository{Repository: NewRepository(db)}
}

// Test Run Operations

// ListRunsByCustomer retrieves a customer's test runs, newest first
func (r *RunRepository) ListRunsByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.TestRun, error) {
	var runs []*domain.TestRun
	query := `SELECT * FROM test_runs WHERE customer_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &runs, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return runs, nil
}

// ListRuns retrieves all test runs, newest first
func (r *RunRepository) ListRuns(ctx context.Context) ([]*domain.TestRun, error) {
	var runs []*domain.TestRun
	query := `SELECT * FROM test_runs ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &runs, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return runs, nil
}

// CreateRun creates a new test run
func (r *RunRepository) CreateRun(ctx context.Context, run *domain.TestRun) error {
	now := time.Now().UTC()
	run.ID = uuid.New()
	run.CreatedAt = now
	run.UpdatedAt = now
	if run.ScopeIDs == nil {
		run.ScopeIDs = []string{}
	}

	query := `
		INSERT INTO test_runs (id, customer_id, scope_ids, status, scheduled_at, started_at, ended_at, output_ref, report_id, error, created_at, updated_at)
		VALUES (:id, :customer_id, :scope_ids, :status, :scheduled_at, :started_at, :ended_at, :output_ref, :report_id, :error, :created_at, :updated_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, run)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("customer %s: %w", run.CustomerID, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// UpdateRun merges the set fields of update into the stored run
func (r *RunRepository) UpdateRun(ctx context.Context, id uuid.UUID, update domain.RunUpdate) (*domain.TestRun, error) {
	var run domain.TestRun
	err := r.db.GetContext(ctx, &run, `SELECT * FROM test_runs WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	update.Apply(&run)
	run.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE test_runs
		SET status = :status, started_at = :started_at, ended_at = :ended_at,
		    output_ref = :output_ref, report_id = :report_id, error = :error, updated_at = :updated_at
		WHERE id = :id
	`

	result, err := r.db.NamedExecContext(ctx, query, &run)
	if err != nil {
		return nil, fmt.Errorf("failed to update run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil, fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
	}

	return &run, nil
}

// Report Operations

// ListReportsByCustomer retrieves a customer's reports, newest first
func (r *ReportRepository) ListReportsByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Report, error) {
	var reports []*domain.Report
	query := `SELECT * FROM reports WHERE customer_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &reports, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	return reports, nil
}

// ListReports retrieves all reports, newest first
func (r *ReportRepository) ListReports(ctx context.Context) ([]*domain.Report, error) {
	var reports []*domain.Report
	query := `SELECT * FROM reports ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &reports, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	return reports, nil
}

// GetReport retrieves a report by ID
func (r *ReportRepository) GetReport(ctx context.Context, id uuid.UUID) (*domain.Report, error) {
	var report domain.Report
	query := `SELECT * FROM reports WHERE id = $1`

	err := r.db.GetContext(ctx, &report, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return &report, nil
}

// CreateReport creates a new report
func (r *ReportRepository) CreateReport(ctx context.Context, report *domain.Report) error {
	now := time.Now().UTC()
	report.ID = uuid.New()
	report.CreatedAt = now
	report.UpdatedAt = now

	query := `
		INSERT INTO reports (id, run_id, customer_id, severity_critical, severity_high, severity_medium, severity_low, report_file, raw_data_file, sent_to_customer, status, created_at, updated_at)
		VALUES (:id, :run_id, :customer_id, :severity_critical, :severity_high, :severity_medium, :severity_low, :report_file, :raw_data_file, :sent_to_customer, :status, :created_at, :updated_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, report)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("customer %s: %w", report.CustomerID, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to create report: %w", err)
	}

	return nil
}

// UpdateReport merges the set fields of update into the stored report.
// Status and SentToCustomer are independent fields; setting one never
// implies the other.
func (r *ReportRepository) UpdateReport(ctx context.Context, id uuid.UUID, update domain.ReportUpdate) (*domain.Report, error) {
	report, err := r.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, fmt.Errorf("report %s: %w", id, domain.ErrNotFound)
	}

	update.Apply(report)
	report.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE reports
		SET severity_critical = :severity_critical, severity_high = :severity_high,
		    severity_medium = :severity_medium, severity_low = :severity_low,
		    report_file = :report_file, raw_data_file = :raw_data_file,
		    sent_to_customer = :sent_to_customer, status = :status, updated_at = :updated_at
		WHERE id = :id
	`

	result, err := r.db.NamedExecContext(ctx, query, report)
	if err != nil {
		return nil, fmt.Errorf("failed to update report: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil, fmt.Errorf("report %s: %w", id, domain.ErrNotFound)
	}

	return report, nil
}

// Note Operations

// ListNotesByCustomer retrieves a customer's notes, newest first
func (r *NoteRepository) ListNotesByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.CustomerNote, error) {
	var notes []*domain.CustomerNote
	query := `SELECT * FROM customer_notes WHERE customer_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &notes, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	return notes, nil
}

// CreateNote creates a new customer note
func (r *NoteRepository) CreateNote(ctx context.Context, note *domain.CustomerNote) error {
	note.ID = uuid.New()
	note.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO customer_notes (id, customer_id, text, created_at)
		VALUES (:id, :customer_id, :text, :created_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, note)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("customer %s: %w", note.CustomerID, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to create note: %w", err)
	}

	return nil
}

// DeleteNote deletes a customer note
func (r *NoteRepository) DeleteNote(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM customer_notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("note %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// Consent Operations

// ListConsentsByCustomer retrieves a customer's consent documents, newest first
func (r *ConsentRepository) ListConsentsByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.CustomerConsent, error) {
	var consents []*domain.CustomerConsent
	query := `SELECT * FROM customer_consents WHERE customer_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &consents, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list consents: %w", err)
	}

	return consents, nil
}

// CreateConsent creates a new consent record
func (r *ConsentRepository) CreateConsent(ctx context.Context, consent *domain.CustomerConsent) error {
	consent.ID = uuid.New()
	consent.CreatedAt = time.Now().UTC()
	if consent.AgreedAt.IsZero() {
		consent.AgreedAt = consent.CreatedAt
	}

	query := `
		INSERT INTO customer_consents (id, customer_id, file_name, file_path, download_url, agreed_at, created_at)
		VALUES (:id, :customer_id, :file_name, :file_path, :download_url, :agreed_at, :created_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, consent)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("customer %s: %w", consent.CustomerID, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to create consent: %w", err)
	}

	return nil
}

// GetConsent retrieves a consent record by ID
func (r *ConsentRepository) GetConsent(ctx context.Context, id uuid.UUID) (*domain.CustomerConsent, error) {
	var consent domain.CustomerConsent
	query := `SELECT * FROM customer_consents WHERE id = $1`

	err := r.db.GetContext(ctx, &consent, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get consent: %w", err)
	}

	return &consent, nil
}

// DeleteConsent deletes a consent record
func (r *ConsentRepository) DeleteConsent(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM customer_consents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete consent: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("consent %s: %w", id, domain.ErrNotFound)
	}

	return nil
}
