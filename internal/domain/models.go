package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CustomerStatus is the lifecycle state of a customer engagement
type CustomerStatus string

const (
	CustomerActive    CustomerStatus = "Active"
	CustomerPaused    CustomerStatus = "Paused"
	CustomerCancelled CustomerStatus = "Cancelled"
)

// ContractType is the service tier a customer is contracted for
type ContractType string

const (
	ContractBasic      ContractType = "Basic"
	ContractPro        ContractType = "Pro"
	ContractEnterprise ContractType = "Enterprise"
)

// Customer represents a contracted customer of the pentest service
type Customer struct {
	ID                   uuid.UUID      `db:"id" json:"id"`
	CompanyName          string         `db:"company_name" json:"company_name"`
	ContractType         ContractType   `db:"contract_type" json:"contract_type"`
	ContractStartDate    time.Time      `db:"contract_start_date" json:"contract_start_date"`
	ContractLengthMonths int            `db:"contract_length_months" json:"contract_length_months"`
	Status               CustomerStatus `db:"status" json:"status"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
}

// ScopeType classifies what kind of target a scope item is
type ScopeType string

const (
	ScopeIPRange   ScopeType = "ip_range"
	ScopeDomain    ScopeType = "domain"
	ScopeSubdomain ScopeType = "subdomain"
)

// Scope represents a single authorized target under a customer's engagement
type Scope struct {
	ID         uuid.UUID `db:"id" json:"id"`
	CustomerID uuid.UUID `db:"customer_id" json:"customer_id"`
	Type       ScopeType `db:"type" json:"type"`
	Value      string    `db:"value" json:"value"`
	Notes      string    `db:"notes" json:"notes"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// TestType is the kind of automated test run against a customer's scopes
type TestType string

const (
	TestSoftScan    TestType = "soft_scan"
	TestFullPenTest TestType = "full_pen_test"
)

// Frequency is how often a customer's scheduled tests run
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom"
)

// TestConfiguration is the schedule and test-type policy for a customer.
// At most one configuration exists per customer; creating a new one
// replaces any prior configuration.
type TestConfiguration struct {
	ID             uuid.UUID `db:"id" json:"id"`
	CustomerID     uuid.UUID `db:"customer_id" json:"customer_id"`
	TestType       TestType  `db:"test_type" json:"test_type"`
	Frequency      Frequency `db:"frequency" json:"frequency"`
	CronExpression string    `db:"cron_expression" json:"cron_expression,omitempty"`
	Timezone       string    `db:"timezone" json:"timezone"`
	WindowStart    string    `db:"window_start" json:"window_start"`
	WindowEnd      string    `db:"window_end" json:"window_end"`
	Enabled        bool      `db:"enabled" json:"enabled"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// RunStatus is the lifecycle state of a test run
type RunStatus string

const (
	RunScheduled RunStatus = "Scheduled"
	RunRunning   RunStatus = "Running"
	RunCompleted RunStatus = "Completed"
	RunFailed    RunStatus = "Failed"
)

// TestRun represents one execution (past or pending) of a customer's tests
type TestRun struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	CustomerID  uuid.UUID      `db:"customer_id" json:"customer_id"`
	ScopeIDs    pq.StringArray `db:"scope_ids" json:"scope_ids"`
	Status      RunStatus      `db:"status" json:"status"`
	ScheduledAt time.Time      `db:"scheduled_at" json:"scheduled_at"`
	StartedAt   *time.Time     `db:"started_at" json:"started_at"`
	EndedAt     *time.Time     `db:"ended_at" json:"ended_at"`
	OutputRef   string         `db:"output_ref" json:"output_ref"`
	ReportID    *uuid.UUID     `db:"report_id" json:"report_id"`
	Error       string         `db:"error" json:"error"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// ReportStatus is the review state of a report
type ReportStatus string

const (
	ReportNew      ReportStatus = "New"
	ReportReviewed ReportStatus = "Reviewed"
	ReportSent     ReportStatus = "Sent"
)

// Report represents the rendered output of a completed test run
type Report struct {
	ID               uuid.UUID    `db:"id" json:"id"`
	RunID            uuid.UUID    `db:"run_id" json:"run_id"`
	CustomerID       uuid.UUID    `db:"customer_id" json:"customer_id"`
	SeverityCritical int          `db:"severity_critical" json:"severity_critical"`
	SeverityHigh     int          `db:"severity_high" json:"severity_high"`
	SeverityMedium   int          `db:"severity_medium" json:"severity_medium"`
	SeverityLow      int          `db:"severity_low" json:"severity_low"`
	ReportFile       string       `db:"report_file" json:"report_file"`
	RawDataFile      string       `db:"raw_data_file" json:"raw_data_file"`
	SentToCustomer   bool         `db:"sent_to_customer" json:"sent_to_customer"`
	Status           ReportStatus `db:"status" json:"status"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at" json:"updated_at"`
}

// CustomerNote is a free-text timestamped entry attached to a customer
type CustomerNote struct {
	ID         uuid.UUID `db:"id" json:"id"`
	CustomerID uuid.UUID `db:"customer_id" json:"customer_id"`
	Text       string    `db:"text" json:"text"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// CustomerConsent is a signed authorization document (VAA) attached to a
// customer. AgreedAt is when the customer signed, distinct from when the
// file was uploaded.
type CustomerConsent struct {
	ID          uuid.UUID `db:"id" json:"id"`
	CustomerID  uuid.UUID `db:"customer_id" json:"customer_id"`
	FileName    string    `db:"file_name" json:"file_name"`
	FilePath    string    `db:"file_path" json:"-"`
	DownloadURL string    `db:"download_url" json:"download_url"`
	AgreedAt    time.Time `db:"agreed_at" json:"agreed_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// SeveritySummary holds finding counts per severity bucket
type SeveritySummary struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// SeveritySummary returns the report's finding counts per bucket
func (r *Report) SeveritySummary() SeveritySummary {
	return SeveritySummary{
		Critical: r.SeverityCritical,
		High:     r.SeverityHigh,
		Medium:   r.SeverityMedium,
		Low:      r.SeverityLow,
	}
}
