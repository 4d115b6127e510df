package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Partial updates. A nil field means "leave unchanged"; the backends merge
// the set fields into the stored record and bump UpdatedAt.

// CustomerUpdate carries the updatable fields of a customer
type CustomerUpdate struct {
	CompanyName          *string         `json:"company_name,omitempty"`
	ContractType         *ContractType   `json:"contract_type,omitempty"`
	ContractStartDate    *time.Time      `json:"contract_start_date,omitempty"`
	ContractLengthMonths *int            `json:"contract_length_months,omitempty"`
	Status               *CustomerStatus `json:"status,omitempty"`
}

// Validate checks the set fields without requiring the stored record
func (u CustomerUpdate) Validate() error {
	probe := Customer{
		CompanyName:          "placeholder",
		ContractType:         ContractBasic,
		ContractLengthMonths: 1,
		Status:               CustomerActive,
	}
	u.Apply(&probe)
	return probe.Validate()
}

// Apply merges the set fields into the customer
func (u CustomerUpdate) Apply(c *Customer) {
	if u.CompanyName != nil {
		c.CompanyName = *u.CompanyName
	}
	if u.ContractType != nil {
		c.ContractType = *u.ContractType
	}
	if u.ContractStartDate != nil {
		c.ContractStartDate = *u.ContractStartDate
	}
	if u.ContractLengthMonths != nil {
		c.ContractLengthMonths = *u.ContractLengthMonths
	}
	if u.Status != nil {
		c.Status = *u.Status
	}
}

// ScopeUpdate carries the updatable fields of a scope item
type ScopeUpdate struct {
	Type   *ScopeType `json:"type,omitempty"`
	Value  *string    `json:"value,omitempty"`
	Notes  *string    `json:"notes,omitempty"`
	Active *bool      `json:"active,omitempty"`
}

// Validate checks the set fields. The type/value pair is cross-checked here
// when both are present; the stores re-validate the merged record, so a new
// value is always checked against the effective type.
func (u ScopeUpdate) Validate() error {
	if u.Type != nil {
		switch *u.Type {
		case ScopeIPRange, ScopeDomain, ScopeSubdomain:
		default:
			return fmt.Errorf("invalid scope type %q", *u.Type)
		}
	}
	if u.Value != nil {
		if strings.TrimSpace(*u.Value) == "" {
			return fmt.Errorf("scope value is required")
		}
		if u.Type != nil {
			return ValidateScopeValue(*u.Type, *u.Value)
		}
	}
	return nil
}

// Apply merges the set fields into the scope
func (u ScopeUpdate) Apply(s *Scope) {
	if u.Type != nil {
		s.Type = *u.Type
	}
	if u.Value != nil {
		s.Value = *u.Value
	}
	if u.Notes != nil {
		s.Notes = *u.Notes
	}
	if u.Active != nil {
		s.Active = *u.Active
	}
}

// TestConfigUpdate carries the updatable fields of a test configuration
type TestConfigUpdate struct {
	TestType       *TestType  `json:"test_type,omitempty"`
	Frequency      *Frequency `json:"frequency,omitempty"`
	CronExpression *string    `json:"cron_expression,omitempty"`
	Timezone       *string    `json:"timezone,omitempty"`
	WindowStart    *string    `json:"window_start,omitempty"`
	WindowEnd      *string    `json:"window_end,omitempty"`
	Enabled        *bool      `json:"enabled,omitempty"`
}

// Validate checks the set fields. The frequency/cron coupling depends on the
// stored record, so the stores enforce it by re-validating the merged
// configuration.
func (u TestConfigUpdate) Validate() error {
	if u.TestType != nil {
		switch *u.TestType {
		case TestSoftScan, TestFullPenTest:
		default:
			return fmt.Errorf("invalid test_type %q", *u.TestType)
		}
	}
	if u.Frequency != nil {
		switch *u.Frequency {
		case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyCustom:
		default:
			return fmt.Errorf("invalid frequency %q", *u.Frequency)
		}
	}
	if u.CronExpression != nil && *u.CronExpression != "" {
		if _, err := cron.ParseStandard(*u.CronExpression); err != nil {
			return fmt.Errorf("invalid cron_expression %q: %w", *u.CronExpression, err)
		}
	}
	if u.WindowStart != nil && *u.WindowStart != "" && !timeOfDayPattern.MatchString(*u.WindowStart) {
		return fmt.Errorf("invalid window_start %q", *u.WindowStart)
	}
	if u.WindowEnd != nil && *u.WindowEnd != "" && !timeOfDayPattern.MatchString(*u.WindowEnd) {
		return fmt.Errorf("invalid window_end %q", *u.WindowEnd)
	}
	return nil
}

// Apply merges the set fields into the configuration
func (u TestConfigUpdate) Apply(tc *TestConfiguration) {
	if u.TestType != nil {
		tc.TestType = *u.TestType
	}
	if u.Frequency != nil {
		tc.Frequency = *u.Frequency
	}
	if u.CronExpression != nil {
		tc.CronExpression = *u.CronExpression
	}
	if u.Timezone != nil {
		tc.Timezone = *u.Timezone
	}
	if u.WindowStart != nil {
		tc.WindowStart = *u.WindowStart
	}
	if u.WindowEnd != nil {
		tc.WindowEnd = *u.WindowEnd
	}
	if u.Enabled != nil {
		tc.Enabled = *u.Enabled
	}
}

// RunUpdate carries the updatable fields of a test run
type RunUpdate struct {
	Status    *RunStatus `json:"status,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	OutputRef *string    `json:"output_ref,omitempty"`
	ReportID  *uuid.UUID `json:"report_id,omitempty"`
	Error     *string    `json:"error,omitempty"`
}

// Validate checks the set fields
func (u RunUpdate) Validate() error {
	if u.Status != nil {
		probe := TestRun{Status: *u.Status}
		return probe.Validate()
	}
	return nil
}

// Apply merges the set fields into the run
func (u RunUpdate) Apply(tr *TestRun) {
	if u.Status != nil {
		tr.Status = *u.Status
	}
	if u.StartedAt != nil {
		tr.StartedAt = u.StartedAt
	}
	if u.EndedAt != nil {
		tr.EndedAt = u.EndedAt
	}
	if u.OutputRef != nil {
		tr.OutputRef = *u.OutputRef
	}
	if u.ReportID != nil {
		tr.ReportID = u.ReportID
	}
	if u.Error != nil {
		tr.Error = *u.Error
	}
}

// ReportUpdate carries the updatable fields of a report. Setting Status to
// Sent does not imply SentToCustomer; callers flip both when they mean both.
type ReportUpdate struct {
	SeverityCritical *int          `json:"severity_critical,omitempty"`
	SeverityHigh     *int          `json:"severity_high,omitempty"`
	SeverityMedium   *int          `json:"severity_medium,omitempty"`
	SeverityLow      *int          `json:"severity_low,omitempty"`
	ReportFile       *string       `json:"report_file,omitempty"`
	RawDataFile      *string       `json:"raw_data_file,omitempty"`
	SentToCustomer   *bool         `json:"sent_to_customer,omitempty"`
	Status           *ReportStatus `json:"status,omitempty"`
}

// Validate checks the set fields
func (u ReportUpdate) Validate() error {
	probe := Report{Status: ReportNew}
	u.Apply(&probe)
	return probe.Validate()
}

// Apply merges the set fields into the report
func (u ReportUpdate) Apply(r *Report) {
	if u.SeverityCritical != nil {
		r.SeverityCritical = *u.SeverityCritical
	}
	if u.SeverityHigh != nil {
		r.SeverityHigh = *u.SeverityHigh
	}
	if u.SeverityMedium != nil {
		r.SeverityMedium = *u.SeverityMedium
	}
	if u.SeverityLow != nil {
		r.SeverityLow = *u.SeverityLow
	}
	if u.ReportFile != nil {
		r.ReportFile = *u.ReportFile
	}
	if u.RawDataFile != nil {
		r.RawDataFile = *u.RawDataFile
	}
	if u.SentToCustomer != nil {
		r.SentToCustomer = *u.SentToCustomer
	}
	if u.Status != nil {
		r.Status = *u.Status
	}
}
