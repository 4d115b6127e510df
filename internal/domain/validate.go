package domain

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

// ErrNotFound is returned when a requested entity does not exist. Callers
// should test for it with errors.Is rather than matching message text.
var ErrNotFound = errors.New("not found")

// ErrInvalid is returned when a record fails validation, including a merged
// record after a partial update. Callers should test for it with errors.Is.
var ErrInvalid = errors.New("validation failed")

// hostnamePattern is a conservative RFC 1123 hostname check
var hostnamePattern = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)

// timeOfDayPattern matches HH:MM run window boundaries
var timeOfDayPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Validate checks a customer for internal consistency before it is stored
func (c *Customer) Validate() error {
	if strings.TrimSpace(c.CompanyName) == "" {
		return fmt.Errorf("company_name is required")
	}
	switch c.ContractType {
	case ContractBasic, ContractPro, ContractEnterprise:
	default:
		return fmt.Errorf("invalid contract_type %q", c.ContractType)
	}
	if c.ContractLengthMonths <= 0 {
		return fmt.Errorf("contract_length_months must be positive, got %d", c.ContractLengthMonths)
	}
	switch c.Status {
	case CustomerActive, CustomerPaused, CustomerCancelled:
	default:
		return fmt.Errorf("invalid status %q", c.Status)
	}
	return nil
}

// ValidateScopeValue checks that a scope value matches its declared type:
// ip_range must parse as CIDR, domain and subdomain must look like hostnames.
func ValidateScopeValue(scopeType ScopeType, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("scope value is required")
	}

	switch scopeType {
	case ScopeIPRange:
		if _, _, err := net.ParseCIDR(value); err != nil {
			return fmt.Errorf("invalid CIDR range %q: %w", value, err)
		}
	case ScopeDomain, ScopeSubdomain:
		if !hostnamePattern.MatchString(value) {
			return fmt.Errorf("invalid hostname %q", value)
		}
	default:
		return fmt.Errorf("invalid scope type %q", scopeType)
	}

	return nil
}

// Validate checks a scope item before it is stored
func (s *Scope) Validate() error {
	return ValidateScopeValue(s.Type, s.Value)
}

// Validate checks a test configuration. A cron expression is required when
// frequency is custom and rejected otherwise.
func (tc *TestConfiguration) Validate() error {
	switch tc.TestType {
	case TestSoftScan, TestFullPenTest:
	default:
		return fmt.Errorf("invalid test_type %q", tc.TestType)
	}

	switch tc.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		if tc.CronExpression != "" {
			return fmt.Errorf("cron_expression is only allowed with custom frequency")
		}
	case FrequencyCustom:
		if tc.CronExpression == "" {
			return fmt.Errorf("cron_expression is required for custom frequency")
		}
		if _, err := cron.ParseStandard(tc.CronExpression); err != nil {
			return fmt.Errorf("invalid cron_expression %q: %w", tc.CronExpression, err)
		}
	default:
		return fmt.Errorf("invalid frequency %q", tc.Frequency)
	}

	if tc.WindowStart != "" && !timeOfDayPattern.MatchString(tc.WindowStart) {
		return fmt.Errorf("invalid window_start %q", tc.WindowStart)
	}
	if tc.WindowEnd != "" && !timeOfDayPattern.MatchString(tc.WindowEnd) {
		return fmt.Errorf("invalid window_end %q", tc.WindowEnd)
	}

	return nil
}

// CronSpec returns the cron expression the configuration's schedule maps to
func (tc *TestConfiguration) CronSpec() string {
	switch tc.Frequency {
	case FrequencyDaily:
		return "@daily"
	case FrequencyWeekly:
		return "@weekly"
	case FrequencyMonthly:
		return "@monthly"
	default:
		return tc.CronExpression
	}
}

// Validate checks a report's status field
func (r *Report) Validate() error {
	switch r.Status {
	case ReportNew, ReportReviewed, ReportSent:
	default:
		return fmt.Errorf("invalid status %q", r.Status)
	}
	if r.SeverityCritical < 0 || r.SeverityHigh < 0 || r.SeverityMedium < 0 || r.SeverityLow < 0 {
		return fmt.Errorf("severity counts must not be negative")
	}
	return nil
}

// Validate checks a test run's status field
func (tr *TestRun) Validate() error {
	switch tr.Status {
	case RunScheduled, RunRunning, RunCompleted, RunFailed:
	default:
		return fmt.Errorf("invalid status %q", tr.Status)
	}
	return nil
}
