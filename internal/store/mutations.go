package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pentest-portal/internal/domain"
)

// Mutations write through the API and fold the confirmed entity back into
// the cache. A failed mutation leaves the cache exactly as it was. The cache
// keeps its own copy of each entity; the caller's result never aliases it.

// CreateCustomer creates a customer and prepends it to the cached list
func (s *Store) CreateCustomer(ctx context.Context, customer *domain.Customer) (*domain.Customer, error) {
	created, err := s.api.CreateCustomer(ctx, customer)
	s.record("create_customer", err)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.customers = append([]*domain.Customer{clone(created)}, s.customers...)
	s.mu.Unlock()
	return created, nil
}

// UpdateCustomer applies a partial update and swaps the cached entry
func (s *Store) UpdateCustomer(ctx context.Context, id uuid.UUID, update domain.CustomerUpdate) (*domain.Customer, error) {
	updated, err := s.api.UpdateCustomer(ctx, id, update)
	s.record("update_customer", err)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	for i, c := range s.customers {
		if c.ID == id {
			s.customers[i] = clone(updated)
			break
		}
	}
	s.mu.Unlock()
	return updated, nil
}

// DeleteCustomer deletes a customer and drops it, with its cached child
// collections, from the cache
func (s *Store) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	err := s.api.DeleteCustomer(ctx, id)
	s.record("delete_customer", err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	for i, c := range s.customers {
		if c.ID == id {
			s.customers = append(s.customers[:i], s.customers[i+1:]...)
			break
		}
	}
	delete(s.details, id)
	delete(s.status, StatusCustomer(id))
	s.mu.Unlock()
	return nil
}

// CreateScope adds a scope to a customer
func (s *Store) CreateScope(ctx context.Context, customerID uuid.UUID, scope *domain.Scope) (*domain.Scope, error) {
	created, err := s.api.CreateScope(ctx, customerID, scope)
	s.record("create_scope", err)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if d, ok := s.details[customerID]; ok {
		d.scopes = append([]*domain.Scope{clone(created)}, d.scopes...)
	}
	s.mu.Unlock()
	return created, nil
}

// UpdateScope applies a partial update to a scope
func (s *Store) UpdateScope(ctx context.Context, customerID, id uuid.UUID, update domain.ScopeUpdate) (*domain.Scope, error) {
	updated, err := s.api.UpdateScope(ctx, id, update)
	s.record("update_scope", err)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if d, ok := s.details[customerID]; ok {
		for i, sc := range d.scopes {
			if sc.ID == id {
				d.scopes[i] = clone(updated)
				break
			}
		}
	}
	s.mu.Unlock()
	return updated, nil
}

// DeleteScope removes a scope from a customer
func (s *Store) DeleteScope(ctx context.Context, customerID, id uuid.UUID) error {
	err := s.api.DeleteScope(ctx, id)
	s.record("delete_scope", err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if d, ok := s.details[customerID]; ok {
		for i, sc := range d.scopes {
			if sc.ID == id {
				d.scopes = append(d.scopes[:i], d.scopes[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()
	return nil
}

// SaveTestConfig creates or replaces the customer's configuration
func (s *Store) SaveTestConfig(ctx context.Context, customerID uuid.UUID, config *domain.TestConfiguration) (*domain.TestConfiguration, error) {
	saved, err := s.api.CreateTestConfig(ctx, customerID, config)
	s.record("save_test_config", err)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if d, ok := s.details[customerID]; ok {
		d.config = clone(saved)
	}
	s.mu.Unlock()
	return saved, nil
}

// UpdateTestConfig applies a partial update to the customer's configuration
func (s *Store) UpdateTestConfig(ctx context.Context, customerID uuid.UUID, update domain.TestConfigUpdate) (*domain.TestConfiguration, error) {
	updated, err := s.api.UpdateTestConfig(ctx, customerID, update)
	s.record("update_test_config", err)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if d, ok := s.details[customerID]; ok {
		d.config = clone(updated)
	}
	s.mu.Unlock()
	return updated, nil
}

// CreateRun schedules a new test run for a customer
func (s *Store) CreateRun(ctx context.Context, run *domain.TestRun) (*domain.TestRun, error) {
	created, err := s.api.CreateRun(ctx, run)
	s.record("create_run", err)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if d, ok := s.details[created.CustomerID]; ok {
		d.runs = append([]*domain.TestRun{clone(created)}, d.runs...)
	}
	s.mu.Unlock()
	return created, nil
}

// UpdateRun applies a partial update to a run
func (s *Store) UpdateRun(ctx context.Context, customerID, id uuid.UUID, update domain.RunUpdate) (*domain.TestRun, error) {
	updated, err := s.api.UpdateRun(ctx, id, update)
	s.record("update_run", err)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if d, ok := s.details[customerID]; ok {
		for i, r := range d.runs {
			if r.ID == id {
				d.runs[i] = clone(updated)
				break
			}
		}
	}
	s.mu.Unlock()
	return updated, nil
}

// CreateReport records a report for a run
func (s *Store) CreateReport(ctx context.Context, report *domain.Report) (*domain.Report, error) {
	created, err := s.api.CreateReport(ctx, report)
	s.record("create_report", err)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if d, ok := s.details[created.CustomerID]; ok {
		d.reports = append([]*domain.Report{clone(created)}, d.reports...)
	}
	s.mu.Unlock()
	return created, nil
}

// UpdateReport applies a partial update to a report
func (s *Store) UpdateReport(ctx context.Context, customerID, id uuid.UUID, update domain.ReportUpdate) (*domain.Report, error) {
	updated, err := s.api.UpdateReport(ctx, id, update)
	s.record("update_report", err)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if d, ok := s.details[customerID]; ok {
		for i, r := range d.reports {
			if r.ID == id {
				d.reports[i] = clone(updated)
				break
			}
		}
	}
	s.mu.Unlock()
	return updated, nil
}

// CreateNote attaches a note to a customer
func (s *Store) CreateNote(ctx context.Context, customerID uuid.UUID, text string) (*domain.CustomerNote, error) {
	created, err := s.api.CreateNote(ctx, customerID, text)
	s.record("create_note", err)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if d, ok := s.details[customerID]; ok {
		d.notes = append([]*domain.CustomerNote{clone(created)}, d.notes...)
	}
	s.mu.Unlock()
	return created, nil
}

// DeleteNote removes a note
func (s *Store) DeleteNote(ctx context.Context, customerID, id uuid.UUID) error {
	err := s.api.DeleteNote(ctx, id)
	s.record("delete_note", err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if d, ok := s.details[customerID]; ok {
		for i, n := range d.notes {
			if n.ID == id {
				d.notes = append(d.notes[:i], d.notes[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()
	return nil
}

// UploadConsent uploads a signed authorization document for a customer
func (s *Store) UploadConsent(ctx context.Context, customerID uuid.UUID, fileName string, content []byte, agreedAt time.Time) (*domain.CustomerConsent, error) {
	created, err := s.api.UploadConsent(ctx, customerID, fileName, content, agreedAt)
	s.record("upload_consent", err)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if d, ok := s.details[customerID]; ok {
		d.consents = append([]*domain.CustomerConsent{clone(created)}, d.consents...)
	}
	s.mu.Unlock()
	return created, nil
}

// DeleteConsent removes a consent record
func (s *Store) DeleteConsent(ctx context.Context, customerID, id uuid.UUID) error {
	err := s.api.DeleteConsent(ctx, id)
	s.record("delete_consent", err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if d, ok := s.details[customerID]; ok {
		for i, cn := range d.consents {
			if cn.ID == id {
				d.consents = append(d.consents[:i], d.consents[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()
	return nil
}
