// Package scheduler turns enabled test configurations into scheduled test
// runs. Each configuration gets a cron entry; when it fires, a run is
// recorded against the customer's currently active scopes.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pentest-portal/internal/database"
	"github.com/pentest-portal/internal/domain"
	"github.com/pentest-portal/internal/metrics"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler drives recurring test runs from customer configurations
type Scheduler struct {
	store   database.Store
	metrics *metrics.Metrics
	cron    *cron.Cron

	mu      sync.Mutex
	entries map[uuid.UUID]cron.EntryID
}

// New creates a scheduler in the given timezone. Metrics may be nil.
func New(store database.Store, m *metrics.Metrics, timezone string) (*Scheduler, error) {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", timezone, err)
	}

	return &Scheduler{
		store:   store,
		metrics: m,
		cron:    cron.New(cron.WithLocation(location)),
		entries: make(map[uuid.UUID]cron.EntryID),
	}, nil
}

// Start registers every enabled configuration and begins firing
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		return err
	}
	s.cron.Start()
	logrus.Info("Scheduler started")
	return nil
}

// Stop halts the cron loop and waits for in-flight jobs
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	logrus.Info("Scheduler stopped")
}

// Reload re-reads enabled configurations and replaces the cron entries.
// Call it after configurations change.
func (s *Scheduler) Reload(ctx context.Context) error {
	configs, err := s.store.ListEnabledTestConfigs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load test configurations: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entryID := range s.entries {
		s.cron.Remove(entryID)
	}
	s.entries = make(map[uuid.UUID]cron.EntryID)

	for _, config := range configs {
		spec := config.CronSpec()
		if config.Timezone != "" {
			spec = "CRON_TZ=" + config.Timezone + " " + spec
		}

		entryID, err := s.cron.AddFunc(spec, func() {
			s.fire(config)
		})
		if err != nil {
			logrus.Errorf("Failed to schedule configuration %s: %v", config.ID, err)
			continue
		}
		s.entries[config.CustomerID] = entryID
	}

	logrus.Infof("Scheduler loaded %d configurations", len(s.entries))
	return nil
}

// Entries reports how many configurations are currently scheduled
func (s *Scheduler) Entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Scheduler) fire(config *domain.TestConfiguration) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.ScheduleRun(ctx, config, time.Now().UTC()); err != nil {
		logrus.Errorf("Failed to schedule run for customer %s: %v", config.CustomerID, err)
	}
}

// ScheduleRun records a pending run for the configuration's customer over
// its currently active scopes
func (s *Scheduler) ScheduleRun(ctx context.Context, config *domain.TestConfiguration, at time.Time) (*domain.TestRun, error) {
	scopes, err := s.store.ListScopesByCustomer(ctx, config.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scopes: %w", err)
	}

	scopeIDs := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		if scope.Active {
			scopeIDs = append(scopeIDs, scope.ID.String())
		}
	}

	run := &domain.TestRun{
		CustomerID:  config.CustomerID,
		ScopeIDs:    scopeIDs,
		Status:      domain.RunScheduled,
		ScheduledAt: at,
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordRunScheduled(string(config.TestType))
	}
	logrus.WithFields(logrus.Fields{
		"customer_id": config.CustomerID,
		"test_type":   config.TestType,
		"scopes":      len(scopeIDs),
	}).Info("Scheduled test run")

	return run, nil
}
