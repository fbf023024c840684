// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/poiesic/docchat/ingestion"
	"github.com/robfig/cron/v3"
)

// DefaultRunTimeout bounds a single triggered run.
const DefaultRunTimeout = 30 * time.Minute

var (
	// ErrIngesterRequired is returned when no ingester is given
	ErrIngesterRequired = errors.New("ingester is required")

	// ErrRegistryRequired is returned when no registry is given
	ErrRegistryRequired = errors.New("registry is required")

	// ErrAlreadyStarted is returned by Start on a running scheduler
	ErrAlreadyStarted = errors.New("scheduler already started")
)

// Ingester is the part of ingestion.Pipeline the scheduler drives.
type Ingester interface {
	Run(ctx context.Context, name string) (*ingestion.SourceResult, error)
	RunAll(ctx context.Context, registry ingestion.Registry) (*ingestion.Summary, error)
}

// Option configures a Scheduler.
type Option func(*Scheduler) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) error {
		s.logger = logger
		return nil
	}
}

// WithRunTimeout bounds each scheduled or watched run.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Scheduler) error {
		if d <= 0 {
			return fmt.Errorf("run timeout must be positive, got %v", d)
		}
		s.timeout = d
		return nil
	}
}

// Scheduler runs ingestion periodically and on demand.
// At most one run is in flight at any time.
type Scheduler struct {
	ingester Ingester
	registry ingestion.Registry
	timeout  time.Duration
	logger   *slog.Logger

	run     sync.Mutex // held for the duration of an ingestion run
	mu      sync.Mutex // guards cron and cancel
	cron    *cron.Cron
	cancel  context.CancelFunc
	entryID cron.EntryID
}

// New creates a scheduler. Call Start to begin periodic runs.
func New(ingester Ingester, registry ingestion.Registry, opts ...Option) (*Scheduler, error) {
	if ingester == nil {
		return nil, ErrIngesterRequired
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}

	s := &Scheduler{
		ingester: ingester,
		registry: registry,
		timeout:  DefaultRunTimeout,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "scheduler")
	return s, nil
}

// ParseSchedule validates a cron expression. Standard five-field
// expressions and descriptors such as "@hourly" or "@every 15m" are accepted.
func ParseSchedule(schedule string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return sched, nil
}

// Start begins running every data source on schedule.
func (s *Scheduler) Start(schedule string) error {
	sched, err := ParseSchedule(schedule)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(context.Background())
	logger := cronLoggerAdapter{logger: s.logger}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger)))
	s.entryID = c.Schedule(sched, cron.FuncJob(func() { s.scheduledRun(runCtx) }))
	c.Start()
	s.cron = c
	s.cancel = cancel

	s.logger.Info("ingestion scheduler started", "schedule", schedule, "next", s.next())
	return nil
}

// Stop halts the schedule, cancels a running job and waits for it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	s.logger.Info("ingestion scheduler stopped")
}

// Next returns the time of the next scheduled run, or the zero time if
// the scheduler is not started.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next()
}

func (s *Scheduler) next() time.Time {
	if s.cron == nil {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// RunAll ingests every data source now, waiting for any run in progress.
func (s *Scheduler) RunAll(ctx context.Context) (*ingestion.Summary, error) {
	s.run.Lock()
	defer s.run.Unlock()

	summary, err := s.ingester.RunAll(ctx, s.registry)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// RunSource ingests one data source now, waiting for any run in progress.
func (s *Scheduler) RunSource(ctx context.Context, name string) (*ingestion.SourceResult, error) {
	s.run.Lock()
	defer s.run.Unlock()
	return s.ingester.Run(ctx, name)
}

func (s *Scheduler) scheduledRun(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	s.logger.Info("starting scheduled ingestion")
	start := time.Now()
	summary, err := s.RunAll(ctx)
	if err != nil {
		s.logger.Error("scheduled ingestion failed", "err", err)
		return
	}
	s.logger.Info("scheduled ingestion completed",
		"succeeded", summary.Succeeded, "skipped", summary.Skipped,
		"failed", summary.Failed, "duration", time.Since(start))
}

// triggerSource is the Watcher callback. Directories the registry does
// not list are ignored.
func (s *Scheduler) triggerSource(parent context.Context, name string) {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	registered, err := s.registered(ctx, name)
	if err != nil {
		s.logger.Error("cannot list data sources", "source", name, "err", err)
		return
	}
	if !registered {
		s.logger.Debug("ignoring change outside registered data sources", "source", name)
		return
	}

	result, err := s.RunSource(ctx, name)
	if err != nil {
		s.logger.Error("watched ingestion failed", "source", name, "err", err)
		return
	}
	s.logger.Info("watched ingestion completed", "source", name,
		"documents", result.Documents, "chunks", result.Chunks, "duration", result.Duration)
}

func (s *Scheduler) registered(ctx context.Context, name string) (bool, error) {
	names, err := s.registry.Sources(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(names, name), nil
}
