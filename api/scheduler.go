/*
scheduler.go - Periodic status sweep

PURPOSE:
  Statuses are computed on demand, never stored. Deadlines still pass while
  nobody is looking, so the sweep re-evaluates every tenant on an interval
  and reports what needs attention.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Evaluates tenants concurrently, at most Concurrency at a time
  - A failing tenant is logged and counted; the sweep carries on
  - Updates the tenants-by-tier gauge
  - Logs tenants whose three-strikes filing deadline is close

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Concurrency:   Parallel evaluations (default: 8)
  - WarnWithin:    Days before a filing deadline to warn (default: 7)

USAGE:
  sweeper := NewStatusSweeper(svc, logger)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - tenancy/service.go: Status
  - tenancy/metrics.go: SetTierCounts
*/
package api

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/warp/tenancy-engine/compliance"
	"github.com/warp/tenancy-engine/generic"
	"github.com/warp/tenancy-engine/tenancy"
)

// StatusSweeper periodically evaluates every tenant.
type StatusSweeper struct {
	Service       *tenancy.Service
	Logger        *slog.Logger
	CheckInterval time.Duration
	Concurrency   int
	WarnWithin    int
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// UrgentTenant has a filing deadline within the warning window.
type UrgentTenant struct {
	TenantID      generic.TenantID
	Route         compliance.RouteKind
	Deadline      generic.TimePoint
	DaysRemaining int
}

// SweepResult summarises one sweep.
type SweepResult struct {
	At        time.Time
	Evaluated int
	Failed    int
	ByTier    map[compliance.Tier]int
	Urgent    []UrgentTenant
}

// NewStatusSweeper creates a new sweeper.
func NewStatusSweeper(svc *tenancy.Service, logger *slog.Logger) *StatusSweeper {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &StatusSweeper{
		Service:       svc,
		Logger:        logger,
		CheckInterval: 1 * time.Hour,
		Concurrency:   8,
		WarnWithin:    7,
		Enabled:       true,
		stop:          make(chan struct{}),
	}
}

// Start begins the sweeper.
func (s *StatusSweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled || s.CheckInterval <= 0 {
		s.Logger.Info("status sweep disabled")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)

	go s.run()

	s.Logger.Info("status sweep started", "interval", s.CheckInterval.String())
}

// Stop stops the sweeper and waits for a running sweep to finish.
func (s *StatusSweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.Logger.Info("status sweep stopped")
	}
}

func (s *StatusSweeper) run() {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-s.stop
		cancel()
	}()

	// Run immediately on start
	s.sweep(ctx)

	for {
		select {
		case <-s.ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *StatusSweeper) sweep(ctx context.Context) {
	if _, err := s.RunNow(ctx); err != nil && ctx.Err() == nil {
		s.Logger.Error("status sweep failed", "error", err)
	}
}

// RunNow evaluates every tenant once. It fails only when tenants cannot be
// listed or ctx is cancelled.
func (s *StatusSweeper) RunNow(ctx context.Context) (SweepResult, error) {
	now := s.Service.Now()
	result := SweepResult{At: now, ByTier: make(map[compliance.Tier]int)}

	tenants, err := s.Service.ListTenants(ctx)
	if err != nil {
		return result, err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	limit := s.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, t := range tenants {
		id := t.ID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			status, err := s.Service.Status(gctx, id, &now)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				s.Logger.WarnContext(gctx, "status evaluation failed", "tenant_id", id, "error", err)
				return nil
			}
			result.Evaluated++
			result.ByTier[status.SeverityTier]++
			for _, r := range status.TerminationRoutes {
				if r.Deadline == nil || r.DaysRemaining > s.WarnWithin {
					continue
				}
				result.Urgent = append(result.Urgent, UrgentTenant{
					TenantID:      id,
					Route:         r.Kind,
					Deadline:      *r.Deadline,
					DaysRemaining: r.DaysRemaining,
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	sort.Slice(result.Urgent, func(i, j int) bool {
		return result.Urgent[i].TenantID < result.Urgent[j].TenantID
	})

	s.Service.Metrics().SetTierCounts(result.ByTier)
	for _, u := range result.Urgent {
		s.Logger.WarnContext(ctx, "tribunal filing deadline approaching",
			"tenant_id", u.TenantID,
			"route", u.Route,
			"deadline", u.Deadline.String(),
			"days_remaining", u.DaysRemaining)
	}
	s.Logger.InfoContext(ctx, "status sweep completed",
		"evaluated", result.Evaluated, "failed", result.Failed, "urgent", len(result.Urgent))
	return result, nil
}
