// Package scheduler locks open remittance cycles once their period has
// passed, so collections stop accruing at the cutoff even when no operator
// intervenes.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/clearledger-systems/clearledger-stack/remit/internal/metrics"
	"github.com/clearledger-systems/clearledger-stack/remit/internal/models"
)

// CycleLocker is the slice of the service the scheduler needs.
type CycleLocker interface {
	LockCycle(ctx context.Context, cycleID string) (*models.RemittanceCycle, error)
}

// CycleFinder lists open cycles whose period ended before a point in time.
type CycleFinder interface {
	ListOpenCyclesPastCutoff(ctx context.Context, cutoff time.Time) ([]*models.RemittanceCycle, error)
}

// Config configures the cutoff scheduler.
type Config struct {
	CheckInterval time.Duration
}

// Scheduler periodically sweeps for cycles past cutoff and locks them.
type Scheduler struct {
	mu            sync.Mutex
	locker        CycleLocker
	finder        CycleFinder
	checkInterval time.Duration
	running       bool
	stopChan      chan struct{}
	wg            sync.WaitGroup

	now func() time.Time
}

// NewScheduler creates a new cutoff scheduler.
func NewScheduler(locker CycleLocker, finder CycleFinder, cfg Config) *Scheduler {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 1 * time.Minute
	}
	return &Scheduler{
		locker:        locker,
		finder:        finder,
		checkInterval: cfg.CheckInterval,
		now:           time.Now,
	}
}

// Start begins the sweep loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	log.Printf("cutoff scheduler starting (check interval: %s)", s.checkInterval)

	s.wg.Add(1)
	go s.run(ctx)

	return nil
}

// Stop gracefully stops the sweep loop.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler not running")
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	log.Printf("cutoff scheduler stopped")
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	s.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep locks every open cycle whose period has ended. Losing a transition
// race to an operator lock is fine; the sweep just moves on.
func (s *Scheduler) Sweep(ctx context.Context) {
	cycles, err := s.finder.ListOpenCyclesPastCutoff(ctx, s.now().UTC())
	if err != nil {
		log.Printf("failed to list cycles past cutoff: %v", err)
		return
	}

	for _, cycle := range cycles {
		if _, err := s.locker.LockCycle(ctx, cycle.ID); err != nil {
			log.Printf("failed to lock cycle %s at cutoff: %v", cycle.ID, err)
			continue
		}
		metrics.CutoffLocks.Inc()
		log.Printf("locked cycle %s at cutoff (period ended %s)", cycle.ID, cycle.PeriodEnd.Format(time.RFC3339))
	}
}
