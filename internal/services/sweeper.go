package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ticket-marketplace/internal/clock"
	"ticket-marketplace/internal/status"
	"ticket-marketplace/internal/store"
	"ticket-marketplace/monitoring"
)

// Sweeper walks approved events whose date has passed and marks them
// completed. It runs on a timer and can be triggered manually; overlapping
// runs are rejected rather than queued.
type Sweeper struct {
	store    store.Store
	clock    clock.Clock
	interval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	lastRun *SweepResult

	sweepMu sync.Mutex
}

type SweptEvent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Date string `json:"date"`
}

type SweepResult struct {
	UpdatedCount int          `json:"updated_count"`
	Events       []SweptEvent `json:"events"`
	RanAt        time.Time    `json:"ran_at"`
}

type SweeperStatus struct {
	Running  bool         `json:"running"`
	Interval string       `json:"interval"`
	LastRun  *SweepResult `json:"last_run,omitempty"`
}

func NewSweeper(st store.Store, clk clock.Clock, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{store: st, clock: clk, interval: interval}
}

// Start launches the periodic loop. The first sweep runs immediately.
// Starting an already running sweeper is a no-op.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(ctx, s.done)
	slog.Info("event sweeper started", "interval", s.interval.String())
}

// Stop halts the loop and waits for an in-flight sweep to finish. Stopping a
// stopped sweeper is a no-op.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	slog.Info("event sweeper stopped")
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	result, err := s.RunOnce(ctx)
	if err != nil {
		if err != status.ErrSweepInProgress {
			slog.Error("event sweep failed", "err", err)
		}
		return
	}
	if result.UpdatedCount > 0 {
		slog.Info("events completed", "count", result.UpdatedCount)
	}
}

// RunOnce performs a single sweep. Only one sweep executes at a time; a call
// that arrives while another is in flight returns ErrSweepInProgress.
func (s *Sweeper) RunOnce(ctx context.Context) (*SweepResult, error) {
	if !s.sweepMu.TryLock() {
		monitoring.TrackSweep("rejected", 0)
		return nil, status.ErrSweepInProgress
	}
	defer s.sweepMu.Unlock()

	now := s.clock.Now()
	candidates, err := s.store.CompletionCandidates(ctx, now.Format("2006-01-02"))
	if err != nil {
		monitoring.TrackSweep("error", 0)
		return nil, err
	}

	result := &SweepResult{RanAt: now, Events: []SweptEvent{}}
	var ids []string
	for _, ev := range candidates {
		if !ev.ShouldComplete(now) {
			continue
		}
		ids = append(ids, ev.ID)
		result.Events = append(result.Events, SweptEvent{ID: ev.ID, Name: ev.Name, Date: ev.EventDate})
	}

	if len(ids) > 0 {
		n, err := s.store.MarkEventsCompleted(ctx, ids)
		if err != nil {
			monitoring.TrackSweep("error", 0)
			return nil, err
		}
		result.UpdatedCount = n
	}

	monitoring.TrackSweep("ok", result.UpdatedCount)

	s.mu.Lock()
	s.lastRun = result
	s.mu.Unlock()
	return result, nil
}

func (s *Sweeper) Status() SweeperStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SweeperStatus{Running: s.running, Interval: s.interval.String(), LastRun: s.lastRun}
}
