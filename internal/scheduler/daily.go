package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/havenlist/tracker-backend/internal/tracker"
)

// Job is the run entry point the scheduler drives. It holds no schedule
// state of its own; the tracker satisfies it.
type Job interface {
	Run(ctx context.Context) (*tracker.RunResult, error)
}

type DailyConfig struct {
	Hour       int           // UTC hour of day to fire, e.g. 2 for 02:00
	RunTimeout time.Duration // hard ceiling on one run
	OnComplete func(res *tracker.RunResult)
}

type DailyScheduler struct {
	job Job
	cfg DailyConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

func NewDailyScheduler(job Job, cfg DailyConfig) *DailyScheduler {
	if cfg.Hour < 0 || cfg.Hour > 23 {
		cfg.Hour = 2
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 4 * time.Hour
	}
	return &DailyScheduler{job: job, cfg: cfg}
}

func (s *DailyScheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		fmt.Println("[SCHEDULER] Already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	go func() {
		for {
			next := NextRun(time.Now().UTC(), s.cfg.Hour)
			fmt.Printf("[SCHEDULER] Next run at %s (in %s)\n",
				next.Format(time.RFC3339), time.Until(next).Round(time.Second))

			timer := time.NewTimer(time.Until(next))
			select {
			case <-stopCh:
				timer.Stop()
				return
			case <-timer.C:
				s.runOnce()
			}
		}
	}()

	fmt.Printf("[SCHEDULER] Started (daily at %02d:00 UTC)\n", s.cfg.Hour)
}

func (s *DailyScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
	fmt.Println("[SCHEDULER] Stopped")
}

func (s *DailyScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunNow triggers a run outside the normal schedule.
func (s *DailyScheduler) RunNow(ctx context.Context) (*tracker.RunResult, error) {
	fmt.Println("[SCHEDULER] Manual run triggered")
	res, err := s.job.Run(ctx)
	if res != nil && s.cfg.OnComplete != nil {
		s.cfg.OnComplete(res)
	}
	return res, err
}

func (s *DailyScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RunTimeout)
	defer cancel()

	res, err := s.job.Run(ctx)
	if err != nil {
		fmt.Printf("[SCHEDULER] Run failed: %v\n", err)
	}
	if res != nil && s.cfg.OnComplete != nil {
		s.cfg.OnComplete(res)
	}
}

// NextRun returns the next occurrence of hour:00 UTC strictly after now.
func NextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
