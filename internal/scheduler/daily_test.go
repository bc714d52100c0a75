package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/havenlist/tracker-backend/internal/scheduler"
	"github.com/havenlist/tracker-backend/internal/tracker"
)

type fakeJob struct {
	runs atomic.Int32
	res  *tracker.RunResult
	err  error
}

func (f *fakeJob) Run(ctx context.Context) (*tracker.RunResult, error) {
	f.runs.Add(1)
	return f.res, f.err
}

func TestNextRun_LaterToday(t *testing.T) {
	now := time.Date(2024, 7, 15, 1, 30, 0, 0, time.UTC)
	next := scheduler.NextRun(now, 2)
	want := time.Date(2024, 7, 15, 2, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("got %s, want %s", next, want)
	}
}

func TestNextRun_Tomorrow(t *testing.T) {
	now := time.Date(2024, 7, 15, 14, 0, 0, 0, time.UTC)
	next := scheduler.NextRun(now, 2)
	want := time.Date(2024, 7, 16, 2, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("got %s, want %s", next, want)
	}
}

func TestNextRun_ExactlyAtHourRollsOver(t *testing.T) {
	now := time.Date(2024, 7, 15, 2, 0, 0, 0, time.UTC)
	next := scheduler.NextRun(now, 2)
	want := time.Date(2024, 7, 16, 2, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("next run must be strictly after now: got %s", next)
	}
}

func TestRunNow(t *testing.T) {
	job := &fakeJob{res: &tracker.RunResult{Found: 3, Success: 3, Status: tracker.RunCompleted}}

	var reported atomic.Bool
	sched := scheduler.NewDailyScheduler(job, scheduler.DailyConfig{
		Hour: 2,
		OnComplete: func(res *tracker.RunResult) {
			if res.Found != 3 {
				t.Errorf("OnComplete result: %+v", res)
			}
			reported.Store(true)
		},
	})

	res, err := sched.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if res.Success != 3 {
		t.Fatalf("result: %+v", res)
	}
	if job.runs.Load() != 1 {
		t.Fatalf("expected 1 run, got %d", job.runs.Load())
	}
	if !reported.Load() {
		t.Fatal("OnComplete was not called")
	}
}

func TestRunNow_PropagatesRunError(t *testing.T) {
	job := &fakeJob{err: errors.New("record source unavailable")}
	sched := scheduler.NewDailyScheduler(job, scheduler.DailyConfig{Hour: 2})

	_, err := sched.RunNow(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestStartStop(t *testing.T) {
	job := &fakeJob{res: &tracker.RunResult{}}
	// Pick an hour far from now so the timer cannot fire during the test.
	hour := (time.Now().UTC().Hour() + 12) % 24
	sched := scheduler.NewDailyScheduler(job, scheduler.DailyConfig{Hour: hour})

	sched.Start()
	if !sched.Running() {
		t.Fatal("expected running after Start")
	}

	// Second Start is a no-op.
	sched.Start()

	sched.Stop()
	if sched.Running() {
		t.Fatal("expected stopped after Stop")
	}

	// Double Stop is safe.
	sched.Stop()

	if job.runs.Load() != 0 {
		t.Fatalf("no scheduled run should have fired, got %d", job.runs.Load())
	}
}
