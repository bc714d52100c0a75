package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/havenlist/tracker-backend/internal/external"
	"github.com/havenlist/tracker-backend/internal/models"
)

// NotFoundStatus is written when the lookup service reports a listing has
// left the source inventory.
const NotFoundStatus = "Not Found"

// Source is the record store a run reads candidates from and writes
// updates back to.
type Source interface {
	FindUnpriced(ctx context.Context) ([]models.Property, error)
	ApplyUpdate(ctx context.Context, zpid string, upd models.PropertyUpdate) error
}

// Lookup probes the external per-listing API. The boolean reports whether
// the listing still exists upstream.
type Lookup interface {
	Fetch(ctx context.Context, zpid string) (external.State, bool, error)
}

type Options struct {
	BatchSize  int           // records per batch
	ChunkSize  int           // concurrent lookups within a batch
	ChunkDelay time.Duration // pacing between chunks of the same batch
	BatchDelay time.Duration // pacing between batches
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 20
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = 5
	}
	return o
}

type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunAborted   RunStatus = "aborted"
)

// Failure records one listing the run could not process.
type Failure struct {
	Zpid string `json:"zpid"`
	Err  string `json:"error"`
}

type RunResult struct {
	ID         uuid.UUID `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Status     RunStatus `json:"status"`
	Found      int       `json:"found"`
	Success    int       `json:"success"`
	Failed     int       `json:"failed"`
	Failures   []Failure `json:"failures,omitempty"`
}

// Tracker is the stateless run driver: it owns no schedule and no
// aggregate between runs, so it is safe to invoke from any trigger.
type Tracker struct {
	source Source
	lookup Lookup
	opts   Options
}

func New(source Source, lookup Lookup, opts Options) *Tracker {
	return &Tracker{source: source, lookup: lookup, opts: opts.withDefaults()}
}

// Run executes one full tracking pass. Only the initial candidate query can
// fail the run; every per-record problem is folded into the aggregate and
// processing moves on. Cancelling the context lets the in-flight chunk
// settle, then abandons the rest of the run.
func (t *Tracker) Run(ctx context.Context) (*RunResult, error) {
	res := &RunResult{
		ID:        uuid.New(),
		StartedAt: time.Now().UTC(),
		Status:    RunCompleted,
	}
	fmt.Printf("[TRACKER] Run %s starting at %s\n", res.ID, res.StartedAt.Format(time.RFC3339))

	props, err := t.source.FindUnpriced(ctx)
	if err != nil {
		res.Status = RunAborted
		res.FinishedAt = time.Now().UTC()
		return res, fmt.Errorf("fetch candidates: %w", err)
	}
	res.Found = len(props)
	fmt.Printf("[TRACKER] Found %d properties to process\n", res.Found)

	for i := 0; i < len(props); i += t.opts.BatchSize {
		batch := props[i:min(i+t.opts.BatchSize, len(props))]

		for j := 0; j < len(batch); j += t.opts.ChunkSize {
			chunk := batch[j:min(j+t.opts.ChunkSize, len(batch))]

			// One result slot per record; workers never share state, the
			// aggregate is merged here after the chunk settles.
			outcomes := make([]outcome, len(chunk))
			var wg sync.WaitGroup
			for k := range chunk {
				wg.Add(1)
				go func(k int) {
					defer wg.Done()
					outcomes[k] = t.processProperty(ctx, &chunk[k])
				}(k)
			}
			wg.Wait()

			for _, o := range outcomes {
				if o.err != nil {
					res.Failed++
					res.Failures = append(res.Failures, Failure{Zpid: o.zpid, Err: o.err.Error()})
				} else {
					res.Success++
				}
			}

			if j+t.opts.ChunkSize < len(batch) {
				if err := pace(ctx, t.opts.ChunkDelay); err != nil {
					return t.abandon(res), nil
				}
			}
		}

		processed := min(i+t.opts.BatchSize, len(props))
		fmt.Printf("[TRACKER] Processed %d/%d properties (success %d, failed %d)\n",
			processed, len(props), res.Success, res.Failed)

		if i+t.opts.BatchSize < len(props) {
			if err := pace(ctx, t.opts.BatchDelay); err != nil {
				return t.abandon(res), nil
			}
		}
	}

	res.FinishedAt = time.Now().UTC()
	fmt.Printf("[TRACKER] Run %s %s: %d found, %d success, %d failed\n",
		res.ID, res.Status, res.Found, res.Success, res.Failed)
	return res, nil
}

type outcome struct {
	zpid string
	err  error
}

func (t *Tracker) processProperty(ctx context.Context, p *models.Property) outcome {
	state, found, err := t.lookup.Fetch(ctx, p.Zpid)
	if err != nil {
		return outcome{zpid: p.Zpid, err: err}
	}

	var upd models.PropertyUpdate
	if !found {
		status := NotFoundStatus
		upd.HomeStatus = &status
	} else {
		// Status and time-on-market are written whenever the service
		// reports them, independent of the price outcome.
		if state.HomeStatus != "" {
			status := state.HomeStatus
			upd.HomeStatus = &status
		}
		if state.TimeOnZillow != "" {
			tz := state.TimeOnZillow
			upd.TimeOnZillow = &tz
		}
		if priced, changed := RecordObservation(p, state.Price, time.Now()); changed {
			upd.Price = priced.Price
			upd.PriceChanges = priced.PriceChanges
			upd.UpdatedAt = priced.UpdatedAt
		}
	}

	if upd.IsZero() {
		return outcome{zpid: p.Zpid}
	}
	if err := t.source.ApplyUpdate(ctx, p.Zpid, upd); err != nil {
		return outcome{zpid: p.Zpid, err: fmt.Errorf("update write: %w", err)}
	}
	return outcome{zpid: p.Zpid}
}

func (t *Tracker) abandon(res *RunResult) *RunResult {
	res.Status = RunAborted
	res.FinishedAt = time.Now().UTC()
	fmt.Printf("[TRACKER] Run %s cancelled after %d/%d records (success %d, failed %d)\n",
		res.ID, res.Success+res.Failed, res.Found, res.Success, res.Failed)
	return res
}

func pace(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
