// Package pipeline drives the unprocessed essays through the search client
// in bounded-size parallel groups, checkpointing each result as it lands.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rgoodwin/essayradar/internal/checkpoint"
	"github.com/rgoodwin/essayradar/internal/observability"
	"github.com/rgoodwin/essayradar/internal/types"
)

// Defaults for the batch runner.
const (
	DefaultWidth = 5
	DefaultDelay = 1000 * time.Millisecond
)

// Searcher resolves one essay to its relevant mentions.
type Searcher interface {
	Mentions(ctx context.Context, essay types.Essay) (types.MatchResult, error)
}

// Runner partitions the remaining essays into consecutive groups of the
// configured width, preserving original order within and across groups. All
// members of a group run concurrently; no group starts until every member
// of the previous one has resolved and been recorded. That boundary is the
// sole ordering guarantee: after a crash, the checkpoint always reflects
// "prior groups fully recorded, at most the crashed group partially so".
type Runner struct {
	store    *checkpoint.Store
	searcher Searcher
	width    int
	delay    time.Duration
	sink     observability.Sink
	sleep    func(time.Duration)
	now      func() time.Time
}

// NewRunner creates a runner. Non-positive width and negative delay fall
// back to the defaults.
func NewRunner(store *checkpoint.Store, searcher Searcher, width int, delay time.Duration, sink observability.Sink) *Runner {
	if width <= 0 {
		width = DefaultWidth
	}
	if delay < 0 {
		delay = DefaultDelay
	}
	if sink == nil {
		sink = observability.NopSink{}
	}
	return &Runner{
		store:    store,
		searcher: searcher,
		width:    width,
		delay:    delay,
		sink:     sink,
		sleep:    time.Sleep,
		now:      time.Now,
	}
}

// outcome carries one essay's resolution back to the coordinating loop.
type outcome struct {
	essay types.Essay
	hits  types.MatchResult
	err   error
	took  time.Duration
}

// Run drives every unprocessed essay to completion and returns the final
// results mapping. An individual essay's failure is recorded as an empty,
// permanently-processed result and never aborts the run.
func (r *Runner) Run(ctx context.Context) (map[string]*types.EssayResult, error) {
	remaining := r.store.Remaining()
	groups := partition(remaining, r.width)

	r.emit(observability.CategoryInfo, "starting batch run", map[string]any{
		"remaining": len(remaining), "groups": len(groups), "width": r.width,
	})

	for gi, group := range groups {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("batch run interrupted: %w", err)
		}

		results := make(chan outcome, len(group))
		g, gctx := errgroup.WithContext(ctx)
		for _, essay := range group {
			essay := essay
			g.Go(func() error {
				start := r.now()
				hits, err := r.searcher.Mentions(gctx, essay)
				results <- outcome{essay: essay, hits: hits, err: err, took: r.now().Sub(start)}
				return nil
			})
		}

		// Record each member the moment it resolves, from this single
		// goroutine; the store never sees concurrent writers. A crash
		// mid-group loses only the still-in-flight members.
		failures := 0
		for range group {
			o := <-results
			if o.err != nil {
				failures++
				r.emit(observability.CategoryWarn, "essay failed, recording empty result", map[string]any{
					"essay": o.essay.Key(), "error": o.err.Error(),
				})
				o.hits = types.MatchResult{}
			}
			r.store.RecordProcessed(o.essay, o.hits)
			r.emit(observability.CategoryInfo, "essay processed", map[string]any{
				"essay": o.essay.Key(), "hits": len(o.hits), "duration_ms": o.took.Milliseconds(),
			})
		}
		_ = g.Wait()

		stats := r.store.Stats()
		r.emit(observability.CategoryProgress, "group finished", map[string]any{
			"group":     gi + 1,
			"of":        len(groups),
			"size":      len(group),
			"succeeded": len(group) - failures,
			"failed":    failures,
			"percent":   stats.Percentage,
		})

		if gi < len(groups)-1 && r.delay > 0 {
			r.sleep(r.delay)
		}
	}

	return r.store.Session().Results, nil
}

// partition splits essays into consecutive groups of at most width,
// preserving order.
func partition(essays []types.Essay, width int) [][]types.Essay {
	var groups [][]types.Essay
	for start := 0; start < len(essays); start += width {
		end := start + width
		if end > len(essays) {
			end = len(essays)
		}
		groups = append(groups, essays[start:end])
	}
	return groups
}

func (r *Runner) emit(category, message string, fields map[string]any) {
	r.sink.Emit(observability.Event{
		Step:     "batch",
		Category: category,
		Message:  message,
		Fields:   fields,
	})
}
