// Package walk discovers devices breadth-first from seed addresses, visiting
// each address at most once per run.
package walk

import (
	"context"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/edgecheck-network/edgecheck/pkg/util"
)

// VisitFunc processes one device and returns the neighbor addresses to
// follow. It owns all error handling for the device; a walk never stops
// because one device failed.
type VisitFunc func(ctx context.Context, address string) []string

// Walker runs a breadth-first walk.
type Walker struct {
	Visit   VisitFunc
	Visited VisitedSet
	// Workers bounds concurrent visits; 1 gives a strictly sequential walk.
	Workers int
	RunID   string
}

// Stats summarizes a finished walk.
type Stats struct {
	Visited int
	Levels  int
}

// New creates a walker with an in-process visited set.
func New(visit VisitFunc, workers int, runID string) *Walker {
	return &Walker{Visit: visit, Visited: NewMemorySet(), Workers: workers, RunID: runID}
}

type visitResult struct {
	address   string
	neighbors []string
	visited   bool
}

// Run walks from seeds level by level. Every address is visited at most once;
// neighbors of a level are queued only after the whole level finished. A
// cancelled context stops the walk: addresses of the current level that were
// not started yet are skipped and stay queued.
func (w *Walker) Run(ctx context.Context, seeds []string) (Stats, error) {
	log := util.WithRun(w.RunID)
	var stats Stats

	frontier, err := w.enqueue(ctx, nil, seeds)
	if err != nil {
		return stats, err
	}

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			log.Warnf("walk cancelled with %d devices pending", len(frontier))
			return stats, err
		}
		stats.Levels++
		log.Debugf("level %d: %d devices", stats.Levels, len(frontier))

		results := w.visitLevel(ctx, frontier)

		// Bookkeeping of finished visits survives cancellation.
		bctx := context.WithoutCancel(ctx)
		var next []string
		skipped := 0
		for _, r := range results {
			if !r.visited {
				skipped++
				continue
			}
			stats.Visited++
			if err := w.Visited.MarkVisited(bctx, r.address); err != nil {
				return stats, err
			}
			if next, err = w.enqueue(bctx, next, r.neighbors); err != nil {
				return stats, err
			}
		}
		if err := ctx.Err(); err != nil {
			log.Warnf("walk cancelled: %d devices skipped, %d pending", skipped, len(next))
			return stats, err
		}
		frontier = next
	}
	log.Infof("walk finished: %d devices in %d levels", stats.Visited, stats.Levels)
	return stats, nil
}

// visitLevel visits every address of one level through a bounded pool and
// returns the results in frontier order. Once ctx is cancelled the remaining
// addresses are returned unvisited.
func (w *Walker) visitLevel(ctx context.Context, frontier []string) []visitResult {
	workers := w.Workers
	if workers < 1 {
		workers = 1
	}
	results := make([]visitResult, len(frontier))
	p := pool.New().WithMaxGoroutines(workers)
	for i, addr := range frontier {
		i, addr := i, addr
		p.Go(func() {
			if ctx.Err() != nil {
				results[i] = visitResult{address: addr}
				return
			}
			results[i] = visitResult{address: addr, neighbors: w.safeVisit(ctx, addr), visited: true}
		})
	}
	p.Wait()
	return results
}

func (w *Walker) safeVisit(ctx context.Context, address string) (neighbors []string) {
	defer func() {
		if v := recover(); v != nil {
			util.WithRun(w.RunID).WithField("device", address).Errorf("visit failed: %v", util.RecoveredPanic(v))
			neighbors = nil
		}
	}()
	return w.Visit(ctx, address)
}

// enqueue appends to list each address not yet known to the visited set.
func (w *Walker) enqueue(ctx context.Context, list, addresses []string) ([]string, error) {
	for _, a := range addresses {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		added, err := w.Visited.Enqueue(ctx, a)
		if err != nil {
			return list, err
		}
		if added {
			list = append(list, a)
		}
	}
	return list, nil
}
