package commission

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchWorkers bounds ComputeBatch when the caller passes 0.
const DefaultBatchWorkers = 8

// =============================================================================
// BATCH - Many independent investments
// =============================================================================

// BatchItem is the outcome for one input, at the same index as the input.
type BatchItem struct {
	InvestmentID string
	Result       *CommissionResult
	Err          error
}

// ComputeBatch computes every investment concurrently with at most workers
// goroutines. A failing investment is reported in its item and does not stop
// the others. The returned error is non-nil only when ctx ends first.
//
// A panic inside the engine (a calendar invariant violation) is re-raised
// on the calling goroutine after the workers stop.
func ComputeBatch(ctx context.Context, calc Calculator, invs []Investment, workers int) ([]BatchItem, error) {
	if workers <= 0 {
		workers = DefaultBatchWorkers
	}
	items := make([]BatchItem, len(invs))
	panics := make([]any, len(invs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range invs {
		if err := gctx.Err(); err != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			defer func() {
				if r := recover(); r != nil {
					panics[i] = r
				}
			}()
			res, err := calc.Compute(invs[i])
			items[i] = BatchItem{InvestmentID: invs[i].ID, Result: res, Err: err}
			return nil
		})
	}

	err := g.Wait()
	for _, p := range panics {
		if p != nil {
			panic(p)
		}
	}
	if err == nil {
		err = ctx.Err()
	}
	return items, err
}
