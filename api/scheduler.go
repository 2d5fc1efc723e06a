/*
scheduler.go - Payout report scheduler

PURPOSE:
  Periodically checks whether a new cutoff has been reached and, when it
  has, builds the payout report for it and logs the totals. Finance reads
  the result from the logs or from GET /api/reports/payouts.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Remembers the last cutoff it reported on; one report per cutoff
  - The first check runs immediately on Start

USAGE:
  scheduler := NewPayoutScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - report.go: buildPayoutReport
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/commission-engine/calendar"
	"go.uber.org/zap"
)

// PayoutScheduler emits a payout report once per cutoff.
type PayoutScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker     *time.Ticker
	stop       chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	lastCutoff calendar.Date
	lastReport *PayoutReportDTO
}

// NewPayoutScheduler creates a new scheduler.
func NewPayoutScheduler(handler *Handler) *PayoutScheduler {
	return &PayoutScheduler{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
	}
}

// Start begins the scheduler.
func (ps *PayoutScheduler) Start() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	log := ps.Handler.Log.Named("scheduler")
	if !ps.Enabled {
		log.Info("payout scheduler disabled")
		return
	}

	if ps.ticker != nil {
		return
	}

	ps.ticker = time.NewTicker(ps.CheckInterval)
	ps.stop = make(chan struct{})
	ps.wg.Add(1)
	go ps.run(ps.ticker, ps.stop)

	log.Info("payout scheduler started", zap.Duration("interval", ps.CheckInterval))
}

// Stop stops the scheduler and waits for a running check to finish.
func (ps *PayoutScheduler) Stop() {
	ps.mu.Lock()
	ticker, stop := ps.ticker, ps.stop
	ps.ticker, ps.stop = nil, nil
	ps.mu.Unlock()

	if ticker != nil {
		ticker.Stop()
		close(stop)
		ps.wg.Wait()
		ps.Handler.Log.Named("scheduler").Info("payout scheduler stopped")
	}
}

func (ps *PayoutScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer ps.wg.Done()

	ps.check(context.Background())

	for {
		select {
		case <-ticker.C:
			ps.check(context.Background())
		case <-stop:
			return
		}
	}
}

// check builds the report when the current cutoff differs from the last one
// reported. It returns true when a report was built.
func (ps *PayoutScheduler) check(ctx context.Context) bool {
	today := ps.Handler.Today()
	cutoff := calendar.CurrentCutoff(today)

	ps.mu.Lock()
	seen := ps.lastCutoff.Equal(cutoff.Date)
	ps.mu.Unlock()
	if seen {
		return false
	}

	log := ps.Handler.Log.Named("scheduler")
	report, err := ps.Handler.buildPayoutReport(ctx, today)
	if err != nil {
		log.Error("payout report failed", zap.Stringer("cutoff", cutoff.Date), zap.Error(err))
		return false
	}

	ps.mu.Lock()
	ps.lastCutoff = cutoff.Date
	ps.lastReport = &report
	ps.mu.Unlock()

	fields := []zap.Field{
		zap.Stringer("cutoff", cutoff.Date),
		zap.String("payment_month", report.PaymentMonth),
		zap.Int("lines", len(report.Lines)),
		zap.Int("failures", len(report.Failures)),
	}
	for role, total := range report.Totals {
		fields = append(fields, zap.Stringer("total_"+role, total))
	}
	log.Info("payout report ready", fields...)
	return true
}

// RunNow forces a report for the current cutoff, even if one was built.
func (ps *PayoutScheduler) RunNow(ctx context.Context) bool {
	ps.mu.Lock()
	ps.lastCutoff = calendar.Date{}
	ps.mu.Unlock()
	return ps.check(ctx)
}

// LastReport returns the most recent report, or nil.
func (ps *PayoutScheduler) LastReport() *PayoutReportDTO {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.lastReport
}
