// internal/app/system/workers/reconciler.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/schoolhub/internal/app/system/metrics"
	"go.uber.org/zap"
)

// Repairer rewrites every drifted school student index and reports how
// many it fixed. *relations.Maintainer satisfies it.
type Repairer interface {
	ReconcileAll(ctx context.Context) (int, error)
}

// Reconciler is a background worker that periodically repairs the
// denormalized school.students arrays from student.school_id.
type Reconciler struct {
	repairer Repairer
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewReconciler creates a reconcile worker.
//
// Parameters:
//   - r: the relationship maintainer
//   - logger: zap logger for logging
//   - interval: how often to run (e.g., 10 minutes)
//   - timeout: upper bound for one pass
func NewReconciler(r Repairer, logger *zap.Logger, interval, timeout time.Duration) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		repairer: r,
		log:      logger,
		interval: interval,
		timeout:  timeout,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background loop.
func (w *Reconciler) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("reconcile worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish. Safe to call
// more than once.
func (w *Reconciler) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("reconcile worker stopped")
}

func (w *Reconciler) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce()
		}
	}
}

// RunOnce performs a single reconcile pass.
func (w *Reconciler) RunOnce() int {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	// Abort the pass promptly when Stop is called mid-run.
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	n, err := w.repairer.ReconcileAll(ctx)
	if n > 0 {
		metrics.ReconcileRepairs.Add(float64(n))
		w.log.Info("repaired school student indexes", zap.Int("count", n))
	}
	if err != nil {
		w.log.Error("reconcile pass failed", zap.Error(err))
	}
	return n
}
