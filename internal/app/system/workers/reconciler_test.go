package workers_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/schoolhub/internal/app/system/workers"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeRepairer struct {
	calls atomic.Int32
	fixed int
	err   error
}

func (f *fakeRepairer) ReconcileAll(ctx context.Context) (int, error) {
	f.calls.Add(1)
	return f.fixed, f.err
}

func TestReconciler_RunOnce(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := &fakeRepairer{fixed: 3}
	w := workers.NewReconciler(r, zap.New(core), time.Hour, time.Second)

	if got := w.RunOnce(); got != 3 {
		t.Errorf("RunOnce = %d, want 3", got)
	}
	if logs.FilterMessage("repaired school student indexes").Len() != 1 {
		t.Error("expected repair count to be logged")
	}
}

func TestReconciler_RunOnceLogsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := &fakeRepairer{err: errors.New("mongo down")}
	w := workers.NewReconciler(r, zap.New(core), time.Hour, time.Second)

	w.RunOnce()
	if logs.FilterMessage("reconcile pass failed").Len() != 1 {
		t.Error("expected failure to be logged")
	}
}

func TestReconciler_TicksUntilStopped(t *testing.T) {
	r := &fakeRepairer{}
	w := workers.NewReconciler(r, nil, 5*time.Millisecond, time.Second)

	w.Start()
	deadline := time.Now().Add(2 * time.Second)
	for r.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()
	w.Stop()

	if r.calls.Load() < 2 {
		t.Fatalf("expected at least 2 passes, got %d", r.calls.Load())
	}
	after := r.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if r.calls.Load() != after {
		t.Error("worker kept running after Stop")
	}
}
