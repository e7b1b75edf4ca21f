package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingReconciler struct {
	calls atomic.Int32
	err   error
}

func (r *countingReconciler) ReconcileAll(context.Context) error {
	r.calls.Add(1)
	return r.err
}

func TestDefaultSyncProcessorConfig(t *testing.T) {
	config := DefaultSyncProcessorConfig()

	if config.Interval != 15*time.Minute {
		t.Errorf("expected Interval 15m, got %v", config.Interval)
	}
	if !config.RunOnStart {
		t.Error("expected RunOnStart by default")
	}
}

func TestNewSyncProcessor_ZeroIntervalUsesDefault(t *testing.T) {
	processor := NewSyncProcessor(&countingReconciler{}, SyncProcessorConfig{})
	if processor.config.Interval != DefaultSyncProcessorConfig().Interval {
		t.Errorf("Interval = %v", processor.config.Interval)
	}
}

func TestSyncProcessor_IsRunning(t *testing.T) {
	processor := NewSyncProcessor(&countingReconciler{}, DefaultSyncProcessorConfig())

	if processor.IsRunning() {
		t.Error("processor should not be running initially")
	}
}

func TestSyncProcessor_StartTwice(t *testing.T) {
	processor := NewSyncProcessor(&countingReconciler{}, SyncProcessorConfig{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := processor.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := processor.Start(ctx); err == nil {
		t.Error("expected error when starting already running processor")
	}
	if err := processor.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if processor.IsRunning() {
		t.Error("processor should not be running after Stop")
	}
}

func TestSyncProcessor_StopNotRunning(t *testing.T) {
	processor := NewSyncProcessor(&countingReconciler{}, DefaultSyncProcessorConfig())

	if err := processor.Stop(context.Background()); err != nil {
		t.Errorf("Stop should not error when not running: %v", err)
	}
}

func TestSyncProcessor_ReconcilesOnStartAndTick(t *testing.T) {
	rec := &countingReconciler{err: errors.New("sheets down")}
	processor := NewSyncProcessor(rec, SyncProcessorConfig{Interval: 10 * time.Millisecond, RunOnStart: true})

	ctx := context.Background()
	if err := processor.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for rec.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := processor.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if n := rec.calls.Load(); n < 3 {
		t.Errorf("reconciled %d times, want at least 3 (failures must not stop the loop)", n)
	}
}
