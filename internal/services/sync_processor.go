package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Reconciler rebuilds the mirror from the store.
type Reconciler interface {
	ReconcileAll(ctx context.Context) error
}

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// Interval is how often to run a full reconcile (default: 15m). It backs
	// up change messages that were lost while the worker was down.
	Interval time.Duration

	// RunOnStart reconciles immediately when the processor starts.
	RunOnStart bool
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		Interval:   15 * time.Minute,
		RunOnStart: true,
	}
}

// SyncProcessor runs periodic full reconciles.
type SyncProcessor struct {
	reconciler Reconciler
	config     SyncProcessorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(reconciler Reconciler, config SyncProcessorConfig) *SyncProcessor {
	if config.Interval <= 0 {
		config.Interval = DefaultSyncProcessorConfig().Interval
	}
	return &SyncProcessor{
		reconciler: reconciler,
		config:     config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started", "interval", p.config.Interval)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	if p.config.RunOnStart {
		p.reconcile(ctx)
	}

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.reconcile(ctx)
		}
	}
}

func (p *SyncProcessor) reconcile(ctx context.Context) {
	start := time.Now()
	if err := p.reconciler.ReconcileAll(ctx); err != nil {
		slog.ErrorContext(ctx, "Reconcile failed", "error", err, "duration", time.Since(start))
		return
	}
	slog.DebugContext(ctx, "Reconcile completed", "duration", time.Since(start))
}
