package bridge

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/notebridge/internal/infrastructure/logging"
	"github.com/GriffinCanCode/notebridge/internal/infrastructure/monitoring"
)

// ExecutionContext is an isolated script runtime that accepts injected
// code. Inject must not wait for the script to finish.
type ExecutionContext interface {
	Inject(script string) error
}

// Message is what the execution context posts back: the job's id and the
// value of its response variable. A nil Value means the context posted
// nothing usable.
type Message struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
}

// Invoker dispatches jobs into the attached execution context and waits for
// their correlated responses
type Invoker struct {
	registry *Registry
	logger   *zap.Logger
	metrics  *monitoring.Metrics

	mu     sync.RWMutex
	target ExecutionContext
}

// NewInvoker creates an invoker over registry. A nil registry selects the
// process-wide one.
func NewInvoker(registry *Registry, logger *zap.Logger) *Invoker {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Invoker{
		registry: registry,
		logger:   logging.OrNop(logger),
	}
}

// WithMetrics attaches a metrics collector
func (i *Invoker) WithMetrics(metrics *monitoring.Metrics) *Invoker {
	i.metrics = metrics
	return i
}

// Registry returns the registry responses are routed through
func (i *Invoker) Registry() *Registry {
	return i.registry
}

// Attach makes ec the live execution context, replacing any previous one
func (i *Invoker) Attach(ec ExecutionContext) {
	i.mu.Lock()
	i.target = ec
	i.mu.Unlock()

	if i.metrics != nil {
		i.metrics.SetAttached(ec != nil)
	}
}

// Detach clears the live context if it is still ec. It reports whether
// anything was detached.
func (i *Invoker) Detach(ec ExecutionContext) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.target == nil || i.target != ec {
		return false
	}
	i.target = nil
	if i.metrics != nil {
		i.metrics.SetAttached(false)
	}
	return true
}

// Attached reports whether a live execution context exists
func (i *Invoker) Attached() bool {
	return i.current() != nil
}

func (i *Invoker) current() ExecutionContext {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.target
}

// Call injects job and waits for the value posted under its id.
//
// Without an attached context Call returns nil at once and registers
// nothing. Otherwise it waits until the response arrives or ctx ends; it
// imposes no deadline of its own.
func (i *Invoker) Call(ctx context.Context, job Job) (any, error) {
	target := i.current()
	if target == nil {
		i.logger.Debug("no execution context attached, job not dispatched", zap.String("id", job.ID()))
		monitoring.NewTimer(i.metrics).Stop("detached")
		return nil, nil
	}

	pending, err := i.registry.Register(job.ID())
	if err != nil {
		return nil, err
	}
	i.reportPending()

	timer := monitoring.NewTimer(i.metrics)
	go func() {
		if err := target.Inject(job.Script()); err != nil {
			i.logger.Warn("webview injection failed", zap.String("id", job.ID()), zap.Error(err))
		}
	}()

	value, err := pending.Wait(ctx)
	if err != nil {
		i.registry.Forget(job.ID())
		i.reportPending()
		timer.Stop("canceled")
		return nil, err
	}

	i.logger.Debug("webview job", zap.String("id", job.ID()), zap.Any("value", value))
	if value == nil {
		i.logger.Warn("webview job failed", zap.String("id", job.ID()))
		timer.Stop("empty")
		return nil, nil
	}

	timer.Stop("resolved")
	return value, nil
}

// Deliver routes an inbound message to the slot with the same id. Messages
// for unknown or already-resolved ids are dropped.
func (i *Invoker) Deliver(msg Message) bool {
	if msg.ID == "" {
		i.logger.Debug("dropping message without id")
		i.recordResponse(monitoring.OutcomeUnmatched)
		return false
	}

	if !i.registry.Resolve(msg.ID, msg.Value) {
		i.logger.Debug("no pending slot for response", zap.String("id", msg.ID))
		i.recordResponse(monitoring.OutcomeUnmatched)
		return false
	}

	if msg.Value == nil {
		i.recordResponse(monitoring.OutcomeEmpty)
	} else {
		i.recordResponse(monitoring.OutcomeMatched)
	}
	i.reportPending()
	return true
}

// Sweep evicts slots older than olderThan every interval until ctx ends
func (i *Invoker) Sweep(ctx context.Context, interval, olderThan time.Duration) {
	i.registry.RunSweeper(ctx, interval, olderThan, func(n int) {
		i.logger.Warn("evicted abandoned response slots", zap.Int("count", n), zap.Duration("older_than", olderThan))
		if i.metrics != nil {
			i.metrics.AddEvicted(n)
		}
		i.reportPending()
	})
}

func (i *Invoker) reportPending() {
	if i.metrics != nil {
		i.metrics.SetPending(i.registry.Len())
	}
}

func (i *Invoker) recordResponse(outcome string) {
	if i.metrics != nil {
		i.metrics.RecordResponse(outcome)
	}
}
