package webview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/notebridge/internal/bridge"
	"github.com/GriffinCanCode/notebridge/internal/infrastructure/logging"
)

// ErrTimeout is returned when a script exceeds the configured timeout
var ErrTimeout = errors.New("webview: execution timeout exceeded")

// Runtime is an in-process execution context backed by a goja VM.
// The VM is only touched from the loop goroutine.
type Runtime struct {
	vm     *goja.Runtime
	config Config
	logger *zap.Logger
	onPost MessageHandler
	dom    *DOM

	// Task queue drained by the loop
	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	timerMu   sync.Mutex
	timers    map[int64]*time.Timer
	nextTimer int64

	// Set by Execute while a synchronous run collects console output
	capture *[]LogEntry
}

// New creates a runtime, evaluates the bootstrap script and starts its
// loop. Values posted by jobs are passed to onPost.
func New(config Config, onPost MessageHandler, logger *zap.Logger) (*Runtime, error) {
	r := &Runtime{
		vm:     goja.New(),
		config: config,
		logger: logging.OrNop(logger),
		onPost: onPost,
		dom:    NewDOM(),
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		timers: make(map[int64]*time.Timer),
	}
	r.vm.SetMaxCallStackSize(1024)

	if err := r.setupGlobals(); err != nil {
		return nil, err
	}
	if _, err := r.vm.RunString(prelude); err != nil {
		return nil, fmt.Errorf("failed to install prelude: %w", err)
	}
	if config.Bootstrap != "" {
		if _, err := r.guarded(func() (goja.Value, error) { return r.vm.RunString(config.Bootstrap) }); err != nil {
			return nil, fmt.Errorf("failed to evaluate bootstrap script: %w", err)
		}
	}

	go r.loop()
	return r, nil
}

// DOM returns the document backing document.querySelector
func (r *Runtime) DOM() *DOM {
	return r.dom
}

// Inject queues script for execution and returns without waiting for it
func (r *Runtime) Inject(script string) error {
	return r.enqueue(func() {
		if _, err := r.guarded(func() (goja.Value, error) { return r.vm.RunString(script) }); err != nil {
			r.logger.Warn("webview script failed", zap.Error(err))
		}
	})
}

// Execute runs script on the loop and waits for its completion value
func (r *Runtime) Execute(ctx context.Context, script string) (*Result, error) {
	type outcome struct {
		result *Result
		err    error
	}
	ch := make(chan outcome, 1)

	err := r.enqueue(func() {
		var logs []LogEntry
		r.capture = &logs
		start := time.Now()

		val, err := r.guarded(func() (goja.Value, error) { return r.vm.RunString(script) })

		r.capture = nil
		ch <- outcome{
			result: &Result{Value: exportValue(val), Console: logs, Duration: time.Since(start)},
			err:    err,
		}
	})
	if err != nil {
		return nil, err
	}

	select {
	case o := <-ch:
		return o.result, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.done:
		return nil, ErrClosed
	}
}

// Close stops the loop and pending timers. Queued work is discarded.
func (r *Runtime) Close() error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.queue = nil
		r.mu.Unlock()

		r.timerMu.Lock()
		for id, t := range r.timers {
			t.Stop()
			delete(r.timers, id)
		}
		r.timerMu.Unlock()

		r.vm.Interrupt(ErrClosed)
		close(r.quit)
	})
	<-r.done
	return nil
}

func (r *Runtime) enqueue(task func()) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.queue = append(r.queue, task)
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
	return nil
}

func (r *Runtime) dequeue() (func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || len(r.queue) == 0 {
		return nil, false
	}
	task := r.queue[0]
	r.queue[0] = nil
	r.queue = r.queue[1:]
	return task, true
}

func (r *Runtime) loop() {
	defer close(r.done)
	for {
		select {
		case <-r.quit:
			return
		case <-r.wake:
		}
		for {
			task, ok := r.dequeue()
			if !ok {
				break
			}
			task()
		}
	}
}

// interrupter is the part of *goja.Runtime the run timeout drives
type interrupter interface {
	Interrupt(v any)
	ClearInterrupt()
}

// interruptAfter interrupts vm with ErrTimeout once d elapses. The returned
// stop waits out a callback that already fired before clearing the
// interrupt, so a late timeout never leaks into the next run.
func interruptAfter(vm interrupter, d time.Duration) (stop func()) {
	fired := make(chan struct{})
	timer := time.AfterFunc(d, func() {
		defer close(fired)
		vm.Interrupt(ErrTimeout)
	})
	return func() {
		if !timer.Stop() {
			<-fired
		}
		vm.ClearInterrupt()
	}
}

// guarded runs fn under the interrupt timeout
func (r *Runtime) guarded(fn func() (goja.Value, error)) (goja.Value, error) {
	if r.config.Timeout > 0 {
		defer interruptAfter(r.vm, r.config.Timeout)()
	}

	val, err := fn()
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			if cause, ok := interrupted.Value().(error); ok {
				return nil, cause
			}
		}
		return nil, err
	}
	return val, nil
}

// setupGlobals configures the host bindings a job can reach
func (r *Runtime) setupGlobals() error {
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := r.vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	globals := map[string]any{
		"window":       r.vm.GlobalObject(),
		"post":         r.post,
		"logger":       r.loggerFunc,
		"setTimeout":   r.setTimeout,
		"clearTimeout": r.clearTimeout,
		"setImmediate": r.setImmediate,
		"document":     r.document(),
	}
	for name, value := range globals {
		if err := r.vm.Set(name, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", name, err)
		}
	}

	if r.config.EnableConsole {
		console := r.vm.NewObject()
		for _, level := range []string{"log", "info", "warn", "error", "debug"} {
			if err := console.Set(level, r.makeConsoleFunc(level)); err != nil {
				return err
			}
		}
		if err := r.vm.Set("console", console); err != nil {
			return err
		}
	}
	return nil
}

// post delivers a job's response to the host
func (r *Runtime) post(call goja.FunctionCall) goja.Value {
	msg := bridge.Message{
		ID:    call.Argument(0).String(),
		Value: exportValue(call.Argument(1)),
	}
	if r.onPost != nil {
		r.onPost(msg)
	}
	return goja.Undefined()
}

// loggerFunc implements logger(level, ...args)
func (r *Runtime) loggerFunc(call goja.FunctionCall) goja.Value {
	level := call.Argument(0).String()
	r.record(level, joinArgs(call.Arguments[min(1, len(call.Arguments)):]))
	return goja.Undefined()
}

func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		r.record(level, joinArgs(call.Arguments))
		return goja.Undefined()
	}
}

func (r *Runtime) record(level, msg string) {
	switch level {
	case "error":
		r.logger.Error(msg, zap.String("source", "webview"))
	case "warn":
		r.logger.Warn(msg, zap.String("source", "webview"))
	case "info":
		r.logger.Info(msg, zap.String("source", "webview"))
	default:
		r.logger.Debug(msg, zap.String("source", "webview"), zap.String("level", level))
	}

	if r.capture != nil {
		*r.capture = append(*r.capture, LogEntry{Level: level, Message: msg, Time: time.Now()})
	}
}

func (r *Runtime) setTimeout(call goja.FunctionCall) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		return goja.Undefined()
	}
	delay := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond
	var args []goja.Value
	if len(call.Arguments) > 2 {
		args = append(args, call.Arguments[2:]...)
	}

	r.timerMu.Lock()
	defer r.timerMu.Unlock()

	r.nextTimer++
	id := r.nextTimer
	r.timers[id] = time.AfterFunc(delay, func() {
		r.timerMu.Lock()
		_, live := r.timers[id]
		delete(r.timers, id)
		r.timerMu.Unlock()
		if !live {
			return
		}

		_ = r.enqueue(func() {
			if _, err := r.guarded(func() (goja.Value, error) { return fn(goja.Undefined(), args...) }); err != nil {
				r.logger.Warn("webview timer callback failed", zap.Error(err))
			}
		})
	})
	return r.vm.ToValue(id)
}

func (r *Runtime) clearTimeout(call goja.FunctionCall) goja.Value {
	id := call.Argument(0).ToInteger()

	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	if t, ok := r.timers[id]; ok {
		t.Stop()
		delete(r.timers, id)
	}
	return goja.Undefined()
}

func (r *Runtime) setImmediate(call goja.FunctionCall) goja.Value {
	args := []goja.Value{call.Argument(0), r.vm.ToValue(0)}
	if len(call.Arguments) > 1 {
		args = append(args, call.Arguments[1:]...)
	}
	return r.setTimeout(goja.FunctionCall{This: call.This, Arguments: args})
}

// document builds the document proxy
func (r *Runtime) document() *goja.Object {
	document := r.vm.NewObject()
	_ = document.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		selector := call.Argument(0).String()
		elements := r.dom.Query(selector)
		if len(elements) == 0 {
			return goja.Null()
		}
		return r.elementProxy(selector, elements[0])
	})
	_ = document.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		selector := call.Argument(0).String()
		elements := r.dom.Query(selector)
		proxies := make([]any, 0, len(elements))
		for _, elem := range elements {
			proxies = append(proxies, r.elementProxy(selector, elem))
		}
		return r.vm.ToValue(proxies)
	})
	return document
}

func (r *Runtime) elementProxy(selector string, elem *Element) *goja.Object {
	obj := r.vm.NewObject()
	_ = obj.Set("tagName", strings.ToUpper(elem.TagName))
	_ = obj.Set("id", elem.ID)
	_ = obj.Set("className", elem.ClassName)
	_ = obj.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		value, ok := r.dom.Attribute(elem, call.Argument(0).String())
		if !ok {
			return goja.Null()
		}
		return r.vm.ToValue(value)
	})
	_ = obj.Set("setAttribute", func(call goja.FunctionCall) goja.Value {
		r.dom.SetAttribute(elem, selector, call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	})
	return obj
}

// exportValue converts a goja value to a Go value
func exportValue(val goja.Value) any {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}

func joinArgs(args []goja.Value) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, arg.String())
	}
	return strings.Join(parts, " ")
}
