package webview

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/notebridge/internal/bridge"
)

func newRuntime(t *testing.T, config Config) (*Runtime, chan bridge.Message) {
	t.Helper()
	posted := make(chan bridge.Message, 16)
	rt, err := New(config, func(msg bridge.Message) bool {
		posted <- msg
		return true
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt, posted
}

func expectNoPost(t *testing.T, posted <-chan bridge.Message) {
	t.Helper()
	select {
	case msg := <-posted:
		t.Fatalf("unexpected post: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestExecute(t *testing.T) {
	rt, _ := newRuntime(t, DefaultConfig())

	tests := []struct {
		name   string
		script string
		want   any
	}{
		{name: "number", script: "40 + 2", want: int64(42)},
		{name: "string", script: "'hello'.toUpperCase()", want: "HELLO"},
		{name: "undefined", script: "undefined", want: nil},
		{name: "null", script: "null", want: nil},
		{name: "window is global", script: "window === globalThis", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := rt.Execute(context.Background(), tt.script)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Value)
		})
	}
}

func TestDangerousGlobalsRemoved(t *testing.T) {
	rt, _ := newRuntime(t, DefaultConfig())

	for _, script := range []string{"require('fs')", "process.exit(1)", "module.exports = 1"} {
		_, err := rt.Execute(context.Background(), script)
		assert.Error(t, err, script)
	}
}

func TestConsoleCapture(t *testing.T) {
	rt, _ := newRuntime(t, DefaultConfig())

	result, err := rt.Execute(context.Background(), "console.warn('low', 1); logger('info', 'a', 'b'); 2")
	require.NoError(t, err)
	require.Len(t, result.Console, 2)
	assert.Equal(t, "warn", result.Console[0].Level)
	assert.Equal(t, "low 1", result.Console[0].Message)
	assert.Equal(t, "info", result.Console[1].Level)
	assert.Equal(t, "a b", result.Console[1].Message)
}

func TestInjectPostsResponse(t *testing.T) {
	rt, posted := newRuntime(t, DefaultConfig())

	job := bridge.NewBuilder(false).BuildWithID("fn_1", "response = 1 + 1;")
	require.NoError(t, rt.Inject(job.Script()))

	select {
	case msg := <-posted:
		assert.Equal(t, "fn_1", msg.ID)
		assert.EqualValues(t, 2, msg.Value)
	case <-time.After(time.Second):
		t.Fatal("no response posted")
	}
}

func TestInjectAwaitsInsideJob(t *testing.T) {
	rt, posted := newRuntime(t, DefaultConfig())

	job := bridge.NewBuilder(false).BuildWithID("fn_2", "response = await Promise.resolve('later');")
	require.NoError(t, rt.Inject(job.Script()))

	select {
	case msg := <-posted:
		assert.Equal(t, "later", msg.Value)
	case <-time.After(time.Second):
		t.Fatal("no response posted")
	}
}

func TestThrowingFragment(t *testing.T) {
	tests := []struct {
		name    string
		dev     bool
		wantLog bool
	}{
		{name: "production swallows silently", dev: false, wantLog: false},
		{name: "development logs through logger", dev: true, wantLog: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			posted := make(chan bridge.Message, 1)
			rt, err := New(DefaultConfig(), func(msg bridge.Message) bool {
				posted <- msg
				return true
			}, zap.New(core))
			require.NoError(t, err)
			defer rt.Close()

			job := bridge.NewBuilder(tt.dev).BuildWithID("fn_3", "throw new Error('boom');")
			require.NoError(t, rt.Inject(job.Script()))
			expectNoPost(t, posted)

			// Flush the loop before inspecting logs
			_, err = rt.Execute(context.Background(), "0")
			require.NoError(t, err)

			errors := logs.FilterLevelExact(zapcore.ErrorLevel).All()
			if tt.wantLog {
				require.Len(t, errors, 1)
				assert.Contains(t, errors[0].Message, "boom")
			} else {
				assert.Empty(t, errors)
			}
		})
	}
}

func TestDispatchEvent(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   bool
	}{
		{
			name:   "no listener",
			script: `dispatchEvent(new Event("handleBackPress", {cancelable: true}))`,
			want:   true,
		},
		{
			name: "listener cancels",
			script: `addEventListener("back1", function (e) { e.preventDefault(); });
window.dispatchEvent(new Event("back1", {cancelable: true}))`,
			want: false,
		},
		{
			name: "non-cancelable event ignores preventDefault",
			script: `addEventListener("back2", function (e) { e.preventDefault(); });
dispatchEvent(new Event("back2"))`,
			want: true,
		},
		{
			name: "removed listener",
			script: `var h = function (e) { e.preventDefault(); };
addEventListener("back3", h);
removeEventListener("back3", h);
dispatchEvent(new Event("back3", {cancelable: true}))`,
			want: true,
		},
		{
			name: "throwing listener does not stop dispatch",
			script: `addEventListener("back4", function () { throw new Error("x"); });
addEventListener("back4", function (e) { e.preventDefault(); });
dispatchEvent(new Event("back4", {cancelable: true}))`,
			want: false,
		},
	}

	rt, _ := newRuntime(t, DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := rt.Execute(context.Background(), tt.script)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Value)
		})
	}
}

func TestQuerySelector(t *testing.T) {
	rt, _ := newRuntime(t, DefaultConfig())
	elem := NewElement("p", "", "paragraph is-editor-empty")
	rt.DOM().Append(elem)

	result, err := rt.Execute(context.Background(), `
const el = document.querySelector(".is-editor-empty");
el.setAttribute("data-placeholder", "Start writing");
[el.getAttribute("data-placeholder"), el.getAttribute("missing"), document.querySelector(".nothing")]`)
	require.NoError(t, err)
	assert.Equal(t, []any{"Start writing", nil, nil}, result.Value)

	value, ok := rt.DOM().Attribute(elem, "data-placeholder")
	assert.True(t, ok)
	assert.Equal(t, "Start writing", value)

	changes := rt.DOM().Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, DOMChange{Selector: ".is-editor-empty", Property: "data-placeholder", Value: "Start writing"}, changes[0])
}

func TestSetTimeout(t *testing.T) {
	rt, posted := newRuntime(t, DefaultConfig())

	_, err := rt.Execute(context.Background(), `setTimeout(function (v) { post("timer", v); }, 10, "fired")`)
	require.NoError(t, err)

	select {
	case msg := <-posted:
		assert.Equal(t, bridge.Message{ID: "timer", Value: "fired"}, msg)
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestClearTimeout(t *testing.T) {
	rt, posted := newRuntime(t, DefaultConfig())

	_, err := rt.Execute(context.Background(), `clearTimeout(setTimeout(function () { post("timer", 1); }, 10))`)
	require.NoError(t, err)
	expectNoPost(t, posted)
}

func TestExecutionTimeout(t *testing.T) {
	config := DefaultConfig()
	config.Timeout = 50 * time.Millisecond
	rt, _ := newRuntime(t, config)

	_, err := rt.Execute(context.Background(), "for (;;) {}")
	assert.ErrorIs(t, err, ErrTimeout)

	// The VM stays usable after an interrupt
	result, err := rt.Execute(context.Background(), "'alive'")
	require.NoError(t, err)
	assert.Equal(t, "alive", result.Value)
}

func TestBootstrap(t *testing.T) {
	config := DefaultConfig()
	config.Bootstrap = `var editor = { focused: false, commands: { focus: function () { editor.focused = true; } } };`
	rt, _ := newRuntime(t, config)

	_, err := rt.Execute(context.Background(), "editor.commands.focus()")
	require.NoError(t, err)
	result, err := rt.Execute(context.Background(), "editor.focused")
	require.NoError(t, err)
	assert.Equal(t, true, result.Value)

	config.Bootstrap = "this is not javascript"
	_, err = New(config, nil, nil)
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	rt, err := New(DefaultConfig(), nil, nil)
	require.NoError(t, err)

	require.NoError(t, rt.Close())
	require.NoError(t, rt.Close())

	assert.ErrorIs(t, rt.Inject("1"), ErrClosed)
	_, err = rt.Execute(context.Background(), "1")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestInvokerRoundTrip(t *testing.T) {
	inv := bridge.NewInvoker(bridge.NewRegistry(), nil)
	rt, err := New(DefaultConfig(), inv.Deliver, nil)
	require.NoError(t, err)
	defer rt.Close()
	inv.Attach(rt)

	b := bridge.NewBuilder(false)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	v, err := inv.Call(ctx, b.Build("response = {ok: true, n: 3};"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true, "n": int64(3)}, v)

	v, err = inv.Call(ctx, b.Build("response = !window.dispatchEvent(new Event('handleBackPress', {cancelable: true}));"))
	require.NoError(t, err)
	assert.Equal(t, false, v)
	assert.Equal(t, 0, inv.Registry().Len())
}

type blockingInterrupter struct {
	entered chan struct{}
	release chan struct{}
	events  []string
	mu      sync.Mutex
}

func (b *blockingInterrupter) Interrupt(v any) {
	close(b.entered)
	<-b.release
	b.mu.Lock()
	b.events = append(b.events, "interrupt")
	b.mu.Unlock()
}

func (b *blockingInterrupter) ClearInterrupt() {
	b.mu.Lock()
	b.events = append(b.events, "clear")
	b.mu.Unlock()
}

func TestInterruptAfterWaitsForFiringCallback(t *testing.T) {
	vm := &blockingInterrupter{entered: make(chan struct{}), release: make(chan struct{})}
	stop := interruptAfter(vm, time.Millisecond)
	<-vm.entered

	stopped := make(chan struct{})
	go func() {
		stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("stop returned while the timeout callback was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(vm.release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stop did not return")
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	assert.Equal(t, []string{"interrupt", "clear"}, vm.events)
}

func TestInterruptAfterStoppedEarly(t *testing.T) {
	vm := &blockingInterrupter{entered: make(chan struct{}), release: make(chan struct{})}
	interruptAfter(vm, time.Hour)()

	vm.mu.Lock()
	defer vm.mu.Unlock()
	assert.Equal(t, []string{"clear"}, vm.events)
}
