package editor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/notebridge/internal/bridge"
	"github.com/GriffinCanCode/notebridge/internal/bridge/bridgetest"
	"github.com/GriffinCanCode/notebridge/internal/webview"
)

// editorStub stands in for the editor bundle and records every call it gets
const editorStub = `
var calls = [];
function record(name) {
  return function () {
    calls.push({name: name, args: Array.prototype.slice.call(arguments)});
  };
}
var editor = {
  commands: {
    focus: record("focus"),
    blur: record("blur"),
    insertAttachment: record("insertAttachment"),
    setAttachmentProgress: record("setAttachmentProgress"),
    insertImage: record("insertImage"),
    updateImage: record("updateImage")
  }
};
var editorTitle = { current: { blur: record("title.blur") } };
var editorController = { content: { current: "text" }, onUpdate: record("onUpdate"), setTitle: record("setTitle") };
var statusBar = { current: { set: record("status.set") } };
var safeAreaController = { update: record("insets") };
var settingsController = { update: record("settings") };
var editorTags = { current: { setTags: record("tags") } };
`

type recordedCall struct {
	Name string `json:"name"`
	Args []any  `json:"args"`
}

type harness struct {
	commands *Commands
	invoker  *bridge.Invoker
	runtime  *webview.Runtime
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()

	inv := bridge.NewInvoker(bridge.NewRegistry(), nil)
	config := webview.DefaultConfig()
	config.Bootstrap = editorStub
	rt, err := webview.New(config, inv.Deliver, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	inv.Attach(rt)

	return &harness{
		commands: New(inv, bridge.NewBuilder(true), opts, nil),
		invoker:  inv,
		runtime:  rt,
	}
}

func fastOptions() Options {
	opts := DefaultOptions()
	opts.FocusDelay = 0
	opts.NativeFocusDelay = 0
	return opts
}

func (h *harness) eval(t *testing.T, script string) any {
	t.Helper()
	result, err := h.runtime.Execute(context.Background(), script)
	require.NoError(t, err)
	return result.Value
}

// drain returns and clears everything the stub recorded
func (h *harness) drain(t *testing.T) []recordedCall {
	t.Helper()
	raw, ok := h.eval(t, "JSON.stringify(calls.splice(0))").(string)
	require.True(t, ok)

	var calls []recordedCall
	require.NoError(t, sonic.UnmarshalString(raw, &calls))
	return calls
}

func (h *harness) only(t *testing.T, name string) recordedCall {
	t.Helper()
	calls := h.drain(t)
	require.Len(t, calls, 1, "calls: %+v", calls)
	require.Equal(t, name, calls[0].Name)
	return calls[0]
}

func ctxT(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestDetachedCommandsDoNothing(t *testing.T) {
	inv := bridge.NewInvoker(bridge.NewRegistry(), nil)
	opts := DefaultOptions()
	opts.FocusDelay = time.Hour
	c := New(inv, bridge.NewBuilder(false), opts, nil)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, c.Focus(ctx))
	require.NoError(t, c.Blur(ctx))
	require.NoError(t, c.ClearContent(ctx))
	require.NoError(t, c.SetSettings(ctx, Settings{"a": 1}))
	require.NoError(t, c.SetTags(ctx, &Note{Tags: []string{"t"}}))
	require.NoError(t, c.InsertImage(ctx, ImageAttributes{Hash: "h"}))

	back, err := c.HandleBack(ctx)
	require.NoError(t, err)
	assert.False(t, back)

	v, err := c.Do(ctx, "response = 1;")
	require.NoError(t, err)
	assert.Nil(t, v)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 0, inv.Registry().Len())
}

func TestDo(t *testing.T) {
	h := newHarness(t, fastOptions())

	v, err := h.commands.Do(ctxT(t), "response = 6 * 7;")
	require.NoError(t, err)
	assert.EqualValues(t, 42, v)

	v, err = h.commands.Do(ctxT(t), "editor.commands.focus();")
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestDoThrowingFragmentWaitsForCaller(t *testing.T) {
	h := newHarness(t, fastOptions())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := h.commands.Do(ctx, "throw new Error('editor not ready');")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, h.invoker.Registry().Len())
}

func TestFocusNonAndroid(t *testing.T) {
	opts := fastOptions()
	opts.FocusDelay = 30 * time.Millisecond
	native := &fakeNative{}
	opts.Native = native
	h := newHarness(t, opts)

	start := time.Now()
	require.NoError(t, h.commands.Focus(ctxT(t)))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	h.only(t, "focus")
	assert.Empty(t, native.events())
}

func TestFocusAndroidOrder(t *testing.T) {
	native := &fakeNative{}
	inv := bridge.NewInvoker(bridge.NewRegistry(), nil)
	inv.Attach(bridgetest.New(inv, func(script string) (any, bool) {
		native.add("bridge")
		return true, true
	}))

	opts := fastOptions()
	opts.Platform = PlatformAndroid
	opts.Native = native
	c := New(inv, bridge.NewBuilder(false), opts, nil)

	require.NoError(t, c.Focus(ctxT(t)))
	assert.Equal(t, []string{"focusInput", "bridge", "requestFocus"}, native.events())
}

func TestFocusCanceledDuringDelay(t *testing.T) {
	inv := bridge.NewInvoker(bridge.NewRegistry(), nil)
	ec := bridgetest.New(inv, bridgetest.Always(true))
	inv.Attach(ec)

	opts := DefaultOptions()
	opts.FocusDelay = time.Hour
	c := New(inv, bridge.NewBuilder(false), opts, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Focus(ctx), context.Canceled)
	assert.Equal(t, 0, ec.Count())
}

func TestBlur(t *testing.T) {
	h := newHarness(t, fastOptions())

	require.NoError(t, h.commands.Blur(ctxT(t)))
	calls := h.drain(t)
	require.Len(t, calls, 2)
	assert.Equal(t, "blur", calls[0].Name)
	assert.Equal(t, "title.blur", calls[1].Name)
}

func TestClearContent(t *testing.T) {
	h := newHarness(t, fastOptions())

	require.NoError(t, h.commands.ClearContent(ctxT(t)))

	calls := h.drain(t)
	names := make([]string, 0, len(calls))
	for _, c := range calls {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"blur", "title.blur", "onUpdate", "setTitle", "status.set"}, names)
	assert.Equal(t, []any{nil}, calls[3].Args)
	assert.Equal(t, []any{map[string]any{"date": "", "saved": ""}}, calls[4].Args)
	assert.Nil(t, h.eval(t, "editorController.content.current"))
}

func TestSettingsStateMachine(t *testing.T) {
	h := newHarness(t, fastOptions())
	ctx := ctxT(t)
	c := h.commands

	// Uninitialized: nothing to push or merge into
	require.NoError(t, c.SetSettings(ctx, nil))
	require.NoError(t, c.UpdateSettings(ctx, Settings{"fontSize": 18}))
	assert.Empty(t, h.drain(t))
	_, ok := c.Snapshot()
	assert.False(t, ok)

	full := Settings{
		"fontSize": 16,
		"theme":    map[string]any{"accent": "#008837", "dark": true},
	}
	require.NoError(t, c.SetSettings(ctx, full))
	call := h.only(t, "settings")
	assert.Equal(t, []any{map[string]any{
		"fontSize": float64(16),
		"theme":    map[string]any{"accent": "#008837", "dark": true},
	}}, call.Args)

	require.NoError(t, c.UpdateSettings(ctx, Settings{"theme": map[string]any{"dark": false}}))
	call = h.only(t, "settings")
	assert.Equal(t, []any{map[string]any{
		"fontSize": float64(16),
		"theme":    map[string]any{"accent": "#008837", "dark": false},
	}}, call.Args)

	snapshot, ok := c.Snapshot()
	require.True(t, ok)
	assert.Equal(t, full.Merge(Settings{"theme": map[string]any{"dark": false}}), snapshot)

	// No argument re-pushes the snapshot
	require.NoError(t, c.SetSettings(ctx, nil))
	h.only(t, "settings")

	// Clearing content drops the snapshot
	require.NoError(t, c.ClearContent(ctx))
	h.drain(t)
	_, ok = c.Snapshot()
	assert.False(t, ok)

	require.NoError(t, c.UpdateSettings(ctx, Settings{"fontSize": 20}))
	assert.Empty(t, h.drain(t))
}

func TestSnapshotIsACopy(t *testing.T) {
	h := newHarness(t, fastOptions())
	require.NoError(t, h.commands.SetSettings(ctxT(t), Settings{"a": map[string]any{"b": 1}}))

	snapshot, _ := h.commands.Snapshot()
	snapshot["a"].(map[string]any)["b"] = 2

	again, _ := h.commands.Snapshot()
	assert.Equal(t, 1, again["a"].(map[string]any)["b"])
}

func TestSetTags(t *testing.T) {
	opts := fastOptions()
	opts.Tags = fakeTags{
		"t1": {Title: "Work", Alias: "work"},
		"t2": {Title: "Ideas", Alias: "ideas"},
	}
	h := newHarness(t, opts)
	ctx := ctxT(t)

	require.NoError(t, h.commands.SetTags(ctx, nil))
	assert.Empty(t, h.drain(t))

	require.NoError(t, h.commands.SetTags(ctx, &Note{ID: "n1", Tags: []string{"t1", "deleted", "t2"}}))
	call := h.only(t, "tags")
	assert.Equal(t, []any{[]any{
		map[string]any{"title": "Work", "alias": "work"},
		map[string]any{"title": "Ideas", "alias": "ideas"},
	}}, call.Args)

	require.NoError(t, h.commands.SetTags(ctx, &Note{ID: "n2"}))
	assert.Equal(t, []any{[]any{}}, h.only(t, "tags").Args)

	require.NoError(t, h.commands.ClearTags(ctx))
	assert.Equal(t, []any{[]any{}}, h.only(t, "tags").Args)
}

func TestSetStatusAndPlaceholderStripMarkup(t *testing.T) {
	h := newHarness(t, fastOptions())
	ctx := ctxT(t)

	require.NoError(t, h.commands.SetStatus(ctx, "<i>Today</i>", "Saved"))
	assert.Equal(t, []any{map[string]any{"date": "Today", "saved": "Saved"}}, h.only(t, "status.set").Args)

	elem := webview.NewElement("p", "", "is-editor-empty")
	h.runtime.DOM().Append(elem)
	require.NoError(t, h.commands.SetPlaceholder(ctx, `Start <b>writing</b> & "save"`))

	value, ok := h.runtime.DOM().Attribute(elem, "data-placeholder")
	require.True(t, ok)
	assert.Equal(t, `Start writing & "save"`, value)
}

func TestSetSessionID(t *testing.T) {
	h := newHarness(t, fastOptions())
	ctx := ctxT(t)

	require.NoError(t, h.commands.SetSessionID(ctx, "sess_1"))
	assert.Equal(t, "sess_1", h.eval(t, "sessionId"))

	hostile := `"; globalThis.pwned = true; "`
	require.NoError(t, h.commands.SetSessionID(ctx, hostile))
	assert.Equal(t, hostile, h.eval(t, "sessionId"))
	assert.Equal(t, "undefined", h.eval(t, "typeof pwned"))

	require.NoError(t, h.commands.SetSessionID(ctx, ""))
	assert.Nil(t, h.eval(t, "sessionId"))
}

func TestSetInsets(t *testing.T) {
	h := newHarness(t, fastOptions())

	require.NoError(t, h.commands.SetInsets(ctxT(t), EdgeInsets{Top: 44, Bottom: 34}))
	assert.Equal(t, []any{map[string]any{
		"top": float64(44), "right": float64(0), "bottom": float64(34), "left": float64(0),
	}}, h.only(t, "insets").Args)
}

func TestAttachmentsAndImages(t *testing.T) {
	h := newHarness(t, fastOptions())
	ctx := ctxT(t)

	require.NoError(t, h.commands.InsertAttachment(ctx, Attachment{Hash: "abc", Filename: "a.pdf", Type: "application/pdf", Size: 1024}))
	assert.Equal(t, []any{map[string]any{
		"hash": "abc", "filename": "a.pdf", "type": "application/pdf", "size": float64(1024),
	}}, h.only(t, "insertAttachment").Args)

	require.NoError(t, h.commands.SetAttachmentProgress(ctx, AttachmentProgress{Hash: "abc", Type: "upload", Total: 10, Loaded: 5}))
	assert.Equal(t, []any{map[string]any{
		"hash": "abc", "type": "upload", "total": float64(10), "loaded": float64(5),
	}}, h.only(t, "setAttachmentProgress").Args)

	require.NoError(t, h.commands.InsertImage(ctx, ImageAttributes{Src: "data:image/png;base64,AA", Hash: "img", Width: 10}))
	assert.Equal(t, []any{map[string]any{
		"src": "data:image/png;base64,AA", "hash": "img", "width": float64(10),
	}}, h.only(t, "insertImage").Args)

	require.NoError(t, h.commands.UpdateImage(ctx, ImageAttributes{Src: "file://img.png", Hash: "img", Alt: "ignored"}))
	assert.Equal(t, []any{
		map[string]any{"hash": "img"},
		map[string]any{"src": "file://img.png", "hash": "img", "preventUpdate": true},
	}, h.only(t, "updateImage").Args)
}

func TestHandleBack(t *testing.T) {
	h := newHarness(t, fastOptions())
	ctx := ctxT(t)

	back, err := h.commands.HandleBack(ctx)
	require.NoError(t, err)
	assert.False(t, back)

	h.eval(t, `addEventListener("handleBackPress", function (e) { e.preventDefault(); });`)

	back, err = h.commands.HandleBack(ctx)
	require.NoError(t, err)
	assert.True(t, back)
}

type fakeNative struct {
	mu  sync.Mutex
	log []string
}

func (f *fakeNative) add(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, event)
}

func (f *fakeNative) events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.log...)
}

func (f *fakeNative) FocusInput()   { f.add("focusInput") }
func (f *fakeNative) RequestFocus() { f.add("requestFocus") }

type fakeTags map[string]TagRef

func (f fakeTags) ResolveTag(id string) (TagRef, bool) {
	ref, ok := f[id]
	return ref, ok
}
