package editor

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/notebridge/internal/bridge"
	"github.com/GriffinCanCode/notebridge/internal/infrastructure/logging"
)

// Options configures platform-specific behavior of the commands
type Options struct {
	Platform         Platform
	FocusDelay       time.Duration // Wait before the bridge focus call off Android
	NativeFocusDelay time.Duration // Wait before focusing the native input on Android
	Native           NativeInput   // Optional
	Tags             TagResolver   // Optional; without it every tag is unresolved
}

// DefaultOptions returns the timings the editor was tuned with
func DefaultOptions() Options {
	return Options{
		Platform:         PlatformIOS,
		FocusDelay:       200 * time.Millisecond,
		NativeFocusDelay: time.Millisecond,
	}
}

// Commands is the host-side API of the embedded editor. Every operation
// is built from one job; when no web view is attached the operation does
// nothing and returns without error.
type Commands struct {
	invoker *bridge.Invoker
	builder *bridge.Builder
	opts    Options
	logger  *zap.Logger
	policy  *bluemonday.Policy

	mu       sync.Mutex
	previous Settings // nil until settings are first pushed
}

// New creates the editor commands
func New(invoker *bridge.Invoker, builder *bridge.Builder, opts Options, logger *zap.Logger) *Commands {
	return &Commands{
		invoker: invoker,
		builder: builder,
		opts:    opts,
		logger:  logging.OrNop(logger),
		policy:  bluemonday.StrictPolicy(),
	}
}

// Do runs fragment in the editor and returns the value it leaves in
// response
func (c *Commands) Do(ctx context.Context, fragment string) (any, error) {
	if !c.invoker.Attached() {
		return nil, nil
	}
	return c.invoker.Call(ctx, c.builder.Build(fragment))
}

// Focus focuses the editor
func (c *Commands) Focus(ctx context.Context) error {
	if !c.invoker.Attached() {
		return nil
	}

	if c.opts.Platform == PlatformAndroid {
		if err := sleep(ctx, c.opts.NativeFocusDelay); err != nil {
			return err
		}
		if c.opts.Native != nil {
			c.opts.Native.FocusInput()
		}
		if _, err := c.Do(ctx, `editor.commands.focus();`); err != nil {
			return err
		}
		if c.opts.Native != nil {
			c.opts.Native.RequestFocus()
		}
		return nil
	}

	if err := sleep(ctx, c.opts.FocusDelay); err != nil {
		return err
	}
	_, err := c.Do(ctx, `editor.commands.focus();`)
	return err
}

// Blur removes focus from the editor and its title
func (c *Commands) Blur(ctx context.Context) error {
	_, err := c.Do(ctx, `
editor && editor.commands.blur();
typeof globalThis.editorTitle !== "undefined" && editorTitle.current && editorTitle.current.blur();`)
	return err
}

// ClearContent empties the editor, its title and status bar. The settings
// snapshot is dropped, so UpdateSettings is a no-op until SetSettings.
func (c *Commands) ClearContent(ctx context.Context) error {
	c.mu.Lock()
	c.previous = nil
	c.mu.Unlock()

	_, err := c.Do(ctx, `
editor.commands.blur();
typeof globalThis.editorTitle !== "undefined" && editorTitle.current && editorTitle.current.blur();
if (editorController.content) editorController.content.current = null;
editorController.onUpdate();
editorController.setTitle(null);
typeof globalThis.statusBar !== "undefined" && statusBar.current.set({date: "", saved: ""});`)
	return err
}

// SetSessionID sets the editor's session id. An empty id clears it.
func (c *Commands) SetSessionID(ctx context.Context, sessionID string) error {
	var v any
	if sessionID != "" {
		v = sessionID
	}
	js, err := encode(v)
	if err != nil {
		return err
	}
	_, err = c.Do(ctx, fmt.Sprintf(`globalThis.sessionId = %s;`, js))
	return err
}

// SetStatus sets the status bar's date and saved text
func (c *Commands) SetStatus(ctx context.Context, date, saved string) error {
	js, err := encode(map[string]string{"date": c.plain(date), "saved": c.plain(saved)})
	if err != nil {
		return err
	}
	_, err = c.Do(ctx, fmt.Sprintf(`typeof globalThis.statusBar !== "undefined" && statusBar.current.set(%s);`, js))
	return err
}

// SetPlaceholder sets the text shown in an empty editor
func (c *Commands) SetPlaceholder(ctx context.Context, placeholder string) error {
	js, err := encode(c.plain(placeholder))
	if err != nil {
		return err
	}
	_, err = c.Do(ctx, fmt.Sprintf(`
const element = document.querySelector(".is-editor-empty");
if (element) {
  element.setAttribute("data-placeholder", %s);
}`, js))
	return err
}

// SetInsets pushes the host's safe-area insets
func (c *Commands) SetInsets(ctx context.Context, insets EdgeInsets) error {
	c.logger.Debug("setInsets", zap.Any("insets", insets))
	js, err := encode(insets)
	if err != nil {
		return err
	}
	_, err = c.Do(ctx, fmt.Sprintf(`
if (typeof safeAreaController !== "undefined") {
  safeAreaController.update(%s);
}`, js))
	return err
}

// SetSettings replaces the settings snapshot with settings and pushes it.
// With nil settings the current snapshot is pushed again, or nothing
// happens when there is none.
func (c *Commands) SetSettings(ctx context.Context, settings Settings) error {
	c.mu.Lock()
	if settings != nil {
		c.previous = settings.Clone()
	} else if c.previous == nil {
		c.mu.Unlock()
		return nil
	}
	push := c.previous.Clone()
	c.mu.Unlock()

	c.logger.Debug("setSettings", zap.Any("settings", push))
	return c.pushSettings(ctx, push)
}

// UpdateSettings deep-merges patch into the snapshot and pushes the
// result. It is a no-op until SetSettings has been called.
func (c *Commands) UpdateSettings(ctx context.Context, patch Settings) error {
	c.mu.Lock()
	if c.previous == nil {
		c.mu.Unlock()
		return nil
	}
	c.previous = c.previous.Merge(patch)
	push := c.previous.Clone()
	c.mu.Unlock()

	return c.pushSettings(ctx, push)
}

func (c *Commands) pushSettings(ctx context.Context, settings Settings) error {
	js, err := encode(settings)
	if err != nil {
		return err
	}
	_, err = c.Do(ctx, fmt.Sprintf(`
if (typeof globalThis.settingsController !== "undefined") {
  globalThis.settingsController.update(%s);
}`, js))
	return err
}

// Snapshot returns a copy of the settings last pushed and whether there
// is one
func (c *Commands) Snapshot() (Settings, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.previous.Clone(), c.previous != nil
}

// SetTags pushes the note's resolvable tags. Ids the resolver does not
// know are skipped. A nil note does nothing.
func (c *Commands) SetTags(ctx context.Context, note *Note) error {
	if note == nil {
		return nil
	}

	tags := make([]TagRef, 0, len(note.Tags))
	for _, id := range note.Tags {
		if c.opts.Tags == nil {
			break
		}
		if ref, ok := c.opts.Tags.ResolveTag(id); ok {
			tags = append(tags, ref)
		}
	}

	js, err := encode(tags)
	if err != nil {
		return err
	}
	return c.setTags(ctx, js)
}

// ClearTags removes every tag from the editor
func (c *Commands) ClearTags(ctx context.Context) error {
	return c.setTags(ctx, "[]")
}

func (c *Commands) setTags(ctx context.Context, js string) error {
	_, err := c.Do(ctx, fmt.Sprintf(`
if (typeof editorTags !== "undefined" && editorTags.current) {
  editorTags.current.setTags(%s);
}`, js))
	return err
}

// InsertAttachment inserts an attachment at the cursor
func (c *Commands) InsertAttachment(ctx context.Context, attachment Attachment) error {
	return c.editorCommand(ctx, "insertAttachment", attachment)
}

// SetAttachmentProgress updates an attachment's transfer progress
func (c *Commands) SetAttachmentProgress(ctx context.Context, progress AttachmentProgress) error {
	return c.editorCommand(ctx, "setAttachmentProgress", progress)
}

// InsertImage inserts an image at the cursor
func (c *Commands) InsertImage(ctx context.Context, image ImageAttributes) error {
	c.logger.Debug("image data", zap.String("hash", image.Hash), zap.String("filename", image.Filename))
	return c.editorCommand(ctx, "insertImage", image)
}

// UpdateImage replaces the source of the image with the same hash
func (c *Commands) UpdateImage(ctx context.Context, image ImageAttributes) error {
	return c.editorCommand(ctx, "updateImage",
		map[string]any{"hash": image.Hash},
		map[string]any{"src": image.Src, "hash": image.Hash, "preventUpdate": true},
	)
}

func (c *Commands) editorCommand(ctx context.Context, name string, args ...any) error {
	encoded := make([]string, 0, len(args))
	for _, arg := range args {
		js, err := encode(arg)
		if err != nil {
			return err
		}
		encoded = append(encoded, js)
	}
	_, err := c.Do(ctx, fmt.Sprintf(`editor && editor.commands.%s(%s);`, name, strings.Join(encoded, ",")))
	return err
}

// HandleBack dispatches a cancelable handleBackPress event in the web view.
// It reports true when a listener canceled it, meaning the web view
// consumed the back press.
func (c *Commands) HandleBack(ctx context.Context) (bool, error) {
	v, err := c.Do(ctx, `response = !window.dispatchEvent(new Event("handleBackPress", {cancelable: true}));`)
	if err != nil {
		return false, err
	}
	canceled, _ := v.(bool)
	return canceled, nil
}

// plain strips markup from text that is displayed by the web view
func (c *Commands) plain(s string) string {
	return html.UnescapeString(c.policy.Sanitize(s))
}

// encode renders v as a JavaScript literal
func encode(v any) (string, error) {
	js, err := sonic.ConfigStd.MarshalToString(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode job argument: %w", err)
	}
	return js, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
