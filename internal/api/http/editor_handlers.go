package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/notebridge/internal/editor"
	"github.com/GriffinCanCode/notebridge/internal/shared/id"
	"github.com/GriffinCanCode/notebridge/internal/shared/utils"
)

// SessionRequest sets the editor's session id
type SessionRequest struct {
	SessionID string `json:"session_id"`
}

// StatusRequest sets the status bar text
type StatusRequest struct {
	Date  string `json:"date"`
	Saved string `json:"saved"`
}

// PlaceholderRequest sets the empty-editor placeholder
type PlaceholderRequest struct {
	Placeholder string `json:"placeholder"`
}

// EvalRequest runs a raw fragment in the editor
type EvalRequest struct {
	Script string `json:"script"`
}

// Focus focuses the editor
func (h *Handlers) Focus(c *gin.Context) {
	ctx, cancel := h.callContext(c)
	defer cancel()
	h.done(c, h.commands.Focus(ctx))
}

// Blur blurs the editor
func (h *Handlers) Blur(c *gin.Context) {
	ctx, cancel := h.callContext(c)
	defer cancel()
	h.done(c, h.commands.Blur(ctx))
}

// Clear empties the editor
func (h *Handlers) Clear(c *gin.Context) {
	ctx, cancel := h.callContext(c)
	defer cancel()
	h.done(c, h.commands.ClearContent(ctx))
}

// Back offers a back press to the editor
func (h *Handlers) Back(c *gin.Context) {
	ctx, cancel := h.callContext(c)
	defer cancel()

	handled, err := h.commands.HandleBack(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"handled": handled, "attached": h.invoker.Attached()})
}

// SetSession sets or, with an empty id, clears the session id
func (h *Handlers) SetSession(c *gin.Context) {
	var req SessionRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := h.callContext(c)
	defer cancel()
	h.done(c, h.commands.SetSessionID(ctx, req.SessionID))
}

// NewSession mints a session id and sets it
func (h *Handlers) NewSession(c *gin.Context) {
	ctx, cancel := h.callContext(c)
	defer cancel()

	sessionID := id.NewSessionID().String()
	if err := h.commands.SetSessionID(ctx, sessionID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session_id": sessionID, "attached": h.invoker.Attached()})
}

// SetStatus sets the status bar
func (h *Handlers) SetStatus(c *gin.Context) {
	var req StatusRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := h.callContext(c)
	defer cancel()
	h.done(c, h.commands.SetStatus(ctx, req.Date, req.Saved))
}

// SetPlaceholder sets the placeholder text
func (h *Handlers) SetPlaceholder(c *gin.Context) {
	var req PlaceholderRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := h.callContext(c)
	defer cancel()
	h.done(c, h.commands.SetPlaceholder(ctx, req.Placeholder))
}

// SetInsets pushes safe-area insets
func (h *Handlers) SetInsets(c *gin.Context) {
	var insets editor.EdgeInsets
	if !bind(c, &insets) {
		return
	}
	ctx, cancel := h.callContext(c)
	defer cancel()
	h.done(c, h.commands.SetInsets(ctx, insets))
}

// EditorSettings returns the snapshot last pushed to the editor
func (h *Handlers) EditorSettings(c *gin.Context) {
	snapshot, ok := h.commands.Snapshot()
	c.JSON(http.StatusOK, gin.H{"initialized": ok, "settings": snapshot})
}

// SetEditorSettings replaces the editor snapshot. A null body pushes the
// current snapshot again.
func (h *Handlers) SetEditorSettings(c *gin.Context) {
	var s editor.Settings
	if !bindSettings(c, &s) {
		return
	}
	ctx, cancel := h.callContext(c)
	defer cancel()
	h.done(c, h.commands.SetSettings(ctx, s))
}

// UpdateEditorSettings merges the body into the editor snapshot
func (h *Handlers) UpdateEditorSettings(c *gin.Context) {
	var patch editor.Settings
	if !bindSettings(c, &patch) {
		return
	}
	ctx, cancel := h.callContext(c)
	defer cancel()
	h.done(c, h.commands.UpdateSettings(ctx, patch))
}

// SetTags pushes a note's tags
func (h *Handlers) SetTags(c *gin.Context) {
	var note editor.Note
	if !bind(c, &note) {
		return
	}
	ctx, cancel := h.callContext(c)
	defer cancel()
	h.done(c, h.commands.SetTags(ctx, &note))
}

// ClearTags removes every tag from the editor
func (h *Handlers) ClearTags(c *gin.Context) {
	ctx, cancel := h.callContext(c)
	defer cancel()
	h.done(c, h.commands.ClearTags(ctx))
}

// InsertAttachment inserts an attachment
func (h *Handlers) InsertAttachment(c *gin.Context) {
	var attachment editor.Attachment
	if !bind(c, &attachment) {
		return
	}
	ctx, cancel := h.callContext(c)
	defer cancel()
	h.done(c, h.commands.InsertAttachment(ctx, attachment))
}

// AttachmentProgress reports attachment transfer progress
func (h *Handlers) AttachmentProgress(c *gin.Context) {
	var progress editor.AttachmentProgress
	if !bind(c, &progress) {
		return
	}
	ctx, cancel := h.callContext(c)
	defer cancel()
	h.done(c, h.commands.SetAttachmentProgress(ctx, progress))
}

// InsertImage inserts an image
func (h *Handlers) InsertImage(c *gin.Context) {
	var image editor.ImageAttributes
	if !bind(c, &image) {
		return
	}
	ctx, cancel := h.callContext(c)
	defer cancel()
	h.done(c, h.commands.InsertImage(ctx, image))
}

// UpdateImage updates an image's source
func (h *Handlers) UpdateImage(c *gin.Context) {
	var image editor.ImageAttributes
	if !bind(c, &image) {
		return
	}
	if image.Hash == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hash is required"})
		return
	}
	ctx, cancel := h.callContext(c)
	defer cancel()
	h.done(c, h.commands.UpdateImage(ctx, image))
}

// Eval runs a raw fragment and returns its response value
func (h *Handlers) Eval(c *gin.Context) {
	if !h.allowEval {
		c.JSON(http.StatusForbidden, gin.H{"error": "eval is disabled"})
		return
	}

	var req EvalRequest
	if !bind(c, &req) {
		return
	}
	if req.Script == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "script is required"})
		return
	}
	if err := utils.ValidateSize([]byte(req.Script), utils.MaxScriptSize); err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := h.callContext(c)
	defer cancel()

	value, err := h.commands.Do(ctx, req.Script)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": value, "attached": h.invoker.Attached()})
}
