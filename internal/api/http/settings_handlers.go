package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/notebridge/internal/editor"
	"github.com/GriffinCanCode/notebridge/internal/shared/utils"
	"github.com/GriffinCanCode/notebridge/internal/storage"
)

// TagRequest is the body of PUT /tags/:id
type TagRequest struct {
	Title string `json:"title"`
	Alias string `json:"alias"`
}

// GetSettings returns the app settings
func (h *Handlers) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"settings": h.settings.Get()})
}

// PatchSettings merges the body into the app settings. The editor's own
// settings snapshot is managed through /editor/settings.
func (h *Handlers) PatchSettings(c *gin.Context) {
	var patch editor.Settings
	if !bindSettings(c, &patch) {
		return
	}
	if patch == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "settings object required"})
		return
	}

	next, err := h.settings.Set(patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": next})
}

// ToggleSetting flips a boolean setting
func (h *Handlers) ToggleSetting(c *gin.Context) {
	key := c.Param("key")
	if _, ok := h.settings.Get()[key].(bool); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not a boolean setting: " + key})
		return
	}

	value, err := h.settings.Toggle(key)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}

// FirstLaunch schedules the first rating and backup prompts
func (h *Handlers) FirstLaunch(c *gin.Context) {
	if err := h.settings.OnFirstLaunch(); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": h.settings.Get()})
}

// ListTags lists stored tags
func (h *Handlers) ListTags(c *gin.Context) {
	tags, err := h.store.Tags()
	if err != nil {
		h.fail(c, err)
		return
	}
	if tags == nil {
		tags = []storage.Tag{}
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags, "count": len(tags)})
}

// PutTag creates or replaces a tag
func (h *Handlers) PutTag(c *gin.Context) {
	var req TagRequest
	if !bind(c, &req) {
		return
	}
	tag := storage.Tag{ID: c.Param("id"), Title: req.Title, Alias: req.Alias}
	if err := utils.ValidateID(tag.ID, "id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateTitle(tag.Title, "title", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.PutTag(tag); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tag": tag})
}

// DeleteTag deletes a tag
func (h *Handlers) DeleteTag(c *gin.Context) {
	err := h.store.DeleteTag(c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "tag not found"})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
