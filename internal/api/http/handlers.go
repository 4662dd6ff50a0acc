package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/notebridge/internal/api/middleware"
	"github.com/GriffinCanCode/notebridge/internal/bridge"
	"github.com/GriffinCanCode/notebridge/internal/editor"
	"github.com/GriffinCanCode/notebridge/internal/infrastructure/logging"
	"github.com/GriffinCanCode/notebridge/internal/settings"
	"github.com/GriffinCanCode/notebridge/internal/shared/utils"
	"github.com/GriffinCanCode/notebridge/internal/storage"
)

var errEmptyBody = errors.New("request body required")

// Handlers contains all HTTP handlers
type Handlers struct {
	commands    *editor.Commands
	settings    *settings.Service
	store       *storage.Store
	invoker     *bridge.Invoker
	callTimeout time.Duration
	allowEval   bool
	logger      *zap.Logger
}

// Options tunes the handlers
type Options struct {
	CallTimeout time.Duration // Zero leaves calls bounded by the request only
	AllowEval   bool          // Enables POST /editor/eval
}

// NewHandlers creates a new handler set
func NewHandlers(
	commands *editor.Commands,
	settingsService *settings.Service,
	store *storage.Store,
	invoker *bridge.Invoker,
	opts Options,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		commands:    commands,
		settings:    settingsService,
		store:       store,
		invoker:     invoker,
		callTimeout: opts.CallTimeout,
		allowEval:   opts.AllowEval,
		logger:      logging.OrNop(logger),
	}
}

// Register mounts every route on r
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	ed := r.Group("/editor")
	ed.POST("/focus", h.Focus)
	ed.POST("/blur", h.Blur)
	ed.POST("/clear", h.Clear)
	ed.POST("/back", h.Back)
	ed.PUT("/session", h.SetSession)
	ed.POST("/session", h.NewSession)
	ed.PUT("/status", h.SetStatus)
	ed.PUT("/placeholder", h.SetPlaceholder)
	ed.PUT("/insets", h.SetInsets)
	ed.GET("/settings", h.EditorSettings)
	ed.PUT("/settings", h.SetEditorSettings)
	ed.PATCH("/settings", h.UpdateEditorSettings)
	ed.POST("/tags", h.SetTags)
	ed.POST("/tags/clear", h.ClearTags)
	ed.POST("/attachments", h.InsertAttachment)
	ed.PUT("/attachments/progress", h.AttachmentProgress)
	ed.POST("/images", h.InsertImage)
	ed.PUT("/images", h.UpdateImage)
	ed.POST("/eval", h.Eval)

	r.GET("/settings", h.GetSettings)
	r.PATCH("/settings", h.PatchSettings)
	r.POST("/settings/:key/toggle", h.ToggleSetting)
	r.POST("/settings/first-launch", h.FirstLaunch)

	r.GET("/tags", h.ListTags)
	r.PUT("/tags/:id", h.PutTag)
	r.DELETE("/tags/:id", h.DeleteTag)
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "notebridge",
		"version": "0.1.0",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"attached": h.invoker.Attached(),
		"pending":  h.invoker.Registry().Len(),
		"storage":  gin.H{"connected": h.store != nil},
	})
}

// callContext bounds a bridge call by the request and the call timeout
func (h *Handlers) callContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.callTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.callTimeout)
}

// done answers a completed editor command
func (h *Handlers) done(c *gin.Context, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "attached": h.invoker.Attached()})
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		status = http.StatusRequestTimeout
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	default:
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// bind decodes the JSON body into v. It answers 4xx and returns false
// when the body is missing, oversized or malformed.
func bind(c *gin.Context, v any) bool {
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	if err := utils.ValidateSize(data, utils.MaxBodySize); err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return false
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errEmptyBody.Error()})
		return false
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// bindSettings decodes a settings object and bounds its nesting
func bindSettings(c *gin.Context, s *editor.Settings) bool {
	if !bind(c, s) {
		return false
	}
	if err := utils.ValidateDepth(map[string]any(*s), utils.MaxSettingsDepth); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}
