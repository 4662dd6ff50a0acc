package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/notebridge/internal/bridge"
	"github.com/GriffinCanCode/notebridge/internal/infrastructure/logging"
	"github.com/GriffinCanCode/notebridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/notebridge/internal/shared/id"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Message types on the wire
const (
	TypeAttached = "attached"
	TypeInject   = "inject"
	TypeResponse = "response"
	TypeLog      = "log"
	TypePing     = "ping"
	TypePong     = "pong"
	TypeError    = "error"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // The web view is served from a file or app origin
	},
}

// Inbound is a message sent by the web view
type Inbound struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Value   any    `json:"value,omitempty"`
	Level   string `json:"level,omitempty"`
	Message string `json:"message,omitempty"`
}

// Outbound is a message sent to the web view
type Outbound struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Script  string `json:"script,omitempty"`
	Message string `json:"message,omitempty"`
}

// Handler attaches remote web views to the invoker
type Handler struct {
	invoker *bridge.Invoker
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(invoker *bridge.Invoker, metrics *monitoring.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		invoker: invoker,
		metrics: metrics,
		logger:  logging.OrNop(logger),
	}
}

// HandleConnection upgrades the request and makes the connection the
// attached execution context until it closes
func (h *Handler) HandleConnection(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	conn := &Conn{
		id:      id.NewConnectionID(),
		ws:      ws,
		metrics: h.metrics,
		done:    make(chan struct{}),
	}
	logger := h.logger.With(zap.String("conn", conn.id.String()))

	h.invoker.Attach(conn)
	logger.Info("web view attached")

	defer func() {
		conn.close()
		if h.invoker.Detach(conn) {
			logger.Info("web view detached")
		}
	}()

	if err := conn.send(Outbound{Type: TypeAttached, ID: conn.id.String()}); err != nil {
		logger.Warn("WebSocket write failed", zap.Error(err))
		return
	}

	go conn.keepalive(logger)
	h.readLoop(conn, logger)
}

func (h *Handler) readLoop(conn *Conn, logger *zap.Logger) {
	conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}

		var msg Inbound
		if err := sonic.Unmarshal(data, &msg); err != nil {
			logger.Debug("malformed web view message", zap.Error(err))
			conn.send(Outbound{Type: TypeError, Message: "malformed message"})
			continue
		}
		h.record("in", msg.Type)

		switch msg.Type {
		case TypeResponse:
			h.invoker.Deliver(bridge.Message{ID: msg.ID, Value: msg.Value})
		case TypeLog:
			webviewLog(logger, msg.Level, msg.Message)
		case TypePing:
			conn.send(Outbound{Type: TypePong})
		default:
			conn.send(Outbound{Type: TypeError, Message: "unknown message type"})
		}
	}
}

func (h *Handler) record(direction, msgType string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage(direction, msgType)
	}
}

func webviewLog(logger *zap.Logger, level, msg string) {
	switch level {
	case "error":
		logger.Error(msg, zap.String("source", "webview"))
	case "warn":
		logger.Warn(msg, zap.String("source", "webview"))
	case "info":
		logger.Info(msg, zap.String("source", "webview"))
	default:
		logger.Debug(msg, zap.String("source", "webview"))
	}
}

// Conn is a remote web view. Writes are serialized; reads belong to the
// handler's read loop.
type Conn struct {
	id      id.ConnectionID
	ws      *websocket.Conn
	metrics *monitoring.Metrics

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// ID returns the connection id
func (c *Conn) ID() id.ConnectionID {
	return c.id
}

// Inject sends script to the web view. It returns once the frame is
// written.
func (c *Conn) Inject(script string) error {
	return c.send(Outbound{Type: TypeInject, Script: script})
}

func (c *Conn) send(msg Outbound) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.done:
		return websocket.ErrCloseSent
	default:
	}

	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.RecordWSMessage("out", msg.Type)
	}
	return nil
}

func (c *Conn) keepalive(logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				logger.Debug("WebSocket ping failed", zap.Error(err))
				return
			}
		}
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		close(c.done)
		c.writeMu.Unlock()
		c.ws.Close()
	})
}
