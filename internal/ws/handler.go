package ws

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/vfs/watch"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 << 10
	bufferSize     = 64
)

// Watcher is the registration surface the stream needs
type Watcher interface {
	Subscribe(folder string, listener watch.Listener)
	Unsubscribe(folder string, listener watch.Listener) bool
}

// ClientMessage is a message sent by the browser
type ClientMessage struct {
	Type   string `json:"type"`
	Folder string `json:"folder,omitempty"`
}

// ServerMessage is a message pushed to the browser
type ServerMessage struct {
	Type           string `json:"type"`
	ConnectionID   string `json:"connection_id,omitempty"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	Folder         string `json:"folder,omitempty"`
	Added          string `json:"added,omitempty"`
	Removed        string `json:"removed,omitempty"`
	Refresh        bool   `json:"refresh,omitempty"`
	Message        string `json:"message,omitempty"`
	Timestamp      int64  `json:"timestamp"`
}

// Handler manages WebSocket connections
type Handler struct {
	watcher  Watcher
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler
func NewHandler(watcher Watcher, metrics *monitoring.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		watcher: watcher,
		metrics: metrics,
		logger:  logger,
	}
}

// WithAllowedOrigins restricts upgrades to browsers from origins. "*"
// accepts any origin. Requests without an Origin header are not from a
// browser and are always accepted. Without this only same-host origins
// may connect.
func (h *Handler) WithAllowedOrigins(origins []string) *Handler {
	h.upgrader.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, allowed := range origins {
			if allowed == "*" || strings.EqualFold(allowed, origin) {
				return true
			}
		}
		return false
	}
	return h
}

// connection is the per-socket state
type connection struct {
	id       string
	conn     *websocket.Conn
	listener *watch.ChannelListener

	writeMu sync.Mutex

	mu            sync.Mutex
	subscriptions map[string]id.SubscriptionID
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	conn := &connection{
		id:            uuid.NewString(),
		conn:          ws,
		listener:      watch.NewChannelListener(bufferSize),
		subscriptions: make(map[string]id.SubscriptionID),
	}
	logger := h.logger.With(zap.String("connection_id", conn.id))

	h.metrics.IncWSConnections()
	logger.Debug("WebSocket connected")

	ctx, cancel := context.WithCancel(c.Request.Context())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		h.unsubscribeAll(conn)
		_ = ws.Close()
		wg.Wait()
		h.metrics.DecWSConnections()
		logger.Debug("WebSocket disconnected")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.pump(ctx, conn)
	}()

	h.send(conn, ServerMessage{Type: "system", ConnectionID: conn.id, Message: "connected"})

	ws.SetReadLimit(maxMessageSize)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}

		var msg ClientMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.sendError(conn, "malformed message")
			continue
		}
		h.metrics.RecordWSMessage("in", msg.Type)

		switch msg.Type {
		case "subscribe":
			h.handleSubscribe(conn, msg.Folder)
		case "unsubscribe":
			h.handleUnsubscribe(conn, msg.Folder)
		case "ping":
			h.send(conn, ServerMessage{Type: "pong"})
		default:
			h.sendError(conn, "unknown message type")
		}
	}
}

func (h *Handler) handleSubscribe(conn *connection, folder string) {
	if folder == "" {
		h.sendError(conn, "folder is required")
		return
	}
	folder = paths.Clean(folder)

	conn.mu.Lock()
	sub, exists := conn.subscriptions[folder]
	if !exists {
		sub = id.NewSubscriptionID()
		conn.subscriptions[folder] = sub
	}
	conn.mu.Unlock()

	if !exists {
		h.watcher.Subscribe(folder, conn.listener)
	}
	h.send(conn, ServerMessage{Type: "subscribed", Folder: folder, SubscriptionID: sub.String()})
}

func (h *Handler) handleUnsubscribe(conn *connection, folder string) {
	folder = paths.Clean(folder)

	conn.mu.Lock()
	sub, exists := conn.subscriptions[folder]
	delete(conn.subscriptions, folder)
	conn.mu.Unlock()

	if !exists {
		h.sendError(conn, "not subscribed to "+folder)
		return
	}
	h.watcher.Unsubscribe(folder, conn.listener)
	h.send(conn, ServerMessage{Type: "unsubscribed", Folder: folder, SubscriptionID: sub.String()})
}

func (h *Handler) unsubscribeAll(conn *connection) {
	conn.mu.Lock()
	folders := make([]string, 0, len(conn.subscriptions))
	for folder := range conn.subscriptions {
		folders = append(folders, folder)
	}
	conn.subscriptions = make(map[string]id.SubscriptionID)
	conn.mu.Unlock()

	for _, folder := range folders {
		h.watcher.Unsubscribe(folder, conn.listener)
	}
}

// pump forwards queued changes until ctx ends
func (h *Handler) pump(ctx context.Context, conn *connection) {
	for {
		change, err := conn.listener.Next(ctx)
		if err != nil {
			return
		}
		msg := ServerMessage{
			Type:    "change",
			Folder:  change.Folder,
			Added:   change.Added,
			Removed: change.Removed,
			Refresh: change.Refresh(),
		}
		if err := h.send(conn, msg); err != nil {
			return
		}
	}
}

func (h *Handler) send(conn *connection, msg ServerMessage) error {
	msg.Timestamp = time.Now().Unix()
	data, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}

	conn.writeMu.Lock()
	defer conn.writeMu.Unlock()

	_ = conn.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	h.metrics.RecordWSMessage("out", msg.Type)
	return nil
}

func (h *Handler) sendError(conn *connection, message string) {
	_ = h.send(conn, ServerMessage{Type: "error", Message: message})
}
