package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docbro/internal/common"
	"github.com/ternarybob/docbro/internal/interfaces"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Local tool; the server binds to localhost by default.
	},
}

const (
	pingInterval    = 30 * time.Second
	writeWait       = 10 * time.Second
	defaultThrottle = 250 * time.Millisecond
	progressEvent   = "crawl_progress"
	operationEvent  = "operation"
	embeddingEvent  = "embedding"
)

// WSMessage is the envelope for every broadcast frame.
type WSMessage struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// WebSocketHub tracks connected clients and broadcasts progress frames.
// High-frequency metric updates are throttled; lifecycle frames always go
// out.
type WebSocketHub struct {
	logger arbor.ILogger

	mu          sync.RWMutex
	clients     map[*websocket.Conn]bool
	clientMutex map[*websocket.Conn]*sync.Mutex

	progressThrottle *rate.Limiter
}

func NewWebSocketHub(logger arbor.ILogger, config *common.WebSocketConfig) *WebSocketHub {
	throttle := defaultThrottle
	if config != nil && config.ThrottleInterval != "" {
		if parsed, err := time.ParseDuration(config.ThrottleInterval); err == nil && parsed > 0 {
			throttle = parsed
		}
	}
	return &WebSocketHub{
		logger:           logger,
		clients:          make(map[*websocket.Conn]bool),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		progressThrottle: rate.NewLimiter(rate.Every(throttle), 1),
	}
}

// HandleWebSocket upgrades the connection and keeps it registered until the
// client goes away. A ping loop keeps idle connections alive.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug().Int("clients", total).Msg("WebSocket client connected")

	stopPing := make(chan struct{})
	go h.pingLoop(conn, stopPing)

	defer func() {
		close(stopPing)
		h.mu.Lock()
		delete(h.clients, conn)
		delete(h.clientMutex, conn)
		remaining := len(h.clients)
		h.mu.Unlock()
		conn.Close()
		h.logger.Debug().Int("clients", remaining).Msg("WebSocket client disconnected")
	}()

	conn.SetPongHandler(func(string) error { return nil })
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}
	}
}

func (h *WebSocketHub) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.mu.RLock()
			mutex := h.clientMutex[conn]
			h.mu.RUnlock()
			if mutex == nil {
				return
			}
			mutex.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			mutex.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Broadcast sends one frame to every connected client. Write failures drop
// silently; the read loop notices the dead client and unregisters it.
func (h *WebSocketHub) Broadcast(msgType string, payload interface{}) {
	msg := WSMessage{Type: msgType, Timestamp: time.Now().UTC(), Payload: payload}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		h.mu.RLock()
		mutex := h.clientMutex[conn]
		h.mu.RUnlock()
		if mutex == nil {
			continue
		}
		mutex.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := conn.WriteJSON(msg)
		mutex.Unlock()
		if err != nil {
			h.logger.Debug().Err(err).Msg("WebSocket write failed")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// allowProgressFrame gates the high-frequency per-page frames. Lifecycle
// frames (start, complete, embedding) bypass it.
func (h *WebSocketHub) allowProgressFrame() bool {
	return h.progressThrottle.Allow()
}

// WSProgress adapts the hub to interfaces.ProgressSink so crawls started
// over the API stream their progress to connected clients.
type WSProgress struct {
	hub *WebSocketHub
}

func NewWSProgress(hub *WebSocketHub) *WSProgress {
	return &WSProgress{hub: hub}
}

func (p *WSProgress) StartOperation(title, projectName string) {
	p.hub.Broadcast(operationEvent, map[string]interface{}{
		"event":   "started",
		"title":   title,
		"project": projectName,
	})
}

// UpdateMetrics drops frames past the throttle so a fast crawl cannot flood
// slow clients.
func (p *WSProgress) UpdateMetrics(metrics map[string]interface{}) {
	if !p.hub.allowProgressFrame() {
		return
	}
	p.hub.Broadcast(progressEvent, metrics)
}

// SetCurrentOperation fires per dequeue, so it shares the metrics throttle.
func (p *WSProgress) SetCurrentOperation(text string) {
	if !p.hub.allowProgressFrame() {
		return
	}
	p.hub.Broadcast(operationEvent, map[string]interface{}{
		"event": "current",
		"text":  text,
	})
}

func (p *WSProgress) ShowEmbeddingStatus(model, projectName string, state interfaces.EmbeddingState) {
	p.hub.Broadcast(embeddingEvent, map[string]interface{}{
		"project": projectName,
		"model":   model,
		"state":   string(state),
	})
}

func (p *WSProgress) ShowEmbeddingError(msg string) {
	p.hub.Broadcast(embeddingEvent, map[string]interface{}{
		"state": string(interfaces.EmbeddingStateError),
		"error": msg,
	})
}

func (p *WSProgress) CompleteOperation(projectName, kind string, duration time.Duration, metrics map[string]interface{}, status interfaces.OperationStatus) {
	p.hub.Broadcast(operationEvent, map[string]interface{}{
		"event":    "completed",
		"project":  projectName,
		"kind":     kind,
		"duration": duration.String(),
		"status":   string(status),
		"metrics":  metrics,
	})
}
