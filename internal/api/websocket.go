package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// MaxWSConnectionsTotal is the maximum number of viewer connections.
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum viewer connections per IP.
	MaxWSConnectionsPerIP = 10

	// InputMessagesPerSecond caps input messages per connection.
	InputMessagesPerSecond = 60

	// ResizeDebounce coalesces resize bursts into one relayout.
	ResizeDebounce = 16 * time.Millisecond
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if IsAllowedOrigin(origin) {
			return true
		}
		log.Printf("websocket connection rejected from origin: %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// InputHandler receives viewer input routed from websocket messages.
// The grid engine implements this.
type InputHandler interface {
	Activate(row, col int) (bool, error)
	ActivateAt(x, y float64) bool
	HandleKey(key string)
	Reset()
	SetViewerCount(n int)
}

// Resizer receives debounced canvas resize requests.
// The frame broadcaster implements this.
type Resizer interface {
	Resize(width, height int)
}

// inputMessage is the wire format for viewer input.
type inputMessage struct {
	Type   string  `json:"type"`
	Row    int     `json:"row"`
	Col    int     `json:"col"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Key    string  `json:"key"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
}

// wsClient tracks a viewer connection with its source IP.
type wsClient struct {
	conn    *websocket.Conn
	ip      string
	limiter *rate.Limiter
}

// WebSocketHub manages viewer connections: binary PNG frames and JSON
// events go out, input messages come in. It implements the broadcaster's
// FrameSink.
type WebSocketHub struct {
	clients    map[*websocket.Conn]*wsClient
	broadcast  chan []byte // JSON events
	frames     chan []byte // binary PNG frames
	register   chan *wsClient
	unregister chan *websocket.Conn
	mu         sync.RWMutex

	inputs  InputHandler
	resizer Resizer

	// Resize debouncing: bursts of resize input collapse into one relayout
	resizeMu      sync.Mutex
	resizeTimer   *time.Timer
	pendingWidth  int
	pendingHeight int

	wsLimiter *WebSocketRateLimiter
}

// NewWebSocketHub creates a hub with connection limiting.
func NewWebSocketHub(inputs InputHandler) *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan []byte, 256),
		frames:     make(chan []byte, 8),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		inputs:     inputs,
		wsLimiter:  NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
}

// SetResizer installs the resize target. Wired after construction because
// the broadcaster needs the hub as its sink.
func (h *WebSocketHub) SetResizer(r Resizer) {
	h.resizer = r
}

// Run starts the hub loop.
func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("viewer connected from %s (%d total)", client.ip, count)
			UpdateWSConnections(count)
			h.inputs.SetViewerCount(count)

		case conn := <-h.unregister:
			h.mu.Lock()
			if client, ok := h.clients[conn]; ok {
				h.wsLimiter.Release(client.ip)
				delete(h.clients, conn)
				conn.Close()
			}
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("viewer disconnected (%d remaining)", count)
			UpdateWSConnections(count)
			h.inputs.SetViewerCount(count)

		case message := <-h.broadcast:
			h.writeAll(websocket.TextMessage, message)
			IncrementWSMessages()

		case frame := <-h.frames:
			h.writeAll(websocket.BinaryMessage, frame)
			IncrementWSFrames()
		}
	}
}

// writeAll fans a message out to every client, dropping clients whose
// writes fail.
func (h *WebSocketHub) writeAll(messageType int, data []byte) {
	var failed []*websocket.Conn

	h.mu.RLock()
	for conn := range h.clients {
		if err := conn.WriteMessage(messageType, data); err != nil {
			failed = append(failed, conn)
		}
	}
	h.mu.RUnlock()

	if len(failed) == 0 {
		return
	}

	h.mu.Lock()
	for _, conn := range failed {
		if client, ok := h.clients[conn]; ok {
			h.wsLimiter.Release(client.ip)
			delete(h.clients, conn)
			conn.Close()
		}
	}
	count := len(h.clients)
	h.mu.Unlock()

	UpdateWSConnections(count)
	h.inputs.SetViewerCount(count)
}

// Broadcast sends a JSON event to all connected viewers.
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	msg := map[string]interface{}{
		"event": event,
		"data":  data,
	}

	jsonBytes, err := json.Marshal(msg)
	if err != nil {
		return
	}

	select {
	case h.broadcast <- jsonBytes:
	default:
		// Channel full, skip (backpressure)
	}
}

// BroadcastFrame queues a binary PNG frame for all viewers. Implements
// render.FrameSink. Full channel drops the frame rather than blocking the
// sender loop.
func (h *WebSocketHub) BroadcastFrame(frame []byte) {
	select {
	case h.frames <- frame:
	default:
	}
}

// ViewerCount returns the number of connected viewers. Implements
// render.FrameSink.
func (h *WebSocketHub) ViewerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades an incoming viewer connection.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	h.mu.RLock()
	totalConnections := len(h.clients)
	h.mu.RUnlock()

	if totalConnections >= MaxWSConnectionsTotal {
		log.Printf("websocket connection rejected: total limit reached (%d)", totalConnections)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Allow(ip) {
		log.Printf("websocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		return
	}

	client := &wsClient{
		conn:    conn,
		ip:      ip,
		limiter: rate.NewLimiter(InputMessagesPerSecond, InputMessagesPerSecond/2),
	}
	h.register <- client

	go h.readLoop(client)
}

// readLoop consumes input messages from one viewer until the connection
// drops.
func (h *WebSocketHub) readLoop(client *wsClient) {
	defer func() {
		h.unregister <- client.conn
	}()

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		if !client.limiter.Allow() {
			continue // input flood, drop silently
		}

		var msg inputMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		h.routeInput(&msg)
	}
}

// routeInput dispatches one input message to the engine.
func (h *WebSocketHub) routeInput(msg *inputMessage) {
	switch msg.Type {
	case "activate":
		if _, err := h.inputs.Activate(msg.Row, msg.Col); err != nil {
			log.Printf("activate rejected: %v", err)
		}
	case "pointer":
		h.inputs.ActivateAt(msg.X, msg.Y)
	case "key":
		h.inputs.HandleKey(msg.Key)
	case "reset":
		h.inputs.Reset()
	case "resize":
		h.debounceResize(msg.Width, msg.Height)
	}
}

// debounceResize coalesces resize bursts: only the last geometry within
// the debounce window triggers a relayout.
func (h *WebSocketHub) debounceResize(width, height int) {
	if width <= 0 || height <= 0 || h.resizer == nil {
		return
	}

	h.resizeMu.Lock()
	defer h.resizeMu.Unlock()

	h.pendingWidth = width
	h.pendingHeight = height

	if h.resizeTimer != nil {
		h.resizeTimer.Stop()
	}
	h.resizeTimer = time.AfterFunc(ResizeDebounce, func() {
		h.resizeMu.Lock()
		w, ht := h.pendingWidth, h.pendingHeight
		h.resizeMu.Unlock()
		h.resizer.Resize(w, ht)
	})
}
