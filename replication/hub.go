package replication

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lixenwraith/tickforge/core"
	"github.com/lixenwraith/tickforge/engine"
	"github.com/lixenwraith/tickforge/status"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 240

	// HubServiceName is the engine service name of the websocket hub
	HubServiceName = "replication.hub"
	// DefaultMaxClients bounds concurrent websocket connections
	DefaultMaxClients = 32
)

// HubConfig configures the websocket endpoint
type HubConfig struct {
	// Listen is the TCP address; ":0" picks a free port
	Listen     string
	MaxClients int
}

// Hub fans encoded snapshots out to websocket clients and feeds their input into an InputQueue
// Every connection owns a read and a write goroutine; the hub goroutine owns the client set
type Hub struct {
	cfg    HubConfig
	queue  *InputQueue
	logger *log.Logger

	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	nextID     atomic.Uint64

	upgrader websocket.Upgrader
	server   *http.Server
	listener net.Listener
	lastSent uint64
	sentAny  bool

	statClients *status.Float
	statSent    *atomic.Int64
	statDropped *atomic.Int64
	statInputs  *atomic.Int64
}

// NewHub creates a hub pushing client input into queue
func NewHub(cfg HubConfig, queue *InputQueue) *Hub {
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = DefaultMaxClients
	}
	return &Hub{
		cfg:        cfg,
		queue:      queue,
		logger:     log.New(io.Discard, "", 0),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		quit:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Non-browser game clients send no Origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		statClients: new(status.Float),
		statSent:    new(atomic.Int64),
		statDropped: new(atomic.Int64),
		statInputs:  new(atomic.Int64),
	}
}

func (h *Hub) Name() string { return HubServiceName }

func (h *Hub) Dependencies() []string { return nil }

// Init binds the hub metrics and logger
func (h *Hub) Init(e *engine.Engine) error {
	h.logger = e.Logger()
	reg := e.Status()
	h.statClients = reg.Gauge("replication.clients")
	h.statSent = reg.Counter("replication.frames_sent")
	h.statDropped = reg.Counter("replication.frames_dropped")
	h.statInputs = reg.Counter("replication.inputs_dropped")
	return nil
}

// Start listens on cfg.Listen and serves /ws
func (h *Hub) Start() error {
	ln, err := net.Listen("tcp", h.cfg.Listen)
	if err != nil {
		return err
	}
	h.listener = ln
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	h.server = &http.Server{Handler: mux, ReadHeaderTimeout: writeWait}

	core.Go(h.Run)
	core.Go(func() {
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Printf("replication: serve: %v", err)
		}
	})
	h.logger.Printf("replication: hub listening on %s", ln.Addr())
	return nil
}

// Stop closes the listener and every client connection
func (h *Hub) Stop() error {
	var err error
	if h.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		err = h.server.Shutdown(ctx)
		cancel()
	}
	select {
	case <-h.quit:
	default:
		close(h.quit)
	}
	return err
}

// Addr returns the bound address, nil before Start
func (h *Hub) Addr() net.Addr {
	if h.listener == nil {
		return nil
	}
	return h.listener.Addr()
}

// Run owns the client set until Stop; on exit it closes every send channel
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.statClients.Add(1)
			h.queue.PushConnection(ConnectionEvent{Kind: Connected, ClientID: c.id})
			if msg, err := EncodeWelcome(c.id); err == nil {
				c.Send(msg)
			}

		case c := <-h.unregister:
			h.drop(c)

		case <-h.quit:
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		h.statClients.Add(-1)
		h.queue.PushConnection(ConnectionEvent{Kind: Disconnected, ClientID: c.id})
	}
}

// ServeHTTP upgrades /ws requests and starts the client pumps
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.ClientCount() >= h.cfg.MaxClients {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("replication: upgrade error: %v", err)
		return
	}
	c := newClient(h, conn, h.nextID.Add(1))
	select {
	case h.register <- c:
	case <-h.quit:
		conn.Close()
		return
	}
	core.Go(c.WritePump)
	core.Go(c.ReadPump)
}

// Broadcast queues one frame to every client; slow clients drop it
func (h *Hub) Broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.Send(data) {
			h.statSent.Add(1)
		} else {
			h.statDropped.Add(1)
		}
	}
}

// ClientCount returns the number of registered clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client is one websocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	id         uint64
	msgCount   int
	msgResetAt time.Time
}

func newClient(h *Hub, conn *websocket.Conn, id uint64) *Client {
	return &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufSize),
		id:   id,
	}
}

// ID returns the hub-assigned client id
func (c *Client) ID() uint64 {
	return c.id
}

// Send queues a frame without blocking; false if the buffer is full
// Callers hold the hub read lock, so send is never closed underneath them
func (c *Client) Send(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// ReadPump decodes binary input frames until the connection fails
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Printf("replication: client %d: %v", c.id, err)
			}
			return
		}

		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			c.hub.logger.Printf("replication: client %d exceeded rate limit, disconnecting", c.id)
			return
		}

		if msgType != websocket.BinaryMessage {
			continue
		}
		in, err := DecodeInput(message)
		if err != nil {
			continue
		}
		if !c.hub.queue.Push(InputCommand{ClientID: c.id, Input: in}) {
			c.hub.statInputs.Add(1)
		}
	}
}

// WritePump writes queued frames as binary messages and keeps the connection alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// BroadcastStep encodes the newest snapshot once and hands it to the hub
// Runs in Last; frames without a new tick send nothing
func BroadcastStep(w *engine.World) {
	hub := engine.MustGetResource[*Hub](w.Resources)
	snap, ok := engine.MustGetResource[*SnapshotHistory](w.Resources).Latest()
	if !ok || (hub.sentAny && snap.Tick == hub.lastSent) {
		return
	}
	data, err := EncodeSnapshot(snap)
	if err != nil {
		hub.logger.Printf("replication: encode tick %d: %v", snap.Tick, err)
		return
	}
	hub.lastSent, hub.sentAny = snap.Tick, true
	hub.Broadcast(data)
}
