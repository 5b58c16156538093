package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/conneroisu/talky/internal/logging"
	"github.com/conneroisu/talky/internal/metrics"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// ReloadMessage is sent to browsers when served content changes.
type ReloadMessage struct {
	Type      string    `json:"type"`
	Paths     []string  `json:"paths,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// LiveReloadHub tracks connected browsers and fans reload messages out to
// them.
type LiveReloadHub struct {
	clients      map[*reloadClient]struct{}
	clientsMutex sync.RWMutex
	broadcast    chan []byte
	register     chan *reloadClient
	unregister   chan *reloadClient
	done         chan struct{}
	closeOnce    sync.Once
	logger       logging.Logger
	metrics      *metrics.Metrics
}

type reloadClient struct {
	conn *websocket.Conn
	send chan []byte
	hub  *LiveReloadHub
}

// NewLiveReloadHub creates a hub. Run must be called for it to deliver
// messages.
func NewLiveReloadHub(logger logging.Logger, m *metrics.Metrics) *LiveReloadHub {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &LiveReloadHub{
		clients:    make(map[*reloadClient]struct{}),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *reloadClient),
		unregister: make(chan *reloadClient),
		done:       make(chan struct{}),
		logger:     logger.WithComponent("livereload"),
		metrics:    m,
	}
}

// ServeHTTP upgrades the request to a websocket. The default origin check
// of the websocket library only admits pages served from the same host.
func (h *LiveReloadHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), err, "WebSocket upgrade failed")
		return
	}

	client := &reloadClient{
		conn: conn,
		send: make(chan []byte, 16),
		hub:  h,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	go client.writePump()
	client.readPump()
}

// Run delivers messages until ctx is done or the hub is closed.
func (h *LiveReloadHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.Close()
			return
		case <-h.done:
			return

		case client := <-h.register:
			h.clientsMutex.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.clientsMutex.Unlock()

			h.metrics.SetLiveReloadClients(count)
			h.logger.Debug(ctx, "Client connected", "clients", count)

		case client := <-h.unregister:
			h.remove(client, websocket.StatusNormalClosure)

		case message := <-h.broadcast:
			h.clientsMutex.RLock()
			var slow []*reloadClient
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					slow = append(slow, client)
				}
			}
			h.clientsMutex.RUnlock()

			for _, client := range slow {
				h.remove(client, websocket.StatusPolicyViolation)
			}
			h.metrics.RecordLiveReloadBroadcast()
		}
	}
}

// Broadcast queues msg for every connected client. Messages are dropped when
// the queue is full or the hub is closed.
func (h *LiveReloadHub) Broadcast(msg ReloadMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(context.Background(), err, "Failed to marshal reload message")
		return
	}

	select {
	case <-h.done:
	case h.broadcast <- data:
	default:
		h.logger.Warn(context.Background(), nil, "Reload queue full, dropping message")
	}
}

// ClientCount returns the number of connected clients.
func (h *LiveReloadHub) ClientCount() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and stops the hub. It is safe to call more
// than once.
func (h *LiveReloadHub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)

		h.clientsMutex.Lock()
		for client := range h.clients {
			delete(h.clients, client)
			close(client.send)
			go client.close(websocket.StatusGoingAway, "server shutting down")
		}
		h.clientsMutex.Unlock()

		h.metrics.SetLiveReloadClients(0)
	})
}

func (h *LiveReloadHub) remove(client *reloadClient, status websocket.StatusCode) {
	h.clientsMutex.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	count := len(h.clients)
	h.clientsMutex.Unlock()

	if ok {
		go client.close(status, "")
		h.metrics.SetLiveReloadClients(count)
	}
}

// close runs the closing handshake, which waits for the peer to answer.
func (c *reloadClient) close(status websocket.StatusCode, reason string) {
	_ = c.conn.Close(status, reason)
}

// readPump waits for the peer to go away. Browsers never send anything.
func (c *reloadClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		if _, _, err := c.conn.Read(context.Background()); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && status != -1 {
				c.hub.logger.Debug(context.Background(), "WebSocket closed", "status", status.String())
			}
			return
		}
	}
}

// writePump pumps messages to the websocket connection
func (c *reloadClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// InjectLiveReload appends the reload client script to the end of the
// document body. Documents without a body get one from the HTML parser.
func InjectLiveReload(document []byte, endpoint string) ([]byte, error) {
	root, err := html.Parse(bytes.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	body := findElement(root, atom.Body)
	if body == nil {
		return nil, fmt.Errorf("document has no body")
	}

	endpointJSON, err := json.Marshal(endpoint)
	if err != nil {
		return nil, err
	}

	script := &html.Node{Type: html.ElementNode, Data: "script", DataAtom: atom.Script}
	script.AppendChild(&html.Node{Type: html.TextNode, Data: fmt.Sprintf(reloadScript, endpointJSON)})
	body.AppendChild(script)

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return nil, fmt.Errorf("rendering document: %w", err)
	}

	return buf.Bytes(), nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

const reloadScript = `(function(){` +
	`var scheme=location.protocol==="https:"?"wss://":"ws://";` +
	`var ws=new WebSocket(scheme+location.host+%s);` +
	`ws.onmessage=function(e){try{if(JSON.parse(e.data).type==="reload"){location.reload();}}catch(_){}};` +
	`ws.onclose=function(){setTimeout(function(){location.reload();},2000);};` +
	`})();`
