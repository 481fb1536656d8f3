// Package preview serves the browser-facing preview surface: a composed page
// plus a WebSocket channel that streams per-layer patches as the session
// transpiles edits.
package preview

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/livepreview/swing"
	"github.com/livepreview/swing/internal/config"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// patchEnvelope is the wire format for preview updates. A "patch" carries one
// layer's new content; a "rebuild" tells the client to reload the composed
// page from scratch.
type patchEnvelope struct {
	Action  string `json:"action"`
	Layer   string `json:"layer,omitempty"`
	Content string `json:"content,omitempty"`
	Autorun bool   `json:"autorun,omitempty"`
}

// Layer names used in patch envelopes.
const (
	layerManifest   = "manifest"
	layerHTML       = "html"
	layerCSS        = "css"
	layerJavaScript = "javascript"
)

// Server is the preview surface backed by an HTTP + WebSocket server. It
// holds the last pushed content per layer so new clients and full rebuilds
// always render from current state.
type Server struct {
	cfg   *config.Config
	debug bool

	mu           sync.RWMutex
	manifest     swing.Manifest
	manifestText string
	html         string
	css          string
	js           string
	scriptType   string

	connMu      sync.RWMutex
	connections map[*websocket.Conn]bool

	disposed atomic.Bool
}

// New creates a preview server.
func New(cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Server{
		cfg:         cfg,
		debug:       cfg.Server.Debug,
		manifest:    swing.DefaultManifest(),
		connections: make(map[*websocket.Conn]bool),
	}
}

// UpdateManifest stores the manifest layer and patches connected clients.
func (s *Server) UpdateManifest(text string, autorun bool) {
	if s.disposed.Load() {
		return
	}
	s.mu.Lock()
	s.manifestText = text
	s.manifest = swing.ParseManifest(text)
	s.scriptType = s.manifest.ScriptType
	s.mu.Unlock()
	s.broadcast(patchEnvelope{Action: "patch", Layer: layerManifest, Content: text, Autorun: autorun})
}

// UpdateHTML stores the markup layer and patches connected clients.
func (s *Server) UpdateHTML(text string, autorun bool) {
	if s.disposed.Load() {
		return
	}
	s.mu.Lock()
	s.html = text
	s.mu.Unlock()
	s.broadcast(patchEnvelope{Action: "patch", Layer: layerHTML, Content: text, Autorun: autorun})
}

// UpdateCSS stores the stylesheet layer and patches connected clients.
func (s *Server) UpdateCSS(text string, autorun bool) {
	if s.disposed.Load() {
		return
	}
	s.mu.Lock()
	s.css = text
	s.mu.Unlock()
	s.broadcast(patchEnvelope{Action: "patch", Layer: layerCSS, Content: text, Autorun: autorun})
}

// UpdateJavaScript stores the script layer and patches connected clients. The
// transpiled output, not the source, is what reaches the page.
func (s *Server) UpdateJavaScript(doc *swing.Document, autorun bool) {
	if s.disposed.Load() || doc == nil {
		return
	}
	s.mu.Lock()
	s.js = doc.Output
	s.mu.Unlock()
	s.broadcast(patchEnvelope{Action: "patch", Layer: layerJavaScript, Content: doc.Output, Autorun: autorun})
}

// Rebuild tells all clients to re-render the composed page.
func (s *Server) Rebuild(ctx context.Context) error {
	if s.disposed.Load() {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	s.broadcast(patchEnvelope{Action: "rebuild"})
	return nil
}

// Disposed reports whether the surface has been torn down.
func (s *Server) Disposed() bool {
	return s.disposed.Load()
}

// Dispose tears the surface down and closes all client connections.
// Idempotent.
func (s *Server) Dispose() {
	if !s.disposed.CompareAndSwap(false, true) {
		return
	}
	s.connMu.Lock()
	for conn := range s.connections {
		conn.Close()
	}
	s.connections = make(map[*websocket.Conn]bool)
	s.connMu.Unlock()
}

// ServeHTTP routes the preview endpoints: the composed page at / and the
// patch channel at /ws.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.disposed.Load() {
		http.Error(w, "preview disposed", http.StatusGone)
		return
	}
	switch r.URL.Path {
	case "/ws":
		s.serveWebSocket(w, r)
	case "/":
		s.servePage(w, r)
	default:
		http.NotFound(w, r)
	}
}

// Handler wraps the server with the standard middleware chain.
func (s *Server) Handler(ctx context.Context) http.Handler {
	rateLimit, _ := RateLimitMiddleware(ctx, 50, 100, 10000)
	return SecurityHeadersMiddleware()(rateLimit(s))
}

func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Preview] Failed to upgrade connection: %v", err)
		return
	}
	defer func() {
		s.unregister(conn)
		conn.Close()
	}()
	s.register(conn)

	if s.debug {
		log.Printf("[Preview] Client connected: %s", conn.RemoteAddr())
	}

	// One full-state push so the client starts from current layers.
	s.sendState(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Preview] Unexpected close: %v", err)
			}
			break
		}
	}

	if s.debug {
		log.Printf("[Preview] Client disconnected: %s", conn.RemoteAddr())
	}
}

// sendState replays every layer to a newly connected client.
func (s *Server) sendState(conn *websocket.Conn) {
	s.mu.RLock()
	envelopes := []patchEnvelope{
		{Action: "patch", Layer: layerManifest, Content: s.manifestText, Autorun: true},
		{Action: "patch", Layer: layerHTML, Content: s.html, Autorun: true},
		{Action: "patch", Layer: layerCSS, Content: s.css, Autorun: true},
		{Action: "patch", Layer: layerJavaScript, Content: s.js, Autorun: true},
	}
	s.mu.RUnlock()

	for _, env := range envelopes {
		s.send(conn, env)
	}
}

func (s *Server) register(conn *websocket.Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.connections[conn] = true
	log.Printf("[Preview] Connection registered: %d active", len(s.connections))
}

func (s *Server) unregister(conn *websocket.Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	delete(s.connections, conn)
	log.Printf("[Preview] Connection unregistered: %d active", len(s.connections))
}

// broadcast sends an envelope to every connected client.
func (s *Server) broadcast(env patchEnvelope) {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	for conn := range s.connections {
		s.send(conn, env)
	}
}

func (s *Server) send(conn *websocket.Conn, env patchEnvelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("[Preview] Failed to marshal envelope: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[Preview] Failed to send message: %v", err)
	}
}
