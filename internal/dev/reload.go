package dev

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// ReloadEndpoint is the WebSocket path the client script connects to.
const ReloadEndpoint = "/_treeline/reload"

// ReloadKind is the kind of message pushed to browsers.
type ReloadKind string

const (
	ReloadFull  ReloadKind = "reload"
	ReloadCSS   ReloadKind = "css"
	ReloadError ReloadKind = "error"
	ReloadClear ReloadKind = "clear"
)

// ReloadMessage is the JSON payload sent over the socket.
type ReloadMessage struct {
	Kind  ReloadKind `json:"kind"`
	Error string     `json:"error,omitempty"`
	File  string     `json:"file,omitempty"`
}

// ReloadServer manages WebSocket connections for live reload.
type ReloadServer struct {
	mu       sync.RWMutex
	clients  map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader
}

// NewReloadServer creates a reload server with no connected clients.
func NewReloadServer() *ReloadServer {
	return &ReloadServer{
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Development only; any origin may connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and holds the connection open until the
// browser goes away.
func (s *ReloadServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

// NotifyReload tells every client to reload the page.
func (s *ReloadServer) NotifyReload() {
	s.broadcast(ReloadMessage{Kind: ReloadFull})
}

// NotifyCSS tells every client to refresh stylesheets without a reload.
func (s *ReloadServer) NotifyCSS(file string) {
	s.broadcast(ReloadMessage{Kind: ReloadCSS, File: file})
}

// NotifyError shows the error overlay on every client.
func (s *ReloadServer) NotifyError(message string) {
	s.broadcast(ReloadMessage{Kind: ReloadError, Error: message})
}

// ClearError removes the error overlay on every client.
func (s *ReloadServer) ClearError() {
	s.broadcast(ReloadMessage{Kind: ReloadClear})
}

func (s *ReloadServer) broadcast(msg ReloadMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, c := range clients {
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			s.mu.Lock()
			delete(s.clients, c)
			s.mu.Unlock()
			c.Close()
		}
	}
}

// ClientCount returns the number of connected browsers.
func (s *ReloadServer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Close disconnects every client.
func (s *ReloadServer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.Close()
		delete(s.clients, c)
	}
}

// ClientScript is the live-reload runtime injected into documents in
// development mode.
const ClientScript = `
<script>
(function() {
    'use strict';

    var delay = 1000;
    var maxDelay = 30000;
    var ws = null;

    function connect() {
        var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
        ws = new WebSocket(protocol + '//' + location.host + '` + ReloadEndpoint + `');

        ws.onopen = function() {
            delay = 1000;
            clearOverlay();
        };

        ws.onmessage = function(e) {
            var msg;
            try { msg = JSON.parse(e.data); } catch (err) { return; }

            switch (msg.kind) {
                case 'reload':
                    location.reload();
                    break;
                case 'css':
                    refreshStylesheets();
                    break;
                case 'error':
                    showOverlay(msg.error);
                    break;
                case 'clear':
                    clearOverlay();
                    break;
            }
        };

        ws.onclose = function() {
            setTimeout(function() {
                delay = Math.min(delay * 2, maxDelay);
                connect();
            }, delay);
        };

        ws.onerror = function() { ws.close(); };
    }

    function refreshStylesheets() {
        document.querySelectorAll('link[rel="stylesheet"]').forEach(function(link) {
            var url = new URL(link.href);
            url.searchParams.set('_reload', Date.now());
            link.href = url.toString();
        });
    }

    function showOverlay(error) {
        clearOverlay();
        var overlay = document.createElement('div');
        overlay.id = 'treeline-error-overlay';
        overlay.style.cssText = 'position:fixed;inset:0;background:rgba(0,0,0,0.9);color:#fff;font-family:monospace;font-size:14px;padding:20px;overflow:auto;z-index:999999;';
        var pre = document.createElement('pre');
        pre.style.cssText = 'white-space:pre-wrap;word-wrap:break-word;background:#1a1a1a;padding:20px;border-radius:8px;border:1px solid #333;max-width:800px;margin:0 auto;';
        pre.textContent = error;
        overlay.appendChild(pre);
        document.body.appendChild(overlay);
    }

    function clearOverlay() {
        var overlay = document.getElementById('treeline-error-overlay');
        if (overlay) overlay.remove();
    }

    if (document.readyState === 'loading') {
        document.addEventListener('DOMContentLoaded', connect);
    } else {
        connect();
    }
})();
</script>
`
