package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/handeye/internal/app"
	"github.com/ayusman/handeye/internal/detector"
	"github.com/ayusman/handeye/internal/store"
)

// maxFrameBytes bounds one landmark payload.
const maxFrameBytes = 1 << 16

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// HandHandler ingests landmark frames from the browser, either one per POST
// or as a stream of WebSocket text messages. Each message with a hand is one
// change event; the reply is the resulting view.
type HandHandler struct {
	app *app.App

	mu      sync.Mutex
	clients int
}

// NewHandHandler creates a HandHandler feeding a.
func NewHandHandler(a *app.App) *HandHandler {
	return &HandHandler{app: a}
}

// ServeHTTP handles POST frames and WebSocket upgrade requests.
func (h *HandHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		h.serveWS(w, r)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxFrameBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	view, err := h.handle(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handle parses and submits one payload. A payload without a hand produces
// no event and returns the current view.
func (h *HandHandler) handle(data []byte) (app.View, error) {
	frame, err := detector.ParseFrame(data)
	if err != nil {
		return app.View{}, err
	}
	f, ok := frame.Get()
	if !ok {
		return h.app.View(), nil
	}
	return h.app.Submit(f)
}

func (h *HandHandler) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameBytes)

	h.connect()
	defer h.disconnect()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("hand stream closed: %v", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		view, err := h.handle(data)
		var reply any = view
		if err != nil {
			reply = errorResponse{Error: err.Error()}
		}
		if err := conn.WriteJSON(reply); err != nil {
			return
		}
	}
}

// connect starts a recorded session for the first browser stream.
func (h *HandHandler) connect() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients++
	if h.clients == 1 {
		if _, err := h.app.BeginSession(store.SourceBrowser); err != nil {
			log.Printf("Failed to begin browser session: %v", err)
		}
	}
}

// disconnect ends the session once the last browser stream is gone.
func (h *HandHandler) disconnect() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients--
	if h.clients == 0 {
		if err := h.app.EndSession(store.SourceBrowser); err != nil {
			log.Printf("Failed to end browser session: %v", err)
		}
	}
}

// CameraHandler serves the current camera view: a JSON snapshot on GET, or
// a WebSocket stream that sends the view after every push.
type CameraHandler struct {
	app *app.App
}

// NewCameraHandler creates a CameraHandler reading from a.
func NewCameraHandler(a *app.App) *CameraHandler {
	return &CameraHandler{app: a}
}

// ServeHTTP handles GET requests and WebSocket upgrade requests.
func (h *CameraHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !websocket.IsWebSocketUpgrade(r) {
		writeJSON(w, http.StatusOK, h.app.View())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.app.Subscribe()
	defer cancel()

	// Reads only detect the peer going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := h.send(conn); err != nil {
		return
	}

	for {
		select {
		case <-gone:
			return
		case _, ok := <-updates:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(time.Second))
				return
			}
			if err := h.send(conn); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					log.Printf("camera stream write error: %v", err)
				}
				return
			}
		}
	}
}

func (h *CameraHandler) send(conn *websocket.Conn) error {
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteJSON(h.app.View())
}
