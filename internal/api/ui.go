package api

import (
	"context"
	"net/http"
	"path"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/RichardoC/dehost/internal/ui"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
)

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
}

// originChecker accepts requests without an Origin header (non-browser
// clients) and browser origins matching one of the CORS patterns.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, pattern := range allowed {
			if pattern == "*" {
				return true
			}
			if ok, _ := path.Match(pattern, origin); ok {
				return true
			}
		}
		return false
	}
}

type shellResponse struct {
	State   ui.State   `json:"state"`
	Header  ui.Header  `json:"header"`
	Motions ui.Motions `json:"motions"`
}

func (h *Handler) shell(st ui.State) shellResponse {
	return shellResponse{State: st, Header: ui.HeaderFor(st), Motions: ui.MotionTable()}
}

func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.shell(h.store.Snapshot()))
}

func (h *Handler) TogglePanel(w http.ResponseWriter, r *http.Request) {
	var st ui.State
	switch chi.URLParam(r, "panel") {
	case "chat":
		st = h.store.ToggleChat()
	case "workbench":
		st = h.store.ToggleWorkbench()
	default:
		h.writeError(w, http.StatusNotFound, "", "Unknown panel")
		return
	}
	h.writeJSON(w, http.StatusOK, h.shell(st))
}

// animator runs the loader while the store is busy, delivering frames to out.
// Only one loader runs per connection; a busy state seen while one is
// already running is picked up by that loader.
type animator struct {
	loader  ui.Loader
	busy    func() bool
	out     chan ui.Event
	running atomic.Bool
}

func (a *animator) kick(ctx context.Context) {
	if !a.running.CompareAndSwap(false, true) {
		return
	}
	go func() {
		for {
			a.loader.Run(ctx, a.busy, func(f ui.Frame) {
				select {
				case a.out <- ui.LoadingEvent(f):
				default:
				}
			})
			a.running.Store(false)
			// Busy may have turned true between Run returning and the store above.
			if ctx.Err() != nil || !a.busy() || !a.running.CompareAndSwap(false, true) {
				return
			}
		}
	}()
}

// StreamEvents pushes store events (state, toasts, response chunks) and
// loading frames to the browser until either side goes away.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, cancel := h.store.Subscribe(0)
	defer cancel()

	// Reader: only control frames are expected; any error ends the stream.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Debug("WebSocket read ended", zap.Error(err))
				}
				return
			}
		}
	}()

	ctx, stop := context.WithCancel(r.Context())
	defer stop()
	anim := &animator{loader: h.loader, busy: h.store.Busy, out: make(chan ui.Event, 1)}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case ev, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debug("WebSocket write failed", zap.Error(err))
				return
			}
			if ev.Type == ui.EventState && ev.State.Busy() {
				anim.kick(ctx)
			}
		case ev := <-anim.out:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debug("WebSocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
