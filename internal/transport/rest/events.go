package rest

import (
	"net/http"
	"sync"
	"time"

	"github.com/abgdnv/storefront/internal/service"
	"github.com/gorilla/websocket"
)

const eventsWriteTimeout = 10 * time.Second

// CartEvents streams the cart over a websocket: the current state on connect, then
// the new state after every change. A slow client only receives the latest state.
func (h *Handler) CartEvents(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		mLogger.WarnContext(r.Context(), "Failed to upgrade cart events connection", "error", err)
		return
	}
	defer conn.Close()

	latest := newLatestCart()
	unsubscribe := h.cart.Subscribe(latest.offer)
	defer unsubscribe()

	// the read loop only detects the client going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	mLogger.DebugContext(r.Context(), "Cart events client connected")
	latest.seed(func() service.CartDto { return h.cart.Get(r.Context()) })
	for {
		select {
		case <-latest.ready:
			dto, ok := latest.take()
			if !ok {
				continue
			}
			if err := h.writeCart(conn, dto); err != nil {
				mLogger.WarnContext(r.Context(), "Failed to send cart state", "error", err)
				return
			}
		case <-gone:
			mLogger.DebugContext(r.Context(), "Cart events client disconnected")
			return
		case <-h.quit:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (h *Handler) writeCart(conn *websocket.Conn, dto service.CartDto) error {
	if err := conn.SetWriteDeadline(time.Now().Add(eventsWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(dto)
}

// latestCart holds the newest cart state not yet written to the client.
type latestCart struct {
	mu      sync.Mutex
	pending *service.CartDto
	ready   chan struct{}
}

func newLatestCart() *latestCart {
	return &latestCart{ready: make(chan struct{}, 1)}
}

// offer replaces the pending state. It never blocks the notifying mutation.
func (l *latestCart) offer(dto service.CartDto) {
	l.mu.Lock()
	l.pending = &dto
	l.mu.Unlock()
	l.signal()
}

// seed replaces the pending state with current(). current runs under the lock, so a
// state offered before the read can never be delivered after it.
func (l *latestCart) seed(current func() service.CartDto) {
	l.mu.Lock()
	dto := current()
	l.pending = &dto
	l.mu.Unlock()
	l.signal()
}

func (l *latestCart) take() (service.CartDto, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending == nil {
		return service.CartDto{}, false
	}
	dto := *l.pending
	l.pending = nil
	return dto, true
}

func (l *latestCart) signal() {
	select {
	case l.ready <- struct{}{}:
	default:
	}
}
