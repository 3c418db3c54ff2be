package handle

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"casaluna/internal/events"
	"casaluna/internal/order/app/services"
	"casaluna/internal/xpkg/logger"
)

// StreamHandler serves the long-lived SSE connections. Every open stream
// gets a comment ping at the configured interval to defeat idle-connection
// timeouts in proxies; ping failures are swallowed and the connection is
// reaped when its context reports the disconnect.
type StreamHandler struct {
	orderService *services.OrderService
	bus          *events.Bus
	pingInterval time.Duration
	mylog        logger.Logger
}

func NewStreamHandler(orderService *services.OrderService, bus *events.Bus, pingInterval time.Duration, mylog logger.Logger) *StreamHandler {
	return &StreamHandler{
		orderService: orderService,
		bus:          bus,
		pingInterval: pingInterval,
		mylog:        mylog,
	}
}

func sseHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

func writeSSE(w http.ResponseWriter, e events.Event) error {
	b, err := json.Marshal(e.Payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Name, b)
	return err
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// OrderEvents streams snapshots of one order to a customer. The first
// message is the current durable state; after that, a snapshot is pushed
// whenever the order changes.
func (sh *StreamHandler) OrderEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := orderID(r)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err)
			return
		}

		// Subscribe before reading the catch-up snapshot so a change that
		// commits in between lands in the observer buffer instead of being
		// lost.
		sub := sh.bus.SubscribeOrder(id)
		defer sub.Close()

		order, err := sh.orderService.Get(r.Context(), id)
		if err != nil {
			jsonError(w, statusFor(err), err)
			return
		}

		sseHeaders(w)
		if err := writeSSE(w, events.Event{Name: "snapshot", Payload: order}); err != nil {
			return
		}
		flush(w)

		sh.mylog.Action("order_stream_opened").Debug("Customer observer connected", "order_id", id)
		sh.loop(w, r, sub)
		sh.mylog.Action("order_stream_closed").Debug("Customer observer disconnected", "order_id", id)
	}
}

// AdminEvents streams every order lifecycle event to a staff observer. The
// first message acknowledges the connection.
func (sh *StreamHandler) AdminEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := sh.bus.SubscribeAdmin()
		defer sub.Close()

		sseHeaders(w)
		if err := writeSSE(w, events.Event{Name: "connected", Payload: map[string]string{"status": "ok"}}); err != nil {
			return
		}
		flush(w)

		sh.mylog.Action("admin_stream_opened").Debug("Admin observer connected")
		sh.loop(w, r, sub)
		sh.mylog.Action("admin_stream_closed").Debug("Admin observer disconnected")
	}
}

func (sh *StreamHandler) loop(w http.ResponseWriter, r *http.Request, sub *events.Subscriber) {
	ticker := time.NewTicker(sh.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-sub.Events():
			if err := writeSSE(w, e); err != nil {
				return
			}
			flush(w)
		case <-ticker.C:
			// A failed ping means the peer is gone; the context close will
			// end the loop shortly.
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flush(w)
		}
	}
}
