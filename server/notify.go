package server

import (
	"sync"

	"github.com/mobile-next/touchguide/types"
	"github.com/mobile-next/touchguide/utils"
)

const subscriberBuffer = 64

// hub fans engine output out to websocket clients. Publishing never blocks:
// a client whose buffer is full loses the notification.
type hub struct {
	mu          sync.Mutex
	subscribers map[*wsConnection]struct{}
}

func newHub() *hub {
	return &hub{subscribers: make(map[*wsConnection]struct{})}
}

func (h *hub) subscribe(c *wsConnection) {
	h.mu.Lock()
	h.subscribers[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) unsubscribe(c *wsConnection) {
	h.mu.Lock()
	delete(h.subscribers, c)
	h.mu.Unlock()
}

func (h *hub) publish(method string, params interface{}) {
	n := JSONRPCNotification{JSONRPC: "2.0", Method: method, Params: params}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.subscribers {
		select {
		case c.notifications <- n:
		default:
			utils.Verbose("dropping %s notification for slow websocket client", method)
		}
	}
}

func (h *hub) publishEvent(ev types.Event) {
	h.publish("touch.event", types.ToEnvelope(ev))
}

func (h *hub) publishPassthrough(ev types.PointerEvent) {
	h.publish("touch.passthrough", ev)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.subscribers {
		_ = c.conn.Close()
		delete(h.subscribers, c)
	}
}
