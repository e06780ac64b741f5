package api

import (
	"net/http"
	"sync"
	"time"

	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var feedUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// OrderFeedMessage is one status change pushed to subscribers
type OrderFeedMessage struct {
	OrderID     int64  `json:"order_id"`
	OrderNumber int64  `json:"order_number"`
	Status      string `json:"status"`
	Time        int64  `json:"time"`
}

// OrderFeed fans order status changes out to connected admin sockets.
// Slow subscribers are dropped rather than blocking reconciliation.
type OrderFeed struct {
	mu   sync.Mutex
	subs map[chan OrderFeedMessage]struct{}
}

// NewOrderFeed creates an empty feed
func NewOrderFeed() *OrderFeed {
	return &OrderFeed{subs: make(map[chan OrderFeedMessage]struct{})}
}

// Broadcast pushes a status change to every subscriber
func (f *OrderFeed) Broadcast(orderID, orderNumber int64, status string) {
	msg := OrderFeedMessage{
		OrderID:     orderID,
		OrderNumber: orderNumber,
		Status:      status,
		Time:        time.Now().Unix(),
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- msg:
		default:
			delete(f.subs, ch)
			close(ch)
		}
	}
}

func (f *OrderFeed) subscribe() chan OrderFeedMessage {
	ch := make(chan OrderFeedMessage, 16)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()
	return ch
}

func (f *OrderFeed) unsubscribe(ch chan OrderFeedMessage) {
	f.mu.Lock()
	if _, ok := f.subs[ch]; ok {
		delete(f.subs, ch)
		close(ch)
	}
	f.mu.Unlock()
}

// orderFeed upgrades to a websocket and streams order status changes
func (h *Handler) orderFeed(c *gin.Context) {
	conn, err := feedUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		util.GetLogger().Warn("Order feed upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ch := h.feed.subscribe()
	defer h.feed.unsubscribe(ch)

	// Reader goroutine only watches for the peer closing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
