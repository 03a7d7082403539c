package api

import (
	"bufio"
	"encoding/json"
	"sync"
	"time"

	"flipmail/inbox"
	"flipmail/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

// StatusEventName is the SSE event name for status changes. htmx listens for
// it to refresh the list in other tabs.
const StatusEventName = "status_change"

// Notification is a status change pushed to connected browsers
type Notification struct {
	ID     string             `json:"id"`
	Type   string             `json:"type"`
	Change inbox.StatusChange `json:"change"`
	Time   time.Time          `json:"time"`
}

// NotificationHandler fans status changes out over SSE and WebSocket
type NotificationHandler struct {
	subscribers map[string]chan Notification
	mu          sync.RWMutex
	keepAlive   time.Duration
}

// NewNotificationHandler subscribes to status changes of status
func NewNotificationHandler(status *inbox.StatusStore) *NotificationHandler {
	h := &NotificationHandler{
		subscribers: make(map[string]chan Notification),
		keepAlive:   30 * time.Second,
	}
	status.OnChange(h.NotifyStatusChange)
	return h
}

func (h *NotificationHandler) subscribe() (string, chan Notification) {
	id := uuid.New().String()
	ch := make(chan Notification, 10)

	h.mu.Lock()
	h.subscribers[id] = ch
	h.mu.Unlock()

	return id, ch
}

func (h *NotificationHandler) unsubscribe(id string) {
	h.mu.Lock()
	if ch, ok := h.subscribers[id]; ok {
		delete(h.subscribers, id)
		close(ch)
	}
	h.mu.Unlock()
}

// Subscribers returns the number of connected clients
func (h *NotificationHandler) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// HandleSSE streams status changes as Server-Sent Events
func (h *NotificationHandler) HandleSSE(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	id, messages := h.subscribe()
	utils.Log.Debug("SSE subscriber connected: %s", id)

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer func() {
			h.unsubscribe(id)
			utils.Log.Debug("SSE subscriber disconnected: %s", id)
		}()

		// flushes the headers so the client sees the stream open
		w.WriteString(": connected\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		ticker := time.NewTicker(h.keepAlive)
		defer ticker.Stop()

		for {
			select {
			case notification, ok := <-messages:
				if !ok {
					return
				}
				data, err := json.Marshal(notification)
				if err != nil {
					utils.Log.Error("Failed to encode notification: %v", err)
					continue
				}
				w.WriteString("event: " + StatusEventName + "\n")
				w.WriteString("data: " + string(data) + "\n\n")

			case <-ticker.C:
				w.WriteString(": keepalive\n\n")
			}

			// a failed flush means the client went away
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))

	return nil
}

// UpgradeWebSocket rejects plain HTTP requests on the WebSocket route
func UpgradeWebSocket(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// HandleWebSocket writes status changes to a WebSocket until it closes
func (h *NotificationHandler) HandleWebSocket(c *websocket.Conn) {
	id, messages := h.subscribe()
	utils.Log.Debug("WebSocket subscriber connected: %s", id)

	defer func() {
		h.unsubscribe(id)
		c.Close()
		utils.Log.Debug("WebSocket subscriber disconnected: %s", id)
	}()

	// the client never sends anything; reading only detects the close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case notification, ok := <-messages:
			if !ok {
				return
			}
			if err := c.WriteJSON(notification); err != nil {
				utils.Log.Warn("Failed to send WebSocket notification: %v", err)
				return
			}
		case <-closed:
			return
		}
	}
}

// BroadcastNotification sends a notification to all subscribers, skipping
// any whose buffer is full
func (h *NotificationHandler) BroadcastNotification(notification Notification) {
	notification.ID = uuid.New().String()
	notification.Time = time.Now()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for subscriberID, ch := range h.subscribers {
		select {
		case ch <- notification:
		default:
			utils.Log.Warn("Notification channel full for subscriber %s", subscriberID)
		}
	}
}

// NotifyStatusChange broadcasts a read or favorite change
func (h *NotificationHandler) NotifyStatusChange(change inbox.StatusChange) {
	h.BroadcastNotification(Notification{
		Type:   StatusEventName,
		Change: change,
	})
}
