// Package events pushes campaign events to websocket subscribers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/arcanetable/encounter-server/internal/config"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event names published by the encounter service.
const (
	EncounterStarted = "encounter.started"
	EncounterUpdated = "encounter.updated"
	EncounterEnded   = "encounter.ended"
	EncounterDeleted = "encounter.deleted"
)

// Notifier delivers a named event to everyone watching a campaign.
//
//go:generate go tool mockgen -destination=./mocks/notifier_mock.go -package=mocks . Notifier
type Notifier interface {
	Notify(ctx context.Context, campaignID, eventName string, payload any) error
}

// Message is the wire form of an event.
type Message struct {
	Event      string    `json:"event"`
	CampaignID string    `json:"campaignId"`
	Data       any       `json:"data,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
)

type client struct {
	conn       *websocket.Conn
	send       chan []byte
	campaignID string
	closeOnce  sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// Hub fans events out to the websocket clients of each campaign. Events for a
// campaign with no clients are queued and flushed to the next client that
// connects.
type Hub struct {
	logger       *zap.Logger
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	maxPending   int

	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
	pending map[string][][]byte
}

// NewHub creates a hub from the websocket listener settings.
func NewHub(cfg config.WebSocketConfig, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxPending := cfg.MaxPending
	if maxPending <= 0 {
		maxPending = 100
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		pingInterval: cfg.PingInterval,
		maxPending:   maxPending,
		clients:      make(map[string]map[*client]struct{}),
		pending:      make(map[string][][]byte),
	}
}

// originChecker accepts requests whose Origin header matches one of allowed.
// "*" accepts every origin. An empty list keeps the upgrader's same-origin
// rule. Requests without an Origin header are not from a browser and pass.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		origin = strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		if origin != "" {
			set[origin] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.ToLower(strings.TrimRight(origin, "/"))]
		return ok
	}
}

// Handler routes GET /events/campaign/{campaignID} to the hub.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /events/campaign/{campaignID}", h.serveCampaign)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// Notify implements Notifier.
func (h *Hub) Notify(ctx context.Context, campaignID, eventName string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(campaignID) == "" {
		return fmt.Errorf("campaign id is required")
	}
	data, err := json.Marshal(Message{
		Event:      eventName,
		CampaignID: campaignID,
		Data:       payload,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode event %s: %w", eventName, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers := h.clients[campaignID]
	if len(subscribers) == 0 {
		queue := append(h.pending[campaignID], data)
		if len(queue) > h.maxPending {
			queue = queue[len(queue)-h.maxPending:]
		}
		h.pending[campaignID] = queue
		h.logger.Debug("queued campaign event",
			zap.String("campaign_id", campaignID),
			zap.String("event", eventName),
			zap.Int("pending", len(queue)),
		)
		return nil
	}

	for c := range subscribers {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("dropping slow event client", zap.String("campaign_id", campaignID))
			h.removeLocked(c)
		}
	}
	return nil
}

// ClientCount returns the number of connected clients for a campaign.
func (h *Hub) ClientCount(campaignID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients[campaignID])
}

// PendingCount returns the number of queued events for a campaign.
func (h *Hub) PendingCount(campaignID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.pending[campaignID])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, subscribers := range h.clients {
		for c := range subscribers {
			h.removeLocked(c)
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, data := range h.pending[c.campaignID] {
		select {
		case c.send <- data:
		default:
		}
	}
	delete(h.pending, c.campaignID)

	if h.clients[c.campaignID] == nil {
		h.clients[c.campaignID] = make(map[*client]struct{})
	}
	h.clients[c.campaignID][c] = struct{}{}
	h.logger.Info("event client connected",
		zap.String("campaign_id", c.campaignID),
		zap.Int("clients", len(h.clients[c.campaignID])),
	)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	subscribers, ok := h.clients[c.campaignID]
	if !ok {
		return
	}
	if _, ok := subscribers[c]; !ok {
		return
	}
	delete(subscribers, c)
	if len(subscribers) == 0 {
		delete(h.clients, c.campaignID)
	}
	c.close()
	h.logger.Info("event client disconnected", zap.String("campaign_id", c.campaignID))
}

func (h *Hub) serveCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID := strings.TrimSpace(r.PathValue("campaignID"))
	if campaignID == "" {
		http.Error(w, "campaign id is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn:       conn,
		send:       make(chan []byte, max(sendBuffer, h.maxPending)),
		campaignID: campaignID,
	}
	h.register(c)

	go h.writePump(c)
	go h.readPump(c)
}

// readPump discards client messages and detects disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	if h.pingInterval > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
		})
	}
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	var ping <-chan time.Time
	if h.pingInterval > 0 {
		ticker := time.NewTicker(h.pingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}
	defer c.conn.Close()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ping:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
