package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/user/cfo-challenge/internal/interfaces"
	"github.com/user/cfo-challenge/internal/types"
	"go.uber.org/zap"
)

// Message is the JSON envelope of every frame sent to the feed
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	Sender  string      `json:"sender"`
}

// Feed message types
const (
	MessageDashboard     = "dashboard"
	MessageRoundBanner   = "round_banner"
	MessageTurnPrompt    = "turn_prompt"
	MessageRoundComplete = "round_complete"
	MessageFinalResults  = "final_results"
	MessageRejection     = "rejection"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 256
)

// Client is one connected browser tab
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub keeps the set of feed clients and broadcasts game transitions to them
type Hub struct {
	clients    map[*Client]bool
	Broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	logger     *zap.Logger
}

var _ interfaces.Presenter = (*Hub)(nil)

// NewHub creates a hub; call Run in its own goroutine
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		Broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.Named("hub"),
	}
}

// Run is the hub's event loop. It returns when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debug("Feed client connected", zap.Int("clients", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case message := <-h.Broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow client, drop it
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWs upgrades the request and registers a feed client
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump drains the connection until it closes; the feed is one-way
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// publish queues an envelope without ever blocking the game loop
func (h *Hub) publish(kind string, payload interface{}) {
	data, err := json.Marshal(Message{Type: kind, Payload: payload, Sender: "game"})
	if err != nil {
		h.logger.Error("Failed to marshal feed message", zap.String("type", kind), zap.Error(err))
		return
	}

	select {
	case h.Broadcast <- data:
	default:
		h.logger.Warn("Feed buffer full, dropping message", zap.String("type", kind))
	}
}

func (h *Hub) RenderDashboard(roster types.RosterSnapshot) {
	h.publish(MessageDashboard, roster)
}

func (h *Hub) RenderRoundBanner(banner types.RoundBanner) {
	h.publish(MessageRoundBanner, banner)
}

func (h *Hub) RenderTurnPrompt(prompt types.TurnPrompt) {
	h.publish(MessageTurnPrompt, prompt)
}

func (h *Hub) RenderRoundComplete(round int) {
	h.publish(MessageRoundComplete, map[string]int{"round": round})
}

func (h *Hub) RenderFinalResults(results []types.Result, log []types.TurnRecord) {
	h.publish(MessageFinalResults, map[string]interface{}{
		"results": results,
		"log":     log,
	})
}

func (h *Hub) RenderRejection(player string, err error) {
	h.publish(MessageRejection, map[string]string{
		"player": player,
		"error":  err.Error(),
	})
}
