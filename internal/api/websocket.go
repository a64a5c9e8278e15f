package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"pumpscan/internal/models"
	"pumpscan/internal/score"

	"github.com/gorilla/websocket"
)

// --- WebSocket Hub ---

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mutex      sync.Mutex
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

var hub = &Hub{
	broadcast:  make(chan []byte, 64),
	register:   make(chan *Client),
	unregister: make(chan *Client),
	clients:    make(map[*Client]bool),
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

func (h *Hub) clientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("[api] websocket upgrade error:", err)
		return
	}

	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	hub.register <- client

	go func() {
		defer func() {
			hub.unregister <- client
			conn.Close()
		}()
		for {
			message, ok := <-client.send
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			w.Close()
		}
	}()

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}
}

type BroadcastMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type WSTrade struct {
	Signature string    `json:"signature"`
	TokenID   int64     `json:"token_id"`
	Type      string    `json:"tx_type"`
	User      string    `json:"user_address"`
	SolAmount uint64    `json:"sol_amount"`
	PriceUsd  *float64  `json:"price_usd,omitempty"`
	BlockTime time.Time `json:"block_time"`
}

type WSGraduation struct {
	Mint      string    `json:"mint"`
	TargetAMM string    `json:"target_amm"`
	Timestamp time.Time `json:"timestamp"`
}

// BroadcastTrade pushes a confirmed trade to dashboard clients.
func BroadcastTrade(tx models.Transaction) {
	payload := WSTrade{
		Signature: tx.Signature,
		TokenID:   tx.TokenID,
		Type:      tx.Type,
		User:      tx.User,
		SolAmount: tx.SolAmount,
		PriceUsd:  tx.PriceUsd,
		BlockTime: tx.BlockTime,
	}
	send(BroadcastMessage{Type: "trade", Payload: payload})
}

// BroadcastGraduation announces a bonding-curve completion.
func BroadcastGraduation(mint, targetAMM string, ts time.Time) {
	send(BroadcastMessage{Type: "graduation", Payload: WSGraduation{
		Mint: mint, TargetAMM: targetAMM, Timestamp: ts,
	}})
}

// BroadcastAlert relays holder-analysis alerts.
func BroadcastAlert(a score.Alert) {
	send(BroadcastMessage{Type: "alert", Payload: a})
}

func send(msg BroadcastMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case hub.broadcast <- data:
	default:
		// Nobody draining fast enough; drop rather than block writers.
	}
}

func init() {
	go hub.run()
}
