package gateway

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"groww-scanner/internal/model"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 256
)

// Client is a single WebSocket subscriber pinned to one timeframe.
type Client struct {
	id        string
	hub       *Hub
	conn      *websocket.Conn
	timeframe model.Timeframe
	send      chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn, tf model.Timeframe) *Client {
	return &Client{
		id:        uuid.NewString(),
		hub:       hub,
		conn:      conn,
		timeframe: tf,
		send:      make(chan []byte, sendBuffer),
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Queued snapshots supersede each other; deliver only the
			// newest when the client has fallen behind.
			for n := len(c.send); n > 0; n-- {
				if queued, ok := <-c.send; ok {
					msg = queued
				}
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// The feed is one-way; inbound frames only refresh liveness.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
