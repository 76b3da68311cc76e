package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Resanso/aquaseer-api/internal/simulation"
	"github.com/Resanso/aquaseer-api/internal/stream"
)

const snapshotEventKind = "snapshot"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard may be served from a different origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// HandleStream upgrades to a websocket, sends the current snapshot and then
// relays every simulator event until the client goes away.
func HandleStream(c *gin.Context, deps Dependencies) {
	if deps.Hub == nil || deps.Simulator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stream not configured"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	initial, err := json.Marshal(simulation.Event{
		Kind:    snapshotEventKind,
		At:      time.Now().UTC(),
		Sensors: deps.Simulator.List(),
	})
	if err != nil {
		log.Printf("encode snapshot failed: %v", err)
		_ = conn.Close()
		return
	}

	id := deps.Hub.Register(conn, initial)
	defer deps.Hub.Unregister(id)

	_ = conn.SetReadDeadline(time.Now().Add(stream.PongWait()))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(stream.PongWait()))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket %s closed: %v", id, err)
			}
			return
		}
	}
}
