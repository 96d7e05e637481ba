package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bobmcallan/tradesim/internal/common"
	"github.com/bobmcallan/tradesim/internal/interfaces"
	"github.com/bobmcallan/tradesim/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// streamCommand is the inbound control message on the market stream.
type streamCommand struct {
	Action string `json:"action"` // subscribe | unsubscribe | unsubscribe_all
	Symbol string `json:"symbol,omitempty"`
}

// streamAck confirms a control message back to the client.
type streamAck struct {
	Action string `json:"action"`
	Symbol string `json:"symbol,omitempty"`
	Status string `json:"status"`
}

// streamClient is one WebSocket connection on /api/market/stream. It is the
// feed subscriber for that connection: price updates are queued on the send
// channel and dropped when the client cannot keep up, so one slow consumer
// never stalls the pollers.
type streamClient struct {
	id     string
	conn   *websocket.Conn
	feed   interfaces.FeedService
	logger *common.Logger
	send   chan []byte
	done   chan struct{}
}

// handleMarketStream handles GET /api/market/stream, upgrading to WebSocket.
func (s *Server) handleMarketStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &streamClient{
		id:     uuid.New().String(),
		conn:   conn,
		feed:   s.app.FeedService,
		logger: s.logger,
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
	}

	s.logger.Debug().Str("client_id", client.id).Msg("Market stream client connected")

	go client.writePump()
	go client.readPump()
}

// ID identifies this connection in the feed registry.
func (c *streamClient) ID() string { return c.id }

// Deliver queues a price update without blocking. Updates are dropped when
// the send buffer is full.
func (c *streamClient) Deliver(update models.PriceUpdate) {
	data, err := json.Marshal(update)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to marshal price update")
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Debug().Str("client_id", c.id).Str("symbol", update.Symbol).Msg("Dropped price update for slow client")
	}
}

// enqueue is like Deliver for control acks.
func (c *streamClient) enqueue(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// readPump reads control messages until the connection drops, then detaches
// the client from every symbol it follows.
func (c *streamClient) readPump() {
	defer func() {
		c.feed.UnsubscribeAll(c)
		close(c.done)
		c.conn.Close()
		c.logger.Debug().Str("client_id", c.id).Msg("Market stream client disconnected")
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var cmd streamCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.enqueue(ErrorResponse{Error: "invalid command: " + err.Error()})
			continue
		}
		c.handleCommand(cmd)
	}
}

func (c *streamClient) handleCommand(cmd streamCommand) {
	switch cmd.Action {
	case "subscribe":
		if models.NormalizeSymbol(cmd.Symbol) == "" {
			c.enqueue(ErrorResponse{Error: "symbol is required"})
			return
		}
		c.feed.Subscribe(c, cmd.Symbol)
		c.enqueue(streamAck{Action: "subscribe", Symbol: models.NormalizeSymbol(cmd.Symbol), Status: "ok"})

	case "unsubscribe":
		if models.NormalizeSymbol(cmd.Symbol) == "" {
			c.enqueue(ErrorResponse{Error: "symbol is required"})
			return
		}
		c.feed.Unsubscribe(c, cmd.Symbol)
		c.enqueue(streamAck{Action: "unsubscribe", Symbol: models.NormalizeSymbol(cmd.Symbol), Status: "ok"})

	case "unsubscribe_all":
		c.feed.UnsubscribeAll(c)
		c.enqueue(streamAck{Action: "unsubscribe_all", Status: "ok"})

	default:
		c.enqueue(ErrorResponse{Error: "unknown action: " + cmd.Action})
	}
}

// writePump sends queued messages to the WebSocket connection.
func (c *streamClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Ensure streamClient implements Subscriber
var _ interfaces.Subscriber = (*streamClient)(nil)
