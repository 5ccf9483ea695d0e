package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/someonesays/roomserver/internal/domain"
	"github.com/someonesays/roomserver/internal/protocol"
)

var ErrBackpressure = errors.New("backpressure")

const writeWait = 5 * time.Second

// wsConn binds one websocket connection to the codec negotiated for it
// at handshake time. It implements core.Session.
type wsConn struct {
	id    string
	conn  *websocket.Conn
	codec protocol.Codec
	send  chan []byte

	mu     sync.RWMutex
	closed bool
}

func newWSConn(conn *websocket.Conn, codec protocol.Codec) *wsConn {
	return &wsConn{
		id:    uuid.NewString(),
		conn:  conn,
		codec: codec,
		send:  make(chan []byte, 32),
	}
}

func (c *wsConn) ID() string { return c.id }

// Send encodes and queues one message. A full queue or a closed
// connection drops the frame; the room treats that as a transport
// error and never surfaces it.
func (c *wsConn) Send(msg protocol.ServerMessage) error {
	data, err := c.codec.Encode(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "session").Stringer("opcode", msg.Opcode()).Msg("encode failed")
		return err
	}
	return c.trySend(data)
}

func (c *wsConn) trySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

// CloseWithReason sends a 1003 close frame whose body is a JSON reason
// payload, then tears the connection down. Safe to call more than once.
// The control write runs on its own goroutine: kicks invoke this under
// the room lock, and a stalled peer must not hold that lock for
// writeWait.
func (c *wsConn) CloseWithReason(code domain.ErrorCode) {
	go c.closeWithCode(websocket.CloseUnsupportedData, code)
}

// closeProtocolError is the 1002 path for undecodable frames.
func (c *wsConn) closeProtocolError() {
	c.closeWithCode(websocket.CloseProtocolError, domain.CodeInvalidPayload)
}

func (c *wsConn) closeWithCode(closeCode int, code domain.ErrorCode) {
	body, _ := json.Marshal(struct {
		Code domain.ErrorCode `json:"code"`
	}{code})
	msg := websocket.FormatCloseMessage(closeCode, string(body))
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	c.Close()
}

// Close is idempotent; a connection already being torn down must not
// double-fire cleanup.
func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// writePump owns all data writes to the socket and the keepalive pings.
func (c *wsConn) writePump(ctx context.Context, pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "session").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(c.codec.MessageType(), data); err != nil {
				log.Debug().Err(err).Str("module", "session").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
