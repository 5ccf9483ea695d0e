// Package session implements the websocket handshake that binds a
// matchmaking credential to a live connection and feeds decoded
// messages into the room engine.
package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/someonesays/roomserver/internal/config"
	"github.com/someonesays/roomserver/internal/core"
	"github.com/someonesays/roomserver/internal/domain"
	"github.com/someonesays/roomserver/internal/matchmaking"
	"github.com/someonesays/roomserver/internal/protocol"
)

type Controller struct {
	cfg      *config.Config
	registry *core.Registry
	verifier *matchmaking.Verifier
	upgrader websocket.Upgrader
}

func NewController(cfg *config.Config, registry *core.Registry, verifier *matchmaking.Verifier) *Controller {
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	return &Controller{
		cfg:      cfg,
		registry: registry,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					// Non-browser client; the credential still gates it.
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// parseSubprotocol splits "<credential>,<codec>" from the negotiated
// sub-protocol header. The codec token is optional and defaults to
// Oppack inside protocol.Negotiate.
func parseSubprotocol(header string) (credential, codecName string, err error) {
	if header == "" {
		return "", "", errors.New("missing sub-protocol")
	}
	parts := strings.SplitN(header, ",", 2)
	credential = strings.TrimSpace(parts[0])
	if credential == "" {
		return "", "", errors.New("missing credential in sub-protocol")
	}
	if len(parts) == 2 {
		codecName = strings.TrimSpace(parts[1])
	}
	return credential, codecName, nil
}

// HandleSession performs the full handshake described by the wire
// contract. A malformed sub-protocol is the only pre-upgrade rejection;
// everything after parsing upgrades first and closes 1003 with a
// structured reason body so both failure paths share one vocabulary.
func (ctl *Controller) HandleSession(ctx context.Context, c *gin.Context) {
	rawProto := c.GetHeader("Sec-WebSocket-Protocol")
	credentialStr, codecName, err := parseSubprotocol(rawProto)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	codec, err := protocol.Negotiate(codecName)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, http.Header{
		"Sec-WebSocket-Protocol": {rawProto},
	})
	if err != nil {
		log.Warn().Err(err).Str("module", "session").Msg("upgrade rejected")
		return
	}
	conn := newWSConn(ws, codec)
	go conn.writePump(ctx, ctl.cfg.PingPeriod)

	cred, err := ctl.verifier.Verify(credentialStr)
	if err != nil {
		log.Warn().Err(err).Str("module", "session").Msg("credential rejected")
		conn.CloseWithReason(domain.CodeCredentialRejected)
		return
	}

	room, roomErr := ctl.resolveRoom(cred)
	if roomErr != nil {
		conn.CloseWithReason(roomErr.Code)
		return
	}
	if joinErr := room.Join(cred.User, conn); joinErr != nil {
		conn.CloseWithReason(joinErr.Code)
		return
	}

	log.Info().Str("module", "session").Str("room", string(room.ID())).
		Str("user", string(cred.User.ID)).Str("codec", codec.Name()).Msg("session attached")
	go ctl.readPump(ctx, room, cred.User.ID, conn)
}

// resolveRoom finds or creates the credential's target room. A
// credential minted for room creation must not attach to a room that
// already exists; that closes the matchmaking id-collision race.
func (ctl *Controller) resolveRoom(cred *matchmaking.Credential) (*core.Room, *domain.RoomError) {
	room, existed := ctl.registry.Get(cred.RoomID)
	if !existed {
		var created bool
		var err error
		room, created, err = ctl.registry.Create(cred.RoomID)
		if err != nil {
			return nil, domain.NewRoomError(domain.CodeServersBusy, "server room capacity reached")
		}
		existed = !created
	}
	if existed && cred.Creating {
		return nil, domain.NewRoomError(domain.CodeServersBusy, "room id already taken")
	}
	return room, nil
}

// readPump reads frames until the connection dies, decoding each one
// and dispatching into the room's serialized context. Its exit is the
// single disconnect cleanup point.
func (ctl *Controller) readPump(ctx context.Context, room *core.Room, userID domain.UserID, conn *wsConn) {
	defer func() {
		conn.Close()
		if empty := room.Disconnect(userID, conn.ID()); empty {
			ctl.registry.Remove(room.ID())
		}
	}()

	conn.conn.SetReadLimit(ctl.cfg.ReadLimit)
	pongWait := ctl.cfg.PingPeriod * 10 / 9
	_ = conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		_, data, err := conn.conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("module", "session").Str("user", string(userID)).Msg("read loop closing")
			return
		}
		msg, err := conn.codec.Decode(data)
		if err != nil {
			log.Warn().Err(err).Str("module", "session").Str("user", string(userID)).Msg("undecodable frame")
			conn.closeProtocolError()
			return
		}
		room.HandleMessage(userID, conn.ID(), msg)
	}
}
