package session

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/someonesays/roomserver/internal/config"
	"github.com/someonesays/roomserver/internal/content"
	"github.com/someonesays/roomserver/internal/core"
	"github.com/someonesays/roomserver/internal/domain"
	"github.com/someonesays/roomserver/internal/matchmaking"
	"github.com/someonesays/roomserver/internal/protocol"
)

const testSecret = "handshake-test-secret"

type stubStore struct{}

func (stubStore) Minigame(_ context.Context, _ string) (*domain.Minigame, error) {
	return nil, content.ErrNotFound
}

func (stubStore) Pack(_ context.Context, _ string) (*domain.Pack, error) {
	return nil, content.ErrNotFound
}

type testServer struct {
	srv      *httptest.Server
	registry *core.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		ServerID:   "srv1",
		Secret:     testSecret,
		ReadLimit:  4096,
		PingPeriod: 100 * time.Millisecond,
	}
	registry := core.NewRegistry("srv1", 10, time.Minute, stubStore{}, nil)
	verifier := matchmaking.NewVerifier(testSecret, "srv1")
	ctl := NewController(cfg, registry, verifier)

	ctx, cancel := context.WithCancel(context.Background())
	r := gin.New()
	r.GET("/api/rooms/ws", func(c *gin.Context) {
		ctl.HandleSession(ctx, c)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return &testServer{srv: srv, registry: registry}
}

type credentialOpts struct {
	userID   string
	roomID   string
	serverID string
	creating bool
}

func mint(t *testing.T, opts credentialOpts) string {
	t.Helper()
	if opts.serverID == "" {
		opts.serverID = "srv1"
	}
	claims := &matchmaking.Claims{}
	claims.User.ID = opts.userID
	claims.User.DisplayName = strings.ToUpper(opts.userID[:1]) + opts.userID[1:]
	claims.User.Avatar = "https://cdn.test/" + opts.userID + ".png"
	claims.Room.ID = opts.roomID
	claims.Room.Server.ID = opts.serverID
	claims.Metadata.Type = "matchmaking"
	claims.Metadata.Creating = opts.creating
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Minute))
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func (ts *testServer) dial(t *testing.T, subprotocol string) (*websocket.Conn, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/api/rooms/ws"
	dialer := websocket.Dialer{
		Subprotocols:     []string{subprotocol},
		HandshakeTimeout: 2 * time.Second,
	}
	ws, resp, err := dialer.Dial(url, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	t.Cleanup(func() { ws.Close() })
	return ws, nil
}

// readServer reads one data frame and decodes it with the given codec.
func readServer(t *testing.T, ws *websocket.Conn, codecName string) protocol.ServerMessage {
	t.Helper()
	codec, err := protocol.Negotiate(codecName)
	require.NoError(t, err)
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	msg, err := codec.DecodeServer(data)
	require.NoError(t, err)
	return msg
}

func expectClose(t *testing.T, ws *websocket.Conn, closeCode int, reason domain.ErrorCode) {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := ws.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, closeCode, closeErr.Code)
	assert.Contains(t, closeErr.Text, string(reason))
}

func TestHandshake_JsonCodec(t *testing.T) {
	ts := newTestServer(t)
	cred := mint(t, credentialOpts{userID: "alice", roomID: "srv1:room1", creating: true})

	ws, err := ts.dial(t, cred+","+protocol.CodecJson)
	require.NoError(t, err)

	msg := readServer(t, ws, protocol.CodecJson)
	info, ok := msg.(*protocol.GetInformation)
	require.True(t, ok, "first frame is the snapshot, got %s", msg.Opcode())
	assert.Equal(t, domain.UserID("alice"), info.User)
	assert.Equal(t, domain.RoomID("srv1:room1"), info.Room.ID)
	assert.Equal(t, domain.UserID("alice"), info.Room.Host)
	require.Len(t, info.Members, 1)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"opcode":0}`)))
	msg = readServer(t, ws, protocol.CodecJson)
	assert.Equal(t, &protocol.Pong{}, msg)
}

func TestHandshake_OppackIsDefaultCodec(t *testing.T) {
	ts := newTestServer(t)
	cred := mint(t, credentialOpts{userID: "alice", roomID: "srv1:room1", creating: true})

	// No codec token at all.
	ws, err := ts.dial(t, cred)
	require.NoError(t, err)

	msg := readServer(t, ws, protocol.CodecOppack)
	_, ok := msg.(*protocol.GetInformation)
	require.True(t, ok)

	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, []byte{byte(protocol.OpPing)}))
	msg = readServer(t, ws, protocol.CodecOppack)
	assert.Equal(t, &protocol.Pong{}, msg)
}

func TestHandshake_SecondMemberSeesJoinFanout(t *testing.T) {
	ts := newTestServer(t)

	first, err := ts.dial(t, mint(t, credentialOpts{userID: "alice", roomID: "srv1:room1", creating: true})+","+protocol.CodecJson)
	require.NoError(t, err)
	_ = readServer(t, first, protocol.CodecJson)

	second, err := ts.dial(t, mint(t, credentialOpts{userID: "bob", roomID: "srv1:room1"})+","+protocol.CodecJson)
	require.NoError(t, err)
	snap := readServer(t, second, protocol.CodecJson).(*protocol.GetInformation)
	assert.Len(t, snap.Members, 2)
	assert.Equal(t, domain.UserID("alice"), snap.Room.Host)

	joined, ok := readServer(t, first, protocol.CodecJson).(*protocol.PlayerJoin)
	require.True(t, ok)
	assert.Equal(t, domain.UserID("bob"), joined.Player.ID)
}

func TestHandshake_MissingSubprotocolRejectedPreUpgrade(t *testing.T) {
	ts := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/api/rooms/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, 400, resp.StatusCode)
}

func TestHandshake_UnknownCodecRejectedPreUpgrade(t *testing.T) {
	ts := newTestServer(t)
	cred := mint(t, credentialOpts{userID: "alice", roomID: "srv1:room1"})

	_, err := ts.dial(t, cred+",Protobuf")
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
}

func TestHandshake_BadCredentialClosedAfterUpgrade(t *testing.T) {
	ts := newTestServer(t)

	ws, err := ts.dial(t, "garbage-token,"+protocol.CodecJson)
	require.NoError(t, err, "rejection happens after the upgrade")
	expectClose(t, ws, websocket.CloseUnsupportedData, domain.CodeCredentialRejected)
}

func TestHandshake_CreatingCollisionRejected(t *testing.T) {
	ts := newTestServer(t)

	first, err := ts.dial(t, mint(t, credentialOpts{userID: "alice", roomID: "srv1:room1", creating: true})+","+protocol.CodecJson)
	require.NoError(t, err)
	_ = readServer(t, first, protocol.CodecJson)

	// A second creation credential for the same id lost the matchmaking
	// race and must not attach to the existing room.
	ws, err := ts.dial(t, mint(t, credentialOpts{userID: "bob", roomID: "srv1:room1", creating: true})+","+protocol.CodecJson)
	require.NoError(t, err)
	expectClose(t, ws, websocket.CloseUnsupportedData, domain.CodeServersBusy)
}

func TestHandshake_KickedMemberGetsReasonedClose(t *testing.T) {
	ts := newTestServer(t)

	host, err := ts.dial(t, mint(t, credentialOpts{userID: "alice", roomID: "srv1:room1", creating: true})+","+protocol.CodecJson)
	require.NoError(t, err)
	_ = readServer(t, host, protocol.CodecJson)

	victim, err := ts.dial(t, mint(t, credentialOpts{userID: "bob", roomID: "srv1:room1"})+","+protocol.CodecJson)
	require.NoError(t, err)
	_ = readServer(t, victim, protocol.CodecJson)
	_ = readServer(t, host, protocol.CodecJson) // PlayerJoin

	require.NoError(t, host.WriteMessage(websocket.TextMessage, []byte(`{"opcode":1,"data":{"user":"bob"}}`)))
	expectClose(t, victim, websocket.CloseUnsupportedData, domain.CodeKickedFromRoom)

	// The kick ran inside the room's serialized context; the host's
	// connection stays live and the room keeps answering. The Pong and
	// the PlayerLeft from bob's teardown race each other, so collect
	// both in either order.
	require.NoError(t, host.WriteMessage(websocket.TextMessage, []byte(`{"opcode":0}`)))
	var sawPong, sawLeft bool
	for i := 0; i < 2; i++ {
		switch msg := readServer(t, host, protocol.CodecJson).(type) {
		case *protocol.Pong:
			sawPong = true
		case *protocol.PlayerLeft:
			sawLeft = true
			assert.Equal(t, domain.UserID("bob"), msg.User)
		default:
			t.Fatalf("unexpected frame %s", msg.Opcode())
		}
	}
	assert.True(t, sawPong)
	assert.True(t, sawLeft)
}

func TestHandshake_UndecodableFrameClosesProtocolError(t *testing.T) {
	ts := newTestServer(t)
	cred := mint(t, credentialOpts{userID: "alice", roomID: "srv1:room1", creating: true})

	ws, err := ts.dial(t, cred+","+protocol.CodecJson)
	require.NoError(t, err)
	_ = readServer(t, ws, protocol.CodecJson)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`not an envelope`)))
	expectClose(t, ws, websocket.CloseProtocolError, domain.CodeInvalidPayload)
}

func TestHandshake_DisconnectRemovesEmptiedRoom(t *testing.T) {
	ts := newTestServer(t)
	cred := mint(t, credentialOpts{userID: "alice", roomID: "srv1:room1", creating: true})

	ws, err := ts.dial(t, cred+","+protocol.CodecJson)
	require.NoError(t, err)
	_ = readServer(t, ws, protocol.CodecJson)
	require.Equal(t, 1, ts.registry.Count())

	ws.Close()
	require.Eventually(t, func() bool {
		return ts.registry.Count() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
