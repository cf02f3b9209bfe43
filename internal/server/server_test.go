package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/uno-lobby/internal/config"
	"github.com/palemoky/uno-lobby/internal/protocol"
	"github.com/palemoky/uno-lobby/internal/protocol/codec"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T, maxConnections int) (*Server, *httptest.Server) {
	t.Helper()

	cfg := config.Default()
	cfg.Auth.JWTSecret = testSecret
	cfg.Server.MaxConnections = maxConnections

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), Protocol: 2})

	s := New(cfg, rdb)
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(func() {
		s.Shutdown(context.Background())
		ts.Close()
	})
	return s, ts
}

type testConn struct {
	conn  *websocket.Conn
	codec codec.Codec
}

func dial(t *testing.T, s *Server, ts *httptest.Server, name, codecName string) *testConn {
	t.Helper()

	token, err := s.verifier.Issue(name, time.Hour)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?codec=" + codecName
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &testConn{conn: conn, codec: codec.ForName(codecName)}
}

func (c *testConn) send(t *testing.T, msgType protocol.MessageType, payload any) {
	t.Helper()
	data, err := c.codec.Encode(codec.MustNewMessage(msgType, payload))
	require.NoError(t, err)
	require.NoError(t, c.conn.WriteMessage(c.codec.FrameType(), data))
}

// readUntil 读取消息直到出现指定类型且满足 match
func (c *testConn) readUntil(t *testing.T, want protocol.MessageType, match func(*protocol.Message) bool) *protocol.Message {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(t, c.conn.SetReadDeadline(deadline))
		frameType, data, err := c.conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", want)
		assert.Equal(t, c.codec.FrameType(), frameType)

		msg, err := c.codec.Decode(data)
		require.NoError(t, err)
		if msg.Type == want && (match == nil || match(msg)) {
			return msg
		}
	}
}

func payloadOf[T any](t *testing.T, msg *protocol.Message) *T {
	t.Helper()
	p, err := codec.ParsePayload[T](msg)
	require.NoError(t, err)
	return p
}

func TestServer_RejectsMissingToken(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, 10)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_MaxConnections(t *testing.T) {
	t.Parallel()
	s, ts := newTestServer(t, 1)

	first := dial(t, s, ts, "a@b.com", "json")
	first.readUntil(t, protocol.MsgConnected, nil)

	token, err := s.verifier.Issue("c@d.com", time.Hour)
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=" + token
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_LobbyFlow(t *testing.T) {
	t.Parallel()
	s, ts := newTestServer(t, 10)

	alice := dial(t, s, ts, "alice@x.com", "json")
	connected := payloadOf[protocol.ConnectedPayload](t, alice.readUntil(t, protocol.MsgConnected, nil))
	assert.Equal(t, "alice@x.com", connected.PlayerName)
	assert.NotEmpty(t, connected.ReconnectToken)

	alice.send(t, protocol.MsgCreateLobby, protocol.CreateLobbyPayload{Name: "Party1"})
	created := payloadOf[protocol.LobbyCreatedPayload](t, alice.readUntil(t, protocol.MsgLobbyCreated, nil))
	lobbyID := created.Lobby.ID

	bob := dial(t, s, ts, "bob@x.com", "json")
	bob.readUntil(t, protocol.MsgConnected, nil)
	bob.send(t, protocol.MsgJoinLobby, protocol.LobbyIDPayload{LobbyID: lobbyID})
	bob.readUntil(t, protocol.MsgLobbyJoined, nil)

	// 房主通过订阅收到新成员
	snapshot := alice.readUntil(t, protocol.MsgLobbySnapshot, func(m *protocol.Message) bool {
		return len(payloadOf[protocol.LobbySnapshotPayload](t, m).Lobby.Users) == 2
	})
	users := payloadOf[protocol.LobbySnapshotPayload](t, snapshot).Lobby.Users
	assert.Equal(t, "bob@x.com", users[1].Name)

	bob.send(t, protocol.MsgUpdateDrawPile, protocol.UpdateDrawPilePayload{
		Card: protocol.CardInfo{Value: 2, Color: "green"},
	})
	bob.readUntil(t, protocol.MsgDrawPileUpdated, nil)
	alice.readUntil(t, protocol.MsgLobbySnapshot, func(m *protocol.Message) bool {
		return payloadOf[protocol.LobbySnapshotPayload](t, m).Lobby.Pioche == protocol.CardInfo{Value: 2, Color: "green"}
	})

	bob.send(t, protocol.MsgDeleteLobby, protocol.LobbyIDPayload{LobbyID: lobbyID})
	bob.readUntil(t, protocol.MsgLobbyDeleted, nil)

	deleted := payloadOf[protocol.LobbyIDPayload](t, alice.readUntil(t, protocol.MsgLobbyDeleted, nil))
	assert.Equal(t, lobbyID, deleted.LobbyID)
}

func TestServer_DeleteNotifiesOwnerOnce(t *testing.T) {
	t.Parallel()
	s, ts := newTestServer(t, 10)

	alice := dial(t, s, ts, "alice@x.com", "json")
	alice.readUntil(t, protocol.MsgConnected, nil)
	alice.send(t, protocol.MsgCreateLobby, protocol.CreateLobbyPayload{Name: "Party1"})
	lobbyID := payloadOf[protocol.LobbyCreatedPayload](t, alice.readUntil(t, protocol.MsgLobbyCreated, nil)).Lobby.ID

	alice.send(t, protocol.MsgDeleteLobby, protocol.LobbyIDPayload{LobbyID: lobbyID})
	alice.readUntil(t, protocol.MsgLobbyDeleted, nil)

	// pong 之前及之后都不应再出现删除通知
	alice.send(t, protocol.MsgPing, protocol.PingPayload{Timestamp: time.Now().UnixMilli()})
	deletes := 0
	require.NoError(t, alice.conn.SetReadDeadline(time.Now().Add(time.Second)))
	for {
		_, data, err := alice.conn.ReadMessage()
		if err != nil {
			break
		}
		msg, err := alice.codec.Decode(data)
		require.NoError(t, err)
		if msg.Type == protocol.MsgLobbyDeleted {
			deletes++
		}
	}
	assert.Zero(t, deletes)
	assert.Equal(t, 0, s.watchCount())
}

func TestServer_ProtoCodec(t *testing.T) {
	t.Parallel()
	s, ts := newTestServer(t, 10)

	_, _, err := s.lobbies.NewLobby(context.Background(), "host@x.com", "Party1")
	require.NoError(t, err)

	conn := dial(t, s, ts, "a@b.com", "proto")
	conn.readUntil(t, protocol.MsgConnected, nil)

	conn.send(t, protocol.MsgSearchLobby, protocol.SearchLobbyPayload{Name: "Party"})
	result := payloadOf[protocol.SearchResultPayload](t, conn.readUntil(t, protocol.MsgSearchResult, nil))
	require.Len(t, result.Lobbies, 1)
	assert.Equal(t, "Party1", result.Lobbies[0].Name)
	assert.Equal(t, 1, result.Lobbies[0].PlayerCount)
}

func TestServer_InvalidFrame(t *testing.T) {
	t.Parallel()
	s, ts := newTestServer(t, 10)

	conn := dial(t, s, ts, "a@b.com", "json")
	conn.readUntil(t, protocol.MsgConnected, nil)

	require.NoError(t, conn.conn.WriteMessage(websocket.TextMessage, []byte("{broken")))
	errPayload := payloadOf[protocol.ErrorPayload](t, conn.readUntil(t, protocol.MsgError, nil))
	assert.Equal(t, protocol.ErrCodeInvalidMsg, errPayload.Code)
}

func TestServer_Reconnect(t *testing.T) {
	t.Parallel()
	s, ts := newTestServer(t, 10)

	first := dial(t, s, ts, "a@b.com", "json")
	connected := payloadOf[protocol.ConnectedPayload](t, first.readUntil(t, protocol.MsgConnected, nil))
	first.send(t, protocol.MsgCreateLobby, protocol.CreateLobbyPayload{Name: "Party1"})
	created := payloadOf[protocol.LobbyCreatedPayload](t, first.readUntil(t, protocol.MsgLobbyCreated, nil))

	require.NoError(t, first.conn.Close())
	assert.Eventually(t, func() bool {
		return !s.sessionManager.IsOnline("a@b.com")
	}, 3*time.Second, 20*time.Millisecond)

	second := dial(t, s, ts, "a@b.com", "json")
	again := payloadOf[protocol.ConnectedPayload](t, second.readUntil(t, protocol.MsgConnected, nil))
	assert.Equal(t, connected.ReconnectToken, again.ReconnectToken)

	second.send(t, protocol.MsgReconnect, protocol.ReconnectPayload{Token: again.ReconnectToken})
	reconnected := payloadOf[protocol.ReconnectedPayload](t, second.readUntil(t, protocol.MsgReconnected, nil))
	assert.Equal(t, created.Lobby.ID, reconnected.LobbyID)
	require.NotNil(t, reconnected.Player)
	assert.True(t, reconnected.Player.Host)
}

func TestServer_Health(t *testing.T) {
	t.Parallel()
	s, ts := newTestServer(t, 10)

	check := func() healthResponse {
		resp, err := http.Get(ts.URL + "/health")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body healthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return body
	}

	assert.Equal(t, healthResponse{Status: "ok"}, check())

	_, _, err := s.lobbies.NewLobby(context.Background(), "a@b.com", "Party1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), check().Lobbies)
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.RemoteAddr = "10.0.0.2:5555"
	assert.Equal(t, "10.0.0.2", clientIP(r))

	r.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	assert.Equal(t, "1.2.3.4", clientIP(r))
}
