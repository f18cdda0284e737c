package game

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AbhayTopno/PopQuiz/auth"
	"github.com/AbhayTopno/PopQuiz/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens map[string]domain.User

func (s staticTokens) Verify(token string) (string, error) {
	u, ok := s[token]
	if !ok {
		return "", domain.ErrCorruptedToken
	}
	return u.Id, nil
}

func (s staticTokens) GetUserById(ctx context.Context, id string) (domain.User, error) {
	for _, u := range s {
		if u.Id == id {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func newTestRouter(env *testEnv, users staticTokens) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewGameHandler(env.coord, NewTickerGen(), []string{"http://localhost:3000"}, 100, 100)
	authHandler := auth.NewHandler(users, users, time.Second)

	r := gin.New()
	r.GET("/ws", authHandler.RequireIdentity(), h.ConnectHandler)
	r.GET("/rooms/:roomId/leaderboard", h.LeaderboardHandler)
	return r
}

func TestLeaderboardHandler(t *testing.T) {
	env := newTestEnv(t)
	r := newTestRouter(env, staticTokens{})

	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/rooms/nope/leaderboard", nil))
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.JSONEq(t, `{"error":"room-not-found"}`, res.Body.String())

	a := newRecordingClient("a", "alice")
	env.join(a, "r1", domain.ModeFFA)

	res = httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/rooms/r1/leaderboard", nil))
	require.Equal(t, http.StatusOK, res.Code)

	var board leaderboardPayload
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &board))
	assert.Equal(t, "r1", board.RoomId)
	require.Len(t, board.Standings, 1)
	assert.Equal(t, "alice", board.Standings[0].Username)
}

func TestConnectHandler(t *testing.T) {
	env := newTestEnv(t)
	users := staticTokens{"good-token": {Id: "u1", Username: "alice"}}
	srv := httptest.NewServer(newTestRouter(env, users))
	t.Cleanup(srv.Close)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	t.Run("rejects anonymous connections", func(t *testing.T) {
		_, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.Error(t, err)
		require.NotNil(t, res)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("rejects foreign origins", func(t *testing.T) {
		header := http.Header{"Origin": []string{"http://evil.com"}}
		_, res, err := websocket.DefaultDialer.Dial(wsURL+"?token=good-token", header)
		require.Error(t, err)
		require.NotNil(t, res)
		assert.Equal(t, http.StatusForbidden, res.StatusCode)
	})

	t.Run("plays through the socket", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token=good-token", nil)
		require.NoError(t, err)
		defer conn.Close()

		read := func(event string) json.RawMessage {
			t.Helper()
			require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
			for {
				_, data, err := conn.ReadMessage()
				require.NoError(t, err)
				var p received
				require.NoError(t, json.Unmarshal(data, &p))
				if p.Event == event {
					return p.Data
				}
			}
		}

		var hello connectedPayload
		require.NoError(t, json.Unmarshal(read(OutConnected), &hello))
		assert.Equal(t, "alice", hello.Username)
		assert.NotEmpty(t, hello.PlayerId)

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"join-room","data":{"roomId":"ws-room","mode":"1v1"}}`)))
		var state roomStatePayload
		require.NoError(t, json.Unmarshal(read(OutRoomState), &state))
		assert.Equal(t, hello.PlayerId, state.HostId)

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"nope"}`)))
		var e errorPayload
		require.NoError(t, json.Unmarshal(read(OutError), &e))
		assert.Equal(t, "unknown event", e.Message)

		conn.Close()
		require.Eventually(t, func() bool {
			n, err := env.store.PlayerCount(context.Background(), "ws-room")
			return err == nil && n == 0
		}, 2*time.Second, 5*time.Millisecond, "a dropped connection leaves its rooms")
	})
}
