package game

import (
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/AbhayTopno/PopQuiz/auth"
	"github.com/AbhayTopno/PopQuiz/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const pingInterval = 30 * time.Second

type GameHandler struct {
	coord           *Coordinator
	tickers         TickerCreator
	upgrader        websocket.Upgrader
	eventsPerSecond rate.Limit
	eventBurst      int
}

func NewGameHandler(coord *Coordinator, tickers TickerCreator, allowedOrigins []string, eventsPerSecond float64, eventBurst int) *GameHandler {
	return &GameHandler{
		coord:   coord,
		tickers: tickers,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
		eventsPerSecond: rate.Limit(eventsPerSecond),
		eventBurst:      eventBurst,
	}
}

func (h *GameHandler) ConnectHandler(ctx *gin.Context) {
	identity, ok := auth.Identity(ctx)
	if !ok {
		log.Error().
			Str("ip", ctx.ClientIP()).
			Str("user_agent", ctx.Request.UserAgent()).
			Msg("Unexpected error, identity not found. What is the middleware doing?")
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unknown-error"})
		return
	}

	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("userId", identity.Id).Msg("websocket upgrade failed")
		return
	}

	client := NewSocketClient(identity, NewWebsocketConnection(conn), rate.NewLimiter(h.eventsPerSecond, h.eventBurst))
	client.Send(encodePacket(OutConnected, connectedPayload{PlayerId: client.Id(), Username: identity.Username}))

	pings, stop := h.tickers.Create(pingInterval)
	go func() {
		defer stop()
		client.WritePump(pings)
	}()
	go client.ReadPump(h.coord)

	log.Info().Str("userId", identity.Id).Str("playerId", client.Id()).Msg("player connected")
}

func (h *GameHandler) LeaderboardHandler(ctx *gin.Context) {
	roomId := ctx.Param("roomId")
	standings, err := h.coord.Standings(ctx.Request.Context(), roomId)
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		ctx.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "room-not-found"})
	case err != nil:
		log.Error().Err(err).Str("roomId", roomId).Msg("leaderboard read failed")
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unknown-error"})
	default:
		ctx.JSON(http.StatusOK, standings)
	}
}
