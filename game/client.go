package game

import (
	"errors"
	"sync"
	"time"

	"github.com/AbhayTopno/PopQuiz/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type WebsocketConnection interface {
	Close(reason string)
	Write(data []byte) error
	Read() ([]byte, error)
	Ping() error
}

type Dispatcher interface {
	Dispatch(from Client, ev InboundEvent) error
	Disconnect(from Client)
}

const outboxSize = 256

// SocketClient is one websocket connection. ReadPump and WritePump each
// run on their own goroutine.
type SocketClient struct {
	id       string
	identity domain.User
	socket   WebsocketConnection
	limiter  *rate.Limiter
	outbox   chan []byte

	done      chan struct{}
	closeOnce sync.Once
	reason    string
}

func NewSocketClient(identity domain.User, socket WebsocketConnection, limiter *rate.Limiter) *SocketClient {
	return &SocketClient{
		id:       uuid.NewString(),
		identity: identity,
		socket:   socket,
		limiter:  limiter,
		outbox:   make(chan []byte, outboxSize),
		done:     make(chan struct{}),
	}
}

func (sc *SocketClient) Id() string            { return sc.id }
func (sc *SocketClient) Identity() domain.User { return sc.identity }

// Send queues data without blocking.
func (sc *SocketClient) Send(data []byte) error {
	select {
	case <-sc.done:
		return ErrClientClosed
	default:
	}
	select {
	case sc.outbox <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close makes the write pump flush and close the socket. Safe to call twice.
func (sc *SocketClient) Close(reason string) {
	sc.closeOnce.Do(func() {
		sc.reason = reason
		close(sc.done)
	})
}

func (sc *SocketClient) ReadPump(d Dispatcher) {
	defer d.Disconnect(sc)
	defer sc.Close("")

	for {
		data, err := sc.socket.Read()
		if err != nil {
			return
		}
		if !sc.limiter.Allow() {
			sc.reject("slow down")
			continue
		}

		ev, err := DecodeEvent(data)
		if err != nil {
			log.Debug().Err(err).Str("playerId", sc.id).Msg("rejected inbound frame")
			sc.reject(rejectMessage(err))
			continue
		}
		if err := d.Dispatch(sc, ev); err != nil {
			log.Warn().Err(err).Str("playerId", sc.id).Str("roomId", ev.Room()).Msg("could not dispatch event")
			sc.reject(rejectMessage(err))
		}
	}
}

func (sc *SocketClient) WritePump(pings <-chan time.Time) {
	defer func() { sc.socket.Close(sc.closeReason()) }()

	for {
		select {
		case data := <-sc.outbox:
			if err := sc.socket.Write(data); err != nil {
				sc.Close("write-failed")
				return
			}
		case <-pings:
			if err := sc.socket.Ping(); err != nil {
				sc.Close("ping-failed")
				return
			}
		case <-sc.done:
			sc.flush()
			return
		}
	}
}

func (sc *SocketClient) flush() {
	for {
		select {
		case data := <-sc.outbox:
			if err := sc.socket.Write(data); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (sc *SocketClient) closeReason() string {
	select {
	case <-sc.done:
		return sc.reason
	default:
		return ""
	}
}

func (sc *SocketClient) reject(message string) {
	if err := sc.Send(encodePacket(OutError, errorPayload{Message: message})); err != nil {
		sc.Close(err.Error())
	}
}

func rejectMessage(err error) string {
	switch {
	case errors.Is(err, ErrUnknownEvent):
		return "unknown event"
	case errors.Is(err, ErrMissingRoomId):
		return "roomId is required"
	case errors.Is(err, ErrMalformedEvent):
		return "malformed event"
	case errors.Is(err, ErrRoomBusy):
		return "room busy"
	case errors.Is(err, ErrShuttingDown):
		return "server is shutting down"
	}
	return "unknown error"
}
