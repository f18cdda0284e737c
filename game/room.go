package game

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/AbhayTopno/PopQuiz/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// room is the actor owning every mutation of one room within this process.
// All fields are touched only by the run goroutine.
type room struct {
	id    string
	coord *Coordinator
	store RoomStore

	ctx    context.Context
	cancel context.CancelFunc
	inbox  chan envelope
	closed bool

	members  map[string]Client
	settings json.RawMessage

	mode     domain.Mode
	quiz     *domain.Quiz
	quizId   string
	duration time.Duration

	countdown     int
	countdownC    <-chan time.Time
	stopCountdown func()

	graceC    <-chan time.Time
	stopGrace func()

	logger zerolog.Logger
}

func newRoom(c *Coordinator, id string) *room {
	ctx, cancel := context.WithCancel(c.ctx)
	return &room{
		id:      id,
		coord:   c,
		store:   c.store,
		ctx:     ctx,
		cancel:  cancel,
		inbox:   make(chan envelope, max(c.opts.InboxSize, 1)),
		members: map[string]Client{},
		logger:  log.With().Str("roomId", id).Logger(),
	}
}

func (r *room) run() {
	defer r.coord.wg.Done()

	r.armGrace()
	for !r.closed {
		select {
		case env := <-r.inbox:
			r.handle(env)
		case <-r.countdownC:
			r.tickCountdown()
		case <-r.graceC:
			r.graceExpired()
		case <-r.ctx.Done():
			r.logger.Debug().Msg("room actor stopped")
			r.close()
		}
	}
}

func (r *room) handle(env envelope) {
	switch ev := env.event.(type) {
	case *JoinRoom:
		r.handleJoin(env.from, ev)
	case *PlayerReady:
		r.handleReady(env.from)
	case *SendMessage:
		r.handleChat(env.from, ev)
	case *SubmitAnswer:
		r.handleAnswer(env.from, ev)
	case *SubmitTeamAnswer:
		r.handleTeamAnswer(env.from, ev)
	case *SubmitCoopAnswer:
		r.handleCoopAnswer(env.from, ev)
	case *QuestionProgress:
		r.handleProgress(env.from, ev)
	case *FinishQuiz:
		r.handleFinish(env.from, ev)
	case *LeaveRoom:
		r.handleLeave(env.from, true)
	case *disconnected:
		r.handleLeave(env.from, false)
	case *KickPlayer:
		r.handleKick(env.from, ev)
	case *UpdateTeamAssignments:
		r.handleUpdateTeams(env.from, ev)
	case *UpdateSettings:
		r.handleSettings(env.from, ev)
	case *InitQuiz:
		r.handleInit(env.from, ev)
	case *StartQuiz:
		r.handleStart(env.from, ev)
	case *GetLeaderboard:
		r.handleLeaderboard(env.from)
	case *Typing:
		r.handleTyping(env.from, ev)
	case *SendReaction:
		r.handleReaction(env.from, ev)
	case *reapRequest:
		ev.done <- r.reap()
	default:
		r.logger.Error().Msgf("unhandled event %T", ev)
	}
}

// close unregisters the actor and hands any queued events to its successor.
func (r *room) close() {
	if r.closed {
		return
	}
	r.closed = true
	r.coord.release(r)
	r.cancel()
	r.stopCountdownTicker()
	r.disarmGrace()

	for {
		select {
		case env := <-r.inbox:
			r.coord.redispatch(env)
		default:
			return
		}
	}
}

func (r *room) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.ctx, r.coord.opts.StoreTimeout)
}

func (r *room) armGrace() {
	if r.graceC != nil || len(r.members) > 0 {
		return
	}
	r.graceC, r.stopGrace = r.coord.tickers.Create(r.coord.opts.EmptyRoomGrace)
}

func (r *room) disarmGrace() {
	if r.stopGrace != nil {
		r.stopGrace()
	}
	r.graceC, r.stopGrace = nil, nil
}

func (r *room) graceExpired() {
	r.disarmGrace()
	if len(r.members) > 0 {
		return
	}

	ctx, cancel := r.opCtx()
	defer cancel()

	count, err := r.store.PlayerCount(ctx, r.id)
	if err != nil {
		r.logger.Warn().Err(err).Msg("could not check whether the room is empty")
		r.armGrace()
		return
	}
	if count == 0 {
		room, err := r.store.GetRoom(ctx, r.id)
		switch {
		case errors.Is(err, domain.ErrRoomNotFound):
		case err != nil:
			r.logger.Warn().Err(err).Msg("could not read room before cleanup")
		case r.coord.clock.Now().Sub(room.CreatedAt) >= r.coord.opts.EmptyRoomGrace:
			if err := r.store.DeleteRoom(ctx, r.id); err != nil {
				r.logger.Warn().Err(err).Msg("could not delete empty room")
			} else {
				r.logger.Info().Msg("empty room deleted")
			}
		}
	}
	r.close()
}

func (r *room) reap() error {
	if len(r.members) > 0 {
		return ErrRoomOccupied
	}
	ctx, cancel := r.opCtx()
	defer cancel()

	count, err := r.store.PlayerCount(ctx, r.id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrRoomOccupied
	}
	if err := r.store.DeleteRoom(ctx, r.id); err != nil {
		return err
	}
	r.logger.Info().Msg("room reaped")
	r.close()
	return nil
}

func (r *room) addMember(c Client) {
	r.members[c.Id()] = c
	r.coord.track(c.Id(), r.id)
	r.disarmGrace()
}

func (r *room) removeMember(id string) {
	if _, ok := r.members[id]; !ok {
		return
	}
	delete(r.members, id)
	r.coord.untrack(id, r.id)
	r.armGrace()
}

func (r *room) send(to Client, event string, data any) {
	if to == nil {
		return
	}
	r.deliver(to, encodePacket(event, data))
}

func (r *room) deliver(to Client, b []byte) {
	if b == nil {
		return
	}
	if err := to.Send(b); err != nil {
		r.logger.Warn().Err(err).Str("playerId", to.Id()).Msg("closing slow client")
		to.Close(err.Error())
	}
}

func (r *room) broadcast(event string, data any) {
	r.broadcastExcept("", event, data)
}

func (r *room) broadcastExcept(skipId, event string, data any) {
	b := encodePacket(event, data)
	for id, c := range r.members {
		if id != skipId {
			r.deliver(c, b)
		}
	}
}

func (r *room) sendError(to Client, message string) {
	r.send(to, OutError, errorPayload{Message: message})
}

// fail reports a store failure to the acting client.
func (r *room) fail(to Client, action string, err error) {
	ev := r.logger.Error().Err(err).Str("action", action)
	if to != nil {
		ev = ev.Str("playerId", to.Id())
	}
	ev.Msg("store operation failed")
	r.sendError(to, "could not "+action)
}

func (r *room) requireHost(from Client, room domain.Room, action string) bool {
	if room.HostId == from.Id() || from.Identity().IsAdmin {
		return true
	}
	r.sendError(from, "only the host can "+action)
	return false
}

func (r *room) systemMessage(ctx context.Context, text string) (domain.ChatMessage, bool) {
	msg := domain.ChatMessage{
		Id:        uuid.NewString(),
		Username:  "System",
		Message:   text,
		Timestamp: r.coord.clock.Now(),
		System:    true,
	}
	if err := r.store.AppendChat(ctx, r.id, msg); err != nil {
		r.logger.Warn().Err(err).Msg("could not append system message")
		return msg, false
	}
	return msg, true
}

// loadRoom reads the room and caches its mode. A missing room is reported
// to from when from is set.
func (r *room) loadRoom(ctx context.Context, from Client) (domain.Room, bool) {
	room, err := r.store.GetRoom(ctx, r.id)
	if errors.Is(err, domain.ErrRoomNotFound) {
		r.sendError(from, "room not found")
		return domain.Room{}, false
	}
	if err != nil {
		r.fail(from, "load the room", err)
		return domain.Room{}, false
	}
	r.mode = room.Mode
	return room, true
}

// loadPlayer reads the acting player. Missing players are ignored.
func (r *room) loadPlayer(ctx context.Context, from Client) (domain.Player, bool) {
	p, err := r.store.GetPlayer(ctx, r.id, from.Id())
	if errors.Is(err, domain.ErrPlayerNotFound) {
		r.logger.Debug().Str("playerId", from.Id()).Msg("event from a player not in the room")
		return domain.Player{}, false
	}
	if err != nil {
		r.fail(from, "load the player", err)
		return domain.Player{}, false
	}
	return p, true
}
