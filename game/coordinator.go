package game

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Options struct {
	EmptyRoomGrace    time.Duration
	CountdownFrom     int
	CountdownInterval time.Duration
	StoreTimeout      time.Duration
	InboxSize         int
	MaxChatLength     int
	MaxReactionLength int
	TeamAssignRetries int
}

func DefaultOptions() Options {
	return Options{
		EmptyRoomGrace:    5 * time.Minute,
		CountdownFrom:     3,
		CountdownInterval: time.Second,
		StoreTimeout:      2 * time.Second,
		InboxSize:         256,
		MaxChatLength:     500,
		MaxReactionLength: 32,
		TeamAssignRetries: 5,
	}
}

type envelope struct {
	from  Client
	event InboundEvent
}

// Coordinator routes events to one actor goroutine per live room and
// remembers which rooms each connection joined.
type Coordinator struct {
	store   RoomStore
	quizzes QuizGetter
	clock   Clock
	tickers TickerCreator
	teams   *teamResolver
	opts    Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	rooms       map[string]*room
	memberships map[string]map[string]struct{}
}

func NewCoordinator(store RoomStore, quizzes QuizGetter, clock Clock, tickers TickerCreator, opts Options) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		store:       store,
		quizzes:     quizzes,
		clock:       clock,
		tickers:     tickers,
		teams:       newTeamResolver(store, opts.TeamAssignRetries),
		opts:        opts,
		ctx:         ctx,
		cancel:      cancel,
		rooms:       map[string]*room{},
		memberships: map[string]map[string]struct{}{},
	}
}

// Dispatch hands ev to the actor of its room, starting one if needed.
// It never blocks; a saturated room yields ErrRoomBusy.
func (c *Coordinator) Dispatch(from Client, ev InboundEvent) error {
	return c.enqueue(envelope{from: from, event: ev})
}

// Disconnect tells every room from joined that the connection is gone.
func (c *Coordinator) Disconnect(from Client) {
	c.mu.Lock()
	joined := c.memberships[from.Id()]
	delete(c.memberships, from.Id())
	c.mu.Unlock()

	for roomId := range joined {
		if err := c.enqueue(envelope{from: from, event: &disconnected{roomRef{roomId}}}); err != nil {
			log.Warn().Err(err).Str("roomId", roomId).Str("playerId", from.Id()).Msg("dropping disconnect")
		}
	}
}

// Reap deletes roomId through its actor if nobody is in it.
func (c *Coordinator) Reap(ctx context.Context, roomId string) error {
	req := &reapRequest{roomRef: roomRef{roomId}, done: make(chan error, 1)}
	if err := c.enqueue(envelope{event: req}); err != nil {
		return err
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Standings reads the current ranking of a room without going through its actor.
func (c *Coordinator) Standings(ctx context.Context, roomId string) (leaderboardPayload, error) {
	res, err := loadStandings(ctx, c.store, roomId)
	if err != nil {
		return leaderboardPayload{}, err
	}
	return leaderboardPayload{RoomId: roomId, Standings: res.Standings, Teams: res.Teams, CoopScore: res.CoopScore}, nil
}

// Shutdown stops every room actor and waits for them until ctx expires.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.cancel()
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) enqueue(env envelope) error {
	roomId := env.event.Room()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx.Err() != nil {
		return ErrShuttingDown
	}
	r, ok := c.rooms[roomId]
	if !ok {
		r = newRoom(c, roomId)
		c.rooms[roomId] = r
		c.wg.Add(1)
		go r.run()
	}

	select {
	case r.inbox <- env:
	default:
		return ErrRoomBusy
	}
	// A join is tracked once queued so a later Disconnect always follows it
	// into the inbox.
	if _, ok := env.event.(*JoinRoom); ok && env.from != nil {
		c.trackLocked(env.from.Id(), roomId)
	}
	return nil
}

// release unregisters r. Events enqueued afterwards start a fresh actor.
func (c *Coordinator) release(r *room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rooms[r.id] == r {
		delete(c.rooms, r.id)
	}
}

func (c *Coordinator) redispatch(env envelope) {
	if err := c.enqueue(env); err != nil {
		log.Warn().Err(err).Str("roomId", env.event.Room()).Msgf("lost %T while room was closing", env.event)
		if req, ok := env.event.(*reapRequest); ok {
			req.done <- err
		}
	}
}

func (c *Coordinator) track(clientId, roomId string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trackLocked(clientId, roomId)
}

func (c *Coordinator) trackLocked(clientId, roomId string) {
	joined, ok := c.memberships[clientId]
	if !ok {
		joined = map[string]struct{}{}
		c.memberships[clientId] = joined
	}
	joined[roomId] = struct{}{}
}

func (c *Coordinator) untrack(clientId, roomId string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if joined, ok := c.memberships[clientId]; ok {
		delete(joined, roomId)
		if len(joined) == 0 {
			delete(c.memberships, clientId)
		}
	}
}

func (c *Coordinator) liveRooms() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rooms)
}
