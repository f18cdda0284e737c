package game

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AbhayTopno/PopQuiz/domain"
	"github.com/AbhayTopno/PopQuiz/storage"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- QuizGetter ---

type MockQuizGetter struct {
	mock.Mock
}

func (m *MockQuizGetter) GetQuizById(ctx context.Context, id string) (domain.Quiz, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Quiz), args.Error(1)
}

// --- RoomReaper ---

type MockRoomReaper struct {
	mock.Mock
}

func (m *MockRoomReaper) Reap(ctx context.Context, roomId string) error {
	args := m.Called(ctx, roomId)
	return args.Error(0)
}

// --- WebsocketConnection ---

type MockWebsocketConnection struct {
	mock.Mock
}

func (m *MockWebsocketConnection) Close(reason string) {
	m.Called(reason)
}

func (m *MockWebsocketConnection) Write(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockWebsocketConnection) Read() ([]byte, error) {
	args := m.Called()
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockWebsocketConnection) Ping() error {
	args := m.Called()
	return args.Error(0)
}

// --- Clock ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- TickerCreator ---

type fakeTicker struct {
	d       time.Duration
	c       chan time.Time
	stopped atomic.Bool
}

type fakeTickers struct {
	mu      sync.Mutex
	created []*fakeTicker
}

func (ft *fakeTickers) Create(d time.Duration) (<-chan time.Time, func()) {
	tk := &fakeTicker{d: d, c: make(chan time.Time)}
	ft.mu.Lock()
	ft.created = append(ft.created, tk)
	ft.mu.Unlock()
	return tk.c, func() { tk.stopped.Store(true) }
}

// active returns the most recent running ticker of duration d.
func (ft *fakeTickers) active(d time.Duration) *fakeTicker {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	for i := len(ft.created) - 1; i >= 0; i-- {
		if tk := ft.created[i]; tk.d == d && !tk.stopped.Load() {
			return tk
		}
	}
	return nil
}

func (ft *fakeTickers) all(d time.Duration) []*fakeTicker {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	var res []*fakeTicker
	for _, tk := range ft.created {
		if tk.d == d {
			res = append(res, tk)
		}
	}
	return res
}

// --- Client ---

type received struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type recordingClient struct {
	id   string
	user domain.User

	mu      sync.Mutex
	packets []received
	closed  string
}

func newRecordingClient(id, username string) *recordingClient {
	return &recordingClient{id: id, user: domain.User{Id: "user-" + id, Username: username}}
}

func (c *recordingClient) Id() string            { return c.id }
func (c *recordingClient) Identity() domain.User { return c.user }

func (c *recordingClient) Send(data []byte) error {
	var p received
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.packets = append(c.packets, p)
	return nil
}

func (c *recordingClient) Close(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = reason
}

func (c *recordingClient) events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.packets))
	for _, p := range c.packets {
		names = append(names, p.Event)
	}
	return names
}

func (c *recordingClient) count(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, p := range c.packets {
		if p.Event == event {
			n++
		}
	}
	return n
}

// last decodes the most recent packet named event into into.
func (c *recordingClient) last(t *testing.T, event string, into any) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.packets) - 1; i >= 0; i-- {
		if c.packets[i].Event == event {
			require.NoError(t, json.Unmarshal(c.packets[i].Data, into))
			return
		}
	}
	require.Failf(t, "packet not received", "%s never reached %s, got %v", event, c.id, c.eventsLocked())
}

// dispatchAndRead sends ev as c and decodes c's reply named event.
func (c *recordingClient) dispatchAndRead(t *testing.T, env *testEnv, ev InboundEvent, event string, into any) {
	t.Helper()
	env.dispatch(c, ev)
	env.settle(ev.Room())
	c.last(t, event, into)
}

func (c *recordingClient) eventsLocked() []string {
	names := make([]string, 0, len(c.packets))
	for _, p := range c.packets {
		names = append(names, p.Event)
	}
	return names
}

func (c *recordingClient) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.packets = nil
}

// --- environment ---

type testEnv struct {
	t       *testing.T
	mr      *miniredis.Miniredis
	store   *storage.ValkeyStore
	clock   *fakeClock
	tickers *fakeTickers
	quizzes *MockQuizGetter
	coord   *Coordinator
	markers atomic.Int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := storage.NewValkeyStore(context.Background(), storage.ValkeyConfig{Addr: mr.Addr(), DisableCache: true})
	require.NoError(t, err)
	t.Cleanup(store.Close)

	env := &testEnv{
		t:       t,
		mr:      mr,
		store:   store,
		clock:   newFakeClock(),
		tickers: &fakeTickers{},
		quizzes: &MockQuizGetter{},
	}
	env.quizzes.On("GetQuizById", mock.Anything, mock.Anything).Return(domain.Quiz{}, domain.ErrQuizNotFound).Maybe()
	env.coord = NewCoordinator(store, env.quizzes, env.clock, env.tickers, DefaultOptions())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		env.coord.Shutdown(ctx)
	})
	return env
}

func (e *testEnv) dispatch(from Client, ev InboundEvent) {
	e.t.Helper()
	require.NoError(e.t, e.coord.Dispatch(from, ev))
}

// settle waits until the room actor processed everything queued so far.
func (e *testEnv) settle(roomId string) {
	e.t.Helper()
	marker := newRecordingClient(fmt.Sprintf("marker-%d", e.markers.Add(1)), "marker")
	e.dispatch(marker, &GetLeaderboard{roomRef{roomId}})
	require.Eventually(e.t, func() bool { return len(marker.events()) > 0 }, 2*time.Second, time.Millisecond)
}

func (e *testEnv) join(c *recordingClient, roomId string, mode domain.Mode) {
	e.t.Helper()
	e.dispatch(c, &JoinRoom{roomRef: roomRef{roomId}, Username: c.user.Username, Mode: string(mode), QuizId: "q1"})
	e.settle(roomId)
}

func (e *testEnv) fire(tk *fakeTicker) {
	e.t.Helper()
	require.NotNil(e.t, tk, "ticker not running")
	select {
	case tk.c <- e.clock.Now():
	case <-time.After(2 * time.Second):
		e.t.Fatal("ticker was not read")
	}
}

func (e *testEnv) player(roomId, id string) domain.Player {
	e.t.Helper()
	p, err := e.store.GetPlayer(context.Background(), roomId, id)
	require.NoError(e.t, err)
	return p
}
