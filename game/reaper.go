package game

import (
	"context"
	"errors"
	"time"

	"github.com/AbhayTopno/PopQuiz/domain"
	"github.com/rs/zerolog/log"
)

type RoomReaper interface {
	Reap(ctx context.Context, roomId string) error
}

// Reaper periodically removes rooms that stayed empty past the grace period.
type Reaper struct {
	store    RoomStore
	rooms    RoomReaper
	clock    Clock
	tickers  TickerCreator
	interval time.Duration
	grace    time.Duration
}

func NewReaper(store RoomStore, rooms RoomReaper, clock Clock, tickers TickerCreator, interval, grace time.Duration) *Reaper {
	return &Reaper{
		store:    store,
		rooms:    rooms,
		clock:    clock,
		tickers:  tickers,
		interval: interval,
		grace:    grace,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (rp *Reaper) Run(ctx context.Context) {
	ticks, stop := rp.tickers.Create(rp.interval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			rp.Sweep(ctx)
		}
	}
}

// Sweep reaps every eligible room and returns how many were deleted.
func (rp *Reaper) Sweep(ctx context.Context) int {
	ids, err := rp.store.ListRoomIds(ctx)
	if err != nil {
		log.Error().Err(err).Msg("reaper could not list rooms")
		return 0
	}

	reaped := 0
	for _, id := range ids {
		ok, err := rp.sweepRoom(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("roomId", id).Msg("reaper skipped room")
			continue
		}
		if ok {
			reaped++
		}
	}
	log.Debug().Int("rooms", len(ids)).Int("reaped", reaped).Msg("reaper sweep done")
	return reaped
}

func (rp *Reaper) sweepRoom(ctx context.Context, roomId string) (bool, error) {
	count, err := rp.store.PlayerCount(ctx, roomId)
	if err != nil || count > 0 {
		return false, err
	}
	room, err := rp.store.GetRoom(ctx, roomId)
	if errors.Is(err, domain.ErrRoomNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if rp.clock.Now().Sub(room.CreatedAt) < rp.grace {
		return false, nil
	}

	err = rp.rooms.Reap(ctx, roomId)
	if errors.Is(err, ErrRoomOccupied) {
		return false, nil
	}
	return err == nil, err
}
