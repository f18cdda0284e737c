package game

import "errors"

var (
	ErrMalformedEvent = errors.New("malformed-event")
	ErrUnknownEvent   = errors.New("unknown-event")
	ErrMissingRoomId  = errors.New("missing-room-id")
	ErrRoomBusy       = errors.New("room-busy")
	ErrRoomOccupied   = errors.New("room-occupied")
	ErrShuttingDown   = errors.New("shutting-down")
	ErrSendBufferFull = errors.New("send-buffer-full")
	ErrClientClosed   = errors.New("client-closed")
)
