package storage

import (
	"context"
	"strconv"
	"strings"

	"github.com/AbhayTopno/PopQuiz/domain"
	"github.com/valkey-io/valkey-go"
)

const roomSchemaField = "schema"

func (s *ValkeyStore) CreateRoom(ctx context.Context, room domain.Room) error {
	cmd := s.client.B().Hset().Key(roomKey(room.Id)).FieldValue().
		FieldValue(roomSchemaField, strconv.Itoa(schemaVersion)).
		FieldValue("roomId", room.Id).
		FieldValue("quizId", room.QuizId).
		FieldValue("mode", string(room.Mode)).
		FieldValue("hostId", room.HostId).
		FieldValue("createdAt", formatMillis(room.CreatedAt)).
		FieldValue("gameStarted", strconv.FormatBool(room.GameStarted)).
		FieldValue("gameFinished", strconv.FormatBool(room.GameFinished)).
		Build()

	_, err := s.exec(ctx, room.Id, valkey.Commands{cmd})
	return err
}

func (s *ValkeyStore) GetRoom(ctx context.Context, roomId string) (domain.Room, error) {
	fields, err := s.client.Do(ctx, s.client.B().Hgetall().Key(roomKey(roomId)).Build()).AsStrMap()
	if err != nil {
		return domain.Room{}, wrapStoreErr(err)
	}
	if len(fields) == 0 {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	if fields[roomSchemaField] != strconv.Itoa(schemaVersion) {
		return domain.Room{}, domain.ErrSchemaVersion
	}

	mode, err := domain.ParseMode(fields["mode"])
	if err != nil {
		return domain.Room{}, err
	}

	return domain.Room{
		Id:           roomId,
		QuizId:       fields["quizId"],
		Mode:         mode,
		HostId:       fields["hostId"],
		CreatedAt:    parseMillis(fields["createdAt"]),
		GameStarted:  fields["gameStarted"] == "true",
		GameFinished: fields["gameFinished"] == "true",
	}, nil
}

func (s *ValkeyStore) UpdateRoomStatus(ctx context.Context, roomId string, update domain.RoomStatusUpdate) error {
	if update.Started == nil && update.Finished == nil {
		return nil
	}
	exists, err := s.RoomExists(ctx, roomId)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrRoomNotFound
	}

	fv := s.client.B().Hset().Key(roomKey(roomId)).FieldValue()
	if update.Started != nil {
		fv = fv.FieldValue("gameStarted", strconv.FormatBool(*update.Started))
	}
	if update.Finished != nil {
		fv = fv.FieldValue("gameFinished", strconv.FormatBool(*update.Finished))
	}
	_, err = s.exec(ctx, roomId, valkey.Commands{fv.Build()})
	return err
}

func (s *ValkeyStore) SetRoomHost(ctx context.Context, roomId, hostId string) error {
	cmd := s.client.B().Hset().Key(roomKey(roomId)).FieldValue().FieldValue("hostId", hostId).Build()
	_, err := s.exec(ctx, roomId, valkey.Commands{cmd})
	return err
}

func (s *ValkeyStore) RoomExists(ctx context.Context, roomId string) (bool, error) {
	n, err := s.client.Do(ctx, s.client.B().Exists().Key(roomKey(roomId)).Build()).AsInt64()
	if err != nil {
		return false, wrapStoreErr(err)
	}
	return n == 1, nil
}

func (s *ValkeyStore) DeleteRoom(ctx context.Context, roomId string) error {
	err := s.client.Do(ctx, s.client.B().Del().Key(allRoomKeys(roomId)...).Build()).Error()
	if err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

func (s *ValkeyStore) ListRoomIds(ctx context.Context) ([]string, error) {
	var (
		ids    []string
		cursor uint64
	)
	for {
		entry, err := s.client.Do(ctx, s.client.B().Scan().Cursor(cursor).Match(roomKey("*")).Count(100).Build()).AsScanEntry()
		if err != nil {
			return nil, wrapStoreErr(err)
		}
		for _, k := range entry.Elements {
			ids = append(ids, strings.TrimPrefix(k, roomKey("")))
		}
		if entry.Cursor == 0 {
			return ids, nil
		}
		cursor = entry.Cursor
	}
}
