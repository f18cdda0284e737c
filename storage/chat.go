package storage

import (
	"context"

	"github.com/AbhayTopno/PopQuiz/domain"
	"github.com/valkey-io/valkey-go"
)

// AppendChat appends m and trims the log to the most recent chatLimit entries.
func (s *ValkeyStore) AppendChat(ctx context.Context, roomId string, m domain.ChatMessage) error {
	raw, err := encodeChat(m)
	if err != nil {
		return err
	}
	cmds := valkey.Commands{
		s.client.B().Rpush().Key(chatKey(roomId)).Element(raw).Build(),
		s.client.B().Ltrim().Key(chatKey(roomId)).Start(-s.chatLimit).Stop(-1).Build(),
	}
	_, err = s.exec(ctx, roomId, cmds, chatKey(roomId))
	return err
}

func (s *ValkeyStore) ChatHistory(ctx context.Context, roomId string) ([]domain.ChatMessage, error) {
	raws, err := s.client.Do(ctx, s.client.B().Lrange().Key(chatKey(roomId)).Start(0).Stop(-1).Build()).AsStrSlice()
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	messages := make([]domain.ChatMessage, 0, len(raws))
	for _, raw := range raws {
		m, err := decodeChat(raw)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, nil
}
