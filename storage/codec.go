package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/AbhayTopno/PopQuiz/domain"
)

const schemaVersion = 1

type playerRecord struct {
	V int `json:"v"`
	domain.Player
}

type chatRecord struct {
	V int `json:"v"`
	domain.ChatMessage
}

type coopMemberRecord struct {
	V int `json:"v"`
	domain.CoopMember
}

func encodePlayer(p domain.Player) (string, error) {
	b, err := json.Marshal(playerRecord{V: schemaVersion, Player: p})
	return string(b), err
}

func decodePlayer(raw string) (domain.Player, error) {
	var rec playerRecord
	if err := decodeVersioned(raw, &rec, &rec.V); err != nil {
		return domain.Player{}, err
	}
	return rec.Player, nil
}

func encodeChat(m domain.ChatMessage) (string, error) {
	b, err := json.Marshal(chatRecord{V: schemaVersion, ChatMessage: m})
	return string(b), err
}

func decodeChat(raw string) (domain.ChatMessage, error) {
	var rec chatRecord
	if err := decodeVersioned(raw, &rec, &rec.V); err != nil {
		return domain.ChatMessage{}, err
	}
	return rec.ChatMessage, nil
}

func encodeCoopMember(m domain.CoopMember) (string, error) {
	b, err := json.Marshal(coopMemberRecord{V: schemaVersion, CoopMember: m})
	return string(b), err
}

func decodeCoopMember(raw string) (domain.CoopMember, error) {
	var rec coopMemberRecord
	if err := decodeVersioned(raw, &rec, &rec.V); err != nil {
		return domain.CoopMember{}, err
	}
	return rec.CoopMember, nil
}

func decodeVersioned(raw string, into any, version *int) error {
	if err := json.Unmarshal([]byte(raw), into); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSchemaVersion, err)
	}
	if *version != schemaVersion {
		return fmt.Errorf("%w: got %d", domain.ErrSchemaVersion, *version)
	}
	return nil
}

func encodeMembers(members []string) string {
	if members == nil {
		members = []string{}
	}
	b, _ := json.Marshal(members)
	return string(b)
}

func decodeMembers(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var members []string
	if err := json.Unmarshal([]byte(raw), &members); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSchemaVersion, err)
	}
	return members, nil
}

func formatMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseMillis(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
