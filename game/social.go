package game

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/AbhayTopno/PopQuiz/domain"
	"github.com/google/uuid"
)

func (r *room) handleChat(from Client, ev *SendMessage) {
	text := strings.TrimSpace(ev.Message)
	if text == "" {
		return
	}
	if utf8.RuneCountInString(text) > r.coord.opts.MaxChatLength {
		r.sendError(from, "message is too long")
		return
	}

	ctx, cancel := r.opCtx()
	defer cancel()

	player, ok := r.loadPlayer(ctx, from)
	if !ok {
		return
	}
	msg := domain.ChatMessage{
		Id:        uuid.NewString(),
		Username:  player.Username,
		Message:   text,
		Timestamp: r.coord.clock.Now(),
		Avatar:    player.Avatar,
	}
	if err := r.store.AppendChat(ctx, r.id, msg); err != nil {
		r.fail(from, "send your message", err)
		return
	}
	r.broadcast(OutChatMessage, msg)
}

func (r *room) handleSettings(from Client, ev *UpdateSettings) {
	ctx, cancel := r.opCtx()
	defer cancel()

	room, ok := r.loadRoom(ctx, from)
	if !ok || !r.requireHost(from, room, "change settings") {
		return
	}
	r.settings = ev.Settings
	if len(r.settings) == 0 {
		r.settings = json.RawMessage("{}")
	}
	r.broadcast(OutSettingsUpdate, settingsPayload{RoomId: r.id, Settings: r.settings})
}

func (r *room) handleUpdateTeams(from Client, ev *UpdateTeamAssignments) {
	ctx, cancel := r.opCtx()
	defer cancel()

	room, ok := r.loadRoom(ctx, from)
	if !ok {
		return
	}
	if !room.Mode.HasTeams() {
		r.sendError(from, "this room has no teams")
		return
	}
	if !r.requireHost(from, room, "change teams") {
		return
	}

	players, err := r.store.GetAllPlayers(ctx, r.id)
	if err != nil {
		r.fail(from, "change teams", err)
		return
	}
	teams, err := r.coord.teams.replace(ctx, r.id, ev.TeamAssignments, players)
	if errors.Is(err, domain.ErrInvalidTeamAssignment) {
		r.sendError(from, "a player can only be in one team")
		return
	}
	if err != nil {
		r.fail(from, "change teams", err)
		return
	}
	r.logger.Info().Strs("teamA", teams.TeamA).Strs("teamB", teams.TeamB).Msg("teams reassigned by host")
	r.broadcast(OutTeamsUpdate, teamsPayload{TeamAssignments: teams})
}

func (r *room) handleLeaderboard(from Client) {
	ctx, cancel := r.opCtx()
	defer cancel()

	res, err := loadStandings(ctx, r.store, r.id)
	if errors.Is(err, domain.ErrRoomNotFound) {
		r.sendError(from, "room not found")
		return
	}
	if err != nil {
		r.fail(from, "load the leaderboard", err)
		return
	}
	r.send(from, OutLeaderboardUpdate, leaderboardPayload{
		RoomId:    r.id,
		Standings: res.Standings,
		Teams:     res.Teams,
		CoopScore: res.CoopScore,
	})
}

func (r *room) handleTyping(from Client, ev *Typing) {
	ctx, cancel := r.opCtx()
	defer cancel()

	player, ok := r.loadPlayer(ctx, from)
	if !ok {
		return
	}
	r.broadcastExcept(player.Id, OutUserTyping, typingPayload{PlayerId: player.Id, Username: player.Username, IsTyping: ev.IsTyping})
}

func (r *room) handleReaction(from Client, ev *SendReaction) {
	reaction := strings.TrimSpace(ev.Reaction)
	if reaction == "" || len(reaction) > r.coord.opts.MaxReactionLength {
		return
	}

	ctx, cancel := r.opCtx()
	defer cancel()

	player, ok := r.loadPlayer(ctx, from)
	if !ok {
		return
	}
	r.broadcast(OutPlayerReaction, reactionPayload{PlayerId: player.Id, Username: player.Username, Reaction: reaction})
}
