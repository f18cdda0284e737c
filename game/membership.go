package game

import (
	"context"
	"errors"

	"github.com/AbhayTopno/PopQuiz/domain"
)

func (r *room) handleJoin(from Client, ev *JoinRoom) {
	defer func() {
		if _, ok := r.members[from.Id()]; !ok {
			r.coord.untrack(from.Id(), r.id)
		}
	}()

	mode, err := domain.ParseMode(ev.Mode)
	if err != nil {
		r.sendError(from, "unknown game mode")
		return
	}

	ctx, cancel := r.opCtx()
	defer cancel()

	created := false
	room, err := r.store.GetRoom(ctx, r.id)
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		created = true
		room = domain.Room{
			Id:        r.id,
			QuizId:    ev.QuizId,
			Mode:      mode,
			HostId:    from.Id(),
			CreatedAt: r.coord.clock.Now(),
		}
	case err != nil:
		r.fail(from, "join the room", err)
		return
	}
	r.mode = room.Mode

	players, err := r.store.GetAllPlayers(ctx, r.id)
	if err != nil {
		r.fail(from, "join the room", err)
		return
	}
	existing, rejoin := findPlayer(players, from.Id())
	if !rejoin && len(players) >= room.Mode.Capacity() {
		r.logger.Info().Str("playerId", from.Id()).Int("capacity", room.Mode.Capacity()).Msg("join rejected, room is full")
		r.send(from, OutRoomFull, roomFullPayload{RoomId: r.id, Capacity: room.Mode.Capacity()})
		return
	}

	if created {
		if err := r.store.CreateRoom(ctx, room); err != nil {
			r.fail(from, "create the room", err)
			return
		}
		r.logger.Info().Str("mode", string(room.Mode)).Str("hostId", room.HostId).Msg("room created")
	}

	identity := from.Identity()
	player := domain.Player{
		Id:       from.Id(),
		Username: effectiveUsername(identity, ev.Username),
		Avatar:   identity.Avatar,
		JoinedAt: r.coord.clock.Now(),
		Answers:  []domain.Answer{},
	}
	if player.Avatar == "" {
		player.Avatar = ev.Avatar
	}
	if rejoin {
		existing.Username, existing.Avatar = player.Username, player.Avatar
		player = existing
	}
	if err := r.store.AddPlayer(ctx, r.id, player); err != nil {
		r.fail(from, "join the room", err)
		return
	}
	players = upsertPlayer(players, player)

	rollback := func(action string, err error) {
		if !rejoin {
			if rerr := r.store.RemovePlayer(ctx, r.id, player.Id); rerr != nil {
				r.logger.Error().Err(rerr).Str("playerId", player.Id).Msg("could not roll back join")
			}
		}
		r.fail(from, action, err)
	}

	var team domain.TeamId
	var teams domain.TeamAssignment
	if room.Mode.HasTeams() {
		if team, teams, err = r.coord.teams.assign(ctx, r.id, player, players); err != nil {
			rollback("assign a team", err)
			return
		}
	}
	if room.Mode == domain.ModeCoop {
		member := domain.CoopMember{Id: player.Id, Username: player.Username, Avatar: player.Avatar}
		if err := r.store.AddCoopMember(ctx, r.id, member); err != nil {
			rollback("join the group", err)
			return
		}
	}
	if room.HostId == "" {
		room.HostId = player.Id
		if err := r.store.SetRoomHost(ctx, r.id, player.Id); err != nil {
			r.logger.Warn().Err(err).Msg("could not record host")
		}
	}

	r.addMember(from)
	r.logger.Info().Str("playerId", player.Id).Str("username", player.Username).Bool("rejoin", rejoin).Msg("player joined")

	msg, appended := r.systemMessage(ctx, player.Username+" joined the room")

	state, err := r.snapshot(ctx, room)
	if err != nil {
		r.fail(from, "load the room", err)
	} else {
		r.send(from, OutRoomState, state)
	}
	r.broadcast(OutPlayerJoined, playerJoinedPayload{Player: viewOf(player, team), PlayerCount: len(players)})
	if appended {
		r.broadcast(OutChatMessage, msg)
	}
	if room.Mode.HasTeams() {
		r.send(from, OutTeamAssignment, teamAssignmentPayload{TeamId: team, TeamAssignments: teams})
		r.broadcast(OutTeamsUpdate, teamsPayload{TeamAssignments: teams})
	}
	if r.settings != nil {
		r.send(from, OutSettingsUpdate, settingsPayload{RoomId: r.id, Settings: r.settings})
	}
}

// handleLeave removes from. explicit is false when the connection dropped.
func (r *room) handleLeave(from Client, explicit bool) {
	r.removeMember(from.Id())

	ctx, cancel := r.opCtx()
	defer cancel()

	player, err := r.store.GetPlayer(ctx, r.id, from.Id())
	if errors.Is(err, domain.ErrPlayerNotFound) {
		return
	}
	if err != nil {
		r.logger.Error().Err(err).Str("playerId", from.Id()).Msg("could not load leaving player")
		if explicit {
			r.sendError(from, "could not leave the room")
		}
		return
	}
	room, err := r.store.GetRoom(ctx, r.id)
	if err != nil {
		r.logger.Error().Err(err).Str("playerId", from.Id()).Msg("could not load room on leave")
		return
	}
	r.evict(ctx, room, player, false)
}

func (r *room) handleKick(from Client, ev *KickPlayer) {
	ctx, cancel := r.opCtx()
	defer cancel()

	room, ok := r.loadRoom(ctx, from)
	if !ok || !r.requireHost(from, room, "kick players") {
		return
	}
	if ev.PlayerId == from.Id() {
		r.sendError(from, "you cannot kick yourself")
		return
	}

	target, err := r.store.GetPlayer(ctx, r.id, ev.PlayerId)
	if errors.Is(err, domain.ErrPlayerNotFound) {
		r.logger.Debug().Str("playerId", ev.PlayerId).Msg("kick target not in room")
		return
	}
	if err != nil {
		r.fail(from, "kick the player", err)
		return
	}

	if c, ok := r.members[target.Id]; ok {
		r.send(c, OutPlayerKicked, kickedPayload{RoomId: r.id, Reason: "kicked by host"})
		r.removeMember(target.Id)
	}
	r.logger.Info().Str("playerId", target.Id).Str("by", from.Id()).Msg("player kicked")
	r.evict(ctx, room, target, true)
}

// evict removes player from every room structure and tells the rest of the
// room. kicked also forgets the player's durable team.
func (r *room) evict(ctx context.Context, room domain.Room, player domain.Player, kicked bool) {
	if err := r.store.RemovePlayer(ctx, r.id, player.Id); err != nil {
		r.logger.Error().Err(err).Str("playerId", player.Id).Msg("could not remove player")
		return
	}

	var teams domain.TeamAssignment
	var teamsErr error
	if room.Mode.HasTeams() {
		if teams, teamsErr = r.coord.teams.remove(ctx, r.id, player, kicked); teamsErr != nil {
			r.logger.Error().Err(teamsErr).Str("playerId", player.Id).Msg("could not update teams")
		}
	}
	if room.Mode == domain.ModeCoop {
		if err := r.store.RemoveCoopMember(ctx, r.id, player.Id); err != nil {
			r.logger.Warn().Err(err).Str("playerId", player.Id).Msg("could not remove coop member")
		}
	}

	remaining, err := r.store.GetAllPlayers(ctx, r.id)
	if err != nil {
		r.logger.Error().Err(err).Msg("could not list remaining players")
		return
	}

	if room.HostId == player.Id {
		host, ok := nextHost(remaining, player.Id)
		room.HostId = host.Id
		if err := r.store.SetRoomHost(ctx, r.id, host.Id); err != nil {
			r.logger.Warn().Err(err).Msg("could not pass host")
		} else if ok {
			r.broadcast(OutHostUpdate, hostUpdatePayload{HostId: host.Id, Username: host.Username})
		}
	}

	verb := " left the room"
	if kicked {
		verb = " was kicked from the room"
	}
	msg, appended := r.systemMessage(ctx, player.Username+verb)

	r.logger.Info().Str("playerId", player.Id).Int("remaining", len(remaining)).Msg("player left")
	r.broadcast(OutPlayerLeft, playerLeftPayload{PlayerId: player.Id, Username: player.Username, RemainingPlayers: len(remaining)})
	if appended {
		r.broadcast(OutChatMessage, msg)
	}
	if room.Mode.HasTeams() && teamsErr == nil {
		r.broadcast(OutTeamsUpdate, teamsPayload{TeamAssignments: teams})
	}

	if room.GameStarted && !room.GameFinished {
		r.checkCompletion(ctx, room, remaining)
	}
}
