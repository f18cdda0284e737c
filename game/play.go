package game

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/AbhayTopno/PopQuiz/domain"
)

func (r *room) handleReady(from Client) {
	ctx, cancel := r.opCtx()
	defer cancel()

	ready := true
	player, err := r.store.UpdatePlayer(ctx, r.id, from.Id(), domain.PlayerUpdate{IsReady: &ready})
	if errors.Is(err, domain.ErrPlayerNotFound) {
		r.logger.Debug().Str("playerId", from.Id()).Msg("ready from a player not in the room")
		return
	}
	if err != nil {
		r.fail(from, "mark you ready", err)
		return
	}

	players, err := r.store.GetAllPlayers(ctx, r.id)
	if err != nil {
		r.fail(from, "mark you ready", err)
		return
	}
	readyCount := 0
	for _, p := range players {
		if p.IsReady {
			readyCount++
		}
	}
	r.broadcast(OutPlayerReadyUpdate, readyUpdatePayload{
		PlayerId:    player.Id,
		Username:    player.Username,
		IsReady:     true,
		ReadyCount:  readyCount,
		PlayerCount: len(players),
	})

	if len(players) < 2 || readyCount < len(players) {
		return
	}
	room, ok := r.loadRoom(ctx, from)
	if !ok || room.GameStarted {
		return
	}
	started := true
	if err := r.store.UpdateRoomStatus(ctx, r.id, domain.RoomStatusUpdate{Started: &started}); err != nil {
		r.fail(from, "start the game", err)
		return
	}
	r.logger.Info().Int("players", len(players)).Msg("everyone is ready, game started")
	r.broadcast(OutGameStart, gameStartPayload{RoomId: r.id, QuizId: room.QuizId, Mode: room.Mode})
}

// prepareQuiz loads the quiz content when it can. Rooms work without it;
// answers then fall back to the client's correctness claim.
func (r *room) prepareQuiz(ctx context.Context, quizId string, durationSeconds int) {
	if durationSeconds > 0 {
		r.duration = time.Duration(durationSeconds) * time.Second
	}
	if quizId == "" || (r.quiz != nil && r.quizId == quizId) {
		return
	}
	r.quizId = quizId
	r.quiz = nil
	if r.coord.quizzes == nil {
		return
	}
	quiz, err := r.coord.quizzes.GetQuizById(ctx, quizId)
	if err != nil {
		r.logger.Warn().Err(err).Str("quizId", quizId).Msg("quiz content unavailable, trusting client answers")
		return
	}
	r.quiz = &quiz
}

func (r *room) handleInit(from Client, ev *InitQuiz) {
	ctx, cancel := r.opCtx()
	defer cancel()

	room, ok := r.loadRoom(ctx, from)
	if !ok || !r.requireHost(from, room, "start the quiz") {
		return
	}
	if r.countdownC != nil {
		r.logger.Debug().Msg("countdown already running")
		return
	}
	if !r.beginQuiz(ctx, from, room, ev.QuizId, ev.Duration) {
		return
	}

	r.countdown = r.coord.opts.CountdownFrom
	r.countdownC, r.stopCountdown = r.coord.tickers.Create(r.coord.opts.CountdownInterval)
	r.logger.Info().Int("from", r.countdown).Msg("countdown started")
}

func (r *room) handleStart(from Client, ev *StartQuiz) {
	ctx, cancel := r.opCtx()
	defer cancel()

	room, ok := r.loadRoom(ctx, from)
	if !ok || !r.requireHost(from, room, "start the quiz") {
		return
	}
	r.stopCountdownTicker()
	if !r.beginQuiz(ctx, from, room, ev.QuizId, ev.Duration) {
		return
	}
	r.startQuiz(ctx)
}

func (r *room) beginQuiz(ctx context.Context, from Client, room domain.Room, quizId string, durationSeconds int) bool {
	if quizId == "" {
		quizId = room.QuizId
	}
	r.prepareQuiz(ctx, quizId, durationSeconds)

	if room.GameFinished {
		if err := r.resetGame(ctx, room); err != nil {
			r.fail(from, "start the quiz", err)
			return false
		}
	}
	started, finished := true, false
	if err := r.store.UpdateRoomStatus(ctx, r.id, domain.RoomStatusUpdate{Started: &started, Finished: &finished}); err != nil {
		r.fail(from, "start the quiz", err)
		return false
	}
	if room.Mode == domain.ModeCoop {
		if err := r.store.ResetScore(ctx, r.id, domain.CoopScore()); err != nil {
			r.fail(from, "start the quiz", err)
			return false
		}
	}
	return true
}

// resetGame clears the scores and progress of a finished game so the room
// can play again.
func (r *room) resetGame(ctx context.Context, room domain.Room) error {
	players, err := r.store.GetAllPlayers(ctx, r.id)
	if err != nil {
		return err
	}
	for _, p := range players {
		if err := r.store.ResetScore(ctx, r.id, domain.PlayerScore(p.Id)); err != nil {
			return err
		}
		_, err := r.store.UpdatePlayer(ctx, r.id, p.Id, domain.PlayerUpdate{ResetProgress: true})
		if err != nil && !errors.Is(err, domain.ErrPlayerNotFound) {
			return err
		}
	}
	if room.Mode.HasTeams() {
		for _, team := range []domain.TeamId{domain.TeamA, domain.TeamB} {
			if err := r.store.ResetScore(ctx, r.id, domain.TeamScore(team)); err != nil {
				return err
			}
		}
	}
	r.logger.Info().Int("players", len(players)).Msg("previous game cleared for a replay")
	return nil
}

func (r *room) tickCountdown() {
	if r.countdown > 0 {
		r.broadcast(countdownEvent(r.mode), countdownPayload{Count: r.countdown})
		r.countdown--
		return
	}
	r.stopCountdownTicker()

	ctx, cancel := r.opCtx()
	defer cancel()
	r.startQuiz(ctx)
}

func (r *room) stopCountdownTicker() {
	if r.stopCountdown != nil {
		r.stopCountdown()
	}
	r.countdownC, r.stopCountdown = nil, nil
	r.countdown = 0
}

// startQuiz starts every player's question clock and announces the start.
func (r *room) startQuiz(ctx context.Context) {
	now := r.coord.clock.Now()
	players, err := r.store.GetAllPlayers(ctx, r.id)
	if err != nil {
		r.logger.Error().Err(err).Msg("could not start question timers")
	}
	for _, p := range players {
		if _, err := r.store.UpdatePlayer(ctx, r.id, p.Id, domain.PlayerUpdate{QuestionStartedAt: &now}); err != nil && !errors.Is(err, domain.ErrPlayerNotFound) {
			r.logger.Error().Err(err).Str("playerId", p.Id).Msg("could not start question timer")
		}
	}

	r.logger.Info().Str("quizId", r.quizId).Dur("duration", r.duration).Msg("quiz started")
	r.broadcast(OutQuizStart, quizStartPayload{
		RoomId:         r.id,
		QuizId:         r.quizId,
		Duration:       int(r.duration / time.Second),
		TotalQuestions: r.totalQuestions(),
		StartedAt:      now,
	})
}

func (r *room) totalQuestions() int {
	if r.quiz == nil {
		return 0
	}
	return len(r.quiz.Questions)
}

// validQuestion bounds index by the quiz content when it is loaded.
func (r *room) validQuestion(index int) bool {
	if index < 0 {
		return false
	}
	total := r.totalQuestions()
	return total == 0 || index < total
}

func (r *room) difficulty() domain.Difficulty {
	if r.quiz == nil {
		return domain.DifficultyMedium
	}
	return r.quiz.Difficulty
}

// judge uses the quiz content when loaded, else the client's claim.
func (r *room) judge(questionIndex int, answer string, claimed bool) bool {
	if r.quiz == nil {
		return claimed
	}
	q, ok := r.quiz.Question(questionIndex)
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(q.CorrectAnswer), strings.TrimSpace(answer))
}

// pointsFor is the server value of a correct answer to a question whose
// clock started at startedAt.
func (r *room) pointsFor(startedAt time.Time) int {
	var left time.Duration
	if r.duration > 0 && !startedAt.IsZero() {
		left = r.duration - r.coord.clock.Now().Sub(startedAt)
	}
	return CalculatePoints(r.difficulty(), left, r.duration)
}

func (r *room) inProgress(room domain.Room) bool {
	return room.GameStarted && !room.GameFinished
}

func (r *room) handleAnswer(from Client, ev *SubmitAnswer) {
	ctx, cancel := r.opCtx()
	defer cancel()

	room, ok := r.loadRoom(ctx, from)
	if !ok {
		return
	}
	if room.Mode.Cooperative() {
		r.sendError(from, "answers are shared in this mode")
		return
	}
	if !r.inProgress(room) {
		r.logger.Debug().Str("playerId", from.Id()).Msg("answer outside of a running game")
		return
	}
	player, ok := r.loadPlayer(ctx, from)
	if !ok {
		return
	}

	idx := ev.Answer.QuestionIndex
	if idx != player.CurrentQuestionIndex || player.Answered(idx) || !r.validQuestion(idx) {
		r.logger.Debug().Str("playerId", player.Id).Int("questionIndex", idx).Int("current", player.CurrentQuestionIndex).Msg("answer for another question ignored")
		return
	}

	now := r.coord.clock.Now()
	correct := r.judge(idx, ev.Answer.Answer, ev.Answer.IsCorrect)
	points := 0
	if correct {
		points = r.pointsFor(player.QuestionStartedAt)
	}

	score := player.Score
	if points > 0 {
		total, err := r.store.IncrementScore(ctx, r.id, domain.PlayerScore(player.Id), points)
		if err != nil {
			r.fail(from, "record your answer", err)
			return
		}
		score = total
	}

	next := idx + 1
	player, err := r.store.UpdatePlayer(ctx, r.id, player.Id, domain.PlayerUpdate{
		Score:                &score,
		CurrentQuestionIndex: &next,
		QuestionStartedAt:    &now,
		AppendAnswers: []domain.Answer{{
			QuestionIndex: idx,
			Answer:        ev.Answer.Answer,
			IsCorrect:     correct,
			Points:        points,
			Timestamp:     now,
		}},
	})
	if err != nil {
		r.fail(from, "record your answer", err)
		return
	}

	r.broadcast(OutScoreUpdate, scoreUpdatePayload{
		PlayerId:             player.Id,
		Score:                player.Score,
		Points:               points,
		CurrentQuestionIndex: player.CurrentQuestionIndex,
	})
	r.broadcast(OutPlayerAnswered, playerAnsweredPayload{
		PlayerId:      player.Id,
		Username:      player.Username,
		QuestionIndex: idx,
		IsCorrect:     correct,
	})
}

// groupAnswer is one answer given on behalf of a team or the coop group.
type groupAnswer struct {
	key        domain.ScoreKey
	team       domain.TeamId
	answerer   domain.Player
	members    []domain.Player
	index      int
	answer     string
	correct    bool
	claimed    int
	lockEvent  string
	scoreEvent string
}

func (r *room) handleTeamAnswer(from Client, ev *SubmitTeamAnswer) {
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
	if !r.inProgress(room) {
		return
	}

	claimed, ok := domain.ParseTeamId(ev.TeamId)
	if !ok {
		r.logger.Warn().Str("playerId", from.Id()).Str("teamId", ev.TeamId).Msg("answer for an unknown team rejected")
		return
	}
	teams, err := r.store.GetTeams(ctx, r.id)
	if err != nil {
		r.fail(from, "record your answer", err)
		return
	}
	if actual, ok := teams.TeamOf(from.Id()); !ok || actual != claimed {
		r.logger.Warn().Str("playerId", from.Id()).Str("claimed", string(claimed)).Str("actual", string(actual)).Msg("team claim rejected")
		return
	}

	players, err := r.store.GetAllPlayers(ctx, r.id)
	if err != nil {
		r.fail(from, "record your answer", err)
		return
	}
	answerer, ok := findPlayer(players, from.Id())
	if !ok {
		return
	}

	r.lockGroupAnswer(ctx, from, groupAnswer{
		key:        domain.TeamScore(claimed),
		team:       claimed,
		answerer:   answerer,
		members:    membersOf(players, teams.Members(claimed)),
		index:      ev.CurrentQuestion,
		answer:     ev.Answer,
		correct:    ev.IsCorrect,
		claimed:    ev.Points,
		lockEvent:  OutTeamAnswerLocked,
		scoreEvent: OutTeamScoreUpdate,
	})
}

func (r *room) handleCoopAnswer(from Client, ev *SubmitCoopAnswer) {
	ctx, cancel := r.opCtx()
	defer cancel()

	room, ok := r.loadRoom(ctx, from)
	if !ok {
		return
	}
	if room.Mode != domain.ModeCoop {
		r.sendError(from, "this room is not cooperative")
		return
	}
	if !r.inProgress(room) {
		return
	}

	players, err := r.store.GetAllPlayers(ctx, r.id)
	if err != nil {
		r.fail(from, "record your answer", err)
		return
	}
	answerer, ok := findPlayer(players, from.Id())
	if !ok {
		return
	}

	r.lockGroupAnswer(ctx, from, groupAnswer{
		key:        domain.CoopScore(),
		answerer:   answerer,
		members:    players,
		index:      ev.CurrentQuestion,
		answer:     ev.Answer,
		correct:    ev.IsCorrect,
		claimed:    ev.Points,
		lockEvent:  OutCoopAnswerLocked,
		scoreEvent: OutCoopScoreUpdate,
	})
}

// lockGroupAnswer scores one answer for the whole group and moves every
// member to the next question together.
func (r *room) lockGroupAnswer(ctx context.Context, from Client, ga groupAnswer) {
	groupIndex := 0
	for _, m := range ga.members {
		groupIndex = max(groupIndex, m.CurrentQuestionIndex)
	}
	if ga.index != groupIndex || ga.answerer.Answered(ga.index) || !r.validQuestion(ga.index) {
		r.logger.Debug().Str("playerId", ga.answerer.Id).Int("questionIndex", ga.index).Int("current", groupIndex).Msg("group answer for another question ignored")
		return
	}

	correct := r.judge(ga.index, ga.answer, ga.correct)
	points := 0
	if correct {
		points = capClaimedPoints(ga.claimed, r.pointsFor(ga.answerer.QuestionStartedAt))
	}

	r.broadcast(ga.lockEvent, answerLockedPayload{
		TeamId:        ga.team,
		AnsweredBy:    ga.answerer.Id,
		Username:      ga.answerer.Username,
		Answer:        ga.answer,
		IsCorrect:     correct,
		QuestionIndex: ga.index,
	})

	var score int
	var err error
	if points > 0 {
		score, err = r.store.IncrementScore(ctx, r.id, ga.key, points)
	} else {
		score, err = r.store.GetScore(ctx, r.id, ga.key)
	}
	if err != nil {
		r.fail(from, "record your answer", err)
		return
	}

	now := r.coord.clock.Now()
	next := ga.index + 1
	for _, m := range ga.members {
		update := domain.PlayerUpdate{CurrentQuestionIndex: &next, QuestionStartedAt: &now}
		if m.Id == ga.answerer.Id {
			update.AppendAnswers = []domain.Answer{{
				QuestionIndex: ga.index,
				Answer:        ga.answer,
				IsCorrect:     correct,
				Points:        points,
				Timestamp:     now,
			}}
		}
		if _, err := r.store.UpdatePlayer(ctx, r.id, m.Id, update); err != nil && !errors.Is(err, domain.ErrPlayerNotFound) {
			r.fail(from, "advance your group", err)
			return
		}
	}

	r.broadcast(ga.scoreEvent, groupScorePayload{
		TeamId:          ga.team,
		Score:           score,
		Points:          points,
		CurrentQuestion: next,
		AnsweredBy:      ga.answerer.Id,
		Answer:          ga.answer,
		IsCorrect:       correct,
	})
}

func (r *room) handleProgress(from Client, ev *QuestionProgress) {
	ctx, cancel := r.opCtx()
	defer cancel()

	player, ok := r.loadPlayer(ctx, from)
	if !ok {
		return
	}
	update := domain.PlayerUpdate{CurrentQuestionIndex: &ev.QuestionIndex}
	if ev.QuestionIndex > player.CurrentQuestionIndex {
		now := r.coord.clock.Now()
		update.QuestionStartedAt = &now
	}
	player, err := r.store.UpdatePlayer(ctx, r.id, player.Id, update)
	if errors.Is(err, domain.ErrPlayerNotFound) {
		return
	}
	if err != nil {
		r.fail(from, "record your progress", err)
		return
	}
	r.broadcast(OutPlayerProgress, progressPayload{
		PlayerId:      player.Id,
		Username:      player.Username,
		QuestionIndex: player.CurrentQuestionIndex,
	})
}

func (r *room) handleFinish(from Client, ev *FinishQuiz) {
	ctx, cancel := r.opCtx()
	defer cancel()

	room, ok := r.loadRoom(ctx, from)
	if !ok || room.GameFinished {
		return
	}
	player, ok := r.loadPlayer(ctx, from)
	if !ok || player.Finished {
		return
	}
	if total := r.totalQuestions(); total > 0 && player.CurrentQuestionIndex < total {
		r.logger.Debug().Str("playerId", player.Id).Int("index", player.CurrentQuestionIndex).Int("total", total).Msg("finish before the last question ignored")
		return
	}

	var teams domain.TeamAssignment
	var team domain.TeamId
	if room.Mode.HasTeams() {
		var err error
		if teams, err = r.store.GetTeams(ctx, r.id); err != nil {
			r.fail(from, "finish the quiz", err)
			return
		}
		team, ok = teams.TeamOf(player.Id)
		if !ok || (ev.TeamId != "" && ev.TeamId != string(team)) {
			r.logger.Warn().Str("playerId", player.Id).Str("claimed", ev.TeamId).Msg("finish for another team rejected")
			return
		}
	}

	finished := true
	player, err := r.store.UpdatePlayer(ctx, r.id, player.Id, domain.PlayerUpdate{Finished: &finished})
	if err != nil {
		r.fail(from, "finish the quiz", err)
		return
	}
	players, err := r.store.GetAllPlayers(ctx, r.id)
	if err != nil {
		r.fail(from, "finish the quiz", err)
		return
	}
	r.logger.Info().Str("playerId", player.Id).Msg("player finished")

	switch {
	case room.Mode.HasTeams():
		members := membersOf(players, teams.Members(team))
		if allFinished(members) {
			score, err := r.store.GetScore(ctx, r.id, domain.TeamScore(team))
			if err != nil {
				r.fail(from, "finish the quiz", err)
				return
			}
			r.broadcast(OutTeamFinished, teamFinishedPayload{TeamId: team, Score: score, Members: teams.Members(team)})
		}
	case room.Mode == domain.ModeCoop:
	default:
		r.broadcast(OutPlayerFinished, playerFinishedPayload{PlayerId: player.Id, Username: player.Username, Score: player.Score})
	}

	r.checkCompletion(ctx, room, players)
}

// checkCompletion ends the game once every remaining player finished.
func (r *room) checkCompletion(ctx context.Context, room domain.Room, players []domain.Player) {
	if room.GameFinished || !allFinished(players) {
		return
	}
	finished := true
	if err := r.store.UpdateRoomStatus(ctx, r.id, domain.RoomStatusUpdate{Finished: &finished}); err != nil {
		r.logger.Error().Err(err).Msg("could not mark the game finished")
		return
	}
	res, err := loadStandings(ctx, r.store, r.id)
	if err != nil {
		r.logger.Error().Err(err).Msg("could not rank players")
		return
	}
	r.logger.Info().Str("winner", res.Winner).Msg("game finished")
	r.broadcast(battleCompleteEvent(room.Mode), battleCompletePayload{
		RoomId:    r.id,
		Mode:      room.Mode,
		Standings: res.Standings,
		Teams:     res.Teams,
		CoopScore: res.CoopScore,
		Winner:    res.Winner,
	})
}
