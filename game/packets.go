package game

import (
	"encoding/json"
	"time"

	"github.com/AbhayTopno/PopQuiz/domain"
	"github.com/rs/zerolog/log"
)

const (
	OutConnected         = "connected"
	OutRoomState         = "room-state"
	OutPlayerJoined      = "player-joined"
	OutPlayerLeft        = "player-left"
	OutPlayerReadyUpdate = "player-ready-update"
	OutGameStart         = "game-start"
	OutChatMessage       = "chat-message"
	OutScoreUpdate       = "score-update"
	OutPlayerAnswered    = "player-answered"
	OutTeamAnswerLocked  = "team-answer-locked"
	OutTeamScoreUpdate   = "team-score-update"
	OutCoopAnswerLocked  = "coop-answer-locked"
	OutCoopScoreUpdate   = "coop-score-update"
	OutPlayerProgress    = "player-progress"
	OutLeaderboardUpdate = "leaderboard-update"
	OutTeamsUpdate       = "teams-update"
	OutTeamAssignment    = "team-assignment"
	OutPlayerFinished    = "player-finished"
	OutTeamFinished      = "team-finished"
	OutRoomFull          = "room:full"
	OutPlayerKicked      = "player-kicked"
	OutError             = "error"
	OutHostUpdate        = "host-update"
	OutQuizStart         = "quiz:start"
	OutSettingsUpdate    = "settings:update"
	OutUserTyping        = "user-typing"
	OutPlayerReaction    = "player-reaction"
	OutVersusCountdown   = "versus:countdown"
	OutCoopCountdown     = "coop:countdown"
	OutFFACountdown      = "ffa:countdown"
	OutBattleComplete    = "battle-complete"
	OutTwoVsTwoComplete  = "2v2-battle-complete"
	OutCustomComplete    = "custom-battle-complete"
	OutCoopComplete      = "coop-battle-complete"
	OutFFABattleComplete = "ffa-battle-complete"
)

type packet struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func encodePacket(event string, data any) []byte {
	b, err := json.Marshal(packet{Event: event, Data: data})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to encode packet")
		return nil
	}
	return b
}

func countdownEvent(mode domain.Mode) string {
	switch mode {
	case domain.ModeCoop:
		return OutCoopCountdown
	case domain.ModeFFA:
		return OutFFACountdown
	default:
		return OutVersusCountdown
	}
}

func battleCompleteEvent(mode domain.Mode) string {
	switch mode {
	case domain.ModeTwoVsTwo:
		return OutTwoVsTwoComplete
	case domain.ModeCustom:
		return OutCustomComplete
	case domain.ModeCoop:
		return OutCoopComplete
	case domain.ModeFFA:
		return OutFFABattleComplete
	default:
		return OutBattleComplete
	}
}

type playerView struct {
	Id                   string        `json:"id"`
	Username             string        `json:"username"`
	Avatar               string        `json:"avatar,omitempty"`
	Score                int           `json:"score"`
	CurrentQuestionIndex int           `json:"currentQuestionIndex"`
	IsReady              bool          `json:"isReady"`
	Finished             bool          `json:"finished"`
	JoinedAt             time.Time     `json:"joinedAt"`
	TeamId               domain.TeamId `json:"teamId,omitempty"`
}

func viewOf(p domain.Player, team domain.TeamId) playerView {
	return playerView{
		Id:                   p.Id,
		Username:             p.Username,
		Avatar:               p.Avatar,
		Score:                p.Score,
		CurrentQuestionIndex: p.CurrentQuestionIndex,
		IsReady:              p.IsReady,
		Finished:             p.Finished,
		JoinedAt:             p.JoinedAt,
		TeamId:               team,
	}
}

type connectedPayload struct {
	PlayerId string `json:"playerId"`
	Username string `json:"username"`
}

type roomStatePayload struct {
	RoomId          string                 `json:"roomId"`
	QuizId          string                 `json:"quizId"`
	Mode            domain.Mode            `json:"mode"`
	HostId          string                 `json:"hostId"`
	GameStarted     bool                   `json:"gameStarted"`
	GameFinished    bool                   `json:"gameFinished"`
	Capacity        int                    `json:"capacity"`
	Players         []playerView           `json:"players"`
	Chat            []domain.ChatMessage   `json:"chat"`
	TeamAssignments *domain.TeamAssignment `json:"teamAssignments,omitempty"`
	TeamScores      map[domain.TeamId]int  `json:"teamScores,omitempty"`
	CoopScore       *int                   `json:"coopScore,omitempty"`
	CoopMembers     []domain.CoopMember    `json:"coopMembers,omitempty"`
}

type playerJoinedPayload struct {
	Player      playerView `json:"player"`
	PlayerCount int        `json:"playerCount"`
}

type playerLeftPayload struct {
	PlayerId         string `json:"playerId"`
	Username         string `json:"username"`
	RemainingPlayers int    `json:"remainingPlayers"`
}

type readyUpdatePayload struct {
	PlayerId    string `json:"playerId"`
	Username    string `json:"username"`
	IsReady     bool   `json:"isReady"`
	ReadyCount  int    `json:"readyCount"`
	PlayerCount int    `json:"playerCount"`
}

type gameStartPayload struct {
	RoomId string      `json:"roomId"`
	QuizId string      `json:"quizId"`
	Mode   domain.Mode `json:"mode"`
}

type scoreUpdatePayload struct {
	PlayerId             string `json:"playerId"`
	Score                int    `json:"score"`
	Points               int    `json:"points"`
	CurrentQuestionIndex int    `json:"currentQuestionIndex"`
}

type playerAnsweredPayload struct {
	PlayerId      string `json:"playerId"`
	Username      string `json:"username"`
	QuestionIndex int    `json:"questionIndex"`
	IsCorrect     bool   `json:"isCorrect"`
}

type answerLockedPayload struct {
	TeamId        domain.TeamId `json:"teamId,omitempty"`
	AnsweredBy    string        `json:"answeredBy"`
	Username      string        `json:"username"`
	Answer        string        `json:"answer"`
	IsCorrect     bool          `json:"isCorrect"`
	QuestionIndex int           `json:"questionIndex"`
}

type groupScorePayload struct {
	TeamId          domain.TeamId `json:"teamId,omitempty"`
	Score           int           `json:"score"`
	Points          int           `json:"points"`
	CurrentQuestion int           `json:"currentQuestion"`
	AnsweredBy      string        `json:"answeredBy"`
	Answer          string        `json:"answer"`
	IsCorrect       bool          `json:"isCorrect"`
}

type progressPayload struct {
	PlayerId      string `json:"playerId"`
	Username      string `json:"username"`
	QuestionIndex int    `json:"questionIndex"`
}

type leaderboardPayload struct {
	RoomId    string         `json:"roomId"`
	Standings []Standing     `json:"standings"`
	Teams     []TeamStanding `json:"teams,omitempty"`
	CoopScore *int           `json:"coopScore,omitempty"`
}

type teamsPayload struct {
	TeamAssignments domain.TeamAssignment `json:"teamAssignments"`
}

type teamAssignmentPayload struct {
	TeamId          domain.TeamId         `json:"teamId"`
	TeamAssignments domain.TeamAssignment `json:"teamAssignments"`
}

type playerFinishedPayload struct {
	PlayerId string `json:"playerId"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

type teamFinishedPayload struct {
	TeamId  domain.TeamId `json:"teamId"`
	Score   int           `json:"score"`
	Members []string      `json:"members"`
}

type battleCompletePayload struct {
	RoomId    string         `json:"roomId"`
	Mode      domain.Mode    `json:"mode"`
	Standings []Standing     `json:"standings"`
	Teams     []TeamStanding `json:"teams,omitempty"`
	CoopScore *int           `json:"coopScore,omitempty"`
	Winner    string         `json:"winner,omitempty"`
}

type roomFullPayload struct {
	RoomId   string `json:"roomId"`
	Capacity int    `json:"capacity"`
}

type kickedPayload struct {
	RoomId string `json:"roomId"`
	Reason string `json:"reason"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type hostUpdatePayload struct {
	HostId   string `json:"hostId"`
	Username string `json:"username"`
}

type countdownPayload struct {
	Count int `json:"count"`
}

type quizStartPayload struct {
	RoomId         string    `json:"roomId"`
	QuizId         string    `json:"quizId"`
	Duration       int       `json:"duration"`
	TotalQuestions int       `json:"totalQuestions"`
	StartedAt      time.Time `json:"startedAt"`
}

type settingsPayload struct {
	RoomId   string          `json:"roomId"`
	Settings json.RawMessage `json:"settings"`
}

type typingPayload struct {
	PlayerId string `json:"playerId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type reactionPayload struct {
	PlayerId string `json:"playerId"`
	Username string `json:"username"`
	Reaction string `json:"reaction"`
}
