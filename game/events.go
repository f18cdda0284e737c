package game

import (
	"encoding/json"
	"fmt"

	"github.com/AbhayTopno/PopQuiz/domain"
)

type EventType string

const (
	EventJoinRoom         EventType = "join-room"
	EventPlayerReady      EventType = "player-ready"
	EventSendMessage      EventType = "send-message"
	EventSubmitAnswer     EventType = "submit-answer"
	EventSubmitTeamAnswer EventType = "submit-team-answer"
	EventSubmitCoopAnswer EventType = "submit-coop-answer"
	EventQuestionProgress EventType = "question-progress"
	EventQuizCompleted    EventType = "quiz-completed"
	EventPlayerFinished   EventType = "player-finished"
	EventTeamQuizFinished EventType = "team-quiz-finished"
	EventCoopQuizFinished EventType = "coop-quiz-finished"
	EventLeaveRoom        EventType = "leave-room"
	EventKickPlayer       EventType = "kick-player"
	EventUpdateTeams      EventType = "update-team-assignments"
	EventSettingsUpdate   EventType = "settings:update"
	EventVersusInit       EventType = "versus:init"
	EventTwoVsTwoInit     EventType = "2v2:init"
	EventCustomInit       EventType = "custom:init"
	EventCoopInit         EventType = "coop:init"
	EventFFAInit          EventType = "ffa:init"
	EventQuizStart        EventType = "quiz:start"
	EventGetLeaderboard   EventType = "get-leaderboard"
	EventTyping           EventType = "typing"
	EventSendReaction     EventType = "send-reaction"
)

// InboundEvent is implemented only by the event types of this package.
type InboundEvent interface {
	Room() string
	inbound()
}

type roomRef struct {
	RoomId string `json:"roomId"`
}

func (r roomRef) Room() string { return r.RoomId }
func (roomRef) inbound()       {}

type JoinRoom struct {
	roomRef
	QuizId   string `json:"quizId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Mode     string `json:"mode"`
}

type PlayerReady struct {
	roomRef
}

type SendMessage struct {
	roomRef
	Message string `json:"message"`
}

type AnswerPayload struct {
	QuestionIndex int    `json:"questionIndex"`
	Answer        string `json:"answer"`
	IsCorrect     bool   `json:"isCorrect"`
}

type SubmitAnswer struct {
	roomRef
	Answer AnswerPayload `json:"answer"`
}

type SubmitTeamAnswer struct {
	roomRef
	TeamId          string `json:"teamId"`
	Answer          string `json:"answer"`
	IsCorrect       bool   `json:"isCorrect"`
	Points          int    `json:"points"`
	CurrentQuestion int    `json:"currentQuestion"`
}

type SubmitCoopAnswer struct {
	roomRef
	Answer          string `json:"answer"`
	IsCorrect       bool   `json:"isCorrect"`
	Points          int    `json:"points"`
	CurrentQuestion int    `json:"currentQuestion"`
}

type QuestionProgress struct {
	roomRef
	QuestionIndex int `json:"questionIndex"`
}

// FinishQuiz covers every "I am done" event name.
type FinishQuiz struct {
	roomRef
	TeamId     string `json:"teamId"`
	FinalScore int    `json:"finalScore"`
}

type LeaveRoom struct {
	roomRef
}

type KickPlayer struct {
	roomRef
	PlayerId string `json:"playerId"`
}

type UpdateTeamAssignments struct {
	roomRef
	TeamAssignments domain.TeamAssignment `json:"teamAssignments"`
}

type UpdateSettings struct {
	roomRef
	Settings json.RawMessage `json:"settings"`
}

// InitQuiz starts the countdown. Duration is the per-question time in seconds.
type InitQuiz struct {
	roomRef
	QuizId   string `json:"quizId"`
	Duration int    `json:"duration"`
}

type StartQuiz struct {
	roomRef
	QuizId   string `json:"quizId"`
	Duration int    `json:"duration"`
}

type GetLeaderboard struct {
	roomRef
}

type Typing struct {
	roomRef
	IsTyping bool `json:"isTyping"`
}

type SendReaction struct {
	roomRef
	Reaction string `json:"reaction"`
}

// disconnected is emitted by the coordinator when a connection drops.
type disconnected struct {
	roomRef
}

// reapRequest asks a room actor to delete its room if it is still empty.
type reapRequest struct {
	roomRef
	done chan error
}

type eventFrame struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// DecodeEvent parses one text frame into its typed event.
func DecodeEvent(raw []byte) (InboundEvent, error) {
	var frame eventFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	var ev InboundEvent
	switch frame.Event {
	case EventJoinRoom:
		ev = &JoinRoom{}
	case EventPlayerReady:
		ev = &PlayerReady{}
	case EventSendMessage:
		ev = &SendMessage{}
	case EventSubmitAnswer:
		ev = &SubmitAnswer{}
	case EventSubmitTeamAnswer:
		ev = &SubmitTeamAnswer{}
	case EventSubmitCoopAnswer:
		ev = &SubmitCoopAnswer{}
	case EventQuestionProgress:
		ev = &QuestionProgress{}
	case EventQuizCompleted, EventPlayerFinished, EventTeamQuizFinished, EventCoopQuizFinished:
		ev = &FinishQuiz{}
	case EventLeaveRoom:
		ev = &LeaveRoom{}
	case EventKickPlayer:
		ev = &KickPlayer{}
	case EventUpdateTeams:
		ev = &UpdateTeamAssignments{}
	case EventSettingsUpdate:
		ev = &UpdateSettings{}
	case EventVersusInit, EventTwoVsTwoInit, EventCustomInit, EventCoopInit, EventFFAInit:
		ev = &InitQuiz{}
	case EventQuizStart:
		ev = &StartQuiz{}
	case EventGetLeaderboard:
		ev = &GetLeaderboard{}
	case EventTyping:
		ev = &Typing{}
	case EventSendReaction:
		ev = &SendReaction{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, frame.Event)
	}

	if len(frame.Data) > 0 && string(frame.Data) != "null" {
		if err := json.Unmarshal(frame.Data, ev); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformedEvent, frame.Event, err)
		}
	}
	if ev.Room() == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRoomId, frame.Event)
	}
	return ev, nil
}
