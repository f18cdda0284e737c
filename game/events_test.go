package game

import (
	"fmt"
	"testing"

	"github.com/AbhayTopno/PopQuiz/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allInboundEvents = []EventType{
	EventJoinRoom, EventPlayerReady, EventSendMessage, EventSubmitAnswer,
	EventSubmitTeamAnswer, EventSubmitCoopAnswer, EventQuestionProgress,
	EventQuizCompleted, EventPlayerFinished, EventTeamQuizFinished, EventCoopQuizFinished,
	EventLeaveRoom, EventKickPlayer, EventUpdateTeams, EventSettingsUpdate,
	EventVersusInit, EventTwoVsTwoInit, EventCustomInit, EventCoopInit, EventFFAInit,
	EventQuizStart, EventGetLeaderboard, EventTyping, EventSendReaction,
}

func TestDecodeEvent(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		raw      string
		expected InboundEvent
		err      error
	}{
		{
			name: "join",
			raw:  `{"event":"join-room","data":{"roomId":"r1","quizId":"q1","username":"alice","mode":"2v2"}}`,
			expected: &JoinRoom{
				roomRef:  roomRef{"r1"},
				QuizId:   "q1",
				Username: "alice",
				Mode:     "2v2",
			},
		},
		{
			name:     "independent answer",
			raw:      `{"event":"submit-answer","data":{"roomId":"r1","answer":{"questionIndex":2,"answer":"Paris","isCorrect":true}}}`,
			expected: &SubmitAnswer{roomRef: roomRef{"r1"}, Answer: AnswerPayload{QuestionIndex: 2, Answer: "Paris", IsCorrect: true}},
		},
		{
			name: "team answer",
			raw:  `{"event":"submit-team-answer","data":{"roomId":"r1","teamId":"teamA","answer":"4","isCorrect":true,"points":120,"currentQuestion":0}}`,
			expected: &SubmitTeamAnswer{
				roomRef:   roomRef{"r1"},
				TeamId:    "teamA",
				Answer:    "4",
				IsCorrect: true,
				Points:    120,
			},
		},
		{
			name: "team assignments",
			raw:  `{"event":"update-team-assignments","data":{"roomId":"r1","teamAssignments":{"teamA":["a"],"teamB":["b"]}}}`,
			expected: &UpdateTeamAssignments{
				roomRef:         roomRef{"r1"},
				TeamAssignments: domain.TeamAssignment{TeamA: []string{"a"}, TeamB: []string{"b"}},
			},
		},
		{
			name:     "finish alias",
			raw:      `{"event":"team-quiz-finished","data":{"roomId":"r1","teamId":"teamB"}}`,
			expected: &FinishQuiz{roomRef: roomRef{"r1"}, TeamId: "teamB"},
		},
		{
			name:     "init alias",
			raw:      `{"event":"coop:init","data":{"roomId":"r1","duration":15}}`,
			expected: &InitQuiz{roomRef: roomRef{"r1"}, Duration: 15},
		},
		{
			name: "unknown event",
			raw:  `{"event":"drop-tables","data":{"roomId":"r1"}}`,
			err:  ErrUnknownEvent,
		},
		{
			name: "missing room id",
			raw:  `{"event":"player-ready","data":{}}`,
			err:  ErrMissingRoomId,
		},
		{
			name: "missing data",
			raw:  `{"event":"player-ready"}`,
			err:  ErrMissingRoomId,
		},
		{
			name: "not json",
			raw:  `join-room r1`,
			err:  ErrMalformedEvent,
		},
		{
			name: "wrong field type",
			raw:  `{"event":"question-progress","data":{"roomId":"r1","questionIndex":"two"}}`,
			err:  ErrMalformedEvent,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ev, err := DecodeEvent([]byte(tc.raw))
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				assert.Nil(t, ev)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, ev)
		})
	}
}

func TestDecodeEvent_EveryEventHasAType(t *testing.T) {
	t.Parallel()
	for _, name := range allInboundEvents {
		raw := fmt.Sprintf(`{"event":%q,"data":{"roomId":"r1"}}`, name)
		ev, err := DecodeEvent([]byte(raw))
		require.NoError(t, err, name)
		assert.Equal(t, "r1", ev.Room(), name)
	}
}
