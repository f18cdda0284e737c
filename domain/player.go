package domain

import "time"

type Answer struct {
	QuestionIndex int       `json:"questionIndex"`
	Answer        string    `json:"answer"`
	IsCorrect     bool      `json:"isCorrect"`
	Points        int       `json:"points"`
	Timestamp     time.Time `json:"timestamp"`
}

type Player struct {
	Id                   string    `json:"id"`
	Username             string    `json:"username"`
	Avatar               string    `json:"avatar,omitempty"`
	Score                int       `json:"score"`
	CurrentQuestionIndex int       `json:"currentQuestionIndex"`
	Answers              []Answer  `json:"answers"`
	IsReady              bool      `json:"isReady"`
	Finished             bool      `json:"finished"`
	JoinedAt             time.Time `json:"joinedAt"`
	QuestionStartedAt    time.Time `json:"questionStartedAt"`
}

// Answered reports whether an answer for questionIndex is already recorded.
func (p Player) Answered(questionIndex int) bool {
	for _, a := range p.Answers {
		if a.QuestionIndex == questionIndex {
			return true
		}
	}
	return false
}

// PlayerUpdate is a partial update. Nil fields are kept; AppendAnswers is
// appended to the existing answers. ResetProgress clears the previous game
// before the other fields apply.
type PlayerUpdate struct {
	ResetProgress        bool
	Username             *string
	Avatar               *string
	Score                *int
	CurrentQuestionIndex *int
	IsReady              *bool
	Finished             *bool
	QuestionStartedAt    *time.Time
	AppendAnswers        []Answer
}

// Apply merges u into p. The question index never moves backwards within
// a game.
func (u PlayerUpdate) Apply(p Player) Player {
	if u.ResetProgress {
		p.Score = 0
		p.CurrentQuestionIndex = 0
		p.Answers = []Answer{}
		p.IsReady = false
		p.Finished = false
		p.QuestionStartedAt = time.Time{}
	}
	if u.Username != nil {
		p.Username = *u.Username
	}
	if u.Avatar != nil {
		p.Avatar = *u.Avatar
	}
	if u.Score != nil {
		p.Score = *u.Score
	}
	if u.CurrentQuestionIndex != nil && *u.CurrentQuestionIndex > p.CurrentQuestionIndex {
		p.CurrentQuestionIndex = *u.CurrentQuestionIndex
	}
	if u.IsReady != nil {
		p.IsReady = *u.IsReady
	}
	if u.Finished != nil {
		p.Finished = *u.Finished
	}
	if u.QuestionStartedAt != nil {
		p.QuestionStartedAt = *u.QuestionStartedAt
	}
	if len(u.AppendAnswers) > 0 {
		p.Answers = append(p.Answers, u.AppendAnswers...)
	}
	return p
}
