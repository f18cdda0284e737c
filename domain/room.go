package domain

import "time"

type Room struct {
	Id           string    `json:"roomId"`
	QuizId       string    `json:"quizId"`
	Mode         Mode      `json:"mode"`
	HostId       string    `json:"hostId"`
	CreatedAt    time.Time `json:"createdAt"`
	GameStarted  bool      `json:"gameStarted"`
	GameFinished bool      `json:"gameFinished"`
}

// RoomStatusUpdate carries the status flags to change; nil fields are left alone.
type RoomStatusUpdate struct {
	Started  *bool
	Finished *bool
}

type ChatMessage struct {
	Id        string    `json:"id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Avatar    string    `json:"avatar,omitempty"`
	System    bool      `json:"system,omitempty"`
}

// CoopMember is an entry of the cooperative group roster.
type CoopMember struct {
	Id       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}
