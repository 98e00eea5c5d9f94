package domain

import "time"

// EventType identifies a state transition announced on the event surface.
type EventType string

const (
	EventQuestionAdded   EventType = "questionAdded"
	EventMatchCreated    EventType = "matchCreated"
	EventPlayerJoined    EventType = "playerJoined"
	EventMatchStarted    EventType = "matchStarted"
	EventAnswerSubmitted EventType = "answerSubmitted"
	EventMatchEnded      EventType = "matchEnded"
	EventPrizeClaimed    EventType = "prizeClaimed"
	EventRefundIssued    EventType = "refundIssued"
)

// Event is the sole mechanism by which external collaborators learn of
// state changes; nothing should need to poll internal state.
type Event struct {
	Type       EventType `json:"type"`
	MatchID    uint64    `json:"matchId,omitempty"`
	QuestionID uint64    `json:"questionId,omitempty"`
	Player     string    `json:"player,omitempty"`
	Asset      string    `json:"asset,omitempty"`
	Amount     int64     `json:"amount,omitempty"`
	Winners    []string  `json:"winners,omitempty"`
	At         time.Time `json:"at"`
}
