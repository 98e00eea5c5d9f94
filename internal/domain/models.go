package domain

import (
	"context"
	"time"
)

// MatchStatus is the lifecycle state of a match. Waiting matches accept
// joins, Active matches accept answers, Completed and Cancelled are terminal.
type MatchStatus string

const (
	StatusWaiting   MatchStatus = "waiting"
	StatusActive    MatchStatus = "active"
	StatusCompleted MatchStatus = "completed"
	StatusCancelled MatchStatus = "cancelled"
)

// Question is a catalog entry. Immutable once created except Active, which
// only ever flips from true to false so matches already holding the id stay valid.
type Question struct {
	ID            uint64    `json:"id"`
	Text          string    `json:"text"`
	Options       [4]string `json:"options"`
	CorrectAnswer int       `json:"correctAnswer"`
	Category      string    `json:"category"`
	Difficulty    int       `json:"difficulty"`
	Active        bool      `json:"active"`
}

// QuestionView is the player-facing shape of a question with the correct
// answer redacted.
type QuestionView struct {
	ID         uint64    `json:"id"`
	Text       string    `json:"text"`
	Options    [4]string `json:"options"`
	Category   string    `json:"category"`
	Difficulty int       `json:"difficulty"`
}

// View redacts the correct answer for non-admin callers.
func (q Question) View() QuestionView {
	return QuestionView{
		ID:         q.ID,
		Text:       q.Text,
		Options:    q.Options,
		Category:   q.Category,
		Difficulty: q.Difficulty,
	}
}

// MatchDetails is a consistent snapshot of a match, safe to hand to
// transports and indexers.
type MatchDetails struct {
	ID                uint64            `json:"id"`
	Creator           string            `json:"creator"`
	Asset             string            `json:"asset"`
	EntryFee          int64             `json:"entryFee"`
	MaxPlayers        int               `json:"maxPlayers"`
	QuestionsPerMatch int               `json:"questionsPerMatch"`
	AutoStart         bool              `json:"autoStart"`
	Status            MatchStatus       `json:"status"`
	Players           []string          `json:"players"`
	QuestionIDs       []uint64          `json:"questionIds,omitempty"`
	Scores            map[string]uint32 `json:"scores"`
	Winners           []string          `json:"winners,omitempty"`
	PerWinnerPayout   int64             `json:"perWinnerPayout,omitempty"`
	PlatformFee       int64             `json:"platformFee,omitempty"`
	PrizePool         int64             `json:"prizePool"`
	CreatedAt         time.Time         `json:"createdAt"`
	StartAt           time.Time         `json:"startAt,omitempty"`
	EndAt             time.Time         `json:"endAt,omitempty"`
}

// PlayerStats aggregates a player's lifetime record. Every field except
// LastPlayedAt is monotonically non-decreasing.
type PlayerStats struct {
	Address             string    `json:"address"`
	TotalWins           uint64    `json:"totalWins"`
	TotalEarnings       int64     `json:"totalEarnings"`
	TotalMatches        uint64    `json:"totalMatches"`
	TotalCorrectAnswers uint64    `json:"totalCorrectAnswers"`
	HighestScore        uint32    `json:"highestScore"`
	LastPlayedAt        time.Time `json:"lastPlayedAt"`
}

// Receipt acknowledges a transfer on the asset boundary.
type Receipt struct {
	ID uint64    `json:"id"`
	At time.Time `json:"at"`
}

// AssetTransfer is the funds boundary. Deposit pulls value from the payer
// into the system; Payout releases value to the payee. Implementations must
// either complete the transfer or leave balances untouched.
type AssetTransfer interface {
	Deposit(ctx context.Context, payer, asset string, amount int64) (Receipt, error)
	Payout(ctx context.Context, payee, asset string, amount int64) (Receipt, error)
}

// AnswerSubmission models a player's answer to one assigned question.
type AnswerSubmission struct {
	QuestionID uint64
	Answer     int
}

// AnswerResult summarizes the outcome of a submission for the caller.
type AnswerResult struct {
	QuestionID uint64 `json:"questionId"`
	Correct    bool   `json:"correct"`
	Score      uint32 `json:"score"`
	Settled    bool   `json:"settled"`
}
