package app

import (
	"sync"
	"time"

	"trivia-match-service/internal/domain"
)

type answerKey struct {
	player     string
	questionID uint64
}

// Match is the unit of mutual exclusion: every state-changing call on a
// match runs under its mutex, so transitions (including the auto-start and
// auto-settle post-conditions) are never partially visible.
type Match struct {
	mu sync.Mutex

	id                uint64
	creator           string
	asset             string
	entryFee          int64
	maxPlayers        int
	questionsPerMatch int
	autoStart         bool

	status      domain.MatchStatus
	players     []string
	questionIDs []uint64
	scores      map[string]uint32
	answers     map[answerKey]int
	claimed     map[string]struct{}

	winners         []string
	perWinnerPayout int64
	platformFee     int64

	// set when an escrow debit underflowed; blocks further settlement on
	// this match pending investigation
	settlementHalted bool

	createdAt time.Time
	startAt   time.Time
	endAt     time.Time
}

func newMatch(id uint64, creator, asset string, entryFee int64, maxPlayers, questionsPerMatch int, autoStart bool, now time.Time) *Match {
	m := &Match{
		id:                id,
		creator:           creator,
		asset:             asset,
		entryFee:          entryFee,
		maxPlayers:        maxPlayers,
		questionsPerMatch: questionsPerMatch,
		autoStart:         autoStart,
		status:            domain.StatusWaiting,
		players:           []string{creator},
		scores:            map[string]uint32{creator: 0},
		answers:           make(map[answerKey]int),
		claimed:           make(map[string]struct{}),
		createdAt:         now,
	}
	return m
}

// NewMatch is exported for infrastructure layers and their tests; the
// engine builds matches internally.
func NewMatch(id uint64, creator, asset string, entryFee int64, maxPlayers, questionsPerMatch int, autoStart bool, now time.Time) *Match {
	return newMatch(id, creator, asset, entryFee, maxPlayers, questionsPerMatch, autoStart, now)
}

// ID returns the match id. Safe without the lock: the id never changes.
func (m *Match) ID() uint64 { return m.id }

func (m *Match) hasPlayerLocked(addr string) bool {
	for _, p := range m.players {
		if p == addr {
			return true
		}
	}
	return false
}

func (m *Match) isWinnerLocked(addr string) bool {
	for _, w := range m.winners {
		if w == addr {
			return true
		}
	}
	return false
}

func (m *Match) hasQuestionLocked(id uint64) bool {
	for _, q := range m.questionIDs {
		if q == id {
			return true
		}
	}
	return false
}

// allAnsweredLocked reports whether every joined player has answered every
// assigned question. This is the normal termination trigger.
func (m *Match) allAnsweredLocked() bool {
	if len(m.questionIDs) == 0 {
		return false
	}
	for _, p := range m.players {
		for _, q := range m.questionIDs {
			if _, ok := m.answers[answerKey{p, q}]; !ok {
				return false
			}
		}
	}
	return true
}

// winnersLocked selects every player tied at the maximum score. Ties are
// kept, not broken.
func (m *Match) winnersLocked() []string {
	var max uint32
	for _, p := range m.players {
		if s := m.scores[p]; s > max {
			max = s
		}
	}
	winners := make([]string, 0, 1)
	for _, p := range m.players {
		if m.scores[p] == max {
			winners = append(winners, p)
		}
	}
	return winners
}

func (m *Match) snapshotLocked() domain.MatchDetails {
	players := make([]string, len(m.players))
	copy(players, m.players)
	scores := make(map[string]uint32, len(m.scores))
	for p, s := range m.scores {
		scores[p] = s
	}
	var questionIDs []uint64
	if len(m.questionIDs) > 0 {
		questionIDs = make([]uint64, len(m.questionIDs))
		copy(questionIDs, m.questionIDs)
	}
	var winners []string
	if len(m.winners) > 0 {
		winners = make([]string, len(m.winners))
		copy(winners, m.winners)
	}
	return domain.MatchDetails{
		ID:                m.id,
		Creator:           m.creator,
		Asset:             m.asset,
		EntryFee:          m.entryFee,
		MaxPlayers:        m.maxPlayers,
		QuestionsPerMatch: m.questionsPerMatch,
		AutoStart:         m.autoStart,
		Status:            m.status,
		Players:           players,
		QuestionIDs:       questionIDs,
		Scores:            scores,
		Winners:           winners,
		PerWinnerPayout:   m.perWinnerPayout,
		PlatformFee:       m.platformFee,
		PrizePool:         m.entryFee * int64(len(m.players)),
		CreatedAt:         m.createdAt,
		StartAt:           m.startAt,
		EndAt:             m.endAt,
	}
}

// Snapshot returns a consistent view of the match for queries.
func (m *Match) Snapshot() domain.MatchDetails {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}
