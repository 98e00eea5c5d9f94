package app

import (
	"context"

	"trivia-match-service/internal/domain"
)

// Read surface. Everything here is side-effect-free and observes a
// consistent snapshot taken under the relevant lock.

// GetQuestion returns the player-facing view with the correct answer
// redacted.
func (e *Engine) GetQuestion(id uint64) (domain.QuestionView, error) {
	q, err := e.questions.Get(id)
	if err != nil {
		return domain.QuestionView{}, err
	}
	return q.View(), nil
}

// LoadQuestionView adapts the redacted read path to the view-cache loader
// contract used by the infra caches.
func (e *Engine) LoadQuestionView(_ context.Context, id uint64) (domain.QuestionView, error) {
	return e.GetQuestion(id)
}

// GetQuestionAdmin returns the full record including the correct answer.
func (e *Engine) GetQuestionAdmin(caller string, id uint64) (domain.Question, error) {
	if err := e.cfg.requireAdmin(caller); err != nil {
		return domain.Question{}, err
	}
	return e.questions.Get(id)
}

// GetMatchDetails returns a snapshot of a match.
func (e *Engine) GetMatchDetails(id uint64) (domain.MatchDetails, error) {
	m, ok := e.matches.Get(id)
	if !ok {
		return domain.MatchDetails{}, domain.ErrMatchNotFound
	}
	return m.Snapshot(), nil
}

// GetMatchQuestions returns the assigned questions in redacted form.
func (e *Engine) GetMatchQuestions(id uint64) ([]domain.QuestionView, error) {
	m, ok := e.matches.Get(id)
	if !ok {
		return nil, domain.ErrMatchNotFound
	}
	snap := m.Snapshot()
	if len(snap.QuestionIDs) == 0 {
		return nil, nil
	}
	views := make([]domain.QuestionView, 0, len(snap.QuestionIDs))
	for _, qid := range snap.QuestionIDs {
		q, err := e.questions.Get(qid)
		if err != nil {
			return nil, err
		}
		views = append(views, q.View())
	}
	return views, nil
}

// GetPlayerScore returns a player's score within one match.
func (e *Engine) GetPlayerScore(matchID uint64, player string) (uint32, error) {
	m, ok := e.matches.Get(matchID)
	if !ok {
		return 0, domain.ErrMatchNotFound
	}
	snap := m.Snapshot()
	score, ok := snap.Scores[player]
	if !ok {
		return 0, domain.ErrNotParticipant
	}
	return score, nil
}

// GetActiveMatches lists matches still accepting joins or play.
func (e *Engine) GetActiveMatches() []domain.MatchDetails {
	var out []domain.MatchDetails
	for _, m := range e.matches.All() {
		snap := m.Snapshot()
		if snap.Status == domain.StatusWaiting || snap.Status == domain.StatusActive {
			out = append(out, snap)
		}
	}
	return out
}

// GetPlayerMatches lists every match a player has joined.
func (e *Engine) GetPlayerMatches(player string) []domain.MatchDetails {
	var out []domain.MatchDetails
	for _, m := range e.matches.All() {
		snap := m.Snapshot()
		for _, p := range snap.Players {
			if p == player {
				out = append(out, snap)
				break
			}
		}
	}
	return out
}

// GetPlayerStats returns a player's lifetime record; zero-valued for players
// the engine has never seen.
func (e *Engine) GetPlayerStats(player string) domain.PlayerStats {
	stats, ok := e.stats.Get(player)
	if !ok {
		return domain.PlayerStats{Address: player}
	}
	return stats
}
