package app

import (
	"context"
	"log"
	"math/rand"
	"time"

	"trivia-match-service/internal/domain"
)

// MatchStore abstracts how live matches are kept (in-memory, Redis-marked).
// Terminal matches stay retrievable so claims and queries keep working;
// Retire only releases any liveness tracking for the id.
type MatchStore interface {
	NextID() uint64
	Put(m *Match)
	Get(id uint64) (*Match, bool)
	All() []*Match
	Retire(id uint64)
}

// StatsStore abstracts lifetime player stats persistence. Update must apply
// fn atomically with respect to other updates for the same address.
type StatsStore interface {
	Get(addr string) (domain.PlayerStats, bool)
	Update(addr string, fn func(*domain.PlayerStats))
}

// Engine ties the question bank, escrow ledger, match registry, scoring,
// settlement and stats tracking together. Every public method is a single
// atomic unit: preconditions are validated first, state is mutated under the
// match lock, and the outcome is emitted before returning.
type Engine struct {
	cfg       *AdminConfig
	bank      domain.AssetTransfer
	questions *QuestionBank
	matches   MatchStore
	escrow    *EscrowLedger
	stats     StatsStore
	events    *EventBus

	clock   func() time.Time
	entropy func() int64
}

func NewEngine(cfg *AdminConfig, bank domain.AssetTransfer, questions *QuestionBank, matches MatchStore, escrow *EscrowLedger, stats StatsStore) *Engine {
	return &Engine{
		cfg:       cfg,
		bank:      bank,
		questions: questions,
		matches:   matches,
		escrow:    escrow,
		stats:     stats,
		events:    NewEventBus(),
		clock:     time.Now,
		entropy:   rand.Int63,
	}
}

// WithClock swaps the time source for deterministic tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.clock = now
	return e
}

// WithEntropy swaps the seed entropy source for deterministic tests.
func (e *Engine) WithEntropy(entropy func() int64) *Engine {
	e.entropy = entropy
	return e
}

// Questions exposes the bank for administrative wiring (loaders, caches).
func (e *Engine) Questions() *QuestionBank { return e.questions }

// Escrow exposes the ledger for balance queries.
func (e *Engine) Escrow() *EscrowLedger { return e.escrow }

// Config exposes the admin configuration gate.
func (e *Engine) Config() *AdminConfig { return e.cfg }

// Subscribe returns the engine event stream. The caller must invoke the
// returned cancel function.
func (e *Engine) Subscribe() (<-chan domain.Event, func()) {
	return e.events.Subscribe()
}

// AddQuestion inserts a question into the bank. Administrator only.
func (e *Engine) AddQuestion(caller string, in QuestionInput) (uint64, error) {
	if err := e.cfg.requireAdmin(caller); err != nil {
		return 0, err
	}
	id, err := e.questions.Add(in)
	if err != nil {
		return 0, err
	}
	e.events.Publish(domain.Event{Type: domain.EventQuestionAdded, QuestionID: id, At: e.clock()})
	return id, nil
}

// AddQuestionsBatch inserts all questions or none. Administrator only.
func (e *Engine) AddQuestionsBatch(caller string, ins []QuestionInput) ([]uint64, error) {
	if err := e.cfg.requireAdmin(caller); err != nil {
		return nil, err
	}
	ids, err := e.questions.AddBatch(ins)
	if err != nil {
		return nil, err
	}
	now := e.clock()
	for _, id := range ids {
		e.events.Publish(domain.Event{Type: domain.EventQuestionAdded, QuestionID: id, At: now})
	}
	return ids, nil
}

// DeactivateQuestion soft-deletes a question. Administrator only.
func (e *Engine) DeactivateQuestion(caller string, id uint64) error {
	if err := e.cfg.requireAdmin(caller); err != nil {
		return err
	}
	return e.questions.Deactivate(id)
}

// CreateMatch escrows the creator's entry fee and opens a waiting match.
func (e *Engine) CreateMatch(ctx context.Context, caller, asset string, entryFee int64, maxPlayers, questionsPerMatch int, autoStart bool) (domain.MatchDetails, error) {
	if e.cfg.isPaused() {
		return domain.MatchDetails{}, domain.ErrPaused
	}
	if caller == "" {
		return domain.MatchDetails{}, domain.ErrInvalidInput
	}
	if !e.cfg.assetSupported(asset) {
		return domain.MatchDetails{}, domain.ErrUnsupportedAsset
	}
	minEntryFee, maxMatches, _, _ := e.cfg.limits()
	if entryFee < minEntryFee {
		return domain.MatchDetails{}, domain.ErrInvalidInput
	}
	if maxPlayers < 2 || maxPlayers > 10 {
		return domain.MatchDetails{}, domain.ErrInvalidPlayerCount
	}
	if questionsPerMatch < 5 || questionsPerMatch > 20 {
		return domain.MatchDetails{}, domain.ErrInvalidQuestionCount
	}
	if e.openMatchCount(caller) >= maxMatches {
		return domain.MatchDetails{}, domain.ErrMatchLimitReached
	}

	if _, err := e.bank.Deposit(ctx, caller, asset, entryFee); err != nil {
		return domain.MatchDetails{}, err
	}

	now := e.clock()
	m := newMatch(e.matches.NextID(), caller, asset, entryFee, maxPlayers, questionsPerMatch, autoStart, now)
	e.escrow.Credit(m.id, asset, entryFee)
	e.matches.Put(m)

	e.events.Publish(domain.Event{
		Type: domain.EventMatchCreated, MatchID: m.id, Player: caller,
		Asset: asset, Amount: entryFee, At: now,
	})
	return m.Snapshot(), nil
}

func (e *Engine) openMatchCount(creator string) int {
	count := 0
	for _, m := range e.matches.All() {
		m.mu.Lock()
		if m.creator == creator && (m.status == domain.StatusWaiting || m.status == domain.StatusActive) {
			count++
		}
		m.mu.Unlock()
	}
	return count
}

// JoinMatch escrows the caller's entry fee and appends them to a waiting
// match. Filling the last seat of an auto-start match starts it in the same
// call.
func (e *Engine) JoinMatch(ctx context.Context, caller string, matchID uint64) (domain.MatchDetails, error) {
	if e.cfg.isPaused() {
		return domain.MatchDetails{}, domain.ErrPaused
	}
	m, ok := e.matches.Get(matchID)
	if !ok {
		return domain.MatchDetails{}, domain.ErrMatchNotFound
	}
	_, _, matchTimeout, _ := e.cfg.limits()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != domain.StatusWaiting {
		return domain.MatchDetails{}, domain.ErrMatchNotWaiting
	}
	now := e.clock()
	if now.After(m.createdAt.Add(matchTimeout)) {
		// an overstayed waiting match is dead: cancellable, not joinable
		return domain.MatchDetails{}, domain.ErrMatchExpired
	}
	if len(m.players) >= m.maxPlayers {
		return domain.MatchDetails{}, domain.ErrMatchFull
	}
	if m.hasPlayerLocked(caller) {
		return domain.MatchDetails{}, domain.ErrAlreadyJoined
	}

	if _, err := e.bank.Deposit(ctx, caller, m.asset, m.entryFee); err != nil {
		return domain.MatchDetails{}, err
	}
	e.escrow.Credit(m.id, m.asset, m.entryFee)
	m.players = append(m.players, caller)
	m.scores[caller] = 0

	e.events.Publish(domain.Event{
		Type: domain.EventPlayerJoined, MatchID: m.id, Player: caller,
		Asset: m.asset, Amount: m.entryFee, At: now,
	})

	if m.autoStart && len(m.players) == m.maxPlayers {
		if err := e.startLocked(m, now); err != nil {
			// the join stands; the match stays waiting and can be started
			// manually once the bank has enough questions, or cancelled
			log.Printf("match %d: auto-start failed: %v", m.id, err)
		}
	}
	return m.snapshotLocked(), nil
}

// StartMatch begins play: draws the question set, freezes the roster and
// arms the answer deadline. Creator or administrator only.
func (e *Engine) StartMatch(ctx context.Context, caller string, matchID uint64) (domain.MatchDetails, error) {
	if e.cfg.isPaused() {
		return domain.MatchDetails{}, domain.ErrPaused
	}
	m, ok := e.matches.Get(matchID)
	if !ok {
		return domain.MatchDetails{}, domain.ErrMatchNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if caller != m.creator && !e.cfg.isAdmin(caller) {
		return domain.MatchDetails{}, domain.ErrNotCreator
	}
	if m.status != domain.StatusWaiting {
		return domain.MatchDetails{}, domain.ErrMatchNotWaiting
	}
	if len(m.players) < 2 {
		return domain.MatchDetails{}, domain.ErrInvalidPlayerCount
	}
	if err := e.startLocked(m, e.clock()); err != nil {
		return domain.MatchDetails{}, err
	}
	return m.snapshotLocked(), nil
}

func (e *Engine) startLocked(m *Match, now time.Time) error {
	// Seed mixes the match id, the clock and process entropy. Predictable
	// to anyone who can guess those inputs; kept that way on purpose.
	seed := int64(m.id) ^ now.UnixNano() ^ e.entropy()
	ids, err := e.questions.SelectRandom(m.questionsPerMatch, seed)
	if err != nil {
		return err
	}
	_, _, _, answerTimeout := e.cfg.limits()
	m.questionIDs = ids
	m.status = domain.StatusActive
	m.startAt = now
	m.endAt = now.Add(time.Duration(m.questionsPerMatch) * answerTimeout)

	e.events.Publish(domain.Event{Type: domain.EventMatchStarted, MatchID: m.id, At: now})
	return nil
}

// CancelMatch reverses a waiting match: every joined player gets their full
// entry fee back and the match goes terminal. Creator or administrator only.
// Works while paused; refunds are the one path the kill switch leaves open.
func (e *Engine) CancelMatch(ctx context.Context, caller string, matchID uint64) error {
	m, ok := e.matches.Get(matchID)
	if !ok {
		return domain.ErrMatchNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if caller != m.creator && !e.cfg.isAdmin(caller) {
		return domain.ErrNotCreator
	}
	if m.status != domain.StatusWaiting {
		return domain.ErrMatchNotWaiting
	}

	now := e.clock()
	m.status = domain.StatusCancelled
	for _, p := range m.players {
		if err := e.escrow.Debit(m.id, m.asset, m.entryFee); err != nil {
			m.settlementHalted = true
			log.Printf("FATAL: match %d refund underflow for %s: %v", m.id, p, err)
			return err
		}
		if _, err := e.bank.Payout(ctx, p, m.asset, m.entryFee); err != nil {
			e.escrow.Credit(m.id, m.asset, m.entryFee)
			m.settlementHalted = true
			log.Printf("FATAL: match %d refund payout to %s failed: %v", m.id, p, err)
			return err
		}
		e.events.Publish(domain.Event{
			Type: domain.EventRefundIssued, MatchID: m.id, Player: p,
			Asset: m.asset, Amount: m.entryFee, At: now,
		})
	}
	e.matches.Retire(m.id)
	return nil
}

// SubmitAnswer records a participant's answer exactly once and scores it.
// When the last outstanding answer lands, settlement runs in the same call.
func (e *Engine) SubmitAnswer(ctx context.Context, caller string, matchID uint64, sub domain.AnswerSubmission) (domain.AnswerResult, error) {
	if e.cfg.isPaused() {
		return domain.AnswerResult{}, domain.ErrPaused
	}
	m, ok := e.matches.Get(matchID)
	if !ok {
		return domain.AnswerResult{}, domain.ErrMatchNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != domain.StatusActive {
		return domain.AnswerResult{}, domain.ErrMatchNotActive
	}
	if !m.hasPlayerLocked(caller) {
		return domain.AnswerResult{}, domain.ErrNotParticipant
	}
	now := e.clock()
	if now.After(m.endAt) {
		return domain.AnswerResult{}, domain.ErrMatchExpired
	}
	if sub.Answer < 0 || sub.Answer > 3 {
		return domain.AnswerResult{}, domain.ErrInvalidAnswer
	}
	if !m.hasQuestionLocked(sub.QuestionID) {
		return domain.AnswerResult{}, domain.ErrQuestionNotAssigned
	}
	key := answerKey{caller, sub.QuestionID}
	if _, ok := m.answers[key]; ok {
		return domain.AnswerResult{}, domain.ErrAnswerAlreadySubmitted
	}

	q, err := e.questions.Get(sub.QuestionID)
	if err != nil {
		return domain.AnswerResult{}, err
	}

	m.answers[key] = sub.Answer
	correct := q.CorrectAnswer == sub.Answer
	if correct {
		m.scores[caller]++
		e.stats.Update(caller, func(s *domain.PlayerStats) {
			s.TotalCorrectAnswers++
		})
	}

	e.events.Publish(domain.Event{
		Type: domain.EventAnswerSubmitted, MatchID: m.id, Player: caller,
		QuestionID: sub.QuestionID, At: now,
	})

	result := domain.AnswerResult{
		QuestionID: sub.QuestionID,
		Correct:    correct,
		Score:      m.scores[caller],
	}
	if m.allAnsweredLocked() {
		e.settleLocked(m, now)
		result.Settled = true
	}
	return result, nil
}

// EndMatch settles an active match on demand. This is the secondary path for
// matches that stall past the deadline; administrator only.
func (e *Engine) EndMatch(ctx context.Context, caller string, matchID uint64) (domain.MatchDetails, error) {
	if e.cfg.isPaused() {
		return domain.MatchDetails{}, domain.ErrPaused
	}
	if err := e.cfg.requireAdmin(caller); err != nil {
		return domain.MatchDetails{}, err
	}
	m, ok := e.matches.Get(matchID)
	if !ok {
		return domain.MatchDetails{}, domain.ErrMatchNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != domain.StatusActive {
		return domain.MatchDetails{}, domain.ErrMatchNotActive
	}
	e.settleLocked(m, e.clock())
	return m.snapshotLocked(), nil
}

// settleLocked completes the match: tie-aware winner selection, floor-divided
// payouts, fee+dust sweep into the platform accrual. Escrow keeps exactly the
// claimable payouts afterward, so a fully claimed match drains to zero.
func (e *Engine) settleLocked(m *Match, now time.Time) {
	m.status = domain.StatusCompleted
	m.winners = m.winnersLocked()

	pool := m.entryFee * int64(len(m.players))
	fee := pool * e.cfg.FeePercent() / 100
	perWinner := (pool - fee) / int64(len(m.winners))
	dust := pool - fee - perWinner*int64(len(m.winners))
	m.perWinnerPayout = perWinner
	m.platformFee = fee

	if err := e.escrow.SweepFee(m.id, m.asset, fee+dust); err != nil {
		m.settlementHalted = true
		log.Printf("FATAL: match %d fee sweep underflow: %v", m.id, err)
	}

	for _, p := range m.players {
		e.stats.Update(p, func(s *domain.PlayerStats) {
			s.TotalMatches++
			s.LastPlayedAt = now
		})
	}

	e.matches.Retire(m.id)
	e.events.Publish(domain.Event{
		Type: domain.EventMatchEnded, MatchID: m.id, Winners: m.winners,
		Asset: m.asset, Amount: perWinner, At: now,
	})
}

// ClaimPrize pays a winner their computed share, once. The second call for
// the same winner fails with ErrAlreadyClaimed and moves no value.
func (e *Engine) ClaimPrize(ctx context.Context, caller string, matchID uint64) (int64, error) {
	if e.cfg.isPaused() {
		return 0, domain.ErrPaused
	}
	m, ok := e.matches.Get(matchID)
	if !ok {
		return 0, domain.ErrMatchNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != domain.StatusCompleted {
		return 0, domain.ErrMatchNotCompleted
	}
	if m.settlementHalted {
		return 0, domain.ErrSettlementHalted
	}
	if !m.isWinnerLocked(caller) {
		return 0, domain.ErrNotWinner
	}
	if _, ok := m.claimed[caller]; ok {
		return 0, domain.ErrAlreadyClaimed
	}

	if err := e.escrow.Debit(m.id, m.asset, m.perWinnerPayout); err != nil {
		m.settlementHalted = true
		log.Printf("FATAL: match %d claim underflow for %s: %v", m.id, caller, err)
		return 0, err
	}
	if _, err := e.bank.Payout(ctx, caller, m.asset, m.perWinnerPayout); err != nil {
		e.escrow.Credit(m.id, m.asset, m.perWinnerPayout)
		return 0, err
	}
	m.claimed[caller] = struct{}{}

	now := e.clock()
	score := m.scores[caller]
	payout := m.perWinnerPayout
	e.stats.Update(caller, func(s *domain.PlayerStats) {
		s.TotalWins++
		s.TotalEarnings += payout
		if score > s.HighestScore {
			s.HighestScore = score
		}
		s.LastPlayedAt = now
	})

	e.events.Publish(domain.Event{
		Type: domain.EventPrizeClaimed, MatchID: m.id, Player: caller,
		Asset: m.asset, Amount: payout, At: now,
	})
	return payout, nil
}

// WithdrawPlatformFees pays the accrued platform cut to the administrator.
func (e *Engine) WithdrawPlatformFees(ctx context.Context, caller, asset string) (int64, error) {
	if err := e.cfg.requireAdmin(caller); err != nil {
		return 0, err
	}
	amount := e.escrow.DrainFees(asset)
	if amount == 0 {
		return 0, nil
	}
	if _, err := e.bank.Payout(ctx, caller, asset, amount); err != nil {
		e.escrow.RestoreFees(asset, amount)
		return 0, err
	}
	return amount, nil
}
