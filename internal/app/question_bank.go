package app

import (
	"math/rand"
	"strings"
	"sync"

	"trivia-match-service/internal/domain"
)

// QuestionBank owns the trivia catalog. Questions are append-only; a question
// is never deleted, only deactivated, so matches already holding its id keep
// resolving it.
type QuestionBank struct {
	mu         sync.RWMutex
	questions  map[uint64]*domain.Question
	activeIDs  []uint64
	byCategory map[string][]uint64
	nextID     uint64
}

func NewQuestionBank() *QuestionBank {
	return &QuestionBank{
		questions:  make(map[uint64]*domain.Question),
		byCategory: make(map[string][]uint64),
		nextID:     1,
	}
}

// QuestionInput is the shape accepted by Add and AddBatch.
type QuestionInput struct {
	Text          string    `json:"text"`
	Options       [4]string `json:"options"`
	CorrectAnswer int       `json:"correctAnswer"`
	Category      string    `json:"category"`
	Difficulty    int       `json:"difficulty"`
}

func validateQuestion(in QuestionInput) error {
	if strings.TrimSpace(in.Text) == "" {
		return domain.ErrInvalidInput
	}
	if in.CorrectAnswer < 0 || in.CorrectAnswer > 3 {
		return domain.ErrInvalidInput
	}
	if in.Difficulty < 1 || in.Difficulty > 5 {
		return domain.ErrInvalidInput
	}
	for _, opt := range in.Options {
		if strings.TrimSpace(opt) == "" {
			return domain.ErrInvalidInput
		}
	}
	return nil
}

// Add inserts a single question and returns its id.
func (b *QuestionBank) Add(in QuestionInput) (uint64, error) {
	if err := validateQuestion(in); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.insertLocked(in), nil
}

// AddBatch inserts all questions or none: every item is validated before the
// first insert so an invalid entry cannot leave a partial batch behind.
func (b *QuestionBank) AddBatch(ins []QuestionInput) ([]uint64, error) {
	if len(ins) == 0 {
		return nil, domain.ErrInvalidInput
	}
	for _, in := range ins {
		if err := validateQuestion(in); err != nil {
			return nil, err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]uint64, 0, len(ins))
	for _, in := range ins {
		ids = append(ids, b.insertLocked(in))
	}
	return ids, nil
}

func (b *QuestionBank) insertLocked(in QuestionInput) uint64 {
	id := b.nextID
	b.nextID++
	b.questions[id] = &domain.Question{
		ID:            id,
		Text:          in.Text,
		Options:       in.Options,
		CorrectAnswer: in.CorrectAnswer,
		Category:      in.Category,
		Difficulty:    in.Difficulty,
		Active:        true,
	}
	b.activeIDs = append(b.activeIDs, id)
	b.byCategory[in.Category] = append(b.byCategory[in.Category], id)
	return id
}

// Load seeds the bank from a backing store, preserving ids.
func (b *QuestionBank) Load(questions []domain.Question) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range questions {
		q := questions[i]
		if _, ok := b.questions[q.ID]; ok {
			continue
		}
		b.questions[q.ID] = &q
		if q.Active {
			b.activeIDs = append(b.activeIDs, q.ID)
		}
		b.byCategory[q.Category] = append(b.byCategory[q.Category], q.ID)
		if q.ID >= b.nextID {
			b.nextID = q.ID + 1
		}
	}
}

// Deactivate soft-deletes a question. The id stays resolvable for matches
// that already drew it; it just stops being eligible for new draws.
func (b *QuestionBank) Deactivate(id uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.questions[id]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	if !q.Active {
		return domain.ErrQuestionInactive
	}
	q.Active = false
	for i, active := range b.activeIDs {
		if active == id {
			b.activeIDs = append(b.activeIDs[:i], b.activeIDs[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns the full record, correct answer included. Player-facing reads
// must go through View.
func (b *QuestionBank) Get(id uint64) (domain.Question, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q, ok := b.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return *q, nil
}

// ActiveCount reports how many questions are eligible for selection.
func (b *QuestionBank) ActiveCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.activeIDs)
}

// SelectRandom draws count distinct active question ids by reservoir sampling.
// The draw is fully determined by the seed; callers derive the seed from the
// match id and wall clock, so anyone who can predict those inputs can predict
// the draw.
func (b *QuestionBank) SelectRandom(count int, seed int64) ([]uint64, error) {
	if count <= 0 {
		return nil, domain.ErrInvalidInput
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if count > len(b.activeIDs) {
		return nil, domain.ErrInsufficientQuestions
	}
	rnd := rand.New(rand.NewSource(seed))
	picked := make([]uint64, count)
	copy(picked, b.activeIDs[:count])
	for i := count; i < len(b.activeIDs); i++ {
		if j := rnd.Intn(i + 1); j < count {
			picked[j] = b.activeIDs[i]
		}
	}
	return picked, nil
}
