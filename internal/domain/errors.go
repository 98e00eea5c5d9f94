package domain

import "errors"

// Validation errors: rejected before any state mutation.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidAnswer        = errors.New("answer must be between 0 and 3")
	ErrInvalidPlayerCount   = errors.New("max players must be between 2 and 10")
	ErrInvalidQuestionCount = errors.New("questions per match must be between 5 and 20")
)

// State errors: the call arrived in the wrong lifecycle state.
var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchNotWaiting        = errors.New("match is not waiting for players")
	ErrMatchNotActive         = errors.New("match is not active")
	ErrMatchNotCompleted      = errors.New("match is not completed")
	ErrMatchFull              = errors.New("match is full")
	ErrAlreadyJoined          = errors.New("player already joined this match")
	ErrAnswerAlreadySubmitted = errors.New("answer already submitted for this question")
	ErrAlreadyClaimed         = errors.New("prize already claimed")
	ErrMatchExpired           = errors.New("match deadline has passed")
	ErrQuestionNotFound       = errors.New("question not found")
	ErrQuestionInactive       = errors.New("question is already inactive")
	ErrQuestionNotAssigned    = errors.New("question is not part of this match")
)

// Authorization errors.
var (
	ErrNotParticipant   = errors.New("caller is not a participant of this match")
	ErrNotAdministrator = errors.New("caller is not the administrator")
	ErrNotCreator       = errors.New("caller is not the match creator")
	ErrNotWinner        = errors.New("caller is not a winner of this match")
)

// Resource errors. ErrInsufficientEscrow on an internal debit means the
// conservation invariant broke; the engine halts settlement for that match
// instead of passing it off as a user error.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientEscrow  = errors.New("escrow underflow: accounting invariant violated")
	ErrSettlementHalted    = errors.New("settlement halted pending investigation")
)

// Unsupported configuration.
var (
	ErrUnsupportedAsset      = errors.New("asset is not supported")
	ErrMatchLimitReached     = errors.New("open match limit reached for caller")
	ErrInsufficientQuestions = errors.New("not enough active questions in the bank")
	ErrPaused                = errors.New("engine is paused")
)
