package app

import (
	"sync"

	"trivia-match-service/internal/domain"
)

type escrowKey struct {
	matchID uint64
	asset   string
}

// EscrowLedger tracks value held per (match, asset) plus the platform fee
// accrual per asset. The invariant it guards: held equals the sum of entry
// fees deposited minus everything already paid out for that match. It never
// lets a debit push a balance below zero.
type EscrowLedger struct {
	mu   sync.Mutex
	held map[escrowKey]int64
	fees map[string]int64
}

func NewEscrowLedger() *EscrowLedger {
	return &EscrowLedger{
		held: make(map[escrowKey]int64),
		fees: make(map[string]int64),
	}
}

// Credit records a deposit into a match's escrow.
func (l *EscrowLedger) Credit(matchID uint64, asset string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[escrowKey{matchID, asset}] += amount
}

// Debit releases value from a match's escrow. A debit that would underflow
// returns ErrInsufficientEscrow and changes nothing; that error is an
// accounting invariant violation, not a user-facing condition.
func (l *EscrowLedger) Debit(matchID uint64, asset string, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := escrowKey{matchID, asset}
	if l.held[key] < amount {
		return domain.ErrInsufficientEscrow
	}
	l.held[key] -= amount
	if l.held[key] == 0 {
		delete(l.held, key)
	}
	return nil
}

// SweepFee moves the platform's cut (fee plus floor-division dust) out of a
// match's escrow into the per-asset accrual, atomically.
func (l *EscrowLedger) SweepFee(matchID uint64, asset string, amount int64) error {
	if amount == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key := escrowKey{matchID, asset}
	if l.held[key] < amount {
		return domain.ErrInsufficientEscrow
	}
	l.held[key] -= amount
	if l.held[key] == 0 {
		delete(l.held, key)
	}
	l.fees[asset] += amount
	return nil
}

// Held reports the current escrow balance for a match.
func (l *EscrowLedger) Held(matchID uint64, asset string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[escrowKey{matchID, asset}]
}

// PlatformFees reports the accrued, not yet withdrawn platform cut.
func (l *EscrowLedger) PlatformFees(asset string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fees[asset]
}

// DrainFees zeroes the accrual for an asset and returns what was held.
func (l *EscrowLedger) DrainFees(asset string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	amount := l.fees[asset]
	delete(l.fees, asset)
	return amount
}

// RestoreFees puts a drained accrual back after a failed withdrawal payout.
func (l *EscrowLedger) RestoreFees(asset string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fees[asset] += amount
}
