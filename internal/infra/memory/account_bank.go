package memory

import (
	"context"
	"sync"
	"time"

	"trivia-match-service/internal/domain"
)

type accountKey struct {
	addr  string
	asset string
}

// AccountBank is a local-ledger implementation of the asset transfer
// boundary. Deposits pull value out of the payer's account into the system;
// payouts push value back. Each call either completes or leaves balances
// untouched.
type AccountBank struct {
	mu             sync.Mutex
	balances       map[accountKey]int64
	seen           map[accountKey]struct{}
	defaultBalance int64
	nextReceipt    uint64
	clock          func() time.Time
}

// NewAccountBank creates a bank. defaultBalance, when positive, seeds any
// account on first touch so demo deployments work without a faucet step.
func NewAccountBank(defaultBalance int64) *AccountBank {
	return &AccountBank{
		balances:       make(map[accountKey]int64),
		seen:           make(map[accountKey]struct{}),
		defaultBalance: defaultBalance,
		clock:          time.Now,
	}
}

// Mint credits an account directly; used for seeding and tests.
func (b *AccountBank) Mint(addr, asset string, amount int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := accountKey{addr, asset}
	b.seen[key] = struct{}{}
	b.balances[key] += amount
}

// Balance reports an account's current balance.
func (b *AccountBank) Balance(addr, asset string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := accountKey{addr, asset}
	b.touchLocked(key)
	return b.balances[key]
}

func (b *AccountBank) touchLocked(key accountKey) {
	if _, ok := b.seen[key]; !ok {
		b.seen[key] = struct{}{}
		if b.defaultBalance > 0 {
			b.balances[key] = b.defaultBalance
		}
	}
}

func (b *AccountBank) Deposit(_ context.Context, payer, asset string, amount int64) (domain.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := accountKey{payer, asset}
	b.touchLocked(key)
	if b.balances[key] < amount {
		return domain.Receipt{}, domain.ErrInsufficientBalance
	}
	b.balances[key] -= amount
	b.nextReceipt++
	return domain.Receipt{ID: b.nextReceipt, At: b.clock()}, nil
}

func (b *AccountBank) Payout(_ context.Context, payee, asset string, amount int64) (domain.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := accountKey{payee, asset}
	b.touchLocked(key)
	b.balances[key] += amount
	b.nextReceipt++
	return domain.Receipt{ID: b.nextReceipt, At: b.clock()}, nil
}
