package app

import (
	"sync"
	"time"

	"trivia-match-service/internal/domain"
)

// MaxFeePercent caps the administrator-configurable platform fee.
const MaxFeePercent = 10

// AdminConfig holds the operator-tunable knobs behind a single verified
// administrator identity. It is passed into the engine rather than living as
// ambient global state.
type AdminConfig struct {
	mu                  sync.RWMutex
	admin               string
	feePercent          int64
	minEntryFee         int64
	maxMatchesPerPlayer int
	matchTimeout        time.Duration
	answerTimeout       time.Duration
	assets              map[string]struct{}
	paused              bool
}

// AdminSettings is the initial configuration for NewAdminConfig.
type AdminSettings struct {
	Admin               string
	FeePercent          int64
	MinEntryFee         int64
	MaxMatchesPerPlayer int
	MatchTimeout        time.Duration
	AnswerTimeout       time.Duration
	Assets              []string
}

func NewAdminConfig(s AdminSettings) *AdminConfig {
	assets := make(map[string]struct{}, len(s.Assets))
	for _, a := range s.Assets {
		assets[a] = struct{}{}
	}
	if s.FeePercent > MaxFeePercent {
		s.FeePercent = MaxFeePercent
	}
	if s.MaxMatchesPerPlayer <= 0 {
		s.MaxMatchesPerPlayer = 5
	}
	if s.MatchTimeout <= 0 {
		s.MatchTimeout = time.Hour
	}
	if s.AnswerTimeout <= 0 {
		s.AnswerTimeout = time.Minute
	}
	return &AdminConfig{
		admin:               s.Admin,
		feePercent:          s.FeePercent,
		minEntryFee:         s.MinEntryFee,
		maxMatchesPerPlayer: s.MaxMatchesPerPlayer,
		matchTimeout:        s.MatchTimeout,
		answerTimeout:       s.AnswerTimeout,
		assets:              assets,
	}
}

func (c *AdminConfig) isAdmin(caller string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return caller != "" && caller == c.admin
}

func (c *AdminConfig) requireAdmin(caller string) error {
	if !c.isAdmin(caller) {
		return domain.ErrNotAdministrator
	}
	return nil
}

func (c *AdminConfig) isPaused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused
}

func (c *AdminConfig) assetSupported(asset string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.assets[asset]
	return ok
}

func (c *AdminConfig) limits() (minEntryFee int64, maxMatches int, matchTimeout, answerTimeout time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.minEntryFee, c.maxMatchesPerPlayer, c.matchTimeout, c.answerTimeout
}

// FeePercent returns the current platform fee percentage.
func (c *AdminConfig) FeePercent() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.feePercent
}

// SetFeePercent changes the platform fee; 0..10 percent only.
func (c *AdminConfig) SetFeePercent(caller string, percent int64) error {
	if err := c.requireAdmin(caller); err != nil {
		return err
	}
	if percent < 0 || percent > MaxFeePercent {
		return domain.ErrInvalidInput
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.feePercent = percent
	return nil
}

// SetMaxMatchesPerPlayer bounds per-creator open match state growth.
func (c *AdminConfig) SetMaxMatchesPerPlayer(caller string, limit int) error {
	if err := c.requireAdmin(caller); err != nil {
		return err
	}
	if limit < 1 {
		return domain.ErrInvalidInput
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxMatchesPerPlayer = limit
	return nil
}

// Pause is the global kill switch: every mutating call except cancel/refund
// is rejected until Unpause.
func (c *AdminConfig) Pause(caller string) error {
	if err := c.requireAdmin(caller); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
	return nil
}

func (c *AdminConfig) Unpause(caller string) error {
	if err := c.requireAdmin(caller); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = false
	return nil
}
