package orchestrator

import (
	"errors"
	"fmt"
	"sync"
)

// ErrModelCallLimit is returned once a turn has used up its generation passes.
var ErrModelCallLimit = errors.New("exceeded max model calls")

// Generation passes of a turn. A turn answers once and may regenerate once
// after an action result.
const (
	passAnswer       = "answer"
	passRegeneration = "regeneration"
)

var turnPasses = []string{passAnswer, passRegeneration}

// ModelLimiter hands out the generation passes of one turn in order. A pass
// that was refused is not recorded.
type ModelLimiter struct {
	mu     sync.Mutex
	passes []string
	used   []string
}

// NewModelLimiter creates a limiter for the given ordered passes.
func NewModelLimiter(passes ...string) *ModelLimiter {
	return &ModelLimiter{passes: passes}
}

// Next claims the next pass and returns its name.
func (ml *ModelLimiter) Next() (string, error) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	if len(ml.used) >= len(ml.passes) {
		return "", fmt.Errorf("%w: %d", ErrModelCallLimit, len(ml.passes))
	}
	pass := ml.passes[len(ml.used)]
	ml.used = append(ml.used, pass)
	return pass, nil
}

// Count reports how many passes were claimed.
func (ml *ModelLimiter) Count() int {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	return len(ml.used)
}

// Used returns the claimed passes in order.
func (ml *ModelLimiter) Used() []string {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	return append([]string(nil), ml.used...)
}
