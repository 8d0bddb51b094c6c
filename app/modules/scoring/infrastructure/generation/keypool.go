package generation

import (
	"errors"
	"math/rand/v2"
	"strings"
	"sync/atomic"
)

// Key selection strategies.
const (
	StrategyRandom     = "random"
	StrategyRoundRobin = "round_robin"
)

// ErrEmptyKeyPool is returned when no provider credential is configured.
var ErrEmptyKeyPool = errors.New("generation: no API keys configured")

// KeyPool hands out provider credentials. The key list never changes after
// construction.
type KeyPool struct {
	keys     []string
	strategy string
	next     atomic.Uint64
}

// NewKeyPool drops blank entries and fails if nothing is left.
func NewKeyPool(keys []string, strategy string) (*KeyPool, error) {
	cleaned := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			cleaned = append(cleaned, k)
		}
	}
	if len(cleaned) == 0 {
		return nil, ErrEmptyKeyPool
	}
	switch strategy {
	case StrategyRoundRobin:
	case StrategyRandom, "":
		strategy = StrategyRandom
	default:
		return nil, errors.New("generation: unknown key strategy " + strategy)
	}
	return &KeyPool{keys: cleaned, strategy: strategy}, nil
}

func (p *KeyPool) Pick() string {
	if len(p.keys) == 1 {
		return p.keys[0]
	}
	if p.strategy == StrategyRoundRobin {
		n := p.next.Add(1) - 1
		return p.keys[n%uint64(len(p.keys))]
	}
	return p.keys[rand.IntN(len(p.keys))]
}

func (p *KeyPool) Size() int { return len(p.keys) }
