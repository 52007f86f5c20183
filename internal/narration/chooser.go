package narration

import (
	"math/rand/v2"
	"sync"
)

// Chooser picks one word from a list. It reports false for an empty list.
type Chooser interface {
	Choose(words []string) (string, bool)
}

// ChooserFunc adapts a function to Chooser.
type ChooserFunc func(words []string) (string, bool)

// Choose calls f.
func (f ChooserFunc) Choose(words []string) (string, bool) { return f(words) }

// First always picks the first word. Useful for fixed output.
var First = ChooserFunc(func(words []string) (string, bool) {
	if len(words) == 0 {
		return "", false
	}
	return words[0], true
})

type randomChooser struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomChooser picks uniformly using a randomly seeded source. Safe for
// concurrent use.
func NewRandomChooser() Chooser {
	return &randomChooser{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededChooser picks uniformly using a source seeded with seed, so the
// sequence of picks is reproducible.
func NewSeededChooser(seed uint64) Chooser {
	return &randomChooser{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (c *randomChooser) Choose(words []string) (string, bool) {
	if len(words) == 0 {
		return "", false
	}
	c.mu.Lock()
	i := c.rng.IntN(len(words))
	c.mu.Unlock()
	return words[i], true
}
