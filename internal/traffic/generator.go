// internal/traffic/generator.go
package traffic

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// Spec is what a generator produces for one synthetic request.
type Spec struct {
	Origin      string
	Destination string
	Work        int
}

// Generator supplies origin addresses and workload sizes. The balancer
// stamps the arrival tick itself.
type Generator interface {
	Next() Spec
}

// Config controls the random generator.
type Config struct {
	Subnet  string `mapstructure:"subnet"` // prefix for generated addresses, e.g. "192.168.1."
	MinWork int    `mapstructure:"min_work"`
	MaxWork int    `mapstructure:"max_work"`
}

// DefaultConfig draws addresses from 192.168.1.0-254 and work from 1-10 ticks.
func DefaultConfig() Config {
	return Config{Subnet: "192.168.1.", MinWork: 1, MaxWork: 10}
}

// Random generates uniformly distributed synthetic requests.
type Random struct {
	mu     sync.Mutex
	config Config
	rng    *rand.Rand
}

// NewRandom creates a seeded random generator.
func NewRandom(config Config, seed uint64) *Random {
	if config.Subnet == "" {
		config.Subnet = DefaultConfig().Subnet
	}
	if config.MinWork <= 0 {
		config.MinWork = 1
	}
	if config.MaxWork < config.MinWork {
		config.MaxWork = config.MinWork
	}
	return &Random{
		config: config,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Next draws one request spec.
func (g *Random) Next() Spec {
	g.mu.Lock()
	defer g.mu.Unlock()

	return Spec{
		Origin:      g.address(),
		Destination: g.address(),
		Work:        g.config.MinWork + g.rng.IntN(g.config.MaxWork-g.config.MinWork+1),
	}
}

func (g *Random) address() string {
	return fmt.Sprintf("%s%d", g.config.Subnet, g.rng.IntN(255))
}

// Sequence replays a fixed list of specs, repeating the last one once the
// list is exhausted.
type Sequence struct {
	mu    sync.Mutex
	specs []Spec
	next  int
}

// NewSequence creates a deterministic generator. It panics on an empty list.
func NewSequence(specs ...Spec) *Sequence {
	if len(specs) == 0 {
		panic("traffic: NewSequence needs at least one spec")
	}
	return &Sequence{specs: specs}
}

// Next returns the next spec in the list.
func (s *Sequence) Next() Spec {
	s.mu.Lock()
	defer s.mu.Unlock()

	spec := s.specs[s.next]
	if s.next < len(s.specs)-1 {
		s.next++
	}
	return spec
}
