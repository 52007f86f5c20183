package perception

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/frontierstation/damagecast/pkg/core"
)

// Senser is the sensory capability of an observer: what it sees this tick.
type Senser struct {
	FOV *FOV
}

// Observer pairs an entity with its senser.
type Observer struct {
	Entity core.EntityID
	Senser *Senser
}

// Visibility is what one observer perceives of an attack.
type Visibility struct {
	Attacker bool
	Victim   bool
}

// Any reports whether either party is visible.
func (v Visibility) Any() bool { return v.Attacker || v.Victim }

// Gate tests attacker and victim cells against observers' visible sets.
type Gate struct {
	grid    Grid
	workers int
}

// NewGate returns a gate projecting onto g. workers bounds concurrent
// evaluation in EvaluateAll; zero or less means GOMAXPROCS.
func NewGate(g Grid, workers int) *Gate {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Gate{grid: g, workers: workers}
}

// Visible reports whether s can see the attacker's and the victim's cells.
// A nil senser sees nothing.
func (g *Gate) Visible(s *Senser, attacker, victim core.CellID) Visibility {
	if s == nil || s.FOV == nil {
		return Visibility{}
	}
	return Visibility{
		Attacker: g.sees(s.FOV, attacker),
		Victim:   g.sees(s.FOV, victim),
	}
}

func (g *Gate) sees(f *FOV, c core.CellID) bool {
	p, ok := g.grid.Project(c)
	if !ok {
		return false
	}
	return f.Contains(p)
}

// EvaluateAll runs Visible for every observer concurrently. Results are
// in the same order as observers.
func (g *Gate) EvaluateAll(ctx context.Context, observers []Observer, attacker, victim core.CellID) ([]Visibility, error) {
	out := make([]Visibility, len(observers))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, o := range observers {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = g.Visible(o.Senser, attacker, victim)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
