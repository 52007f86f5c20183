package perception

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// FOV is the set of grid cells one observer can see during a tick.
type FOV struct {
	grid    Grid
	visible *bitset.BitSet
}

// NewFOV returns an empty visible set on grid g.
func NewFOV(g Grid) *FOV {
	return &FOV{grid: g, visible: bitset.New(g.size())}
}

// Mark adds p to the visible set. Points off the grid are ignored.
func (f *FOV) Mark(p Point) {
	if !f.grid.Contains(p) {
		return
	}
	f.visible.Set(f.grid.index(p))
}

// Contains reports whether p is visible.
func (f *FOV) Contains(p Point) bool {
	if f == nil || !f.grid.Contains(p) {
		return false
	}
	return f.visible.Test(f.grid.index(p))
}

// Len returns the number of visible cells.
func (f *FOV) Len() int {
	if f == nil {
		return 0
	}
	return int(f.visible.Count())
}

// Map holds which grid cells block sight.
type Map struct {
	mu     sync.RWMutex
	grid   Grid
	opaque *bitset.BitSet
}

// NewMap returns a fully transparent map on grid g.
func NewMap(g Grid) *Map {
	return &Map{grid: g, opaque: bitset.New(g.size())}
}

// Grid returns the map's grid.
func (m *Map) Grid() Grid { return m.grid }

// SetOpaque marks p as blocking (or not blocking) sight.
func (m *Map) SetOpaque(p Point, opaque bool) {
	if !m.grid.Contains(p) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opaque.SetTo(m.grid.index(p), opaque)
}

// Opaque reports whether p blocks sight. Points off the grid block.
func (m *Map) Opaque(p Point) bool {
	if !m.grid.Contains(p) {
		return true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.opaque.Test(m.grid.index(p))
}

// Reset makes every cell transparent again.
func (m *Map) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opaque.ClearAll()
}

// octant transforms for recursive shadowcasting
var octants = [8][4]int{
	{1, 0, 0, 1},
	{0, 1, 1, 0},
	{0, -1, 1, 0},
	{-1, 0, 0, 1},
	{-1, 0, 0, -1},
	{0, -1, -1, 0},
	{0, 1, -1, 0},
	{1, 0, 0, -1},
}

// Compute returns the cells visible from origin within radius. The origin
// is always visible; opaque cells are visible but hide what lies behind them.
func (m *Map) Compute(origin Point, radius int) *FOV {
	fov := NewFOV(m.grid)
	if !m.grid.Contains(origin) {
		return fov
	}
	fov.Mark(origin)

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range octants {
		m.castLight(fov, origin, 1, 1.0, 0.0, radius, o[0], o[1], o[2], o[3])
	}
	return fov
}

// castLight scans one octant row by row, recursing whenever an opaque run
// splits the visible arc. Caller holds the read lock.
func (m *Map) castLight(fov *FOV, origin Point, row int, start, end float64, radius, xx, xy, yx, yy int) {
	if start < end {
		return
	}
	radiusSq := radius * radius
	for j := row; j <= radius; j++ {
		dx, dy := -j-1, -j
		blocked := false
		newStart := start
		for dx <= 0 {
			dx++
			p := Point{
				X: origin.X + dx*xx + dy*xy,
				Y: origin.Y + dx*yx + dy*yy,
			}
			leftSlope := (float64(dx) - 0.5) / (float64(dy) + 0.5)
			rightSlope := (float64(dx) + 0.5) / (float64(dy) - 0.5)
			if start < rightSlope {
				continue
			}
			if end > leftSlope {
				break
			}
			if dx*dx+dy*dy <= radiusSq {
				fov.Mark(p)
			}
			opaque := !m.grid.Contains(p) || m.opaque.Test(m.grid.index(p))
			if blocked {
				if opaque {
					newStart = rightSlope
					continue
				}
				blocked = false
				start = newStart
			} else if opaque && j < radius {
				blocked = true
				m.castLight(fov, origin, j+1, start, leftSlope, radius, xx, xy, yx, yy)
				newStart = rightSlope
			}
		}
		if blocked {
			break
		}
	}
}
