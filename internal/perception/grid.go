// Package perception answers which world cells an observer can see.
package perception

import "github.com/frontierstation/damagecast/pkg/core"

// DefaultGridWidth is the side length of the square perception grid.
const DefaultGridWidth = 500

// Point is a coordinate on the perception grid.
type Point struct {
	X int
	Y int
}

// Grid projects world cells onto a square perception grid centred on the
// world origin.
type Grid struct {
	Width int
}

// NewGrid returns a grid of the given width, or the default width if
// width is not positive.
func NewGrid(width int) Grid {
	if width <= 0 {
		width = DefaultGridWidth
	}
	return Grid{Width: width}
}

// Project maps a world cell to grid space. The vertical axis is dropped:
// x maps to X and z maps to Y, both offset by half the width. Cells that
// land outside the grid report false.
func (g Grid) Project(c core.CellID) (Point, bool) {
	half := g.Width / 2
	p := Point{X: int(c.X) + half, Y: int(c.Z) + half}
	return p, g.Contains(p)
}

// Contains reports whether p lies on the grid.
func (g Grid) Contains(p Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < g.Width && p.Y < g.Width
}

func (g Grid) index(p Point) uint {
	return uint(p.Y*g.Width + p.X)
}

func (g Grid) size() uint {
	return uint(g.Width * g.Width)
}
