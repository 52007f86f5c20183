// pkg/core/ids.go
package core

import (
	"fmt"
	"strconv"
	"strings"
)

// EntityID identifies a simulation entity.
type EntityID uint64

// Handle identifies a client connection.
type Handle uint64

// CellID is a world grid cell.
type CellID struct {
	X int16 `json:"x"`
	Y int16 `json:"y"`
	Z int16 `json:"z"`
}

func (c CellID) String() string {
	return fmt.Sprintf("%d,%d,%d", c.X, c.Y, c.Z)
}

// ParseCellID parses "x,y,z". Components may be written as floats
// ("3.00") as long as they are whole numbers.
func ParseCellID(s string) (CellID, error) {
	parts := strings.Split(strings.Trim(strings.TrimSpace(s), "[]"), ",")
	if len(parts) != 3 {
		return CellID{}, fmt.Errorf("invalid cell %q: want x,y,z", s)
	}
	var out [3]int16
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return CellID{}, fmt.Errorf("invalid cell %q: %w", s, err)
		}
		if f != float64(int16(f)) {
			return CellID{}, fmt.Errorf("invalid cell %q: component %q out of range", s, p)
		}
		out[i] = int16(f)
	}
	return CellID{X: out[0], Y: out[1], Z: out[2]}, nil
}
