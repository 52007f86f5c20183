// Package parser converts raw command arguments into typed commands.
package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/frontierstation/damagecast/internal/util"
	"github.com/frontierstation/damagecast/pkg/core"
)

// ErrInsufficientFields is returned when a command carries fewer arguments
// than its format needs.
var ErrInsufficientFields = errors.New("insufficient fields")

// parseUintFromFloat parses a string that may be an integer ("32") or float ("32.00") into uint64.
// Simulation scripts often serialise every number as a float.
func parseUintFromFloat(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != float64(uint64(f)) {
		return 0, fmt.Errorf("parseUintFromFloat: %q is not a valid uint64", s)
	}
	return uint64(f), nil
}

func parseFloat32(s string) (float32, error) {
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return float32(f), nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid bool %q", s)
}

// clean strips quoting from every argument in place.
func clean(data []string) {
	for i, v := range data {
		data[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}
}

func need(data []string, n int) error {
	if len(data) < n {
		return fmt.Errorf("%w: got %d, want %d", ErrInsufficientFields, len(data), n)
	}
	return nil
}

// Parser provides pure []string -> command conversion.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a parser that logs through logger.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

func parseEntity(s, what string) (core.EntityID, error) {
	v, err := parseUintFromFloat(s)
	if err != nil {
		return 0, fmt.Errorf("error converting %s id: %w", what, err)
	}
	return core.EntityID(v), nil
}

func parseCell(s, what string) (core.CellID, error) {
	c, err := core.ParseCellID(s)
	if err != nil {
		return core.CellID{}, fmt.Errorf("error parsing %s cell: %w", what, err)
	}
	return c, nil
}

func parseModel(brute, burn, toxin, flags string) (core.DamageModel, error) {
	var m core.DamageModel
	var err error
	if m.Brute, err = parseFloat32(brute); err != nil {
		return m, fmt.Errorf("error converting brute: %w", err)
	}
	if m.Burn, err = parseFloat32(burn); err != nil {
		return m, fmt.Errorf("error converting burn: %w", err)
	}
	if m.Toxin, err = parseFloat32(toxin); err != nil {
		return m, fmt.Errorf("error converting toxin: %w", err)
	}
	m.Flags = core.ParseDamageFlags(flags)
	return m, nil
}
