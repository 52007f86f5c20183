package parser

import (
	"fmt"
	"strings"

	"github.com/frontierstation/damagecast/pkg/core"
)

// ParseProfile parses entity, name, kind, healthFlags.
func (p *Parser) ParseProfile(data []string) (ProfileCommand, error) {
	var cmd ProfileCommand
	if err := need(data, 4); err != nil {
		return cmd, err
	}
	clean(data)

	var err error
	if cmd.Entity, err = parseEntity(data[0], "profile"); err != nil {
		return cmd, err
	}
	cmd.Name = data[1]

	switch kind := ProfileKind(strings.ToLower(data[2])); kind {
	case KindHumanoid, KindEntity:
		cmd.Kind = kind
	default:
		return cmd, fmt.Errorf("unknown profile kind %q", data[2])
	}

	if cmd.Flags, err = core.ParseHealthFlags(data[3]); err != nil {
		return cmd, fmt.Errorf("error parsing health flags: %w", err)
	}
	return cmd, nil
}

// ParseProfileRemove parses entity.
func (p *Parser) ParseProfileRemove(data []string) (core.EntityID, error) {
	if err := need(data, 1); err != nil {
		return 0, err
	}
	clean(data)
	return parseEntity(data[0], "profile")
}

// ParseOpaque parses cell, opaque.
func (p *Parser) ParseOpaque(data []string) (OpaqueCommand, error) {
	var cmd OpaqueCommand
	if err := need(data, 2); err != nil {
		return cmd, err
	}
	clean(data)

	var err error
	if cmd.Cell, err = parseCell(data[0], "opaque"); err != nil {
		return cmd, err
	}
	if cmd.Opaque, err = parseBool(data[1]); err != nil {
		return cmd, err
	}
	return cmd, nil
}

// ParseSenser parses entity, cell, radius.
func (p *Parser) ParseSenser(data []string) (SenserCommand, error) {
	var cmd SenserCommand
	if err := need(data, 3); err != nil {
		return cmd, err
	}
	clean(data)

	var err error
	if cmd.Entity, err = parseEntity(data[0], "senser"); err != nil {
		return cmd, err
	}
	if cmd.Cell, err = parseCell(data[1], "senser"); err != nil {
		return cmd, err
	}
	radius, err := parseUintFromFloat(data[2])
	if err != nil {
		return cmd, fmt.Errorf("error converting radius: %w", err)
	}
	cmd.Radius = int(radius)
	return cmd, nil
}

// ParseSenserRemove parses entity.
func (p *Parser) ParseSenserRemove(data []string) (core.EntityID, error) {
	if err := need(data, 1); err != nil {
		return 0, err
	}
	clean(data)
	return parseEntity(data[0], "senser")
}

// ParseTick parses tick.
func (p *Parser) ParseTick(data []string) (TickCommand, error) {
	var cmd TickCommand
	if err := need(data, 1); err != nil {
		return cmd, err
	}
	clean(data)

	t, err := parseUintFromFloat(data[0])
	if err != nil {
		return cmd, fmt.Errorf("error converting tick: %w", err)
	}
	cmd.Tick = t
	return cmd, nil
}

// ParseRound parses name.
func (p *Parser) ParseRound(data []string) (RoundCommand, error) {
	var cmd RoundCommand
	if err := need(data, 1); err != nil {
		return cmd, err
	}
	clean(data)

	cmd.Name = strings.TrimSpace(data[0])
	if cmd.Name == "" {
		return cmd, fmt.Errorf("round name is empty")
	}
	return cmd, nil
}
