package parser

import (
	"fmt"

	"github.com/frontierstation/damagecast/internal/util"
)

// ParseEntityDamage parses an attack on an entity:
// attacker, attackerCell, victim, victimCell, region, brute, burn, toxin, flags, weapon, weaponA.
func (p *Parser) ParseEntityDamage(data []string) (DamageCommand, error) {
	var cmd DamageCommand
	if err := need(data, 11); err != nil {
		return cmd, err
	}
	clean(data)

	var err error
	if cmd.Attacker, err = parseEntity(data[0], "attacker"); err != nil {
		return cmd, err
	}
	if cmd.AttackerCell, err = parseCell(data[1], "attacker"); err != nil {
		return cmd, err
	}
	victim, err := parseEntity(data[2], "victim")
	if err != nil {
		return cmd, err
	}
	cmd.Victim = &victim
	if cmd.VictimCell, err = parseCell(data[3], "victim"); err != nil {
		return cmd, err
	}
	cmd.Region = data[4]
	if cmd.Model, err = parseModel(data[5], data[6], data[7], data[8]); err != nil {
		return cmd, err
	}
	cmd.Weapon = data[9]
	cmd.WeaponA = data[10]
	if cmd.WeaponA == "" {
		cmd.WeaponA = util.WithArticle(cmd.Weapon)
	}

	p.logger.Debug("Parsed entity damage",
		"attacker", cmd.Attacker,
		"victim", victim,
		"region", cmd.Region,
		"flags", cmd.Model.Flags.String())
	return cmd, nil
}

// ParseCellDamage parses an attack on a structure cell:
// attacker, attackerCell, targetCell, brute, burn, toxin, flags, weapon, weaponA, structureName.
func (p *Parser) ParseCellDamage(data []string) (DamageCommand, error) {
	var cmd DamageCommand
	if err := need(data, 10); err != nil {
		return cmd, err
	}
	clean(data)

	var err error
	if cmd.Attacker, err = parseEntity(data[0], "attacker"); err != nil {
		return cmd, err
	}
	if cmd.AttackerCell, err = parseCell(data[1], "attacker"); err != nil {
		return cmd, err
	}
	if cmd.VictimCell, err = parseCell(data[2], "target"); err != nil {
		return cmd, err
	}
	if cmd.Model, err = parseModel(data[3], data[4], data[5], data[6]); err != nil {
		return cmd, err
	}
	cmd.Weapon = data[7]
	cmd.WeaponA = data[8]
	if cmd.WeaponA == "" {
		cmd.WeaponA = util.WithArticle(cmd.Weapon)
	}
	cmd.VictimName = data[9]
	if cmd.VictimName == "" {
		return cmd, fmt.Errorf("structure name is empty")
	}
	return cmd, nil
}
