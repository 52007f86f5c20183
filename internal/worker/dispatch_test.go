package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontierstation/damagecast/internal/cache"
	"github.com/frontierstation/damagecast/internal/config"
	"github.com/frontierstation/damagecast/internal/damage"
	"github.com/frontierstation/damagecast/internal/dispatcher"
	"github.com/frontierstation/damagecast/internal/health"
	"github.com/frontierstation/damagecast/internal/identity"
	"github.com/frontierstation/damagecast/internal/logging"
	"github.com/frontierstation/damagecast/internal/narration"
	"github.com/frontierstation/damagecast/internal/notify"
	"github.com/frontierstation/damagecast/internal/parser"
	"github.com/frontierstation/damagecast/internal/perception"
	"github.com/frontierstation/damagecast/internal/queue"
	"github.com/frontierstation/damagecast/internal/round"
	"github.com/frontierstation/damagecast/internal/storage/memory"
	"github.com/frontierstation/damagecast/pkg/core"
	"github.com/frontierstation/damagecast/pkg/streaming"
)

type fakeRounds struct {
	names []string
	err   error
}

func (f *fakeRounds) StartRound(name string, _ time.Time) error {
	f.names = append(f.names, name)
	return f.err
}

type fakeMetrics struct {
	buckets []string
	lines   []string
}

func (f *fakeMetrics) WritePoint(_ context.Context, bucket string, p *influxdb2_write.Point) error {
	f.buckets = append(f.buckets, bucket)
	f.lines = append(f.lines, influxdb2_write.PointToLineProtocol(p, time.Nanosecond))
	return nil
}

type harness struct {
	m        *Manager
	d        *dispatcher.Dispatcher
	dir      *identity.Directory
	outbox   *queue.Queue[streaming.Outbound]
	profiles *cache.ProfileCache
	sensers  *cache.SenserCache
	world    *perception.Map
	clock    *round.Context
	log      *memory.Backend
	rounds   *fakeRounds
}

func newHarness(t *testing.T, words config.NarrationConfig) *harness {
	t.Helper()
	grid := perception.NewGrid(41)
	h := &harness{
		dir:      identity.NewDirectory(),
		outbox:   queue.New[streaming.Outbound](),
		profiles: cache.NewProfileCache(),
		sensers:  cache.NewSenserCache(),
		world:    perception.NewMap(grid),
		clock:    round.NewContext(),
		log:      memory.New(config.MemoryConfig{}),
		rounds:   &fakeRounds{},
	}

	n, err := notify.New(h.dir, h.outbox)
	require.NoError(t, err)
	resolver, err := damage.NewResolver(damage.Dependencies{
		Gate:      perception.NewGate(grid, 2),
		Composer:  narration.NewComposer(narration.First),
		Observers: h.sensers,
		Notifier:  n,
		Recorder:  h.log,
		Clock:     h.clock,
		Words: damage.Words{
			Offense: []string{"shot"},
			Trigger: []string{"fired"},
		},
	})
	require.NoError(t, err)

	h.m, err = NewManager(Dependencies{
		Parser:        parser.NewParser(nil),
		Profiles:      h.profiles,
		Sensers:       h.sensers,
		Map:           h.world,
		Round:         h.clock,
		Resolver:      resolver,
		Narration:     words,
		Rounds:        h.rounds,
		DefaultRadius: 8,
	})
	require.NoError(t, err)

	h.d, err = dispatcher.New(logging.NewDispatcherLogger(zerolog.Nop()))
	require.NoError(t, err)
	h.m.RegisterHandlers(h.d)
	t.Cleanup(func() { _ = h.d.Close(context.Background()) })
	return h
}

func (h *harness) dispatch(t *testing.T, cmd string, args ...string) (any, error) {
	t.Helper()
	return h.d.Dispatch(context.Background(), dispatcher.Event{Command: cmd, Args: args})
}

func (h *harness) senser(t *testing.T, args ...string) {
	t.Helper()
	_, err := h.dispatch(t, ":SENSER:", args...)
	require.NoError(t, err)
}

func (h *harness) opaque(t *testing.T, args ...string) {
	t.Helper()
	_, err := h.dispatch(t, ":OPAQUE:", args...)
	require.NoError(t, err)
}

func chatTexts(t *testing.T, out []streaming.Outbound) map[core.Handle]string {
	t.Helper()
	texts := make(map[core.Handle]string, len(out))
	for _, o := range out {
		require.Equal(t, streaming.TypeChatMessage, o.Message.Type)
		texts[o.Handle] = o.Message.Payload.(streaming.ChatPayload).Text
	}
	return texts
}

func TestNewManager_RequiresDependencies(t *testing.T) {
	_, err := NewManager(Dependencies{})
	assert.Error(t, err)
}

func TestRegisterHandlers(t *testing.T) {
	h := newHarness(t, config.NarrationConfig{})
	assert.Equal(t, []string{
		":DAMAGE:CELL:",
		":DAMAGE:ENTITY:",
		":OPAQUE:",
		":PROFILE:",
		":PROFILE:REMOVE:",
		":ROUND:",
		":SENSER:",
		":SENSER:REMOVE:",
		":TICK:",
	}, h.d.Commands())
}

func TestEntityDamage_NarratesByLineOfSight(t *testing.T) {
	h := newHarness(t, config.NarrationConfig{})

	_, err := h.dispatch(t, ":PROFILE:", "1", "Alice", "humanoid", "")
	require.NoError(t, err)
	_, err = h.dispatch(t, ":PROFILE:", "2", "Bob", "humanoid", "")
	require.NoError(t, err)

	// a wall at x=2 splits the room
	for z := -20; z <= 20; z++ {
		h.opaque(t, core.CellID{X: 2, Z: int16(z)}.String(), "true")
	}
	h.senser(t, "11", "-2,0,0", "8") // west of the wall, with the attacker
	h.senser(t, "12", "5,0,0", "8")  // east of the wall, with the victim
	h.senser(t, "13", "-15,0,0", "2")
	h.dir.Connect(11, 111)
	h.dir.Connect(12, 112)
	h.dir.Connect(13, 113)

	res, err := h.dispatch(t, ":DAMAGE:ENTITY:", "1", "0,0,0", "2", "3,0,0", "torso", "12", "0", "0", "", "pistol", "")
	require.NoError(t, err)
	assert.Equal(t, core.HitSoft, res)

	bob, ok := h.profiles.Entity(2)
	require.True(t, ok)
	assert.Equal(t, core.Damage{Brute: 12}, bob.Profile.Snapshot().Part(core.Torso))

	assert.Equal(t, map[core.Handle]string{
		111: "[color=#ff003c]Alice has fired his pistol![/color]",
		112: "[color=#ff003c]Bob has been shot in the torso with a pistol![/color]",
	}, chatTexts(t, h.outbox.Drain()))

	require.Len(t, h.log.Hits(), 1)
	assert.Len(t, h.log.Narrations(), 2)
}

func TestEntityDamage_ClearSightSeesEverything(t *testing.T) {
	h := newHarness(t, config.NarrationConfig{})
	_, err := h.dispatch(t, ":PROFILE:", "1", "Alice", "humanoid", "")
	require.NoError(t, err)
	_, err = h.dispatch(t, ":PROFILE:", "2", "Bob", "humanoid", "ArmourPlated")
	require.NoError(t, err)
	h.senser(t, "10", "1,0,0", "0") // default radius
	h.dir.Connect(10, 100)

	res, err := h.dispatch(t, ":DAMAGE:ENTITY:", "1", "0,0,0", "2", "3,0,0", "head", "20", "10", "5", "SoftDamage", "pistol", "")
	require.NoError(t, err)
	assert.Equal(t, core.Blocked, res)

	assert.Equal(t, map[core.Handle]string{
		100: "[color=#ff003c]Alice has shot Bob in the head with a pistol![/color]",
	}, chatTexts(t, h.outbox.Drain()))
}

func TestEntityDamage_UnknownVictim(t *testing.T) {
	h := newHarness(t, config.NarrationConfig{})
	_, err := h.dispatch(t, ":DAMAGE:ENTITY:", "1", "0,0,0", "99", "3,0,0", "torso", "1", "0", "0", "", "pistol", "")
	assert.ErrorIs(t, err, ErrUnknownTarget)
	assert.Empty(t, h.log.Hits())
}

func TestEntityDamage_UnknownAttackerName(t *testing.T) {
	h := newHarness(t, config.NarrationConfig{})
	_, err := h.dispatch(t, ":PROFILE:", "2", "Bob", "humanoid", "")
	require.NoError(t, err)
	h.senser(t, "10", "1,0,0", "8")
	h.dir.Connect(10, 100)

	_, err = h.dispatch(t, ":DAMAGE:ENTITY:", "7", "0,0,0", "2", "3,0,0", "torso", "1", "0", "0", "", "pistol", "")
	require.NoError(t, err)
	texts := chatTexts(t, h.outbox.Drain())
	assert.Equal(t, "[color=#ff003c]something has shot Bob in the torso with a pistol![/color]", texts[100])
}

func TestEntityDamage_BadArgs(t *testing.T) {
	h := newHarness(t, config.NarrationConfig{})
	_, err := h.dispatch(t, ":DAMAGE:ENTITY:", "1", "0,0,0")
	assert.ErrorIs(t, err, parser.ErrInsufficientFields)
}

func TestCellDamage_StructureIsArmoured(t *testing.T) {
	h := newHarness(t, config.NarrationConfig{})
	_, err := h.dispatch(t, ":PROFILE:", "1", "Alice", "humanoid", "")
	require.NoError(t, err)
	h.senser(t, "10", "6,0,0", "4")
	h.dir.Connect(10, 100)

	res, err := h.dispatch(t, ":DAMAGE:CELL:", "1", "-6,0,0", "4,0,0", "0", "20", "0", "WeakLethalLaser", "laser rifle", "", "the reinforced wall")
	require.NoError(t, err)
	assert.Equal(t, core.Blocked, res)

	wall := h.profiles.Structure(core.CellID{X: 4})
	assert.Equal(t, health.Aggregate, wall.Shape())
	assert.InDelta(t, 1.0, wall.Snapshot().Total.Burn, 1e-6)

	assert.Equal(t, map[core.Handle]string{
		100: "[color=#ff003c]the reinforced wall has been shot with a laser rifle![/color]",
	}, chatTexts(t, h.outbox.Drain()))

	hits := h.log.Hits()
	require.Len(t, hits, 1)
	assert.Equal(t, core.TargetStructure, hits[0].Target)
}

func TestEntityDamage_WeaponWords(t *testing.T) {
	h := newHarness(t, config.NarrationConfig{
		OffenseWords: []string{"hit"},
		TriggerWords: []string{"used"},
		Possessive:   "their",
		Weapons: map[string]config.WeaponWords{
			"knife": {OffenseWords: []string{"stabbed"}},
		},
	})
	_, err := h.dispatch(t, ":PROFILE:", "1", "Alice", "humanoid", "")
	require.NoError(t, err)
	_, err = h.dispatch(t, ":PROFILE:", "2", "Bob", "humanoid", "")
	require.NoError(t, err)
	h.senser(t, "10", "1,0,0", "8")
	h.senser(t, "11", "-4,0,0", "4")
	h.dir.Connect(10, 100)
	h.dir.Connect(11, 101)

	_, err = h.dispatch(t, ":DAMAGE:ENTITY:", "1", "0,0,0", "2", "1,0,0", "left_leg", "3", "0", "0", "Sharp", "Knife", "")
	require.NoError(t, err)
	assert.Equal(t, map[core.Handle]string{
		100: "[color=#ff003c]Alice has stabbed Bob in the left leg with a Knife![/color]",
		101: "[color=#ff003c]Alice has used their Knife![/color]",
	}, chatTexts(t, h.outbox.Drain()))
}

func TestProfileRemove(t *testing.T) {
	h := newHarness(t, config.NarrationConfig{})
	_, err := h.dispatch(t, ":PROFILE:", "2", "crate", "entity", "")
	require.NoError(t, err)
	named, ok := h.profiles.Entity(2)
	require.True(t, ok)
	assert.Equal(t, health.Aggregate, named.Profile.Shape())

	_, err = h.dispatch(t, ":PROFILE:REMOVE:", "2")
	require.NoError(t, err)
	_, ok = h.profiles.Entity(2)
	assert.False(t, ok)
}

func TestSenser_OffGridSeesNothing(t *testing.T) {
	h := newHarness(t, config.NarrationConfig{})
	h.senser(t, "10", "300,0,0", "8")
	s, ok := h.sensers.Get(10)
	require.True(t, ok)
	assert.Zero(t, s.FOV.Len())
}

func TestOpaque_OffGrid(t *testing.T) {
	h := newHarness(t, config.NarrationConfig{})
	_, err := h.dispatch(t, ":OPAQUE:", "300,0,0", "true")
	assert.ErrorContains(t, err, "off the perception grid")
}

func TestWorldUpdates_VisibleToNextCommand(t *testing.T) {
	h := newHarness(t, config.NarrationConfig{})
	_, err := h.dispatch(t, ":PROFILE:", "1", "Alice", "humanoid", "")
	require.NoError(t, err)
	_, err = h.dispatch(t, ":PROFILE:", "2", "Bob", "humanoid", "")
	require.NoError(t, err)
	h.dir.Connect(10, 100)

	for i := 0; i < 50; i++ {
		_, err = h.dispatch(t, ":SENSER:", "10", "1,0,0", "8")
		require.NoError(t, err)
		_, err = h.dispatch(t, ":DAMAGE:ENTITY:", "1", "0,0,0", "2", "3,0,0", "torso", "1", "0", "0", "", "pistol", "")
		require.NoError(t, err)
		require.Len(t, h.outbox.Drain(), 1, "run %d", i)

		_, err = h.dispatch(t, ":SENSER:REMOVE:", "10")
		require.NoError(t, err)
		_, err = h.dispatch(t, ":DAMAGE:ENTITY:", "1", "0,0,0", "2", "3,0,0", "torso", "1", "0", "0", "", "pistol", "")
		require.NoError(t, err)
		require.Empty(t, h.outbox.Drain(), "run %d", i)
	}
}

func TestWorldUpdates_WallsBeforeSenser(t *testing.T) {
	h := newHarness(t, config.NarrationConfig{})
	for z := -20; z <= 20; z++ {
		_, err := h.dispatch(t, ":OPAQUE:", core.CellID{X: 2, Z: int16(z)}.String(), "true")
		require.NoError(t, err)
	}
	for z := -20; z <= 20; z++ {
		p, _ := h.world.Grid().Project(core.CellID{X: 2, Z: int16(z)})
		require.True(t, h.world.Opaque(p))
	}

	_, err := h.dispatch(t, ":SENSER:", "10", "0,0,0", "8")
	require.NoError(t, err)
	s, ok := h.sensers.Get(10)
	require.True(t, ok)
	beyond, _ := h.world.Grid().Project(core.CellID{X: 4})
	assert.False(t, s.FOV.Contains(beyond), "the wall hides the far side")
}

func TestWorldUpdates_DoNotLeakIntoNextRound(t *testing.T) {
	h := newHarness(t, config.NarrationConfig{})
	h.opaque(t, "1,0,0", "true")
	h.senser(t, "10", "0,0,0", "4")

	_, err := h.dispatch(t, ":ROUND:", "next")
	require.NoError(t, err)
	require.NoError(t, h.d.Close(context.Background()))

	assert.Zero(t, h.sensers.Len())
	p, _ := h.world.Grid().Project(core.CellID{X: 1})
	assert.False(t, h.world.Opaque(p))
}

func TestTick_Monotone(t *testing.T) {
	h := newHarness(t, config.NarrationConfig{})
	_, err := h.dispatch(t, ":TICK:", "10")
	require.NoError(t, err)
	_, err = h.dispatch(t, ":TICK:", "4")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), h.clock.Tick())
}

func TestRound_ResetsWorld(t *testing.T) {
	h := newHarness(t, config.NarrationConfig{})
	_, err := h.dispatch(t, ":PROFILE:", "2", "Bob", "humanoid", "")
	require.NoError(t, err)
	h.senser(t, "10", "0,0,0", "4")
	h.opaque(t, "1,0,0", "true")
	_, err = h.dispatch(t, ":TICK:", "50")
	require.NoError(t, err)

	_, err = h.dispatch(t, ":ROUND:", "box-station")
	require.NoError(t, err)

	assert.Equal(t, "box-station", h.clock.Round())
	assert.Zero(t, h.clock.Tick())
	entities, _ := h.profiles.Len()
	assert.Zero(t, entities)
	assert.Zero(t, h.sensers.Len())
	p, _ := h.world.Grid().Project(core.CellID{X: 1})
	assert.False(t, h.world.Opaque(p))
	assert.Equal(t, []string{"box-station"}, h.rounds.names)
}

func TestRound_StorageFailure(t *testing.T) {
	h := newHarness(t, config.NarrationConfig{})
	h.rounds.err = errors.New("db down")
	_, err := h.dispatch(t, ":ROUND:", "meta")
	assert.ErrorContains(t, err, "db down")
	assert.Equal(t, "meta", h.clock.Round(), "the round starts regardless")
}

func TestMetric(t *testing.T) {
	h := newHarness(t, config.NarrationConfig{})
	metrics := &fakeMetrics{}
	h.m.deps.Metrics = metrics

	d, err := dispatcher.New(logging.NewDispatcherLogger(zerolog.Nop()))
	require.NoError(t, err)
	h.m.RegisterHandlers(d)
	assert.True(t, d.HasHandler(":METRIC:"))
	assert.False(t, h.d.HasHandler(":METRIC:"), "no writer, no command")

	_, err = d.Dispatch(context.Background(), dispatcher.Event{
		Command: ":METRIC:",
		Args:    []string{"server_performance", "fps", "field::float::fps::48.5"},
	})
	require.NoError(t, err)
	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, []string{"server_performance"}, metrics.buckets)
	require.Len(t, metrics.lines, 1)
	assert.Contains(t, metrics.lines[0], "fps=48.5")
}
