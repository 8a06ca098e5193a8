// Package ai implements the computer opponent: a hunt/target engine backed
// by probability, heat, density and parity maps, with one strategy per
// difficulty.
package ai

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"battleship-ai/internal/game"
)

// Engine is the AI player for one match. It is not safe for concurrent use.
type Engine struct {
	size       int
	fleet      game.FleetSpec
	difficulty Difficulty
	strategy   Strategy
	mem        *Memory
	rng        *rand.Rand
	log        zerolog.Logger
}

type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.log = l } }

// WithSeed makes move selection and fleet generation reproducible.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.rng = rand.New(rand.NewSource(seed)) }
}

func WithRand(r *rand.Rand) Option { return func(e *Engine) { e.rng = r } }

// WithFleet overrides the enemy fleet composition the engine reasons about.
func WithFleet(f game.FleetSpec) Option { return func(e *Engine) { e.fleet = f } }

func WithDifficulty(d Difficulty) Option { return func(e *Engine) { e.difficulty = d } }

func New(size int, opts ...Option) *Engine {
	e := &Engine{
		size:       size,
		fleet:      game.StandardFleet,
		difficulty: Medium,
		log:        zerolog.Nop(),
	}
	for _, o := range opts {
		o(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e.strategy = strategyFor(e.difficulty)
	e.mem = newMemory(size, e.fleet.Sizes())
	return e
}

func (e *Engine) Difficulty() Difficulty { return e.difficulty }
func (e *Engine) Size() int              { return e.size }

// SetDifficulty swaps the strategy. Memory is kept.
func (e *Engine) SetDifficulty(d Difficulty) error {
	if _, err := ParseDifficulty(string(d)); err != nil {
		return err
	}
	e.difficulty = d
	e.strategy = strategyFor(d)
	return nil
}

// NextMove chooses the next cell to attack. It returns false only once
// every cell has been targeted. Memory is not modified.
func (e *Engine) NextMove() (game.Coord, bool) {
	if c, ok := e.strategy.Next(e.mem, e.rng); ok && !e.mem.HasBeenTargeted(c) && c.In(e.size) {
		e.log.Debug().Str("difficulty", string(e.difficulty)).Str("mode", string(e.mem.mode)).
			Stringer("move", c).Msg("ai move")
		return c, true
	}
	if c, ok := pick(e.rng, e.mem.validTargets()); ok {
		e.log.Debug().Stringer("move", c).Msg("ai fallback move")
		return c, true
	}
	if c, ok := pick(e.rng, e.mem.untargeted()); ok {
		e.log.Debug().Stringer("move", c).Msg("ai fallback move, no valid target left")
		return c, true
	}
	return game.Coord{}, false
}

// ProcessResult records the outcome of the AI's own shot. sunk holds the
// cells of the ship the shot sank, if any. Out-of-bounds and repeated
// shots are ignored.
func (e *Engine) ProcessResult(c game.Coord, hit bool, sunk []game.Coord) {
	if !c.In(e.size) {
		e.log.Warn().Stringer("cell", c).Msg("ai result out of bounds ignored")
		return
	}
	if e.mem.HasBeenTargeted(c) {
		e.log.Warn().Stringer("cell", c).Msg("ai result for a targeted cell ignored")
		return
	}
	e.mem.record(c, hit, sunk)
	e.log.Debug().Stringer("cell", c).Bool("hit", hit).Int("sunk", len(sunk)).
		Str("mode", string(e.mem.mode)).Int("queue", e.mem.queue.Len()).Msg("ai result")
}

// ShipSunk records an enemy ship as sunk: its cells leave the live hits
// and the queue, and every cell touching it stops being a valid target.
func (e *Engine) ShipSunk(cells []game.Coord) {
	if len(cells) == 0 {
		return
	}
	e.mem.sink(cells)
	e.mem.rescoreQueue()
	e.mem.refresh(false)
	e.log.Debug().Int("cells", len(cells)).Int("sunk", len(e.mem.sunk)).Msg("ai ship sunk")
}

func (e *Engine) NotifyShotOutcome(c game.Coord, hit bool, sunk []game.Coord) {
	e.ProcessResult(c, hit, sunk)
}

// NotifyOwnShipLost is called when the opponent sinks one of the AI's own
// ships. The loss is recorded in the sunk list but those cells live on the
// AI's board, so they do not constrain targeting.
func (e *Engine) NotifyOwnShipLost(cells []game.Coord) {
	if len(cells) == 0 {
		return
	}
	e.mem.sunk = append(e.mem.sunk, sunkShip{cells: append([]game.Coord(nil), cells...), own: true})
	e.log.Debug().Int("cells", len(cells)).Msg("ai lost a ship")
}

// GenerateShipPlacement returns a random valid fleet for the AI's own board.
func (e *Engine) GenerateShipPlacement() ([]game.Ship, error) {
	ships, st, err := game.GenerateFleet(e.rng, e.size, e.fleet)
	if err != nil {
		e.log.Error().Err(err).Int("restarts", st.Restarts).Msg("ai fleet generation failed")
		return nil, err
	}
	if st.Fallbacks > 0 || st.Restarts > 0 {
		e.log.Warn().Int("fallbacks", st.Fallbacks).Int("restarts", st.Restarts).Msg("ai fleet needed fallback placement")
	}
	return ships, nil
}

// Reset clears all memory, keeping difficulty and RNG.
func (e *Engine) Reset() {
	e.mem = newMemory(e.size, e.fleet.Sizes())
}

func (e *Engine) HasBeenTargeted(c game.Coord) bool { return e.mem.HasBeenTargeted(c) }
func (e *Engine) IsValidTarget(c game.Coord) bool   { return e.mem.IsValidTarget(c) }
func (e *Engine) Mode() Mode                        { return e.mem.mode }

// Memory returns a copy of the engine's state.
func (e *Engine) Memory() Snapshot { return e.mem.snapshot() }

// Combined returns the blended score map, rows first.
func (e *Engine) Combined() [][]float64 { return e.mem.combined().Rows() }
