// Package engine arbitrates a match between a human and the AI: setup,
// turn order, hit and sink detection and the win condition.
package engine

import (
	"fmt"
	"math/big"

	"github.com/rs/zerolog"

	"battleship-ai/internal/ai"
	"battleship-ai/internal/game"
	"battleship-ai/internal/merkle"
)

const fleetAttempts = 3

// Opponent is the AI side of a match as the machine sees it.
type Opponent interface {
	NextMove() (game.Coord, bool)
	NotifyShotOutcome(c game.Coord, hit bool, sunk []game.Coord)
	NotifyOwnShipLost(cells []game.Coord)
	GenerateShipPlacement() ([]game.Ship, error)
	SetDifficulty(d ai.Difficulty) error
	Reset()
}

// Machine owns both boards. It is not safe for concurrent use.
type Machine struct {
	size       int
	fleet      game.FleetSpec
	opp        Opponent
	difficulty ai.Difficulty
	log        zerolog.Logger
	newSalt    func() (*big.Int, error)

	phase      Phase
	current    Player
	winner     Player
	started    bool
	human      *game.Board
	enemy      *game.Board
	humanShips []game.Ship
	stats      Stats
	commitment *merkle.Commitment
}

type Option func(*Machine)

func WithLogger(l zerolog.Logger) Option { return func(m *Machine) { m.log = l } }

func WithFleet(f game.FleetSpec) Option { return func(m *Machine) { m.fleet = f } }

// WithDifficulty records the difficulty the opponent was created with.
func WithDifficulty(d ai.Difficulty) Option { return func(m *Machine) { m.difficulty = d } }

// WithSaltSource replaces the random salt used for the fleet commitment.
func WithSaltSource(fn func() (*big.Int, error)) Option { return func(m *Machine) { m.newSalt = fn } }

func New(size int, opp Opponent, opts ...Option) *Machine {
	m := &Machine{
		size:       size,
		fleet:      game.StandardFleet,
		opp:        opp,
		difficulty: ai.Medium,
		log:        zerolog.Nop(),
		newSalt:    merkle.NewSalt,
	}
	for _, o := range opts {
		o(m)
	}
	m.StartGame()
	return m
}

// StartGame discards the current match and waits for the human fleet.
func (m *Machine) StartGame() Outcome {
	m.phase = Setup
	m.current = Human
	m.winner = Nobody
	m.started = false
	m.human = game.NewBoard(m.size)
	m.enemy = game.NewBoard(m.size)
	m.humanShips = nil
	m.stats = Stats{}
	m.commitment = nil
	m.opp.Reset()
	m.log.Debug().Int("size", m.size).Msg("game reset")
	return ok("game created, place your ships")
}

func (m *Machine) Reset() Outcome { return m.StartGame() }

// SetHumanShips validates the human fleet, has the opponent place its own
// and starts play with the human to move.
func (m *Machine) SetHumanShips(ships []game.Ship) SetupResult {
	if m.phase != Setup {
		return SetupResult{Outcome: fail(rule(KindSequencing, ErrNotSetup))}
	}
	if err := game.ValidateFleet(m.size, ships, m.fleet); err != nil {
		return SetupResult{Outcome: fail(rule(KindValidation, fmt.Errorf("%w: %w", ErrInvalidFleet, err)))}
	}
	human := game.NewBoard(m.size)
	if err := human.Place(ships); err != nil {
		return SetupResult{Outcome: fail(rule(KindValidation, fmt.Errorf("%w: %w", ErrInvalidFleet, err)))}
	}

	enemy, err := m.placeEnemyFleet()
	if err != nil {
		m.log.Warn().Err(err).Msg("ai fleet placement failed")
		return SetupResult{Outcome: fail(rule(KindResource, err))}
	}

	var commitment *merkle.Commitment
	if m.size*m.size <= merkle.LeafCount {
		salt, err := m.newSalt()
		if err != nil {
			return SetupResult{Outcome: fail(rule(KindResource, err))}
		}
		if commitment, err = merkle.Commit(enemy.Occupancy(), salt); err != nil {
			return SetupResult{Outcome: fail(rule(KindResource, err))}
		}
	}

	m.human = human
	m.enemy = enemy
	m.humanShips = append([]game.Ship(nil), ships...)
	m.commitment = commitment
	m.phase = Playing
	m.current = Human
	m.started = true

	res := SetupResult{Outcome: ok("game started, your turn")}
	if commitment != nil {
		res.FleetRoot = merkle.Hex(commitment.Root)
	}
	m.log.Info().Str("difficulty", string(m.difficulty)).Str("fleetRoot", res.FleetRoot).Msg("game started")
	return res
}

func (m *Machine) placeEnemyFleet() (*game.Board, error) {
	var lastErr error
	for attempt := 1; attempt <= fleetAttempts; attempt++ {
		ships, err := m.opp.GenerateShipPlacement()
		if err == nil {
			err = game.ValidateFleet(m.size, ships, m.fleet)
		}
		if err == nil {
			b := game.NewBoard(m.size)
			if err = b.Place(ships); err == nil {
				return b, nil
			}
		}
		lastErr = err
		m.log.Warn().Err(err).Int("attempt", attempt).Msg("ai fleet rejected")
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrFleetGeneration, fleetAttempts, lastErr)
}

// HumanAttack fires at the AI board. A hit keeps the turn.
func (m *Machine) HumanAttack(row, col int) AttackResult {
	c := game.Coord{Row: row, Col: col}
	if err := m.checkShot(Human, m.enemy, c); err != nil {
		return AttackResult{Outcome: fail(err), Shooter: Human, Coord: c}
	}
	shot, _ := m.enemy.Fire(c)
	m.stats.HumanShots++

	res := AttackResult{Shooter: Human, Coord: c, Hit: shot.Hit}
	if !shot.Hit {
		m.pass(AI)
		res.Outcome = ok("miss, ai to move")
		return res
	}
	m.stats.HumanHits++
	res.Outcome = ok("hit")
	if shot.Sunk {
		res.Sunk, res.SunkShip, res.Cells = true, shot.SunkShip, shot.SunkCells
		res.Message = fmt.Sprintf("you sank the %s", shot.SunkShip.Name)
		m.opp.NotifyOwnShipLost(shot.SunkCells)
	}
	if m.CheckWinCondition(m.enemy) {
		m.finish(Human)
		res.GameOver, res.Winner = true, Human
		res.Message = "you win"
	}
	return res
}

// AITurn asks the opponent for a move and applies it to the human board.
func (m *Machine) AITurn() AttackResult {
	if err := m.checkTurn(AI); err != nil {
		return AttackResult{Outcome: fail(err), Shooter: AI}
	}
	c, found := m.opp.NextMove()
	if !found {
		return AttackResult{Outcome: fail(rule(KindResource, ErrBoardExhausted)), Shooter: AI}
	}
	if err := m.checkShot(AI, m.human, c); err != nil {
		m.log.Error().Err(err).Stringer("move", c).Msg("opponent chose an illegal move")
		return AttackResult{Outcome: fail(err), Shooter: AI, Coord: c}
	}
	shot, _ := m.human.Fire(c)
	m.stats.AIShots++
	if shot.Hit {
		m.stats.AIHits++
	}
	m.opp.NotifyShotOutcome(c, shot.Hit, shot.SunkCells)

	res := AttackResult{Shooter: AI, Coord: c, Hit: shot.Hit}
	if !shot.Hit {
		m.pass(Human)
		res.Outcome = ok("ai missed, your turn")
		return res
	}
	res.Outcome = ok("ai hit")
	if shot.Sunk {
		res.Sunk, res.SunkShip, res.Cells = true, shot.SunkShip, shot.SunkCells
		res.Message = fmt.Sprintf("ai sank your %s", shot.SunkShip.Name)
	}
	if m.CheckWinCondition(m.human) {
		m.finish(AI)
		res.GameOver, res.Winner = true, AI
		res.Message = "ai wins"
	}
	return res
}

func (m *Machine) checkTurn(p Player) *RuleError {
	if m.phase != Playing {
		return rule(KindSequencing, ErrNotPlaying)
	}
	if m.current != p {
		return rule(KindSequencing, ErrOutOfTurn)
	}
	return nil
}

func (m *Machine) checkShot(p Player, target *game.Board, c game.Coord) *RuleError {
	if err := m.checkTurn(p); err != nil {
		return err
	}
	if !c.In(m.size) {
		return rule(KindValidation, fmt.Errorf("%w: %s", ErrOutOfBounds, c))
	}
	if target.Cell(c).Resolved() {
		return rule(KindRedundant, fmt.Errorf("%w: %s", ErrAlreadyResolved, c))
	}
	return nil
}

func (m *Machine) pass(to Player) {
	m.current = to
	m.stats.TurnCount++
}

func (m *Machine) finish(winner Player) {
	m.phase = Finished
	m.winner = winner
	m.log.Info().Str("winner", string(winner)).Int("turns", m.stats.TurnCount).Msg("game finished")
}

// CheckWinCondition reports whether every ship cell on b is hit.
func (m *Machine) CheckWinCondition(b *game.Board) bool { return b.AllSunk() }

func (m *Machine) SetAIDifficulty(d ai.Difficulty) Outcome {
	if err := m.opp.SetDifficulty(d); err != nil {
		return fail(rule(KindValidation, err))
	}
	m.difficulty = d
	return ok("difficulty set to " + string(d))
}

func (m *Machine) Accuracy() Accuracy {
	return Accuracy{
		Human: percent(m.stats.HumanHits, m.stats.HumanShots),
		AI:    percent(m.stats.AIHits, m.stats.AIShots),
	}
}

func (m *Machine) VisibleBoards() VisibleBoards {
	return VisibleBoards{Human: m.human.Rows(), AI: m.enemy.Redacted()}
}

func (m *Machine) GameState() GameState {
	s := GameState{
		Phase:         m.phase,
		CurrentPlayer: m.current,
		Started:       m.started,
		Finished:      m.phase == Finished,
		Winner:        m.winner,
		Difficulty:    m.difficulty,
		GridSize:      m.size,
		Stats:         m.stats,
		Accuracy:      m.Accuracy(),
		Boards:        m.VisibleBoards(),
		HumanShips:    append([]game.Ship(nil), m.humanShips...),
		TurnCount:     m.stats.TurnCount,
	}
	if m.commitment != nil {
		s.FleetRoot = merkle.Hex(m.commitment.Root)
	}
	return s
}

func (m *Machine) Phase() Phase              { return m.phase }
func (m *Machine) CurrentPlayer() Player     { return m.current }
func (m *Machine) Winner() Player            { return m.winner }
func (m *Machine) Size() int                 { return m.size }
func (m *Machine) Stats() Stats              { return m.stats }
func (m *Machine) Difficulty() ai.Difficulty { return m.difficulty }

// RevealFleet discloses the AI fleet once the match is over.
func (m *Machine) RevealFleet() (Reveal, error) {
	if m.phase != Finished {
		return Reveal{}, rule(KindSequencing, ErrNotFinished)
	}
	if m.commitment == nil {
		return Reveal{}, rule(KindResource, ErrNoCommitment)
	}
	return Reveal{
		Ships: m.enemy.Ships(),
		Salt:  merkle.Hex(m.commitment.Salt),
		Root:  merkle.Hex(m.commitment.Root),
	}, nil
}

// Witness is the private input for proving the outcome of one shot
// against the fleet root.
type Witness struct {
	Opening merkle.Opening
	Salt    *big.Int
	Root    *big.Int
}

// ShotWitness opens the commitment at a cell of the AI board that has
// already been attacked.
func (m *Machine) ShotWitness(c game.Coord) (Witness, error) {
	if m.commitment == nil {
		return Witness{}, rule(KindResource, ErrNoCommitment)
	}
	if !c.In(m.size) {
		return Witness{}, rule(KindValidation, fmt.Errorf("%w: %s", ErrOutOfBounds, c))
	}
	cell := m.enemy.Cell(c)
	if !cell.Resolved() {
		return Witness{}, rule(KindSequencing, fmt.Errorf("cell %s has not been attacked", c))
	}
	var bit uint8
	if cell.HasShip {
		bit = 1
	}
	op, err := m.commitment.Open(c.Index(m.size), bit)
	if err != nil {
		return Witness{}, err
	}
	return Witness{Opening: op, Salt: new(big.Int).Set(m.commitment.Salt), Root: new(big.Int).Set(m.commitment.Root)}, nil
}
