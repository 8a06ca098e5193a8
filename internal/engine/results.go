package engine

import (
	"math"

	"battleship-ai/internal/ai"
	"battleship-ai/internal/game"
)

type Phase string

const (
	Setup    Phase = "setup"
	Playing  Phase = "playing"
	Finished Phase = "finished"
)

type Player string

const (
	Nobody Player = ""
	Human  Player = "human"
	AI     Player = "ai"
)

// Outcome is carried by every operation result. Err is nil on success and
// a *RuleError otherwise.
type Outcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func ok(msg string) Outcome { return Outcome{Success: true, Message: msg} }

func fail(err *RuleError) Outcome {
	return Outcome{Message: err.Err.Error(), Err: err}
}

type SetupResult struct {
	Outcome
	FleetRoot string `json:"fleetRoot,omitempty"`
}

type AttackResult struct {
	Outcome
	Shooter  Player       `json:"shooter,omitempty"`
	Coord    game.Coord   `json:"coordinates"`
	Hit      bool         `json:"isHit"`
	Sunk     bool         `json:"isSunk"`
	SunkShip *game.Ship   `json:"sunkShip,omitempty"`
	Cells    []game.Coord `json:"sunkCells,omitempty"`
	GameOver bool         `json:"gameOver"`
	Winner   Player       `json:"winner,omitempty"`
}

// Stats counts shots per side. TurnCount grows every time the turn passes.
type Stats struct {
	HumanShots int `json:"humanShots"`
	HumanHits  int `json:"humanHits"`
	AIShots    int `json:"aiShots"`
	AIHits     int `json:"aiHits"`
	TurnCount  int `json:"turnCount"`
}

// Accuracy is the hit rate of each side in whole percent.
type Accuracy struct {
	Human int `json:"human"`
	AI    int `json:"ai"`
}

func percent(hits, shots int) int {
	if shots == 0 {
		return 0
	}
	return int(math.Round(float64(hits) / float64(shots) * 100))
}

// VisibleBoards is what a player may see: their own board in full and
// the AI board with unhit ships hidden.
type VisibleBoards struct {
	Human [][]game.Cell        `json:"humanBoard"`
	AI    [][]game.VisibleCell `json:"aiBoard"`
}

type GameState struct {
	Phase         Phase         `json:"gameMode"`
	CurrentPlayer Player        `json:"currentPlayer"`
	Started       bool          `json:"isGameStarted"`
	Finished      bool          `json:"isGameFinished"`
	Winner        Player        `json:"winner,omitempty"`
	Difficulty    ai.Difficulty `json:"difficulty"`
	GridSize      int           `json:"gridSize"`
	Stats         Stats         `json:"stats"`
	Accuracy      Accuracy      `json:"accuracy"`
	Boards        VisibleBoards `json:"boards"`
	HumanShips    []game.Ship   `json:"humanShips"`
	FleetRoot     string        `json:"fleetRoot,omitempty"`
	TurnCount     int           `json:"turnCount"`
}

// Reveal is the AI fleet disclosed after the match, with the salt that
// binds it to the published root.
type Reveal struct {
	Ships []game.Ship `json:"ships"`
	Salt  string      `json:"salt"`
	Root  string      `json:"root"`
}
