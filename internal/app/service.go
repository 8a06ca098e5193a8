// Package app runs matches for the server and the CLI: one session per
// match, AI pacing, optional shot proofs and match history.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"battleship-ai/internal/ai"
	"battleship-ai/internal/codec"
	"battleship-ai/internal/config"
	"battleship-ai/internal/engine"
	"battleship-ai/internal/game"
	"battleship-ai/internal/store"
	"battleship-ai/internal/zk"
)

var (
	ErrNotFound        = errors.New("game not found")
	ErrBusy            = errors.New("game is busy with another turn")
	ErrTooManySessions = errors.New("too many active games")
	ErrNoHistory       = errors.New("match history is disabled")
	ErrProofsDisabled  = errors.New("shot proofs are disabled")
)

// Event is pushed to subscribers whenever a game changes.
type Event struct {
	Type   string                  `json:"type"` // created, setup, attack, finished, difficulty, deleted
	GameID string                  `json:"gameId"`
	Attack *engine.AttackResult    `json:"attack,omitempty"`
	Proof  *codec.ShotProofPayload `json:"proof,omitempty"`
	State  *engine.GameState       `json:"state,omitempty"`
}

type Publisher interface {
	Publish(ev Event)
}

// History is the part of the match store the service writes to.
type History interface {
	SaveMatch(ctx context.Context, m store.Match) error
	GetMatch(ctx context.Context, id string) (store.Match, error)
	ListMatches(ctx context.Context, limit int) ([]store.Match, error)
	Summary(ctx context.Context) ([]store.Summary, error)
}

// TurnReport is the result of one human action plus any AI replies.
type TurnReport struct {
	Human      *engine.AttackResult    `json:"human,omitempty"`
	HumanProof *codec.ShotProofPayload `json:"humanProof,omitempty"`
	AI         []engine.AttackResult   `json:"ai,omitempty"`
	State      engine.GameState        `json:"state"`
}

// session is one game slot. Each match played in it, including those
// after a restart, is recorded under its own matchID.
type session struct {
	id      string
	matchID string
	mu      sync.Mutex
	machine *engine.Machine
	started time.Time
	saved   bool
}

type Service struct {
	cfg     config.Config
	log     zerolog.Logger
	history History
	prover  *zk.Prover
	pub     Publisher
	now     func() time.Time
	seq     atomic.Int64

	mu       sync.RWMutex
	sessions map[string]*session
}

type Option func(*Service)

func WithLogger(l zerolog.Logger) Option    { return func(s *Service) { s.log = l } }
func WithHistory(h History) Option          { return func(s *Service) { s.history = h } }
func WithProver(p *zk.Prover) Option        { return func(s *Service) { s.prover = p } }
func WithPublisher(p Publisher) Option      { return func(s *Service) { s.pub = p } }
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(cfg config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		log:      zerolog.Nop(),
		now:      time.Now,
		sessions: make(map[string]*session),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewGame creates a match in setup. An empty difficulty uses the configured one.
func (s *Service) NewGame(ctx context.Context, difficulty string) (string, engine.GameState, error) {
	d := s.cfg.AIDifficulty()
	if difficulty != "" {
		parsed, err := ai.ParseDifficulty(difficulty)
		if err != nil {
			return "", engine.GameState{}, err
		}
		d = parsed
	}

	seed := s.cfg.Seed + s.seq.Add(1)
	if s.cfg.Seed == 0 {
		seed = s.now().UnixNano() + s.seq.Load()
	}
	id := uuid.NewString()
	log := s.log.With().Str("game", id).Logger()
	opp := ai.New(s.cfg.GridSize, ai.WithSeed(seed), ai.WithDifficulty(d), ai.WithLogger(log))
	sess := &session{
		id:      id,
		matchID: uuid.NewString(),
		machine: engine.New(s.cfg.GridSize, opp, engine.WithDifficulty(d), engine.WithLogger(log)),
		started: s.now(),
	}

	s.mu.Lock()
	if len(s.sessions) >= s.cfg.MaxSessions {
		s.mu.Unlock()
		return "", engine.GameState{}, ErrTooManySessions
	}
	s.sessions[id] = sess
	s.mu.Unlock()

	st := sess.machine.GameState()
	log.Info().Str("difficulty", string(d)).Int64("seed", seed).Msg("game created")
	s.publish(Event{Type: "created", GameID: id, State: &st})
	return id, st, nil
}

func (s *Service) get(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess, nil
}

// acquire locks the session for a mutating call. A call that finds another
// turn in flight fails with ErrBusy instead of queueing behind it.
func (s *Service) acquire(id string) (*session, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if !sess.mu.TryLock() {
		return nil, ErrBusy
	}
	return sess, nil
}

func (s *Service) State(id string) (engine.GameState, error) {
	sess, err := s.get(id)
	if err != nil {
		return engine.GameState{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.machine.GameState(), nil
}

func (s *Service) PlaceShips(ctx context.Context, id string, ships []game.Ship) (engine.SetupResult, error) {
	sess, err := s.acquire(id)
	if err != nil {
		return engine.SetupResult{}, err
	}
	defer sess.mu.Unlock()

	res := sess.machine.SetHumanShips(ships)
	if res.Success {
		st := sess.machine.GameState()
		s.publish(Event{Type: "setup", GameID: id, State: &st})
	}
	return res, nil
}

// Attack fires the human shot. With auto AI turns enabled the AI then plays
// until the human is to move again or the match ends.
func (s *Service) Attack(ctx context.Context, id string, row, col int) (TurnReport, error) {
	sess, err := s.acquire(id)
	if err != nil {
		return TurnReport{}, err
	}
	defer sess.mu.Unlock()

	res := sess.machine.HumanAttack(row, col)
	rep := TurnReport{Human: &res}
	if res.Success {
		rep.HumanProof = s.prove(sess, res.Coord)
		s.publish(Event{Type: "attack", GameID: id, Attack: &res, Proof: rep.HumanProof})
		if s.cfg.AutoAITurns {
			rep.AI, err = s.playAI(ctx, sess)
		}
	}
	s.afterTurn(ctx, sess)
	rep.State = sess.machine.GameState()
	return rep, err
}

// AITurn plays the AI side when auto AI turns are disabled.
func (s *Service) AITurn(ctx context.Context, id string) (TurnReport, error) {
	sess, err := s.acquire(id)
	if err != nil {
		return TurnReport{}, err
	}
	defer sess.mu.Unlock()

	var rep TurnReport
	if sess.machine.CurrentPlayer() != engine.AI || sess.machine.Phase() != engine.Playing {
		res := sess.machine.AITurn()
		rep.AI = []engine.AttackResult{res}
	} else {
		rep.AI, err = s.playAI(ctx, sess)
	}
	s.afterTurn(ctx, sess)
	rep.State = sess.machine.GameState()
	return rep, err
}

func (s *Service) playAI(ctx context.Context, sess *session) ([]engine.AttackResult, error) {
	var out []engine.AttackResult
	for sess.machine.Phase() == engine.Playing && sess.machine.CurrentPlayer() == engine.AI {
		if err := s.think(ctx); err != nil {
			return out, err
		}
		res := sess.machine.AITurn()
		out = append(out, res)
		if !res.Success {
			s.log.Error().Str("game", sess.id).Err(res.Err).Msg("ai turn rejected")
			break
		}
		s.publish(Event{Type: "attack", GameID: sess.id, Attack: &res})
	}
	return out, nil
}

// think is the pacing pause before an AI move.
func (s *Service) think(ctx context.Context) error {
	d := s.cfg.ThinkDelay()
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Service) prove(sess *session, c game.Coord) *codec.ShotProofPayload {
	if s.prover == nil || !s.cfg.ProveShots {
		return nil
	}
	w, err := sess.machine.ShotWitness(c)
	if err != nil {
		s.log.Warn().Str("game", sess.id).Err(err).Msg("no witness for shot")
		return nil
	}
	proof, pub, err := s.prover.Prove(zk.Witness{
		Index: w.Opening.Index,
		Bit:   w.Opening.Bit,
		Path:  w.Opening.Path,
		Salt:  w.Salt,
		Root:  w.Root,
	})
	if err != nil {
		s.log.Error().Str("game", sess.id).Err(err).Msg("shot proof failed")
		return nil
	}
	return &codec.ShotProofPayload{Proof: proof, Public: pub, Coord: c}
}

// afterTurn records a finished match once.
func (s *Service) afterTurn(ctx context.Context, sess *session) {
	m := sess.machine
	if m.Phase() != engine.Finished || sess.saved {
		return
	}
	sess.saved = true
	st := m.GameState()
	s.publish(Event{Type: "finished", GameID: sess.id, State: &st})
	if s.history == nil {
		return
	}
	rec := store.Match{
		ID:         sess.matchID,
		GameID:     sess.id,
		StartedAt:  sess.started,
		EndedAt:    s.now(),
		GridSize:   st.GridSize,
		Difficulty: string(st.Difficulty),
		Winner:     string(st.Winner),
		HumanShots: st.Stats.HumanShots,
		HumanHits:  st.Stats.HumanHits,
		AIShots:    st.Stats.AIShots,
		AIHits:     st.Stats.AIHits,
		Turns:      st.TurnCount,
		FleetRoot:  st.FleetRoot,
	}
	if err := s.history.SaveMatch(context.WithoutCancel(ctx), rec); err != nil {
		s.log.Error().Str("game", sess.id).Err(err).Msg("saving match failed")
	}
}

func (s *Service) SetDifficulty(id string, d ai.Difficulty) (engine.Outcome, error) {
	sess, err := s.acquire(id)
	if err != nil {
		return engine.Outcome{}, err
	}
	defer sess.mu.Unlock()
	out := sess.machine.SetAIDifficulty(d)
	if out.Success {
		st := sess.machine.GameState()
		s.publish(Event{Type: "difficulty", GameID: id, State: &st})
	}
	return out, nil
}

// Restart puts an existing game back into setup.
func (s *Service) Restart(id string) (engine.GameState, error) {
	sess, err := s.acquire(id)
	if err != nil {
		return engine.GameState{}, err
	}
	defer sess.mu.Unlock()
	sess.machine.Reset()
	sess.matchID = uuid.NewString()
	sess.started = s.now()
	sess.saved = false
	st := sess.machine.GameState()
	s.publish(Event{Type: "created", GameID: id, State: &st})
	return st, nil
}

func (s *Service) Reveal(id string) (engine.Reveal, error) {
	sess, err := s.get(id)
	if err != nil {
		return engine.Reveal{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.machine.RevealFleet()
}

// Delete abandons a game.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.publish(Event{Type: "deleted", GameID: id})
	return nil
}

func (s *Service) Active() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Service) History(ctx context.Context, limit int) ([]store.Match, error) {
	if s.history == nil {
		return nil, ErrNoHistory
	}
	return s.history.ListMatches(ctx, limit)
}

// Match looks up one finished match by its match id.
func (s *Service) Match(ctx context.Context, matchID string) (store.Match, error) {
	if s.history == nil {
		return store.Match{}, ErrNoHistory
	}
	return s.history.GetMatch(ctx, matchID)
}

func (s *Service) Summary(ctx context.Context) ([]store.Summary, error) {
	if s.history == nil {
		return nil, ErrNoHistory
	}
	return s.history.Summary(ctx)
}

// WriteVerifyingKey exports the key clients use to check shot proofs.
func (s *Service) WriteVerifyingKey(w io.Writer) error {
	if s.prover == nil {
		return ErrProofsDisabled
	}
	return s.prover.WriteVerifyingKey(w)
}

func (s *Service) publish(ev Event) {
	if s.pub != nil {
		s.pub.Publish(ev)
	}
}
