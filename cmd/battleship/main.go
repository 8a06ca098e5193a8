package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"battleship-ai/internal/ai"
	"battleship-ai/internal/app"
	"battleship-ai/internal/codec"
	"battleship-ai/internal/config"
	"battleship-ai/internal/game"
	"battleship-ai/internal/merkle"
	"battleship-ai/internal/server"
	"battleship-ai/internal/store"
	"battleship-ai/internal/zk"
)

var logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	switch os.Args[1] {
	case "serve":
		cmdServe()
	case "simulate":
		cmdSimulate()
	case "fleet":
		cmdFleet()
	case "keys":
		cmdKeys()
	case "verify":
		cmdVerify()
	case "history":
		cmdHistory()
	default:
		usage()
	}
}

func usage() {
	fmt.Println(`Battleship AI

Commands:
  serve    --config battleship.json [--addr :8080] [--difficulty hard] [--prove]
  simulate --difficulty hard --games 200 [--workers N] [--seed S] [--size 10]
  fleet    --out fleet.json [--size 10] [--seed S]
  keys     --keys ./keys
  verify   --vk ./keys/shot.vk --root ROOT_HEX --proof proof.json --row R --col C [--size 10]
  history  --db data/history.db [--limit 20]`)
}

// setupLogger switches the global logger to the configured level and format.
func setupLogger(level, format string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if format == "json" {
		logger = zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
		return
	}
	cw := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()),
	}
	logger = zerolog.New(cw).Level(lvl).With().Timestamp().Logger()
}

func cmdServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "battleship.json", "config file (missing file uses defaults)")
	addr := fs.String("addr", "", "listen address")
	difficulty := fs.String("difficulty", "", "default AI difficulty")
	dbPath := fs.String("db", "", "sqlite match history path")
	keys := fs.String("keys", "", "keys directory")
	prove := fs.Bool("prove", false, "attach a proof to every human shot")
	_ = fs.Parse(os.Args[2:])

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("config")
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "difficulty":
			cfg.Difficulty = *difficulty
		case "db":
			cfg.DBPath = *dbPath
		case "keys":
			cfg.KeysDir = *keys
		case "prove":
			cfg.ProveShots = *prove
		}
	})
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("config")
	}
	setupLogger(cfg.LogLevel, cfg.LogFormat)
	zk.SetLogger(logger.With().Str("component", "gnark").Logger())

	hub := server.NewHub(logger)
	opts := []app.Option{app.WithLogger(logger), app.WithPublisher(hub)}
	if cfg.DBPath != "" {
		db, err := store.Open(cfg.DBPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open history")
		}
		defer db.Close()
		opts = append(opts, app.WithHistory(db))
	}
	if cfg.ProveShots {
		if err := zk.EnsureShotKeys(cfg.KeysDir); err != nil {
			logger.Fatal().Err(err).Msg("shot keys")
		}
		p, err := zk.NewProver(cfg.KeysDir)
		if err != nil {
			logger.Fatal().Err(err).Msg("prover")
		}
		opts = append(opts, app.WithProver(p))
	}
	svc := app.NewService(cfg, opts...)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.New(svc, hub, logger, cfg.ProveShots).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("difficulty", cfg.Difficulty).Bool("proofs", cfg.ProveShots).Msg("serving")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server stopped")
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}
		logger.Info().Msg("bye")
	}
}

func cmdSimulate() {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	difficulty := fs.String("difficulty", "hard", "easy, medium or hard")
	games := fs.Int("games", 100, "number of games")
	workers := fs.Int("workers", runtime.NumCPU(), "parallel games")
	seed := fs.Int64("seed", 1, "seed of the first game")
	size := fs.Int("size", 10, "grid size")
	verbose := fs.Bool("v", false, "log every game")
	_ = fs.Parse(os.Args[2:])

	d, err := ai.ParseDifficulty(*difficulty)
	if err != nil {
		logger.Fatal().Err(err).Msg("simulate")
	}
	level := "info"
	if *verbose {
		level = "debug"
	}
	setupLogger(level, "console")

	start := time.Now()
	res, err := app.Simulate(context.Background(), app.SimConfig{
		GridSize:   *size,
		Difficulty: d,
		Games:      *games,
		Seed:       *seed,
		Workers:    *workers,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("simulate")
	}
	fmt.Printf("%s AI, %s games on %dx%d in %s\n", res.Difficulty, humanize.Comma(int64(res.Games)), *size, *size, time.Since(start).Round(time.Millisecond))
	fmt.Printf("  shots: min %d  median %d  mean %.1f  max %d\n", res.MinShots, res.Median, res.MeanShots, res.MaxShots)
	fmt.Printf("  hit rate: %.1f%%\n", res.HitRate*100)
}

func cmdFleet() {
	fs := flag.NewFlagSet("fleet", flag.ExitOnError)
	out := fs.String("out", "fleet.json", "output fleet file")
	size := fs.Int("size", 10, "grid size")
	seed := fs.Int64("seed", 0, "placement seed (0 = time based)")
	_ = fs.Parse(os.Args[2:])

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	ships, stats, err := game.GenerateFleet(rand.New(rand.NewSource(*seed)), *size, game.StandardFleet)
	if err != nil {
		logger.Fatal().Err(err).Msg("fleet")
	}
	if stats.Fallbacks > 0 || stats.Restarts > 0 {
		logger.Warn().Int("fallbacks", stats.Fallbacks).Int("restarts", stats.Restarts).Msg("fleet needed retries")
	}
	f := codec.FleetFile{GridSize: *size, Ships: ships}
	if err := f.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("fleet")
	}
	if err := codec.SaveJSON(*out, f); err != nil {
		logger.Fatal().Err(err).Msg("fleet")
	}
	fmt.Println("✓ wrote", *out)
}

func cmdKeys() {
	fs := flag.NewFlagSet("keys", flag.ExitOnError)
	dir := fs.String("keys", "./keys", "keys directory")
	_ = fs.Parse(os.Args[2:])

	zk.SetLogger(logger)
	if err := zk.EnsureShotKeys(*dir); err != nil {
		logger.Fatal().Err(err).Msg("keys")
	}
	fmt.Println("✓ verifying key at", zk.VerifyingKeyPath(*dir))
}

func cmdVerify() {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	vkPath := fs.String("vk", zk.VerifyingKeyPath("./keys"), "verifying key file")
	rootHex := fs.String("root", "", "fleet root, 0x prefixed")
	proofPath := fs.String("proof", "proof.json", "proof payload json")
	row := fs.Int("row", 0, "row [1..size]")
	col := fs.Int("col", 0, "col [1..size]")
	size := fs.Int("size", 10, "grid size")
	_ = fs.Parse(os.Args[2:])

	if *rootHex == "" {
		logger.Fatal().Msg("--root required")
	}
	root, err := merkle.ParseHex(*rootHex)
	if err != nil {
		logger.Fatal().Err(err).Msg("root")
	}
	c := game.Coord{Row: *row, Col: *col}
	if !c.In(*size) {
		logger.Fatal().Stringer("coord", c).Msg("row/col out of range")
	}

	var payload codec.ShotProofPayload
	if err := codec.LoadJSON(*proofPath, &payload); err != nil {
		logger.Fatal().Err(err).Msg("proof")
	}
	if payload.Public.Index != c.Index(*size) {
		logger.Fatal().Int("proofIndex", payload.Public.Index).Stringer("coord", c).Msg("proof is for another cell")
	}
	if payload.Public.Root == nil || payload.Public.Root.Cmp(root) != 0 {
		logger.Fatal().Msg("proof is for another fleet root")
	}
	vk, err := zk.ReadVerifyingKey(*vkPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("verifying key")
	}
	if err := zk.Verify(vk, payload.Proof, payload.Public); err != nil {
		logger.Fatal().Err(err).Msg("verify")
	}
	fmt.Println(map[uint8]string{0: "MISS", 1: "HIT"}[payload.Public.Hit])
}

func cmdHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	dbPath := fs.String("db", "data/history.db", "sqlite match history path")
	limit := fs.Int("limit", 20, "matches to list")
	_ = fs.Parse(os.Args[2:])

	db, err := store.Open(*dbPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open history")
	}
	defer db.Close()

	ctx := context.Background()
	matches, err := db.ListMatches(ctx, *limit)
	if err != nil {
		logger.Fatal().Err(err).Msg("history")
	}
	for _, m := range matches {
		fmt.Printf("%s  %-6s  winner %-5s  ai %d/%d  human %d/%d  %s, %s\n",
			m.ID[:8], m.Difficulty, m.Winner, m.AIHits, m.AIShots, m.HumanHits, m.HumanShots,
			humanize.Time(m.EndedAt), m.EndedAt.Sub(m.StartedAt).Round(time.Second))
	}
	sum, err := db.Summary(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("summary")
	}
	for _, s := range sum {
		fmt.Printf("%-6s  %s matches  human %d  ai %d  ai avg %.1f shots  ai hit rate %.1f%%\n",
			s.Difficulty, humanize.Comma(int64(s.Matches)), s.HumanWins, s.AIWins, s.AIAvgShots, s.AIHitRatePc)
	}
}
