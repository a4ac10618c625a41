// Package main provides the battle simulator binary: it loads an encounter
// from the content tree and plays it to the end in the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/turnbattle/internal/config"
	"github.com/cory-johannsen/turnbattle/internal/game/combat"
	"github.com/cory-johannsen/turnbattle/internal/game/content"
	"github.com/cory-johannsen/turnbattle/internal/game/policy"
	"github.com/cory-johannsen/turnbattle/internal/observability"
	"github.com/cory-johannsen/turnbattle/internal/render"
	"github.com/cory-johannsen/turnbattle/internal/scripting"
	"github.com/cory-johannsen/turnbattle/internal/sim"
	"github.com/cory-johannsen/turnbattle/internal/storage/postgres"
)

type options struct {
	configPath string
	encounter  string
	policy     string
	script     string
	seed       uint64
	list       bool
	noColor    bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("battlesim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "path to configuration file; empty uses built-in defaults")
	fs.StringVar(&o.encounter, "encounter", "", "encounter ID (overrides battle.encounter)")
	fs.StringVar(&o.policy, "policy", "", "player policy: console, auto, or script (overrides battle.player_policy)")
	fs.StringVar(&o.script, "script", "", "Lua policy file (overrides battle.script_path)")
	fs.Uint64Var(&o.seed, "seed", 0, "enemy targeting seed (overrides battle.seed)")
	fs.BoolVar(&o.list, "list", false, "list encounters and exit")
	fs.BoolVar(&o.noColor, "no-color", false, "disable ANSI colour")
	return o, fs.Parse(args)
}

func loadConfig(o options) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.Load(o.configPath)
	} else {
		cfg, err = config.Default()
	}
	if err != nil {
		return cfg, err
	}
	if o.encounter != "" {
		cfg.Battle.Encounter = o.encounter
	}
	if o.policy != "" {
		cfg.Battle.PlayerPolicy = o.policy
	}
	if o.script != "" {
		cfg.Battle.ScriptPath = o.script
	}
	if o.seed != 0 {
		cfg.Battle.Seed = o.seed
	}
	return cfg, cfg.Validate()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	o, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	cfg, err := loadConfig(o)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	var journal sim.Journal
	if cfg.Journal.Enabled {
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		if err := pool.CheckSchema(ctx); err != nil {
			logger.Fatal("journal unavailable", zap.Error(err))
		}
		journal = postgres.NewJournalRepository(pool.DB())
	}

	if err := run(ctx, cfg, o, os.Stdin, os.Stdout, journal, logger); err != nil {
		logger.Fatal("battle failed", zap.Error(err))
	}
}

// run plays one battle and prints it to out.
func run(ctx context.Context, cfg config.Config, o options, in io.Reader, out io.Writer, journal sim.Journal, logger *zap.Logger) error {
	start := time.Now()
	reg, err := content.Load(cfg.Battle.ContentDir)
	if err != nil {
		return fmt.Errorf("loading content: %w", err)
	}
	logger.Info("content loaded",
		zap.String("dir", cfg.Battle.ContentDir),
		zap.Duration("elapsed", time.Since(start)),
	)
	if o.list {
		for _, id := range reg.EncounterIDs() {
			e, _ := reg.Encounter(id)
			if _, err := fmt.Fprintf(out, "%-16s %s\n", id, e.Name); err != nil {
				return fmt.Errorf("writing encounter list: %w", err)
			}
		}
		return nil
	}

	party, enemies, err := reg.BuildEncounter(cfg.Battle.Encounter)
	if err != nil {
		return err
	}
	r := render.Renderer{Color: !o.noColor}

	var battle *combat.Battle
	players, closePolicy, err := newPolicy(cfg.Battle, r, in, out, logger)
	if err != nil {
		return err
	}
	defer closePolicy()
	if cfg.Battle.PlayerPolicy == "console" {
		inner := players
		players = combat.DecisionFunc(func(ctx context.Context, req combat.DecisionRequest) (combat.Decision, error) {
			if _, err := io.WriteString(out, r.Status(battle.Snapshot())); err != nil {
				return combat.Decision{}, fmt.Errorf("writing status: %w", err)
			}
			return inner.Decide(ctx, req)
		})
	}

	battle = combat.NewBattle(party, enemies, players,
		combat.WithLogger(logger),
		combat.WithSelector(sim.NewSelector(cfg.Battle.EnemyTargeting, cfg.Battle.Seed, logger)),
	)
	blog := observability.ForBattle(logger, battle.ID(), cfg.Battle.Encounter)

	opts := []sim.Option{
		sim.WithLogger(blog),
		sim.WithObserver(func(res combat.ActionResult) {
			if _, err := io.WriteString(out, r.Result(res)); err != nil {
				blog.Warn("writing action result", zap.Error(err))
			}
		}),
	}
	if journal != nil {
		opts = append(opts, sim.WithJournal(journal))
	}
	runner := sim.NewRunner(cfg.Battle.MaxActions, cfg.Battle.MaxDecisionAttempts, opts...)

	if err := battle.Start(); err != nil {
		return err
	}
	e, _ := reg.Encounter(cfg.Battle.Encounter)
	if _, err := fmt.Fprintf(out, "== %s ==\n%s\n%s", e.Name, e.Description, r.TurnOrder(battle.Snapshot())); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	report, err := runner.Run(ctx, battle, cfg.Battle.Encounter)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(out, "%s%s%d actions\n", r.Status(battle.Snapshot()), r.Outcome(report.Outcome), report.Actions); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	return nil
}

// newPolicy builds the party's decision source and a release func for it.
func newPolicy(b config.BattleConfig, r render.Renderer, in io.Reader, out io.Writer, logger *zap.Logger) (combat.DecisionSource, func(), error) {
	switch b.PlayerPolicy {
	case "auto":
		return policy.NewAuto(), func() {}, nil
	case "script":
		p, err := scripting.LoadPolicy(filepath.Clean(b.ScriptPath), b.ScriptInstructionLimit, logger)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	default:
		return policy.NewConsole(in, out, r), func() {}, nil
	}
}
