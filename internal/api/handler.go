// Package api exposes live battles over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cory-johannsen/turnbattle/internal/game/combat"
	"github.com/cory-johannsen/turnbattle/internal/game/content"
	"github.com/cory-johannsen/turnbattle/internal/observability"
	"github.com/cory-johannsen/turnbattle/internal/sim"
	"github.com/cory-johannsen/turnbattle/internal/storage/postgres"
)

// History reads finished battles back from the journal.
type History interface {
	ListRecent(ctx context.Context, limit int) ([]postgres.BattleSummary, error)
	Get(ctx context.Context, id string) (*sim.Report, error)
}

// Options configures a Handler.
type Options struct {
	DefaultEncounter string
	EnemyTargeting   string
	// MaxActions caps how many turns a battle may take in total.
	MaxActions int
	Journal    sim.Journal
	History    History
	// Ping, when set, is probed by /health.
	Ping   func(ctx context.Context) error
	Logger *zap.Logger
	Now    func() time.Time
}

// Handler serves the battle API. Live battles are held in a combat.Engine;
// each one has a report collecting its resolved actions.
type Handler struct {
	registry *content.Registry
	engine   *combat.Engine
	opts     Options

	mu      sync.Mutex
	reports map[string]*sim.Report
}

// NewHandler creates a Handler.
//
// Precondition: registry and engine must be non-nil.
func NewHandler(registry *content.Registry, engine *combat.Engine, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxActions <= 0 {
		opts.MaxActions = 500
	}
	return &Handler{
		registry: registry,
		engine:   engine,
		opts:     opts,
		reports:  make(map[string]*sim.Report),
	}
}

// Register mounts the handler's routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	battles := r.Group("/api/battles")
	{
		battles.POST("", h.CreateBattle)
		battles.GET("/:id", h.GetBattle)
		battles.DELETE("/:id", h.DeleteBattle)
		battles.POST("/:id/actions", h.SubmitAction)
	}
	r.GET("/api/encounters", h.ListEncounters)
	if h.opts.History != nil {
		r.GET("/api/journal", h.ListJournal)
		r.GET("/api/journal/:id", h.GetJournal)
	}
}

// NewRouter returns a gin engine with recovery, request logging, and the
// handler's routes.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.opts.Logger))
	h.Register(r)
	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// Health reports liveness, the number of live battles, and database
// reachability when a Ping probe is configured.
func (h *Handler) Health(c *gin.Context) {
	body := gin.H{"status": "ok", "battles": h.engine.Len()}
	if h.opts.Ping != nil {
		if err := h.opts.Ping(c.Request.Context()); err != nil {
			body["status"] = "degraded"
			body["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["database"] = "ok"
	}
	c.JSON(http.StatusOK, body)
}

// ListEncounters returns the registered encounter IDs.
func (h *Handler) ListEncounters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"encounters": h.registry.EncounterIDs()})
}

// errorStatus maps domain errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case combat.Recoverable(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, combat.ErrBattleNotFound),
		errors.Is(err, postgres.ErrBattleNotFound):
		return http.StatusNotFound
	case errors.Is(err, combat.ErrBattleConcluded),
		errors.Is(err, combat.ErrNotPlayerTurn),
		errors.Is(err, combat.ErrBattleNotStarted):
		return http.StatusConflict
	case errors.Is(err, content.ErrUnknownEncounter),
		errors.Is(err, content.ErrUnknownTemplate):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.opts.Logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *Handler) report(id string) *sim.Report {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reports[id]
}

// advance steps enemy turns, and skips defeated actors, until a party member
// must decide or the battle ends. It must run under the battle's engine lock.
func (h *Handler) advance(ctx context.Context, b *combat.Battle, rep *sim.Report) ([]combat.ActionResult, error) {
	var out []combat.ActionResult
	for b.State() == combat.StateInProgress && !b.NeedsDecision() {
		if b.ActionCount() >= h.opts.MaxActions {
			return out, sim.ErrActionLimit
		}
		res, err := b.Step(ctx)
		if err != nil {
			return out, err
		}
		if res != nil {
			rep.Add(*res)
			out = append(out, *res)
		}
	}
	return out, nil
}

// discard removes a battle and its report, reporting whether it was live.
func (h *Handler) discard(id string) bool {
	ok := h.engine.End(id)
	h.mu.Lock()
	delete(h.reports, id)
	h.mu.Unlock()
	return ok
}

// conclude finalizes and journals a battle that has just ended, and reports
// whether it did so.
func (h *Handler) conclude(ctx context.Context, b *combat.Battle, rep *sim.Report) bool {
	if b.State() != combat.StateConcluded || !rep.FinishedAt.IsZero() {
		return false
	}
	rep.Finish(b, h.opts.Now())
	logger := observability.ForBattle(h.opts.Logger, b.ID(), rep.Encounter)
	logger.Info("battle concluded",
		zap.Stringer("outcome", rep.Outcome),
		zap.Int("actions", rep.Actions),
	)
	if h.opts.Journal == nil {
		return true
	}
	if err := h.opts.Journal.Save(ctx, rep); err != nil {
		logger.Warn("journal save failed", zap.Error(err))
	}
	return true
}
