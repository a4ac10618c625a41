package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cory-johannsen/turnbattle/internal/game/combat"
	"github.com/cory-johannsen/turnbattle/internal/observability"
	"github.com/cory-johannsen/turnbattle/internal/sim"
)

// CreateBattleRequest starts a battle from a registered encounter.
type CreateBattleRequest struct {
	Encounter string `json:"encounter"`
	// Seed makes enemy targeting reproducible; zero draws from the crypto source.
	Seed uint64 `json:"seed"`
}

// ActionRequest is one party member's decision. Detail indexes the actor's
// skills or inventory; Target indexes the opposing roster for offensive
// actions and the party for supportive ones. All indices are zero-based
// positions in the snapshot's arrays; a missing target picks the default.
type ActionRequest struct {
	Action string `json:"action" binding:"required"`
	Detail int    `json:"detail"`
	Target *int   `json:"target"`
}

// Event is the wire form of a resolved action.
type Event struct {
	Actor          string `json:"actor"`
	Target         string `json:"target"`
	Action         string `json:"action"`
	Detail         string `json:"detail,omitempty"`
	Magnitude      int    `json:"magnitude"`
	Kind           string `json:"kind"`
	MPSpent        int    `json:"mp_spent,omitempty"`
	TargetDefeated bool   `json:"target_defeated,omitempty"`
}

// BattleResponse carries the actions resolved by a request and the battle
// state after them.
type BattleResponse struct {
	Battle combat.Snapshot `json:"battle"`
	Events []Event         `json:"events"`
}

func toEvents(results []combat.ActionResult) []Event {
	out := make([]Event, len(results))
	for i, r := range results {
		out[i] = Event{
			Actor:          r.ActorName,
			Target:         r.TargetName,
			Action:         r.Action.String(),
			Detail:         r.Detail,
			Magnitude:      r.Magnitude,
			Kind:           string(r.Kind),
			MPSpent:        r.MPSpent,
			TargetDefeated: r.TargetDefeated,
		}
	}
	return out
}

// CreateBattle spawns the encounter, starts the battle, and plays enemy turns
// up to the first party decision.
func (h *Handler) CreateBattle(c *gin.Context) {
	var req CreateBattleRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	if req.Encounter == "" {
		req.Encounter = h.opts.DefaultEncounter
	}

	party, enemies, err := h.registry.BuildEncounter(req.Encounter)
	if err != nil {
		h.fail(c, err)
		return
	}
	b := combat.NewBattle(party, enemies, nil,
		combat.WithLogger(h.opts.Logger),
		combat.WithSelector(sim.NewSelector(h.opts.EnemyTargeting, req.Seed, h.opts.Logger)),
	)
	rep := sim.NewReport(b, req.Encounter, h.opts.Now())
	if err := h.engine.Add(b); err != nil {
		h.fail(c, err)
		return
	}
	h.mu.Lock()
	h.reports[b.ID()] = rep
	h.mu.Unlock()

	observability.ForBattle(h.opts.Logger, b.ID(), req.Encounter).Info("battle created")

	var (
		resp BattleResponse
		done bool
	)
	err = h.engine.With(b.ID(), func(b *combat.Battle) error {
		if err := b.Start(); err != nil {
			return err
		}
		results, err := h.advance(c.Request.Context(), b, rep)
		done = h.conclude(c.Request.Context(), b, rep)
		resp = BattleResponse{Battle: b.Snapshot(), Events: toEvents(results)}
		return err
	})
	if done || stalled(err) {
		h.discard(b.ID())
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetBattle returns the live battle's snapshot.
func (h *Handler) GetBattle(c *gin.Context) {
	var snap combat.Snapshot
	err := h.engine.With(c.Param("id"), func(b *combat.Battle) error {
		snap = b.Snapshot()
		return nil
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// DeleteBattle abandons a battle. Abandoned battles are not journaled.
func (h *Handler) DeleteBattle(c *gin.Context) {
	id := c.Param("id")
	if !h.discard(id) {
		h.fail(c, combat.ErrBattleNotFound)
		return
	}
	h.opts.Logger.Info("battle abandoned", zap.String("battle_id", id))
	c.Status(http.StatusNoContent)
}

// stalled reports whether err leaves a battle unable to make progress.
func stalled(err error) bool {
	return errors.Is(err, sim.ErrActionLimit) || errors.Is(err, combat.ErrNoEnemyTarget)
}

// SubmitAction resolves the current party member's decision and the enemy
// turns that follow it. A rejected decision leaves the battle unchanged. A
// battle that concludes is discarded once its final snapshot is taken.
func (h *Handler) SubmitAction(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	action, err := combat.ParseActionType(req.Action)
	if err != nil {
		h.fail(c, err)
		return
	}
	dec := combat.Decision{Action: action, Detail: req.Detail, Target: req.Target}

	id := c.Param("id")
	rep := h.report(id)
	var (
		resp BattleResponse
		done bool
	)
	err = h.engine.With(id, func(b *combat.Battle) error {
		res, err := b.Submit(dec)
		if err != nil {
			return err
		}
		rep.Add(*res)
		results, err := h.advance(c.Request.Context(), b, rep)
		done = h.conclude(c.Request.Context(), b, rep)
		resp = BattleResponse{
			Battle: b.Snapshot(),
			Events: toEvents(append([]combat.ActionResult{*res}, results...)),
		}
		return err
	})
	if done || stalled(err) {
		h.discard(id)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListJournal returns recent finished battles, newest first.
func (h *Handler) ListJournal(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be 1-100"})
		return
	}
	rows, err := h.opts.History.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]gin.H, len(rows))
	for i, s := range rows {
		out[i] = gin.H{
			"id":          s.ID,
			"encounter":   s.Encounter,
			"outcome":     s.Outcome.String(),
			"actions":     s.Actions,
			"started_at":  s.StartedAt,
			"finished_at": s.FinishedAt,
		}
	}
	c.JSON(http.StatusOK, gin.H{"battles": out})
}

// GetJournal returns one finished battle with its full action log.
func (h *Handler) GetJournal(c *gin.Context) {
	rep, err := h.opts.History.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":          rep.BattleID,
		"encounter":   rep.Encounter,
		"outcome":     rep.Outcome.String(),
		"actions":     rep.Actions,
		"started_at":  rep.StartedAt,
		"finished_at": rep.FinishedAt,
		"events":      toEvents(rep.Events),
	})
}
