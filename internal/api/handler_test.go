package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/turnbattle/internal/api"
	"github.com/cory-johannsen/turnbattle/internal/game/combat"
	"github.com/cory-johannsen/turnbattle/internal/game/content"
	"github.com/cory-johannsen/turnbattle/internal/sim"
	"github.com/cory-johannsen/turnbattle/internal/storage/postgres"
)

const contentDir = "../../content"

func init() {
	gin.SetMode(gin.TestMode)
}

type memJournal struct {
	mu    sync.Mutex
	saved []*sim.Report
}

func (j *memJournal) Save(_ context.Context, r *sim.Report) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.saved = append(j.saved, r)
	return nil
}

type fixture struct {
	router  *gin.Engine
	engine  *combat.Engine
	journal *memJournal
}

func newFixture(t *testing.T, history api.History) *fixture {
	t.Helper()
	reg, err := content.Load(contentDir)
	require.NoError(t, err)
	engine := combat.NewEngine()
	journal := &memJournal{}
	h := api.NewHandler(reg, engine, api.Options{
		DefaultEncounter: "forest_ambush",
		EnemyTargeting:   "first_living",
		MaxActions:       200,
		Journal:          journal,
		History:          history,
		Logger:           zaptest.NewLogger(t),
	})
	return &fixture{router: api.NewRouter(h), engine: engine, journal: journal}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// playToEnd attacks the first living enemy until the battle concludes and
// returns the final snapshot.
func (f *fixture) playToEnd(t *testing.T, snap combat.Snapshot) combat.Snapshot {
	t.Helper()
	for i := 0; snap.State == "in_progress"; i++ {
		require.Less(t, i, 50, "battle did not conclude")
		target := 0
		for j, e := range snap.Enemies {
			if !e.Defeated {
				target = j
				break
			}
		}
		w := f.do(t, http.MethodPost, "/api/battles/"+snap.ID+"/actions",
			api.ActionRequest{Action: "attack", Target: combat.TargetIndex(target)})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		snap = decode[api.BattleResponse](t, w).Battle
	}
	return snap
}

func (f *fixture) create(t *testing.T) api.BattleResponse {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/battles", api.CreateBattleRequest{Encounter: "forest_ambush"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[api.BattleResponse](t, w)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","battles":0}`, w.Body.String())
}

func TestListEncounters(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, http.MethodGet, "/api/encounters", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"encounters":["forest_ambush","goblin_pack"]}`, w.Body.String())
}

func TestCreateBattle(t *testing.T) {
	f := newFixture(t, nil)
	resp := f.create(t)

	assert.Equal(t, "in_progress", resp.Battle.State)
	assert.Equal(t, "Arthur", resp.Battle.CurrentActor)
	assert.Equal(t, []string{"Arthur", "Wolf", "Lilith", "Goblin"}, resp.Battle.TurnOrder)
	assert.Empty(t, resp.Events)
	assert.NotEmpty(t, resp.Battle.ID)
	assert.Equal(t, 1, f.engine.Len())
}

func TestCreateBattle_DefaultEncounterWithoutBody(t *testing.T) {
	f := newFixture(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/battles", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[api.BattleResponse](t, w)
	assert.Len(t, resp.Battle.Enemies, 2)
}

func TestCreateBattle_UnknownEncounter(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, http.MethodPost, "/api/battles", api.CreateBattleRequest{Encounter: "dragon_lair"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, f.engine.Len())
}

func TestSubmitAction_ResolvesEnemyTurns(t *testing.T) {
	f := newFixture(t, nil)
	id := f.create(t).Battle.ID

	w := f.do(t, http.MethodPost, "/api/battles/"+id+"/actions",
		api.ActionRequest{Action: "attack", Target: combat.TargetIndex(1)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[api.BattleResponse](t, w)

	require.Len(t, resp.Events, 2)
	assert.Equal(t, api.Event{Actor: "Arthur", Target: "Wolf", Action: "attack", Magnitude: 14, Kind: "damage"}, resp.Events[0])
	assert.Equal(t, api.Event{Actor: "Wolf", Target: "Arthur", Action: "attack", Magnitude: 5, Kind: "damage"}, resp.Events[1])
	assert.Equal(t, "Lilith", resp.Battle.CurrentActor)
	assert.Equal(t, 95, resp.Battle.Party[0].HP)
	assert.Equal(t, 16, resp.Battle.Enemies[1].HP)
	assert.Equal(t, 2, resp.Battle.Actions)
}

func TestSubmitAction_RejectedDecisionLeavesBattleUnchanged(t *testing.T) {
	f := newFixture(t, nil)
	before := f.create(t).Battle

	for _, req := range []api.ActionRequest{
		{Action: "skill", Detail: 5},
		{Action: "item", Detail: 9},
		{Action: "attack", Target: combat.TargetIndex(7)},
		{Action: "flee"},
	} {
		w := f.do(t, http.MethodPost, "/api/battles/"+before.ID+"/actions", req)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "%+v", req)
	}

	w := f.do(t, http.MethodGet, "/api/battles/"+before.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, before, decode[combat.Snapshot](t, w))
}

func TestSubmitAction_BadBody(t *testing.T) {
	f := newFixture(t, nil)
	id := f.create(t).Battle.ID
	w := f.do(t, http.MethodPost, "/api/battles/"+id+"/actions", map[string]int{"detail": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitAction_UnknownBattle(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, http.MethodPost, "/api/battles/nope/actions", api.ActionRequest{Action: "attack"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPlayToVictoryJournalsOnce(t *testing.T) {
	f := newFixture(t, nil)
	snap := f.playToEnd(t, f.create(t).Battle)

	assert.Equal(t, "concluded", snap.State)
	assert.Equal(t, "enemies_defeated", snap.Outcome)

	w := f.do(t, http.MethodPost, "/api/battles/"+snap.ID+"/actions", api.ActionRequest{Action: "attack"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/battles/"+snap.ID, nil).Code)
	assert.Equal(t, 0, f.engine.Len())

	require.Len(t, f.journal.saved, 1)
	rep := f.journal.saved[0]
	assert.Equal(t, snap.ID, rep.BattleID)
	assert.Equal(t, "forest_ambush", rep.Encounter)
	assert.Equal(t, combat.OutcomeEnemiesDefeated, rep.Outcome)
	assert.Equal(t, snap.Actions, rep.Actions)
	assert.Len(t, rep.Events, rep.Actions)
}

func TestConcludedBattlesAreDiscarded(t *testing.T) {
	f := newFixture(t, nil)
	live := f.create(t).Battle
	for i := 0; i < 5; i++ {
		snap := f.playToEnd(t, f.create(t).Battle)
		assert.Equal(t, "concluded", snap.State)
	}

	assert.Equal(t, 1, f.engine.Len())
	assert.Len(t, f.journal.saved, 5)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/battles/"+live.ID, nil).Code)
}

func TestDeleteBattle(t *testing.T) {
	f := newFixture(t, nil)
	id := f.create(t).Battle.ID

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/battles/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/battles/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/battles/"+id, nil).Code)
	assert.Empty(t, f.journal.saved)
}

type fakeHistory struct {
	reports []*sim.Report
}

func (h fakeHistory) ListRecent(_ context.Context, limit int) ([]postgres.BattleSummary, error) {
	out := make([]postgres.BattleSummary, 0, limit)
	for _, r := range h.reports {
		if len(out) == limit {
			break
		}
		out = append(out, postgres.BattleSummary{ID: r.BattleID, Encounter: r.Encounter, Outcome: r.Outcome, Actions: r.Actions})
	}
	return out, nil
}

func (h fakeHistory) Get(_ context.Context, id string) (*sim.Report, error) {
	for _, r := range h.reports {
		if r.BattleID == id {
			return r, nil
		}
	}
	return nil, postgres.ErrBattleNotFound
}

func TestJournalRoutes(t *testing.T) {
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	hist := fakeHistory{reports: []*sim.Report{
		{BattleID: "b2", Encounter: "goblin_pack", Outcome: combat.OutcomePartyDefeated, Actions: 1, StartedAt: at, FinishedAt: at,
			Events: []combat.ActionResult{{ActorName: "Goblin A", TargetName: "Lilith", Action: combat.ActionAttack, Magnitude: 5, Kind: combat.MagnitudeDamage, TargetDefeated: true}}},
		{BattleID: "b1", Encounter: "forest_ambush", Outcome: combat.OutcomeEnemiesDefeated, Actions: 9},
	}}
	f := newFixture(t, hist)

	w := f.do(t, http.MethodGet, "/api/journal?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Battles []struct {
			ID      string `json:"id"`
			Outcome string `json:"outcome"`
		} `json:"battles"`
	}](t, w)
	require.Len(t, list.Battles, 1)
	assert.Equal(t, "b2", list.Battles[0].ID)
	assert.Equal(t, "party_defeated", list.Battles[0].Outcome)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/journal?limit=0", nil).Code)

	w = f.do(t, http.MethodGet, "/api/journal/b2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	one := decode[struct {
		Events []api.Event `json:"events"`
	}](t, w)
	assert.Equal(t, []api.Event{{Actor: "Goblin A", Target: "Lilith", Action: "attack", Magnitude: 5, Kind: "damage", TargetDefeated: true}}, one.Events)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/journal/zzz", nil).Code)
}

func TestJournalRoutesAbsentWithoutHistory(t *testing.T) {
	f := newFixture(t, nil)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/journal", nil).Code)
}

func TestHealth_DatabaseProbe(t *testing.T) {
	reg, err := content.Load(contentDir)
	require.NoError(t, err)
	down := errors.New("connection refused")
	var fail bool
	h := api.NewHandler(reg, combat.NewEngine(), api.Options{
		Ping: func(context.Context) error {
			if fail {
				return down
			}
			return nil
		},
	})
	router := api.NewRouter(h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","battles":0,"database":"ok"}`, w.Body.String())

	fail = true
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"degraded","battles":0,"database":"connection refused"}`, w.Body.String())
}
