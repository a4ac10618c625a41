package scripting

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/turnbattle/internal/game/combat"
)

// ErrNoDecideFunction is returned by LoadPolicy when the script does not define
// a global decide function.
var ErrNoDecideFunction = errors.New("script does not define decide(actor, allies, foes)")

// Policy is a combat.DecisionSource backed by a Lua script.
//
// The script defines
//
//	function decide(actor, allies, foes)
//	  return { action = "skill", detail = 1, target = 2 }
//	end
//
// detail and target are 1-based; target may be omitted for the default target.
// Returning a bare string such as "attack" is shorthand for { action = ... }.
//
// Policy is safe for concurrent use; calls into the VM are serialized.
type Policy struct {
	mu     sync.Mutex
	L      *lua.LState
	limit  int
	logger *zap.Logger
}

// LoadPolicy creates a sandboxed VM, registers the battle.* helpers, and runs
// the script at path.
//
// Precondition: logger must be non-nil. limit <= 0 uses DefaultInstructionLimit.
// Postcondition: Returns a Policy whose VM defines decide, or an error.
func LoadPolicy(path string, limit int, logger *zap.Logger) (*Policy, error) {
	L := NewSandboxedState()
	RegisterModules(L, logger)

	if err := withLimit(context.Background(), L, limit, func() error { return L.DoFile(path) }); err != nil {
		L.Close()
		return nil, fmt.Errorf("scripting: loading %q: %w", path, err)
	}
	if _, ok := L.GetGlobal("decide").(*lua.LFunction); !ok {
		L.Close()
		return nil, fmt.Errorf("scripting: %q: %w", path, ErrNoDecideFunction)
	}
	return &Policy{L: L, limit: limit, logger: logger}, nil
}

// Close releases the VM.
func (p *Policy) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.L.Close()
}

// Decide implements combat.DecisionSource.
//
// Postcondition: Lua runtime errors, exhausted instruction budgets, and
// malformed return values are logged at Warn and reported as errors wrapping
// combat.ErrInvalidAction. Cancellation of ctx is returned as ctx.Err().
func (p *Policy) Decide(ctx context.Context, req combat.DecisionRequest) (combat.Decision, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	L := p.L
	var ret lua.LValue = lua.LNil
	err := withLimit(ctx, L, p.limit, func() error {
		if err := L.CallByParam(lua.P{
			Fn:      L.GetGlobal("decide"),
			NRet:    1,
			Protect: true,
		}, combatantTable(L, req.Actor), rosterTable(L, req.Allies), rosterTable(L, req.Foes)); err != nil {
			return err
		}
		ret = L.Get(-1)
		L.Pop(1)
		return nil
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return combat.Decision{}, ctxErr
	}
	if err != nil {
		p.logger.Warn("scripting: Lua runtime error",
			zap.String("actor", req.Actor.Name),
			zap.Error(err),
		)
		return combat.Decision{}, fmt.Errorf("%w: script error: %v", combat.ErrInvalidAction, err)
	}

	dec, err := toDecision(ret)
	if err != nil {
		p.logger.Warn("scripting: bad decision",
			zap.String("actor", req.Actor.Name),
			zap.String("returned", ret.String()),
			zap.Error(err),
		)
		return combat.Decision{}, err
	}
	return dec, nil
}

// toDecision converts decide's return value, shifting 1-based indices to 0-based.
func toDecision(v lua.LValue) (combat.Decision, error) {
	switch rv := v.(type) {
	case lua.LString:
		action, err := combat.ParseActionType(string(rv))
		if err != nil {
			return combat.Decision{}, err
		}
		return combat.Decision{Action: action}, nil
	case *lua.LTable:
		action, err := combat.ParseActionType(lua.LVAsString(rv.RawGetString("action")))
		if err != nil {
			return combat.Decision{}, err
		}
		dec := combat.Decision{Action: action}
		if n, ok := rv.RawGetString("detail").(lua.LNumber); ok {
			dec.Detail = int(n) - 1
		}
		if n, ok := rv.RawGetString("target").(lua.LNumber); ok {
			dec.Target = combat.TargetIndex(int(n) - 1)
		}
		return dec, nil
	default:
		return combat.Decision{}, fmt.Errorf("%w: decide returned %s", combat.ErrInvalidAction, v.Type())
	}
}
