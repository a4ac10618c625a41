package combat

import (
	"errors"
	"fmt"
	"sync"
)

// ErrBattleNotFound is returned when no battle is registered under an ID.
var ErrBattleNotFound = errors.New("battle not found")

type engineEntry struct {
	mu     sync.Mutex
	battle *Battle
}

// Engine manages all live battles, keyed by battle ID.
// All methods are safe for concurrent use; With serializes access per battle.
type Engine struct {
	mu      sync.RWMutex
	battles map[string]*engineEntry
}

// NewEngine creates an empty Engine.
//
// Postcondition: Returns a non-nil Engine ready for use.
func NewEngine() *Engine {
	return &Engine{battles: make(map[string]*engineEntry)}
}

// Add registers b under its ID.
//
// Postcondition: Returns an error if a battle with the same ID is already registered.
func (e *Engine) Add(b *Battle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.battles[b.ID()]; exists {
		return fmt.Errorf("battle %q already registered", b.ID())
	}
	e.battles[b.ID()] = &engineEntry{battle: b}
	return nil
}

// With runs fn while holding the battle's lock.
//
// Postcondition: Returns ErrBattleNotFound for unknown IDs, otherwise fn's error.
func (e *Engine) With(id string, fn func(*Battle) error) error {
	e.mu.RLock()
	entry, ok := e.battles[id]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrBattleNotFound, id)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(entry.battle)
}

// End discards the battle registered under id and reports whether it existed.
func (e *Engine) End(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.battles[id]
	delete(e.battles, id)
	return ok
}

// Len returns the number of registered battles.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.battles)
}
