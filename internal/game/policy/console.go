package policy

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/cory-johannsen/turnbattle/internal/game/combat"
	"github.com/cory-johannsen/turnbattle/internal/render"
)

// Console reads decisions line by line from a reader and prints menus to a
// writer. It is not safe for concurrent use.
type Console struct {
	in       *bufio.Scanner
	out      io.Writer
	renderer render.Renderer
}

// NewConsole creates a Console over in and out.
//
// Precondition: in and out must be non-nil.
func NewConsole(in io.Reader, out io.Writer, r render.Renderer) *Console {
	return &Console{in: bufio.NewScanner(in), out: out, renderer: r}
}

// Decide prints the actor's menu and parses one line of input.
//
// Postcondition: returns io.ErrUnexpectedEOF once input is exhausted, and an
// error wrapping combat.ErrInvalidAction for a line that does not parse.
func (c *Console) Decide(ctx context.Context, req combat.DecisionRequest) (combat.Decision, error) {
	if err := ctx.Err(); err != nil {
		return combat.Decision{}, err
	}
	if _, err := io.WriteString(c.out, c.renderer.Menu(req)); err != nil {
		return combat.Decision{}, fmt.Errorf("writing menu: %w", err)
	}
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return combat.Decision{}, fmt.Errorf("reading decision: %w", err)
		}
		return combat.Decision{}, io.ErrUnexpectedEOF
	}
	dec, err := ParseDecision(c.in.Text())
	if err != nil {
		fmt.Fprintf(c.out, "%v\n", err)
		return combat.Decision{}, err
	}
	return dec, nil
}
