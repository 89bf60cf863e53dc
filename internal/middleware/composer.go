package middleware

import (
	"cmp"
	"fmt"
	"slices"
)

// Composer collects named units and resolves them into a single
// Middleware.
//
// Add is chainable. Registration problems are remembered and reported by
// Compose, so a builder expression never has to be broken up to check
// errors:
//
//	mw, err := middleware.NewComposer().
//		Add(middleware.Unit{Name: "auth", Priority: 10, Middleware: auth}).
//		Add(middleware.Unit{Name: "log", Dependencies: []string{"auth"}, Middleware: log}).
//		Compose()
//
// Thread-safety: a Composer is a builder and is not safe for concurrent use.
type Composer struct {
	units []Unit
	err   error
}

// NewComposer returns an empty composer.
func NewComposer() *Composer {
	return &Composer{}
}

// Add registers u. A duplicate name (or an unnamed or empty unit) is
// recorded and surfaces from Compose.
func (c *Composer) Add(u Unit) *Composer {
	switch {
	case u.Name == "":
		c.fail(&ConfigError{Code: ErrCodeInvalidUnit, Message: "middleware unit has no name"})
	case u.Middleware == nil:
		c.fail(&ConfigError{Code: ErrCodeInvalidUnit, Message: fmt.Sprintf("middleware %q has no function", u.Name), Unit: u.Name})
	case c.index(u.Name) >= 0:
		c.fail(newDuplicateError(u.Name))
	default:
		u.Dependencies = slices.Clone(u.Dependencies)
		c.units = append(c.units, u)
	}
	return c
}

// Remove deregisters the unit called name, if any.
func (c *Composer) Remove(name string) *Composer {
	if i := c.index(name); i >= 0 {
		c.units = slices.Delete(c.units, i, i+1)
	}
	return c
}

// Len returns the number of registered units.
func (c *Composer) Len() int { return len(c.units) }

// Err returns the first registration error, if any.
func (c *Composer) Err() error { return c.err }

// Order validates the registered units and returns their names in
// resolved order.
func (c *Composer) Order() ([]string, error) {
	ordered, err := c.resolve()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ordered))
	for i, u := range ordered {
		names[i] = u.Name
	}
	return names, nil
}

// Compose validates, orders and folds the registered units into one
// Middleware. The first unit in resolved order is outermost.
func (c *Composer) Compose() (Middleware, error) {
	ordered, err := c.resolve()
	if err != nil {
		return nil, err
	}

	mws := make([]Middleware, len(ordered))
	for i, u := range ordered {
		mws[i] = u.Middleware
	}
	return func(api API) func(Next) Next {
		// Units see the API once, here, like they would at store creation.
		wrappers := make([]func(Next) Next, len(mws))
		for i, mw := range mws {
			wrappers[i] = mw(api)
		}
		return func(next Next) Next {
			for i := len(wrappers) - 1; i >= 0; i-- {
				next = wrappers[i](next)
			}
			return next
		}
	}, nil
}

func (c *Composer) resolve() ([]Unit, error) {
	if c.err != nil {
		return nil, c.err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	if err := c.detectCycles(); err != nil {
		return nil, err
	}
	return c.order(), nil
}

// validate checks that every dependency names a registered unit.
func (c *Composer) validate() error {
	for _, u := range c.units {
		for _, dep := range u.Dependencies {
			if c.index(dep) < 0 {
				return newMissingDependencyError(u.Name, dep)
			}
		}
	}
	return nil
}

// detectCycles runs a depth-first search with an explicit recursion stack.
// Reaching a node that is still on the stack closes a cycle.
func (c *Composer) detectCycles() error {
	const (
		unvisited = iota
		onStack
		done
	)
	status := make(map[string]int, len(c.units))
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		status[name] = onStack
		stack = append(stack, name)
		for _, dep := range c.units[c.index(name)].Dependencies {
			switch status[dep] {
			case onStack:
				start := slices.Index(stack, dep)
				path := append(slices.Clone(stack[start:]), dep)
				return newCycleError(path)
			case unvisited:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		status[name] = done
		return nil
	}

	for _, u := range c.units {
		if status[u.Name] == unvisited {
			if err := visit(u.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// order sorts by descending priority (stable, so ties keep registration
// order) and then emits a dependency-first post-order over that base.
func (c *Composer) order() []Unit {
	base := slices.Clone(c.units)
	slices.SortStableFunc(base, func(a, b Unit) int {
		return cmp.Compare(b.Priority, a.Priority)
	})

	visited := make(map[string]bool, len(base))
	out := make([]Unit, 0, len(base))

	var visit func(u Unit)
	visit = func(u Unit) {
		if visited[u.Name] {
			return
		}
		visited[u.Name] = true
		for _, dep := range u.Dependencies {
			visit(c.units[c.index(dep)])
		}
		out = append(out, u)
	}
	for _, u := range base {
		visit(u)
	}
	return out
}

func (c *Composer) index(name string) int {
	return slices.IndexFunc(c.units, func(u Unit) bool { return u.Name == name })
}

func (c *Composer) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}
