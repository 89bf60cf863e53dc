// Package schema validates snapshots against CUE schemas.
//
// A schema source is either a plain CUE value or a file that defines
// #State; when #State exists it is the schema and the rest of the file is
// supporting definitions. Definitions are closed, so undeclared fields fail
// validation.
//
//	#State: {
//		count: int & >=0
//		todos: [...{text: string, done: bool}]
//	}
package schema

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"

	"github.com/roach88/hafiza/internal/action"
	"github.com/roach88/hafiza/internal/state"
)

// RootDefinition is the definition used as the schema when present.
const RootDefinition = "#State"

// Schema is a compiled CUE schema.
//
// Thread-safety: safe for concurrent use; validations are serialized
// because CUE contexts are not.
type Schema struct {
	mu    sync.Mutex
	ctx   *cue.Context
	value cue.Value
}

// ValidationError reports a snapshot that does not satisfy the schema.
type ValidationError struct {
	// Details has one line per CUE error.
	Details []string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("state does not match schema: %v", e.Err)
}

// Unwrap returns the underlying CUE error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError returns true if err is a schema mismatch.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Compile builds a schema from CUE source. filename is used in error
// positions.
func Compile(filename, src string) (*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", filename, err)
	}
	return newSchema(ctx, v)
}

// Load reads a schema from a .cue file, or from the CUE package in a
// directory.
func Load(path string) (*Schema, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if !info.IsDir() {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load schema: %w", err)
		}
		return Compile(path, string(src))
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return nil, fmt.Errorf("load schema %s: no CUE instances", path)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("load schema %s: %w", path, inst.Err)
	}

	ctx := cuecontext.New()
	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("build schema %s: %w", path, err)
	}
	return newSchema(ctx, v)
}

func newSchema(ctx *cue.Context, v cue.Value) (*Schema, error) {
	if def := v.LookupPath(cue.ParsePath(RootDefinition)); def.Exists() {
		v = def
	}
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Schema{ctx: ctx, value: v}, nil
}

// Validate checks that s is a concrete instance of the schema.
func (sc *Schema) Validate(s *state.Object) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	data := sc.ctx.Encode(state.ToGo(s))
	if err := data.Err(); err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	unified := sc.value.Unify(data)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		var details []string
		for _, e := range cueerrors.Errors(err) {
			details = append(details, e.Error())
		}
		return &ValidationError{Details: details, Err: err}
	}
	return nil
}

// Guard wraps reducer so that transitions producing an invalid snapshot are
// discarded: the previous state is kept and the violation is logged.
func Guard(reducer action.Reducer, sc *Schema, logger *slog.Logger) action.Reducer {
	if logger == nil {
		logger = slog.Default()
	}
	return func(prev *state.Object, a action.Action) *state.Object {
		next := reducer(prev, a)
		if next == nil || next == prev {
			return next
		}
		if err := sc.Validate(next); err != nil {
			logger.Warn("transition rejected by schema", "kind", a.Kind, "id", a.ID, "error", err)
			return prev
		}
		return next
	}
}
