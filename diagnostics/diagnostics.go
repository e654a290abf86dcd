// Package diagnostics collects the error reports produced by every phase
// of the pipeline (lex, parse, resolve, runtime) and renders them the way
// the driver expects: one line per diagnostic on stderr, tagged with the
// source position that caused it.
package diagnostics

import (
	"fmt"

	"github.com/mihaimaganu17/malis/token"
)

// Stage identifies which phase of the pipeline reported a diagnostic.
type Stage string

const (
	Lex     Stage = "lex"
	Parse   Stage = "parse"
	Resolve Stage = "resolve"
	Runtime Stage = "runtime"
)

// Diagnostic is a single reported error, tagged with its source position.
type Diagnostic struct {
	Stage   Stage
	Pos     token.Position
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[line %d] Error: %s", d.Pos.Line, d.Message)
}

func (d Diagnostic) Error() string {
	return d.String()
}

// Reporter accumulates diagnostics across a single run of the pipeline.
// The driver creates a fresh Reporter for each REPL line so that one bad
// line does not poison the next.
type Reporter struct {
	diags []Diagnostic
}

func New() *Reporter {
	return &Reporter{}
}

func (r *Reporter) Report(stage Stage, pos token.Position, format string, args ...interface{}) {
	r.diags = append(r.diags, Diagnostic{Stage: stage, Pos: pos, Message: fmt.Sprintf(format, args...)})
}

func (r *Reporter) HadError() bool {
	return len(r.diags) > 0
}

func (r *Reporter) Diagnostics() []Diagnostic {
	return r.diags
}

func (r *Reporter) Reset() {
	r.diags = nil
}
