// Package engine defines the external compute-engine contract
// (open/put/eval/get/close) and provides two implementations: Mock for
// tests and Process for driving a real out-of-process interpreter.
package engine

import "github.com/pkg/errors"

// Engine is the five-operation contract the slave loop drives a compute
// engine through. A single Engine value is both the "handle" and the
// driver: open/close map onto Open/Close, and put/eval/get map onto
// Put/Eval/Get.
type Engine interface {
	// Open starts the underlying engine process. Called lazily, at most
	// once per open/close cycle.
	Open() error

	// Put writes a named value into the engine's workspace.
	Put(name string, blob []byte) error

	// Eval evaluates an expression against the engine's workspace.
	Eval(expr string) error

	// Get reads a named value back out of the engine's workspace.
	Get(name string) ([]byte, error)

	// Close shuts the engine process down. Safe to call on an engine
	// that was never successfully opened.
	Close() error
}

// ErrNotOpen is returned by Put/Eval/Get when called before a successful
// Open.
var ErrNotOpen = errors.New("engine: not open")

// PeerExecExpr is the fixed evaluation expression: the engine is always
// driven with exactly this expression, never an arbitrary one, since job
// arg/opt are opaque payloads the core never interprets.
const PeerExecExpr = "[argout, options] = peerexec(argin, options)"

const (
	// ArgInName and ArgOutName are the workspace variable names the
	// slave loop puts/gets argin/argout through.
	ArgInName  = "argin"
	ArgOutName = "argout"

	// OptionsName is the workspace variable name used for the options
	// container, both the submitter's original options and the
	// engine's returned options.
	OptionsName = "options"
)
