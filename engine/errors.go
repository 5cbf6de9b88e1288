package engine

import (
	"fmt"
	"hash/fnv"

	"github.com/cockroachdb/errors"

	"github.com/icmccorm/llvm-project/frame"
	"github.com/icmccorm/llvm-project/ir"
	"github.com/icmccorm/llvm-project/oracle"
)

func hashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// SemanticError is a fatal interpretation fault: unsupported
// instruction/predicate, invalid bitcast, inline asm, unreachable,
// va_arg overrun, per spec.md §7 kind 2.
type SemanticError struct {
	Message string
}

func (e *SemanticError) Error() string { return "semantic fault: " + e.Message }

// NewSemanticError builds a SemanticError, wrapped via
// github.com/cockroachdb/errors so it composes with errors.Is/As the
// way the teacher's error chain does (SPEC_FULL.md's "Errors" section).
func NewSemanticError(format string, args ...interface{}) error {
	return errors.WithStack(&SemanticError{Message: fmt.Sprintf(format, args...)})
}

// PreconditionError is host misuse: a missing hook, step without a
// required pending return, an unknown thread id, per spec.md §7 kind 3.
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string { return "precondition violation: " + e.Message }

func NewPreconditionError(format string, args ...interface{}) error {
	return errors.WithStack(&PreconditionError{Message: fmt.Sprintf(format, args...)})
}

// recordFault sets the sticky error flag, accumulates the stack trace
// (current instruction's location, then every ancestor frame's
// call-site location), and invokes the Oracle's stack_trace_recorder,
// per spec.md §4.7.
func (e *Engine) recordFault(t *frame.Thread, instr *ir.Instruction, err error) error {
	e.errFlag = true
	e.errMsg = err.Error()

	var trace []oracle.TraceEntry
	if instr != nil {
		trace = append(trace, oracle.TraceEntry{
			File: instr.Loc.File, Line: instr.Loc.Line, Col: instr.Loc.Col,
			Func: currentFuncName(t),
		})
	}
	for i := len(t.Stack) - 1; i >= 1; i-- {
		caller := t.Stack[i].Caller
		if caller == nil {
			continue
		}
		trace = append(trace, oracle.TraceEntry{
			File: caller.Loc.File, Line: caller.Loc.Line, Col: caller.Loc.Col,
			Func: t.Stack[i-1].Function.Name,
		})
	}
	e.trace = trace

	instrText := "<unknown instruction>"
	if instr != nil {
		instrText = instrText2(instr)
	}
	if e.hooks.StackTraceRecorder != nil {
		e.hooks.StackTraceRecorder(e.wrapper, trace, instrText)
	}
	e.log.Error("oracle or semantic fault", "err", err, "instr", instrText)
	return err
}

func currentFuncName(t *frame.Thread) string {
	if fr := t.Current(); fr != nil && fr.Function != nil {
		return fr.Function.Name
	}
	return ""
}

// instrText2 is a minimal textual rendering of an instruction for trace
// reporting, sufficient for a host to print what faulted without a
// full IR printer (that belongs to the out-of-scope loader/printer).
func instrText2(instr *ir.Instruction) string {
	if instr.Name != "" {
		return fmt.Sprintf("%%%s = <opcode %d>", instr.Name, instr.Op)
	}
	return fmt.Sprintf("<opcode %d>", instr.Op)
}
