package oracle

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrHookFault reports an Oracle hook returning its "true means error"
// sentinel, per spec.md §7 kind 1. It is grounded on the teacher's
// revert-vs-fatal error split in core/vm (ErrExecutionReverted et al.),
// wrapped with github.com/pkg/errors so a host can still Cause() down
// to a sentinel if one hook family wants to attach one later.
type ErrHookFault struct {
	Hook        string
	Instruction string
}

func (e *ErrHookFault) Error() string {
	return fmt.Sprintf("oracle: hook %q reported a fault at %s", e.Hook, e.Instruction)
}

// NewHookFault wraps a fault from the named hook.
func NewHookFault(hook, instrText string) error {
	return errors.WithStack(&ErrHookFault{Hook: hook, Instruction: instrText})
}
