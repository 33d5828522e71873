package types

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationKind names one precondition check.
type ValidationKind string

const (
	CheckPrivilege ValidationKind = "privilege"
	CheckDevice    ValidationKind = "device"
	CheckFirmware  ValidationKind = "firmware"
	CheckCPU       ValidationKind = "cpu"
	CheckGPU       ValidationKind = "gpu"
)

// ValidationError reports a failed precondition check. Always raised before
// any mutation, so there is never partial state to clean up.
type ValidationError struct {
	Kind   ValidationKind
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Kind, e.Detail)
}

// ErrInsufficientCapacity is returned by the planner when the device is too
// small to hold the fixed partitions plus a positive main partition.
var ErrInsufficientCapacity = errors.New("insufficient device capacity")

// PlanError wraps a planner failure. Pre-mutation, fatal.
type PlanError struct {
	CapacityMiB int64
	Err         error
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("plan for %d MiB: %v", e.CapacityMiB, e.Err)
}

func (e *PlanError) Unwrap() error { return e.Err }

// ErrConfirmationDeclined is returned when the operator declines a gate.
// By policy this aborts the whole run; completed steps are intentional and
// are left as-is.
var ErrConfirmationDeclined = errors.New("operator declined, run aborted")

// StageError reports a failed stage together with every side effect created
// by the failed stage and all prior succeeded stages. Informational only:
// the sequencer never rolls these back, a human does.
type StageError struct {
	Stage       string
	SideEffects []string
	Err         error
}

func (e *StageError) Error() string {
	if len(e.SideEffects) == 0 {
		return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("stage %s failed: %v (side effects requiring manual inspection: %s)",
		e.Stage, e.Err, strings.Join(e.SideEffects, ", "))
}

func (e *StageError) Unwrap() error { return e.Err }
