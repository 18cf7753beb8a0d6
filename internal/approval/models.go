package approval

import (
	"time"

	"github.com/google/uuid"
)

// Action is what happened at one workflow step.
type Action string

const (
	ActionSubmitted Action = "submitted"
	ActionApproved  Action = "approved"
	ActionRejected  Action = "rejected"
	ActionPaid      Action = "paid"
)

// Record is one append-only audit entry in a remittance's sign-off trail.
// Current workflow status is always derivable from the latest record; rows
// are never updated after insert.
type Record struct {
	ID              uuid.UUID
	RemittanceID    uuid.UUID
	Level           string
	Action          Action
	ActorID         uuid.UUID
	Comment         string
	RejectionReason string
	CreatedAt       time.Time
}

// Code classifies an expected-path workflow refusal so transports can map it
// to the right HTTP status (forbidden vs missing vs conflict).
type Code string

const (
	CodeOK           Code = ""
	CodeNotFound     Code = "not_found"
	CodeUnauthorized Code = "unauthorized"
	CodeInvalidState Code = "invalid_state"
	CodeCompliance   Code = "compliance_failed"
)

// Result is the discriminated outcome of a workflow operation. Expected-path
// refusals (wrong state, insufficient authority, compliance failures) land
// here with OK=false and zero state mutation; only infrastructure faults
// travel as errors.
type Result struct {
	OK       bool
	Code     Code
	Action   Action
	Status   string
	Errors   []string
	Warnings []string
}

func failure(code Code, action Action, msgs ...string) Result {
	return Result{Code: code, Action: action, Errors: msgs}
}
