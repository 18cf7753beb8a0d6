package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and clients return these
// (optionally wrapped) so services can translate them into workflow results.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: composite-key collision or concurrent write lost
// - ErrInvalidState: entity in wrong state for requested transition
// - ErrUnauthorized: actor's role does not cover the requested level
// - ErrUnavailable: external dependency still failing after retries
//
// Compliance-gate failures are not errors; they travel in approval.Result.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("unavailable")
)
