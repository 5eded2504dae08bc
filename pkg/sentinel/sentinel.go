package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain outcomes.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: conditional write lost to a concurrent writer
// - ErrExpired: credential validity window has passed
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: storage or downstream resource temporarily unavailable
//
// ErrUnavailable must never be collapsed into ErrNotFound: a checkpoint that
// cannot reach storage is a hard failure, not an absent credential.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
