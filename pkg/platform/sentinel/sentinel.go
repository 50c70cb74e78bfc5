package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, adapters, and other
// infrastructure layers return these (optionally wrapped) so services can
// translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store, or a referenced message is gone
// - ErrExpired: challenge or timeout window has expired
// - ErrForbidden: the platform refused the operation (e.g. role grant denied)
// - ErrRoleMissing: no verified role is configured or the role no longer exists
// - ErrUnavailable: durable store or platform temporarily unreachable
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrExpired     = errors.New("expired")
	ErrForbidden   = errors.New("forbidden")
	ErrRoleMissing = errors.New("role missing")
	ErrUnavailable = errors.New("unavailable")
)
