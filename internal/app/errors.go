package app

import "errors"

// Sentinel errors returned by store operations. Callers branch on these
// with errors.Is to produce user-facing messages.
var (
	// ErrNotFound means the referenced session id is not in the store.
	ErrNotFound = errors.New("session not found")

	// ErrArchivedSession means the operation targets an archived session
	// that must first be unarchived.
	ErrArchivedSession = errors.New("session is archived")

	// ErrNoActiveSession means an operation needing an active session ran
	// against an empty store with implicit creation disabled.
	ErrNoActiveSession = errors.New("no active session")

	// ErrEmptyRationale means a provocation response carried a blank
	// rationale. Responses without reasoning are rejected outright.
	ErrEmptyRationale = errors.New("rationale must not be empty")

	// ErrUnknownCard means a response referenced a provocation card id the
	// session does not contain.
	ErrUnknownCard = errors.New("unknown provocation card")

	// ErrInvalidDecision means a response decision was not one of accept,
	// hold, or reject.
	ErrInvalidDecision = errors.New("invalid decision")

	// ErrExportLocked means the session has not cleared the gate required
	// for export.
	ErrExportLocked = errors.New("export is locked until the gate clears")

	// ErrEmptyWhy means evidence was attached without an explanation of
	// why it matters.
	ErrEmptyWhy = errors.New("evidence requires a non-empty reason")
)
