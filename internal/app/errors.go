package service

import "errors"

// Sentinel kinds for session and service errors.
var (
	// ErrPreconditionMissing refuses a save that lacks a template, loaded
	// categories, selected athletes, or the org/coach identity.
	ErrPreconditionMissing = errors.New("save precondition missing")
	// ErrUpstream wraps a failed persistence call. The session state is left
	// as it was so the save can be retried.
	ErrUpstream = errors.New("persistence failed")

	ErrNotStarted         = errors.New("service not started")
	ErrSessionClosed      = errors.New("session closed")
	ErrAthleteNotSelected = errors.New("athlete not selected")
	ErrCategoryMismatch   = errors.New("subskill belongs to another category")
	ErrNoTemplate         = errors.New("no scorecard template selected")
	ErrTemplateLocked     = errors.New("template of a saved evaluation cannot change")
)
