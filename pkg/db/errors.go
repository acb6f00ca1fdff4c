package db

import "errors"

// ErrDuplicateRun is returned when inserting a processing run for a lottery
// date that already has a canonical (non-superseded) run. The uniqueness
// constraint on the ledger is the engine's sole concurrency guard: a second
// concurrent attempt must fail rather than duplicate.
var ErrDuplicateRun = errors.New("a canonical processing run already exists for this lottery date")

// ErrRunNotFound is returned when retracting a date that has no canonical run
var ErrRunNotFound = errors.New("no canonical processing run exists for this lottery date")
