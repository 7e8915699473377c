// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import (
	"context"
	"errors"
	"fmt"
)

// ConnectionError means the session to a store is unusable. It ends the run.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("could not %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// FolderAccessError is scoped to one folder, the walk skips that branch.
type FolderAccessError struct {
	Folder string
	Op     string
	Err    error
}

func (e *FolderAccessError) Error() string {
	return fmt.Sprintf("could not %s folder %q: %v", e.Op, e.Folder, e.Err)
}

func (e *FolderAccessError) Unwrap() error {
	return e.Err
}

type PredicateConstructionError struct {
	Criterion string
	Value     string
	Err       error
}

func (e *PredicateConstructionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid %s criterion %q", e.Criterion, e.Value)
	}
	return fmt.Sprintf("invalid %s criterion %q: %v", e.Criterion, e.Value, e.Err)
}

func (e *PredicateConstructionError) Unwrap() error {
	return e.Err
}

// SafetyViolation rejects an operation whose flags combine into an unsafe
// mutation. It is raised before any folder is touched.
type SafetyViolation struct {
	Folder string
	Reason string
}

func (e *SafetyViolation) Error() string {
	if len(e.Folder) == 0 {
		return "refusing to run: " + e.Reason
	}
	return fmt.Sprintf("refusing to run on %q: %s", e.Folder, e.Reason)
}

type FolderStateError struct {
	Folder string
	Op     string
	State  FolderState
}

func (e *FolderStateError) Error() string {
	return fmt.Sprintf("cannot %s folder %q in state %s", e.Op, e.Folder, e.State)
}

type PartialCopyError struct {
	Source      string
	Destination string
	Count       int
	Err         error
}

func (e *PartialCopyError) Error() string {
	return fmt.Sprintf("could not copy %d messages from %q to %q: %v", e.Count, e.Source, e.Destination, e.Err)
}

func (e *PartialCopyError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err has to end the whole run instead of only the
// folder it occurred in.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var connErr *ConnectionError
	var safetyErr *SafetyViolation
	var predicateErr *PredicateConstructionError
	return errors.As(err, &connErr) ||
		errors.As(err, &safetyErr) ||
		errors.As(err, &predicateErr) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
