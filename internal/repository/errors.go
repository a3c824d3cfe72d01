// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write cannot be performed because of
// conflicting state, such as an overlapping booking or cancelling a
// booking twice. Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrRoomNotFound is returned when a booking names a room that does not
// exist or is no longer active.
var ErrRoomNotFound = errors.New("room not found")

// ErrEmailExists is returned by UserRepo.Create for a duplicate email.
var ErrEmailExists = errors.New("email already exists")
