// Package access decides whether an actor may retrieve, read, create or
// destroy a share code. Every function here is a pure predicate over values
// the caller has already loaded: nothing performs I/O, nothing panics on
// partially populated input and a denial is always reported as false.
package access

import "net/http"

// Actor is the identity making a request. The zero value is anonymous.
type Actor struct {
	ID            uint64 // users.id; zero when anonymous
	Authenticated bool
	Role          string // STUDENT | STAFF; never widens delete rights
}

// Anonymous returns the unauthenticated actor.
func Anonymous() Actor { return Actor{} }

// User returns an authenticated actor for the given user id and role.
func User(id uint64, role string) Actor {
	return Actor{ID: id, Authenticated: id != 0, Role: role}
}

// Reservation groups bookings under a creator.
type Reservation struct {
	CreatorID uint64
}

// Booking is the ownership-relevant slice of a booking row. UserID is zero
// when the booking belongs to a reservation instead of a direct user.
type Booking struct {
	UserID      uint64
	Reservation *Reservation
}

// ShareCode is the resource guarded by this package. Valid is the result of
// the share code's validity check, computed by the caller at request time.
type ShareCode struct {
	Booking *Booking
	Valid   bool
}

// Action names the operation the HTTP layer is about to perform.
type Action string

const (
	ActionRetrieve Action = "retrieve"
	ActionRead     Action = "read"
	ActionCreate   Action = "create"
	ActionDestroy  Action = "destroy"
)

// CanListOrRetrieve gates retrieval of a single share code by its code.
// Share links are public, so the gate is always open.
func CanListOrRetrieve(Actor) bool { return true }

// CanCreateOrDestroy gates mutating actions before any object is loaded.
func CanCreateOrDestroy(a Actor) bool {
	return a.Authenticated && a.ID != 0
}

// CanMutate is the object-level check. Safe methods only require the share
// code to be valid; DELETE requires the actor to be the resolved owner;
// every other method is denied.
func CanMutate(a Actor, sc *ShareCode, method string) bool {
	if sc == nil || sc.Booking == nil {
		return false
	}
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return sc.Valid
	case http.MethodDelete:
		owner, ok := Owner(sc.Booking)
		if !ok {
			return false
		}
		return IsOwner(a, owner)
	default:
		return false
	}
}

// Evaluate combines the view-level gate with the object-level check for the
// given action. Read and destroy need a resource; a nil one is denied.
// Callers wanting only the authentication gate use CanCreateOrDestroy.
func Evaluate(a Actor, action Action, sc *ShareCode) bool {
	switch action {
	case ActionRetrieve:
		return CanListOrRetrieve(a)
	case ActionCreate:
		return CanCreateOrDestroy(a)
	case ActionDestroy:
		return CanCreateOrDestroy(a) && CanMutate(a, sc, http.MethodDelete)
	case ActionRead:
		return CanMutate(a, sc, http.MethodGet)
	default:
		return false
	}
}
