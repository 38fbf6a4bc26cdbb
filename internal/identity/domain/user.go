package domain

import (
	"context"
	"errors"
	"strings"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleRider   Role = "rider"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleManager, RoleRider:
		return true
	}
	return false
}

var ErrUserNotFound = errors.New("user not found")

// User is a directory entry. For riders IsActive doubles as availability:
// a rider out on a delivery is inactive until the order reaches a terminal state.
type User struct {
	ID         string
	FirstName  string
	LastName   string
	Email      string
	Role       Role
	IsActive   bool
	IsVerified bool
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Actor is the authenticated caller of a request.
type Actor struct {
	ID    string
	Role  Role
	Email string
	Name  string
}

func ActorOf(u User) Actor {
	return Actor{ID: u.ID, Role: u.Role, Email: u.Email, Name: u.FullName()}
}

type actorKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}
