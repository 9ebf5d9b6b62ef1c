// Package users holds the identities that can sign in to the dashboard and
// resolves their true role for access decisions.
package users

import (
	"errors"
	"fmt"

	"github.com/minedor/minedor/internal/access"
	"github.com/minedor/minedor/internal/platform/httpx"
)

// Team is the shift crew a worker belongs to.
type Team string

// Teams.
const (
	TeamNone Team = ""
	TeamA    Team = "A"
	TeamB    Team = "B"
)

// User is a dashboard identity.
type User struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Role         access.Role `json:"role"`
	Team         Team        `json:"team,omitempty"`
	PasswordHash string      `json:"-"`
	Active       bool        `json:"active"`
}

var (
	// ErrNotFound indicates the user does not exist.
	ErrNotFound = fmt.Errorf("users: %w", httpx.ErrNotFound)
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = fmt.Errorf("users: invalid credentials: %w", httpx.ErrUnauthorized)
	// ErrInactive rejects sessions of deactivated users.
	ErrInactive = errors.New("users: account inactive")
)
