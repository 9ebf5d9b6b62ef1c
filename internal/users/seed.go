package users

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/minedor/minedor/internal/access"
)

// SeedUsers returns the built-in identities, one per role, all sharing password.
func SeedUsers(password string, cost int) ([]User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("users: hash seed password: %w", err)
	}
	return []User{
		{ID: "usr-001", Name: "Administrateur Principal", Email: "admin@minedor.cd", Role: access.RoleAdmin, PasswordHash: string(hash), Active: true},
		{ID: "usr-002", Name: "Chef de Site", Email: "superviseur@minedor.cd", Role: access.RoleSupervisor, PasswordHash: string(hash), Active: true},
		{ID: "usr-003", Name: "Opérateur Équipe A", Email: "travailleur@minedor.cd", Role: access.RoleWorker, Team: TeamA, PasswordHash: string(hash), Active: true},
	}, nil
}
