package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"shipline/internal/domain"
	"shipline/internal/engine/policy"
	"shipline/internal/events"
	"shipline/internal/repo"
)

// ErrBadCredentials hides whether the name or the password was wrong.
var ErrBadCredentials = errors.New("invalid name or password")

var knownRoles = map[string]bool{
	domain.RoleAdmin:      true,
	domain.RoleOnboardEng: true,
	domain.RoleRemoteTeam: true,
	domain.RoleClient:     true,
}

// CreateUser registers a user with a bcrypt-hashed password.
func (e Engine) CreateUser(ctx context.Context, name, role, password string, actor events.Actor) (domain.User, error) {
	if err := policy.Allow(policy.ActionUserCreate, actor.Role); err != nil {
		return domain.User{}, err
	}
	return e.createUser(ctx, name, role, password)
}

// SeedUser registers a roster user without an acting principal, for
// first-run seeding.
func (e Engine) SeedUser(ctx context.Context, name, role, password string) (domain.User, error) {
	return e.createUser(ctx, name, role, password)
}

func (e Engine) createUser(ctx context.Context, name, role, password string) (domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, policy.ValidationError{Field: "name", Reason: "required"}
	}
	if !knownRoles[role] {
		return domain.User{}, policy.ValidationError{Field: "role", Reason: "unknown role"}
	}
	if password == "" {
		return domain.User{}, policy.ValidationError{Field: "password", Reason: "required"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}
	u := domain.User{
		ID:        uuid.NewString(),
		Name:      name,
		Role:      role,
		CreatedAt: e.timestamp(),
	}
	if err := e.Repo.InsertUser(ctx, u, string(hash)); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// Authenticate verifies credentials and returns the stored user.
func (e Engine) Authenticate(ctx context.Context, name, password string) (domain.User, error) {
	rec, err := e.Repo.GetUserByName(ctx, name)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.User{}, ErrBadCredentials
		}
		return domain.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)) != nil {
		return domain.User{}, ErrBadCredentials
	}
	return rec.User, nil
}
