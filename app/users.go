package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"tracker-api/domain"
)

// NewUser carries the fields accepted at signup.
type NewUser struct {
	Name           string
	Email          string
	Password       string
	OrganizationID string
}

// CreateOrganization registers a new tenant.
func (s *Service) CreateOrganization(ctx context.Context, name string) (domain.Organization, error) {
	org := domain.Organization{
		ID:        s.newID(),
		Name:      name,
		CreatedAt: s.now(),
	}
	created, err := s.store.CreateOrganization(ctx, org)
	if err != nil {
		return domain.Organization{}, fmt.Errorf("persist organization: %w", err)
	}
	return created, nil
}

// Signup registers a user inside an existing organization. The first user of
// an organization becomes its admin; everyone after that joins as a member.
func (s *Service) Signup(ctx context.Context, in NewUser) (domain.User, error) {
	if _, err := s.store.OrganizationByID(ctx, in.OrganizationID); err != nil {
		return domain.User{}, fmt.Errorf("load organization: %w", err)
	}

	count, err := s.store.CountUsersByOrganization(ctx, in.OrganizationID)
	if err != nil {
		return domain.User{}, fmt.Errorf("count organization users: %w", err)
	}
	role := domain.RoleMember
	if count == 0 {
		role = domain.RoleAdmin
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:             s.newID(),
		Name:           in.Name,
		Email:          in.Email,
		PasswordHash:   string(hash),
		Role:           role,
		OrganizationID: in.OrganizationID,
		CreatedAt:      s.now(),
	}
	created, err := s.store.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return domain.User{}, err
		}
		return domain.User{}, fmt.Errorf("persist user: %w", err)
	}
	return created, nil
}

// Login verifies an email/password pair. Unknown email and wrong password
// collapse into the same error.
func (s *Service) Login(ctx context.Context, email, password string) (domain.User, error) {
	user, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, ErrBadCredentials
		}
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrBadCredentials
	}
	return user, nil
}

// Members lists users in the caller's organization, optionally filtered by a
// case-insensitive name search.
func (s *Service) Members(ctx context.Context, caller domain.Caller, search string) ([]domain.User, error) {
	users, err := s.store.UsersByOrganization(ctx, caller.OrganizationID, search)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return users, nil
}
