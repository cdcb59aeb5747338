package auth

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ariefcatur/go-vendormart.git/internal/apperr"
)

// UserStore is the subset of Repo the service needs.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByID(ctx context.Context, id string) (*User, error)
}

type Service struct {
	Users    UserStore
	Sessions SessionStore
}

// Register creates a customer or vendor account. Admin is never
// self-assignable.
func (s *Service) Register(ctx context.Context, email, name, password string, role Role) (*User, error) {
	if email == "" || name == "" || password == "" {
		return nil, apperr.Validation("email, name and password are required")
	}
	switch role {
	case "":
		role = RoleCustomer
	case RoleCustomer, RoleVendor:
	default:
		return nil, apperr.Validation("invalid role: %s", role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &User{Email: email, Name: name, Role: role, PasswordHash: string(hash)}
	if err := s.Users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies the password and issues an opaque bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (token string, u *User, err error) {
	if email == "" || password == "" {
		return "", nil, apperr.Validation("email and password are required")
	}
	u, err = s.Users.UserByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, apperr.Unauthorized("invalid credentials")
	}
	token = uuid.NewString()
	if err := s.Sessions.Put(ctx, token, Identity{UserID: u.ID, Role: u.Role}); err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.Sessions.Delete(ctx, token)
}

// Authenticate resolves a bearer token to an identity.
func (s *Service) Authenticate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, apperr.Unauthorized("missing bearer token")
	}
	id, ok, err := s.Sessions.Get(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	if !ok {
		return Identity{}, apperr.Unauthorized("session expired or unknown")
	}
	return id, nil
}
