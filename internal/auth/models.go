package auth

import "time"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is what a bearer token resolves to.
type Identity struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

func (id Identity) IsAdmin() bool  { return id.Role == RoleAdmin }
func (id Identity) IsVendor() bool { return id.Role == RoleVendor }
